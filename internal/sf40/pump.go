package sf40

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/banshee-data/sf40/internal/monitoring"
)

// DefaultPumpDepth is the default bounded queue depth for a StreamPump.
const DefaultPumpDepth = 16

// StreamPump continuously drains distance telemetry from a session into
// a bounded queue so a consumer can lag without stalling the serial
// port. When the queue is full the oldest sample is dropped first:
// stale telemetry is worthless.
//
// The pump takes the session lock one frame at a time, so command
// transactions issued on the same session still get exclusive access to
// the port for their whole polling window.
type StreamPump struct {
	session *Session
	samples chan *StreamSample
	dropped atomic.Uint64
}

// NewStreamPump creates a pump over session with the given queue depth
// (DefaultPumpDepth if depth <= 0).
func NewStreamPump(session *Session, depth int) *StreamPump {
	if depth <= 0 {
		depth = DefaultPumpDepth
	}
	return &StreamPump{
		session: session,
		samples: make(chan *StreamSample, depth),
	}
}

// Samples is the queue of decoded telemetry, newest-biased under
// overflow.
func (p *StreamPump) Samples() <-chan *StreamSample { return p.samples }

// Dropped returns how many samples have been discarded to make room for
// newer ones.
func (p *StreamPump) Dropped() uint64 { return p.dropped.Load() }

// Run drains the port until ctx is cancelled or the port fails. The
// samples channel is closed on return.
func (p *StreamPump) Run(ctx context.Context) error {
	defer close(p.samples)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(p.session.poll):
		}

		sample, err := p.next(ctx)
		switch {
		case err == nil && sample == nil:
			// nothing buffered yet
		case err == nil:
			p.enqueue(sample)
		case errors.Is(err, ErrFraming), errors.Is(err, ErrChecksum),
			errors.Is(err, ErrWrongFrameType), errors.Is(err, ErrBufferOverflow):
			monitoring.Logf("sf40: stream pump discarded frame: %v", err)
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return nil
		default:
			return err
		}
	}
}

// next reads at most one frame, holding the session lock only while
// bytes are known to be available.
func (p *StreamPump) next(ctx context.Context) (*StreamSample, error) {
	p.session.mu.Lock()
	defer p.session.mu.Unlock()
	if !p.session.port.CanRead() {
		return nil, nil
	}
	frame, err := ReadFrame(ctx, p.session.port)
	if err != nil {
		return nil, err
	}
	if frame.CommandID != CmdDistanceOutput {
		return nil, ErrWrongFrameType
	}
	return DecodeStreamSample(frame.Payload)
}

func (p *StreamPump) enqueue(sample *StreamSample) {
	select {
	case p.samples <- sample:
		return
	default:
	}
	// Queue full: evict the oldest, then retry once. A consumer racing
	// the eviction just means the queue has room either way.
	select {
	case <-p.samples:
		p.dropped.Add(1)
	default:
	}
	select {
	case p.samples <- sample:
	default:
		p.dropped.Add(1)
	}
}
