package sf40

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/banshee-data/sf40/internal/monitoring"
)

// Default transaction timing. The device normally answers within a few
// milliseconds; 100ms is the budget after which a transaction is
// declared dead.
const (
	DefaultResponseTimeout = 100 * time.Millisecond
	DefaultPollInterval    = time.Millisecond
)

// SessionConfig carries the tunable parts of a Session. The zero value
// selects defaults.
type SessionConfig struct {
	// ResponseTimeout bounds how long a transaction polls for its
	// matching response. Defaults to DefaultResponseTimeout.
	ResponseTimeout time.Duration

	// PollInterval is the sleep between byte-availability polls.
	// Defaults to DefaultPollInterval.
	PollInterval time.Duration

	// StreamSink, when set, receives distance telemetry frames that
	// arrive while a command transaction is polling for its response.
	// Without a sink such frames are discarded like any other
	// mismatched frame. The sink is called on the transaction's
	// goroutine and must not block.
	StreamSink func(*StreamSample)
}

// Session owns exclusive access to one serial port and runs one
// transaction at a time. Concurrent callers serialise on the session's
// internal lock; issuing two overlapping requests on separate sessions
// sharing a port corrupts response correlation, so don't share ports.
type Session struct {
	mu   sync.Mutex
	port Port

	timeout time.Duration
	poll    time.Duration
	sink    func(*StreamSample)
}

// NewSession wraps an open port in a session.
func NewSession(port Port, cfg SessionConfig) *Session {
	if cfg.ResponseTimeout <= 0 {
		cfg.ResponseTimeout = DefaultResponseTimeout
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	return &Session{
		port:    port,
		timeout: cfg.ResponseTimeout,
		poll:    cfg.PollInterval,
		sink:    cfg.StreamSink,
	}
}

// Close closes the underlying port.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.port.Close()
}

// Request sends one command frame and polls for the response whose
// command ID matches. Malformed frames (framing or checksum failures)
// and mismatched responses are discarded and polling continues; only
// the timeout or a port failure aborts the transaction. ctx cancels
// early.
//
// A write is acknowledged by command ID equality alone; the
// acknowledgment payload is not validated further, matching the device
// contract. A timed-out write leaves the device state unknown and is
// never resent.
func (s *Session) Request(ctx context.Context, commandID byte, write bool, payload []byte) (*Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.request(ctx, commandID, write, payload)
}

func (s *Session) request(ctx context.Context, commandID byte, write bool, payload []byte) (*Frame, error) {
	if _, err := s.port.Write(EncodeFrame(commandID, write, payload)); err != nil {
		return nil, fmt.Errorf("send command %d: %w", commandID, err)
	}

	deadline := time.Now().Add(s.timeout)
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(s.poll):
		}

		if time.Now().After(deadline) {
			monitoring.Logf("sf40: no response to command %d within %v", commandID, s.timeout)
			return nil, fmt.Errorf("command %d: %w", commandID, ErrTimeout)
		}

		if !s.port.CanRead() {
			continue
		}

		frame, err := ReadFrame(ctx, s.port)
		switch {
		case err == nil && frame.CommandID == commandID:
			return frame, nil
		case err == nil && frame.CommandID == CmdDistanceOutput && s.sink != nil:
			// Telemetry racing the transaction is forwarded to the
			// stream consumer instead of dropped on the floor.
			if sample, derr := DecodeStreamSample(frame.Payload); derr == nil {
				s.sink(sample)
			}
		case err == nil:
			// A response to some other command. Discard and keep
			// polling for ours.
		case errors.Is(err, ErrFraming), errors.Is(err, ErrChecksum):
			// One bad packet doesn't abort the transaction.
		default:
			return nil, err
		}
	}
}

// ReadCommand runs a read transaction for commandID and returns the
// response payload.
func (s *Session) ReadCommand(ctx context.Context, commandID byte) ([]byte, error) {
	desc, ok := LookupCommand(commandID)
	if !ok {
		return nil, fmt.Errorf("unknown command %d", commandID)
	}
	if desc.Direction == WriteOnly {
		return nil, fmt.Errorf("command %s is %s", desc.Name, desc.Direction)
	}
	frame, err := s.Request(ctx, commandID, false, nil)
	if err != nil {
		return nil, err
	}
	return frame.Payload, nil
}

// WriteCommand runs a write transaction for commandID with the given
// payload, validated against the command table.
func (s *Session) WriteCommand(ctx context.Context, commandID byte, payload []byte) error {
	desc, ok := LookupCommand(commandID)
	if !ok {
		return fmt.Errorf("unknown command %d", commandID)
	}
	if desc.Direction == ReadOnly {
		return fmt.Errorf("command %s is %s", desc.Name, desc.Direction)
	}
	if len(payload) != desc.WriteLen {
		return fmt.Errorf("command %s takes %d payload bytes, got %d", desc.Name, desc.WriteLen, len(payload))
	}
	_, err := s.Request(ctx, commandID, true, payload)
	return err
}
