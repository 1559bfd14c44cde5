package serialport

import (
	"context"
	"io"
	"sync"
	"time"
)

// TestablePort implements the sf40.Port capability set entirely in
// memory with configurable behaviour. It lets protocol tests script
// exact byte sequences, inject errors, and inspect what was written.
type TestablePort struct {
	mu sync.Mutex

	// readQueue holds bytes to be returned by ReadByte, in order.
	readQueue []byte

	// Written captures every byte written to the port.
	Written []byte

	// ReadErr is returned by ReadByte once the queue is empty.
	// When nil, ReadByte blocks until bytes arrive or ctx expires.
	ReadErr error

	// WriteErr is returned by every Write call when set.
	WriteErr error

	// CloseErr is returned by Close when set.
	CloseErr error

	// Closed records whether Close was called.
	Closed bool

	// WriteCalls counts Write invocations.
	WriteCalls int

	// OnWrite, when set, is invoked with each written chunk. Tests use
	// it to queue a scripted response to a request the moment it is
	// sent.
	OnWrite func(p []byte)
}

// NewTestablePort creates an empty port.
func NewTestablePort() *TestablePort {
	return &TestablePort{}
}

// QueueRead appends bytes for subsequent ReadByte calls.
func (t *TestablePort) QueueRead(p []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.readQueue = append(t.readQueue, p...)
}

// ReadByte pops the next queued byte. With an empty queue it returns
// ReadErr if set, io.EOF if the port is closed, and otherwise polls
// until a byte is queued or ctx expires.
func (t *TestablePort) ReadByte(ctx context.Context) (byte, error) {
	for {
		t.mu.Lock()
		if len(t.readQueue) > 0 {
			b := t.readQueue[0]
			t.readQueue = t.readQueue[1:]
			t.mu.Unlock()
			return b, nil
		}
		err := t.ReadErr
		closed := t.Closed
		t.mu.Unlock()

		if err != nil {
			return 0, err
		}
		if closed {
			return 0, io.EOF
		}

		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-time.After(time.Millisecond):
		}
	}
}

// CanRead reports whether any bytes are queued.
func (t *TestablePort) CanRead() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.readQueue) > 0
}

// Write records the written bytes.
func (t *TestablePort) Write(p []byte) (int, error) {
	t.mu.Lock()
	t.WriteCalls++
	if t.WriteErr != nil {
		err := t.WriteErr
		t.mu.Unlock()
		return 0, err
	}
	t.Written = append(t.Written, p...)
	onWrite := t.OnWrite
	t.mu.Unlock()

	if onWrite != nil {
		onWrite(p)
	}
	return len(p), nil
}

// Flush discards all queued read bytes.
func (t *TestablePort) Flush() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.readQueue = nil
	return nil
}

// Close marks the port closed.
func (t *TestablePort) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Closed = true
	return t.CloseErr
}
