package serialport

import (
	"context"
	"fmt"
	"io"
	"sync"

	"go.bug.st/serial"
)

// readBufferDepth sizes the buffered channel between the drain
// goroutine and ReadByte. A full distance stream packet is under 500
// bytes, so a few packets of slack absorbs consumer jitter.
const readBufferDepth = 4096

// Port is a byte-oriented serial connection with a non-blocking
// availability poll. It satisfies the sf40.Port interface.
type Port struct {
	port serial.Port

	incoming chan byte
	done     chan struct{}

	mu       sync.Mutex
	readErr  error
	closed   bool
	closeErr error
}

// Open opens the serial device at path with the given options and
// starts the background drain that feeds CanRead/ReadByte.
func Open(path string, opts PortOptions) (*Port, error) {
	mode, err := opts.SerialMode()
	if err != nil {
		return nil, err
	}

	raw, err := serial.Open(path, mode)
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", path, err)
	}

	return newPort(raw), nil
}

func newPort(raw serial.Port) *Port {
	p := &Port{
		port:     raw,
		incoming: make(chan byte, readBufferDepth),
		done:     make(chan struct{}),
	}
	go p.drain()
	return p
}

// drain pumps the blocking serial Read into the incoming channel so
// CanRead is a true non-blocking poll. It exits when the port errors
// (including the close of the underlying handle).
func (p *Port) drain() {
	defer close(p.incoming)
	buf := make([]byte, 256)
	for {
		n, err := p.port.Read(buf)
		for _, b := range buf[:n] {
			select {
			case p.incoming <- b:
			case <-p.done:
				return
			}
		}
		if err != nil {
			p.mu.Lock()
			if !p.closed {
				p.readErr = err
			}
			p.mu.Unlock()
			return
		}
		select {
		case <-p.done:
			return
		default:
		}
	}
}

// ReadByte returns the next buffered byte, blocking until one arrives,
// ctx is cancelled, or the port has failed.
func (p *Port) ReadByte(ctx context.Context) (byte, error) {
	select {
	case b, ok := <-p.incoming:
		if !ok {
			return 0, p.readError()
		}
		return b, nil
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

func (p *Port) readError() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.readErr != nil {
		return p.readErr
	}
	return io.EOF
}

// CanRead reports whether at least one byte is buffered.
func (p *Port) CanRead() bool { return len(p.incoming) > 0 }

// Write sends p to the device.
func (p *Port) Write(data []byte) (int, error) {
	return p.port.Write(data)
}

// Flush discards everything buffered locally and anything pending in
// the OS input buffer.
func (p *Port) Flush() error {
	for {
		select {
		case _, ok := <-p.incoming:
			if !ok {
				return p.port.ResetInputBuffer()
			}
		default:
			return p.port.ResetInputBuffer()
		}
	}
}

// Close stops the drain goroutine and closes the device. Safe to call
// more than once.
func (p *Port) Close() error {
	p.mu.Lock()
	if p.closed {
		err := p.closeErr
		p.mu.Unlock()
		return err
	}
	p.closed = true
	p.mu.Unlock()

	close(p.done)
	err := p.port.Close()

	p.mu.Lock()
	p.closeErr = err
	p.mu.Unlock()
	return err
}
