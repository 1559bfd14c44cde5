package sf40

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
)

// Port is the capability set the protocol layer needs from a serial
// connection. internal/serialport provides real and testable
// implementations.
type Port interface {
	// ReadByte blocks until one byte is available, the context is
	// cancelled, or the port fails.
	ReadByte(ctx context.Context) (byte, error)
	// CanRead reports, without blocking, whether at least one byte is
	// buffered for reading.
	CanRead() bool
	io.Writer
	// Flush discards any unread buffered bytes.
	Flush() error
	io.Closer
}

// ReadFrame assembles and validates one frame from port.
//
// On a bad start byte it fails after consuming exactly the three
// prologue bytes, so a desynchronised caller re-synchronises by calling
// ReadFrame again until a start byte lines up. The length field is
// bounds-checked before any buffer is sized from it.
func ReadFrame(ctx context.Context, port Port) (*Frame, error) {
	var prologue [3]byte
	for i := range prologue {
		b, err := port.ReadByte(ctx)
		if err != nil {
			return nil, fmt.Errorf("read frame prologue: %w", err)
		}
		prologue[i] = b
	}

	if prologue[0] != StartByte {
		return nil, fmt.Errorf("%w: bad start byte 0x%02x", ErrFraming, prologue[0])
	}

	header := binary.LittleEndian.Uint16(prologue[1:3])
	frameLength := headerFrameLength(header)
	if frameLength < 1 || frameLength > MaxFrameLength {
		return nil, fmt.Errorf("%w: length %d out of range [1,%d]", ErrFraming, frameLength, MaxFrameLength)
	}

	// command ID + payload + 2 checksum bytes
	body := make([]byte, frameLength+2)
	for i := range body {
		b, err := port.ReadByte(ctx)
		if err != nil {
			return nil, fmt.Errorf("read frame body: %w", err)
		}
		body[i] = b
	}

	want := binary.LittleEndian.Uint16(body[frameLength:])
	summed := make([]byte, 0, 3+frameLength)
	summed = append(summed, prologue[:]...)
	summed = append(summed, body[:frameLength]...)
	if got := Checksum(summed); got != want {
		return nil, fmt.Errorf("%w: computed 0x%04x, frame carries 0x%04x", ErrChecksum, got, want)
	}

	return &Frame{
		CommandID: body[0],
		Write:     headerWrite(header),
		Payload:   body[1:frameLength],
	}, nil
}
