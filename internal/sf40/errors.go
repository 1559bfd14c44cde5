package sf40

import "errors"

// Protocol error taxonomy. Framing and checksum failures on individual
// packets are recovered inside the transaction polling loop and never
// surface from Request; only ErrTimeout does. Match with errors.Is.
var (
	// ErrFraming covers a missing start byte or an out-of-range length
	// field. The byte stream is desynchronised; recovery is to keep
	// reading fresh frames until a start byte lines up again.
	ErrFraming = errors.New("framing error")

	// ErrChecksum means a structurally valid frame failed checksum
	// verification.
	ErrChecksum = errors.New("checksum mismatch")

	// ErrTimeout means no matching response arrived within the
	// transaction's time budget. For a write this leaves the device
	// state unknown: writes are never retried automatically.
	ErrTimeout = errors.New("timed out waiting for response")

	// ErrWrongFrameType means the stream decoder read a valid frame
	// that is not distance telemetry, e.g. a late command response.
	ErrWrongFrameType = errors.New("not a distance output frame")

	// ErrBufferOverflow means a decoded count field exceeds the
	// capacity it would be copied into. The frame is rejected whole,
	// never truncated.
	ErrBufferOverflow = errors.New("point count exceeds buffer capacity")
)
