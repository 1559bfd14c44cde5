package sf40

import "encoding/binary"

// Wire framing constants.
const (
	// StartByte marks the beginning of every frame in both directions.
	StartByte = 0xAA

	// MaxResponseSize is the largest complete frame the device emits:
	// start byte, 2 header bytes, command ID, up to 1022 payload bytes
	// and 2 checksum bytes.
	MaxResponseSize = 1028

	// MaxFrameLength is the largest legal value of the header's 10-bit
	// length field, which counts the command ID plus payload bytes.
	MaxFrameLength = MaxResponseSize - 5
)

// Header word layout: write flag in bit 15, bits 14-10 reserved, frame
// length in the low 10 bits. Explicit mask/shift instead of bitfields so
// the layout never depends on how a compiler packs a struct.
const (
	headerWriteBit   uint16 = 1 << 15
	headerLengthMask uint16 = 0x03FF
)

func packHeader(write bool, frameLength int) uint16 {
	h := uint16(frameLength) & headerLengthMask
	if write {
		h |= headerWriteBit
	}
	return h
}

func headerWrite(h uint16) bool      { return h&headerWriteBit != 0 }
func headerFrameLength(h uint16) int { return int(h & headerLengthMask) }

// Frame is one decoded wire-level message. It is transient: the reader
// builds it, the session or stream decoder consumes it, and it is never
// persisted.
type Frame struct {
	CommandID byte
	Write     bool
	Payload   []byte // payload only, command ID excluded
}

// EncodeFrame builds the wire bytes for a command frame: start byte,
// header word, command ID, payload, then the little-endian checksum of
// everything preceding it.
//
// The payload length is the caller's responsibility; ReadCommand and
// WriteCommand validate it against the command table before encoding.
// Lengths beyond the 10-bit header field capacity are masked off.
func EncodeFrame(commandID byte, write bool, payload []byte) []byte {
	header := packHeader(write, len(payload)+1)

	buf := make([]byte, 0, 6+len(payload))
	buf = append(buf, StartByte)
	buf = binary.LittleEndian.AppendUint16(buf, header)
	buf = append(buf, commandID)
	buf = append(buf, payload...)
	buf = binary.LittleEndian.AppendUint16(buf, Checksum(buf))
	return buf
}
