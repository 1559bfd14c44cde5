package sf40

import (
	"context"
	"encoding/binary"
	"fmt"
)

// MaxStreamPoints is the most distance samples one telemetry frame may
// carry; it is the decode buffer capacity, and a frame claiming more is
// rejected whole rather than truncated.
const MaxStreamPoints = 200

// streamHeaderSize is the fixed prefix of a distance output payload
// before the per-point samples begin.
const streamHeaderSize = 14

// StreamSample is one decoded distance output frame (command 48): a
// slice of one motor revolution plus the device status fields the SF40
// piggybacks on every telemetry packet.
type StreamSample struct {
	Alarms          Alarms
	PointsPerSecond uint16
	ForwardOffset   int16 // degrees
	MotorVoltage    int16 // millivolts
	RevolutionIndex uint8 // wraps at 255
	PointTotal      uint16
	PointCount      uint16
	PointStartIndex uint16
	Distances       []int16 // centimetres, PointCount entries
}

// DecodeStreamSample decodes the fixed telemetry layout from a distance
// output frame's payload. The point count is validated against
// MaxStreamPoints and the actual payload size before any copy.
func DecodeStreamSample(payload []byte) (*StreamSample, error) {
	if len(payload) < streamHeaderSize {
		return nil, fmt.Errorf("%w: stream payload %d bytes, need at least %d", ErrFraming, len(payload), streamHeaderSize)
	}

	pointCount := binary.LittleEndian.Uint16(payload[10:12])
	if int(pointCount) > MaxStreamPoints {
		return nil, fmt.Errorf("%w: frame claims %d points, capacity %d", ErrBufferOverflow, pointCount, MaxStreamPoints)
	}
	if want := streamHeaderSize + 2*int(pointCount); len(payload) < want {
		return nil, fmt.Errorf("%w: stream payload %d bytes, %d points need %d", ErrFraming, len(payload), pointCount, want)
	}

	sample := &StreamSample{
		Alarms:          Alarms(payload[0]),
		PointsPerSecond: binary.LittleEndian.Uint16(payload[1:3]),
		ForwardOffset:   int16(binary.LittleEndian.Uint16(payload[3:5])),
		MotorVoltage:    int16(binary.LittleEndian.Uint16(payload[5:7])),
		RevolutionIndex: payload[7],
		PointTotal:      binary.LittleEndian.Uint16(payload[8:10]),
		PointCount:      pointCount,
		PointStartIndex: binary.LittleEndian.Uint16(payload[12:14]),
		Distances:       make([]int16, pointCount),
	}
	for i := range sample.Distances {
		off := streamHeaderSize + 2*i
		sample.Distances[i] = int16(binary.LittleEndian.Uint16(payload[off : off+2]))
	}
	return sample, nil
}

// ReadStreamFrame blocks for the next frame on the wire and decodes it
// as distance telemetry. A valid frame with any other command ID yields
// ErrWrongFrameType: the caller may have raced an in-flight command
// transaction, and should simply read again.
//
// Streaming must have been enabled with StartStream first or the call
// blocks until ctx expires.
func (s *Session) ReadStreamFrame(ctx context.Context) (*StreamSample, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	frame, err := ReadFrame(ctx, s.port)
	if err != nil {
		return nil, err
	}
	if frame.CommandID != CmdDistanceOutput {
		return nil, fmt.Errorf("%w: got command %d", ErrWrongFrameType, frame.CommandID)
	}
	return DecodeStreamSample(frame.Payload)
}
