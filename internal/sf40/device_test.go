package sf40

import (
	"context"
	"encoding/binary"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/sf40/internal/serialport"
)

// scriptedSession returns a session over a port that answers every
// request for commandID with the given payload.
func scriptedSession(commandID byte, payload []byte) (*Session, *serialport.TestablePort) {
	port := serialport.NewTestablePort()
	port.OnWrite = func([]byte) {
		port.QueueRead(EncodeFrame(commandID, false, payload))
	}
	return newTestSession(port, 100*time.Millisecond), port
}

func TestProductName(t *testing.T) {
	session, _ := scriptedSession(CmdProductName, []byte("SF40\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00"))

	name, err := session.ProductName(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "SF40", name)
}

func TestFirmwareVersion(t *testing.T) {
	// patch, minor, major, reserved
	session, _ := scriptedSession(CmdFirmwareVersion, []byte{2, 1, 3, 0})

	version, err := session.FirmwareVersion(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "3.1.2", version)
}

func TestIncomingVoltage(t *testing.T) {
	// Full-scale ADC reading: 4095/4095 * 2.048 * 5.7
	payload := binary.LittleEndian.AppendUint32(nil, 4095)
	session, _ := scriptedSession(CmdIncomingVoltage, payload)

	volts, err := session.IncomingVoltage(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 2.048*5.7, volts, 1e-9)
}

func TestTemperature(t *testing.T) {
	payload := binary.LittleEndian.AppendUint32(nil, 2317)
	session, _ := scriptedSession(CmdTemperature, payload)

	degrees, err := session.Temperature(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 23.17, degrees, 1e-9)
}

func TestMotorVoltage(t *testing.T) {
	payload := binary.LittleEndian.AppendUint16(nil, 11987)
	session, _ := scriptedSession(CmdMotorVoltage, payload)

	volts, err := session.MotorVoltage(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 11.987, volts, 1e-9)
}

func TestMotorStateRead(t *testing.T) {
	session, _ := scriptedSession(CmdMotorState, []byte{byte(MotorWaitOnRevs)})

	state, err := session.MotorState(context.Background())
	require.NoError(t, err)
	assert.Equal(t, MotorWaitOnRevs, state)
}

func TestDistanceRead(t *testing.T) {
	payload := make([]byte, 0, 12)
	payload = binary.LittleEndian.AppendUint16(payload, uint16(int16(250)))  // average
	payload = binary.LittleEndian.AppendUint16(payload, uint16(int16(100)))  // closest
	payload = binary.LittleEndian.AppendUint16(payload, uint16(int16(1800))) // furthest
	angle := int16(-1350)
	payload = binary.LittleEndian.AppendUint16(payload, uint16(angle))
	payload = binary.LittleEndian.AppendUint32(payload, 4200)

	session, _ := scriptedSession(CmdDistance, payload)
	reading, err := session.Distance(context.Background())
	require.NoError(t, err)

	want := &DistanceReading{
		AverageDistance:  250,
		ClosestDistance:  100,
		FurthestDistance: 1800,
		Angle:            -1350,
		CalculationTime:  4200,
	}
	if diff := cmp.Diff(want, reading); diff != "" {
		t.Fatalf("distance reading mismatch (-want +got):\n%s", diff)
	}
}

func TestSetDistanceWindow_WirePayload(t *testing.T) {
	session, port := scriptedSession(CmdDistance, nil)

	err := session.SetDistanceWindow(context.Background(), DistanceWindow{
		Direction:   -90,
		Width:       45,
		MinDistance: 30,
	})
	require.NoError(t, err)

	// start + header + command + 6 payload bytes + checksum
	require.Len(t, port.Written, 12)
	payload := port.Written[4:10]
	assert.Equal(t, int16(-90), int16(binary.LittleEndian.Uint16(payload[0:2])))
	assert.Equal(t, int16(45), int16(binary.LittleEndian.Uint16(payload[2:4])))
	assert.Equal(t, int16(30), int16(binary.LittleEndian.Uint16(payload[4:6])))
}

func TestTokenAuthorisedWrites(t *testing.T) {
	port := serialport.NewTestablePort()
	port.OnWrite = func(p []byte) {
		// Respond to whatever command was just requested.
		port.QueueRead(EncodeFrame(p[3], false, []byte{0xCD, 0xAB}))
	}
	session := newTestSession(port, 100*time.Millisecond)
	ctx := context.Background()

	token, err := session.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint16(0xABCD), token)

	require.NoError(t, session.SaveParameters(ctx, token))

	// The save request carried the token little-endian.
	written := port.Written[len(port.Written)-8:]
	assert.Equal(t, byte(CmdSaveParameters), written[3])
	assert.Equal(t, []byte{0xCD, 0xAB}, written[4:6])
}

func TestStreamEnableDisable_WirePayload(t *testing.T) {
	session, port := scriptedSession(CmdStream, nil)
	ctx := context.Background()

	require.NoError(t, session.StartStream(ctx))
	assert.Equal(t, byte(3), port.Written[4])

	port.Written = nil
	require.NoError(t, session.StopStream(ctx))
	assert.Equal(t, byte(0), port.Written[4])
}

func TestAlarmConfigRoundTrip(t *testing.T) {
	payload := []byte{1}
	payload = binary.LittleEndian.AppendUint16(payload, uint16(int16(180)))
	payload = binary.LittleEndian.AppendUint16(payload, uint16(int16(20)))
	payload = binary.LittleEndian.AppendUint16(payload, uint16(int16(500)))

	session, port := scriptedSession(CmdAlarm3, payload)
	ctx := context.Background()

	cfg, err := session.Alarm(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, &AlarmConfig{Enabled: true, Direction: 180, Width: 20, Distance: 500}, cfg)

	port.Written = nil
	require.NoError(t, session.SetAlarm(ctx, 3, *cfg))
	assert.Equal(t, byte(CmdAlarm3), port.Written[3])
	assert.Equal(t, payload, port.Written[4:11])
}

func TestAlarmNumberValidation(t *testing.T) {
	session := newTestSession(serialport.NewTestablePort(), 50*time.Millisecond)
	ctx := context.Background()

	_, err := session.Alarm(ctx, 0)
	assert.ErrorContains(t, err, "out of range")
	_, err = session.Alarm(ctx, 8)
	assert.ErrorContains(t, err, "out of range")
	err = session.SetAlarm(ctx, 8, AlarmConfig{})
	assert.ErrorContains(t, err, "out of range")
}

func TestSetBaudRate_RejectsUnknownSelector(t *testing.T) {
	session := newTestSession(serialport.NewTestablePort(), 50*time.Millisecond)
	err := session.SetBaudRate(context.Background(), BaudRate(9))
	assert.ErrorContains(t, err, "unknown baud rate")
}

func TestShortResponsePayload(t *testing.T) {
	// A structurally valid frame whose payload is shorter than the
	// decoder needs must fail cleanly, never read out of bounds.
	session, _ := scriptedSession(CmdIncomingVoltage, []byte{0x01, 0x02})

	_, err := session.IncomingVoltage(context.Background())
	require.ErrorIs(t, err, ErrFraming)
}
