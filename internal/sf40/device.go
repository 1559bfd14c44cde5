package sf40

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
)

// Typed accessors over the command table. Each one is pure marshalling:
// validate, run the generic transaction, decode at the documented
// offsets.

// incoming voltage ADC scaling: counts/4095 full scale, 2.048V
// reference, 5.7:1 divider.
const (
	voltageADCFullScale = 4095.0
	voltageADCReference = 2.048
	voltageDividerRatio = 5.7
)

func (s *Session) readPayload(ctx context.Context, commandID byte, minLen int) ([]byte, error) {
	payload, err := s.ReadCommand(ctx, commandID)
	if err != nil {
		return nil, err
	}
	if len(payload) < minLen {
		desc, _ := LookupCommand(commandID)
		return nil, fmt.Errorf("%w: %s response %d bytes, need %d", ErrFraming, desc.Name, len(payload), minLen)
	}
	return payload, nil
}

func (s *Session) readString(ctx context.Context, commandID byte) (string, error) {
	payload, err := s.ReadCommand(ctx, commandID)
	if err != nil {
		return "", err
	}
	if i := bytes.IndexByte(payload, 0); i >= 0 {
		payload = payload[:i]
	}
	return string(payload), nil
}

func (s *Session) readUint32(ctx context.Context, commandID byte) (uint32, error) {
	payload, err := s.readPayload(ctx, commandID, 4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(payload), nil
}

// ProductName reads the device model string, "SF40" on this hardware.
func (s *Session) ProductName(ctx context.Context) (string, error) {
	return s.readString(ctx, CmdProductName)
}

// HardwareVersion reads the hardware revision number.
func (s *Session) HardwareVersion(ctx context.Context) (uint32, error) {
	return s.readUint32(ctx, CmdHardwareVersion)
}

// FirmwareVersion reads the firmware revision, reported by the device
// as patch, minor, major bytes in ascending payload order.
func (s *Session) FirmwareVersion(ctx context.Context) (string, error) {
	payload, err := s.readPayload(ctx, CmdFirmwareVersion, 3)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d.%d.%d", payload[2], payload[1], payload[0]), nil
}

// SerialNumber reads the device serial number string.
func (s *Session) SerialNumber(ctx context.Context) (string, error) {
	return s.readString(ctx, CmdSerialNumber)
}

// UserData reads the 16-byte user scratch area.
func (s *Session) UserData(ctx context.Context) ([]byte, error) {
	return s.readPayload(ctx, CmdUserData, 16)
}

// SetUserData writes the 16-byte user scratch area.
func (s *Session) SetUserData(ctx context.Context, data []byte) error {
	return s.WriteCommand(ctx, CmdUserData, data)
}

// Token reads the current security token. Tokens authorise
// SaveParameters and Reset and are invalidated after first use, so read
// a fresh one immediately before each such write.
func (s *Session) Token(ctx context.Context) (uint16, error) {
	payload, err := s.readPayload(ctx, CmdToken, 2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(payload), nil
}

func tokenPayload(token uint16) []byte {
	return binary.LittleEndian.AppendUint16(nil, token)
}

// SaveParameters persists the current configuration to non-volatile
// memory, authorised by a fresh token.
func (s *Session) SaveParameters(ctx context.Context, token uint16) error {
	return s.WriteCommand(ctx, CmdSaveParameters, tokenPayload(token))
}

// Reset restarts the device, authorised by a fresh token.
func (s *Session) Reset(ctx context.Context, token uint16) error {
	return s.WriteCommand(ctx, CmdReset, tokenPayload(token))
}

// IncomingVoltage reads the supply voltage in volts.
func (s *Session) IncomingVoltage(ctx context.Context) (float64, error) {
	counts, err := s.readUint32(ctx, CmdIncomingVoltage)
	if err != nil {
		return 0, err
	}
	return float64(counts) / voltageADCFullScale * voltageADCReference * voltageDividerRatio, nil
}

// stream enable flag values for command 30.
const (
	streamOff      byte = 0
	streamDistance byte = 3
)

// StartStream enables the unsolicited distance output stream.
func (s *Session) StartStream(ctx context.Context) error {
	return s.WriteCommand(ctx, CmdStream, []byte{streamDistance})
}

// StopStream disables the distance output stream.
func (s *Session) StopStream(ctx context.Context) error {
	return s.WriteCommand(ctx, CmdStream, []byte{streamOff})
}

// LaserFiring reads whether the laser is firing.
func (s *Session) LaserFiring(ctx context.Context) (bool, error) {
	payload, err := s.readPayload(ctx, CmdLaserFiring, 1)
	if err != nil {
		return false, err
	}
	return payload[0] != 0, nil
}

// SetLaserFiring enables or disables the laser.
func (s *Session) SetLaserFiring(ctx context.Context, on bool) error {
	var flag byte
	if on {
		flag = 1
	}
	return s.WriteCommand(ctx, CmdLaserFiring, []byte{flag})
}

// Temperature reads the internal temperature in degrees Celsius.
func (s *Session) Temperature(ctx context.Context) (float64, error) {
	raw, err := s.readUint32(ctx, CmdTemperature)
	if err != nil {
		return 0, err
	}
	return float64(int32(raw)) / 100.0, nil
}

// SetBaudRate switches the device serial rate. The change takes effect
// on the device immediately; the caller must reopen the port at the new
// rate.
func (s *Session) SetBaudRate(ctx context.Context, rate BaudRate) error {
	if _, err := rate.BitsPerSecond(); err != nil {
		return err
	}
	return s.WriteCommand(ctx, CmdBaudRate, []byte{byte(rate)})
}

// DistanceReading is the decoded response of a Distance (105) read.
type DistanceReading struct {
	AverageDistance  int16  // centimetres
	ClosestDistance  int16  // centimetres
	FurthestDistance int16  // centimetres
	Angle            int16  // tenths of a degree, toward closest return
	CalculationTime  uint32 // microseconds
}

// DistanceWindow configures which slice of the scan a Distance read
// reports over, written ahead of the read.
type DistanceWindow struct {
	Direction   int16 // degrees
	Width       int16 // degrees
	MinDistance int16 // centimetres
}

// Distance reads the distance summary for the previously configured
// window.
func (s *Session) Distance(ctx context.Context) (*DistanceReading, error) {
	payload, err := s.readPayload(ctx, CmdDistance, 12)
	if err != nil {
		return nil, err
	}
	return &DistanceReading{
		AverageDistance:  int16(binary.LittleEndian.Uint16(payload[0:2])),
		ClosestDistance:  int16(binary.LittleEndian.Uint16(payload[2:4])),
		FurthestDistance: int16(binary.LittleEndian.Uint16(payload[4:6])),
		Angle:            int16(binary.LittleEndian.Uint16(payload[6:8])),
		CalculationTime:  binary.LittleEndian.Uint32(payload[8:12]),
	}, nil
}

// SetDistanceWindow configures the scan window for Distance reads.
func (s *Session) SetDistanceWindow(ctx context.Context, w DistanceWindow) error {
	payload := make([]byte, 0, 6)
	payload = binary.LittleEndian.AppendUint16(payload, uint16(w.Direction))
	payload = binary.LittleEndian.AppendUint16(payload, uint16(w.Width))
	payload = binary.LittleEndian.AppendUint16(payload, uint16(w.MinDistance))
	return s.WriteCommand(ctx, CmdDistance, payload)
}

// MotorState reads the motor spin-up state.
func (s *Session) MotorState(ctx context.Context) (MotorState, error) {
	payload, err := s.readPayload(ctx, CmdMotorState, 1)
	if err != nil {
		return 0, err
	}
	return MotorState(payload[0]), nil
}

// MotorVoltage reads the scan motor supply in volts.
func (s *Session) MotorVoltage(ctx context.Context) (float64, error) {
	payload, err := s.readPayload(ctx, CmdMotorVoltage, 2)
	if err != nil {
		return 0, err
	}
	return float64(binary.LittleEndian.Uint16(payload)) / 1000.0, nil
}

// GetOutputRate reads the current scan output rate selector.
func (s *Session) GetOutputRate(ctx context.Context) (OutputRate, error) {
	payload, err := s.readPayload(ctx, CmdOutputRate, 1)
	if err != nil {
		return 0, err
	}
	return OutputRate(payload[0]), nil
}

// SetOutputRate selects the scan output rate.
func (s *Session) SetOutputRate(ctx context.Context, rate OutputRate) error {
	if _, err := rate.PointsPerSecond(); err != nil {
		return err
	}
	return s.WriteCommand(ctx, CmdOutputRate, []byte{byte(rate)})
}

// ForwardOffset reads the mounting orientation offset in degrees.
func (s *Session) ForwardOffset(ctx context.Context) (int16, error) {
	payload, err := s.readPayload(ctx, CmdForwardOffset, 2)
	if err != nil {
		return 0, err
	}
	return int16(binary.LittleEndian.Uint16(payload)), nil
}

// SetForwardOffset sets the mounting orientation offset in degrees.
func (s *Session) SetForwardOffset(ctx context.Context, degrees int16) error {
	return s.WriteCommand(ctx, CmdForwardOffset, binary.LittleEndian.AppendUint16(nil, uint16(degrees)))
}

// Revolutions reads the lifetime motor revolution counter, which wraps
// at 2^32.
func (s *Session) Revolutions(ctx context.Context) (uint32, error) {
	return s.readUint32(ctx, CmdRevolutions)
}

// AlarmState reads the alarm bitfield.
func (s *Session) AlarmState(ctx context.Context) (Alarms, error) {
	payload, err := s.readPayload(ctx, CmdAlarmState, 1)
	if err != nil {
		return 0, err
	}
	return Alarms(payload[0]), nil
}

// AlarmConfig is the configuration of one of the seven zone alarms.
type AlarmConfig struct {
	Enabled   bool
	Direction int16 // degrees, zone centre
	Width     int16 // degrees around the centre
	Distance  int16 // centimetres, trigger threshold
}

func alarmCommand(n int) (byte, error) {
	if n < 1 || n > 7 {
		return 0, fmt.Errorf("alarm number %d out of range [1,7]", n)
	}
	return CmdAlarm1 + byte(n-1), nil
}

// Alarm reads the configuration of alarm n (1-7).
func (s *Session) Alarm(ctx context.Context, n int) (*AlarmConfig, error) {
	cmd, err := alarmCommand(n)
	if err != nil {
		return nil, err
	}
	payload, err := s.readPayload(ctx, cmd, 7)
	if err != nil {
		return nil, err
	}
	return &AlarmConfig{
		Enabled:   payload[0] != 0,
		Direction: int16(binary.LittleEndian.Uint16(payload[1:3])),
		Width:     int16(binary.LittleEndian.Uint16(payload[3:5])),
		Distance:  int16(binary.LittleEndian.Uint16(payload[5:7])),
	}, nil
}

// SetAlarm configures alarm n (1-7).
func (s *Session) SetAlarm(ctx context.Context, n int, cfg AlarmConfig) error {
	cmd, err := alarmCommand(n)
	if err != nil {
		return err
	}
	var enabled byte
	if cfg.Enabled {
		enabled = 1
	}
	payload := make([]byte, 0, 7)
	payload = append(payload, enabled)
	payload = binary.LittleEndian.AppendUint16(payload, uint16(cfg.Direction))
	payload = binary.LittleEndian.AppendUint16(payload, uint16(cfg.Width))
	payload = binary.LittleEndian.AppendUint16(payload, uint16(cfg.Distance))
	return s.WriteCommand(ctx, cmd, payload)
}
