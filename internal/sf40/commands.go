package sf40

import "fmt"

// Command IDs understood by the SF40/c.
const (
	CmdProductName     byte = 0
	CmdHardwareVersion byte = 1
	CmdFirmwareVersion byte = 2
	CmdSerialNumber    byte = 3
	CmdUserData        byte = 9
	CmdToken           byte = 10
	CmdSaveParameters  byte = 12
	CmdReset           byte = 14
	CmdIncomingVoltage byte = 20
	CmdStream          byte = 30
	CmdDistanceOutput  byte = 48 // unsolicited telemetry sentinel
	CmdLaserFiring     byte = 50
	CmdTemperature     byte = 55
	CmdBaudRate        byte = 90
	CmdDistance        byte = 105
	CmdMotorState      byte = 106
	CmdMotorVoltage    byte = 107
	CmdOutputRate      byte = 108
	CmdForwardOffset   byte = 109
	CmdRevolutions     byte = 110
	CmdAlarmState      byte = 111
	CmdAlarm1          byte = 112
	CmdAlarm2          byte = 113
	CmdAlarm3          byte = 114
	CmdAlarm4          byte = 115
	CmdAlarm5          byte = 116
	CmdAlarm6          byte = 117
	CmdAlarm7          byte = 118
)

// Direction describes which transfer directions a command supports.
type Direction int

const (
	ReadOnly Direction = iota
	WriteOnly
	ReadWrite
)

func (d Direction) String() string {
	switch d {
	case ReadOnly:
		return "read"
	case WriteOnly:
		return "write"
	case ReadWrite:
		return "read/write"
	}
	return fmt.Sprintf("unknown direction %d", int(d))
}

// CommandDescriptor is one row of the command table: everything the
// generic read/write paths need to validate a request before it goes on
// the wire.
type CommandDescriptor struct {
	ID        byte
	Name      string
	Direction Direction
	// WriteLen is the exact payload size in bytes the device expects
	// for a write. Zero for read-only commands.
	WriteLen int
}

// commandTable is the single source of truth for command metadata. The
// typed accessors in device.go are thin wrappers over this table; there
// is no per-command transaction code.
var commandTable = map[byte]CommandDescriptor{
	CmdProductName:     {CmdProductName, "ProductName", ReadOnly, 0},
	CmdHardwareVersion: {CmdHardwareVersion, "HardwareVersion", ReadOnly, 0},
	CmdFirmwareVersion: {CmdFirmwareVersion, "FirmwareVersion", ReadOnly, 0},
	CmdSerialNumber:    {CmdSerialNumber, "SerialNumber", ReadOnly, 0},
	CmdUserData:        {CmdUserData, "UserData", ReadWrite, 16},
	CmdToken:           {CmdToken, "Token", ReadOnly, 0},
	CmdSaveParameters:  {CmdSaveParameters, "SaveParameters", WriteOnly, 2},
	CmdReset:           {CmdReset, "Reset", WriteOnly, 2},
	CmdIncomingVoltage: {CmdIncomingVoltage, "IncomingVoltage", ReadOnly, 0},
	CmdStream:          {CmdStream, "Stream", ReadWrite, 1},
	CmdDistanceOutput:  {CmdDistanceOutput, "DistanceOutput", ReadOnly, 0},
	CmdLaserFiring:     {CmdLaserFiring, "LaserFiring", ReadWrite, 1},
	CmdTemperature:     {CmdTemperature, "Temperature", ReadOnly, 0},
	CmdBaudRate:        {CmdBaudRate, "BaudRate", WriteOnly, 1},
	CmdDistance:        {CmdDistance, "Distance", ReadWrite, 6},
	CmdMotorState:      {CmdMotorState, "MotorState", ReadOnly, 0},
	CmdMotorVoltage:    {CmdMotorVoltage, "MotorVoltage", ReadOnly, 0},
	CmdOutputRate:      {CmdOutputRate, "OutputRate", ReadWrite, 1},
	CmdForwardOffset:   {CmdForwardOffset, "ForwardOffset", ReadWrite, 2},
	CmdRevolutions:     {CmdRevolutions, "Revolutions", ReadOnly, 0},
	CmdAlarmState:      {CmdAlarmState, "AlarmState", ReadOnly, 0},
	CmdAlarm1:          {CmdAlarm1, "Alarm1", ReadWrite, 7},
	CmdAlarm2:          {CmdAlarm2, "Alarm2", ReadWrite, 7},
	CmdAlarm3:          {CmdAlarm3, "Alarm3", ReadWrite, 7},
	CmdAlarm4:          {CmdAlarm4, "Alarm4", ReadWrite, 7},
	CmdAlarm5:          {CmdAlarm5, "Alarm5", ReadWrite, 7},
	CmdAlarm6:          {CmdAlarm6, "Alarm6", ReadWrite, 7},
	CmdAlarm7:          {CmdAlarm7, "Alarm7", ReadWrite, 7},
}

// LookupCommand returns the descriptor for a command ID.
func LookupCommand(id byte) (CommandDescriptor, bool) {
	d, ok := commandTable[id]
	return d, ok
}

// BaudRate is the device's baud rate selector for command 90.
type BaudRate byte

const (
	Baud115200 BaudRate = 4
	Baud230400 BaudRate = 5
	Baud460800 BaudRate = 6
	Baud921600 BaudRate = 7
)

// BitsPerSecond returns the line rate a selector stands for, or an
// error for a value the device does not define.
func (b BaudRate) BitsPerSecond() (int, error) {
	switch b {
	case Baud115200:
		return 115200, nil
	case Baud230400:
		return 230400, nil
	case Baud460800:
		return 460800, nil
	case Baud921600:
		return 921600, nil
	}
	return 0, fmt.Errorf("unknown baud rate selector %d", byte(b))
}

// OutputRate is the device's scan output rate selector for command 108.
type OutputRate byte

const (
	Rate20010PPS OutputRate = 0
	Rate10005PPS OutputRate = 1
	Rate6670PPS  OutputRate = 2
	Rate2001PPS  OutputRate = 3
)

// PointsPerSecond returns the scan rate a selector stands for.
func (r OutputRate) PointsPerSecond() (int, error) {
	switch r {
	case Rate20010PPS:
		return 20010, nil
	case Rate10005PPS:
		return 10005, nil
	case Rate6670PPS:
		return 6670, nil
	case Rate2001PPS:
		return 2001, nil
	}
	return 0, fmt.Errorf("unknown output rate selector %d", byte(r))
}

// MotorState is the motor spin-up state machine position reported by
// command 106. The core only reports it; it never drives transitions.
type MotorState byte

const (
	MotorPreStartup MotorState = 1
	MotorWaitOnRevs MotorState = 2
	MotorNormal     MotorState = 3
	MotorError      MotorState = 4
)

func (m MotorState) String() string {
	switch m {
	case MotorPreStartup:
		return "PreStartup"
	case MotorWaitOnRevs:
		return "WaitOnRevs"
	case MotorNormal:
		return "Normal"
	case MotorError:
		return "Error"
	}
	return fmt.Sprintf("unknown motor state %d", byte(m))
}

// Alarms is the alarm state bitfield from command 111: bits 0-6 are
// alarms 1-7, bit 7 is set when any alarm is active. Mask/shift
// accessors, never a packed struct.
type Alarms byte

// Triggered reports whether alarm n (1-7) is active.
func (a Alarms) Triggered(n int) bool {
	if n < 1 || n > 7 {
		return false
	}
	return a&(1<<(n-1)) != 0
}

// Any reports whether any alarm is active.
func (a Alarms) Any() bool { return a&0x80 != 0 }
