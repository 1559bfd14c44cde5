// Command sf40 talks to a LightWare SF40/c scanning lidar over a serial
// port: query identity and health, change settings, and record the
// distance stream to SQLite.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/sf40/internal/scandb"
	"github.com/banshee-data/sf40/internal/serialport"
	"github.com/banshee-data/sf40/internal/sf40"
)

var (
	portPath = flag.String("port", "/dev/ttyUSB0", "Serial device path")
	baudRate = flag.Int("baud", 115200, "Serial baud rate")
	timeout  = flag.Duration("timeout", sf40.DefaultResponseTimeout, "Per-command response timeout")

	info   = flag.Bool("info", false, "Print device identity and health, then exit")
	alarms = flag.Bool("alarms", false, "Print alarm state and zone configuration, then exit")

	laser         = flag.String("laser", "", "Set laser firing: on or off")
	outputRate    = flag.Int("output-rate", -1, "Set output rate selector (0=20010pps 1=10005pps 2=6670pps 3=2001pps)")
	forwardOffset = flag.Int("forward-offset", unsetOffset, "Set forward offset in degrees")
	setBaud       = flag.Int("set-baud", 0, "Switch the device to a new baud rate (115200, 230400, 460800 or 921600)")
	save          = flag.Bool("save", false, "Persist current settings to non-volatile memory")

	watch      = flag.Bool("watch", false, "Enable the distance stream and print per-revolution statistics")
	dbFile     = flag.String("db", "", "SQLite file to record stream packets to (watch mode)")
	notes      = flag.String("notes", "", "Session notes to record alongside stream data")
	queueDepth = flag.Int("queue", sf40.DefaultPumpDepth, "Stream sample queue depth (oldest dropped on overflow)")
)

const unsetOffset = -32768

func main() {
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	port, err := serialport.Open(*portPath, serialport.PortOptions{BaudRate: *baudRate})
	if err != nil {
		log.Fatalf("failed to open serial port: %v", err)
	}

	session := sf40.NewSession(port, sf40.SessionConfig{ResponseTimeout: *timeout})
	defer session.Close()

	if err := run(ctx, session); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("sf40: %v", err)
	}
}

func run(ctx context.Context, session *sf40.Session) error {
	if *info {
		return printInfo(ctx, session)
	}
	if *alarms {
		return printAlarms(ctx, session)
	}

	if err := applySettings(ctx, session); err != nil {
		return err
	}

	if *watch {
		return watchStream(ctx, session)
	}
	return nil
}

func printInfo(ctx context.Context, session *sf40.Session) error {
	name, err := session.ProductName(ctx)
	if err != nil {
		return fmt.Errorf("read product name: %w", err)
	}
	hw, err := session.HardwareVersion(ctx)
	if err != nil {
		return fmt.Errorf("read hardware version: %w", err)
	}
	fw, err := session.FirmwareVersion(ctx)
	if err != nil {
		return fmt.Errorf("read firmware version: %w", err)
	}
	serialNo, err := session.SerialNumber(ctx)
	if err != nil {
		return fmt.Errorf("read serial number: %w", err)
	}
	volts, err := session.IncomingVoltage(ctx)
	if err != nil {
		return fmt.Errorf("read incoming voltage: %w", err)
	}
	temp, err := session.Temperature(ctx)
	if err != nil {
		return fmt.Errorf("read temperature: %w", err)
	}
	motor, err := session.MotorState(ctx)
	if err != nil {
		return fmt.Errorf("read motor state: %w", err)
	}
	motorVolts, err := session.MotorVoltage(ctx)
	if err != nil {
		return fmt.Errorf("read motor voltage: %w", err)
	}
	revs, err := session.Revolutions(ctx)
	if err != nil {
		return fmt.Errorf("read revolutions: %w", err)
	}

	fmt.Printf("product:       %s\n", name)
	fmt.Printf("hardware:      %d\n", hw)
	fmt.Printf("firmware:      %s\n", fw)
	fmt.Printf("serial:        %s\n", serialNo)
	fmt.Printf("supply:        %.2f V\n", volts)
	fmt.Printf("temperature:   %.2f C\n", temp)
	fmt.Printf("motor:         %s (%.3f V)\n", motor, motorVolts)
	fmt.Printf("revolutions:   %d\n", revs)
	return nil
}

func printAlarms(ctx context.Context, session *sf40.Session) error {
	state, err := session.AlarmState(ctx)
	if err != nil {
		return fmt.Errorf("read alarm state: %w", err)
	}
	fmt.Printf("any alarm active: %v\n", state.Any())
	for n := 1; n <= 7; n++ {
		cfg, err := session.Alarm(ctx, n)
		if err != nil {
			return fmt.Errorf("read alarm %d: %w", n, err)
		}
		fmt.Printf("alarm %d: triggered=%v enabled=%v direction=%d width=%d distance=%dcm\n",
			n, state.Triggered(n), cfg.Enabled, cfg.Direction, cfg.Width, cfg.Distance)
	}
	return nil
}

func applySettings(ctx context.Context, session *sf40.Session) error {
	switch *laser {
	case "":
	case "on", "off":
		if err := session.SetLaserFiring(ctx, *laser == "on"); err != nil {
			return fmt.Errorf("set laser firing: %w", err)
		}
		log.Printf("laser firing set to %s", *laser)
	default:
		return fmt.Errorf("invalid -laser value %q: want on or off", *laser)
	}

	if *outputRate >= 0 {
		if err := session.SetOutputRate(ctx, sf40.OutputRate(*outputRate)); err != nil {
			return fmt.Errorf("set output rate: %w", err)
		}
		log.Printf("output rate selector set to %d", *outputRate)
	}

	if *forwardOffset != unsetOffset {
		if err := session.SetForwardOffset(ctx, int16(*forwardOffset)); err != nil {
			return fmt.Errorf("set forward offset: %w", err)
		}
		log.Printf("forward offset set to %d degrees", *forwardOffset)
	}

	if *setBaud > 0 {
		selector, err := baudSelector(*setBaud)
		if err != nil {
			return err
		}
		if err := session.SetBaudRate(ctx, selector); err != nil {
			return fmt.Errorf("set baud rate: %w", err)
		}
		log.Printf("device baud rate set to %d; reopen the port at the new rate", *setBaud)
	}

	if *save {
		token, err := session.Token(ctx)
		if err != nil {
			return fmt.Errorf("read save token: %w", err)
		}
		if err := session.SaveParameters(ctx, token); err != nil {
			return fmt.Errorf("save parameters: %w", err)
		}
		log.Printf("parameters saved")
	}

	return nil
}

func baudSelector(rate int) (sf40.BaudRate, error) {
	for _, s := range []sf40.BaudRate{sf40.Baud115200, sf40.Baud230400, sf40.Baud460800, sf40.Baud921600} {
		if bps, _ := s.BitsPerSecond(); bps == rate {
			return s, nil
		}
	}
	return 0, fmt.Errorf("unsupported baud rate %d", rate)
}

func watchStream(ctx context.Context, session *sf40.Session) error {
	var db *scandb.ScanDB
	var sessionID string
	if *dbFile != "" {
		var err error
		db, err = scandb.New(*dbFile)
		if err != nil {
			return fmt.Errorf("open scan database: %w", err)
		}
		defer db.Close()

		sessionID, err = db.StartSession(*portPath, *notes)
		if err != nil {
			return err
		}
		defer func() {
			if err := db.EndSession(sessionID); err != nil {
				log.Printf("failed to close scan session: %v", err)
			}
		}()
		log.Printf("recording stream to %s (session %s)", *dbFile, sessionID)
	}

	if err := session.StartStream(ctx); err != nil {
		return fmt.Errorf("enable stream: %w", err)
	}
	defer func() {
		// Use a fresh context: the watch context is usually already
		// cancelled by the time we shut the stream down.
		stopCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := session.StopStream(stopCtx); err != nil {
			log.Printf("failed to disable stream: %v", err)
		}
	}()

	pump := sf40.NewStreamPump(session, *queueDepth)
	pumpErr := make(chan error, 1)
	go func() { pumpErr <- pump.Run(ctx) }()

	var rev revolutionAccumulator
	for {
		select {
		case <-ctx.Done():
			return <-pumpErr
		case err := <-pumpErr:
			return err
		case sample, ok := <-pump.Samples():
			if !ok {
				return <-pumpErr
			}
			if db != nil {
				if err := db.RecordSample(sessionID, sample); err != nil {
					log.Printf("failed to record sample: %v", err)
				}
			}
			if summary := rev.add(sample); summary != "" {
				log.Print(summary)
			}
		}
	}
}

// revolutionAccumulator gathers the stream packets of one motor
// revolution and summarises them when the next revolution begins.
type revolutionAccumulator struct {
	started   bool
	index     uint8
	distances []float64
	noReturns int
	alarms    sf40.Alarms
}

func (r *revolutionAccumulator) add(sample *sf40.StreamSample) string {
	var summary string
	if r.started && sample.RevolutionIndex != r.index {
		summary = r.summarise()
		r.distances = r.distances[:0]
		r.noReturns = 0
	}
	r.started = true
	r.index = sample.RevolutionIndex
	r.alarms = sample.Alarms
	for _, d := range sample.Distances {
		if d < 0 {
			r.noReturns++
			continue
		}
		r.distances = append(r.distances, float64(d))
	}
	return summary
}

func (r *revolutionAccumulator) summarise() string {
	if len(r.distances) == 0 {
		return fmt.Sprintf("rev %3d: no returns (%d points)", r.index, r.noReturns)
	}
	mean := stat.Mean(r.distances, nil)
	sigma := stat.StdDev(r.distances, nil)
	minD, maxD := r.distances[0], r.distances[0]
	for _, d := range r.distances[1:] {
		minD = min(minD, d)
		maxD = max(maxD, d)
	}
	return fmt.Sprintf("rev %3d: %d points, %d no-return, mean %.0fcm sigma %.0fcm min %.0fcm max %.0fcm, alarms=%v",
		r.index, len(r.distances), r.noReturns, mean, sigma, minD, maxD, r.alarms.Any())
}
