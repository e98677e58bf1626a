//go:build tinygo

// Package device wires the motion kernel to the board's pins, interrupts and USB serial
package device

import (
	"context"
	"errors"
	"machine"
	"runtime"
	"time"

	"github.com/calvinmclean/dualstep"
	"github.com/calvinmclean/dualstep/commands"
	"github.com/calvinmclean/dualstep/motion"
)

const heartbeat = time.Second

// Device is the board: two motor drivers, a status LED and the serial console
type Device struct {
	cfg     Config
	log     *logger
	ctrl    *motion.Controller
	session *commands.Session

	led      bool
	lastBeat time.Time
}

// New configures the pins and creates the motion controller
func New(cfg Config) (*Device, error) {
	log := &logger{start: time.Now(), verbose: cfg.Verbose}

	if cfg.BaudRate != 0 {
		err := machine.Serial.Configure(machine.UARTConfig{BaudRate: cfg.BaudRate})
		if err != nil {
			return nil, errors.New("error configuring serial: " + err.Error())
		}
	}

	cs := &interruptLock{}
	var hw [dualstep.NumMotors]motion.Hardware
	for i, pins := range cfg.Motors {
		pins.Step.Configure(machine.PinConfig{Mode: machine.PinOutput})
		pins.Dir.Configure(machine.PinConfig{Mode: machine.PinOutput})
		pins.Step.Low()
		pins.Dir.Low()

		hw[i] = motion.Hardware{
			Step:  pins.Step,
			Dir:   pins.Dir,
			Timer: &stepTimer{cs: cs},
		}
	}

	if cfg.LED != machine.NoPin {
		cfg.LED.Configure(machine.PinConfig{Mode: machine.PinOutput})
	}

	ctrl, err := motion.New(cfg.Motion, hw, motion.WithCriticalSection(cs), motion.WithLogger(log))
	if err != nil {
		return nil, errors.New("error creating motion controller: " + err.Error())
	}

	return &Device{
		cfg:     cfg,
		log:     log,
		ctrl:    ctrl,
		session: commands.NewSession(ctrl, log),
	}, nil
}

// Run blinks the LED to show it is ready, then serves commands forever
func (d *Device) Run() error {
	for i := 0; i < 3; i++ {
		d.setLED(true)
		time.Sleep(100 * time.Millisecond)
		d.setLED(false)
		time.Sleep(100 * time.Millisecond)
	}

	d.log.Infof("dual stepper controller ready")
	return d.session.Run(context.Background(), d, d, d.idle)
}

// idle toggles the heartbeat LED and lets the step timer goroutines run
func (d *Device) idle() {
	if time.Since(d.lastBeat) >= heartbeat {
		d.lastBeat = time.Now()
		d.setLED(!d.led)
	}
	runtime.Gosched()
}

func (d *Device) setLED(on bool) {
	d.led = on
	if d.cfg.LED != machine.NoPin {
		d.cfg.LED.Set(on)
	}
}

// ReadByte returns an error when no byte is buffered
func (d *Device) ReadByte() (byte, error) {
	return machine.Serial.ReadByte()
}

func (d *Device) Write(p []byte) (int, error) {
	return machine.Serial.Write(p)
}
