package controller

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v6"
)

// SerialPortNone runs the link against a simulated board in this process instead of a serial port
const SerialPortNone = "None"

// Config selects the board to talk to. An empty SerialPort picks the first USB serial port
type Config struct {
	SerialPort string `env:"DUALSTEP_SERIAL_PORT"`
	BaudRate   int    `env:"DUALSTEP_BAUD_RATE" envDefault:"115200"`

	// StartupDelay is how long the board needs after the port opens before it accepts commands
	StartupDelay time.Duration `env:"DUALSTEP_STARTUP_DELAY" envDefault:"2s"`
	// Quiet is how long Run keeps forwarding responses after its input ends
	Quiet time.Duration `env:"DUALSTEP_QUIET" envDefault:"500ms"`
}

// ConfigFromEnv reads a Config from DUALSTEP_* environment variables
func ConfigFromEnv() (Config, error) {
	var cfg Config
	err := env.Parse(&cfg)
	if err != nil {
		return Config{}, fmt.Errorf("error parsing environment: %w", err)
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.BaudRate <= 0 {
		return errors.New("baud rate must be positive")
	}
	if c.Quiet <= 0 {
		return errors.New("quiet period must be positive")
	}
	return nil
}
