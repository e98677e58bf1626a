// Package controller links a host to a flashed board over a serial port
package controller

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"go.bug.st/serial"

	"github.com/calvinmclean/dualstep/commands"
	"github.com/calvinmclean/dualstep/motion"
)

// ErrLinkClosed is returned by Run when the board stops responding with EOF
var ErrLinkClosed = errors.New("link closed")

// Controller forwards command lines to a board and copies its responses back
type Controller struct {
	cfg    Config
	motion motion.Config
	link   io.ReadWriteCloser
	log    logrus.FieldLogger
}

// Option customizes a Controller
type Option func(*Controller)

// WithLogger replaces the standard logrus logger
func WithLogger(log logrus.FieldLogger) Option {
	return func(c *Controller) {
		c.log = log
	}
}

// WithMotionConfig sets the tuning of the simulated board used with SerialPortNone
func WithMotionConfig(cfg motion.Config) Option {
	return func(c *Controller) {
		c.motion = cfg
	}
}

// NewFromEnv creates a Controller configured by DUALSTEP_* environment variables
func NewFromEnv(opts ...Option) (*Controller, error) {
	cfg, err := ConfigFromEnv()
	if err != nil {
		return nil, err
	}
	return New(cfg, opts...)
}

// New opens the link described by cfg
func New(cfg Config, opts ...Option) (*Controller, error) {
	err := cfg.validate()
	if err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	c := &Controller{
		cfg:    cfg,
		motion: motion.DefaultConfig(),
		log:    logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.cfg.SerialPort == "" {
		ports, err := GetSerialPorts()
		if err != nil {
			return nil, err
		}
		c.cfg.SerialPort = ports[0]
		c.log.WithField("port", c.cfg.SerialPort).Info("using first USB serial port")
	}

	if c.cfg.SerialPort == SerialPortNone {
		c.link, err = newLoopback(c.motion, c.log)
		if err != nil {
			return nil, err
		}
		c.log.Info("using simulated board")
		return c, nil
	}

	port, err := serial.Open(c.cfg.SerialPort, &serial.Mode{BaudRate: c.cfg.BaudRate})
	if err != nil {
		return nil, fmt.Errorf("error opening serial port %q: %w", c.cfg.SerialPort, err)
	}

	// the board prints a banner while it boots
	time.Sleep(c.cfg.StartupDelay)
	err = port.ResetInputBuffer()
	if err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("error clearing serial input: %w", err)
	}

	c.link = port
	c.log.WithFields(logrus.Fields{
		"port":      c.cfg.SerialPort,
		"baud_rate": c.cfg.BaudRate,
	}).Info("connected to board")

	return c, nil
}

// Port is the serial port in use, or SerialPortNone
func (c *Controller) Port() string {
	return c.cfg.SerialPort
}

// Close closes the link
func (c *Controller) Close() error {
	return c.link.Close()
}

// Run sends each line read from in to the board and copies the board's responses to
// out. It returns when ctx is done, when the link fails, or when in is exhausted and
// the board has then been quiet for Config.Quiet
func (c *Controller) Run(ctx context.Context, in io.Reader, out io.Writer) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	activity := make(chan struct{}, 1)
	errc := make(chan error, 1)
	go func() {
		errc <- c.receive(out, activity)
	}()

	lines := make(chan string)
	go scanLines(ctx, in, lines)

	for lines != nil {
		select {
		case <-ctx.Done():
			return nil
		case err := <-errc:
			return err
		case line, ok := <-lines:
			if !ok {
				lines = nil
				continue
			}
			err := c.send(line)
			if err != nil {
				return err
			}
		}
	}

	quiet := time.NewTimer(c.cfg.Quiet)
	defer quiet.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-errc:
			return err
		case <-activity:
			quiet.Reset(c.cfg.Quiet)
		case <-quiet.C:
			return nil
		}
	}
}

func (c *Controller) send(line string) error {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}

	if len(line) > commands.MaxLineLength {
		c.log.WithField("length", len(line)).Warn("line is longer than the board accepts")
	}
	c.log.WithField("line", line).Debug("sending command")

	_, err := io.WriteString(c.link, line+"\n")
	if err != nil {
		return fmt.Errorf("error writing to board: %w", err)
	}
	return nil
}

func (c *Controller) receive(out io.Writer, activity chan<- struct{}) error {
	scanner := bufio.NewScanner(c.link)
	for scanner.Scan() {
		line := strings.Trim(scanner.Text(), "\r\x00")
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "ERR") {
			c.log.WithField("response", line).Warn("board rejected command")
		}

		_, err := io.WriteString(out, line+"\n")
		if err != nil {
			return fmt.Errorf("error writing response: %w", err)
		}

		select {
		case activity <- struct{}{}:
		default:
		}
	}

	err := scanner.Err()
	if err != nil {
		return fmt.Errorf("error reading from board: %w", err)
	}
	return ErrLinkClosed
}

func scanLines(ctx context.Context, in io.Reader, lines chan<- string) {
	defer close(lines)

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		select {
		case lines <- scanner.Text():
		case <-ctx.Done():
			return
		}
	}
}
