package motion

import (
	"sync"
	"time"
)

// Pin is a digital output. machine.Pin satisfies it on the board
type Pin interface {
	Set(bool)
}

// StepTimer is the periodic interrupt source that drives one motor's Pulser
type StepTimer interface {
	// Start (re)arms the timer so isr is called every period, the first call one period from now
	Start(period time.Duration, isr func())
	// Update changes the period of a running train. The interval in progress completes
	// at its old length; the ones after it use period
	Update(period time.Duration)
	// Stop disarms the timer. It is safe to call on a stopped timer
	Stop()
}

// Hardware is the set of outputs and the timer owned by one motor
type Hardware struct {
	Step  Pin
	Dir   Pin
	Timer StepTimer
}

func (h Hardware) valid() bool {
	return h.Step != nil && h.Dir != nil && h.Timer != nil
}

// Logger is satisfied by *logrus.Logger and *logrus.Entry
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Debugf(string, ...any) {}
func (nopLogger) Infof(string, ...any)  {}
func (nopLogger) Warnf(string, ...any)  {}

// Option customizes a Controller
type Option func(*Controller)

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		c.now = now
	}
}

// WithLogger sets the Logger used for state transitions and advisories
func WithLogger(l Logger) Option {
	return func(c *Controller) {
		c.log = l
	}
}

// WithDriftHandler registers a callback for every drift advisory
func WithDriftHandler(f func(DriftAdvisory)) Option {
	return func(c *Controller) {
		c.sync.onDrift = f
	}
}

// WithCriticalSection sets the lock that masks step interrupts. On the board this
// disables interrupts; on a host it must be shared with the StepTimer implementations
func WithCriticalSection(l sync.Locker) Option {
	return func(c *Controller) {
		c.sync.cs = l
	}
}
