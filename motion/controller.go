package motion

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/calvinmclean/dualstep"
)

// Controller owns both motors and runs the control tick: ramp both, advance the
// safety governor, then commit both timers together
type Controller struct {
	cfg    Config
	motors [dualstep.NumMotors]*Motor
	sync   SyncManager

	now func() time.Time
	log Logger

	startTime time.Time
	lastTick  time.Time
	ticks     uint64
}

// New creates the two motors on the provided hardware. The step outputs are driven
// low and both DIR outputs set forward
func New(cfg Config, hw [dualstep.NumMotors]Hardware, opts ...Option) (*Controller, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, err
	}
	cfg.Boost = cfg.Boost.Normalize()

	for i, h := range hw {
		if !h.valid() {
			return nil, fmt.Errorf("%w: %s is missing a step pin, dir pin, or timer", ErrInvalidConfig, dualstep.MotorID(i))
		}
	}

	c := &Controller{
		cfg: cfg,
		now: time.Now,
		log: nopLogger{},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.sync.cs == nil {
		c.sync.cs = &sync.Mutex{}
	}

	for i, h := range hw {
		c.motors[i] = newMotor(dualstep.MotorID(i), h, cfg.MaxSpeed)
	}

	c.startTime = c.now()
	c.sync.lastCheck = c.startTime

	return c, nil
}

// Config returns the active configuration, including runtime boost changes
func (c *Controller) Config() Config {
	return c.cfg
}

// Motor returns one of the two motors
func (c *Controller) Motor(id dualstep.MotorID) *Motor {
	return c.motor(id)
}

func (c *Controller) motor(id dualstep.MotorID) *Motor {
	if id == dualstep.Motor2 {
		return c.motors[dualstep.Motor2]
	}
	return c.motors[dualstep.Motor1]
}

// Due reports whether a full TickInterval has passed since the last Tick
func (c *Controller) Due() bool {
	return c.lastTick.IsZero() || c.now().Sub(c.lastTick) >= c.cfg.TickInterval
}

// Tick runs one control period. Both speeds are computed before either timer is
// touched, then both timers are committed back to back. Drift is evaluated every
// SyncInterval and any advisory is returned
func (c *Controller) Tick() *DriftAdvisory {
	now := c.now()
	c.lastTick = now
	c.ticks++

	for _, m := range c.motors {
		c.ramp(m, now)
		c.advance(m, now)
	}

	c.sync.Commit(c.motors, c.cfg.StopSpeed)

	if now.Sub(c.sync.lastCheck) < c.cfg.SyncInterval {
		return nil
	}
	a := c.sync.CheckDrift(c.motors, c.cfg.SyncThreshold, now)
	if a != nil {
		c.log.Warnf("SYNC WARNING: position drift = %d steps (Motor1: %d | Motor2: %d)", a.Drift, a.Position1, a.Position2)
	}
	return a
}

// SetSpeed sets a new target, clamped to [0, MaxSpeed], and cancels any active boost.
// A positive speed starts the motor; zero decelerates it to a stop
func (c *Controller) SetSpeed(id dualstep.MotorID, speed float64) error {
	m := c.motor(id)
	if m.gov.state == GovernorEmergencyStopping {
		return ErrEmergencyStop
	}

	speed = c.clampSpeed(speed)
	m.boost.active = false

	if speed == 0 {
		return c.Stop(id)
	}

	m.targetSpeed = speed
	m.running = true
	c.cancelStop(m)
	return nil
}

// Run enables the motor so it ramps toward its current target
func (c *Controller) Run(id dualstep.MotorID) error {
	m := c.motor(id)
	if m.gov.state == GovernorEmergencyStopping {
		return ErrEmergencyStop
	}
	m.running = true
	c.cancelStop(m)
	return nil
}

// Reset zeroes one motor's position and stops it. Nothing changes during an emergency stop
func (c *Controller) Reset(id dualstep.MotorID) error {
	m := c.motor(id)
	if m.gov.state == GovernorEmergencyStopping {
		return ErrEmergencyStop
	}
	c.sync.Zero(m)
	return c.Stop(id)
}

// SyncPositions zeroes both positions in the same critical section
func (c *Controller) SyncPositions() {
	c.sync.Zero(c.motors[:]...)
}

// Drift is the current absolute difference between the two positions
func (c *Controller) Drift() int64 {
	return c.sync.Drift(c.motors)
}

// Uptime is the time since New
func (c *Controller) Uptime() time.Duration {
	return c.now().Sub(c.startTime)
}

func (c *Controller) clampSpeed(speed float64) float64 {
	if math.IsNaN(speed) {
		return 0
	}
	return clamp(speed, 0, c.cfg.MaxSpeed)
}

// Millis converts a millisecond count from a command into a Duration
func Millis(v float64) time.Duration {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > float64(math.MaxInt64/int64(time.Millisecond)) {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(v * float64(time.Millisecond))
}
