package motion

import (
	"errors"
	"time"

	"github.com/calvinmclean/dualstep"
)

// ErrEmergencyStop is returned for motion commands while an emergency stop is in progress
var ErrEmergencyStop = errors.New("emergency stop in progress")

// GovernorState is the safety sub-state of a motor, orthogonal to its Phase
type GovernorState int

const (
	GovernorIdle GovernorState = iota
	GovernorRampingForReversal
	GovernorHoldingForReversal
	GovernorRampingForStop
	GovernorEmergencyStopping
)

func (s GovernorState) String() string {
	switch s {
	case GovernorRampingForReversal:
		return "RAMPING_FOR_REVERSAL"
	case GovernorHoldingForReversal:
		return "HOLDING_FOR_REVERSAL"
	case GovernorRampingForStop:
		return "RAMPING_FOR_STOP"
	case GovernorEmergencyStopping:
		return "EMERGENCY_STOPPING"
	default:
		fallthrough
	case GovernorIdle:
		return "IDLE"
	}
}

func (s GovernorState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// governor holds the deferred direction change and stop bookkeeping for one motor
type governor struct {
	state GovernorState
	since time.Time

	// pending is a requested direction that has not reached the DIR pin yet.
	// The most recent request replaces any earlier one
	pending    bool
	pendingDir dualstep.Direction

	// override pins the ramp target to the safe speed while reversing
	override      bool
	overrideSpeed float64
}

func (g *governor) release() {
	g.state = GovernorIdle
	g.override = false
}

// SetDirection requests a direction. Above ReversalHighSpeed the change is deferred:
// the motor slows to ReversalSafeSpeed and the DIR pin changes once the speed is at or
// below ReversalLowSpeed, after which the previous target resumes
func (c *Controller) SetDirection(id dualstep.MotorID, dir dualstep.Direction) error {
	m := c.motor(id)
	g := &m.gov
	if g.state == GovernorEmergencyStopping {
		return ErrEmergencyStop
	}

	if !m.running || m.currentSpeed <= c.cfg.ReversalHighSpeed {
		g.pending = false
		if g.state == GovernorRampingForReversal || g.state == GovernorHoldingForReversal {
			g.release()
		}
		if dir != m.direction {
			m.commitDirection(dir)
			c.log.Infof("%s direction: %s", id, dir)
		}
		return nil
	}

	if dir == m.direction {
		if g.pending {
			c.log.Infof("%s direction change to %s cancelled", id, g.pendingDir)
		}
		g.pending = false
		if g.state == GovernorRampingForReversal || g.state == GovernorHoldingForReversal {
			g.release()
		}
		return nil
	}

	g.pending = true
	g.pendingDir = dir

	if g.state == GovernorIdle {
		g.state = GovernorRampingForReversal
		g.since = c.now()
		g.override = true
		g.overrideSpeed = c.cfg.ReversalSafeSpeed
		c.log.Infof("%s slowing for direction change...", id)
	}
	return nil
}

// Stop decelerates the motor at AccelRate and marks it stopped once the speed falls
// below StopSpeed. It does not wait
func (c *Controller) Stop(id dualstep.MotorID) error {
	m := c.motor(id)
	g := &m.gov
	if g.state == GovernorEmergencyStopping {
		return ErrEmergencyStop
	}

	m.targetSpeed = 0
	m.boost.active = false
	g.override = false

	if !m.running || m.currentSpeed < c.cfg.StopSpeed {
		c.halt(m)
		return nil
	}

	g.state = GovernorRampingForStop
	g.since = c.now()
	return nil
}

// EmergencyStop decelerates both motors but forces them to zero if they are still
// moving when EmergencyStopTimeout would otherwise be exceeded
func (c *Controller) EmergencyStop() {
	c.log.Warnf("EMERGENCY STOP - ramping down")
	now := c.now()
	for _, m := range c.motors {
		m.targetSpeed = 0
		m.boost.active = false
		m.gov.override = false
		m.gov.state = GovernorEmergencyStopping
		m.gov.since = now
	}
}

// cancelStop lets a new speed or run request win over a stop that is still decaying
func (c *Controller) cancelStop(m *Motor) {
	g := &m.gov
	if g.state != GovernorRampingForStop {
		return
	}
	g.state = GovernorIdle
	c.log.Infof("%s stop cancelled", m.id)

	if !g.pending {
		return
	}
	if m.currentSpeed <= c.cfg.ReversalHighSpeed {
		g.pending = false
		m.commitDirection(g.pendingDir)
		return
	}
	g.state = GovernorRampingForReversal
	g.since = c.now()
	g.override = true
	g.overrideSpeed = c.cfg.ReversalSafeSpeed
}

// advance moves the governor forward once per tick, after the ramp
func (c *Controller) advance(m *Motor, now time.Time) {
	g := &m.gov
	switch g.state {
	case GovernorRampingForReversal:
		if m.currentSpeed > c.cfg.ReversalLowSpeed {
			return
		}
		g.state = GovernorHoldingForReversal
		g.since = now
		fallthrough
	case GovernorHoldingForReversal:
		if now.Sub(g.since) < c.cfg.DirectionHold {
			return
		}
		if g.pending {
			g.pending = false
			m.commitDirection(g.pendingDir)
			c.log.Infof("%s direction: %s", m.id, m.direction)
		}
		g.release()
	case GovernorRampingForStop:
		if m.currentSpeed >= c.cfg.StopSpeed {
			return
		}
		c.halt(m)
		c.log.Infof("%s stopped", m.id)
	case GovernorEmergencyStopping:
		decayed := m.currentSpeed < c.cfg.StopSpeed
		// force on the last tick that still ends inside the timeout
		if !decayed && now.Sub(g.since)+c.cfg.TickInterval <= c.cfg.EmergencyStopTimeout {
			return
		}
		if !decayed {
			c.log.Warnf("%s forced to zero from %.0f steps/sec", m.id, m.currentSpeed)
		}
		c.halt(m)
		c.log.Infof("%s stopped safely", m.id)
	}
}

// halt zeroes the motor immediately. The next commit stops its timer
func (c *Controller) halt(m *Motor) {
	g := &m.gov
	m.running = false
	m.currentSpeed = 0
	m.targetSpeed = 0
	m.boost.active = false
	g.release()

	// stationary, so any pending reversal is safe now
	if g.pending {
		g.pending = false
		m.commitDirection(g.pendingDir)
		c.log.Infof("%s direction: %s", m.id, m.direction)
	}
}
