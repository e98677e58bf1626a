package motion

import (
	"github.com/calvinmclean/dualstep"
)

// ApplyBoost sets a temporary target of requested×Multiplier which falls back to
// requested after the configured Duration. With boost disabled it is a plain SetSpeed
func (c *Controller) ApplyBoost(id dualstep.MotorID, requested float64) error {
	m := c.motor(id)
	if m.gov.state == GovernorEmergencyStopping {
		return ErrEmergencyStop
	}

	requested = c.clampSpeed(requested)
	if !c.cfg.Boost.Enabled || requested == 0 {
		return c.SetSpeed(id, requested)
	}

	boostSpeed := min(requested*c.cfg.Boost.Multiplier, c.cfg.MaxSpeed)

	c.cancelStop(m)
	m.boost = boostState{
		active:      true,
		start:       c.now(),
		normalSpeed: requested,
		boostSpeed:  boostSpeed,
	}
	m.targetSpeed = boostSpeed
	m.running = true

	c.log.Infof("%s boost activated: %.0f steps/sec for %s", id, boostSpeed, c.cfg.Boost.Duration)
	return nil
}

// SetBoostOption changes one boost setting. Values outside the documented bounds are clamped
func (c *Controller) SetBoostOption(opt BoostOption, value float64) BoostConfig {
	b := c.cfg.Boost
	switch opt {
	case BoostMultiplier:
		b.Multiplier = value
	case BoostDuration:
		b.Duration = Millis(value)
	case BoostEnabled:
		b.Enabled = value != 0
	}
	c.cfg.Boost = b.Normalize()
	return c.cfg.Boost
}

// ConfigureBoost replaces all boost settings at once, clamping like SetBoostOption
func (c *Controller) ConfigureBoost(b BoostConfig) BoostConfig {
	c.cfg.Boost = b.Normalize()
	c.log.Infof("boost configuration updated: multiplier=%.2f duration=%s enabled=%t",
		c.cfg.Boost.Multiplier, c.cfg.Boost.Duration, c.cfg.Boost.Enabled)
	return c.cfg.Boost
}

// BoostConfig returns the current boost settings
func (c *Controller) BoostConfig() BoostConfig {
	return c.cfg.Boost
}
