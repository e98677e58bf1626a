package motion

import (
	"math"
	"time"
)

// ramp advances one motor's currentSpeed by at most accelStep toward its effective target
func (c *Controller) ramp(m *Motor, now time.Time) {
	if !m.running {
		m.currentSpeed = 0
		return
	}

	// boost expires inside the tick; the drop back to the normal speed is ramped
	if m.boost.active && now.Sub(m.boost.start) >= c.cfg.Boost.Duration {
		m.boost.active = false
		m.targetSpeed = m.boost.normalSpeed
		c.log.Infof("%s boost complete - returning to normal speed %.0f", m.id, m.targetSpeed)
	}

	accelStep := c.cfg.AccelStep()
	target := m.effectiveTarget()
	diff := target - m.currentSpeed

	// snapping when close avoids oscillating around the target
	if math.Abs(diff) <= accelStep {
		m.currentSpeed = target
	} else if diff > 0 {
		m.currentSpeed += accelStep
	} else {
		m.currentSpeed -= accelStep
	}

	m.currentSpeed = clamp(m.currentSpeed, 0, c.cfg.MaxSpeed)
}
