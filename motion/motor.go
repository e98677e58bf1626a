package motion

import (
	"time"

	"github.com/calvinmclean/dualstep"
)

// Phase is the externally visible motion state of a motor
type Phase int

const (
	PhaseStopped Phase = iota
	PhaseRampingUp
	PhaseCruising
	PhaseRampingDown
)

func (p Phase) String() string {
	switch p {
	case PhaseRampingUp:
		return "RAMPING_UP"
	case PhaseCruising:
		return "CRUISING"
	case PhaseRampingDown:
		return "RAMPING_DOWN"
	default:
		fallthrough
	case PhaseStopped:
		return "STOPPED"
	}
}

func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// boostState is the per-motor part of the boost subsystem
type boostState struct {
	active      bool
	start       time.Time
	normalSpeed float64
	boostSpeed  float64
}

// Motor is one physical motor. Both are created by New and live as long as the Controller
type Motor struct {
	id       dualstep.MotorID
	hw       Hardware
	pls      *Pulser
	maxSpeed float64

	currentSpeed float64
	targetSpeed  float64
	direction    dualstep.Direction
	running      bool

	boost boostState
	gov   governor
}

func newMotor(id dualstep.MotorID, hw Hardware, maxSpeed float64) *Motor {
	m := &Motor{
		id:        id,
		hw:        hw,
		pls:       newPulser(hw.Step),
		maxSpeed:  maxSpeed,
		direction: dualstep.Forward,
	}
	writeDirection(hw.Dir, dualstep.Forward)
	return m
}

// ID identifies the motor
func (m *Motor) ID() dualstep.MotorID {
	return m.id
}

// Pulser returns the motor's step generator
func (m *Motor) Pulser() *Pulser {
	return m.pls
}

// Phase derives the motion state from the speeds
func (m *Motor) Phase() Phase {
	target := m.effectiveTarget()
	switch {
	case m.currentSpeed == 0 && (!m.running || target == 0):
		return PhaseStopped
	case m.currentSpeed < target:
		return PhaseRampingUp
	case m.currentSpeed > target:
		return PhaseRampingDown
	default:
		return PhaseCruising
	}
}

// effectiveTarget is what the ramp converges to this tick. The governor's safe-speed
// override wins over boost, which wins over targetSpeed
func (m *Motor) effectiveTarget() float64 {
	if m.gov.override {
		return m.gov.overrideSpeed
	}
	if m.boost.active {
		return min(m.boost.boostSpeed, m.maxSpeed)
	}
	return m.targetSpeed
}

// commitDirection writes the DIR pin and the sign the ISR applies
func (m *Motor) commitDirection(d dualstep.Direction) {
	m.direction = d
	m.pls.setDirection(d)
	writeDirection(m.hw.Dir, d)
}

// writeDirection drives DIR low for forward and high for backward
func writeDirection(pin Pin, d dualstep.Direction) {
	pin.Set(d == dualstep.Backward)
}
