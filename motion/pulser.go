package motion

import (
	"sync/atomic"

	"github.com/calvinmclean/dualstep"
)

// Pulser generates the step train for one motor. Step runs in interrupt context;
// everything else runs in the control loop
type Pulser struct {
	pin Pin

	// high is only touched by Step, or by Idle while the timer is stopped
	high bool

	sign  atomic.Int32
	raw   atomic.Int64
	steps atomic.Uint64

	// origin is the raw count at the last reset. Control loop only
	origin int64
}

func newPulser(pin Pin) *Pulser {
	p := &Pulser{pin: pin}
	p.sign.Store(dualstep.Forward.Sign())
	pin.Set(false)
	return p
}

// Step toggles the step output and counts the rising edge
func (p *Pulser) Step() {
	p.high = !p.high
	p.pin.Set(p.high)
	if p.high {
		p.raw.Add(int64(p.sign.Load()))
		p.steps.Add(1)
	}
}

// Idle forces the step output low. The timer must already be stopped
func (p *Pulser) Idle() {
	p.high = false
	p.pin.Set(false)
}

// Position is the step count since the last reset
func (p *Pulser) Position() int64 {
	return p.raw.Load() - p.origin
}

// Steps is the number of steps generated in either direction since boot
func (p *Pulser) Steps() uint64 {
	return p.steps.Load()
}

// setDirection changes the sign applied to subsequent rising edges
func (p *Pulser) setDirection(d dualstep.Direction) {
	p.sign.Store(d.Sign())
}

// zero makes the current raw count the new origin. Callers hold the critical section
// so that no step lands between the load and the store
func (p *Pulser) zero() {
	p.origin = p.raw.Load()
}
