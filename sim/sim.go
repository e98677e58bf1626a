// Package sim provides simulated hardware for running the motion kernel on a host
package sim

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/calvinmclean/dualstep"
	"github.com/calvinmclean/dualstep/motion"
)

// DefaultResolution is how often simulated timers wake to catch up on missed periods
const DefaultResolution = time.Millisecond

// maxCatchUp bounds the interrupts delivered in one wake. A larger backlog is dropped
const maxCatchUp = 1000

// Pin is a virtual digital output
type Pin struct {
	level  atomic.Bool
	rising atomic.Uint64
}

func (p *Pin) Set(v bool) {
	if p.level.Swap(v) != v && v {
		p.rising.Add(1)
	}
}

// Level is the current output level
func (p *Pin) Level() bool {
	return p.level.Load()
}

// RisingEdges counts low to high transitions
func (p *Pin) RisingEdges() uint64 {
	return p.rising.Load()
}

// Timer is a goroutine-backed StepTimer. The goroutine wakes every resolution and
// calls the ISR once for each period that elapsed, holding the board's critical
// section like a masked interrupt would
type Timer struct {
	cs         sync.Locker
	resolution time.Duration

	// gen identifies the current Start. Guarded by cs
	gen    uint64
	period time.Duration

	fired atomic.Uint64
}

// Start must be called with the critical section held. Any earlier train stops
// delivering interrupts immediately
func (t *Timer) Start(period time.Duration, isr func()) {
	t.gen++
	t.period = period
	go t.run(t.gen, isr, time.Now().Add(period))
}

// Update must be called with the critical section held. The pending interrupt keeps
// its deadline and the ones after it are spaced by period
func (t *Timer) Update(period time.Duration) {
	t.period = period
}

// Stop must be called with the critical section held
func (t *Timer) Stop() {
	t.gen++
	t.period = 0
}

// Period is the interval of the running train, or 0 when stopped
func (t *Timer) Period() time.Duration {
	t.cs.Lock()
	defer t.cs.Unlock()
	return t.period
}

// Fired counts interrupts delivered since the board was created
func (t *Timer) Fired() uint64 {
	return t.fired.Load()
}

func (t *Timer) run(gen uint64, isr func(), next time.Time) {
	ticker := time.NewTicker(t.resolution)
	defer ticker.Stop()

	for range ticker.C {
		t.cs.Lock()
		if t.gen != gen {
			t.cs.Unlock()
			return
		}

		now := time.Now()
		n := 0
		for !next.After(now) && n < maxCatchUp {
			isr()
			next = next.Add(t.period)
			n++
		}
		if n == maxCatchUp {
			next = now.Add(t.period)
		}
		t.fired.Add(uint64(n))
		t.cs.Unlock()
	}
}

// Board is a simulated controller board with two step/dir outputs and two step timers
// sharing one critical section
type Board struct {
	mu sync.Mutex

	Step   [dualstep.NumMotors]*Pin
	Dir    [dualstep.NumMotors]*Pin
	Timers [dualstep.NumMotors]*Timer
}

// NewBoard creates a Board whose timers wake every resolution
func NewBoard(resolution time.Duration) *Board {
	if resolution <= 0 {
		resolution = DefaultResolution
	}

	b := &Board{}
	for i := range dualstep.NumMotors {
		b.Step[i] = &Pin{}
		b.Dir[i] = &Pin{}
		b.Timers[i] = &Timer{cs: &b.mu, resolution: resolution}
	}
	return b
}

// Hardware returns the per-motor outputs for motion.New
func (b *Board) Hardware() [dualstep.NumMotors]motion.Hardware {
	var hw [dualstep.NumMotors]motion.Hardware
	for i := range hw {
		hw[i] = motion.Hardware{Step: b.Step[i], Dir: b.Dir[i], Timer: b.Timers[i]}
	}
	return hw
}

// Locker is the critical section shared with the timers
func (b *Board) Locker() sync.Locker {
	return &b.mu
}

// NewController creates a motion.Controller running on the Board
func (b *Board) NewController(cfg motion.Config, opts ...motion.Option) (*motion.Controller, error) {
	return motion.New(cfg, b.Hardware(), append(opts, motion.WithCriticalSection(b.Locker()))...)
}
