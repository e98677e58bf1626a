//go:build tinygo

package device

import (
	"runtime/interrupt"
	"time"
)

// interruptLock is the motion critical section: interrupts stay masked while it is held
type interruptLock struct {
	state interrupt.State
}

func (l *interruptLock) Lock() {
	l.state = interrupt.Disable()
}

func (l *interruptLock) Unlock() {
	interrupt.Restore(l.state)
}

// stepTimer calls its ISR from a goroutine. Its methods are called with the
// interruptLock held, and every ISR call takes it too.
//
// This is a cooperative goroutine, not a hardware timer interrupt: it only runs when
// the scheduler gets to it, so step timing jitters by however long the main loop holds
// the CPU. A wake that arrives more than a period late fires once and resyncs to now,
// dropping the missed periods instead of bursting them
type stepTimer struct {
	cs *interruptLock

	// guarded by cs
	gen    uint32
	period time.Duration
}

func (t *stepTimer) Start(period time.Duration, isr func()) {
	t.gen++
	t.period = period
	go t.run(t.gen, isr, time.Now().Add(period))
}

// Update keeps the pending deadline and spaces the following ones by period
func (t *stepTimer) Update(period time.Duration) {
	t.period = period
}

func (t *stepTimer) Stop() {
	t.gen++
	t.period = 0
}

func (t *stepTimer) run(gen uint32, isr func(), next time.Time) {
	for {
		time.Sleep(time.Until(next))

		t.cs.Lock()
		if t.gen != gen {
			t.cs.Unlock()
			return
		}
		isr()
		next = next.Add(t.period)
		if now := time.Now(); next.Before(now) {
			next = now.Add(t.period)
		}
		t.cs.Unlock()
	}
}
