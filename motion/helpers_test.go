package motion

import (
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/calvinmclean/dualstep"
)

const epsilon = 1e-9

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

type fakePin struct {
	level bool
	sets  int
}

func (p *fakePin) Set(v bool) {
	p.level = v
	p.sets++
}

// fakeLocker records the order of critical sections and timer calls
type fakeLocker struct {
	locked bool
	events []string
}

func (l *fakeLocker) Lock() {
	if l.locked {
		panic("critical section entered twice")
	}
	l.locked = true
	l.events = append(l.events, "lock")
}

func (l *fakeLocker) Unlock() {
	l.locked = false
	l.events = append(l.events, "unlock")
}

type fakeTimer struct {
	name     string
	lk       *fakeLocker
	running  bool
	period   time.Duration
	isr      func()
	starts   int
	updates  int
	stops    int
	unlocked int
}

func (t *fakeTimer) Start(period time.Duration, isr func()) {
	if !t.lk.locked {
		t.unlocked++
	}
	t.running = true
	t.period = period
	t.isr = isr
	t.starts++
	t.lk.events = append(t.lk.events, fmt.Sprintf("start %s %s", t.name, period))
}

func (t *fakeTimer) Update(period time.Duration) {
	if !t.lk.locked {
		t.unlocked++
	}
	t.period = period
	t.updates++
	t.lk.events = append(t.lk.events, fmt.Sprintf("update %s %s", t.name, period))
}

func (t *fakeTimer) Stop() {
	if !t.lk.locked {
		t.unlocked++
	}
	t.running = false
	t.stops++
	t.lk.events = append(t.lk.events, "stop "+t.name)
}

// fire runs the ISR n times as the hardware would
func (t *fakeTimer) fire(n int) {
	for range n {
		if !t.running {
			return
		}
		t.isr()
	}
}

type recordLogger struct {
	infos []string
	warns []string
}

func (l *recordLogger) Debugf(string, ...any) {}

func (l *recordLogger) Infof(format string, args ...any) {
	l.infos = append(l.infos, fmt.Sprintf(format, args...))
}

func (l *recordLogger) Warnf(format string, args ...any) {
	l.warns = append(l.warns, fmt.Sprintf(format, args...))
}

type rig struct {
	clock  *fakeClock
	lock   *fakeLocker
	log    *recordLogger
	step   [dualstep.NumMotors]*fakePin
	dir    [dualstep.NumMotors]*fakePin
	timers [dualstep.NumMotors]*fakeTimer
	drift  []DriftAdvisory
	c      *Controller
}

func newRig(t *testing.T, mutate ...func(*Config)) *rig {
	t.Helper()

	cfg := DefaultConfig()
	for _, f := range mutate {
		f(&cfg)
	}

	r := &rig{
		clock: &fakeClock{t: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)},
		lock:  &fakeLocker{},
		log:   &recordLogger{},
	}

	var hw [dualstep.NumMotors]Hardware
	for i := range hw {
		r.step[i] = &fakePin{}
		r.dir[i] = &fakePin{}
		r.timers[i] = &fakeTimer{name: dualstep.MotorID(i).String(), lk: r.lock}
		hw[i] = Hardware{Step: r.step[i], Dir: r.dir[i], Timer: r.timers[i]}
	}

	c, err := New(cfg, hw,
		WithClock(r.clock.Now),
		WithLogger(r.log),
		WithCriticalSection(r.lock),
		WithDriftHandler(func(a DriftAdvisory) { r.drift = append(r.drift, a) }),
	)
	if err != nil {
		t.Fatalf("unexpected error creating controller: %v", err)
	}
	r.c = c
	return r
}

// tick advances the clock by one interval and runs a control tick, n times
func (r *rig) tick(n int) {
	for range n {
		r.clock.Advance(r.c.cfg.TickInterval)
		r.c.Tick()
	}
}

// tickUntil runs ticks until cond holds, failing after limit ticks
func (r *rig) tickUntil(t *testing.T, limit int, cond func() bool) int {
	t.Helper()
	for i := 1; i <= limit; i++ {
		r.tick(1)
		if cond() {
			return i
		}
	}
	t.Fatalf("condition not met after %d ticks", limit)
	return 0
}

func (r *rig) speed(id dualstep.MotorID) float64 {
	return r.c.Motor(id).currentSpeed
}

// cruise brings a motor up to speed in the given direction
func (r *rig) cruise(t *testing.T, id dualstep.MotorID, dir dualstep.Direction, speed float64) {
	t.Helper()
	err := r.c.SetDirection(id, dir)
	if err != nil {
		t.Fatalf("unexpected error setting direction: %v", err)
	}
	err = r.c.SetSpeed(id, speed)
	if err != nil {
		t.Fatalf("unexpected error setting speed: %v", err)
	}
	r.tickUntil(t, 1000, func() bool { return r.speed(id) == speed })
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) <= epsilon
}
