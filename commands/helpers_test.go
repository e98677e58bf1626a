package commands

import (
	"errors"
	"testing"
	"time"

	"github.com/calvinmclean/dualstep"
	"github.com/calvinmclean/dualstep/motion"
)

type testPin struct{ level bool }

func (p *testPin) Set(v bool) { p.level = v }

type testTimer struct {
	running bool
	period  time.Duration
}

func (t *testTimer) Start(period time.Duration, _ func()) {
	t.running = true
	t.period = period
}

func (t *testTimer) Update(period time.Duration) { t.period = period }

func (t *testTimer) Stop() { t.running = false }

type testClock struct{ t time.Time }

func (c *testClock) now() time.Time { return c.t }

type testEnv struct {
	clock *testClock
	dir   [dualstep.NumMotors]*testPin
	c     *motion.Controller
	s     *Session
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{clock: &testClock{t: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}}

	var hw [dualstep.NumMotors]motion.Hardware
	for i := range hw {
		env.dir[i] = &testPin{}
		hw[i] = motion.Hardware{Step: &testPin{}, Dir: env.dir[i], Timer: &testTimer{}}
	}

	c, err := motion.New(motion.DefaultConfig(), hw, motion.WithClock(env.clock.now))
	if err != nil {
		t.Fatalf("unexpected error creating controller: %v", err)
	}
	env.c = c
	env.s = NewSession(c, nil)
	return env
}

func (e *testEnv) tick(n int) {
	for range n {
		e.clock.t = e.clock.t.Add(motion.DefaultTickInterval)
		e.s.Tick()
	}
}

func (e *testEnv) status(id dualstep.MotorID) motion.MotorStatus {
	return e.s.Status().Motors[id]
}

var errNoData = errors.New("no data")

// pollReader returns its data one byte at a time and then reports no data forever
type pollReader struct {
	data []byte
}

func (r *pollReader) ReadByte() (byte, error) {
	if len(r.data) == 0 {
		return 0, errNoData
	}
	b := r.data[0]
	r.data = r.data[1:]
	return b, nil
}
