package motion

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/calvinmclean/dualstep"
)

func TestNew(t *testing.T) {
	t.Run("MissingHardware", func(t *testing.T) {
		var hw [dualstep.NumMotors]Hardware
		hw[0] = Hardware{Step: &fakePin{}, Dir: &fakePin{}, Timer: &fakeTimer{lk: &fakeLocker{}}}

		_, err := New(DefaultConfig(), hw)
		if !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})

	t.Run("InvalidConfig", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.AccelRate = 0

		_, err := New(cfg, [dualstep.NumMotors]Hardware{})
		if !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})

	t.Run("InitialState", func(t *testing.T) {
		r := newRig(t)
		for i := range dualstep.NumMotors {
			if r.step[i].level || r.dir[i].level {
				t.Errorf("expected outputs low for %s", dualstep.MotorID(i))
			}
			if r.timers[i].running {
				t.Errorf("expected timer stopped for %s", dualstep.MotorID(i))
			}
		}
		s := r.c.Status()
		if s.Motors[0].Phase != PhaseStopped || s.Motors[1].Direction != dualstep.Forward {
			t.Errorf("unexpected initial status: %+v", s)
		}
	})

	t.Run("BoostNormalized", func(t *testing.T) {
		r := newRig(t, func(c *Config) { c.Boost.Multiplier = 7 })
		if r.c.Config().Boost.Multiplier != MaxBoostMultiplier {
			t.Errorf("expected multiplier clamped, got %f", r.c.Config().Boost.Multiplier)
		}
	})
}

func TestDue(t *testing.T) {
	r := newRig(t)

	if !r.c.Due() {
		t.Error("expected first tick to be due")
	}
	r.c.Tick()
	if r.c.Due() {
		t.Error("expected no tick due immediately after one")
	}
	r.clock.Advance(9 * time.Millisecond)
	if r.c.Due() {
		t.Error("expected no tick due before the interval")
	}
	r.clock.Advance(time.Millisecond)
	if !r.c.Due() {
		t.Error("expected tick due after the interval")
	}
}

func TestSpeedIsClamped(t *testing.T) {
	r := newRig(t)

	_ = r.c.SetSpeed(dualstep.Motor1, 50000)
	if got := r.c.Motor(dualstep.Motor1).targetSpeed; got != DefaultMaxSpeed {
		t.Errorf("expected %f, got %f", DefaultMaxSpeed, got)
	}
}

func TestRunResumesTarget(t *testing.T) {
	r := newRig(t)
	r.cruise(t, dualstep.Motor1, dualstep.Forward, 1000)

	m := r.c.Motor(dualstep.Motor1)
	m.running = false
	r.tick(1)

	_ = r.c.Run(dualstep.Motor1)
	r.tick(1)
	if !m.running || r.speed(dualstep.Motor1) != 80 {
		t.Errorf("expected the motor to start ramping toward 1000, got %f", r.speed(dualstep.Motor1))
	}
}

func TestStatus(t *testing.T) {
	r := newRig(t)
	r.cruise(t, dualstep.Motor1, dualstep.Forward, 1000)
	r.timers[dualstep.Motor1].fire(20)

	s := r.c.Status()
	if s.Motors[0].Position != 10 || s.Drift != 10 {
		t.Errorf("unexpected position %d or drift %d", s.Motors[0].Position, s.Drift)
	}
	if s.Ticks == 0 || s.TimerCommits == 0 {
		t.Errorf("expected counters to advance: %+v", s)
	}

	text := s.String()
	for _, want := range []string{
		"--- Motor1 (Left/Port) ---",
		"  Current Speed: 1000.00",
		"  Direction: FORWARD",
		"  Phase: CRUISING",
		"--- Sync Drift: 10 steps ---",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("expected status to contain %q:\n%s", want, text)
		}
	}

	out, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(string(out), `"phase":"CRUISING"`) || !strings.Contains(string(out), `"governor":"IDLE"`) {
		t.Errorf("unexpected json: %s", out)
	}
}
