package motion

import (
	"sync"
	"time"

	"github.com/calvinmclean/dualstep"
)

// DriftAdvisory reports that the two position counters have separated by more than
// SyncThreshold while a motor was running. Nothing is corrected
type DriftAdvisory struct {
	At        time.Time `json:"at"`
	Drift     int64     `json:"drift"`
	Position1 int64     `json:"position1"`
	Position2 int64     `json:"position2"`
}

// SyncManager commits both motors' timers together and watches their drift
type SyncManager struct {
	cs      sync.Locker
	onDrift func(DriftAdvisory)

	// period is the last committed timer interval per motor, zero when disabled
	period [dualstep.NumMotors]time.Duration

	lastCheck time.Time
	advisory  *DriftAdvisory
	commits   uint64
}

// Commit reprograms the step timers back to back with step interrupts masked. Only a
// timer whose period changed is touched, and a running train is updated in place so
// its phase is kept. Nothing is reprogrammed when neither period changed
func (s *SyncManager) Commit(motors [dualstep.NumMotors]*Motor, stopSpeed float64) {
	var next [dualstep.NumMotors]time.Duration
	changed := false
	for i, m := range motors {
		if m.running && m.currentSpeed >= stopSpeed {
			next[i] = halfPeriod(m.currentSpeed)
		}
		if next[i] != s.period[i] {
			changed = true
		}
	}
	if !changed {
		return
	}

	s.cs.Lock()
	for i, m := range motors {
		switch {
		case next[i] == s.period[i]:
		case next[i] == 0:
			m.hw.Timer.Stop()
			m.pls.Idle()
		case s.period[i] == 0:
			m.hw.Timer.Start(next[i], m.pls.Step)
		default:
			m.hw.Timer.Update(next[i])
		}
	}
	s.cs.Unlock()

	s.period = next
	s.commits++
}

// CheckDrift compares the position counters and returns an advisory when they have
// drifted past threshold while either motor is running
func (s *SyncManager) CheckDrift(motors [dualstep.NumMotors]*Motor, threshold int64, now time.Time) *DriftAdvisory {
	s.lastCheck = now

	p1 := motors[dualstep.Motor1].pls.Position()
	p2 := motors[dualstep.Motor2].pls.Position()
	drift := abs(p1 - p2)

	if drift <= threshold || !(motors[dualstep.Motor1].running || motors[dualstep.Motor2].running) {
		return nil
	}

	a := &DriftAdvisory{At: now, Drift: drift, Position1: p1, Position2: p2}
	s.advisory = a
	if s.onDrift != nil {
		s.onDrift(*a)
	}
	return a
}

// Zero resets both position counters inside one critical section so the next
// status read sees exactly 0 for both
func (s *SyncManager) Zero(motors ...*Motor) {
	s.cs.Lock()
	for _, m := range motors {
		m.pls.zero()
	}
	s.cs.Unlock()
}

// LastAdvisory returns the most recent drift advisory, or nil
func (s *SyncManager) LastAdvisory() *DriftAdvisory {
	return s.advisory
}

// Drift is the current absolute difference between the position counters
func (s *SyncManager) Drift(motors [dualstep.NumMotors]*Motor) int64 {
	return abs(motors[dualstep.Motor1].pls.Position() - motors[dualstep.Motor2].pls.Position())
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
