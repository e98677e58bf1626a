package motion

import (
	"strconv"
	"strings"

	"github.com/calvinmclean/dualstep"
)

// MotorStatus is a point-in-time copy of one motor's state
type MotorStatus struct {
	ID           dualstep.MotorID   `json:"id"`
	Running      bool               `json:"running"`
	CurrentSpeed float64            `json:"current_speed"`
	TargetSpeed  float64            `json:"target_speed"`
	Direction    dualstep.Direction `json:"direction"`
	Position     int64              `json:"position"`
	Steps        uint64             `json:"steps"`
	BoostActive  bool               `json:"boost_active"`
	Phase        Phase              `json:"phase"`
	Governor     GovernorState      `json:"governor"`
}

// Status is a snapshot of both motors plus the process-wide drift
type Status struct {
	Motors        [dualstep.NumMotors]MotorStatus `json:"motors"`
	Drift         int64                           `json:"drift"`
	Boost         BoostConfig                     `json:"boost"`
	LastAdvisory  *DriftAdvisory                  `json:"last_advisory,omitempty"`
	Ticks         uint64                          `json:"ticks"`
	TimerCommits  uint64                          `json:"timer_commits"`
	UptimeSeconds float64                         `json:"uptime_seconds"`
}

// Status copies the current state. Positions are read atomically
func (c *Controller) Status() Status {
	s := Status{
		Drift:         c.Drift(),
		Boost:         c.cfg.Boost,
		LastAdvisory:  c.sync.LastAdvisory(),
		Ticks:         c.ticks,
		TimerCommits:  c.sync.commits,
		UptimeSeconds: c.Uptime().Seconds(),
	}
	for i, m := range c.motors {
		s.Motors[i] = m.status()
	}
	return s
}

func (m *Motor) status() MotorStatus {
	return MotorStatus{
		ID:           m.id,
		Running:      m.running,
		CurrentSpeed: m.currentSpeed,
		TargetSpeed:  m.effectiveTarget(),
		Direction:    m.direction,
		Position:     m.pls.Position(),
		Steps:        m.pls.Steps(),
		BoostActive:  m.boost.active,
		Phase:        m.Phase(),
		Governor:     m.gov.state,
	}
}

// Steps is the total executed by both motors
func (s Status) Steps() uint64 {
	return s.Motors[dualstep.Motor1].Steps + s.Motors[dualstep.Motor2].Steps
}

// Lines formats the status for a serial console
func (s Status) Lines() []string {
	lines := []string{"======== DUAL MOTOR STATUS ========"}
	for _, m := range s.Motors {
		lines = append(lines,
			"--- "+m.ID.String()+" ("+m.ID.Side()+") ---",
			"  Running: "+yesNo(m.Running),
			"  Current Speed: "+strconv.FormatFloat(m.CurrentSpeed, 'f', 2, 64),
			"  Target Speed: "+strconv.FormatFloat(m.TargetSpeed, 'f', 2, 64),
			"  Direction: "+m.Direction.String(),
			"  Position: "+strconv.FormatInt(m.Position, 10),
			"  Boost Active: "+yesNo(m.BoostActive),
			"  Phase: "+m.Phase.String(),
			"  Governor: "+m.Governor.String(),
		)
	}
	lines = append(lines,
		"--- Sync Drift: "+strconv.FormatInt(s.Drift, 10)+" steps ---",
		"===================================",
	)
	return lines
}

func (s Status) String() string {
	return strings.Join(s.Lines(), "\n")
}

func yesNo(b bool) string {
	if b {
		return "YES"
	}
	return "NO"
}
