package commands

import (
	"math"
	"strconv"
	"strings"

	"github.com/calvinmclean/dualstep"
	"github.com/calvinmclean/dualstep/motion"
)

// Command is one verb of the serial protocol
type Command struct {
	Verb    string
	Aliases []string
	// Args are the word arguments the command requires as its first field. ArgAliases
	// maps shorthand to entries of Args
	Args       []string
	ArgAliases map[string]string
	Usage      string
	Run        func(Controller, Request) ([]string, error)
	// Global commands ignore the motor selector
	Global      bool
	Description string
}

func (c *Command) arg(s string) (string, bool) {
	for _, a := range c.Args {
		if a == s {
			return a, true
		}
	}
	a, ok := c.ArgAliases[s]
	return a, ok
}

// Controller is used to control both motors. *motion.Controller implements it
type Controller interface {
	SetSpeed(dualstep.MotorID, float64) error
	SetDirection(dualstep.MotorID, dualstep.Direction) error
	Stop(dualstep.MotorID) error
	EmergencyStop()
	Run(dualstep.MotorID) error
	Reset(dualstep.MotorID) error
	SyncPositions()
	ApplyBoost(dualstep.MotorID, float64) error
	SetBoostOption(motion.BoostOption, float64) motion.BoostConfig
	ConfigureBoost(motion.BoostConfig) motion.BoostConfig
	Config() motion.Config
	Status() motion.Status

	Due() bool
	Tick() *motion.DriftAdvisory
}

var (
	SpeedCommand = &Command{
		Verb:    "SPEED",
		Aliases: []string{"S"},
		Usage:   "SPEED:value",
		Run: func(c Controller, r Request) ([]string, error) {
			speed := clampSpeed(r.Value(0), c.Config().MaxSpeed)
			err := each(r.Selector, func(id dualstep.MotorID) error {
				return c.SetSpeed(id, speed)
			})
			if err != nil {
				return nil, err
			}
			return ok("SPEED", r.Selector.String(), num(speed)), nil
		},
		Description: "Set target speed in steps/sec. 0 stops gracefully.",
	}
	ForwardCommand = &Command{
		Verb:        "FORWARD",
		Aliases:     []string{"FWD", "F"},
		Usage:       "FORWARD",
		Run:         direction(dualstep.Forward),
		Description: "Set direction forward. Deferred until the speed is safe.",
	}
	BackwardCommand = &Command{
		Verb:        "BACKWARD",
		Aliases:     []string{"BACK", "B"},
		Usage:       "BACKWARD",
		Run:         direction(dualstep.Backward),
		Description: "Set direction backward. Deferred until the speed is safe.",
	}
	StopCommand = &Command{
		Verb:    "STOP",
		Aliases: []string{"X"},
		Usage:   "STOP",
		Run: func(c Controller, r Request) ([]string, error) {
			err := each(r.Selector, c.Stop)
			if err != nil {
				return nil, err
			}
			return ok("STOP", r.Selector.String()), nil
		},
		Description: "Decelerate to a stop.",
	}
	EmergencyStopCommand = &Command{
		Verb:    "ESTOP",
		Aliases: []string{"E"},
		Usage:   "ESTOP",
		Global:  true,
		Run: func(c Controller, r Request) ([]string, error) {
			c.EmergencyStop()
			return ok("ESTOP"), nil
		},
		Description: "Emergency stop all motors within 500ms.",
	}
	RunCommand = &Command{
		Verb:    "RUN",
		Aliases: []string{"R"},
		Usage:   "RUN",
		Run: func(c Controller, r Request) ([]string, error) {
			err := each(r.Selector, c.Run)
			if err != nil {
				return nil, err
			}
			return ok("RUN", r.Selector.String()), nil
		},
		Description: "Start motor(s) toward the current target speed.",
	}
	StatusCommand = &Command{
		Verb:    "STATUS",
		Aliases: []string{"?"},
		Usage:   "STATUS",
		Global:  true,
		Run: func(c Controller, r Request) ([]string, error) {
			return c.Status().Lines(), nil
		},
		Description: "Print the state of both motors and the sync drift.",
	}
	ResetCommand = &Command{
		Verb:    "RESET",
		Aliases: []string{"RST"},
		Usage:   "RESET",
		Run: func(c Controller, r Request) ([]string, error) {
			err := each(r.Selector, c.Reset)
			if err != nil {
				return nil, err
			}
			return ok("RESET", r.Selector.String()), nil
		},
		Description: "Zero the position and stop.",
	}
	SyncCommand = &Command{
		Verb:   "SYNC",
		Usage:  "SYNC",
		Global: true,
		Run: func(c Controller, r Request) ([]string, error) {
			c.SyncPositions()
			return ok("SYNC"), nil
		},
		Description: "Zero both positions at the same instant.",
	}
	SpinCommand = &Command{
		Verb:       "SPIN",
		Args:       []string{"LEFT", "RIGHT"},
		ArgAliases: map[string]string{"L": "LEFT", "R": "RIGHT"},
		Usage:      "SPIN:LEFT|RIGHT:speed",
		Global:     true,
		Run: func(c Controller, r Request) ([]string, error) {
			speed := clampSpeed(r.Value(0), c.Config().MaxSpeed)
			err := drive(c, r.Arg, func(id dualstep.MotorID) error {
				return c.SetSpeed(id, speed)
			})
			if err != nil {
				return nil, err
			}
			return ok("SPIN", r.Arg, num(speed)), nil
		},
		Description: "Point turn with the motors in opposite directions.",
	}
	BoostCommand = &Command{
		Verb:       "BOOST",
		Args:       []string{"LEFT", "RIGHT", "FORWARD", "BACKWARD"},
		ArgAliases: map[string]string{"L": "LEFT", "R": "RIGHT", "F": "FORWARD", "B": "BACKWARD"},
		Usage:      "BOOST:LEFT|RIGHT|FORWARD|BACKWARD:speed",
		Global:     true,
		Run: func(c Controller, r Request) ([]string, error) {
			speed := clampSpeed(r.Value(0), c.Config().MaxSpeed)
			err := drive(c, r.Arg, func(id dualstep.MotorID) error {
				return c.ApplyBoost(id, speed)
			})
			if err != nil {
				return nil, err
			}
			return ok("BOOST", r.Arg, num(speed)), nil
		},
		Description: "Move both motors with a temporary speed boost.",
	}
	ConfigCommand = &Command{
		Verb: "CONFIG",
		Args: []string{"BOOST", motion.BoostMultiplier.String(), motion.BoostDuration.String(), motion.BoostEnabled.String()},
		ArgAliases: map[string]string{
			"MULTIPLIER": motion.BoostMultiplier.String(),
			"DUR":        motion.BoostDuration.String(),
			"ENABLED":    motion.BoostEnabled.String(),
		},
		Usage:  "CONFIG:BOOST:mult:dur_ms:enabled or CONFIG:MULT|DURATION|BOOSTEN:value",
		Global: true,
		Run: func(c Controller, r Request) ([]string, error) {
			var b motion.BoostConfig
			switch r.Arg {
			case "BOOST":
				b = c.ConfigureBoost(motion.BoostConfig{
					Multiplier: r.Value(0),
					Duration:   motion.Millis(r.Value(1)),
					Enabled:    r.Value(2) == 1,
				})
			case motion.BoostMultiplier.String():
				b = c.SetBoostOption(motion.BoostMultiplier, r.Value(0))
			case motion.BoostDuration.String():
				b = c.SetBoostOption(motion.BoostDuration, r.Value(0))
			case motion.BoostEnabled.String():
				b = c.SetBoostOption(motion.BoostEnabled, r.Value(0))
			}
			return ok("CONFIG", "BOOST",
				num(b.Multiplier),
				strconv.FormatInt(b.Duration.Milliseconds(), 10)+"ms",
				yesNo(b.Enabled),
			), nil
		},
		Description: "Configure boost. Values out of range are clamped.",
	}
	StatsCommand = &Command{
		Verb:   "STATS",
		Usage:  "STATS",
		Global: true,
		// filled in by the Session, which owns the counters
		Description: "Print command and step statistics.",
	}
	HelpCommand = &Command{
		Verb:        "HELP",
		Aliases:     []string{"H"},
		Usage:       "HELP",
		Global:      true,
		Description: "Show all available commands and their descriptions.",
		Run: func(Controller, Request) ([]string, error) {
			return helpLines(), nil
		},
	}
)

var commands = []*Command{
	SpeedCommand,
	ForwardCommand,
	BackwardCommand,
	StopCommand,
	EmergencyStopCommand,
	RunCommand,
	StatusCommand,
	ResetCommand,
	SyncCommand,
	SpinCommand,
	BoostCommand,
	ConfigCommand,
	StatsCommand,
}

var cmdMap = buildCommandMap()

func buildCommandMap() map[string]*Command {
	m := map[string]*Command{}
	for _, cmd := range append([]*Command{HelpCommand}, commands...) {
		m[cmd.Verb] = cmd
		for _, a := range cmd.Aliases {
			m[a] = cmd
		}
	}
	return m
}

func lookup(verb string) (*Command, bool) {
	cmd, ok := cmdMap[verb]
	return cmd, ok
}

func helpLines() []string {
	lines := []string{"Available Commands:"}
	for _, cmd := range commands {
		name := strings.Join(append([]string{cmd.Usage}, cmd.Aliases...), " | ")
		lines = append(lines, "  "+name+" - "+cmd.Description)
	}
	lines = append(lines, "  Prefix with M1: or M2: to address one motor, e.g. M1:SPEED:1000")
	return lines
}

func direction(d dualstep.Direction) func(Controller, Request) ([]string, error) {
	return func(c Controller, r Request) ([]string, error) {
		err := each(r.Selector, func(id dualstep.MotorID) error {
			return c.SetDirection(id, d)
		})
		if err != nil {
			return nil, err
		}

		resp := ok(d.String(), r.Selector.String())
		if reversing(c.Status(), r.Selector) {
			resp[0] += " PENDING"
		}
		return resp, nil
	}
}

// drive sets the directions for a SPIN or BOOST word, then applies f to both motors
func drive(c Controller, arg string, f func(dualstep.MotorID) error) error {
	dir, spin := dualstep.Forward, false
	switch arg {
	case "LEFT":
		dir, spin = dualstep.Backward, true
	case "RIGHT":
		spin = true
	case "BACKWARD":
		dir = dualstep.Backward
	}

	dirs := [dualstep.NumMotors]dualstep.Direction{dir, dir}
	if spin {
		dirs[dualstep.Motor2] = dir.Opposite()
	}

	return each(dualstep.SelectBoth, func(id dualstep.MotorID) error {
		err := c.SetDirection(id, dirs[id])
		if err != nil {
			return err
		}
		return f(id)
	})
}

// each applies f to every selected motor and returns the first error
func each(sel dualstep.Selector, f func(dualstep.MotorID) error) error {
	var first error
	for _, id := range sel.Motors() {
		err := f(id)
		if err != nil && first == nil {
			first = err
		}
	}
	return first
}

func reversing(s motion.Status, sel dualstep.Selector) bool {
	for _, id := range sel.Motors() {
		switch s.Motors[id].Governor {
		case motion.GovernorRampingForReversal, motion.GovernorHoldingForReversal:
			return true
		}
	}
	return false
}

func clampSpeed(v, limit float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	return min(v, limit)
}

func ok(fields ...string) []string {
	return []string{"OK " + strings.Join(fields, " ")}
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func yesNo(b bool) string {
	if b {
		return "YES"
	}
	return "NO"
}
