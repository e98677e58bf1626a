//go:build tinygo

package device

import (
	"machine"

	"github.com/calvinmclean/dualstep"
	"github.com/calvinmclean/dualstep/motion"
)

// MotorPins are the step and direction inputs of one DQ860HA driver
type MotorPins struct {
	Step machine.Pin
	Dir  machine.Pin
}

// Config has the board wiring and the motion tuning
type Config struct {
	Motors [dualstep.NumMotors]MotorPins
	// LED blinks once per second while the command loop is running. machine.NoPin disables it
	LED machine.Pin

	BaudRate uint32
	Motion   motion.Config
	Verbose  bool
}
