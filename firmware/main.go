//go:build tinygo

package main

import (
	"machine"

	"github.com/calvinmclean/dualstep/firmware/device"
	"github.com/calvinmclean/dualstep/motion"
)

func main() {
	cfg := device.Config{
		Motors: [2]device.MotorPins{
			{Step: machine.D2, Dir: machine.D3},
			{Step: machine.D4, Dir: machine.D5},
		},
		LED:      machine.LED,
		BaudRate: 115200,
		Motion:   motion.DefaultConfig(),
	}

	d, err := device.New(cfg)
	if err != nil {
		panic(err)
	}

	err = d.Run()
	if err != nil {
		panic(err)
	}
}
