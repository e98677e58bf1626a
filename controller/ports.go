package controller

import (
	"errors"
	"fmt"

	"go.bug.st/serial/enumerator"
)

// ErrNoUSBSerial is returned when no USB serial port is attached
var ErrNoUSBSerial = errors.New("no USB serial ports found")

// GetSerialPorts lists USB serial ports, which is where a flashed board shows up
func GetSerialPorts() ([]string, error) {
	ports, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, fmt.Errorf("error listing serial ports: %w", err)
	}
	return usbPorts(ports)
}

func usbPorts(ports []*enumerator.PortDetails) ([]string, error) {
	var names []string
	for _, p := range ports {
		if p == nil || !p.IsUSB {
			continue
		}
		names = append(names, p.Name)
	}

	if len(names) == 0 {
		return nil, ErrNoUSBSerial
	}
	return names, nil
}
