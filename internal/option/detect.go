package option

import (
	"errors"
	"fmt"

	"go.bug.st/serial"
)

// ListPorts returns the serial ports reported by the OS.
func ListPorts() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("list serial ports: %w", err)
	}
	return ports, nil
}

// DetectDevice returns the first serial port reported by the OS.
func DetectDevice() (string, error) {
	ports, err := ListPorts()
	if err != nil {
		return "", err
	}
	if len(ports) == 0 {
		return "", errors.New("no serial ports")
	}
	return ports[0], nil
}
