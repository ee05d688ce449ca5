package serialmux

import (
	"fmt"
	"io"

	"go.bug.st/serial"
)

// SerialPorter is what SerialMux reads from and writes to: the detector's
// serial port, a ReplayPort, or a test double.
type SerialPorter interface {
	io.ReadWriteCloser
}

// NewRealSerialMux opens the detector's serial port with opts.
func NewRealSerialMux(opts PortOptions) (*SerialMux[serial.Port], error) {
	mode, err := opts.SerialMode()
	if err != nil {
		return nil, err
	}
	port, err := serial.Open(opts.Path, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open detector port %s: %w", opts.Path, err)
	}
	return NewSerialMux(port), nil
}
