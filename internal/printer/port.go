package printer

import (
	"time"

	"go.bug.st/serial"
)

// Port is the part of serial.Port a Session uses.
type Port interface {
	Write(p []byte) (int, error)
	// Drain blocks until every written byte has been handed to the hardware.
	Drain() error
	SetReadTimeout(t time.Duration) error
	Close() error
}

// Opener claims a serial port. serial.Open is used unless Options.Opener is set.
type Opener func(name string, mode *serial.Mode) (Port, error)

func openSerial(name string, mode *serial.Mode) (Port, error) {
	p, err := serial.Open(name, mode)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// portMode returns 8N1 at the given baud rate.
func portMode(baud int) *serial.Mode {
	return &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
}
