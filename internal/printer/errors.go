package printer

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"go.bug.st/serial"
)

// Common errors
var (
	ErrPortUnavailable = errors.New("port unavailable")
	ErrWriteTimeout    = errors.New("write timed out")
	ErrTransport       = errors.New("transport error")
	ErrSessionClosed   = errors.New("session closed")
)

// PortUnavailableError is returned by Open when the port cannot be claimed.
type PortUnavailableError struct {
	Port string
	Err  error
}

func (e *PortUnavailableError) Error() string {
	return fmt.Sprintf("port %s unavailable: %s", e.Port, describePortError(e.Err))
}

func (e *PortUnavailableError) Unwrap() error { return e.Err }

func (e *PortUnavailableError) Is(target error) bool { return target == ErrPortUnavailable }

// WriteTimeoutError is returned when a write or drain outlives the write timeout.
// The session is closed when this is returned.
type WriteTimeoutError struct {
	Port    string
	Timeout time.Duration
}

func (e *WriteTimeoutError) Error() string {
	return fmt.Sprintf("write to %s timed out after %s", e.Port, e.Timeout)
}

func (e *WriteTimeoutError) Is(target error) bool { return target == ErrWriteTimeout }

// TransportError wraps any other failure reported by the port driver.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

func (e *TransportError) Is(target error) bool { return target == ErrTransport }

// IncompleteJobError reports an image job that failed after some raster
// lines already reached the printer. Those lines cannot be taken back.
type IncompleteJobError struct {
	Sent  int
	Total int
	Err   error
}

func (e *IncompleteJobError) Error() string {
	return fmt.Sprintf("job did not complete: %d of %d lines sent before failure: %v", e.Sent, e.Total, e.Err)
}

func (e *IncompleteJobError) Unwrap() error { return e.Err }

// describePortError spells out the serial library's error codes.
func describePortError(err error) string {
	code, ok := portErrorCode(err)
	switch {
	case ok && code == serial.PortBusy:
		return "port is already in use"
	case ok && code == serial.PortNotFound, errors.Is(err, fs.ErrNotExist):
		return "port does not exist"
	case ok && code == serial.PermissionDenied, errors.Is(err, fs.ErrPermission):
		return "permission denied"
	case ok && code == serial.InvalidSpeed:
		return "baud rate not supported by the port"
	default:
		return err.Error()
	}
}

// portErrorCode extracts the code of a serial.PortError, which the library
// returns both by value and by pointer.
func portErrorCode(err error) (serial.PortErrorCode, bool) {
	var ptr *serial.PortError
	if errors.As(err, &ptr) && ptr != nil {
		return ptr.Code(), true
	}
	var val serial.PortError
	if errors.As(err, &val) {
		return val.Code(), true
	}
	return 0, false
}
