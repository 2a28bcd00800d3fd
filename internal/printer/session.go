package printer

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// Defaults used by DefaultOptions.
const (
	DefaultBaud         = 9600
	DefaultReadTimeout  = 2 * time.Second
	DefaultWriteTimeout = 5 * time.Second
	// DefaultPace lets the DPU-414 drain its line buffer between raster lines.
	DefaultPace = 100 * time.Millisecond
)

// Options configures a Session and the jobs run over it.
type Options struct {
	Port         string
	Baud         int
	ReadTimeout  time.Duration // unused by the protocol, set on the port anyway
	WriteTimeout time.Duration // bounds each write plus drain; 0 waits forever
	Pace         time.Duration // pause after each raster line; 0 disables

	// CodePage names the text encoding, see escp.CodePages.
	CodePage string
	// MaxFrames is a soft limit: longer image jobs are logged, not refused.
	MaxFrames int

	Logger *zerolog.Logger
	Opener Opener

	sleep func(time.Duration)
}

// DefaultOptions returns the settings the DPU-414 works with out of the box.
func DefaultOptions(port string) Options {
	return Options{
		Port:         port,
		Baud:         DefaultBaud,
		ReadTimeout:  DefaultReadTimeout,
		WriteTimeout: DefaultWriteTimeout,
		Pace:         DefaultPace,
	}
}

func (o Options) logger() zerolog.Logger {
	if o.Logger == nil {
		return zerolog.Nop()
	}
	return *o.Logger
}

// Session owns an open serial port for the duration of one job
type Session struct {
	port         Port
	portName     string
	writeTimeout time.Duration
	pace         time.Duration
	sleep        func(time.Duration)
	log          zerolog.Logger
}

// Open claims the port in 8N1 mode at opts.Baud. On failure no Session is
// returned and the port is left closed.
func Open(opts Options) (*Session, error) {
	log := opts.logger().With().Str("port", opts.Port).Logger()

	if opts.Baud <= 0 {
		return nil, &PortUnavailableError{Port: opts.Port, Err: fmt.Errorf("invalid baud rate %d", opts.Baud)}
	}

	opener := opts.Opener
	if opener == nil {
		opener = openSerial
	}

	port, err := opener(opts.Port, portMode(opts.Baud))
	if err != nil {
		return nil, &PortUnavailableError{Port: opts.Port, Err: err}
	}

	if opts.ReadTimeout > 0 {
		if err := port.SetReadTimeout(opts.ReadTimeout); err != nil {
			port.Close()
			return nil, &PortUnavailableError{Port: opts.Port, Err: fmt.Errorf("set read timeout: %w", err)}
		}
	}

	sleep := opts.sleep
	if sleep == nil {
		sleep = time.Sleep
	}

	log.Debug().Int("baud", opts.Baud).Msg("port opened")

	return &Session{
		port:         port,
		portName:     opts.Port,
		writeTimeout: opts.WriteTimeout,
		pace:         opts.Pace,
		sleep:        sleep,
		log:          log,
	}, nil
}

// errAbandoned stops a write goroutine that outlived its timeout.
var errAbandoned = errors.New("write abandoned after timeout")

// SendFrame writes data, then drains the port. Both must finish within the
// write timeout, otherwise the port is closed and a WriteTimeoutError is
// returned.
//
// Closing the port does not interrupt a write already blocked in the
// driver, so the writing goroutine may outlive the session. Once abandoned
// it issues no further writes or drains, since the descriptor number may
// belong to a port opened since.
func (s *Session) SendFrame(data []byte) error {
	if s.port == nil {
		return ErrSessionClosed
	}

	port := s.port
	abandoned := new(atomic.Bool)
	done := make(chan error, 1)
	go func() {
		done <- writeAndDrain(port, data, abandoned)
	}()

	if s.writeTimeout <= 0 {
		return <-done
	}

	timer := time.NewTimer(s.writeTimeout)
	defer timer.Stop()

	select {
	case err := <-done:
		return err
	case <-timer.C:
		abandoned.Store(true)
		s.release()
		s.log.Warn().Dur("timeout", s.writeTimeout).Msg("write timed out, port released")
		return &WriteTimeoutError{Port: s.portName, Timeout: s.writeTimeout}
	}
}

// SendRasterLine sends one raster frame and then waits the pacing interval.
func (s *Session) SendRasterLine(frame []byte) error {
	if err := s.SendFrame(frame); err != nil {
		return err
	}
	if s.pace > 0 {
		s.sleep(s.pace)
	}
	return nil
}

func writeAndDrain(port Port, data []byte, abandoned *atomic.Bool) error {
	for len(data) > 0 {
		if abandoned.Load() {
			return errAbandoned
		}
		n, err := port.Write(data)
		if err != nil {
			return &TransportError{Op: "write", Err: err}
		}
		if n == 0 {
			return &TransportError{Op: "write", Err: fmt.Errorf("port accepted no bytes")}
		}
		data = data[n:]
	}
	if abandoned.Load() {
		return errAbandoned
	}
	if err := port.Drain(); err != nil {
		return &TransportError{Op: "drain", Err: err}
	}
	return nil
}

// Close releases the port. It is safe to call more than once.
func (s *Session) Close() error {
	if s.port == nil {
		return nil
	}
	if err := s.release(); err != nil {
		return &TransportError{Op: "close", Err: err}
	}
	return nil
}

func (s *Session) release() error {
	port := s.port
	s.port = nil
	if port == nil {
		return nil
	}
	err := port.Close()
	s.log.Debug().Err(err).Msg("port closed")
	return err
}

// PortName returns the port this session was opened on
func (s *Session) PortName() string {
	return s.portName
}
