package printer

import (
	"errors"
	"fmt"
	"io/fs"
	"sync"
	"time"

	"go.bug.st/serial"
)

// fakeBus hands out fakePorts and refuses a second open of a busy name.
type fakeBus struct {
	mu      sync.Mutex
	open    map[string]*fakePort
	missing map[string]bool
	opened  []*fakePort
	// next configures the behavior of the next port opened.
	next func(*fakePort)
}

func newFakeBus() *fakeBus {
	return &fakeBus{open: map[string]*fakePort{}, missing: map[string]bool{}}
}

func (b *fakeBus) Open(name string, mode *serial.Mode) (Port, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.missing[name] {
		return nil, fmt.Errorf("open %s: %w", name, fs.ErrNotExist)
	}
	if _, busy := b.open[name]; busy {
		return nil, errors.New("device or resource busy")
	}

	p := &fakePort{bus: b, name: name, mode: *mode, unblock: make(chan struct{})}
	if b.next != nil {
		b.next(p)
		b.next = nil
	}
	b.open[name] = p
	b.opened = append(b.opened, p)
	return p, nil
}

func (b *fakeBus) isOpen(name string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.open[name]
	return ok
}

type fakePort struct {
	bus  *fakeBus
	name string
	mode serial.Mode

	mu          sync.Mutex
	written     [][]byte
	drains      int
	closed      bool
	readTimeout time.Duration

	// block makes every Write wait until the port is closed.
	block   bool
	unblock chan struct{}
	// lateWrite lets a blocked Write complete after the close, as a write
	// already in the driver does.
	lateWrite bool
	// failErr, when set, is returned once failAfter writes have succeeded.
	failErr   error
	failAfter int
	// chunk caps how many bytes a single Write accepts; 0 accepts all.
	chunk int
}

func (p *fakePort) Write(b []byte) (int, error) {
	if p.block {
		<-p.unblock
		if !p.lateWrite {
			return 0, errors.New("port closed")
		}
		p.mu.Lock()
		defer p.mu.Unlock()
		return p.record(b), nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return 0, errors.New("port closed")
	}
	if p.failErr != nil && len(p.written) >= p.failAfter {
		return 0, p.failErr
	}
	return p.record(b), nil
}

// record stores what a single Write accepts. p.mu must be held.
func (p *fakePort) record(b []byte) int {
	n := len(b)
	if p.chunk > 0 && n > p.chunk {
		n = p.chunk
	}
	p.written = append(p.written, append([]byte(nil), b[:n]...))
	return n
}

func (p *fakePort) Drain() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.drains++
	return nil
}

func (p *fakePort) SetReadTimeout(t time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.readTimeout = t
	return nil
}

func (p *fakePort) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return errors.New("already closed")
	}
	p.closed = true
	p.mu.Unlock()

	close(p.unblock)

	p.bus.mu.Lock()
	delete(p.bus.open, p.name)
	p.bus.mu.Unlock()
	return nil
}

func (p *fakePort) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

func (p *fakePort) bytes() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []byte
	for _, w := range p.written {
		out = append(out, w...)
	}
	return out
}

func (p *fakePort) drainCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.drains
}

func (p *fakePort) writes() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.written)
}
