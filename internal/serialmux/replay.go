package serialmux

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"os"
	"sync"
	"time"

	"github.com/banshee-data/intersection.report/internal/timeutil"
)

// ReplayPort plays a recorded detector log back as a serial port, one line
// per Interval. Commands written to it are kept in Written.
type ReplayPort struct {
	Interval time.Duration
	Clock    timeutil.Clock

	mu      sync.Mutex
	src     *bufio.Reader
	closer  io.Closer
	pending []byte
	written bytes.Buffer
	closed  bool
	started bool
}

// NewReplayPort reads lines from r. If r is an io.Closer it is closed with
// the port.
func NewReplayPort(r io.Reader, interval time.Duration) *ReplayPort {
	p := &ReplayPort{Interval: interval, Clock: timeutil.RealClock{}, src: bufio.NewReader(r)}
	if c, ok := r.(io.Closer); ok {
		p.closer = c
	}
	return p
}

func (p *ReplayPort) Read(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return 0, io.EOF
	}
	if len(p.pending) == 0 {
		if p.started && p.Interval > 0 {
			p.mu.Unlock()
			p.Clock.Sleep(p.Interval)
			p.mu.Lock()
			if p.closed {
				return 0, io.EOF
			}
		}
		line, err := p.src.ReadBytes('\n')
		if len(line) == 0 {
			if err == nil {
				err = io.EOF
			}
			return 0, err
		}
		if err != nil && !errors.Is(err, io.EOF) {
			return 0, err
		}
		p.started = true
		p.pending = line
	}
	n := copy(b, p.pending)
	p.pending = p.pending[n:]
	return n, nil
}

func (p *ReplayPort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return 0, errors.New("replay port closed")
	}
	return p.written.Write(b)
}

// Written returns every command sent to the port.
func (p *ReplayPort) Written() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.written.String()
}

func (p *ReplayPort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	if p.closer != nil {
		return p.closer.Close()
	}
	return nil
}

// NewReplaySerialMux builds a mux over a recorded log.
func NewReplaySerialMux(r io.Reader, interval time.Duration) *SerialMux[*ReplayPort] {
	return NewSerialMux(NewReplayPort(r, interval))
}

// OpenReplaySerialMux replays the log file at path.
func OpenReplaySerialMux(path string, interval time.Duration) (*SerialMux[*ReplayPort], error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return NewReplaySerialMux(f, interval), nil
}
