// Package serialmux fans out the newline-delimited output of a single
// detector port to any number of subscribers, and forwards commands back to
// the device.
package serialmux

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/banshee-data/intersection.report/internal/monitoring"
)

var ErrWriteFailed = errors.New("failed to write to serial port")

// DefaultSubscriberBuffer is the number of lines a subscriber may lag behind
// before further lines are dropped for it.
const DefaultSubscriberBuffer = 1024

// maxLineBytes bounds one detector line.
const maxLineBytes = 1 << 20

// SerialMuxInterface is what the counter needs from a detector feed.
type SerialMuxInterface interface {
	// Subscribe creates a channel receiving the lines read from the port.
	// Lines are skipped while its buffer is full. The id is used to
	// unsubscribe.
	Subscribe() (string, chan string)
	// SubscribeLossless is like Subscribe but never skips a line: reading
	// from the port waits until the subscriber takes it or unsubscribes.
	SubscribeLossless() (string, chan string)
	// Unsubscribe closes and removes a subscriber.
	Unsubscribe(string)
	// SendCommand writes one newline-terminated command to the port.
	SendCommand(string) error
	// Monitor reads lines until the port is exhausted or ctx ends.
	Monitor(context.Context) error
	// Close closes every subscriber and the port.
	Close() error
	// Status returns the merged key/values of the status lines seen so far.
	Status() map[string]any
	// AttachAdminRoutes mounts debugging endpoints under /debug/.
	AttachAdminRoutes(*http.ServeMux)
}

// SerialMux multiplexes one port between many line subscribers.
type SerialMux[T SerialPorter] struct {
	port    T
	hub     *hub
	writeMu sync.Mutex
	status  *StatusTracker
}

// NewSerialMux wraps an open port.
func NewSerialMux[T SerialPorter](port T) *SerialMux[T] {
	return &SerialMux[T]{
		port:   port,
		hub:    newHub(DefaultSubscriberBuffer),
		status: NewStatusTracker(),
	}
}

func (s *SerialMux[T]) Subscribe() (string, chan string) { return s.hub.add(false) }

func (s *SerialMux[T]) SubscribeLossless() (string, chan string) { return s.hub.add(true) }

func (s *SerialMux[T]) Unsubscribe(id string) { s.hub.remove(id) }

// SendCommand writes command to the port, adding the trailing newline the
// detector expects.
func (s *SerialMux[T]) SendCommand(command string) error {
	line := strings.TrimRight(command, "\r\n") + "\n"
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	n, err := s.port.Write([]byte(line))
	if err != nil {
		return err
	}
	if n != len(line) {
		return ErrWriteFailed
	}
	return nil
}

// SendCommands sends each non-blank command to d in order and stops at the
// first failure.
func SendCommands(d SerialMuxInterface, commands ...string) error {
	for _, c := range commands {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		if err := d.SendCommand(c); err != nil {
			return fmt.Errorf("failed to send command %q: %w", c, err)
		}
	}
	return nil
}

// scanLines reads the port on its own goroutine, since Scan blocks and cannot
// observe ctx. The error channel carries at most one read error.
func (s *SerialMux[T]) scanLines(ctx context.Context) (<-chan string, <-chan error) {
	lines := make(chan string)
	errs := make(chan error, 1)
	go func() {
		defer close(lines)
		scan := bufio.NewScanner(s.port)
		scan.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
		for scan.Scan() {
			select {
			case lines <- scan.Text():
			case <-ctx.Done():
				return
			}
		}
		if err := scan.Err(); err != nil {
			errs <- err
		}
	}()
	return lines, errs
}

// Monitor reads lines from the port and publishes them to every subscriber.
// Status lines are also merged into Status. It returns nil when the port is
// exhausted or the mux is closed, and ctx.Err() when ctx ends first.
func (s *SerialMux[T]) Monitor(ctx context.Context) error {
	lines, errs := s.scanLines(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case line, ok := <-lines:
			if s.hub.isClosed() {
				return nil
			}
			if !ok {
				select {
				case err := <-errs:
					return err
				default:
					return nil
				}
			}
			s.handleLine(line)
		}
	}
}

func (s *SerialMux[T]) handleLine(line string) {
	line = strings.TrimRight(line, "\r")
	if line == "" {
		return
	}
	if ClassifyPayload(line) == EventTypeStatus {
		if err := s.status.Merge(line); err != nil {
			monitoring.Logf("serialmux: bad status line: %v", err)
		}
	}
	s.hub.publish(line)
}

// Dropped returns how many line deliveries were skipped because a
// subscriber's buffer was full.
func (s *SerialMux[T]) Dropped() uint64 { return s.hub.dropped.Load() }

func (s *SerialMux[T]) Status() map[string]any { return s.status.Snapshot() }

// Close ends every subscription and closes the port. Later calls are no-ops.
func (s *SerialMux[T]) Close() error {
	if !s.hub.shutdown() {
		return nil
	}
	return s.port.Close()
}

func (s *SerialMux[T]) AttachAdminRoutes(mux *http.ServeMux) {
	attachDetectorRoutes(mux, s, s.hub)
}
