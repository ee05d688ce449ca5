package serialmux

import (
	crand "crypto/rand"
	"encoding/hex"
	"sync"
	"sync/atomic"

	"github.com/banshee-data/intersection.report/internal/monitoring"
)

// subscriber is one registered channel. A lossless subscriber is never
// skipped: publish waits for it, which holds back the port reader.
type subscriber struct {
	ch       chan string
	lossless bool
	gone     chan struct{}
}

// hub is the subscriber registry shared by SerialMux and DisabledSerialMux.
// Once shut down it hands out closed channels.
//
// mu guards the registry. sendMu is held for a whole publish and while
// subscriber channels are closed, so a channel is never closed under a
// pending send.
type hub struct {
	buffer int

	mu     sync.Mutex
	subs   map[string]*subscriber
	closed bool
	done   chan struct{}

	sendMu  sync.Mutex
	dropped atomic.Uint64
}

func newHub(buffer int) *hub {
	return &hub{
		buffer: buffer,
		subs:   make(map[string]*subscriber),
		done:   make(chan struct{}),
	}
}

func newSubscriberID() string {
	b := make([]byte, 8)
	crand.Read(b)
	return hex.EncodeToString(b)
}

func (h *hub) add(lossless bool) (string, chan string) {
	id := newSubscriberID()
	sub := &subscriber{
		ch:       make(chan string, h.buffer),
		lossless: lossless,
		gone:     make(chan struct{}),
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(sub.ch)
		return id, sub.ch
	}
	h.subs[id] = sub
	return id, sub.ch
}

// remove unregisters id. A publish blocked on it is released first.
func (h *hub) remove(id string) {
	h.mu.Lock()
	sub, ok := h.subs[id]
	delete(h.subs, id)
	h.mu.Unlock()
	if !ok {
		return
	}
	close(sub.gone)

	h.sendMu.Lock()
	close(sub.ch)
	h.sendMu.Unlock()
}

func (h *hub) snapshot() []*subscriber {
	h.mu.Lock()
	defer h.mu.Unlock()
	subs := make([]*subscriber, 0, len(h.subs))
	for _, sub := range h.subs {
		subs = append(subs, sub)
	}
	return subs
}

// publish hands line to every subscriber. Lossy subscribers whose buffer is
// full miss the line; lossless ones are waited on until they take it, leave,
// or the hub shuts down.
func (h *hub) publish(line string) {
	h.sendMu.Lock()
	defer h.sendMu.Unlock()
	for _, sub := range h.snapshot() {
		if sub.lossless {
			select {
			case sub.ch <- line:
			case <-sub.gone:
			case <-h.done:
			}
			continue
		}
		select {
		case sub.ch <- line:
		default:
			if n := h.dropped.Add(1); n == 1 || n%1000 == 0 {
				monitoring.Logf("serialmux: subscriber lagging, %d lines dropped so far", n)
			}
		}
	}
}

func (h *hub) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

func (h *hub) isClosed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closed
}

// shutdown closes every subscriber. It reports false if the hub was already
// shut down.
func (h *hub) shutdown() bool {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return false
	}
	h.closed = true
	close(h.done)
	subs := h.subs
	h.subs = make(map[string]*subscriber)
	h.mu.Unlock()

	h.sendMu.Lock()
	defer h.sendMu.Unlock()
	for _, sub := range subs {
		close(sub.gone)
		close(sub.ch)
	}
	return true
}
