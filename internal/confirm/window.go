package confirm

import "github.com/banshee-data/intersection.report/internal/vehicle"

// Window is a fixed-capacity FIFO of the most recent class labels seen for one
// tracker. Once full, each Push evicts the oldest label.
type Window struct {
	labels []vehicle.Class
	head   int // index of the oldest label once the window is full
	full   bool
}

// NewWindow returns an empty window holding at most capacity labels.
// A capacity below 1 is treated as 1.
func NewWindow(capacity int) *Window {
	if capacity < 1 {
		capacity = 1
	}
	return &Window{labels: make([]vehicle.Class, 0, capacity)}
}

// Cap returns the window capacity.
func (w *Window) Cap() int { return cap(w.labels) }

// Len returns the number of labels currently held. It never exceeds Cap.
func (w *Window) Len() int { return len(w.labels) }

// Full reports whether the window holds Cap labels.
func (w *Window) Full() bool { return w.full }

// Push appends label, evicting the oldest label when the window is full.
func (w *Window) Push(label vehicle.Class) {
	if !w.full {
		w.labels = append(w.labels, label)
		w.full = len(w.labels) == cap(w.labels)
		return
	}
	w.labels[w.head] = label
	w.head = (w.head + 1) % len(w.labels)
}

// Labels returns the held labels oldest first.
func (w *Window) Labels() []vehicle.Class {
	out := make([]vehicle.Class, 0, len(w.labels))
	out = append(out, w.labels[w.head:]...)
	out = append(out, w.labels[:w.head]...)
	return out
}

// Majority returns the most frequent label in the window. When several labels
// share the highest count, the one whose first occurrence is oldest wins.
// ok is false for an empty window.
func (w *Window) Majority() (label vehicle.Class, ok bool) {
	if len(w.labels) == 0 {
		return 0, false
	}

	var counts [vehicle.NumClasses]int
	for _, l := range w.labels {
		if l.Valid() {
			counts[l]++
		}
	}

	best := -1
	n := len(w.labels)
	for i := 0; i < n; i++ {
		l := w.labels[(w.head+i)%n]
		if !l.Valid() {
			continue
		}
		// strict > keeps the earlier first occurrence on ties
		if counts[l] > best {
			best = counts[l]
			label = l
		}
	}
	return label, best > 0
}
