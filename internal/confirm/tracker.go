// Package confirm decides when a tracked object has been seen consistently
// enough to be counted as a single vehicle class.
//
// Every tracker identity gets a sliding window of its most recent per-frame
// class labels. Once the window is full, the tracker is confirmed into the
// window's majority class, but only on a frame whose own label agrees with
// that majority. A tracker is confirmed at most once for the lifetime of a
// Tracker; later observations never change or repeat the confirmation.
//
// A Tracker is not safe for concurrent use. Observations for a tracker id must
// arrive in frame order.
package confirm

import (
	"errors"
	"fmt"
	"sort"

	"github.com/banshee-data/intersection.report/internal/vehicle"
)

// ErrInvalidWindow is returned for a confirmation window shorter than one frame.
var ErrInvalidWindow = errors.New("confirmation window must be at least 1 frame")

// DefaultConfirmationFrames is the window length used when none is configured.
const DefaultConfirmationFrames = 20

// Config holds the confirmation parameters.
type Config struct {
	// ConfirmationFrames is the number of observations a tracker needs before
	// it can be confirmed, and the length of its label window.
	ConfirmationFrames int
	// RetentionFrames, when positive, lets Prune drop the label window of a
	// tracker that has not been observed for more than this many frames.
	// Zero keeps every window for the life of the Tracker.
	RetentionFrames int
}

// DefaultConfig returns the production confirmation parameters.
func DefaultConfig() Config {
	return Config{ConfirmationFrames: DefaultConfirmationFrames}
}

// Confirmation records the single class a tracker id was confirmed into.
type Confirmation struct {
	TrackerID int64
	Class     vehicle.Class
}

type trackState struct {
	window    *Window
	lastFrame int
}

// Tracker holds the label windows and confirmations for one processing run.
type Tracker struct {
	cfg       Config
	tracks    map[int64]*trackState
	confirmed map[int64]vehicle.Class
	order     []int64 // confirmed ids in confirmation order
}

// NewTracker creates a Tracker for one road or video.
func NewTracker(cfg Config) (*Tracker, error) {
	if cfg.ConfirmationFrames < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidWindow, cfg.ConfirmationFrames)
	}
	if cfg.RetentionFrames < 0 {
		return nil, fmt.Errorf("retention frames must be non-negative, got %d", cfg.RetentionFrames)
	}
	return &Tracker{
		cfg:       cfg,
		tracks:    make(map[int64]*trackState),
		confirmed: make(map[int64]vehicle.Class),
	}, nil
}

// Observe records one per-frame label for trackerID. It returns the confirmed
// class and true only on the observation that confirms the tracker; every
// other call returns false. Labels outside the counted classes are ignored.
func (t *Tracker) Observe(trackerID int64, class vehicle.Class) (vehicle.Class, bool) {
	return t.observe(trackerID, class, 0)
}

// ObserveAt is Observe with the frame number of the observation, which Prune
// uses to find trackers that have left the scene.
func (t *Tracker) ObserveAt(frame int, trackerID int64, class vehicle.Class) (vehicle.Class, bool) {
	return t.observe(trackerID, class, frame)
}

func (t *Tracker) observe(trackerID int64, class vehicle.Class, frame int) (vehicle.Class, bool) {
	if !class.Valid() {
		return 0, false
	}

	st, ok := t.tracks[trackerID]
	if !ok {
		st = &trackState{window: NewWindow(t.cfg.ConfirmationFrames)}
		t.tracks[trackerID] = st
	}
	st.window.Push(class)
	st.lastFrame = frame

	if _, done := t.confirmed[trackerID]; done {
		return 0, false
	}
	if !st.window.Full() {
		return 0, false
	}

	majority, ok := st.window.Majority()
	if !ok || majority != class {
		return 0, false
	}

	t.confirmed[trackerID] = class
	t.order = append(t.order, trackerID)
	return class, true
}

// Confirmed returns the class trackerID was confirmed into, if any.
func (t *Tracker) Confirmed(trackerID int64) (vehicle.Class, bool) {
	c, ok := t.confirmed[trackerID]
	return c, ok
}

// Confirmations returns every confirmation in the order it happened.
func (t *Tracker) Confirmations() []Confirmation {
	out := make([]Confirmation, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, Confirmation{TrackerID: id, Class: t.confirmed[id]})
	}
	return out
}

// Window returns the labels currently held for trackerID, oldest first.
func (t *Tracker) Window(trackerID int64) []vehicle.Class {
	st, ok := t.tracks[trackerID]
	if !ok {
		return nil
	}
	return st.window.Labels()
}

// Tracked returns the number of trackers with a live label window.
func (t *Tracker) Tracked() int { return len(t.tracks) }

// Prune drops the label windows of trackers last observed more than
// RetentionFrames before frame and returns the evicted ids in ascending order.
// Confirmations are kept. Prune is a no-op when RetentionFrames is zero.
func (t *Tracker) Prune(frame int) []int64 {
	if t.cfg.RetentionFrames == 0 {
		return nil
	}
	var evicted []int64
	for id, st := range t.tracks {
		if frame-st.lastFrame > t.cfg.RetentionFrames {
			evicted = append(evicted, id)
			delete(t.tracks, id)
		}
	}
	sort.Slice(evicted, func(i, j int) bool { return evicted[i] < evicted[j] })
	return evicted
}
