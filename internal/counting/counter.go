// Package counting drives the confirmation and aggregation stages for one road
// approach and produces the per-road traffic report.
package counting

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/banshee-data/intersection.report/internal/confirm"
	"github.com/banshee-data/intersection.report/internal/monitoring"
	"github.com/banshee-data/intersection.report/internal/road"
	"github.com/banshee-data/intersection.report/internal/vehicle"
)

// DefaultConfidenceThreshold is the confidence a detection must exceed to be
// counted.
const DefaultConfidenceThreshold = 0.35

// Config controls event filtering and confirmation for a road.
type Config struct {
	Confirm             confirm.Config
	ConfidenceThreshold float64
}

// DefaultConfig returns a 20 frame confirmation window and a 0.35 threshold.
func DefaultConfig() Config {
	return Config{
		Confirm:             confirm.DefaultConfig(),
		ConfidenceThreshold: DefaultConfidenceThreshold,
	}
}

// Validate checks the threshold and the confirmation settings.
func (c Config) Validate() error {
	if c.ConfidenceThreshold < 0 || c.ConfidenceThreshold > 1 {
		return fmt.Errorf("confidence_threshold must be between 0 and 1, got %f", c.ConfidenceThreshold)
	}
	if c.Confirm.ConfirmationFrames < 1 {
		return fmt.Errorf("%w: got %d", confirm.ErrInvalidWindow, c.Confirm.ConfirmationFrames)
	}
	if c.Confirm.RetentionFrames < 0 {
		return fmt.Errorf("retention_frames must be non-negative, got %d", c.Confirm.RetentionFrames)
	}
	return nil
}

// Outcome describes what Handle did with an event.
type Outcome int

const (
	// Dropped events were below the confidence threshold or carried a class
	// outside the enumeration.
	Dropped Outcome = iota
	// Observed events were logged and fed to the tracker without confirming.
	Observed
	// Confirmed events caused their tracker to be counted.
	Confirmed
)

func (o Outcome) String() string {
	switch o {
	case Dropped:
		return "dropped"
	case Observed:
		return "observed"
	case Confirmed:
		return "confirmed"
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// Recorder receives every accepted detection, e.g. to persist it.
type Recorder interface {
	RecordDetection(runID, roadName string, ev road.DetectionEvent, confirmed bool) error
}

// Stats are running totals for a Counter.
type Stats struct {
	Events    int `json:"events"`
	Dropped   int `json:"dropped"`
	Confirmed int `json:"confirmed"`
	Pruned    int `json:"pruned"`
}

// Counter owns the tracker and aggregator for one road. Handle may be called
// from a feed goroutine while Snapshot and Report are read from elsewhere.
type Counter struct {
	name  string
	runID string
	cfg   Config

	mu         sync.Mutex
	tracker    *confirm.Tracker
	agg        *road.Aggregator
	detections DetectionData
	recorder   Recorder
	stats      Stats
	lastPrune  int
}

// NewCounter creates a Counter for the named road. Each Counter gets a fresh
// run id.
func NewCounter(name string, roadLength float64, cfg Config) (*Counter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	tracker, err := confirm.NewTracker(cfg.Confirm)
	if err != nil {
		return nil, err
	}
	return &Counter{
		name:    name,
		runID:   uuid.New().String(),
		cfg:     cfg,
		tracker: tracker,
		agg:     road.NewAggregator(roadLength),
	}, nil
}

// SetRecorder attaches a Recorder. Recording failures are logged and do not
// stop counting.
func (c *Counter) SetRecorder(r Recorder) {
	c.mu.Lock()
	c.recorder = r
	c.mu.Unlock()
}

// Name returns the road name.
func (c *Counter) Name() string { return c.name }

// RunID returns the identifier of this counting run.
func (c *Counter) RunID() string { return c.runID }

// Handle processes one detection event in frame order.
func (c *Counter) Handle(ev road.DetectionEvent) Outcome {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stats.Events++
	if ev.Confidence <= c.cfg.ConfidenceThreshold || !ev.Class.Valid() {
		c.stats.Dropped++
		return Dropped
	}

	c.detections.add(ev)

	outcome := Observed
	if class, ok := c.tracker.ObserveAt(ev.Frame, ev.TrackerID, ev.Class); ok {
		if c.agg.Add(ev.TrackerID, class) {
			c.stats.Confirmed++
			monitoring.Logf("counting: %s confirmed tracker %d as %s", c.name, ev.TrackerID, class)
		}
		outcome = Confirmed
	}

	if c.recorder != nil {
		if err := c.recorder.RecordDetection(c.runID, c.name, ev, outcome == Confirmed); err != nil {
			monitoring.Logf("counting: %s failed to record detection: %v", c.name, err)
		}
	}

	if r := c.cfg.Confirm.RetentionFrames; r > 0 && ev.Frame-c.lastPrune >= r {
		c.stats.Pruned += len(c.tracker.Prune(ev.Frame))
		c.lastPrune = ev.Frame
	}
	return outcome
}

// Snapshot returns the road's counts so far.
func (c *Counter) Snapshot() road.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.agg.Finalize()
}

// Stats returns the running totals.
func (c *Counter) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// Report builds the persisted traffic document for the road.
func (c *Counter) Report() TrafficData {
	c.mu.Lock()
	defer c.mu.Unlock()
	snap := c.agg.Finalize()
	return TrafficData{
		TotalVehicles: snap.TotalVehicles,
		VehicleCounts: snap.Counts,
		DetectionData: c.detections.clone(),
	}
}

// DetectionItem is one accepted detection in a report.
type DetectionItem struct {
	TrackerID  int64   `json:"tracker_id"`
	Confidence float64 `json:"confidence"`
	Coords     [4]int  `json:"coords"`
}

// DetectionData holds accepted detections grouped by class.
type DetectionData [vehicle.NumClasses][]DetectionItem

func (d *DetectionData) add(ev road.DetectionEvent) {
	d[ev.Class] = append(d[ev.Class], DetectionItem{
		TrackerID:  ev.TrackerID,
		Confidence: ev.Confidence,
		Coords:     ev.BoundingBox,
	})
}

func (d *DetectionData) clone() DetectionData {
	var out DetectionData
	for i, items := range d {
		out[i] = append([]DetectionItem(nil), items...)
	}
	return out
}

// Len returns the number of detections across all classes.
func (d DetectionData) Len() int {
	n := 0
	for _, items := range d {
		n += len(items)
	}
	return n
}
