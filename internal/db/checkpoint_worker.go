package db

import (
	"context"
	"log"
	"time"

	"github.com/banshee-data/intersection.report/internal/timeutil"
	"github.com/banshee-data/intersection.report/internal/vehicle"
)

// RunCounts pairs a live run with its current counts.
type RunCounts struct {
	RunID  string
	Counts vehicle.Counts
}

// CheckpointWorker periodically copies the counts of live runs into
// run_counts so that a crash loses at most one interval of counting.
type CheckpointWorker struct {
	DB       *DB
	Source   func() []RunCounts
	Interval time.Duration
	Clock    timeutil.Clock
	StopChan chan struct{}
	done     chan struct{}
}

// NewCheckpointWorker creates a worker that polls source every interval.
func NewCheckpointWorker(db *DB, source func() []RunCounts, interval time.Duration) *CheckpointWorker {
	return &CheckpointWorker{
		DB:       db,
		Source:   source,
		Interval: interval,
		Clock:    timeutil.RealClock{},
		StopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start runs the periodic loop in a goroutine. The ticker is created before
// Start returns.
func (w *CheckpointWorker) Start() {
	ticker := w.Clock.NewTicker(w.Interval)
	go func() {
		defer close(w.done)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C():
				if err := w.RunOnce(context.Background()); err != nil {
					log.Printf("checkpoint worker run error: %v", err)
				}
			case <-w.StopChan:
				return
			}
		}
	}()
}

// Stop asks the loop to exit and waits for it.
func (w *CheckpointWorker) Stop() {
	close(w.StopChan)
	<-w.done
}

// RunOnce checkpoints every run the source reports.
func (w *CheckpointWorker) RunOnce(ctx context.Context) error {
	for _, rc := range w.Source() {
		if err := w.DB.CheckpointRun(ctx, rc.RunID, rc.Counts); err != nil {
			return err
		}
	}
	return nil
}
