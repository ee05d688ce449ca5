package db

import (
	"context"
	"testing"
	"time"

	"github.com/banshee-data/intersection.report/internal/timeutil"
	"github.com/banshee-data/intersection.report/internal/vehicle"
)

func TestCheckpointWorker_RunOnce(t *testing.T) {
	db := setupTestDB(t)
	seedRun(t, db, "x", "north", "run-1", 250)

	counts := vehicle.Counts{vehicle.Car: 4}
	w := NewCheckpointWorker(db, func() []RunCounts {
		return []RunCounts{{RunID: "run-1", Counts: counts}}
	}, time.Hour)

	if err := w.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce failed: %v", err)
	}
	got, err := db.RunCounts("run-1")
	if err != nil {
		t.Fatalf("RunCounts failed: %v", err)
	}
	if got != counts {
		t.Errorf("RunCounts = %v, want %v", got, counts)
	}

	// checkpointing does not finish the run
	run, _ := db.GetRun("run-1")
	if run.FinishedUnix != nil {
		t.Error("checkpoint should not finish the run")
	}

	counts[vehicle.Bus] = 2
	if err := w.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce failed: %v", err)
	}
	got, _ = db.RunCounts("run-1")
	if got[vehicle.Bus] != 2 || got[vehicle.Car] != 4 {
		t.Errorf("counts not replaced: %v", got)
	}
}

func TestCheckpointWorker_StartStop(t *testing.T) {
	db := setupTestDB(t)
	seedRun(t, db, "x", "north", "run-1", 250)

	calls := make(chan int, 10)
	n := 0
	w := NewCheckpointWorker(db, func() []RunCounts {
		n++
		calls <- n
		return []RunCounts{{RunID: "run-1", Counts: vehicle.Counts{vehicle.Car: n}}}
	}, time.Minute)
	clock := timeutil.NewMockClock(time.Unix(0, 0))
	w.Clock = clock

	w.Start()
	for want := 1; want <= 2; want++ {
		clock.Advance(time.Minute)
		select {
		case got := <-calls:
			if got != want {
				t.Fatalf("tick %d: source call %d", want, got)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("no checkpoint after tick %d", want)
		}
	}
	w.Stop()

	// the source runs before the write, so wait for the loop to exit first
	got, err := db.RunCounts("run-1")
	if err != nil {
		t.Fatalf("RunCounts failed: %v", err)
	}
	if got[vehicle.Car] != 2 {
		t.Errorf("car count = %d, want 2", got[vehicle.Car])
	}
}
