package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/banshee-data/intersection.report/internal/road"
	"github.com/banshee-data/intersection.report/internal/vehicle"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// Road is a counted approach of an intersection.
type Road struct {
	Intersection string  `json:"intersection"`
	Name         string  `json:"name"`
	RoadLength   float64 `json:"road_length"`
}

// UpsertRoad creates the road or updates its length.
func (db *DB) UpsertRoad(r Road) error {
	if r.RoadLength <= 0 {
		return fmt.Errorf("road %q: %w", r.Name, road.ErrInvalidLength)
	}
	_, err := db.Exec(`
		INSERT INTO roads (intersection, name, road_length, updated_unix)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (intersection, name) DO UPDATE SET
			road_length = excluded.road_length,
			updated_unix = excluded.updated_unix`,
		r.Intersection, r.Name, r.RoadLength, unixNow())
	return err
}

// Roads lists the roads of an intersection by name.
func (db *DB) Roads(intersection string) ([]Road, error) {
	rows, err := db.Query(`SELECT intersection, name, road_length FROM roads WHERE intersection = ? ORDER BY name`, intersection)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Road
	for rows.Next() {
		var r Road
		if err := rows.Scan(&r.Intersection, &r.Name, &r.RoadLength); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Run is one counting session on one road.
type Run struct {
	ID                  string   `json:"run_id"`
	Intersection        string   `json:"intersection"`
	Road                string   `json:"road"`
	ConfirmationFrame   int      `json:"confirmation_frame"`
	ConfidenceThreshold float64  `json:"confidence_threshold"`
	StartedUnix         float64  `json:"started_unix"`
	FinishedUnix        *float64 `json:"finished_unix,omitempty"`
}

// StartRun records a new run. The road must already exist. A zero
// StartedUnix is set to now.
func (db *DB) StartRun(run *Run) error {
	if run.StartedUnix == 0 {
		run.StartedUnix = unixNow()
	}
	_, err := db.Exec(`
		INSERT INTO runs (run_id, intersection, road, confirmation_frame, confidence_threshold, started_unix)
		VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, run.Intersection, run.Road, run.ConfirmationFrame, run.ConfidenceThreshold, run.StartedUnix)
	if err != nil {
		return fmt.Errorf("failed to start run %s: %w", run.ID, err)
	}
	return nil
}

// GetRun loads a run by id.
func (db *DB) GetRun(id string) (*Run, error) {
	var r Run
	var finished sql.NullFloat64
	err := db.QueryRow(`
		SELECT run_id, intersection, road, confirmation_frame, confidence_threshold, started_unix, finished_unix
		FROM runs WHERE run_id = ?`, id).
		Scan(&r.ID, &r.Intersection, &r.Road, &r.ConfirmationFrame, &r.ConfidenceThreshold, &r.StartedUnix, &finished)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	if finished.Valid {
		r.FinishedUnix = &finished.Float64
	}
	return &r, nil
}

// RecordDetection stores one accepted detection. It satisfies
// counting.Recorder; the road is implied by the run.
func (db *DB) RecordDetection(runID, _ string, ev road.DetectionEvent, confirmed bool) error {
	_, err := db.Exec(`
		INSERT INTO detections (run_id, frame, tracker_id, class, confidence, x1, y1, x2, y2, confirmed)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, ev.Frame, ev.TrackerID, ev.Class.String(), ev.Confidence,
		ev.BoundingBox[0], ev.BoundingBox[1], ev.BoundingBox[2], ev.BoundingBox[3], confirmed)
	return err
}

// DetectionCount returns how many detections a run stored, and how many of
// them confirmed a tracker.
func (db *DB) DetectionCount(runID string) (total, confirmed int, err error) {
	err = db.QueryRow(`SELECT COUNT(*), COALESCE(SUM(confirmed), 0) FROM detections WHERE run_id = ?`, runID).Scan(&total, &confirmed)
	return total, confirmed, err
}

// CheckpointRun replaces the stored counts of a run that is still going.
func (db *DB) CheckpointRun(ctx context.Context, runID string, counts vehicle.Counts) error {
	return db.writeCounts(ctx, runID, counts, false)
}

// FinishRun stores the final counts and marks the run finished, atomically.
func (db *DB) FinishRun(runID string, counts vehicle.Counts) error {
	return db.writeCounts(context.Background(), runID, counts, true)
}

func (db *DB) writeCounts(ctx context.Context, runID string, counts vehicle.Counts, finish bool) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			log.Printf("warning: failed to rollback transaction: %v", err)
		}
	}()

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM runs WHERE run_id = ?`, runID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("run %s: %w", runID, ErrNotFound)
	}
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM run_counts WHERE run_id = ?`, runID); err != nil {
		return fmt.Errorf("failed to clear counts for run %s: %w", runID, err)
	}
	for _, class := range vehicle.Classes {
		if _, err := tx.ExecContext(ctx, `INSERT INTO run_counts (run_id, class, count) VALUES (?, ?, ?)`,
			runID, class.String(), counts[class]); err != nil {
			return fmt.Errorf("failed to write %s count for run %s: %w", class, runID, err)
		}
	}
	if finish {
		if _, err := tx.ExecContext(ctx, `UPDATE runs SET finished_unix = ? WHERE run_id = ?`, unixNow(), runID); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// RunCounts returns the stored counts of a run.
func (db *DB) RunCounts(runID string) (vehicle.Counts, error) {
	var counts vehicle.Counts
	rows, err := db.Query(`SELECT class, count FROM run_counts WHERE run_id = ?`, runID)
	if err != nil {
		return counts, err
	}
	defer rows.Close()
	for rows.Next() {
		var name string
		var n int
		if err := rows.Scan(&name, &n); err != nil {
			return counts, err
		}
		class, err := vehicle.ParseClass(name)
		if err != nil {
			continue
		}
		counts[class] = n
	}
	return counts, rows.Err()
}

// LatestIntersection builds an intersection from the most recently finished
// run of each road. Roads with no finished run have zero counts.
func (db *DB) LatestIntersection(intersection string) (road.Intersection, error) {
	roads, err := db.Roads(intersection)
	if err != nil {
		return nil, err
	}
	if len(roads) == 0 {
		return nil, fmt.Errorf("intersection %q: %w", intersection, ErrNotFound)
	}

	out := make(road.Intersection, len(roads))
	for _, r := range roads {
		snap := road.Snapshot{RoadLength: r.RoadLength}
		var runID string
		err := db.QueryRow(`
			SELECT run_id FROM runs
			WHERE intersection = ? AND road = ? AND finished_unix IS NOT NULL
			ORDER BY finished_unix DESC, started_unix DESC
			LIMIT 1`, intersection, r.Name).Scan(&runID)
		switch {
		case errors.Is(err, sql.ErrNoRows):
		case err != nil:
			return nil, err
		default:
			if snap.Counts, err = db.RunCounts(runID); err != nil {
				return nil, err
			}
		}
		snap.TotalVehicles = snap.Counts.Total()
		out[r.Name] = snap
	}
	return out, nil
}

func unixNow() float64 {
	return float64(time.Now().UnixNano()) / 1e9
}
