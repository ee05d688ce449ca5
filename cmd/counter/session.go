package main

import (
	"context"
	"fmt"
	"log"

	"github.com/banshee-data/intersection.report/internal/config"
	"github.com/banshee-data/intersection.report/internal/counting"
	"github.com/banshee-data/intersection.report/internal/db"
	"github.com/banshee-data/intersection.report/internal/fsutil"
)

// session is one counting run over every configured road, with its runs
// persisted to the database.
type session struct {
	cfg      *config.Config
	db       *db.DB
	pipeline *counting.Pipeline
}

// newSession builds the pipeline, registers the roads and opens one run per
// road. Accepted detections are recorded to database as they arrive.
func newSession(cfg *config.Config, database *db.DB) (*session, error) {
	specs, err := cfg.RoadSpecs()
	if err != nil {
		return nil, err
	}
	detection := cfg.DetectionConfig()
	pipeline, err := counting.NewPipeline(cfg.GetIntersection(), specs, detection)
	if err != nil {
		return nil, err
	}

	for _, rs := range specs {
		if err := database.UpsertRoad(db.Road{
			Intersection: pipeline.Intersection(),
			Name:         rs.Name,
			RoadLength:   rs.Length,
		}); err != nil {
			return nil, fmt.Errorf("failed to register road %q: %w", rs.Name, err)
		}
		c, _ := pipeline.Counter(rs.Name)
		if err := database.StartRun(&db.Run{
			ID:                  c.RunID(),
			Intersection:        pipeline.Intersection(),
			Road:                rs.Name,
			ConfirmationFrame:   detection.Confirm.ConfirmationFrames,
			ConfidenceThreshold: detection.ConfidenceThreshold,
		}); err != nil {
			return nil, err
		}
		log.Printf("road %s: run %s started (length %.1fm)", rs.Name, c.RunID(), rs.Length)
	}
	pipeline.SetRecorder(database)

	return &session{cfg: cfg, db: database, pipeline: pipeline}, nil
}

// liveCounts reports the current counts of every run, for the checkpoint
// worker.
func (s *session) liveCounts() []db.RunCounts {
	out := make([]db.RunCounts, 0, len(s.pipeline.Roads()))
	for _, name := range s.pipeline.Roads() {
		c, _ := s.pipeline.Counter(name)
		out = append(out, db.RunCounts{RunID: c.RunID(), Counts: c.Snapshot().Counts})
	}
	return out
}

// ingest counts lines until the feed closes or ctx ends.
func (s *session) ingest(ctx context.Context, lines <-chan string) error {
	return s.pipeline.Run(ctx, lines)
}

// finish closes every run with its final counts and writes one report per
// road to outputDir. It returns the report paths.
func (s *session) finish(fsys fsutil.FileSystem, outputDir string) ([]string, error) {
	for _, name := range s.pipeline.Roads() {
		c, _ := s.pipeline.Counter(name)
		snap := c.Snapshot()
		if err := s.db.FinishRun(c.RunID(), snap.Counts); err != nil {
			return nil, fmt.Errorf("road %q: %w", name, err)
		}
		stats := c.Stats()
		log.Printf("road %s: %d vehicles confirmed from %d events (%d dropped)",
			name, snap.TotalVehicles, stats.Events, stats.Dropped)
	}
	paths, err := s.pipeline.WriteReports(fsys, outputDir)
	if err != nil {
		return paths, err
	}
	for _, p := range paths {
		log.Printf("wrote report %s", p)
	}
	return paths, nil
}
