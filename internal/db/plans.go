package db

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/banshee-data/intersection.report/internal/signal"
)

// PlanRecord is a stored signal plan with the configuration it was made with.
type PlanRecord struct {
	ID           string           `json:"plan_id"`
	Intersection string           `json:"intersection"`
	CreatedUnix  float64          `json:"created_unix"`
	Config       signal.Config    `json:"config"`
	Plan         signal.Plan      `json:"plan"`
	Warnings     []signal.Warning `json:"warnings"`
}

// RecordPlan stores a plan and returns the stored record.
func (db *DB) RecordPlan(intersection string, cfg signal.Config, plan signal.Plan, warnings []signal.Warning) (*PlanRecord, error) {
	if warnings == nil {
		warnings = []signal.Warning{}
	}
	planJSON, err := json.Marshal(plan)
	if err != nil {
		return nil, fmt.Errorf("failed to encode plan: %w", err)
	}
	warningsJSON, err := json.Marshal(warnings)
	if err != nil {
		return nil, fmt.Errorf("failed to encode warnings: %w", err)
	}

	rec := &PlanRecord{
		ID:           uuid.New().String(),
		Intersection: intersection,
		CreatedUnix:  unixNow(),
		Config:       cfg,
		Plan:         plan,
		Warnings:     warnings,
	}
	_, err = db.Exec(`
		INSERT INTO signal_plans (plan_id, intersection, created_unix, base_green_time, max_green_time,
			yellow_time, total_cycle_time, plan_json, warnings_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, intersection, rec.CreatedUnix, cfg.BaseGreen, cfg.MaxGreen, cfg.Yellow, cfg.TotalCycle,
		string(planJSON), string(warningsJSON))
	if err != nil {
		return nil, fmt.Errorf("failed to record plan: %w", err)
	}
	return rec, nil
}

// Plans returns up to limit plans for an intersection, newest first. A
// non-positive limit returns them all.
func (db *DB) Plans(intersection string, limit int) ([]PlanRecord, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := db.Query(`
		SELECT plan_id, intersection, created_unix, base_green_time, max_green_time, yellow_time,
			total_cycle_time, plan_json, warnings_json
		FROM signal_plans
		WHERE intersection = ?
		ORDER BY created_unix DESC
		LIMIT ?`, intersection, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PlanRecord
	for rows.Next() {
		var (
			rec                    PlanRecord
			planJSON, warningsJSON string
		)
		if err := rows.Scan(&rec.ID, &rec.Intersection, &rec.CreatedUnix,
			&rec.Config.BaseGreen, &rec.Config.MaxGreen, &rec.Config.Yellow, &rec.Config.TotalCycle,
			&planJSON, &warningsJSON); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(planJSON), &rec.Plan); err != nil {
			return nil, fmt.Errorf("plan %s: %w", rec.ID, err)
		}
		if err := json.Unmarshal([]byte(warningsJSON), &rec.Warnings); err != nil {
			return nil, fmt.Errorf("plan %s warnings: %w", rec.ID, err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
