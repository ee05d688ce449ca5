package api

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/banshee-data/intersection.report/internal/charts"
	"github.com/banshee-data/intersection.report/internal/signal"
)

// PlanResponse is returned for an allocation made from a POSTed payload.
type PlanResponse struct {
	Plan     signal.Plan      `json:"plan"`
	Warnings []signal.Warning `json:"warnings"`
}

func (s *Server) handlePlan(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.allocatePayload(w, r)
	case http.MethodGet:
		s.allocateStored(w, r)
	default:
		methodNotAllowed(w)
	}
}

// allocatePayload plans the intersection in the request body. Nothing is
// stored.
func (s *Server) allocatePayload(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxPayloadBytes+1))
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("failed to read body: %v", err))
		return
	}
	if len(body) > maxPayloadBytes {
		writeJSONError(w, http.StatusRequestEntityTooLarge, "payload too large")
		return
	}
	plan, warnings, err := signal.AllocateIntersection(body, s.signal)
	if err != nil {
		writeError(w, err)
		return
	}
	signal.LogWarnings(warnings)
	if warnings == nil {
		warnings = []signal.Warning{}
	}
	writeJSON(w, http.StatusOK, PlanResponse{Plan: plan, Warnings: warnings})
}

func (s *Server) intersectionParam(r *http.Request) string {
	if v := r.URL.Query().Get("intersection"); v != "" {
		return v
	}
	return s.intersection
}

// storedPlan allocates from the latest finished counts of an intersection.
func (s *Server) storedPlan(intersection string) (signal.Plan, []signal.Warning, error) {
	in, err := s.db.LatestIntersection(intersection)
	if err != nil {
		return nil, nil, err
	}
	return signal.AllocateSnapshots(in, s.signal)
}

// allocateStored plans from stored counts and records the plan.
func (s *Server) allocateStored(w http.ResponseWriter, r *http.Request) {
	if s.db == nil {
		writeJSONError(w, http.StatusServiceUnavailable, "no database configured")
		return
	}
	intersection := s.intersectionParam(r)
	plan, warnings, err := s.storedPlan(intersection)
	if err != nil {
		writeError(w, err)
		return
	}
	signal.LogWarnings(warnings)
	rec, err := s.db.RecordPlan(intersection, s.signal, plan, warnings)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) listPlans(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	if s.db == nil {
		writeJSONError(w, http.StatusServiceUnavailable, "no database configured")
		return
	}
	limit := 20
	if l := r.URL.Query().Get("limit"); l != "" {
		v, err := strconv.Atoi(l)
		if err != nil || v < 1 {
			writeJSONError(w, http.StatusBadRequest, "Invalid 'limit' parameter")
			return
		}
		limit = v
	}
	plans, err := s.db.Plans(s.intersectionParam(r), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, plans)
}

// showPlanChart renders the plan for the stored counts without recording it.
func (s *Server) showPlanChart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	if s.db == nil {
		writeJSONError(w, http.StatusServiceUnavailable, "no database configured")
		return
	}
	intersection := s.intersectionParam(r)
	plan, warnings, err := s.storedPlan(intersection)
	if err != nil {
		writeError(w, err)
		return
	}

	var buf bytes.Buffer
	err = charts.RenderPlan(&buf, plan, charts.PlanOptions{
		Title:    "Signal plan: " + intersection,
		Warnings: warnings,
	})
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("render error: %v", err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}
