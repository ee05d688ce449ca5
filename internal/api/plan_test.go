package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/banshee-data/intersection.report/internal/db"
	"github.com/banshee-data/intersection.report/internal/road"
	"github.com/banshee-data/intersection.report/internal/signal"
	"github.com/banshee-data/intersection.report/internal/vehicle"
)

var tenToOne = map[string]road.Snapshot{
	"north": {RoadLength: 100, Counts: vehicle.Counts{vehicle.Car: 100}},
	"south": {RoadLength: 100, Counts: vehicle.Counts{vehicle.Car: 8, vehicle.Bus: 2}},
}

var tenToOnePlan = signal.Plan{
	"north": {Green: 55, Yellow: 3, Red: 2},
	"south": {Green: 5, Yellow: 3, Red: 52},
}

func TestPostPlan(t *testing.T) {
	s, _, _ := newTestServer(t)
	body := `{"intersection": {
		"north": {"total_vehicles": 100, "road_length": 100, "vehicle_counts": {"car": 100}},
		"south": {"total_vehicles": 10, "road_length": 100}
	}}`

	w := do(t, s, http.MethodPost, "/api/plan", []byte(body))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	var resp PlanResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad JSON: %v", err)
	}
	if diff := cmp.Diff(tenToOnePlan, resp.Plan); diff != "" {
		t.Errorf("plan mismatch (-want +got):\n%s", diff)
	}
	if len(resp.Warnings) != 0 {
		t.Errorf("unexpected warnings: %v", resp.Warnings)
	}
	if !strings.Contains(w.Body.String(), `"warnings":[]`) {
		t.Errorf("warnings should encode as an empty list: %s", w.Body.String())
	}
}

func TestPostPlan_Warnings(t *testing.T) {
	s, _, _ := newTestServer(t)
	// one busy road takes max green, leaving red at 60-60-3
	body := `{"intersection": {"only": {"total_vehicles": 50, "road_length": 250}}}`
	w := do(t, s, http.MethodPost, "/api/plan", []byte(body))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp PlanResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad JSON: %v", err)
	}
	if resp.Plan["only"].Red != -3 {
		t.Errorf("plan = %+v", resp.Plan)
	}
	if len(resp.Warnings) != 1 || resp.Warnings[0].Kind != signal.WarnNegativeRed {
		t.Errorf("warnings = %+v", resp.Warnings)
	}
}

func TestPostPlan_StructuralErrors(t *testing.T) {
	s, _, _ := newTestServer(t)
	bodies := []string{
		``,
		`[]`,
		`{"roads": {}}`,
		`{"intersection": {}}`,
		`{"intersection": {"north": {"road_length": 100}}}`,
		`{"intersection": {"north": {"total_vehicles": 1}}}`,
		`{"intersection": {"north": {"total_vehicles": 1, "road_length": 1}, "north": {"total_vehicles": 1, "road_length": 1}}}`,
	}
	for _, b := range bodies {
		w := do(t, s, http.MethodPost, "/api/plan", []byte(b))
		if w.Code != http.StatusBadRequest {
			t.Errorf("body %q: status = %d, want 400", b, w.Code)
		}
		if !strings.Contains(w.Body.String(), `"error"`) {
			t.Errorf("body %q: missing error field: %s", b, w.Body.String())
		}
	}
}

func TestPostPlan_TooLarge(t *testing.T) {
	s, _, _ := newTestServer(t)
	big := make([]byte, maxPayloadBytes+10)
	for i := range big {
		big[i] = ' '
	}
	if w := do(t, s, http.MethodPost, "/api/plan", big); w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want 413", w.Code)
	}
}

func TestGetPlan_FromStoredCounts(t *testing.T) {
	s, d, _ := newTestServer(t)
	seedCounts(t, d, "main-and-5th", tenToOne)

	w := do(t, s, http.MethodGet, "/api/plan", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	var rec db.PlanRecord
	if err := json.Unmarshal(w.Body.Bytes(), &rec); err != nil {
		t.Fatalf("bad JSON: %v", err)
	}
	if diff := cmp.Diff(tenToOnePlan, rec.Plan); diff != "" {
		t.Errorf("plan mismatch (-want +got):\n%s", diff)
	}
	if rec.Intersection != "main-and-5th" || rec.ID == "" {
		t.Errorf("unexpected record: %+v", rec)
	}

	stored, err := d.Plans("main-and-5th", 0)
	if err != nil {
		t.Fatalf("Plans failed: %v", err)
	}
	if len(stored) != 1 || stored[0].ID != rec.ID {
		t.Errorf("plan not recorded: %+v", stored)
	}

	w = do(t, s, http.MethodGet, "/api/plans?limit=5", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), rec.ID) {
		t.Errorf("plans list: %d %s", w.Code, w.Body.String())
	}
	if w := do(t, s, http.MethodGet, "/api/plans?limit=zero", nil); w.Code != http.StatusBadRequest {
		t.Errorf("bad limit status = %d", w.Code)
	}
}

func TestGetPlan_UnknownIntersection(t *testing.T) {
	s, _, _ := newTestServer(t)
	w := do(t, s, http.MethodGet, "/api/plan?intersection=nowhere", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
	if w := do(t, s, http.MethodPut, "/api/plan", nil); w.Code != http.StatusMethodNotAllowed {
		t.Errorf("PUT status = %d", w.Code)
	}
}

func TestPlanChart(t *testing.T) {
	s, d, _ := newTestServer(t)
	seedCounts(t, d, "elm", tenToOne)

	w := do(t, s, http.MethodGet, "/api/plan/chart?intersection=elm", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type = %q", ct)
	}
	if !strings.Contains(w.Body.String(), "north") {
		t.Error("chart missing road names")
	}
	// charting does not record a plan
	if plans, _ := d.Plans("elm", 0); len(plans) != 0 {
		t.Errorf("chart recorded %d plans", len(plans))
	}
}

func TestWriteError(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{&signal.StructuralInputError{Msg: "bad"}, http.StatusBadRequest},
		{signal.ErrNoRoads, http.StatusBadRequest},
		{db.ErrNotFound, http.StatusNotFound},
		{errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		writeError(w, tc.err)
		if w.Code != tc.want {
			t.Errorf("writeError(%v) = %d, want %d", tc.err, w.Code, tc.want)
		}
	}
}
