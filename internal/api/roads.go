package api

import (
	"net/http"

	"github.com/banshee-data/intersection.report/internal/counting"
	"github.com/banshee-data/intersection.report/internal/density"
	"github.com/banshee-data/intersection.report/internal/road"
)

// RoadCounts is the live state of one road's counter. Density is what the
// allocator uses; the weighted figures count buses and trucks as several
// cars.
type RoadCounts struct {
	Intersection      string         `json:"intersection"`
	Road              string         `json:"road"`
	RunID             string         `json:"run_id"`
	Snapshot          road.Snapshot  `json:"snapshot"`
	Stats             counting.Stats `json:"stats"`
	Density           float64        `json:"density"`
	EffectiveVehicles float64        `json:"effective_vehicles"`
	WeightedDensity   float64        `json:"weighted_density"`
}

func (s *Server) roadCounts(name string) (RoadCounts, bool) {
	c, ok := s.pipeline.Counter(name)
	if !ok {
		return RoadCounts{}, false
	}
	snap := c.Snapshot()
	return RoadCounts{
		Intersection:      s.pipeline.Intersection(),
		Road:              name,
		RunID:             c.RunID(),
		Snapshot:          snap,
		Stats:             c.Stats(),
		Density:           density.Road(snap),
		EffectiveVehicles: density.EffectiveVehicles(snap.Counts, s.weights),
		WeightedDensity:   density.Weighted(snap, s.weights),
	}, true
}

func (s *Server) listRoads(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	if s.pipeline == nil {
		writeJSONError(w, http.StatusServiceUnavailable, "no counting pipeline running")
		return
	}
	out := make([]RoadCounts, 0, len(s.pipeline.Roads()))
	for _, name := range s.pipeline.Roads() {
		rc, _ := s.roadCounts(name)
		out = append(out, rc)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) showRoadCounts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	if s.pipeline == nil {
		writeJSONError(w, http.StatusServiceUnavailable, "no counting pipeline running")
		return
	}
	rc, ok := s.roadCounts(r.PathValue("road"))
	if !ok {
		writeJSONError(w, http.StatusNotFound, "unknown road")
		return
	}
	writeJSON(w, http.StatusOK, rc)
}
