package signal

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/banshee-data/intersection.report/internal/density"
	"github.com/banshee-data/intersection.report/internal/road"
	"github.com/banshee-data/intersection.report/internal/vehicle"
)

// roadPayload uses pointers so that absent fields can be told apart from zeros.
type roadPayload struct {
	TotalVehicles *int            `json:"total_vehicles"`
	RoadLength    *float64        `json:"road_length"`
	VehicleCounts *vehicle.Counts `json:"vehicle_counts"`
}

// ParseIntersection decodes an intersection payload of the form
//
//	{"intersection": {"<road>": {"total_vehicles": n, "road_length": m, "vehicle_counts": {...}}}}
//
// Any shape problem yields a *StructuralInputError and no partial result.
// A non-positive road_length is accepted; it allocates as zero density.
func ParseIntersection(data []byte) (road.Intersection, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, &StructuralInputError{Msg: fmt.Sprintf("payload is not a JSON object: %v", err)}
	}
	raw, ok := top["intersection"]
	if !ok {
		return nil, &StructuralInputError{Field: "intersection", Msg: "key missing"}
	}

	names, roads, err := decodeRoads(raw)
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return nil, &StructuralInputError{Field: "intersection", Msg: "no roads"}
	}

	out := make(road.Intersection, len(names))
	for i, name := range names {
		if name == "" {
			return nil, &StructuralInputError{Field: "intersection", Msg: "empty road name"}
		}
		if _, dup := out[name]; dup {
			return nil, &StructuralInputError{Road: name, Field: "intersection", Msg: "duplicate road name"}
		}
		snap, err := roadSnapshot(name, roads[i])
		if err != nil {
			return nil, err
		}
		out[name] = snap
	}
	return out, nil
}

// decodeRoads walks the intersection object token by token so that duplicate
// keys are seen rather than silently merged.
func decodeRoads(raw json.RawMessage) ([]string, []json.RawMessage, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, nil, &StructuralInputError{Field: "intersection", Msg: err.Error()}
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, nil, &StructuralInputError{Field: "intersection", Msg: "must be an object of roads"}
	}

	var (
		names []string
		roads []json.RawMessage
	)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, nil, &StructuralInputError{Field: "intersection", Msg: err.Error()}
		}
		name, _ := tok.(string)
		var body json.RawMessage
		if err := dec.Decode(&body); err != nil {
			return nil, nil, &StructuralInputError{Road: name, Field: "intersection", Msg: err.Error()}
		}
		names = append(names, name)
		roads = append(roads, body)
	}
	return names, roads, nil
}

func roadSnapshot(name string, raw json.RawMessage) (road.Snapshot, error) {
	var rp roadPayload
	if err := json.Unmarshal(raw, &rp); err != nil {
		return road.Snapshot{}, &StructuralInputError{Road: name, Msg: err.Error()}
	}
	if rp.TotalVehicles == nil {
		return road.Snapshot{}, &StructuralInputError{Road: name, Field: "total_vehicles", Msg: "field missing"}
	}
	if *rp.TotalVehicles < 0 {
		return road.Snapshot{}, &StructuralInputError{Road: name, Field: "total_vehicles", Msg: "must be non-negative"}
	}
	if rp.RoadLength == nil {
		return road.Snapshot{}, &StructuralInputError{Road: name, Field: "road_length", Msg: "field missing"}
	}
	snap := road.Snapshot{
		TotalVehicles: *rp.TotalVehicles,
		RoadLength:    *rp.RoadLength,
	}
	if rp.VehicleCounts != nil {
		snap.Counts = *rp.VehicleCounts
	}
	return snap, nil
}

// AllocateIntersection parses payload and allocates a plan from each road's
// total_vehicles / road_length density.
func AllocateIntersection(payload []byte, cfg Config) (Plan, []Warning, error) {
	in, err := ParseIntersection(payload)
	if err != nil {
		return nil, nil, err
	}
	return AllocateSnapshots(in, cfg)
}

// AllocateSnapshots allocates a plan for an already decoded intersection.
func AllocateSnapshots(in road.Intersection, cfg Config) (Plan, []Warning, error) {
	if len(in) == 0 {
		return nil, nil, ErrNoRoads
	}
	return Allocate(density.Intersection(in), cfg)
}
