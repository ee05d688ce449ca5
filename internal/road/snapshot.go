package road

import (
	"errors"
	"fmt"
	"sort"

	"github.com/banshee-data/intersection.report/internal/vehicle"
)

// ErrInvalidLength is returned for a road whose length is not positive.
var ErrInvalidLength = errors.New("road length must be positive")

// Snapshot is the finalized count for one road.
type Snapshot struct {
	TotalVehicles int            `json:"total_vehicles"`
	RoadLength    float64        `json:"road_length"`
	Counts        vehicle.Counts `json:"vehicle_counts"`
}

// Validate checks the snapshot invariants.
func (s Snapshot) Validate() error {
	if s.RoadLength <= 0 {
		return fmt.Errorf("%w, got %g", ErrInvalidLength, s.RoadLength)
	}
	if s.TotalVehicles < 0 {
		return fmt.Errorf("total_vehicles must be non-negative, got %d", s.TotalVehicles)
	}
	for _, class := range vehicle.Classes {
		if s.Counts[class] < 0 {
			return fmt.Errorf("vehicle_counts.%s must be non-negative, got %d", class, s.Counts[class])
		}
	}
	return nil
}

// Intersection maps road names to their snapshots.
type Intersection map[string]Snapshot

// Roads returns the road names in ascending order.
func (in Intersection) Roads() []string {
	names := make([]string, 0, len(in))
	for name := range in {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Validate checks that the intersection has at least one road and that every
// road name is non-empty.
func (in Intersection) Validate() error {
	if len(in) == 0 {
		return errors.New("intersection has no roads")
	}
	for name := range in {
		if name == "" {
			return errors.New("intersection has a road with an empty name")
		}
	}
	return nil
}
