// Package density converts road snapshots into traffic densities.
package density

import (
	"github.com/banshee-data/intersection.report/internal/road"
	"github.com/banshee-data/intersection.report/internal/vehicle"
)

// Density returns vehicles per metre of road. A non-positive length yields 0.
func Density(total, length float64) float64 {
	if length > 0 {
		return total / length
	}
	return 0
}

// EffectiveVehicles weights each class count by the table.
func EffectiveVehicles(counts vehicle.Counts, table vehicle.WeightTable) float64 {
	sum := 0.0
	for _, class := range vehicle.Classes {
		sum += float64(counts[class]) * table.Weight(class)
	}
	return sum
}

// Road returns the density of one road snapshot from its raw total, which is
// what the signal allocator consumes.
func Road(s road.Snapshot) float64 {
	return Density(float64(s.TotalVehicles), s.RoadLength)
}

// Weighted returns the effective-vehicle density of a road snapshot.
func Weighted(s road.Snapshot, table vehicle.WeightTable) float64 {
	return Density(EffectiveVehicles(s.Counts, table), s.RoadLength)
}

// Intersection returns the raw density of every road.
func Intersection(in road.Intersection) map[string]float64 {
	out := make(map[string]float64, len(in))
	for name, s := range in {
		out[name] = Road(s)
	}
	return out
}
