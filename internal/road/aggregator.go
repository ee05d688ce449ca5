// Package road turns the confirmations observed on one road approach into a
// final per-class vehicle count.
package road

import (
	"sort"

	"github.com/banshee-data/intersection.report/internal/vehicle"
)

// Aggregator collects confirmed tracker ids for a single road over a whole
// observation period. Insertion is idempotent: a tracker id is counted once,
// in the first class it was reported under, no matter how many times it is
// reported again.
//
// An Aggregator is owned by the goroutine driving its road and is not safe for
// concurrent use.
type Aggregator struct {
	roadLength float64
	byClass    [vehicle.NumClasses]map[int64]struct{}
	classOf    map[int64]vehicle.Class
}

// NewAggregator creates an Aggregator for a road of the given length in metres.
func NewAggregator(roadLength float64) *Aggregator {
	a := &Aggregator{
		roadLength: roadLength,
		classOf:    make(map[int64]vehicle.Class),
	}
	for i := range a.byClass {
		a.byClass[i] = make(map[int64]struct{})
	}
	return a
}

// Add records a confirmed vehicle. It returns true when trackerID was not
// already counted. Out-of-enum classes are ignored.
func (a *Aggregator) Add(trackerID int64, class vehicle.Class) bool {
	if !class.Valid() {
		return false
	}
	if _, seen := a.classOf[trackerID]; seen {
		return false
	}
	a.classOf[trackerID] = class
	a.byClass[class][trackerID] = struct{}{}
	return true
}

// Counts returns the number of distinct confirmed ids per class.
func (a *Aggregator) Counts() vehicle.Counts {
	var c vehicle.Counts
	for i, set := range a.byClass {
		c[i] = len(set)
	}
	return c
}

// IDs returns the confirmed tracker ids of class in ascending order.
func (a *Aggregator) IDs(class vehicle.Class) []int64 {
	if !class.Valid() {
		return nil
	}
	ids := make([]int64, 0, len(a.byClass[class]))
	for id := range a.byClass[class] {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Finalize returns the road snapshot. The total is always derived from the
// per-class sets rather than tracked separately.
func (a *Aggregator) Finalize() Snapshot {
	counts := a.Counts()
	return Snapshot{
		RoadLength:    a.roadLength,
		Counts:        counts,
		TotalVehicles: counts.Total(),
	}
}
