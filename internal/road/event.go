package road

import "github.com/banshee-data/intersection.report/internal/vehicle"

// DetectionEvent is one tracked detection on one frame of a road's feed.
type DetectionEvent struct {
	Frame       int
	TrackerID   int64
	Class       vehicle.Class
	Confidence  float64
	BoundingBox [4]int // x1, y1, x2, y2
}
