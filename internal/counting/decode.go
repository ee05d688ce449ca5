package counting

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/banshee-data/intersection.report/internal/road"
	"github.com/banshee-data/intersection.report/internal/vehicle"
)

// ErrUntracked is returned for detections that carry no tracker id. They are
// skipped rather than counted.
var ErrUntracked = errors.New("detection has no tracker id")

// eventLine is the wire form of one detection:
//
//	{"road":"north","frame":12,"tracker_id":7,"class":"car","confidence":0.81,"coords":[10,20,110,95]}
//
// road may be omitted when the feed carries a single road.
type eventLine struct {
	Road       string   `json:"road,omitempty"`
	Frame      int      `json:"frame"`
	TrackerID  *int64   `json:"tracker_id"`
	Class      string   `json:"class"`
	Confidence *float64 `json:"confidence"`
	Coords     []int    `json:"coords"`
}

// DecodeEvent parses one JSON detection line. It returns the road name from
// the line (possibly empty) and the event. Labels outside the counted classes
// yield an error wrapping vehicle.ErrUnknownClass.
func DecodeEvent(line string) (string, road.DetectionEvent, error) {
	var ev road.DetectionEvent
	var raw eventLine
	if err := json.Unmarshal([]byte(strings.TrimSpace(line)), &raw); err != nil {
		return "", ev, fmt.Errorf("failed to parse detection line: %w", err)
	}
	if raw.TrackerID == nil {
		return raw.Road, ev, ErrUntracked
	}
	if raw.Confidence == nil {
		return raw.Road, ev, errors.New("detection line missing confidence")
	}
	if *raw.Confidence < 0 || *raw.Confidence > 1 {
		return raw.Road, ev, fmt.Errorf("confidence must be between 0 and 1, got %f", *raw.Confidence)
	}
	if len(raw.Coords) != 4 {
		return raw.Road, ev, fmt.Errorf("coords must have 4 values, got %d", len(raw.Coords))
	}
	class, err := vehicle.ParseClass(raw.Class)
	if err != nil {
		return raw.Road, ev, err
	}

	ev = road.DetectionEvent{
		Frame:      raw.Frame,
		TrackerID:  *raw.TrackerID,
		Class:      class,
		Confidence: *raw.Confidence,
	}
	copy(ev.BoundingBox[:], raw.Coords)
	return raw.Road, ev, nil
}

// EncodeEvent is the inverse of DecodeEvent, used by replay tooling and tests.
func EncodeEvent(roadName string, ev road.DetectionEvent) string {
	id := ev.TrackerID
	conf := ev.Confidence
	data, _ := json.Marshal(eventLine{
		Road:       roadName,
		Frame:      ev.Frame,
		TrackerID:  &id,
		Class:      ev.Class.String(),
		Confidence: &conf,
		Coords:     ev.BoundingBox[:],
	})
	return string(data)
}
