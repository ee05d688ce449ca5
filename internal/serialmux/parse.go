package serialmux

import (
	"encoding/json"
	"strings"
)

const (
	EventTypeDetection   = "detection"
	EventTypeEndOfStream = "eos"
	EventTypeStatus      = "status"
	EventTypeUnknown     = "unknown"
)

// ClassifyPayload sorts a detector line by shape only. Detection lines carry
// a tracker_id key (possibly null); {"eos": true} ends a stream; any other
// JSON object is a status report.
func ClassifyPayload(payload string) string {
	p := strings.TrimSpace(payload)
	if !strings.HasPrefix(p, "{") {
		return EventTypeUnknown
	}
	if strings.Contains(p, `"tracker_id"`) {
		return EventTypeDetection
	}
	if strings.Contains(p, `"eos"`) {
		var v struct {
			EOS bool `json:"eos"`
		}
		if json.Unmarshal([]byte(p), &v) == nil && v.EOS {
			return EventTypeEndOfStream
		}
	}
	return EventTypeStatus
}
