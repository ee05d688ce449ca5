package counting

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/intersection.report/internal/road"
	"github.com/banshee-data/intersection.report/internal/vehicle"
)

func TestDecodeEvent(t *testing.T) {
	name, ev, err := DecodeEvent(`{"road":"north","frame":12,"tracker_id":7,"class":"Motorbike","confidence":0.81,"coords":[10,20,110,95]}` + "\n")
	require.NoError(t, err)
	assert.Equal(t, "north", name)
	assert.Equal(t, road.DetectionEvent{
		Frame:       12,
		TrackerID:   7,
		Class:       vehicle.Motorcycle,
		Confidence:  0.81,
		BoundingBox: [4]int{10, 20, 110, 95},
	}, ev)
}

func TestDecodeEvent_Errors(t *testing.T) {
	tests := []struct {
		name string
		line string
		is   error
	}{
		{"not json", `frame=1`, nil},
		{"untracked", `{"frame":1,"class":"car","confidence":0.9,"coords":[0,0,1,1]}`, ErrUntracked},
		{"unknown label", `{"frame":1,"tracker_id":1,"class":"person","confidence":0.9,"coords":[0,0,1,1]}`, vehicle.ErrUnknownClass},
		{"missing confidence", `{"frame":1,"tracker_id":1,"class":"car","coords":[0,0,1,1]}`, nil},
		{"confidence out of range", `{"frame":1,"tracker_id":1,"class":"car","confidence":1.2,"coords":[0,0,1,1]}`, nil},
		{"short coords", `{"frame":1,"tracker_id":1,"class":"car","confidence":0.5,"coords":[0,0,1]}`, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := DecodeEvent(tt.line)
			require.Error(t, err)
			if tt.is != nil {
				assert.ErrorIs(t, err, tt.is)
			}
		})
	}
}

func TestEncodeEvent_DecodesBack(t *testing.T) {
	ev := road.DetectionEvent{Frame: 3, TrackerID: 44, Class: vehicle.Bus, Confidence: 0.5, BoundingBox: [4]int{1, 2, 3, 4}}
	name, got, err := DecodeEvent(EncodeEvent("west", ev))
	require.NoError(t, err)
	assert.Equal(t, "west", name)
	assert.Equal(t, ev, got)

	assert.NotContains(t, EncodeEvent("", ev), `"road"`)
}
