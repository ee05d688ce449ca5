package signal

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/intersection.report/internal/road"
	"github.com/banshee-data/intersection.report/internal/vehicle"
)

const samplePayload = `{
  "intersection": {
    "north": {"total_vehicles": 100, "road_length": 200,
              "vehicle_counts": {"car": 90, "truck": 10, "bicycle": 0, "bus": 0, "motorcycle": 0}},
    "south": {"total_vehicles": 10, "road_length": 200,
              "vehicle_counts": {"car": 10, "truck": 0, "bicycle": 0, "bus": 0, "motorcycle": 0}}
  }
}`

func TestParseIntersection(t *testing.T) {
	in, err := ParseIntersection([]byte(samplePayload))
	require.NoError(t, err)

	want := road.Intersection{
		"north": {TotalVehicles: 100, RoadLength: 200, Counts: vehicle.Counts{vehicle.Car: 90, vehicle.Truck: 10}},
		"south": {TotalVehicles: 10, RoadLength: 200, Counts: vehicle.Counts{vehicle.Car: 10}},
	}
	if diff := cmp.Diff(want, in); diff != "" {
		t.Errorf("intersection mismatch (-want +got):\n%s", diff)
	}
}

func TestAllocateIntersection(t *testing.T) {
	plan, warnings, err := AllocateIntersection([]byte(samplePayload), DefaultConfig())
	require.NoError(t, err)
	assert.Empty(t, warnings)

	want := Plan{
		"north": {Green: 55, Yellow: 3, Red: 2},
		"south": {Green: 5, Yellow: 3, Red: 52},
	}
	if diff := cmp.Diff(want, plan); diff != "" {
		t.Errorf("plan mismatch (-want +got):\n%s", diff)
	}
}

func TestParseIntersection_StructuralErrors(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		field   string
		road    string
	}{
		{"not an object", `[1,2]`, "", ""},
		{"missing intersection", `{"roads": {}}`, "intersection", ""},
		{"intersection not an object", `{"intersection": []}`, "intersection", ""},
		{"no roads", `{"intersection": {}}`, "intersection", ""},
		{"empty road name", `{"intersection": {"": {"total_vehicles": 1, "road_length": 1}}}`, "intersection", ""},
		{"duplicate road", `{"intersection": {"a": {"total_vehicles": 1, "road_length": 1}, "a": {"total_vehicles": 2, "road_length": 1}}}`, "intersection", "a"},
		{"missing total", `{"intersection": {"a": {"road_length": 100}}}`, "total_vehicles", "a"},
		{"missing length", `{"intersection": {"a": {"total_vehicles": 3}}}`, "road_length", "a"},
		{"negative total", `{"intersection": {"a": {"total_vehicles": -3, "road_length": 1}}}`, "total_vehicles", "a"},
		{"negative count", `{"intersection": {"a": {"total_vehicles": 3, "road_length": 1, "vehicle_counts": {"car": -1}}}}`, "", "a"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseIntersection([]byte(tt.payload))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrStructural)

			var se *StructuralInputError
			require.True(t, errors.As(err, &se))
			assert.Equal(t, tt.field, se.Field)
			assert.Equal(t, tt.road, se.Road)
		})
	}
}

func TestAllocateIntersection_OneBadRoadAbortsAll(t *testing.T) {
	payload := `{"intersection": {
		"good": {"total_vehicles": 10, "road_length": 100},
		"bad":  {"road_length": 100}
	}}`
	plan, _, err := AllocateIntersection([]byte(payload), DefaultConfig())
	assert.ErrorIs(t, err, ErrStructural)
	assert.Nil(t, plan)
}

func TestAllocateIntersection_ZeroLengthFallsBackToZeroDensity(t *testing.T) {
	payload := `{"intersection": {
		"a": {"total_vehicles": 10, "road_length": 0},
		"b": {"total_vehicles": 0, "road_length": 100}
	}}`
	plan, _, err := AllocateIntersection([]byte(payload), DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, 5, plan["a"].Green)
	assert.Equal(t, 5, plan["b"].Green)
}

func TestStructuralInputError_Message(t *testing.T) {
	assert.Equal(t, `road "a": total_vehicles: field missing`,
		(&StructuralInputError{Road: "a", Field: "total_vehicles", Msg: "field missing"}).Error())
	assert.Equal(t, "intersection: key missing",
		(&StructuralInputError{Field: "intersection", Msg: "key missing"}).Error())
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())
	assert.Error(t, Config{BaseGreen: -1, MaxGreen: 10, TotalCycle: 60}.Validate())
	assert.Error(t, Config{BaseGreen: 11, MaxGreen: 10, TotalCycle: 60}.Validate())
	assert.Error(t, Config{BaseGreen: 1, MaxGreen: 10, TotalCycle: 0}.Validate())
}
