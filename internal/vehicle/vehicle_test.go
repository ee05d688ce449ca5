package vehicle

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClass(t *testing.T) {
	tests := []struct {
		label string
		want  Class
	}{
		{"bicycle", Bicycle},
		{"car", Car},
		{"Bus", Bus},
		{" truck ", Truck},
		{"motorcycle", Motorcycle},
		{"motorbike", Motorcycle},
	}
	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			got, err := ParseClass(tt.label)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseClass("person")
	assert.ErrorIs(t, err, ErrUnknownClass)
}

func TestClassString(t *testing.T) {
	assert.Equal(t, "car", Car.String())
	assert.Equal(t, "motorcycle", Motorcycle.String())
	assert.Equal(t, "class(9)", Class(9).String())
	assert.False(t, Class(NumClasses).Valid())
}

func TestWeightTable(t *testing.T) {
	w := DefaultWeights()
	assert.Equal(t, 0.5, w.Weight(Bicycle))
	assert.Equal(t, 0.5, w.Weight(Motorcycle))
	assert.Equal(t, 1.0, w.Weight(Car))
	assert.Equal(t, 3.0, w.Weight(Bus))
	assert.Equal(t, 3.0, w.Weight(Truck))

	// out-of-enum classes weigh nothing
	assert.Equal(t, 0.0, w.Weight(Class(200)))
}

func TestWeightTableWithOverrides(t *testing.T) {
	w, err := DefaultWeights().WithOverrides(map[string]float64{"bus": 2.5, "motorbike": 0.25})
	require.NoError(t, err)
	assert.Equal(t, 2.5, w.Weight(Bus))
	assert.Equal(t, 0.25, w.Weight(Motorcycle))
	assert.Equal(t, 1.0, w.Weight(Car))

	_, err = DefaultWeights().WithOverrides(map[string]float64{"tram": 4})
	assert.ErrorIs(t, err, ErrUnknownClass)

	_, err = DefaultWeights().WithOverrides(map[string]float64{"car": -1})
	assert.Error(t, err)
}

func TestCountsJSON(t *testing.T) {
	c := Counts{Car: 3, Bus: 1}
	data, err := json.Marshal(c)
	require.NoError(t, err)
	assert.JSONEq(t, `{"bicycle":0,"car":3,"bus":1,"truck":0,"motorcycle":0}`, string(data))

	var back Counts
	require.NoError(t, json.Unmarshal([]byte(`{"car":2,"motorbike":1,"tractor":7}`), &back))
	assert.Equal(t, Counts{Car: 2, Motorcycle: 1}, back)
	assert.Equal(t, 3, back.Total())

	assert.Error(t, json.Unmarshal([]byte(`{"car":-1}`), &back))
}

func TestCountsGet(t *testing.T) {
	c := Counts{Truck: 4}
	assert.Equal(t, 4, c.Get(Truck))
	assert.Equal(t, 0, c.Get(Class(42)))
}

func TestCountsFromNames(t *testing.T) {
	c := CountsFromNames(map[string]int{"car": 5, "truck": 1, "pedestrian": 9})
	assert.Equal(t, Counts{Car: 5, Truck: 1}, c)
}
