package charts

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/intersection.report/internal/signal"
)

func TestRenderPlan(t *testing.T) {
	plan := signal.Plan{
		"north": {Green: 55, Yellow: 3, Red: 2},
		"south": {Green: 5, Yellow: 3, Red: 52},
	}
	var buf bytes.Buffer
	require.NoError(t, RenderPlan(&buf, plan, PlanOptions{Title: "Main & 3rd"}))

	out := buf.String()
	assert.Contains(t, out, "echarts")
	assert.Contains(t, out, "north")
	assert.Contains(t, out, "south")
	assert.Contains(t, out, "Green")
	assert.Contains(t, out, "2 roads, 60s cycle")
}

func TestPlanChart_Series(t *testing.T) {
	plan := signal.Plan{"b": {Green: 10, Yellow: 3, Red: 47}, "a": {Green: 20, Yellow: 3, Red: 37}}
	bar := PlanChart(plan, PlanOptions{})

	require.Len(t, bar.MultiSeries, 3)
	assert.Equal(t, "Green", bar.MultiSeries[0].Name)
	assert.Equal(t, "Red", bar.MultiSeries[2].Name)
}

func TestSubtitleIncludesWarnings(t *testing.T) {
	plan := signal.Plan{"only": {Green: 60, Yellow: 3, Red: -3}}
	ws := []signal.Warning{{Kind: signal.WarnNegativeRed, Road: "only", Message: "red time is negative"}}
	s := subtitle(plan, ws)
	assert.True(t, strings.HasPrefix(s, "1 roads, 60s cycle"))
	assert.Contains(t, s, "negative_red")
}
