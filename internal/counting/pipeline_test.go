package counting

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/intersection.report/internal/fsutil"
	"github.com/banshee-data/intersection.report/internal/road"
	"github.com/banshee-data/intersection.report/internal/vehicle"
)

func newPipeline(t *testing.T) *Pipeline {
	t.Helper()
	p, err := NewPipeline("main-and-5th", []RoadSpec{
		{Name: "south", Length: 200},
		{Name: "north", Length: 250},
	}, testConfig(2))
	require.NoError(t, err)
	return p
}

func line(roadName string, frame int, id int64, class vehicle.Class) string {
	return EncodeEvent(roadName, road.DetectionEvent{Frame: frame, TrackerID: id, Class: class, Confidence: 0.9})
}

func TestNewPipeline_Validation(t *testing.T) {
	_, err := NewPipeline("x", nil, testConfig(2))
	assert.Error(t, err)

	_, err = NewPipeline("x", []RoadSpec{{Name: "", Length: 1}}, testConfig(2))
	assert.Error(t, err)

	_, err = NewPipeline("x", []RoadSpec{{Name: "a", Length: 1}, {Name: "a", Length: 2}}, testConfig(2))
	assert.Error(t, err)

	_, err = NewPipeline("x", []RoadSpec{{Name: "a", Length: 0}}, testConfig(2))
	assert.ErrorIs(t, err, road.ErrInvalidLength)

	p := newPipeline(t)
	assert.Equal(t, []string{"north", "south"}, p.Roads())
	assert.Equal(t, "main-and-5th", p.Intersection())
}

func TestPipeline_Dispatch(t *testing.T) {
	p := newPipeline(t)

	out, err := p.Dispatch(line("north", 1, 1, vehicle.Car))
	require.NoError(t, err)
	assert.Equal(t, Observed, out)
	out, err = p.Dispatch(line("north", 2, 1, vehicle.Car))
	require.NoError(t, err)
	assert.Equal(t, Confirmed, out)

	// skipped without error
	out, err = p.Dispatch(`{"road":"north","frame":3,"class":"car","confidence":0.9,"coords":[0,0,1,1]}`)
	require.NoError(t, err)
	assert.Equal(t, Dropped, out)
	out, err = p.Dispatch(`{"road":"north","frame":3,"tracker_id":9,"class":"person","confidence":0.9,"coords":[0,0,1,1]}`)
	require.NoError(t, err)
	assert.Equal(t, Dropped, out)

	_, err = p.Dispatch(line("west", 1, 1, vehicle.Car))
	assert.ErrorIs(t, err, ErrUnknownRoad)

	// two roads, so an unaddressed line cannot be routed
	_, err = p.Dispatch(line("", 1, 1, vehicle.Car))
	assert.ErrorIs(t, err, ErrUnknownRoad)

	snap := p.Snapshot()
	assert.Equal(t, 1, snap["north"].TotalVehicles)
	assert.Equal(t, 0, snap["south"].TotalVehicles)
	assert.Equal(t, 200.0, snap["south"].RoadLength)
}

func TestPipeline_SingleRoadAcceptsUnaddressedLines(t *testing.T) {
	p, err := NewPipeline("x", []RoadSpec{{Name: "only", Length: 100}}, testConfig(1))
	require.NoError(t, err)

	out, err := p.Dispatch(line("", 1, 1, vehicle.Bicycle))
	require.NoError(t, err)
	assert.Equal(t, Confirmed, out)
}

func TestPipeline_Run(t *testing.T) {
	p := newPipeline(t)
	lines := make(chan string)

	done := make(chan error, 1)
	go func() { done <- p.Run(context.Background(), lines) }()

	for i := int64(1); i <= 5; i++ {
		lines <- line("north", int(i), i, vehicle.Car)
		lines <- line("north", int(i)+1, i, vehicle.Car)
		lines <- line("south", int(i), 100+i, vehicle.Truck)
		lines <- line("south", int(i)+1, 100+i, vehicle.Truck)
	}
	lines <- "garbage"
	close(lines)

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after the feed closed")
	}

	snap := p.Snapshot()
	assert.Equal(t, 5, snap["north"].Counts[vehicle.Car])
	assert.Equal(t, 5, snap["south"].Counts[vehicle.Truck])
}

func TestPipeline_RunStopsOnCancel(t *testing.T) {
	p := newPipeline(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx, make(chan string)) }()

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop on cancel")
	}
}

func TestPipeline_WriteReports(t *testing.T) {
	p := newPipeline(t)
	dir := t.TempDir()
	fsys := fsutil.NewMemoryFileSystem()

	paths, err := p.WriteReports(fsys, dir)
	require.NoError(t, err)
	assert.Equal(t, []string{
		ReportPath(dir, "north"),
		ReportPath(dir, "south"),
	}, paths)
	assert.Equal(t, paths, fsys.Files())
}
