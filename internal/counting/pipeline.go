package counting

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/banshee-data/intersection.report/internal/fsutil"
	"github.com/banshee-data/intersection.report/internal/monitoring"
	"github.com/banshee-data/intersection.report/internal/road"
	"github.com/banshee-data/intersection.report/internal/vehicle"
)

// ErrUnknownRoad is returned for detection lines addressed to a road the
// pipeline does not count.
var ErrUnknownRoad = errors.New("unknown road")

// RoadSpec names a road approach and its length in metres.
type RoadSpec struct {
	Name   string
	Length float64
}

// Pipeline routes detection lines for one intersection to a Counter per road.
type Pipeline struct {
	intersection string
	roads        []string
	counters     map[string]*Counter
}

// NewPipeline builds one Counter per road. Road names must be unique and
// non-empty.
func NewPipeline(intersection string, roads []RoadSpec, cfg Config) (*Pipeline, error) {
	if len(roads) == 0 {
		return nil, errors.New("pipeline needs at least one road")
	}
	p := &Pipeline{
		intersection: intersection,
		counters:     make(map[string]*Counter, len(roads)),
	}
	for _, r := range roads {
		if r.Name == "" {
			return nil, errors.New("road name must not be empty")
		}
		if _, dup := p.counters[r.Name]; dup {
			return nil, fmt.Errorf("duplicate road %q", r.Name)
		}
		if r.Length <= 0 {
			return nil, fmt.Errorf("road %q: %w, got %g", r.Name, road.ErrInvalidLength, r.Length)
		}
		c, err := NewCounter(r.Name, r.Length, cfg)
		if err != nil {
			return nil, fmt.Errorf("road %q: %w", r.Name, err)
		}
		p.counters[r.Name] = c
		p.roads = append(p.roads, r.Name)
	}
	sort.Strings(p.roads)
	return p, nil
}

// Intersection returns the intersection name.
func (p *Pipeline) Intersection() string { return p.intersection }

// Roads returns the road names in ascending order.
func (p *Pipeline) Roads() []string { return append([]string(nil), p.roads...) }

// Counter returns the counter for a road.
func (p *Pipeline) Counter(name string) (*Counter, bool) {
	c, ok := p.counters[name]
	return c, ok
}

// SetRecorder attaches r to every road.
func (p *Pipeline) SetRecorder(r Recorder) {
	for _, c := range p.counters {
		c.SetRecorder(r)
	}
}

// route decodes a line and finds its counter. Lines without a road go to the
// only road of a single-road pipeline.
func (p *Pipeline) route(line string) (*Counter, road.DetectionEvent, error) {
	name, ev, err := DecodeEvent(line)
	if err != nil {
		return nil, ev, err
	}
	if name == "" && len(p.roads) == 1 {
		name = p.roads[0]
	}
	c, ok := p.counters[name]
	if !ok {
		return nil, ev, fmt.Errorf("%w %q", ErrUnknownRoad, name)
	}
	return c, ev, nil
}

// Dispatch decodes and handles one line synchronously. Untracked detections
// and non-vehicle labels are skipped with a Dropped outcome and no error.
func (p *Pipeline) Dispatch(line string) (Outcome, error) {
	c, ev, err := p.route(line)
	if err != nil {
		if skippable(err) {
			return Dropped, nil
		}
		return Dropped, err
	}
	return c.Handle(ev), nil
}

func skippable(err error) bool {
	return errors.Is(err, ErrUntracked) || errors.Is(err, vehicle.ErrUnknownClass)
}

// Run consumes lines until the channel is closed or ctx is done. Each road is
// handled on its own goroutine; events for one road keep their arrival order.
func (p *Pipeline) Run(ctx context.Context, lines <-chan string) error {
	queues := make(map[string]chan road.DetectionEvent, len(p.counters))
	var wg sync.WaitGroup
	for name, c := range p.counters {
		q := make(chan road.DetectionEvent, 256)
		queues[name] = q
		wg.Add(1)
		go func(c *Counter, q <-chan road.DetectionEvent) {
			defer wg.Done()
			for ev := range q {
				c.Handle(ev)
			}
		}(c, q)
	}
	defer func() {
		for _, q := range queues {
			close(q)
		}
		wg.Wait()
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			c, ev, err := p.route(line)
			if err != nil {
				if !skippable(err) {
					monitoring.Logf("counting: %s: skipping line: %v", p.intersection, err)
				}
				continue
			}
			select {
			case queues[c.Name()] <- ev:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

// Snapshot returns the current counts of every road.
func (p *Pipeline) Snapshot() road.Intersection {
	out := make(road.Intersection, len(p.counters))
	for name, c := range p.counters {
		out[name] = c.Snapshot()
	}
	return out
}

// WriteReports writes one report per road under dir and returns the paths in
// road order.
func (p *Pipeline) WriteReports(fsys fsutil.FileSystem, dir string) ([]string, error) {
	paths := make([]string, 0, len(p.roads))
	for _, name := range p.roads {
		path, err := p.counters[name].WriteReport(fsys, dir)
		if err != nil {
			return paths, fmt.Errorf("road %q: %w", name, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}
