// Package benchmark compares density-based signal allocation against a
// fixed-time plan on randomly generated intersections.
package benchmark

import (
	"fmt"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/banshee-data/intersection.report/internal/road"
	"github.com/banshee-data/intersection.report/internal/vehicle"
)

// TrafficParams shapes the generated traffic. Car counts are drawn from
// N(Mu, Sigma); every other class from N(Mu/10, Sigma). Negative draws count
// as zero.
type TrafficParams struct {
	Mu      float64
	Sigma   float64
	Roads   int
	Lengths []float64
}

// DefaultTrafficParams is four roads with car counts around 30.
func DefaultTrafficParams() TrafficParams {
	return TrafficParams{
		Mu:      30,
		Sigma:   10,
		Roads:   4,
		Lengths: []float64{200, 250, 275, 300},
	}
}

func (p TrafficParams) Validate() error {
	if p.Roads < 1 {
		return fmt.Errorf("roads must be at least 1, got %d", p.Roads)
	}
	if p.Sigma < 0 {
		return fmt.Errorf("sigma must be non-negative, got %g", p.Sigma)
	}
	if len(p.Lengths) == 0 {
		return fmt.Errorf("at least one road length is required")
	}
	for _, l := range p.Lengths {
		if l <= 0 {
			return fmt.Errorf("%w, got %g", road.ErrInvalidLength, l)
		}
	}
	return nil
}

// Generator draws random intersections. The same seed yields the same
// sequence.
type Generator struct {
	params TrafficParams
	rnd    *rand.Rand
	car    distuv.Normal
	other  distuv.Normal
}

func NewGenerator(params TrafficParams, seed uint64) (*Generator, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	src := rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)
	return &Generator{
		params: params,
		rnd:    rand.New(src),
		car:    distuv.Normal{Mu: params.Mu, Sigma: params.Sigma, Src: src},
		other:  distuv.Normal{Mu: params.Mu * 0.1, Sigma: params.Sigma, Src: src},
	}, nil
}

// RoadName is the name of the i-th generated road, counting from 1.
func RoadName(i int) string {
	return fmt.Sprintf("road%d", i)
}

// Intersection draws one intersection.
func (g *Generator) Intersection() road.Intersection {
	in := make(road.Intersection, g.params.Roads)
	for i := 1; i <= g.params.Roads; i++ {
		var counts vehicle.Counts
		for _, class := range vehicle.Classes {
			d := g.other
			if class == vehicle.Car {
				d = g.car
			}
			counts[class] = max(0, int(d.Rand()))
		}
		in[RoadName(i)] = road.Snapshot{
			TotalVehicles: counts.Total(),
			RoadLength:    g.params.Lengths[g.rnd.IntN(len(g.params.Lengths))],
			Counts:        counts,
		}
	}
	return in
}
