// Package signal implements Density-Based Weighted Signal Allocation: each
// road at an intersection gets a green time proportional to its share of the
// total traffic density, bounded by the configured minimum and maximum.
package signal

import (
	"fmt"
	"math"
	"sort"
)

// Timing is one road's share of a signal cycle, in seconds.
type Timing struct {
	Green  int `json:"Green"`
	Yellow int `json:"Yellow"`
	Red    int `json:"Red"`
}

// Total returns the cycle length the timing covers.
func (t Timing) Total() int { return t.Green + t.Yellow + t.Red }

// Plan maps road names to their timings.
type Plan map[string]Timing

// Roads returns the road names in ascending order.
func (p Plan) Roads() []string {
	names := make([]string, 0, len(p))
	for name := range p {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Allocate computes a timing for every road from its density.
//
// With a zero total density each road gets the base green. Otherwise a road's
// green is its density share of max green, bounded to [base, max] and rounded
// half to even. Red fills the rest of the cycle and is not clamped, so it may
// be negative; such plans come back with warnings.
//
// Roads are independent: their greens are not made to fit one shared cycle.
func Allocate(densities map[string]float64, cfg Config) (Plan, []Warning, error) {
	if len(densities) == 0 {
		return nil, nil, ErrNoRoads
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid signal config: %w", err)
	}

	roads := make([]string, 0, len(densities))
	for name := range densities {
		roads = append(roads, name)
	}
	sort.Strings(roads)

	total := 0.0
	for _, name := range roads {
		total += densities[name]
	}

	plan := make(Plan, len(roads))
	var warnings []Warning
	for _, name := range roads {
		green := cfg.BaseGreen
		if total != 0 {
			share := densities[name] / total * float64(cfg.MaxGreen)
			green = int(math.RoundToEven(math.Min(math.Max(float64(cfg.BaseGreen), share), float64(cfg.MaxGreen))))
		}
		t := Timing{
			Green:  green,
			Yellow: cfg.Yellow,
			Red:    cfg.TotalCycle - (green + cfg.Yellow),
		}
		plan[name] = t
		if t.Red < 0 {
			warnings = append(warnings, Warning{
				Kind:    WarnNegativeRed,
				Road:    name,
				Message: fmt.Sprintf("green %ds + yellow %ds exceeds cycle %ds (red %ds)", t.Green, t.Yellow, cfg.TotalCycle, t.Red),
			})
		}
	}

	if minimum := len(roads) * cfg.BaseGreen; minimum > cfg.TotalCycle {
		warnings = append(warnings, Warning{
			Kind:    WarnMinimumGreenExceedsCycle,
			Message: fmt.Sprintf("%d roads x base green %ds = %ds exceeds cycle %ds", len(roads), cfg.BaseGreen, minimum, cfg.TotalCycle),
		})
	}

	return plan, warnings, nil
}
