package benchmark

import (
	"context"
	"fmt"
	"io"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/intersection.report/internal/density"
	"github.com/banshee-data/intersection.report/internal/road"
	"github.com/banshee-data/intersection.report/internal/signal"
	"github.com/banshee-data/intersection.report/internal/vehicle"
)

// FixedPlan splits the cycle evenly: every road gets
// (cycle - yellow) / roads seconds of green, rounded down.
func FixedPlan(roads []string, cfg signal.Config) signal.Plan {
	plan := make(signal.Plan, len(roads))
	if len(roads) == 0 {
		return plan
	}
	green := (cfg.TotalCycle - cfg.Yellow) / len(roads)
	for _, name := range roads {
		plan[name] = signal.Timing{
			Green:  green,
			Yellow: cfg.Yellow,
			Red:    cfg.TotalCycle - (green + cfg.Yellow),
		}
	}
	return plan
}

// WeightedAverageGreen is the green time each effective vehicle sees on
// average: sum(green * effective) / sum(effective). An intersection with no
// effective vehicles scores 0.
func WeightedAverageGreen(plan signal.Plan, in road.Intersection, table vehicle.WeightTable) float64 {
	roads := in.Roads()
	green := make([]float64, len(roads))
	eff := make([]float64, len(roads))
	for i, name := range roads {
		green[i] = float64(plan[name].Green)
		eff[i] = density.EffectiveVehicles(in[name].Counts, table)
	}
	total := floats.Sum(eff)
	if total == 0 {
		return 0
	}
	return floats.Dot(green, eff) / total
}

// improvement is the percentage gain of a over b, 0 when b is 0.
func improvement(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	return (a - b) / b * 100
}

// Iteration is one simulated intersection.
type Iteration struct {
	Index          int               `json:"iteration"`
	Intersection   road.Intersection `json:"intersection"`
	Adaptive       signal.Plan       `json:"adaptive"`
	Fixed          signal.Plan       `json:"fixed"`
	Warnings       []signal.Warning  `json:"warnings,omitempty"`
	AdaptiveGreen  float64           `json:"adaptive_avg_green"`
	FixedGreen     float64           `json:"fixed_avg_green"`
	ImprovementPct float64           `json:"improvement_percent"`
}

// Peak is the largest value of a metric and the 1-based iteration it
// occurred in.
type Peak struct {
	Value     float64 `json:"value"`
	Iteration int     `json:"iteration"`
}

// Summary aggregates a run.
type Summary struct {
	Iterations         int     `json:"iterations"`
	AvgAdaptiveGreen   float64 `json:"avg_adaptive_green"`
	AvgFixedGreen      float64 `json:"avg_fixed_green"`
	OverallImprovement float64 `json:"overall_improvement_percent"`
	ImprovementStdDev  float64 `json:"improvement_stddev"`
	MaxAdaptiveGreen   Peak    `json:"max_adaptive_green"`
	MaxFixedGreen      Peak    `json:"max_fixed_green"`
	MaxImprovement     Peak    `json:"max_improvement_percent"`
	WarningCount       int     `json:"warning_count"`
}

// Result is a full benchmark run.
type Result struct {
	Iterations []Iteration `json:"iterations"`
	Summary    Summary     `json:"summary"`
}

// Options configures Run.
type Options struct {
	Iterations int
	Signal     signal.Config
	Weights    vehicle.WeightTable
}

// Run simulates opts.Iterations intersections from gen.
func Run(ctx context.Context, gen *Generator, opts Options) (*Result, error) {
	if opts.Iterations < 1 {
		return nil, fmt.Errorf("iterations must be at least 1, got %d", opts.Iterations)
	}
	if err := opts.Signal.Validate(); err != nil {
		return nil, err
	}

	res := &Result{Iterations: make([]Iteration, 0, opts.Iterations)}
	for i := 1; i <= opts.Iterations; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		in := gen.Intersection()
		adaptive, warnings, err := signal.AllocateSnapshots(in, opts.Signal)
		if err != nil {
			return nil, fmt.Errorf("iteration %d: %w", i, err)
		}
		fixed := FixedPlan(in.Roads(), opts.Signal)

		it := Iteration{
			Index:         i,
			Intersection:  in,
			Adaptive:      adaptive,
			Fixed:         fixed,
			Warnings:      warnings,
			AdaptiveGreen: WeightedAverageGreen(adaptive, in, opts.Weights),
			FixedGreen:    WeightedAverageGreen(fixed, in, opts.Weights),
		}
		it.ImprovementPct = improvement(it.AdaptiveGreen, it.FixedGreen)
		res.Iterations = append(res.Iterations, it)
	}
	res.Summary = Summarize(res.Iterations)
	return res, nil
}

// Summarize computes the overall averages and peaks. Peaks keep the first
// iteration reaching the maximum.
func Summarize(its []Iteration) Summary {
	s := Summary{Iterations: len(its)}
	if len(its) == 0 {
		return s
	}
	adaptive := make([]float64, len(its))
	fixed := make([]float64, len(its))
	impr := make([]float64, len(its))
	for i, it := range its {
		adaptive[i] = it.AdaptiveGreen
		fixed[i] = it.FixedGreen
		impr[i] = it.ImprovementPct
		s.WarningCount += len(it.Warnings)
	}
	s.AvgAdaptiveGreen = stat.Mean(adaptive, nil)
	s.AvgFixedGreen = stat.Mean(fixed, nil)
	s.OverallImprovement = improvement(s.AvgAdaptiveGreen, s.AvgFixedGreen)
	if len(impr) > 1 {
		s.ImprovementStdDev = stat.StdDev(impr, nil)
	}
	s.MaxAdaptiveGreen = peak(adaptive, its)
	s.MaxFixedGreen = peak(fixed, its)
	s.MaxImprovement = peak(impr, its)
	return s
}

func peak(values []float64, its []Iteration) Peak {
	i := floats.MaxIdx(values)
	return Peak{Value: values[i], Iteration: its[i].Index}
}

// CumulativeAverage returns the running mean of values.
func CumulativeAverage(values []float64) []float64 {
	out := make([]float64, len(values))
	if len(values) == 0 {
		return out
	}
	floats.CumSum(out, values)
	for i := range out {
		out[i] /= float64(i + 1)
	}
	return out
}

// Improvements returns the per-iteration improvement percentages.
func (r *Result) Improvements() []float64 {
	out := make([]float64, len(r.Iterations))
	for i, it := range r.Iterations {
		out[i] = it.ImprovementPct
	}
	return out
}

// WriteSummary prints the overall and peak metrics.
func (s Summary) WriteSummary(w io.Writer) {
	fmt.Fprintln(w, "==== Overall Benchmark Summary ====")
	fmt.Fprintf(w, "Iterations:                         %d\n", s.Iterations)
	fmt.Fprintf(w, "Average Weighted Green (adaptive):  %.2f sec\n", s.AvgAdaptiveGreen)
	fmt.Fprintf(w, "Average Weighted Green (fixed):     %.2f sec\n", s.AvgFixedGreen)
	fmt.Fprintf(w, "Overall Improvement:                %.2f%% (stddev %.2f)\n", s.OverallImprovement, s.ImprovementStdDev)
	fmt.Fprintf(w, "Degenerate-plan warnings:           %d\n", s.WarningCount)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "==== Maximum Metrics ====")
	fmt.Fprintf(w, "Max adaptive avg green:  %.2f sec at iteration %d\n", s.MaxAdaptiveGreen.Value, s.MaxAdaptiveGreen.Iteration)
	fmt.Fprintf(w, "Max fixed avg green:     %.2f sec at iteration %d\n", s.MaxFixedGreen.Value, s.MaxFixedGreen.Iteration)
	fmt.Fprintf(w, "Max improvement:         %.2f%% at iteration %d\n", s.MaxImprovement.Value, s.MaxImprovement.Iteration)
}

// WriteIteration prints both plans of one iteration.
func (it Iteration) WriteIteration(w io.Writer) {
	fmt.Fprintf(w, "Iteration %d\n", it.Index)
	for _, name := range it.Intersection.Roads() {
		a, f := it.Adaptive[name], it.Fixed[name]
		fmt.Fprintf(w, "  %-8s vehicles=%-4d length=%-5g adaptive G/Y/R=%d/%d/%d fixed G/Y/R=%d/%d/%d\n",
			name, it.Intersection[name].TotalVehicles, it.Intersection[name].RoadLength,
			a.Green, a.Yellow, a.Red, f.Green, f.Yellow, f.Red)
	}
	fmt.Fprintf(w, "  weighted avg green: adaptive %.2f sec, fixed %.2f sec, improvement %.2f%%\n",
		it.AdaptiveGreen, it.FixedGreen, it.ImprovementPct)
}
