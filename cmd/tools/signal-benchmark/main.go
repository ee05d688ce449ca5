// Command signal-benchmark compares density-based signal plans against a
// fixed equal split over randomly generated intersections.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	ossignal "os/signal"
	"syscall"
	"time"

	"github.com/banshee-data/intersection.report/internal/benchmark"
	"github.com/banshee-data/intersection.report/internal/config"
)

func main() {
	ctx, stop := ossignal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		log.Fatal(err)
	}
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	params := benchmark.DefaultTrafficParams()

	fs := flag.NewFlagSet("signal-benchmark", flag.ContinueOnError)
	iterations := fs.Int("iterations", 1000, "Number of simulated intersections")
	seed := fs.Uint64("seed", uint64(time.Now().UnixNano()), "Random seed")
	fs.Float64Var(&params.Mu, "mu", params.Mu, "Mean car count per road")
	fs.Float64Var(&params.Sigma, "sigma", params.Sigma, "Standard deviation of the counts")
	fs.IntVar(&params.Roads, "roads", params.Roads, "Roads per intersection")
	configPath := fs.String("config", "", "JSON config file with signal timings and vehicle weights")
	plotPath := fs.String("plot", "", "Write a PNG of the improvement per iteration to this path")
	jsonOut := fs.Bool("json", false, "Print the full result as JSON")
	verbose := fs.Bool("verbose", false, "Print every iteration")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg := config.EmptyConfig()
	if *configPath != "" {
		var err error
		if cfg, err = config.LoadConfig(*configPath); err != nil {
			return err
		}
	}
	weights, err := cfg.Weights()
	if err != nil {
		return err
	}

	gen, err := benchmark.NewGenerator(params, *seed)
	if err != nil {
		return err
	}
	res, err := benchmark.Run(ctx, gen, benchmark.Options{
		Iterations: *iterations,
		Signal:     cfg.SignalConfig(),
		Weights:    weights,
	})
	if err != nil {
		return err
	}

	if *plotPath != "" {
		if err := benchmark.SavePlot(res, *plotPath); err != nil {
			return fmt.Errorf("failed to save plot: %w", err)
		}
		log.Printf("wrote plot %s", *plotPath)
	}

	if *jsonOut {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	if *verbose {
		for _, it := range res.Iterations {
			it.WriteIteration(stdout)
		}
		fmt.Fprintln(stdout)
	}
	fmt.Fprintf(stdout, "seed %d\n\n", *seed)
	res.Summary.WriteSummary(stdout)
	return nil
}
