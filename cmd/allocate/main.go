// Command allocate computes a signal plan for an intersection from a JSON
// payload of per-road counts, from the last finished counting runs in the
// database, or from the per-road reports a counting run wrote.
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/banshee-data/intersection.report/internal/charts"
	"github.com/banshee-data/intersection.report/internal/config"
	"github.com/banshee-data/intersection.report/internal/counting"
	"github.com/banshee-data/intersection.report/internal/db"
	"github.com/banshee-data/intersection.report/internal/fsutil"
	"github.com/banshee-data/intersection.report/internal/road"
	"github.com/banshee-data/intersection.report/internal/signal"
)

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout); err != nil {
		log.Fatal(err)
	}
}

type options struct {
	input        string
	dbPath       string
	reportsDir   string
	configPath   string
	intersection string
	format       string
	chartPath    string
	record       bool
}

func parseFlags(args []string) (options, error) {
	var o options
	fs := flag.NewFlagSet("allocate", flag.ContinueOnError)
	fs.StringVar(&o.input, "input", "", "Intersection payload file, or - for stdin")
	fs.StringVar(&o.dbPath, "db", "", "Allocate from the latest finished runs in this database")
	fs.StringVar(&o.reportsDir, "reports", "", "Allocate from the traffic reports under this directory (roads and lengths from -config)")
	fs.StringVar(&o.configPath, "config", "", "JSON config file with the signal timings")
	fs.StringVar(&o.intersection, "intersection", "", "Intersection name for -db (defaults to the config)")
	fs.StringVar(&o.format, "format", "json", "Output format: json or table")
	fs.StringVar(&o.chartPath, "chart", "", "Also write an HTML chart of the plan to this path")
	fs.BoolVar(&o.record, "record", false, "Store the plan in the database (requires -db)")
	if err := fs.Parse(args); err != nil {
		return o, err
	}
	sources := 0
	for _, v := range []string{o.input, o.dbPath, o.reportsDir} {
		if v != "" {
			sources++
		}
	}
	if sources != 1 {
		return o, errors.New("exactly one of -input, -db or -reports is required")
	}
	if o.reportsDir != "" && o.configPath == "" {
		return o, errors.New("-reports requires -config listing the roads")
	}
	if o.record && o.dbPath == "" {
		return o, errors.New("-record requires -db")
	}
	if o.format != "json" && o.format != "table" {
		return o, fmt.Errorf("unknown format %q", o.format)
	}
	return o, nil
}

func run(args []string, stdin io.Reader, stdout io.Writer) error {
	o, err := parseFlags(args)
	if err != nil {
		return err
	}

	cfg := config.EmptyConfig()
	if o.configPath != "" {
		if cfg, err = config.LoadConfig(o.configPath); err != nil {
			return err
		}
	}
	if o.intersection == "" {
		o.intersection = cfg.GetIntersection()
	}
	signalCfg := cfg.SignalConfig()

	var (
		in       road.Intersection
		database *db.DB
	)
	switch {
	case o.dbPath != "":
		if database, err = db.NewDB(o.dbPath); err != nil {
			return err
		}
		defer database.Close()
		if in, err = database.LatestIntersection(o.intersection); err != nil {
			return err
		}
	case o.reportsDir != "":
		specs, err := cfg.RoadSpecs()
		if err != nil {
			return err
		}
		if in, err = counting.LoadReports(fsutil.OSFileSystem{}, o.reportsDir, specs); err != nil {
			return err
		}
	default:
		if in, err = readPayload(o.input, stdin); err != nil {
			return err
		}
	}

	plan, warnings, err := signal.AllocateSnapshots(in, signalCfg)
	if err != nil {
		return err
	}
	signal.LogWarnings(warnings)

	if o.record {
		rec, err := database.RecordPlan(o.intersection, signalCfg, plan, warnings)
		if err != nil {
			return fmt.Errorf("failed to record plan: %w", err)
		}
		log.Printf("recorded plan %s", rec.ID)
	}

	if o.chartPath != "" {
		if err := writeChart(o.chartPath, o.intersection, plan, warnings); err != nil {
			return err
		}
		log.Printf("wrote chart %s", o.chartPath)
	}

	if o.format == "table" {
		return writeTable(stdout, in, plan, warnings)
	}
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "    ")
	return enc.Encode(plan)
}

func readPayload(path string, stdin io.Reader) (road.Intersection, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read payload: %w", err)
	}
	return signal.ParseIntersection(data)
}

func writeChart(path, intersection string, plan signal.Plan, warnings []signal.Warning) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := charts.RenderPlan(f, plan, charts.PlanOptions{
		Title:    "Signal plan: " + intersection,
		Warnings: warnings,
	}); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func writeTable(w io.Writer, in road.Intersection, plan signal.Plan, warnings []signal.Warning) error {
	if _, err := fmt.Fprintf(w, "%-16s %8s %10s %6s %6s %6s\n", "ROAD", "VEHICLES", "LENGTH(m)", "GREEN", "YELLOW", "RED"); err != nil {
		return err
	}
	for _, name := range plan.Roads() {
		t := plan[name]
		s := in[name]
		if _, err := fmt.Fprintf(w, "%-16s %8d %10.1f %6d %6d %6d\n", name, s.TotalVehicles, s.RoadLength, t.Green, t.Yellow, t.Red); err != nil {
			return err
		}
	}
	for _, warn := range warnings {
		if _, err := fmt.Fprintf(w, "warning: %s\n", warn); err != nil {
			return err
		}
	}
	return nil
}
