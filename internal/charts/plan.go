// Package charts renders signal plans as HTML charts.
package charts

import (
	"fmt"
	"io"
	"strings"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/intersection.report/internal/signal"
)

const (
	greenColor  = "#2e7d32"
	yellowColor = "#f9a825"
	redColor    = "#c62828"
)

// PlanOptions controls the rendered page.
type PlanOptions struct {
	Title    string
	Warnings []signal.Warning
	// AssetsHost overrides where echarts.min.js is loaded from. Empty uses
	// the go-echarts default CDN.
	AssetsHost string
}

// PlanChart builds one stacked bar per road, split into green, yellow and
// red seconds of the cycle. Roads appear in name order.
func PlanChart(plan signal.Plan, o PlanOptions) *charts.Bar {
	roads := plan.Roads()
	green := make([]opts.BarData, len(roads))
	yellow := make([]opts.BarData, len(roads))
	red := make([]opts.BarData, len(roads))
	for i, name := range roads {
		t := plan[name]
		green[i] = opts.BarData{Value: t.Green}
		yellow[i] = opts.BarData{Value: t.Yellow}
		red[i] = opts.BarData{Value: t.Red}
	}

	title := o.Title
	if title == "" {
		title = "Signal plan"
	}
	init := opts.Initialization{PageTitle: title, Width: "100%", Height: "480px"}
	if o.AssetsHost != "" {
		init.AssetsHost = o.AssetsHost
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(init),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: subtitle(plan, o.Warnings)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Right: "10%"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "seconds"}),
	)
	stack := charts.WithBarChartOpts(opts.BarChart{Stack: "cycle"})
	label := charts.WithLabelOpts(opts.Label{Show: opts.Bool(true)})
	bar.SetXAxis(roads).
		AddSeries("Green", green, stack, label, charts.WithItemStyleOpts(opts.ItemStyle{Color: greenColor})).
		AddSeries("Yellow", yellow, stack, label, charts.WithItemStyleOpts(opts.ItemStyle{Color: yellowColor})).
		AddSeries("Red", red, stack, label, charts.WithItemStyleOpts(opts.ItemStyle{Color: redColor}))
	return bar
}

func subtitle(plan signal.Plan, warnings []signal.Warning) string {
	var cycle int
	for _, t := range plan {
		cycle = t.Total()
		break
	}
	s := fmt.Sprintf("%d roads, %ds cycle", len(plan), cycle)
	if len(warnings) > 0 {
		parts := make([]string, len(warnings))
		for i, w := range warnings {
			parts[i] = w.String()
		}
		s += "\nwarnings: " + strings.Join(parts, "; ")
	}
	return s
}

// RenderPlan writes a standalone HTML page with the plan chart.
func RenderPlan(w io.Writer, plan signal.Plan, o PlanOptions) error {
	page := components.NewPage()
	if o.AssetsHost != "" {
		page.SetAssetsHost(o.AssetsHost)
	}
	page.AddCharts(PlanChart(plan, o))
	return page.Render(w)
}
