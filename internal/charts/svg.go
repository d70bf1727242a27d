// Package charts renders chart data as SVG with go-chart. Box plots and the
// choropleth have no SVG form here; the page renders them from their data.
package charts

import (
	"errors"
	"fmt"
	"io"
	"math"
	"slices"
	"strings"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"shipdash/internal/models"
)

const (
	defaultWidth  = 720
	defaultHeight = 360
	barWidth      = 36
	barSpacing    = 12
	maxXTicks     = 12
)

var (
	ErrUnsupported = errors.New("chart kind has no SVG rendering")
	ErrNoData      = errors.New("no data for the current selection")
)

var palette = []drawing.Color{
	chart.ColorBlue,
	chart.ColorOrange,
	chart.ColorGreen,
	chart.ColorRed,
	chart.ColorYellow,
	chart.ColorCyan,
}

// SeriesColor is the color of the i-th series or group.
func SeriesColor(i int) drawing.Color {
	return palette[i%len(palette)]
}

// Supports reports whether a chart kind has an SVG rendering.
func Supports(kind models.ChartKind) bool {
	switch kind {
	case models.ChartBar, models.ChartLine, models.ChartHistogram:
		return true
	}
	return false
}

// Render writes the SVG for data. It returns ErrNoData when the selection
// left nothing to plot.
func Render(w io.Writer, data models.ChartData) error {
	if data.Error != "" {
		return errors.New(data.Error)
	}
	switch data.Spec.Kind {
	case models.ChartBar:
		return renderBar(w, data)
	case models.ChartLine:
		return renderLine(w, data)
	case models.ChartHistogram:
		return renderHistogram(w, data)
	}
	return ErrUnsupported
}

func renderBar(w io.Writer, data models.ChartData) error {
	if len(data.Table) == 0 {
		return ErrNoData
	}

	bars := make([]chart.Value, len(data.Table))
	values := make([]float64, len(data.Table))
	for i, row := range data.Table {
		bars[i] = chart.Value{Label: strings.Join(row.Key, " / "), Value: row.Value}
		values[i] = row.Value
	}

	graph := chart.BarChart{
		Title:      data.Spec.Title,
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16}},
		Width:      barChartWidth(len(bars)),
		Height:     defaultHeight,
		BarWidth:   barWidth,
		BarSpacing: barSpacing,
		YAxis:      chart.YAxis{Name: data.Spec.YLabel, Range: valueRange(values, true)},
		Bars:       bars,
	}
	return graph.Render(chart.SVG, w)
}

func renderLine(w io.Writer, data models.ChartData) error {
	var labels []string
	var values []float64
	for _, s := range data.Series {
		labels = append(labels, s.Labels...)
		values = append(values, s.Values...)
	}
	if len(values) == 0 {
		return ErrNoData
	}
	slices.Sort(labels)
	labels = slices.Compact(labels)

	pos := make(map[string]float64, len(labels))
	for i, l := range labels {
		pos[l] = float64(i)
	}

	series := make([]chart.Series, 0, len(data.Series))
	for i, s := range data.Series {
		xs := make([]float64, len(s.Labels))
		for j, l := range s.Labels {
			xs[j] = pos[l]
		}
		color := SeriesColor(i)
		series = append(series, chart.ContinuousSeries{
			Name:    s.Name,
			XValues: xs,
			YValues: s.Values,
			Style: chart.Style{
				StrokeColor: color,
				StrokeWidth: 2,
				DotColor:    color,
				DotWidth:    3,
			},
		})
	}

	graph := chart.Chart{
		Title:      data.Spec.Title,
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 48}},
		Width:      defaultWidth,
		Height:     defaultHeight,
		XAxis: chart.XAxis{
			Name:  data.Spec.GroupBy[0],
			Range: &chart.ContinuousRange{Min: -0.5, Max: float64(len(labels)) - 0.5},
			Ticks: categoryTicks(labels),
		},
		YAxis:  chart.YAxis{Name: data.Spec.Column, Range: valueRange(values, false)},
		Series: series,
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}
	return graph.Render(chart.SVG, w)
}

// renderHistogram draws one bar per bin and group, groups side by side
// within a bin.
func renderHistogram(w io.Writer, data models.ChartData) error {
	h := data.Histogram
	if h == nil || len(h.Groups) == 0 {
		return ErrNoData
	}

	var (
		bars   []chart.Value
		values []float64
	)
	for bin := 0; bin+1 < len(h.Edges); bin++ {
		for gi, g := range h.Groups {
			label := ""
			if gi == 0 {
				label = fmt.Sprintf("%.1f", h.Edges[bin])
			}
			color := SeriesColor(gi)
			v := float64(g.Counts[bin])
			bars = append(bars, chart.Value{
				Label: label,
				Value: v,
				Style: chart.Style{FillColor: color, StrokeColor: color},
			})
			values = append(values, v)
		}
	}

	graph := chart.BarChart{
		Title:      data.Spec.Title,
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16}},
		Width:      barChartWidth(len(bars)),
		Height:     defaultHeight,
		BarWidth:   barWidth / 2,
		BarSpacing: 2,
		YAxis:      chart.YAxis{Name: "count", Range: valueRange(values, true)},
		Bars:       bars,
	}
	return graph.Render(chart.SVG, w)
}

// valueRange pads the data range so a constant series still has a non-zero
// extent. Bars always start from zero.
func valueRange(values []float64, fromZero bool) *chart.ContinuousRange {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range values {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if fromZero {
		lo = math.Min(lo, 0)
		hi = math.Max(hi, 0)
	}
	if hi == lo {
		return &chart.ContinuousRange{Min: lo - 1, Max: hi + 1}
	}
	pad := (hi - lo) * 0.05
	if fromZero && lo == 0 {
		return &chart.ContinuousRange{Min: 0, Max: hi + pad}
	}
	return &chart.ContinuousRange{Min: lo - pad, Max: hi + pad}
}

func categoryTicks(labels []string) []chart.Tick {
	step := 1
	if len(labels) > maxXTicks {
		step = int(math.Ceil(float64(len(labels)) / maxXTicks))
	}
	ticks := make([]chart.Tick, 0, len(labels)/step+1)
	for i := 0; i < len(labels); i += step {
		ticks = append(ticks, chart.Tick{Value: float64(i), Label: labels[i]})
	}
	return ticks
}

func barChartWidth(n int) int {
	return max(defaultWidth, n*(barWidth+barSpacing)+96)
}
