// Package templates holds the dashboard page and the chart fragments that the
// SSE endpoint patches into it.
package templates

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"strconv"

	"github.com/a-h/templ"

	"shipdash/internal/charts"
	"shipdash/internal/models"
)

const datastarCDN = "https://cdn.jsdelivr.net/gh/starfederation/datastar@v1.0.0-RC.1/bundles/datastar.js"

// Signals is the client-side state the page is initialized with. Filter
// values are strings because checkbox values are.
type Signals struct {
	Years       []string `json:"years"`
	Markets     []string `json:"markets"`
	Regions     []string `json:"regions"`
	Express     []string `json:"express"`
	Tab         string   `json:"tab"`
	RecordCount int      `json:"recordCount"`
}

// NewSignals builds the initial signals for a view.
func NewSignals(view models.DashboardView) Signals {
	s := Signals{
		Years:       make([]string, len(view.Selection.Years)),
		Markets:     append([]string{}, view.Selection.Markets...),
		Regions:     append([]string{}, view.Selection.Regions...),
		Express:     append([]string{}, view.Selection.ExpressFlags...),
		RecordCount: view.RecordCount,
	}
	for i, y := range view.Selection.Years {
		s.Years[i] = strconv.Itoa(y)
	}
	if len(view.Panels) > 0 {
		s.Tab = view.Panels[0].Name
	}
	return s
}

type filterGroup struct {
	Label  string
	Signal string
	Values []string
}

type pageData struct {
	Script  string
	Signals string
	Filters []filterGroup
	View    models.DashboardView
	Charts  map[string]template.HTML
}

var funcs = template.FuncMap{
	"num": func(v float64) string { return strconv.FormatFloat(v, 'f', 2, 64) },
}

var pageTemplate = template.Must(template.New("page").Funcs(funcs).Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Express vs Standard Shipping</title>
<script type="module" src="{{.Script}}"></script>
<style>
body{font-family:system-ui,sans-serif;margin:0;display:flex;color:#222}
aside{width:220px;padding:1rem;background:#f4f5f7;min-height:100vh}
main{flex:1;padding:1rem}
fieldset{border:none;margin:0 0 1rem;padding:0}
legend{font-weight:600;margin-bottom:.25rem}
nav button{margin-right:.5rem;padding:.4rem .9rem;border:1px solid #ccc;background:#fff;cursor:pointer}
nav button.active{background:#0074d9;color:#fff}
.charts{display:grid;grid-template-columns:repeat(auto-fill,minmax(480px,1fr));gap:1rem}
.chart{border:1px solid #e1e4e8;border-radius:6px;padding:.75rem;overflow-x:auto}
.chart-error{color:#b00020}
.chart-empty{color:#777}
table{border-collapse:collapse;font-size:.85rem}
th,td{padding:.2rem .5rem;border-bottom:1px solid #eee;text-align:right}
th:first-child,td:first-child{text-align:left}
</style>
</head>
<body data-signals='{{.Signals}}'>
<aside data-on-change="@get('/sse/view')">
<h2>Filters</h2>
{{range .Filters}}<fieldset>
<legend>{{.Label}}</legend>
{{$signal := .Signal}}{{range .Values}}<label><input type="checkbox" value="{{.}}" data-bind-{{$signal}}> {{.}}</label><br>
{{end}}</fieldset>
{{end}}<p><span id="record-count" data-text="$recordCount">{{.View.RecordCount}}</span> of {{.View.TotalCount}} orders</p>
</aside>
<main>
<h1>Express vs Standard Shipping</h1>
<nav>{{range .View.Panels}}<button data-on-click="$tab = '{{.Name}}'" data-class-active="$tab == '{{.Name}}'">{{.Name}}</button>{{end}}</nav>
{{range .View.Panels}}<section data-show="$tab == '{{.Name}}'">
<div class="charts">
{{range .Charts}}{{index $.Charts .Spec.ID}}
{{end}}</div>
</section>
{{end}}</main>
</body>
</html>
`))

var chartTemplate = template.Must(template.New("chart").Funcs(funcs).Parse(`<div id="{{.ID}}" class="chart">
<h3>{{.Data.Spec.Title}}</h3>
{{with .Data.Spec.Description}}<p>{{.}}</p>{{end}}
{{with .Data.Spec}}{{if or .XLabel .YLabel}}<p class="chart-axes">{{.YLabel}}{{if and .XLabel .YLabel}} by {{end}}{{.XLabel}}</p>
{{end}}{{end}}{{if .Err}}<p class="chart-error">{{.Err}}</p>
{{else if .Empty}}<p class="chart-empty">No data for the current selection.</p>
{{else if .SVG}}{{.SVG}}
{{else if .Data.Boxes}}{{template "boxes" .Data.Boxes}}
{{else if .Data.Choropleth}}<table>
<thead><tr><th>State</th><th>Code</th><th>{{.Data.Spec.Column}}</th><th>Orders</th></tr></thead>
<tbody>{{range .Data.Choropleth.Entries}}<tr><td>{{.State}}</td><td>{{.Code}}</td><td>{{num .Value}}</td><td>{{.Count}}</td></tr>{{end}}</tbody>
</table>
{{with .Data.Choropleth.Unmatched}}<p class="chart-empty">{{.}} orders with an unrecognized state.</p>{{end}}
{{end}}{{with .Data.Marginal}}{{template "boxes" .}}{{end}}</div>
{{define "boxes"}}<table>
<thead><tr><th>Group</th><th>n</th><th>Min</th><th>Q1</th><th>Median</th><th>Q3</th><th>Max</th><th>Mean</th><th>Outliers</th></tr></thead>
<tbody>{{range .}}<tr><td>{{range $i, $k := .Key}}{{if $i}} / {{end}}{{$k}}{{end}}</td><td>{{.Count}}</td><td>{{num .Min}}</td><td>{{num .Q1}}</td><td>{{num .Median}}</td><td>{{num .Q3}}</td><td>{{num .Max}}</td><td>{{num .Mean}}</td><td>{{len .Outliers}}</td></tr>{{end}}</tbody>
</table>
{{end}}`))

type chartData struct {
	ID    string
	Data  models.ChartData
	SVG   template.HTML
	Err   string
	Empty bool
}

// ChartElementID is the DOM id of a chart's container.
func ChartElementID(chartID string) string {
	return "chart-" + chartID
}

// Dashboard renders the full page for the initial view.
func Dashboard(view models.DashboardView, opts models.FilterOptions) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		signals, err := json.Marshal(NewSignals(view))
		if err != nil {
			return fmt.Errorf("marshal signals: %w", err)
		}

		years := make([]string, len(opts.Years))
		for i, y := range opts.Years {
			years[i] = strconv.Itoa(y)
		}

		data := pageData{
			Script:  datastarCDN,
			Signals: string(signals),
			Filters: []filterGroup{
				{Label: "Year", Signal: "years", Values: years},
				{Label: "Market", Signal: "markets", Values: opts.Markets},
				{Label: "Region", Signal: "regions", Values: opts.Regions},
				{Label: "Shipping Type", Signal: "express", Values: opts.ExpressFlags},
			},
			View:   view,
			Charts: make(map[string]template.HTML),
		}
		for _, p := range view.Panels {
			for _, c := range p.Charts {
				html, err := RenderChart(c)
				if err != nil {
					return err
				}
				data.Charts[c.Spec.ID] = template.HTML(html)
			}
		}
		return pageTemplate.Execute(w, data)
	})
}

// Chart renders one chart container. Rendering failures are shown inside the
// container rather than returned, so one bad chart never blanks the page.
func Chart(data models.ChartData) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		cd := chartData{ID: ChartElementID(data.Spec.ID), Data: data, Err: data.Error}
		if cd.Err == "" {
			if charts.Supports(data.Spec.Kind) {
				var buf bytes.Buffer
				switch err := charts.Render(&buf, data); {
				case errors.Is(err, charts.ErrNoData):
					cd.Empty = true
				case err != nil:
					cd.Err = err.Error()
				default:
					cd.SVG = template.HTML(buf.String())
				}
			} else {
				cd.Empty = isEmpty(data)
			}
		}
		return chartTemplate.Execute(w, cd)
	})
}

// RenderChart renders a chart container to a string for an SSE patch.
func RenderChart(data models.ChartData) (string, error) {
	var buf bytes.Buffer
	if err := Chart(data).Render(context.Background(), &buf); err != nil {
		return "", fmt.Errorf("render chart %s: %w", data.Spec.ID, err)
	}
	return buf.String(), nil
}

func isEmpty(data models.ChartData) bool {
	switch data.Spec.Kind {
	case models.ChartBox:
		return len(data.Boxes) == 0
	case models.ChartChoropleth:
		return data.Choropleth == nil || (len(data.Choropleth.Entries) == 0 && data.Choropleth.Unmatched == 0)
	}
	return false
}
