package services

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"shipdash/internal/dataset"
	apperrors "shipdash/internal/errors"
	"shipdash/internal/models"
	"shipdash/internal/observability"
	"shipdash/internal/pipeline"
)

type Option func(*Dashboard)

func WithLogger(logger *slog.Logger) Option {
	return func(d *Dashboard) { d.logger = logger }
}

func WithMetrics(m *observability.Metrics) Option {
	return func(d *Dashboard) { d.metrics = m }
}

// WithHistogramBins fixes the histogram bin count. Zero selects Sturges'
// rule per recomputation.
func WithHistogramBins(n int) Option {
	return func(d *Dashboard) { d.bins = n }
}

// WithCatalogue replaces the default chart set.
func WithCatalogue(specs []models.ChartSpec) Option {
	return func(d *Dashboard) { d.specs = specs }
}

// Dashboard recomputes every chart from the immutable dataset for a given
// selection. It holds no per-selection state, so concurrent requests share it
// without locking.
type Dashboard struct {
	data    *dataset.Dataset
	specs   []models.ChartSpec
	charts  []chart
	panels  []string
	bins    int
	logger  *slog.Logger
	metrics *observability.Metrics
}

func NewDashboard(data *dataset.Dataset, opts ...Option) *Dashboard {
	d := &Dashboard{
		data:   data,
		specs:  DefaultCatalogue(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}

	d.charts = make([]chart, 0, len(d.specs))
	for _, spec := range d.specs {
		c := resolveChart(spec)
		if c.err != nil {
			d.logger.Warn("chart disabled", "chart", spec.ID, "error", c.err)
		}
		d.charts = append(d.charts, c)
		if !slices.Contains(d.panels, spec.Panel) {
			d.panels = append(d.panels, spec.Panel)
		}
	}
	d.metrics.SetDatasetRecords(len(data.Records))
	return d
}

func (d *Dashboard) Options() models.FilterOptions {
	return d.data.Options
}

// TotalCount is the number of records in the full dataset.
func (d *Dashboard) TotalCount() int {
	return len(d.data.Records)
}

func (d *Dashboard) Catalogue() []models.ChartSpec {
	out := make([]models.ChartSpec, len(d.charts))
	for i, c := range d.charts {
		out[i] = c.spec
	}
	return out
}

func (d *Dashboard) Panels() []string {
	return append([]string{}, d.panels...)
}

// ResolveSelection turns a client request into a selection, defaulting
// omitted dimensions to every observed value.
func (d *Dashboard) ResolveSelection(req models.SelectionRequest) (models.Selection, error) {
	opts := d.data.Options
	sel := opts.All()

	if req.Years != nil {
		sel.Years = make([]int, 0, len(req.Years))
		for _, raw := range req.Years {
			y, err := strconv.Atoi(strings.TrimSpace(raw))
			if err != nil {
				return models.Selection{}, apperrors.Validation(fmt.Sprintf("invalid year %q", raw))
			}
			sel.Years = append(sel.Years, y)
		}
	}
	if req.Markets != nil {
		sel.Markets = req.Markets
	}
	if req.Regions != nil {
		sel.Regions = req.Regions
	}
	if req.ExpressFlags != nil {
		sel.ExpressFlags = make([]string, 0, len(req.ExpressFlags))
		for _, raw := range req.ExpressFlags {
			flag, ok := models.ParseExpressFlag(raw)
			if !ok {
				return models.Selection{}, apperrors.Validation(fmt.Sprintf("invalid express flag %q", raw))
			}
			sel.ExpressFlags = append(sel.ExpressFlags, flag)
		}
	}
	return sel, nil
}

// View returns the filtered view for a selection.
func (d *Dashboard) View(sel models.Selection) pipeline.View {
	return pipeline.ComputeView(d.data.Records, sel)
}

// Compute recomputes the filtered view and every chart.
func (d *Dashboard) Compute(ctx context.Context, sel models.Selection) models.DashboardView {
	ctx, span := observability.StartSpan(ctx, "dashboard.compute")
	defer span.End()

	start := time.Now()
	view := d.View(sel)

	out := models.DashboardView{
		Selection:   sel,
		RecordCount: len(view),
		TotalCount:  len(d.data.Records),
		Panels:      make([]models.Panel, len(d.panels)),
	}
	for i, name := range d.panels {
		out.Panels[i].Name = name
	}

	for _, c := range d.charts {
		data := d.computeChart(c, view)
		i := slices.Index(d.panels, c.spec.Panel)
		out.Panels[i].Charts = append(out.Panels[i].Charts, data)
	}

	elapsed := time.Since(start)
	d.metrics.ObserveRecompute(elapsed, len(view))
	span.SetAttributes(
		attribute.Int("dashboard.records", len(view)),
		attribute.Int("dashboard.charts", len(d.charts)),
	)
	observability.LoggerFrom(ctx, d.logger).Debug("dashboard recomputed",
		"records", len(view),
		"duration", elapsed,
	)
	return out
}

// ComputeChart recomputes a single chart.
func (d *Dashboard) ComputeChart(ctx context.Context, id string, sel models.Selection) (models.ChartData, error) {
	_, span := observability.StartSpan(ctx, "dashboard.chart")
	defer span.End()
	span.SetAttributes(attribute.String("chart.id", id))

	for _, c := range d.charts {
		if c.spec.ID == id {
			return d.computeChart(c, d.View(sel)), nil
		}
	}
	return models.ChartData{}, apperrors.NotFound(fmt.Sprintf("unknown chart %q", id))
}

// Aggregate runs an ad-hoc aggregate over the filtered view. Column names
// that are not in the schema fail with a MissingColumnError.
func (d *Dashboard) Aggregate(ctx context.Context, sel models.Selection, groupBy []string, metric, column string, order models.Order) ([]models.AggregateRow, error) {
	_, span := observability.StartSpan(ctx, "dashboard.aggregate")
	defer span.End()

	keys, err := pipeline.ParseDimensions(groupBy)
	if err != nil {
		return nil, err
	}
	m, err := pipeline.ParseMetric(metric, column)
	if err != nil {
		return nil, err
	}
	if order == "" {
		order = models.OrderByKey
	}
	return pipeline.AggregateOrdered(d.View(sel), keys, m, order)
}

func (d *Dashboard) computeChart(c chart, view pipeline.View) models.ChartData {
	data := models.ChartData{Spec: c.spec}
	if c.err != nil {
		d.metrics.ChartFailed(c.spec.ID)
		data.Error = c.err.Error()
		return data
	}

	switch c.spec.Kind {
	case models.ChartBar:
		rows, err := pipeline.AggregateOrdered(view, c.groupBy, c.metric, defaultOrder(c.spec.Order))
		if err != nil {
			d.metrics.ChartFailed(c.spec.ID)
			data.Error = err.Error()
			return data
		}
		data.Table = rows
	case models.ChartLine:
		series, err := lineSeries(view, c)
		if err != nil {
			d.metrics.ChartFailed(c.spec.ID)
			data.Error = err.Error()
			return data
		}
		data.Series = series
	case models.ChartBox:
		data.Boxes = pipeline.BoxPlot(view, c.keys(), c.measure)
	case models.ChartHistogram:
		hist := pipeline.Histogram(view, c.measure, c.color, d.bins)
		data.Histogram = &hist
		var keys []models.Dimension
		if c.color != "" {
			keys = []models.Dimension{c.color}
		}
		data.Marginal = pipeline.BoxPlot(view, keys, c.measure)
	case models.ChartChoropleth:
		ch := pipeline.Choropleth(view, c.measure)
		data.Choropleth = &ch
	}
	return data
}

// lineSeries builds one series per color value over the x dimension. Points
// exist only where the group has records.
func lineSeries(view pipeline.View, c chart) ([]models.Series, error) {
	keys := append([]models.Dimension{}, c.groupBy...)
	if c.color != "" {
		keys = append(keys, c.color)
	}
	rows, err := pipeline.Aggregate(view, keys, c.metric)
	if err != nil {
		return nil, err
	}

	var (
		series []models.Series
		index  = make(map[string]int)
	)
	for _, row := range rows {
		name := c.spec.Column
		if c.color != "" {
			name = row.Key[1]
		}
		i, ok := index[name]
		if !ok {
			i = len(series)
			index[name] = i
			series = append(series, models.Series{Name: name})
		}
		series[i].Labels = append(series[i].Labels, row.Key[0])
		series[i].Values = append(series[i].Values, row.Value)
	}
	slices.SortFunc(series, func(a, b models.Series) int {
		return strings.Compare(a.Name, b.Name)
	})
	return series, nil
}

func defaultOrder(o models.Order) models.Order {
	if o == "" {
		return models.OrderByKey
	}
	return o
}

// Stats reports dataset and catalogue figures for the admin endpoint.
func (d *Dashboard) Stats() map[string]any {
	disabled := 0
	for _, c := range d.charts {
		if c.err != nil {
			disabled++
		}
	}
	return map[string]any{
		"record_count":    len(d.data.Records),
		"source":          d.data.Source,
		"loaded_at":       d.data.LoadedAt,
		"from_cache":      d.data.FromCache,
		"years":           len(d.data.Options.Years),
		"markets":         len(d.data.Options.Markets),
		"regions":         len(d.data.Options.Regions),
		"charts":          len(d.charts),
		"charts_disabled": disabled,
	}
}
