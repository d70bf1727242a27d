package services

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"shipdash/internal/models"
	"shipdash/internal/pipeline"
)

const (
	PanelSummary    = "Summary"
	PanelOperations = "Operations"
	PanelMarketing  = "Marketing"
)

// DefaultCatalogue is the fixed chart set of the dashboard.
func DefaultCatalogue() []models.ChartSpec {
	return []models.ChartSpec{
		{
			ID: "shipping-volume", Panel: PanelSummary, Kind: models.ChartBar,
			Title:       "Shipping Volume Distribution",
			Description: "Volume of Express vs Standard shipments.",
			GroupBy:     []string{"Express Flag"}, Metric: "count", Order: models.OrderCountDesc,
			XLabel: "Shipping Type", YLabel: "Order Count",
		},
		{
			ID: "margin-by-shipping", Panel: PanelSummary, Kind: models.ChartBox,
			Title:       "Profit Margin Distribution by Shipping Type",
			Description: "How profit margins vary between Express and Standard.",
			GroupBy:     []string{"Express Flag"}, Column: "Profit Margin",
		},
		{
			ID: "monthly-margin", Panel: PanelSummary, Kind: models.ChartLine,
			Title:       "Monthly Trends in Profit Margin",
			Description: "How profit margins shift over time by shipping type.",
			GroupBy:     []string{"Year-Month"}, Color: "Express Flag", Metric: "mean", Column: "Profit Margin",
		},
		{
			ID: "ship-lag-adjusted", Panel: PanelOperations, Kind: models.ChartBox,
			Title:       "Average Ship Lag",
			Description: "Shipping delay in days by shipping method.",
			GroupBy:     []string{"Express Flag"}, Column: "Ship Lag Adjusted",
		},
		{
			ID: "shipping-cost", Panel: PanelOperations, Kind: models.ChartHistogram,
			Title:       "Shipping Cost Distribution",
			Description: "Distribution of shipping costs between methods.",
			Color:       "Express Flag", Column: "Shipping Cost",
		},
		{
			ID: "ship-mode-lag", Panel: PanelOperations, Kind: models.ChartBox,
			Title:       "Ship Mode vs Ship Lag",
			Description: "Operational delay by ship mode.",
			GroupBy:     []string{"Ship Mode"}, Color: "Express Flag", Column: "Ship Lag",
		},
		{
			ID: "region-lag", Panel: PanelOperations, Kind: models.ChartBar,
			Title:       "Region-wise Shipping Delay",
			Description: "Average ship lag per region.",
			GroupBy:     []string{"Region"}, Metric: "mean", Column: "Ship Lag",
		},
		{
			ID: "category-margin", Panel: PanelMarketing, Kind: models.ChartBox,
			Title:       "Profit Margin by Product Category",
			Description: "Profit margin distribution by category and shipping type.",
			GroupBy:     []string{"Category"}, Color: "Express Flag", Column: "Profit Margin",
		},
		{
			ID: "subcategory-margin", Panel: PanelMarketing, Kind: models.ChartBox,
			Title:       "Profit Margin by Sub-Category",
			Description: "Profit variations by product sub-category.",
			GroupBy:     []string{"Sub-Category"}, Color: "Express Flag", Column: "Profit Margin",
		},
		{
			ID: "market-margin", Panel: PanelMarketing, Kind: models.ChartBox,
			Title:       "Market-wise Profitability",
			Description: "Profit margin comparison across markets.",
			GroupBy:     []string{"Market"}, Color: "Express Flag", Column: "Profit Margin",
		},
		{
			ID: "state-margin", Panel: PanelMarketing, Kind: models.ChartChoropleth,
			Title:       "State-wise Average Profit Margin",
			Description: "Which states perform better or worse.",
			Metric:      "mean", Column: "Profit Margin",
		},
	}
}

type catalogueFile struct {
	Charts []models.ChartSpec `yaml:"charts" validate:"dive"`
}

// LoadCatalogue reads chart entries from a YAML file of the form
// `charts: [...]` and validates them.
func LoadCatalogue(path string) ([]models.ChartSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalogue: %w", err)
	}

	var file catalogueFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse catalogue: %w", err)
	}

	if err := validator.New().Struct(file); err != nil {
		return nil, fmt.Errorf("invalid catalogue: %w", err)
	}
	return file.Charts, nil
}

// MergeCatalogue replaces base entries that share an id with an override and
// appends the rest in order.
func MergeCatalogue(base, overrides []models.ChartSpec) []models.ChartSpec {
	out := append([]models.ChartSpec{}, base...)
	pos := make(map[string]int, len(out))
	for i, s := range out {
		pos[s.ID] = i
	}
	for _, s := range overrides {
		if i, ok := pos[s.ID]; ok {
			out[i] = s
			continue
		}
		pos[s.ID] = len(out)
		out = append(out, s)
	}
	return out
}

// chart is a catalogue entry with its columns resolved against the schema.
// err is set when a column could not be resolved; the chart then renders in
// an error state.
type chart struct {
	spec    models.ChartSpec
	groupBy []models.Dimension
	color   models.Dimension
	metric  models.Metric
	measure models.Measure
	err     error
}

func resolveChart(spec models.ChartSpec) chart {
	c := chart{spec: spec}
	c.err = c.resolve()
	return c
}

func (c *chart) resolve() error {
	var err error
	if c.groupBy, err = pipeline.ParseDimensions(c.spec.GroupBy); err != nil {
		return err
	}
	if c.spec.Color != "" {
		if c.color, err = pipeline.ParseDimension(c.spec.Color); err != nil {
			return err
		}
	}
	if c.spec.Column != "" {
		if c.measure, err = pipeline.ParseMeasure(c.spec.Column); err != nil {
			return err
		}
	}

	switch c.spec.Kind {
	case models.ChartBar:
		if len(c.groupBy) == 0 {
			return fmt.Errorf("bar chart %q needs group_by", c.spec.ID)
		}
		c.metric, err = pipeline.ParseMetric(c.spec.Metric, c.spec.Column)
		return err
	case models.ChartLine:
		if len(c.groupBy) != 1 {
			return fmt.Errorf("line chart %q needs exactly one x dimension", c.spec.ID)
		}
		c.metric, err = pipeline.ParseMetric(defaultString(c.spec.Metric, "mean"), c.spec.Column)
		return err
	case models.ChartBox, models.ChartHistogram, models.ChartChoropleth:
		if c.measure == "" {
			return fmt.Errorf("%s chart %q needs a column", c.spec.Kind, c.spec.ID)
		}
		return nil
	}
	return fmt.Errorf("unknown chart kind %q", c.spec.Kind)
}

// keys is the full grouping of a box chart: group_by plus the color
// dimension when it is not already part of it.
func (c chart) keys() []models.Dimension {
	keys := append([]models.Dimension{}, c.groupBy...)
	if c.color != "" {
		for _, k := range keys {
			if k == c.color {
				return keys
			}
		}
		keys = append(keys, c.color)
	}
	return keys
}

func defaultString(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
