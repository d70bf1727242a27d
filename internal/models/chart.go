package models

// ChartKind is the visual form a chart takes.
type ChartKind string

const (
	ChartBar        ChartKind = "bar"
	ChartBox        ChartKind = "box"
	ChartLine       ChartKind = "line"
	ChartHistogram  ChartKind = "histogram"
	ChartChoropleth ChartKind = "choropleth"
)

// ChartSpec is one catalogue entry. Column names are kept as strings so a
// catalogue file can reference them; they are resolved once at startup.
type ChartSpec struct {
	ID          string    `json:"id" yaml:"id" validate:"required"`
	Panel       string    `json:"panel" yaml:"panel" validate:"required"`
	Title       string    `json:"title" yaml:"title" validate:"required"`
	Description string    `json:"description,omitempty" yaml:"description"`
	Kind        ChartKind `json:"kind" yaml:"kind" validate:"required,oneof=bar box line histogram choropleth"`
	GroupBy     []string  `json:"group_by,omitempty" yaml:"group_by"`
	Color       string    `json:"color,omitempty" yaml:"color"`
	Metric      string    `json:"metric,omitempty" yaml:"metric" validate:"omitempty,oneof=mean count"`
	Column      string    `json:"column,omitempty" yaml:"column"`
	Order       Order     `json:"order,omitempty" yaml:"order" validate:"omitempty,oneof=key count_desc"`
	XLabel      string    `json:"x_label,omitempty" yaml:"x_label"`
	YLabel      string    `json:"y_label,omitempty" yaml:"y_label"`
}

// Series is one named line of a line chart.
type Series struct {
	Name   string    `json:"name"`
	Labels []string  `json:"labels"`
	Values []float64 `json:"values"`
}

// ChartData is the chart-ready output for one catalogue entry. Exactly one
// payload field is set, unless Error is non-empty.
type ChartData struct {
	Spec       ChartSpec      `json:"spec"`
	Table      []AggregateRow `json:"table,omitempty"`
	Series     []Series       `json:"series,omitempty"`
	Boxes      []BoxStats     `json:"boxes,omitempty"`
	Histogram  *Histogram     `json:"histogram,omitempty"`
	Marginal   []BoxStats     `json:"marginal,omitempty"`
	Choropleth *Choropleth    `json:"choropleth,omitempty"`
	Error      string         `json:"error,omitempty"`
}

// Panel groups the charts of one dashboard tab.
type Panel struct {
	Name   string      `json:"name"`
	Charts []ChartData `json:"charts"`
}

// DashboardView is a full recomputation for one selection.
type DashboardView struct {
	Selection   Selection `json:"selection"`
	RecordCount int       `json:"record_count"`
	TotalCount  int       `json:"total_count"`
	Panels      []Panel   `json:"panels"`
}

// Chart finds a chart by id across panels.
func (v DashboardView) Chart(id string) (ChartData, bool) {
	for _, p := range v.Panels {
		for _, c := range p.Charts {
			if c.Spec.ID == id {
				return c, true
			}
		}
	}
	return ChartData{}, false
}
