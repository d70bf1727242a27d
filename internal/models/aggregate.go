package models

// MetricKind selects the statistic computed per group.
type MetricKind string

const (
	MetricMean  MetricKind = "mean"
	MetricCount MetricKind = "count"
)

// Metric is either the mean of a numeric column or a row count.
type Metric struct {
	Kind    MetricKind `json:"kind"`
	Measure Measure    `json:"measure,omitempty"`
}

func Mean(m Measure) Metric { return Metric{Kind: MetricMean, Measure: m} }

func Count() Metric { return Metric{Kind: MetricCount} }

// Order controls the row order of an aggregate table.
type Order string

const (
	OrderByKey     Order = "key"
	OrderCountDesc Order = "count_desc"
)

// AggregateRow is one group of an aggregate table. Key holds one value per
// grouping dimension, in grouping order.
type AggregateRow struct {
	Key   []string `json:"key"`
	Value float64  `json:"value"`
	Count int      `json:"count"`
}

// BoxStats summarises the distribution of a measure within one group.
type BoxStats struct {
	Key          []string  `json:"key"`
	Count        int       `json:"count"`
	Min          float64   `json:"min"`
	Q1           float64   `json:"q1"`
	Median       float64   `json:"median"`
	Q3           float64   `json:"q3"`
	Max          float64   `json:"max"`
	Mean         float64   `json:"mean"`
	LowerWhisker float64   `json:"lower_whisker"`
	UpperWhisker float64   `json:"upper_whisker"`
	Outliers     []float64 `json:"outliers,omitempty"`
}

// Histogram holds equal-width bins shared by every color group.
type Histogram struct {
	Edges  []float64        `json:"edges"`
	Groups []HistogramGroup `json:"groups"`
}

type HistogramGroup struct {
	Name   string `json:"name"`
	Counts []int  `json:"counts"`
	Total  int    `json:"total"`
}

// ChoroplethEntry is the value plotted for one US state.
type ChoroplethEntry struct {
	Code  string  `json:"code"`
	State string  `json:"state"`
	Value float64 `json:"value"`
	Count int     `json:"count"`
}

type Choropleth struct {
	Entries   []ChoroplethEntry `json:"entries"`
	Unmatched int               `json:"unmatched"`
}
