package pipeline

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shipdash/internal/models"
)

func TestSummarize(t *testing.T) {
	stats := Summarize([]float64{4, 100, 1, 3, 2})

	assert.Equal(t, 5, stats.Count)
	assert.Equal(t, 1.0, stats.Min)
	assert.Equal(t, 100.0, stats.Max)
	assert.Equal(t, 2.0, stats.Q1)
	assert.Equal(t, 3.0, stats.Median)
	assert.Equal(t, 4.0, stats.Q3)
	assert.Equal(t, 22.0, stats.Mean)
	assert.Equal(t, 1.0, stats.LowerWhisker)
	assert.Equal(t, 4.0, stats.UpperWhisker)
	assert.Equal(t, []float64{100}, stats.Outliers)
}

func TestSummarize_SingleValue(t *testing.T) {
	stats := Summarize([]float64{7})

	assert.Equal(t, 1, stats.Count)
	for _, v := range []float64{stats.Min, stats.Q1, stats.Median, stats.Q3, stats.Max, stats.LowerWhisker, stats.UpperWhisker} {
		assert.Equal(t, 7.0, v)
	}
	assert.Empty(t, stats.Outliers)
}

func TestSummarize_Empty(t *testing.T) {
	assert.Equal(t, models.BoxStats{}, Summarize(nil))
}

func TestQuantile(t *testing.T) {
	sorted := []float64{1, 2, 3, 4}

	assert.Equal(t, 1.0, Quantile(sorted, 0))
	assert.Equal(t, 2.5, Quantile(sorted, 0.5))
	assert.InDelta(t, 1.75, Quantile(sorted, 0.25), 1e-9)
	assert.Equal(t, 4.0, Quantile(sorted, 1))
	assert.True(t, math.IsNaN(Quantile(nil, 0.5)))
}

func TestBoxPlot_GroupsSortedByKey(t *testing.T) {
	boxes := BoxPlot(View(sampleRecords()), []models.Dimension{models.DimExpressFlag}, models.MeasureProfitMargin)

	require.Len(t, boxes, 2)
	assert.Equal(t, []string{"Express"}, boxes[0].Key)
	assert.Equal(t, 3, boxes[0].Count)
	assert.Equal(t, 22.0, boxes[0].Median)
	assert.Equal(t, []string{"Standard"}, boxes[1].Key)
	assert.Equal(t, 3, boxes[1].Count)
	assert.Equal(t, 8.0, boxes[1].Median)
}

func TestBoxPlot_NoKeysSingleGroup(t *testing.T) {
	boxes := BoxPlot(View(sampleRecords()), nil, models.MeasureShipLag)

	require.Len(t, boxes, 1)
	assert.Empty(t, boxes[0].Key)
	assert.Equal(t, 6, boxes[0].Count)
	assert.Equal(t, 0.0, boxes[0].Min)
	assert.Equal(t, 6.0, boxes[0].Max)
}

func TestBoxPlot_EmptyView(t *testing.T) {
	assert.Empty(t, BoxPlot(View{}, []models.Dimension{models.DimRegion}, models.MeasureShipLag))
}

func TestSturgesBins(t *testing.T) {
	assert.Equal(t, 1, SturgesBins(0))
	assert.Equal(t, 1, SturgesBins(1))
	assert.Equal(t, 2, SturgesBins(2))
	assert.Equal(t, 3, SturgesBins(3))
	assert.Equal(t, 11, SturgesBins(1000))
}

func TestHistogram_SharedEdges(t *testing.T) {
	view := View{
		{ExpressFlag: models.FlagExpress, ShippingCost: 0},
		{ExpressFlag: models.FlagStandard, ShippingCost: 4},
		{ExpressFlag: models.FlagStandard, ShippingCost: 6},
		{ExpressFlag: models.FlagExpress, ShippingCost: 10},
	}

	h := Histogram(view, models.MeasureShippingCost, models.DimExpressFlag, 2)

	assert.Equal(t, []float64{0, 5, 10}, h.Edges)
	require.Len(t, h.Groups, 2)
	assert.Equal(t, models.HistogramGroup{Name: "Express", Counts: []int{1, 1}, Total: 2}, h.Groups[0])
	assert.Equal(t, models.HistogramGroup{Name: "Standard", Counts: []int{1, 1}, Total: 2}, h.Groups[1])
}

func TestHistogram_ConstantValues(t *testing.T) {
	view := View{{ShippingCost: 5}, {ShippingCost: 5}, {ShippingCost: 5}}

	h := Histogram(view, models.MeasureShippingCost, "", 0)

	require.Len(t, h.Edges, 4)
	assert.Equal(t, 4.5, h.Edges[0])
	assert.Equal(t, 5.5, h.Edges[3])
	require.Len(t, h.Groups, 1)
	assert.Equal(t, "Shipping Cost", h.Groups[0].Name)
	assert.Equal(t, []int{0, 3, 0}, h.Groups[0].Counts)
}

func TestHistogram_TotalsMatchView(t *testing.T) {
	view := View(sampleRecords())
	h := Histogram(view, models.MeasureShippingCost, models.DimExpressFlag, 0)

	total := 0
	for _, g := range h.Groups {
		sum := 0
		for _, c := range g.Counts {
			sum += c
		}
		assert.Equal(t, g.Total, sum)
		total += g.Total
	}
	assert.Equal(t, len(view), total)
	assert.Empty(t, Histogram(View{}, models.MeasureShippingCost, "", 0).Groups)
}

func TestChoropleth(t *testing.T) {
	ch := Choropleth(View(sampleRecords()), models.MeasureProfitMargin)

	assert.Equal(t, 2, ch.Unmatched)
	require.Len(t, ch.Entries, 3)

	assert.Equal(t, models.ChoroplethEntry{Code: "CA", State: "California", Value: 30, Count: 1}, ch.Entries[0])
	assert.Equal(t, models.ChoroplethEntry{Code: "NY", State: "New York", Value: 11.5, Count: 2}, ch.Entries[1])
	assert.Equal(t, models.ChoroplethEntry{Code: "TX", State: "Texas", Value: 22, Count: 1}, ch.Entries[2])
}

func TestStateCode(t *testing.T) {
	tests := []struct {
		in   string
		code string
		ok   bool
	}{
		{"California", "CA", true},
		{" new york ", "NY", true},
		{"tx", "TX", true},
		{"District of Columbia", "DC", true},
		{"Bavaria", "", false},
		{"ZZ", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		code, ok := StateCode(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.code, code, tt.in)
	}
}
