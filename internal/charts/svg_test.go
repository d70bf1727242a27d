package charts

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shipdash/internal/models"
)

func render(t *testing.T, data models.ChartData) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	err := Render(&buf, data)
	return buf.String(), err
}

func TestRender_Bar(t *testing.T) {
	svg, err := render(t, models.ChartData{
		Spec: models.ChartSpec{ID: "region-lag", Title: "Region-wise Shipping Delay", Kind: models.ChartBar, YLabel: "days"},
		Table: []models.AggregateRow{
			{Key: []string{"East"}, Value: 3.5, Count: 2},
			{Key: []string{"North"}, Value: 1.5, Count: 2},
			{Key: []string{"West"}, Value: 5, Count: 1},
		},
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(svg, "<svg"), svg[:min(len(svg), 40)])
	assert.Contains(t, svg, "East")
	assert.Contains(t, svg, "West")
}

func TestRender_BarConstantValues(t *testing.T) {
	_, err := render(t, models.ChartData{
		Spec:  models.ChartSpec{ID: "shipping-volume", Kind: models.ChartBar},
		Table: []models.AggregateRow{{Key: []string{"Express"}, Value: 0, Count: 0}},
	})
	assert.NoError(t, err)
}

func TestRender_Line(t *testing.T) {
	svg, err := render(t, models.ChartData{
		Spec: models.ChartSpec{ID: "monthly-margin", Kind: models.ChartLine, GroupBy: []string{"Year-Month"}, Column: "Profit Margin"},
		Series: []models.Series{
			{Name: "Express", Labels: []string{"2013-01", "2013-02"}, Values: []float64{10, 12}},
			{Name: "Standard", Labels: []string{"2013-02"}, Values: []float64{8}},
		},
	})
	require.NoError(t, err)
	assert.Contains(t, svg, "2013-01")
	assert.Contains(t, svg, "Standard")
}

func TestRender_LineSinglePoint(t *testing.T) {
	_, err := render(t, models.ChartData{
		Spec:   models.ChartSpec{ID: "monthly-margin", Kind: models.ChartLine, GroupBy: []string{"Year-Month"}},
		Series: []models.Series{{Name: "Express", Labels: []string{"2013-01"}, Values: []float64{10}}},
	})
	assert.NoError(t, err)
}

func TestRender_Histogram(t *testing.T) {
	svg, err := render(t, models.ChartData{
		Spec: models.ChartSpec{ID: "shipping-cost", Kind: models.ChartHistogram},
		Histogram: &models.Histogram{
			Edges: []float64{0, 50, 100},
			Groups: []models.HistogramGroup{
				{Name: "Express", Counts: []int{1, 4}, Total: 5},
				{Name: "Standard", Counts: []int{6, 0}, Total: 6},
			},
		},
	})
	require.NoError(t, err)
	assert.Contains(t, svg, "50.0")
}

func TestRender_NoData(t *testing.T) {
	for _, data := range []models.ChartData{
		{Spec: models.ChartSpec{Kind: models.ChartBar}},
		{Spec: models.ChartSpec{Kind: models.ChartLine, GroupBy: []string{"Year-Month"}}},
		{Spec: models.ChartSpec{Kind: models.ChartHistogram}, Histogram: &models.Histogram{}},
	} {
		_, err := render(t, data)
		assert.ErrorIs(t, err, ErrNoData, data.Spec.Kind)
	}
}

func TestRender_Unsupported(t *testing.T) {
	_, err := render(t, models.ChartData{Spec: models.ChartSpec{Kind: models.ChartBox}})
	assert.ErrorIs(t, err, ErrUnsupported)
	assert.False(t, Supports(models.ChartChoropleth))
	assert.True(t, Supports(models.ChartHistogram))
}

func TestRender_ChartError(t *testing.T) {
	_, err := render(t, models.ChartData{Spec: models.ChartSpec{Kind: models.ChartBar}, Error: `missing column "Discount"`})
	assert.EqualError(t, err, `missing column "Discount"`)
}

func TestValueRange(t *testing.T) {
	r := valueRange([]float64{2, 2}, false)
	assert.Equal(t, 1.0, r.Min)
	assert.Equal(t, 3.0, r.Max)

	r = valueRange([]float64{5, 10}, true)
	assert.Equal(t, 0.0, r.Min)
	assert.Greater(t, r.Max, 10.0)

	r = valueRange([]float64{-4, 6}, true)
	assert.Less(t, r.Min, -4.0)
}

func TestCategoryTicks(t *testing.T) {
	labels := make([]string, 30)
	for i := range labels {
		labels[i] = string(rune('a' + i%26))
	}
	ticks := categoryTicks(labels)
	assert.LessOrEqual(t, len(ticks), maxXTicks)
	assert.Equal(t, 0.0, ticks[0].Value)
}
