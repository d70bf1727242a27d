package pipeline

import (
	"cmp"
	"fmt"
	"slices"
	"strconv"
	"strings"

	apperrors "shipdash/internal/errors"
	"shipdash/internal/models"
)

const keySep = "\x1f"

// Aggregate groups the view by the given dimensions and computes the metric
// per group, ordered by natural key order.
func Aggregate(view View, keys []models.Dimension, metric models.Metric) ([]models.AggregateRow, error) {
	return AggregateOrdered(view, keys, metric, models.OrderByKey)
}

// AggregateOrdered is Aggregate with an explicit row order. Only groups with
// at least one record are emitted.
func AggregateOrdered(view View, keys []models.Dimension, metric models.Metric, order models.Order) ([]models.AggregateRow, error) {
	if len(keys) == 0 {
		return nil, apperrors.Validation("aggregate needs at least one grouping dimension")
	}
	if metric.Kind != models.MetricCount && metric.Kind != models.MetricMean {
		return nil, apperrors.Validation(fmt.Sprintf("unknown metric %q", metric.Kind))
	}
	if metric.Kind == models.MetricMean && metric.Measure == "" {
		return nil, &apperrors.MissingColumnError{Column: ""}
	}

	type acc struct {
		key   []string
		sum   float64
		count int
	}

	groups := make(map[string]*acc)
	for _, rec := range view {
		key := groupKey(rec, keys)
		id := strings.Join(key, keySep)
		g, ok := groups[id]
		if !ok {
			g = &acc{key: key}
			groups[id] = g
		}
		g.count++
		if metric.Kind == models.MetricMean {
			g.sum += rec.Measure(metric.Measure)
		}
	}

	rows := make([]models.AggregateRow, 0, len(groups))
	for _, g := range groups {
		row := models.AggregateRow{Key: g.key, Count: g.count}
		switch metric.Kind {
		case models.MetricCount:
			row.Value = float64(g.count)
		case models.MetricMean:
			row.Value = g.sum / float64(g.count)
		}
		rows = append(rows, row)
	}

	SortRows(rows, keys, order)
	return rows, nil
}

// SortRows orders aggregate rows in place.
func SortRows(rows []models.AggregateRow, keys []models.Dimension, order models.Order) {
	slices.SortFunc(rows, func(a, b models.AggregateRow) int {
		if order == models.OrderCountDesc {
			if c := cmp.Compare(b.Count, a.Count); c != 0 {
				return c
			}
		}
		return CompareKeys(a.Key, b.Key, keys)
	})
}

// CompareKeys compares two group keys component-wise, numerically for
// numeric dimensions and lexicographically otherwise.
func CompareKeys(a, b []string, keys []models.Dimension) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		var dim models.Dimension
		if i < len(keys) {
			dim = keys[i]
		}
		if c := compareValue(a[i], b[i], dim); c != 0 {
			return c
		}
	}
	return cmp.Compare(len(a), len(b))
}

func compareValue(a, b string, dim models.Dimension) int {
	if dim.Numeric() {
		x, errA := strconv.Atoi(a)
		y, errB := strconv.Atoi(b)
		if errA == nil && errB == nil {
			return cmp.Compare(x, y)
		}
	}
	return strings.Compare(a, b)
}

func groupKey(rec models.Record, keys []models.Dimension) []string {
	key := make([]string, len(keys))
	for i, d := range keys {
		key[i] = rec.Dimension(d)
	}
	return key
}
