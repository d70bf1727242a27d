package pipeline

import (
	"math"
	"slices"
	"strings"

	"shipdash/internal/models"
)

const whiskerIQR = 1.5

// BoxPlot computes five-number summaries of a measure per group. With no
// grouping dimensions the whole view forms a single group.
func BoxPlot(view View, keys []models.Dimension, measure models.Measure) []models.BoxStats {
	type bucket struct {
		key    []string
		values []float64
	}

	buckets := make(map[string]*bucket)
	for _, rec := range view {
		key := groupKey(rec, keys)
		id := strings.Join(key, keySep)
		b, ok := buckets[id]
		if !ok {
			b = &bucket{key: key}
			buckets[id] = b
		}
		b.values = append(b.values, rec.Measure(measure))
	}

	out := make([]models.BoxStats, 0, len(buckets))
	for _, b := range buckets {
		stats := Summarize(b.values)
		stats.Key = b.key
		out = append(out, stats)
	}
	slices.SortFunc(out, func(a, b models.BoxStats) int {
		return CompareKeys(a.Key, b.Key, keys)
	})
	return out
}

// Summarize returns the distribution summary of values. Quartiles use linear
// interpolation between closest ranks; whiskers reach the most extreme
// values within 1.5 IQR of the box.
func Summarize(values []float64) models.BoxStats {
	if len(values) == 0 {
		return models.BoxStats{}
	}

	sorted := slices.Clone(values)
	slices.Sort(sorted)

	var sum float64
	for _, v := range sorted {
		sum += v
	}

	stats := models.BoxStats{
		Count:  len(sorted),
		Min:    sorted[0],
		Max:    sorted[len(sorted)-1],
		Q1:     Quantile(sorted, 0.25),
		Median: Quantile(sorted, 0.5),
		Q3:     Quantile(sorted, 0.75),
		Mean:   sum / float64(len(sorted)),
	}

	iqr := stats.Q3 - stats.Q1
	lowFence := stats.Q1 - whiskerIQR*iqr
	highFence := stats.Q3 + whiskerIQR*iqr

	stats.LowerWhisker = stats.Max
	stats.UpperWhisker = stats.Min
	for _, v := range sorted {
		if v < lowFence || v > highFence {
			stats.Outliers = append(stats.Outliers, v)
			continue
		}
		stats.LowerWhisker = math.Min(stats.LowerWhisker, v)
		stats.UpperWhisker = math.Max(stats.UpperWhisker, v)
	}
	return stats
}

// Quantile expects sorted input.
func Quantile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return math.NaN()
	}
	pos := p * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	return sorted[lo] + (pos-float64(lo))*(sorted[hi]-sorted[lo])
}
