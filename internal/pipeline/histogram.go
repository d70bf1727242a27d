package pipeline

import (
	"math"
	"slices"

	"shipdash/internal/models"
)

// SturgesBins is the default bin count for n values.
func SturgesBins(n int) int {
	if n <= 1 {
		return 1
	}
	return int(math.Ceil(math.Log2(float64(n)))) + 1
}

// Histogram bins a measure into equal-width bins shared by every color
// group. color may be empty, in which case all values form one group named
// after the measure. bins <= 0 selects Sturges' rule.
func Histogram(view View, measure models.Measure, color models.Dimension, bins int) models.Histogram {
	if len(view) == 0 {
		return models.Histogram{}
	}
	if bins <= 0 {
		bins = SturgesBins(len(view))
	}

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, rec := range view {
		v := rec.Measure(measure)
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if lo == hi {
		lo -= 0.5
		hi += 0.5
	}

	width := (hi - lo) / float64(bins)
	edges := make([]float64, bins+1)
	for i := range edges {
		edges[i] = lo + float64(i)*width
	}
	edges[bins] = hi

	groups := make(map[string]*models.HistogramGroup)
	for _, rec := range view {
		name := string(measure)
		if color != "" {
			name = rec.Dimension(color)
		}
		g, ok := groups[name]
		if !ok {
			g = &models.HistogramGroup{Name: name, Counts: make([]int, bins)}
			groups[name] = g
		}
		g.Counts[binIndex(rec.Measure(measure), lo, width, bins)]++
		g.Total++
	}

	out := models.Histogram{Edges: edges, Groups: make([]models.HistogramGroup, 0, len(groups))}
	for _, g := range groups {
		out.Groups = append(out.Groups, *g)
	}
	slices.SortFunc(out.Groups, func(a, b models.HistogramGroup) int {
		return compareValue(a.Name, b.Name, color)
	})
	return out
}

func binIndex(v, lo, width float64, bins int) int {
	i := int((v - lo) / width)
	if i < 0 {
		return 0
	}
	if i >= bins {
		return bins - 1
	}
	return i
}
