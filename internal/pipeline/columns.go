package pipeline

import (
	apperrors "shipdash/internal/errors"
	"shipdash/internal/models"
)

// ParseDimension resolves a categorical column by name.
func ParseDimension(name string) (models.Dimension, error) {
	d, ok := models.LookupDimension(name)
	if !ok {
		return "", &apperrors.MissingColumnError{Column: name}
	}
	return d, nil
}

// ParseDimensions resolves each name in order.
func ParseDimensions(names []string) ([]models.Dimension, error) {
	dims := make([]models.Dimension, 0, len(names))
	for _, name := range names {
		d, err := ParseDimension(name)
		if err != nil {
			return nil, err
		}
		dims = append(dims, d)
	}
	return dims, nil
}

// ParseMeasure resolves a numeric column by name.
func ParseMeasure(name string) (models.Measure, error) {
	m, ok := models.LookupMeasure(name)
	if !ok {
		return "", &apperrors.MissingColumnError{Column: name}
	}
	return m, nil
}

// ParseMetric builds a metric from its kind and, for means, a column name.
// An empty kind means count.
func ParseMetric(kind, column string) (models.Metric, error) {
	switch models.MetricKind(kind) {
	case models.MetricCount, "":
		return models.Count(), nil
	case models.MetricMean:
		m, err := ParseMeasure(column)
		if err != nil {
			return models.Metric{}, err
		}
		return models.Mean(m), nil
	}
	return models.Metric{}, apperrors.Validation("unknown metric " + kind)
}
