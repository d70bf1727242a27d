package models

import "strings"

// Dimension names a categorical column.
type Dimension string

const (
	DimYear        Dimension = "Year"
	DimYearMonth   Dimension = "Year-Month"
	DimMarket      Dimension = "Market"
	DimRegion      Dimension = "Region"
	DimState       Dimension = "State"
	DimCategory    Dimension = "Category"
	DimSubCategory Dimension = "Sub-Category"
	DimExpressFlag Dimension = "Express Flag"
	DimShipMode    Dimension = "Ship Mode"
)

// Measure names a numeric column.
type Measure string

const (
	MeasureShipLag         Measure = "Ship Lag"
	MeasureShipLagAdjusted Measure = "Ship Lag Adjusted"
	MeasureShippingCost    Measure = "Shipping Cost"
	MeasureProfitMargin    Measure = "Profit Margin"
)

var (
	Dimensions = []Dimension{
		DimYear, DimYearMonth, DimMarket, DimRegion, DimState,
		DimCategory, DimSubCategory, DimExpressFlag, DimShipMode,
	}
	Measures = []Measure{
		MeasureShipLag, MeasureShipLagAdjusted, MeasureShippingCost, MeasureProfitMargin,
	}
	// FilterDimensions are the dimensions exposed as multi-select widgets.
	FilterDimensions = []Dimension{DimYear, DimMarket, DimRegion, DimExpressFlag}
)

// Numeric reports whether the dimension's values order numerically.
func (d Dimension) Numeric() bool {
	return d == DimYear
}

// ColumnKey folds a header or column name so that "Sub.Category",
// "sub_category" and "Sub-Category" compare equal.
func ColumnKey(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '.', '_', '-':
			return -1
		}
		return r
	}, name)
}

// LookupDimension resolves a column name to a Dimension.
func LookupDimension(name string) (Dimension, bool) {
	key := ColumnKey(name)
	for _, d := range Dimensions {
		if ColumnKey(string(d)) == key {
			return d, true
		}
	}
	return "", false
}

// LookupMeasure resolves a column name to a Measure.
func LookupMeasure(name string) (Measure, bool) {
	key := ColumnKey(name)
	for _, m := range Measures {
		if ColumnKey(string(m)) == key {
			return m, true
		}
	}
	return "", false
}
