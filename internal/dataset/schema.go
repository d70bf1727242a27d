package dataset

import (
	"math"
	"strconv"
	"strings"

	apperrors "shipdash/internal/errors"
	"shipdash/internal/models"
)

type field int

const (
	fieldYear field = iota
	fieldYearMonth
	fieldMarket
	fieldRegion
	fieldState
	fieldCategory
	fieldSubCategory
	fieldExpressFlag
	fieldShipMode
	fieldShipLag
	fieldShipLagAdjusted
	fieldShippingCost
	fieldProfitMargin
	fieldCount
)

var fieldNames = [fieldCount]string{
	fieldYear:            string(models.DimYear),
	fieldYearMonth:       string(models.DimYearMonth),
	fieldMarket:          string(models.DimMarket),
	fieldRegion:          string(models.DimRegion),
	fieldState:           string(models.DimState),
	fieldCategory:        string(models.DimCategory),
	fieldSubCategory:     string(models.DimSubCategory),
	fieldExpressFlag:     string(models.DimExpressFlag),
	fieldShipMode:        string(models.DimShipMode),
	fieldShipLag:         string(models.MeasureShipLag),
	fieldShipLagAdjusted: string(models.MeasureShipLagAdjusted),
	fieldShippingCost:    string(models.MeasureShippingCost),
	fieldProfitMargin:    string(models.MeasureProfitMargin),
}

// columnIndex maps each schema field to its position in a row.
type columnIndex [fieldCount]int

// bindHeader locates every schema column in the header. Extra columns are
// ignored; the first absent column fails the load.
func bindHeader(header []string) (columnIndex, error) {
	positions := make(map[string]int, len(header))
	for i, h := range header {
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		key := models.ColumnKey(h)
		if _, dup := positions[key]; !dup {
			positions[key] = i
		}
	}

	var idx columnIndex
	for f := field(0); f < fieldCount; f++ {
		pos, ok := positions[models.ColumnKey(fieldNames[f])]
		if !ok {
			return idx, &apperrors.MissingColumnError{Column: fieldNames[f]}
		}
		idx[f] = pos
	}
	return idx, nil
}

// parseRecord converts one raw row. row is the 1-based data row number used
// in error reports.
func parseRecord(values []string, row int, idx columnIndex) (models.Record, error) {
	get := func(f field) string {
		if p := idx[f]; p < len(values) {
			return strings.TrimSpace(values[p])
		}
		return ""
	}
	malformed := func(f field, reason string) error {
		return &apperrors.MalformedValueError{Row: row, Column: fieldNames[f], Value: get(f), Reason: reason}
	}
	number := func(f field) (float64, error) {
		v, err := strconv.ParseFloat(get(f), 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, malformed(f, "not a finite number")
		}
		return v, nil
	}

	var (
		rec models.Record
		err error
	)

	if rec.Year, err = strconv.Atoi(get(fieldYear)); err != nil {
		return rec, malformed(fieldYear, "not an integer")
	}

	flag, ok := models.ParseExpressFlag(get(fieldExpressFlag))
	if !ok {
		return rec, malformed(fieldExpressFlag, "expected Express or Standard")
	}
	rec.ExpressFlag = flag

	rec.YearMonth = get(fieldYearMonth)
	rec.Market = get(fieldMarket)
	rec.Region = get(fieldRegion)
	rec.State = get(fieldState)
	rec.Category = get(fieldCategory)
	rec.SubCategory = get(fieldSubCategory)
	rec.ShipMode = get(fieldShipMode)

	if rec.ShipLag, err = number(fieldShipLag); err != nil {
		return rec, err
	}
	if rec.ShipLagAdjusted, err = number(fieldShipLagAdjusted); err != nil {
		return rec, err
	}
	if rec.ShippingCost, err = number(fieldShippingCost); err != nil {
		return rec, err
	}

	margin, err := ParsePercent(get(fieldProfitMargin))
	if err != nil {
		return rec, malformed(fieldProfitMargin, err.Error())
	}
	rec.ProfitMargin = margin

	return rec, nil
}
