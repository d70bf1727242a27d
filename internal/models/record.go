package models

import (
	"strconv"
	"strings"
)

const (
	FlagExpress  = "Express"
	FlagStandard = "Standard"
)

// Record is one row of the sales dataset after load-time normalization.
type Record struct {
	Year            int     `json:"year"`
	YearMonth       string  `json:"year_month"`
	Market          string  `json:"market"`
	Region          string  `json:"region"`
	State           string  `json:"state"`
	Category        string  `json:"category"`
	SubCategory     string  `json:"sub_category"`
	ExpressFlag     string  `json:"express_flag"`
	ShipMode        string  `json:"ship_mode"`
	ShipLag         float64 `json:"ship_lag"`
	ShipLagAdjusted float64 `json:"ship_lag_adjusted"`
	ShippingCost    float64 `json:"shipping_cost"`
	ProfitMargin    float64 `json:"profit_margin"`
}

// Dimension returns the string form of a categorical attribute.
func (r Record) Dimension(d Dimension) string {
	switch d {
	case DimYear:
		return strconv.Itoa(r.Year)
	case DimYearMonth:
		return r.YearMonth
	case DimMarket:
		return r.Market
	case DimRegion:
		return r.Region
	case DimState:
		return r.State
	case DimCategory:
		return r.Category
	case DimSubCategory:
		return r.SubCategory
	case DimExpressFlag:
		return r.ExpressFlag
	case DimShipMode:
		return r.ShipMode
	}
	return ""
}

// Measure returns a numeric attribute.
func (r Record) Measure(m Measure) float64 {
	switch m {
	case MeasureShipLag:
		return r.ShipLag
	case MeasureShipLagAdjusted:
		return r.ShipLagAdjusted
	case MeasureShippingCost:
		return r.ShippingCost
	case MeasureProfitMargin:
		return r.ProfitMargin
	}
	return 0
}

// ParseExpressFlag maps the categorical or boolean spellings of the flag
// onto FlagExpress / FlagStandard.
func ParseExpressFlag(raw string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "express", "true", "1", "yes", "y":
		return FlagExpress, true
	case "standard", "false", "0", "no", "n":
		return FlagStandard, true
	}
	return "", false
}
