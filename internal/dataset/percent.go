package dataset

import (
	"errors"
	"math"
	"strconv"
	"strings"
)

var (
	errNoPercentSign = errors.New("missing trailing %")
	errNotNumeric    = errors.New("non-numeric percentage")
)

// ParsePercent converts a percentage string such as "12.34%" into 12.34.
// The value is not divided by 100.
func ParsePercent(raw string) (float64, error) {
	s := strings.TrimSpace(raw)
	num, ok := strings.CutSuffix(s, "%")
	if !ok {
		return 0, errNoPercentSign
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(num), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, errNotNumeric
	}
	return v, nil
}
