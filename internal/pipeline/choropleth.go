package pipeline

import (
	"slices"
	"strings"

	"shipdash/internal/models"
)

// Choropleth computes the mean of a measure per US state, keyed by USPS
// code. Names and codes of the same state fall into one entry. Rows whose
// state is neither a known name nor a known code are counted in Unmatched.
func Choropleth(view View, measure models.Measure) models.Choropleth {
	type acc struct {
		sum   float64
		count int
	}

	var out models.Choropleth
	byCode := make(map[string]*acc)
	for _, rec := range view {
		code, ok := StateCode(rec.State)
		if !ok {
			out.Unmatched++
			continue
		}
		a, ok := byCode[code]
		if !ok {
			a = &acc{}
			byCode[code] = a
		}
		a.sum += rec.Measure(measure)
		a.count++
	}

	out.Entries = make([]models.ChoroplethEntry, 0, len(byCode))
	for code, a := range byCode {
		out.Entries = append(out.Entries, models.ChoroplethEntry{
			Code:  code,
			State: stateNames[code],
			Value: a.sum / float64(a.count),
			Count: a.count,
		})
	}
	slices.SortFunc(out.Entries, func(a, b models.ChoroplethEntry) int {
		return strings.Compare(a.Code, b.Code)
	})
	return out
}

// StateCode maps a US state name or USPS code to the code.
func StateCode(state string) (string, bool) {
	s := strings.TrimSpace(state)
	if len(s) == 2 {
		code := strings.ToUpper(s)
		if _, ok := stateNames[code]; ok {
			return code, true
		}
		return "", false
	}
	code, ok := stateCodes[strings.ToLower(s)]
	return code, ok
}

var stateNames = map[string]string{
	"AL": "Alabama", "AK": "Alaska", "AZ": "Arizona", "AR": "Arkansas",
	"CA": "California", "CO": "Colorado", "CT": "Connecticut", "DE": "Delaware",
	"DC": "District of Columbia", "FL": "Florida", "GA": "Georgia", "HI": "Hawaii",
	"ID": "Idaho", "IL": "Illinois", "IN": "Indiana", "IA": "Iowa",
	"KS": "Kansas", "KY": "Kentucky", "LA": "Louisiana", "ME": "Maine",
	"MD": "Maryland", "MA": "Massachusetts", "MI": "Michigan", "MN": "Minnesota",
	"MS": "Mississippi", "MO": "Missouri", "MT": "Montana", "NE": "Nebraska",
	"NV": "Nevada", "NH": "New Hampshire", "NJ": "New Jersey", "NM": "New Mexico",
	"NY": "New York", "NC": "North Carolina", "ND": "North Dakota", "OH": "Ohio",
	"OK": "Oklahoma", "OR": "Oregon", "PA": "Pennsylvania", "RI": "Rhode Island",
	"SC": "South Carolina", "SD": "South Dakota", "TN": "Tennessee", "TX": "Texas",
	"UT": "Utah", "VT": "Vermont", "VA": "Virginia", "WA": "Washington",
	"WV": "West Virginia", "WI": "Wisconsin", "WY": "Wyoming",
}

var stateCodes = func() map[string]string {
	m := make(map[string]string, len(stateNames))
	for code, name := range stateNames {
		m[strings.ToLower(name)] = code
	}
	return m
}()
