package models

// Selection holds the allowed values per filter dimension. An empty slice
// matches nothing for that dimension.
type Selection struct {
	Years        []int    `json:"years"`
	Markets      []string `json:"markets"`
	Regions      []string `json:"regions"`
	ExpressFlags []string `json:"express_flags"`
}

// IsEmpty reports whether any dimension has no selected values, in which
// case no record can match.
func (s Selection) IsEmpty() bool {
	return len(s.Years) == 0 || len(s.Markets) == 0 || len(s.Regions) == 0 || len(s.ExpressFlags) == 0
}

// FilterOptions lists the sorted distinct values of each filter dimension in
// the full dataset.
type FilterOptions struct {
	Years        []int    `json:"years"`
	Markets      []string `json:"markets"`
	Regions      []string `json:"regions"`
	ExpressFlags []string `json:"express_flags"`
}

// All returns the default selection with every observed value selected.
func (o FilterOptions) All() Selection {
	return Selection{
		Years:        append([]int{}, o.Years...),
		Markets:      append([]string{}, o.Markets...),
		Regions:      append([]string{}, o.Regions...),
		ExpressFlags: append([]string{}, o.ExpressFlags...),
	}
}

// SelectionRequest is a selection as received from a client. A nil slice
// means the dimension was not sent and defaults to every observed value; an
// empty non-nil slice selects nothing.
type SelectionRequest struct {
	Years        []string `json:"years"`
	Markets      []string `json:"markets"`
	Regions      []string `json:"regions"`
	ExpressFlags []string `json:"express"`
}
