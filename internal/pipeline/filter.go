// Package pipeline turns the full dataset and a filter selection into the
// filtered view and the aggregate tables the dashboard charts consume.
//
// Every function here is a pure function of its inputs. Nothing is cached
// between calls.
package pipeline

import (
	"shipdash/internal/models"
)

// View is the subset of records that passed a selection.
type View []models.Record

// ComputeView returns the records whose Year, Market, Region and Express
// Flag are each members of the corresponding selection set. Dimensions are
// AND-combined; values within a dimension are OR-combined. An empty set in
// any dimension yields an empty view.
func ComputeView(records []models.Record, sel models.Selection) View {
	if sel.IsEmpty() {
		return View{}
	}

	m := newMatcher(sel)
	view := make(View, 0, len(records))
	for _, rec := range records {
		if m.match(rec) {
			view = append(view, rec)
		}
	}
	return view
}

// Matches reports whether a single record passes the selection.
func Matches(rec models.Record, sel models.Selection) bool {
	if sel.IsEmpty() {
		return false
	}
	return newMatcher(sel).match(rec)
}

type matcher struct {
	years   map[int]struct{}
	markets map[string]struct{}
	regions map[string]struct{}
	flags   map[string]struct{}
}

func newMatcher(sel models.Selection) matcher {
	years := make(map[int]struct{}, len(sel.Years))
	for _, y := range sel.Years {
		years[y] = struct{}{}
	}
	return matcher{
		years:   years,
		markets: toSet(sel.Markets),
		regions: toSet(sel.Regions),
		flags:   toSet(sel.ExpressFlags),
	}
}

func (m matcher) match(rec models.Record) bool {
	if _, ok := m.years[rec.Year]; !ok {
		return false
	}
	if _, ok := m.markets[rec.Market]; !ok {
		return false
	}
	if _, ok := m.regions[rec.Region]; !ok {
		return false
	}
	_, ok := m.flags[rec.ExpressFlag]
	return ok
}

func toSet(items []string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, item := range items {
		set[item] = struct{}{}
	}
	return set
}
