package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"shipdash/internal/models"
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func writeCatalogue(w io.Writer, format string, specs []models.ChartSpec) error {
	if format == "json" {
		return writeJSON(w, specs)
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tPANEL\tKIND\tTITLE")
	for _, s := range specs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", s.ID, s.Panel, s.Kind, s.Title)
	}
	return tw.Flush()
}

func writeOptions(w io.Writer, format string, opts models.FilterOptions) error {
	if format == "json" {
		return writeJSON(w, opts)
	}
	years := make([]string, len(opts.Years))
	for i, y := range opts.Years {
		years[i] = strconv.Itoa(y)
	}
	tw := newTable(w)
	fmt.Fprintf(tw, "Year\t%s\n", strings.Join(years, ", "))
	fmt.Fprintf(tw, "Market\t%s\n", strings.Join(opts.Markets, ", "))
	fmt.Fprintf(tw, "Region\t%s\n", strings.Join(opts.Regions, ", "))
	fmt.Fprintf(tw, "Express Flag\t%s\n", strings.Join(opts.ExpressFlags, ", "))
	return tw.Flush()
}

func writeRows(w io.Writer, format string, groupBy []string, rows []models.AggregateRow) error {
	if format == "json" {
		return writeJSON(w, rows)
	}
	tw := newTable(w)
	fmt.Fprintf(tw, "%s\tVALUE\tCOUNT\n", strings.Join(groupBy, "\t"))
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%d\n", strings.Join(r.Key, "\t"), num(r.Value), r.Count)
	}
	return tw.Flush()
}

func writeChart(w io.Writer, format string, data models.ChartData) error {
	if format == "json" {
		return writeJSON(w, data)
	}
	if data.Error != "" {
		return fmt.Errorf("chart %s: %s", data.Spec.ID, data.Error)
	}

	fmt.Fprintf(w, "%s (%s)\n\n", data.Spec.Title, data.Spec.ID)
	switch data.Spec.Kind {
	case models.ChartBar:
		keys := data.Spec.GroupBy
		if data.Spec.XLabel != "" && len(keys) == 1 {
			keys = []string{data.Spec.XLabel}
		}
		return writeRows(w, format, keys, data.Table)
	case models.ChartLine:
		tw := newTable(w)
		fmt.Fprintln(tw, "SERIES\tX\tVALUE")
		for _, s := range data.Series {
			for i, label := range s.Labels {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", s.Name, label, num(s.Values[i]))
			}
		}
		return tw.Flush()
	case models.ChartBox:
		return writeBoxes(w, data.Boxes)
	case models.ChartHistogram:
		if err := writeHistogram(w, data.Histogram); err != nil {
			return err
		}
		fmt.Fprintln(w)
		return writeBoxes(w, data.Marginal)
	case models.ChartChoropleth:
		tw := newTable(w)
		fmt.Fprintln(tw, "STATE\tCODE\tVALUE\tCOUNT")
		if data.Choropleth != nil {
			for _, e := range data.Choropleth.Entries {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\n", e.State, e.Code, num(e.Value), e.Count)
			}
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		if data.Choropleth != nil && data.Choropleth.Unmatched > 0 {
			fmt.Fprintf(w, "\n%d rows with an unrecognized state\n", data.Choropleth.Unmatched)
		}
		return nil
	}
	return fmt.Errorf("unknown chart kind %q", data.Spec.Kind)
}

func writeBoxes(w io.Writer, boxes []models.BoxStats) error {
	tw := newTable(w)
	fmt.Fprintln(tw, "GROUP\tN\tMIN\tQ1\tMEDIAN\tQ3\tMAX\tMEAN\tOUTLIERS")
	for _, b := range boxes {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\t%s\t%s\t%s\t%d\n",
			strings.Join(b.Key, " / "), b.Count,
			num(b.Min), num(b.Q1), num(b.Median), num(b.Q3), num(b.Max), num(b.Mean),
			len(b.Outliers))
	}
	return tw.Flush()
}

func writeHistogram(w io.Writer, h *models.Histogram) error {
	if h == nil {
		return nil
	}
	tw := newTable(w)
	fmt.Fprint(tw, "BIN")
	for _, g := range h.Groups {
		fmt.Fprintf(tw, "\t%s", g.Name)
	}
	fmt.Fprintln(tw)
	for bin := 0; bin+1 < len(h.Edges); bin++ {
		fmt.Fprintf(tw, "[%s, %s)", num(h.Edges[bin]), num(h.Edges[bin+1]))
		for _, g := range h.Groups {
			fmt.Fprintf(tw, "\t%d", g.Counts[bin])
		}
		fmt.Fprintln(tw)
	}
	return tw.Flush()
}
