package handlers

import (
	"bytes"
	stderrors "errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"shipdash/internal/charts"
	"shipdash/internal/errors"
	"shipdash/internal/models"
	"shipdash/internal/observability"
	"shipdash/internal/services"
)

const (
	defaultRecordLimit = 100
	maxRecordLimit     = 10000
	cacheMaxAge        = "public, max-age=300"
)

type APIHandlers struct {
	dashboard *services.Dashboard
	logger    *slog.Logger
}

func NewAPIHandlers(dashboard *services.Dashboard, logger *slog.Logger) *APIHandlers {
	return &APIHandlers{
		dashboard: dashboard,
		logger:    logger,
	}
}

type viewResponse struct {
	Selection   models.Selection `json:"selection"`
	RecordCount int              `json:"record_count"`
	TotalCount  int              `json:"total_count"`
	Records     []models.Record  `json:"records"`
}

type aggregateResponse struct {
	GroupBy []string              `json:"group_by"`
	Metric  string                `json:"metric"`
	Column  string                `json:"column,omitempty"`
	Rows    []models.AggregateRow `json:"rows"`
}

func (h *APIHandlers) HandleOptions(w http.ResponseWriter, r *http.Request) {
	headers := map[string]string{
		"Cache-Control": cacheMaxAge,
	}
	errors.WriteSuccessWithHeaders(w, r, h.dashboard.Options(), headers)
}

func (h *APIHandlers) HandleView(w http.ResponseWriter, r *http.Request) {
	sel, ok := h.selection(w, r)
	if !ok {
		return
	}

	limit, err := parseLimit(r.URL.Query().Get("limit"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	view := h.dashboard.View(sel)
	records := view
	if len(records) > limit {
		records = records[:limit]
	}

	errors.WriteSuccess(w, r, viewResponse{
		Selection:   sel,
		RecordCount: len(view),
		TotalCount:  h.dashboard.TotalCount(),
		Records:     records,
	})
}

func (h *APIHandlers) HandleCharts(w http.ResponseWriter, r *http.Request) {
	sel, ok := h.selection(w, r)
	if !ok {
		return
	}
	errors.WriteSuccess(w, r, h.dashboard.Compute(r.Context(), sel))
}

func (h *APIHandlers) HandleChart(w http.ResponseWriter, r *http.Request) {
	sel, ok := h.selection(w, r)
	if !ok {
		return
	}

	data, err := h.dashboard.ComputeChart(r.Context(), chi.URLParam(r, "chartID"), sel)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	errors.WriteSuccess(w, r, data)
}

func (h *APIHandlers) HandleChartSVG(w http.ResponseWriter, r *http.Request) {
	sel, ok := h.selection(w, r)
	if !ok {
		return
	}

	data, err := h.dashboard.ComputeChart(r.Context(), chi.URLParam(r, "chartID"), sel)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if !charts.Supports(data.Spec.Kind) {
		h.writeError(w, r, errors.BadRequest("chart "+data.Spec.ID+" has no SVG rendering"))
		return
	}

	var buf bytes.Buffer
	switch err := charts.Render(&buf, data); {
	case stderrors.Is(err, charts.ErrNoData):
		w.WriteHeader(http.StatusNoContent)
		return
	case err != nil:
		h.writeError(w, r, errors.InternalWrap(err, "render chart"))
		return
	}

	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Cache-Control", "no-cache")
	w.Write(buf.Bytes())
}

func (h *APIHandlers) HandleAggregate(w http.ResponseWriter, r *http.Request) {
	sel, ok := h.selection(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	groupBy := splitList(q["group_by"])
	if len(groupBy) == 0 {
		h.writeError(w, r, errors.Validation("group_by is required"))
		return
	}
	metric := q.Get("metric")
	column := q.Get("column")

	rows, err := h.dashboard.Aggregate(r.Context(), sel, groupBy, metric, column, models.Order(q.Get("order")))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if metric == "" {
		metric = string(models.MetricCount)
	}

	errors.WriteSuccess(w, r, aggregateResponse{
		GroupBy: groupBy,
		Metric:  metric,
		Column:  column,
		Rows:    rows,
	})
}

func (h *APIHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {

	healthData := map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
		"version":   observability.ServiceVersion,
	}

	errors.WriteSuccess(w, r, healthData)
}

func (h *APIHandlers) HandleStats(w http.ResponseWriter, r *http.Request) {

	stats := h.dashboard.Stats()

	errors.WriteSuccess(w, r, stats)
}

func (h *APIHandlers) selection(w http.ResponseWriter, r *http.Request) (models.Selection, bool) {
	sel, err := h.dashboard.ResolveSelection(SelectionFromQuery(r.URL.Query()))
	if err != nil {
		h.writeError(w, r, err)
		return models.Selection{}, false
	}
	return sel, true
}

func (h *APIHandlers) writeError(w http.ResponseWriter, r *http.Request, err error) {
	errors.WriteError(w, r, h.logger, err, observability.GetRequestID(r.Context()))
}

// SelectionFromQuery reads year, market, region and express parameters. An
// absent parameter selects every value; a present but empty one selects
// none. Values may repeat or be comma separated.
func SelectionFromQuery(q url.Values) models.SelectionRequest {
	return models.SelectionRequest{
		Years:        queryList(q, "year"),
		Markets:      queryList(q, "market"),
		Regions:      queryList(q, "region"),
		ExpressFlags: queryList(q, "express"),
	}
}

func queryList(q url.Values, key string) []string {
	raw, ok := q[key]
	if !ok {
		return nil
	}
	return splitList(raw)
}

func splitList(raw []string) []string {
	out := []string{}
	for _, v := range raw {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func parseLimit(raw string) (int, error) {
	if raw == "" {
		return defaultRecordLimit, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 || n > maxRecordLimit {
		return 0, errors.Validation("limit must be an integer between 0 and " + strconv.Itoa(maxRecordLimit))
	}
	return n, nil
}
