package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/starfederation/datastar-go/datastar"

	"shipdash/internal/errors"
	"shipdash/internal/models"
	"shipdash/internal/observability"
	"shipdash/internal/services"
	"shipdash/internal/ui/templates"
)

type SSEHandlers struct {
	dashboard *services.Dashboard
	logger    *slog.Logger
}

func NewSSEHandlers(dashboard *services.Dashboard, logger *slog.Logger) *SSEHandlers {
	return &SSEHandlers{
		dashboard: dashboard,
		logger:    logger,
	}
}

// HandleView recomputes the dashboard for the selection carried by the
// client signals and patches every chart plus the record count.
func (h *SSEHandlers) HandleView(w http.ResponseWriter, r *http.Request) {
	logger := observability.LoggerFrom(r.Context(), h.logger)
	requestID := observability.GetRequestID(r.Context())

	var req models.SelectionRequest
	if err := datastar.ReadSignals(r, &req); err != nil {
		errors.WriteError(w, r, h.logger, errors.BadRequestWrap(err, "invalid signals"), requestID)
		return
	}
	sel, err := h.dashboard.ResolveSelection(req)
	if err != nil {
		errors.WriteError(w, r, h.logger, err, requestID)
		return
	}

	view := h.dashboard.Compute(r.Context(), sel)

	sse := datastar.NewSSE(w, r)
	for _, panel := range view.Panels {
		for _, c := range panel.Charts {
			html, err := templates.RenderChart(c)
			if err != nil {
				logger.Error("render chart", "chart", c.Spec.ID, "error", err)
				continue
			}
			if err := sse.PatchElements(html); err != nil {
				logger.Warn("patch chart", "chart", c.Spec.ID, "error", err)
				return
			}
		}
	}

	signals, err := json.Marshal(map[string]any{
		"recordCount": view.RecordCount,
	})
	if err != nil {
		logger.Error("marshal signals", "error", err)
		return
	}
	if err := sse.PatchSignals(signals); err != nil {
		logger.Warn("patch signals", "error", err)
		return
	}

	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}
