package server

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"shipdash/internal/handlers"
	"shipdash/internal/observability"
	"shipdash/internal/services"
)

type Server struct {
	dashboard   *services.Dashboard
	router      chi.Router
	logger      *slog.Logger
	metrics     *observability.Metrics
	apiHandlers *handlers.APIHandlers
	sseHandlers *handlers.SSEHandlers
}

type TemplateHandlers struct {
	Dashboard http.HandlerFunc
}

// NewServer wires the routes. Middlewares run inside the router so they see
// the matched route pattern.
func NewServer(dashboard *services.Dashboard, logger *slog.Logger, metrics *observability.Metrics, templateHandlers *TemplateHandlers, middlewares ...func(http.Handler) http.Handler) *Server {
	s := &Server{
		dashboard:   dashboard,
		router:      chi.NewRouter(),
		logger:      logger,
		metrics:     metrics,
		apiHandlers: handlers.NewAPIHandlers(dashboard, logger),
		sseHandlers: handlers.NewSSEHandlers(dashboard, logger),
	}
	s.router.Use(middlewares...)
	s.setupRoutes(templateHandlers)
	return s
}

func (s *Server) setupRoutes(templateHandlers *TemplateHandlers) {
	// Dashboard routes
	s.router.Get("/", templateHandlers.Dashboard)
	s.router.Get("/health", s.apiHandlers.HandleHealth)
	s.router.Get("/admin/stats", s.apiHandlers.HandleStats)
	if s.metrics != nil {
		s.router.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	// REST API endpoints
	s.router.Route("/api", func(r chi.Router) {
		r.Get("/options", s.apiHandlers.HandleOptions)
		r.Get("/view", s.apiHandlers.HandleView)
		r.Get("/aggregate", s.apiHandlers.HandleAggregate)
		r.Get("/charts", s.apiHandlers.HandleCharts)
		r.Get("/charts/{chartID}", s.apiHandlers.HandleChart)
	})
	s.router.Get("/charts/{chartID}/svg", s.apiHandlers.HandleChartSVG)

	// Datastar SSE endpoints
	s.router.Get("/sse/view", s.sseHandlers.HandleView)
	s.router.Post("/sse/view", s.sseHandlers.HandleView)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
