package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"shipdash/internal/config"
	"shipdash/internal/dataset"
	"shipdash/internal/middleware"
	"shipdash/internal/observability"
	"shipdash/internal/server"
	"shipdash/internal/services"
	"shipdash/internal/ui/templates"
)

const (
	renderTimeout = 10 * time.Second
	cacheMaxAge   = "no-cache"
)

// dashboardHandler renders the page with every filter value selected.
func dashboardHandler(dashboard *services.Dashboard, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), renderTimeout)
		defer cancel()

		view := dashboard.Compute(ctx, dashboard.Options().All())

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", cacheMaxAge)
		if err := templates.Dashboard(view, dashboard.Options()).Render(ctx, w); err != nil {
			observability.LoggerFrom(ctx, logger).Error("render dashboard", "error", err)
			http.Error(w, "render error", http.StatusInternalServerError)
		}
	}
}

func buildDashboard(ctx context.Context, cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) (*services.Dashboard, error) {
	loader := dataset.NewLoader(cfg.Dataset.Path,
		dataset.WithCacheDir(cfg.Dataset.CacheDir),
		dataset.WithLogger(logger),
		dataset.WithWorkers(cfg.Dataset.Workers),
	)

	ctx, cancel := context.WithTimeout(ctx, cfg.Dataset.LoadTimeout)
	defer cancel()

	start := time.Now()
	data, err := loader.Load(ctx)
	if err != nil {
		return nil, err
	}
	logger.Info("dataset loaded",
		"records", len(data.Records),
		"from_cache", data.FromCache,
		"duration", time.Since(start),
	)

	catalogue := services.DefaultCatalogue()
	if cfg.Dashboard.ChartsFile != "" {
		overrides, err := services.LoadCatalogue(cfg.Dashboard.ChartsFile)
		if err != nil {
			return nil, err
		}
		catalogue = services.MergeCatalogue(catalogue, overrides)
	}

	return services.NewDashboard(data,
		services.WithLogger(logger),
		services.WithMetrics(metrics),
		services.WithHistogramBins(cfg.Dashboard.HistogramBins),
		services.WithCatalogue(catalogue),
	), nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.Logger)
	slog.SetDefault(logger)

	logger.Info("starting application",
		"version", observability.ServiceVersion,
		"config", cfg,
	)

	tracerProvider, err := observability.NewTracerProvider(cfg.Tracing)
	if err != nil {
		logger.Error("failed to set up tracing", "error", err)
		os.Exit(1)
	}

	metrics := observability.NewMetrics()

	dashboard, err := buildDashboard(context.Background(), cfg, logger, metrics)
	if err != nil {
		logger.Error("failed to load dataset", "path", cfg.Dataset.Path, "error", err)
		os.Exit(1)
	}

	templateHandlers := &server.TemplateHandlers{
		Dashboard: dashboardHandler(dashboard, logger),
	}

	rateLimiter := middleware.NewRateLimiter(cfg.Security)
	limiterCtx, stopLimiter := context.WithCancel(context.Background())
	go rateLimiter.Run(limiterCtx)

	srv := server.NewServer(dashboard, logger, metrics, templateHandlers,
		middleware.Recovery(logger),
		middleware.RequestID(),
		middleware.Logger(logger),
		middleware.Tracing(),
		middleware.Metrics(metrics),
		middleware.SecurityHeaders(),
		middleware.CORS(cfg.Security),
		middleware.TrustedProxy(cfg.Security),
		middleware.RateLimit(rateLimiter, logger),
	)

	httpServer := &http.Server{
		Addr:         cfg.Address(),
		Handler:      srv,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	gracefulServer := server.NewGracefulServer(httpServer, logger, cfg)

	gracefulServer.RegisterShutdownHook(func(ctx context.Context) error {
		stopLimiter()
		return nil
	})

	gracefulServer.RegisterShutdownHook(func(ctx context.Context) error {
		logger.Info("flushing traces")
		return tracerProvider.Shutdown(ctx)
	})

	logger.Info("starting graceful server")
	if err := gracefulServer.ListenAndServe(); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}

	logger.Info("application stopped gracefully")
}
