package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"priceboard/internal/config"
	"priceboard/internal/middleware"
	"priceboard/internal/observability"
	"priceboard/internal/server"
	"priceboard/internal/services"
	"priceboard/internal/ui"
)

const (
	renderTimeout = 10 * time.Second
	loadTimeout   = 30 * time.Second
)

func handleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), renderTimeout)
	defer cancel()

	w.Header().Set("Cache-Control", "public, max-age=300")
	if err := ui.Dashboard().Render(ctx, w); err != nil {
		http.Error(w, "render error", http.StatusInternalServerError)
	}
}

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file found")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.Logger)
	slog.SetDefault(logger)

	logger.Info("starting application",
		"version", "1.0.0",
		"products_file", cfg.Data.ProductsFile,
	)

	pipeline, err := services.NewPipeline(cfg.Pipeline, logger)
	if err != nil {
		logger.Error("failed to build pipeline", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
	defer cancel()

	// The product table is mandatory; each summary table degrades to a
	// disabled view on failure.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return pipeline.LoadProducts(gctx, cfg.Data.ProductsFile)
	})
	g.Go(func() error {
		if err := pipeline.LoadSubcategorySummary(cfg.Data.SubcategorySummaryFile); err != nil {
			logger.Warn("subcategory summary view unavailable", "error", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := pipeline.LoadSupplierSummary(cfg.Data.SupplierSummaryFile); err != nil {
			logger.Warn("supplier summary view unavailable", "error", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		logger.Error("failed to load product data", "error", err)
		os.Exit(1)
	}

	templateHandlers := &server.TemplateHandlers{
		Dashboard: handleDashboard,
	}

	srv := server.NewServer(pipeline, logger, templateHandlers)

	rateLimiter := middleware.NewRateLimiter(cfg.Security)

	middlewareChain := middleware.Chain(
		middleware.Recovery(logger),
		middleware.RequestID(),
		middleware.Logger(logger),
		middleware.CORS(cfg.Security),
		middleware.RateLimit(rateLimiter, logger),
	)

	httpServer := &http.Server{
		Addr:         cfg.Address(),
		Handler:      middlewareChain(srv),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	gracefulServer := server.NewGracefulServer(httpServer, logger, cfg)

	gracefulServer.RegisterShutdownHook(func(ctx context.Context) error {
		logger.Info("shutting down pipeline")
		return nil
	})

	if err := gracefulServer.ListenAndServe(); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}

	logger.Info("application stopped gracefully")
}
