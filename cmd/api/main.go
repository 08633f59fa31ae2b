package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"

	"github.com/1tanmay/repo-analyse/internal/analysis"
	"github.com/1tanmay/repo-analyse/internal/api"
	"github.com/1tanmay/repo-analyse/internal/collector"
	"github.com/1tanmay/repo-analyse/internal/config"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)

	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Build the fetch pipeline
	client, err := collector.NewGitHubClient(collectorOptions(cfg), logger)
	if err != nil {
		logger.Error("failed to initialize GitHub client", "error", err)
		os.Exit(1)
	}
	coll, err := collector.NewCollector(client, collectorOptions(cfg), logger)
	if err != nil {
		logger.Error("failed to initialize collector", "error", err)
		os.Exit(1)
	}

	service := analysis.NewService(coll, logger)
	router := api.SetupRoutes(api.NewHandler(service), logger)

	srv := &http.Server{
		Addr:    cfg.APIAddr(),
		Handler: router,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("starting API server", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down", "grace", cfg.ShutdownGrace.String())

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownGrace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("forced shutdown", "error", err)
	}

	// Abort whatever analyses are still running before exiting.
	service.Close()
	logger.Info("server stopped")
}

func collectorOptions(cfg *config.Config) collector.Options {
	return collector.Options{
		Token:             cfg.GithubToken,
		BaseURL:           cfg.GithubBaseURL,
		HTTPTimeout:       cfg.HTTPTimeout,
		RequestsPerMinute: cfg.RequestsPerMinute,
		PerPage:           cfg.PerPage,
		MaxRetries:        cfg.MaxRetries,
		BackoffBase:       cfg.BackoffBase,
		BackoffMax:        cfg.BackoffMax,
		RateLimitMaxWait:  cfg.RateLimitMaxWait,
		StatsWorkers:      cfg.StatsWorkers,
		StatsCacheSize:    cfg.StatsCacheSize,
	}
}
