package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/V4T54L/honeytail/internal/adapter/api"
	"github.com/V4T54L/honeytail/internal/adapter/api/handler"
	"github.com/V4T54L/honeytail/internal/adapter/api/middleware"
	"github.com/V4T54L/honeytail/internal/adapter/metrics"
	"github.com/V4T54L/honeytail/internal/adapter/repository/journal"
	"github.com/V4T54L/honeytail/internal/adapter/repository/remote"
	"github.com/V4T54L/honeytail/internal/adapter/tailer"
	"github.com/V4T54L/honeytail/internal/pkg/config"
	"github.com/V4T54L/honeytail/internal/pkg/logger"
	"github.com/V4T54L/honeytail/internal/usecase"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := logger.New(cfg.LogLevel)
	slog.SetDefault(logger)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewShipperMetrics(reg)

	// --- Graceful Shutdown Context ---
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("starting honeypot log shipper",
		"source", cfg.SourceLogPath,
		"journal", cfg.JournalPath,
	)

	// --- Remote Sink ---
	sink, err := remote.NewSinkFromConfig(cfg, logger, m)
	if err != nil {
		logger.Warn("remote store unavailable, shipping to local journal only", "error", err)
	}
	defer sink.Close()

	// --- Admin and Metrics Server ---
	feed := handler.NewEventFeed(cfg.FeedBufferSize, logger, m)
	var adminServer *http.Server
	if cfg.AdminServerAddr != "" {
		adminServer = &http.Server{
			Addr:    cfg.AdminServerAddr,
			Handler: api.NewAdminRouter(logger, reg, sink, feed, middleware.NewStaticKeys(cfg.FeedKeys())),
		}
		go func() {
			logger.Info("starting admin & metrics server", "addr", adminServer.Addr)
			if err := adminServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("admin & metrics server failed", "error", err)
			}
		}()
	}

	exitCode := run(ctx, cfg, logger, sink, feed, m)

	if adminServer != nil {
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancelShutdown()
		if err := adminServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("admin server shutdown failed", "error", err)
		}
	}

	if exitCode != 0 {
		sink.Close()
		os.Exit(exitCode)
	}
	logger.Info("shipper stopped")
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger, sink *remote.Sink, feed *handler.EventFeed, m *metrics.ShipperMetrics) int {
	if err := tailer.WaitForFile(ctx, cfg.SourceLogPath, cfg.SourceWaitInterval, logger); err != nil {
		if ctx.Err() != nil {
			return 0
		}
		logger.Error("source file unavailable", "error", err)
		return 1
	}

	j, err := journal.Open(cfg.JournalPath, logger)
	if err != nil {
		logger.Error("failed to open local journal", "error", err)
		return 1
	}
	defer j.Close()

	source, err := tailer.Open(cfg.SourceLogPath, tailer.WithPollInterval(cfg.TailPollInterval), tailer.WithLogger(logger))
	if err != nil {
		logger.Error("failed to open source file", "error", err)
		return 1
	}
	defer source.Close()

	logger.Info("tailing source file", "path", cfg.SourceLogPath, "remote", sink.Status())

	shipper := usecase.NewShipEventUseCase(j, sink, feed, logger, m)
	if err := shipper.Run(ctx, source); err != nil {
		logger.Error("shipper stopped on fatal error", "error", err)
		return 1
	}
	return 0
}
