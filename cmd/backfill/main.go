package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/V4T54L/honeytail/internal/adapter/metrics"
	"github.com/V4T54L/honeytail/internal/adapter/repository/journal"
	"github.com/V4T54L/honeytail/internal/adapter/repository/remote"
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

	journalPath := flag.String("journal", cfg.JournalPath, "Path of the local journal to replay")
	flag.Parse()

	log := logger.New(cfg.LogLevel)
	log.Info("starting journal backfill", "journal", *journalPath)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	m := metrics.NewShipperMetrics(nil)
	sink, err := remote.NewSinkFromConfig(cfg, log, m)
	if err != nil {
		log.Error("remote store is not usable", "error", err)
		os.Exit(1)
	}
	defer sink.Close()

	j, err := journal.Open(*journalPath, log)
	if err != nil {
		log.Error("failed to open local journal", "error", err)
		os.Exit(1)
	}
	defer j.Close()

	res, err := usecase.NewBackfillUseCase(j, sink, log).Backfill(ctx)
	if err != nil {
		log.Error("backfill aborted", "error", err, "replayed", res.Replayed, "failed", res.Failed)
		os.Exit(1)
	}
	if res.Failed > 0 {
		log.Warn("backfill finished with failures, rerun to retry", "failed", res.Failed)
		os.Exit(2)
	}
}
