package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"flowledger/internal/cli"
	"flowledger/internal/events"
	"flowledger/internal/log"
	"flowledger/internal/worker"
)

const statsInterval = 5 * time.Minute

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()

	logger.Info("Starting flowledger-worker")

	cfg := cli.LoadAndValidateConfig(logger)
	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the audit worker")
		os.Exit(1)
	}

	localStore := cli.InitLocalStore(logger, cfg.SQLiteDBPath)
	defer localStore.Close()

	client, err := events.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to connect to AMQP broker", "error", err)
		os.Exit(1)
	}
	defer client.Close()

	auditWorker := worker.NewAuditWorker(localStore, log.New(log.Config{
		Component: log.ComponentWorker,
		Handler:   logger.Handler(),
	}))

	ctx, cancel := cli.SignalContext(logger)
	defer cancel()

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		err := client.ConsumeChanges(groupCtx, func(msg *events.ChangeMessage) error {
			return auditWorker.HandleChange(groupCtx, msg)
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	group.Go(func() error {
		ticker := time.NewTicker(statsInterval)
		defer ticker.Stop()
		for {
			select {
			case <-groupCtx.Done():
				return nil
			case <-ticker.C:
				auditWorker.LogStats(groupCtx)
			}
		}
	})

	if err := group.Wait(); err != nil {
		logger.Error("Worker error", "error", err)
		os.Exit(1)
	}

	processed, failed := auditWorker.Stats()
	logger.Info("Worker stopped gracefully",
		slog.Int64("processed", processed),
		slog.Int64("failed", failed))
}
