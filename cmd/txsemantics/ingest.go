package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"txsemantics/internal/config"
	"txsemantics/internal/indexer"
	"txsemantics/internal/metrics"
	"txsemantics/internal/storage"
)

const checkpointStateName = "ingest"

func runIngest(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := setup(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signalContext()
	defer stop()

	chainClient, err := dialChain(ctx, cfg)
	if err != nil {
		return err
	}
	defer chainClient.Close()

	chainID, err := chainClient.ChainID(ctx)
	if err != nil {
		return fmt.Errorf("get chain id: %w", err)
	}

	var checkpoint indexer.Checkpointer = indexer.NewCheckpointStore(cfg.Checkpoint, cfg.CheckpointEnabled)
	if cfg.CheckpointEnabled && cfg.CheckpointStore {
		b, err := openBackend(ctx, cfg.Store, logger)
		if err != nil {
			return err
		}
		defer b.close()
		if b.state == nil {
			return fmt.Errorf("store %s cannot hold checkpoints", cfg.Store.Backend)
		}
		checkpoint = indexer.StateCheckpoint{
			Store: b.state,
			Name:  fmt.Sprintf("%s-%s", checkpointStateName, chainID.String()),
		}
	}

	if cfg.MetricsAddr != "" {
		stopMetrics := serveMetrics(cfg.MetricsAddr, logger)
		defer stopMetrics()
	}

	runner := indexer.NewRunner(indexer.RunConfig{
		FromBlock:    cfg.FromBlock,
		ToBlock:      cfg.ToBlock,
		BatchSize:    cfg.BatchSize,
		Workers:      cfg.Workers,
		MaxRetries:   cfg.MaxRetries,
		RetryBackoff: cfg.RetryBackoff,
	}, chainClient, storage.NewJsonlStorage(cfg.Out, cfg.Errors), checkpoint, logger)
	runner.SetMetrics(metrics.NewIngester(chainID.Uint64()))

	logIngestStart(logger, cfg)
	return runner.Run(ctx)
}

func logIngestStart(logger *zap.Logger, cfg config.Config) {
	logger.Info("ingest start",
		zap.String("rpc", cfg.RPCURL),
		zap.Uint64("from", cfg.FromBlock),
		zap.Uint64("to", cfg.ToBlock),
		zap.Uint64("batch_size", cfg.BatchSize),
		zap.Int("workers", cfg.Workers),
		zap.String("out", cfg.Out),
		zap.String("errors", cfg.Errors),
		zap.Bool("checkpoint_enabled", cfg.CheckpointEnabled),
		zap.Bool("checkpoint_in_store", cfg.CheckpointStore),
		zap.String("checkpoint", cfg.Checkpoint),
	)
}

// serveMetrics exposes the default prometheus registry until the returned
// func is called.
func serveMetrics(addr string, logger *zap.Logger) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", zap.Error(err))
		}
	}()
	logger.Info("metrics server listening", zap.String("addr", addr))

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}
