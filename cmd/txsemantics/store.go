package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"txsemantics/internal/config"
	"txsemantics/internal/indexer"
	"txsemantics/internal/metrics"
	"txsemantics/internal/registry"
	"txsemantics/internal/storage/memory"
	"txsemantics/internal/storage/mongo"
	"txsemantics/internal/storage/pebble"
	"txsemantics/internal/storage/postgres"
)

// backend is an opened registry store. state is nil for stores that cannot
// hold an ingestion checkpoint.
type backend struct {
	registry *registry.Registry
	state    indexer.StateStore
	close    func()
}

func openBackend(ctx context.Context, cfg config.StoreConfig, logger *zap.Logger) (*backend, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var (
		store   registry.DocumentStore
		state   indexer.StateStore
		closeFn = func() {}
	)

	switch cfg.Backend {
	case config.StoreMemory:
		store = memory.NewStore()
	case config.StorePostgres:
		pg, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		if err := pg.EnsureSchema(ctx); err != nil {
			pg.Close()
			return nil, err
		}
		store, state, closeFn = pg, pg, pg.Close
	case config.StoreMongo:
		mg, err := mongo.NewStore(ctx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return nil, fmt.Errorf("connect mongo: %w", err)
		}
		store = mg
		closeFn = func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := mg.Close(closeCtx); err != nil {
				logger.Warn("mongo close failed", zap.Error(err))
			}
		}
	case config.StorePebble:
		pb, err := pebble.Open(pebble.Config{Path: cfg.PebblePath, CacheMB: cfg.PebbleCacheMB}, logger)
		if err != nil {
			return nil, fmt.Errorf("open pebble: %w", err)
		}
		store, state = pb, pb
		closeFn = func() {
			if err := pb.Close(); err != nil {
				logger.Warn("pebble close failed", zap.Error(err))
			}
		}
	}

	logger.Info("registry store opened", zap.String("store", cfg.Backend))
	return &backend{
		registry: registry.New(store, metrics.NewRegistry(cfg.Backend), logger),
		state:    state,
		close:    closeFn,
	}, nil
}
