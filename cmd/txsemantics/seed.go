package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"txsemantics/internal/standard"
)

func runSeed(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := setup(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signalContext()
	defer stop()

	b, err := openBackend(ctx, cfg.Store, logger)
	if err != nil {
		return err
	}
	defer b.close()

	n, err := standard.Seed(ctx, b.registry)
	if err != nil {
		return fmt.Errorf("seed signatures: %w", err)
	}
	logger.Info("signatures seeded", zap.Int("count", n))
	return nil
}
