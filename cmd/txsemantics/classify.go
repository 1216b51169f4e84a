package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"txsemantics/internal/indexer"
	"txsemantics/internal/registry"
	"txsemantics/internal/standard"
	"txsemantics/pkg/workerpool"
)

const classifyWorkers = 4

func runClassify(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := setup(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()

	inputs, _ := cmd.Flags().GetStringSlice("address")
	if len(inputs) == 0 {
		return fmt.Errorf("address list is required")
	}

	ctx, stop := signalContext()
	defer stop()

	chainClient, err := dialChain(ctx, cfg)
	if err != nil {
		return err
	}
	defer chainClient.Close()

	b, err := openBackend(ctx, cfg.Store, logger)
	if err != nil {
		return err
	}
	defer b.close()

	return classifyAddresses(ctx, chainClient, b.registry, cfg.Network, inputs, cfg.Update, logger)
}

// classifyAddresses labels every address and registers the standard bundle
// of recognised token contracts. Accounts without code are skipped.
func classifyAddresses(ctx context.Context, chainClient standard.Chain, reg *registry.Registry, network string, inputs []string, update bool, logger *zap.Logger) error {
	return workerpool.Process(ctx, classifyWorkers, inputs, func(ctx context.Context, input string) error {
		address, err := indexer.ParseAddress(input)
		if err != nil {
			return err
		}

		result, found, err := standard.Classify(ctx, chainClient, network, address, logger)
		if err != nil {
			return fmt.Errorf("classify %s: %w", address.Hex(), err)
		}
		if !found {
			logger.Info("no code at address, skipped", zap.String("address", address.Hex()))
			return nil
		}

		if result.Contract != nil {
			if update {
				err = reg.InsertOrReplaceContract(ctx, *result.Contract)
			} else {
				err = reg.InsertContractStrict(ctx, *result.Contract)
				if errors.Is(err, registry.ErrDuplicateKey) {
					err = nil
				}
			}
			if err != nil {
				return fmt.Errorf("store contract %s: %w", result.Contract.ContractHash, err)
			}
		}
		if err := reg.InsertOrReplaceAddress(ctx, result.Label); err != nil {
			return fmt.Errorf("store address %s: %w", address.Hex(), err)
		}

		logger.Info("address classified",
			zap.String("network", network),
			zap.String("address", address.Hex()),
			zap.String("standard", result.Label.Standard),
			zap.String("label", result.Label.Label),
			zap.String("chash", result.Label.ContractHash),
		)
		return nil
	}, nil)
}
