package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"txsemantics/internal/indexer"
	"txsemantics/internal/normalize"
	"txsemantics/internal/payload"
)

func runNormalize(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := setup(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()

	kind, _ := cmd.Flags().GetString("kind")
	id, _ := cmd.Flags().GetString("id")
	if id == "" {
		return fmt.Errorf("id is required")
	}

	ctx, stop := signalContext()
	defer stop()

	chainClient, err := dialChain(ctx, cfg)
	if err != nil {
		return err
	}
	defer chainClient.Close()

	var (
		raw    payload.Map
		result interface{}
	)
	switch strings.ToLower(kind) {
	case "block":
		number, err := indexer.ParseBlockNumber(id)
		if err != nil {
			return err
		}
		if raw, err = chainClient.Block(ctx, number, false); err != nil {
			return fmt.Errorf("get block %d: %w", number, err)
		}
		result, err = normalize.Block(raw)
		if err != nil {
			return err
		}
	case "tx", "transaction":
		hash, err := indexer.ParseHash(id)
		if err != nil {
			return err
		}
		if raw, err = chainClient.Transaction(ctx, hash); err != nil {
			return fmt.Errorf("get transaction %s: %w", hash.Hex(), err)
		}
		result, err = normalize.Transaction(raw)
		if err != nil {
			return err
		}
	case "receipt":
		hash, err := indexer.ParseHash(id)
		if err != nil {
			return err
		}
		if raw, err = chainClient.TransactionReceipt(ctx, hash); err != nil {
			return fmt.Errorf("get receipt %s: %w", hash.Hex(), err)
		}
		result, err = normalize.Receipt(raw)
		if err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown kind %q (block, tx, receipt)", kind)
	}

	logger.Debug("normalized", zap.String("kind", kind), zap.String("id", id))

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}
