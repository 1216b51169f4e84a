package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync/atomic"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"txsemantics/internal/model"
	"txsemantics/internal/registry"
)

const importConcurrency = 8

// semanticsFile is the import document layout.
type semanticsFile struct {
	Contracts  []model.Contract     `json:"contracts"`
	Addresses  []model.AddressLabel `json:"addresses"`
	Signatures []model.Signature    `json:"signatures"`
}

type importStats struct {
	written int64
	skipped int64
}

func runImport(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := setup(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if len(cfg.Files) == 0 {
		return fmt.Errorf("at least one file is required")
	}

	ctx, stop := signalContext()
	defer stop()

	b, err := openBackend(ctx, cfg.Store, logger)
	if err != nil {
		return err
	}
	defer b.close()

	for _, path := range cfg.Files {
		doc, err := readSemanticsFile(path)
		if err != nil {
			return err
		}
		stats, err := importSemantics(ctx, b.registry, doc, cfg.Update, logger)
		if err != nil {
			return fmt.Errorf("import %s: %w", path, err)
		}
		logger.Info("import done",
			zap.String("file", path),
			zap.Int64("written", stats.written),
			zap.Int64("skipped", stats.skipped),
			zap.Bool("update", cfg.Update),
		)
	}
	return nil
}

func readSemanticsFile(path string) (semanticsFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return semanticsFile{}, fmt.Errorf("read %s: %w", path, err)
	}
	var doc semanticsFile
	if err := json.Unmarshal(data, &doc); err != nil {
		return semanticsFile{}, fmt.Errorf("decode %s: %w", path, err)
	}
	return doc, nil
}

// importSemantics writes every entry of doc. Without update, entries that
// already exist are skipped and counted; with update they are replaced.
func importSemantics(ctx context.Context, reg *registry.Registry, doc semanticsFile, update bool, logger *zap.Logger) (importStats, error) {
	var written, skipped atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(importConcurrency)

	submit := func(kind, key string, strict, upsert func(context.Context) error) {
		g.Go(func() error {
			if update {
				if err := upsert(gctx); err != nil {
					return fmt.Errorf("%s %s: %w", kind, key, err)
				}
				written.Add(1)
				return nil
			}
			err := strict(gctx)
			switch {
			case err == nil:
				written.Add(1)
			case errors.Is(err, registry.ErrDuplicateKey):
				skipped.Add(1)
				logger.Debug("entry exists, skipped", zap.String("kind", kind), zap.String("key", key))
			default:
				return fmt.Errorf("%s %s: %w", kind, key, err)
			}
			return nil
		})
	}

	for _, c := range doc.Contracts {
		c := c
		submit("contract", c.ContractHash,
			func(ctx context.Context) error { return reg.InsertContractStrict(ctx, c) },
			func(ctx context.Context) error { return reg.InsertOrReplaceContract(ctx, c) },
		)
	}
	for _, a := range doc.Addresses {
		a := a
		submit("address", registry.AddressKey(a.Network, a.Address),
			func(ctx context.Context) error { return reg.InsertAddressStrict(ctx, a) },
			func(ctx context.Context) error { return reg.InsertOrReplaceAddress(ctx, a) },
		)
	}
	for _, s := range doc.Signatures {
		s := s
		submit("signature", s.Hash,
			func(ctx context.Context) error { return reg.InsertSignatureStrict(ctx, s) },
			func(ctx context.Context) error { return reg.InsertOrReplaceSignature(ctx, s) },
		)
	}

	err := g.Wait()
	return importStats{written: written.Load(), skipped: skipped.Load()}, err
}
