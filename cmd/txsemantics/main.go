package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"txsemantics/internal/config"
)

func main() {
	root := &cobra.Command{
		Use:          "txsemantics",
		Short:        "EVM transaction semantics toolkit",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	normalizeCmd := &cobra.Command{
		Use:   "normalize",
		Short: "Fetch one block, transaction or receipt and print its canonical form",
		RunE:  runNormalize,
	}
	normalizeCmd.Flags().String("rpc", "", "Ethereum RPC URL")
	normalizeCmd.Flags().String("kind", "block", "record kind (block, tx, receipt)")
	normalizeCmd.Flags().String("id", "", "block number or transaction hash")
	normalizeCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
	root.AddCommand(normalizeCmd)

	ingestCmd := &cobra.Command{
		Use:   "ingest",
		Short: "Normalize a block range into canonical JSONL records",
		RunE:  runIngest,
	}
	ingestCmd.Flags().String("rpc", "", "Ethereum RPC URL")
	ingestCmd.Flags().Int("rate-limit", 0, "max RPC requests per second, 0 means unlimited")
	ingestCmd.Flags().Uint64("from", 0, "start block (inclusive)")
	ingestCmd.Flags().Uint64("to", 0, "end block (inclusive), 0 means latest")
	ingestCmd.Flags().Uint64("batch-size", 50, "blocks per batch")
	ingestCmd.Flags().Int("workers", 4, "concurrent receipt fetches per block")
	ingestCmd.Flags().String("out", "./data/records.jsonl", "output JSONL path")
	ingestCmd.Flags().String("errors", "./data/normalize_errors.jsonl", "malformed payload JSONL path")
	ingestCmd.Flags().String("checkpoint", "./data/checkpoint.json", "checkpoint file path")
	ingestCmd.Flags().Bool("checkpoint-enabled", true, "enable checkpointing")
	ingestCmd.Flags().Bool("checkpoint-in-store", false, "keep the checkpoint in the postgres or pebble store instead of a file")
	ingestCmd.Flags().Int("max-retries", 5, "maximum retry attempts")
	ingestCmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	ingestCmd.Flags().String("metrics-addr", "", "serve prometheus metrics on this address (e.g. :9100)")
	ingestCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
	addStoreFlags(ingestCmd.Flags())
	root.AddCommand(ingestCmd)

	importCmd := &cobra.Command{
		Use:   "import",
		Short: "Load contracts, address labels and signatures into the registry",
		RunE:  runImport,
	}
	importCmd.Flags().StringSlice("file", nil, "semantics JSON files (comma-separated)")
	importCmd.Flags().Bool("update", false, "replace existing entries instead of skipping them")
	importCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
	addStoreFlags(importCmd.Flags())
	root.AddCommand(importCmd)

	seedCmd := &cobra.Command{
		Use:   "seed",
		Short: "Write ERC-20 and ERC-721 signatures into the registry",
		RunE:  runSeed,
	}
	seedCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
	addStoreFlags(seedCmd.Flags())
	root.AddCommand(seedCmd)

	classifyCmd := &cobra.Command{
		Use:   "classify",
		Short: "Detect token standards for addresses and label them in the registry",
		RunE:  runClassify,
	}
	classifyCmd.Flags().String("rpc", "", "Ethereum RPC URL")
	classifyCmd.Flags().Int("rate-limit", 0, "max RPC requests per second, 0 means unlimited")
	classifyCmd.Flags().String("network", "mainnet", "network name used in address keys")
	classifyCmd.Flags().StringSlice("address", nil, "addresses to classify (comma-separated)")
	classifyCmd.Flags().Bool("update", false, "replace existing contract semantics")
	classifyCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
	addStoreFlags(classifyCmd.Flags())
	root.AddCommand(classifyCmd)

	resolveCmd := &cobra.Command{
		Use:   "resolve",
		Short: "Resolve the semantics of an address or event",
		RunE:  runResolve,
	}
	resolveCmd.Flags().String("network", "mainnet", "network name used in address keys")
	resolveCmd.Flags().String("address", "", "contract address")
	resolveCmd.Flags().String("topic", "", "event topic0 to resolve")
	resolveCmd.Flags().Bool("anonymous", false, "resolve the contract's anonymous event")
	resolveCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
	addStoreFlags(resolveCmd.Flags())
	root.AddCommand(resolveCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func addStoreFlags(flags *pflag.FlagSet) {
	flags.String("store", config.StoreMemory, "registry store (memory, postgres, mongo, pebble)")
	flags.String("pg-dsn", "", "Postgres DSN")
	flags.String("mongo-uri", "", "MongoDB URI")
	flags.String("mongo-db", "txsemantics", "MongoDB database")
	flags.String("pebble-path", "", "Pebble data directory")
	flags.Int("pebble-cache-mb", 64, "Pebble block cache size in MB")
}

// setup loads config and builds the logger shared by every command.
func setup(cmd *cobra.Command) (config.Config, *zap.Logger, error) {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return config.Config{}, nil, err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, logger, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
