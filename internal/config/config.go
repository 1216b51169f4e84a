package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Registry storage backends.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreMongo    = "mongo"
	StorePebble   = "pebble"
)

// StoreConfig selects and configures the registry backend.
type StoreConfig struct {
	Backend       string
	PGDSN         string
	MongoURI      string
	MongoDB       string
	PebblePath    string
	PebbleCacheMB int
}

// Validate checks that the selected backend has what it needs.
func (s StoreConfig) Validate() error {
	switch s.Backend {
	case StoreMemory:
	case StorePostgres:
		if s.PGDSN == "" {
			return fmt.Errorf("pg-dsn is required for the postgres store")
		}
	case StoreMongo:
		if s.MongoURI == "" || s.MongoDB == "" {
			return fmt.Errorf("mongo-uri and mongo-db are required for the mongo store")
		}
	case StorePebble:
		if s.PebblePath == "" {
			return fmt.Errorf("pebble-path is required for the pebble store")
		}
	default:
		return fmt.Errorf("unknown store %q (memory, postgres, mongo, pebble)", s.Backend)
	}
	return nil
}

// Config holds configuration values loaded from flags, env, or config file.
type Config struct {
	RPCURL            string
	RateLimit         int
	Network           string
	FromBlock         uint64
	ToBlock           uint64
	BatchSize         uint64
	Workers           int
	Out               string
	Errors            string
	Checkpoint        string
	CheckpointEnabled bool
	CheckpointStore   bool
	MaxRetries        int
	RetryBackoff      time.Duration
	MetricsAddr       string
	Files             []string
	Update            bool
	LogLevel          string
	Store             StoreConfig
}

// Load merges config file, environment variables, and flags into Config.
// Environment variables use the TXSEM_ prefix, e.g. TXSEM_PG_DSN.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("TXSEM")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("network", "mainnet")
	v.SetDefault("batch-size", uint64(50))
	v.SetDefault("workers", 4)
	v.SetDefault("out", "./data/records.jsonl")
	v.SetDefault("errors", "./data/normalize_errors.jsonl")
	v.SetDefault("checkpoint", "./data/checkpoint.json")
	v.SetDefault("checkpoint-enabled", true)
	v.SetDefault("max-retries", 5)
	v.SetDefault("retry-backoff", 500*time.Millisecond)
	v.SetDefault("log-level", "info")
	v.SetDefault("store", StoreMemory)
	v.SetDefault("mongo-db", "txsemantics")
	v.SetDefault("pebble-cache-mb", 64)

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := Config{
		RPCURL:            v.GetString("rpc"),
		RateLimit:         v.GetInt("rate-limit"),
		Network:           v.GetString("network"),
		FromBlock:         v.GetUint64("from"),
		ToBlock:           v.GetUint64("to"),
		BatchSize:         v.GetUint64("batch-size"),
		Workers:           v.GetInt("workers"),
		Out:               v.GetString("out"),
		Errors:            v.GetString("errors"),
		Checkpoint:        v.GetString("checkpoint"),
		CheckpointEnabled: v.GetBool("checkpoint-enabled"),
		CheckpointStore:   v.GetBool("checkpoint-in-store"),
		MaxRetries:        v.GetInt("max-retries"),
		RetryBackoff:      v.GetDuration("retry-backoff"),
		MetricsAddr:       v.GetString("metrics-addr"),
		Files:             getStringSlice(v, "file"),
		Update:            v.GetBool("update"),
		LogLevel:          v.GetString("log-level"),
		Store: StoreConfig{
			Backend:       strings.ToLower(v.GetString("store")),
			PGDSN:         v.GetString("pg-dsn"),
			MongoURI:      v.GetString("mongo-uri"),
			MongoDB:       v.GetString("mongo-db"),
			PebblePath:    v.GetString("pebble-path"),
			PebbleCacheMB: v.GetInt("pebble-cache-mb"),
		},
	}

	return cfg, nil
}

func getStringSlice(v *viper.Viper, key string) []string {
	if !v.IsSet(key) {
		return nil
	}

	val := v.Get(key)
	switch typed := val.(type) {
	case []string:
		return cleanStrings(typed)
	case string:
		return splitAndClean(typed)
	case []interface{}:
		items := make([]string, 0, len(typed))
		for _, item := range typed {
			items = append(items, fmt.Sprintf("%v", item))
		}
		return cleanStrings(items)
	default:
		return nil
	}
}

func splitAndClean(input string) []string {
	if input == "" {
		return nil
	}
	return cleanStrings(strings.Split(input, ","))
}

func cleanStrings(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}
