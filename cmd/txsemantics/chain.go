package main

import (
	"context"
	"fmt"

	"txsemantics/internal/chain"
	"txsemantics/internal/config"
	"txsemantics/internal/metrics"
)

func dialChain(ctx context.Context, cfg config.Config) (*chain.Client, error) {
	if cfg.RPCURL == "" {
		return nil, fmt.Errorf("rpc url is required")
	}
	client, err := chain.NewClient(ctx, cfg.RPCURL, chain.Options{
		RateLimit: cfg.RateLimit,
		Observer:  metrics.NewRPCClient(cfg.Network),
	})
	if err != nil {
		return nil, fmt.Errorf("connect rpc: %w", err)
	}
	return client, nil
}
