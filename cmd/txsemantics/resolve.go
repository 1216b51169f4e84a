package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"txsemantics/internal/model"
	"txsemantics/internal/semantics"
)

// resolution is what resolve prints. Unknown parts are omitted.
type resolution struct {
	Network   string                `json:"network"`
	Address   string                `json:"address"`
	Label     string                `json:"label,omitempty"`
	Name      string                `json:"name,omitempty"`
	Semantics *model.Contract       `json:"semantics,omitempty"`
	Event     *model.EventSemantics `json:"event,omitempty"`
}

func runResolve(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := setup(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()

	address, _ := cmd.Flags().GetString("address")
	topic, _ := cmd.Flags().GetString("topic")
	anonymous, _ := cmd.Flags().GetBool("anonymous")
	if address == "" {
		return fmt.Errorf("address is required")
	}

	ctx, stop := signalContext()
	defer stop()

	b, err := openBackend(ctx, cfg.Store, logger)
	if err != nil {
		return err
	}
	defer b.close()

	svc := semantics.NewService(b.registry, logger)
	res, err := resolve(ctx, svc, cfg.Network, address, topic, anonymous)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}

func resolve(ctx context.Context, svc *semantics.Service, network, address, topic string, anonymous bool) (resolution, error) {
	res := resolution{Network: network, Address: address}

	label, found, err := svc.ContractLabel(ctx, network, address)
	if err != nil {
		return res, err
	}
	if found {
		res.Label = label
	}

	name, found, err := svc.ContractName(ctx, network, address)
	if err != nil {
		return res, err
	}
	if found {
		res.Name = name
	}

	contract, found, err := svc.Semantics(ctx, network, address)
	if err != nil {
		return res, err
	}
	if found {
		res.Semantics = &contract
	}

	var event model.EventSemantics
	switch {
	case anonymous:
		event, found, err = svc.AnonymousEventABI(ctx, network, address)
	case topic != "":
		event, found, err = svc.EventABI(ctx, network, address, topic)
	default:
		return res, nil
	}
	if err != nil {
		return res, err
	}
	if found {
		res.Event = &event
	}
	return res, nil
}
