// Package semantics resolves addresses and event selectors to decoding
// semantics held in the registry. All lookups are read-only.
package semantics

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"txsemantics/internal/model"
)

// Lookup is the read side of the registry.
type Lookup interface {
	Contract(ctx context.Context, chash string) (model.Contract, bool, error)
	Address(ctx context.Context, network, address string) (model.AddressLabel, bool, error)
	Signature(ctx context.Context, hash string) (model.Signature, bool, error)
}

// Service answers decode-engine queries. A false found result means the data
// is unknown; the caller is expected to fall back to generic decoding.
type Service struct {
	lookup Lookup
	logger *zap.Logger
}

func NewService(lookup Lookup, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{lookup: lookup, logger: logger}
}

// Semantics resolves an address to the contract it was classified as.
func (s *Service) Semantics(ctx context.Context, network, address string) (model.Contract, bool, error) {
	label, found, err := s.lookup.Address(ctx, network, address)
	if err != nil {
		return model.Contract{}, false, fmt.Errorf("lookup address %s-%s: %w", network, address, err)
	}
	if !found || label.ContractHash == "" {
		s.logger.Debug("address not classified",
			zap.String("network", network),
			zap.String("address", address),
		)
		return model.Contract{}, false, nil
	}

	contract, found, err := s.lookup.Contract(ctx, label.ContractHash)
	if err != nil {
		return model.Contract{}, false, fmt.Errorf("lookup contract %s: %w", label.ContractHash, err)
	}
	if !found {
		s.logger.Debug("contract semantics missing",
			zap.String("network", network),
			zap.String("address", address),
			zap.String("chash", label.ContractHash),
		)
		return model.Contract{}, false, nil
	}
	return contract, true, nil
}

// EventABI resolves the event emitted by address under topic0. The contract
// bundle wins; otherwise the global signature registry is consulted.
func (s *Service) EventABI(ctx context.Context, network, address, topic string) (model.EventSemantics, bool, error) {
	contract, classified, err := s.Semantics(ctx, network, address)
	if err != nil {
		return model.EventSemantics{}, false, err
	}
	if classified {
		if event, ok := bundleEvent(contract, topic); ok {
			return event, true, nil
		}
	}

	sig, found, err := s.lookup.Signature(ctx, topic)
	if err != nil {
		return model.EventSemantics{}, false, fmt.Errorf("lookup signature %s: %w", topic, err)
	}
	if !found || sig.Kind != model.SignatureEvent {
		s.logger.Debug("event abi not found",
			zap.String("network", network),
			zap.String("address", address),
			zap.String("topic", topic),
		)
		return model.EventSemantics{}, false, nil
	}
	event, err := sig.EventSemantics()
	if err != nil {
		return model.EventSemantics{}, false, err
	}
	s.logger.Debug("event abi from signature registry",
		zap.String("network", network),
		zap.String("address", address),
		zap.String("topic", topic),
	)
	return event, true, nil
}

// AnonymousEventABI resolves the anonymous event of a classified contract.
// Without a selector there is nothing to look up globally, and a contract
// declaring several anonymous events cannot be disambiguated.
func (s *Service) AnonymousEventABI(ctx context.Context, network, address string) (model.EventSemantics, bool, error) {
	contract, classified, err := s.Semantics(ctx, network, address)
	if err != nil || !classified {
		return model.EventSemantics{}, false, err
	}

	var (
		match model.EventSemantics
		count int
	)
	for _, sig := range contract.EventSignatures() {
		if event := contract.Events[sig]; event.Anonymous {
			match = event
			count++
		}
	}
	if count != 1 {
		s.logger.Debug("anonymous event abi not resolvable",
			zap.String("network", network),
			zap.String("address", address),
			zap.Int("candidates", count),
		)
		return model.EventSemantics{}, false, nil
	}
	return match, true, nil
}

// LogEventABI resolves the event ABI that decodes a log. A log without topics
// can only be an anonymous event of its emitting contract.
func (s *Service) LogEventABI(ctx context.Context, network string, log model.Log) (model.EventSemantics, bool, error) {
	address := log.Address.Hex()
	topic0, ok := log.Topic0()
	if !ok {
		return s.AnonymousEventABI(ctx, network, address)
	}
	return s.EventABI(ctx, network, address, model.TopicKey(topic0))
}

// ContractName returns the name of the contract an address was classified as.
func (s *Service) ContractName(ctx context.Context, network, address string) (string, bool, error) {
	contract, found, err := s.Semantics(ctx, network, address)
	if err != nil || !found || contract.Name == "" {
		return "", false, err
	}
	return contract.Name, true, nil
}

// ContractLabel returns the curated label of an address.
func (s *Service) ContractLabel(ctx context.Context, network, address string) (string, bool, error) {
	label, found, err := s.lookup.Address(ctx, network, address)
	if err != nil {
		return "", false, fmt.Errorf("lookup address %s-%s: %w", network, address, err)
	}
	if !found || label.Label == "" {
		return "", false, nil
	}
	return label.Label, true, nil
}

func bundleEvent(contract model.Contract, topic string) (model.EventSemantics, bool) {
	if event, ok := contract.Events[strings.ToLower(topic)]; ok && !event.Anonymous {
		return event, true
	}
	for sig, event := range contract.Events {
		if strings.EqualFold(sig, topic) && !event.Anonymous {
			return event, true
		}
	}
	return model.EventSemantics{}, false
}
