package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"txsemantics/internal/model"
)

const (
	kindContract  = "contract"
	kindAddress   = "address"
	kindSignature = "signature"
)

// Registry owns key derivation and insert policy on top of a DocumentStore.
type Registry struct {
	contracts  Collection
	addresses  Collection
	signatures Collection
	metrics    Metrics
	logger     *zap.Logger
}

// New builds a Registry. metrics and logger may be nil.
func New(store DocumentStore, metrics Metrics, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		contracts:  store.Collection(CollectionContracts),
		addresses:  store.Collection(CollectionAddresses),
		signatures: store.Collection(CollectionSignatures),
		metrics:    metrics,
		logger:     logger,
	}
}

// InsertContractStrict stores a new contract and fails with ErrDuplicateKey
// when its code hash is already registered.
func (r *Registry) InsertContractStrict(ctx context.Context, c model.Contract) error {
	key, err := contractKey(c)
	if err != nil {
		return err
	}
	return r.write(ctx, r.contracts, kindContract, key, c, false)
}

// InsertOrReplaceContract stores the contract, replacing any existing entry.
func (r *Registry) InsertOrReplaceContract(ctx context.Context, c model.Contract) error {
	key, err := contractKey(c)
	if err != nil {
		return err
	}
	return r.write(ctx, r.contracts, kindContract, key, c, true)
}

// Contract looks up a contract by code hash.
func (r *Registry) Contract(ctx context.Context, chash string) (model.Contract, bool, error) {
	var c model.Contract
	found, err := r.read(ctx, r.contracts, kindContract, ContractKey(chash), &c)
	return c, found, err
}

// InsertAddressStrict stores a new address label and fails with
// ErrDuplicateKey when the network/address pair is already labelled.
func (r *Registry) InsertAddressStrict(ctx context.Context, a model.AddressLabel) error {
	key, err := addressKey(a)
	if err != nil {
		return err
	}
	return r.write(ctx, r.addresses, kindAddress, key, a, false)
}

// InsertOrReplaceAddress stores the label, replacing any existing entry.
func (r *Registry) InsertOrReplaceAddress(ctx context.Context, a model.AddressLabel) error {
	key, err := addressKey(a)
	if err != nil {
		return err
	}
	return r.write(ctx, r.addresses, kindAddress, key, a, true)
}

// Address looks up the label of an address on a network.
func (r *Registry) Address(ctx context.Context, network, address string) (model.AddressLabel, bool, error) {
	var a model.AddressLabel
	found, err := r.read(ctx, r.addresses, kindAddress, AddressKey(network, address), &a)
	return a, found, err
}

// InsertSignatureStrict stores a new signature and fails with ErrDuplicateKey
// when the selector hash is already registered.
func (r *Registry) InsertSignatureStrict(ctx context.Context, s model.Signature) error {
	key, err := signatureKey(s)
	if err != nil {
		return err
	}
	return r.write(ctx, r.signatures, kindSignature, key, s, false)
}

// InsertOrReplaceSignature stores the signature, replacing any existing entry.
func (r *Registry) InsertOrReplaceSignature(ctx context.Context, s model.Signature) error {
	key, err := signatureKey(s)
	if err != nil {
		return err
	}
	return r.write(ctx, r.signatures, kindSignature, key, s, true)
}

// Signature looks up a signature by selector or topic hash.
func (r *Registry) Signature(ctx context.Context, hash string) (model.Signature, bool, error) {
	var s model.Signature
	found, err := r.read(ctx, r.signatures, kindSignature, SignatureKey(hash), &s)
	return s, found, err
}

func (r *Registry) write(ctx context.Context, coll Collection, kind, key string, record interface{}, replace bool) (err error) {
	op := "insert_" + kind
	if replace {
		op = "replace_" + kind
	}
	start := time.Now()
	defer func() {
		if r.metrics != nil {
			r.metrics.Observe(op, kind, err, start)
		}
	}()

	doc, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal %s %s: %w", kind, key, err)
	}
	if err = ctx.Err(); err != nil {
		return err
	}

	if replace {
		err = coll.ReplaceOne(ctx, key, doc)
	} else {
		err = coll.InsertOne(ctx, key, doc)
	}
	if err != nil {
		if errors.Is(err, ErrDuplicateKey) {
			r.logger.Debug("strict insert collided", zap.String("kind", kind), zap.String("key", key))
		}
		return fmt.Errorf("%s %s: %w", op, key, err)
	}
	return nil
}

func (r *Registry) read(ctx context.Context, coll Collection, kind, key string, out interface{}) (found bool, err error) {
	op := "get_" + kind
	start := time.Now()
	defer func() {
		if r.metrics != nil {
			r.metrics.Observe(op, kind, err, start)
		}
	}()

	if key == "" {
		return false, nil
	}
	doc, found, err := coll.FindByID(ctx, key)
	if err != nil {
		return false, fmt.Errorf("%s %s: %w", op, key, err)
	}
	if !found {
		return false, nil
	}
	if err = json.Unmarshal(doc, out); err != nil {
		return false, fmt.Errorf("decode %s %s: %w", kind, key, err)
	}
	return true, nil
}

func contractKey(c model.Contract) (string, error) {
	key := ContractKey(c.ContractHash)
	if key == "" {
		return "", fmt.Errorf("contract without chash: %w", ErrInvalidRecord)
	}
	return key, nil
}

func addressKey(a model.AddressLabel) (string, error) {
	if normalizeHex(a.Network) == "" || normalizeHex(a.Address) == "" {
		return "", fmt.Errorf("address label needs network and address: %w", ErrInvalidRecord)
	}
	return AddressKey(a.Network, a.Address), nil
}

func signatureKey(s model.Signature) (string, error) {
	key := SignatureKey(s.Hash)
	if key == "" {
		return "", fmt.Errorf("signature without hash: %w", ErrInvalidRecord)
	}
	return key, nil
}
