package standard

import (
	"context"
	"fmt"
	"sort"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"txsemantics/internal/model"
)

func errUnknownStandard(s Standard) error {
	return fmt.Errorf("unknown token standard %q", s)
}

// Signatures returns the event and function signatures of ERC-20 and ERC-721.
// Entries shared by both standards keep the ERC-20 layout; the first registered
// layout of a selector wins.
func Signatures() ([]model.Signature, error) {
	seen := make(map[string]struct{})
	var out []model.Signature
	for _, std := range []Standard{ERC20, ERC721} {
		parsed, err := std.ABI()
		if err != nil {
			return nil, fmt.Errorf("parse %s abi: %w", std, err)
		}
		for _, sig := range signaturesOf(parsed) {
			if _, ok := seen[sig.Hash]; ok {
				continue
			}
			seen[sig.Hash] = struct{}{}
			out = append(out, sig)
		}
	}
	return out, nil
}

func signaturesOf(parsed abi.ABI) []model.Signature {
	out := make([]model.Signature, 0, len(parsed.Events)+len(parsed.Methods))
	for _, name := range sortedKeys(parsed.Events) {
		event := parsed.Events[name]
		out = append(out, model.Signature{
			Hash:       model.TopicKey(event.ID),
			Kind:       model.SignatureEvent,
			Name:       event.RawName,
			Text:       event.Sig,
			Anonymous:  event.Anonymous,
			Parameters: model.ParametersFromArguments(event.Inputs),
		})
	}
	for _, name := range sortedKeys(parsed.Methods) {
		method := parsed.Methods[name]
		out = append(out, model.Signature{
			Hash:       hexutil.Encode(method.ID),
			Kind:       model.SignatureFunction,
			Name:       method.RawName,
			Text:       method.Sig,
			Parameters: model.ParametersFromArguments(method.Inputs),
		})
	}
	return out
}

// Semantics builds the contract bundle of a standard token for the given code
// hash.
func Semantics(std Standard, chash, name string) (model.Contract, error) {
	parsed, err := std.ABI()
	if err != nil {
		return model.Contract{}, err
	}
	contract := model.Contract{
		ContractHash: chash,
		Name:         name,
		Events:       make(map[string]model.EventSemantics, len(parsed.Events)),
		Functions:    make(map[string]model.FunctionSemantics, len(parsed.Methods)),
	}
	for _, event := range parsed.Events {
		key := model.TopicKey(event.ID)
		contract.Events[key] = model.EventSemantics{
			Signature:  key,
			Anonymous:  event.Anonymous,
			Name:       event.RawName,
			Parameters: model.ParametersFromArguments(event.Inputs),
		}
	}
	for _, method := range parsed.Methods {
		key := hexutil.Encode(method.ID)
		contract.Functions[key] = model.FunctionSemantics{
			Signature: key,
			Name:      method.RawName,
			Inputs:    model.ParametersFromArguments(method.Inputs),
			Outputs:   model.ParametersFromArguments(method.Outputs),
		}
	}
	return contract, nil
}

// SignatureWriter is the registry write used for seeding.
type SignatureWriter interface {
	InsertOrReplaceSignature(ctx context.Context, s model.Signature) error
}

// Seed upserts every standard signature and returns how many were written.
func Seed(ctx context.Context, w SignatureWriter) (int, error) {
	sigs, err := Signatures()
	if err != nil {
		return 0, err
	}
	for i, sig := range sigs {
		if err := w.InsertOrReplaceSignature(ctx, sig); err != nil {
			return i, fmt.Errorf("seed %s: %w", sig.Text, err)
		}
	}
	return len(sigs), nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
