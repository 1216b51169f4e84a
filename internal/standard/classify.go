package standard

import (
	"bytes"
	"context"
	"fmt"
	"math/big"
	"strconv"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"txsemantics/internal/model"
)

// erc721InterfaceID is the ERC-165 identifier of ERC-721.
var erc721InterfaceID = [4]byte{0x80, 0xac, 0x58, 0xcd}

// Chain is what classification needs from a node.
type Chain interface {
	ContractHash(ctx context.Context, address common.Address) (string, bool, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// TokenMeta holds metadata read from a token contract.
type TokenMeta struct {
	Standard Standard
	Name     string
	Symbol   string
	Decimals *uint8
}

// Classification is the registry content derived for one address. Contract is
// nil when the code matches no known standard.
type Classification struct {
	Label    model.AddressLabel
	Contract *model.Contract
}

// Classify inspects the code at address. found is false for accounts without
// code. Contracts that implement ERC-721 or ERC-20 get the standard's bundle
// keyed by their code hash.
func Classify(ctx context.Context, chainClient Chain, network string, address common.Address, logger *zap.Logger) (Classification, bool, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	chash, isContract, err := chainClient.ContractHash(ctx, address)
	if err != nil {
		return Classification{}, false, err
	}
	if !isContract {
		return Classification{}, false, nil
	}

	out := Classification{Label: model.AddressLabel{
		Network:      network,
		Address:      address.Hex(),
		ContractHash: chash,
		IsContract:   true,
	}}

	meta, ok := DetectToken(ctx, chainClient, address, logger)
	if !ok {
		return out, true, nil
	}

	out.Label.Standard = string(meta.Standard)
	out.Label.Label = firstNonEmpty(meta.Symbol, meta.Name)
	out.Label.Metadata = map[string]string{}
	if meta.Name != "" {
		out.Label.Metadata["name"] = meta.Name
	}
	if meta.Symbol != "" {
		out.Label.Metadata["symbol"] = meta.Symbol
	}
	if meta.Decimals != nil {
		out.Label.Metadata["decimals"] = strconv.Itoa(int(*meta.Decimals))
	}

	contract, err := Semantics(meta.Standard, chash, firstNonEmpty(meta.Name, meta.Symbol))
	if err != nil {
		return Classification{}, false, err
	}
	out.Contract = &contract
	return out, true, nil
}

// DetectToken checks the token interfaces of a contract. ERC-721 is detected
// through ERC-165, ERC-20 through a successful decimals() call.
func DetectToken(ctx context.Context, chainClient Chain, token common.Address, logger *zap.Logger) (TokenMeta, bool) {
	if supportsERC721(ctx, chainClient, token) {
		meta := TokenMeta{Standard: ERC721}
		meta.Name, meta.Symbol = fetchNames(ctx, chainClient, token, logger)
		return meta, true
	}

	parsed, err := ERC20ABI()
	if err != nil {
		logger.Warn("parse erc20 abi", zap.Error(err))
		return TokenMeta{}, false
	}
	values, err := call(ctx, chainClient, token, parsed, "decimals")
	if err != nil {
		logger.Debug("decimals call failed", zap.String("token", token.Hex()), zap.Error(err))
		return TokenMeta{}, false
	}
	decimals, err := asUint8(values[0])
	if err != nil {
		return TokenMeta{}, false
	}
	meta := TokenMeta{Standard: ERC20, Decimals: &decimals}
	meta.Name, meta.Symbol = fetchNames(ctx, chainClient, token, logger)
	return meta, true
}

func supportsERC721(ctx context.Context, chainClient Chain, token common.Address) bool {
	parsed, err := ERC721ABI()
	if err != nil {
		return false
	}
	values, err := call(ctx, chainClient, token, parsed, "supportsInterface", erc721InterfaceID)
	if err != nil || len(values) == 0 {
		return false
	}
	ok, _ := values[0].(bool)
	return ok
}

// fetchNames reads name() and symbol(), falling back to bytes32 encodings.
func fetchNames(ctx context.Context, chainClient Chain, token common.Address, logger *zap.Logger) (name, symbol string) {
	stringABI, err := ERC20ABI()
	if err != nil {
		return "", ""
	}
	bytes32ABI, err := erc20Bytes32ABIInstance()
	if err != nil {
		return "", ""
	}

	read := func(method string) string {
		if values, err := call(ctx, chainClient, token, stringABI, method); err == nil {
			if s, ok := values[0].(string); ok {
				return s
			}
		}
		values, err := call(ctx, chainClient, token, bytes32ABI, method)
		if err != nil {
			logger.Debug(method+" call failed", zap.String("token", token.Hex()), zap.Error(err))
			return ""
		}
		s, _ := bytes32ToString(values[0])
		return s
	}
	return read("name"), read("symbol")
}

func call(ctx context.Context, chainClient Chain, to common.Address, parsed abi.ABI, method string, args ...interface{}) ([]interface{}, error) {
	data, err := parsed.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	resp, err := chainClient.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}
	values, err := parsed.Unpack(method, resp)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("unpack %s: empty result", method)
	}
	return values, nil
}

func bytes32ToString(value interface{}) (string, bool) {
	switch v := value.(type) {
	case [32]byte:
		return string(bytes.TrimRight(v[:], "\x00")), true
	case []byte:
		return string(bytes.TrimRight(v, "\x00")), true
	default:
		return "", false
	}
}

func asUint8(value interface{}) (uint8, error) {
	switch v := value.(type) {
	case uint8:
		return v, nil
	case *big.Int:
		if !v.IsUint64() || v.Uint64() > 255 {
			return 0, fmt.Errorf("decimals out of range: %s", v)
		}
		return uint8(v.Uint64()), nil
	default:
		return 0, fmt.Errorf("unsupported uint8 type %T", value)
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
