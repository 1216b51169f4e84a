package normalize

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"txsemantics/internal/payload"
)

func decodeBytes(v payload.Value) (hexutil.Bytes, error) {
	if v.Kind() != payload.KindHex {
		return nil, errKind(v, payload.KindHex)
	}
	s, _ := v.Str()
	b, err := hexutil.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("decode hex %q: %w", s, err)
	}
	return b, nil
}

func decodeFixed(v payload.Value, size int) ([]byte, error) {
	b, err := decodeBytes(v)
	if err != nil {
		return nil, err
	}
	if len(b) != size {
		return nil, fmt.Errorf("want %d bytes, got %d", size, len(b))
	}
	return b, nil
}

func decodeHash(v payload.Value) (common.Hash, error) {
	b, err := decodeFixed(v, common.HashLength)
	if err != nil {
		return common.Hash{}, err
	}
	return common.BytesToHash(b), nil
}

func decodeAddress(v payload.Value) (common.Address, error) {
	b, err := decodeFixed(v, common.AddressLength)
	if err != nil {
		return common.Address{}, err
	}
	return common.BytesToAddress(b), nil
}

// decodeQuantity accepts hex quantities, decimal strings and integers.
func decodeQuantity(v payload.Value) (*big.Int, error) {
	switch v.Kind() {
	case payload.KindInteger:
		n, _ := v.Int()
		if n.Sign() < 0 {
			return nil, fmt.Errorf("negative quantity %s", n)
		}
		return n, nil
	case payload.KindHex:
		s, _ := v.Str()
		digits := s[2:]
		if digits == "" || !isDigits(digits, 16) {
			return nil, fmt.Errorf("invalid hex quantity %q", s)
		}
		n, ok := new(big.Int).SetString(digits, 16)
		if !ok {
			return nil, fmt.Errorf("invalid hex quantity %q", s)
		}
		return n, nil
	case payload.KindString:
		s, _ := v.Str()
		if s == "" || !isDigits(s, 10) {
			return nil, fmt.Errorf("invalid decimal quantity %q", s)
		}
		n, ok := new(big.Int).SetString(s, 10)
		if !ok {
			return nil, fmt.Errorf("invalid decimal quantity %q", s)
		}
		return n, nil
	default:
		return nil, fmt.Errorf("want quantity, got %s %s", v.Kind(), v)
	}
}

func isDigits(s string, base int) bool {
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
		case base == 16 && r >= 'a' && r <= 'f':
		case base == 16 && r >= 'A' && r <= 'F':
		default:
			return false
		}
	}
	return true
}

func errKind(v payload.Value, want payload.Kind) error {
	return fmt.Errorf("want %s, got %s %s", want, v.Kind(), v)
}

func errOutOfRange(n *big.Int) error {
	return fmt.Errorf("quantity %s exceeds 64 bits", n)
}

func errStatus(n uint64) error {
	return fmt.Errorf("status %d is neither 0 nor 1", n)
}

func indexed(name string, i int) string {
	return fmt.Sprintf("%s[%d]", name, i)
}
