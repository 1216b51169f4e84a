package indexer

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// ParseBlockNumber accepts a decimal or 0x-prefixed block number.
func ParseBlockNumber(input string) (uint64, error) {
	input = strings.TrimSpace(input)
	if strings.HasPrefix(input, "0x") || strings.HasPrefix(input, "0X") {
		n, err := hexutil.DecodeUint64(strings.ToLower(input))
		if err != nil {
			return 0, fmt.Errorf("invalid block number: %s", input)
		}
		return n, nil
	}
	n, err := strconv.ParseUint(input, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid block number: %s", input)
	}
	return n, nil
}

// ParseHash converts a 0x-prefixed 32-byte hex string into common.Hash.
func ParseHash(input string) (common.Hash, error) {
	input = strings.TrimSpace(input)
	data, err := hexutil.Decode(input)
	if err != nil {
		return common.Hash{}, fmt.Errorf("invalid hash: %s", input)
	}
	if len(data) != common.HashLength {
		return common.Hash{}, fmt.Errorf("invalid hash length: %s", input)
	}
	return common.BytesToHash(data), nil
}

// ParseAddress converts a hex address into common.Address.
func ParseAddress(input string) (common.Address, error) {
	input = strings.TrimSpace(input)
	if !common.IsHexAddress(input) {
		return common.Address{}, fmt.Errorf("invalid address: %s", input)
	}
	return common.HexToAddress(input), nil
}
