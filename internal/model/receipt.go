package model

import (
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// ReceiptStatus is the execution outcome of a transaction.
type ReceiptStatus uint8

const (
	StatusFailure ReceiptStatus = 0
	StatusSuccess ReceiptStatus = 1
)

func (s ReceiptStatus) String() string {
	switch s {
	case StatusFailure:
		return "failure"
	case StatusSuccess:
		return "success"
	default:
		return fmt.Sprintf("status(%d)", uint8(s))
	}
}

func (s ReceiptStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *ReceiptStatus) UnmarshalJSON(data []byte) error {
	var text string
	if err := json.Unmarshal(data, &text); err != nil {
		return err
	}
	switch text {
	case "failure":
		*s = StatusFailure
	case "success":
		*s = StatusSuccess
	default:
		return fmt.Errorf("unknown receipt status %q", text)
	}
	return nil
}

// Receipt is the canonical representation of a transaction receipt.
//
// Status is nil only for pre-Byzantium receipts, which carry a post-state Root
// instead.
type Receipt struct {
	TransactionHash   common.Hash     `json:"transaction_hash"`
	TransactionIndex  uint64          `json:"transaction_index"`
	BlockHash         common.Hash     `json:"block_hash"`
	BlockNumber       uint64          `json:"block_number"`
	From              common.Address  `json:"from"`
	To                *common.Address `json:"to"`
	CumulativeGasUsed uint64          `json:"cumulative_gas_used"`
	GasUsed           uint64          `json:"gas_used"`
	EffectiveGasPrice *big.Int        `json:"effective_gas_price,omitempty"`
	ContractAddress   *common.Address `json:"contract_address"`
	Status            *ReceiptStatus  `json:"status"`
	Root              hexutil.Bytes   `json:"root,omitempty"`
	LogsBloom         hexutil.Bytes   `json:"logs_bloom"`
	Logs              []Log           `json:"logs"`
}

// Succeeded reports whether the receipt carries a success status.
func (r *Receipt) Succeeded() bool {
	return r.Status != nil && *r.Status == StatusSuccess
}
