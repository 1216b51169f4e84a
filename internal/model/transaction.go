package model

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Transaction is the canonical representation of a transaction.
//
// BlockHash, BlockNumber and TransactionIndex are nil while the transaction is
// pending. To is nil for contract creation.
type Transaction struct {
	Hash                 common.Hash     `json:"hash"`
	BlockHash            *common.Hash    `json:"block_hash"`
	BlockNumber          *uint64         `json:"block_number"`
	TransactionIndex     *uint64         `json:"transaction_index"`
	From                 common.Address  `json:"from"`
	To                   *common.Address `json:"to"`
	Value                *big.Int        `json:"value"`
	Gas                  uint64          `json:"gas"`
	GasPrice             *big.Int        `json:"gas_price"`
	MaxFeePerGas         *big.Int        `json:"max_fee_per_gas,omitempty"`
	MaxPriorityFeePerGas *big.Int        `json:"max_priority_fee_per_gas,omitempty"`
	Nonce                uint64          `json:"nonce"`
	Input                hexutil.Bytes   `json:"input"`
	Type                 *uint64         `json:"type,omitempty"`
	V                    *big.Int        `json:"v"`
	R                    *big.Int        `json:"r"`
	S                    *big.Int        `json:"s"`
}

// IsContractCreation reports whether the transaction deploys a contract.
func (t *Transaction) IsContractCreation() bool {
	return t.To == nil
}

// IsPending reports whether the transaction has not been included in a block.
func (t *Transaction) IsPending() bool {
	return t.BlockHash == nil
}
