package model

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Block is the canonical representation of a chain block.
type Block struct {
	Number           uint64         `json:"number"`
	Hash             common.Hash    `json:"hash"`
	ParentHash       common.Hash    `json:"parent_hash"`
	Timestamp        uint64         `json:"timestamp"`
	Difficulty       *big.Int       `json:"difficulty"`
	TotalDifficulty  *big.Int       `json:"total_difficulty,omitempty"`
	GasLimit         uint64         `json:"gas_limit"`
	GasUsed          uint64         `json:"gas_used"`
	BaseFeePerGas    *big.Int       `json:"base_fee_per_gas,omitempty"`
	Miner            common.Address `json:"miner"`
	Size             uint64         `json:"size"`
	StateRoot        hexutil.Bytes  `json:"state_root"`
	ReceiptsRoot     hexutil.Bytes  `json:"receipts_root"`
	TransactionsRoot hexutil.Bytes  `json:"transactions_root"`
	Sha3Uncles       hexutil.Bytes  `json:"sha3_uncles"`
	LogsBloom        hexutil.Bytes  `json:"logs_bloom"`
	Nonce            hexutil.Bytes  `json:"nonce"`
	ExtraData        hexutil.Bytes  `json:"extra_data,omitempty"`
	Transactions     []common.Hash  `json:"transactions"`
	Uncles           []common.Hash  `json:"uncles"`
}
