package model

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// MaxTopics is the largest number of topics a log can carry.
const MaxTopics = 4

// Log is the canonical representation of an emitted event log.
//
// Position fields are nil for logs of pending transactions. The first topic is
// usually the event selector; anonymous events have no selector topic.
type Log struct {
	Address          common.Address `json:"address"`
	BlockHash        *common.Hash   `json:"block_hash"`
	BlockNumber      *uint64        `json:"block_number"`
	TransactionHash  *common.Hash   `json:"transaction_hash"`
	TransactionIndex *uint64        `json:"transaction_index"`
	LogIndex         *uint64        `json:"log_index"`
	Topics           []common.Hash  `json:"topics"`
	Data             hexutil.Bytes  `json:"data"`
	Removed          bool           `json:"removed"`
}

// Topic0 returns the first topic if present.
func (l *Log) Topic0() (common.Hash, bool) {
	if len(l.Topics) == 0 {
		return common.Hash{}, false
	}
	return l.Topics[0], true
}
