package normalize

import (
	"github.com/ethereum/go-ethereum/common"

	"txsemantics/internal/model"
	"txsemantics/internal/payload"
)

const (
	recordBlock       = "block"
	recordTransaction = "transaction"
	recordReceipt     = "receipt"
	recordLog         = "log"
)

// Block normalizes an eth_getBlockBy* result. Transactions may be given as
// hashes or as full objects; only their hashes are kept.
func Block(raw payload.Map) (*model.Block, error) {
	f := newFields(recordBlock, raw)
	block := &model.Block{
		Number:           f.uint64("number"),
		Hash:             f.hash("hash"),
		ParentHash:       f.hash("parentHash"),
		Timestamp:        f.uint64("timestamp"),
		Difficulty:       f.quantity("difficulty"),
		TotalDifficulty:  f.optQuantity("totalDifficulty"),
		GasLimit:         f.uint64("gasLimit"),
		GasUsed:          f.uint64("gasUsed"),
		BaseFeePerGas:    f.optQuantity("baseFeePerGas"),
		Miner:            f.address("miner"),
		Size:             f.uint64("size"),
		StateRoot:        f.bytes("stateRoot"),
		ReceiptsRoot:     f.bytes("receiptsRoot"),
		TransactionsRoot: f.bytes("transactionsRoot"),
		Sha3Uncles:       f.bytes("sha3Uncles"),
		LogsBloom:        f.bytes("logsBloom"),
		Nonce:            f.bytes("nonce"),
		ExtraData:        f.optBytes("extraData"),
		Uncles:           f.hashes("uncles"),
	}
	items := f.sequence("transactions")
	if f.err != nil {
		return nil, f.err
	}

	block.Transactions = make([]common.Hash, 0, len(items))
	for i, item := range items {
		if nested, ok := item.Map(); ok {
			tf := newFields(recordBlock, nested)
			h := tf.hash("hash")
			if tf.err != nil {
				return nil, nest(tf.err, recordBlock, indexed("transactions", i))
			}
			block.Transactions = append(block.Transactions, h)
			continue
		}
		h, err := decodeHash(item)
		if err != nil {
			return nil, malformed(recordBlock, indexed("transactions", i), "%v", err)
		}
		block.Transactions = append(block.Transactions, h)
	}
	return block, nil
}

// Transaction normalizes an eth_getTransactionByHash result.
func Transaction(raw payload.Map) (*model.Transaction, error) {
	f := newFields(recordTransaction, raw)
	tx := &model.Transaction{
		Hash:                 f.hash("hash"),
		BlockHash:            f.optHash("blockHash"),
		BlockNumber:          f.optUint64("blockNumber"),
		TransactionIndex:     f.optUint64("transactionIndex"),
		From:                 f.address("from"),
		To:                   f.optAddress("to"),
		Value:                f.quantity("value"),
		Gas:                  f.uint64("gas"),
		GasPrice:             f.optQuantity("gasPrice"),
		MaxFeePerGas:         f.optQuantity("maxFeePerGas"),
		MaxPriorityFeePerGas: f.optQuantity("maxPriorityFeePerGas"),
		Nonce:                f.uint64("nonce"),
		Input:                f.bytes("input"),
		Type:                 f.optUint64("type"),
		V:                    f.quantity("v"),
		R:                    f.quantity("r"),
		S:                    f.quantity("s"),
	}
	if f.err != nil {
		return nil, f.err
	}
	// Typed transactions may carry only fee caps; legacy ones need gasPrice.
	if tx.GasPrice == nil {
		legacy := tx.Type == nil || *tx.Type == 0
		if legacy || tx.MaxFeePerGas == nil {
			return nil, malformed(recordTransaction, "gasPrice", "required field missing")
		}
	}
	return tx, nil
}

// Receipt normalizes an eth_getTransactionReceipt result. Logs keep the order
// in which the provider returned them.
func Receipt(raw payload.Map) (*model.Receipt, error) {
	f := newFields(recordReceipt, raw)
	receipt := &model.Receipt{
		TransactionHash:   f.hash("transactionHash"),
		TransactionIndex:  f.uint64("transactionIndex"),
		BlockHash:         f.hash("blockHash"),
		BlockNumber:       f.uint64("blockNumber"),
		From:              f.address("from"),
		To:                f.optAddress("to"),
		CumulativeGasUsed: f.uint64("cumulativeGasUsed"),
		GasUsed:           f.uint64("gasUsed"),
		EffectiveGasPrice: f.optQuantity("effectiveGasPrice"),
		ContractAddress:   f.optAddress("contractAddress"),
		Root:              f.optBytes("root"),
		LogsBloom:         f.bytes("logsBloom"),
	}
	receipt.Status = readStatus(f, receipt.Root != nil)
	items := f.sequence("logs")
	if f.err != nil {
		return nil, f.err
	}

	receipt.Logs = make([]model.Log, 0, len(items))
	for i, item := range items {
		nested, ok := item.Map()
		if !ok {
			return nil, malformed(recordReceipt, indexed("logs", i), "%v", errKind(item, payload.KindMap))
		}
		log, err := Log(nested)
		if err != nil {
			return nil, nest(err, recordReceipt, indexed("logs", i))
		}
		receipt.Logs = append(receipt.Logs, *log)
	}
	return receipt, nil
}

// readStatus requires a 0/1 status unless a pre-Byzantium root is present.
func readStatus(f *fields, hasRoot bool) *model.ReceiptStatus {
	n, ok := f.readUint64("status", !hasRoot)
	if !ok {
		return nil
	}
	var status model.ReceiptStatus
	switch n {
	case 0:
		status = model.StatusFailure
	case 1:
		status = model.StatusSuccess
	default:
		f.fail("status", errStatus(n))
		return nil
	}
	return &status
}

// Log normalizes a single log object.
func Log(raw payload.Map) (*model.Log, error) {
	f := newFields(recordLog, raw)
	log := &model.Log{
		Address:          f.address("address"),
		BlockHash:        f.optHash("blockHash"),
		BlockNumber:      f.optUint64("blockNumber"),
		TransactionHash:  f.optHash("transactionHash"),
		TransactionIndex: f.optUint64("transactionIndex"),
		LogIndex:         f.optUint64("logIndex"),
		Topics:           f.hashes("topics"),
		Data:             f.bytes("data"),
		Removed:          f.bool("removed"),
	}
	if f.err != nil {
		return nil, f.err
	}
	if len(log.Topics) > model.MaxTopics {
		return nil, malformed(recordLog, "topics", "%d topics exceeds maximum of %d", len(log.Topics), model.MaxTopics)
	}
	return log, nil
}
