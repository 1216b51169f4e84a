package indexer

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"txsemantics/internal/model"
	"txsemantics/internal/normalize"
	"txsemantics/internal/payload"
	"txsemantics/internal/storage"
	"txsemantics/pkg/workerpool"
)

// Provider is the chain data the runner consumes.
type Provider interface {
	ChainID(ctx context.Context) (*big.Int, error)
	LatestBlockNumber(ctx context.Context) (uint64, error)
	Block(ctx context.Context, number uint64, fullTx bool) (payload.Map, error)
	TransactionReceipt(ctx context.Context, hash common.Hash) (payload.Map, error)
}

// Metrics observes runner progress.
type Metrics interface {
	ObserveBatch(err error, lastBlock uint64, started time.Time)
	AddRecords(record string, n int)
	IncMalformed(record string)
}

// RunConfig holds runtime settings for the indexer.
type RunConfig struct {
	FromBlock    uint64
	ToBlock      uint64
	BatchSize    uint64
	Workers      int
	MaxRetries   int
	RetryBackoff time.Duration
}

// Runner fetches blocks with their transactions and receipts, normalizes them
// and writes canonical records to a sink. Payloads the normalizer rejects are
// written to the sink's error stream and skipped.
type Runner struct {
	cfg        RunConfig
	provider   Provider
	sink       storage.Sink
	checkpoint Checkpointer
	metrics    Metrics
	logger     *zap.Logger
}

// NewRunner builds a Runner with its dependencies. checkpoint may be nil.
func NewRunner(cfg RunConfig, provider Provider, sink storage.Sink, checkpoint Checkpointer, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	return &Runner{
		cfg:        cfg,
		provider:   provider,
		sink:       sink,
		checkpoint: checkpoint,
		logger:     logger,
	}
}

// SetMetrics attaches a metrics observer.
func (r *Runner) SetMetrics(m Metrics) {
	r.metrics = m
}

// Run executes the ingestion loop.
func (r *Runner) Run(ctx context.Context) error {
	if r.provider == nil {
		return fmt.Errorf("chain provider is nil")
	}
	if r.sink == nil {
		return fmt.Errorf("storage is nil")
	}
	if r.cfg.BatchSize == 0 {
		return fmt.Errorf("batch size must be greater than zero")
	}

	chainID, err := r.provider.ChainID(ctx)
	if err != nil {
		return fmt.Errorf("get chain id: %w", err)
	}
	if !chainID.IsUint64() {
		return fmt.Errorf("chain id does not fit in uint64: %s", chainID)
	}
	chainIDValue := chainID.Uint64()

	var head uint64
	if r.cfg.ToBlock == 0 {
		head, err = r.provider.LatestBlockNumber(ctx)
		if err != nil {
			return fmt.Errorf("get latest block: %w", err)
		}
	}

	var (
		last    uint64
		resumed bool
	)
	if r.checkpoint != nil {
		last, resumed, err = r.checkpoint.Load(ctx)
		if err != nil {
			return err
		}
	}

	pending, ok := pendingRange(r.cfg.FromBlock, r.cfg.ToBlock, head, last, resumed)
	if !ok {
		r.logger.Info("nothing to sync", zap.Uint64("from", r.cfg.FromBlock), zap.Uint64("to", r.cfg.ToBlock))
		return nil
	}
	if pending.From != r.cfg.FromBlock {
		r.logger.Info("resume from checkpoint", zap.Uint64("last_processed", last), zap.Uint64("from", pending.From))
	}

	ranges, err := SplitRange(pending.From, pending.To, r.cfg.BatchSize)
	if err != nil {
		return err
	}
	r.logger.Info("sync range", zap.Uint64("from", pending.From), zap.Uint64("to", pending.To), zap.Uint64("blocks", pending.Len()))

	for _, blockRange := range ranges {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		started := time.Now()
		err := r.processRange(ctx, chainIDValue, blockRange)
		if r.metrics != nil {
			r.metrics.ObserveBatch(err, blockRange.To, started)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner) processRange(ctx context.Context, chainID uint64, blockRange BlockRange) error {
	r.logger.Info("fetch blocks", zap.Uint64("from", blockRange.From), zap.Uint64("to", blockRange.To))

	ingestedAt := time.Now().UTC()
	var (
		records []model.Record
		errs    []model.NormalizeError
		txs     int
		logs    int
	)
	for number := blockRange.From; number <= blockRange.To; number++ {
		res, err := r.processBlock(ctx, chainID, number, ingestedAt)
		if err != nil {
			return fmt.Errorf("block %d: %w", number, err)
		}
		records = append(records, res.records...)
		errs = append(errs, res.errs...)
		txs += res.txs
		logs += res.logs
	}

	if err := r.sink.PutRecords(records); err != nil {
		return fmt.Errorf("store records: %w", err)
	}
	if err := r.sink.PutErrors(errs); err != nil {
		return fmt.Errorf("store normalize errors: %w", err)
	}

	if r.checkpoint != nil {
		if err := r.checkpoint.Save(ctx, blockRange.To); err != nil {
			return err
		}
	}
	if r.metrics != nil {
		r.metrics.AddRecords(string(model.RecordTransaction), txs)
		r.metrics.AddRecords("log", logs)
	}

	r.logger.Info("batch complete",
		zap.Int("records", len(records)),
		zap.Int("malformed", len(errs)),
		zap.Uint64("from", blockRange.From),
		zap.Uint64("to", blockRange.To),
	)
	return nil
}

func (r *Runner) processBlock(ctx context.Context, chainID, number uint64, ingestedAt time.Time) (*blockResult, error) {
	res := &blockResult{}

	id := strconv.FormatUint(number, 10)
	raw, err := r.blockWithRetry(ctx, number)
	if errors.Is(err, payload.ErrMalformed) {
		r.malformed(res, chainID, model.RecordBlock, id, err)
		return res, nil
	}
	if err != nil {
		return nil, err
	}
	block, err := normalize.Block(raw)
	if err != nil {
		r.malformed(res, chainID, model.RecordBlock, id, err)
		return res, nil
	}
	rec, err := model.NewRecord(model.RecordBlock, chainID, number, ingestedAt, block)
	if err != nil {
		return nil, err
	}
	res.add(rec)

	hashes := make([]common.Hash, 0, len(block.Transactions))
	for i, item := range rawTransactions(raw) {
		nested, ok := item.Map()
		if !ok {
			// hash-only block bodies carry no transaction objects
			hashes = append(hashes, block.Transactions[i])
			continue
		}
		tx, err := normalize.Transaction(nested)
		if err != nil {
			r.malformed(res, chainID, model.RecordTransaction, block.Transactions[i].Hex(), err)
			continue
		}
		rec, err := model.NewRecord(model.RecordTransaction, chainID, number, ingestedAt, tx)
		if err != nil {
			return nil, err
		}
		res.add(rec)
		res.txs++
		hashes = append(hashes, tx.Hash)
	}

	fetched, err := workerpool.Collect(ctx, r.cfg.Workers, hashes, r.fetchReceipt)
	if err != nil {
		return nil, err
	}
	for i, f := range fetched {
		if f.err != nil {
			r.malformed(res, chainID, model.RecordReceipt, hashes[i].Hex(), f.err)
			continue
		}
		receipt, err := normalize.Receipt(f.raw)
		if err != nil {
			r.malformed(res, chainID, model.RecordReceipt, hashes[i].Hex(), err)
			continue
		}
		rec, err := model.NewRecord(model.RecordReceipt, chainID, number, ingestedAt, receipt)
		if err != nil {
			return nil, err
		}
		res.add(rec)
		res.logs += len(receipt.Logs)
	}
	return res, nil
}

func (r *Runner) malformed(res *blockResult, chainID uint64, record model.RecordType, id string, err error) {
	r.logger.Warn("malformed payload", zap.String("record", string(record)), zap.String("id", id), zap.Error(err))
	res.fail(normalizeError(chainID, string(record), id, err))
	if r.metrics != nil {
		r.metrics.IncMalformed(string(record))
	}
}

func (r *Runner) blockWithRetry(ctx context.Context, number uint64) (payload.Map, error) {
	var raw payload.Map
	err := withRetry(ctx, r.cfg.MaxRetries, r.cfg.RetryBackoff, func(ctx context.Context) error {
		var err error
		raw, err = r.provider.Block(ctx, number, true)
		if err != nil {
			r.logger.Warn("block fetch failed", zap.Error(err), zap.Uint64("block_number", number))
		}
		return err
	})
	return raw, err
}

// fetchedReceipt carries a receipt the provider could not hand over as a
// classifiable payload, so one bad receipt does not cancel its siblings.
type fetchedReceipt struct {
	raw payload.Map
	err error
}

func (r *Runner) fetchReceipt(ctx context.Context, hash common.Hash) (fetchedReceipt, error) {
	raw, err := r.receiptWithRetry(ctx, hash)
	if errors.Is(err, payload.ErrMalformed) {
		return fetchedReceipt{err: err}, nil
	}
	if err != nil {
		return fetchedReceipt{}, err
	}
	return fetchedReceipt{raw: raw}, nil
}

func (r *Runner) receiptWithRetry(ctx context.Context, hash common.Hash) (payload.Map, error) {
	var raw payload.Map
	err := withRetry(ctx, r.cfg.MaxRetries, r.cfg.RetryBackoff, func(ctx context.Context) error {
		var err error
		raw, err = r.provider.TransactionReceipt(ctx, hash)
		if err != nil {
			r.logger.Warn("receipt fetch failed", zap.Error(err), zap.String("tx_hash", hash.Hex()))
		}
		return err
	})
	if err != nil {
		return payload.Map{}, fmt.Errorf("receipt %s: %w", hash.Hex(), err)
	}
	return raw, nil
}

// rawTransactions returns the transactions entry of a raw block that has
// already passed normalization.
func rawTransactions(raw payload.Map) []payload.Value {
	v, _ := raw.Get("transactions")
	items, _ := v.Seq()
	return items
}
