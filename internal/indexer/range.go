package indexer

import "fmt"

// BlockRange is an inclusive range of block numbers.
type BlockRange struct {
	From uint64
	To   uint64
}

// Len returns the number of blocks in the range.
func (r BlockRange) Len() uint64 {
	return r.To - r.From + 1
}

// pendingRange resolves what is left to ingest. to == 0 follows the chain
// head; a checkpoint at or past from resumes right after it. ok is false when
// the range is already covered.
func pendingRange(from, to, head, checkpoint uint64, resumed bool) (BlockRange, bool) {
	if to == 0 {
		to = head
	}
	if resumed && checkpoint >= from {
		if checkpoint == ^uint64(0) {
			return BlockRange{}, false
		}
		from = checkpoint + 1
	}
	if from > to {
		return BlockRange{}, false
	}
	return BlockRange{From: from, To: to}, true
}

// SplitRange cuts from..to into consecutive batches of at most batchSize
// blocks.
func SplitRange(from, to, batchSize uint64) ([]BlockRange, error) {
	if batchSize == 0 {
		return nil, fmt.Errorf("batch size must be greater than zero")
	}
	if to < from {
		return nil, fmt.Errorf("to block must be >= from block")
	}

	ranges := make([]BlockRange, 0, (to-from)/batchSize+1)
	for start := from; ; start += batchSize {
		end := to
		if to-start >= batchSize {
			end = start + batchSize - 1
		}
		ranges = append(ranges, BlockRange{From: start, To: end})
		if end == to {
			return ranges, nil
		}
	}
}
