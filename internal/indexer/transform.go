package indexer

import (
	"errors"

	"txsemantics/internal/model"
	"txsemantics/internal/normalize"
	"txsemantics/internal/payload"
)

// normalizeError turns a normalizer failure into a storable error record.
func normalizeError(chainID uint64, record, id string, err error) model.NormalizeError {
	out := model.NormalizeError{
		ChainID: chainID,
		Record:  record,
		ID:      id,
		Error:   err.Error(),
	}
	var mp *normalize.MalformedPayloadError
	var me *payload.MalformedError
	switch {
	case errors.As(err, &mp):
		out.Field = mp.Field
	case errors.As(err, &me):
		out.Field = me.Path
	}
	return out
}

// blockResult collects what one block produced.
type blockResult struct {
	records []model.Record
	errs    []model.NormalizeError
	txs     int
	logs    int
}

func (b *blockResult) add(r model.Record) {
	b.records = append(b.records, r)
}

func (b *blockResult) fail(e model.NormalizeError) {
	b.errs = append(b.errs, e)
}
