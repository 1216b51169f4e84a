// Package storage holds sinks for canonical chain records.
package storage

import "txsemantics/internal/model"

// Sink receives canonical records and the payloads that failed to normalize.
type Sink interface {
	PutRecords(records []model.Record) error
	PutErrors(errs []model.NormalizeError) error
}
