package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// RecordType names the kind of canonical record carried by a Record.
type RecordType string

const (
	RecordBlock       RecordType = "block"
	RecordTransaction RecordType = "transaction"
	RecordReceipt     RecordType = "receipt"
)

// Record is the storage envelope of one canonical record.
type Record struct {
	Type        RecordType      `json:"type"`
	ChainID     uint64          `json:"chain_id"`
	BlockNumber uint64          `json:"block_number"`
	IngestedAt  string          `json:"ingested_at"`
	Data        json.RawMessage `json:"data"`
}

// NewRecord encodes v as the payload of a Record.
func NewRecord(typ RecordType, chainID, blockNumber uint64, ingestedAt time.Time, v interface{}) (Record, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return Record{}, fmt.Errorf("marshal %s record: %w", typ, err)
	}
	return Record{
		Type:        typ,
		ChainID:     chainID,
		BlockNumber: blockNumber,
		IngestedAt:  ingestedAt.UTC().Format(time.RFC3339Nano),
		Data:        data,
	}, nil
}

// Decode unmarshals the payload into out.
func (r Record) Decode(out interface{}) error {
	if err := json.Unmarshal(r.Data, out); err != nil {
		return fmt.Errorf("decode %s record: %w", r.Type, err)
	}
	return nil
}
