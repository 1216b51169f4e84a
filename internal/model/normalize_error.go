package model

// NormalizeError records a payload that could not be normalized.
type NormalizeError struct {
	ChainID uint64 `json:"chain_id"`
	Record  string `json:"record"`
	ID      string `json:"id"`
	Field   string `json:"field,omitempty"`
	Error   string `json:"error"`
}
