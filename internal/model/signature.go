package model

import "fmt"

// SignatureKind distinguishes function selectors from event topics.
type SignatureKind string

const (
	SignatureFunction SignatureKind = "function"
	SignatureEvent    SignatureKind = "event"
)

// Signature is a global selector entry: a 4-byte function selector or a
// 32-byte event topic mapped to its canonical text and parameter layout.
type Signature struct {
	Hash       string               `json:"hash"`
	Kind       SignatureKind        `json:"kind"`
	Name       string               `json:"name"`
	Text       string               `json:"text"`
	Anonymous  bool                 `json:"anonymous,omitempty"`
	Parameters []ParameterSemantics `json:"parameters"`
}

// EventSemantics converts an event signature into event semantics.
func (s Signature) EventSemantics() (EventSemantics, error) {
	if s.Kind != SignatureEvent {
		return EventSemantics{}, fmt.Errorf("signature %s is a %s, not an event", s.Hash, s.Kind)
	}
	params := make([]ParameterSemantics, len(s.Parameters))
	copy(params, s.Parameters)
	return EventSemantics{
		Signature:  s.Hash,
		Anonymous:  s.Anonymous,
		Name:       s.Name,
		Parameters: params,
	}, nil
}
