// Package payload classifies raw chain-provider responses into tagged values.
//
// Provider payloads arrive as loosely typed JSON objects whose field names vary
// in case and, for some libraries, in spelling. A Map is built once at the
// boundary; everything downstream reads typed Values and never inspects the
// original JSON again.
package payload

import (
	"fmt"
	"math/big"
	"strings"
)

// Kind tags the raw type of a Value.
type Kind int

const (
	KindNull Kind = iota
	KindHex
	KindString
	KindInteger
	KindBool
	KindMap
	KindSequence
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindHex:
		return "hex-string"
	case KindString:
		return "string"
	case KindInteger:
		return "integer"
	case KindBool:
		return "boolean"
	case KindMap:
		return "map"
	case KindSequence:
		return "sequence"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Value is a single raw field value.
type Value struct {
	kind Kind
	text string
	num  *big.Int
	flag bool
	m    Map
	seq  []Value
}

// Null returns the null value.
func Null() Value { return Value{kind: KindNull} }

// Text classifies a string as hex (0x-prefixed) or plain.
func Text(s string) Value {
	if hasHexPrefix(s) {
		return Value{kind: KindHex, text: s}
	}
	return Value{kind: KindString, text: s}
}

// Integer wraps an integer value.
func Integer(n *big.Int) Value {
	return Value{kind: KindInteger, num: new(big.Int).Set(n)}
}

// Bool wraps a boolean value.
func Bool(b bool) Value { return Value{kind: KindBool, flag: b} }

// Nested wraps a nested map.
func Nested(m Map) Value { return Value{kind: KindMap, m: m} }

// Sequence wraps an ordered sequence of values.
func Sequence(items []Value) Value {
	out := make([]Value, len(items))
	copy(out, items)
	return Value{kind: KindSequence, seq: out}
}

func (v Value) Kind() Kind   { return v.kind }
func (v Value) IsNull() bool { return v.kind == KindNull }

// Str returns the string content of a hex or plain string value.
func (v Value) Str() (string, bool) {
	if v.kind != KindHex && v.kind != KindString {
		return "", false
	}
	return v.text, true
}

// Int returns a copy of the integer content.
func (v Value) Int() (*big.Int, bool) {
	if v.kind != KindInteger {
		return nil, false
	}
	return new(big.Int).Set(v.num), true
}

func (v Value) Bool() (bool, bool) {
	if v.kind != KindBool {
		return false, false
	}
	return v.flag, true
}

func (v Value) Map() (Map, bool) {
	if v.kind != KindMap {
		return Map{}, false
	}
	return v.m, true
}

// Seq returns the sequence items in their original order.
func (v Value) Seq() ([]Value, bool) {
	if v.kind != KindSequence {
		return nil, false
	}
	return v.seq, true
}

// String renders the value for error messages.
func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return "null"
	case KindHex, KindString:
		return fmt.Sprintf("%q", v.text)
	case KindInteger:
		return v.num.String()
	case KindBool:
		return fmt.Sprintf("%t", v.flag)
	case KindMap:
		return fmt.Sprintf("map(%d fields)", v.m.Len())
	case KindSequence:
		return fmt.Sprintf("sequence(%d items)", len(v.seq))
	default:
		return v.kind.String()
	}
}

func hasHexPrefix(s string) bool {
	return len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X')
}

func canonicalName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
