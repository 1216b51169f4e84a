package payload

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/big"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// aliases maps a canonical field name to spellings used by some providers.
var aliases = map[string][]string{
	"from": {"from_address"},
	"to":   {"to_address"},
}

// ErrMalformed is matched by every payload the adapter refuses to classify.
var ErrMalformed = errors.New("malformed payload")

// maxExponent bounds exponent notation; 2^256 is below 1e78.
const maxExponent = 80

// MalformedError reports a raw value that cannot be classified. Path points
// from the payload root to the offending value, e.g. "logs[1].data".
type MalformedError struct {
	Path   string
	Reason string
}

func (e *MalformedError) Error() string {
	if e.Path == "" {
		return "malformed payload: " + e.Reason
	}
	return fmt.Sprintf("malformed payload: field %s: %s", e.Path, e.Reason)
}

func (e *MalformedError) Is(target error) bool {
	return target == ErrMalformed
}

func malformedf(format string, args ...interface{}) *MalformedError {
	return &MalformedError{Reason: fmt.Sprintf(format, args...)}
}

// under prefixes the path of a nested failure with its parent element.
func under(err error, element string) error {
	var me *MalformedError
	if !errors.As(err, &me) {
		return err
	}
	path := element
	switch {
	case me.Path == "":
	case strings.HasPrefix(me.Path, "["):
		path += me.Path
	default:
		path += "." + me.Path
	}
	return &MalformedError{Path: path, Reason: me.Reason}
}

// Map is a raw payload object with case-insensitive field access.
type Map struct {
	fields map[string]Value
}

// Get returns the named field. A field present with a JSON null is reported
// as present with a KindNull value.
func (m Map) Get(name string) (Value, bool) {
	key := canonicalName(name)
	if v, ok := m.fields[key]; ok {
		return v, true
	}
	for _, alias := range aliases[key] {
		if v, ok := m.fields[alias]; ok {
			return v, true
		}
	}
	return Value{}, false
}

// Has reports whether the field is present and not null.
func (m Map) Has(name string) bool {
	v, ok := m.Get(name)
	return ok && !v.IsNull()
}

func (m Map) Len() int { return len(m.fields) }

// Keys returns the canonical field names in sorted order.
func (m Map) Keys() []string {
	keys := make([]string, 0, len(m.fields))
	for k := range m.fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Parse classifies a JSON object.
func Parse(data []byte) (Map, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw interface{}
	if err := dec.Decode(&raw); err != nil {
		return Map{}, malformedf("decode: %v", err)
	}
	obj, ok := raw.(map[string]interface{})
	if !ok {
		return Map{}, malformedf("payload is %T, want object", raw)
	}
	return FromMap(obj)
}

// FromMap classifies a decoded object. Byte slices are treated as hex data and
// JSON numbers must be integral. Names that collide once case is folded, or a
// field given under both its name and an alias, are rejected.
func FromMap(obj map[string]interface{}) (Map, error) {
	names := make([]string, 0, len(obj))
	for name := range obj {
		names = append(names, name)
	}
	sort.Strings(names)

	m := Map{fields: make(map[string]Value, len(obj))}
	for _, name := range names {
		key := canonicalName(name)
		if _, dup := m.fields[key]; dup {
			return Map{}, &MalformedError{Path: name, Reason: "duplicate field name"}
		}
		v, err := classify(obj[name])
		if err != nil {
			return Map{}, under(err, name)
		}
		m.fields[key] = v
	}
	for key, spellings := range aliases {
		if _, ok := m.fields[key]; !ok {
			continue
		}
		for _, alias := range spellings {
			if _, ok := m.fields[alias]; ok {
				return Map{}, &MalformedError{Path: alias, Reason: "conflicts with field " + key}
			}
		}
	}
	return m, nil
}

func classify(raw interface{}) (Value, error) {
	switch v := raw.(type) {
	case nil:
		return Null(), nil
	case Value:
		return v, nil
	case Map:
		return Nested(v), nil
	case string:
		return Text(v), nil
	case []byte:
		return Value{kind: KindHex, text: hexutil.Encode(v)}, nil
	case bool:
		return Bool(v), nil
	case json.Number:
		n, err := parseInteger(v.String())
		if err != nil {
			return Value{}, err
		}
		return Value{kind: KindInteger, num: n}, nil
	case float64:
		if v != math.Trunc(v) || math.IsInf(v, 0) || math.IsNaN(v) {
			return Value{}, malformedf("non-integral number %v", v)
		}
		n, _ := big.NewFloat(v).Int(nil)
		return Value{kind: KindInteger, num: n}, nil
	case *big.Int:
		if v == nil {
			return Null(), nil
		}
		return Integer(v), nil
	case int:
		return Integer(big.NewInt(int64(v))), nil
	case int32:
		return Integer(big.NewInt(int64(v))), nil
	case int64:
		return Integer(big.NewInt(v)), nil
	case uint:
		return Integer(new(big.Int).SetUint64(uint64(v))), nil
	case uint32:
		return Integer(new(big.Int).SetUint64(uint64(v))), nil
	case uint64:
		return Integer(new(big.Int).SetUint64(v)), nil
	case map[string]interface{}:
		nested, err := FromMap(v)
		if err != nil {
			return Value{}, err
		}
		return Nested(nested), nil
	case []interface{}:
		items := make([]Value, 0, len(v))
		for i, item := range v {
			iv, err := classify(item)
			if err != nil {
				return Value{}, under(err, fmt.Sprintf("[%d]", i))
			}
			items = append(items, iv)
		}
		return Value{kind: KindSequence, seq: items}, nil
	case []map[string]interface{}:
		items := make([]Value, 0, len(v))
		for i, item := range v {
			nested, err := FromMap(item)
			if err != nil {
				return Value{}, under(err, fmt.Sprintf("[%d]", i))
			}
			items = append(items, Nested(nested))
		}
		return Value{kind: KindSequence, seq: items}, nil
	case []string:
		items := make([]Value, 0, len(v))
		for _, item := range v {
			items = append(items, Text(item))
		}
		return Value{kind: KindSequence, seq: items}, nil
	default:
		return Value{}, malformedf("unsupported raw type %s", reflect.TypeOf(raw))
	}
}

// parseInteger accepts plain integers and decimal or exponent spellings of
// exact integers ("2.0", "1e3").
func parseInteger(s string) (*big.Int, error) {
	if n, ok := new(big.Int).SetString(s, 10); ok {
		return n, nil
	}
	if i := strings.IndexAny(s, "eE"); i >= 0 {
		exp, err := strconv.Atoi(strings.TrimPrefix(s[i+1:], "+"))
		if err != nil || exp > maxExponent || exp < -maxExponent {
			return nil, malformedf("number %s out of range", s)
		}
	}
	r, ok := new(big.Rat).SetString(s)
	if !ok {
		return nil, malformedf("invalid number %s", s)
	}
	if !r.IsInt() {
		return nil, malformedf("non-integral number %s", s)
	}
	return new(big.Int).Set(r.Num()), nil
}
