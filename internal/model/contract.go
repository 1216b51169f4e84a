package model

import (
	"fmt"
	"sort"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// Contract is a registry entry holding the semantics of one runtime bytecode.
// ContractHash (chash) is the content hash that keys the entry; Events is keyed
// by topic hash and Functions by 4-byte selector, both lower-case hex.
type Contract struct {
	ContractHash string                       `json:"chash"`
	Name         string                       `json:"name"`
	Events       map[string]EventSemantics    `json:"events"`
	Functions    map[string]FunctionSemantics `json:"functions,omitempty"`
}

// ParameterSemantics describes one ABI parameter.
type ParameterSemantics struct {
	Name       string               `json:"name"`
	Type       string               `json:"type"`
	Indexed    bool                 `json:"indexed,omitempty"`
	Components []ParameterSemantics `json:"components,omitempty"`
}

// EventSemantics describes an event ABI entry.
type EventSemantics struct {
	Signature  string               `json:"signature"`
	Anonymous  bool                 `json:"anonymous"`
	Name       string               `json:"name"`
	Parameters []ParameterSemantics `json:"parameters"`
}

// FunctionSemantics describes a function ABI entry.
type FunctionSemantics struct {
	Signature string               `json:"signature"`
	Name      string               `json:"name"`
	Inputs    []ParameterSemantics `json:"inputs"`
	Outputs   []ParameterSemantics `json:"outputs,omitempty"`
}

// EventSignatures returns the event keys in ascending order.
func (c *Contract) EventSignatures() []string {
	keys := make([]string, 0, len(c.Events))
	for k := range c.Events {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ABI converts the event into a go-ethereum event definition.
func (e EventSemantics) ABI() (abi.Event, error) {
	args, err := toArguments(e.Parameters)
	if err != nil {
		return abi.Event{}, fmt.Errorf("event %s: %w", e.Name, err)
	}
	return abi.NewEvent(e.Name, e.Name, e.Anonymous, args), nil
}

// ABI converts the function into a go-ethereum method definition.
func (f FunctionSemantics) ABI() (abi.Method, error) {
	inputs, err := toArguments(f.Inputs)
	if err != nil {
		return abi.Method{}, fmt.Errorf("function %s inputs: %w", f.Name, err)
	}
	outputs, err := toArguments(f.Outputs)
	if err != nil {
		return abi.Method{}, fmt.Errorf("function %s outputs: %w", f.Name, err)
	}
	return abi.NewMethod(f.Name, f.Name, abi.Function, "", false, false, inputs, outputs), nil
}

func toArguments(params []ParameterSemantics) (abi.Arguments, error) {
	args := make(abi.Arguments, 0, len(params))
	for _, p := range params {
		typ, err := abi.NewType(p.Type, "", toMarshaling(p.Components))
		if err != nil {
			return nil, fmt.Errorf("parameter %s: %w", p.Name, err)
		}
		args = append(args, abi.Argument{Name: p.Name, Type: typ, Indexed: p.Indexed})
	}
	return args, nil
}

func toMarshaling(params []ParameterSemantics) []abi.ArgumentMarshaling {
	if len(params) == 0 {
		return nil
	}
	out := make([]abi.ArgumentMarshaling, 0, len(params))
	for _, p := range params {
		out = append(out, abi.ArgumentMarshaling{
			Name:       p.Name,
			Type:       p.Type,
			Indexed:    p.Indexed,
			Components: toMarshaling(p.Components),
		})
	}
	return out
}

// ParametersFromArguments converts go-ethereum arguments into parameter semantics.
func ParametersFromArguments(args abi.Arguments) []ParameterSemantics {
	out := make([]ParameterSemantics, 0, len(args))
	for _, arg := range args {
		out = append(out, ParameterSemantics{
			Name:       arg.Name,
			Type:       typeName(arg.Type),
			Indexed:    arg.Indexed,
			Components: tupleComponents(arg.Type),
		})
	}
	return out
}

// typeName keeps tuples spelled as "tuple" so NewType can rebuild them from
// components.
func typeName(t abi.Type) string {
	switch t.T {
	case abi.TupleTy:
		return "tuple"
	case abi.SliceTy:
		return typeName(*t.Elem) + "[]"
	case abi.ArrayTy:
		return fmt.Sprintf("%s[%d]", typeName(*t.Elem), t.Size)
	default:
		return t.String()
	}
}

func tupleComponents(t abi.Type) []ParameterSemantics {
	for t.T == abi.SliceTy || t.T == abi.ArrayTy {
		t = *t.Elem
	}
	if t.T != abi.TupleTy {
		return nil
	}
	out := make([]ParameterSemantics, 0, len(t.TupleElems))
	for i, elem := range t.TupleElems {
		out = append(out, ParameterSemantics{
			Name:       t.TupleRawNames[i],
			Type:       typeName(*elem),
			Components: tupleComponents(*elem),
		})
	}
	return out
}
