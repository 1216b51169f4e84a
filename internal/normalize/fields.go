package normalize

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"txsemantics/internal/payload"
)

// fields reads typed values from a payload map. The first failure sticks and
// later reads become no-ops, so a record builder can read every field and
// check err once.
type fields struct {
	record string
	m      payload.Map
	err    error
}

func newFields(record string, m payload.Map) *fields {
	return &fields{record: record, m: m}
}

// lookup returns the value when present and non-null. A missing required
// field records a failure.
func (f *fields) lookup(name string, required bool) (payload.Value, bool) {
	if f.err != nil {
		return payload.Value{}, false
	}
	v, ok := f.m.Get(name)
	if !ok || v.IsNull() {
		if required {
			f.err = malformed(f.record, name, "required field missing")
		}
		return payload.Value{}, false
	}
	return v, true
}

func (f *fields) fail(name string, err error) {
	if f.err == nil {
		f.err = malformed(f.record, name, "%v", err)
	}
}

func (f *fields) hash(name string) common.Hash {
	h, _ := f.readHash(name, true)
	return h
}

func (f *fields) optHash(name string) *common.Hash {
	h, ok := f.readHash(name, false)
	if !ok {
		return nil
	}
	return &h
}

func (f *fields) readHash(name string, required bool) (common.Hash, bool) {
	v, ok := f.lookup(name, required)
	if !ok {
		return common.Hash{}, false
	}
	h, err := decodeHash(v)
	if err != nil {
		f.fail(name, err)
		return common.Hash{}, false
	}
	return h, true
}

func (f *fields) address(name string) common.Address {
	a, _ := f.readAddress(name, true)
	return a
}

func (f *fields) optAddress(name string) *common.Address {
	a, ok := f.readAddress(name, false)
	if !ok {
		return nil
	}
	return &a
}

func (f *fields) readAddress(name string, required bool) (common.Address, bool) {
	v, ok := f.lookup(name, required)
	if !ok {
		return common.Address{}, false
	}
	a, err := decodeAddress(v)
	if err != nil {
		f.fail(name, err)
		return common.Address{}, false
	}
	return a, true
}

func (f *fields) bytes(name string) hexutil.Bytes {
	return f.readBytes(name, true)
}

func (f *fields) optBytes(name string) hexutil.Bytes {
	return f.readBytes(name, false)
}

func (f *fields) readBytes(name string, required bool) hexutil.Bytes {
	v, ok := f.lookup(name, required)
	if !ok {
		return nil
	}
	b, err := decodeBytes(v)
	if err != nil {
		f.fail(name, err)
		return nil
	}
	return b
}

func (f *fields) quantity(name string) *big.Int {
	return f.readQuantity(name, true)
}

func (f *fields) optQuantity(name string) *big.Int {
	return f.readQuantity(name, false)
}

func (f *fields) readQuantity(name string, required bool) *big.Int {
	v, ok := f.lookup(name, required)
	if !ok {
		return nil
	}
	n, err := decodeQuantity(v)
	if err != nil {
		f.fail(name, err)
		return nil
	}
	return n
}

func (f *fields) uint64(name string) uint64 {
	n, _ := f.readUint64(name, true)
	return n
}

func (f *fields) optUint64(name string) *uint64 {
	n, ok := f.readUint64(name, false)
	if !ok {
		return nil
	}
	return &n
}

func (f *fields) readUint64(name string, required bool) (uint64, bool) {
	n := f.readQuantity(name, required)
	if n == nil {
		return 0, false
	}
	if !n.IsUint64() {
		f.fail(name, errOutOfRange(n))
		return 0, false
	}
	return n.Uint64(), true
}

func (f *fields) bool(name string) bool {
	v, ok := f.lookup(name, true)
	if !ok {
		return false
	}
	b, isBool := v.Bool()
	if !isBool {
		f.fail(name, errKind(v, payload.KindBool))
		return false
	}
	return b
}

func (f *fields) sequence(name string) []payload.Value {
	v, ok := f.lookup(name, true)
	if !ok {
		return nil
	}
	items, isSeq := v.Seq()
	if !isSeq {
		f.fail(name, errKind(v, payload.KindSequence))
		return nil
	}
	return items
}

func (f *fields) hashes(name string) []common.Hash {
	items := f.sequence(name)
	if f.err != nil {
		return nil
	}
	out := make([]common.Hash, 0, len(items))
	for i, item := range items {
		h, err := decodeHash(item)
		if err != nil {
			f.fail(indexed(name, i), err)
			return nil
		}
		out = append(out, h)
	}
	return out
}
