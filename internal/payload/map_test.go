package payload

import (
	"errors"
	"math/big"
	"testing"
)

func TestParseClassifiesFields(t *testing.T) {
	m, err := Parse([]byte(`{
		"blockHash": "0x88e96d4537bea4d9c05d12549907b32561d3bf31f45aae734cdc119f13406cb6",
		"blockNumber": 123,
		"from_address": "0x1111111111111111111111111111111111111111",
		"to": null,
		"value": "1000",
		"removed": false,
		"logs": [{"address": "0x22"}],
		"receipt": {"status": "0x1"}
	}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	cases := map[string]Kind{
		"blockhash":   KindHex,
		"BLOCKNUMBER": KindInteger,
		"from":        KindHex,
		"to":          KindNull,
		"value":       KindString,
		"removed":     KindBool,
		"logs":        KindSequence,
		"receipt":     KindMap,
	}
	for name, want := range cases {
		v, ok := m.Get(name)
		if !ok {
			t.Fatalf("field %s missing", name)
		}
		if v.Kind() != want {
			t.Fatalf("field %s kind %s, want %s", name, v.Kind(), want)
		}
	}

	if m.Has("to") {
		t.Fatalf("null field reported as present")
	}
	if _, ok := m.Get("missing"); ok {
		t.Fatalf("missing field reported")
	}

	n, _ := mustGet(t, m, "blockNumber").Int()
	if n.Cmp(big.NewInt(123)) != 0 {
		t.Fatalf("blockNumber mismatch: %s", n)
	}
}

func TestParseRejectsMalformed(t *testing.T) {
	cases := []struct {
		name string
		js   string
		path string
	}{
		{"fractional number", `{"gas": 1.5}`, "gas"},
		{"fraction in exponent form", `{"gas": 15e-1}`, "gas"},
		{"huge exponent", `{"gas": 1e999999999}`, "gas"},
		{"nested sequence", `{"logs": [{"logIndex": "0x0"}, {"logIndex": 0.5}]}`, "logs[1].logIndex"},
		{"case duplicate", `{"hash": "0x01", "Hash": "0x02"}`, "hash"},
		{"alias conflict", `{"from": "0x01", "from_address": "0x02"}`, "from_address"},
		{"non-object", `[1,2]`, ""},
		{"broken json", `{"gas":`, ""},
	}
	for _, tc := range cases {
		_, err := Parse([]byte(tc.js))
		if !errors.Is(err, ErrMalformed) {
			t.Fatalf("%s: expected ErrMalformed, got %v", tc.name, err)
		}
		var me *MalformedError
		if !errors.As(err, &me) {
			t.Fatalf("%s: expected MalformedError, got %T", tc.name, err)
		}
		if tc.path != "" && me.Path != tc.path {
			t.Fatalf("%s: path %q, want %q", tc.name, me.Path, tc.path)
		}
	}
}

func TestParseAcceptsIntegralSpellings(t *testing.T) {
	m, err := Parse([]byte(`{"a": 1e3, "b": 2.0, "c": 1.5E1, "d": -7}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	want := map[string]int64{"a": 1000, "b": 2, "c": 15, "d": -7}
	for name, n := range want {
		got, ok := mustGet(t, m, name).Int()
		if !ok || got.Cmp(big.NewInt(n)) != 0 {
			t.Fatalf("%s: got %v, want %d", name, got, n)
		}
	}
}

func TestFromMapBytesAreHex(t *testing.T) {
	m, err := FromMap(map[string]interface{}{
		"input":  []byte{0xde, 0xad},
		"topics": []string{"0x01", "0x02"},
		"nonce":  uint64(7),
	})
	if err != nil {
		t.Fatalf("from map: %v", err)
	}

	input := mustGet(t, m, "input")
	if s, _ := input.Str(); input.Kind() != KindHex || s != "0xdead" {
		t.Fatalf("input mismatch: %s", input)
	}
	topics, ok := mustGet(t, m, "topics").Seq()
	if !ok || len(topics) != 2 || topics[1].Kind() != KindHex {
		t.Fatalf("topics mismatch")
	}
	if _, err := FromMap(map[string]interface{}{"bad": struct{}{}}); err == nil {
		t.Fatalf("expected error for unsupported type")
	}
}

func mustGet(t *testing.T, m Map, name string) Value {
	t.Helper()
	v, ok := m.Get(name)
	if !ok {
		t.Fatalf("field %s missing", name)
	}
	return v
}
