package model

import (
	"encoding/json"
	"testing"
)

func TestEventSemanticsABI(t *testing.T) {
	event := EventSemantics{
		Signature: "0xddf252ad1be2c89b69c2b068fc378daa952ba7f163c4a11628f55a4df523b3ef",
		Name:      "Transfer",
		Parameters: []ParameterSemantics{
			{Name: "from", Type: "address", Indexed: true},
			{Name: "to", Type: "address", Indexed: true},
			{Name: "value", Type: "uint256"},
		},
	}

	ev, err := event.ABI()
	if err != nil {
		t.Fatalf("abi: %v", err)
	}
	if ev.Sig != "Transfer(address,address,uint256)" {
		t.Fatalf("sig mismatch: %s", ev.Sig)
	}
	if TopicKey(ev.ID) != event.Signature {
		t.Fatalf("id mismatch: %s", ev.ID.Hex())
	}
	if len(ev.Inputs.NonIndexed()) != 1 {
		t.Fatalf("expected one non-indexed input")
	}
}

func TestFunctionSemanticsABI(t *testing.T) {
	fn := FunctionSemantics{
		Name: "transfer",
		Inputs: []ParameterSemantics{
			{Name: "to", Type: "address"},
			{Name: "amount", Type: "uint256"},
		},
		Outputs: []ParameterSemantics{{Name: "", Type: "bool"}},
	}

	method, err := fn.ABI()
	if err != nil {
		t.Fatalf("abi: %v", err)
	}
	if got := FunctionSelector(method.Sig); got != "0xa9059cbb" {
		t.Fatalf("selector mismatch: %s", got)
	}
}

func TestParametersFromArgumentsTuple(t *testing.T) {
	event := EventSemantics{
		Name: "Filled",
		Parameters: []ParameterSemantics{
			{Name: "order", Type: "tuple[]", Components: []ParameterSemantics{
				{Name: "maker", Type: "address"},
				{Name: "amounts", Type: "uint256[2]"},
			}},
		},
	}
	ev, err := event.ABI()
	if err != nil {
		t.Fatalf("abi: %v", err)
	}

	params := ParametersFromArguments(ev.Inputs)
	if len(params) != 1 || params[0].Type != "tuple[]" {
		t.Fatalf("params mismatch: %+v", params)
	}
	if len(params[0].Components) != 2 || params[0].Components[1].Type != "uint256[2]" {
		t.Fatalf("components mismatch: %+v", params[0].Components)
	}
	if ev.Sig != "Filled((address,uint256[2])[])" {
		t.Fatalf("sig mismatch: %s", ev.Sig)
	}
}

func TestContractEventSignaturesSorted(t *testing.T) {
	c := Contract{Events: map[string]EventSemantics{"0xbb": {}, "0xaa": {}, "0xcc": {}}}
	got := c.EventSignatures()
	if len(got) != 3 || got[0] != "0xaa" || got[2] != "0xcc" {
		t.Fatalf("order mismatch: %v", got)
	}
}

func TestSignatureEventSemantics(t *testing.T) {
	sig := Signature{Hash: "0x01", Kind: SignatureFunction, Name: "f"}
	if _, err := sig.EventSemantics(); err == nil {
		t.Fatalf("expected error for function signature")
	}
	sig.Kind = SignatureEvent
	ev, err := sig.EventSemantics()
	if err != nil || ev.Signature != "0x01" || ev.Name != "f" {
		t.Fatalf("event semantics mismatch: %+v %v", ev, err)
	}
}

func TestHashes(t *testing.T) {
	if got := CodeHash(nil); got != "0xc5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470" {
		t.Fatalf("empty code hash mismatch: %s", got)
	}
	if got := EventTopic("Transfer(address,address,uint256)"); got != "0xddf252ad1be2c89b69c2b068fc378daa952ba7f163c4a11628f55a4df523b3ef" {
		t.Fatalf("transfer topic mismatch: %s", got)
	}
}

func TestReceiptStatusJSON(t *testing.T) {
	status := StatusSuccess
	data, err := json.Marshal(Receipt{Status: &status})
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if decoded["status"] != "success" {
		t.Fatalf("status should be rendered as text, got %v", decoded["status"])
	}
	if decoded["contract_address"] != nil {
		t.Fatalf("absent contract address should be null")
	}

	var back ReceiptStatus
	if err := json.Unmarshal([]byte(`"failure"`), &back); err != nil || back != StatusFailure {
		t.Fatalf("status unmarshal mismatch: %v %v", back, err)
	}
}
