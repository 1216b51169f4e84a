package model

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// CodeHash returns the content hash (chash) of runtime bytecode.
func CodeHash(code []byte) string {
	return strings.ToLower(crypto.Keccak256Hash(code).Hex())
}

// EventTopic returns the topic hash of a canonical event signature text,
// e.g. "Transfer(address,address,uint256)".
func EventTopic(text string) string {
	return strings.ToLower(crypto.Keccak256Hash([]byte(text)).Hex())
}

// FunctionSelector returns the 4-byte selector of a canonical function
// signature text.
func FunctionSelector(text string) string {
	return hexutil.Encode(crypto.Keccak256([]byte(text))[:4])
}

// TopicKey renders a topic hash in the form used for registry and bundle keys.
func TopicKey(topic common.Hash) string {
	return strings.ToLower(topic.Hex())
}
