package registry

import "strings"

// ContractKey derives the key of a contract entry from its code hash.
func ContractKey(chash string) string {
	return normalizeHex(chash)
}

// AddressKey derives the key of an address label: network, a dash, address.
func AddressKey(network, address string) string {
	return strings.TrimSpace(network) + "-" + normalizeHex(address)
}

// SignatureKey derives the key of a signature entry from its selector hash.
func SignatureKey(hash string) string {
	return normalizeHex(hash)
}

// normalizeHex lower-cases 0x-prefixed hex so differently cased spellings of
// one hash or address share a key. Other strings are kept verbatim.
func normalizeHex(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return strings.ToLower(s)
	}
	return s
}
