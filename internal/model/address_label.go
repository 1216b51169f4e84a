package model

// AddressLabel classifies an address on one network. ContractHash links a
// classified contract address to its Contract entry.
type AddressLabel struct {
	Network      string            `json:"network"`
	Address      string            `json:"address"`
	Label        string            `json:"label"`
	ContractHash string            `json:"chash,omitempty"`
	IsContract   bool              `json:"is_contract"`
	Standard     string            `json:"standard,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}
