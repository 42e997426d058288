package model

// TokenMeta captures the metadata a pool needs about an underlying token.
type TokenMeta struct {
	Token    string `json:"token"`
	Decimals uint8  `json:"decimals"`
	Symbol   string `json:"symbol,omitempty"`
	Name     string `json:"name,omitempty"`
}
