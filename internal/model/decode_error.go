package model

// DecodeError records a decode failure for a transaction or one of its logs.
type DecodeError struct {
	ChainID  uint64  `json:"chain_id"`
	TxHash   string  `json:"tx_hash"`
	LogIndex *uint64 `json:"log_index,omitempty"`
	Address  string  `json:"address,omitempty"`
	Decoder  string  `json:"decoder,omitempty"`
	Error    string  `json:"error"`
}
