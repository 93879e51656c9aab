package model

import (
	"encoding/json"
)

// LogRecord is the JSON representation of a receipt log.
type LogRecord struct {
	Address  string   `json:"address"`
	Topics   []string `json:"topics"`
	Data     string   `json:"data"`
	LogIndex uint64   `json:"log_index"`
}

// TransactionRecord is one input line: a transaction with its ordered receipt logs.
type TransactionRecord struct {
	ChainID     uint64      `json:"chain_id"`
	Hash        string      `json:"hash"`
	BlockNumber uint64      `json:"block_number"`
	Timestamp   uint64      `json:"timestamp"`
	From        string      `json:"from"`
	To          string      `json:"to,omitempty"`
	Value       string      `json:"value,omitempty"`
	Input       string      `json:"input,omitempty"`
	GasUsed     uint64      `json:"gas_used,omitempty"`
	GasPrice    string      `json:"gas_price,omitempty"`
	Logs        []LogRecord `json:"logs"`
}

// MarshalJSON ensures TransactionRecord is encoded with stable field names.
func (tr TransactionRecord) MarshalJSON() ([]byte, error) {
	type Alias TransactionRecord
	a := Alias(tr)
	if a.Logs == nil {
		a.Logs = []LogRecord{}
	}
	return json.Marshal(a)
}

// UnmarshalJSON decodes a TransactionRecord from JSON.
func (tr *TransactionRecord) UnmarshalJSON(data []byte) error {
	type Alias TransactionRecord
	var a Alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*tr = TransactionRecord(a)
	return nil
}

// DecodedTransaction is one output line: the decoded events and the raw logs they came from.
type DecodedTransaction struct {
	ChainID uint64         `json:"chain_id"`
	TxHash  string         `json:"tx_hash"`
	Events  []HistoryEvent `json:"events"`
	Logs    []LogRecord    `json:"logs"`
}
