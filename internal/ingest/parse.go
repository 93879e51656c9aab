package ingest

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"historyScope/internal/model"
)

// ParseAddresses converts string addresses into common.Address.
func ParseAddresses(inputs []string) ([]common.Address, error) {
	addresses := make([]common.Address, 0, len(inputs))
	for _, input := range inputs {
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		if !common.IsHexAddress(input) {
			return nil, fmt.Errorf("invalid address: %s", input)
		}
		addresses = append(addresses, common.HexToAddress(input))
	}
	return addresses, nil
}

// ParseHashes converts string transaction hashes into common.Hash.
func ParseHashes(inputs []string) ([]common.Hash, error) {
	hashes := make([]common.Hash, 0, len(inputs))
	for _, input := range inputs {
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		hash, err := parseHash(input)
		if err != nil {
			return nil, err
		}
		hashes = append(hashes, hash)
	}
	return hashes, nil
}

func parseHash(input string) (common.Hash, error) {
	data, err := hexutil.Decode(input)
	if err != nil {
		return common.Hash{}, fmt.Errorf("invalid hash: %s", input)
	}
	if len(data) != common.HashLength {
		return common.Hash{}, fmt.Errorf("invalid hash length: %s", input)
	}
	return common.BytesToHash(data), nil
}

// ParseTransactionRecord converts an input record into decoder types.
func ParseTransactionRecord(record model.TransactionRecord) (model.Transaction, []model.TxLog, error) {
	hash, err := parseHash(record.Hash)
	if err != nil {
		return model.Transaction{}, nil, err
	}
	if !common.IsHexAddress(record.From) {
		return model.Transaction{}, nil, fmt.Errorf("invalid from address: %q", record.From)
	}

	tx := model.Transaction{
		Hash:        hash,
		ChainID:     record.ChainID,
		BlockNumber: record.BlockNumber,
		Timestamp:   record.Timestamp,
		From:        common.HexToAddress(record.From),
		GasUsed:     record.GasUsed,
	}
	if record.To != "" {
		if !common.IsHexAddress(record.To) {
			return model.Transaction{}, nil, fmt.Errorf("invalid to address: %q", record.To)
		}
		to := common.HexToAddress(record.To)
		tx.To = &to
	}
	if tx.Value, err = parseQuantity(record.Value); err != nil {
		return model.Transaction{}, nil, fmt.Errorf("value: %w", err)
	}
	if tx.GasPrice, err = parseQuantity(record.GasPrice); err != nil {
		return model.Transaction{}, nil, fmt.Errorf("gas price: %w", err)
	}
	if tx.Input, err = parseBytes(record.Input); err != nil {
		return model.Transaction{}, nil, fmt.Errorf("input: %w", err)
	}

	logs := make([]model.TxLog, 0, len(record.Logs))
	for _, rec := range record.Logs {
		l, err := parseLogRecord(rec)
		if err != nil {
			return model.Transaction{}, nil, fmt.Errorf("log %d: %w", rec.LogIndex, err)
		}
		logs = append(logs, l)
	}
	return tx, logs, nil
}

func parseLogRecord(rec model.LogRecord) (model.TxLog, error) {
	if !common.IsHexAddress(rec.Address) {
		return model.TxLog{}, fmt.Errorf("invalid address: %q", rec.Address)
	}
	topics := make([]common.Hash, 0, len(rec.Topics))
	for _, topic := range rec.Topics {
		hash, err := parseHash(topic)
		if err != nil {
			return model.TxLog{}, err
		}
		topics = append(topics, hash)
	}
	data, err := parseBytes(rec.Data)
	if err != nil {
		return model.TxLog{}, fmt.Errorf("data: %w", err)
	}
	return model.TxLog{
		Address:  common.HexToAddress(rec.Address),
		Topics:   topics,
		Data:     data,
		LogIndex: rec.LogIndex,
	}, nil
}

// parseQuantity accepts 0x-prefixed hex or base 10. Empty means unknown.
func parseQuantity(input string) (*big.Int, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, nil
	}
	if strings.HasPrefix(input, "0x") || strings.HasPrefix(input, "0X") {
		return hexutil.DecodeBig(input)
	}
	value, ok := new(big.Int).SetString(input, 10)
	if !ok || value.Sign() < 0 {
		return nil, fmt.Errorf("invalid quantity: %s", input)
	}
	return value, nil
}

func parseBytes(input string) ([]byte, error) {
	if input == "" || input == "0x" {
		return nil, nil
	}
	return hexutil.Decode(input)
}
