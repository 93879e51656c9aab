package model

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Transaction is the read-only view of an EVM transaction handed to the decoders.
type Transaction struct {
	Hash        common.Hash
	ChainID     uint64
	BlockNumber uint64
	Timestamp   uint64
	From        common.Address
	To          *common.Address
	Value       *big.Int
	Input       []byte
	GasUsed     uint64
	GasPrice    *big.Int
}

// Selector returns the 4-byte method selector of the input data.
func (tx Transaction) Selector() ([4]byte, bool) {
	var sel [4]byte
	if len(tx.Input) < 4 {
		return sel, false
	}
	copy(sel[:], tx.Input[:4])
	return sel, true
}

// GasFee returns gasUsed * gasPrice in wei, or nil when either is unknown.
func (tx Transaction) GasFee() *big.Int {
	if tx.GasPrice == nil || tx.GasUsed == 0 {
		return nil
	}
	return new(big.Int).Mul(new(big.Int).SetUint64(tx.GasUsed), tx.GasPrice)
}

// TxLog is a single receipt log of a transaction.
type TxLog struct {
	Address  common.Address
	Topics   []common.Hash
	Data     []byte
	LogIndex uint64
}

// Topic0 returns the event signature topic.
func (l TxLog) Topic0() (common.Hash, bool) {
	if len(l.Topics) == 0 {
		return common.Hash{}, false
	}
	return l.Topics[0], true
}
