package decoding

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"historyScope/internal/model"
)

// WordSize is the size of one ABI word.
const WordSize = 32

// Word returns the i-th 32-byte word of data.
func Word(data []byte, i int) ([]byte, error) {
	if i < 0 {
		return nil, fmt.Errorf("%w: word %d", ErrShortData, i)
	}
	start := i * WordSize
	end := start + WordSize
	if end > len(data) {
		return nil, fmt.Errorf("%w: word %d needs %d bytes, have %d", ErrShortData, i, end, len(data))
	}
	return data[start:end], nil
}

// WordUint reads the i-th word of data as an unsigned 256-bit integer.
func WordUint(data []byte, i int) (*big.Int, error) {
	word, err := Word(data, i)
	if err != nil {
		return nil, err
	}
	return new(uint256.Int).SetBytes32(word).ToBig(), nil
}

// WordAddress reads the i-th word of data as a left-padded address.
func WordAddress(data []byte, i int) (common.Address, error) {
	word, err := Word(data, i)
	if err != nil {
		return common.Address{}, err
	}
	return common.BytesToAddress(word[12:]), nil
}

// Topic returns topic i of the log.
func Topic(log model.TxLog, i int) (common.Hash, error) {
	if i < 0 || i >= len(log.Topics) {
		return common.Hash{}, fmt.Errorf("%w: topic %d of %d", ErrMissingTopic, i, len(log.Topics))
	}
	return log.Topics[i], nil
}

// TopicAddress interprets an indexed topic as an address.
func TopicAddress(topic common.Hash) common.Address {
	return common.BytesToAddress(topic[12:])
}

// TopicUint interprets an indexed topic as an unsigned 256-bit integer.
func TopicUint(topic common.Hash) *big.Int {
	return new(uint256.Int).SetBytes32(topic[:]).ToBig()
}

// AddressTopic left-pads an address into an indexed topic.
func AddressTopic(addr common.Address) common.Hash {
	return common.BytesToHash(addr.Bytes())
}
