package decoding

import (
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"historyScope/internal/model"
)

func TestWordReaders(t *testing.T) {
	addr := common.HexToAddress("0x4444444444444444444444444444444444444444")
	data := append(common.LeftPadBytes(big.NewInt(1234).Bytes(), 32), common.LeftPadBytes(addr.Bytes(), 32)...)

	v, err := WordUint(data, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1234), v.Int64())

	got, err := WordAddress(data, 1)
	require.NoError(t, err)
	assert.Equal(t, addr, got)

	_, err = Word(data, 2)
	assert.True(t, errors.Is(err, ErrShortData))
	_, err = Word(data, -1)
	assert.True(t, errors.Is(err, ErrShortData))
}

func TestWordUintFullRange(t *testing.T) {
	data := make([]byte, 32)
	for i := range data {
		data[i] = 0xff
	}
	v, err := WordUint(data, 0)
	require.NoError(t, err)

	max := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))
	assert.Zero(t, max.Cmp(v))
}

func TestTopicHelpers(t *testing.T) {
	addr := common.HexToAddress("0x5555555555555555555555555555555555555555")
	assert.Equal(t, addr, TopicAddress(AddressTopic(addr)))
	assert.Equal(t, int64(7), TopicUint(common.BigToHash(big.NewInt(7))).Int64())

	log := model.TxLog{Topics: []common.Hash{TransferTopic}}
	topic, err := Topic(log, 0)
	require.NoError(t, err)
	assert.Equal(t, TransferTopic, topic)

	_, err = Topic(log, 1)
	assert.True(t, errors.Is(err, ErrMissingTopic))
}
