package decoding

import (
	"context"
	"fmt"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"historyScope/internal/model"
)

var (
	testUser     = common.HexToAddress("0xaAaAaAaaAaAaAaaAaAAAAAAAAaaaAaAaAaaAaaAa")
	testOther    = common.HexToAddress("0x2222222222222222222222222222222222222222")
	testTokenA   = common.HexToAddress("0x1000000000000000000000000000000000000001")
	testTokenB   = common.HexToAddress("0x1000000000000000000000000000000000000002")
	testContract = common.HexToAddress("0x3333333333333333333333333333333333333333")
)

type staticTokens map[common.Address]model.Token

func (s staticTokens) GetOrCreateToken(_ context.Context, _ uint64, address common.Address) (model.Token, error) {
	token, ok := s[address]
	if !ok {
		return model.Token{}, fmt.Errorf("unknown token %s", address.Hex())
	}
	return token, nil
}

func testTokens() staticTokens {
	return staticTokens{
		testTokenA: model.NewToken(1, testTokenA, 18, "TKA", "Token A"),
		testTokenB: model.NewToken(1, testTokenB, 6, "TKB", "Token B"),
	}
}

func newTestPipeline(t *testing.T, protocols ...Protocol) *Pipeline {
	t.Helper()

	registry := NewRegistry(1)
	for _, p := range protocols {
		require.NoError(t, registry.Register(p))
	}
	registry.Freeze()

	tools := NewTools(1, "ethereum", testTokens(), []common.Address{testUser})
	pipeline, err := NewPipeline(registry, tools, zap.NewNop())
	require.NoError(t, err)
	return pipeline
}

func testTx() model.Transaction {
	to := testContract
	return model.Transaction{
		Hash:      common.HexToHash("0x01"),
		ChainID:   1,
		Timestamp: 1700000000,
		From:      testUser,
		To:        &to,
	}
}

func transferLog(token, from, to common.Address, raw *big.Int, index uint64) model.TxLog {
	return model.TxLog{
		Address:  token,
		Topics:   []common.Hash{TransferTopic, AddressTopic(from), AddressTopic(to)},
		Data:     common.LeftPadBytes(raw.Bytes(), 32),
		LogIndex: index,
	}
}

func ether(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(1_000_000_000_000_000_000))
}
