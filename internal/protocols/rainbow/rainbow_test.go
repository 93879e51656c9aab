package rainbow

import (
	"context"
	"fmt"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"historyScope/internal/decoding"
	"historyScope/internal/model"
)

var (
	user   = common.HexToAddress("0x3C3Bd6fD9D7D51C0F0DF6F9c4cAc2C6f5bB02A6e")
	target = common.HexToAddress("0xDef1C0ded9bec7F1a1670819833240f027b25EfF")
	usdc   = common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")
	dai    = common.HexToAddress("0x6B175474E89094C44Da98b954EedeAC495271d0F")
)

type staticTokens map[common.Address]model.Token

func (s staticTokens) GetOrCreateToken(_ context.Context, _ uint64, address common.Address) (model.Token, error) {
	token, ok := s[address]
	if !ok {
		return model.Token{}, fmt.Errorf("unknown token %s", address.Hex())
	}
	return token, nil
}

func newPipeline(t *testing.T) *decoding.Pipeline {
	t.Helper()
	registry := decoding.NewRegistry(1)
	require.NoError(t, registry.Register(New(1)))
	registry.Freeze()
	tools := decoding.NewTools(1, "ethereum", staticTokens{
		usdc: model.NewToken(1, usdc, 6, "USDC", "USD Coin"),
		dai:  model.NewToken(1, dai, 18, "DAI", "Dai Stablecoin"),
	}, []common.Address{user})
	pipeline, err := decoding.NewPipeline(registry, tools, zap.NewNop())
	require.NoError(t, err)
	return pipeline
}

func pack(t *testing.T, method string, args ...any) []byte {
	t.Helper()
	parsed, err := parsedRouterABI()
	require.NoError(t, err)
	input, err := parsed.Pack(method, args...)
	require.NoError(t, err)
	return input
}

func transferLog(token, from, to common.Address, raw *big.Int, index uint64) model.TxLog {
	return model.TxLog{
		Address:  token,
		Topics:   []common.Hash{decoding.TransferTopic, decoding.AddressTopic(from), decoding.AddressTopic(to)},
		Data:     common.LeftPadBytes(raw.Bytes(), 32),
		LogIndex: index,
	}
}

func swapTx(input []byte, value *big.Int) model.Transaction {
	router := Router
	return model.Transaction{
		Hash:      common.HexToHash("0x4a1b0"),
		ChainID:   1,
		Timestamp: 1700000500,
		From:      user,
		To:        &router,
		Value:     value,
		Input:     input,
	}
}

func TestEthToTokenSwap(t *testing.T) {
	value, _ := new(big.Int).SetString("1000000000000000000", 10)
	fee, _ := new(big.Int).SetString("8750000000000000", 10)
	input := pack(t, "fillQuoteEthToToken", usdc, target, []byte{0x01, 0x02}, fee)
	logs := []model.TxLog{transferLog(usdc, target, user, big.NewInt(1_950_250_000), 4)}

	events, _ := newPipeline(t).Decode(context.Background(), swapTx(input, value), logs)
	require.Len(t, events, 3)

	spend, receive, feeEvent := events[0], events[1], events[2]
	assert.Equal(t, 1, spend.SequenceIndex)
	assert.Equal(t, model.EventTypeTrade, spend.EventType)
	assert.Equal(t, model.EventSubtypeSpend, spend.EventSubtype)
	assert.True(t, decimal.RequireFromString("0.99125").Equal(spend.Amount))
	assert.Equal(t, "Swap 0.99125 ETH in Rainbow", spend.Notes)

	assert.Equal(t, 6, receive.SequenceIndex)
	assert.Equal(t, model.EventSubtypeReceive, receive.EventSubtype)
	assert.Equal(t, CPTRainbow, receive.Counterparty)
	assert.Equal(t, "Receive 1950.25 USDC as the result of a swap in Rainbow", receive.Notes)

	assert.Equal(t, 7, feeEvent.SequenceIndex)
	assert.Equal(t, model.EventSubtypeFee, feeEvent.EventSubtype)
	assert.Equal(t, model.NativeAssetETH, feeEvent.Asset)
	assert.True(t, decimal.RequireFromString("0.00875").Equal(feeEvent.Amount))
}

func TestTokenToTokenSwap(t *testing.T) {
	sold, _ := new(big.Int).SetString("100000000000000000000", 10)
	fee, _ := new(big.Int).SetString("850000000000000000", 10)
	input := pack(t, "fillQuoteTokenToToken", dai, usdc, target, []byte{0x03}, sold, fee)
	logs := []model.TxLog{
		transferLog(dai, user, Router, sold, 0),
		transferLog(usdc, target, user, big.NewInt(99_100_000), 3),
	}

	events, _ := newPipeline(t).Decode(context.Background(), swapTx(input, nil), logs)
	require.Len(t, events, 3)
	assert.True(t, decimal.RequireFromString("99.15").Equal(events[0].Amount))
	assert.Equal(t, "Swap 99.15 DAI in Rainbow", events[0].Notes)
	assert.Equal(t, model.EventSubtypeReceive, events[1].EventSubtype)
	assert.Equal(t, model.EvmTokenIdentifier(1, dai), events[2].Asset)
	assert.True(t, decimal.RequireFromString("0.85").Equal(events[2].Amount))
}

func TestUnknownSelectorLeavesEvents(t *testing.T) {
	logs := []model.TxLog{transferLog(usdc, user, Router, big.NewInt(5_000_000), 0)}
	events, _ := newPipeline(t).Decode(context.Background(), swapTx([]byte{0xde, 0xad, 0xbe, 0xef}, nil), logs)
	require.Len(t, events, 1)
	assert.Equal(t, model.EventTypeSpend, events[0].EventType)
	assert.Empty(t, events[0].Counterparty)
}

func TestParseSwap(t *testing.T) {
	_, ok, err := parseSwap(swapTx([]byte{0x01}, nil))
	require.NoError(t, err)
	assert.False(t, ok)

	s, ok, err := parseSwap(swapTx(pack(t, "fillQuoteEthToToken", usdc, target, []byte{}, big.NewInt(5)), nil))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Nil(t, s.sell)
	assert.Equal(t, usdc, s.buy)
	assert.Equal(t, int64(5), s.fee.Int64())
}
