package uniswapv3

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
	user       = common.HexToAddress("0x9531C059098e3d194fF87FebB587aB07B30B1306")
	swapRouter = common.HexToAddress("0xE592427A0AEce92De3Edee1F18E0157C05861564")
	pool       = common.HexToAddress("0x88e6A0c2dDD26FEEb64F039a2c41296FcB3f5640")
	usdc       = common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")
	weth       = common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2")
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
		weth: model.NewToken(1, weth, 18, "WETH", "Wrapped Ether"),
	}, []common.Address{user})
	pipeline, err := decoding.NewPipeline(registry, tools, zap.NewNop())
	require.NoError(t, err)
	return pipeline
}

func ether(s string) *big.Int {
	return decimal.RequireFromString(s).Shift(18).BigInt()
}

func transferLog(token, from, to common.Address, raw *big.Int, index uint64) model.TxLog {
	return model.TxLog{
		Address:  token,
		Topics:   []common.Hash{decoding.TransferTopic, decoding.AddressTopic(from), decoding.AddressTopic(to)},
		Data:     common.LeftPadBytes(raw.Bytes(), 32),
		LogIndex: index,
	}
}

func topicFromInt24(value int32) common.Hash {
	bigVal := big.NewInt(int64(value))
	if value < 0 {
		bigVal = new(big.Int).Add(bigVal, new(big.Int).Lsh(big.NewInt(1), 256))
	}
	return common.BigToHash(bigVal)
}

func poolLog(t *testing.T, name string, index uint64, indexed []common.Hash, values ...any) model.TxLog {
	t.Helper()
	parsed, err := PoolABI()
	require.NoError(t, err)
	event := parsed.Events[name]
	data, err := event.Inputs.NonIndexed().Pack(values...)
	require.NoError(t, err)
	return model.TxLog{
		Address:  pool,
		Topics:   append([]common.Hash{event.ID}, indexed...),
		Data:     data,
		LogIndex: index,
	}
}

func swapLog(t *testing.T, recipient common.Address, amount0, amount1 *big.Int, index uint64) model.TxLog {
	return poolLog(t, "Swap", index,
		[]common.Hash{decoding.AddressTopic(swapRouter), decoding.AddressTopic(recipient)},
		amount0, amount1, big.NewInt(123456789), big.NewInt(987654321), big.NewInt(-15),
	)
}

func routerTx(value *big.Int) model.Transaction {
	to := swapRouter
	return model.Transaction{
		Hash:      common.HexToHash("0x5a0b"),
		ChainID:   1,
		Timestamp: 1710000000,
		From:      user,
		To:        &to,
		Value:     value,
	}
}

func TestTokenToTokenSwap(t *testing.T) {
	logs := []model.TxLog{
		transferLog(weth, pool, user, ether("1"), 0),
		transferLog(usdc, user, pool, big.NewInt(2_000_000_000), 1),
		swapLog(t, user, big.NewInt(2_000_000_000), new(big.Int).Neg(ether("1")), 2),
	}

	events, raw := newPipeline(t).Decode(context.Background(), routerTx(nil), logs)
	assert.Equal(t, logs, raw)
	require.Len(t, events, 2)

	receive, spend := events[0], events[1]
	assert.Equal(t, 2, receive.SequenceIndex)
	assert.Equal(t, model.EventTypeTrade, receive.EventType)
	assert.Equal(t, model.EventSubtypeReceive, receive.EventSubtype)
	assert.Equal(t, CPTUniswapV3, receive.Counterparty)
	assert.Equal(t, "Receive 1 WETH as the result of a swap in Uniswap V3", receive.Notes)

	assert.Equal(t, 3, spend.SequenceIndex)
	assert.Equal(t, model.EventSubtypeSpend, spend.EventSubtype)
	assert.Equal(t, model.EvmTokenIdentifier(1, usdc), spend.Asset)
	assert.Equal(t, "Swap 2000 USDC in Uniswap V3", spend.Notes)
}

func TestEtherInSwapUsesTransactionValue(t *testing.T) {
	logs := []model.TxLog{
		transferLog(usdc, pool, user, big.NewInt(1_800_000_000), 0),
		transferLog(weth, swapRouter, pool, ether("1"), 1),
		swapLog(t, user, big.NewInt(-1_800_000_000), ether("1"), 2),
	}

	events, _ := newPipeline(t).Decode(context.Background(), routerTx(ether("1")), logs)
	require.Len(t, events, 2)
	assert.Equal(t, 1, events[0].SequenceIndex)
	assert.Equal(t, model.NativeAssetETH, events[0].Asset)
	assert.Equal(t, model.EventSubtypeSpend, events[0].EventSubtype)
	assert.Equal(t, "Swap 1 ETH in Uniswap V3", events[0].Notes)
	assert.Equal(t, "Receive 1800 USDC as the result of a swap in Uniswap V3", events[1].Notes)
}

func TestEtherOutSwapSynthesizesReceive(t *testing.T) {
	logs := []model.TxLog{
		transferLog(weth, pool, swapRouter, ether("0.9"), 0),
		transferLog(usdc, user, pool, big.NewInt(1_800_000_000), 1),
		swapLog(t, swapRouter, big.NewInt(1_800_000_000), new(big.Int).Neg(ether("0.9")), 2),
		transferLog(usdc, swapRouter, user, big.NewInt(5_000_000), 3),
	}

	events, _ := newPipeline(t).Decode(context.Background(), routerTx(nil), logs)
	require.Len(t, events, 3)
	assert.Equal(t, 3, events[0].SequenceIndex)
	assert.Equal(t, model.EventTypeTrade, events[0].EventType)

	// Logs after the swap keep their order behind the synthesized receive.
	assert.Equal(t, 6, events[2].SequenceIndex)
	assert.Equal(t, model.EventTypeReceive, events[2].EventType)

	receive := events[1]
	assert.Equal(t, 4, receive.SequenceIndex)
	assert.Equal(t, model.NativeAssetETH, receive.Asset)
	assert.True(t, decimal.RequireFromString("0.9").Equal(receive.Amount))
	assert.Equal(t, user.Hex(), receive.LocationLabel)
	require.NotNil(t, receive.Address)
	assert.Equal(t, pool, *receive.Address)
}

func TestUnlistedPoolSwapUsesEventRule(t *testing.T) {
	unlisted := common.HexToAddress("0x00000000000000000000000000000000000b0b01")
	swap := swapLog(t, user, big.NewInt(2_000_000_000), new(big.Int).Neg(ether("1")), 2)
	swap.Address = unlisted
	logs := []model.TxLog{
		transferLog(weth, unlisted, user, ether("1"), 0),
		transferLog(usdc, user, unlisted, big.NewInt(2_000_000_000), 1),
		swap,
	}

	events, _ := newPipeline(t).Decode(context.Background(), routerTx(nil), logs)
	require.Len(t, events, 2)
	receive, spend := events[0], events[1]
	assert.Equal(t, model.EventSubtypeReceive, receive.EventSubtype)
	assert.Equal(t, CPTUniswapV3, receive.Counterparty)
	assert.Equal(t, "Receive 1 WETH as the result of a swap in Uniswap V3", receive.Notes)
	assert.Equal(t, model.EventTypeTrade, spend.EventType)
	assert.Equal(t, model.EventSubtypeSpend, spend.EventSubtype)
	assert.Equal(t, "Swap 2000 USDC in Uniswap V3", spend.Notes)

	// Transfers with another contract are not attributed to the pool.
	logs[1] = transferLog(usdc, user, swapRouter, big.NewInt(2_000_000_000), 1)
	events, _ = newPipeline(t).Decode(context.Background(), routerTx(nil), logs)
	require.Len(t, events, 2)
	for _, e := range events {
		assert.Empty(t, e.Counterparty)
	}
}

func TestSwapWithoutTrackedSpendIsIgnored(t *testing.T) {
	other := common.HexToAddress("0x00000000000000000000000000000000000000aa")
	logs := []model.TxLog{
		transferLog(usdc, other, pool, big.NewInt(1_000_000), 0),
		swapLog(t, other, big.NewInt(1_000_000), new(big.Int).Neg(ether("0.0005")), 1),
	}
	events, _ := newPipeline(t).Decode(context.Background(), routerTx(nil), logs)
	assert.Empty(t, events)
}

func TestMintDepositsBothLegs(t *testing.T) {
	logs := []model.TxLog{
		transferLog(usdc, user, pool, big.NewInt(500_000_000), 0),
		transferLog(weth, user, pool, ether("0.25"), 1),
		poolLog(t, "Mint", 2,
			[]common.Hash{decoding.AddressTopic(swapRouter), topicFromInt24(-887270), topicFromInt24(887270)},
			swapRouter, big.NewInt(5000), big.NewInt(500_000_000), ether("0.25"),
		),
	}

	events, _ := newPipeline(t).Decode(context.Background(), routerTx(nil), logs)
	require.Len(t, events, 2)
	for _, e := range events {
		assert.Equal(t, model.EventTypeDeposit, e.EventType)
		assert.Equal(t, model.EventSubtypeDepositAsset, e.EventSubtype)
		assert.Equal(t, model.ProductPool, e.Product)
		assert.Equal(t, int32(-887270), e.ExtraData["tick_lower"])
	}
	assert.Equal(t, "Deposit 500 USDC to Uniswap V3 LP", events[0].Notes)
	assert.Equal(t, "Deposit 0.25 WETH to Uniswap V3 LP", events[1].Notes)
}

func TestCollectBeforeTransfersLeavesActionItems(t *testing.T) {
	logs := []model.TxLog{
		poolLog(t, "Collect", 0,
			[]common.Hash{decoding.AddressTopic(swapRouter), topicFromInt24(-60), topicFromInt24(60)},
			user, big.NewInt(10_000_000), ether("0.005"),
		),
		transferLog(usdc, pool, user, big.NewInt(10_000_000), 1),
		transferLog(weth, pool, user, ether("0.005"), 2),
	}

	events, _ := newPipeline(t).Decode(context.Background(), routerTx(nil), logs)
	require.Len(t, events, 2)
	for _, e := range events {
		assert.Equal(t, model.EventTypeWithdrawal, e.EventType)
		assert.Equal(t, model.EventSubtypeRemoveAsset, e.EventSubtype)
		assert.Equal(t, CPTUniswapV3, e.Counterparty)
	}
	assert.Equal(t, "Remove 10 USDC from Uniswap V3 LP", events[0].Notes)
	assert.Equal(t, "Remove 0.005 WETH from Uniswap V3 LP", events[1].Notes)
}

func TestMalformedSwapIsSkipped(t *testing.T) {
	parsed, err := PoolABI()
	require.NoError(t, err)
	logs := []model.TxLog{
		transferLog(usdc, user, pool, big.NewInt(1_000_000), 0),
		{Address: pool, Topics: []common.Hash{parsed.Events["Swap"].ID}, Data: []byte{0x01}, LogIndex: 1},
	}
	events, _ := newPipeline(t).Decode(context.Background(), routerTx(nil), logs)
	require.Len(t, events, 1)
	assert.Equal(t, model.EventTypeSpend, events[0].EventType)
}

func TestInt24FromBig(t *testing.T) {
	v, err := int24FromBig(big.NewInt(-8388608))
	require.NoError(t, err)
	assert.Equal(t, int32(-8388608), v)

	_, err = int24FromBig(big.NewInt(8388608))
	assert.Error(t, err)
}

func TestPoolsPerChain(t *testing.T) {
	assert.Len(t, Pools(1), 2)
	assert.Len(t, Pools(10), 1)
	assert.Empty(t, Pools(5))
	assert.Len(t, New(42161).Handlers, 1)
}
