package hop

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
	user           = common.HexToAddress("0x706A70067BE19BdadBea3600Db0626859Ff25D74")
	ethBridge      = common.HexToAddress("0x83f6244Bd87662118d96D9a6D44f09dffF14b30E")
	ethWrapper     = common.HexToAddress("0x86cA30bEF97fB651b8d866D45503684b90cb3312")
	usdcBridge     = common.HexToAddress("0xa81D244A1814468C734E5b4101F7b9c0c577a8fC")
	usdcWrapper    = common.HexToAddress("0x2ad09850b0CA4c7c1B33f5AcD6cBAbCaB5d6e796")
	usdcToken      = common.HexToAddress("0x7F5c764cBc14f9669B88837ca1490cCa17c31607")
	rewardContract = common.HexToAddress("0x95d6A95BECfd98a7032Ed0c7d950ff6e0Fa8d697")
	lpToken        = common.HexToAddress("0x5C2048094bAaDe483D0b1DA85c3Da6200A88a849")
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
	registry := decoding.NewRegistry(10)
	require.NoError(t, registry.Register(New(10)))
	registry.Freeze()
	tools := decoding.NewTools(10, "optimism", staticTokens{
		usdcToken: model.NewToken(10, usdcToken, 6, "USDC.e", "USD Coin (Bridged)"),
		hopToken:  model.NewToken(10, hopToken, 18, "HOP", "Hop"),
		lpToken:   model.NewToken(10, lpToken, 18, "HOP-LP-ETH", "Hop ETH LP Token"),
	}, []common.Address{user})
	pipeline, err := decoding.NewPipeline(registry, tools, zap.NewNop())
	require.NoError(t, err)
	return pipeline
}

func word(v *big.Int) []byte {
	return common.LeftPadBytes(v.Bytes(), 32)
}

func milliEther(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(1_000_000_000_000_000))
}

func tx(to common.Address, value *big.Int) model.Transaction {
	return model.Transaction{
		Hash:      common.HexToHash("0x40b0"),
		ChainID:   10,
		Timestamp: 1690000000,
		From:      user,
		To:        &to,
		Value:     value,
	}
}

func transferLog(token, from, to common.Address, raw *big.Int, index uint64) model.TxLog {
	return model.TxLog{
		Address:  token,
		Topics:   []common.Hash{decoding.TransferTopic, decoding.AddressTopic(from), decoding.AddressTopic(to)},
		Data:     word(raw),
		LogIndex: index,
	}
}

func transferSentLog(sent, fee *big.Int, index uint64) model.TxLog {
	data := make([]byte, 0, 6*32)
	data = append(data, word(sent)...)
	data = append(data, word(big.NewInt(99))...)
	data = append(data, word(fee)...)
	data = append(data, word(big.NewInt(0))...)
	data = append(data, word(big.NewInt(0))...)
	data = append(data, word(big.NewInt(0))...)
	return model.TxLog{
		Address: ethBridge,
		Topics: []common.Hash{
			TransferSentTopic,
			common.HexToHash("0xfeed"),
			common.BigToHash(big.NewInt(1)),
			decoding.AddressTopic(user),
		},
		Data:     data,
		LogIndex: index,
	}
}

func TestBridgeETHWithBonderFee(t *testing.T) {
	logs := []model.TxLog{transferSentLog(milliEther(1000), milliEther(1), 5)}

	events, _ := newPipeline(t).Decode(context.Background(), tx(ethWrapper, milliEther(1000)), logs)
	require.Len(t, events, 2)

	deposit := events[0]
	assert.Equal(t, 1, deposit.SequenceIndex)
	assert.Equal(t, model.EventTypeDeposit, deposit.EventType)
	assert.Equal(t, model.EventSubtypeBridge, deposit.EventSubtype)
	assert.Equal(t, CPTHop, deposit.Counterparty)
	assert.True(t, decimal.RequireFromString("0.999").Equal(deposit.Amount))
	assert.Equal(t, "Bridge 0.999 ETH to Ethereum via Hop protocol", deposit.Notes)

	fee := events[1]
	assert.Equal(t, 2, fee.SequenceIndex)
	assert.Equal(t, model.EventTypeSpend, fee.EventType)
	assert.Equal(t, model.EventSubtypeFee, fee.EventSubtype)
	assert.True(t, decimal.RequireFromString("0.001").Equal(fee.Amount))
	assert.Equal(t, "Spend 0.001 ETH as a hop fee", fee.Notes)
	require.NotNil(t, fee.Address)
	assert.Equal(t, ethWrapper, *fee.Address)
}

func TestBonderFeeStaysNextToDeposit(t *testing.T) {
	logs := []model.TxLog{
		transferSentLog(milliEther(1000), milliEther(1), 5),
		transferLog(usdcToken, usdcWrapper, user, big.NewInt(3_000_000), 6),
	}

	events, _ := newPipeline(t).Decode(context.Background(), tx(ethWrapper, milliEther(1000)), logs)
	require.Len(t, events, 3)

	assert.Equal(t, 1, events[0].SequenceIndex)
	assert.Equal(t, model.EventTypeDeposit, events[0].EventType)
	assert.Equal(t, 2, events[1].SequenceIndex)
	assert.Equal(t, model.EventSubtypeFee, events[1].EventSubtype)
	assert.Equal(t, 9, events[2].SequenceIndex)
	assert.Equal(t, model.EventTypeReceive, events[2].EventType)
	assert.Equal(t, model.EvmTokenIdentifier(10, usdcToken), events[2].Asset)
	assert.True(t, decimal.RequireFromString("3").Equal(events[2].Amount))
}

func TestWithdrewTagsLaterTokenReceive(t *testing.T) {
	raw := big.NewInt(250_000_000)
	logs := []model.TxLog{
		{
			Address:  usdcBridge,
			Topics:   []common.Hash{WithdrewTopic, common.HexToHash("0xbeef"), decoding.AddressTopic(user)},
			Data:     append(word(raw), word(big.NewInt(1))...),
			LogIndex: 3,
		},
		transferLog(usdcToken, usdcWrapper, user, raw, 7),
	}

	events, _ := newPipeline(t).Decode(context.Background(), tx(usdcBridge, nil), logs)
	require.Len(t, events, 1)
	assert.Equal(t, 9, events[0].SequenceIndex)
	assert.Equal(t, model.EventTypeWithdrawal, events[0].EventType)
	assert.Equal(t, model.EventSubtypeBridge, events[0].EventSubtype)
	assert.Equal(t, CPTHop, events[0].Counterparty)
	assert.Equal(t, model.ProductBridge, events[0].Product)
	assert.Equal(t, "Bridge 250 USDC.e via Hop protocol", events[0].Notes)
}

func TestWithdrewNativeBuildsEvent(t *testing.T) {
	logs := []model.TxLog{{
		Address:  ethBridge,
		Topics:   []common.Hash{WithdrewTopic, common.HexToHash("0xbeef"), decoding.AddressTopic(user)},
		Data:     append(word(milliEther(2500)), word(big.NewInt(1))...),
		LogIndex: 0,
	}}

	events, _ := newPipeline(t).Decode(context.Background(), tx(ethBridge, nil), logs)
	require.Len(t, events, 1)
	assert.Equal(t, 2, events[0].SequenceIndex)
	assert.Equal(t, model.NativeAssetETH, events[0].Asset)
	assert.Equal(t, user.Hex(), events[0].LocationLabel)
	assert.Equal(t, "Bridge 2.5 ETH via Hop protocol", events[0].Notes)
}

func TestStakingReward(t *testing.T) {
	logs := []model.TxLog{
		transferLog(hopToken, rewardContract, user, milliEther(12500), 1),
		{
			Address:  rewardContract,
			Topics:   []common.Hash{RewardPaidTopic, decoding.AddressTopic(user)},
			Data:     word(milliEther(12500)),
			LogIndex: 2,
		},
	}

	events, _ := newPipeline(t).Decode(context.Background(), tx(rewardContract, nil), logs)
	require.Len(t, events, 1)
	assert.Equal(t, model.EventSubtypeReward, events[0].EventSubtype)
	assert.Equal(t, model.ProductStaking, events[0].Product)
	assert.Equal(t, "Claim 12.5 HOP from Hop staking", events[0].Notes)
}

func TestStakingTransfersAreEnriched(t *testing.T) {
	other := common.HexToAddress("0x00000000000000000000000000000000000c0ffe")
	logs := []model.TxLog{
		transferLog(lpToken, user, rewardContract, milliEther(3000), 0),
		transferLog(lpToken, rewardContract, user, milliEther(1000), 1),
		transferLog(lpToken, user, other, milliEther(500), 2),
	}

	events, _ := newPipeline(t).Decode(context.Background(), tx(rewardContract, nil), logs)
	require.Len(t, events, 3)

	assert.Equal(t, model.EventTypeDeposit, events[0].EventType)
	assert.Equal(t, model.EventSubtypeDepositAsset, events[0].EventSubtype)
	assert.Equal(t, CPTHop, events[0].Counterparty)
	assert.Equal(t, model.ProductStaking, events[0].Product)
	assert.Equal(t, "Stake 3 HOP-LP-ETH in Hop", events[0].Notes)

	assert.Equal(t, model.EventTypeWithdrawal, events[1].EventType)
	assert.Equal(t, model.EventSubtypeRemoveAsset, events[1].EventSubtype)
	assert.Equal(t, "Unstake 1 HOP-LP-ETH from Hop", events[1].Notes)

	assert.Equal(t, model.EventTypeSpend, events[2].EventType)
	assert.Empty(t, events[2].Counterparty)
}

func TestBridgeNotes(t *testing.T) {
	value := decimal.RequireFromString("1.5")
	assert.Equal(t, "Bridge 1.5 ETH via Hop protocol", bridgeNotes(value, "ETH", 0, "", ""))
	assert.Equal(t, "Bridge 1.5 ETH to Arbitrum One at address 0xB via Hop protocol",
		bridgeNotes(value, "ETH", 42161, "0xB", "0xA"))
	assert.Equal(t, "Bridge 1.5 ETH via Hop protocol", bridgeNotes(value, "ETH", 999999, "0xA", "0xA"))
}
