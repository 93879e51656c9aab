// Package hop decodes Hop protocol bridge transfers and staking rewards on L2s.
package hop

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/shopspring/decimal"

	"historyScope/internal/amount"
	"historyScope/internal/decoding"
	"historyScope/internal/merkle"
	"historyScope/internal/model"
)

const CPTHop = "hop-protocol"

var (
	details = model.CounterpartyDetails{Identifier: CPTHop, Label: "Hop Protocol", Image: "hop_protocol.png"}

	TransferSentTopic            = crypto.Keccak256Hash([]byte("TransferSent(bytes32,uint256,address,uint256,bytes32,uint256,uint256,uint256,uint256)"))
	WithdrewTopic                = crypto.Keccak256Hash([]byte("Withdrew(bytes32,address,uint256,bytes32)"))
	TransferFromL1CompletedTopic = crypto.Keccak256Hash([]byte("TransferFromL1Completed(address,uint256,uint256,uint256,address,uint256)"))
	RewardPaidTopic              = crypto.Keccak256Hash([]byte("RewardPaid(address,uint256)"))

	hopToken = common.HexToAddress("0xc5102fE9359FD9a28f877a67E36B0F050d81a3CC")
)

// Bridge is one Hop L2 bridge and the AMM wrapper users usually send through.
type Bridge struct {
	Address    common.Address
	AMMWrapper common.Address
	// Token is nil for the native asset.
	Token *model.Token
}

func (b Bridge) asset() (identifier, symbol string, decimals int) {
	if b.Token == nil {
		return model.NativeAssetETH, model.NativeAssetETH, amount.DefaultDecimals
	}
	return b.Token.Identifier, b.Token.DisplaySymbol(), int(b.Token.Decimals)
}

func (b Bridge) owns(addr *common.Address) bool {
	return addr != nil && (*addr == b.Address || *addr == b.AMMWrapper)
}

type deployment struct {
	bridges []Bridge
	rewards []common.Address
}

func deployments(chainID uint64) deployment {
	switch chainID {
	case 10:
		usdc := model.NewToken(chainID, common.HexToAddress("0x7F5c764cBc14f9669B88837ca1490cCa17c31607"), 6, "USDC.e", "USD Coin (Bridged)")
		return deployment{
			bridges: []Bridge{
				{
					Address:    common.HexToAddress("0x83f6244Bd87662118d96D9a6D44f09dffF14b30E"),
					AMMWrapper: common.HexToAddress("0x86cA30bEF97fB651b8d866D45503684b90cb3312"),
				},
				{
					Address:    common.HexToAddress("0xa81D244A1814468C734E5b4101F7b9c0c577a8fC"),
					AMMWrapper: common.HexToAddress("0x2ad09850b0CA4c7c1B33f5AcD6cBAbCaB5d6e796"),
					Token:      &usdc,
				},
			},
			rewards: []common.Address{
				common.HexToAddress("0x95d6A95BECfd98a7032Ed0c7d950ff6e0Fa8d697"),
			},
		}
	case 42161:
		return deployment{
			bridges: []Bridge{{
				Address:    common.HexToAddress("0x3749C4f034022c39ecafFaBA182555d4508caCCC"),
				AMMWrapper: common.HexToAddress("0x33ceb27b39d2Bb7D2e61F7564d3Df29344020417"),
			}},
		}
	default:
		return deployment{}
	}
}

// New builds the Hop protocol for a chain.
func New(chainID uint64) decoding.Protocol {
	d := deployments(chainID)
	p := decoding.Protocol{
		Name:     "hop",
		Handlers: make(map[common.Address]decoding.LogHandler),
	}
	if len(d.bridges) == 0 && len(d.rewards) == 0 {
		return p
	}
	p.Counterparties = []model.CounterpartyDetails{details}
	p.Products = map[string][]model.Product{CPTHop: {model.ProductBridge}}
	for _, b := range d.bridges {
		p.Handlers[b.Address] = bridgeHandler(b)
	}
	if len(d.rewards) > 0 {
		p.Products[CPTHop] = append(p.Products[CPTHop], model.ProductStaking)
		token := model.NewToken(chainID, hopToken, 18, "HOP", "Hop")
		for _, addr := range d.rewards {
			p.Handlers[addr] = rewardHandler(token)
		}
		p.TransferEnrichers = []decoding.TransferEnricher{stakingEnricher(d.rewards, token.Identifier)}
	}
	return p
}

func bridgeHandler(b Bridge) decoding.LogHandler {
	return func(ctx *decoding.DecoderContext) (decoding.DecodingOutput, error) {
		topic0, ok := ctx.Log.Topic0()
		if !ok {
			return decoding.DecodingOutput{}, nil
		}
		switch topic0 {
		case TransferSentTopic:
			return decodeTransferSent(ctx, b)
		case WithdrewTopic:
			return decodeWithdrew(ctx, b)
		case TransferFromL1CompletedTopic:
			return decodeTransferFromL1(ctx, b)
		default:
			return decoding.DecodingOutput{}, nil
		}
	}
}

func rewardHandler(token model.Token) decoding.LogHandler {
	layout := merkle.DefaultLayout
	cfg := merkle.ClaimConfig{
		Topic:        RewardPaidTopic,
		Counterparty: CPTHop,
		Token:        &token,
		Layout:       &layout,
		NotesSuffix:  "from Hop staking",
		Product:      model.ProductStaking,
	}
	return func(ctx *decoding.DecoderContext) (decoding.DecodingOutput, error) {
		return merkle.DecodeMerkleClaim(ctx, cfg)
	}
}

func bridgeNotes(value decimal.Decimal, symbol string, chainID uint64, recipient, sender string) string {
	target := ""
	if label, ok := chainLabel(chainID); ok {
		target = "to " + label + " "
	}
	if recipient != "" && sender != "" && recipient != sender {
		target += "at address " + recipient + " "
	}
	return fmt.Sprintf("Bridge %s %s %svia Hop protocol", value.String(), symbol, target)
}

func chainLabel(chainID uint64) (string, bool) {
	if chainID == 0 {
		return "", false
	}
	return model.ChainLabel(chainID)
}

// decodeTransferSent turns the spend into the bridge into a deposit and splits
// off the bonder fee.
func decodeTransferSent(ctx *decoding.DecoderContext, b Bridge) (decoding.DecodingOutput, error) {
	destination, err := decoding.Topic(ctx.Log, 2)
	if err != nil {
		return decoding.DecodingOutput{}, err
	}
	recipientTopic, err := decoding.Topic(ctx.Log, 3)
	if err != nil {
		return decoding.DecodingOutput{}, err
	}
	recipient := decoding.TopicAddress(recipientTopic)
	if !ctx.Tools.IsTracked(recipient) && !ctx.Tools.IsTracked(ctx.Transaction.From) {
		return decoding.DecodingOutput{}, nil
	}

	asset, symbol, decimals := b.asset()
	rawFee, err := decoding.WordUint(ctx.Log.Data, 2)
	if err != nil {
		return decoding.DecodingOutput{}, fmt.Errorf("bonder fee: %w", err)
	}
	fee, err := amount.Normalize(rawFee, decimals)
	if err != nil {
		return decoding.DecodingOutput{}, err
	}
	rawAmount, err := decoding.WordUint(ctx.Log.Data, 0)
	if err != nil {
		return decoding.DecodingOutput{}, fmt.Errorf("bridged amount: %w", err)
	}
	sent, err := amount.Normalize(rawAmount, decimals)
	if err != nil {
		return decoding.DecodingOutput{}, err
	}

	candidates := ctx.Events.Find(func(e model.HistoryEvent) bool {
		return e.EventType == model.EventTypeSpend &&
			e.EventSubtype == model.EventSubtypeNone &&
			e.Asset == asset &&
			b.owns(e.Address)
	})
	if len(candidates) == 0 {
		return decoding.DecodingOutput{}, nil
	}

	deposit := ctx.Events.At(candidates[0])
	if fee.IsPositive() {
		var counter *common.Address
		if deposit.Address != nil {
			addr := *deposit.Address
			counter = &addr
		}
		_, err = ctx.InsertEventAfter(candidates[0], decoding.EventParams{
			EventType:     model.EventTypeSpend,
			EventSubtype:  model.EventSubtypeFee,
			Asset:         asset,
			Amount:        fee,
			LocationLabel: deposit.LocationLabel,
			Counterparty:  CPTHop,
			Product:       model.ProductBridge,
			Notes:         fmt.Sprintf("Spend %s %s as a hop fee", fee.String(), symbol),
			Address:       counter,
		})
		if err != nil {
			return decoding.DecodingOutput{}, err
		}
	}
	err = ctx.Events.Update(candidates[0], func(e *model.HistoryEvent) {
		e.EventType = model.EventTypeDeposit
		e.EventSubtype = model.EventSubtypeBridge
		e.Counterparty = CPTHop
		e.Product = model.ProductBridge
		if fee.IsPositive() {
			e.Amount = sent.Sub(fee)
		}
		e.Notes = bridgeNotes(e.Amount, symbol, decoding.TopicUint(destination).Uint64(), recipient.Hex(), e.LocationLabel)
	})
	if err != nil {
		return decoding.DecodingOutput{}, err
	}
	return decoding.DecodingOutput{MatchedCounterparty: CPTHop}, nil
}

// decodeWithdrew rewrites the receive of a bridged withdrawal. Token receipts
// logged later are tagged through an action item. Native withdrawals leave no
// transfer log so the event is built from the Withdrew log itself.
func decodeWithdrew(ctx *decoding.DecoderContext, b Bridge) (decoding.DecodingOutput, error) {
	recipientTopic, err := decoding.Topic(ctx.Log, 2)
	if err != nil {
		return decoding.DecodingOutput{}, err
	}
	recipient := decoding.TopicAddress(recipientTopic)
	if !ctx.Tools.IsTracked(recipient) {
		return decoding.DecodingOutput{}, nil
	}
	raw, err := decoding.WordUint(ctx.Log.Data, 0)
	if err != nil {
		return decoding.DecodingOutput{}, fmt.Errorf("withdrawn amount: %w", err)
	}
	return completeWithdrawal(ctx, b, recipient, raw)
}

func decodeTransferFromL1(ctx *decoding.DecoderContext, b Bridge) (decoding.DecodingOutput, error) {
	recipientTopic, err := decoding.Topic(ctx.Log, 1)
	if err != nil {
		return decoding.DecodingOutput{}, err
	}
	recipient := decoding.TopicAddress(recipientTopic)
	if !ctx.Tools.IsTracked(recipient) {
		return decoding.DecodingOutput{}, nil
	}
	raw, err := decoding.WordUint(ctx.Log.Data, 0)
	if err != nil {
		return decoding.DecodingOutput{}, fmt.Errorf("received amount: %w", err)
	}
	return completeWithdrawal(ctx, b, recipient, raw)
}

func completeWithdrawal(
	ctx *decoding.DecoderContext,
	b Bridge,
	recipient common.Address,
	raw *big.Int,
) (decoding.DecodingOutput, error) {
	asset, symbol, decimals := b.asset()
	value, err := amount.Normalize(raw, decimals)
	if err != nil {
		return decoding.DecodingOutput{}, err
	}
	label := recipient.Hex()
	notes := bridgeNotes(value, symbol, 0, "", "")

	candidates := ctx.Events.Find(func(e model.HistoryEvent) bool {
		return e.EventType == model.EventTypeReceive &&
			e.EventSubtype == model.EventSubtypeNone &&
			e.Asset == asset &&
			e.LocationLabel == label &&
			e.Amount.Equal(value)
	})
	if len(candidates) > 0 {
		err := ctx.Events.Update(candidates[0], func(e *model.HistoryEvent) {
			e.EventType = model.EventTypeWithdrawal
			e.EventSubtype = model.EventSubtypeBridge
			e.Counterparty = CPTHop
			e.Product = model.ProductBridge
			e.Notes = notes
		})
		if err != nil {
			return decoding.DecodingOutput{}, err
		}
		return decoding.DecodingOutput{MatchedCounterparty: CPTHop}, nil
	}

	if b.Token == nil {
		bridge := b.Address
		event := ctx.NewEvent(decoding.EventParams{
			EventType:     model.EventTypeWithdrawal,
			EventSubtype:  model.EventSubtypeBridge,
			Asset:         asset,
			Amount:        value,
			LocationLabel: label,
			Counterparty:  CPTHop,
			Product:       model.ProductBridge,
			Notes:         notes,
			Address:       &bridge,
		})
		return decoding.DecodingOutput{Events: []model.HistoryEvent{event}}, nil
	}

	return decoding.DecodingOutput{
		ActionItems: []decoding.ActionItem{{
			EventType:      model.EventTypeReceive,
			EventSubtype:   model.EventSubtypeNone,
			Asset:          asset,
			Amount:         &value,
			LocationLabel:  label,
			ToEventType:    model.EventTypeWithdrawal,
			ToEventSubtype: model.EventSubtypeBridge,
			ToCounterparty: CPTHop,
			ToProduct:      model.ProductBridge,
			ToNotes:        notes,
		}},
		MatchedCounterparty: CPTHop,
	}, nil
}
