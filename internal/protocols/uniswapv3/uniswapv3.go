// Package uniswapv3 decodes swaps and liquidity changes on Uniswap V3 pools.
// Pools emit their log after the token transfers they caused, so handlers
// rewrite the transfer events already decoded for the transaction.
package uniswapv3

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"historyScope/internal/amount"
	"historyScope/internal/decoding"
	"historyScope/internal/model"
)

const CPTUniswapV3 = "uniswap-v3"

var details = model.CounterpartyDetails{Identifier: CPTUniswapV3, Label: "Uniswap V3", Image: "uniswap.svg"}

// New builds the Uniswap V3 protocol for the pools known on chainID.
func New(chainID uint64) decoding.Protocol {
	dep := deployments[chainID]
	handlers := make(map[common.Address]decoding.LogHandler, len(dep.pools))
	listed := make(map[common.Address]struct{}, len(dep.pools))
	for _, pool := range dep.pools {
		d := &poolDecoder{pool: pool, wrappedNative: dep.wrappedNative}
		handlers[pool.Address] = d.decode
		listed[pool.Address] = struct{}{}
	}
	return decoding.Protocol{
		Name:           "uniswap-v3",
		Counterparties: []model.CounterpartyDetails{details},
		Handlers:       handlers,
		EventRules:     []decoding.EventRule{{Name: "uniswap-v3/swap", Rule: unlistedSwapRule(listed)}},
		Products:       map[string][]model.Product{CPTUniswapV3: {model.ProductPool}},
	}
}

type poolDecoder struct {
	pool          Pool
	wrappedNative common.Address
}

type poolToken struct {
	address    common.Address
	identifier string
	symbol     string
	decimals   int
}

func (d *poolDecoder) decode(ctx *decoding.DecoderContext) (decoding.DecodingOutput, error) {
	topic0, ok := ctx.Log.Topic0()
	if !ok {
		return decoding.DecodingOutput{}, nil
	}
	parsed, err := PoolABI()
	if err != nil {
		return decoding.DecodingOutput{}, err
	}
	switch topic0 {
	case parsed.Events["Swap"].ID:
		return d.decodeSwap(ctx, parsed.Events["Swap"])
	case parsed.Events["Mint"].ID:
		return d.decodeMint(ctx, parsed.Events["Mint"])
	case parsed.Events["Collect"].ID:
		return d.decodeCollect(ctx, parsed.Events["Collect"])
	default:
		return decoding.DecodingOutput{}, nil
	}
}

func (d *poolDecoder) tokens(ctx *decoding.DecoderContext) (poolToken, poolToken, error) {
	token0, err := d.resolve(ctx, d.pool.Token0)
	if err != nil {
		return poolToken{}, poolToken{}, err
	}
	token1, err := d.resolve(ctx, d.pool.Token1)
	if err != nil {
		return poolToken{}, poolToken{}, err
	}
	return token0, token1, nil
}

func (d *poolDecoder) resolve(ctx *decoding.DecoderContext, address common.Address) (poolToken, error) {
	token, err := ctx.Tools.Token(ctx.Context, address)
	if err != nil {
		return poolToken{}, err
	}
	return poolToken{
		address:    address,
		identifier: token.Identifier,
		symbol:     token.DisplaySymbol(),
		decimals:   int(token.Decimals),
	}, nil
}

// findEvent returns the first event of the given kind for token and value.
// Ether sent with or paid out of the transaction stands in for the wrapped
// native token.
func (d *poolDecoder) findEvent(ctx *decoding.DecoderContext, eventType model.EventType, token poolToken, value decimal.Decimal) (int, bool) {
	match := func(asset string) (int, bool) {
		found := ctx.Events.Find(func(e model.HistoryEvent) bool {
			return e.EventType == eventType &&
				e.EventSubtype == model.EventSubtypeNone &&
				e.Asset == asset &&
				e.Amount.Equal(value)
		})
		if len(found) == 0 {
			return 0, false
		}
		return found[0], true
	}
	if i, ok := match(token.identifier); ok {
		return i, true
	}
	if token.address == d.wrappedNative {
		return match(ctx.Tools.NativeAsset)
	}
	return 0, false
}

func (d *poolDecoder) decodeSwap(ctx *decoding.DecoderContext, event abi.Event) (decoding.DecodingOutput, error) {
	swap, err := decodeSwapLog(event, ctx.Log)
	if err != nil {
		return decoding.DecodingOutput{}, err
	}
	token0, token1, err := d.tokens(ctx)
	if err != nil {
		ctx.Logger.Warn("skipping swap with unresolved pool token", zap.Error(err))
		return decoding.DecodingOutput{}, nil
	}

	// Positive amounts flow into the pool.
	sold, bought := token0, token1
	in, out := swap.Amount0, new(big.Int).Neg(swap.Amount1)
	if swap.Amount0.Sign() <= 0 {
		sold, bought = token1, token0
		in, out = swap.Amount1, new(big.Int).Neg(swap.Amount0)
	}
	if in.Sign() <= 0 || out.Sign() <= 0 {
		return decoding.DecodingOutput{}, fmt.Errorf("swap without direction: amount0=%s amount1=%s", swap.Amount0, swap.Amount1)
	}
	spent, err := amount.Normalize(in, sold.decimals)
	if err != nil {
		return decoding.DecodingOutput{}, err
	}
	received, err := amount.Normalize(out, bought.decimals)
	if err != nil {
		return decoding.DecodingOutput{}, err
	}

	spendIdx, ok := d.findEvent(ctx, model.EventTypeSpend, sold, spent)
	if !ok {
		ctx.Logger.Debug("uniswap v3 swap without tracked spend",
			zap.String("pool", d.pool.Address.Hex()),
			zap.String("asset", sold.identifier),
		)
		return decoding.DecodingOutput{}, nil
	}
	err = ctx.Events.Update(spendIdx, func(e *model.HistoryEvent) {
		e.EventType = model.EventTypeTrade
		e.EventSubtype = model.EventSubtypeSpend
		e.Counterparty = CPTUniswapV3
		e.Notes = fmt.Sprintf("Swap %s %s in %s", spent.String(), symbolOf(ctx, e.Asset, sold), details.Label)
	})
	if err != nil {
		return decoding.DecodingOutput{}, err
	}

	output := decoding.DecodingOutput{MatchedCounterparty: CPTUniswapV3}
	if receiveIdx, ok := d.findEvent(ctx, model.EventTypeReceive, bought, received); ok {
		err = ctx.Events.Update(receiveIdx, func(e *model.HistoryEvent) {
			e.EventType = model.EventTypeTrade
			e.EventSubtype = model.EventSubtypeReceive
			e.Counterparty = CPTUniswapV3
			e.Notes = fmt.Sprintf("Receive %s %s as the result of a swap in %s", received.String(), symbolOf(ctx, e.Asset, bought), details.Label)
		})
		return output, err
	}

	// The router unwraps bought ether and pays it out without a log.
	trader := common.HexToAddress(ctx.Events.At(spendIdx).LocationLabel)
	if bought.address == d.wrappedNative && !ctx.Tools.IsTracked(swap.Recipient) && ctx.Tools.IsTracked(trader) {
		pool := d.pool.Address
		_, err = ctx.InsertEventAfter(spendIdx, decoding.EventParams{
			EventType:     model.EventTypeTrade,
			EventSubtype:  model.EventSubtypeReceive,
			Asset:         ctx.Tools.NativeAsset,
			Amount:        received,
			LocationLabel: trader.Hex(),
			Counterparty:  CPTUniswapV3,
			Notes:         fmt.Sprintf("Receive %s %s as the result of a swap in %s", received.String(), ctx.Tools.NativeAsset, details.Label),
			Address:       &pool,
		})
		if err != nil {
			return decoding.DecodingOutput{}, err
		}
	}
	return output, nil
}

func (d *poolDecoder) decodeMint(ctx *decoding.DecoderContext, event abi.Event) (decoding.DecodingOutput, error) {
	mint, err := decodeMintLog(event, ctx.Log)
	if err != nil {
		return decoding.DecodingOutput{}, err
	}
	token0, token1, err := d.tokens(ctx)
	if err != nil {
		ctx.Logger.Warn("skipping mint with unresolved pool token", zap.Error(err))
		return decoding.DecodingOutput{}, nil
	}

	matched := false
	for _, leg := range []struct {
		token poolToken
		raw   *big.Int
	}{{token0, mint.Amount0}, {token1, mint.Amount1}} {
		if leg.raw.Sign() == 0 {
			continue
		}
		value, err := amount.Normalize(leg.raw, leg.token.decimals)
		if err != nil {
			return decoding.DecodingOutput{}, err
		}
		idx, ok := d.findEvent(ctx, model.EventTypeSpend, leg.token, value)
		if !ok {
			continue
		}
		token := leg.token
		err = ctx.Events.Update(idx, func(e *model.HistoryEvent) {
			e.EventType = model.EventTypeDeposit
			e.EventSubtype = model.EventSubtypeDepositAsset
			e.Counterparty = CPTUniswapV3
			e.Product = model.ProductPool
			e.Notes = fmt.Sprintf("Deposit %s %s to %s LP", value.String(), symbolOf(ctx, e.Asset, token), details.Label)
			e.ExtraData = map[string]any{"tick_lower": mint.TickLower, "tick_upper": mint.TickUpper}
		})
		if err != nil {
			return decoding.DecodingOutput{}, err
		}
		matched = true
	}
	if !matched {
		return decoding.DecodingOutput{}, nil
	}
	return decoding.DecodingOutput{MatchedCounterparty: CPTUniswapV3}, nil
}

func (d *poolDecoder) decodeCollect(ctx *decoding.DecoderContext, event abi.Event) (decoding.DecodingOutput, error) {
	collect, err := decodeCollectLog(event, ctx.Log)
	if err != nil {
		return decoding.DecodingOutput{}, err
	}
	if !ctx.Tools.IsTracked(collect.Recipient) {
		return decoding.DecodingOutput{}, nil
	}
	token0, token1, err := d.tokens(ctx)
	if err != nil {
		ctx.Logger.Warn("skipping collect with unresolved pool token", zap.Error(err))
		return decoding.DecodingOutput{}, nil
	}

	output := decoding.DecodingOutput{MatchedCounterparty: CPTUniswapV3}
	for _, leg := range []struct {
		token poolToken
		raw   *big.Int
	}{{token0, collect.Amount0}, {token1, collect.Amount1}} {
		if leg.raw.Sign() == 0 {
			continue
		}
		value, err := amount.Normalize(leg.raw, leg.token.decimals)
		if err != nil {
			return decoding.DecodingOutput{}, err
		}
		notes := fmt.Sprintf("Remove %s %s from %s LP", value.String(), leg.token.symbol, details.Label)
		idx, ok := d.findEvent(ctx, model.EventTypeReceive, leg.token, value)
		if !ok {
			// The transfer to the recipient may be logged after the pool event.
			expected := value
			output.ActionItems = append(output.ActionItems, decoding.ActionItem{
				EventType:      model.EventTypeReceive,
				EventSubtype:   model.EventSubtypeNone,
				Asset:          leg.token.identifier,
				Amount:         &expected,
				LocationLabel:  collect.Recipient.Hex(),
				ToEventType:    model.EventTypeWithdrawal,
				ToEventSubtype: model.EventSubtypeRemoveAsset,
				ToCounterparty: CPTUniswapV3,
				ToProduct:      model.ProductPool,
				ToNotes:        notes,
			})
			continue
		}
		err = ctx.Events.Update(idx, func(e *model.HistoryEvent) {
			e.EventType = model.EventTypeWithdrawal
			e.EventSubtype = model.EventSubtypeRemoveAsset
			e.Counterparty = CPTUniswapV3
			e.Product = model.ProductPool
			e.Notes = notes
		})
		if err != nil {
			return decoding.DecodingOutput{}, err
		}
	}
	return output, nil
}

// symbolOf names the asset an event actually carries, which is the native
// asset when ether stood in for the wrapped token.
func symbolOf(ctx *decoding.DecoderContext, asset string, token poolToken) string {
	if asset == ctx.Tools.NativeAsset {
		return ctx.Tools.NativeAsset
	}
	return token.symbol
}
