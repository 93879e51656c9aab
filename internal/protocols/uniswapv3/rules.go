package uniswapv3

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"historyScope/internal/amount"
	"historyScope/internal/decoding"
	"historyScope/internal/model"
)

// unlistedSwapRule labels swaps in pools missing from the static list. Pool
// tokens are unknown, so only transfers exchanged with the emitting pool for
// the exact swap amounts are rewritten.
func unlistedSwapRule(listed map[common.Address]struct{}) decoding.LogHandler {
	return func(ctx *decoding.DecoderContext) (decoding.DecodingOutput, error) {
		if _, ok := listed[ctx.Log.Address]; ok {
			return decoding.DecodingOutput{}, nil
		}
		parsed, err := PoolABI()
		if err != nil {
			return decoding.DecodingOutput{}, err
		}
		event := parsed.Events["Swap"]
		if topic0, ok := ctx.Log.Topic0(); !ok || topic0 != event.ID {
			return decoding.DecodingOutput{}, nil
		}
		swap, err := decodeSwapLog(event, ctx.Log)
		if err != nil {
			ctx.Logger.Debug("ignoring swap shaped log", zap.String("address", ctx.Log.Address.Hex()), zap.Error(err))
			return decoding.DecodingOutput{}, nil
		}

		in, out := swap.Amount0, new(big.Int).Neg(swap.Amount1)
		if swap.Amount0.Sign() <= 0 {
			in, out = swap.Amount1, new(big.Int).Neg(swap.Amount0)
		}
		if in.Sign() <= 0 || out.Sign() <= 0 {
			return decoding.DecodingOutput{}, nil
		}

		pool := ctx.Log.Address
		spendIdx, spent, ok := poolTransferEvent(ctx, model.EventTypeSpend, pool, in)
		if !ok {
			return decoding.DecodingOutput{}, nil
		}
		receiveIdx, received, ok := poolTransferEvent(ctx, model.EventTypeReceive, pool, out)
		if !ok {
			return decoding.DecodingOutput{}, nil
		}

		err = ctx.Events.Update(spendIdx, func(e *model.HistoryEvent) {
			e.EventType = model.EventTypeTrade
			e.EventSubtype = model.EventSubtypeSpend
			e.Counterparty = CPTUniswapV3
			e.Notes = fmt.Sprintf("Swap %s %s in %s", e.Amount.String(), spent.DisplaySymbol(), details.Label)
		})
		if err != nil {
			return decoding.DecodingOutput{}, err
		}
		err = ctx.Events.Update(receiveIdx, func(e *model.HistoryEvent) {
			e.EventType = model.EventTypeTrade
			e.EventSubtype = model.EventSubtypeReceive
			e.Counterparty = CPTUniswapV3
			e.Notes = fmt.Sprintf("Receive %s %s as the result of a swap in %s", e.Amount.String(), received.DisplaySymbol(), details.Label)
		})
		if err != nil {
			return decoding.DecodingOutput{}, err
		}
		return decoding.DecodingOutput{MatchedCounterparty: CPTUniswapV3}, nil
	}
}

// poolTransferEvent finds the untouched transfer event between a tracked
// account and pool for raw units of some token. The token is taken from the
// Transfer log that moved exactly raw units in the given direction.
func poolTransferEvent(ctx *decoding.DecoderContext, eventType model.EventType, pool common.Address, raw *big.Int) (int, model.Token, bool) {
	for _, l := range ctx.Logs {
		if l.LogIndex >= ctx.Log.LogIndex || len(l.Topics) != 3 || l.Topics[0] != decoding.TransferTopic {
			continue
		}
		from, to := decoding.TopicAddress(l.Topics[1]), decoding.TopicAddress(l.Topics[2])
		if (eventType == model.EventTypeSpend && to != pool) || (eventType == model.EventTypeReceive && from != pool) {
			continue
		}
		value, err := decoding.WordUint(l.Data, 0)
		if err != nil || value.Cmp(raw) != 0 {
			continue
		}
		token, err := ctx.Tools.Token(ctx.Context, l.Address)
		if err != nil {
			continue
		}
		found := ctx.Events.Find(func(e model.HistoryEvent) bool {
			if e.EventType != eventType ||
				e.EventSubtype != model.EventSubtypeNone ||
				e.Asset != token.Identifier ||
				e.Address == nil || *e.Address != pool {
				return false
			}
			units, err := amount.Denormalize(e.Amount, int(token.Decimals))
			return err == nil && units.Cmp(raw) == 0
		})
		if len(found) > 0 {
			return found[0], token, true
		}
	}
	return 0, model.Token{}, false
}
