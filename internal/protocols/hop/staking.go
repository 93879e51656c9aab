package hop

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"historyScope/internal/decoding"
	"historyScope/internal/model"
)

// stakingEnricher tags LP tokens moved into or out of a staking rewards
// contract. Reward payouts are left to the RewardPaid handler.
func stakingEnricher(rewards []common.Address, rewardAsset string) decoding.TransferEnricher {
	contracts := make(map[common.Address]struct{}, len(rewards))
	for _, addr := range rewards {
		contracts[addr] = struct{}{}
	}
	return func(ctx *decoding.DecoderContext, event *model.HistoryEvent) (string, error) {
		if event.Address == nil || event.EventSubtype != model.EventSubtypeNone || event.Asset == rewardAsset {
			return "", nil
		}
		if _, ok := contracts[*event.Address]; !ok {
			return "", nil
		}
		token, err := ctx.Tools.Token(ctx.Context, ctx.Log.Address)
		if err != nil {
			return "", err
		}

		switch event.EventType {
		case model.EventTypeSpend:
			event.EventType = model.EventTypeDeposit
			event.EventSubtype = model.EventSubtypeDepositAsset
			event.Notes = fmt.Sprintf("Stake %s %s in Hop", event.Amount.String(), token.DisplaySymbol())
		case model.EventTypeReceive:
			event.EventType = model.EventTypeWithdrawal
			event.EventSubtype = model.EventSubtypeRemoveAsset
			event.Notes = fmt.Sprintf("Unstake %s %s from Hop", event.Amount.String(), token.DisplaySymbol())
		default:
			return "", nil
		}
		event.Counterparty = CPTHop
		event.Product = model.ProductStaking
		return CPTHop, nil
	}
}
