package decoding

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"

	"historyScope/internal/amount"
	"historyScope/internal/model"
)

var (
	// TransferTopic is the ERC20 Transfer(address,address,uint256) signature.
	TransferTopic = crypto.Keccak256Hash([]byte("Transfer(address,address,uint256)"))
	// ApprovalTopic is the ERC20 Approval(address,address,uint256) signature.
	ApprovalTopic = crypto.Keccak256Hash([]byte("Approval(address,address,uint256)"))
)

// decodeERC20Transfer turns a transfer touching a tracked account into a
// send, receive or internal transfer event and offers it to the registered
// transfer enrichers.
func (r *Registry) decodeERC20Transfer(ctx *DecoderContext) (DecodingOutput, error) {
	topic0, ok := ctx.Log.Topic0()
	// ERC721 transfers carry the token id as a fourth topic.
	if !ok || topic0 != TransferTopic || len(ctx.Log.Topics) != 3 {
		return DecodingOutput{}, nil
	}

	from := TopicAddress(ctx.Log.Topics[1])
	to := TopicAddress(ctx.Log.Topics[2])
	fromTracked := ctx.Tools.IsTracked(from)
	toTracked := ctx.Tools.IsTracked(to)
	if !fromTracked && !toTracked {
		return DecodingOutput{}, nil
	}

	raw, err := WordUint(ctx.Log.Data, 0)
	if err != nil {
		return DecodingOutput{}, fmt.Errorf("transfer amount: %w", err)
	}
	token, err := ctx.Tools.Token(ctx.Context, ctx.Log.Address)
	if err != nil {
		ctx.Logger.Warn("skipping transfer of unresolved token",
			zap.String("token", ctx.Log.Address.Hex()),
			zap.Error(err),
		)
		return DecodingOutput{}, nil
	}
	value, err := amount.Normalize(raw, int(token.Decimals))
	if err != nil {
		return DecodingOutput{}, err
	}
	if value.IsZero() {
		return DecodingOutput{}, nil
	}

	params := EventParams{
		EventSubtype: model.EventSubtypeNone,
		Asset:        token.Identifier,
		Amount:       value,
	}
	symbol := token.DisplaySymbol()
	switch {
	case fromTracked && toTracked:
		params.EventType = model.EventTypeTransfer
		params.LocationLabel = from.Hex()
		params.Address = addressPtr(to)
		params.Notes = fmt.Sprintf("Transfer %s %s from %s to %s", value.String(), symbol, from.Hex(), to.Hex())
	case fromTracked:
		params.EventType = model.EventTypeSpend
		params.LocationLabel = from.Hex()
		params.Address = addressPtr(to)
		params.Notes = fmt.Sprintf("Send %s %s from %s to %s", value.String(), symbol, from.Hex(), to.Hex())
	default:
		params.EventType = model.EventTypeReceive
		params.LocationLabel = to.Hex()
		params.Address = addressPtr(from)
		params.Notes = fmt.Sprintf("Receive %s %s from %s to %s", value.String(), symbol, from.Hex(), to.Hex())
	}

	event := ctx.NewEvent(params)
	return r.enrichTransfer(ctx, event), nil
}

// enrichTransfer runs the enrichers in registration order until one claims the
// transfer. A failing enricher leaves the plain transfer. Transfers a pending
// action item waits for are left to that item.
func (r *Registry) enrichTransfer(ctx *DecoderContext, event model.HistoryEvent) DecodingOutput {
	out := DecodingOutput{Events: []model.HistoryEvent{event}}
	for _, item := range ctx.ActionItems {
		if item.Matches(event) {
			return out
		}
	}
	for _, e := range r.enrichers {
		enriched := event.Clone()
		cpt, err := e.enrich(ctx, &enriched)
		if err != nil {
			ctx.Logger.Warn("transfer enricher failed",
				zap.String("enricher", e.protocol),
				zap.Uint64("log_index", ctx.Log.LogIndex),
				zap.Error(err),
			)
			return out
		}
		if cpt != "" {
			return DecodingOutput{Events: []model.HistoryEvent{enriched}, MatchedCounterparty: cpt}
		}
	}
	return out
}

// decodeERC20Approval records allowance changes granted by a tracked owner.
func decodeERC20Approval(ctx *DecoderContext) (DecodingOutput, error) {
	topic0, ok := ctx.Log.Topic0()
	if !ok || topic0 != ApprovalTopic || len(ctx.Log.Topics) != 3 {
		return DecodingOutput{}, nil
	}

	owner := TopicAddress(ctx.Log.Topics[1])
	spender := TopicAddress(ctx.Log.Topics[2])
	if !ctx.Tools.IsTracked(owner) {
		return DecodingOutput{}, nil
	}

	raw, err := WordUint(ctx.Log.Data, 0)
	if err != nil {
		return DecodingOutput{}, fmt.Errorf("approval amount: %w", err)
	}
	token, err := ctx.Tools.Token(ctx.Context, ctx.Log.Address)
	if err != nil {
		ctx.Logger.Warn("skipping approval of unresolved token",
			zap.String("token", ctx.Log.Address.Hex()),
			zap.Error(err),
		)
		return DecodingOutput{}, nil
	}
	value, err := amount.Normalize(raw, int(token.Decimals))
	if err != nil {
		return DecodingOutput{}, err
	}

	notes := fmt.Sprintf("Set %s spending approval of %s by %s to %s", token.DisplaySymbol(), owner.Hex(), spender.Hex(), value.String())
	if value.IsZero() {
		notes = fmt.Sprintf("Revoke %s spending approval of %s by %s", token.DisplaySymbol(), owner.Hex(), spender.Hex())
	}
	event := ctx.NewEvent(EventParams{
		EventType:     model.EventTypeInformational,
		EventSubtype:  model.EventSubtypeApprove,
		Asset:         token.Identifier,
		Amount:        value,
		LocationLabel: owner.Hex(),
		Address:       addressPtr(spender),
		Notes:         notes,
	})
	return DecodingOutput{Events: []model.HistoryEvent{event}}, nil
}

func addressPtr(addr common.Address) *common.Address {
	return &addr
}
