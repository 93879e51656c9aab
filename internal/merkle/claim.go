// Package merkle decodes "Claimed" logs of Merkle distributor contracts by
// reclassifying the receive event of the claimed tokens.
package merkle

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"historyScope/internal/amount"
	"historyScope/internal/decoding"
	"historyScope/internal/model"
)

// Layout locates the claim fields inside a log. A topic slot > 0 takes
// precedence over the data word of the same field.
type Layout struct {
	ClaimantTopic int
	ClaimantWord  int
	AmountTopic   int
	AmountWord    int
	// TokenFromLog reads the reward token from data word TokenWord instead
	// of the configured token.
	TokenFromLog bool
	TokenWord    int
}

var (
	// DefaultLayout matches Claim(address indexed claimant, uint256 amount).
	DefaultLayout = Layout{ClaimantTopic: 1, AmountWord: 0}
	// IndexedLayout matches Claimed(address indexed account, uint256 indexed amount).
	IndexedLayout = Layout{ClaimantTopic: 1, AmountTopic: 2}
	// DistributorLayout matches the MerkleDistributor
	// Claimed(uint256 index, address account, uint256 amount).
	DistributorLayout = Layout{ClaimantWord: 1, AmountWord: 2}
)

// ClaimConfig parameterizes the claim decoder for one protocol.
type ClaimConfig struct {
	Topic        common.Hash
	Counterparty string
	// Token is the fixed reward token. It is ignored when the layout reads
	// the token from the log.
	Token       *model.Token
	Layout      *Layout
	NotesSuffix string
	// Subtype defaults to reward.
	Subtype model.EventSubtype
	Product model.Product
}

// DecodeMerkleClaim handles claims with an indexed claimant and the amount in the data,
// unless cfg.Layout says otherwise.
func DecodeMerkleClaim(ctx *decoding.DecoderContext, cfg ClaimConfig) (decoding.DecodingOutput, error) {
	layout := DefaultLayout
	if cfg.Layout != nil {
		layout = *cfg.Layout
	}
	return decodeClaim(ctx, cfg, layout)
}

// DecodeIndexedMerkleClaim handles claims whose claimant and amount are indexed topics.
func DecodeIndexedMerkleClaim(ctx *decoding.DecoderContext, cfg ClaimConfig) (decoding.DecodingOutput, error) {
	layout := IndexedLayout
	if cfg.Layout != nil {
		layout = *cfg.Layout
	}
	return decodeClaim(ctx, cfg, layout)
}

func decodeClaim(ctx *decoding.DecoderContext, cfg ClaimConfig, layout Layout) (decoding.DecodingOutput, error) {
	topic0, ok := ctx.Log.Topic0()
	if !ok || topic0 != cfg.Topic {
		return decoding.DecodingOutput{}, nil
	}

	claimant, err := readAddress(ctx.Log, layout.ClaimantTopic, layout.ClaimantWord)
	if err != nil {
		return decoding.DecodingOutput{}, fmt.Errorf("claimant: %w", err)
	}
	if !ctx.Tools.IsTracked(claimant) {
		return decoding.DecodingOutput{}, nil
	}
	raw, err := readUint(ctx.Log, layout.AmountTopic, layout.AmountWord)
	if err != nil {
		return decoding.DecodingOutput{}, fmt.Errorf("claim amount: %w", err)
	}

	token, ok, err := rewardToken(ctx, cfg, layout)
	if err != nil || !ok {
		return decoding.DecodingOutput{}, err
	}

	value, err := amount.Normalize(raw, int(token.Decimals))
	if err != nil {
		return decoding.DecodingOutput{}, err
	}

	label := claimant.Hex()
	candidates := ctx.Events.Find(func(e model.HistoryEvent) bool {
		return e.EventType == model.EventTypeReceive &&
			e.EventSubtype == model.EventSubtypeNone &&
			e.Asset == token.Identifier &&
			e.Amount.Equal(value) &&
			e.LocationLabel == label
	})
	fields := []zap.Field{
		zap.String("counterparty", cfg.Counterparty),
		zap.Uint64("log_index", ctx.Log.LogIndex),
		zap.String("claimant", label),
		zap.String("asset", token.Identifier),
		zap.String("amount", value.String()),
	}
	if len(candidates) == 0 {
		ctx.Logger.Error("claim log without matching receive event", fields...)
		return decoding.DecodingOutput{}, nil
	}
	if len(candidates) > 1 {
		ctx.Logger.Warn("multiple receive events match claim, using the first", append(fields, zap.Int("candidates", len(candidates)))...)
	}

	subtype := cfg.Subtype
	if subtype == "" {
		subtype = model.EventSubtypeReward
	}
	notes := strings.TrimSpace(fmt.Sprintf("Claim %s %s %s", value.String(), token.DisplaySymbol(), cfg.NotesSuffix))
	err = ctx.Events.Update(candidates[0], func(e *model.HistoryEvent) {
		e.EventSubtype = subtype
		e.Counterparty = cfg.Counterparty
		e.Notes = notes
		if cfg.Product != model.ProductNone {
			e.Product = cfg.Product
		}
	})
	if err != nil {
		return decoding.DecodingOutput{}, err
	}
	return decoding.DecodingOutput{MatchedCounterparty: cfg.Counterparty}, nil
}

func rewardToken(ctx *decoding.DecoderContext, cfg ClaimConfig, layout Layout) (model.Token, bool, error) {
	if !layout.TokenFromLog {
		if cfg.Token == nil {
			return model.Token{}, false, fmt.Errorf("no reward token configured for %s", cfg.Counterparty)
		}
		return *cfg.Token, true, nil
	}
	address, err := decoding.WordAddress(ctx.Log.Data, layout.TokenWord)
	if err != nil {
		return model.Token{}, false, fmt.Errorf("reward token: %w", err)
	}
	token, err := ctx.Tools.Token(ctx.Context, address)
	if err != nil {
		ctx.Logger.Warn("skipping claim of unresolved reward token",
			zap.String("counterparty", cfg.Counterparty),
			zap.String("token", address.Hex()),
			zap.Error(err),
		)
		return model.Token{}, false, nil
	}
	return token, true, nil
}

func readAddress(log model.TxLog, topic, word int) (common.Address, error) {
	if topic > 0 {
		t, err := decoding.Topic(log, topic)
		if err != nil {
			return common.Address{}, err
		}
		return decoding.TopicAddress(t), nil
	}
	return decoding.WordAddress(log.Data, word)
}

func readUint(log model.TxLog, topic, word int) (*big.Int, error) {
	if topic > 0 {
		t, err := decoding.Topic(log, topic)
		if err != nil {
			return nil, err
		}
		return decoding.TopicUint(t), nil
	}
	return decoding.WordUint(log.Data, word)
}
