package decoding

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"historyScope/internal/model"
)

const (
	gasSequenceIndex   = 0
	valueSequenceIndex = 1
	logIndexOffset     = 2
)

// TokenResolver looks up or creates token metadata for a contract address.
type TokenResolver interface {
	GetOrCreateToken(ctx context.Context, chainID uint64, address common.Address) (model.Token, error)
}

// Tools holds the read-only chain collaborators shared by every decode call.
type Tools struct {
	ChainID     uint64
	Location    string
	NativeAsset string
	Tokens      TokenResolver

	tracked map[common.Address]struct{}
}

// NewTools builds Tools for one chain and a set of tracked accounts.
func NewTools(chainID uint64, location string, tokens TokenResolver, tracked []common.Address) *Tools {
	set := make(map[common.Address]struct{}, len(tracked))
	for _, addr := range tracked {
		set[addr] = struct{}{}
	}
	return &Tools{
		ChainID:     chainID,
		Location:    location,
		NativeAsset: model.NativeAssetETH,
		Tokens:      tokens,
		tracked:     set,
	}
}

// IsTracked reports whether addr belongs to the user.
func (t *Tools) IsTracked(addr common.Address) bool {
	_, ok := t.tracked[addr]
	return ok
}

// Token resolves ERC20 metadata for address on the tools' chain.
func (t *Tools) Token(ctx context.Context, address common.Address) (model.Token, error) {
	if t.Tokens == nil {
		return model.Token{}, ErrNoTokenResolver
	}
	token, err := t.Tokens.GetOrCreateToken(ctx, t.ChainID, address)
	if err != nil {
		return model.Token{}, fmt.Errorf("resolve token %s: %w", address.Hex(), err)
	}
	return token, nil
}

// Sequencer hands out sequence indices within one transaction.
// Index 0 is reserved for the gas event and 1 for the native value transfer.
// Log-backed events use log index + 2 and synthesized events start after the last log.
// Both move up by one for every event inserted between existing ones.
type Sequencer struct {
	next  int
	shift int
}

func newSequencer(logs []model.TxLog) *Sequencer {
	next := logIndexOffset
	for _, l := range logs {
		if idx := int(l.LogIndex) + logIndexOffset + 1; idx > next {
			next = idx
		}
	}
	return &Sequencer{next: next}
}

// ForLog returns the sequence index owned by a log.
func (s *Sequencer) ForLog(l model.TxLog) int {
	return int(l.LogIndex) + logIndexOffset + s.shift
}

// Next returns a fresh index past every log.
func (s *Sequencer) Next() int {
	n := s.next
	s.next++
	return n
}

func (s *Sequencer) bump() {
	s.shift++
	s.next++
}

// EventParams describes an event to build.
type EventParams struct {
	EventType     model.EventType
	EventSubtype  model.EventSubtype
	Asset         string
	Amount        decimal.Decimal
	LocationLabel string
	Counterparty  string
	Product       model.Product
	Notes         string
	Address       *common.Address
	ExtraData     map[string]any
}

func (t *Tools) newEvent(tx model.Transaction, sequenceIndex int, p EventParams) model.HistoryEvent {
	return model.HistoryEvent{
		TxHash:        tx.Hash,
		SequenceIndex: sequenceIndex,
		Timestamp:     tx.Timestamp,
		Location:      t.Location,
		EventType:     p.EventType,
		EventSubtype:  p.EventSubtype,
		Asset:         p.Asset,
		Amount:        p.Amount,
		LocationLabel: p.LocationLabel,
		Counterparty:  p.Counterparty,
		Product:       p.Product,
		Notes:         p.Notes,
		Address:       p.Address,
		ExtraData:     p.ExtraData,
	}
}
