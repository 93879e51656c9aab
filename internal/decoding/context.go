package decoding

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"historyScope/internal/model"
)

// ActionItem is a hint left by one log handler for an event produced by a later log.
// Zero-valued match fields match anything.
type ActionItem struct {
	EventType     model.EventType
	EventSubtype  model.EventSubtype
	Asset         string
	Amount        *decimal.Decimal
	LocationLabel string

	ToEventType    model.EventType
	ToEventSubtype model.EventSubtype
	ToCounterparty string
	ToProduct      model.Product
	ToNotes        string
	ToAddress      *common.Address
	ExtraData      map[string]any
}

// Matches reports whether event is the one the item waits for.
func (a ActionItem) Matches(event model.HistoryEvent) bool {
	if a.EventType != "" && a.EventType != event.EventType {
		return false
	}
	if a.EventSubtype != "" && a.EventSubtype != event.EventSubtype {
		return false
	}
	if a.Asset != "" && a.Asset != event.Asset {
		return false
	}
	if a.Amount != nil && !a.Amount.Equal(event.Amount) {
		return false
	}
	if a.LocationLabel != "" && a.LocationLabel != event.LocationLabel {
		return false
	}
	return true
}

// Apply rewrites event with the item's target fields.
func (a ActionItem) Apply(event *model.HistoryEvent) {
	if a.ToEventType != "" {
		event.EventType = a.ToEventType
	}
	if a.ToEventSubtype != "" {
		event.EventSubtype = a.ToEventSubtype
	}
	if a.ToCounterparty != "" {
		event.Counterparty = a.ToCounterparty
	}
	if a.ToProduct != "" {
		event.Product = a.ToProduct
	}
	if a.ToNotes != "" {
		event.Notes = a.ToNotes
	}
	if a.ToAddress != nil {
		addr := *a.ToAddress
		event.Address = &addr
	}
	if len(a.ExtraData) > 0 {
		if event.ExtraData == nil {
			event.ExtraData = make(map[string]any, len(a.ExtraData))
		}
		for k, v := range a.ExtraData {
			event.ExtraData[k] = v
		}
	}
}

// DecodingOutput is what a log handler returns. The zero value means "not mine".
type DecodingOutput struct {
	Events              []model.HistoryEvent
	ActionItems         []ActionItem
	MatchedCounterparty string
}

// IsEmpty reports whether the output carries nothing.
func (o DecodingOutput) IsEmpty() bool {
	return len(o.Events) == 0 && len(o.ActionItems) == 0 && o.MatchedCounterparty == ""
}

// DecoderContext is passed to every log handler.
type DecoderContext struct {
	Context     context.Context
	Transaction model.Transaction
	Log         model.TxLog
	Logs        []model.TxLog
	Events      *Events
	ActionItems []ActionItem
	Tools       *Tools
	Sequence    *Sequencer
	Logger      *zap.Logger
}

// NewEvent builds an event owned by the current log.
func (c *DecoderContext) NewEvent(p EventParams) model.HistoryEvent {
	return c.Tools.newEvent(c.Transaction, c.Sequence.ForLog(c.Log), p)
}

// InsertEventAfter builds an event and stores it right after event anchor of the
// accumulator, moving later events and the indices of later logs up by one.
// Events the handler returns must be built after the insertion.
func (c *DecoderContext) InsertEventAfter(anchor int, p EventParams) (model.HistoryEvent, error) {
	return insertAfter(c.Tools, c.Transaction, c.Events, c.Sequence, anchor, p)
}

// PostDecodingContext is passed to every post-decoding rule.
type PostDecodingContext struct {
	Context     context.Context
	Transaction model.Transaction
	Logs        []model.TxLog
	Events      *Events
	Tools       *Tools
	Sequence    *Sequencer
	Logger      *zap.Logger
}

// NewEvent builds a synthesized event at a fresh index.
func (c *PostDecodingContext) NewEvent(p EventParams) model.HistoryEvent {
	return c.Tools.newEvent(c.Transaction, c.Sequence.Next(), p)
}

// InsertEventAfter builds an event and stores it right after event anchor.
func (c *PostDecodingContext) InsertEventAfter(anchor int, p EventParams) (model.HistoryEvent, error) {
	return insertAfter(c.Tools, c.Transaction, c.Events, c.Sequence, anchor, p)
}

func insertAfter(tools *Tools, tx model.Transaction, events *Events, seq *Sequencer, anchor int, p EventParams) (model.HistoryEvent, error) {
	event := tools.newEvent(tx, 0, p)
	at, err := events.InsertAfter(anchor, event)
	if err != nil {
		return model.HistoryEvent{}, err
	}
	seq.bump()
	event.SequenceIndex = at
	return event, nil
}
