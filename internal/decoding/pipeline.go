package decoding

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"go.uber.org/zap"

	"historyScope/internal/amount"
	"historyScope/internal/model"
)

// Pipeline decodes single transactions against a frozen registry.
// It is safe for concurrent use.
type Pipeline struct {
	registry *Registry
	tools    *Tools
	logger   *zap.Logger
	chainID  string
}

// NewPipeline builds a Pipeline. The registry must already be frozen.
func NewPipeline(registry *Registry, tools *Tools, logger *zap.Logger) (*Pipeline, error) {
	if registry == nil {
		return nil, fmt.Errorf("registry is nil")
	}
	if !registry.Frozen() {
		return nil, ErrRegistryNotFrozen
	}
	if tools == nil {
		return nil, fmt.Errorf("tools are nil")
	}
	if tools.ChainID != registry.ChainID() {
		return nil, fmt.Errorf("tools chain %d does not match registry chain %d", tools.ChainID, registry.ChainID())
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		registry: registry,
		tools:    tools,
		logger:   logger,
		chainID:  strconv.FormatUint(registry.ChainID(), 10),
	}, nil
}

// Decode turns one transaction and its receipt logs into history events.
// The raw logs are returned unchanged next to the events.
func (p *Pipeline) Decode(ctx context.Context, tx model.Transaction, logs []model.TxLog) ([]model.HistoryEvent, []model.TxLog) {
	ordered := make([]model.TxLog, len(logs))
	copy(ordered, logs)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].LogIndex < ordered[j].LogIndex
	})

	logger := p.logger.With(zap.String("tx_hash", tx.Hash.Hex()))
	seq := newSequencer(ordered)
	events := NewEvents()
	p.maybeAddGasEvent(tx, events, logger)
	p.maybeAddValueEvent(tx, events, logger)

	var (
		actionItems []ActionItem
		matched     []string
	)
	for _, txLog := range ordered {
		dctx := &DecoderContext{
			Context:     ctx,
			Transaction: tx,
			Log:         txLog,
			Logs:        ordered,
			ActionItems: actionItems,
			Tools:       p.tools,
			Sequence:    seq,
			Logger:      logger,
		}

		out, committed := p.dispatch(dctx, events, logger)
		events = committed
		for _, event := range out.Events {
			actionItems = applyActionItems(actionItems, &event)
			if err := events.Append(event); err != nil {
				logger.Warn("dropping event",
					zap.Uint64("log_index", txLog.LogIndex),
					zap.Error(err),
				)
			}
		}
		actionItems = append(actionItems, out.ActionItems...)
		if out.MatchedCounterparty != "" {
			matched = append(matched, out.MatchedCounterparty)
		}
	}

	events = p.runPostRules(ctx, tx, ordered, events, seq, matched, logger)

	result := events.Sorted()
	transactionsDecoded.WithLabelValues(p.chainID).Inc()
	for _, event := range result {
		eventsDecoded.WithLabelValues(p.chainID, string(event.EventType)).Inc()
	}
	return result, logs
}

// dispatch runs the input data rule bound to the transaction's method and the log's
// topic, then the address handler of the log, then the fallback event rules when
// the handler produced no event. A non-empty input data rule output ends the
// dispatch. Handlers work on a copy of the accumulator that is kept only if they succeed.
func (p *Pipeline) dispatch(dctx *DecoderContext, events *Events, logger *zap.Logger) (DecodingOutput, *Events) {
	if selector, ok := dctx.Transaction.Selector(); ok {
		if topic0, ok := dctx.Log.Topic0(); ok {
			if name, rule, ok := p.registry.InputDataRule(selector, topic0); ok {
				out, next, ok := p.decodeSafely(name, rule, dctx, events, logger)
				if ok && !out.IsEmpty() {
					return out, next
				}
			}
		}
	}

	var result DecodingOutput
	if name, handler, ok := p.registry.Handler(dctx.Log.Address); ok {
		out, next, ok := p.decodeSafely(name, handler, dctx, events, logger)
		if ok {
			events = next
			result = out
			if len(out.Events) > 0 {
				return result, events
			}
		}
	}

	for _, rule := range p.registry.eventRules {
		out, next, ok := p.decodeSafely(rule.Name, rule.Rule, dctx, events, logger)
		if !ok || out.IsEmpty() {
			continue
		}
		events = next
		result.Events = append(result.Events, out.Events...)
		result.ActionItems = append(result.ActionItems, out.ActionItems...)
		if out.MatchedCounterparty != "" {
			result.MatchedCounterparty = out.MatchedCounterparty
		}
		break
	}
	return result, events
}

func (p *Pipeline) decodeSafely(name string, handler LogHandler, dctx *DecoderContext, events *Events, logger *zap.Logger) (out DecodingOutput, next *Events, ok bool) {
	fields := []zap.Field{
		zap.String("decoder", name),
		zap.Uint64("log_index", dctx.Log.LogIndex),
		zap.String("address", dctx.Log.Address.Hex()),
	}
	defer func() {
		if r := recover(); r != nil {
			handlerFailures.WithLabelValues(p.chainID, name).Inc()
			logger.Warn("log handler panicked", append(fields, zap.Any("panic", r))...)
			out, next, ok = DecodingOutput{}, events, false
		}
	}()

	work := events.Clone()
	hctx := *dctx
	hctx.Events = work
	hctx.Logger = logger.With(zap.String("decoder", name))

	out, err := handler(&hctx)
	if err != nil {
		handlerFailures.WithLabelValues(p.chainID, name).Inc()
		logger.Warn("log handler failed", append(fields, zap.Error(err))...)
		return DecodingOutput{}, events, false
	}
	return out, work, true
}

func (p *Pipeline) runPostRules(
	ctx context.Context,
	tx model.Transaction,
	logs []model.TxLog,
	events *Events,
	seq *Sequencer,
	matched []string,
	logger *zap.Logger,
) *Events {
	var counterparties []string
	for _, event := range events.items {
		if event.Counterparty != "" {
			counterparties = append(counterparties, event.Counterparty)
		}
	}
	counterparties = append(counterparties, matched...)
	if tx.To != nil {
		if cpt, ok := p.registry.CounterpartyForAddress(*tx.To); ok {
			counterparties = append(counterparties, cpt)
		}
	}
	counterparties = append(counterparties, p.registry.alwaysRun...)

	for _, rule := range p.registry.rulesFor(counterparties) {
		next, ok := p.postDecodeSafely(ctx, rule, tx, logs, events, seq, logger)
		if ok {
			events = next
		}
	}
	return events
}

func (p *Pipeline) postDecodeSafely(
	ctx context.Context,
	rule orderedRule,
	tx model.Transaction,
	logs []model.TxLog,
	events *Events,
	seq *Sequencer,
	logger *zap.Logger,
) (next *Events, ok bool) {
	name := rule.protocol + "/" + rule.Counterparty
	fields := []zap.Field{
		zap.String("decoder", rule.protocol),
		zap.String("counterparty", rule.Counterparty),
		zap.Int("priority", rule.Priority),
	}
	defer func() {
		if r := recover(); r != nil {
			handlerFailures.WithLabelValues(p.chainID, name).Inc()
			logger.Warn("post decoding rule panicked", append(fields, zap.Any("panic", r))...)
			next, ok = events, false
		}
	}()

	work := events.Clone()
	pctx := &PostDecodingContext{
		Context:     ctx,
		Transaction: tx,
		Logs:        logs,
		Events:      work,
		Tools:       p.tools,
		Sequence:    seq,
		Logger:      logger.With(zap.String("decoder", rule.protocol)),
	}
	if err := rule.Rule(pctx); err != nil {
		handlerFailures.WithLabelValues(p.chainID, name).Inc()
		logger.Warn("post decoding rule failed", append(fields, zap.Error(err))...)
		return events, false
	}
	return work, true
}

// maybeAddGasEvent records the fee paid by a tracked sender at sequence index 0.
func (p *Pipeline) maybeAddGasEvent(tx model.Transaction, events *Events, logger *zap.Logger) {
	if !p.tools.IsTracked(tx.From) {
		return
	}
	fee := tx.GasFee()
	if fee == nil || fee.Sign() == 0 {
		return
	}
	value, err := amount.Normalize(fee, amount.DefaultDecimals)
	if err != nil {
		logger.Error("normalize gas fee", zap.Error(err))
		return
	}
	event := p.tools.newEvent(tx, gasSequenceIndex, EventParams{
		EventType:     model.EventTypeSpend,
		EventSubtype:  model.EventSubtypeFee,
		Asset:         p.tools.NativeAsset,
		Amount:        value,
		LocationLabel: tx.From.Hex(),
		Counterparty:  CounterpartyGas,
		Notes:         fmt.Sprintf("Burn %s %s for gas", value.String(), p.tools.NativeAsset),
	})
	if err := events.Append(event); err != nil {
		logger.Warn("dropping gas event", zap.Error(err))
	}
}

// maybeAddValueEvent records the native value moved by the transaction itself.
func (p *Pipeline) maybeAddValueEvent(tx model.Transaction, events *Events, logger *zap.Logger) {
	if tx.Value == nil || tx.Value.Sign() == 0 || tx.To == nil {
		return
	}
	fromTracked := p.tools.IsTracked(tx.From)
	toTracked := p.tools.IsTracked(*tx.To)
	if !fromTracked && !toTracked {
		return
	}
	value, err := amount.Normalize(tx.Value, amount.DefaultDecimals)
	if err != nil {
		logger.Error("normalize transaction value", zap.Error(err))
		return
	}

	asset := p.tools.NativeAsset
	params := EventParams{EventSubtype: model.EventSubtypeNone, Asset: asset, Amount: value}
	switch {
	case fromTracked && toTracked:
		params.EventType = model.EventTypeTransfer
		params.LocationLabel = tx.From.Hex()
		params.Address = addressPtr(*tx.To)
		params.Notes = fmt.Sprintf("Transfer %s %s from %s to %s", value.String(), asset, tx.From.Hex(), tx.To.Hex())
	case fromTracked:
		params.EventType = model.EventTypeSpend
		params.LocationLabel = tx.From.Hex()
		params.Address = addressPtr(*tx.To)
		params.Notes = fmt.Sprintf("Send %s %s to %s", value.String(), asset, tx.To.Hex())
	default:
		params.EventType = model.EventTypeReceive
		params.LocationLabel = tx.To.Hex()
		params.Address = addressPtr(tx.From)
		params.Notes = fmt.Sprintf("Receive %s %s from %s", value.String(), asset, tx.From.Hex())
	}
	if err := events.Append(p.tools.newEvent(tx, valueSequenceIndex, params)); err != nil {
		logger.Warn("dropping value event", zap.Error(err))
	}
}

func applyActionItems(items []ActionItem, event *model.HistoryEvent) []ActionItem {
	for i, item := range items {
		if !item.Matches(*event) {
			continue
		}
		item.Apply(event)
		return append(items[:i:i], items[i+1:]...)
	}
	return items
}
