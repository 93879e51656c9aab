package decoding

import (
	"fmt"
	"sort"

	"historyScope/internal/model"
)

// Events accumulates the decoded events of one transaction.
// Sequence indices are unique across the accumulator.
type Events struct {
	items   []model.HistoryEvent
	indices map[int]struct{}
}

func NewEvents() *Events {
	return &Events{indices: make(map[int]struct{})}
}

// Len returns the number of events.
func (e *Events) Len() int {
	return len(e.items)
}

// At returns a copy of event i.
func (e *Events) At(i int) model.HistoryEvent {
	return e.items[i].Clone()
}

// All returns copies of every event in insertion order.
func (e *Events) All() []model.HistoryEvent {
	out := make([]model.HistoryEvent, 0, len(e.items))
	for _, item := range e.items {
		out = append(out, item.Clone())
	}
	return out
}

// Append adds an event, rejecting a sequence index already in use.
func (e *Events) Append(event model.HistoryEvent) error {
	if _, ok := e.indices[event.SequenceIndex]; ok {
		return fmt.Errorf("%w: %d", ErrDuplicateSequenceIndex, event.SequenceIndex)
	}
	e.indices[event.SequenceIndex] = struct{}{}
	e.items = append(e.items, event.Clone())
	return nil
}

// Replace overwrites event i. The new event may keep its sequence index or move to a free one.
func (e *Events) Replace(i int, event model.HistoryEvent) error {
	if i < 0 || i >= len(e.items) {
		return fmt.Errorf("%w: %d of %d", ErrEventIndexOutOfRange, i, len(e.items))
	}
	old := e.items[i].SequenceIndex
	if event.SequenceIndex != old {
		if _, ok := e.indices[event.SequenceIndex]; ok {
			return fmt.Errorf("%w: %d", ErrDuplicateSequenceIndex, event.SequenceIndex)
		}
		delete(e.indices, old)
		e.indices[event.SequenceIndex] = struct{}{}
	}
	e.items[i] = event.Clone()
	return nil
}

// Update applies fn to a copy of event i and stores the result.
func (e *Events) Update(i int, fn func(*model.HistoryEvent)) error {
	if i < 0 || i >= len(e.items) {
		return fmt.Errorf("%w: %d of %d", ErrEventIndexOutOfRange, i, len(e.items))
	}
	event := e.items[i].Clone()
	fn(&event)
	return e.Replace(i, event)
}

// InsertAfter stores event right after event anchor. Every event ordered after
// the anchor moves up by one index. It returns the index given to event.
func (e *Events) InsertAfter(anchor int, event model.HistoryEvent) (int, error) {
	if anchor < 0 || anchor >= len(e.items) {
		return 0, fmt.Errorf("%w: %d of %d", ErrEventIndexOutOfRange, anchor, len(e.items))
	}
	at := e.items[anchor].SequenceIndex + 1
	later := e.Find(func(item model.HistoryEvent) bool {
		return item.SequenceIndex >= at
	})
	// Highest first so each move lands on a free index.
	sort.Slice(later, func(i, j int) bool {
		return e.items[later[i]].SequenceIndex > e.items[later[j]].SequenceIndex
	})
	for _, i := range later {
		moved := e.items[i].Clone()
		moved.SequenceIndex++
		if err := e.Replace(i, moved); err != nil {
			return 0, err
		}
	}
	event.SequenceIndex = at
	if err := e.Append(event); err != nil {
		return 0, err
	}
	return at, nil
}

// Find returns the positions of all events matching fn, in insertion order.
func (e *Events) Find(fn func(model.HistoryEvent) bool) []int {
	var out []int
	for i, item := range e.items {
		if fn(item) {
			out = append(out, i)
		}
	}
	return out
}

// Clone returns an independent copy of the accumulator.
func (e *Events) Clone() *Events {
	out := &Events{
		items:   make([]model.HistoryEvent, 0, len(e.items)),
		indices: make(map[int]struct{}, len(e.indices)),
	}
	for _, item := range e.items {
		out.items = append(out.items, item.Clone())
	}
	for idx := range e.indices {
		out.indices[idx] = struct{}{}
	}
	return out
}

// Sorted returns copies of the events ordered by sequence index.
func (e *Events) Sorted() []model.HistoryEvent {
	out := e.All()
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].SequenceIndex < out[j].SequenceIndex
	})
	return out
}
