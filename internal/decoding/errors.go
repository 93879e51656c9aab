package decoding

import "errors"

var (
	// ErrDuplicateAddress is returned when two protocols claim the same contract address.
	ErrDuplicateAddress = errors.New("duplicate address registration")
	// ErrDuplicateCounterparty is returned when two protocols declare the same counterparty identifier.
	ErrDuplicateCounterparty = errors.New("duplicate counterparty registration")
	// ErrDuplicateSelector is returned when two protocols bind input data rules to the same method selector.
	ErrDuplicateSelector = errors.New("duplicate input data selector")
	ErrRegistryFrozen    = errors.New("registry is frozen")
	ErrRegistryNotFrozen = errors.New("registry is not frozen")

	ErrDuplicateSequenceIndex = errors.New("duplicate sequence index")
	ErrEventIndexOutOfRange   = errors.New("event index out of range")
	ErrNoTokenResolver        = errors.New("no token resolver configured")
	ErrShortData              = errors.New("log data too short")
	ErrMissingTopic           = errors.New("log topic missing")
)
