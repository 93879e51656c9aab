package decoding

import (
	"github.com/ethereum/go-ethereum/common"

	"historyScope/internal/model"
)

// CounterpartyGas marks the gas fee event of a transaction.
const CounterpartyGas = "gas"

var gasCounterparty = model.CounterpartyDetails{Identifier: CounterpartyGas, Label: "Gas", Image: "lu-flame"}

// LogHandler decodes one log. Returning an empty output means the log is not handled.
type LogHandler func(ctx *DecoderContext) (DecodingOutput, error)

// PostDecodingRule runs once per transaction after every log was dispatched.
type PostDecodingRule func(ctx *PostDecodingContext) error

// PostRule binds a rule to a counterparty. Lower priorities run first.
type PostRule struct {
	Counterparty string
	Priority     int
	Rule         PostDecodingRule
}

// EventRule is a topic-driven fallback tried for logs no address handler decoded.
type EventRule struct {
	Name string
	Rule LogHandler
}

// TransferEnricher may rewrite a token transfer decoded by the built-in rule.
// It returns the matched counterparty, or "" when the transfer is not its concern.
type TransferEnricher func(ctx *DecoderContext, event *model.HistoryEvent) (string, error)

// Protocol describes everything a protocol contributes to a chain's registry.
// Unused capabilities stay empty.
type Protocol struct {
	Name           string
	Counterparties []model.CounterpartyDetails
	Handlers       map[common.Address]LogHandler
	// InputDataRules decode logs of transactions calling a given method, keyed
	// by selector and then topic0. They run before address handlers.
	InputDataRules map[[4]byte]map[common.Hash]LogHandler
	// EventRules run after the built-in ERC20 rules.
	EventRules        []EventRule
	TransferEnrichers []TransferEnricher
	// AddressCounterparties maps contracts a transaction may be sent to onto the
	// counterparty whose post rules must run for it.
	AddressCounterparties map[common.Address]string
	PostRules             []PostRule
	// AlwaysRunPostRules runs the protocol's post rules for every transaction.
	AlwaysRunPostRules bool
	Products           map[string][]model.Product
}

// Constructor builds a Protocol for a chain.
type Constructor func(chainID uint64) Protocol
