package decoding

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"historyScope/internal/model"
)

type addressHandler struct {
	protocol string
	handler  LogHandler
}

type namedEnricher struct {
	protocol string
	enrich   TransferEnricher
}

type orderedRule struct {
	PostRule
	protocol string
	seq      int
}

// Registry aggregates the protocols of one chain. It is built once, frozen and
// then read concurrently without locking.
type Registry struct {
	chainID uint64
	frozen  bool

	protocols             []string
	handlers              map[common.Address]addressHandler
	inputRules            map[[4]byte]map[common.Hash]addressHandler
	eventRules            []EventRule
	enrichers             []namedEnricher
	postRules             map[string][]orderedRule
	ruleSeq               int
	counterparties        map[string]model.CounterpartyDetails
	addressCounterparties map[common.Address]string
	alwaysRun             []string
	products              map[string][]model.Product
}

// NewRegistry returns a registry seeded with the built-in ERC20 rules.
func NewRegistry(chainID uint64) *Registry {
	r := &Registry{
		chainID:               chainID,
		handlers:              make(map[common.Address]addressHandler),
		inputRules:            make(map[[4]byte]map[common.Hash]addressHandler),
		postRules:             make(map[string][]orderedRule),
		counterparties:        make(map[string]model.CounterpartyDetails),
		addressCounterparties: make(map[common.Address]string),
		products:              make(map[string][]model.Product),
	}
	r.counterparties[gasCounterparty.Identifier] = gasCounterparty
	r.eventRules = append(r.eventRules,
		EventRule{Name: "erc20_transfer", Rule: r.decodeERC20Transfer},
		EventRule{Name: "erc20_approval", Rule: decodeERC20Approval},
	)
	return r
}

// ChainID returns the chain the registry serves.
func (r *Registry) ChainID() uint64 {
	return r.chainID
}

// Register adds a protocol. Nothing is inserted when validation fails.
func (r *Registry) Register(p Protocol) error {
	if r.frozen {
		return fmt.Errorf("register %s: %w", p.Name, ErrRegistryFrozen)
	}
	if p.Name == "" {
		return fmt.Errorf("register: protocol name is required")
	}

	var dupes []string
	for addr := range p.Handlers {
		if existing, ok := r.handlers[addr]; ok {
			dupes = append(dupes, fmt.Sprintf("%s (%s)", addr.Hex(), existing.protocol))
		}
	}
	for addr, cpt := range p.AddressCounterparties {
		if existing, ok := r.addressCounterparties[addr]; ok && existing != cpt {
			dupes = append(dupes, fmt.Sprintf("%s (%s)", addr.Hex(), existing))
		}
	}
	if len(dupes) > 0 {
		sort.Strings(dupes)
		return fmt.Errorf("register %s: %w: %s", p.Name, ErrDuplicateAddress, strings.Join(dupes, ", "))
	}

	var selectors []string
	for selector, byTopic := range p.InputDataRules {
		if _, ok := r.inputRules[selector]; ok {
			selectors = append(selectors, hexutil.Encode(selector[:]))
		}
		for topic, handler := range byTopic {
			if handler == nil {
				return fmt.Errorf("register %s: nil input data rule for %s", p.Name, topic.Hex())
			}
		}
	}
	if len(selectors) > 0 {
		sort.Strings(selectors)
		return fmt.Errorf("register %s: %w: %s", p.Name, ErrDuplicateSelector, strings.Join(selectors, ", "))
	}
	for i, rule := range p.EventRules {
		if rule.Rule == nil {
			return fmt.Errorf("register %s: event rule %d (%s) has no function", p.Name, i, rule.Name)
		}
	}
	for i, enrich := range p.TransferEnrichers {
		if enrich == nil {
			return fmt.Errorf("register %s: transfer enricher %d is nil", p.Name, i)
		}
	}

	seen := make(map[string]struct{}, len(p.Counterparties))
	for _, cpt := range p.Counterparties {
		if cpt.Identifier == "" {
			return fmt.Errorf("register %s: empty counterparty identifier", p.Name)
		}
		_, local := seen[cpt.Identifier]
		_, global := r.counterparties[cpt.Identifier]
		if local || global {
			return fmt.Errorf("register %s: %w: %s", p.Name, ErrDuplicateCounterparty, cpt.Identifier)
		}
		seen[cpt.Identifier] = struct{}{}
	}
	for i, rule := range p.PostRules {
		if rule.Rule == nil || rule.Counterparty == "" {
			return fmt.Errorf("register %s: post rule %d needs a counterparty and a function", p.Name, i)
		}
	}

	r.protocols = append(r.protocols, p.Name)
	for addr, handler := range p.Handlers {
		r.handlers[addr] = addressHandler{protocol: p.Name, handler: handler}
	}
	for selector, byTopic := range p.InputDataRules {
		rules := make(map[common.Hash]addressHandler, len(byTopic))
		for topic, handler := range byTopic {
			rules[topic] = addressHandler{protocol: p.Name, handler: handler}
		}
		r.inputRules[selector] = rules
	}
	r.eventRules = append(r.eventRules, p.EventRules...)
	for _, enrich := range p.TransferEnrichers {
		r.enrichers = append(r.enrichers, namedEnricher{protocol: p.Name, enrich: enrich})
	}
	for addr, cpt := range p.AddressCounterparties {
		r.addressCounterparties[addr] = cpt
	}
	for _, cpt := range p.Counterparties {
		r.counterparties[cpt.Identifier] = cpt
	}

	touched := make(map[string]struct{})
	for _, rule := range p.PostRules {
		r.postRules[rule.Counterparty] = append(r.postRules[rule.Counterparty], orderedRule{
			PostRule: rule,
			protocol: p.Name,
			seq:      r.ruleSeq,
		})
		r.ruleSeq++
		touched[rule.Counterparty] = struct{}{}
	}
	for cpt := range touched {
		sortRules(r.postRules[cpt])
	}
	if p.AlwaysRunPostRules {
		for _, rule := range p.PostRules {
			r.addAlwaysRun(rule.Counterparty)
		}
	}

	for cpt, products := range p.Products {
		r.products[cpt] = append(r.products[cpt], products...)
	}
	return nil
}

func (r *Registry) addAlwaysRun(counterparty string) {
	for _, existing := range r.alwaysRun {
		if existing == counterparty {
			return
		}
	}
	r.alwaysRun = append(r.alwaysRun, counterparty)
}

func sortRules(rules []orderedRule) {
	sort.SliceStable(rules, func(i, j int) bool {
		if rules[i].Priority != rules[j].Priority {
			return rules[i].Priority < rules[j].Priority
		}
		return rules[i].seq < rules[j].seq
	})
}

// Freeze ends registration.
func (r *Registry) Freeze() {
	r.frozen = true
}

func (r *Registry) Frozen() bool {
	return r.frozen
}

// Handler returns the log handler owning address.
func (r *Registry) Handler(address common.Address) (string, LogHandler, bool) {
	h, ok := r.handlers[address]
	if !ok {
		return "", nil, false
	}
	return h.protocol, h.handler, true
}

// InputDataRule returns the rule bound to a method selector and log topic.
func (r *Registry) InputDataRule(selector [4]byte, topic0 common.Hash) (string, LogHandler, bool) {
	h, ok := r.inputRules[selector][topic0]
	if !ok {
		return "", nil, false
	}
	return h.protocol, h.handler, true
}

// PostRules returns the rules of one counterparty in execution order.
func (r *Registry) PostRules(counterparty string) []PostRule {
	rules := r.postRules[counterparty]
	out := make([]PostRule, 0, len(rules))
	for _, rule := range rules {
		out = append(out, rule.PostRule)
	}
	return out
}

// rulesFor merges the rules of several counterparties by (priority, registration order).
func (r *Registry) rulesFor(counterparties []string) []orderedRule {
	var out []orderedRule
	seen := make(map[string]struct{}, len(counterparties))
	for _, cpt := range counterparties {
		if _, ok := seen[cpt]; ok {
			continue
		}
		seen[cpt] = struct{}{}
		out = append(out, r.postRules[cpt]...)
	}
	sortRules(out)
	return out
}

// CounterpartyForAddress returns the counterparty bound to a contract address.
func (r *Registry) CounterpartyForAddress(address common.Address) (string, bool) {
	cpt, ok := r.addressCounterparties[address]
	return cpt, ok
}

// Counterparties returns the identity catalog sorted by identifier.
func (r *Registry) Counterparties() []model.CounterpartyDetails {
	out := make([]model.CounterpartyDetails, 0, len(r.counterparties))
	for _, cpt := range r.counterparties {
		out = append(out, cpt)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Identifier < out[j].Identifier
	})
	return out
}

// Products returns the products declared for a counterparty.
func (r *Registry) Products(counterparty string) []model.Product {
	return r.products[counterparty]
}

// Protocols lists registered protocol names in registration order.
func (r *Registry) Protocols() []string {
	out := make([]string, len(r.protocols))
	copy(out, r.protocols)
	return out
}
