// Package protocols lists the protocol decoders available on each chain.
package protocols

import (
	"fmt"
	"sort"

	"historyScope/internal/decoding"
	"historyScope/internal/protocols/airdrops"
	"historyScope/internal/protocols/hop"
	"historyScope/internal/protocols/paladin"
	"historyScope/internal/protocols/rainbow"
	"historyScope/internal/protocols/uniswapv3"
)

// constructors is ordered; registration follows this order on every run.
var constructors = map[uint64][]decoding.Constructor{
	1:     {airdrops.New, paladin.New, rainbow.New, uniswapv3.New},
	10:    {hop.New, rainbow.New, uniswapv3.New},
	42161: {airdrops.New, hop.New, rainbow.New, uniswapv3.New},
}

// ForChain returns the protocol constructors of a chain.
func ForChain(chainID uint64) []decoding.Constructor {
	return constructors[chainID]
}

// Chains returns every chain with at least one protocol decoder.
func Chains() []uint64 {
	ids := make([]uint64, 0, len(constructors))
	for id := range constructors {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// BuildRegistry registers every protocol of a chain and freezes the registry.
func BuildRegistry(chainID uint64) (*decoding.Registry, error) {
	registry := decoding.NewRegistry(chainID)
	for _, build := range ForChain(chainID) {
		p := build(chainID)
		if err := registry.Register(p); err != nil {
			return nil, fmt.Errorf("chain %d: %w", chainID, err)
		}
	}
	registry.Freeze()
	return registry, nil
}
