package model

import "fmt"

type chainInfo struct {
	location string
	label    string
}

var chains = map[uint64]chainInfo{
	1:     {location: "ethereum", label: "Ethereum"},
	10:    {location: "optimism", label: "Optimism"},
	56:    {location: "binance_sc", label: "Binance Smart Chain"},
	100:   {location: "gnosis", label: "Gnosis"},
	137:   {location: "polygon_pos", label: "Polygon PoS"},
	8453:  {location: "base", label: "Base"},
	42161: {location: "arbitrum_one", label: "Arbitrum One"},
}

// ChainLocation returns the location name events of a chain are recorded under.
func ChainLocation(chainID uint64) string {
	if info, ok := chains[chainID]; ok {
		return info.location
	}
	return fmt.Sprintf("evm_%d", chainID)
}

// ChainLabel returns a human readable chain name.
func ChainLabel(chainID uint64) (string, bool) {
	info, ok := chains[chainID]
	return info.label, ok
}
