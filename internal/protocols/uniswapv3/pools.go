package uniswapv3

import "github.com/ethereum/go-ethereum/common"

// Pool is the static metadata of a pool.
type Pool struct {
	Address common.Address
	Token0  common.Address
	Token1  common.Address
	Fee     uint32
}

type deployment struct {
	wrappedNative common.Address
	pools         []Pool
}

var deployments = map[uint64]deployment{
	1: {
		wrappedNative: common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"),
		pools: []Pool{
			{
				Address: common.HexToAddress("0x88e6A0c2dDD26FEEb64F039a2c41296FcB3f5640"),
				Token0:  common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"),
				Token1:  common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"),
				Fee:     500,
			},
			{
				Address: common.HexToAddress("0x4e68Ccd3E89f51C3074ca5072bbAC773960dFa36"),
				Token0:  common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"),
				Token1:  common.HexToAddress("0xdAC17F958D2ee523a2206206994597C13D831ec7"),
				Fee:     3000,
			},
		},
	},
	10: {
		wrappedNative: common.HexToAddress("0x4200000000000000000000000000000000000006"),
		pools: []Pool{{
			Address: common.HexToAddress("0x85149247691df622eaF1a8Bd0CaFd40BC45154a9"),
			Token0:  common.HexToAddress("0x4200000000000000000000000000000000000006"),
			Token1:  common.HexToAddress("0x7F5c764cBc14f9669B88837ca1490cCa17c31607"),
			Fee:     500,
		}},
	},
	42161: {
		wrappedNative: common.HexToAddress("0x82aF49447D8a07e3bd95BD0d56f35241523fBab1"),
		pools: []Pool{{
			Address: common.HexToAddress("0xC6962004f452bE9203591991D15f6b388e09E8D0"),
			Token0:  common.HexToAddress("0x82aF49447D8a07e3bd95BD0d56f35241523fBab1"),
			Token1:  common.HexToAddress("0xaf88d065e77c8cC2239327C5EDb3A432268e5831"),
			Fee:     500,
		}},
	},
}

// Pools returns the known pools of a chain.
func Pools(chainID uint64) []Pool {
	return deployments[chainID].pools
}
