package uniswapv3

import (
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

const poolABIJSON = `[
  {"type":"event","name":"Swap","anonymous":false,"inputs":[
    {"name":"sender","type":"address","indexed":true},
    {"name":"recipient","type":"address","indexed":true},
    {"name":"amount0","type":"int256","indexed":false},
    {"name":"amount1","type":"int256","indexed":false},
    {"name":"sqrtPriceX96","type":"uint160","indexed":false},
    {"name":"liquidity","type":"uint128","indexed":false},
    {"name":"tick","type":"int24","indexed":false}
  ]},
  {"type":"event","name":"Mint","anonymous":false,"inputs":[
    {"name":"sender","type":"address","indexed":false},
    {"name":"owner","type":"address","indexed":true},
    {"name":"tickLower","type":"int24","indexed":true},
    {"name":"tickUpper","type":"int24","indexed":true},
    {"name":"amount","type":"uint128","indexed":false},
    {"name":"amount0","type":"uint256","indexed":false},
    {"name":"amount1","type":"uint256","indexed":false}
  ]},
  {"type":"event","name":"Collect","anonymous":false,"inputs":[
    {"name":"owner","type":"address","indexed":true},
    {"name":"recipient","type":"address","indexed":false},
    {"name":"tickLower","type":"int24","indexed":true},
    {"name":"tickUpper","type":"int24","indexed":true},
    {"name":"amount0","type":"uint128","indexed":false},
    {"name":"amount1","type":"uint128","indexed":false}
  ]}
]`

var (
	poolABI     abi.ABI
	poolABIOnce sync.Once
	poolABIErr  error
)

// PoolABI returns the parsed pool event ABI.
func PoolABI() (abi.ABI, error) {
	poolABIOnce.Do(func() {
		poolABI, poolABIErr = abi.JSON(strings.NewReader(poolABIJSON))
	})
	return poolABI, poolABIErr
}
