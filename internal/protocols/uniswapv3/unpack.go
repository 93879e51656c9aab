package uniswapv3

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"historyScope/internal/model"
)

type swapData struct {
	Sender    common.Address
	Recipient common.Address
	Amount0   *big.Int
	Amount1   *big.Int
	Tick      int32
}

type mintData struct {
	Owner     common.Address
	TickLower int32
	TickUpper int32
	Amount0   *big.Int
	Amount1   *big.Int
}

type collectData struct {
	Owner     common.Address
	Recipient common.Address
	Amount0   *big.Int
	Amount1   *big.Int
}

func decodeSwapLog(event abi.Event, log model.TxLog) (swapData, error) {
	indexedTopics, err := parseIndexedTopics(event, log.Topics)
	if err != nil {
		return swapData{}, err
	}
	var indexed struct {
		Sender    common.Address
		Recipient common.Address
	}
	if err := abi.ParseTopics(&indexed, indexedArguments(event.Inputs), indexedTopics); err != nil {
		return swapData{}, fmt.Errorf("parse topics: %w", err)
	}

	values, err := unpackNonIndexed(event, log.Data)
	if err != nil {
		return swapData{}, err
	}
	if len(values) != 5 {
		return swapData{}, fmt.Errorf("unexpected swap values: %d", len(values))
	}
	amount0, err := asBigInt(values[0])
	if err != nil {
		return swapData{}, err
	}
	amount1, err := asBigInt(values[1])
	if err != nil {
		return swapData{}, err
	}
	tickInt, err := asBigInt(values[4])
	if err != nil {
		return swapData{}, err
	}
	tick, err := int24FromBig(tickInt)
	if err != nil {
		return swapData{}, err
	}

	return swapData{
		Sender:    indexed.Sender,
		Recipient: indexed.Recipient,
		Amount0:   amount0,
		Amount1:   amount1,
		Tick:      tick,
	}, nil
}

func decodeMintLog(event abi.Event, log model.TxLog) (mintData, error) {
	indexedTopics, err := parseIndexedTopics(event, log.Topics)
	if err != nil {
		return mintData{}, err
	}
	var indexed struct {
		Owner     common.Address
		TickLower *big.Int
		TickUpper *big.Int
	}
	if err := abi.ParseTopics(&indexed, indexedArguments(event.Inputs), indexedTopics); err != nil {
		return mintData{}, fmt.Errorf("parse topics: %w", err)
	}

	values, err := unpackNonIndexed(event, log.Data)
	if err != nil {
		return mintData{}, err
	}
	if len(values) != 4 {
		return mintData{}, fmt.Errorf("unexpected mint values: %d", len(values))
	}
	amount0, err := asBigInt(values[2])
	if err != nil {
		return mintData{}, err
	}
	amount1, err := asBigInt(values[3])
	if err != nil {
		return mintData{}, err
	}
	tickLower, err := int24FromBig(indexed.TickLower)
	if err != nil {
		return mintData{}, err
	}
	tickUpper, err := int24FromBig(indexed.TickUpper)
	if err != nil {
		return mintData{}, err
	}

	return mintData{
		Owner:     indexed.Owner,
		TickLower: tickLower,
		TickUpper: tickUpper,
		Amount0:   amount0,
		Amount1:   amount1,
	}, nil
}

func decodeCollectLog(event abi.Event, log model.TxLog) (collectData, error) {
	indexedTopics, err := parseIndexedTopics(event, log.Topics)
	if err != nil {
		return collectData{}, err
	}
	var indexed struct {
		Owner     common.Address
		TickLower *big.Int
		TickUpper *big.Int
	}
	if err := abi.ParseTopics(&indexed, indexedArguments(event.Inputs), indexedTopics); err != nil {
		return collectData{}, fmt.Errorf("parse topics: %w", err)
	}

	values, err := unpackNonIndexed(event, log.Data)
	if err != nil {
		return collectData{}, err
	}
	if len(values) != 3 {
		return collectData{}, fmt.Errorf("unexpected collect values: %d", len(values))
	}
	recipient, err := asAddress(values[0])
	if err != nil {
		return collectData{}, err
	}
	amount0, err := asBigInt(values[1])
	if err != nil {
		return collectData{}, err
	}
	amount1, err := asBigInt(values[2])
	if err != nil {
		return collectData{}, err
	}

	return collectData{
		Owner:     indexed.Owner,
		Recipient: recipient,
		Amount0:   amount0,
		Amount1:   amount1,
	}, nil
}

func parseIndexedTopics(event abi.Event, topics []common.Hash) ([]common.Hash, error) {
	indexedCount := len(indexedArguments(event.Inputs))
	if len(topics) != indexedCount+1 {
		return nil, fmt.Errorf("expected %d topics, got %d", indexedCount+1, len(topics))
	}
	return topics[1:], nil
}

func indexedArguments(args abi.Arguments) abi.Arguments {
	indexed := make(abi.Arguments, 0, len(args))
	for _, arg := range args {
		if arg.Indexed {
			indexed = append(indexed, arg)
		}
	}
	return indexed
}

func unpackNonIndexed(event abi.Event, data []byte) ([]interface{}, error) {
	values, err := event.Inputs.NonIndexed().Unpack(data)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", event.Name, err)
	}
	return values, nil
}

func asAddress(value interface{}) (common.Address, error) {
	switch v := value.(type) {
	case common.Address:
		return v, nil
	case *common.Address:
		return *v, nil
	default:
		return common.Address{}, fmt.Errorf("unsupported address type %T", value)
	}
}

func asBigInt(value interface{}) (*big.Int, error) {
	switch v := value.(type) {
	case *big.Int:
		return new(big.Int).Set(v), nil
	case big.Int:
		return new(big.Int).Set(&v), nil
	case uint64:
		return new(big.Int).SetUint64(v), nil
	case int64:
		return big.NewInt(v), nil
	default:
		return nil, fmt.Errorf("unsupported int type %T", value)
	}
}

func int24FromBig(value *big.Int) (int32, error) {
	if value == nil {
		return 0, fmt.Errorf("missing int24")
	}
	min := big.NewInt(-1 << 23)
	max := big.NewInt((1 << 23) - 1)
	if value.Cmp(min) < 0 || value.Cmp(max) > 0 {
		return 0, fmt.Errorf("int24 overflow: %s", value.String())
	}
	return int32(value.Int64()), nil
}
