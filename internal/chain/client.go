package chain

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"

	"historyScope/internal/model"
)

// Client wraps go-ethereum RPC and provides helper methods.
type Client struct {
	rpcClient *rpc.Client
	ethClient *ethclient.Client

	mu      sync.RWMutex
	tsCache map[uint64]uint64
	chainID *big.Int
}

// NewClient creates a new chain client from the RPC URL.
func NewClient(ctx context.Context, rpcURL string) (*Client, error) {
	rpcClient, err := rpc.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, err
	}

	return &Client{
		rpcClient: rpcClient,
		ethClient: ethclient.NewClient(rpcClient),
		tsCache:   make(map[uint64]uint64),
	}, nil
}

// Close closes the underlying RPC client.
func (c *Client) Close() {
	if c.rpcClient != nil {
		c.rpcClient.Close()
	}
}

// GetChainID returns the chain ID, asking the node only once.
func (c *Client) GetChainID(ctx context.Context) (*big.Int, error) {
	c.mu.RLock()
	id := c.chainID
	c.mu.RUnlock()
	if id != nil {
		return new(big.Int).Set(id), nil
	}

	id, err := c.ethClient.ChainID(ctx)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.chainID = id
	c.mu.Unlock()
	return new(big.Int).Set(id), nil
}

// HeaderByNumber returns the block header by number.
func (c *Client) HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error) {
	return c.ethClient.HeaderByNumber(ctx, number)
}

// BlockTimestamp returns the block timestamp, using an in-memory cache.
func (c *Client) BlockTimestamp(ctx context.Context, number uint64) (uint64, error) {
	c.mu.RLock()
	ts, ok := c.tsCache[number]
	c.mu.RUnlock()
	if ok {
		return ts, nil
	}

	header, err := c.HeaderByNumber(ctx, new(big.Int).SetUint64(number))
	if err != nil {
		return 0, err
	}

	ts = header.Time
	c.mu.Lock()
	c.tsCache[number] = ts
	c.mu.Unlock()

	return ts, nil
}

// CallContract performs an eth_call for a contract method.
func (c *Client) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	return c.ethClient.CallContract(ctx, msg, blockNumber)
}

// FetchTransaction loads a mined transaction and its receipt logs.
func (c *Client) FetchTransaction(ctx context.Context, hash common.Hash) (model.Transaction, []model.TxLog, error) {
	chainID, err := c.GetChainID(ctx)
	if err != nil {
		return model.Transaction{}, nil, fmt.Errorf("chain id: %w", err)
	}
	tx, pending, err := c.ethClient.TransactionByHash(ctx, hash)
	if err != nil {
		return model.Transaction{}, nil, fmt.Errorf("transaction %s: %w", hash.Hex(), err)
	}
	if pending {
		return model.Transaction{}, nil, fmt.Errorf("transaction %s is pending", hash.Hex())
	}
	receipt, err := c.ethClient.TransactionReceipt(ctx, hash)
	if err != nil {
		return model.Transaction{}, nil, fmt.Errorf("receipt %s: %w", hash.Hex(), err)
	}
	from, err := types.Sender(types.LatestSignerForChainID(chainID), tx)
	if err != nil {
		return model.Transaction{}, nil, fmt.Errorf("sender %s: %w", hash.Hex(), err)
	}
	blockNumber := receipt.BlockNumber.Uint64()
	ts, err := c.BlockTimestamp(ctx, blockNumber)
	if err != nil {
		return model.Transaction{}, nil, fmt.Errorf("block %d timestamp: %w", blockNumber, err)
	}

	gasPrice := receipt.EffectiveGasPrice
	if gasPrice == nil {
		gasPrice = tx.GasPrice()
	}
	out := model.Transaction{
		Hash:        hash,
		ChainID:     chainID.Uint64(),
		BlockNumber: blockNumber,
		Timestamp:   ts,
		From:        from,
		To:          tx.To(),
		Value:       tx.Value(),
		Input:       tx.Data(),
		GasUsed:     receipt.GasUsed,
		GasPrice:    gasPrice,
	}
	return out, ConvertLogs(receipt.Logs), nil
}

// ConvertLogs maps receipt logs onto decoder logs.
func ConvertLogs(logs []*types.Log) []model.TxLog {
	out := make([]model.TxLog, 0, len(logs))
	for _, l := range logs {
		if l == nil || l.Removed {
			continue
		}
		topics := make([]common.Hash, len(l.Topics))
		copy(topics, l.Topics)
		out = append(out, model.TxLog{
			Address:  l.Address,
			Topics:   topics,
			Data:     append([]byte(nil), l.Data...),
			LogIndex: uint64(l.Index),
		})
	}
	return out
}
