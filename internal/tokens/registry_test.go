package tokens

import (
	"bytes"
	"context"
	"errors"
	"math/big"
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"historyScope/internal/model"
)

var (
	usdc = common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")
	mkr  = common.HexToAddress("0x9f8F72aA9304c8B593d555F12eF6589cC3A579A2")
)

type mockCaller struct {
	responses map[common.Address]map[string][]byte
	calls     int
}

func (m *mockCaller) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	m.calls++
	byMethod, ok := m.responses[*msg.To]
	if !ok {
		return nil, errors.New("execution reverted")
	}
	parsed, err := erc20ABIStringInstance()
	if err != nil {
		return nil, err
	}
	for name, method := range parsed.Methods {
		if bytes.Equal(msg.Data[:4], method.ID) {
			if resp, ok := byMethod[name]; ok {
				return resp, nil
			}
		}
	}
	return nil, errors.New("execution reverted")
}

func packOutput(t *testing.T, method string, value interface{}) []byte {
	t.Helper()
	parsed, err := erc20ABIStringInstance()
	require.NoError(t, err)
	out, err := parsed.Methods[method].Outputs.Pack(value)
	require.NoError(t, err)
	return out
}

func packBytes32(t *testing.T, method string, value string) []byte {
	t.Helper()
	parsed, err := erc20ABIBytes32Instance()
	require.NoError(t, err)
	var word [32]byte
	copy(word[:], value)
	out, err := parsed.Methods[method].Outputs.Pack(word)
	require.NoError(t, err)
	return out
}

func newMockCaller(t *testing.T) *mockCaller {
	return &mockCaller{responses: map[common.Address]map[string][]byte{
		usdc: {
			"decimals": packOutput(t, "decimals", uint8(6)),
			"symbol":   packOutput(t, "symbol", "USDC"),
			"name":     packOutput(t, "name", "USD Coin"),
		},
		mkr: {
			"decimals": packOutput(t, "decimals", uint8(18)),
			"symbol":   packBytes32(t, "symbol", "MKR"),
			"name":     packBytes32(t, "name", "Maker"),
		},
	}}
}

type memoryStore struct {
	tokens map[string]model.Token
	writes int
}

func (s *memoryStore) GetToken(_ context.Context, chainID uint64, address common.Address) (model.Token, bool, error) {
	token, ok := s.tokens[cacheKey(chainID, address)]
	return token, ok, nil
}

func (s *memoryStore) UpsertToken(_ context.Context, token model.Token) error {
	s.writes++
	s.tokens[cacheKey(token.ChainID, token.Address)] = token
	return nil
}

func TestChainSourceFetchToken(t *testing.T) {
	source := NewChainSource(newMockCaller(t), nil)

	token, err := source.FetchToken(context.Background(), 1, usdc)
	require.NoError(t, err)
	assert.Equal(t, uint8(6), token.Decimals)
	assert.Equal(t, "USDC", token.Symbol)
	assert.Equal(t, "USD Coin", token.Name)
	assert.Equal(t, model.EvmTokenIdentifier(1, usdc), token.Identifier)

	token, err = source.FetchToken(context.Background(), 1, mkr)
	require.NoError(t, err)
	assert.Equal(t, "MKR", token.Symbol)
	assert.Equal(t, "Maker", token.Name)

	_, err = source.FetchToken(context.Background(), 1, common.HexToAddress("0x01"))
	assert.Error(t, err)
}

func TestRegistryLookupOrder(t *testing.T) {
	caller := newMockCaller(t)
	store := &memoryStore{tokens: map[string]model.Token{}}
	stored := model.NewToken(1, mkr, 18, "MKR", "Maker")
	store.tokens[cacheKey(1, mkr)] = stored

	registry, err := NewRegistry(16, store, NewChainSource(caller, nil), nil)
	require.NoError(t, err)

	token, err := registry.GetOrCreateToken(context.Background(), 1, mkr)
	require.NoError(t, err)
	assert.Equal(t, stored, token)
	assert.Zero(t, caller.calls, "stored tokens must not hit the chain")

	token, err = registry.GetOrCreateToken(context.Background(), 1, usdc)
	require.NoError(t, err)
	assert.Equal(t, "USDC", token.Symbol)
	assert.Equal(t, 1, store.writes)

	calls := caller.calls
	_, err = registry.GetOrCreateToken(context.Background(), 1, usdc)
	require.NoError(t, err)
	assert.Equal(t, calls, caller.calls, "second lookup must be served from cache")
}

func TestRegistryWithoutSource(t *testing.T) {
	registry, err := NewRegistry(0, nil, nil, nil)
	require.NoError(t, err)
	registry.Seed(model.Token{ChainID: 1, Address: usdc, Decimals: 6, Symbol: "USDC"})

	token, err := registry.GetOrCreateToken(context.Background(), 1, usdc)
	require.NoError(t, err)
	assert.Equal(t, model.EvmTokenIdentifier(1, usdc), token.Identifier)

	_, err = registry.GetOrCreateToken(context.Background(), 10, usdc)
	assert.True(t, errors.Is(err, ErrTokenNotFound))
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokens.json")
	content := `[{"chain_id": 1, "address": "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48", "decimals": 6, "symbol": "USDC", "name": "USD Coin"}]`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	tokens, err := LoadFile(path)
	require.NoError(t, err)
	require.Len(t, tokens, 1)
	assert.Equal(t, usdc, tokens[0].Address)
	assert.Equal(t, model.EvmTokenIdentifier(1, usdc), tokens[0].Identifier)
}
