// Package tokens resolves ERC20 metadata for the decoders, looking in an LRU
// cache, then a persistent store, then the chain itself.
package tokens

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/common"
	lru "github.com/hashicorp/golang-lru"
	"go.uber.org/zap"

	"historyScope/internal/model"
)

var ErrTokenNotFound = errors.New("token not found")

// Store persists token metadata.
type Store interface {
	GetToken(ctx context.Context, chainID uint64, address common.Address) (model.Token, bool, error)
	UpsertToken(ctx context.Context, token model.Token) error
}

// MetadataSource fetches metadata for tokens never seen before.
type MetadataSource interface {
	FetchToken(ctx context.Context, chainID uint64, address common.Address) (model.Token, error)
}

// Registry implements get-or-create token lookups. Store and source are optional.
type Registry struct {
	cache  *lru.Cache
	store  Store
	source MetadataSource
	logger *zap.Logger
}

func NewRegistry(cacheSize int, store Store, source MetadataSource, logger *zap.Logger) (*Registry, error) {
	if cacheSize <= 0 {
		cacheSize = 4096
	}
	cache, err := lru.New(cacheSize)
	if err != nil {
		return nil, fmt.Errorf("create token cache: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{cache: cache, store: store, source: source, logger: logger}, nil
}

func cacheKey(chainID uint64, address common.Address) string {
	return fmt.Sprintf("%d:%s", chainID, address.Hex())
}

// Seed preloads tokens into the cache.
func (r *Registry) Seed(tokens ...model.Token) {
	for _, token := range tokens {
		if token.Identifier == "" {
			token.Identifier = model.EvmTokenIdentifier(token.ChainID, token.Address)
		}
		r.cache.Add(cacheKey(token.ChainID, token.Address), token)
	}
}

// GetOrCreateToken returns the token at address, fetching and storing it when unknown.
func (r *Registry) GetOrCreateToken(ctx context.Context, chainID uint64, address common.Address) (model.Token, error) {
	key := cacheKey(chainID, address)
	if cached, ok := r.cache.Get(key); ok {
		return cached.(model.Token), nil
	}

	if r.store != nil {
		token, ok, err := r.store.GetToken(ctx, chainID, address)
		if err != nil {
			return model.Token{}, fmt.Errorf("load token: %w", err)
		}
		if ok {
			r.cache.Add(key, token)
			return token, nil
		}
	}

	if r.source == nil {
		return model.Token{}, fmt.Errorf("%w: %s on chain %d", ErrTokenNotFound, address.Hex(), chainID)
	}
	token, err := r.source.FetchToken(ctx, chainID, address)
	if err != nil {
		return model.Token{}, fmt.Errorf("fetch token: %w", err)
	}
	if r.store != nil {
		if err := r.store.UpsertToken(ctx, token); err != nil {
			r.logger.Warn("token store write failed", zap.String("token", address.Hex()), zap.Error(err))
		}
	}
	r.cache.Add(key, token)
	return token, nil
}

// LoadFile reads a JSON array of tokens.
func LoadFile(path string) ([]model.Token, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read tokens file: %w", err)
	}
	var tokens []model.Token
	if err := json.Unmarshal(raw, &tokens); err != nil {
		return nil, fmt.Errorf("parse tokens file: %w", err)
	}
	for i := range tokens {
		if tokens[i].Identifier == "" {
			tokens[i].Identifier = model.EvmTokenIdentifier(tokens[i].ChainID, tokens[i].Address)
		}
	}
	return tokens, nil
}
