package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"historyScope/internal/chain"
	"historyScope/internal/config"
	"historyScope/internal/decoding"
	"historyScope/internal/ingest"
	"historyScope/internal/model"
	"historyScope/internal/protocols"
	"historyScope/internal/storage"
	"historyScope/internal/storage/postgres"
	"historyScope/internal/tokens"
)

// resources owns every connection a command opens.
type resources struct {
	chain *chain.Client
	store *postgres.Store
}

func (r *resources) Close() {
	if r.chain != nil {
		r.chain.Close()
	}
	if r.store != nil {
		r.store.Close()
	}
}

func openResources(ctx context.Context, cfg config.TokenConfig, requireRPC bool) (*resources, error) {
	res := &resources{}
	if cfg.RPCURL == "" && requireRPC {
		return nil, fmt.Errorf("rpc url is required")
	}
	if cfg.RPCURL != "" {
		client, err := chain.NewClient(ctx, cfg.RPCURL)
		if err != nil {
			return nil, fmt.Errorf("connect rpc: %w", err)
		}
		res.chain = client
	}
	if cfg.PGDSN != "" {
		store, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			res.Close()
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		if err := store.EnsureSchema(ctx); err != nil {
			store.Close()
			res.Close()
			return nil, err
		}
		res.store = store
	}
	return res, nil
}

func buildTokenRegistry(cfg config.TokenConfig, res *resources, logger *zap.Logger) (*tokens.Registry, error) {
	var (
		store  tokens.Store
		source tokens.MetadataSource
	)
	if res.store != nil {
		store = res.store
	}
	if res.chain != nil {
		source = tokens.NewChainSource(res.chain, logger)
	}

	registry, err := tokens.NewRegistry(cfg.CacheSize, store, source, logger)
	if err != nil {
		return nil, err
	}
	if cfg.TokensFile != "" {
		known, err := tokens.LoadFile(cfg.TokensFile)
		if err != nil {
			return nil, err
		}
		registry.Seed(known...)
		logger.Info("tokens seeded", zap.Int("count", len(known)), zap.String("path", cfg.TokensFile))
	}
	return registry, nil
}

func buildPipeline(chainID uint64, tracked []string, resolver decoding.TokenResolver, logger *zap.Logger) (*decoding.Pipeline, error) {
	accounts, err := ingest.ParseAddresses(tracked)
	if err != nil {
		return nil, err
	}
	if len(accounts) == 0 {
		return nil, fmt.Errorf("at least one tracked address is required")
	}

	registry, err := protocols.BuildRegistry(chainID)
	if err != nil {
		return nil, err
	}
	tools := decoding.NewTools(chainID, model.ChainLocation(chainID), resolver, accounts)
	logger.Info("decoder registry ready",
		zap.Uint64("chain_id", chainID),
		zap.Strings("protocols", registry.Protocols()),
		zap.Int("tracked", len(accounts)),
	)
	return decoding.NewPipeline(registry, tools, logger)
}

// buildSink returns the configured sink and a function releasing it. The
// postgres sink shares the store owned by res.
func buildSink(kind, out string, res *resources) (storage.Storage, func(), error) {
	switch kind {
	case "", "jsonl":
		if out == "" {
			return nil, nil, fmt.Errorf("output path is required")
		}
		sink, err := storage.NewJsonlStorage(out)
		if err != nil {
			return nil, nil, err
		}
		return sink, func() { _ = sink.Close() }, nil
	case "postgres":
		if res.store == nil {
			return nil, nil, fmt.Errorf("postgres sink requires --pg-dsn")
		}
		return res.store, func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown sink %q", kind)
	}
}
