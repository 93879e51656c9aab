package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"historyScope/internal/config"
	"historyScope/internal/ingest"
)

func runFetch(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadFetch(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	hashes, err := ingest.ParseHashes(cfg.Hashes)
	if err != nil {
		return err
	}
	if len(hashes) == 0 {
		return fmt.Errorf("at least one transaction hash is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, err := openResources(ctx, cfg.Tokens, true)
	if err != nil {
		return err
	}
	defer res.Close()

	chainID, err := res.chain.GetChainID(ctx)
	if err != nil {
		return fmt.Errorf("get chain id: %w", err)
	}
	if !chainID.IsUint64() {
		return fmt.Errorf("chain id does not fit in uint64: %s", chainID)
	}

	resolver, err := buildTokenRegistry(cfg.Tokens, res, logger)
	if err != nil {
		return err
	}
	pipeline, err := buildPipeline(chainID.Uint64(), cfg.Tracked, resolver, logger)
	if err != nil {
		return err
	}
	sink, closeSink, err := buildSink(cfg.Sink, cfg.Out, res)
	if err != nil {
		return err
	}
	defer closeSink()

	stopStatus := startStatusServer(cfg.MetricsAddr, logger)
	defer stopStatus()

	runner := ingest.NewRunner(ingest.RunConfig{
		Hashes:       hashes,
		BatchSize:    cfg.BatchSize,
		MaxRetries:   cfg.MaxRetries,
		RetryBackoff: cfg.RetryBackoff,
	}, res.chain, pipeline, sink, logger)

	logger.Info("fetch start",
		zap.Uint64("chain_id", chainID.Uint64()),
		zap.Int("transactions", len(hashes)),
		zap.String("sink", cfg.Sink),
		zap.Int("max_retries", cfg.MaxRetries),
		zap.Duration("retry_backoff", cfg.RetryBackoff),
	)

	stats, err := runner.Run(ctx)
	if err != nil {
		return err
	}

	logger.Info("fetch complete",
		zap.Int("total", stats.Total),
		zap.Int("decoded", stats.Decoded),
		zap.Int("failed", stats.Failed),
		zap.Int("events", stats.Events),
	)
	return nil
}
