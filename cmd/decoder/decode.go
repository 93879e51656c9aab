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
	"historyScope/internal/model"
	"historyScope/internal/storage"
)

func runDecode(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadDecode(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.In == "" {
		return fmt.Errorf("input path is required")
	}
	if cfg.Errors == "" {
		return fmt.Errorf("errors path is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, err := openResources(ctx, cfg.Tokens, false)
	if err != nil {
		return err
	}
	defer res.Close()

	resolver, err := buildTokenRegistry(cfg.Tokens, res, logger)
	if err != nil {
		return err
	}
	pipeline, err := buildPipeline(cfg.ChainID, cfg.Tracked, resolver, logger)
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

	input, err := os.Open(cfg.In)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer input.Close()

	errLog, err := storage.NewErrorLog(cfg.Errors)
	if err != nil {
		return err
	}
	defer errLog.Close()

	runner := ingest.NewRunner(ingest.RunConfig{
		BatchSize: 100,
		OnError: func(record model.DecodeError) {
			if err := errLog.Record(record); err != nil {
				logger.Warn("write decode error", zap.Error(err))
			}
		},
	}, nil, pipeline, sink, logger)

	logger.Info("decode start",
		zap.String("in", cfg.In),
		zap.String("sink", cfg.Sink),
		zap.String("out", cfg.Out),
		zap.String("errors", cfg.Errors),
		zap.Uint64("chain_id", cfg.ChainID),
	)

	err = ingest.ScanRecords(ctx, input, func(record model.TransactionRecord, err error) error {
		if err != nil {
			runner.Fail(model.DecodeError{ChainID: cfg.ChainID, Error: err.Error()})
			return nil
		}
		if record.ChainID == 0 {
			record.ChainID = cfg.ChainID
		}
		if record.ChainID != cfg.ChainID {
			runner.Fail(decodeErrorFromRecord(record, fmt.Errorf("chain id %d does not match %d", record.ChainID, cfg.ChainID)))
			return nil
		}
		tx, logs, err := ingest.ParseTransactionRecord(record)
		if err != nil {
			runner.Fail(decodeErrorFromRecord(record, err))
			return nil
		}
		return runner.Process(ctx, tx, logs)
	})
	if err != nil {
		return err
	}
	if err := runner.Flush(ctx); err != nil {
		return err
	}

	stats := runner.Stats()
	logger.Info("decode complete",
		zap.Int("total", stats.Total),
		zap.Int("decoded", stats.Decoded),
		zap.Int("failed", stats.Failed),
		zap.Int("events", stats.Events),
	)

	return nil
}

func decodeErrorFromRecord(record model.TransactionRecord, err error) model.DecodeError {
	return model.DecodeError{
		ChainID: record.ChainID,
		TxHash:  record.Hash,
		Error:   err.Error(),
	}
}
