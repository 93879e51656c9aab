package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"historyScope/internal/model"
	"historyScope/internal/storage"
)

// Fetcher loads a transaction and its receipt logs from a node.
type Fetcher interface {
	FetchTransaction(ctx context.Context, hash common.Hash) (model.Transaction, []model.TxLog, error)
}

// Decoder turns one transaction into history events.
type Decoder interface {
	Decode(ctx context.Context, tx model.Transaction, logs []model.TxLog) ([]model.HistoryEvent, []model.TxLog)
}

// RunConfig holds runtime settings for the runner.
type RunConfig struct {
	Hashes       []common.Hash
	BatchSize    int
	MaxRetries   int
	RetryBackoff time.Duration
	// OnError receives every transaction that could not be processed.
	OnError func(model.DecodeError)
}

// Stats counts what a run did.
type Stats struct {
	Total   int
	Decoded int
	Failed  int
	Events  int
}

// Runner decodes transactions and writes them to storage in batches.
type Runner struct {
	cfg     RunConfig
	fetcher Fetcher
	decoder Decoder
	storage storage.Storage
	logger  *zap.Logger
	seen    map[common.Hash]struct{}
	pending []model.DecodedTransaction
	stats   Stats
}

// NewRunner builds a Runner with its dependencies. The fetcher is only needed by Run.
func NewRunner(cfg RunConfig, fetcher Fetcher, decoder Decoder, storageSink storage.Storage, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 1
	}
	return &Runner{
		cfg:     cfg,
		fetcher: fetcher,
		decoder: decoder,
		storage: storageSink,
		logger:  logger,
		seen:    make(map[common.Hash]struct{}),
	}
}

// Run fetches every configured transaction, decodes and stores it.
func (r *Runner) Run(ctx context.Context) (Stats, error) {
	if r.fetcher == nil {
		return r.stats, fmt.Errorf("fetcher is nil")
	}

	for _, hash := range r.cfg.Hashes {
		select {
		case <-ctx.Done():
			return r.stats, ctx.Err()
		default:
		}

		var (
			tx   model.Transaction
			logs []model.TxLog
		)
		err := withRetry(ctx, r.cfg.MaxRetries, r.cfg.RetryBackoff, func(ctx context.Context) error {
			var err error
			tx, logs, err = r.fetcher.FetchTransaction(ctx, hash)
			if err != nil {
				r.logger.Warn("fetch transaction failed", zap.Error(err), zap.String("tx_hash", hash.Hex()))
			}
			return err
		})
		if err != nil {
			if ctx.Err() != nil {
				return r.stats, ctx.Err()
			}
			r.Fail(model.DecodeError{TxHash: hash.Hex(), Error: err.Error()})
			continue
		}

		if err := r.Process(ctx, tx, logs); err != nil {
			return r.stats, err
		}
	}

	if err := r.Flush(ctx); err != nil {
		return r.stats, err
	}
	return r.stats, nil
}

// Process decodes one transaction and queues it for storage.
func (r *Runner) Process(ctx context.Context, tx model.Transaction, logs []model.TxLog) error {
	if r.decoder == nil {
		return fmt.Errorf("decoder is nil")
	}
	if r.storage == nil {
		return fmt.Errorf("storage is nil")
	}
	r.stats.Total++
	if _, ok := r.seen[tx.Hash]; ok {
		r.logger.Debug("skip duplicate transaction", zap.String("tx_hash", tx.Hash.Hex()))
		return nil
	}
	r.seen[tx.Hash] = struct{}{}

	events, raw := r.decoder.Decode(ctx, tx, logs)
	r.pending = append(r.pending, buildDecodedTransaction(tx, events, raw))
	r.stats.Decoded++
	r.stats.Events += len(events)

	if len(r.pending) >= r.cfg.BatchSize {
		return r.Flush(ctx)
	}
	return nil
}

// Fail records a transaction that could not be decoded.
func (r *Runner) Fail(record model.DecodeError) {
	r.stats.Total++
	r.stats.Failed++
	r.logger.Warn("transaction skipped", zap.String("tx_hash", record.TxHash), zap.String("error", record.Error))
	if r.cfg.OnError != nil {
		r.cfg.OnError(record)
	}
}

// Flush writes queued transactions to storage.
func (r *Runner) Flush(ctx context.Context) error {
	if len(r.pending) == 0 {
		return nil
	}
	if err := r.storage.PutDecodedBatch(ctx, r.pending); err != nil {
		return fmt.Errorf("store decoded batch: %w", err)
	}
	r.logger.Info("batch complete", zap.Int("transactions", len(r.pending)))
	r.pending = r.pending[:0]
	return nil
}

// Stats returns the counters collected so far.
func (r *Runner) Stats() Stats {
	return r.stats
}
