package storage

import (
	"context"

	"historyScope/internal/model"
)

// Storage defines a sink for decoded transactions.
type Storage interface {
	PutDecodedBatch(ctx context.Context, txs []model.DecodedTransaction) error
}
