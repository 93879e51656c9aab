package postgres

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"historyScope/internal/model"
)

//go:embed schema.sql
var schema string

// Store provides Postgres persistence for tokens and decoded history.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// EnsureSchema creates the tables when they are missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// GetToken returns the stored token metadata, if any.
func (s *Store) GetToken(ctx context.Context, chainID uint64, address common.Address) (model.Token, bool, error) {
	token := model.Token{Address: address, ChainID: chainID}
	var decimals int16
	row := s.pool.QueryRow(ctx, `
		SELECT identifier, decimals, symbol, name
		FROM tokens
		WHERE chain_id = $1 AND address = $2
	`, int64(chainID), address.Hex())
	if err := row.Scan(&token.Identifier, &decimals, &token.Symbol, &token.Name); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Token{}, false, nil
		}
		return model.Token{}, false, err
	}
	token.Decimals = uint8(decimals)
	return token, true, nil
}

// UpsertToken inserts or updates token metadata.
func (s *Store) UpsertToken(ctx context.Context, token model.Token) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO tokens (chain_id, address, identifier, decimals, symbol, name, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now(), now())
		ON CONFLICT (chain_id, address)
		DO UPDATE SET
			identifier = EXCLUDED.identifier,
			decimals = EXCLUDED.decimals,
			symbol = EXCLUDED.symbol,
			name = EXCLUDED.name,
			updated_at = now()
	`,
		int64(token.ChainID),
		token.Address.Hex(),
		token.Identifier,
		int16(token.Decimals),
		token.Symbol,
		token.Name,
	)
	return err
}

// PutDecodedBatch replaces the stored events and logs of every transaction in
// the batch inside one database transaction.
func (s *Store) PutDecodedBatch(ctx context.Context, txs []model.DecodedTransaction) error {
	if len(txs) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, decoded := range txs {
		chainID := int64(decoded.ChainID)
		batch.Queue(`DELETE FROM history_events WHERE chain_id = $1 AND tx_hash = $2`, chainID, decoded.TxHash)
		for _, event := range decoded.Events {
			if err := queueEvent(batch, chainID, decoded.TxHash, event); err != nil {
				return err
			}
		}
		for _, l := range decoded.Logs {
			batch.Queue(`
				INSERT INTO tx_logs (chain_id, tx_hash, log_index, address, topics, data)
				VALUES ($1, $2, $3, $4, $5, $6)
				ON CONFLICT (chain_id, tx_hash, log_index) DO NOTHING
			`, chainID, decoded.TxHash, int64(l.LogIndex), l.Address, l.Topics, l.Data)
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	br := tx.SendBatch(ctx, batch)
	for i := 0; i < batch.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return err
		}
	}
	if err := br.Close(); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func queueEvent(batch *pgx.Batch, chainID int64, txHash string, event model.HistoryEvent) error {
	var address *string
	if event.Address != nil {
		hex := event.Address.Hex()
		address = &hex
	}
	var extra []byte
	if len(event.ExtraData) > 0 {
		var err error
		extra, err = json.Marshal(event.ExtraData)
		if err != nil {
			return fmt.Errorf("marshal extra data of %s/%d: %w", txHash, event.SequenceIndex, err)
		}
	}

	batch.Queue(`
		INSERT INTO history_events (
			chain_id, tx_hash, sequence_index, timestamp, location, event_type, event_subtype,
			asset, amount, location_label, counterparty, product, notes, address, extra_data,
			created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9::numeric,$10,$11,$12,$13,$14,$15::jsonb,now(),now())
		ON CONFLICT (chain_id, tx_hash, sequence_index)
		DO UPDATE SET
			timestamp = EXCLUDED.timestamp,
			location = EXCLUDED.location,
			event_type = EXCLUDED.event_type,
			event_subtype = EXCLUDED.event_subtype,
			asset = EXCLUDED.asset,
			amount = EXCLUDED.amount,
			location_label = EXCLUDED.location_label,
			counterparty = EXCLUDED.counterparty,
			product = EXCLUDED.product,
			notes = EXCLUDED.notes,
			address = EXCLUDED.address,
			extra_data = EXCLUDED.extra_data,
			updated_at = now()
	`,
		chainID,
		txHash,
		event.SequenceIndex,
		int64(event.Timestamp),
		event.Location,
		string(event.EventType),
		string(event.EventSubtype),
		event.Asset,
		event.Amount.String(),
		event.LocationLabel,
		event.Counterparty,
		string(event.Product),
		event.Notes,
		address,
		nullableJSON(extra),
	)
	return nil
}

func nullableJSON(data []byte) *string {
	if len(data) == 0 {
		return nil
	}
	s := string(data)
	return &s
}
