package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"lendingScope/internal/model"
	"lendingScope/internal/storage"
)

// Store provides Postgres persistence for cursors, obligations and event records.
type Store struct {
	pool *pgxpool.Pool
}

var _ storage.Store = (*Store)(nil)

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

// LoadCursor returns the stored cursor for an event type.
func (s *Store) LoadCursor(ctx context.Context, eventType string) (model.EventCursor, bool, error) {
	if eventType == "" {
		return model.EventCursor{}, false, fmt.Errorf("event type required")
	}
	cursor := model.EventCursor{EventType: eventType}
	row := s.pool.QueryRow(ctx, `
		SELECT next_tx_digest, next_event_seq, created_at, updated_at
		FROM event_cursors WHERE event_type = $1
	`, eventType)
	if err := row.Scan(&cursor.Next.TxDigest, &cursor.Next.EventSeq, &cursor.CreatedAt, &cursor.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.EventCursor{}, false, nil
		}
		return model.EventCursor{}, false, err
	}
	return cursor, true, nil
}

// FindObligation returns a stored obligation by id.
func (s *Store) FindObligation(ctx context.Context, id string) (model.Obligation, bool, error) {
	var (
		o         model.Obligation
		createdAt int64
	)
	row := s.pool.QueryRow(ctx, `
		SELECT obligation_id, obligation_key, sender, created_at_ms,
			deposits, withdraws, borrows, repays, liquidates, collaterals, debts
		FROM obligations WHERE obligation_id = $1
	`, id)
	err := row.Scan(
		&o.ID, &o.Key, &o.Sender, &createdAt,
		&o.Deposits, &o.Withdraws, &o.Borrows, &o.Repays, &o.Liquidates, &o.Collaterals, &o.Debts,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Obligation{}, false, nil
		}
		return model.Obligation{}, false, err
	}
	o.CreatedAtMs = uint64(createdAt)
	return o, true, nil
}

// Commit writes obligations, child records, market state and cursors in a
// single transaction. Obligations are written first so every child record's
// parent exists when it is inserted.
func (s *Store) Commit(ctx context.Context, b storage.Batch) error {
	if b.IsEmpty() {
		return nil
	}

	batch := &pgx.Batch{}
	for _, o := range b.Obligations {
		if err := queueObligation(batch, o); err != nil {
			return err
		}
	}
	for _, rec := range b.Records {
		row, err := rowForRecord(rec)
		if err != nil {
			return err
		}
		batch.Queue(row.insertSQL(), row.args...)
	}
	for _, d := range b.BorrowDynamics {
		batch.Queue(`
			INSERT INTO borrow_dynamics (
				coin_type, borrow_index, interest_rate, interest_rate_scale, last_updated, updated_at
			) VALUES ($1, $2, $3, $4, $5, now())
			ON CONFLICT (coin_type)
			DO UPDATE SET
				borrow_index = EXCLUDED.borrow_index,
				interest_rate = EXCLUDED.interest_rate,
				interest_rate_scale = EXCLUDED.interest_rate_scale,
				last_updated = EXCLUDED.last_updated,
				updated_at = now()
		`, d.CoinType, d.BorrowIndex, d.InterestRate, d.InterestRateScale, int64(d.LastUpdated))
	}
	for _, sb := range b.SupplyBalances {
		batch.Queue(`
			INSERT INTO supply_balances (
				coin_type, supply, market_coin_supply, exchange_rate, updated_at
			) VALUES ($1, $2, $3, $4, now())
			ON CONFLICT (coin_type)
			DO UPDATE SET
				supply = EXCLUDED.supply,
				market_coin_supply = EXCLUDED.market_coin_supply,
				exchange_rate = EXCLUDED.exchange_rate,
				updated_at = now()
		`, sb.CoinType, sb.Supply, sb.MarketCoinSupply, sb.ExchangeRate)
	}
	for _, c := range b.Cursors {
		batch.Queue(`
			INSERT INTO event_cursors (event_type, next_tx_digest, next_event_seq, created_at, updated_at)
			VALUES ($1, $2, $3, now(), now())
			ON CONFLICT (event_type)
			DO UPDATE SET
				next_tx_digest = EXCLUDED.next_tx_digest,
				next_event_seq = EXCLUDED.next_event_seq,
				updated_at = now()
		`, c.EventType, c.Next.TxDigest, c.Next.EventSeq)
	}

	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		br := tx.SendBatch(ctx, batch)
		for i := 0; i < batch.Len(); i++ {
			if _, err := br.Exec(); err != nil {
				br.Close()
				return fmt.Errorf("commit statement %d: %w", i, err)
			}
		}
		return br.Close()
	})
}

func queueObligation(batch *pgx.Batch, o model.Obligation) error {
	lists := []interface{}{o.Deposits, o.Withdraws, o.Borrows, o.Repays, o.Liquidates, o.Collaterals, o.Debts}
	encoded := make([]interface{}, 0, len(lists))
	for _, list := range lists {
		data, err := jsonList(list)
		if err != nil {
			return fmt.Errorf("obligation %s: %w", o.ID, err)
		}
		encoded = append(encoded, data)
	}

	args := append([]interface{}{o.ID, o.Key, o.Sender, int64(o.CreatedAtMs)}, encoded...)
	batch.Queue(`
		INSERT INTO obligations (
			obligation_id, obligation_key, sender, created_at_ms,
			deposits, withdraws, borrows, repays, liquidates, collaterals, debts,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, now(), now())
		ON CONFLICT (obligation_id)
		DO UPDATE SET
			obligation_key = EXCLUDED.obligation_key,
			sender = EXCLUDED.sender,
			created_at_ms = EXCLUDED.created_at_ms,
			deposits = EXCLUDED.deposits,
			withdraws = EXCLUDED.withdraws,
			borrows = EXCLUDED.borrows,
			repays = EXCLUDED.repays,
			liquidates = EXCLUDED.liquidates,
			collaterals = EXCLUDED.collaterals,
			debts = EXCLUDED.debts,
			updated_at = now()
	`, args...)
	return nil
}

// jsonList encodes a slice for a JSONB column, writing nil slices as [].
func jsonList(v interface{}) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	if string(data) == "null" {
		return []byte("[]"), nil
	}
	return data, nil
}
