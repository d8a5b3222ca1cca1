package postgres

import "context"

const schemaSQL = `
CREATE TABLE IF NOT EXISTS event_cursors (
	event_type     TEXT PRIMARY KEY,
	next_tx_digest TEXT NOT NULL,
	next_event_seq TEXT NOT NULL,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS obligations (
	obligation_id  TEXT PRIMARY KEY,
	obligation_key TEXT NOT NULL,
	sender         TEXT NOT NULL,
	created_at_ms  BIGINT NOT NULL,
	deposits       JSONB NOT NULL DEFAULT '[]',
	withdraws      JSONB NOT NULL DEFAULT '[]',
	borrows        JSONB NOT NULL DEFAULT '[]',
	repays         JSONB NOT NULL DEFAULT '[]',
	liquidates     JSONB NOT NULL DEFAULT '[]',
	collaterals    JSONB NOT NULL DEFAULT '[]',
	debts          JSONB NOT NULL DEFAULT '[]',
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS collateral_deposits (
	id            BIGSERIAL PRIMARY KEY,
	tx_digest     TEXT NOT NULL,
	event_seq     TEXT NOT NULL,
	obligation_id TEXT NOT NULL REFERENCES obligations (obligation_id),
	sender        TEXT NOT NULL,
	provider      TEXT NOT NULL,
	coin_type     TEXT NOT NULL,
	amount        NUMERIC NOT NULL,
	timestamp_ms  BIGINT NOT NULL,
	UNIQUE (tx_digest, event_seq)
);

CREATE TABLE IF NOT EXISTS collateral_withdraws (
	id            BIGSERIAL PRIMARY KEY,
	tx_digest     TEXT NOT NULL,
	event_seq     TEXT NOT NULL,
	obligation_id TEXT NOT NULL REFERENCES obligations (obligation_id),
	sender        TEXT NOT NULL,
	taker         TEXT NOT NULL,
	coin_type     TEXT NOT NULL,
	amount        NUMERIC NOT NULL,
	timestamp_ms  BIGINT NOT NULL,
	UNIQUE (tx_digest, event_seq)
);

CREATE TABLE IF NOT EXISTS borrows (
	id            BIGSERIAL PRIMARY KEY,
	tx_digest     TEXT NOT NULL,
	event_seq     TEXT NOT NULL,
	obligation_id TEXT NOT NULL REFERENCES obligations (obligation_id),
	sender        TEXT NOT NULL,
	borrower      TEXT NOT NULL,
	coin_type     TEXT NOT NULL,
	amount        NUMERIC NOT NULL,
	fee           NUMERIC NOT NULL,
	timestamp_ms  BIGINT NOT NULL,
	UNIQUE (tx_digest, event_seq)
);

CREATE TABLE IF NOT EXISTS repays (
	id            BIGSERIAL PRIMARY KEY,
	tx_digest     TEXT NOT NULL,
	event_seq     TEXT NOT NULL,
	obligation_id TEXT NOT NULL REFERENCES obligations (obligation_id),
	sender        TEXT NOT NULL,
	repayer       TEXT NOT NULL,
	coin_type     TEXT NOT NULL,
	amount        NUMERIC NOT NULL,
	timestamp_ms  BIGINT NOT NULL,
	UNIQUE (tx_digest, event_seq)
);

CREATE TABLE IF NOT EXISTS liquidations (
	id              BIGSERIAL PRIMARY KEY,
	tx_digest       TEXT NOT NULL,
	event_seq       TEXT NOT NULL,
	obligation_id   TEXT NOT NULL REFERENCES obligations (obligation_id),
	sender          TEXT NOT NULL,
	liquidator      TEXT NOT NULL,
	debt_type       TEXT NOT NULL,
	collateral_type TEXT NOT NULL,
	repay_on_behalf NUMERIC NOT NULL,
	repay_revenue   NUMERIC NOT NULL,
	liq_amount      NUMERIC NOT NULL,
	timestamp_ms    BIGINT NOT NULL,
	UNIQUE (tx_digest, event_seq)
);

CREATE TABLE IF NOT EXISTS flash_loans (
	id           BIGSERIAL PRIMARY KEY,
	tx_digest    TEXT NOT NULL,
	event_seq    TEXT NOT NULL,
	leg          TEXT NOT NULL,
	sender       TEXT NOT NULL,
	account      TEXT NOT NULL,
	coin_type    TEXT NOT NULL,
	amount       NUMERIC NOT NULL,
	fee          NUMERIC NOT NULL,
	timestamp_ms BIGINT NOT NULL,
	UNIQUE (tx_digest, event_seq)
);

CREATE TABLE IF NOT EXISTS mints (
	id             BIGSERIAL PRIMARY KEY,
	tx_digest      TEXT NOT NULL,
	event_seq      TEXT NOT NULL,
	sender         TEXT NOT NULL,
	minter         TEXT NOT NULL,
	deposit_asset  TEXT NOT NULL,
	deposit_amount NUMERIC NOT NULL,
	mint_asset     TEXT NOT NULL,
	mint_amount    NUMERIC NOT NULL,
	timestamp_ms   BIGINT NOT NULL,
	UNIQUE (tx_digest, event_seq)
);

CREATE TABLE IF NOT EXISTS redeems (
	id              BIGSERIAL PRIMARY KEY,
	tx_digest       TEXT NOT NULL,
	event_seq       TEXT NOT NULL,
	sender          TEXT NOT NULL,
	redeemer        TEXT NOT NULL,
	withdraw_asset  TEXT NOT NULL,
	withdraw_amount NUMERIC NOT NULL,
	burn_asset      TEXT NOT NULL,
	burn_amount     NUMERIC NOT NULL,
	timestamp_ms    BIGINT NOT NULL,
	UNIQUE (tx_digest, event_seq)
);

CREATE TABLE IF NOT EXISTS borrow_dynamics (
	coin_type           TEXT PRIMARY KEY,
	borrow_index        NUMERIC NOT NULL,
	interest_rate       NUMERIC NOT NULL,
	interest_rate_scale NUMERIC NOT NULL,
	last_updated        BIGINT NOT NULL,
	updated_at          TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS supply_balances (
	coin_type          TEXT PRIMARY KEY,
	supply             NUMERIC NOT NULL,
	market_coin_supply NUMERIC NOT NULL,
	exchange_rate      NUMERIC NOT NULL,
	updated_at         TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// EnsureSchema creates the indexer tables if they do not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, schemaSQL)
	return err
}
