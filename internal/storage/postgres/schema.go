package postgres

// Amounts are uint64 on the Go side and NUMERIC(20,0) in the database; they
// travel as decimal text with explicit ::numeric / ::text casts.
const schema = `
CREATE TABLE IF NOT EXISTS pools (
	pool_id     TEXT PRIMARY KEY,
	token_x     TEXT NOT NULL,
	token_y     TEXT NOT NULL,
	fee_bps     INTEGER NOT NULL CHECK (fee_bps >= 0),
	locked      BOOLEAN NOT NULL DEFAULT FALSE,
	authority   TEXT,
	reserve_x   NUMERIC(20,0) NOT NULL DEFAULT 0,
	reserve_y   NUMERIC(20,0) NOT NULL DEFAULT 0,
	lp_supply   NUMERIC(20,0) NOT NULL DEFAULT 0,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS balances (
	asset      TEXT NOT NULL,
	account    TEXT NOT NULL,
	amount     NUMERIC(20,0) NOT NULL CHECK (amount >= 0),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (asset, account)
);

CREATE TABLE IF NOT EXISTS supplies (
	asset      TEXT PRIMARY KEY,
	amount     NUMERIC(20,0) NOT NULL CHECK (amount >= 0),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS engine_state (
	name       TEXT PRIMARY KEY,
	last_seq   NUMERIC(20,0) NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`
