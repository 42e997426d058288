package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"lpEngine/internal/amm"
	"lpEngine/internal/ledger"
	"lpEngine/internal/model"
)

// Store is a Postgres-backed host ledger. Pool rows, balances and supplies
// change together inside one transaction per batch.
type Store struct {
	pool *pgxpool.Pool
}

var (
	_ ledger.Ledger    = (*Store)(nil)
	_ ledger.Funder    = (*Store)(nil)
	_ ledger.Positions = (*Store)(nil)
)

// NewStore opens a connection pool to dsn.
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

// Migrate creates the ledger tables if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const selectPool = `
	SELECT pool_id, token_x, token_y, fee_bps, locked, authority,
		reserve_x::text, reserve_y::text, lp_supply::text
	FROM pools WHERE pool_id = $1`

func loadPool(ctx context.Context, q querier, poolID string, forUpdate bool) (model.PoolState, error) {
	sql := selectPool
	if forUpdate {
		sql += " FOR UPDATE"
	}

	var (
		state                        model.PoolState
		feeBps                       int32
		locked                       bool
		reserveX, reserveY, lpSupply string
	)
	err := q.QueryRow(ctx, sql, poolID).Scan(
		&state.Config.PoolID,
		&state.Config.TokenX,
		&state.Config.TokenY,
		&feeBps,
		&locked,
		&state.Config.Authority,
		&reserveX,
		&reserveY,
		&lpSupply,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.PoolState{}, amm.ErrPoolNotFound.Wrapf("pool %s", poolID)
		}
		return model.PoolState{}, fmt.Errorf("load pool %s: %w", poolID, err)
	}

	state.Config.FeeBps = uint16(feeBps)
	if locked {
		state.Config.Lock = model.Locked
	}
	if state.Reserves.X, err = parseAmount(reserveX); err != nil {
		return model.PoolState{}, err
	}
	if state.Reserves.Y, err = parseAmount(reserveY); err != nil {
		return model.PoolState{}, err
	}
	if state.LPSupply, err = parseAmount(lpSupply); err != nil {
		return model.PoolState{}, err
	}
	return state, nil
}

func (s *Store) LoadPool(ctx context.Context, poolID string) (model.PoolState, error) {
	return loadPool(ctx, s.pool, poolID, false)
}

func (s *Store) CreatePool(ctx context.Context, state model.PoolState) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		cfg := state.Config
		tag, err := tx.Exec(ctx, `
			INSERT INTO pools (
				pool_id, token_x, token_y, fee_bps, locked, authority,
				reserve_x, reserve_y, lp_supply, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7::numeric, $8::numeric, $9::numeric, now(), now())
			ON CONFLICT (pool_id) DO NOTHING
		`,
			cfg.PoolID,
			cfg.TokenX,
			cfg.TokenY,
			int32(cfg.FeeBps),
			cfg.IsLocked(),
			cfg.Authority,
			formatAmount(state.Reserves.X),
			formatAmount(state.Reserves.Y),
			formatAmount(state.LPSupply),
		)
		if err != nil {
			return fmt.Errorf("insert pool %s: %w", cfg.PoolID, err)
		}
		if tag.RowsAffected() == 0 {
			return amm.ErrPoolExists.Wrapf("pool %s", cfg.PoolID)
		}
		if err := advanceCursor(ctx, tx); err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO supplies (asset, amount, updated_at) VALUES ($1, $2::numeric, now())
			ON CONFLICT (asset) DO UPDATE SET amount = EXCLUDED.amount, updated_at = now()
		`, state.LPAsset(), formatAmount(state.LPSupply))
		if err != nil {
			return fmt.Errorf("init supply %s: %w", state.LPAsset(), err)
		}
		return nil
	})
}

func (s *Store) Balance(ctx context.Context, asset, account string) (uint64, error) {
	return scanAmount(s.pool.QueryRow(ctx,
		`SELECT amount::text FROM balances WHERE asset = $1 AND account = $2`, asset, account))
}

func (s *Store) Supply(ctx context.Context, asset string) (uint64, error) {
	return scanAmount(s.pool.QueryRow(ctx, `SELECT amount::text FROM supplies WHERE asset = $1`, asset))
}

// Credit adds amount to an external account.
func (s *Store) Credit(ctx context.Context, asset, account string, amount uint64) error {
	if strings.HasPrefix(account, model.CustodyAccount("")) {
		return amm.ErrUnauthorized.Wrapf("account %s is pool custody", account)
	}
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if err := advanceCursor(ctx, tx); err != nil {
			return err
		}
		return credit(ctx, tx, asset, account, amount)
	})
}

func (s *Store) Commit(ctx context.Context, batch ledger.Batch) error {
	id := batch.PoolID()
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if err := advanceCursor(ctx, tx); err != nil {
			return err
		}
		stored, err := loadPool(ctx, tx, id, true)
		if err != nil {
			return err
		}
		if !stored.Equal(batch.Prev) {
			return amm.ErrStaleState.Wrapf("pool %s", id)
		}

		for _, mv := range batch.Movements {
			if err := apply(ctx, tx, mv); err != nil {
				return err
			}
		}
		if err := verify(ctx, tx, batch.Next); err != nil {
			return err
		}

		next := batch.Next
		_, err = tx.Exec(ctx, `
			UPDATE pools SET
				locked = $2,
				authority = $3,
				reserve_x = $4::numeric,
				reserve_y = $5::numeric,
				lp_supply = $6::numeric,
				updated_at = now()
			WHERE pool_id = $1
		`,
			id,
			next.Config.IsLocked(),
			next.Config.Authority,
			formatAmount(next.Reserves.X),
			formatAmount(next.Reserves.Y),
			formatAmount(next.LPSupply),
		)
		if err != nil {
			return fmt.Errorf("update pool %s: %w", id, err)
		}
		return nil
	})
}

func apply(ctx context.Context, tx pgx.Tx, mv ledger.Movement) error {
	switch mv.Kind {
	case ledger.Transfer:
		if err := debit(ctx, tx, mv.Asset, mv.From, mv.Amount); err != nil {
			return err
		}
		return credit(ctx, tx, mv.Asset, mv.To, mv.Amount)
	case ledger.Mint:
		if err := mint(ctx, tx, mv.Asset, mv.Amount); err != nil {
			return err
		}
		return credit(ctx, tx, mv.Asset, mv.To, mv.Amount)
	case ledger.Burn:
		if err := debit(ctx, tx, mv.Asset, mv.From, mv.Amount); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, `
			UPDATE supplies SET amount = amount - $2::numeric, updated_at = now()
			WHERE asset = $1 AND amount >= $2::numeric
		`, mv.Asset, formatAmount(mv.Amount))
		if err != nil {
			return fmt.Errorf("burn %s: %w", mv.Asset, err)
		}
		if tag.RowsAffected() == 0 {
			return amm.ErrUnderflow.Wrapf("burn %d %s exceeds supply", mv.Amount, mv.Asset)
		}
		return nil
	default:
		return amm.ErrInvalidAmount.Wrapf("unknown movement %s", mv.Kind)
	}
}

func debit(ctx context.Context, tx pgx.Tx, asset, account string, amount uint64) error {
	if amount == 0 {
		return nil
	}
	tag, err := tx.Exec(ctx, `
		UPDATE balances SET amount = amount - $3::numeric, updated_at = now()
		WHERE asset = $1 AND account = $2 AND amount >= $3::numeric
	`, asset, account, formatAmount(amount))
	if err != nil {
		return fmt.Errorf("debit %s/%s: %w", asset, account, err)
	}
	if tag.RowsAffected() == 0 {
		return amm.ErrInsufficientBalance.Wrapf("%s holds less than %d %s", account, amount, asset)
	}
	return nil
}

func mint(ctx context.Context, q querier, asset string, amount uint64) error {
	var raw string
	err := q.QueryRow(ctx, `
		INSERT INTO supplies (asset, amount, updated_at) VALUES ($1, $2::numeric, now())
		ON CONFLICT (asset) DO UPDATE SET amount = supplies.amount + EXCLUDED.amount, updated_at = now()
		RETURNING amount::text
	`, asset, formatAmount(amount)).Scan(&raw)
	if numericOverflow(err) {
		return amm.ErrOverflow.Wrapf("mint %d %s", amount, asset)
	}
	if err != nil {
		return fmt.Errorf("mint %s: %w", asset, err)
	}
	if _, err := parseAmount(raw); err != nil {
		return amm.ErrOverflow.Wrapf("mint %d %s", amount, asset)
	}
	return nil
}

// credit adds amount to a balance row. A query failure is returned as is;
// only a total beyond 64 bits is an Overflow.
func credit(ctx context.Context, q querier, asset, account string, amount uint64) error {
	var raw string
	err := q.QueryRow(ctx, `
		INSERT INTO balances (asset, account, amount, updated_at) VALUES ($1, $2, $3::numeric, now())
		ON CONFLICT (asset, account) DO UPDATE SET amount = balances.amount + EXCLUDED.amount, updated_at = now()
		RETURNING amount::text
	`, asset, account, formatAmount(amount)).Scan(&raw)
	if numericOverflow(err) {
		return amm.ErrOverflow.Wrapf("credit %d %s to %s", amount, asset, account)
	}
	if err != nil {
		return fmt.Errorf("credit %s to %s: %w", asset, account, err)
	}
	if _, err := parseAmount(raw); err != nil {
		return amm.ErrOverflow.Wrapf("credit %d %s to %s", amount, asset, account)
	}
	return nil
}

func verify(ctx context.Context, tx pgx.Tx, next model.PoolState) error {
	custody := next.Custody()
	x, err := scanAmount(tx.QueryRow(ctx,
		`SELECT amount::text FROM balances WHERE asset = $1 AND account = $2`, next.Config.TokenX, custody))
	if err != nil {
		return err
	}
	y, err := scanAmount(tx.QueryRow(ctx,
		`SELECT amount::text FROM balances WHERE asset = $1 AND account = $2`, next.Config.TokenY, custody))
	if err != nil {
		return err
	}
	if x != next.Reserves.X || y != next.Reserves.Y {
		return amm.ErrInvariantViolated.Wrapf("custody holds %d/%d, state says %d/%d",
			x, y, next.Reserves.X, next.Reserves.Y)
	}
	supply, err := scanAmount(tx.QueryRow(ctx, `SELECT amount::text FROM supplies WHERE asset = $1`, next.LPAsset()))
	if err != nil {
		return err
	}
	if supply != next.LPSupply {
		return amm.ErrInvariantViolated.Wrapf("lp supply is %d, state says %d", supply, next.LPSupply)
	}
	return nil
}

// LoadState returns the last applied request sequence for a name.
func (s *Store) LoadState(ctx context.Context, name string) (uint64, bool, error) {
	if name == "" {
		return 0, false, fmt.Errorf("state name required")
	}
	var raw string
	row := s.pool.QueryRow(ctx, `SELECT last_seq::text FROM engine_state WHERE name=$1`, name)
	if err := row.Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, err
	}
	seq, err := parseAmount(raw)
	if err != nil {
		return 0, false, err
	}
	return seq, true, nil
}

const upsertState = `
	INSERT INTO engine_state (name, last_seq, updated_at)
	VALUES ($1, $2::numeric, now())
	ON CONFLICT (name) DO UPDATE
	SET last_seq = GREATEST(engine_state.last_seq, EXCLUDED.last_seq), updated_at = now()`

// SaveState upserts the last applied request sequence for a name. The
// stored value never moves back.
func (s *Store) SaveState(ctx context.Context, name string, seq uint64) error {
	if name == "" {
		return fmt.Errorf("state name required")
	}
	_, err := s.pool.Exec(ctx, upsertState, name, formatAmount(seq))
	return err
}

// advanceCursor records the context's cursor inside tx, so the sequence
// commits or rolls back with the work it belongs to.
func advanceCursor(ctx context.Context, tx pgx.Tx) error {
	cur, ok := ledger.CursorFrom(ctx)
	if !ok {
		return nil
	}
	var raw string
	err := tx.QueryRow(ctx,
		`SELECT last_seq::text FROM engine_state WHERE name = $1 FOR UPDATE`, cur.Stream).Scan(&raw)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
	case err != nil:
		return fmt.Errorf("load cursor %s: %w", cur.Stream, err)
	default:
		last, err := parseAmount(raw)
		if err != nil {
			return err
		}
		if last >= cur.Seq {
			return amm.ErrStaleState.Wrapf("stream %s already applied seq %d", cur.Stream, last)
		}
	}
	if _, err := tx.Exec(ctx, upsertState, cur.Stream, formatAmount(cur.Seq)); err != nil {
		return fmt.Errorf("save cursor %s: %w", cur.Stream, err)
	}
	return nil
}

// numericOverflow reports Postgres' numeric_value_out_of_range.
func numericOverflow(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "22003"
}

func scanAmount(row pgx.Row) (uint64, error) {
	var raw string
	if err := row.Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, err
	}
	return parseAmount(raw)
}

func parseAmount(raw string) (uint64, error) {
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, amm.ErrOverflow.Wrapf("amount %q: %v", raw, err)
	}
	return v, nil
}

func formatAmount(v uint64) string {
	return strconv.FormatUint(v, 10)
}
