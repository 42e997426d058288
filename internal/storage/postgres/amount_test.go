package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"

	"lpEngine/internal/amm"
)

// stubRow returns a fixed text value or error from Scan.
type stubRow struct {
	raw string
	err error
}

func (r stubRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*(dest[0].(*string)) = r.raw
	return nil
}

type stubQuerier struct {
	row stubRow
}

func (q stubQuerier) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return q.row
}

func TestCreditKeepsQueryErrors(t *testing.T) {
	ctx := context.Background()
	connErr := errors.New("conn reset by peer")

	err := credit(ctx, stubQuerier{stubRow{err: connErr}}, "usdc", "alice", 5)
	require.ErrorIs(t, err, connErr)
	require.Equal(t, "Internal", amm.Kind(err))

	err = mint(ctx, stubQuerier{stubRow{err: context.Canceled}}, "lp:p1", 5)
	require.ErrorIs(t, err, context.Canceled)
	require.False(t, errors.Is(err, amm.ErrOverflow))
}

func TestCreditReportsOverflow(t *testing.T) {
	ctx := context.Background()

	// Fits NUMERIC(20,0) but not uint64.
	err := credit(ctx, stubQuerier{stubRow{raw: "18446744073709551616"}}, "usdc", "alice", 1)
	require.ErrorIs(t, err, amm.ErrOverflow)

	err = mint(ctx, stubQuerier{stubRow{err: &pgconn.PgError{Code: "22003"}}}, "lp:p1", 1)
	require.ErrorIs(t, err, amm.ErrOverflow)

	require.NoError(t, credit(ctx, stubQuerier{stubRow{raw: "42"}}, "usdc", "alice", 42))
}
