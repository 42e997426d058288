package postgres

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"lpEngine/internal/amm"
	"lpEngine/internal/ledger"
	"lpEngine/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("LPENGINE_TEST_PG_DSN")
	if dsn == "" {
		t.Skip("LPENGINE_TEST_PG_DSN not set")
	}
	ctx := context.Background()
	store, err := NewStore(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(store.Close)
	require.NoError(t, store.Migrate(ctx))
	return store
}

func TestStoreCommitRoundTrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	id := fmt.Sprintf("test-%d", time.Now().UnixNano())
	alice := "alice-" + id

	state := model.PoolState{Config: model.PoolConfig{PoolID: id, TokenX: "x-" + id, TokenY: "y-" + id, FeeBps: 30}}
	require.NoError(t, store.CreatePool(ctx, state))
	require.ErrorIs(t, store.CreatePool(ctx, state), amm.ErrPoolExists)

	require.NoError(t, store.Credit(ctx, state.Config.TokenX, alice, 5_000))
	require.NoError(t, store.Credit(ctx, state.Config.TokenY, alice, 5_000))

	next := state
	next.Reserves = model.Reserves{X: 4_000, Y: 4_000}
	next.LPSupply = 3_000
	require.NoError(t, store.Commit(ctx, ledger.Batch{
		Prev:      state,
		Next:      next,
		Movements: ledger.Deposit(state, alice, 4_000, 4_000, 3_000),
	}))

	loaded, err := store.LoadPool(ctx, id)
	require.NoError(t, err)
	require.True(t, loaded.Equal(next))

	bal, err := store.Balance(ctx, next.LPAsset(), alice)
	require.NoError(t, err)
	require.Equal(t, uint64(3_000), bal)

	// Stale snapshot.
	err = store.Commit(ctx, ledger.Batch{Prev: state, Next: next})
	require.ErrorIs(t, err, amm.ErrStaleState)

	// Overdraw rolls back the burn that preceded it.
	bad := next
	bad.LPSupply = 2_000
	err = store.Commit(ctx, ledger.Batch{
		Prev:      next,
		Next:      bad,
		Movements: ledger.Withdraw(next, alice, 1_000, 1_000, 10_000),
	})
	require.ErrorIs(t, err, amm.ErrInsufficientBalance)
	supply, err := store.Supply(ctx, next.LPAsset())
	require.NoError(t, err)
	require.Equal(t, uint64(3_000), supply)
}

func TestStoreState(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	name := fmt.Sprintf("replay-%d", time.Now().UnixNano())

	_, ok, err := store.LoadState(ctx, name)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, store.SaveState(ctx, name, 17))
	seq, ok, err := store.LoadState(ctx, name)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint64(17), seq)
}

func TestStoreRecordsCursorWithWork(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	stream := fmt.Sprintf("replay-%d", time.Now().UnixNano())
	alice := "alice-" + stream

	at := func(seq uint64) context.Context {
		return ledger.WithCursor(ctx, ledger.Cursor{Stream: stream, Seq: seq})
	}

	require.NoError(t, store.Credit(at(1), "usdc-"+stream, alice, 10))
	seq, ok, err := store.LoadState(ctx, stream)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint64(1), seq)

	// The same request again is refused and changes nothing.
	require.ErrorIs(t, store.Credit(at(1), "usdc-"+stream, alice, 10), amm.ErrStaleState)
	bal, err := store.Balance(ctx, "usdc-"+stream, alice)
	require.NoError(t, err)
	require.Equal(t, uint64(10), bal)

	// A failed operation leaves the cursor where it was.
	require.ErrorIs(t, store.Credit(at(2), "usdc-"+stream, model.CustodyAccount("p"), 1), amm.ErrUnauthorized)
	require.NoError(t, store.SaveState(ctx, stream, 0))
	seq, _, err = store.LoadState(ctx, stream)
	require.NoError(t, err)
	require.Equal(t, uint64(1), seq)
}
