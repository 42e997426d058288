package ledger

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"lpEngine/internal/amm"
	"lpEngine/internal/model"
)

func seededPool(t *testing.T) (*Memory, model.PoolState) {
	t.Helper()
	ctx := context.Background()
	m := NewMemory()
	state := model.PoolState{Config: model.PoolConfig{PoolID: "p1", TokenX: "x", TokenY: "y", FeeBps: 30}}
	require.NoError(t, m.CreatePool(ctx, state))
	require.NoError(t, m.Credit(ctx, "x", "alice", 5_000))
	require.NoError(t, m.Credit(ctx, "y", "alice", 5_000))

	next := state
	next.Reserves = model.Reserves{X: 4_000, Y: 4_000}
	next.LPSupply = 3_000
	require.NoError(t, m.Commit(ctx, Batch{
		Prev:      state,
		Next:      next,
		Movements: Deposit(state, "alice", 4_000, 4_000, 3_000),
	}))
	return m, next
}

func TestMemoryCommitAppliesMovements(t *testing.T) {
	m, state := seededPool(t)
	ctx := context.Background()

	loaded, err := m.LoadPool(ctx, "p1")
	require.NoError(t, err)
	require.True(t, loaded.Equal(state))

	bal, _ := m.Balance(ctx, "x", "alice")
	require.Equal(t, uint64(1_000), bal)
	bal, _ = m.Balance(ctx, "x", model.CustodyAccount("p1"))
	require.Equal(t, uint64(4_000), bal)
	bal, _ = m.Balance(ctx, model.LPAsset("p1"), "alice")
	require.Equal(t, uint64(3_000), bal)
	supply, _ := m.Supply(ctx, model.LPAsset("p1"))
	require.Equal(t, uint64(3_000), supply)
}

func TestMemoryCommitRejectsStaleSnapshot(t *testing.T) {
	m, state := seededPool(t)
	stale := state
	stale.Reserves.X++

	next := state
	next.Config.Lock = model.Locked
	err := m.Commit(context.Background(), Batch{Prev: stale, Next: next})
	require.ErrorIs(t, err, amm.ErrStaleState)

	loaded, err := m.LoadPool(context.Background(), "p1")
	require.NoError(t, err)
	require.False(t, loaded.Config.IsLocked())
}

func TestMemoryCommitIsAllOrNothing(t *testing.T) {
	m, state := seededPool(t)
	before := m.Snapshot()

	// The burn succeeds, the second transfer overdraws custody.
	next := state
	next.LPSupply = 2_000
	next.Reserves = model.Reserves{X: 3_000, Y: 0}
	err := m.Commit(context.Background(), Batch{
		Prev:      state,
		Next:      next,
		Movements: Withdraw(state, "alice", 1_000, 1_000, 10_000),
	})
	require.ErrorIs(t, err, amm.ErrInsufficientBalance)
	require.Equal(t, before, m.Snapshot())
}

func TestMemoryCommitChecksStateAgainstBalances(t *testing.T) {
	m, state := seededPool(t)
	before := m.Snapshot()

	next := state
	next.Reserves.X += 500
	err := m.Commit(context.Background(), Batch{Prev: state, Next: next})
	require.ErrorIs(t, err, amm.ErrInvariantViolated)
	require.Equal(t, before, m.Snapshot())
}

func TestMemoryCreateAndLoadErrors(t *testing.T) {
	m, state := seededPool(t)
	ctx := context.Background()

	require.ErrorIs(t, m.CreatePool(ctx, state), amm.ErrPoolExists)
	_, err := m.LoadPool(ctx, "missing")
	require.ErrorIs(t, err, amm.ErrPoolNotFound)
	require.ErrorIs(t, m.Credit(ctx, "x", model.CustodyAccount("p1"), 1), amm.ErrUnauthorized)
}

func TestSnapshotFileRoundTrip(t *testing.T) {
	m, _ := seededPool(t)
	ctx := context.Background()
	store := &FileSnapshotStore{Path: filepath.Join(t.TempDir(), "state", "ledger.json")}

	_, _, ok, err := store.Load(ctx)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, store.Save(ctx, 42, m.Snapshot()))

	snap, seq, ok, err := store.Load(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint64(42), seq)

	restored := NewMemory()
	restored.Restore(snap)
	require.Equal(t, m.Snapshot(), restored.Snapshot())
}

func TestMovementBuilders(t *testing.T) {
	state := model.PoolState{Config: model.PoolConfig{PoolID: "p1", TokenX: "x", TokenY: "y"}}

	withdraw := Withdraw(state, "alice", 10, 1, 2)
	require.Equal(t, Burn, withdraw[0].Kind, "burn precedes payouts")

	swap := Swap(state, "bob", false, 7, 3)
	require.Equal(t, "y", swap[0].Asset)
	require.Equal(t, model.CustodyAccount("p1"), swap[0].To)
	require.Equal(t, "x", swap[1].Asset)
	require.Equal(t, "bob", swap[1].To)
}

func TestMemoryRecordsCursorWithWork(t *testing.T) {
	m, state := seededPool(t)
	at := func(seq uint64) context.Context {
		return WithCursor(context.Background(), Cursor{Stream: "replay", Seq: seq})
	}

	require.NoError(t, m.Credit(at(4), "x", "bob", 10))
	seq, ok, err := m.LoadState(context.Background(), "replay")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint64(4), seq)

	require.ErrorIs(t, m.Credit(at(4), "x", "bob", 10), amm.ErrStaleState)
	bal, _ := m.Balance(context.Background(), "x", "bob")
	require.Equal(t, uint64(10), bal)

	// A failed commit does not move the cursor.
	next := state
	next.Reserves.X = 0
	err = m.Commit(at(5), Batch{Prev: state, Next: next})
	require.ErrorIs(t, err, amm.ErrInvariantViolated)
	seq, _, _ = m.LoadState(context.Background(), "replay")
	require.Equal(t, uint64(4), seq)

	locked := state
	locked.Config.Lock = model.Locked
	require.NoError(t, m.Commit(at(5), Batch{Prev: state, Next: locked}))
	require.ErrorIs(t, m.Commit(at(5), Batch{Prev: locked, Next: state}), amm.ErrStaleState)

	// SaveState never moves back, and snapshots carry cursors.
	require.NoError(t, m.SaveState(context.Background(), "replay", 2))
	restored := NewMemory()
	restored.Restore(m.Snapshot())
	seq, _, _ = restored.LoadState(context.Background(), "replay")
	require.Equal(t, uint64(5), seq)
}

func TestCursorFromIgnoresUnnamedStream(t *testing.T) {
	_, ok := CursorFrom(context.Background())
	require.False(t, ok)
	_, ok = CursorFrom(WithCursor(context.Background(), Cursor{Seq: 3}))
	require.False(t, ok)
}
