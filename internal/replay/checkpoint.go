package replay

import (
	"context"

	"lpEngine/internal/ledger"
)

// CheckpointStore persists the sequence of the last applied request.
type CheckpointStore interface {
	Load(ctx context.Context) (uint64, bool, error)
	Save(ctx context.Context, seq uint64) error
}

// SnapshotCheckpoint keeps an in-memory ledger and its sequence in one
// file, so a restart resumes from a consistent state.
type SnapshotCheckpoint struct {
	Store  *ledger.FileSnapshotStore
	Ledger *ledger.Memory
}

// Load restores the ledger from the snapshot file, if any.
func (c *SnapshotCheckpoint) Load(ctx context.Context) (uint64, bool, error) {
	if c == nil || c.Store == nil || c.Ledger == nil {
		return 0, false, nil
	}
	snap, seq, ok, err := c.Store.Load(ctx)
	if err != nil || !ok {
		return 0, false, err
	}
	c.Ledger.Restore(snap)
	return seq, true, nil
}

func (c *SnapshotCheckpoint) Save(ctx context.Context, seq uint64) error {
	if c == nil || c.Store == nil || c.Ledger == nil {
		return nil
	}
	return c.Store.Save(ctx, seq, c.Ledger.Snapshot())
}

// LedgerCheckpoint reads and writes the sequence through a durable ledger.
// The ledger records the cursor of every committed request itself, so Save
// only advances past requests that were rejected.
type LedgerCheckpoint struct {
	Positions ledger.Positions
	Name      string
}

func (c *LedgerCheckpoint) Load(ctx context.Context) (uint64, bool, error) {
	if c == nil || c.Positions == nil {
		return 0, false, nil
	}
	return c.Positions.LoadState(ctx, c.Name)
}

func (c *LedgerCheckpoint) Save(ctx context.Context, seq uint64) error {
	if c == nil || c.Positions == nil {
		return nil
	}
	return c.Positions.SaveState(ctx, c.Name, seq)
}
