package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// FileSnapshotStore persists Memory snapshots as a JSON file.
type FileSnapshotStore struct {
	Path string
}

type snapshotRecord struct {
	Seq      uint64   `json:"seq"`
	Snapshot Snapshot `json:"snapshot"`
}

// Load returns the stored snapshot and the request sequence it covers.
func (s *FileSnapshotStore) Load(ctx context.Context) (Snapshot, uint64, bool, error) {
	if s == nil || s.Path == "" {
		return Snapshot{}, 0, false, nil
	}
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return Snapshot{}, 0, false, nil
		}
		return Snapshot{}, 0, false, fmt.Errorf("read snapshot: %w", err)
	}

	var rec snapshotRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return Snapshot{}, 0, false, fmt.Errorf("parse snapshot: %w", err)
	}
	return rec.Snapshot, rec.Seq, true, nil
}

// Save writes snap atomically via a temp file and rename.
func (s *FileSnapshotStore) Save(ctx context.Context, seq uint64, snap Snapshot) error {
	if s == nil || s.Path == "" {
		return nil
	}
	dir := filepath.Dir(s.Path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create snapshot dir: %w", err)
		}
	}

	data, err := json.MarshalIndent(snapshotRecord{Seq: seq, Snapshot: snap}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	tmp := s.Path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write snapshot tmp: %w", err)
	}
	if err := os.Rename(tmp, s.Path); err != nil {
		return fmt.Errorf("rename snapshot: %w", err)
	}
	return nil
}
