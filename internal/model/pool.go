package model

import "fmt"

// LockState is the administrative trading switch of a pool.
type LockState uint8

const (
	Unlocked LockState = iota
	Locked
)

func (s LockState) String() string {
	switch s {
	case Unlocked:
		return "unlocked"
	case Locked:
		return "locked"
	default:
		return fmt.Sprintf("lock_state(%d)", uint8(s))
	}
}

// MarshalText encodes the lock state as "locked" or "unlocked".
func (s LockState) MarshalText() ([]byte, error) {
	switch s {
	case Unlocked, Locked:
		return []byte(s.String()), nil
	default:
		return nil, fmt.Errorf("unknown lock state %d", uint8(s))
	}
}

// UnmarshalText decodes "locked" or "unlocked".
func (s *LockState) UnmarshalText(text []byte) error {
	switch string(text) {
	case "unlocked", "":
		*s = Unlocked
	case "locked":
		*s = Locked
	default:
		return fmt.Errorf("unknown lock state %q", string(text))
	}
	return nil
}

// PoolConfig holds the per-pool parameters. Tokens and fee are fixed at
// initialization; only Lock changes afterwards.
type PoolConfig struct {
	PoolID    string    `json:"pool_id"`
	TokenX    string    `json:"token_x"`
	TokenY    string    `json:"token_y"`
	FeeBps    uint16    `json:"fee_bps"`
	Lock      LockState `json:"lock"`
	Authority *string   `json:"authority,omitempty"`
}

// IsLocked reports whether trading and liquidity changes are disabled.
func (c PoolConfig) IsLocked() bool {
	return c.Lock == Locked
}

// Reserves are the custody balances attributed to a pool.
type Reserves struct {
	X uint64 `json:"x"`
	Y uint64 `json:"y"`
}

// IsEmpty reports the empty-pool state.
func (r Reserves) IsEmpty() bool {
	return r.X == 0 && r.Y == 0
}

// Oriented returns (reserveIn, reserveOut) for a swap direction.
func (r Reserves) Oriented(xToY bool) (uint64, uint64) {
	if xToY {
		return r.X, r.Y
	}
	return r.Y, r.X
}

// PoolState is an immutable snapshot of everything an operation reads.
type PoolState struct {
	Config   PoolConfig `json:"config"`
	Reserves Reserves   `json:"reserves"`
	LPSupply uint64     `json:"lp_supply"`
}

// Equal compares two snapshots field by field.
func (s PoolState) Equal(other PoolState) bool {
	if s.Reserves != other.Reserves || s.LPSupply != other.LPSupply {
		return false
	}
	a, b := s.Config, other.Config
	if a.PoolID != b.PoolID || a.TokenX != b.TokenX || a.TokenY != b.TokenY ||
		a.FeeBps != b.FeeBps || a.Lock != b.Lock {
		return false
	}
	if (a.Authority == nil) != (b.Authority == nil) {
		return false
	}
	return a.Authority == nil || *a.Authority == *b.Authority
}

// LPAsset is the ledger asset id of the pool's claim token.
func (s PoolState) LPAsset() string {
	return LPAsset(s.Config.PoolID)
}

// Custody is the ledger account holding the pool's reserves.
func (s PoolState) Custody() string {
	return CustodyAccount(s.Config.PoolID)
}

// LPAsset returns the claim token asset id for poolID.
func LPAsset(poolID string) string {
	return "lp:" + poolID
}

// CustodyAccount returns the reserve custody account for poolID.
func CustodyAccount(poolID string) string {
	return "pool:" + poolID
}
