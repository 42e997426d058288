package ledger

import (
	"context"
	"math/bits"
	"sort"
	"strings"
	"sync"

	"lpEngine/internal/amm"
	"lpEngine/internal/model"
)

var (
	_ Ledger    = (*Memory)(nil)
	_ Funder    = (*Memory)(nil)
	_ Positions = (*Memory)(nil)
)

type balanceKey struct {
	asset   string
	account string
}

// Memory is an in-process Ledger. A single mutex serializes commits; the
// engine's per-pool locks keep contention low.
type Memory struct {
	mu       sync.RWMutex
	pools    map[string]model.PoolState
	balances map[balanceKey]uint64
	supplies map[string]uint64
	cursors  map[string]uint64

	// beforePublish runs after a batch is staged and before it becomes
	// visible. A non-nil error aborts the commit.
	beforePublish func(Batch) error
}

// NewMemory returns an empty in-process ledger.
func NewMemory() *Memory {
	return &Memory{
		pools:    make(map[string]model.PoolState),
		balances: make(map[balanceKey]uint64),
		supplies: make(map[string]uint64),
		cursors:  make(map[string]uint64),
	}
}

// OnCommit installs a hook that runs inside Commit once all movements are
// staged. Returning an error discards the staged batch.
func (m *Memory) OnCommit(fn func(Batch) error) {
	m.mu.Lock()
	m.beforePublish = fn
	m.mu.Unlock()
}

func (m *Memory) LoadPool(ctx context.Context, poolID string) (model.PoolState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	state, ok := m.pools[poolID]
	if !ok {
		return model.PoolState{}, amm.ErrPoolNotFound.Wrapf("pool %s", poolID)
	}
	return state, nil
}

func (m *Memory) CreatePool(ctx context.Context, state model.PoolState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := state.Config.PoolID
	cur, err := m.checkCursor(ctx)
	if err != nil {
		return err
	}
	if _, ok := m.pools[id]; ok {
		return amm.ErrPoolExists.Wrapf("pool %s", id)
	}
	m.pools[id] = state
	m.supplies[state.LPAsset()] = state.LPSupply
	m.advance(cur)
	return nil
}

func (m *Memory) Balance(ctx context.Context, asset, account string) (uint64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.balances[balanceKey{asset, account}], nil
}

func (m *Memory) Supply(ctx context.Context, asset string) (uint64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.supplies[asset], nil
}

// Credit adds amount to an external account. Pool custody accounts are only
// changed by pool operations.
func (m *Memory) Credit(ctx context.Context, asset, account string, amount uint64) error {
	if strings.HasPrefix(account, model.CustodyAccount("")) {
		return amm.ErrUnauthorized.Wrapf("account %s is pool custody", account)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, err := m.checkCursor(ctx)
	if err != nil {
		return err
	}
	key := balanceKey{asset, account}
	sum, carry := bits.Add64(m.balances[key], amount, 0)
	if carry != 0 {
		return amm.ErrOverflow.Wrapf("credit %d to %s/%s", amount, asset, account)
	}
	m.balances[key] = sum
	m.advance(cur)
	return nil
}

// LoadState returns the last sequence recorded for a stream.
func (m *Memory) LoadState(ctx context.Context, name string) (uint64, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	seq, ok := m.cursors[name]
	return seq, ok, nil
}

// SaveState records seq for a stream. The stored value never moves back.
func (m *Memory) SaveState(ctx context.Context, name string, seq uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if last, ok := m.cursors[name]; !ok || seq > last {
		m.cursors[name] = seq
	}
	return nil
}

// checkCursor rejects work whose cursor is already recorded. Callers hold mu.
func (m *Memory) checkCursor(ctx context.Context) (*Cursor, error) {
	cur, ok := CursorFrom(ctx)
	if !ok {
		return nil, nil
	}
	if last, seen := m.cursors[cur.Stream]; seen && last >= cur.Seq {
		return nil, amm.ErrStaleState.Wrapf("stream %s already applied seq %d", cur.Stream, last)
	}
	return &cur, nil
}

func (m *Memory) advance(cur *Cursor) {
	if cur != nil {
		m.cursors[cur.Stream] = cur.Seq
	}
}

func (m *Memory) Commit(ctx context.Context, batch Batch) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := batch.PoolID()
	cur, err := m.checkCursor(ctx)
	if err != nil {
		return err
	}
	stored, ok := m.pools[id]
	if !ok {
		return amm.ErrPoolNotFound.Wrapf("pool %s", id)
	}
	if !stored.Equal(batch.Prev) {
		return amm.ErrStaleState.Wrapf("pool %s", id)
	}

	stage := newStage(m)
	for _, mv := range batch.Movements {
		if err := stage.apply(mv); err != nil {
			return err
		}
	}
	if err := stage.verify(batch.Next); err != nil {
		return err
	}
	if m.beforePublish != nil {
		if err := m.beforePublish(batch); err != nil {
			return err
		}
	}

	for k, v := range stage.balances {
		if v == 0 {
			delete(m.balances, k)
			continue
		}
		m.balances[k] = v
	}
	for asset, v := range stage.supplies {
		m.supplies[asset] = v
	}
	m.pools[id] = batch.Next
	m.advance(cur)
	return nil
}

// stage overlays pending balance and supply changes on the committed maps.
type stage struct {
	base     *Memory
	balances map[balanceKey]uint64
	supplies map[string]uint64
}

func newStage(base *Memory) *stage {
	return &stage{
		base:     base,
		balances: make(map[balanceKey]uint64),
		supplies: make(map[string]uint64),
	}
}

func (s *stage) balance(key balanceKey) uint64 {
	if v, ok := s.balances[key]; ok {
		return v
	}
	return s.base.balances[key]
}

func (s *stage) supply(asset string) uint64 {
	if v, ok := s.supplies[asset]; ok {
		return v
	}
	return s.base.supplies[asset]
}

func (s *stage) debit(asset, account string, amount uint64) error {
	key := balanceKey{asset, account}
	have := s.balance(key)
	if have < amount {
		return amm.ErrInsufficientBalance.Wrapf("%s holds %d %s, needs %d", account, have, asset, amount)
	}
	s.balances[key] = have - amount
	return nil
}

func (s *stage) credit(asset, account string, amount uint64) error {
	key := balanceKey{asset, account}
	sum, carry := bits.Add64(s.balance(key), amount, 0)
	if carry != 0 {
		return amm.ErrOverflow.Wrapf("credit %d %s to %s", amount, asset, account)
	}
	s.balances[key] = sum
	return nil
}

func (s *stage) apply(mv Movement) error {
	switch mv.Kind {
	case Transfer:
		if err := s.debit(mv.Asset, mv.From, mv.Amount); err != nil {
			return err
		}
		return s.credit(mv.Asset, mv.To, mv.Amount)
	case Mint:
		total, carry := bits.Add64(s.supply(mv.Asset), mv.Amount, 0)
		if carry != 0 {
			return amm.ErrOverflow.Wrapf("mint %d %s", mv.Amount, mv.Asset)
		}
		if err := s.credit(mv.Asset, mv.To, mv.Amount); err != nil {
			return err
		}
		s.supplies[mv.Asset] = total
		return nil
	case Burn:
		if err := s.debit(mv.Asset, mv.From, mv.Amount); err != nil {
			return err
		}
		total := s.supply(mv.Asset)
		if total < mv.Amount {
			return amm.ErrUnderflow.Wrapf("burn %d %s from supply %d", mv.Amount, mv.Asset, total)
		}
		s.supplies[mv.Asset] = total - mv.Amount
		return nil
	default:
		return amm.ErrInvalidAmount.Wrapf("unknown movement %s", mv.Kind)
	}
}

// verify checks that the staged custody balances and LP supply match the
// pool state about to be published.
func (s *stage) verify(next model.PoolState) error {
	custody := next.Custody()
	x := s.balance(balanceKey{next.Config.TokenX, custody})
	y := s.balance(balanceKey{next.Config.TokenY, custody})
	if x != next.Reserves.X || y != next.Reserves.Y {
		return amm.ErrInvariantViolated.Wrapf("custody holds %d/%d, state says %d/%d",
			x, y, next.Reserves.X, next.Reserves.Y)
	}
	if supply := s.supply(next.LPAsset()); supply != next.LPSupply {
		return amm.ErrInvariantViolated.Wrapf("lp supply is %d, state says %d", supply, next.LPSupply)
	}
	return nil
}

// BalanceEntry is one non-zero balance in a snapshot.
type BalanceEntry struct {
	Asset   string `json:"asset"`
	Account string `json:"account"`
	Amount  uint64 `json:"amount"`
}

// Snapshot is a point-in-time copy of a Memory ledger, sorted for stable
// serialization.
type Snapshot struct {
	Pools    []model.PoolState `json:"pools"`
	Balances []BalanceEntry    `json:"balances"`
	Supplies map[string]uint64 `json:"supplies"`
	Cursors  map[string]uint64 `json:"cursors,omitempty"`
}

// Snapshot copies the ledger contents.
func (m *Memory) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snap := Snapshot{
		Pools:    make([]model.PoolState, 0, len(m.pools)),
		Balances: make([]BalanceEntry, 0, len(m.balances)),
		Supplies: make(map[string]uint64, len(m.supplies)),
	}
	for _, p := range m.pools {
		snap.Pools = append(snap.Pools, p)
	}
	sort.Slice(snap.Pools, func(i, j int) bool {
		return snap.Pools[i].Config.PoolID < snap.Pools[j].Config.PoolID
	})
	for k, v := range m.balances {
		snap.Balances = append(snap.Balances, BalanceEntry{Asset: k.asset, Account: k.account, Amount: v})
	}
	sort.Slice(snap.Balances, func(i, j int) bool {
		a, b := snap.Balances[i], snap.Balances[j]
		if a.Asset != b.Asset {
			return a.Asset < b.Asset
		}
		return a.Account < b.Account
	})
	for k, v := range m.supplies {
		snap.Supplies[k] = v
	}
	if len(m.cursors) > 0 {
		snap.Cursors = make(map[string]uint64, len(m.cursors))
		for k, v := range m.cursors {
			snap.Cursors[k] = v
		}
	}
	return snap
}

// Restore replaces the ledger contents with snap.
func (m *Memory) Restore(snap Snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.pools = make(map[string]model.PoolState, len(snap.Pools))
	for _, p := range snap.Pools {
		m.pools[p.Config.PoolID] = p
	}
	m.balances = make(map[balanceKey]uint64, len(snap.Balances))
	for _, b := range snap.Balances {
		if b.Amount > 0 {
			m.balances[balanceKey{b.Asset, b.Account}] = b.Amount
		}
	}
	m.supplies = make(map[string]uint64, len(snap.Supplies))
	for k, v := range snap.Supplies {
		m.supplies[k] = v
	}
	m.cursors = make(map[string]uint64, len(snap.Cursors))
	for k, v := range snap.Cursors {
		m.cursors[k] = v
	}
}
