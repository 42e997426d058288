package ledger

import (
	"context"
	"fmt"

	"lpEngine/internal/model"
)

// MovementKind is the type of a single asset movement in a batch.
type MovementKind uint8

const (
	Transfer MovementKind = iota
	Mint
	Burn
)

func (k MovementKind) String() string {
	switch k {
	case Transfer:
		return "transfer"
	case Mint:
		return "mint"
	case Burn:
		return "burn"
	default:
		return fmt.Sprintf("movement(%d)", uint8(k))
	}
}

// Movement moves Amount of Asset. Transfers use From and To, mints use To,
// burns use From.
type Movement struct {
	Kind   MovementKind `json:"kind"`
	Asset  string       `json:"asset"`
	From   string       `json:"from,omitempty"`
	To     string       `json:"to,omitempty"`
	Amount uint64       `json:"amount"`
}

// Batch is the unit of work of one pool operation. Prev is the snapshot the
// operation was computed from; Next replaces it when every movement succeeds.
type Batch struct {
	Prev      model.PoolState
	Next      model.PoolState
	Movements []Movement
}

// PoolID returns the pool the batch mutates.
func (b Batch) PoolID() string {
	return b.Next.Config.PoolID
}

// Ledger is the host ledger a pool engine runs against.
//
// Commit is all-or-nothing: the stored pool state must still equal Prev,
// the movements apply in order, and Next is published only if all of them
// succeed. Otherwise nothing changes and the error is returned.
type Ledger interface {
	LoadPool(ctx context.Context, poolID string) (model.PoolState, error)
	CreatePool(ctx context.Context, state model.PoolState) error
	Balance(ctx context.Context, asset, account string) (uint64, error)
	Supply(ctx context.Context, asset string) (uint64, error)
	Commit(ctx context.Context, batch Batch) error
}

// Positions stores the last request sequence applied per stream.
type Positions interface {
	LoadState(ctx context.Context, name string) (uint64, bool, error)
	SaveState(ctx context.Context, name string, seq uint64) error
}

// Cursor names the request a unit of work belongs to. A ledger that sees a
// cursor on the context records it in the same atomic step as the work and
// rejects a cursor it has already recorded.
type Cursor struct {
	Stream string
	Seq    uint64
}

type cursorKey struct{}

// WithCursor attaches c to ctx.
func WithCursor(ctx context.Context, c Cursor) context.Context {
	return context.WithValue(ctx, cursorKey{}, c)
}

// CursorFrom returns the cursor attached to ctx, if any.
func CursorFrom(ctx context.Context) (Cursor, bool) {
	c, ok := ctx.Value(cursorKey{}).(Cursor)
	if !ok || c.Stream == "" {
		return Cursor{}, false
	}
	return c, true
}

// Funder credits external balances into a ledger. Replay uses it to seed
// accounts; production ledgers are funded by their host.
type Funder interface {
	Credit(ctx context.Context, asset, account string, amount uint64) error
}

// Deposit builds the movements of a deposit: both tokens into custody, then
// the LP mint.
func Deposit(state model.PoolState, caller string, amountX, amountY, lpOut uint64) []Movement {
	custody := state.Custody()
	return []Movement{
		{Kind: Transfer, Asset: state.Config.TokenX, From: caller, To: custody, Amount: amountX},
		{Kind: Transfer, Asset: state.Config.TokenY, From: caller, To: custody, Amount: amountY},
		{Kind: Mint, Asset: state.LPAsset(), To: caller, Amount: lpOut},
	}
}

// Withdraw builds the movements of a withdrawal. The burn comes first so a
// caller cannot spend the same claim twice inside one batch.
func Withdraw(state model.PoolState, caller string, lpAmount, amountX, amountY uint64) []Movement {
	custody := state.Custody()
	return []Movement{
		{Kind: Burn, Asset: state.LPAsset(), From: caller, Amount: lpAmount},
		{Kind: Transfer, Asset: state.Config.TokenX, From: custody, To: caller, Amount: amountX},
		{Kind: Transfer, Asset: state.Config.TokenY, From: custody, To: caller, Amount: amountY},
	}
}

// Swap builds the movements of a trade: input into custody, output to the
// caller.
func Swap(state model.PoolState, caller string, xToY bool, amountIn, amountOut uint64) []Movement {
	custody := state.Custody()
	tokenIn, tokenOut := state.Config.TokenX, state.Config.TokenY
	if !xToY {
		tokenIn, tokenOut = tokenOut, tokenIn
	}
	return []Movement{
		{Kind: Transfer, Asset: tokenIn, From: caller, To: custody, Amount: amountIn},
		{Kind: Transfer, Asset: tokenOut, From: custody, To: caller, Amount: amountOut},
	}
}
