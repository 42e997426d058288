package pool

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"lpEngine/internal/amm"
	"lpEngine/internal/ledger"
	"lpEngine/internal/metrics"
	"lpEngine/internal/model"
	"lpEngine/internal/token"
)

// Config wires optional collaborators into an Engine.
type Config struct {
	// Tokens resolves token precision at Initialize. Nil skips the check.
	Tokens token.MetaSource
	// Metrics may be nil.
	Metrics *metrics.Metrics
}

// Engine orchestrates pool lifecycle and operations against a host ledger.
// It is the only writer of pool state; operations on one pool are
// serialized, operations on different pools run in parallel.
type Engine struct {
	ledger  ledger.Ledger
	tokens  token.MetaSource
	metrics *metrics.Metrics
	locks   *poolLocks
	logger  *zap.Logger
}

// NewEngine returns an engine over l. A nil logger disables logging.
func NewEngine(l ledger.Ledger, cfg Config, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		ledger:  l,
		tokens:  cfg.Tokens,
		metrics: cfg.Metrics,
		locks:   newPoolLocks(),
		logger:  logger,
	}
}

// plan is what an operation decided from its snapshot.
type plan struct {
	next      model.PoolState
	movements []ledger.Movement
	receipt   model.Receipt
}

// Pool returns the current state of a pool.
func (e *Engine) Pool(ctx context.Context, poolID string) (model.PoolState, error) {
	return e.ledger.LoadPool(ctx, poolID)
}

// execute runs one operation as a unit of work: it serializes on the pool,
// reads a single snapshot, lets decide compute the outcome, and commits the
// outcome exactly once.
func (e *Engine) execute(
	ctx context.Context,
	op model.OpKind,
	poolID string,
	decide func(ctx context.Context, snapshot model.PoolState) (plan, error),
) (model.Receipt, error) {
	if err := ctx.Err(); err != nil {
		return model.Receipt{}, err
	}
	release := e.locks.acquire(poolID)
	defer release()

	snapshot, err := e.ledger.LoadPool(ctx, poolID)
	if err != nil {
		return model.Receipt{}, e.fail(op, poolID, err)
	}

	p, err := decide(ctx, snapshot)
	if err != nil {
		return model.Receipt{}, e.fail(op, poolID, err)
	}

	if !p.next.Equal(snapshot) {
		// Past this point the operation is not interruptible.
		batch := ledger.Batch{Prev: snapshot, Next: p.next, Movements: p.movements}
		if err := e.ledger.Commit(context.WithoutCancel(ctx), batch); err != nil {
			return model.Receipt{}, e.fail(op, poolID, err)
		}
	}

	p.receipt.Op = op
	p.receipt.PoolID = poolID
	next := p.next
	p.receipt.State = &next
	e.succeed(p.receipt)
	return p.receipt, nil
}

func (e *Engine) fail(op model.OpKind, poolID string, err error) error {
	kind := amm.Kind(err)
	e.metrics.ObserveOperation(op, kind)
	e.logger.Debug("operation rejected",
		zap.String("op", string(op)),
		zap.String("pool_id", poolID),
		zap.String("kind", kind),
		zap.Error(err),
	)
	return err
}

func (e *Engine) succeed(r model.Receipt) {
	e.metrics.ObserveOperation(r.Op, "ok")
	e.metrics.ObservePool(*r.State)
	if r.Op == model.OpSwap {
		e.metrics.ObserveSwap(r.PoolID, r.XToY, r.AmountIn)
	}
	e.logger.Debug("operation committed",
		zap.String("op", string(r.Op)),
		zap.String("pool_id", r.PoolID),
		zap.String("caller", r.Caller),
		zap.Uint64("reserve_x", r.State.Reserves.X),
		zap.Uint64("reserve_y", r.State.Reserves.Y),
		zap.Uint64("lp_supply", r.State.LPSupply),
	)
}

// requireBalance fails with InsufficientBalance unless account holds at
// least amount of asset.
func (e *Engine) requireBalance(ctx context.Context, asset, account string, amount uint64) error {
	have, err := e.ledger.Balance(ctx, asset, account)
	if err != nil {
		return err
	}
	if have < amount {
		return amm.ErrInsufficientBalance.Wrapf("%s holds %d %s, needs %d", account, have, asset, amount)
	}
	return nil
}

func requireCaller(caller string) error {
	if caller == "" {
		return amm.ErrUnauthorized.Wrap("caller is empty")
	}
	if strings.HasPrefix(caller, model.CustodyAccount("")) {
		return amm.ErrUnauthorized.Wrapf("caller %s is pool custody", caller)
	}
	return nil
}
