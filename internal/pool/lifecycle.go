package pool

import (
	"context"

	"go.uber.org/zap"

	"lpEngine/internal/amm"
	"lpEngine/internal/model"
	"lpEngine/internal/token"
)

// InitializeParams describes a new pool.
type InitializeParams struct {
	PoolID    string
	TokenX    string
	TokenY    string
	FeeBps    uint16
	Authority *string
}

// Initialize creates an empty, unlocked pool. Creating an id that already
// exists fails with PoolExists.
func (e *Engine) Initialize(ctx context.Context, params InitializeParams) (model.PoolConfig, error) {
	cfg, err := e.validateInitialize(ctx, params)
	if err != nil {
		return model.PoolConfig{}, e.fail(model.OpInitialize, params.PoolID, err)
	}

	release := e.locks.acquire(cfg.PoolID)
	defer release()

	state := model.PoolState{Config: cfg}
	if err := e.ledger.CreatePool(context.WithoutCancel(ctx), state); err != nil {
		return model.PoolConfig{}, e.fail(model.OpInitialize, cfg.PoolID, err)
	}

	e.metrics.ObserveOperation(model.OpInitialize, "ok")
	e.metrics.PoolCreated()
	e.metrics.ObservePool(state)
	e.logger.Info("pool initialized",
		zap.String("pool_id", cfg.PoolID),
		zap.String("token_x", cfg.TokenX),
		zap.String("token_y", cfg.TokenY),
		zap.Uint16("fee_bps", cfg.FeeBps),
		zap.Bool("has_authority", cfg.Authority != nil),
	)
	return cfg, nil
}

func (e *Engine) validateInitialize(ctx context.Context, params InitializeParams) (model.PoolConfig, error) {
	if err := amm.ValidateFee(params.FeeBps); err != nil {
		return model.PoolConfig{}, err
	}
	tokenX, tokenY := token.Normalize(params.TokenX), token.Normalize(params.TokenY)
	if err := amm.ValidateTokens(tokenX, tokenY); err != nil {
		return model.PoolConfig{}, err
	}
	if err := amm.ValidatePoolID(params.PoolID); err != nil {
		return model.PoolConfig{}, err
	}
	if e.tokens != nil {
		for _, t := range []string{tokenX, tokenY} {
			meta, err := e.tokens.Meta(ctx, t)
			if err != nil {
				return model.PoolConfig{}, err
			}
			if err := amm.ValidatePrecision(meta); err != nil {
				return model.PoolConfig{}, err
			}
		}
	}

	cfg := model.PoolConfig{
		PoolID: params.PoolID,
		TokenX: tokenX,
		TokenY: tokenY,
		FeeBps: params.FeeBps,
		Lock:   model.Unlocked,
	}
	if params.Authority != nil {
		authority := *params.Authority
		cfg.Authority = &authority
	}
	return cfg, nil
}

// Lock disables deposits, withdrawals and swaps on a pool. Only the pool's
// authority may lock it.
func (e *Engine) Lock(ctx context.Context, poolID, caller string) (model.Receipt, error) {
	return e.setLock(ctx, model.OpLock, poolID, caller, model.Locked)
}

// Unlock re-enables a locked pool.
func (e *Engine) Unlock(ctx context.Context, poolID, caller string) (model.Receipt, error) {
	return e.setLock(ctx, model.OpUnlock, poolID, caller, model.Unlocked)
}

func (e *Engine) setLock(ctx context.Context, op model.OpKind, poolID, caller string, lock model.LockState) (model.Receipt, error) {
	return e.execute(ctx, op, poolID, func(ctx context.Context, snapshot model.PoolState) (plan, error) {
		if err := amm.CanModify(snapshot.Config, caller); err != nil {
			return plan{}, err
		}
		next := snapshot
		next.Config.Lock = lock
		return plan{next: next, receipt: model.Receipt{Caller: caller}}, nil
	})
}
