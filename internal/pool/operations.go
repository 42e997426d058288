package pool

import (
	"context"

	"lpEngine/internal/amm"
	"lpEngine/internal/ledger"
	"lpEngine/internal/model"
)

type DepositParams struct {
	PoolID  string
	Caller  string
	AmountX uint64
	AmountY uint64
	MinLP   uint64
}

type WithdrawParams struct {
	PoolID   string
	Caller   string
	LPAmount uint64
	MinX     uint64
	MinY     uint64
}

type SwapParams struct {
	PoolID   string
	Caller   string
	XToY     bool
	AmountIn uint64
	MinOut   uint64
}

// Deposit adds both tokens to the pool and mints LP units to the caller.
// Off-ratio deposits are priced by the scarcer side; the excess of the
// other side stays in the pool.
func (e *Engine) Deposit(ctx context.Context, params DepositParams) (model.Receipt, error) {
	if err := validateDeposit(params); err != nil {
		return model.Receipt{}, e.fail(model.OpDeposit, params.PoolID, err)
	}

	return e.execute(ctx, model.OpDeposit, params.PoolID, func(ctx context.Context, snapshot model.PoolState) (plan, error) {
		if snapshot.Config.IsLocked() {
			return plan{}, amm.ErrPoolLocked.Wrapf("pool %s", params.PoolID)
		}
		if err := e.requireBalance(ctx, snapshot.Config.TokenX, params.Caller, params.AmountX); err != nil {
			return plan{}, err
		}
		if err := e.requireBalance(ctx, snapshot.Config.TokenY, params.Caller, params.AmountY); err != nil {
			return plan{}, err
		}

		lpOut, err := amm.QuoteDeposit(snapshot, params.AmountX, params.AmountY)
		if err != nil {
			return plan{}, err
		}
		if lpOut < params.MinLP {
			return plan{}, amm.ErrSlippageExceeded.Wrapf("lp out %d below minimum %d", lpOut, params.MinLP)
		}

		next, err := amm.ApplyDeposit(snapshot, params.AmountX, params.AmountY, lpOut)
		if err != nil {
			return plan{}, err
		}
		return plan{
			next:      next,
			movements: ledger.Deposit(snapshot, params.Caller, params.AmountX, params.AmountY, lpOut),
			receipt: model.Receipt{
				Caller:   params.Caller,
				AmountX:  params.AmountX,
				AmountY:  params.AmountY,
				LPMinted: lpOut,
			},
		}, nil
	})
}

func validateDeposit(params DepositParams) error {
	if err := requireCaller(params.Caller); err != nil {
		return err
	}
	if params.AmountX == 0 || params.AmountY == 0 {
		return amm.ErrInvalidAmount.Wrapf("deposit amounts %d/%d must be positive", params.AmountX, params.AmountY)
	}
	if params.MinLP == 0 {
		return amm.ErrLiquidityBelowMinimum.Wrap("minimum lp must be positive")
	}
	return nil
}

// Withdraw burns LP units and returns the proportional share of both
// reserves to the caller.
func (e *Engine) Withdraw(ctx context.Context, params WithdrawParams) (model.Receipt, error) {
	if err := requireCaller(params.Caller); err != nil {
		return model.Receipt{}, e.fail(model.OpWithdraw, params.PoolID, err)
	}
	if params.LPAmount == 0 {
		return model.Receipt{}, e.fail(model.OpWithdraw, params.PoolID, amm.ErrInvalidAmount.Wrap("lp amount must be positive"))
	}

	return e.execute(ctx, model.OpWithdraw, params.PoolID, func(ctx context.Context, snapshot model.PoolState) (plan, error) {
		if snapshot.Config.IsLocked() {
			return plan{}, amm.ErrPoolLocked.Wrapf("pool %s", params.PoolID)
		}
		if snapshot.Reserves.X == 0 || snapshot.Reserves.Y == 0 || snapshot.LPSupply == 0 {
			return plan{}, amm.ErrZeroBalance.Wrapf("pool %s is empty", params.PoolID)
		}
		if err := e.requireBalance(ctx, snapshot.LPAsset(), params.Caller, params.LPAmount); err != nil {
			return plan{}, err
		}

		amountX, amountY, err := amm.QuoteWithdraw(params.LPAmount, snapshot.Reserves.X, snapshot.Reserves.Y, snapshot.LPSupply)
		if err != nil {
			return plan{}, err
		}
		if amountX < params.MinX || amountY < params.MinY {
			return plan{}, amm.ErrSlippageExceeded.Wrapf("withdraw %d/%d below minimum %d/%d",
				amountX, amountY, params.MinX, params.MinY)
		}

		next, err := amm.ApplyWithdraw(snapshot, params.LPAmount, amountX, amountY)
		if err != nil {
			return plan{}, err
		}
		return plan{
			next:      next,
			movements: ledger.Withdraw(snapshot, params.Caller, params.LPAmount, amountX, amountY),
			receipt: model.Receipt{
				Caller:   params.Caller,
				AmountX:  amountX,
				AmountY:  amountY,
				LPBurned: params.LPAmount,
			},
		}, nil
	})
}

// Swap trades AmountIn of one token for the other.
func (e *Engine) Swap(ctx context.Context, params SwapParams) (model.Receipt, error) {
	if err := requireCaller(params.Caller); err != nil {
		return model.Receipt{}, e.fail(model.OpSwap, params.PoolID, err)
	}
	if params.AmountIn == 0 || params.MinOut == 0 {
		return model.Receipt{}, e.fail(model.OpSwap, params.PoolID,
			amm.ErrInvalidAmount.Wrapf("amount in %d and min out %d must be positive", params.AmountIn, params.MinOut))
	}

	return e.execute(ctx, model.OpSwap, params.PoolID, func(ctx context.Context, snapshot model.PoolState) (plan, error) {
		if snapshot.Config.IsLocked() {
			return plan{}, amm.ErrPoolLocked.Wrapf("pool %s", params.PoolID)
		}
		reserveIn, reserveOut := snapshot.Reserves.Oriented(params.XToY)
		if reserveIn == 0 || reserveOut == 0 {
			return plan{}, amm.ErrZeroBalance.Wrapf("pool %s reserves %d/%d", params.PoolID, reserveIn, reserveOut)
		}
		tokenIn := snapshot.Config.TokenX
		if !params.XToY {
			tokenIn = snapshot.Config.TokenY
		}
		if err := e.requireBalance(ctx, tokenIn, params.Caller, params.AmountIn); err != nil {
			return plan{}, err
		}

		amountOut, err := amm.QuoteSwap(params.AmountIn, reserveIn, reserveOut, snapshot.Config.FeeBps)
		if err != nil {
			return plan{}, err
		}
		if amountOut < params.MinOut {
			return plan{}, amm.ErrSlippageExceeded.Wrapf("amount out %d below minimum %d", amountOut, params.MinOut)
		}

		next, err := amm.ApplySwap(snapshot, params.XToY, params.AmountIn, amountOut)
		if err != nil {
			return plan{}, err
		}
		return plan{
			next:      next,
			movements: ledger.Swap(snapshot, params.Caller, params.XToY, params.AmountIn, amountOut),
			receipt: model.Receipt{
				Caller:    params.Caller,
				XToY:      params.XToY,
				AmountIn:  params.AmountIn,
				AmountOut: amountOut,
			},
		}, nil
	})
}
