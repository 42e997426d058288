package amm

import (
	"github.com/holiman/uint256"

	"lpEngine/internal/model"
)

// Quote functions are pure: they read only their arguments and compute in
// 256-bit intermediates, narrowing back to uint64 with an explicit check.

// QuoteFirstDeposit returns the LP units minted into an empty pool:
// floor(sqrt(amountX*amountY)) - MinimumLiquidity.
func QuoteFirstDeposit(amountX, amountY uint64) (uint64, error) {
	product := new(uint256.Int).Mul(uint256.NewInt(amountX), uint256.NewInt(amountY))
	root := new(uint256.Int).Sqrt(product)
	if !root.IsUint64() {
		return 0, ErrOverflow.Wrap("sqrt of deposit product")
	}

	lp := root.Uint64()
	if lp <= MinimumLiquidity {
		return 0, ErrLiquidityBelowMinimum.Wrapf("geometric mean %d does not exceed %d", lp, MinimumLiquidity)
	}
	return lp - MinimumLiquidity, nil
}

// QuoteSubsequentDeposit returns min(amountX*supply/reserveX,
// amountY*supply/reserveY). The excess of the better-priced side is not
// refunded.
func QuoteSubsequentDeposit(amountX, amountY, reserveX, reserveY, supply uint64) (uint64, error) {
	if reserveX == 0 || reserveY == 0 {
		return 0, ErrZeroBalance.Wrapf("reserves %d/%d", reserveX, reserveY)
	}
	if supply == 0 {
		return 0, ErrZeroBalance.Wrap("lp supply is zero")
	}

	lpFromX := mulDiv(amountX, supply, reserveX)
	lpFromY := mulDiv(amountY, supply, reserveY)
	lp := lpFromX
	if lpFromY.Lt(lpFromX) {
		lp = lpFromY
	}

	if !lp.IsUint64() {
		return 0, ErrOverflow.Wrapf("lp amount %s exceeds 64 bits", lp.Dec())
	}
	if lp.IsZero() {
		return 0, ErrLiquidityBelowMinimum.Wrap("deposit mints zero lp")
	}
	return lp.Uint64(), nil
}

// QuoteDeposit dispatches to the first or subsequent deposit formula
// depending on whether the snapshot is empty.
func QuoteDeposit(state model.PoolState, amountX, amountY uint64) (uint64, error) {
	if state.Reserves.IsEmpty() {
		if state.LPSupply != 0 {
			return 0, ErrZeroBalance.Wrapf("empty reserves with lp supply %d", state.LPSupply)
		}
		return QuoteFirstDeposit(amountX, amountY)
	}
	return QuoteSubsequentDeposit(amountX, amountY, state.Reserves.X, state.Reserves.Y, state.LPSupply)
}

// QuoteWithdraw returns the proportional share of both reserves redeemed by
// lpAmount claim units.
func QuoteWithdraw(lpAmount, reserveX, reserveY, supply uint64) (uint64, uint64, error) {
	if supply == 0 {
		return 0, 0, ErrZeroBalance.Wrap("lp supply is zero")
	}
	if lpAmount > supply {
		return 0, 0, ErrInsufficientBalance.Wrapf("lp amount %d exceeds supply %d", lpAmount, supply)
	}

	// lpAmount <= supply, so both results fit in 64 bits.
	amountX := mulDiv(lpAmount, reserveX, supply).Uint64()
	amountY := mulDiv(lpAmount, reserveY, supply).Uint64()
	if amountX == 0 || amountY == 0 {
		return 0, 0, ErrLiquidityBelowMinimum.Wrapf("withdraw yields %d/%d", amountX, amountY)
	}
	return amountX, amountY, nil
}

// QuoteSwap returns the output of trading amountIn against the reserves:
//
//	in' = amountIn * (FeeDenom - feeBps)
//	out = floor(in' * reserveOut / (reserveIn*FeeDenom + in'))
func QuoteSwap(amountIn, reserveIn, reserveOut uint64, feeBps uint16) (uint64, error) {
	if feeBps > FeeDenom {
		return 0, ErrUnderflow.Wrapf("fee %d exceeds denominator", feeBps)
	}
	if reserveIn == 0 || reserveOut == 0 {
		return 0, ErrZeroBalance.Wrapf("reserves %d/%d", reserveIn, reserveOut)
	}

	denom := uint256.NewInt(FeeDenom)
	inAfterFee := new(uint256.Int).Mul(uint256.NewInt(amountIn), uint256.NewInt(uint64(FeeDenom-feeBps)))
	numerator := new(uint256.Int).Mul(inAfterFee, uint256.NewInt(reserveOut))
	denominator := new(uint256.Int).Mul(uint256.NewInt(reserveIn), denom)
	denominator.Add(denominator, inAfterFee)

	out := new(uint256.Int).Div(numerator, denominator)
	// out < reserveOut always holds, so it fits in 64 bits.
	if out.IsZero() {
		return 0, ErrSlippageExceeded.Wrap("swap yields zero output")
	}
	return out.Uint64(), nil
}

// Invariant returns reserveX*reserveY.
func Invariant(r model.Reserves) *uint256.Int {
	return new(uint256.Int).Mul(uint256.NewInt(r.X), uint256.NewInt(r.Y))
}

func mulDiv(a, b, d uint64) *uint256.Int {
	product := new(uint256.Int).Mul(uint256.NewInt(a), uint256.NewInt(b))
	return product.Div(product, uint256.NewInt(d))
}
