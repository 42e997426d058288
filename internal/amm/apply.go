package amm

import (
	"math/bits"

	"lpEngine/internal/model"
)

// ApplyDeposit returns the state after amountX/amountY enter the pool and
// lpOut claim units are minted.
func ApplyDeposit(state model.PoolState, amountX, amountY, lpOut uint64) (model.PoolState, error) {
	var err error
	next := state
	if next.Reserves.X, err = addChecked(state.Reserves.X, amountX); err != nil {
		return state, err
	}
	if next.Reserves.Y, err = addChecked(state.Reserves.Y, amountY); err != nil {
		return state, err
	}
	if next.LPSupply, err = addChecked(state.LPSupply, lpOut); err != nil {
		return state, err
	}
	return next, nil
}

// ApplyWithdraw returns the state after lpAmount is burned and
// amountX/amountY leave the pool.
func ApplyWithdraw(state model.PoolState, lpAmount, amountX, amountY uint64) (model.PoolState, error) {
	var err error
	next := state
	if next.Reserves.X, err = subChecked(state.Reserves.X, amountX); err != nil {
		return state, err
	}
	if next.Reserves.Y, err = subChecked(state.Reserves.Y, amountY); err != nil {
		return state, err
	}
	if next.LPSupply, err = subChecked(state.LPSupply, lpAmount); err != nil {
		return state, err
	}
	return next, nil
}

// ApplySwap returns the state after amountIn enters and amountOut leaves in
// the given direction. The product of the reserves may not decrease.
func ApplySwap(state model.PoolState, xToY bool, amountIn, amountOut uint64) (model.PoolState, error) {
	next := state
	reserveIn, reserveOut := state.Reserves.Oriented(xToY)

	newIn, err := addChecked(reserveIn, amountIn)
	if err != nil {
		return state, err
	}
	newOut, err := subChecked(reserveOut, amountOut)
	if err != nil {
		return state, err
	}
	if xToY {
		next.Reserves = model.Reserves{X: newIn, Y: newOut}
	} else {
		next.Reserves = model.Reserves{X: newOut, Y: newIn}
	}

	if Invariant(next.Reserves).Lt(Invariant(state.Reserves)) {
		return state, ErrInvariantViolated.Wrapf("k shrinks from %s to %s",
			Invariant(state.Reserves).Dec(), Invariant(next.Reserves).Dec())
	}
	return next, nil
}

func addChecked(a, b uint64) (uint64, error) {
	sum, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return 0, ErrOverflow.Wrapf("%d + %d", a, b)
	}
	return sum, nil
}

func subChecked(a, b uint64) (uint64, error) {
	if b > a {
		return 0, ErrUnderflow.Wrapf("%d - %d", a, b)
	}
	return a - b, nil
}
