package amm

import (
	"errors"
	"testing"

	"github.com/holiman/uint256"
	"pgregory.net/rapid"

	"lpEngine/internal/model"
)

func TestSwapNeverShrinksInvariant(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		reserveIn := rapid.Uint64Range(1, 1<<62).Draw(t, "reserveIn")
		reserveOut := rapid.Uint64Range(1, 1<<62).Draw(t, "reserveOut")
		amountIn := rapid.Uint64Range(1, 1<<62).Draw(t, "amountIn")
		feeBps := rapid.Uint16Range(0, MaxFeeBps).Draw(t, "feeBps")

		out, err := QuoteSwap(amountIn, reserveIn, reserveOut, feeBps)
		if err != nil {
			if !errors.Is(err, ErrSlippageExceeded) {
				t.Fatalf("unexpected error: %v", err)
			}
			return
		}
		if out >= reserveOut {
			t.Fatalf("output %d drains reserve %d", out, reserveOut)
		}

		before := new(uint256.Int).Mul(uint256.NewInt(reserveIn), uint256.NewInt(reserveOut))
		after := new(uint256.Int).Mul(
			new(uint256.Int).Add(uint256.NewInt(reserveIn), uint256.NewInt(amountIn)),
			uint256.NewInt(reserveOut-out),
		)
		if after.Lt(before) {
			t.Fatalf("invariant shrank: %s < %s", after.Dec(), before.Dec())
		}
		if feeBps > 0 && !before.Lt(after) {
			t.Fatalf("invariant did not grow with fee %d: %s", feeBps, after.Dec())
		}
	})
}

func TestDepositThenWithdrawNeverCreatesValue(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		seedX := rapid.Uint64Range(1_000, 1<<40).Draw(t, "seedX")
		seedY := rapid.Uint64Range(1_000, 1<<40).Draw(t, "seedY")
		lp0, err := QuoteFirstDeposit(seedX, seedY)
		if err != nil {
			return
		}
		state, err := ApplyDeposit(model.PoolState{}, seedX, seedY, lp0)
		if err != nil {
			t.Fatalf("apply seed deposit: %v", err)
		}

		amountX := rapid.Uint64Range(1, 1<<40).Draw(t, "amountX")
		amountY := rapid.Uint64Range(1, 1<<40).Draw(t, "amountY")
		lp, err := QuoteDeposit(state, amountX, amountY)
		if err != nil {
			return
		}
		state, err = ApplyDeposit(state, amountX, amountY, lp)
		if err != nil {
			t.Fatalf("apply deposit: %v", err)
		}

		outX, outY, err := QuoteWithdraw(lp, state.Reserves.X, state.Reserves.Y, state.LPSupply)
		if err != nil {
			return
		}
		if outX > amountX || outY > amountY {
			t.Fatalf("withdraw %d/%d exceeds deposit %d/%d", outX, outY, amountX, amountY)
		}
	})
}

func TestDepositScalesLinearly(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		reserveX := rapid.Uint64Range(1_000, 1<<40).Draw(t, "reserveX")
		ratio := rapid.Uint64Range(1, 1_000).Draw(t, "ratio")
		supply := rapid.Uint64Range(1, 1<<40).Draw(t, "supply")
		amountX := rapid.Uint64Range(1, 1<<30).Draw(t, "amountX")
		reserveY := reserveX * ratio

		single, err := QuoteSubsequentDeposit(amountX, amountX*ratio, reserveX, reserveY, supply)
		if err != nil {
			return
		}
		double, err := QuoteSubsequentDeposit(2*amountX, 2*amountX*ratio, reserveX, reserveY, supply)
		if err != nil {
			t.Fatalf("doubled deposit failed: %v", err)
		}
		if double < 2*single || double > 2*single+1 {
			t.Fatalf("doubled deposit minted %d, single %d", double, single)
		}
	})
}

func TestFirstDepositBoundaryProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		x := rapid.Uint64Range(0, 1<<21).Draw(t, "x")
		y := rapid.Uint64Range(0, 1<<21).Draw(t, "y")

		root := new(uint256.Int).Sqrt(new(uint256.Int).Mul(uint256.NewInt(x), uint256.NewInt(y))).Uint64()
		lp, err := QuoteFirstDeposit(x, y)
		if root <= MinimumLiquidity {
			if !errors.Is(err, ErrLiquidityBelowMinimum) {
				t.Fatalf("sqrt %d: expected LiquidityBelowMinimum, got %v", root, err)
			}
			return
		}
		if err != nil || lp != root-MinimumLiquidity {
			t.Fatalf("sqrt %d: got lp %d err %v", root, lp, err)
		}
	})
}
