package amm

import (
	"errors"

	errorsmod "cosmossdk.io/errors"
)

// Codespace groups every pool engine error under one ABCI codespace.
const Codespace = "amm"

// Validation errors. The caller can correct these; they are never retried.
var (
	ErrInvalidAmount    = errorsmod.Register(Codespace, 2, "invalid amount")
	ErrInvalidFee       = errorsmod.Register(Codespace, 3, "fee exceeds maximum allowed")
	ErrInvalidToken     = errorsmod.Register(Codespace, 4, "invalid token")
	ErrInvalidPrecision = errorsmod.Register(Codespace, 5, "invalid token precision")
	ErrInvalidPoolID    = errorsmod.Register(Codespace, 6, "invalid pool id")
)

// State-dependent errors.
var (
	ErrPoolLocked          = errorsmod.Register(Codespace, 10, "pool is locked")
	ErrZeroBalance         = errorsmod.Register(Codespace, 11, "zero balance not allowed")
	ErrInsufficientBalance = errorsmod.Register(Codespace, 12, "insufficient balance")
	ErrPoolNotFound        = errorsmod.Register(Codespace, 13, "pool not found")
	ErrPoolExists          = errorsmod.Register(Codespace, 14, "pool already exists")
	ErrStaleState          = errorsmod.Register(Codespace, 15, "pool state changed since snapshot")
)

// Authorization errors.
var (
	ErrUnauthorized = errorsmod.Register(Codespace, 20, "unauthorized")
	ErrNoAuthority  = errorsmod.Register(Codespace, 21, "no authority set for pool")
)

// Economic and safety errors. Slippage failures are a routine outcome.
var (
	ErrSlippageExceeded      = errorsmod.Register(Codespace, 30, "slippage tolerance exceeded")
	ErrLiquidityBelowMinimum = errorsmod.Register(Codespace, 31, "liquidity below minimum")
	ErrInvariantViolated     = errorsmod.Register(Codespace, 32, "constant product invariant violated")
)

// Arithmetic errors. Unreachable with valid inputs, still checked.
var (
	ErrOverflow  = errorsmod.Register(Codespace, 40, "arithmetic overflow")
	ErrUnderflow = errorsmod.Register(Codespace, 41, "arithmetic underflow")
)

var kinds = []struct {
	name string
	err  *errorsmod.Error
}{
	{"InvalidAmount", ErrInvalidAmount},
	{"InvalidFee", ErrInvalidFee},
	{"InvalidToken", ErrInvalidToken},
	{"InvalidPrecision", ErrInvalidPrecision},
	{"InvalidPoolID", ErrInvalidPoolID},
	{"PoolLocked", ErrPoolLocked},
	{"ZeroBalance", ErrZeroBalance},
	{"InsufficientBalance", ErrInsufficientBalance},
	{"PoolNotFound", ErrPoolNotFound},
	{"PoolExists", ErrPoolExists},
	{"StaleState", ErrStaleState},
	{"Unauthorized", ErrUnauthorized},
	{"NoAuthority", ErrNoAuthority},
	{"SlippageExceeded", ErrSlippageExceeded},
	{"LiquidityBelowMinimum", ErrLiquidityBelowMinimum},
	{"InvariantViolated", ErrInvariantViolated},
	{"Overflow", ErrOverflow},
	{"Underflow", ErrUnderflow},
}

// Kind returns the taxonomy name of err, or "Internal" for errors that do
// not originate from this package.
func Kind(err error) string {
	if err == nil {
		return ""
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.name
		}
	}
	return "Internal"
}

// Code returns the registered ABCI code of err. Foreign errors map to the
// internal code 1.
func Code(err error) uint32 {
	if err == nil {
		return 0
	}
	_, code, _ := errorsmod.ABCIInfo(err, false)
	return code
}
