package amm

import (
	"strings"

	"lpEngine/internal/model"
)

// ValidateFee rejects fees above MaxFeeBps.
func ValidateFee(feeBps uint16) error {
	if feeBps > MaxFeeBps {
		return ErrInvalidFee.Wrapf("fee %d bps exceeds %d", feeBps, MaxFeeBps)
	}
	return nil
}

// ValidateTokens requires two non-empty, distinct token identifiers.
// Callers normalize identifiers first.
func ValidateTokens(tokenX, tokenY string) error {
	if tokenX == "" || tokenY == "" {
		return ErrInvalidToken.Wrap("token identifier is empty")
	}
	if tokenX == tokenY {
		return ErrInvalidToken.Wrapf("token x and token y are both %s", tokenX)
	}
	return nil
}

// ValidatePrecision rejects tokens with more than MaxTokenDecimals decimals.
func ValidatePrecision(meta model.TokenMeta) error {
	if meta.Decimals > MaxTokenDecimals {
		return ErrInvalidPrecision.Wrapf("token %s has %d decimals, max %d", meta.Token, meta.Decimals, MaxTokenDecimals)
	}
	return nil
}

// ValidatePoolID rejects blank pool ids.
func ValidatePoolID(poolID string) error {
	if strings.TrimSpace(poolID) == "" {
		return ErrInvalidPoolID.Wrap("pool id is empty")
	}
	return nil
}

// CanModify checks that caller is the pool's authority.
func CanModify(cfg model.PoolConfig, caller string) error {
	if cfg.Authority == nil {
		return ErrNoAuthority.Wrapf("pool %s", cfg.PoolID)
	}
	if *cfg.Authority != caller {
		return ErrUnauthorized.Wrapf("caller %s is not the authority of pool %s", caller, cfg.PoolID)
	}
	return nil
}
