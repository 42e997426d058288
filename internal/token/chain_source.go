package token

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rpc"
	"go.uber.org/zap"

	"lpEngine/internal/amm"
	"lpEngine/internal/model"
)

// ContractCaller is the subset of chain.Client the chain source needs.
type ContractCaller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// ChainSource reads ERC-20 metadata over JSON-RPC.
type ChainSource struct {
	caller ContractCaller
	cache  *MetaCache
	retry  retryPolicy
	logger *zap.Logger
}

// ChainSourceConfig tunes RPC retries.
type ChainSourceConfig struct {
	MaxRetries int
	RetryDelay time.Duration
}

func NewChainSource(caller ContractCaller, cfg ChainSourceConfig, logger *zap.Logger) *ChainSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChainSource{
		caller: caller,
		cache:  NewMetaCache(),
		retry:  retryPolicy{maxRetries: cfg.MaxRetries, baseDelay: cfg.RetryDelay},
		logger: logger,
	}
}

// Meta returns decimals, symbol and name of an ERC-20 token. Only decimals
// is required; symbol and name are best effort.
func (s *ChainSource) Meta(ctx context.Context, token string) (model.TokenMeta, error) {
	token = Normalize(token)
	if !common.IsHexAddress(token) {
		return model.TokenMeta{}, amm.ErrInvalidToken.Wrapf("token %s is not an address", token)
	}
	if meta, ok := s.cache.Get(token); ok {
		return meta, nil
	}
	if s.caller == nil {
		return model.TokenMeta{}, fmt.Errorf("chain client is nil")
	}

	strABI, err := erc20StringABI()
	if err != nil {
		return model.TokenMeta{}, fmt.Errorf("parse erc20 string abi: %w", err)
	}
	b32ABI, err := erc20Bytes32ABI()
	if err != nil {
		return model.TokenMeta{}, fmt.Errorf("parse erc20 bytes32 abi: %w", err)
	}

	address := common.HexToAddress(token)
	meta := model.TokenMeta{Token: token}

	values, err := s.call(ctx, address, strABI, "decimals")
	if err != nil {
		return model.TokenMeta{}, fmt.Errorf("token %s: %w", token, err)
	}
	decimals, ok := values[0].(uint8)
	if !ok {
		return model.TokenMeta{}, fmt.Errorf("token %s: decimals has type %T", token, values[0])
	}
	meta.Decimals = decimals

	meta.Symbol = s.text(ctx, address, strABI, b32ABI, "symbol")
	meta.Name = s.text(ctx, address, strABI, b32ABI, "name")

	s.cache.Set(token, meta)
	return meta, nil
}

func (s *ChainSource) call(ctx context.Context, address common.Address, parsed abi.ABI, method string) ([]interface{}, error) {
	data, err := parsed.Pack(method)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}

	var resp []byte
	err = s.retry.do(ctx, func(ctx context.Context) error {
		out, err := s.caller.CallContract(ctx, ethereum.CallMsg{To: &address, Data: data}, nil)
		if err != nil {
			// A JSON-RPC error response (revert, missing method) will not
			// change on retry; transport failures might.
			var rpcErr rpc.Error
			if errors.As(err, &rpcErr) {
				return permanent(err)
			}
			return err
		}
		resp = out
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}

	values, err := parsed.Unpack(method, resp)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("unpack %s: empty result", method)
	}
	return values, nil
}

// text reads a string method, falling back to the bytes32 variant.
func (s *ChainSource) text(ctx context.Context, address common.Address, strABI, b32ABI abi.ABI, method string) string {
	values, err := s.call(ctx, address, strABI, method)
	if err == nil {
		if v, ok := values[0].(string); ok {
			return v
		}
	}
	values, err = s.call(ctx, address, b32ABI, method)
	if err == nil {
		if v, ok := values[0].([32]byte); ok {
			return string(bytes.TrimRight(v[:], "\x00"))
		}
	}
	s.logger.Debug("token text call failed",
		zap.String("token", address.Hex()),
		zap.String("method", method),
		zap.Error(err),
	)
	return ""
}
