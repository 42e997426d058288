package token

import (
	"context"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"lpEngine/internal/amm"
	"lpEngine/internal/model"
)

// Normalize trims id and renders hex addresses in checksum form, so the
// same token always compares equal.
func Normalize(id string) string {
	id = strings.TrimSpace(id)
	if common.IsHexAddress(id) {
		return common.HexToAddress(id).Hex()
	}
	return id
}

// MetaSource resolves token metadata.
type MetaSource interface {
	Meta(ctx context.Context, token string) (model.TokenMeta, error)
}

// StaticSource serves decimals from configuration. Keys are normalized on
// construction.
type StaticSource struct {
	decimals map[string]uint8
}

func NewStaticSource(decimals map[string]uint8) *StaticSource {
	s := &StaticSource{decimals: make(map[string]uint8, len(decimals))}
	for token, d := range decimals {
		s.decimals[Normalize(token)] = d
	}
	return s
}

func (s *StaticSource) Meta(ctx context.Context, token string) (model.TokenMeta, error) {
	token = Normalize(token)
	d, ok := s.decimals[token]
	if !ok {
		return model.TokenMeta{}, amm.ErrInvalidToken.Wrapf("no metadata for token %s", token)
	}
	return model.TokenMeta{Token: token, Decimals: d}, nil
}

// MetaCache caches token metadata by normalized id.
type MetaCache struct {
	mu   sync.RWMutex
	data map[string]model.TokenMeta
}

func NewMetaCache() *MetaCache {
	return &MetaCache{data: make(map[string]model.TokenMeta)}
}

func (c *MetaCache) Get(token string) (model.TokenMeta, bool) {
	c.mu.RLock()
	meta, ok := c.data[token]
	c.mu.RUnlock()
	return meta, ok
}

func (c *MetaCache) Set(token string, meta model.TokenMeta) {
	c.mu.Lock()
	c.data[token] = meta
	c.mu.Unlock()
}
