package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"lpEngine/internal/config"
)

func TestNewTokenSourceWarnsWithoutMetadata(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	source, closeFn, err := newTokenSource(context.Background(), config.ReplayConfig{}, zap.New(core))
	require.NoError(t, err)
	defer closeFn()

	require.Nil(t, source)
	require.Equal(t, 1, logs.FilterMessageSnippet("will not check token precision").Len())
}

func TestNewTokenSourceUsesStaticDecimals(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	source, closeFn, err := newTokenSource(context.Background(), config.ReplayConfig{
		TokenDecimals: map[string]uint8{"usdc": 6},
	}, zap.New(core))
	require.NoError(t, err)
	defer closeFn()

	require.NotNil(t, source)
	require.Zero(t, logs.Len())
	meta, err := source.Meta(context.Background(), "usdc")
	require.NoError(t, err)
	require.Equal(t, uint8(6), meta.Decimals)
}
