package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"
)

func replayFlags() *pflag.FlagSet {
	flags := pflag.NewFlagSet("replay", pflag.ContinueOnError)
	flags.String("in", "", "")
	flags.String("out", "./data/receipts.jsonl", "")
	flags.StringSlice("token-decimals", nil, "")
	flags.Int("batch-size", 100, "")
	flags.String("log-level", "info", "")
	return flags
}

func TestLoadReplayPrecedence(t *testing.T) {
	dir := t.TempDir()
	cfgFile := filepath.Join(dir, "poolctl.yaml")
	require.NoError(t, os.WriteFile(cfgFile, []byte("in: from-file.jsonl\nbatch-size: 7\nretry-backoff: 2s\n"), 0o644))

	t.Setenv("POOLCTL_LOG_LEVEL", "debug")

	flags := replayFlags()
	require.NoError(t, flags.Parse([]string{"--in", "from-flag.jsonl", "--token-decimals", "usdc=6,weth=9"}))

	cfg, err := LoadReplay(cfgFile, flags)
	require.NoError(t, err)
	require.Equal(t, "from-flag.jsonl", cfg.Input)
	require.Equal(t, 7, cfg.BatchSize)
	require.Equal(t, "debug", cfg.LogLevel)
	require.Equal(t, 2*time.Second, cfg.RetryBackoff)
	require.Equal(t, map[string]uint8{"usdc": 6, "weth": 9}, cfg.TokenDecimals)
	require.Equal(t, "replay", cfg.CheckpointName)
	require.NoError(t, cfg.Validate())
}

func TestReplayConfigValidate(t *testing.T) {
	require.Error(t, ReplayConfig{BatchSize: 1}.Validate())
	require.Error(t, ReplayConfig{Input: "in", BatchSize: 0}.Validate())
	require.Error(t, ReplayConfig{Input: "in", BatchSize: 1, PGDSN: "postgres://", StateFile: "s.json"}.Validate())
	require.Error(t, ReplayConfig{Input: "in", BatchSize: 1, RPCURL: "http://x", TokenDecimals: map[string]uint8{"a": 1}}.Validate())
}

func TestParseTokenDecimals(t *testing.T) {
	got, err := ParseTokenDecimals([]string{"usdc=6", " wbtc = 8 "})
	require.NoError(t, err)
	require.Equal(t, map[string]uint8{"usdc": 6, "wbtc": 8}, got)

	_, err = ParseTokenDecimals([]string{"usdc"})
	require.Error(t, err)
	_, err = ParseTokenDecimals([]string{"usdc=300"})
	require.Error(t, err)
}
