package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"lpEngine/internal/chain"
	"lpEngine/internal/config"
	"lpEngine/internal/ledger"
	"lpEngine/internal/metrics"
	"lpEngine/internal/pool"
	"lpEngine/internal/replay"
	"lpEngine/internal/storage"
	"lpEngine/internal/storage/postgres"
	"lpEngine/internal/token"
)

func runReplay(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadReplay(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tokens, closeTokens, err := newTokenSource(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeTokens()

	var (
		host       ledger.Ledger
		funder     ledger.Funder
		checkpoint replay.CheckpointStore
	)
	if cfg.PGDSN != "" {
		store, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer store.Close()
		if err := store.Migrate(ctx); err != nil {
			return err
		}
		host, funder = store, store
		checkpoint = &replay.LedgerCheckpoint{Positions: store, Name: cfg.CheckpointName}
	} else {
		mem := ledger.NewMemory()
		host, funder = mem, mem
		if cfg.StateFile != "" {
			checkpoint = &replay.SnapshotCheckpoint{Store: &ledger.FileSnapshotStore{Path: cfg.StateFile}, Ledger: mem}
		}
	}

	var m *metrics.Metrics
	if cfg.MetricsOut != "" {
		m = metrics.New()
	}

	engine := pool.NewEngine(host, pool.Config{Tokens: tokens, Metrics: m}, logger)
	journal := storage.NewJsonlJournal(cfg.Receipts, cfg.Errors)
	runner := replay.NewRunner(replay.RunConfig{BatchSize: cfg.BatchSize, Stream: cfg.CheckpointName}, engine, funder, journal, checkpoint, logger)

	logger.Info("replay start",
		zap.String("in", cfg.Input),
		zap.String("out", cfg.Receipts),
		zap.String("errors", cfg.Errors),
		zap.Bool("postgres", cfg.PGDSN != ""),
		zap.String("state_file", cfg.StateFile),
		zap.Bool("chain_tokens", cfg.RPCURL != ""),
		zap.Int("static_tokens", len(cfg.TokenDecimals)),
		zap.Int("batch_size", cfg.BatchSize),
	)

	stats, runErr := runner.RunFile(ctx, cfg.Input)
	if err := m.WriteTextfile(cfg.MetricsOut); err != nil {
		logger.Warn("write metrics failed", zap.String("path", cfg.MetricsOut), zap.Error(err))
	}
	if runErr != nil {
		return runErr
	}

	logger.Info("replay complete",
		zap.Int("applied", stats.Applied),
		zap.Int("rejected", stats.Rejected),
		zap.Int("skipped", stats.Skipped),
		zap.Uint64("last_seq", stats.LastSeq),
	)
	return nil
}

// newTokenSource picks the token metadata source for Initialize. With
// neither an RPC URL nor static decimals it returns nil and warns, since
// precision is then unchecked.
func newTokenSource(ctx context.Context, cfg config.ReplayConfig, logger *zap.Logger) (token.MetaSource, func(), error) {
	switch {
	case cfg.RPCURL != "":
		chainClient, err := chain.NewClient(ctx, cfg.RPCURL)
		if err != nil {
			return nil, nil, fmt.Errorf("connect rpc: %w", err)
		}
		chainID, err := chainClient.ChainID(ctx)
		if err != nil {
			chainClient.Close()
			return nil, nil, fmt.Errorf("fetch chain id: %w", err)
		}
		logger.Info("rpc connected", zap.String("chain_id", chainID.String()))
		source := token.NewChainSource(chainClient, token.ChainSourceConfig{
			MaxRetries: cfg.MaxRetries,
			RetryDelay: cfg.RetryBackoff,
		}, logger)
		return source, chainClient.Close, nil
	case len(cfg.TokenDecimals) > 0:
		return token.NewStaticSource(cfg.TokenDecimals), func() {}, nil
	default:
		logger.Warn("no token metadata source; initialize will not check token precision",
			zap.String("hint", "set --rpc or --token-decimals"))
		return nil, func() {}, nil
	}
}
