package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	root := &cobra.Command{
		Use:          "poolctl",
		Short:        "Constant-product liquidity pool engine",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	replayCmd := &cobra.Command{
		Use:   "replay",
		Short: "Apply a JSONL request log to the pool engine",
		RunE:  runReplay,
	}

	replayCmd.Flags().String("in", "", "input requests JSONL")
	replayCmd.Flags().String("out", "./data/receipts.jsonl", "output receipts JSONL")
	replayCmd.Flags().String("errors", "./data/errors.jsonl", "rejected requests JSONL")
	replayCmd.Flags().String("state-file", "", "ledger snapshot file for the in-memory ledger")
	replayCmd.Flags().String("pg-dsn", "", "Postgres DSN; replaces the in-memory ledger")
	replayCmd.Flags().String("checkpoint-name", "replay", "checkpoint name in Postgres")
	replayCmd.Flags().String("rpc", "", "RPC URL for ERC-20 decimals lookups")
	replayCmd.Flags().StringSlice("token-decimals", nil, "static token decimals (comma-separated token=decimals)")
	replayCmd.Flags().Int("batch-size", 100, "requests per checkpoint")
	replayCmd.Flags().String("metrics-out", "", "write Prometheus textfile metrics to this path")
	replayCmd.Flags().Int("max-retries", 3, "maximum RPC retry attempts")
	replayCmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial RPC retry backoff")
	replayCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(replayCmd)
	root.AddCommand(newQuoteCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
