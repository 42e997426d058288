package replay

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"lpEngine/internal/amm"
	"lpEngine/internal/ledger"
	"lpEngine/internal/model"
	"lpEngine/internal/pool"
	"lpEngine/internal/storage"
	"lpEngine/internal/token"
)

const maxLineBytes = 1 << 20

// RunConfig holds runtime settings for a replay.
type RunConfig struct {
	// BatchSize is the number of requests between journal flushes and
	// checkpoints.
	BatchSize int
	// Stream names the request stream in the ledger. When set, each request
	// carries a ledger.Cursor so the ledger records its seq with the work.
	Stream string
}

// Runner applies a JSONL request stream to an engine in order.
type Runner struct {
	cfg        RunConfig
	engine     *pool.Engine
	funder     ledger.Funder
	journal    storage.Journal
	checkpoint CheckpointStore
	logger     *zap.Logger
}

// Stats summarizes a run.
type Stats struct {
	Applied  int
	Rejected int
	Skipped  int
	LastSeq  uint64
}

func NewRunner(cfg RunConfig, engine *pool.Engine, funder ledger.Funder, journal storage.Journal, checkpoint CheckpointStore, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		cfg:        cfg,
		engine:     engine,
		funder:     funder,
		journal:    journal,
		checkpoint: checkpoint,
		logger:     logger,
	}
}

// RunFile replays the requests in path.
func (r *Runner) RunFile(ctx context.Context, path string) (Stats, error) {
	file, err := os.Open(path)
	if err != nil {
		return Stats{}, fmt.Errorf("open input: %w", err)
	}
	defer file.Close()
	return r.Run(ctx, file)
}

// Run replays requests from in. Rejected operations are journaled and do
// not stop the run; malformed input does.
func (r *Runner) Run(ctx context.Context, in io.Reader) (Stats, error) {
	if r.engine == nil {
		return Stats{}, fmt.Errorf("engine is nil")
	}
	if r.cfg.BatchSize <= 0 {
		return Stats{}, fmt.Errorf("batch size must be greater than zero")
	}

	var stats Stats
	if r.checkpoint != nil {
		seq, ok, err := r.checkpoint.Load(ctx)
		if err != nil {
			return stats, fmt.Errorf("load checkpoint: %w", err)
		}
		if ok {
			stats.LastSeq = seq
			r.logger.Info("resume from checkpoint", zap.Uint64("last_seq", seq))
		}
	}
	resumeAfter := stats.LastSeq

	var (
		receipts []model.Receipt
		failures []model.OperationError
		pending  int
	)
	flush := func() error {
		if pending == 0 {
			return nil
		}
		if r.journal != nil {
			if err := r.journal.PutReceipts(receipts); err != nil {
				return fmt.Errorf("write receipts: %w", err)
			}
			if err := r.journal.PutErrors(failures); err != nil {
				return fmt.Errorf("write errors: %w", err)
			}
		}
		if r.checkpoint != nil {
			if err := r.checkpoint.Save(ctx, stats.LastSeq); err != nil {
				return fmt.Errorf("save checkpoint: %w", err)
			}
		}
		r.logger.Info("batch complete",
			zap.Int("receipts", len(receipts)),
			zap.Int("errors", len(failures)),
			zap.Uint64("last_seq", stats.LastSeq),
		)
		receipts, failures, pending = receipts[:0], failures[:0], 0
		return nil
	}

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)
	var line uint64
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}

		var req model.Request
		if err := json.Unmarshal(raw, &req); err != nil {
			return stats, fmt.Errorf("line %d: parse request: %w", line, err)
		}
		if req.Seq == 0 {
			req.Seq = line
		}
		if req.Seq <= resumeAfter {
			stats.Skipped++
			continue
		}
		if req.Seq <= stats.LastSeq {
			return stats, fmt.Errorf("line %d: seq %d is not after %d", line, req.Seq, stats.LastSeq)
		}

		if err := ctx.Err(); err != nil {
			if ferr := flush(); ferr != nil {
				return stats, ferr
			}
			return stats, err
		}

		opCtx := ctx
		if r.cfg.Stream != "" {
			opCtx = ledger.WithCursor(ctx, ledger.Cursor{Stream: r.cfg.Stream, Seq: req.Seq})
		}
		receipt, err := r.apply(opCtx, req)
		if err != nil {
			stats.Rejected++
			failures = append(failures, model.OperationError{
				Seq:    req.Seq,
				Op:     req.Op,
				PoolID: req.PoolID,
				Kind:   amm.Kind(err),
				Code:   amm.Code(err),
				Error:  err.Error(),
			})
		} else {
			stats.Applied++
			receipt.Seq = req.Seq
			receipts = append(receipts, receipt)
		}
		stats.LastSeq = req.Seq
		pending++

		if pending >= r.cfg.BatchSize {
			if err := flush(); err != nil {
				return stats, err
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return stats, fmt.Errorf("read input: %w", err)
	}
	if err := flush(); err != nil {
		return stats, err
	}
	return stats, nil
}

func (r *Runner) apply(ctx context.Context, req model.Request) (model.Receipt, error) {
	switch req.Op {
	case model.OpInitialize:
		cfg, err := r.engine.Initialize(ctx, pool.InitializeParams{
			PoolID:    req.PoolID,
			TokenX:    req.TokenX,
			TokenY:    req.TokenY,
			FeeBps:    req.FeeBps,
			Authority: req.Authority,
		})
		if err != nil {
			return model.Receipt{}, err
		}
		return model.Receipt{
			Op:     model.OpInitialize,
			PoolID: cfg.PoolID,
			Caller: req.Caller,
			State:  &model.PoolState{Config: cfg},
		}, nil
	case model.OpDeposit:
		return r.engine.Deposit(ctx, pool.DepositParams{
			PoolID:  req.PoolID,
			Caller:  req.Caller,
			AmountX: req.AmountX,
			AmountY: req.AmountY,
			MinLP:   req.MinLP,
		})
	case model.OpWithdraw:
		return r.engine.Withdraw(ctx, pool.WithdrawParams{
			PoolID:   req.PoolID,
			Caller:   req.Caller,
			LPAmount: req.LPAmount,
			MinX:     req.MinX,
			MinY:     req.MinY,
		})
	case model.OpSwap:
		return r.engine.Swap(ctx, pool.SwapParams{
			PoolID:   req.PoolID,
			Caller:   req.Caller,
			XToY:     req.XToY,
			AmountIn: req.AmountIn,
			MinOut:   req.MinOut,
		})
	case model.OpLock:
		return r.engine.Lock(ctx, req.PoolID, req.Caller)
	case model.OpUnlock:
		return r.engine.Unlock(ctx, req.PoolID, req.Caller)
	case model.OpCredit:
		if r.funder == nil {
			return model.Receipt{}, fmt.Errorf("ledger does not accept credits")
		}
		if req.Caller == "" {
			return model.Receipt{}, amm.ErrUnauthorized.Wrap("credit account is empty")
		}
		if req.Amount == 0 {
			return model.Receipt{}, amm.ErrInvalidAmount.Wrap("credit amount must be positive")
		}
		asset := token.Normalize(req.Asset)
		if err := r.funder.Credit(ctx, asset, req.Caller, req.Amount); err != nil {
			return model.Receipt{}, err
		}
		return model.Receipt{Op: model.OpCredit, Caller: req.Caller, Asset: asset, Amount: req.Amount}, nil
	default:
		return model.Receipt{}, amm.ErrInvalidAmount.Wrapf("unknown op %q", req.Op)
	}
}
