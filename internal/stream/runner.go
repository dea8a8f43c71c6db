package stream

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"poolscope/internal/model"
)

// EventProcessor applies one delivered event to the aggregate state.
type EventProcessor interface {
	ProcessEnvelope(ctx context.Context, env model.EventEnvelope, preload bool) error
}

// RunConfig holds runtime settings for the event stream run.
type RunConfig struct {
	CheckpointPath    string
	CheckpointEnabled bool
	MaxRetries        int
	RetryBackoff      time.Duration
}

// Runner feeds a JSONL event file through the processor. Events for one
// chain apply strictly in file order; chains run concurrently, each on its
// own worker. Two events for the same chain are never in flight at once,
// which also serializes per-pool updates.
type Runner struct {
	cfg        RunConfig
	processor  EventProcessor
	logger     *zap.Logger
	checkpoint *CheckpointStore
	retry      retryPolicy
}

func NewRunner(cfg RunConfig, processor EventProcessor, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		cfg:        cfg,
		processor:  processor,
		logger:     logger,
		checkpoint: NewCheckpointStore(cfg.CheckpointPath, cfg.CheckpointEnabled),
		retry: retryPolicy{
			maxRetries: cfg.MaxRetries,
			baseDelay:  cfg.RetryBackoff,
			logger:     logger,
		},
	}
}

type chainWorker struct {
	events    chan model.EventEnvelope
	processed uint64
}

// Run streams the file to completion or first failure. The per-chain
// processed counts persist as a checkpoint so a rerun skips the applied
// prefix of each chain.
func (r *Runner) Run(ctx context.Context, path string) error {
	if r.processor == nil {
		return fmt.Errorf("processor is nil")
	}

	skip := make(map[uint64]uint64)
	processed := make(map[uint64]uint64)
	if r.checkpoint != nil {
		cp, ok, err := r.checkpoint.Load()
		if err != nil {
			return err
		}
		if ok {
			for chainID, count := range cp.Processed {
				skip[chainID] = count
				processed[chainID] = count
			}
			r.logger.Info("resume from checkpoint", zap.Int("chains", len(cp.Processed)))
		}
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	workers := make(map[uint64]*chainWorker)
	var wg sync.WaitGroup
	var failOnce sync.Once
	var runErr error
	fail := func(err error) {
		failOnce.Do(func() {
			runErr = err
			cancel()
		})
	}

	scanErr := ScanEvents(path, func(env model.EventEnvelope) error {
		if err := runCtx.Err(); err != nil {
			return err
		}
		if skip[env.ChainID] > 0 {
			skip[env.ChainID]--
			return nil
		}

		worker, ok := workers[env.ChainID]
		if !ok {
			worker = &chainWorker{events: make(chan model.EventEnvelope, 256)}
			workers[env.ChainID] = worker
			wg.Add(1)
			go func(chainID uint64, w *chainWorker) {
				defer wg.Done()
				r.runChain(runCtx, chainID, w, fail)
			}(env.ChainID, worker)
		}

		select {
		case worker.events <- env:
			return nil
		case <-runCtx.Done():
			return runCtx.Err()
		}
	})

	for _, worker := range workers {
		close(worker.events)
	}
	wg.Wait()

	total := uint64(0)
	for chainID, worker := range workers {
		processed[chainID] += worker.processed
		total += worker.processed
	}
	// Applied events are already committed to the store, so the checkpoint
	// persists even when the run fails partway; a rerun must not re-apply
	// the committed prefix.
	if r.checkpoint != nil {
		if err := r.checkpoint.Save(processed); err != nil {
			if runErr == nil {
				return err
			}
			r.logger.Warn("checkpoint save failed", zap.Error(err))
		}
	}

	if runErr != nil {
		return runErr
	}
	if scanErr != nil && !errors.Is(scanErr, context.Canceled) {
		return scanErr
	}

	r.logger.Info("stream complete",
		zap.Uint64("events", total),
		zap.Int("chains", len(workers)))
	return nil
}

func (r *Runner) runChain(ctx context.Context, chainID uint64, w *chainWorker, fail func(error)) {
	for env := range w.events {
		if ctx.Err() != nil {
			return
		}
		err := r.retry.do(ctx, func(ctx context.Context) error {
			return r.processor.ProcessEnvelope(ctx, env, false)
		},
			zap.Uint64("chain", chainID),
			zap.String("tx", env.TxHash),
			zap.Uint64("log_index", env.LogIndex))
		if err != nil {
			fail(fmt.Errorf("chain %d: apply %s#%d: %w", chainID, env.TxHash, env.LogIndex, err))
			return
		}
		w.processed++
	}
}
