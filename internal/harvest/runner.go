// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package harvest drives a resumable harvest: it resumes from the stored
// cursor, streams records from the feed, and commits them in batches
// together with the cursor that follows them.
package harvest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pdiddy/papertrail/internal/feed"
	"github.com/pdiddy/papertrail/internal/metrics"
	"github.com/pdiddy/papertrail/pkg/types"
)

// DefaultFlushThreshold is the batch size that triggers a commit.
const DefaultFlushThreshold = 1000

// Source yields records with their resumable cursor. *feed.Pager
// satisfies it.
type Source interface {
	Next(ctx context.Context) (feed.Item, error)
}

// Positioner is implemented by sources that report the cursor of the next
// unread page. *feed.Pager satisfies it.
type Positioner interface {
	Position() types.Cursor
}

// SourceFactory opens a Source positioned at start.
type SourceFactory func(start types.Cursor) Source

// Checkpointer persists the harvest cursor per category.
type Checkpointer interface {
	// LoadCursor returns false when no cursor was ever saved.
	LoadCursor(ctx context.Context, category string) (types.Cursor, bool, error)
	SaveCursor(ctx context.Context, category string, cursor types.Cursor) error
}

// Sink stores batches. Commit must write the records and the batch cursor
// in one transaction.
type Sink interface {
	Checkpointer
	Commit(ctx context.Context, batch types.Batch) error
}

// RunRecorder is implemented by sinks that keep a history of runs.
type RunRecorder interface {
	StartRun(ctx context.Context, run types.HarvestRun) error
	FinishRun(ctx context.Context, run types.HarvestRun) error
}

// Config controls a Runner.
type Config struct {
	Category       string
	FlushThreshold int
	StartCursor    types.Cursor
}

// Summary reports what a run did.
type Summary struct {
	RunID       uuid.UUID
	Records     int
	Batches     int
	StartCursor types.Cursor
	FinalCursor types.Cursor
	Interrupted bool
}

// Runner is the harvest state machine. A Runner performs a single Run.
type Runner struct {
	cfg       Config
	sink      Sink
	newSource SourceFactory
	logger    *zap.Logger
	now       func() time.Time

	state atomic.Int32
}

// NewRunner builds a Runner.
func NewRunner(cfg Config, sink Sink, newSource SourceFactory, logger *zap.Logger) *Runner {
	if cfg.FlushThreshold <= 0 {
		cfg.FlushThreshold = DefaultFlushThreshold
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		cfg:       cfg,
		sink:      sink,
		newSource: newSource,
		logger:    logger.With(zap.String("category", cfg.Category)),
		now:       time.Now,
	}
}

// State returns the current state.
func (r *Runner) State() State { return State(r.state.Load()) }

func (r *Runner) setState(s State) {
	prev := State(r.state.Swap(int32(s)))
	if prev != s {
		r.logger.Debug("state transition", zap.Stringer("from", prev), zap.Stringer("to", s))
	}
}

// Run harvests until the feed is exhausted, ctx is cancelled, or an error
// occurs.
//
// Cancellation is not an error: the partial batch is committed and Run
// returns a nil error with Summary.Interrupted set. On any other error the
// partial batch is committed first and the error is returned.
func (r *Runner) Run(ctx context.Context) (Summary, error) {
	r.setState(StateResuming)
	start, ok, err := r.sink.LoadCursor(ctx, r.cfg.Category)
	if err != nil {
		r.setState(StateStopped)
		return Summary{}, fmt.Errorf("loading checkpoint: %w", err)
	}
	if !ok {
		start = r.cfg.StartCursor
	}

	sum := Summary{RunID: uuid.New(), StartCursor: start, FinalCursor: start}
	run := types.HarvestRun{
		ID:          sum.RunID,
		Category:    r.cfg.Category,
		StartedAt:   r.now().UTC(),
		StartCursor: start,
		FinalCursor: start,
		Status:      types.RunRunning,
	}
	r.startRun(ctx, run)
	r.logger.Info("harvest resuming",
		zap.String("run_id", sum.RunID.String()),
		zap.Int64("cursor", int64(start)),
		zap.Bool("checkpoint_found", ok),
	)

	src := r.newSource(start)
	batch := types.Batch{Category: r.cfg.Category, Cursor: start}
	flushCtx := context.WithoutCancel(ctx)

	r.setState(StateStreaming)
	for {
		item, err := src.Next(ctx)
		switch {
		case err == nil:
			batch.Add(item.Record, item.Cursor)
			if batch.Len() < r.cfg.FlushThreshold {
				continue
			}
			r.setState(StateFlushing)
			if err := r.flush(flushCtx, &batch, &sum); err != nil {
				return r.finish(flushCtx, run, sum, err)
			}
			r.setState(StateStreaming)

		case errors.Is(err, io.EOF):
			r.setState(StateDraining)
			// Pages whose entries were all skipped yield no items, so only
			// the exhausted source knows the cursor has moved past them.
			if p, ok := src.(Positioner); ok && p.Position() > batch.Cursor {
				batch.Cursor = p.Position()
			}
			return r.finish(flushCtx, run, sum, r.flush(flushCtx, &batch, &sum))

		case ctx.Err() != nil || errors.Is(err, context.Canceled):
			r.setState(StateDraining)
			sum.Interrupted = true
			r.logger.Info("harvest interrupted, draining", zap.Int("pending", batch.Len()))
			return r.finish(flushCtx, run, sum, r.flush(flushCtx, &batch, &sum))

		default:
			r.setState(StateDraining)
			flushErr := r.flush(flushCtx, &batch, &sum)
			harvestErr := fmt.Errorf("harvest %s after cursor %d: %w", r.cfg.Category, sum.FinalCursor, err)
			return r.finish(flushCtx, run, sum, errors.Join(harvestErr, flushErr))
		}
	}
}

// flush commits the batch and its cursor. An empty batch only saves the
// cursor, and only when it moved past the last commit.
func (r *Runner) flush(ctx context.Context, batch *types.Batch, sum *Summary) error {
	if batch.Len() == 0 {
		if batch.Cursor <= sum.FinalCursor {
			return nil
		}
		if err := r.sink.SaveCursor(ctx, batch.Category, batch.Cursor); err != nil {
			return fmt.Errorf("saving cursor %d: %w", batch.Cursor, err)
		}
		r.logger.Info("cursor advanced past skipped entries", zap.Int64("cursor", int64(batch.Cursor)))
		sum.FinalCursor = batch.Cursor
		return nil
	}
	if err := r.sink.Commit(ctx, *batch); err != nil {
		return fmt.Errorf("committing %d records at cursor %d: %w", batch.Len(), batch.Cursor, err)
	}
	metrics.ObserveCommit(r.cfg.Category, batch.Len(), int64(batch.Cursor))
	r.logger.Info("batch committed",
		zap.Int("records", batch.Len()),
		zap.Int64("cursor", int64(batch.Cursor)),
	)
	sum.Records += batch.Len()
	sum.Batches++
	sum.FinalCursor = batch.Cursor
	batch.Reset()
	return nil
}

func (r *Runner) finish(ctx context.Context, run types.HarvestRun, sum Summary, err error) (Summary, error) {
	r.setState(StateStopped)

	finished := r.now().UTC()
	run.FinishedAt = &finished
	run.FinalCursor = sum.FinalCursor
	run.Records = sum.Records
	switch {
	case err != nil:
		run.Status = types.RunFailed
		run.Error = err.Error()
	case sum.Interrupted:
		run.Status = types.RunInterrupted
	default:
		run.Status = types.RunCompleted
	}
	if rec, ok := r.sink.(RunRecorder); ok {
		if recErr := rec.FinishRun(ctx, run); recErr != nil {
			r.logger.Warn("recording run finish", zap.Error(recErr))
		}
	}

	r.logger.Info("harvest stopped",
		zap.String("status", string(run.Status)),
		zap.Int("records", sum.Records),
		zap.Int("batches", sum.Batches),
		zap.Int64("cursor", int64(sum.FinalCursor)),
	)
	return sum, err
}

func (r *Runner) startRun(ctx context.Context, run types.HarvestRun) {
	rec, ok := r.sink.(RunRecorder)
	if !ok {
		return
	}
	if err := rec.StartRun(ctx, run); err != nil {
		r.logger.Warn("recording run start", zap.Error(err))
	}
}
