// Package worker implements the search job execution loop.
package worker

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/vidstream-labs/searchcore/internal/metrics"
	"github.com/vidstream-labs/searchcore/internal/search"
)

// Worker consumes queue items and executes searches against the injected
// executor. Each dequeued job is owned by exactly one worker; no other
// goroutine mutates its record while it runs.
type Worker struct {
	queue    search.Queue
	jobStore search.JobStore
	executor search.Executor
	clock    search.Clock
	logger   *zap.Logger
}

// New constructs a Worker.
func New(
	queue search.Queue,
	jobStore search.JobStore,
	executor search.Executor,
	clock search.Clock,
	logger *zap.Logger,
) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Worker{
		queue:    queue,
		jobStore: jobStore,
		executor: executor,
		clock:    clock,
		logger:   logger,
	}
}

// Run blocks, consuming queue items until the context finishes or the queue
// is closed. A drained worker finishes its in-flight job; jobs still queued
// stay pending.
func (w *Worker) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		item, err := w.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, search.ErrQueueClosed) {
				return
			}
			w.logger.Error("queue dequeue failed", zap.Error(err))
			continue
		}
		w.logger.Debug("dequeued job", zap.String("job_id", item.JobID))
		w.processJob(ctx, item)
	}
}

func (w *Worker) processJob(ctx context.Context, item search.QueueItem) {
	metrics.WorkerStarted()
	defer metrics.WorkerFinished()

	started := w.clock.Now()
	if err := w.jobStore.MarkProcessing(ctx, item.JobID, started); err != nil {
		w.logger.Error("mark processing failed", zap.String("job_id", item.JobID), zap.Error(err))
		return
	}

	results, err := w.runSearch(ctx, item)
	finished := w.clock.Now()

	if err != nil {
		// The failure is contained to this job; the loop keeps pulling.
		if storeErr := w.jobStore.MarkFailed(ctx, item.JobID, err.Error(), finished); storeErr != nil {
			w.logger.Error("mark failed failed", zap.String("job_id", item.JobID), zap.Error(storeErr))
		}
		metrics.ObserveJob(string(search.JobStatusFailed), finished.Sub(started))
		w.logger.Warn("job failed",
			zap.String("job_id", item.JobID),
			zap.String("query", item.Query),
			zap.Error(err),
		)
		return
	}

	if storeErr := w.jobStore.MarkCompleted(ctx, item.JobID, results, finished); storeErr != nil {
		w.logger.Error("mark completed failed", zap.String("job_id", item.JobID), zap.Error(storeErr))
		return
	}
	metrics.ObserveJob(string(search.JobStatusCompleted), finished.Sub(started))
	w.logger.Info("job completed",
		zap.String("job_id", item.JobID),
		zap.String("query", item.Query),
		zap.Int("results", len(results)),
	)
}

// runSearch invokes the executor, converting a panic into a per-job failure
// so a misbehaving executor never kills the worker loop.
func (w *Worker) runSearch(ctx context.Context, item search.QueueItem) (results []search.Result, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			results = nil
			err = fmt.Errorf("executor panic: %v", rec)
		}
	}()
	results, err = w.executor.Search(ctx, item.Query, item.Scope)
	if err != nil {
		return nil, fmt.Errorf("execute search: %w", err)
	}
	return results, nil
}
