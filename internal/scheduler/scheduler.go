// Package scheduler decouples search submission from execution.
package scheduler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/vidstream-labs/searchcore/internal/search"
)

const enqueueTimeout = 5 * time.Second

// Scheduler accepts search requests, assigns ids, and queues them for the
// worker pool. Job state lives in the store; the scheduler never blocks on
// job execution.
type Scheduler struct {
	store  search.JobStore
	queue  search.Queue
	idGen  search.IDGenerator
	clock  search.Clock
	logger *zap.Logger
}

// New constructs a Scheduler.
func New(
	store search.JobStore,
	queue search.Queue,
	idGen search.IDGenerator,
	clock search.Clock,
	logger *zap.Logger,
) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		store:  store,
		queue:  queue,
		idGen:  idGen,
		clock:  clock,
		logger: logger,
	}
}

// Submit validates the query, creates a pending job, and enqueues it.
// The returned id is valid for GetJob before any worker picks the job up.
func (s *Scheduler) Submit(ctx context.Context, query, owner string, scope []int64) (string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return "", search.ErrQueryRequired
	}

	jobID, err := s.idGen.NewID()
	if err != nil {
		return "", fmt.Errorf("generate job id: %w", err)
	}
	now := s.clock.Now()
	job := search.Job{
		ID:        jobID,
		Query:     query,
		Owner:     owner,
		Scope:     scope,
		Status:    search.JobStatusPending,
		Submitted: now,
	}
	// The job must exist in the store before it hits the queue so a worker
	// never dequeues an id it cannot look up.
	if err := s.store.CreateJob(ctx, job); err != nil {
		return "", fmt.Errorf("create job: %w", err)
	}

	queueCtx, cancel := context.WithTimeout(ctx, enqueueTimeout)
	defer cancel()
	item := search.QueueItem{
		JobID:     jobID,
		Query:     query,
		Owner:     owner,
		Scope:     scope,
		Submitted: now.Unix(),
	}
	if err := s.queue.Enqueue(queueCtx, item); err != nil {
		// Undo the creation: a job that never reached the queue would sit
		// pending forever with no worker to move it.
		if delErr := s.store.DeleteJob(context.WithoutCancel(ctx), jobID); delErr != nil {
			s.logger.Error("delete unqueued job failed",
				zap.String("job_id", jobID), zap.Error(delErr))
		}
		return "", fmt.Errorf("enqueue job: %w", err)
	}
	s.logger.Debug("job submitted", zap.String("job_id", jobID), zap.String("owner", owner))
	return jobID, nil
}

// GetJob returns the current state of a job without blocking on execution.
func (s *Scheduler) GetJob(ctx context.Context, jobID string) (search.Job, error) {
	return s.store.GetJob(ctx, jobID)
}

// ListJobs returns jobs newest-first, optionally filtered by owner,
// truncated to limit, plus the total matching count.
func (s *Scheduler) ListJobs(ctx context.Context, owner string, limit int) ([]search.Job, int, error) {
	return s.store.ListJobs(ctx, owner, limit)
}
