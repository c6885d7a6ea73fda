package search

import (
	"context"
	"time"
)

// JobStore tracks job lifecycle state. Implementations own the Job records;
// callers always receive copies.
type JobStore interface {
	CreateJob(ctx context.Context, job Job) error
	MarkProcessing(ctx context.Context, jobID string, startedAt time.Time) error
	MarkCompleted(ctx context.Context, jobID string, results []Result, completedAt time.Time) error
	MarkFailed(ctx context.Context, jobID string, errText string, completedAt time.Time) error
	GetJob(ctx context.Context, jobID string) (Job, error)
	ListJobs(ctx context.Context, owner string, limit int) ([]Job, int, error)
	DeleteJob(ctx context.Context, jobID string) error
}

// Queue provides FIFO enqueue/dequeue semantics for search jobs.
type Queue interface {
	Enqueue(ctx context.Context, item QueueItem) error
	Dequeue(ctx context.Context) (QueueItem, error)
}

// Executor runs one search and returns scored matches ordered by relevance.
// The pipeline is agnostic to its ranking algorithm.
type Executor interface {
	Search(ctx context.Context, query string, scope []int64) ([]Result, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces job IDs (UUIDs).
type IDGenerator interface {
	NewID() (string, error)
}
