// Package memory provides the in-process job store.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/vidstream-labs/searchcore/internal/search"
)

// DefaultListLimit caps ListJobs results when no limit is supplied.
const DefaultListLimit = 50

// JobStore is a concurrency-safe in-memory implementation of search.JobStore.
// Jobs are retained for the process lifetime; nothing is pruned.
type JobStore struct {
	mu   sync.RWMutex
	jobs map[string]search.Job
}

// NewJobStore constructs a JobStore.
func NewJobStore() *JobStore {
	return &JobStore{
		jobs: make(map[string]search.Job),
	}
}

// CreateJob stores a new job in pending status.
func (s *JobStore) CreateJob(_ context.Context, job search.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.jobs[job.ID]; exists {
		return search.ErrJobExists
	}
	job.Status = search.JobStatusPending
	s.jobs[job.ID] = job
	return nil
}

// MarkProcessing transitions a pending job to processing and records startedAt.
func (s *JobStore) MarkProcessing(_ context.Context, jobID string, startedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return search.ErrJobNotFound
	}
	if job.Status.IsTerminal() {
		return search.ErrJobTerminal
	}
	job.Status = search.JobStatusProcessing
	job.Started = pointerTime(startedAt)
	s.jobs[jobID] = job
	return nil
}

// MarkCompleted transitions a processing job to completed with its results.
func (s *JobStore) MarkCompleted(_ context.Context, jobID string, results []search.Result, completedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return search.ErrJobNotFound
	}
	if job.Status.IsTerminal() {
		return search.ErrJobTerminal
	}
	job.Status = search.JobStatusCompleted
	job.Results = cloneResults(results)
	job.ErrorText = ""
	job.Completed = pointerTime(completedAt)
	s.jobs[jobID] = job
	return nil
}

// MarkFailed transitions a processing job to failed with an error description.
func (s *JobStore) MarkFailed(_ context.Context, jobID string, errText string, completedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return search.ErrJobNotFound
	}
	if job.Status.IsTerminal() {
		return search.ErrJobTerminal
	}
	job.Status = search.JobStatusFailed
	job.ErrorText = errText
	job.Results = nil
	job.Completed = pointerTime(completedAt)
	s.jobs[jobID] = job
	return nil
}

// GetJob fetches a copy of a job by ID.
func (s *JobStore) GetJob(_ context.Context, jobID string) (search.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return search.Job{}, search.ErrJobNotFound
	}
	return cloneJob(job), nil
}

// ListJobs returns jobs newest-submission-first, optionally filtered by exact
// owner match, truncated to limit. The second return is the total number of
// matching jobs before truncation.
func (s *JobStore) ListJobs(_ context.Context, owner string, limit int) ([]search.Job, int, error) {
	if limit <= 0 || limit > DefaultListLimit {
		limit = DefaultListLimit
	}

	s.mu.RLock()
	matched := make([]search.Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		if owner != "" && job.Owner != owner {
			continue
		}
		matched = append(matched, job)
	}
	s.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].Submitted.Equal(matched[j].Submitted) {
			return matched[i].Submitted.After(matched[j].Submitted)
		}
		return matched[i].ID > matched[j].ID
	})

	total := len(matched)
	if len(matched) > limit {
		matched = matched[:limit]
	}
	out := make([]search.Job, len(matched))
	for i, job := range matched {
		out[i] = cloneJob(job)
	}
	return out, total, nil
}

// DeleteJob removes a job record entirely. The scheduler uses it to undo a
// creation whose enqueue failed, so the store never holds a pending job no
// worker will ever pick up.
func (s *JobStore) DeleteJob(_ context.Context, jobID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[jobID]; !ok {
		return search.ErrJobNotFound
	}
	delete(s.jobs, jobID)
	return nil
}

func cloneJob(job search.Job) search.Job {
	cp := job
	cp.Scope = cloneInt64Slice(job.Scope)
	cp.Results = cloneResults(job.Results)
	return cp
}

func cloneResults(src []search.Result) []search.Result {
	if len(src) == 0 {
		return nil
	}
	dst := make([]search.Result, len(src))
	copy(dst, src)
	return dst
}

func cloneInt64Slice(src []int64) []int64 {
	if len(src) == 0 {
		return nil
	}
	dst := make([]int64, len(src))
	copy(dst, src)
	return dst
}

func pointerTime(t time.Time) *time.Time {
	ts := t
	return &ts
}
