package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	queueMemory "github.com/vidstream-labs/searchcore/internal/queue/memory"
	"github.com/vidstream-labs/searchcore/internal/search"
	storeMemory "github.com/vidstream-labs/searchcore/internal/store/memory"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

type fakeExecutor struct {
	mu      sync.Mutex
	queries []string
	results map[string][]search.Result
	errs    map[string]error
	panics  map[string]bool
}

func newFakeExecutor() *fakeExecutor {
	return &fakeExecutor{
		results: make(map[string][]search.Result),
		errs:    make(map[string]error),
		panics:  make(map[string]bool),
	}
}

func (e *fakeExecutor) Search(_ context.Context, query string, _ []int64) ([]search.Result, error) {
	e.mu.Lock()
	e.queries = append(e.queries, query)
	e.mu.Unlock()
	if e.panics[query] {
		panic("executor exploded")
	}
	if err := e.errs[query]; err != nil {
		return nil, err
	}
	return e.results[query], nil
}

func (e *fakeExecutor) seenQueries() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, len(e.queries))
	copy(out, e.queries)
	return out
}

func enqueueJob(t *testing.T, store *storeMemory.JobStore, queue *queueMemory.Queue, id, query string) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, store.CreateJob(ctx, search.Job{ID: id, Query: query, Submitted: time.Unix(1, 0)}))
	require.NoError(t, queue.Enqueue(ctx, search.QueueItem{JobID: id, Query: query}))
}

func jobStatus(store *storeMemory.JobStore, id string) search.JobStatus {
	job, err := store.GetJob(context.Background(), id)
	if err != nil {
		return ""
	}
	return job.Status
}

func TestWorker_CompletesJobWithResults(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := storeMemory.NewJobStore()
	queue := queueMemory.NewQueue(4)
	executor := newFakeExecutor()
	executor.results["python"] = []search.Result{
		{VideoID: 1, Title: "Python Basics", RelevanceScore: 0.7, MatchedText: "Python Basics"},
	}

	enqueueJob(t, store, queue, "job-ok", "python")

	w := New(queue, store, executor, &fakeClock{now: time.Unix(500, 0).UTC()}, zap.NewNop())
	go w.Run(ctx)

	require.Eventually(t, func() bool {
		return jobStatus(store, "job-ok") == search.JobStatusCompleted
	}, time.Second, 10*time.Millisecond)

	job, err := store.GetJob(context.Background(), "job-ok")
	require.NoError(t, err)
	require.Len(t, job.Results, 1)
	require.Equal(t, "Python Basics", job.Results[0].Title)
	require.Greater(t, job.Results[0].RelevanceScore, 0.0)
	require.Empty(t, job.ErrorText)
	require.NotNil(t, job.Started)
	require.NotNil(t, job.Completed)
}

func TestWorker_ExecutorFailureFailsOnlyThatJob(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := storeMemory.NewJobStore()
	queue := queueMemory.NewQueue(4)
	executor := newFakeExecutor()
	executor.errs["broken"] = errors.New("catalog unavailable")
	executor.results["healthy"] = []search.Result{{VideoID: 2, Title: "Go", RelevanceScore: 0.5, MatchedText: "Go"}}

	enqueueJob(t, store, queue, "job-bad", "broken")
	enqueueJob(t, store, queue, "job-good", "healthy")

	w := New(queue, store, executor, &fakeClock{now: time.Unix(600, 0).UTC()}, zap.NewNop())
	go w.Run(ctx)

	require.Eventually(t, func() bool {
		return jobStatus(store, "job-good") == search.JobStatusCompleted
	}, time.Second, 10*time.Millisecond)

	failed, err := store.GetJob(context.Background(), "job-bad")
	require.NoError(t, err)
	require.Equal(t, search.JobStatusFailed, failed.Status)
	require.Contains(t, failed.ErrorText, "catalog unavailable")
	require.Nil(t, failed.Results)
}

func TestWorker_ExecutorPanicIsContained(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := storeMemory.NewJobStore()
	queue := queueMemory.NewQueue(4)
	executor := newFakeExecutor()
	executor.panics["boom"] = true
	executor.results["after"] = nil

	enqueueJob(t, store, queue, "job-panic", "boom")
	enqueueJob(t, store, queue, "job-after", "after")

	w := New(queue, store, executor, &fakeClock{now: time.Unix(700, 0).UTC()}, zap.NewNop())
	go w.Run(ctx)

	require.Eventually(t, func() bool {
		return jobStatus(store, "job-after") == search.JobStatusCompleted
	}, time.Second, 10*time.Millisecond)

	job, err := store.GetJob(context.Background(), "job-panic")
	require.NoError(t, err)
	require.Equal(t, search.JobStatusFailed, job.Status)
	require.Contains(t, job.ErrorText, "executor panic")
}

func TestWorker_SingleWorkerProcessesFIFO(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := storeMemory.NewJobStore()
	queue := queueMemory.NewQueue(4)
	executor := newFakeExecutor()

	enqueueJob(t, store, queue, "job-a", "first")
	enqueueJob(t, store, queue, "job-b", "second")

	w := New(queue, store, executor, &fakeClock{now: time.Unix(800, 0).UTC()}, zap.NewNop())
	go w.Run(ctx)

	require.Eventually(t, func() bool {
		return jobStatus(store, "job-b") == search.JobStatusCompleted
	}, time.Second, 10*time.Millisecond)

	require.Equal(t, []string{"first", "second"}, executor.seenQueries())
}

func TestWorker_StopsOnContextCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	store := storeMemory.NewJobStore()
	queue := queueMemory.NewQueue(1)
	w := New(queue, store, newFakeExecutor(), &fakeClock{now: time.Unix(900, 0).UTC()}, zap.NewNop())

	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop after cancel")
	}
}

func TestWorker_StopsWhenQueueCloses(t *testing.T) {
	t.Parallel()

	store := storeMemory.NewJobStore()
	queue := queueMemory.NewQueue(1)
	w := New(queue, store, newFakeExecutor(), &fakeClock{now: time.Unix(900, 0).UTC()}, zap.NewNop())

	done := make(chan struct{})
	go func() {
		w.Run(context.Background())
		close(done)
	}()

	// Closing the queue must terminate the loop, not spin it on errors.
	queue.Close()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop after queue close")
	}
}
