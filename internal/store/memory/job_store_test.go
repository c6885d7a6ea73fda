package memory

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vidstream-labs/searchcore/internal/search"
)

func TestJobStore_CreateAndGetReturnsCopy(t *testing.T) {
	t.Parallel()

	s := NewJobStore()
	ctx := context.Background()
	submitted := time.Unix(100, 0).UTC()

	err := s.CreateJob(ctx, search.Job{
		ID:        "job-1",
		Query:     "python",
		Owner:     "user-7",
		Scope:     []int64{1, 2},
		Submitted: submitted,
	})
	require.NoError(t, err)

	got, err := s.GetJob(ctx, "job-1")
	require.NoError(t, err)
	require.Equal(t, search.JobStatusPending, got.Status)
	require.Equal(t, "python", got.Query)

	// Mutating the returned copy must not leak into the store.
	got.Scope[0] = 99
	got.Query = "mutated"
	again, err := s.GetJob(ctx, "job-1")
	require.NoError(t, err)
	require.Equal(t, int64(1), again.Scope[0])
	require.Equal(t, "python", again.Query)
}

func TestJobStore_DuplicateCreateRejected(t *testing.T) {
	t.Parallel()

	s := NewJobStore()
	ctx := context.Background()
	require.NoError(t, s.CreateJob(ctx, search.Job{ID: "job-1"}))
	require.ErrorIs(t, s.CreateJob(ctx, search.Job{ID: "job-1"}), search.ErrJobExists)
}

func TestJobStore_GetUnknownJob(t *testing.T) {
	t.Parallel()

	s := NewJobStore()
	_, err := s.GetJob(context.Background(), "missing")
	require.ErrorIs(t, err, search.ErrJobNotFound)
}

func TestJobStore_LifecycleTransitions(t *testing.T) {
	t.Parallel()

	s := NewJobStore()
	ctx := context.Background()
	started := time.Unix(200, 0).UTC()
	finished := time.Unix(201, 0).UTC()

	require.NoError(t, s.CreateJob(ctx, search.Job{ID: "job-1", Query: "go"}))
	require.NoError(t, s.MarkProcessing(ctx, "job-1", started))

	job, err := s.GetJob(ctx, "job-1")
	require.NoError(t, err)
	require.Equal(t, search.JobStatusProcessing, job.Status)
	require.NotNil(t, job.Started)
	require.Equal(t, started, *job.Started)
	require.Nil(t, job.Completed)

	results := []search.Result{{VideoID: 1, Title: "Go Basics", RelevanceScore: 0.7, MatchedText: "Go Basics"}}
	require.NoError(t, s.MarkCompleted(ctx, "job-1", results, finished))

	job, err = s.GetJob(ctx, "job-1")
	require.NoError(t, err)
	require.Equal(t, search.JobStatusCompleted, job.Status)
	require.Len(t, job.Results, 1)
	require.Empty(t, job.ErrorText)
	require.NotNil(t, job.Completed)
	require.Equal(t, finished, *job.Completed)
}

func TestJobStore_TerminalJobsAreImmutable(t *testing.T) {
	t.Parallel()

	s := NewJobStore()
	ctx := context.Background()
	now := time.Unix(300, 0).UTC()

	require.NoError(t, s.CreateJob(ctx, search.Job{ID: "job-1"}))
	require.NoError(t, s.MarkProcessing(ctx, "job-1", now))
	require.NoError(t, s.MarkFailed(ctx, "job-1", "executor blew up", now))

	require.ErrorIs(t, s.MarkProcessing(ctx, "job-1", now), search.ErrJobTerminal)
	require.ErrorIs(t, s.MarkCompleted(ctx, "job-1", nil, now), search.ErrJobTerminal)
	require.ErrorIs(t, s.MarkFailed(ctx, "job-1", "again", now), search.ErrJobTerminal)

	job, err := s.GetJob(ctx, "job-1")
	require.NoError(t, err)
	require.Equal(t, search.JobStatusFailed, job.Status)
	require.Equal(t, "executor blew up", job.ErrorText)
	require.Nil(t, job.Results)
}

func TestJobStore_FailureClearsResults(t *testing.T) {
	t.Parallel()

	s := NewJobStore()
	ctx := context.Background()
	now := time.Unix(400, 0).UTC()

	require.NoError(t, s.CreateJob(ctx, search.Job{ID: "job-1"}))
	require.NoError(t, s.MarkProcessing(ctx, "job-1", now))
	require.NoError(t, s.MarkFailed(ctx, "job-1", "broken", now))

	job, err := s.GetJob(ctx, "job-1")
	require.NoError(t, err)
	require.Nil(t, job.Results)
	require.NotEmpty(t, job.ErrorText)
}

func TestJobStore_ListJobsNewestFirstWithOwnerFilter(t *testing.T) {
	t.Parallel()

	s := NewJobStore()
	ctx := context.Background()
	base := time.Unix(1000, 0).UTC()

	for i := 0; i < 5; i++ {
		owner := "alice"
		if i%2 == 1 {
			owner = "bob"
		}
		require.NoError(t, s.CreateJob(ctx, search.Job{
			ID:        fmt.Sprintf("job-%d", i),
			Owner:     owner,
			Submitted: base.Add(time.Duration(i) * time.Second),
		}))
	}

	jobs, total, err := s.ListJobs(ctx, "", 0)
	require.NoError(t, err)
	require.Equal(t, 5, total)
	require.Len(t, jobs, 5)
	require.Equal(t, "job-4", jobs[0].ID)
	require.Equal(t, "job-0", jobs[4].ID)

	jobs, total, err = s.ListJobs(ctx, "bob", 0)
	require.NoError(t, err)
	require.Equal(t, 2, total)
	require.Equal(t, "job-3", jobs[0].ID)
	require.Equal(t, "job-1", jobs[1].ID)
}

func TestJobStore_ListJobsTruncatesToLimit(t *testing.T) {
	t.Parallel()

	s := NewJobStore()
	ctx := context.Background()
	base := time.Unix(2000, 0).UTC()

	for i := 0; i < DefaultListLimit+10; i++ {
		require.NoError(t, s.CreateJob(ctx, search.Job{
			ID:        fmt.Sprintf("job-%03d", i),
			Submitted: base.Add(time.Duration(i) * time.Second),
		}))
	}

	jobs, total, err := s.ListJobs(ctx, "", 0)
	require.NoError(t, err)
	require.Equal(t, DefaultListLimit+10, total)
	require.Len(t, jobs, DefaultListLimit)

	jobs, total, err = s.ListJobs(ctx, "", 3)
	require.NoError(t, err)
	require.Equal(t, DefaultListLimit+10, total)
	require.Len(t, jobs, 3)
	require.Equal(t, fmt.Sprintf("job-%03d", DefaultListLimit+9), jobs[0].ID)
}

func TestJobStore_DeleteJob(t *testing.T) {
	t.Parallel()

	s := NewJobStore()
	ctx := context.Background()

	require.NoError(t, s.CreateJob(ctx, search.Job{ID: "job-1", Submitted: time.Unix(2000, 0).UTC()}))
	require.NoError(t, s.DeleteJob(ctx, "job-1"))

	_, err := s.GetJob(ctx, "job-1")
	require.ErrorIs(t, err, search.ErrJobNotFound)
	require.ErrorIs(t, s.DeleteJob(ctx, "job-1"), search.ErrJobNotFound)
}
