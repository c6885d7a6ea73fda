// Package search defines core types shared across the search pipeline.
package search

import "time"

// JobStatus represents the lifecycle state of a search job.
type JobStatus string

// Job status values held in the job store.
const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// IsTerminal reports whether the status admits no further transitions.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// Result is one scored catalog match produced by the search executor.
type Result struct {
	VideoID        int64   `json:"video_id"`
	Title          string  `json:"title"`
	RelevanceScore float64 `json:"relevance_score"`
	MatchedText    string  `json:"matched_text"`
}

// Job represents the metadata tracked for each submitted search request.
//
// A Job is created pending, owned by exactly one worker while processing, and
// immutable once terminal. Results and ErrorText are mutually exclusive.
type Job struct {
	ID        string     `json:"id"`
	Query     string     `json:"query"`
	Owner     string     `json:"owner,omitempty"`
	Scope     []int64    `json:"scope,omitempty"`
	Status    JobStatus  `json:"status"`
	Submitted time.Time  `json:"submitted_at"`
	Started   *time.Time `json:"started_at,omitempty"`
	Completed *time.Time `json:"completed_at,omitempty"`
	Results   []Result   `json:"results,omitempty"`
	ErrorText string     `json:"error_text,omitempty"`
}

// QueueItem wraps a job ready to run.
type QueueItem struct {
	JobID     string
	Query     string
	Owner     string
	Scope     []int64
	Submitted int64
}
