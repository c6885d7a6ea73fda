package search

import "errors"

// Sentinel errors surfaced across the scheduler and job store.
var (
	// ErrQueryRequired rejects submissions whose query is empty after trimming.
	ErrQueryRequired = errors.New("query required")
	// ErrJobNotFound is returned when a job id is unknown to the store.
	ErrJobNotFound = errors.New("job not found")
	// ErrJobExists is returned when a job id collides on creation.
	ErrJobExists = errors.New("job already exists")
	// ErrJobTerminal is returned on attempts to mutate a completed or failed job.
	ErrJobTerminal = errors.New("job already terminal")
	// ErrQueueClosed is returned by Dequeue once the queue is closed and drained.
	ErrQueueClosed = errors.New("queue closed")
)
