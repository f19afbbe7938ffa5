package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Lifecycle events published on Options.Events.
const (
	EventEnqueued  = "job.enqueued"
	EventCompleted = "job.completed"
	EventRetrying  = "job.retrying"
	EventFailed    = "job.failed"
)

var (
	// ErrQueueFull is returned when the in-memory queue has no free slot.
	ErrQueueFull = errors.New("jobs: queue full")

	// ErrClosed is returned when enqueueing on a stopped manager.
	ErrClosed = errors.New("jobs: manager closed")

	// ErrAlreadyStarted is returned when Start is called twice.
	ErrAlreadyStarted = errors.New("jobs: manager already started")

	// ErrNoHandler is returned when no handler is registered for a job type.
	ErrNoHandler = errors.New("jobs: no handler registered")

	// ErrInvalidJob is returned when a job lacks a type.
	ErrInvalidJob = errors.New("jobs: invalid job")
)

// Job represents a unit of work to be processed.
// Args must survive the backend's encoding (JSON-like values).
type Job struct {
	ID         string    `cbor:"id" json:"id"`
	Type       string    `cbor:"type" json:"type"`
	ClientID   string    `cbor:"client_id" json:"client_id"`
	Args       []any     `cbor:"args" json:"args"`
	Attempt    int       `cbor:"attempt" json:"attempt"`
	EnqueuedAt time.Time `cbor:"enqueued_at" json:"enqueued_at"`
}

// Receipt acknowledges that a backend accepted a job. It says nothing about
// the job's eventual outcome.
type Receipt struct {
	JobID      string    `json:"job_id"`
	Type       string    `json:"type"`
	ClientID   string    `json:"client_id"`
	Backend    string    `json:"backend"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

// Status holds job manager statistics
type Status struct {
	QueueDepth int   `json:"queue_depth"`
	ActiveJobs int   `json:"active_jobs"`
	Processed  int64 `json:"processed"`
	Failed     int64 `json:"failed"`
	Retried    int64 `json:"retried"`
}

// Handler performs jobs of one type.
type Handler interface {
	Perform(ctx context.Context, job Job) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, job Job) error

// Perform calls f(ctx, job).
func (f HandlerFunc) Perform(ctx context.Context, job Job) error {
	return f(ctx, job)
}

// Outcome is the payload of lifecycle events.
type Outcome struct {
	Job      Job
	Err      error
	Duration time.Duration
}

// prepare fills the fields a backend owns and validates the rest.
func prepare(job Job, now time.Time) (Job, error) {
	if job.Type == "" {
		return job, fmt.Errorf("%w: missing type", ErrInvalidJob)
	}
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	job.EnqueuedAt = now.UTC()
	return job, nil
}

func receiptFor(job Job, backend string) Receipt {
	return Receipt{
		JobID:      job.ID,
		Type:       job.Type,
		ClientID:   job.ClientID,
		Backend:    backend,
		EnqueuedAt: job.EnqueuedAt,
	}
}
