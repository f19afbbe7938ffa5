package jobs

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// executor holds the handler table and counters shared by both managers.
type executor struct {
	opts   Options
	logger zerolog.Logger

	mu       sync.RWMutex
	handlers map[string]Handler

	active    atomic.Int32
	processed atomic.Int64
	failed    atomic.Int64
	retried   atomic.Int64
}

func newExecutor(opts Options, logger zerolog.Logger) *executor {
	return &executor{
		opts:     opts,
		logger:   logger,
		handlers: make(map[string]Handler),
	}
}

func (e *executor) handle(jobType string, h Handler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handlers[jobType] = h
}

func (e *executor) handler(jobType string) (Handler, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	h, ok := e.handlers[jobType]
	return h, ok
}

// attempt runs the job's handler once. A panicking handler counts as a
// failed attempt.
func (e *executor) attempt(ctx context.Context, job Job) (err error) {
	h, ok := e.handler(job.Type)
	if !ok {
		return fmt.Errorf("%w for %q", ErrNoHandler, job.Type)
	}

	e.active.Add(1)
	defer e.active.Add(-1)

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job %s panicked: %v", job.ID, r)
		}
	}()

	e.logger.Debug().
		Str("job_id", job.ID).
		Str("job_type", job.Type).
		Str("client_id", job.ClientID).
		Int("attempt", job.Attempt).
		Msg("Processing job")

	return h.Perform(ctx, job)
}

// retryable reports whether another attempt should follow a failure.
func (e *executor) retryable(ctx context.Context, job Job) bool {
	if ctx.Err() != nil {
		return false
	}
	if _, ok := e.handler(job.Type); !ok {
		return false
	}
	return job.Attempt < e.opts.MaxAttempts
}

func (e *executor) completed(ctx context.Context, job Job, elapsed time.Duration) {
	e.processed.Add(1)
	e.logger.Debug().
		Str("job_id", job.ID).
		Str("job_type", job.Type).
		Dur("elapsed", elapsed).
		Msg("Job completed")
	e.publish(ctx, EventCompleted, Outcome{Job: job, Duration: elapsed})
}

func (e *executor) retrying(ctx context.Context, job Job, err error) {
	e.retried.Add(1)
	e.logger.Warn().
		Err(err).
		Str("job_id", job.ID).
		Str("job_type", job.Type).
		Int("attempt", job.Attempt).
		Int("max_attempts", e.opts.MaxAttempts).
		Dur("delay", e.opts.RetryDelay).
		Msg("Job failed, scheduling retry")
	e.publish(ctx, EventRetrying, Outcome{Job: job, Err: err})
}

func (e *executor) failedFinal(ctx context.Context, job Job, err error) {
	e.failed.Add(1)
	e.logger.Error().
		Err(err).
		Str("job_id", job.ID).
		Str("job_type", job.Type).
		Str("client_id", job.ClientID).
		Int("attempt", job.Attempt).
		Msg("Job failed")
	e.publish(ctx, EventFailed, Outcome{Job: job, Err: err})
}

func (e *executor) publish(ctx context.Context, name string, out Outcome) {
	if e.opts.Events == nil {
		return
	}
	e.opts.Events.Publish(context.WithoutCancel(ctx), name, out)
}

func (e *executor) status(depth int) Status {
	return Status{
		QueueDepth: depth,
		ActiveJobs: int(e.active.Load()),
		Processed:  e.processed.Load(),
		Failed:     e.failed.Load(),
		Retried:    e.retried.Load(),
	}
}

// sleep waits for d or until ctx is done, reporting whether the full
// delay elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
