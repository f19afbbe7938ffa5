// pkg/jobs/memory.go
package jobs

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// MemoryManager is an in-memory implementation of Manager.
// It processes jobs using a worker pool with configurable concurrency.
// Jobs enqueued before Start wait in the buffer until workers run.
type MemoryManager struct {
	*executor

	concurrency int
	queue       chan Job
	wg          sync.WaitGroup
	cancelLoop  context.CancelFunc
	cancelJobs  context.CancelFunc
	mu          sync.RWMutex
	started     bool
	closed      bool
}

// NewMemoryManager creates a new in-memory job manager.
// If opts.Concurrency <= 0, defaults to 4.
func NewMemoryManager(opts Options) *MemoryManager {
	opts = opts.withDefaults()
	return &MemoryManager{
		executor:    newExecutor(opts, log.With().Str("component", "jobs").Logger()),
		concurrency: opts.Concurrency,
		queue:       make(chan Job, opts.QueueSize),
	}
}

// Handle registers the handler for jobType.
func (m *MemoryManager) Handle(jobType string, h Handler) {
	m.handle(jobType, h)
}

// Enqueue places the job in the buffer without blocking.
// It fails with ErrQueueFull when the buffer is at capacity.
func (m *MemoryManager) Enqueue(ctx context.Context, job Job) (Receipt, error) {
	job, err := prepare(job, time.Now())
	if err != nil {
		return Receipt{}, err
	}

	// Held across the send so Stop cannot close the channel underneath us.
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return Receipt{}, ErrClosed
	}

	select {
	case m.queue <- job:
	default:
		return Receipt{}, ErrQueueFull
	}

	m.logger.Debug().
		Str("job_id", job.ID).
		Str("job_type", job.Type).
		Str("client_id", job.ClientID).
		Msg("Job enqueued")
	m.publish(ctx, EventEnqueued, Outcome{Job: job})

	return receiptFor(job, "memory"), nil
}

// Start begins processing jobs in the background.
// It spawns worker goroutines that process jobs from the queue.
func (m *MemoryManager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}
	if m.started {
		return ErrAlreadyStarted
	}

	// Workers stop pulling when ctx ends; running jobs are only cancelled
	// when Stop gives up waiting.
	loopCtx, cancelLoop := context.WithCancel(ctx)
	jobCtx, cancelJobs := context.WithCancel(context.WithoutCancel(ctx))
	m.cancelLoop = cancelLoop
	m.cancelJobs = cancelJobs

	for i := 0; i < m.concurrency; i++ {
		m.wg.Add(1)
		go m.worker(loopCtx, jobCtx, i)
	}

	m.started = true
	m.logger.Info().
		Int("workers", m.concurrency).
		Int("queued", len(m.queue)).
		Msg("Job manager started")

	return nil
}

// Stop refuses new jobs, lets workers drain the queue and waits for them.
// It respects the context deadline for shutdown timeout; on timeout running
// jobs see their context cancelled. Jobs still buffered in a manager that
// was never started are recorded as failed with ErrClosed.
func (m *MemoryManager) Stop(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	if !m.started {
		m.closed = true
		close(m.queue)
		var abandoned []Job
		for job := range m.queue {
			abandoned = append(abandoned, job)
		}
		m.mu.Unlock()

		if len(abandoned) > 0 {
			m.logger.Warn().
				Int("abandoned", len(abandoned)).
				Msg("Job manager stopped before it was started")
		}
		for _, job := range abandoned {
			m.failedFinal(ctx, job, ErrClosed)
		}
		return nil
	}
	m.closed = true
	close(m.queue)
	m.mu.Unlock()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		m.cancelLoop()
		m.cancelJobs()
		m.logger.Info().Msg("Job manager stopped gracefully")
		return nil
	case <-ctx.Done():
		m.cancelLoop()
		m.cancelJobs()
		m.logger.Warn().
			Int("abandoned", len(m.queue)).
			Msg("Job manager shutdown timed out")
		return ctx.Err()
	}
}

// Status returns current queue statistics.
func (m *MemoryManager) Status() Status {
	return m.status(len(m.queue))
}

// worker processes jobs from the queue until it is closed and drained or
// loopCtx is cancelled.
func (m *MemoryManager) worker(loopCtx, jobCtx context.Context, id int) {
	defer m.wg.Done()

	m.logger.Debug().Int("worker_id", id).Msg("Worker started")

	for {
		select {
		case <-loopCtx.Done():
			m.logger.Debug().Int("worker_id", id).Msg("Worker stopping")
			return
		case job, ok := <-m.queue:
			if !ok {
				m.logger.Debug().Int("worker_id", id).Msg("Queue drained, worker stopping")
				return
			}
			m.process(jobCtx, job)
		}
	}
}

// process runs a job until it succeeds or runs out of attempts.
func (m *MemoryManager) process(ctx context.Context, job Job) {
	for attempt := 1; ; attempt++ {
		job.Attempt = attempt
		start := time.Now()
		err := m.attempt(ctx, job)
		if err == nil {
			m.completed(ctx, job, time.Since(start))
			return
		}
		if !m.retryable(ctx, job) {
			m.failedFinal(ctx, job, err)
			return
		}
		m.retrying(ctx, job, err)
		if !sleep(ctx, m.opts.RetryDelay) {
			m.failedFinal(ctx, job, err)
			return
		}
	}
}

var _ Manager = (*MemoryManager)(nil)
