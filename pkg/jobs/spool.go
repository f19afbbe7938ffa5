package jobs

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/gofrs/flock"
	"github.com/rs/zerolog/log"
)

const (
	spoolReady   = "ready"
	spoolClaimed = "claimed"
	spoolFailed  = "failed"
	spoolLock    = ".claim.lock"
	spoolExt     = ".job"
)

// SpoolManager is a Manager backed by a directory, so that the process
// enqueueing a job and the process performing it can differ.
//
// Layout under the root:
//
//	ready/    <run-at-unix-nano>-<job-id>.job, one CBOR record per job
//	claimed/  records a worker is currently performing
//	failed/   records that ran out of attempts
//
// Workers claim the oldest due record by renaming it into claimed/ while
// holding an exclusive flock on .claim.lock. A claimed record older than
// Options.ClaimLease belongs to a worker that died; Start and Drain move it
// back to ready/.
type SpoolManager struct {
	*executor

	dir         string
	concurrency int
	lock        *flock.Flock
	claimMu     sync.Mutex
	wake        chan struct{}

	mu         sync.Mutex
	started    bool
	closed     bool
	cancelLoop context.CancelFunc
	cancelJobs context.CancelFunc
	wg         sync.WaitGroup
}

// NewSpoolManager creates the spool layout under dir if needed.
func NewSpoolManager(dir string, opts Options) (*SpoolManager, error) {
	if dir == "" {
		return nil, errors.New("jobs: spool directory is required")
	}
	opts = opts.withDefaults()

	for _, sub := range []string{spoolReady, spoolClaimed, spoolFailed} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o750); err != nil {
			return nil, fmt.Errorf("create spool directory %s: %w", sub, err)
		}
	}

	return &SpoolManager{
		executor:    newExecutor(opts, log.With().Str("component", "jobs.spool").Str("dir", dir).Logger()),
		dir:         dir,
		concurrency: opts.Concurrency,
		lock:        flock.New(filepath.Join(dir, spoolLock)),
		wake:        make(chan struct{}, opts.Concurrency),
	}, nil
}

// Dir returns the spool root.
func (m *SpoolManager) Dir() string { return m.dir }

// Handle registers the handler for jobType.
func (m *SpoolManager) Handle(jobType string, h Handler) {
	m.handle(jobType, h)
}

// Enqueue writes the job into ready/. The record becomes visible to workers
// atomically through a rename.
func (m *SpoolManager) Enqueue(ctx context.Context, job Job) (Receipt, error) {
	m.mu.Lock()
	closed := m.closed
	m.mu.Unlock()
	if closed {
		return Receipt{}, ErrClosed
	}

	now := time.Now()
	job, err := prepare(job, now)
	if err != nil {
		return Receipt{}, err
	}
	if err := m.write(spoolReady, job, now); err != nil {
		return Receipt{}, err
	}

	m.logger.Debug().
		Str("job_id", job.ID).
		Str("job_type", job.Type).
		Str("client_id", job.ClientID).
		Msg("Job spooled")
	m.publish(ctx, EventEnqueued, Outcome{Job: job})

	return receiptFor(job, "spool"), nil
}

// Start spawns the workers and the directory watcher.
func (m *SpoolManager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}
	if m.started {
		return ErrAlreadyStarted
	}

	loopCtx, cancelLoop := context.WithCancel(ctx)
	jobCtx, cancelJobs := context.WithCancel(context.WithoutCancel(ctx))
	m.cancelLoop = cancelLoop
	m.cancelJobs = cancelJobs

	if _, err := m.requeueStale(time.Now()); err != nil {
		m.logger.Warn().Err(err).Msg("Failed to requeue stale claims")
	}

	watcher, err := fsnotify.NewWatcher()
	if err == nil {
		err = watcher.Add(filepath.Join(m.dir, spoolReady))
	}
	if err != nil {
		m.logger.Warn().Err(err).Msg("Spool watcher unavailable, falling back to polling")
		if watcher != nil {
			_ = watcher.Close()
		}
	} else {
		m.wg.Add(1)
		go m.watch(loopCtx, watcher)
	}

	for i := 0; i < m.concurrency; i++ {
		m.wg.Add(1)
		go m.worker(loopCtx, jobCtx, i)
	}

	m.started = true
	m.logger.Info().
		Int("workers", m.concurrency).
		Dur("poll_interval", m.opts.PollInterval).
		Msg("Spool manager started")
	return nil
}

// Stop halts claiming and waits for running jobs. Unclaimed records stay in
// the spool for the next worker.
func (m *SpoolManager) Stop(ctx context.Context) error {
	m.mu.Lock()
	if !m.started || m.closed {
		m.closed = true
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.cancelLoop()
	m.mu.Unlock()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		m.cancelJobs()
		m.logger.Info().Msg("Spool manager stopped gracefully")
		return nil
	case <-ctx.Done():
		m.cancelJobs()
		m.logger.Warn().Msg("Spool manager shutdown timed out")
		return ctx.Err()
	}
}

// Status returns current queue statistics. QueueDepth counts ready records.
func (m *SpoolManager) Status() Status {
	depth := 0
	entries, err := os.ReadDir(filepath.Join(m.dir, spoolReady))
	if err == nil {
		for _, e := range entries {
			if !e.IsDir() && strings.HasSuffix(e.Name(), spoolExt) {
				depth++
			}
		}
	}
	return m.status(depth)
}

// Drain performs every due record on the calling goroutine and returns how
// many were processed. Useful for one-shot workers.
func (m *SpoolManager) Drain(ctx context.Context) (int, error) {
	if _, err := m.requeueStale(time.Now()); err != nil {
		return 0, err
	}

	n := 0
	for ctx.Err() == nil {
		job, path, ok, err := m.claim(time.Now())
		if err != nil {
			return n, err
		}
		if !ok {
			return n, nil
		}
		m.process(ctx, job, path)
		n++
	}
	return n, ctx.Err()
}

func (m *SpoolManager) worker(loopCtx, jobCtx context.Context, id int) {
	defer m.wg.Done()

	m.logger.Debug().Int("worker_id", id).Msg("Worker started")

	timer := time.NewTimer(m.opts.PollInterval)
	defer timer.Stop()

	for {
		if loopCtx.Err() != nil {
			m.logger.Debug().Int("worker_id", id).Msg("Worker stopping")
			return
		}

		job, path, ok, err := m.claim(time.Now())
		if err != nil {
			m.logger.Error().Err(err).Int("worker_id", id).Msg("Failed to claim job")
		}
		if ok {
			m.process(jobCtx, job, path)
			continue
		}

		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(m.opts.PollInterval)

		select {
		case <-loopCtx.Done():
		case <-m.wake:
		case <-timer.C:
		}
	}
}

// watch turns filesystem notifications in ready/ into worker wakeups.
func (m *SpoolManager) watch(ctx context.Context, watcher *fsnotify.Watcher) {
	defer m.wg.Done()
	defer func() {
		if err := watcher.Close(); err != nil {
			m.logger.Warn().Err(err).Msg("Error closing spool watcher")
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !strings.HasSuffix(ev.Name, spoolExt) {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			select {
			case m.wake <- struct{}{}:
			default:
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			m.logger.Warn().Err(err).Msg("Spool watcher error")
		}
	}
}

// claim moves the oldest due record from ready/ to claimed/.
func (m *SpoolManager) claim(now time.Time) (Job, string, bool, error) {
	// flock is per process; claimMu serializes goroutines within it.
	m.claimMu.Lock()
	defer m.claimMu.Unlock()

	if err := m.lock.Lock(); err != nil {
		return Job{}, "", false, fmt.Errorf("lock spool: %w", err)
	}
	defer func() {
		if err := m.lock.Unlock(); err != nil {
			m.logger.Warn().Err(err).Msg("Failed to unlock spool")
		}
	}()

	readyDir := filepath.Join(m.dir, spoolReady)
	entries, err := os.ReadDir(readyDir)
	if err != nil {
		return Job{}, "", false, fmt.Errorf("read spool: %w", err)
	}

	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, spoolExt) {
			continue
		}
		runAt, ok := parseRunAt(name)
		if !ok {
			continue
		}
		if runAt.After(now) {
			// Names sort by run-at, nothing later is due either.
			break
		}

		claimed := filepath.Join(m.dir, spoolClaimed, name)
		if err := os.Rename(filepath.Join(readyDir, name), claimed); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return Job{}, "", false, fmt.Errorf("claim %s: %w", name, err)
		}

		// The claim time is the record's mtime, see requeueStale.
		claimedAt := time.Now()
		if err := os.Chtimes(claimed, claimedAt, claimedAt); err != nil {
			m.logger.Warn().Err(err).Str("file", name).Msg("Failed to stamp claim time")
		}

		data, err := os.ReadFile(claimed)
		if err == nil {
			var job Job
			job, err = decodeJob(data)
			if err == nil {
				return job, claimed, true, nil
			}
		}

		m.logger.Error().Err(err).Str("file", name).Msg("Unreadable spool record, moving to failed")
		_ = os.Rename(claimed, filepath.Join(m.dir, spoolFailed, name))
	}

	return Job{}, "", false, nil
}

// process performs a claimed record once and files it according to the
// outcome: removed, respooled with a delay, or moved to failed/.
func (m *SpoolManager) process(ctx context.Context, job Job, path string) {
	job.Attempt++
	start := time.Now()
	err := m.attempt(ctx, job)

	switch {
	case err == nil:
		m.completed(ctx, job, time.Since(start))
		m.removeClaim(path)
	case m.retryable(ctx, job):
		m.retrying(ctx, job, err)
		m.refile(spoolReady, job, time.Now().Add(m.opts.RetryDelay), path)
	default:
		m.failedFinal(ctx, job, err)
		m.refile(spoolFailed, job, job.EnqueuedAt, path)
	}
}

// refile stores the job's updated record under sub/ and drops the claimed
// copy. If the new record cannot be written, the claimed record itself is
// moved to sub/ (losing only the attempt count); if that fails too it stays
// in claimed/ until requeueStale picks it up.
func (m *SpoolManager) refile(sub string, job Job, runAt time.Time, claimed string) {
	werr := m.write(sub, job, runAt)
	if werr == nil {
		m.removeClaim(claimed)
		return
	}

	target := filepath.Join(m.dir, sub, spoolName(runAt, job.ID))
	if rerr := os.Rename(claimed, target); rerr != nil {
		m.logger.Error().
			Err(werr).
			AnErr("rename_error", rerr).
			Str("job_id", job.ID).
			Str("file", claimed).
			Msg("Failed to refile job, record left in claimed/")
		return
	}
	m.logger.Warn().
		Err(werr).
		Str("job_id", job.ID).
		Str("dir", sub).
		Msg("Failed to rewrite job record, moved claimed record instead")
}

func (m *SpoolManager) removeClaim(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		m.logger.Warn().Err(err).Str("file", path).Msg("Failed to remove claimed record")
	}
}

// requeueStale moves records claimed more than ClaimLease ago back to
// ready/ and returns how many it moved.
func (m *SpoolManager) requeueStale(now time.Time) (int, error) {
	m.claimMu.Lock()
	defer m.claimMu.Unlock()

	if err := m.lock.Lock(); err != nil {
		return 0, fmt.Errorf("lock spool: %w", err)
	}
	defer func() {
		if err := m.lock.Unlock(); err != nil {
			m.logger.Warn().Err(err).Msg("Failed to unlock spool")
		}
	}()

	claimedDir := filepath.Join(m.dir, spoolClaimed)
	entries, err := os.ReadDir(claimedDir)
	if err != nil {
		return 0, fmt.Errorf("read claimed: %w", err)
	}

	n := 0
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, spoolExt) {
			continue
		}
		info, err := e.Info()
		if err != nil || now.Sub(info.ModTime()) < m.opts.ClaimLease {
			continue
		}
		err = os.Rename(filepath.Join(claimedDir, name), filepath.Join(m.dir, spoolReady, name))
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return n, fmt.Errorf("requeue %s: %w", name, err)
		}
		m.logger.Warn().Str("file", name).Msg("Requeued stale claimed record")
		n++
	}
	return n, nil
}

// write stores job under sub/ with a name ordered by runAt.
func (m *SpoolManager) write(sub string, job Job, runAt time.Time) error {
	data, err := encodeJob(job)
	if err != nil {
		return fmt.Errorf("encode job %s: %w", job.ID, err)
	}

	dir := filepath.Join(m.dir, sub)
	tmp := filepath.Join(dir, "."+job.ID+".tmp")
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write job %s: %w", job.ID, err)
	}
	final := filepath.Join(dir, spoolName(runAt, job.ID))
	if err := os.Rename(tmp, final); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("publish job %s: %w", job.ID, err)
	}
	return nil
}

func spoolName(runAt time.Time, id string) string {
	return fmt.Sprintf("%020d-%s%s", runAt.UnixNano(), id, spoolExt)
}

func parseRunAt(name string) (time.Time, bool) {
	prefix, _, ok := strings.Cut(name, "-")
	if !ok {
		return time.Time{}, false
	}
	ns, err := strconv.ParseInt(prefix, 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.Unix(0, ns), true
}

var _ Manager = (*SpoolManager)(nil)
