package async

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/vulntor/botkit/pkg/jobs"
)

// SyncFunc is a client's inline request implementation.
type SyncFunc func(ctx context.Context, args ...any) (any, error)

// Client is a client whose requests can be dispatched to a job.
type Client interface {
	ID() string
	Mode() Mode
	SetMode(value any) error
	Request(ctx context.Context, args ...any) (Result, error)
}

// ModeSetter is the part of a client WithMode needs.
type ModeSetter interface {
	Mode() Mode
	SetMode(value any) error
}

// Result is what Request returns: a receipt when the request was enqueued,
// the inline implementation's value otherwise.
type Result struct {
	Value   any
	Receipt *jobs.Receipt
}

// Enqueued reports whether the request went to a job.
func (r Result) Enqueued() bool { return r.Receipt != nil }

// Dispatcher routes requests either to the mode's job or to the inline
// implementation. Embed it in a client type to make the client a Client.
type Dispatcher struct {
	id       string
	kind     string
	resolver *Resolver
	inline   SyncFunc

	mu   sync.RWMutex
	mode Mode
}

// inlineRequester is implemented by clients that can run a request inline
// without going through their mode.
type inlineRequester interface {
	requestInline(ctx context.Context, args ...any) (Result, error)
}

// NewDispatcher creates an off-mode dispatcher for the client id of the
// given kind. A nil resolver means DefaultResolver.
func NewDispatcher(id, kind string, resolver *Resolver, inline SyncFunc) *Dispatcher {
	return &Dispatcher{
		id:       id,
		kind:     kind,
		resolver: resolver,
		inline:   inline,
	}
}

// ID returns the client identifier jobs use to find the client again.
func (d *Dispatcher) ID() string { return d.id }

// Kind returns the client kind keying the default job.
func (d *Dispatcher) Kind() string { return d.kind }

// Mode returns the current mode.
func (d *Dispatcher) Mode() Mode {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.mode
}

// SetMode applies an async setting, see Resolver.Resolve. On error the
// current mode is kept.
func (d *Dispatcher) SetMode(value any) error {
	r := d.resolver
	if r == nil {
		r = DefaultResolver()
	}
	m, err := r.Resolve(d.kind, value)
	if err != nil {
		return err
	}
	d.mu.Lock()
	d.mode = m
	d.mu.Unlock()
	return nil
}

// Request enqueues the call when the mode has a job and runs it inline
// otherwise. Requests made with a Performing context always run inline.
func (d *Dispatcher) Request(ctx context.Context, args ...any) (Result, error) {
	if Performing(ctx) {
		return d.requestInline(ctx, args...)
	}
	if j, ok := d.Mode().Job(); ok {
		receipt, err := j.Enqueue(ctx, d.id, args...)
		if err != nil {
			return Result{}, err
		}
		log.Debug().
			Str("component", "async").
			Str("client_id", d.id).
			Str("job", j.Name()).
			Str("job_id", receipt.JobID).
			Msg("Request enqueued")
		return Result{Receipt: &receipt}, nil
	}
	return d.requestInline(ctx, args...)
}

func (d *Dispatcher) requestInline(ctx context.Context, args ...any) (Result, error) {
	if d.inline == nil {
		return Result{}, ErrNoInline
	}
	v, err := d.inline(ctx, args...)
	if err != nil {
		return Result{}, err
	}
	return Result{Value: v}, nil
}

// WithMode runs fn with the mode temporarily set to value.
func (d *Dispatcher) WithMode(value any, fn func() error) error {
	_, err := WithMode(d, value, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}

// WithMode sets c's mode to value, runs body and restores the previous mode
// on every exit path, panics included. It returns body's results. When value
// cannot be resolved body does not run.
//
// Overrides on one client from several goroutines at once interleave their
// restores; the last restore wins.
func WithMode[T any](c ModeSetter, value any, body func() (T, error)) (T, error) {
	old := c.Mode()
	if err := c.SetMode(value); err != nil {
		var zero T
		return zero, err
	}
	defer func() {
		// Restoring a Mode value cannot fail.
		_ = c.SetMode(old)
	}()
	return body()
}

var _ Client = (*Dispatcher)(nil)
