package async

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/vulntor/botkit/pkg/jobs"
)

// Performer runs a previously enqueued request for the client identified
// by clientID.
type Performer interface {
	Perform(ctx context.Context, clientID string, args ...any) error
}

// Job is a schedulable job type: enqueue now, perform later.
type Job interface {
	Performer

	// Name identifies the job type on the queue.
	Name() string

	// Enqueue hands the request to the queue and returns as soon as the
	// queue accepted it.
	Enqueue(ctx context.Context, clientID string, args ...any) (jobs.Receipt, error)
}

// Backend is the part of a job queue a Job needs.
type Backend interface {
	Enqueue(ctx context.Context, job jobs.Job) (jobs.Receipt, error)
	Handle(jobType string, h jobs.Handler)
}

// ClientLocator finds a live client by ID in the current process.
// Implementations must be safe for concurrent lookups.
type ClientLocator interface {
	Lookup(id string) (Client, error)
}

// QueueJob is the job type the resolver creates. It enqueues requests on a
// Backend and performs them by re-issuing the request inline on the client
// found through a ClientLocator.
type QueueJob struct {
	name    string
	backend Backend
	clients ClientLocator
	logger  zerolog.Logger
}

// NewQueueJob creates a job named name and registers it as the handler for
// that name on backend.
func NewQueueJob(name string, backend Backend, clients ClientLocator) *QueueJob {
	j := &QueueJob{
		name:    name,
		backend: backend,
		clients: clients,
		logger:  log.With().Str("component", "async").Str("job", name).Logger(),
	}
	if backend != nil {
		backend.Handle(name, jobs.HandlerFunc(func(ctx context.Context, job jobs.Job) error {
			return j.Perform(ctx, job.ClientID, job.Args...)
		}))
	}
	return j
}

// Name returns the job type name.
func (j *QueueJob) Name() string { return j.name }

// Enqueue schedules a request for clientID.
func (j *QueueJob) Enqueue(ctx context.Context, clientID string, args ...any) (jobs.Receipt, error) {
	if j.backend == nil {
		return jobs.Receipt{}, fmt.Errorf("enqueue %s: no backend", j.name)
	}
	receipt, err := j.backend.Enqueue(ctx, jobs.Job{
		Type:     j.name,
		ClientID: clientID,
		Args:     args,
	})
	if err != nil {
		return jobs.Receipt{}, fmt.Errorf("enqueue %s: %w", j.name, err)
	}
	return receipt, nil
}

// Perform looks up the client and repeats the request with dispatch forced
// off. The client's mode itself is left alone, so any number of workers can
// perform requests for the same client at once. Clients that do not embed a
// Dispatcher fall back to a WithMode override.
func (j *QueueJob) Perform(ctx context.Context, clientID string, args ...any) error {
	if j.clients == nil {
		return &ClientNotFoundError{ID: clientID}
	}
	client, err := j.clients.Lookup(clientID)
	if err != nil {
		return err
	}

	ctx = withPerforming(ctx)
	if ir, ok := client.(inlineRequester); ok {
		_, err = ir.requestInline(ctx, args...)
	} else {
		_, err = WithMode(client, Off(), func() (Result, error) {
			return client.Request(ctx, args...)
		})
	}
	if err != nil {
		j.logger.Debug().Err(err).Str("client_id", clientID).Msg("Inline request failed")
		return err
	}
	return nil
}

var _ Job = (*QueueJob)(nil)
