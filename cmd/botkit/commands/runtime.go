package commands

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/vulntor/botkit/pkg/appctx"
	"github.com/vulntor/botkit/pkg/async"
	"github.com/vulntor/botkit/pkg/bot"
	"github.com/vulntor/botkit/pkg/config"
	"github.com/vulntor/botkit/pkg/event"
	"github.com/vulntor/botkit/pkg/jobs"
)

// runtime is everything a command needs to issue requests: the job
// backend and the bots built on top of it.
type runtime struct {
	cfg      config.Config
	events   event.EventBus
	backend  jobs.Manager
	registry *bot.Registry
	resolver *async.Resolver
}

// newBackend builds the configured job backend.
func newBackend(cfg config.JobsConfig, events event.EventBus) (jobs.Manager, error) {
	opts := jobs.Options{
		Concurrency:  cfg.Concurrency,
		QueueSize:    cfg.QueueSize,
		MaxAttempts:  cfg.MaxAttempts,
		RetryDelay:   cfg.RetryDelay,
		PollInterval: cfg.PollInterval,
		ClaimLease:   cfg.ClaimLease,
		Events:       events,
	}

	switch cfg.Backend {
	case "spool":
		return jobs.NewSpoolManager(cfg.SpoolDir, opts)
	case "", "memory":
		return jobs.NewMemoryManager(opts), nil
	default:
		return nil, fmt.Errorf("unknown job backend %q", cfg.Backend)
	}
}

// prepareRuntime loads the config manager from the command context and
// builds the backend and bot registry. The registry is stored on the
// command context for subcommands.
func prepareRuntime(cmd *cobra.Command) (*runtime, error) {
	mgr, ok := appctx.Config(cmd.Context())
	if !ok {
		return nil, WithErrorCode(fmt.Errorf("configuration not loaded"), codeInvalidConfig)
	}
	cfg := mgr.Get()

	events := event.New(event.Synchronous())
	backend, err := newBackend(cfg.Jobs, events)
	if err != nil {
		return nil, WithErrorCode(err, codeInvalidConfig)
	}

	registry, resolver, err := bot.Build(cfg, backend)
	if err != nil {
		return nil, WithErrorCode(err, codeInvalidConfig)
	}

	cmd.SetContext(appctx.WithRegistry(cmd.Context(), registry))

	log.Debug().
		Str("component", "cli").
		Str("backend", cfg.Jobs.Backend).
		Int("bots", len(registry.IDs())).
		Strs("jobs", resolver.Names()).
		Msg("Runtime ready")

	return &runtime{
		cfg:      cfg,
		events:   events,
		backend:  backend,
		registry: registry,
		resolver: resolver,
	}, nil
}

// logJobEvents logs job outcomes published on the runtime's bus until the
// returned func is called.
func (rt *runtime) logJobEvents() func() {
	logger := log.With().Str("component", "worker").Logger()
	return rt.events.Subscribe(event.Wildcard, func(_ context.Context, ev event.Event) {
		out, ok := ev.Data.(jobs.Outcome)
		if !ok {
			return
		}
		entry := logger.Info()
		if out.Err != nil {
			entry = logger.Warn().Err(out.Err)
		}
		entry.
			Str("event", ev.Name).
			Str("job_id", out.Job.ID).
			Str("job_type", out.Job.Type).
			Str("bot", out.Job.ClientID).
			Int("attempt", out.Job.Attempt).
			Dur("duration", out.Duration).
			Msg("Job event")
	})
}
