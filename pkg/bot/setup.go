package bot

import (
	"fmt"
	"sort"

	"github.com/rs/zerolog/log"

	"github.com/vulntor/botkit/pkg/async"
	"github.com/vulntor/botkit/pkg/config"
)

// Build creates the registry, the resolver and every configured bot.
// Named jobs are registered before any bot resolves its async setting, and
// every job is created up front so the backend has a handler for each job
// type another process may have enqueued.
//
// The first resolver built in a process is also installed as
// async.DefaultResolver, so clients created later with New and a nil
// resolver share its default jobs. Later builds keep their own resolver.
func Build(cfg config.Config, backend async.Backend) (*Registry, *async.Resolver, error) {
	registry := NewRegistry()
	resolver := async.NewResolver(backend, registry)
	if async.SetDefaultResolver(resolver) == resolver {
		log.Debug().Str("component", "bot.registry").Msg("Installed process-wide resolver")
	}

	resolver.Default(Kind)
	for _, name := range cfg.Jobs.Named {
		if err := resolver.RegisterQueueJob(name); err != nil {
			return nil, nil, fmt.Errorf("register job %s: %w", name, err)
		}
		if _, err := resolver.Named(name); err != nil {
			return nil, nil, fmt.Errorf("register job %s: %w", name, err)
		}
	}

	ids := make([]string, 0, len(cfg.Bots))
	for id := range cfg.Bots {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		c, err := NewFromConfig(id, cfg.Bots[id], resolver)
		if err != nil {
			return nil, nil, err
		}
		if err := registry.Add(c); err != nil {
			return nil, nil, err
		}
		log.Debug().
			Str("component", "bot.registry").
			Str("bot", id).
			Str("mode", c.Mode().String()).
			Msg("Bot registered")
	}
	return registry, resolver, nil
}
