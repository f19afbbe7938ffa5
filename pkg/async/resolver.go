package async

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cast"
)

// DefaultJobSuffix is appended to a client kind to name its default job.
const DefaultJobSuffix = ".AsyncJob"

// JobFactory builds a named job. It runs at most once per name, while the
// resolver's lock is held, so it must not call back into the resolver.
type JobFactory func(backend Backend, clients ClientLocator) (Job, error)

// Resolver turns async settings into modes. It owns the default job of
// every client kind and the registry of named jobs. Safe for concurrent use.
type Resolver struct {
	backend Backend
	clients ClientLocator
	logger  zerolog.Logger

	mu        sync.Mutex
	defaults  map[string]*QueueJob
	factories map[string]JobFactory
	named     map[string]Job
}

// NewResolver creates a resolver whose jobs enqueue on backend and find
// clients through clients.
func NewResolver(backend Backend, clients ClientLocator) *Resolver {
	return &Resolver{
		backend:   backend,
		clients:   clients,
		logger:    log.With().Str("component", "async").Logger(),
		defaults:  make(map[string]*QueueJob),
		factories: make(map[string]JobFactory),
		named:     make(map[string]Job),
	}
}

// Default returns the default job for a client kind, creating it on first
// use. Every call for the same kind returns the same *QueueJob.
func (r *Resolver) Default(kind string) *QueueJob {
	r.mu.Lock()
	defer r.mu.Unlock()

	if j, ok := r.defaults[kind]; ok {
		return j
	}
	j := NewQueueJob(kind+DefaultJobSuffix, r.backend, r.clients)
	r.defaults[kind] = j
	r.logger.Debug().Str("kind", kind).Str("job", j.Name()).Msg("Default job created")
	return j
}

// Register adds a named job factory. Call it at startup, before any client
// resolves the name.
func (r *Resolver) Register(name string, factory JobFactory) error {
	if strings.TrimSpace(name) == "" || factory == nil {
		return &ConfigurationError{Value: name, Reason: "job name and factory are required"}
	}
	if _, ok := Normalize(name).(bool); ok {
		return &ConfigurationError{Value: name, Reason: "job name reads as a boolean"}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.factories[name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateJob, name)
	}
	r.factories[name] = factory
	return nil
}

// RegisterQueueJob registers name as a QueueJob on the resolver's backend.
func (r *Resolver) RegisterQueueJob(name string) error {
	return r.Register(name, func(backend Backend, clients ClientLocator) (Job, error) {
		return NewQueueJob(name, backend, clients), nil
	})
}

// Named returns the job registered under name, building it on first use.
// The names of already created default jobs resolve as well.
func (r *Resolver) Named(name string) (Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if j, ok := r.named[name]; ok {
		return j, nil
	}
	if factory, ok := r.factories[name]; ok {
		j, err := factory(r.backend, r.clients)
		if err != nil {
			return nil, &ConfigurationError{Value: name, Reason: err.Error()}
		}
		if j == nil {
			return nil, &ConfigurationError{Value: name, Reason: "factory returned no job"}
		}
		r.named[name] = j
		return j, nil
	}
	for _, j := range r.defaults {
		if j.Name() == name {
			return j, nil
		}
	}
	return nil, &ConfigurationError{Value: name, Reason: "unknown job"}
}

// Names lists registered job names and created default jobs, sorted.
func (r *Resolver) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(r.factories)+len(r.defaults))
	for name := range r.factories {
		names = append(names, name)
	}
	for _, j := range r.defaults {
		names = append(names, j.Name())
	}
	sort.Strings(names)
	return names
}

// Resolve turns an async setting into a mode for a client of the given
// kind. Accepted values:
//
//	true            the kind's default job
//	"<name>"        a named job
//	Job             that job
//	Mode            that mode, unchanged
//	false, nil, ""  off
//
// Strings such as "true" or "0" (as produced by env vars and flags) count
// as booleans, see Normalize. Register refuses such names, so a job name
// is never mistaken for a boolean.
func (r *Resolver) Resolve(kind string, value any) (Mode, error) {
	switch v := Normalize(value).(type) {
	case nil:
		return Off(), nil
	case Mode:
		return v, nil
	case bool:
		if !v {
			return Off(), nil
		}
		if r == nil {
			return Off(), &ConfigurationError{Value: v, Reason: "no resolver for default job"}
		}
		return modeWith(r.Default(kind), StateDefault), nil
	case string:
		if v == "" {
			return Off(), nil
		}
		if r == nil {
			return Off(), &ConfigurationError{Value: v, Reason: "no resolver for named job"}
		}
		j, err := r.Named(v)
		if err != nil {
			return Off(), err
		}
		return modeWith(j, StateNamed), nil
	case Job:
		return Using(v), nil
	default:
		return Off(), &ConfigurationError{Value: value, Reason: fmt.Sprintf("unsupported type %T", value)}
	}
}

// Normalize folds boolean-looking strings and integers into bools and
// trims job names. Other values are returned untouched.
func Normalize(value any) any {
	switch v := value.(type) {
	case string:
		s := strings.TrimSpace(v)
		if b, err := cast.ToBoolE(s); err == nil {
			return b
		}
		return s
	case int, int32, int64, uint, uint32, uint64:
		if b, err := cast.ToBoolE(v); err == nil {
			return b
		}
	}
	return value
}
