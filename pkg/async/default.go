package async

import "sync"

var (
	defaultMu       sync.Mutex
	defaultResolver *Resolver
)

// DefaultResolver returns the process-wide resolver used by dispatchers
// created without one. If none was installed with SetDefaultResolver, an
// unbound resolver (no backend, no client locator) is created on first use.
// Once set it lives until the process exits.
func DefaultResolver() *Resolver {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultResolver == nil {
		defaultResolver = NewResolver(nil, nil)
	}
	return defaultResolver
}

// SetDefaultResolver installs r as the process-wide resolver unless one
// already exists, and returns the resolver in effect.
func SetDefaultResolver(r *Resolver) *Resolver {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultResolver == nil && r != nil {
		defaultResolver = r
	}
	return defaultResolver
}
