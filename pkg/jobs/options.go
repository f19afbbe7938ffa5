package jobs

import (
	"time"

	"github.com/vulntor/botkit/pkg/event"
)

// Options tunes a job manager. Zero values fall back to defaults.
type Options struct {
	// Concurrency is the number of worker goroutines (default 4).
	Concurrency int

	// QueueSize bounds the in-memory queue (default 100).
	QueueSize int

	// MaxAttempts is how many times a failing job runs before it is
	// recorded as failed (default 1, no retry).
	MaxAttempts int

	// RetryDelay is the pause between attempts.
	RetryDelay time.Duration

	// PollInterval is how often the spool is rescanned when no
	// filesystem notification arrives (default 1s).
	PollInterval time.Duration

	// ClaimLease is how long a spool record may stay claimed before it is
	// assumed abandoned and requeued (default 10m).
	ClaimLease time.Duration

	// Events receives lifecycle events when set.
	Events event.EventBus
}

func (o Options) withDefaults() Options {
	if o.Concurrency <= 0 {
		o.Concurrency = 4 // Default worker count
	}
	if o.QueueSize <= 0 {
		o.QueueSize = 100
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 1
	}
	if o.RetryDelay < 0 {
		o.RetryDelay = 0
	}
	if o.PollInterval <= 0 {
		o.PollInterval = time.Second
	}
	if o.ClaimLease <= 0 {
		o.ClaimLease = 10 * time.Minute
	}
	return o
}
