package config

import (
	"time"

	"github.com/spf13/pflag"
)

// DefaultJobsConfig returns the default job queue configuration: an
// in-process queue with a single attempt per job.
func DefaultJobsConfig() JobsConfig {
	return JobsConfig{
		Backend:      "memory",
		Concurrency:  4,
		QueueSize:    100,
		MaxAttempts:  1,
		RetryDelay:   time.Second,
		PollInterval: time.Second,
		ClaimLease:   10 * time.Minute,
	}
}

// BindJobsFlags binds job queue flags to the provided FlagSet.
//
// Flags are namespaced under 'jobs.' so posflag maps them onto the same
// keys as the config file. Example: --jobs.backend, --jobs.spool_dir
func BindJobsFlags(flags *pflag.FlagSet) {
	defaults := DefaultJobsConfig()

	flags.String("jobs.backend", defaults.Backend, "Job backend: memory or spool")
	flags.String("jobs.spool_dir", defaults.SpoolDir, "Spool directory shared by senders and workers")
	flags.Int("jobs.concurrency", defaults.Concurrency, "Number of concurrent job workers")
	flags.Int("jobs.max_attempts", defaults.MaxAttempts, "Attempts before a job is recorded as failed")
	flags.Duration("jobs.retry_delay", defaults.RetryDelay, "Delay between attempts")
}
