// pkg/config/types.go
package config

import "time"

// Config is the root configuration structure for botkit.
// It aggregates all other specific configuration structs.
type Config struct {
	Log  LogConfig            `description:"Logging configuration" koanf:"log" json:"log" yaml:"log"`
	Jobs JobsConfig           `description:"Background job configuration" koanf:"jobs" json:"jobs" yaml:"jobs"`
	Bots map[string]BotConfig `description:"Bots by identifier" koanf:"bots" json:"bots" yaml:"bots" validate:"dive"`
}

// LogConfig holds logging related configuration.
type LogConfig struct {
	Level  string `description:"Log level (trace, debug, info, warn, error)" koanf:"level" json:"level" yaml:"level" validate:"omitempty,oneof=trace debug info warn error fatal panic disabled"`
	Format string `description:"Log format: json | text" koanf:"format" json:"format" yaml:"format" validate:"omitempty,oneof=json text"`
	File   string `description:"Log file path" koanf:"file" json:"file,omitempty" yaml:"file,omitempty"`
}

// JobsConfig selects and tunes the job queue backend async requests go to.
type JobsConfig struct {
	// memory keeps jobs in-process; spool shares them with other processes
	// through SpoolDir.
	Backend string `description:"Job backend: memory | spool" koanf:"backend" json:"backend" yaml:"backend" validate:"oneof=memory spool"`

	Concurrency  int           `description:"Number of concurrent job workers" koanf:"concurrency" json:"concurrency" yaml:"concurrency" validate:"min=1"`
	QueueSize    int           `description:"In-memory queue capacity" koanf:"queue_size" json:"queue_size" yaml:"queue_size" validate:"min=1"`
	MaxAttempts  int           `description:"Attempts before a job is recorded as failed" koanf:"max_attempts" json:"max_attempts" yaml:"max_attempts" validate:"min=1"`
	RetryDelay   time.Duration `description:"Delay between attempts" koanf:"retry_delay" json:"retry_delay" yaml:"retry_delay" validate:"min=0"`
	PollInterval time.Duration `description:"Spool rescan interval" koanf:"poll_interval" json:"poll_interval" yaml:"poll_interval" validate:"min=0"`
	ClaimLease   time.Duration `description:"Age after which a claimed spool record is requeued" koanf:"claim_lease" json:"claim_lease" yaml:"claim_lease" validate:"min=0"`
	SpoolDir     string        `description:"Spool directory (spool backend)" koanf:"spool_dir" json:"spool_dir,omitempty" yaml:"spool_dir,omitempty" validate:"required_if=Backend spool"`

	// Named lists job names registered at startup; a bot's async setting
	// may refer to them.
	Named []string `description:"Named jobs registered at startup" koanf:"named" json:"named,omitempty" yaml:"named,omitempty" validate:"dive,required"`
}

// BotConfig describes one bot client.
type BotConfig struct {
	Token    string        `description:"Bot API token" koanf:"token" json:"token" yaml:"token" validate:"required"`
	Username string        `description:"Bot username" koanf:"username" json:"username,omitempty" yaml:"username,omitempty"`
	Server   string        `description:"Bot API server URL" koanf:"server" json:"server,omitempty" yaml:"server,omitempty" validate:"omitempty,url"`
	Timeout  time.Duration `description:"HTTP timeout for API calls" koanf:"timeout" json:"timeout,omitempty" yaml:"timeout,omitempty" validate:"min=0"`

	// Async is true, a job name, or false/absent.
	Async any `description:"Dispatch setting: true | <job name> | false" koanf:"async" json:"async,omitempty" yaml:"async,omitempty"`
}
