// pkg/config/config.go
package config

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// DefaultServer is the Bot API endpoint used when a bot sets none.
const DefaultServer = "https://api.telegram.org"

// Manager handles loading and accessing application configuration.
type Manager struct {
	koanfInstance *koanf.Koanf
	currentConfig Config
	mu            sync.RWMutex // To protect currentConfig during reloads
}

// NewManager creates a new Manager holding the default configuration.
func NewManager() *Manager {
	return &Manager{
		koanfInstance: koanf.New("."),
		currentConfig: DefaultConfig(),
	}
}

// DefaultConfig returns a new Config struct populated with hardcoded default values.
// These serve as the baseline configuration if no other sources override them.
func DefaultConfig() Config {
	return Config{
		Log: LogConfig{
			Level:  "info", // Default log level
			Format: "text", // Default log format
			File:   "",     // Default log file path
		},
		Jobs: DefaultJobsConfig(),
		Bots: map[string]BotConfig{},
	}
}

// Load loads configuration from defaults, the optional file, BOTKIT_*
// environment variables and flags, in that order of precedence.
func (m *Manager) Load(flags *pflag.FlagSet, customConfigFilePath string) error {
	debug := false
	if flags != nil {
		if debugFlag := flags.Lookup("debug"); debugFlag != nil && debugFlag.Value.String() == "true" {
			debug = true
		}
	}
	return m.LoadWithSources(DefaultSources(customConfigFilePath, flags, debug))
}

// LoadWithSources loads the given sources lowest priority first into a
// fresh koanf instance, then unmarshals and validates the result. The
// current configuration is only replaced when every step succeeds.
func (m *Manager) LoadWithSources(sources []ConfigSource) error {
	ordered := append([]ConfigSource(nil), sources...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Priority() < ordered[j].Priority()
	})

	k := koanf.New(".")
	for _, src := range ordered {
		if err := src.Load(k); err != nil {
			return fmt.Errorf("config source %s: %w", src.Name(), err)
		}
	}

	var newCfg Config
	if err := k.UnmarshalWithConf("", &newCfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return fmt.Errorf("error unmarshaling final config: %w", err)
	}

	postProcessConfig(&newCfg)

	if err := newCfg.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.koanfInstance = k
	m.currentConfig = newCfg
	return nil
}

// Get returns a copy of the current configuration.
func (m *Manager) Get() Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cfgCopy := m.currentConfig
	cfgCopy.Bots = make(map[string]BotConfig, len(m.currentConfig.Bots))
	for id, b := range m.currentConfig.Bots {
		cfgCopy.Bots[id] = b
	}
	cfgCopy.Jobs.Named = append([]string(nil), m.currentConfig.Jobs.Named...)
	return cfgCopy
}

// Keys returns every loaded key, flattened with '.'.
func (m *Manager) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.koanfInstance.Keys()
}

// postProcessConfig handles any adjustments needed after loading and unmarshaling.
func postProcessConfig(cfg *Config) {
	cfg.Log.Level = strings.ToLower(strings.TrimSpace(cfg.Log.Level))
	cfg.Log.Format = strings.ToLower(strings.TrimSpace(cfg.Log.Format))
	cfg.Jobs.Backend = strings.ToLower(strings.TrimSpace(cfg.Jobs.Backend))
	cfg.Jobs.SpoolDir = strings.TrimSpace(cfg.Jobs.SpoolDir)

	if cfg.Bots == nil {
		cfg.Bots = map[string]BotConfig{}
	}
	for id, b := range cfg.Bots {
		if b.Server == "" {
			b.Server = DefaultServer
		}
		b.Server = strings.TrimSuffix(b.Server, "/")
		if b.Timeout == 0 {
			b.Timeout = 30 * time.Second
		}
		cfg.Bots[id] = b
	}
}

// DefaultConfigAsMap converts the DefaultConfig struct to a map[string]interface{}
// for Koanf's confmap.Provider. This is a bit manual but ensures Koanf knows all keys.
func DefaultConfigAsMap() map[string]interface{} {
	def := DefaultConfig()
	return map[string]interface{}{
		// Log configuration
		"log.level":  def.Log.Level,
		"log.format": def.Log.Format,
		"log.file":   def.Log.File,

		// Jobs configuration
		"jobs.backend":       def.Jobs.Backend,
		"jobs.concurrency":   def.Jobs.Concurrency,
		"jobs.queue_size":    def.Jobs.QueueSize,
		"jobs.max_attempts":  def.Jobs.MaxAttempts,
		"jobs.retry_delay":   def.Jobs.RetryDelay,
		"jobs.poll_interval": def.Jobs.PollInterval,
		"jobs.claim_lease":   def.Jobs.ClaimLease,
		"jobs.spool_dir":     def.Jobs.SpoolDir,
	}
}

// BindFlags defines command-line flags corresponding to configuration settings.
// These flags allow overriding config file / environment variable settings.
func BindFlags(flags *pflag.FlagSet) {
	var flagvar bool
	flags.BoolVar(&flagvar, "debug", false, "Enable debug logging")

	BindJobsFlags(flags)

	// Note: The main --config / -c flag for specifying the config file path
	// is defined directly on the root Cobra command's PersistentFlags.
}
