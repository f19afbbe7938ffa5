package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewManager_HoldsDefaults(t *testing.T) {
	manager := NewManager()
	assert.NotNil(t, manager, "Manager should not be nil")
	assert.NotNil(t, manager.koanfInstance, "Manager's koanfInstance should not be nil")
	assert.Equal(t, DefaultConfig(), manager.Get())
}

func TestNewManager_ManagersDoNotShareState(t *testing.T) {
	manager1 := NewManager()
	manager2 := NewManager()

	require.NoError(t, manager1.LoadWithSources([]ConfigSource{
		&DefaultSource{},
		&mockConfigSource{name: "custom", priority: 25, loadFunc: func(k *koanf.Koanf) error {
			return k.Set("log.level", "warn")
		}},
	}))

	assert.Equal(t, "warn", manager1.Get().Log.Level)
	assert.Equal(t, "info", manager2.Get().Log.Level)
}

func TestDefaultConfig_ReturnsExpectedDefaults(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "info", cfg.Log.Level, "Default log level should be 'info'")
	assert.Equal(t, "text", cfg.Log.Format, "Default log format should be 'text'")
	assert.Equal(t, "", cfg.Log.File, "Default log file should be empty")
	assert.Equal(t, "memory", cfg.Jobs.Backend)
	assert.Equal(t, 4, cfg.Jobs.Concurrency)
	assert.Equal(t, 1, cfg.Jobs.MaxAttempts)
	assert.Empty(t, cfg.Bots)
	assert.NoError(t, cfg.Validate())
}

func TestManager_Load_LoadsDefaultsWhenNoFlags(t *testing.T) {
	manager := NewManager()
	err := manager.Load(nil, "")
	assert.NoError(t, err, "Load should not return error when loading defaults")
	cfg := manager.Get()
	assert.Equal(t, "info", cfg.Log.Level, "Default log level should be 'info'")
	assert.Equal(t, "text", cfg.Log.Format, "Default log format should be 'text'")
	assert.Equal(t, "", cfg.Log.File, "Default log file should be empty")
	assert.Equal(t, 100, cfg.Jobs.QueueSize)
	assert.Equal(t, time.Second, cfg.Jobs.RetryDelay)
}

func TestManager_Load_OverridesWithFlags(t *testing.T) {
	manager := NewManager()
	flags := newTestFlagSet()
	_ = flags.Set("log.level", "error")
	_ = flags.Set("log.format", "json")
	_ = flags.Set("log.file", "/tmp/test.log")
	_ = flags.Set("jobs.concurrency", "8")
	err := manager.Load(flags, "")
	assert.NoError(t, err, "Load should not return error when loading with flags")
	cfg := manager.Get()
	assert.Equal(t, "error", cfg.Log.Level, "Flag should override log level")
	assert.Equal(t, "json", cfg.Log.Format, "Flag should override log format")
	assert.Equal(t, "/tmp/test.log", cfg.Log.File, "Flag should override log file")
	assert.Equal(t, 8, cfg.Jobs.Concurrency)
}

func TestManager_Load_DebugFlagSetsLogLevelToDebug(t *testing.T) {
	manager := NewManager()
	flags := newTestFlagSet()
	_ = flags.Set("debug", "true")
	err := manager.Load(flags, "")
	assert.NoError(t, err, "Load should not return error when loading with debug flag")
	cfg := manager.Get()
	assert.Equal(t, "debug", cfg.Log.Level, "Debug flag should set log level to debug")
}

func TestManager_Load_BotsFromFile(t *testing.T) {
	path := writeConfig(t, `
jobs:
  named: [Notifications]
bots:
  alerts:
    token: "123:abc"
    username: alerts_bot
    async: true
  digest:
    token: "456:def"
    server: http://localhost:8081/
    timeout: 5s
    async: Notifications
  plain:
    token: "789:ghi"
`)

	manager := NewManager()
	require.NoError(t, manager.Load(nil, path))
	cfg := manager.Get()

	require.Len(t, cfg.Bots, 3)
	assert.Equal(t, []string{"Notifications"}, cfg.Jobs.Named)

	alerts := cfg.Bots["alerts"]
	assert.Equal(t, "123:abc", alerts.Token)
	assert.Equal(t, DefaultServer, alerts.Server)
	assert.Equal(t, 30*time.Second, alerts.Timeout)
	assert.Equal(t, true, alerts.Async)

	digest := cfg.Bots["digest"]
	assert.Equal(t, "http://localhost:8081", digest.Server, "trailing slash is trimmed")
	assert.Equal(t, 5*time.Second, digest.Timeout)
	assert.Equal(t, "Notifications", digest.Async)

	assert.Nil(t, cfg.Bots["plain"].Async)
}

func TestManager_Load_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `
bots:
  ops_bot:
    token: "123:abc"
`)
	t.Setenv("BOTKIT_BOTS_OPS_BOT_ASYNC", "true")
	t.Setenv("BOTKIT_JOBS_MAX_ATTEMPTS", "3")

	manager := NewManager()
	require.NoError(t, manager.Load(nil, path))
	cfg := manager.Get()

	assert.Equal(t, "true", cfg.Bots["ops_bot"].Async, "env values stay strings; the resolver folds them")
	assert.Equal(t, 3, cfg.Jobs.MaxAttempts)
}

func TestManager_Load_InvalidConfigKeepsPrevious(t *testing.T) {
	manager := NewManager()
	require.NoError(t, manager.Load(nil, ""))

	path := writeConfig(t, `
jobs:
  backend: spool
`)
	err := manager.Load(nil, path)
	require.Error(t, err)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "jobs.spool_dir", verr.Field)
	assert.Equal(t, "memory", manager.Get().Jobs.Backend, "failed load must not replace config")
}

func TestManager_Get_ReturnsCopy(t *testing.T) {
	path := writeConfig(t, `
bots:
  alerts:
    token: "123:abc"
`)
	manager := NewManager()
	require.NoError(t, manager.Load(nil, path))

	cfg := manager.Get()
	delete(cfg.Bots, "alerts")

	assert.Contains(t, manager.Get().Bots, "alerts")
}

func TestBindFlags_AddsDebugFlag(t *testing.T) {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	BindFlags(flags)
	debugFlag := flags.Lookup("debug")
	assert.NotNil(t, debugFlag, "BindFlags should add a 'debug' flag")
	assert.Equal(t, "Enable debug logging", debugFlag.Usage, "Debug flag should have correct usage")
	assert.Equal(t, "false", debugFlag.DefValue, "Debug flag should default to false")
}

func TestBindFlags_AddsJobsFlags(t *testing.T) {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	BindFlags(flags)

	for _, name := range []string{"jobs.backend", "jobs.spool_dir", "jobs.concurrency", "jobs.max_attempts", "jobs.retry_delay"} {
		assert.NotNil(t, flags.Lookup(name), "missing flag %s", name)
	}
	assert.Equal(t, "memory", flags.Lookup("jobs.backend").DefValue)
}

func TestBindFlags_DebugFlagCanBeSet(t *testing.T) {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	BindFlags(flags)
	err := flags.Set("debug", "true")
	assert.NoError(t, err, "Should be able to set 'debug' flag")
	val, err := flags.GetBool("debug")
	assert.NoError(t, err, "Should be able to get 'debug' flag value after setting")
	assert.True(t, val, "Value of 'debug' flag should be true after setting")
}

func newTestFlagSet() *pflag.FlagSet {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("log.level", "info", "")
	flags.String("log.format", "text", "")
	flags.String("log.file", "", "")
	flags.Int("jobs.concurrency", 4, "")
	flags.Bool("debug", false, "")
	return flags
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}
