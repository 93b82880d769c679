package session

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adam-cain/auto-invoice/pkg/browser"
	"github.com/adam-cain/auto-invoice/pkg/logging"
)

const sampleConfig = `
vendor: Acme Corp
start_url: https://billing.acme.test/login
flow: auto-login
artifacts:
  root: out/invoices
browser:
  headless: true
  viewport:
    width: 1280
    height: 800
  wait_between_actions: 250ms
  launch_args:
    - --disable-gpu
    - --no-sandbox
credentials:
  source: command
  command: ["op", "item", "get", "acme", "--format", "json"]
human:
  timeout: 2m
download:
  allowed_hosts: ["*.acme.test"]
agent:
  max_turns: 12
logging:
  verbosity: quiet
`

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleConfig), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "Acme Corp", cfg.Vendor)
	assert.Equal(t, "out/invoices", cfg.Artifacts.Root)
	assert.Equal(t, ".auto-invoice/runs", cfg.Artifacts.SummaryDir, "unset keys keep defaults")
	assert.Equal(t, 2*time.Minute, cfg.Human.Timeout)
	assert.Equal(t, []string{"*.acme.test"}, cfg.Download.AllowedHosts)
	assert.Equal(t, 12, cfg.Agent.MaxTurns)
	assert.Equal(t, 100000, cfg.Agent.MaxContextTokens)
	assert.Equal(t, logging.LevelWarn, cfg.LogLevel())

	p, err := cfg.Profile()
	require.NoError(t, err)
	assert.True(t, p.Headless)
	assert.Equal(t, browser.Viewport{Width: 1280, Height: 800}, p.Viewport)
	assert.Equal(t, 250*time.Millisecond, p.WaitBetweenActions)
	assert.Equal(t, browser.DefaultLocale, p.Locale)
	assert.Contains(t, p.LaunchArgs, "--disable-gpu")

	task, err := cfg.ResolveTask()
	require.NoError(t, err)
	assert.Contains(t, task, "Acme Corp")
	assert.Contains(t, task, "https://billing.acme.test/login")
}

func TestLoadConfigErrors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "failed to read config file")

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("agent: [unterminated"), 0o600))
	_, err = LoadConfig(path)
	assert.ErrorContains(t, err, "failed to parse config file")
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults with vendor", func(c *Config) {}, ""},
		{"custom task needs no vendor", func(c *Config) { c.Vendor = ""; c.Task = "find the invoices" }, ""},
		{"missing vendor", func(c *Config) { c.Vendor = "" }, "vendor is required"},
		{"unknown flow", func(c *Config) { c.Flow = "scrape-everything" }, "unknown flow"},
		{"missing root", func(c *Config) { c.Artifacts.Root = "" }, "artifacts.root"},
		{"bad viewport", func(c *Config) { c.Browser.Viewport = browser.Viewport{Width: -1, Height: 10} }, "viewport"},
		{"bad timezone", func(c *Config) { c.Browser.Timezone = "Mars/Olympus" }, "invalid timezone"},
		{"negative human timeout", func(c *Config) { c.Human.Timeout = -time.Second }, "human.timeout"},
		{"bad host pattern", func(c *Config) { c.Download.AllowedHosts = []string{"[acme"} }, "host pattern"},
		{"negative turns", func(c *Config) { c.Agent.MaxTurns = -1 }, "max_turns"},
		{"command without argv", func(c *Config) { c.Credentials.Source = "command" }, "requires credentials.command"},
		{"unknown source", func(c *Config) { c.Credentials.Source = "keychain" }, "unknown credentials.source"},
		{"bad verbosity", func(c *Config) { c.Logging.Verbosity = "loud" }, "invalid logging verbosity"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Vendor = "Acme"
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestValidateDefaultsVerbosity(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Vendor = "Acme"
	cfg.Logging.Verbosity = ""

	require.NoError(t, cfg.Validate())
	assert.Equal(t, "normal", cfg.Logging.Verbosity)
	assert.Equal(t, logging.LevelInfo, cfg.LogLevel())
}

func TestProfileKeepsDefaultsWhenUnset(t *testing.T) {
	p, err := DefaultConfig().Profile()
	require.NoError(t, err)
	assert.Equal(t, browser.DefaultProfile(), p)
}
