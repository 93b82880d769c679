package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigFlagsOverrideFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "acme.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
vendor: Acme
flow: auto-login
artifacts:
  root: acme-invoices
agent:
  max_turns: 10
`), 0o600))

	cfg, err := loadConfig(&CLIConfig{
		ConfigFile:   path,
		Vendor:       "Acme Corp",
		Headless:     true,
		HumanTimeout: 90 * time.Second,
	})
	require.NoError(t, err)

	assert.Equal(t, "Acme Corp", cfg.Vendor)
	assert.Equal(t, "auto-login", cfg.Flow)
	assert.Equal(t, "acme-invoices", cfg.Artifacts.Root)
	assert.Equal(t, 10, cfg.Agent.MaxTurns)
	assert.True(t, cfg.Browser.Headless)
	assert.Equal(t, 90*time.Second, cfg.Human.Timeout)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfigWithoutFile(t *testing.T) {
	cfg, err := loadConfig(&CLIConfig{Task: "download the March invoice", MaxTurns: 7})
	require.NoError(t, err)
	assert.Equal(t, "download the March invoice", cfg.Task)
	assert.Equal(t, 7, cfg.Agent.MaxTurns)
	assert.Equal(t, "invoices", cfg.Artifacts.Root)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := loadConfig(&CLIConfig{ConfigFile: filepath.Join(t.TempDir(), "nope.yaml")})
	assert.Error(t, err)
}
