package session

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/adam-cain/auto-invoice/pkg/actions"
	"github.com/adam-cain/auto-invoice/pkg/artifact"
	"github.com/adam-cain/auto-invoice/pkg/browser"
	"github.com/adam-cain/auto-invoice/pkg/config"
	"github.com/adam-cain/auto-invoice/pkg/driver"
	"github.com/adam-cain/auto-invoice/pkg/logging"
)

// Config is the run configuration loaded from YAML and overridden by flags.
type Config struct {
	// Task is a free-form task for the agent. When empty the task is
	// rendered from Flow, Vendor and StartURL.
	Task string `yaml:"task" json:"task"`

	// Flow selects a built-in task template: prompted-login or auto-login.
	Flow string `yaml:"flow" json:"flow"`

	Vendor   string `yaml:"vendor" json:"vendor"`
	StartURL string `yaml:"start_url" json:"start_url"`

	Artifacts   ArtifactConfig    `yaml:"artifacts" json:"artifacts"`
	Browser     BrowserConfig     `yaml:"browser" json:"browser"`
	Credentials CredentialsConfig `yaml:"credentials" json:"credentials"`
	Human       HumanConfig       `yaml:"human" json:"human"`
	Download    DownloadConfig    `yaml:"download" json:"download"`
	Agent       AgentConfig       `yaml:"agent" json:"agent"`
	Logging     LoggingConfig     `yaml:"logging" json:"logging"`
}

// ArtifactConfig places the invoice files and the run summary.
type ArtifactConfig struct {
	Root       string `yaml:"root" json:"root"`
	SummaryDir string `yaml:"summary_dir" json:"summary_dir"`
}

// BrowserConfig overrides fields of the default stealth profile. Zero
// values keep the default.
type BrowserConfig struct {
	Headless           bool              `yaml:"headless" json:"headless"`
	SkipInstall        bool              `yaml:"skip_install" json:"skip_install"`
	Viewport           browser.Viewport  `yaml:"viewport" json:"viewport"`
	UserAgent          string            `yaml:"user_agent" json:"user_agent"`
	Locale             string            `yaml:"locale" json:"locale"`
	Timezone           string            `yaml:"timezone" json:"timezone"`
	SlowMo             time.Duration     `yaml:"slow_mo" json:"slow_mo"`
	WaitBetweenActions time.Duration     `yaml:"wait_between_actions" json:"wait_between_actions"`
	Timeout            time.Duration     `yaml:"timeout" json:"timeout"`
	ExtraHeaders       map[string]string `yaml:"extra_headers" json:"extra_headers"`
	LaunchArgs         []string          `yaml:"launch_args" json:"launch_args"`
}

// CredentialsConfig selects the credential provider. An empty Source falls
// back to the credentials section of the user config, then to env.
type CredentialsConfig struct {
	Source    string   `yaml:"source" json:"source"`
	EnvPrefix string   `yaml:"env_prefix" json:"env_prefix"`
	Command   []string `yaml:"command" json:"command"`
}

// HumanConfig bounds operator reads. Zero waits indefinitely.
type HumanConfig struct {
	Timeout time.Duration `yaml:"timeout" json:"timeout"`
}

// DownloadConfig restricts and bounds invoice downloads.
type DownloadConfig struct {
	AllowedHosts []string      `yaml:"allowed_hosts" json:"allowed_hosts"`
	DeniedHosts  []string      `yaml:"denied_hosts" json:"denied_hosts"`
	Timeout      time.Duration `yaml:"timeout" json:"timeout"`
}

// AgentConfig tunes the agent loop.
type AgentConfig struct {
	MaxTurns         int    `yaml:"max_turns" json:"max_turns"`
	MaxContextTokens int    `yaml:"max_context_tokens" json:"max_context_tokens"`
	Instructions     string `yaml:"instructions" json:"instructions"`
}

// LoggingConfig defines logging configuration
type LoggingConfig struct {
	// Verbosity controls logging level: quiet, normal, verbose, debug
	Verbosity string `yaml:"verbosity" json:"verbosity"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() *Config {
	return &Config{
		Flow: string(driver.FlowPromptedLogin),
		Artifacts: ArtifactConfig{
			Root:       artifact.DefaultRoot,
			SummaryDir: ".auto-invoice/runs",
		},
		Download: DownloadConfig{
			Timeout: actions.DefaultDownloadTimeout,
		},
		Agent: AgentConfig{
			MaxTurns:         driver.DefaultMaxTurns,
			MaxContextTokens: 100000,
		},
		Logging: LoggingConfig{
			Verbosity: "normal",
		},
	}
}

// LoadConfig reads a YAML file over DefaultConfig.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Task == "" {
		if c.Vendor == "" {
			return fmt.Errorf("vendor is required when no task is given")
		}
		if _, err := driver.RenderTask(driver.Flow(c.Flow), c.taskParams()); err != nil {
			return err
		}
	}

	if c.Artifacts.Root == "" {
		return fmt.Errorf("artifacts.root is required")
	}

	if _, err := c.Profile(); err != nil {
		return err
	}

	if c.Human.Timeout < 0 {
		return fmt.Errorf("human.timeout cannot be negative")
	}
	if c.Download.Timeout < 0 {
		return fmt.Errorf("download.timeout cannot be negative")
	}
	if _, err := actions.NewHostMatcher(c.Download.AllowedHosts, c.Download.DeniedHosts); err != nil {
		return err
	}

	if c.Agent.MaxTurns < 0 {
		return fmt.Errorf("agent.max_turns cannot be negative")
	}
	if c.Agent.MaxContextTokens < 0 {
		return fmt.Errorf("agent.max_context_tokens cannot be negative")
	}

	switch c.Credentials.Source {
	case "", config.CredentialSourceEnv, config.CredentialSourcePrompt:
	case config.CredentialSourceCommand:
		if len(c.Credentials.Command) == 0 {
			return fmt.Errorf("credentials.source %q requires credentials.command", c.Credentials.Source)
		}
	default:
		return fmt.Errorf("unknown credentials.source %q", c.Credentials.Source)
	}

	// Set default verbosity if not specified
	if c.Logging.Verbosity == "" {
		c.Logging.Verbosity = "normal"
	}
	validLevels := map[string]bool{
		"quiet":   true,
		"normal":  true,
		"verbose": true,
		"debug":   true,
	}
	if !validLevels[c.Logging.Verbosity] {
		return fmt.Errorf("invalid logging verbosity: %s (must be 'quiet', 'normal', 'verbose', or 'debug')", c.Logging.Verbosity)
	}

	return nil
}

// LogLevel maps the verbosity name onto a logger level.
func (c *Config) LogLevel() logging.Level {
	switch c.Logging.Verbosity {
	case "quiet":
		return logging.LevelWarn
	case "verbose", "debug":
		return logging.LevelDebug
	default:
		return logging.LevelInfo
	}
}

// Profile applies the browser overrides to the default stealth profile.
func (c *Config) Profile() (browser.Profile, error) {
	p := browser.DefaultProfile()
	b := c.Browser

	p.Headless = b.Headless
	if b.Viewport.Width != 0 || b.Viewport.Height != 0 {
		p.Viewport = b.Viewport
	}
	if b.UserAgent != "" {
		p.UserAgent = b.UserAgent
	}
	if b.Locale != "" {
		p.Locale = b.Locale
	}
	if b.Timezone != "" {
		p.TimezoneID = b.Timezone
	}
	if b.SlowMo != 0 {
		p.SlowMo = b.SlowMo
	}
	if b.WaitBetweenActions != 0 {
		p.WaitBetweenActions = b.WaitBetweenActions
	}
	if b.Timeout != 0 {
		p.Timeout = b.Timeout
	}
	if len(b.ExtraHeaders) > 0 {
		p = p.WithHeaders(b.ExtraHeaders)
	}
	if len(b.LaunchArgs) > 0 {
		p = p.WithLaunchArgs(b.LaunchArgs...)
	}

	if err := p.Validate(); err != nil {
		return browser.Profile{}, fmt.Errorf("invalid browser settings: %w", err)
	}
	return p, nil
}

// ResolveTask returns the task text handed to the agent.
func (c *Config) ResolveTask() (string, error) {
	if c.Task != "" {
		return c.Task, nil
	}
	return driver.RenderTask(driver.Flow(c.Flow), c.taskParams())
}

func (c *Config) taskParams() driver.TaskParams {
	return driver.TaskParams{Vendor: c.Vendor, StartURL: c.StartURL}
}
