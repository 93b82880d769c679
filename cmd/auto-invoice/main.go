// Package main provides the auto-invoice command: an LLM-directed browser
// session that signs in to a vendor's billing portal and saves its invoices
// locally as downloaded files, extracted text or screenshots.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	appconfig "github.com/adam-cain/auto-invoice/pkg/config"
	"github.com/adam-cain/auto-invoice/pkg/console"
	"github.com/adam-cain/auto-invoice/pkg/driver"
	"github.com/adam-cain/auto-invoice/pkg/logging"
	"github.com/adam-cain/auto-invoice/pkg/session"
)

const version = "0.1.0"

// CLIConfig holds command-line configuration
type CLIConfig struct {
	ConfigFile   string
	UserConfig   string
	Task         string
	Flow         string
	Vendor       string
	StartURL     string
	ArtifactRoot string
	Headless     bool
	SkipInstall  bool
	Provider     string
	Model        string
	APIKey       string
	BaseURL      string
	HumanTimeout time.Duration
	MaxTurns     int
	Verbosity    string
	ShowVersion  bool
}

func main() {
	cli := parseFlags()

	if cli.ShowVersion {
		fmt.Printf("auto-invoice v%s\n", version)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\n\nShutting down gracefully...")
		cancel()
	}()

	if err := run(ctx, cli); err != nil {
		cancel()
		log.Printf("Run failed: %v", err)
		os.Exit(1)
	}
	cancel()
}

// parseFlags parses command line flags
func parseFlags() *CLIConfig {
	cli := &CLIConfig{}

	flag.StringVar(&cli.ConfigFile, "config", "", "Path to run configuration file (YAML)")
	flag.StringVar(&cli.UserConfig, "user-config", "", "Path to user settings (default ~/.auto-invoice/config.json)")
	flag.StringVar(&cli.Task, "task", "", "Free-form task; overrides -flow")
	flag.StringVar(&cli.Flow, "flow", "", "Built-in task: "+strings.Join(driver.Flows(), " or "))
	flag.StringVar(&cli.Vendor, "vendor", "", "Vendor whose invoices are retrieved")
	flag.StringVar(&cli.StartURL, "start-url", "", "Page opened before the agent starts (usually the login page)")
	flag.StringVar(&cli.ArtifactRoot, "out", "", "Directory invoices are saved to (default invoices)")
	flag.BoolVar(&cli.Headless, "headless", false, "Run Chromium without a window")
	flag.BoolVar(&cli.SkipInstall, "skip-install", false, "Assume the Playwright driver and Chromium are installed")
	flag.StringVar(&cli.Provider, "provider", "", "LLM provider: openai or gemini")
	flag.StringVar(&cli.Model, "model", "", "LLM model to use")
	flag.StringVar(&cli.APIKey, "api-key", "", "LLM API key (default from OPENAI_API_KEY or GOOGLE_API_KEY)")
	flag.StringVar(&cli.BaseURL, "base-url", "", "OpenAI-compatible API base URL")
	flag.DurationVar(&cli.HumanTimeout, "human-timeout", 0, "Upper bound on each operator prompt (0 waits indefinitely)")
	flag.IntVar(&cli.MaxTurns, "max-turns", 0, "Maximum agent turns")
	flag.StringVar(&cli.Verbosity, "verbosity", "", "Log verbosity: quiet, normal, verbose or debug")
	flag.BoolVar(&cli.ShowVersion, "version", false, "Show version and exit")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "auto-invoice - retrieve invoices from vendor billing portals\n\n")
		fmt.Fprintf(os.Stderr, "Usage: auto-invoice [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  # Ask for credentials when the login page is reached\n")
		fmt.Fprintf(os.Stderr, "  auto-invoice -vendor Notion -start-url https://www.notion.so/login\n\n")
		fmt.Fprintf(os.Stderr, "  # Log in with INVOICE_EMAIL / INVOICE_PASSWORD\n")
		fmt.Fprintf(os.Stderr, "  auto-invoice -vendor OpenAI -start-url https://platform.openai.com/login -flow auto-login\n\n")
		fmt.Fprintf(os.Stderr, "  # Run from a config file\n")
		fmt.Fprintf(os.Stderr, "  auto-invoice -config acme.yaml\n\n")
	}

	flag.Parse()
	return cli
}

func run(ctx context.Context, cli *CLIConfig) error {
	cfg, err := loadConfig(cli)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logging.SetLevel(cfg.LogLevel())
	logger := logging.MustLogger("main")
	defer logger.Close()

	if err := appconfig.Initialize(cli.UserConfig); err != nil {
		return fmt.Errorf("failed to initialize configuration: %w", err)
	}

	provider, err := appconfig.BuildProvider(ctx, appconfig.ProviderSettings{
		Provider: cli.Provider,
		Model:    cli.Model,
		BaseURL:  cli.BaseURL,
		APIKey:   cli.APIKey,
	})
	if err != nil {
		return err
	}

	printer := console.Stdout()
	s, err := session.New(cfg, session.Options{
		Provider:  provider,
		RunID:     logging.GetRunID(),
		NewLogger: logging.MustLogger,
		Console:   printer,
	})
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := s.Close(); closeErr != nil {
			logger.Warnf("Browser close failed: %v", closeErr)
		}
	}()

	logger.Infof("Starting run %s for %s with model %s", s.RunID(), cfg.Vendor, provider.GetModel())
	if path := logger.LogPath(); path != "" {
		printer.Field("Log", path)
	}

	if err := s.Init(ctx); err != nil {
		return err
	}

	summary, err := s.Run(ctx)
	if err != nil {
		return err
	}
	if summary.Answer != "" {
		fmt.Println(summary.Answer)
	}
	return nil
}

// loadConfig reads the run config file, if any, and applies flag overrides.
func loadConfig(cli *CLIConfig) (*session.Config, error) {
	cfg := session.DefaultConfig()
	if cli.ConfigFile != "" {
		var err error
		if cfg, err = session.LoadConfig(cli.ConfigFile); err != nil {
			return nil, err
		}
	}

	if cli.Task != "" {
		cfg.Task = cli.Task
	}
	if cli.Flow != "" {
		cfg.Flow = cli.Flow
	}
	if cli.Vendor != "" {
		cfg.Vendor = cli.Vendor
	}
	if cli.StartURL != "" {
		cfg.StartURL = cli.StartURL
	}
	if cli.ArtifactRoot != "" {
		cfg.Artifacts.Root = cli.ArtifactRoot
	}
	if cli.Headless {
		cfg.Browser.Headless = true
	}
	if cli.SkipInstall {
		cfg.Browser.SkipInstall = true
	}
	if cli.HumanTimeout > 0 {
		cfg.Human.Timeout = cli.HumanTimeout
	}
	if cli.MaxTurns > 0 {
		cfg.Agent.MaxTurns = cli.MaxTurns
	}
	if cli.Verbosity != "" {
		cfg.Logging.Verbosity = cli.Verbosity
	}
	return cfg, nil
}
