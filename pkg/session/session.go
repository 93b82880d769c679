// Package session wires one invoice-retrieval run: it opens the browser with
// the stealth profile, binds the actions to the page, hands control to the
// agent driver, and writes the run summary on the way out.
//
// A Session moves through Init, Run and Close exactly once. Browser, context
// and page are acquired in Init and released in Close; nothing in between
// opens or closes browser resources.
package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/adam-cain/auto-invoice/pkg/actions"
	"github.com/adam-cain/auto-invoice/pkg/agent/tools"
	"github.com/adam-cain/auto-invoice/pkg/artifact"
	"github.com/adam-cain/auto-invoice/pkg/browser"
	"github.com/adam-cain/auto-invoice/pkg/config"
	"github.com/adam-cain/auto-invoice/pkg/console"
	"github.com/adam-cain/auto-invoice/pkg/credentials"
	"github.com/adam-cain/auto-invoice/pkg/driver"
	"github.com/adam-cain/auto-invoice/pkg/human"
	"github.com/adam-cain/auto-invoice/pkg/llm"
	"github.com/adam-cain/auto-invoice/pkg/logging"
)

// Browser is the page surface plus the ability to release it.
type Browser interface {
	browser.Surface
	Close() error
}

// Opener starts a browser for profile.
type Opener func(ctx context.Context, profile browser.Profile) (Browser, error)

// Options carries the collaborators a Session does not build itself.
type Options struct {
	// Provider is the LLM that drives the run. Required.
	Provider llm.Provider

	// Opener defaults to a Playwright Chromium session.
	Opener Opener

	// Prompter reads operator input. Defaults to stdin/stdout.
	Prompter human.Prompter

	// Credentials overrides the provider selected by the config.
	Credentials credentials.Provider

	HTTPClient *http.Client
	Clock      func() time.Time
	Counter    *driver.Counter

	// RunID names the run summary directory. Defaults to a fresh UUID.
	RunID string

	// NewLogger returns the logger for a component. Defaults to discarding.
	NewLogger func(component string) *logging.Logger
	Console   *console.Printer
}

// Session is a single run.
type Session struct {
	cfg     *Config
	opts    Options
	profile browser.Profile
	task    string
	runID   string
	log     *logging.Logger
	console *console.Printer

	browser  Browser
	store    *artifact.Store
	registry *actions.Registry

	closeOnce sync.Once
}

// New validates cfg and prepares a session. No browser is started yet.
func New(cfg *Config, opts Options) (*Session, error) {
	if cfg == nil {
		return nil, errors.New("session config is required")
	}
	if opts.Provider == nil {
		return nil, errors.New("llm provider is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	profile, err := cfg.Profile()
	if err != nil {
		return nil, err
	}
	task, err := cfg.ResolveTask()
	if err != nil {
		return nil, err
	}

	if opts.NewLogger == nil {
		opts.NewLogger = logging.Discard
	}
	if opts.Console == nil {
		opts.Console = console.Discard()
	}
	if opts.Opener == nil {
		opts.Opener = playwrightOpener(cfg.Browser.SkipInstall, opts.NewLogger("browser"))
	}
	if opts.Prompter == nil {
		opts.Prompter = human.NewStdioPrompter()
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	runID := opts.RunID
	if runID == "" {
		runID = uuid.NewString()
	}

	return &Session{
		cfg:     cfg,
		opts:    opts,
		profile: profile,
		task:    task,
		runID:   runID,
		log:     opts.NewLogger("session"),
		console: opts.Console,
	}, nil
}

// RunID returns the identifier of this run.
func (s *Session) RunID() string {
	return s.runID
}

// Task returns the task handed to the agent.
func (s *Session) Task() string {
	return s.task
}

// Init creates the artifact root, opens the browser, loads the start URL and
// registers every action against the page. Any failure here is fatal to the
// run; the browser, if opened, is released by Close.
func (s *Session) Init(ctx context.Context) error {
	s.store = artifact.NewStore(s.cfg.Artifacts.Root,
		artifact.WithClock(s.opts.Clock),
		artifact.WithLogger(s.opts.NewLogger("artifact")))
	if err := s.store.EnsureRoot(); err != nil {
		return err
	}

	s.console.Step("Opening browser")
	b, err := s.opts.Opener(ctx, s.profile)
	if err != nil {
		return fmt.Errorf("failed to open browser: %w", err)
	}
	s.browser = b

	if s.cfg.StartURL != "" {
		s.console.Step("Opening %s", s.cfg.StartURL)
		if err := b.Navigate(ctx, s.cfg.StartURL); err != nil {
			return fmt.Errorf("failed to open start URL: %w", err)
		}
	}

	terminal := human.NewTerminal(s.opts.Prompter, human.WithTimeout(s.cfg.Human.Timeout))
	creds, err := s.credentialProvider(terminal)
	if err != nil {
		return err
	}
	hosts, err := actions.NewHostMatcher(s.cfg.Download.AllowedHosts, s.cfg.Download.DeniedHosts)
	if err != nil {
		return err
	}
	client := s.opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: s.cfg.Download.Timeout}
	}

	registry := actions.NewRegistry(s.opts.NewLogger("actions"), s.console)
	deps := actions.Deps{
		Page:        b,
		Store:       s.store,
		Terminal:    terminal,
		Credentials: creds,
		Site:        s.cfg.Vendor,
		HTTPClient:  client,
		Hosts:       hosts,
		Console:     s.console,
		Logger:      s.opts.NewLogger("actions"),
	}
	if err := registry.Register(actions.InvoiceTools(deps)...); err != nil {
		return err
	}
	if err := registry.Register(browser.Tools(b)...); err != nil {
		return err
	}
	if err := registry.Register(tools.NewTaskCompletionTool()); err != nil {
		return err
	}
	s.registry = registry

	s.log.Infof("Session initialized (run %s, %d actions)", s.runID, len(registry.Names()))
	return nil
}

// Run hands the task to the agent and writes the run summary when the agent
// stops. The summary is written even when the run fails.
func (s *Session) Run(ctx context.Context) (*driver.RunSummary, error) {
	if s.registry == nil {
		return nil, errors.New("session not initialized")
	}

	start := s.opts.Clock()
	d := driver.New(s.opts.Provider, s.registry, driver.Options{
		MaxTurns:           s.cfg.Agent.MaxTurns,
		MaxContextTokens:   s.cfg.Agent.MaxContextTokens,
		WaitBetweenActions: s.profile.WaitBetweenActions,
		Instructions:       s.cfg.Agent.Instructions,
		Counter:            s.opts.Counter,
		Logger:             s.opts.NewLogger("driver"),
		Console:            s.console,
	})
	res, runErr := d.Run(ctx, s.task)
	end := s.opts.Clock()

	summary := &driver.RunSummary{
		RunID:        s.runID,
		Task:         s.task,
		Vendor:       s.cfg.Vendor,
		Model:        s.opts.Provider.GetModel(),
		Status:       res.Status,
		Answer:       res.Answer,
		StartTime:    start,
		EndTime:      end,
		Duration:     end.Sub(start),
		Turns:        res.Turns,
		PromptTokens: res.PromptTokens,
		Artifacts:    s.store.Written(),
		Events:       res.Events,
	}
	if runErr != nil {
		summary.Error = runErr.Error()
	}

	if s.cfg.Artifacts.SummaryDir != "" {
		w := driver.NewSummaryWriter(filepath.Join(s.cfg.Artifacts.SummaryDir, s.runID))
		if err := w.WriteAll(summary); err != nil {
			s.log.Errorf("Failed to write run summary: %v", err)
			s.console.Failure("Failed to write run summary: %v", err)
		} else {
			s.log.Infof("Run summary written to %s", w.Dir())
		}
	}

	s.report(summary)
	return summary, runErr
}

// Close releases the browser. Safe to call more than once and before Init.
func (s *Session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		if s.browser != nil {
			err = s.browser.Close()
		}
	})
	return err
}

func (s *Session) report(summary *driver.RunSummary) {
	switch summary.Status {
	case driver.StatusCompleted:
		s.console.Success("Run completed in %d turns", summary.Turns)
	default:
		s.console.Failure("Run ended with status %s after %d turns", summary.Status, summary.Turns)
	}
	for _, a := range summary.Artifacts {
		s.console.Field(string(a.Kind), a.Path)
	}
	if len(summary.Artifacts) == 0 {
		s.console.Notice("No invoices were saved")
	}
}

// credentialProvider builds the provider named by the run config, falling
// back to the user config store and finally to environment variables.
func (s *Session) credentialProvider(terminal *human.Terminal) (credentials.Provider, error) {
	if s.opts.Credentials != nil {
		return s.opts.Credentials, nil
	}

	source := s.cfg.Credentials.Source
	prefix := s.cfg.Credentials.EnvPrefix
	command := s.cfg.Credentials.Command
	if source == "" {
		if section := config.GetCredentials(); section != nil {
			source, prefix, command = section.Snapshot()
		}
	}

	switch source {
	case "", config.CredentialSourceEnv:
		return credentials.Env{Prefix: prefix, Lookup: os.LookupEnv}, nil
	case config.CredentialSourcePrompt:
		return credentials.Prompt{Terminal: terminal}, nil
	case config.CredentialSourceCommand:
		return credentials.Command{Argv: command}, nil
	default:
		return nil, fmt.Errorf("unknown credentials source %q", source)
	}
}

func playwrightOpener(skipInstall bool, log *logging.Logger) Opener {
	return func(ctx context.Context, profile browser.Profile) (Browser, error) {
		return browser.Open(ctx, profile, browser.OpenOptions{
			SkipInstall: skipInstall,
			Output:      log.Writer(),
			Logger:      log,
		})
	}
}
