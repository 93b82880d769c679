package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adam-cain/auto-invoice/pkg/artifact"
	"github.com/adam-cain/auto-invoice/pkg/browser"
	"github.com/adam-cain/auto-invoice/pkg/credentials"
	"github.com/adam-cain/auto-invoice/pkg/driver"
	"github.com/adam-cain/auto-invoice/pkg/human"
	"github.com/adam-cain/auto-invoice/pkg/llm"
	"github.com/adam-cain/auto-invoice/pkg/page/pagetest"
	"github.com/adam-cain/auto-invoice/pkg/types"
)

var fixedNow = time.Date(2024, 3, 1, 10, 15, 30, 0, time.UTC)

type fakeBrowser struct {
	*pagetest.Fake
	closed int
}

func (b *fakeBrowser) Close() error {
	b.closed++
	return nil
}

type scriptedProvider struct {
	mu      sync.Mutex
	replies []string
}

func (p *scriptedProvider) StreamCompletion(ctx context.Context, messages []*types.Message) (<-chan *llm.StreamChunk, error) {
	return nil, errors.New("not used")
}

func (p *scriptedProvider) Complete(ctx context.Context, messages []*types.Message) (*types.Message, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.replies) == 0 {
		return types.NewAssistantMessage("no more replies"), nil
	}
	reply := p.replies[0]
	p.replies = p.replies[1:]
	return types.NewAssistantMessage(reply), nil
}

func (p *scriptedProvider) GetModelInfo() *types.ModelInfo { return &types.ModelInfo{Name: "scripted"} }
func (p *scriptedProvider) GetModel() string               { return "scripted" }

func call(name, args string) string {
	return fmt.Sprintf("<tool>\n<server_name>local</server_name>\n<tool_name>%s</tool_name>\n<arguments>%s</arguments>\n</tool>", name, args)
}

func testConfig(t *testing.T) *Config {
	t.Helper()
	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.Vendor = "Acme"
	cfg.StartURL = "https://billing.acme.test/login"
	cfg.Artifacts.Root = filepath.Join(dir, "invoices")
	cfg.Artifacts.SummaryDir = filepath.Join(dir, "runs")
	cfg.Browser.WaitBetweenActions = time.Millisecond
	cfg.Agent.MaxTurns = 5
	return cfg
}

func newTestSession(t *testing.T, cfg *Config, b *fakeBrowser, p llm.Provider) *Session {
	t.Helper()
	s, err := New(cfg, Options{
		Provider: p,
		Opener: func(ctx context.Context, profile browser.Profile) (Browser, error) {
			return b, nil
		},
		Prompter:    human.NewLinePrompter(strings.NewReader(""), io.Discard),
		Credentials: credentials.Static{Email: "ops@acme.test", Password: "hunter2"},
		Clock:       func() time.Time { return fixedNow },
		Counter:     &driver.Counter{},
		RunID:       "run-1",
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSessionLifecycle(t *testing.T) {
	cfg := testConfig(t)
	b := &fakeBrowser{Fake: pagetest.New("about:blank")}
	p := &scriptedProvider{replies: []string{
		call("save_invoice_content", "<vendor_name>Acme</vendor_name><invoice_content>Invoice #42 Total 19.99</invoice_content>"),
		call("task_completion", "<result>Saved one invoice</result>"),
	}}
	s := newTestSession(t, cfg, b, p)

	require.NoError(t, s.Init(context.Background()))
	assert.Equal(t, "https://billing.acme.test/login", b.CurrentURL())

	summary, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, driver.StatusCompleted, summary.Status)
	assert.Equal(t, "Saved one invoice", summary.Answer)
	assert.Equal(t, "run-1", summary.RunID)
	assert.Equal(t, "scripted", summary.Model)
	assert.Equal(t, 2, summary.Turns)

	want := filepath.Join(cfg.Artifacts.Root, "Acme_20240301_101530_content.txt")
	require.Len(t, summary.Artifacts, 1)
	assert.Equal(t, want, summary.Artifacts[0].Path)
	assert.Equal(t, artifact.KindTextContent, summary.Artifacts[0].Kind)
	assert.FileExists(t, want)

	assert.FileExists(t, filepath.Join(cfg.Artifacts.SummaryDir, "run-1", "run.json"))
	assert.FileExists(t, filepath.Join(cfg.Artifacts.SummaryDir, "run-1", "summary.md"))

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	assert.Equal(t, 1, b.closed)
}

func TestSessionRegistersAllActions(t *testing.T) {
	b := &fakeBrowser{Fake: pagetest.New("about:blank")}
	s := newTestSession(t, testConfig(t), b, &scriptedProvider{})
	require.NoError(t, s.Init(context.Background()))

	names := s.registry.Names()
	for _, name := range []string{
		"login", "get_login_credentials", "pause_for_human",
		"download_invoice_file", "save_invoice_content", "screenshot_invoice",
		"navigate", "observe_page", "click", "fill", "task_completion",
	} {
		assert.Contains(t, names, name)
	}
}

func TestInitStartURLFailureIsFatal(t *testing.T) {
	b := &fakeBrowser{Fake: pagetest.New("about:blank")}
	b.Errors["navigate"] = errors.New("net::ERR_NAME_NOT_RESOLVED")
	s := newTestSession(t, testConfig(t), b, &scriptedProvider{})

	err := s.Init(context.Background())
	assert.ErrorContains(t, err, "failed to open start URL")

	_, err = s.Run(context.Background())
	assert.ErrorContains(t, err, "not initialized")

	require.NoError(t, s.Close())
	assert.Equal(t, 1, b.closed)
}

func TestInitBrowserFailure(t *testing.T) {
	s, err := New(testConfig(t), Options{
		Provider: &scriptedProvider{},
		Opener: func(ctx context.Context, profile browser.Profile) (Browser, error) {
			return nil, errors.New("chromium missing")
		},
	})
	require.NoError(t, err)

	assert.ErrorContains(t, s.Init(context.Background()), "chromium missing")
	assert.NoError(t, s.Close())
}

func TestRunWritesSummaryWhenTurnsRunOut(t *testing.T) {
	cfg := testConfig(t)
	cfg.Agent.MaxTurns = 2
	b := &fakeBrowser{Fake: pagetest.New("about:blank")}
	s := newTestSession(t, cfg, b, &scriptedProvider{})
	require.NoError(t, s.Init(context.Background()))

	summary, err := s.Run(context.Background())
	assert.ErrorIs(t, err, driver.ErrMaxTurns)
	assert.Equal(t, driver.StatusMaxTurns, summary.Status)
	assert.NotEmpty(t, summary.Error)

	md, readErr := os.ReadFile(filepath.Join(cfg.Artifacts.SummaryDir, "run-1", "summary.md"))
	require.NoError(t, readErr)
	assert.Contains(t, string(md), "No invoices were saved.")
}

func TestNewValidates(t *testing.T) {
	_, err := New(testConfig(t), Options{})
	assert.ErrorContains(t, err, "provider is required")

	cfg := testConfig(t)
	cfg.Vendor = ""
	_, err = New(cfg, Options{Provider: &scriptedProvider{}})
	assert.ErrorContains(t, err, "vendor is required")

	s, err := New(testConfig(t), Options{Provider: &scriptedProvider{}})
	require.NoError(t, err)
	assert.NotEmpty(t, s.RunID())
	assert.Contains(t, s.Task(), "Acme")
}

func TestCredentialProviderSelection(t *testing.T) {
	term := human.NewTerminal(human.NewLinePrompter(strings.NewReader(""), io.Discard))

	tests := []struct {
		name string
		cfg  CredentialsConfig
		want credentials.Provider
	}{
		{"env by default", CredentialsConfig{EnvPrefix: "BILLING"}, credentials.Env{Prefix: "BILLING"}},
		{"prompt", CredentialsConfig{Source: "prompt"}, credentials.Prompt{Terminal: term}},
		{"command", CredentialsConfig{Source: "command", Command: []string{"vault", "read"}}, credentials.Command{Argv: []string{"vault", "read"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t)
			cfg.Credentials = tt.cfg
			s, err := New(cfg, Options{Provider: &scriptedProvider{}})
			require.NoError(t, err)

			got, err := s.credentialProvider(term)
			require.NoError(t, err)
			if env, ok := got.(credentials.Env); ok {
				assert.Equal(t, tt.want.(credentials.Env).Prefix, env.Prefix)
				assert.NotNil(t, env.Lookup)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}
