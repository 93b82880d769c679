package credentials

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/adam-cain/auto-invoice/pkg/human"
)

// DefaultEnvPrefix is used by Env when no prefix is configured.
const DefaultEnvPrefix = "INVOICE"

// Env reads <PREFIX>_EMAIL and <PREFIX>_PASSWORD. A site-specific pair
// (<PREFIX>_<SITE>_EMAIL, e.g. INVOICE_NOTION_EMAIL) takes precedence.
type Env struct {
	Prefix string
	Lookup func(string) (string, bool)
}

// Credentials implements Provider.
func (e Env) Credentials(ctx context.Context, site string) (Credentials, error) {
	prefix := e.Prefix
	if prefix == "" {
		prefix = DefaultEnvPrefix
	}
	lookup := e.Lookup
	if lookup == nil {
		lookup = os.LookupEnv
	}

	var candidates []string
	if key := envKey(site); key != "" {
		candidates = append(candidates, prefix+"_"+key)
	}
	candidates = append(candidates, prefix)

	for _, p := range candidates {
		email, _ := lookup(p + "_EMAIL")
		password, _ := lookup(p + "_PASSWORD")
		c := Credentials{Email: email, Password: password}.Trimmed()
		if c.Complete() {
			return c, nil
		}
	}
	return Credentials{}, fmt.Errorf("%w: set %s_EMAIL and %s_PASSWORD", ErrMissingCredentials, prefix, prefix)
}

func envKey(site string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(strings.TrimSpace(site)) {
		switch {
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return strings.Trim(b.String(), "_")
}

// Prompt asks the operator for both values through a terminal.
type Prompt struct {
	Terminal *human.Terminal
}

// Credentials implements Provider.
func (p Prompt) Credentials(ctx context.Context, site string) (Credentials, error) {
	email, err := p.Terminal.ReadLine(ctx, "Email: ")
	if err != nil {
		return Credentials{}, fmt.Errorf("failed to read email for %s: %w", site, err)
	}
	password, err := p.Terminal.ReadSecret(ctx, "Password: ")
	if err != nil {
		return Credentials{}, fmt.Errorf("failed to read password for %s: %w", site, err)
	}

	c := Credentials{Email: email, Password: password}.Trimmed()
	if !c.Complete() {
		return Credentials{}, ErrMissingCredentials
	}
	return c, nil
}

// Command runs an external secret helper (a password manager CLI, a vault
// client) that prints {"email": "...", "password": "..."} on stdout. The
// site is passed in the INVOICE_SITE environment variable.
type Command struct {
	Argv    []string
	Timeout time.Duration
}

// Credentials implements Provider.
func (c Command) Credentials(ctx context.Context, site string) (Credentials, error) {
	if len(c.Argv) == 0 {
		return Credentials{}, fmt.Errorf("%w: no credential command configured", ErrMissingCredentials)
	}
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, c.Argv[0], c.Argv[1:]...) //nolint:gosec
	cmd.Env = append(os.Environ(), "INVOICE_SITE="+site)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return Credentials{}, fmt.Errorf("credential command %s failed: %w: %s", c.Argv[0], err, strings.TrimSpace(stderr.String()))
	}

	var payload struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.Unmarshal(stdout.Bytes(), &payload); err != nil {
		return Credentials{}, fmt.Errorf("credential command %s printed invalid JSON: %w", c.Argv[0], err)
	}

	creds := Credentials{Email: payload.Email, Password: payload.Password}.Trimmed()
	if !creds.Complete() {
		return Credentials{}, ErrMissingCredentials
	}
	return creds, nil
}
