package credentials

import (
	"context"
	"errors"
	"io"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adam-cain/auto-invoice/pkg/human"
)

func TestMaskedPassword(t *testing.T) {
	c := Credentials{Email: "ops@acme.test", Password: "pässwörd"}
	assert.Equal(t, "********", c.MaskedPassword())
	assert.Equal(t, "email=ops@acme.test, password=********", c.String())
	assert.NotContains(t, c.String(), "pässwörd")
}

func TestStatic(t *testing.T) {
	got, err := Static{Email: " a@b.c ", Password: "pw "}.Credentials(context.Background(), "acme")
	require.NoError(t, err)
	assert.Equal(t, Credentials{Email: "a@b.c", Password: "pw"}, got)

	_, err = Static{Email: "a@b.c", Password: "   "}.Credentials(context.Background(), "acme")
	assert.ErrorIs(t, err, ErrMissingCredentials)
}

func TestEnvPrefersSiteSpecificPair(t *testing.T) {
	env := map[string]string{
		"INVOICE_EMAIL":           "shared@acme.test",
		"INVOICE_PASSWORD":        "shared",
		"INVOICE_NOTION_EMAIL":    "notion@acme.test",
		"INVOICE_NOTION_PASSWORD": "notion-pw",
	}
	p := Env{Lookup: func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}}

	got, err := p.Credentials(context.Background(), "Notion")
	require.NoError(t, err)
	assert.Equal(t, "notion@acme.test", got.Email)

	got, err = p.Credentials(context.Background(), "OpenAI Platform")
	require.NoError(t, err)
	assert.Equal(t, "shared@acme.test", got.Email)
}

func TestEnvMissing(t *testing.T) {
	p := Env{Prefix: "BILLING", Lookup: func(string) (string, bool) { return "", false }}

	_, err := p.Credentials(context.Background(), "acme")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingCredentials))
	assert.Contains(t, err.Error(), "BILLING_EMAIL")
}

func TestEnvKey(t *testing.T) {
	assert.Equal(t, "OPENAI_PLATFORM", envKey(" openai platform "))
	assert.Equal(t, "ACME_CO", envKey("acme.co"))
	assert.Equal(t, "", envKey(""))
}

func TestPrompt(t *testing.T) {
	term := human.NewTerminal(human.NewLinePrompter(strings.NewReader("  ops@acme.test \nsecret\n"), io.Discard))

	got, err := Prompt{Terminal: term}.Credentials(context.Background(), "acme")
	require.NoError(t, err)
	assert.Equal(t, Credentials{Email: "ops@acme.test", Password: "secret"}, got)
}

func TestPromptEmptyPassword(t *testing.T) {
	term := human.NewTerminal(human.NewLinePrompter(strings.NewReader("ops@acme.test\n   \n"), io.Discard))

	_, err := Prompt{Terminal: term}.Credentials(context.Background(), "acme")
	assert.ErrorIs(t, err, ErrMissingCredentials)
}

func TestCacheFallsBack(t *testing.T) {
	cache := NewCache(Static{Email: "env@acme.test", Password: "env"})

	got, err := cache.Credentials(context.Background(), "acme")
	require.NoError(t, err)
	assert.Equal(t, "env@acme.test", got.Email)

	cache.Store(Credentials{Email: "typed@acme.test", Password: "typed"})
	got, err = cache.Credentials(context.Background(), "acme")
	require.NoError(t, err)
	assert.Equal(t, "typed@acme.test", got.Email)

	cache.Clear()
	got, err = cache.Credentials(context.Background(), "acme")
	require.NoError(t, err)
	assert.Equal(t, "env@acme.test", got.Email)

	_, err = NewCache(nil).Credentials(context.Background(), "acme")
	assert.ErrorIs(t, err, ErrMissingCredentials)
}

func TestCommand(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}

	cmd := Command{Argv: []string{"sh", "-c", `printf '{"email":"%s@acme.test","password":"pw"}' "$INVOICE_SITE"`}}
	got, err := cmd.Credentials(context.Background(), "billing")
	require.NoError(t, err)
	assert.Equal(t, Credentials{Email: "billing@acme.test", Password: "pw"}, got)

	bad := Command{Argv: []string{"sh", "-c", "echo not-json"}}
	_, err = bad.Credentials(context.Background(), "billing")
	assert.ErrorContains(t, err, "invalid JSON")

	failing := Command{Argv: []string{"sh", "-c", "echo locked >&2; exit 3"}}
	_, err = failing.Credentials(context.Background(), "billing")
	assert.ErrorContains(t, err, "locked")

	_, err = Command{}.Credentials(context.Background(), "billing")
	assert.ErrorIs(t, err, ErrMissingCredentials)
}
