// Package credentials supplies portal login pairs to the login actions.
//
// Credentials are held in memory only for the duration of a call chain.
// Nothing in this package logs or persists a password.
package credentials

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"
)

// ErrMissingCredentials is returned when a provider has no usable pair.
var ErrMissingCredentials = errors.New("missing credentials")

// Credentials is an email/password pair for one portal.
type Credentials struct {
	Email    string
	Password string
}

// Trimmed returns c with surrounding whitespace removed from both values.
func (c Credentials) Trimmed() Credentials {
	return Credentials{
		Email:    strings.TrimSpace(c.Email),
		Password: strings.TrimSpace(c.Password),
	}
}

// Complete reports whether both values are present.
func (c Credentials) Complete() bool {
	return c.Email != "" && c.Password != ""
}

// MaskedPassword returns one '*' per character of the password.
func (c Credentials) MaskedPassword() string {
	return strings.Repeat("*", utf8.RuneCountInString(c.Password))
}

// String never reveals the password.
func (c Credentials) String() string {
	return fmt.Sprintf("email=%s, password=%s", c.Email, c.MaskedPassword())
}

// Provider resolves credentials for a site. Implementations return
// ErrMissingCredentials (possibly wrapped) when nothing usable is available.
type Provider interface {
	Credentials(ctx context.Context, site string) (Credentials, error)
}

// Static always returns the same pair. Intended for tests.
type Static Credentials

// Credentials implements Provider.
func (s Static) Credentials(ctx context.Context, site string) (Credentials, error) {
	c := Credentials(s).Trimmed()
	if !c.Complete() {
		return Credentials{}, ErrMissingCredentials
	}
	return c, nil
}

// Cache holds the pair most recently supplied by an operator and falls back
// to another provider when empty.
type Cache struct {
	mu       sync.Mutex
	current  *Credentials
	fallback Provider
}

// NewCache creates a cache in front of fallback, which may be nil.
func NewCache(fallback Provider) *Cache {
	return &Cache{fallback: fallback}
}

// Store remembers c for subsequent Credentials calls.
func (c *Cache) Store(creds Credentials) {
	c.mu.Lock()
	defer c.mu.Unlock()
	creds = creds.Trimmed()
	c.current = &creds
}

// Clear forgets the cached pair.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = nil
}

// Credentials implements Provider.
func (c *Cache) Credentials(ctx context.Context, site string) (Credentials, error) {
	c.mu.Lock()
	cached := c.current
	c.mu.Unlock()

	if cached != nil && cached.Complete() {
		return *cached, nil
	}
	if c.fallback == nil {
		return Credentials{}, ErrMissingCredentials
	}
	return c.fallback.Credentials(ctx, site)
}
