package config

import (
	"fmt"
	"slices"
	"sync"
)

// SectionIDCredentials is the identifier for the credential source section.
const SectionIDCredentials = "credentials"

// Credential source kinds.
const (
	CredentialSourceEnv     = "env"
	CredentialSourcePrompt  = "prompt"
	CredentialSourceCommand = "command"
)

// CredentialsSection records where login credentials come from. It never
// holds the credentials themselves.
type CredentialsSection struct {
	Source    string
	EnvPrefix string
	Command   []string
	mu        sync.RWMutex
}

// NewCredentialsSection creates a section defaulting to environment variables.
func NewCredentialsSection() *CredentialsSection {
	return &CredentialsSection{Source: CredentialSourceEnv}
}

// ID returns the section identifier.
func (s *CredentialsSection) ID() string {
	return SectionIDCredentials
}

// Title returns the section title.
func (s *CredentialsSection) Title() string {
	return "Login Credentials"
}

// Description returns the section description.
func (s *CredentialsSection) Description() string {
	return "Where login credentials are read from: env (INVOICE_EMAIL / INVOICE_PASSWORD), prompt (ask the operator) or command (a secret-manager command printing JSON)."
}

// Data returns the current configuration data.
func (s *CredentialsSection) Data() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cmd := make([]any, 0, len(s.Command))
	for _, a := range s.Command {
		cmd = append(cmd, a)
	}
	return map[string]any{
		"source":     s.Source,
		"env_prefix": s.EnvPrefix,
		"command":    cmd,
	}
}

// SetData updates the configuration from the provided data. JSON arrays
// arrive as []any.
func (s *CredentialsSection) SetData(data map[string]any) error {
	if data == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if source, ok := data["source"].(string); ok && source != "" {
		s.Source = source
	}
	if prefix, ok := data["env_prefix"].(string); ok {
		s.EnvPrefix = prefix
	}
	switch cmd := data["command"].(type) {
	case []string:
		s.Command = slices.Clone(cmd)
	case []any:
		s.Command = s.Command[:0]
		for _, a := range cmd {
			str, ok := a.(string)
			if !ok {
				return fmt.Errorf("credentials command entries must be strings, got %T", a)
			}
			s.Command = append(s.Command, str)
		}
	}
	return nil
}

// Validate checks the source kind and that a command source has a command.
func (s *CredentialsSection) Validate() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	switch s.Source {
	case CredentialSourceEnv, CredentialSourcePrompt:
		return nil
	case CredentialSourceCommand:
		if len(s.Command) == 0 {
			return fmt.Errorf("credentials source %q requires a command", s.Source)
		}
		return nil
	default:
		return fmt.Errorf("unknown credentials source %q", s.Source)
	}
}

// Reset resets the section to default configuration.
func (s *CredentialsSection) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Source = CredentialSourceEnv
	s.EnvPrefix = ""
	s.Command = nil
}

// Snapshot returns a copy of the settings.
func (s *CredentialsSection) Snapshot() (source, envPrefix string, command []string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Source, s.EnvPrefix, slices.Clone(s.Command)
}
