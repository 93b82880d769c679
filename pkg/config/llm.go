package config

import (
	"fmt"
	"sync"
)

const (
	// SectionIDLLM is the identifier for the LLM settings section
	SectionIDLLM = "llm"

	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// LLMSection manages LLM provider configuration settings.
type LLMSection struct {
	Provider string
	Model    string
	BaseURL  string
	APIKey   string
	mu       sync.RWMutex
}

// NewLLMSection creates a new LLM section with default settings.
func NewLLMSection() *LLMSection {
	return &LLMSection{}
}

// ID returns the section identifier.
func (s *LLMSection) ID() string {
	return SectionIDLLM
}

// Title returns the section title.
func (s *LLMSection) Title() string {
	return "LLM Settings"
}

// Description returns the section description.
func (s *LLMSection) Description() string {
	return "Model provider used to drive the browser agent. provider is openai (default) or gemini; base_url only applies to OpenAI-compatible APIs."
}

// Data returns the current configuration data.
func (s *LLMSection) Data() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return map[string]any{
		"provider": s.Provider,
		"model":    s.Model,
		"base_url": s.BaseURL,
		"api_key":  s.APIKey,
	}
}

// SetData updates the configuration from the provided data.
func (s *LLMSection) SetData(data map[string]any) error {
	if data == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if provider, ok := data["provider"].(string); ok {
		s.Provider = provider
	}
	if model, ok := data["model"].(string); ok {
		s.Model = model
	}
	if baseURL, ok := data["base_url"].(string); ok {
		s.BaseURL = baseURL
	}
	if apiKey, ok := data["api_key"].(string); ok {
		s.APIKey = apiKey
	}
	return nil
}

// Validate rejects unknown provider names. Missing values are resolved at
// provider construction time.
func (s *LLMSection) Validate() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	switch s.Provider {
	case "", ProviderOpenAI, ProviderGemini:
		return nil
	default:
		return fmt.Errorf("unknown llm provider %q", s.Provider)
	}
}

// Reset resets the section to default configuration.
func (s *LLMSection) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Provider = ""
	s.Model = ""
	s.BaseURL = ""
	s.APIKey = ""
}

// GetProvider returns the configured provider name.
func (s *LLMSection) GetProvider() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Provider
}

// GetModel returns the configured model name.
func (s *LLMSection) GetModel() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Model
}

// SetModel sets the model name.
func (s *LLMSection) SetModel(model string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Model = model
}

// GetBaseURL returns the configured base URL.
func (s *LLMSection) GetBaseURL() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.BaseURL
}

// GetAPIKey returns the configured API key.
func (s *LLMSection) GetAPIKey() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.APIKey
}

// SetAPIKey sets the API key.
func (s *LLMSection) SetAPIKey(apiKey string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.APIKey = apiKey
}
