package config

import (
	"context"
	"fmt"
	"os"

	"github.com/adam-cain/auto-invoice/pkg/llm"
	"github.com/adam-cain/auto-invoice/pkg/llm/gemini"
	"github.com/adam-cain/auto-invoice/pkg/llm/openai"
)

// DefaultModel is used when neither flags, environment nor the config file name a model.
const DefaultModel = openai.DefaultModel

// ProviderSettings are the LLM values given on the command line. Empty
// fields fall through to the environment, then the config file.
type ProviderSettings struct {
	Provider string
	Model    string
	BaseURL  string
	APIKey   string
}

// Resolve applies the precedence CLI flags > environment > config file >
// defaults and returns the final settings.
func (cli ProviderSettings) Resolve() ProviderSettings {
	final := cli
	file := GetLLM()

	if final.Provider == "" && file != nil {
		final.Provider = file.GetProvider()
	}
	if final.Provider == "" {
		final.Provider = ProviderOpenAI
	}

	if final.APIKey == "" {
		final.APIKey = os.Getenv(apiKeyEnv(final.Provider))
	}
	if final.BaseURL == "" && final.Provider == ProviderOpenAI {
		final.BaseURL = os.Getenv("OPENAI_BASE_URL")
	}

	if file != nil {
		if final.Model == "" {
			final.Model = file.GetModel()
		}
		if final.BaseURL == "" {
			final.BaseURL = file.GetBaseURL()
		}
		if final.APIKey == "" {
			final.APIKey = file.GetAPIKey()
		}
	}

	if final.Model == "" {
		final.Model = defaultModel(final.Provider)
	}
	return final
}

// BuildProvider creates the LLM provider from resolved settings.
func BuildProvider(ctx context.Context, cli ProviderSettings) (llm.Provider, error) {
	s := cli.Resolve()

	if s.APIKey == "" {
		return nil, fmt.Errorf("API key is required. Set %s, use -api-key, or configure llm.api_key in ~/.auto-invoice/config.json", apiKeyEnv(s.Provider))
	}

	switch s.Provider {
	case ProviderOpenAI:
		p, err := openai.NewProvider(s.APIKey, openai.WithModel(s.Model), openai.WithBaseURL(s.BaseURL))
		if err != nil {
			return nil, fmt.Errorf("failed to create LLM provider: %w", err)
		}
		return p, nil
	case ProviderGemini:
		p, err := gemini.NewProvider(ctx, s.APIKey, gemini.WithModel(s.Model))
		if err != nil {
			return nil, fmt.Errorf("failed to create LLM provider: %w", err)
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", s.Provider)
	}
}

func apiKeyEnv(provider string) string {
	if provider == ProviderGemini {
		return "GOOGLE_API_KEY"
	}
	return "OPENAI_API_KEY"
}

func defaultModel(provider string) string {
	if provider == ProviderGemini {
		return gemini.DefaultModel
	}
	return DefaultModel
}
