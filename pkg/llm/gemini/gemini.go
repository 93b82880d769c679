// Package gemini provides an llm.Provider backed by the Google Gemini API.
package gemini

import (
	"context"
	"fmt"
	"os"
	"strings"

	"google.golang.org/genai"

	"github.com/adam-cain/auto-invoice/pkg/llm"
	"github.com/adam-cain/auto-invoice/pkg/types"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gemini-2.5-flash"

// Provider implements llm.Provider on top of the genai client.
type Provider struct {
	client      *genai.Client
	model       string
	temperature float32
	modelInfo   *types.ModelInfo
}

// ProviderOption configures a Provider.
type ProviderOption func(*Provider)

// WithModel sets the model to use for completions.
func WithModel(model string) ProviderOption {
	return func(p *Provider) {
		if model != "" {
			p.model = model
		}
	}
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float32) ProviderOption {
	return func(p *Provider) {
		p.temperature = t
	}
}

// NewProvider creates a Gemini provider. If apiKey is empty GOOGLE_API_KEY
// and then GEMINI_API_KEY are used.
func NewProvider(ctx context.Context, apiKey string, opts ...ProviderOption) (*Provider, error) {
	if apiKey == "" {
		apiKey = os.Getenv("GOOGLE_API_KEY")
	}
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("Gemini API key is required (provide via parameter or GOOGLE_API_KEY environment variable)")
	}

	p := &Provider{model: DefaultModel, temperature: 0.2}
	for _, opt := range opts {
		opt(p)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	p.client = client

	p.modelInfo = &types.ModelInfo{
		Provider:          "gemini",
		Name:              p.model,
		SupportsStreaming: true,
		MaxTokens:         1000000,
		Metadata:          make(map[string]interface{}),
	}
	return p, nil
}

// StreamCompletion streams a completion for messages.
func (p *Provider) StreamCompletion(ctx context.Context, messages []*types.Message) (<-chan *llm.StreamChunk, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	contents, config := convertMessages(messages, p.temperature)

	chunks := make(chan *llm.StreamChunk, 10)
	go func() {
		defer close(chunks)

		first := true
		for resp, err := range p.client.Models.GenerateContentStream(ctx, p.model, contents, config) {
			if err != nil {
				chunks <- &llm.StreamChunk{Error: fmt.Errorf("stream read error: %w", err)}
				return
			}
			chunk := &llm.StreamChunk{Content: resp.Text(), Type: llm.ContentTypeMessage}
			if first {
				chunk.Role = string(types.RoleAssistant)
				first = false
			}
			select {
			case chunks <- chunk:
			case <-ctx.Done():
				chunks <- &llm.StreamChunk{Error: ctx.Err()}
				return
			}
		}
		chunks <- &llm.StreamChunk{Finished: true}
	}()

	return chunks, nil
}

// Complete returns the full response for messages.
func (p *Provider) Complete(ctx context.Context, messages []*types.Message) (*types.Message, error) {
	stream, err := p.StreamCompletion(ctx, messages)
	if err != nil {
		return nil, err
	}
	return llm.Collect(stream)
}

// GetModelInfo returns information about the model being used.
func (p *Provider) GetModelInfo() *types.ModelInfo {
	return p.modelInfo
}

// GetModel returns the model name being used.
func (p *Provider) GetModel() string {
	return p.model
}

// convertMessages maps the conversation onto Gemini contents. System
// messages are joined into the system instruction; assistant turns use the
// "model" role.
func convertMessages(messages []*types.Message, temperature float32) ([]*genai.Content, *genai.GenerateContentConfig) {
	var system []string
	contents := make([]*genai.Content, 0, len(messages))

	for _, msg := range messages {
		switch msg.Role {
		case types.RoleSystem:
			system = append(system, msg.Content)
		case types.RoleAssistant:
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleUser))
		}
	}

	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(temperature),
	}
	if len(system) > 0 {
		config.SystemInstruction = genai.NewContentFromText(strings.Join(system, "\n\n"), genai.RoleUser)
	}
	return contents, config
}
