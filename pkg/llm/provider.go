// Package llm defines the model-provider abstraction the agent driver
// talks to. Concrete providers live in sub-packages.
package llm

import (
	"context"
	"strings"

	"github.com/adam-cain/auto-invoice/pkg/types"
)

// ContentType classifies streamed content.
type ContentType string

const (
	ContentTypeMessage  ContentType = "message"
	ContentTypeThinking ContentType = "thinking"
)

// StreamChunk is one piece of a streamed completion.
type StreamChunk struct {
	Error    error
	Role     string
	Content  string
	Type     ContentType
	Finished bool
}

// IsError reports whether the chunk carries a stream error.
func (c *StreamChunk) IsError() bool {
	return c != nil && c.Error != nil
}

// Provider defines the interface for LLM integrations.
type Provider interface {
	// StreamCompletion sends messages to the model and streams back response
	// chunks. The channel is closed when the stream ends. Stream-time errors
	// arrive as chunks with Error set; the returned error is only for
	// failures to start the stream.
	StreamCompletion(ctx context.Context, messages []*types.Message) (<-chan *StreamChunk, error)

	// Complete sends messages to the model and returns the full response.
	Complete(ctx context.Context, messages []*types.Message) (*types.Message, error)

	// GetModelInfo returns information about the model being used.
	GetModelInfo() *types.ModelInfo

	// GetModel returns the model name being used.
	GetModel() string
}

// Collect drains a stream into a single assistant message.
func Collect(stream <-chan *StreamChunk) (*types.Message, error) {
	var content strings.Builder
	role := string(types.RoleAssistant)

	for chunk := range stream {
		if chunk.IsError() {
			for range stream {
			}
			return nil, chunk.Error
		}
		if chunk.Role != "" {
			role = chunk.Role
		}
		content.WriteString(chunk.Content)
	}

	return &types.Message{
		Role:    types.MessageRole(role),
		Content: content.String(),
	}, nil
}
