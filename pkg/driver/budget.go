package driver

import (
	"github.com/pkoukk/tiktoken-go"

	"github.com/adam-cain/auto-invoice/pkg/types"
)

const (
	fallbackEncoding = "cl100k_base"

	// perMessageOverhead approximates the role and separator tokens the
	// chat format adds to every message.
	perMessageOverhead = 4
)

// Counter estimates prompt sizes in tokens.
type Counter struct {
	enc *tiktoken.Tiktoken
}

// NewCounter loads the encoding for model, falling back to cl100k_base.
// When no encoding can be loaded the counter estimates four bytes per token.
func NewCounter(model string) *Counter {
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc, err = tiktoken.GetEncoding(fallbackEncoding)
	}
	if err != nil {
		return &Counter{}
	}
	return &Counter{enc: enc}
}

// CountTokens returns the token count of text.
func (c *Counter) CountTokens(text string) int {
	if c == nil || c.enc == nil {
		return (len(text) + 3) / 4
	}
	return len(c.enc.Encode(text, nil, nil))
}

// CountMessages returns the token count of a message list.
func (c *Counter) CountMessages(messages []*types.Message) int {
	total := 0
	for _, m := range messages {
		total += perMessageOverhead + c.CountTokens(m.Content)
	}
	return total
}

// Trim drops the oldest exchanges from history until the prompt built from
// systemPrompt and history fits within maxTokens. The first message (the
// task) is always kept, as is the latest exchange. maxTokens <= 0 disables
// trimming. It returns the trimmed history and the final prompt size.
func (c *Counter) Trim(systemPrompt string, history []*types.Message, maxTokens int) ([]*types.Message, int) {
	size := c.CountMessages(BuildMessages(systemPrompt, history))
	if maxTokens <= 0 {
		return history, size
	}

	for size > maxTokens && len(history) > 3 {
		// Drop one assistant turn and the result that answered it.
		trimmed := make([]*types.Message, 0, len(history)-2)
		trimmed = append(trimmed, history[0])
		trimmed = append(trimmed, history[3:]...)
		history = trimmed
		size = c.CountMessages(BuildMessages(systemPrompt, history))
	}
	return history, size
}
