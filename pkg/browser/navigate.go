package browser

import (
	"context"
	"encoding/xml"
	"fmt"

	"github.com/adam-cain/auto-invoice/pkg/agent/tools"
)

// NavigateTool navigates the session page to a URL.
type NavigateTool struct {
	surface Surface
}

// NewNavigateTool creates a new navigate tool.
func NewNavigateTool(surface Surface) *NavigateTool {
	return &NavigateTool{surface: surface}
}

// Name returns the tool name.
func (t *NavigateTool) Name() string {
	return "navigate"
}

// Description returns the tool description.
func (t *NavigateTool) Description() string {
	return "Navigate the browser to a URL. The browser will load the page and wait for it to be ready."
}

// Schema returns the tool's JSON schema.
func (t *NavigateTool) Schema() map[string]interface{} {
	return tools.BaseToolSchema(
		map[string]interface{}{
			"url": map[string]interface{}{
				"type":        "string",
				"description": "URL to navigate to (must include protocol, e.g., https://example.com)",
			},
			"wait_until": map[string]interface{}{
				"type":        "string",
				"description": "When to consider navigation complete: 'load' (default), 'domcontentloaded', or 'networkidle'",
			},
		},
		[]string{"url"},
	)
}

// NavigateInput represents the parameters for navigation.
type NavigateInput struct {
	XMLName   xml.Name `xml:"arguments"`
	URL       string   `xml:"url"`
	WaitUntil string   `xml:"wait_until"`
}

var validWaitStates = map[string]bool{
	"load":             true,
	"domcontentloaded": true,
	"networkidle":      true,
}

// Execute navigates to a URL.
func (t *NavigateTool) Execute(ctx context.Context, argsXML []byte) (string, map[string]interface{}, error) {
	var input NavigateInput
	if err := tools.UnmarshalXMLWithFallback(argsXML, &input); err != nil {
		return "", nil, fmt.Errorf("invalid parameters: %w", err)
	}
	if input.URL == "" {
		return "", nil, fmt.Errorf("URL is required")
	}
	if input.WaitUntil == "" {
		input.WaitUntil = "load"
	}
	if !validWaitStates[input.WaitUntil] {
		return "", nil, fmt.Errorf("invalid wait_until value: %s (must be 'load', 'domcontentloaded', or 'networkidle')", input.WaitUntil)
	}

	if err := t.surface.NavigateUntil(ctx, input.URL, input.WaitUntil); err != nil {
		return "", nil, err
	}

	title, err := t.surface.Title(ctx)
	if err != nil || title == "" {
		title = "Unknown"
	}

	result := fmt.Sprintf(`Navigation successful

Page Details:
- URL: %s
- Title: %s

Use observe_page to read the page before interacting with it.`,
		t.surface.CurrentURL(),
		title,
	)
	return result, map[string]interface{}{"url": t.surface.CurrentURL()}, nil
}

// IsLoopBreaking returns whether this tool breaks the agent loop.
func (t *NavigateTool) IsLoopBreaking() bool {
	return false
}
