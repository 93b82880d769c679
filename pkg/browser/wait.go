package browser

import (
	"context"
	"encoding/xml"
	"fmt"

	"github.com/adam-cain/auto-invoice/pkg/agent/tools"
)

// WaitTool waits for an element to reach a state.
type WaitTool struct {
	surface Surface
}

// NewWaitTool creates a new wait tool.
func NewWaitTool(surface Surface) *WaitTool {
	return &WaitTool{surface: surface}
}

// Name returns the tool name.
func (t *WaitTool) Name() string {
	return "wait_for"
}

// Description returns the tool description.
func (t *WaitTool) Description() string {
	return "Wait for an element on the current page to become visible, hidden, attached or detached."
}

// Schema returns the tool's JSON schema.
func (t *WaitTool) Schema() map[string]interface{} {
	return tools.BaseToolSchema(
		map[string]interface{}{
			"selector": map[string]interface{}{
				"type":        "string",
				"description": "Selector of the element to wait for",
			},
			"state": map[string]interface{}{
				"type":        "string",
				"description": "State to wait for: 'visible' (default), 'hidden', 'attached', or 'detached'",
			},
		},
		[]string{"selector"},
	)
}

// WaitInput represents the parameters for waiting.
type WaitInput struct {
	XMLName  xml.Name `xml:"arguments"`
	Selector string   `xml:"selector"`
	State    string   `xml:"state"`
}

var validSelectorStates = map[string]bool{
	"visible":  true,
	"hidden":   true,
	"attached": true,
	"detached": true,
}

// Execute waits for the element.
func (t *WaitTool) Execute(ctx context.Context, argsXML []byte) (string, map[string]interface{}, error) {
	var input WaitInput
	if err := tools.UnmarshalXMLWithFallback(argsXML, &input); err != nil {
		return "", nil, fmt.Errorf("invalid parameters: %w", err)
	}
	if input.Selector == "" {
		return "", nil, fmt.Errorf("selector is required")
	}
	if input.State == "" {
		input.State = "visible"
	}
	if !validSelectorStates[input.State] {
		return "", nil, fmt.Errorf("invalid state: %s", input.State)
	}

	if err := t.surface.WaitForSelector(ctx, input.Selector, input.State); err != nil {
		return "", nil, err
	}

	return fmt.Sprintf("Element %s is %s", input.Selector, input.State), nil, nil
}

// IsLoopBreaking returns whether this tool breaks the agent loop.
func (t *WaitTool) IsLoopBreaking() bool {
	return false
}
