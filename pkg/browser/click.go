package browser

import (
	"context"
	"encoding/xml"
	"fmt"

	"github.com/adam-cain/auto-invoice/pkg/agent/tools"
)

// ClickTool clicks an element on the session page.
type ClickTool struct {
	surface Surface
}

// NewClickTool creates a new click tool.
func NewClickTool(surface Surface) *ClickTool {
	return &ClickTool{surface: surface}
}

// Name returns the tool name.
func (t *ClickTool) Name() string {
	return "click"
}

// Description returns the tool description.
func (t *ClickTool) Description() string {
	return "Click an element on the current page identified by a CSS or text selector. Waits for network idle afterwards so navigations triggered by the click can settle."
}

// Schema returns the tool's JSON schema.
func (t *ClickTool) Schema() map[string]interface{} {
	return tools.BaseToolSchema(
		map[string]interface{}{
			"selector": map[string]interface{}{
				"type":        "string",
				"description": "Selector of the element to click (e.g., 'a:has-text(\"Billing\")', '#download')",
			},
		},
		[]string{"selector"},
	)
}

// ClickInput represents the parameters for clicking.
type ClickInput struct {
	XMLName  xml.Name `xml:"arguments"`
	Selector string   `xml:"selector"`
}

// Execute clicks the element.
func (t *ClickTool) Execute(ctx context.Context, argsXML []byte) (string, map[string]interface{}, error) {
	var input ClickInput
	if err := tools.UnmarshalXMLWithFallback(argsXML, &input); err != nil {
		return "", nil, fmt.Errorf("invalid parameters: %w", err)
	}
	if input.Selector == "" {
		return "", nil, fmt.Errorf("selector is required")
	}

	if err := t.surface.Click(ctx, input.Selector); err != nil {
		return "", nil, err
	}

	idle := "yes"
	if err := t.surface.WaitForIdle(ctx); err != nil {
		idle = "no (" + err.Error() + ")"
	}

	result := fmt.Sprintf(`Element clicked successfully

Click Details:
- Selector: %s
- Network idle: %s
- Current URL: %s`,
		input.Selector,
		idle,
		t.surface.CurrentURL(),
	)
	return result, nil, nil
}

// IsLoopBreaking returns whether this tool breaks the agent loop.
func (t *ClickTool) IsLoopBreaking() bool {
	return false
}
