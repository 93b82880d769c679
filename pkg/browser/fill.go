package browser

import (
	"context"
	"encoding/xml"
	"fmt"

	"github.com/adam-cain/auto-invoice/pkg/agent/tools"
)

// FillTool fills a form input on the session page.
type FillTool struct {
	surface Surface
}

// NewFillTool creates a new fill tool.
func NewFillTool(surface Surface) *FillTool {
	return &FillTool{surface: surface}
}

// Name returns the tool name.
func (t *FillTool) Name() string {
	return "fill"
}

// Description returns the tool description.
func (t *FillTool) Description() string {
	return "Fill a form input on the current page with text. Do not use this for login credentials; use login instead."
}

// Schema returns the tool's JSON schema.
func (t *FillTool) Schema() map[string]interface{} {
	return tools.BaseToolSchema(
		map[string]interface{}{
			"selector": map[string]interface{}{
				"type":        "string",
				"description": "Selector of the input element",
			},
			"value": map[string]interface{}{
				"type":        "string",
				"description": "Text to fill into the element",
			},
		},
		[]string{"selector", "value"},
	)
}

// FillInput represents the parameters for filling.
type FillInput struct {
	XMLName  xml.Name `xml:"arguments"`
	Selector string   `xml:"selector"`
	Value    string   `xml:"value"`
}

// Execute fills the input.
func (t *FillTool) Execute(ctx context.Context, argsXML []byte) (string, map[string]interface{}, error) {
	var input FillInput
	if err := tools.UnmarshalXMLWithFallback(argsXML, &input); err != nil {
		return "", nil, fmt.Errorf("invalid parameters: %w", err)
	}
	if input.Selector == "" {
		return "", nil, fmt.Errorf("selector is required")
	}

	if err := t.surface.Fill(ctx, input.Selector, input.Value); err != nil {
		return "", nil, err
	}

	result := fmt.Sprintf(`Input filled successfully

Fill Details:
- Selector: %s
- Characters: %d`,
		input.Selector,
		len([]rune(input.Value)),
	)
	return result, nil, nil
}

// IsLoopBreaking returns whether this tool breaks the agent loop.
func (t *FillTool) IsLoopBreaking() bool {
	return false
}
