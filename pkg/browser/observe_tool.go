package browser

import (
	"context"
	"encoding/xml"
	"fmt"

	"github.com/adam-cain/auto-invoice/pkg/agent/tools"
)

// ObserveTool returns a text view of the current page with its links and
// form controls, so the agent can find billing pages and invoice files.
type ObserveTool struct {
	surface Surface
}

// NewObserveTool creates a new observe tool.
func NewObserveTool(surface Surface) *ObserveTool {
	return &ObserveTool{surface: surface}
}

// Name returns the tool name.
func (t *ObserveTool) Name() string {
	return "observe_page"
}

// Description returns the tool description.
func (t *ObserveTool) Description() string {
	return "Read the current page: visible text, form controls with ready-to-use selectors, and links with absolute URLs. " +
		"Use the link URLs with download_invoice_file when an invoice file is linked."
}

// Schema returns the tool's JSON schema.
func (t *ObserveTool) Schema() map[string]interface{} {
	return tools.BaseToolSchema(
		map[string]interface{}{
			"max_length": map[string]interface{}{
				"type":        "integer",
				"description": fmt.Sprintf("Maximum characters of page text to return (default %d)", DefaultObserveLength),
			},
		},
		nil,
	)
}

// ObserveInput represents the parameters for observing.
type ObserveInput struct {
	XMLName   xml.Name `xml:"arguments"`
	MaxLength int      `xml:"max_length"`
}

// Execute reads and renders the page.
func (t *ObserveTool) Execute(ctx context.Context, argsXML []byte) (string, map[string]interface{}, error) {
	var input ObserveInput
	if err := tools.UnmarshalXMLWithFallback(argsXML, &input); err != nil {
		return "", nil, fmt.Errorf("invalid parameters: %w", err)
	}

	raw, err := t.surface.Content(ctx)
	if err != nil {
		return "", nil, err
	}

	obs, err := Observe(raw, t.surface.CurrentURL(), input.MaxLength)
	if err != nil {
		return "", nil, err
	}

	meta := map[string]interface{}{
		"links":     len(obs.Links),
		"controls":  len(obs.Controls),
		"truncated": obs.Truncated,
	}
	return obs.Render(), meta, nil
}

// IsLoopBreaking returns whether this tool breaks the agent loop.
func (t *ObserveTool) IsLoopBreaking() bool {
	return false
}
