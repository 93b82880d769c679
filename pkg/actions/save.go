package actions

import (
	"context"
	"encoding/xml"
	"fmt"
	"strings"
	"time"

	"github.com/adam-cain/auto-invoice/pkg/agent/tools"
	"github.com/adam-cain/auto-invoice/pkg/artifact"
)

const contentRule = "=================================================="

// SaveContentAction stores invoice text the agent extracted from the page.
type SaveContentAction struct {
	deps *Deps
}

func (a *SaveContentAction) Name() string { return SaveContentName }

func (a *SaveContentAction) Description() string {
	return "Save invoice details shown on the page as a text file. Pass the full invoice text " +
		"(number, dates, line items, totals) exactly as it appears."
}

func (a *SaveContentAction) Schema() map[string]interface{} {
	return tools.BaseToolSchema(
		map[string]interface{}{
			"vendor_name": map[string]interface{}{
				"type":        "string",
				"description": "Vendor the invoice is from, used in the file name",
			},
			"invoice_content": map[string]interface{}{
				"type":        "string",
				"description": "Invoice text to save verbatim",
			},
		},
		[]string{"vendor_name", "invoice_content"},
	)
}

func (a *SaveContentAction) IsLoopBreaking() bool { return false }

// Execute never returns an error; failures are reported in the result text.
func (a *SaveContentAction) Execute(ctx context.Context, argsXML []byte) (string, map[string]interface{}, error) {
	var args struct {
		XMLName xml.Name `xml:"arguments"`
		Vendor  string   `xml:"vendor_name"`
		Content string   `xml:"invoice_content"`
	}
	if err := a.deps.ensureRoot(); err != nil {
		return a.fail(err)
	}
	if err := tools.UnmarshalXMLWithFallback(argsXML, &args); err != nil {
		return fmt.Sprintf("Error saving invoice content: invalid arguments: %v", err), nil, nil
	}

	target, err := a.deps.Store.DeriveName(args.Vendor, artifact.KindTextContent, "")
	if err != nil {
		return a.fail(err)
	}

	doc := FormatContent(args.Vendor, a.deps.Page.CurrentURL(), target.Timestamp, args.Content)
	saved, err := a.deps.Store.WriteText(target, doc)
	if err != nil {
		return a.fail(err)
	}

	a.deps.Console.Success("Invoice content saved: %s", saved.Path)
	return fmt.Sprintf("Invoice content saved as %s", saved.Path), map[string]interface{}{
		"path":  saved.Path,
		"bytes": saved.Bytes,
	}, nil
}

func (a *SaveContentAction) fail(err error) (string, map[string]interface{}, error) {
	a.deps.Logger.Errorf("Saving invoice content failed: %v", err)
	a.deps.Console.Failure("Error saving invoice content: %v", err)
	return fmt.Sprintf("Error saving invoice content: %v", err), nil, nil
}

// FormatContent renders the saved text document: a four-line header, a
// blank line, then content unchanged.
func FormatContent(vendor, sourceURL string, at time.Time, content string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Invoice for: %s\n", vendor)
	fmt.Fprintf(&b, "Extracted on: %s\n", at.Format(artifact.HeaderTimeLayout))
	fmt.Fprintf(&b, "Source URL: %s\n", sourceURL)
	b.WriteString(contentRule)
	b.WriteString("\n\n")
	b.WriteString(content)
	return b.String()
}
