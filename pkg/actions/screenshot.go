package actions

import (
	"context"
	"encoding/xml"
	"fmt"

	"github.com/adam-cain/auto-invoice/pkg/agent/tools"
	"github.com/adam-cain/auto-invoice/pkg/artifact"
)

// ScreenshotAction captures the whole page as a PNG.
type ScreenshotAction struct {
	deps *Deps
}

func (a *ScreenshotAction) Name() string { return ScreenshotName }

func (a *ScreenshotAction) Description() string {
	return "Take a full-page screenshot of the invoice currently shown. Use when the invoice cannot be downloaded as a file."
}

func (a *ScreenshotAction) Schema() map[string]interface{} {
	return tools.BaseToolSchema(
		map[string]interface{}{
			"vendor_name": map[string]interface{}{
				"type":        "string",
				"description": "Vendor the invoice is from, used in the file name",
			},
		},
		[]string{"vendor_name"},
	)
}

func (a *ScreenshotAction) IsLoopBreaking() bool { return false }

// Execute never returns an error; failures are reported in the result text.
func (a *ScreenshotAction) Execute(ctx context.Context, argsXML []byte) (string, map[string]interface{}, error) {
	var args struct {
		XMLName xml.Name `xml:"arguments"`
		Vendor  string   `xml:"vendor_name"`
	}
	if err := a.deps.ensureRoot(); err != nil {
		return a.fail(err)
	}
	if err := tools.UnmarshalXMLWithFallback(argsXML, &args); err != nil {
		return fmt.Sprintf("Error taking screenshot: invalid arguments: %v", err), nil, nil
	}

	target, err := a.deps.Store.Reserve(args.Vendor, artifact.KindScreenshot, "")
	if err == nil {
		err = a.deps.Page.Screenshot(ctx, target.Path, true)
	}
	if err != nil {
		return a.fail(err)
	}

	a.deps.Store.Record(target)
	a.deps.Console.Success("Invoice screenshot saved: %s", target.Path)
	return fmt.Sprintf("Invoice screenshot saved as %s", target.Path), map[string]interface{}{
		"path": target.Path,
	}, nil
}

func (a *ScreenshotAction) fail(err error) (string, map[string]interface{}, error) {
	a.deps.Logger.Errorf("Screenshot failed: %v", err)
	a.deps.Console.Failure("Error taking screenshot: %v", err)
	return fmt.Sprintf("Error taking screenshot: %v", err), nil, nil
}
