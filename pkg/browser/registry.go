package browser

import (
	"context"

	"github.com/adam-cain/auto-invoice/pkg/agent/tools"
	"github.com/adam-cain/auto-invoice/pkg/page"
)

// Surface is everything the browsing tools need from the session page.
// *Session satisfies it.
type Surface interface {
	page.Page
	page.Document

	// NavigateUntil loads url and waits for the given load state.
	NavigateUntil(ctx context.Context, url, waitUntil string) error
}

var _ Surface = (*Session)(nil)

// Tools returns the general browsing tools bound to surface.
func Tools(surface Surface) []tools.Tool {
	return []tools.Tool{
		NewNavigateTool(surface),
		NewObserveTool(surface),
		NewSearchTool(surface),
		NewClickTool(surface),
		NewFillTool(surface),
		NewWaitTool(surface),
	}
}
