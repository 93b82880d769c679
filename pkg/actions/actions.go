package actions

import (
	"net/http"

	"github.com/adam-cain/auto-invoice/pkg/agent/tools"
	"github.com/adam-cain/auto-invoice/pkg/artifact"
	"github.com/adam-cain/auto-invoice/pkg/console"
	"github.com/adam-cain/auto-invoice/pkg/credentials"
	"github.com/adam-cain/auto-invoice/pkg/human"
	"github.com/adam-cain/auto-invoice/pkg/logging"
	"github.com/adam-cain/auto-invoice/pkg/page"
)

// Action names exposed to the agent.
const (
	LoginName          = "login"
	GetCredentialsName = "get_login_credentials"
	PauseName          = "pause_for_human"
	DownloadName       = "download_invoice_file"
	SaveContentName    = "save_invoice_content"
	ScreenshotName     = "screenshot_invoice"
)

// Deps are the collaborators shared by the invoice actions.
type Deps struct {
	Page     page.Page
	Store    *artifact.Store
	Terminal *human.Terminal

	// Credentials is read by login. Operator-supplied pairs from
	// get_login_credentials are placed in Cache, which login consults first.
	Credentials credentials.Provider
	Cache       *credentials.Cache

	// Site names the portal for credential lookup when login is called
	// without a site.
	Site string

	HTTPClient *http.Client
	Hosts      *HostMatcher

	Console *console.Printer
	Logger  *logging.Logger
}

func (d *Deps) withDefaults() *Deps {
	c := *d
	if c.Logger == nil {
		c.Logger = logging.Discard("actions")
	}
	if c.Console == nil {
		c.Console = console.Discard()
	}
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: DefaultDownloadTimeout}
	}
	if c.Cache == nil {
		c.Cache = credentials.NewCache(c.Credentials)
	}
	return &c
}

// ensureRoot creates the artifact root. Every action calls it first so the
// root exists once any action has run, whether or not the action succeeds.
func (d *Deps) ensureRoot() error {
	if d.Store == nil {
		return nil
	}
	return d.Store.EnsureRoot()
}

// InvoiceTools returns the six invoice actions bound to deps.
func InvoiceTools(deps Deps) []tools.Tool {
	d := deps.withDefaults()
	return []tools.Tool{
		&LoginAction{deps: d},
		&GetCredentialsAction{deps: d},
		&PauseAction{deps: d},
		&DownloadAction{deps: d},
		&SaveContentAction{deps: d},
		&ScreenshotAction{deps: d},
	}
}
