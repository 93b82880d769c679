package driver

import (
	"fmt"
	"sort"
	"strings"
)

// Flow names a built-in task template.
type Flow string

const (
	// FlowPromptedLogin asks the operator for credentials before signing in.
	FlowPromptedLogin Flow = "prompted-login"

	// FlowAutoLogin signs in with credentials from the configured provider.
	FlowAutoLogin Flow = "auto-login"
)

// TaskParams fill a task template.
type TaskParams struct {
	Vendor   string
	StartURL string
}

const promptedLoginTask = `Access %[1]s's customer portal and retrieve its invoices:

1. The browser is already at %[2]s. Observe the page and find the login form.
2. Use get_login_credentials to collect the email and password from the operator for %[1]s.
3. Use login to fill the login form with those credentials and sign in.
4. Go to the account or billing section (usually found in the user menu or settings).
5. Look for billing, invoices or payment history.
6. Find and retrieve every available invoice.
7. Save each invoice using the appropriate method:
   * If it is a PDF or downloadable file, use download_invoice_file with the file URL
   * If it is visible text on the page, use save_invoice_content with the text
   * If it is a complex invoice page, use screenshot_invoice to capture it

Priority: always try to get the actual invoice file (PDF) first, then fall back to text content or screenshots.

Finish with a summary of the invoices found and saved, including file paths and types.`

const autoLoginTask = `Log in to %[1]s automatically and retrieve its invoices:

1. The browser is already at %[2]s, the login page.
2. Call login to sign in with the configured credentials for %[1]s.
3. Once signed in, take a screenshot of the dashboard with screenshot_invoice to confirm the login.
4. Navigate to the billing or invoices section (usually under account settings or billing).
5. Extract all available invoice information: invoice dates, amounts, invoice numbers and service periods.
6. For each invoice found:
   - Save the invoice details as text with save_invoice_content
   - Download the invoice file with download_invoice_file if one is available
   - Take a screenshot of the invoice page with screenshot_invoice
7. Finish with a summary of all invoices found.`

var taskTemplates = map[Flow]string{
	FlowPromptedLogin: promptedLoginTask,
	FlowAutoLogin:     autoLoginTask,
}

// Flows returns the names of the built-in task templates, sorted.
func Flows() []string {
	names := make([]string, 0, len(taskTemplates))
	for f := range taskTemplates {
		names = append(names, string(f))
	}
	sort.Strings(names)
	return names
}

// RenderTask fills the template for flow.
func RenderTask(flow Flow, p TaskParams) (string, error) {
	tmpl, ok := taskTemplates[flow]
	if !ok {
		return "", fmt.Errorf("unknown flow %q (available: %s)", flow, strings.Join(Flows(), ", "))
	}
	if strings.TrimSpace(p.Vendor) == "" {
		return "", fmt.Errorf("flow %s requires a vendor", flow)
	}
	startURL := p.StartURL
	if startURL == "" {
		startURL = "the vendor's login page"
	}
	return fmt.Sprintf(tmpl, p.Vendor, startURL), nil
}
