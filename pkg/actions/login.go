package actions

import (
	"context"
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/adam-cain/auto-invoice/pkg/agent/tools"
	"github.com/adam-cain/auto-invoice/pkg/credentials"
	"github.com/adam-cain/auto-invoice/pkg/page"
)

// LoginAction signs in through the generic email/password form on the
// current page using credentials from the configured provider.
type LoginAction struct {
	deps *Deps
}

func (a *LoginAction) Name() string { return LoginName }

func (a *LoginAction) Description() string {
	return "Log in on the current page. Fills the email and password fields and submits the form using the configured credentials " +
		"(or the ones supplied through get_login_credentials). Navigate to the login page first."
}

func (a *LoginAction) Schema() map[string]interface{} {
	return tools.BaseToolSchema(
		map[string]interface{}{
			"site_name": map[string]interface{}{
				"type":        "string",
				"description": "Optional name of the site, used to pick site-specific credentials",
			},
		},
		nil,
	)
}

func (a *LoginAction) IsLoopBreaking() bool { return false }

// Execute never returns an error; failures are reported in the result text.
func (a *LoginAction) Execute(ctx context.Context, argsXML []byte) (string, map[string]interface{}, error) {
	var args struct {
		XMLName xml.Name `xml:"arguments"`
		Site    string   `xml:"site_name"`
	}
	if err := a.deps.ensureRoot(); err != nil {
		a.deps.Logger.Warnf("Failed to create artifact root: %v", err)
	}
	if err := tools.UnmarshalXMLWithFallback(argsXML, &args); err != nil {
		return fmt.Sprintf("Login error: invalid arguments: %v", err), nil, nil
	}

	site := strings.TrimSpace(args.Site)
	if site == "" {
		site = a.deps.Site
	}

	if err := a.login(ctx, site); err != nil {
		a.deps.Logger.Errorf("Login on %s failed: %v", a.deps.Page.CurrentURL(), err)
		a.deps.Console.Failure("Error during login: %v", err)
		return fmt.Sprintf("Login error: %v", err), nil, nil
	}

	a.deps.Console.Success("Login attempt completed")
	return "Login completed successfully", nil, nil
}

func (a *LoginAction) login(ctx context.Context, site string) error {
	p := a.deps.Page

	if err := p.WaitForIdle(ctx); err != nil {
		return err
	}

	creds, err := a.deps.Cache.Credentials(ctx, site)
	if err != nil {
		return err
	}
	a.deps.Console.Step("Attempting to log in with email: %s", creds.Email)
	a.deps.Logger.Infof("Logging in to %s as %s (password length %d)", site, creds.Email, len([]rune(creds.Password)))

	if err := page.EmailField.Fill(ctx, p, creds.Email); err != nil {
		return err
	}
	a.deps.Console.Success("Email entered")

	if err := page.PasswordField.Fill(ctx, p, creds.Password); err != nil {
		return err
	}
	a.deps.Console.Success("Password entered")

	if err := page.SubmitButton.Click(ctx, p); err != nil {
		return err
	}
	a.deps.Console.Success("Login button clicked")

	return p.WaitForIdle(ctx)
}

// GetCredentialsAction asks the operator for an email and password and
// hands them to the login action.
type GetCredentialsAction struct {
	deps *Deps
}

func (a *GetCredentialsAction) Name() string { return GetCredentialsName }

func (a *GetCredentialsAction) Description() string {
	return "Ask the human operator for the email and password of a site. Call this when a login form is shown, then call login."
}

func (a *GetCredentialsAction) Schema() map[string]interface{} {
	return tools.BaseToolSchema(
		map[string]interface{}{
			"site_name": map[string]interface{}{
				"type":        "string",
				"description": "Name of the site that requires login",
			},
		},
		[]string{"site_name"},
	)
}

func (a *GetCredentialsAction) IsLoopBreaking() bool { return false }

// Execute never returns an error; failures are reported in the result text.
func (a *GetCredentialsAction) Execute(ctx context.Context, argsXML []byte) (string, map[string]interface{}, error) {
	var args struct {
		XMLName xml.Name `xml:"arguments"`
		Site    string   `xml:"site_name"`
	}
	if err := a.deps.ensureRoot(); err != nil {
		a.deps.Logger.Warnf("Failed to create artifact root: %v", err)
	}
	if err := tools.UnmarshalXMLWithFallback(argsXML, &args); err != nil {
		return fmt.Sprintf("Login failed - invalid arguments: %v", err), nil, nil
	}
	site := strings.TrimSpace(args.Site)
	if site == "" {
		site = a.deps.Site
	}

	a.deps.Console.Notice("LOGIN CREDENTIALS NEEDED")
	a.deps.Console.Field("Site", site)
	a.deps.Console.Field("Current URL", a.deps.Page.CurrentURL())

	creds, err := credentials.Prompt{Terminal: a.deps.Terminal}.Credentials(ctx, site)
	if err != nil {
		a.deps.Logger.Warnf("No credentials supplied for %s: %v", site, err)
		a.deps.Console.Failure("Email and password are required!")
		return "Login failed - missing credentials", nil, nil
	}

	a.deps.Cache.Store(creds)
	a.deps.Logger.Infof("Credentials supplied for %s: %s", site, creds)
	a.deps.Console.Success("Credentials received, proceeding with login...")
	return fmt.Sprintf("Credentials provided for %s: %s", site, creds), nil, nil
}
