package browser

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/playwright-community/playwright-go"

	"github.com/adam-cain/auto-invoice/pkg/logging"
)

// Session owns the single Chromium browser, context and page used for a run.
// It is acquired once by Open and released once by Close. Session implements
// page.Page and page.Document.
type Session struct {
	profile Profile
	log     *logging.Logger

	pw      *playwright.Playwright
	browser playwright.Browser
	context playwright.BrowserContext
	page    playwright.Page

	closeOnce sync.Once
}

// OpenOptions controls driver installation for Open.
type OpenOptions struct {
	// SkipInstall assumes the Playwright driver and Chromium are already present.
	SkipInstall bool

	// Output receives driver install/run output. Defaults to io.Discard.
	Output io.Writer

	Logger *logging.Logger
}

// Open starts Playwright, launches Chromium with the profile's launch flags
// and opens one page in a context carrying the profile's fingerprint.
func Open(ctx context.Context, profile Profile, opts OpenOptions) (*Session, error) {
	if err := profile.Validate(); err != nil {
		return nil, fmt.Errorf("invalid browser profile: %w", err)
	}
	if opts.Output == nil {
		opts.Output = io.Discard
	}
	if opts.Logger == nil {
		opts.Logger = logging.Discard("browser")
	}
	log := opts.Logger

	runOpts := &playwright.RunOptions{
		Browsers: []string{"chromium"},
		Verbose:  false,
		Stdout:   opts.Output,
		Stderr:   opts.Output,
	}
	if !opts.SkipInstall {
		log.Infof("Installing Playwright driver and Chromium")
		if err := playwright.Install(runOpts); err != nil {
			return nil, fmt.Errorf("failed to install playwright: %w", err)
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pw, err := playwright.Run(runOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}

	s := &Session{profile: profile.Clone(), log: log, pw: pw}

	s.browser, err = pw.Chromium.Launch(profile.LaunchOptions())
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	s.context, err = s.browser.NewContext(profile.ContextOptions())
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to create context: %w", err)
	}

	s.page, err = s.context.NewPage()
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to create page: %w", err)
	}
	s.page.SetDefaultTimeout(float64(profile.Timeout.Milliseconds()))

	log.Infof("Browser session opened (headless=%t, viewport=%dx%d, locale=%s, timezone=%s)",
		profile.Headless, profile.Viewport.Width, profile.Viewport.Height, profile.Locale, profile.TimezoneID)
	return s, nil
}

// Profile returns a copy of the profile the session was opened with.
func (s *Session) Profile() Profile {
	return s.profile.Clone()
}

// Close releases the page, context, browser and driver. Safe to call more than once.
func (s *Session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		if s.page != nil {
			_ = s.page.Close()
		}
		if s.context != nil {
			_ = s.context.Close()
		}
		if s.browser != nil {
			_ = s.browser.Close()
		}
		if s.pw != nil {
			if stopErr := s.pw.Stop(); stopErr != nil {
				err = fmt.Errorf("failed to stop playwright: %w", stopErr)
			}
		}
		s.log.Infof("Browser session closed")
	})
	return err
}

// Navigate loads url and waits for the load event.
func (s *Session) Navigate(ctx context.Context, url string) error {
	return s.NavigateUntil(ctx, url, "load")
}

// NavigateUntil loads url and waits for waitUntil
// ("load", "domcontentloaded" or "networkidle").
func (s *Session) NavigateUntil(ctx context.Context, url, waitUntil string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	state := playwright.WaitUntilState(waitUntil)
	if _, err := s.page.Goto(url, playwright.PageGotoOptions{WaitUntil: &state}); err != nil {
		return fmt.Errorf("navigation failed: %w", err)
	}
	s.log.Debugf("Navigated to %s", s.page.URL())
	return nil
}

// WaitForIdle waits for the network-idle load state.
func (s *Session) WaitForIdle(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	state := playwright.LoadState("networkidle")
	if err := s.page.WaitForLoadState(playwright.PageWaitForLoadStateOptions{State: &state}); err != nil {
		return fmt.Errorf("wait for network idle failed: %w", err)
	}
	return nil
}

// Fill fills the first element matching selector.
func (s *Session) Fill(ctx context.Context, selector, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.page.Locator(selector).First().Fill(value); err != nil {
		return fmt.Errorf("fill failed: %w", err)
	}
	return nil
}

// Click clicks the first element matching selector.
func (s *Session) Click(ctx context.Context, selector string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.page.Locator(selector).First().Click(); err != nil {
		return fmt.Errorf("click failed: %w", err)
	}
	return nil
}

// Screenshot writes a PNG of the page to path.
func (s *Session) Screenshot(ctx context.Context, path string, fullPage bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := s.page.Screenshot(playwright.PageScreenshotOptions{
		Path:     &path,
		FullPage: &fullPage,
	})
	if err != nil {
		return fmt.Errorf("screenshot failed: %w", err)
	}
	return nil
}

// CurrentURL returns the page URL.
func (s *Session) CurrentURL() string {
	return s.page.URL()
}

// Count returns the number of elements matching selector.
func (s *Session) Count(ctx context.Context, selector string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	n, err := s.page.Locator(selector).Count()
	if err != nil {
		return 0, fmt.Errorf("selector query failed: %w", err)
	}
	return n, nil
}

// Content returns the serialized page HTML.
func (s *Session) Content(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	html, err := s.page.Content()
	if err != nil {
		return "", fmt.Errorf("failed to read page content: %w", err)
	}
	return html, nil
}

// Title returns the document title.
func (s *Session) Title(ctx context.Context) (string, error) {
	return s.page.Title()
}

// WaitForSelector waits for selector to reach state.
func (s *Session) WaitForSelector(ctx context.Context, selector, state string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	opts := playwright.PageWaitForSelectorOptions{}
	if state != "" {
		st := playwright.WaitForSelectorState(state)
		opts.State = &st
	}
	if _, err := s.page.WaitForSelector(selector, opts); err != nil {
		return fmt.Errorf("wait failed: %w", err)
	}
	return nil
}
