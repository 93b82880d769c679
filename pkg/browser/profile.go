package browser

import (
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/playwright-community/playwright-go"
)

// Defaults for the stealth profile.
const (
	DefaultUserAgent          = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"
	DefaultLocale             = "en-GB"
	DefaultTimezone           = "Europe/London"
	DefaultViewportWidth      = 1920
	DefaultViewportHeight     = 1080
	DefaultSlowMo             = 100 * time.Millisecond
	DefaultWaitBetweenActions = 500 * time.Millisecond
	DefaultTimeout            = 30 * time.Second
)

// Viewport represents the browser viewport dimensions.
type Viewport struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// Profile describes how the single browser session is launched so that it
// resembles a regular desktop visit. A Profile is a value: copies returned
// by its methods never share maps or slices with the receiver.
type Profile struct {
	Headless           bool
	Viewport           Viewport
	UserAgent          string
	Locale             string
	TimezoneID         string
	JavaScriptEnabled  bool
	BypassCSP          bool
	IgnoreHTTPSErrors  bool
	SlowMo             time.Duration
	WaitBetweenActions time.Duration
	Timeout            time.Duration
	ExtraHeaders       map[string]string
	LaunchArgs         []string
}

// DefaultProfile returns the stealth profile used when nothing is overridden:
// a visible Chromium window on a 1920x1080 macOS Chrome fingerprint in en-GB.
func DefaultProfile() Profile {
	return Profile{
		Headless:           false,
		Viewport:           Viewport{Width: DefaultViewportWidth, Height: DefaultViewportHeight},
		UserAgent:          DefaultUserAgent,
		Locale:             DefaultLocale,
		TimezoneID:         DefaultTimezone,
		JavaScriptEnabled:  true,
		BypassCSP:          true,
		IgnoreHTTPSErrors:  true,
		SlowMo:             DefaultSlowMo,
		WaitBetweenActions: DefaultWaitBetweenActions,
		Timeout:            DefaultTimeout,
		ExtraHeaders: map[string]string{
			"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,image/apng,*/*;q=0.8",
			"Accept-Language":           "en-GB,en;q=0.9",
			"Accept-Encoding":           "gzip, deflate, br",
			"Sec-Fetch-Site":            "none",
			"Sec-Fetch-Mode":            "navigate",
			"Sec-Fetch-User":            "?1",
			"Sec-Fetch-Dest":            "document",
			"Upgrade-Insecure-Requests": "1",
		},
		LaunchArgs: []string{
			"--disable-blink-features=AutomationControlled",
			"--disable-features=VizDisplayCompositor",
			"--disable-background-networking",
			"--disable-background-timer-throttling",
			"--disable-renderer-backgrounding",
			"--disable-features=TranslateUI",
			"--disable-web-security",
			"--no-sandbox",
			"--disable-dev-shm-usage",
			"--disable-extensions",
			"--disable-plugins",
			"--disable-images",
			"--disable-javascript-harmony-shipping",
			"--aggressive-cache-discard",
			"--disable-ipc-flooding-protection",
		},
	}
}

// Clone returns a deep copy of p.
func (p Profile) Clone() Profile {
	c := p
	c.ExtraHeaders = maps.Clone(p.ExtraHeaders)
	c.LaunchArgs = slices.Clone(p.LaunchArgs)
	return c
}

// WithLaunchArgs returns a copy of p with extra launch flags appended.
// Flags already present are not repeated.
func (p Profile) WithLaunchArgs(args ...string) Profile {
	c := p.Clone()
	for _, a := range args {
		if a != "" && !slices.Contains(c.LaunchArgs, a) {
			c.LaunchArgs = append(c.LaunchArgs, a)
		}
	}
	return c
}

// WithHeaders returns a copy of p with headers merged over the existing ones.
func (p Profile) WithHeaders(headers map[string]string) Profile {
	c := p.Clone()
	if c.ExtraHeaders == nil {
		c.ExtraHeaders = map[string]string{}
	}
	maps.Copy(c.ExtraHeaders, headers)
	return c
}

// Validate checks the profile can be used to launch a session.
func (p Profile) Validate() error {
	if p.Viewport.Width <= 0 || p.Viewport.Height <= 0 {
		return fmt.Errorf("viewport must be positive, got %dx%d", p.Viewport.Width, p.Viewport.Height)
	}
	if p.UserAgent == "" {
		return fmt.Errorf("user agent is required")
	}
	if p.TimezoneID != "" {
		if _, err := time.LoadLocation(p.TimezoneID); err != nil {
			return fmt.Errorf("invalid timezone %q: %w", p.TimezoneID, err)
		}
	}
	if p.SlowMo < 0 || p.WaitBetweenActions < 0 || p.Timeout < 0 {
		return fmt.Errorf("durations must not be negative")
	}
	return nil
}

// LaunchOptions converts the profile into Chromium launch options.
func (p Profile) LaunchOptions() playwright.BrowserTypeLaunchOptions {
	headless := p.Headless
	slowMo := float64(p.SlowMo.Milliseconds())
	return playwright.BrowserTypeLaunchOptions{
		Headless: &headless,
		SlowMo:   &slowMo,
		Args:     slices.Clone(p.LaunchArgs),
	}
}

// ContextOptions converts the profile into browser context options.
func (p Profile) ContextOptions() playwright.BrowserNewContextOptions {
	opts := playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{
			Width:  p.Viewport.Width,
			Height: p.Viewport.Height,
		},
		JavaScriptEnabled: boolPtr(p.JavaScriptEnabled),
		BypassCSP:         boolPtr(p.BypassCSP),
		IgnoreHttpsErrors: boolPtr(p.IgnoreHTTPSErrors),
		ExtraHttpHeaders:  maps.Clone(p.ExtraHeaders),
	}
	if p.UserAgent != "" {
		opts.UserAgent = stringPtr(p.UserAgent)
	}
	if p.Locale != "" {
		opts.Locale = stringPtr(p.Locale)
	}
	if p.TimezoneID != "" {
		opts.TimezoneId = stringPtr(p.TimezoneID)
	}
	return opts
}

func boolPtr(b bool) *bool {
	return &b
}

func stringPtr(s string) *string {
	return &s
}
