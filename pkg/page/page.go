// Package page defines the narrow set of browser-page capabilities the
// invoice actions rely on, and ordered selector chains resolved against it.
package page

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Page is the capability set actions use to drive the single session page.
// Implementations are not required to be safe for concurrent use; callers
// issue one operation at a time.
type Page interface {
	// Navigate loads url and waits for the load event.
	Navigate(ctx context.Context, url string) error

	// WaitForIdle blocks until the page reports network idle.
	WaitForIdle(ctx context.Context) error

	// Fill types value into the first element matching selector.
	Fill(ctx context.Context, selector, value string) error

	// Click clicks the first element matching selector.
	Click(ctx context.Context, selector string) error

	// Screenshot writes a PNG of the page to path.
	Screenshot(ctx context.Context, path string, fullPage bool) error

	// CurrentURL returns the URL of the page as currently loaded.
	CurrentURL() string

	// Count returns how many elements match selector right now.
	Count(ctx context.Context, selector string) (int, error)
}

// Document exposes read access to the loaded page for observation tools.
type Document interface {
	// Content returns the serialized HTML of the page.
	Content(ctx context.Context) (string, error)

	// Title returns the document title.
	Title(ctx context.Context) (string, error)

	// WaitForSelector waits until selector reaches state
	// ("attached", "detached", "visible" or "hidden").
	WaitForSelector(ctx context.Context, selector, state string) error
}

// ErrElementNotFound is matched by every ElementNotFoundError.
var ErrElementNotFound = errors.New("element not found")

// ElementNotFoundError reports that no alternative in a chain matched.
type ElementNotFoundError struct {
	Field     string
	Selectors []string
}

func (e *ElementNotFoundError) Error() string {
	return fmt.Sprintf("%s field not found (tried %s)", e.Field, strings.Join(e.Selectors, ", "))
}

// Is reports whether target is ErrElementNotFound.
func (e *ElementNotFoundError) Is(target error) bool {
	return target == ErrElementNotFound
}

// SelectorChain is an ordered list of alternative selectors for one logical
// element. The first alternative matching at least one element wins.
type SelectorChain struct {
	Field     string
	Selectors []string
}

// Chain builds a SelectorChain for field.
func Chain(field string, selectors ...string) SelectorChain {
	return SelectorChain{Field: field, Selectors: selectors}
}

// Resolve returns the first selector with a match on p. Query errors on an
// alternative are treated as no match for that alternative.
func (c SelectorChain) Resolve(ctx context.Context, p Page) (string, error) {
	for _, sel := range c.Selectors {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		n, err := p.Count(ctx, sel)
		if err != nil {
			continue
		}
		if n > 0 {
			return sel, nil
		}
	}
	return "", &ElementNotFoundError{Field: c.Field, Selectors: c.Selectors}
}

// Fill resolves the chain and fills the winning element with value.
func (c SelectorChain) Fill(ctx context.Context, p Page, value string) error {
	sel, err := c.Resolve(ctx, p)
	if err != nil {
		return err
	}
	if err := p.Fill(ctx, sel, value); err != nil {
		return fmt.Errorf("failed to fill %s field: %w", c.Field, err)
	}
	return nil
}

// Click resolves the chain and clicks the winning element.
func (c SelectorChain) Click(ctx context.Context, p Page) error {
	sel, err := c.Resolve(ctx, p)
	if err != nil {
		return err
	}
	if err := p.Click(ctx, sel); err != nil {
		return fmt.Errorf("failed to click %s: %w", c.Field, err)
	}
	return nil
}

// Selector chains for the generic credential form.
var (
	EmailField = Chain("email",
		`input[type="email"]`,
		`input[name="email"]`,
		`input[id="email"]`,
		`input[placeholder*="email" i]`,
	)
	PasswordField = Chain("password",
		`input[type="password"]`,
		`input[name="password"]`,
		`input[id="password"]`,
	)
	SubmitButton = Chain("submit button",
		`button[type="submit"]`,
		`button:has-text("Log in")`,
		`button:has-text("Sign in")`,
		`input[type="submit"]`,
	)
)
