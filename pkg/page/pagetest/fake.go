// Package pagetest provides an in-memory page.Page for tests.
package pagetest

import (
	"context"
	"fmt"
	"os"
	"sync"
)

// Call records one operation issued against a Fake.
type Call struct {
	Op       string
	Selector string
	Value    string
}

// Fake is a scripted page. Elements maps selectors to match counts; a
// selector missing from the map matches nothing. Errors maps an operation
// name ("navigate", "idle", "fill", "click", "screenshot", "count",
// "content") to the error it returns.
type Fake struct {
	URL       string
	HTML      string
	PageTitle string
	Elements  map[string]int
	Errors    map[string]error
	PNG       []byte
	PanicOnOp string

	mu    sync.Mutex
	calls []Call
}

// New returns a Fake positioned at url.
func New(url string) *Fake {
	return &Fake{
		URL:      url,
		Elements: map[string]int{},
		Errors:   map[string]error{},
		PNG:      []byte("\x89PNG\r\n\x1a\nfake"),
	}
}

// Calls returns the operations issued so far.
func (f *Fake) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Call, len(f.calls))
	copy(out, f.calls)
	return out
}

// Ops returns the operation names issued so far, ignoring counts.
func (f *Fake) Ops() []string {
	var ops []string
	for _, c := range f.Calls() {
		if c.Op != "count" {
			ops = append(ops, c.Op)
		}
	}
	return ops
}

func (f *Fake) record(op, selector, value string) error {
	f.mu.Lock()
	f.calls = append(f.calls, Call{Op: op, Selector: selector, Value: value})
	f.mu.Unlock()
	if f.PanicOnOp == op {
		panic(fmt.Sprintf("pagetest: %s panicked", op))
	}
	return f.Errors[op]
}

func (f *Fake) Navigate(ctx context.Context, url string) error {
	if err := f.record("navigate", "", url); err != nil {
		return err
	}
	f.URL = url
	return nil
}

func (f *Fake) WaitForIdle(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return f.record("idle", "", "")
}

func (f *Fake) Fill(ctx context.Context, selector, value string) error {
	return f.record("fill", selector, value)
}

func (f *Fake) Click(ctx context.Context, selector string) error {
	return f.record("click", selector, "")
}

func (f *Fake) Screenshot(ctx context.Context, path string, fullPage bool) error {
	if err := f.record("screenshot", "", path); err != nil {
		return err
	}
	return os.WriteFile(path, f.PNG, 0o644)
}

func (f *Fake) CurrentURL() string {
	return f.URL
}

func (f *Fake) Count(ctx context.Context, selector string) (int, error) {
	if err := f.record("count", selector, ""); err != nil {
		return 0, err
	}
	return f.Elements[selector], nil
}

func (f *Fake) Content(ctx context.Context) (string, error) {
	if err := f.record("content", "", ""); err != nil {
		return "", err
	}
	return f.HTML, nil
}

func (f *Fake) Title(ctx context.Context) (string, error) {
	return f.PageTitle, nil
}

func (f *Fake) WaitForSelector(ctx context.Context, selector, state string) error {
	if err := f.record("wait", selector, state); err != nil {
		return err
	}
	if (state == "" || state == "visible" || state == "attached") && f.Elements[selector] == 0 {
		return fmt.Errorf("timeout waiting for %s", selector)
	}
	return nil
}

func (f *Fake) NavigateUntil(ctx context.Context, url, waitUntil string) error {
	if err := f.record("navigate", waitUntil, url); err != nil {
		return err
	}
	f.URL = url
	return nil
}
