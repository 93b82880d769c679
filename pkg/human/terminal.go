// Package human bridges blocking operator input into the action layer.
//
// A Terminal reads one line at a time from a Prompter. Reads block until the
// operator answers, the context is cancelled or, when a timeout is set, the
// timeout elapses.
package human

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/mattn/go-isatty"
)

var (
	// ErrTimeout is returned when the operator did not answer within the configured timeout.
	ErrTimeout = errors.New("timed out waiting for operator input")

	// ErrCancelled is returned when the operator dismissed the prompt.
	ErrCancelled = errors.New("operator cancelled input")
)

// Request describes one prompt shown to the operator.
type Request struct {
	Label       string
	Placeholder string
	Secret      bool
}

// Prompter reads a single answer for req. Implementations must return once
// ctx is done.
type Prompter interface {
	Prompt(ctx context.Context, req Request) (string, error)
}

// Option configures a Terminal.
type Option func(*Terminal)

// WithTimeout bounds every read. Zero or negative means unbounded.
func WithTimeout(d time.Duration) Option {
	return func(t *Terminal) {
		t.timeout = d
	}
}

// Terminal is the operator channel used by interactive actions.
type Terminal struct {
	prompter Prompter
	timeout  time.Duration
}

// NewTerminal creates a Terminal reading through p.
func NewTerminal(p Prompter, opts ...Option) *Terminal {
	t := &Terminal{prompter: p}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Timeout returns the configured read bound, zero when unbounded.
func (t *Terminal) Timeout() time.Duration {
	return t.timeout
}

// ReadLine prompts with label and returns the raw answer.
func (t *Terminal) ReadLine(ctx context.Context, label string) (string, error) {
	return t.read(ctx, Request{Label: label})
}

// ReadSecret prompts with label without echoing what is typed, when the
// prompter supports masking.
func (t *Terminal) ReadSecret(ctx context.Context, label string) (string, error) {
	return t.read(ctx, Request{Label: label, Secret: true})
}

// WaitForEnter blocks until the operator presses Enter. Anything typed
// before Enter is discarded.
func (t *Terminal) WaitForEnter(ctx context.Context, label string) error {
	_, err := t.read(ctx, Request{Label: label})
	return err
}

func (t *Terminal) read(ctx context.Context, req Request) (string, error) {
	if t.timeout <= 0 {
		return t.prompter.Prompt(ctx, req)
	}

	readCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	type answer struct {
		text string
		err  error
	}
	done := make(chan answer, 1)
	go func() {
		text, err := t.prompter.Prompt(readCtx, req)
		done <- answer{text: text, err: err}
	}()

	timer := time.NewTimer(t.timeout)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-timer.C:
		return "", fmt.Errorf("%w after %s", ErrTimeout, t.timeout)
	case a := <-done:
		return a.text, a.err
	}
}

// NewStdioPrompter picks the bubbletea prompter when stdin is a terminal and
// the line prompter otherwise.
func NewStdioPrompter() Prompter {
	if isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd()) {
		return NewTTYPrompter(os.Stdin, os.Stdout)
	}
	return NewLinePrompter(os.Stdin, os.Stdout)
}
