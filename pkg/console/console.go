// Package console prints human-readable run progress to the operator.
package console

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

// Color palette
var (
	salmonPink = lipgloss.Color("#FFB3BA") // primary accent
	mintGreen  = lipgloss.Color("#A8E6CF") // success
	errorRed   = lipgloss.Color("#F87171") // failure
	mutedGray  = lipgloss.Color("#6B7280") // secondary text
	amber      = lipgloss.Color("#FCD34D") // operator attention
)

// Printer writes one styled line per event. Styling is dropped
// automatically when the writer is not a color terminal.
type Printer struct {
	mu sync.Mutex
	w  io.Writer

	step    lipgloss.Style
	success lipgloss.Style
	failure lipgloss.Style
	notice  lipgloss.Style
	field   lipgloss.Style
}

// New creates a Printer writing to w.
func New(w io.Writer) *Printer {
	r := lipgloss.NewRenderer(w)
	return &Printer{
		w:       w,
		step:    r.NewStyle().Foreground(salmonPink),
		success: r.NewStyle().Foreground(mintGreen),
		failure: r.NewStyle().Foreground(errorRed).Bold(true),
		notice:  r.NewStyle().Foreground(amber).Bold(true),
		field:   r.NewStyle().Foreground(mutedGray),
	}
}

// Stdout returns a Printer on os.Stdout.
func Stdout() *Printer {
	return New(os.Stdout)
}

// Discard returns a Printer that writes nothing.
func Discard() *Printer {
	return New(io.Discard)
}

func (p *Printer) line(style lipgloss.Style, icon, format string, args ...interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.w, style.Render(icon+" "+fmt.Sprintf(format, args...)))
}

// Step reports an action in progress.
func (p *Printer) Step(format string, args ...interface{}) {
	if p == nil {
		return
	}
	p.line(p.step, "→", format, args...)
}

// Success reports a completed action.
func (p *Printer) Success(format string, args ...interface{}) {
	if p == nil {
		return
	}
	p.line(p.success, "✓", format, args...)
}

// Failure reports a failed action.
func (p *Printer) Failure(format string, args ...interface{}) {
	if p == nil {
		return
	}
	p.line(p.failure, "✗", format, args...)
}

// Notice prints a heading that needs the operator's attention, preceded by a blank line.
func (p *Printer) Notice(format string, args ...interface{}) {
	if p == nil {
		return
	}
	p.mu.Lock()
	fmt.Fprintln(p.w)
	p.mu.Unlock()
	p.line(p.notice, "!", format, args...)
}

// Field prints an indented label/value pair under a notice.
func (p *Printer) Field(label, value string) {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.w, p.field.Render("  "+label+":")+" "+value)
}

// Writer returns the underlying writer.
func (p *Printer) Writer() io.Writer {
	return p.w
}
