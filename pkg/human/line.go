package human

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
)

type lineResult struct {
	text string
	err  error
}

// LinePrompter reads newline-terminated answers from a plain reader. A
// single goroutine owns the reader, so a prompt abandoned on timeout does
// not swallow the next answer.
type LinePrompter struct {
	in  io.Reader
	out io.Writer

	once  sync.Once
	lines chan lineResult
}

// NewLinePrompter creates a prompter reading from in and writing labels to out.
func NewLinePrompter(in io.Reader, out io.Writer) *LinePrompter {
	return &LinePrompter{
		in:    in,
		out:   out,
		lines: make(chan lineResult),
	}
}

func (p *LinePrompter) start() {
	go func() {
		defer close(p.lines)
		scanner := bufio.NewScanner(p.in)
		for scanner.Scan() {
			p.lines <- lineResult{text: strings.TrimRight(scanner.Text(), "\r")}
		}
		if err := scanner.Err(); err != nil {
			p.lines <- lineResult{err: err}
		}
	}()
}

// Prompt writes the label and waits for the next line. Secret requests are
// not masked; use TTYPrompter for that.
func (p *LinePrompter) Prompt(ctx context.Context, req Request) (string, error) {
	p.once.Do(p.start)

	if req.Label != "" {
		fmt.Fprint(p.out, req.Label)
	}

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r, ok := <-p.lines:
		if !ok {
			return "", io.EOF
		}
		return r.text, r.err
	}
}
