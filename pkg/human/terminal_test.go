package human

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLinePrompterReadsSequentialLines(t *testing.T) {
	var out bytes.Buffer
	term := NewTerminal(NewLinePrompter(strings.NewReader("ops@acme.test\r\nhunter2\n\n"), &out))
	ctx := context.Background()

	email, err := term.ReadLine(ctx, "Email: ")
	require.NoError(t, err)
	assert.Equal(t, "ops@acme.test", email)

	password, err := term.ReadSecret(ctx, "Password: ")
	require.NoError(t, err)
	assert.Equal(t, "hunter2", password)

	require.NoError(t, term.WaitForEnter(ctx, "Press Enter..."))
	assert.Equal(t, "Email: Password: Press Enter...", out.String())

	_, err = term.ReadLine(ctx, "")
	assert.ErrorIs(t, err, io.EOF)
}

func TestTerminalTimeout(t *testing.T) {
	r, w := io.Pipe()
	defer w.Close()

	term := NewTerminal(NewLinePrompter(r, io.Discard), WithTimeout(30*time.Millisecond))
	assert.Equal(t, 30*time.Millisecond, term.Timeout())

	start := time.Now()
	_, err := term.ReadLine(context.Background(), "Email: ")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTimeout))
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestTerminalTimeoutKeepsLateAnswer(t *testing.T) {
	r, w := io.Pipe()
	defer w.Close()

	term := NewTerminal(NewLinePrompter(r, io.Discard), WithTimeout(20*time.Millisecond))
	_, err := term.ReadLine(context.Background(), "")
	require.ErrorIs(t, err, ErrTimeout)

	go func() {
		_, _ = w.Write([]byte("late\n"))
	}()

	unbounded := NewTerminal(term.prompter)
	got, err := unbounded.ReadLine(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "late", got)
}

func TestTerminalUnboundedHonoursContext(t *testing.T) {
	r, w := io.Pipe()
	defer w.Close()

	term := NewTerminal(NewLinePrompter(r, io.Discard))
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := term.WaitForEnter(ctx, "")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestInputModelSubmit(t *testing.T) {
	m := newInputModel(Request{Label: "Password: ", Secret: true})

	for _, r := range "s3cret" {
		next, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
		m = next.(inputModel)
	}
	assert.NotContains(t, m.View(), "s3cret")

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(inputModel)
	require.NotNil(t, cmd)
	assert.True(t, m.submitted)
	assert.Equal(t, "s3cret", m.input.Value())
	assert.Empty(t, m.View())
}

func TestInputModelCancel(t *testing.T) {
	m := newInputModel(Request{Label: "Email: "})

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	m = next.(inputModel)
	assert.True(t, m.cancelled)
	assert.False(t, m.submitted)
}
