package human

import (
	"context"
	"errors"
	"io"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var promptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#7C3AED")).Bold(true)

// inputModel is a single-line input that quits on Enter.
type inputModel struct {
	input     textinput.Model
	submitted bool
	cancelled bool
}

func newInputModel(req Request) inputModel {
	ti := textinput.New()
	ti.Prompt = promptStyle.Render(req.Label)
	ti.Placeholder = req.Placeholder
	if req.Secret {
		ti.EchoMode = textinput.EchoPassword
		ti.EchoCharacter = '*'
	}
	ti.Focus()
	return inputModel{input: ti}
}

func (m inputModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m inputModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.Type {
		case tea.KeyEnter:
			m.submitted = true
			return m, tea.Quit
		case tea.KeyCtrlC, tea.KeyEsc:
			m.cancelled = true
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m inputModel) View() string {
	if m.submitted || m.cancelled {
		return ""
	}
	return m.input.View() + "\n"
}

// TTYPrompter reads answers through an inline bubbletea text input. Secret
// requests echo '*' per character.
type TTYPrompter struct {
	in  io.Reader
	out io.Writer
}

// NewTTYPrompter creates a prompter for an interactive terminal.
func NewTTYPrompter(in io.Reader, out io.Writer) *TTYPrompter {
	return &TTYPrompter{in: in, out: out}
}

// Prompt runs one input program until Enter, Esc/Ctrl+C or ctx is done.
func (p *TTYPrompter) Prompt(ctx context.Context, req Request) (string, error) {
	program := tea.NewProgram(
		newInputModel(req),
		tea.WithContext(ctx),
		tea.WithInput(p.in),
		tea.WithOutput(p.out),
	)

	final, err := program.Run()
	if err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", err
	}

	m, ok := final.(inputModel)
	if !ok || m.cancelled {
		return "", ErrCancelled
	}
	return m.input.Value(), nil
}
