package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jsamuelsen/quote-saver/internal/app"
	"github.com/jsamuelsen/quote-saver/internal/domain"
)

// mountedMsg carries the result of QuoteListView.Mount.
type mountedMsg struct{ err error }

// submittedMsg carries the result of QuoteListView.Submit.
type submittedMsg struct{ err error }

// Model is the bubbletea model of the quotes screen.
type Model struct {
	ctx   context.Context
	view  *app.QuoteListView
	input textinput.Model
	help  help.Model
	keys  keyMap
	state app.ViewState
	width int
}

// NewModel returns a model driving view. The model closes view when the user
// quits.
func NewModel(ctx context.Context, view *app.QuoteListView) *Model {
	input := textinput.New()
	input.Prompt = ""
	input.Placeholder = "type a quote"
	input.CharLimit = 1024
	input.Focus()

	return &Model{
		ctx:   ctx,
		view:  view,
		input: input,
		help:  help.New(),
		keys:  newKeyMap(),
		state: view.Snapshot(),
	}
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.mount())
}

func (m *Model) mount() tea.Cmd {
	return func() tea.Msg {
		return mountedMsg{err: m.view.Mount(m.ctx)}
	}
}

func (m *Model) submit() tea.Cmd {
	return func() tea.Msg {
		return submittedMsg{err: m.view.Submit(m.ctx)}
	}
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		m.input.Width = max(msg.Width-10, 10)

		return m, nil
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.quit):
			m.view.Close()
			return m, tea.Quit
		case key.Matches(msg, m.keys.submit):
			if m.input.Value() == "" {
				return m, nil
			}

			m.view.SetDraft(m.input.Value())
			m.state = m.view.Snapshot()
			m.state.Submitting = true

			return m, m.submit()
		}

		var cmd tea.Cmd

		m.input, cmd = m.input.Update(msg)
		m.view.SetDraft(m.input.Value())
		m.state = m.view.Snapshot()

		return m, cmd
	case mountedMsg:
		return m.settle(msg.err)
	case submittedMsg:
		next, cmd := m.settle(msg.err)
		if msg.err == nil {
			m.input.SetValue(m.state.Draft)
		}

		return next, cmd
	}

	var cmd tea.Cmd

	m.input, cmd = m.input.Update(msg)

	return m, cmd
}

// settle refreshes the snapshot after a remote call. A closed view ends the
// program.
func (m *Model) settle(err error) (tea.Model, tea.Cmd) {
	if errors.Is(err, domain.ErrClosed) {
		return m, tea.Quit
	}

	m.state = m.view.Snapshot()

	return m, nil
}

func (m *Model) View() string {
	var b strings.Builder

	b.WriteString(styles.title.Render("Your Quotes"))
	b.WriteString("\n")
	fmt.Fprintf(&b, "Quote: %s\n\n", m.input.View())

	b.WriteString(styles.heading.Render("Saved Quotes"))
	b.WriteString("\n")

	switch {
	case m.state.Fetching && len(m.state.Quotes) == 0:
		b.WriteString(styles.muted.Render("loading..."))
		b.WriteString("\n")
	case len(m.state.Quotes) == 0:
		b.WriteString(styles.muted.Render("no quotes yet"))
		b.WriteString("\n")
	default:
		for _, q := range m.state.Quotes {
			fmt.Fprintf(&b, "%s %s\n", styles.bullet.Render("•"), q.Text)
		}
	}

	if m.state.Submitting {
		b.WriteString(styles.muted.Render("saving..."))
		b.WriteString("\n")
	}

	if m.state.Err != nil {
		b.WriteString("\n")
		b.WriteString(styles.err.Render(errorLine(m.state.Err)))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))
	b.WriteString("\n")

	return b.String()
}

func errorLine(err error) string {
	switch domain.KindOf(err) {
	case domain.KindStatus:
		if domain.IsForbidden(err) {
			return "error: the quotes service refused your token"
		}

		return "error: the quotes service rejected the request"
	case domain.KindDecode:
		return "error: unreadable response from the quotes service"
	default:
		return "error: the quotes service could not be reached"
	}
}

// Run starts the program on the terminal and blocks until the user quits.
func Run(ctx context.Context, view *app.QuoteListView, opts ...tea.ProgramOption) error {
	opts = append([]tea.ProgramOption{tea.WithContext(ctx)}, opts...)

	if _, err := tea.NewProgram(NewModel(ctx, view), opts...).Run(); err != nil {
		view.Close()
		return fmt.Errorf("quotes ui: %w", err)
	}

	view.Close()

	return nil
}
