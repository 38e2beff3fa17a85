// Package tui provides a Bubble Tea chat view over the question service.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/aronetommaso/Fanta-Calcio-Agent/internal/transport/repl"
	queryuc "github.com/aronetommaso/Fanta-Calcio-Agent/internal/usecase/query"
)

// answerMsg carries the result of one question back into Update.
type answerMsg struct {
	question string
	answer   queryuc.Answer
	err      error
}

type styles struct {
	title  lipgloss.Style
	user   lipgloss.Style
	agent  lipgloss.Style
	source lipgloss.Style
	err    lipgloss.Style
	status lipgloss.Style
}

func defaultStyles() styles {
	return styles{
		title:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42")),
		user:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
		agent:  lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
		source: lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		err:    lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		status: lipgloss.NewStyle().Foreground(lipgloss.Color("244")).Italic(true),
	}
}

// Model is the chat view: a scrolling transcript above a single-line input.
type Model struct {
	ctx          context.Context
	asker        repl.Asker
	previewChars int

	input      textinput.Model
	transcript viewport.Model
	lines      []string
	styles     styles

	busy  bool
	ready bool
}

// New creates a chat Model.
func New(ctx context.Context, asker repl.Asker, previewChars int) Model {
	ti := textinput.New()
	ti.Placeholder = "Chi gioca titolare nella Juventus?"
	ti.Prompt = "> "
	ti.CharLimit = 4000
	ti.Focus()

	return Model{
		ctx:          ctx,
		asker:        asker,
		previewChars: previewChars,
		input:        ti,
		transcript:   viewport.New(80, 20),
		styles:       defaultStyles(),
	}
}

// Init starts the cursor blink.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles key presses, window resizes and answers.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.transcript.Width = msg.Width
		m.transcript.Height = max(msg.Height-4, 1)
		m.input.Width = max(msg.Width-4, 10)
		m.ready = true
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		//nolint:exhaustive // handling only relevant key types
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			return m.submit()
		case tea.KeyPgUp, tea.KeyPgDown:
			var cmd tea.Cmd
			m.transcript, cmd = m.transcript.Update(msg)
			return m, cmd
		}

	case answerMsg:
		m.busy = false
		m.appendAnswer(msg)
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	question := strings.TrimSpace(m.input.Value())
	if question == "" || m.busy {
		return m, nil
	}
	if repl.IsExit(question) {
		return m, tea.Quit
	}

	m.input.Reset()
	m.busy = true
	m.lines = append(m.lines, m.styles.user.Render("You: ")+question)
	m.refresh()

	ctx, asker := m.ctx, m.asker
	return m, func() tea.Msg {
		ans, err := asker.Ask(ctx, question)
		return answerMsg{question: question, answer: ans, err: err}
	}
}

func (m *Model) appendAnswer(msg answerMsg) {
	switch {
	case msg.err != nil:
		m.lines = append(m.lines, m.styles.err.Render("Pipeline error: "+msg.err.Error()))
	case msg.answer.NoMatches:
		m.lines = append(m.lines, m.styles.status.Render(repl.NoMatchesMessage))
	default:
		if m.previewChars > 0 {
			for i, r := range msg.answer.Chunks {
				m.lines = append(m.lines,
					m.styles.source.Render(fmt.Sprintf("[%d] %s...", i+1, repl.Preview(r, m.previewChars))))
			}
		}
		m.lines = append(m.lines, m.styles.agent.Render("Agent: "+msg.answer.Text))
	}
	m.lines = append(m.lines, "")
	m.refresh()
}

func (m *Model) refresh() {
	m.transcript.SetContent(strings.Join(m.lines, "\n"))
	m.transcript.GotoBottom()
}

// View renders the title, transcript, status and input.
func (m Model) View() string {
	status := "enter: ask · pgup/pgdn: scroll · esc: quit"
	if m.busy {
		status = "thinking…"
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		m.styles.title.Render("Lineup Agent"),
		m.transcript.View(),
		m.styles.status.Render(status),
		m.input.View(),
	)
}

// Run starts the program on the current terminal and blocks until the user quits.
func Run(ctx context.Context, asker repl.Asker, previewChars int) error {
	p := tea.NewProgram(New(ctx, asker, previewChars), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run tui: %w", err)
	}
	return nil
}
