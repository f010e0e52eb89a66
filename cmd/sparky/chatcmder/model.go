package chatcmder

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/papercomputeco/sparky/cmd/sparky/termrender"
	"github.com/papercomputeco/sparky/pkg/llm"
	"github.com/papercomputeco/sparky/pkg/orchestrator"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214"))
	userStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	sparkyStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

const inputHeight = 3

// Runner answers a query given the conversation so far.
type Runner interface {
	Run(ctx context.Context, query string, history []llm.HistoryEntry) (orchestrator.Result, error)
}

type answerMsg struct {
	query    string
	result   orchestrator.Result
	err      error
	duration time.Duration
}

// model is the chat screen. The conversation history lives here and is sent
// with every query; nothing is persisted.
type model struct {
	ctx    context.Context
	runner Runner
	render func(text string, width int) string

	history []llm.HistoryEntry
	blocks  []string

	viewport viewport.Model
	input    textarea.Model
	spinner  spinner.Model

	width   int
	waiting bool
	status  string
	failed  bool
}

func newModel(ctx context.Context, runner Runner) model {
	input := textarea.New()
	input.Placeholder = "Ask Sparky anything..."
	input.ShowLineNumbers = false
	input.SetHeight(inputHeight)
	input.KeyMap.InsertNewline.SetEnabled(false)
	input.Focus()

	spin := spinner.New()
	spin.Spinner = spinner.Dot

	return model{
		ctx:      ctx,
		runner:   runner,
		render:   termrender.Markdown,
		viewport: viewport.New(80, 20),
		input:    input,
		spinner:  spin,
		width:    80,
		status:   "enter to send, esc to quit",
	}
}

func (m model) Init() tea.Cmd {
	return textarea.Blink
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.input.SetWidth(msg.Width)
		m.viewport.Width = msg.Width
		m.viewport.Height = max(msg.Height-inputHeight-3, 1)
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			return m.submit()
		}

	case answerMsg:
		m.waiting = false
		if msg.err != nil {
			m.failed = true
			m.status = "error: " + msg.err.Error()
			return m, nil
		}

		m.history = append(m.history,
			llm.HistoryEntry{Role: string(llm.RoleUser), Text: msg.query},
			llm.HistoryEntry{Role: string(llm.RoleModel), Text: msg.result.FinalText},
		)
		m.blocks = append(m.blocks, sparkyStyle.Render("Sparky")+"\n"+m.render(msg.result.FinalText, m.width))
		m.failed = !msg.result.Succeeded
		m.status = fmt.Sprintf("%d iteration(s) in %s", msg.result.IterationsUsed, msg.duration.Round(time.Millisecond))
		m.refresh()
		return m, nil

	case spinner.TickMsg:
		if !m.waiting {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var inputCmd, viewCmd tea.Cmd
	m.input, inputCmd = m.input.Update(msg)
	m.viewport, viewCmd = m.viewport.Update(msg)
	return m, tea.Batch(inputCmd, viewCmd)
}

func (m model) submit() (tea.Model, tea.Cmd) {
	query := strings.TrimSpace(m.input.Value())
	if m.waiting || query == "" {
		return m, nil
	}

	m.input.Reset()
	m.waiting = true
	m.failed = false
	m.status = "thinking"
	m.blocks = append(m.blocks, userStyle.Render("You")+"\n"+query)
	m.refresh()

	history := append([]llm.HistoryEntry(nil), m.history...)
	return m, tea.Batch(m.ask(query, history), m.spinner.Tick)
}

func (m model) ask(query string, history []llm.HistoryEntry) tea.Cmd {
	return func() tea.Msg {
		start := time.Now()
		res, err := m.runner.Run(m.ctx, query, history)
		return answerMsg{query: query, result: res, err: err, duration: time.Since(start)}
	}
}

func (m *model) refresh() {
	m.viewport.SetContent(strings.Join(m.blocks, "\n\n"))
	m.viewport.GotoBottom()
}

func (m model) View() string {
	status := m.status
	if m.waiting {
		status = m.spinner.View() + " " + status
	}
	status = ansi.Truncate(status, m.width, "…")
	if m.failed {
		status = errorStyle.Render(status)
	} else {
		status = statusStyle.Render(status)
	}

	return titleStyle.Render("⚡ Sparky") + "\n" +
		m.viewport.View() + "\n" +
		status + "\n" +
		m.input.View()
}
