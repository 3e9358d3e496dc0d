package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"helpdesk/internal/chat"
	"helpdesk/internal/domain"
)

// Handler is the TUI-facing subset of the chat controller.
type Handler interface {
	HandleUserInput(ctx context.Context, state *chat.SessionState, prompt string, r chat.Renderer) (*chat.Exchange, error)
}

// Options configures the static parts of the screen.
type Options struct {
	Title    string
	Summary  string
	Warnings []string
	// Markdown renders assistant answers through glamour.
	Markdown bool
}

type exchangeMsg struct {
	ex  *chat.Exchange
	err error
}

// Model is the Bubble Tea model for the help-desk chat.
type Model struct {
	ctx        context.Context
	handler    Handler
	state      *chat.SessionState
	input      textinput.Model
	transcript viewport.Model
	side       viewport.Model
	spinner    spinner.Model
	renderer   *glamour.TermRenderer
	mdStyle    string

	title    string
	summary  string
	warnings []string
	status   string
	width    int
	height   int
	ready    bool

	busy    bool
	pending string
	baseLen int
	// shown is how many augmented turns the transcript displays while busy.
	shown      int
	directDone bool
	lastEx     *chat.Exchange
}

// New creates the chat model. ctx bounds every turn started from the UI.
func New(ctx context.Context, handler Handler, state *chat.SessionState, opts Options) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask a question and press Enter (Ctrl+C to quit)"
	ti.Focus()
	ti.CharLimit = 0

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = spinnerStyle

	m := Model{
		ctx:        ctx,
		handler:    handler,
		state:      state,
		input:      ti,
		transcript: viewport.New(0, 0),
		side:       viewport.New(0, 0),
		spinner:    sp,
		title:      opts.Title,
		summary:    opts.Summary,
		warnings:   opts.Warnings,
		status:     "Ready.",
	}
	if m.title == "" {
		m.title = "Help Desk"
	}
	if len(opts.Warnings) > 0 {
		m.status = fmt.Sprintf("Ready. %d source(s) skipped, see log.", len(opts.Warnings))
	}
	if opts.Markdown {
		// resolved before the program owns the terminal
		m.mdStyle = "light"
		if lipgloss.HasDarkBackground() {
			m.mdStyle = "dark"
		}
		m.renderer = newRenderer(m.mdStyle, 80)
	}
	return m
}

func newRenderer(style string, width int) *glamour.TermRenderer {
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil
	}
	return r
}

func (m Model) Init() tea.Cmd { return textinput.Blink }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyCtrlD, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			return m.submit()
		case tea.KeyPgUp, tea.KeyPgDown, tea.KeyUp, tea.KeyDown:
			var cmd tea.Cmd
			m.transcript, cmd = m.transcript.Update(msg)
			return m, cmd
		}

	case spinner.TickMsg:
		if !m.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case turnMsg:
		switch msg.stage {
		case stageAugmented:
			m.shown = m.state.Augmented.Len()
			if msg.turn.Failed {
				m.status = "No answer with context, waiting for the direct answer..."
			} else {
				m.status = "Answered with context, waiting for the direct answer..."
			}
			m.refresh()
			m.transcript.GotoBottom()
		case stageDirect:
			m.directDone = true
			m.refresh()
		}
		return m, waitForEvent(msg.events)

	case exchangeMsg:
		m.busy = false
		m.pending = ""
		m.directDone = false
		m.input.Focus()
		switch {
		case msg.err != nil:
			m.status = "Error: " + msg.err.Error()
		case !msg.ex.OK():
			m.lastEx = msg.ex
			m.status = failureStatus(msg.ex)
		default:
			m.lastEx = msg.ex
			m.status = fmt.Sprintf("Answered with %d context chunk(s).", len(msg.ex.Sources))
		}
		m.refresh()
		m.transcript.GotoBottom()
		return m, nil
	}

	if m.busy {
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	if m.busy {
		return m, nil
	}
	prompt := strings.TrimSpace(m.input.Value())
	if prompt == "" {
		return m, nil
	}
	m.busy = true
	m.pending = prompt
	m.baseLen = m.state.Augmented.Len()
	m.shown = m.baseLen
	m.directDone = false
	m.input.Reset()
	m.input.Blur()
	m.status = "Answering..."
	m.refresh()
	m.transcript.GotoBottom()
	return m, tea.Batch(m.spinner.Tick, m.ask(prompt))
}

// ask runs one turn off the UI goroutine. Each stored turn is delivered as a
// turnMsg before the final exchangeMsg.
func (m Model) ask(prompt string) tea.Cmd {
	handler, state, ctx := m.handler, m.state, m.ctx
	return func() tea.Msg {
		r := newEventRenderer()
		go func() {
			ex, err := handler.HandleUserInput(ctx, state, prompt, r)
			r.finish(exchangeMsg{ex: ex, err: err})
		}()
		return waitForEvent(r.events)()
	}
}

func failureStatus(ex *chat.Exchange) string {
	var parts []string
	if ex.AugmentedErr != nil {
		parts = append(parts, "augmented: "+ex.AugmentedErr.Error())
	}
	if ex.DirectErr != nil {
		parts = append(parts, "direct: "+ex.DirectErr.Error())
	}
	return "Error: " + strings.Join(parts, "; ")
}

func (m *Model) resize(width, height int) {
	m.width, m.height = width, height
	m.ready = true
	headerLines := 2
	if len(m.warnings) > 0 {
		headerLines++
	}
	_, fh := panelStyle.GetFrameSize()
	_, ih := inputStyle.GetFrameSize()
	bodyH := height - headerLines - (1 + ih) - 1 - fh
	if bodyH < 3 {
		bodyH = 3
	}
	fw, _ := panelStyle.GetFrameSize()
	mainW := width * 2 / 3
	sideW := width - mainW
	m.transcript.Width = maxInt(10, mainW-fw)
	m.transcript.Height = bodyH
	m.side.Width = maxInt(10, sideW-fw)
	m.side.Height = bodyH
	m.input.Width = maxInt(10, width-8)
	if m.renderer != nil {
		if r := newRenderer(m.mdStyle, m.transcript.Width-2); r != nil {
			m.renderer = r
		}
	}
}

func (m *Model) refresh() {
	m.transcript.SetContent(m.renderTranscript())
	m.side.SetContent(m.renderDirect())
}

func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := titleStyle.Render(m.title) + "\n" + summaryStyle.Render(truncate(m.summary, m.width))
	if len(m.warnings) > 0 {
		header += "\n" + warnStyle.Render(truncate("Skipped: "+strings.Join(m.warnings, "; "), m.width))
	}
	body := lipgloss.JoinHorizontal(lipgloss.Top,
		panelStyle.Render(m.transcript.View()),
		panelStyle.Render(m.side.View()),
	)
	status := statusStyle.Render(m.status)
	if m.busy {
		status = m.spinner.View() + " " + status
	}
	return header + "\n" + body + "\n" + inputStyle.Render(m.input.View()) + "\n" + status
}

func (m Model) renderTranscript() string {
	turns := m.state.Augmented.Turns()
	if m.busy && m.shown <= len(turns) {
		turns = turns[:m.shown]
	}
	if len(turns) == 0 && !m.busy {
		return summaryStyle.Render("No questions yet.")
	}
	var sb strings.Builder
	for _, t := range turns {
		sb.WriteString(m.renderTurn(t))
		sb.WriteString("\n")
	}
	if m.busy && m.shown == m.baseLen {
		sb.WriteString(m.renderTurn(domain.Turn{Role: domain.RoleUser, Content: m.pending}))
		sb.WriteString("\n")
		sb.WriteString(summaryStyle.Render("thinking..."))
	} else if m.lastEx != nil && len(m.lastEx.Sources) > 0 {
		sb.WriteString(renderSources(m.lastEx))
	}
	return strings.TrimRight(sb.String(), "\n")
}

func (m Model) renderTurn(t domain.Turn) string {
	switch {
	case t.Failed:
		return failedStyle.Render("✗ no answer: " + t.Err)
	case t.Role == domain.RoleUser:
		return userStyle.Render("You: ") + t.Content
	}
	if m.renderer != nil {
		if out, err := m.renderer.Render(t.Content); err == nil {
			return assistantStyle.Render("Assistant:") + "\n" + strings.Trim(out, "\n")
		}
	}
	return assistantStyle.Render("Assistant: ") + lipgloss.NewStyle().Width(m.transcript.Width).Render(t.Content)
}

func (m Model) renderDirect() string {
	head := sideTitleStyle.Render("Without context")
	if m.busy && !m.directDone {
		return head + "\n\n" + summaryStyle.Render("waiting...")
	}
	last, ok := m.state.Direct.Last()
	if !ok || last.Role != domain.RoleAssistant {
		return head + "\n\n" + summaryStyle.Render("The direct answer to your last question appears here.")
	}
	if last.Failed {
		return head + "\n\n" + failedStyle.Render("✗ no answer: "+last.Err)
	}
	return head + "\n\n" + lipgloss.NewStyle().Width(m.side.Width).Render(last.Content)
}

func renderSources(ex *chat.Exchange) string {
	seen := make(map[string]struct{})
	var names []string
	for _, s := range ex.Sources {
		if _, ok := seen[s.Chunk.Source]; ok {
			continue
		}
		seen[s.Chunk.Source] = struct{}{}
		names = append(names, s.Chunk.Source)
	}
	top := ex.Sources[0]
	return sourceStyle.Render("Sources: "+strings.Join(names, ", ")) + "\n" +
		sourceStyle.Render(fmt.Sprintf("Best match (score %.3f): ", top.Score)) +
		highlightBestSentence(top.Chunk.Text, ex.Prompt)
}

func truncate(s string, width int) string {
	s = strings.Join(strings.Fields(s), " ")
	if width <= 3 || lipgloss.Width(s) <= width {
		return s
	}
	r := []rune(s)
	if len(r) > width-3 {
		r = r[:width-3]
	}
	return string(r) + "..."
}

var (
	titleStyle     = lipgloss.NewStyle().Bold(true)
	summaryStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	warnStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	statusStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	spinnerStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	userStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	assistantStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	failedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	sourceStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Italic(true)
	sideTitleStyle = lipgloss.NewStyle().Bold(true).Underline(true)
	panelStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	inputStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
