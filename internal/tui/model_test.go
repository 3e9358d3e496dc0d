package tui

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"helpdesk/internal/chat"
	"helpdesk/internal/domain"
)

type fakeHandler struct {
	calls int
	fail  error
}

func (f *fakeHandler) HandleUserInput(_ context.Context, state *chat.SessionState, prompt string, r chat.Renderer) (*chat.Exchange, error) {
	f.calls++
	user := domain.Turn{Role: domain.RoleUser, Content: prompt}
	ex := &chat.Exchange{
		Prompt:  prompt,
		Context: "Warranty: 12 months from purchase.",
		Sources: []domain.SearchResult{{Chunk: domain.Chunk{Text: "Warranty: 12 months from purchase.", Source: "manual.pdf"}, Score: 0.8}},
	}
	state.Augmented.Append(user)
	r.UserTurn(user)
	if f.fail != nil {
		ex.Augmented = domain.Turn{Role: domain.RoleAssistant, Failed: true, Err: f.fail.Error()}
		ex.AugmentedErr = f.fail
	} else {
		ex.Augmented = domain.Turn{Role: domain.RoleAssistant, Content: "The warranty is 12 months."}
	}
	state.Augmented.Append(ex.Augmented)
	r.AugmentedAnswer(ex.Augmented)
	state.Direct.Append(user)
	ex.Direct = domain.Turn{Role: domain.RoleAssistant, Content: "Typically one year."}
	state.Direct.Append(ex.Direct)
	r.DirectAnswer(ex.Direct)
	return ex, nil
}

// gatedCompleter answers the first call at once and holds the second one
// until release is closed.
type gatedCompleter struct {
	calls   int32
	release chan struct{}
}

func (c *gatedCompleter) Complete(ctx context.Context, _ []domain.Turn) (string, error) {
	if atomic.AddInt32(&c.calls, 1) == 1 {
		return "AUGMENTED-ANSWER", nil
	}
	select {
	case <-c.release:
		return "DIRECT-ANSWER", nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

type staticRetriever struct{}

func (staticRetriever) Search(context.Context, string, int) ([]domain.SearchResult, error) {
	return []domain.SearchResult{{Chunk: domain.Chunk{Text: "Warranty: 12 months from purchase.", Source: "manual.pdf"}, Score: 0.9}}, nil
}

func nextMsg(t *testing.T, cmd tea.Cmd) tea.Msg {
	t.Helper()
	if cmd == nil {
		t.Fatal("no command to run")
	}
	out := make(chan tea.Msg, 1)
	go func() { out <- cmd() }()
	select {
	case msg := <-out:
		return msg
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for a message")
		return nil
	}
}

// runTurn feeds the messages of one exchange into the model until it ends.
func runTurn(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	for cmd != nil {
		msg := nextMsg(t, cmd)
		updated, next := m.Update(msg)
		m = updated.(Model)
		if _, done := msg.(exchangeMsg); done {
			return m
		}
		cmd = next
	}
	t.Fatal("exchange never finished")
	return m
}

func newTestModel(h Handler) Model {
	m := New(context.Background(), h, chat.NewSessionState(), Options{Title: "Desk", Summary: "A corpus."})
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return updated.(Model)
}

func typeText(m Model, s string) Model {
	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)})
	return updated.(Model)
}

func TestModel_EmptyEnterDoesNothing(t *testing.T) {
	h := &fakeHandler{}
	m := newTestModel(h)
	m = typeText(m, "   ")
	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = updated.(Model)
	if cmd != nil || m.busy {
		t.Error("blank input must not start a turn")
	}
}

func TestModel_EnterStartsTurn(t *testing.T) {
	h := &fakeHandler{}
	m := newTestModel(h)
	m = typeText(m, "What is the warranty period?")
	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = updated.(Model)
	if cmd == nil || !m.busy {
		t.Fatal("Enter should start a turn")
	}
	if m.input.Value() != "" {
		t.Errorf("input not cleared: %q", m.input.Value())
	}
	if !strings.Contains(m.View(), "What is the warranty period?") {
		t.Error("pending prompt should be visible")
	}

	// input is ignored while busy
	m = typeText(m, "x")
	if m.input.Value() != "" {
		t.Error("typing while busy should be ignored")
	}
	if _, again := m.Update(tea.KeyMsg{Type: tea.KeyEnter}); again != nil {
		t.Error("second Enter while busy should be ignored")
	}
}

func TestModel_ExchangeUpdatesPanels(t *testing.T) {
	h := &fakeHandler{}
	m := newTestModel(h)
	m = typeText(m, "What is the warranty period?")
	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = updated.(Model)

	m = runTurn(t, m, m.ask("What is the warranty period?"))

	if m.busy {
		t.Error("model should be idle after the exchange")
	}
	if h.calls != 1 {
		t.Errorf("handler calls = %d", h.calls)
	}
	transcript := m.renderTranscript()
	if !strings.Contains(transcript, "The warranty is 12 months.") || !strings.Contains(transcript, "manual.pdf") {
		t.Errorf("transcript = %q", transcript)
	}
	if strings.Count(transcript, "What is the warranty period?") != 1 {
		t.Errorf("prompt should appear once: %q", transcript)
	}
	if side := m.renderDirect(); !strings.Contains(side, "Typically one year.") {
		t.Errorf("side panel = %q", side)
	}
	if !strings.HasPrefix(m.status, "Answered") {
		t.Errorf("status = %q", m.status)
	}
}

func TestModel_FailedAnswerShown(t *testing.T) {
	h := &fakeHandler{fail: errors.New("completion rate_limit (HTTP 429)")}
	m := newTestModel(h)
	m = runTurn(t, m, m.ask("hello"))

	if !strings.Contains(m.renderTranscript(), "no answer: completion rate_limit") {
		t.Errorf("transcript = %q", m.renderTranscript())
	}
	if !strings.Contains(m.status, "augmented:") {
		t.Errorf("status = %q", m.status)
	}
}

func TestModel_AugmentedAnswerShownBeforeDirect(t *testing.T) {
	comp := &gatedCompleter{release: make(chan struct{})}
	ctrl := chat.NewController(staticRetriever{}, comp, nil, chat.Options{})
	m := newTestModel(ctrl)
	m = typeText(m, "What is the warranty period?")
	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = updated.(Model)

	cmd := m.ask("What is the warranty period?")
	for {
		msg := nextMsg(t, cmd)
		if _, done := msg.(exchangeMsg); done {
			t.Fatal("exchange finished while the direct call was held")
		}
		updated, cmd = m.Update(msg)
		m = updated.(Model)
		if tm, ok := msg.(turnMsg); ok && tm.stage == stageAugmented {
			break
		}
	}

	if !m.busy {
		t.Fatal("model should stay busy until the direct answer arrives")
	}
	if view := m.View(); !strings.Contains(view, "AUGMENTED-ANSWER") {
		t.Errorf("view lacks the augmented answer while the direct call is held:\n%s", view)
	}
	transcript := m.renderTranscript()
	if strings.Count(transcript, "What is the warranty period?") != 1 || strings.Contains(transcript, "thinking...") {
		t.Errorf("transcript = %q", transcript)
	}
	if side := m.renderDirect(); !strings.Contains(side, "waiting...") {
		t.Errorf("side panel = %q", side)
	}

	close(comp.release)
	m = runTurn(t, m, cmd)
	if m.busy {
		t.Error("model should be idle after the exchange")
	}
	if side := m.renderDirect(); !strings.Contains(side, "DIRECT-ANSWER") {
		t.Errorf("side panel = %q", side)
	}
	if got := strings.Count(m.renderTranscript(), "AUGMENTED-ANSWER"); got != 1 {
		t.Errorf("augmented answer rendered %d times", got)
	}
}

func TestRenderTurn_MarkdownKeepsLabel(t *testing.T) {
	m := newTestModel(&fakeHandler{})
	m.renderer = newRenderer("dark", 80)
	if m.renderer == nil {
		t.Fatal("glamour renderer not created")
	}
	out := m.renderTurn(domain.Turn{Role: domain.RoleAssistant, Content: "Keep the **receipt**."})
	if !strings.HasPrefix(out, assistantStyle.Render("Assistant:")) {
		t.Errorf("markdown answer lacks the label: %q", out)
	}
	if !strings.Contains(out, "receipt") {
		t.Errorf("markdown answer lost its text: %q", out)
	}
	if user := m.renderTurn(domain.Turn{Role: domain.RoleUser, Content: "hi"}); !strings.Contains(user, "You:") {
		t.Errorf("user turn = %q", user)
	}
}

func TestModel_QuitKeys(t *testing.T) {
	m := newTestModel(&fakeHandler{})
	if _, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC}); cmd == nil {
		t.Fatal("Ctrl+C should quit")
	}
}

func TestHighlightBestSentence(t *testing.T) {
	out := highlightBestSentence("Reset the camera. Warranty lasts 12 months.", "warranty period")
	if !strings.Contains(out, "Reset the camera.") || !strings.Contains(out, "Warranty lasts 12 months.") {
		t.Errorf("sentences lost: %q", out)
	}
	if got := highlightBestSentence("no punctuation here", ""); got != "no punctuation here" {
		t.Errorf("got %q", got)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("a  b\nc", 80); got != "a b c" {
		t.Errorf("truncate() = %q", got)
	}
	if got := truncate(strings.Repeat("x", 20), 10); got != "xxxxxxx..." {
		t.Errorf("truncate() = %q", got)
	}
}
