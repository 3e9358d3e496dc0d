package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"helpdesk/internal/domain"
)

type turnStage int

const (
	stageUser turnStage = iota
	stageAugmented
	stageDirect
)

// turnMsg announces a turn stored by the controller while the exchange is
// still running. events is where the rest of the exchange arrives.
type turnMsg struct {
	stage  turnStage
	turn   domain.Turn
	events <-chan tea.Msg
}

// eventRenderer forwards controller callbacks to the Bubble Tea loop. The
// channel holds a whole exchange, so sends never block the controller.
type eventRenderer struct {
	events chan tea.Msg
}

const eventBuffer = 4

func newEventRenderer() eventRenderer {
	return eventRenderer{events: make(chan tea.Msg, eventBuffer)}
}

func (r eventRenderer) UserTurn(t domain.Turn) {
	r.events <- turnMsg{stage: stageUser, turn: t, events: r.events}
}

func (r eventRenderer) AugmentedAnswer(t domain.Turn) {
	r.events <- turnMsg{stage: stageAugmented, turn: t, events: r.events}
}

func (r eventRenderer) DirectAnswer(t domain.Turn) {
	r.events <- turnMsg{stage: stageDirect, turn: t, events: r.events}
}

// finish delivers the final exchange and closes the stream.
func (r eventRenderer) finish(msg exchangeMsg) {
	r.events <- msg
	close(r.events)
}

// waitForEvent blocks for the next message of a running exchange.
func waitForEvent(events <-chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-events
		if !ok {
			return nil
		}
		return msg
	}
}
