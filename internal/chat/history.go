package chat

import (
	"sync"

	"github.com/google/uuid"

	"helpdesk/internal/domain"
)

// History is an append-only list of turns. Readers get copies, so a snapshot
// can be rendered while a turn is still being processed.
type History struct {
	mu    sync.RWMutex
	turns []domain.Turn
}

func (h *History) Append(t domain.Turn) {
	h.mu.Lock()
	h.turns = append(h.turns, t)
	h.mu.Unlock()
}

// Turns returns a snapshot of every stored turn, failed markers included.
func (h *History) Turns() []domain.Turn {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return append([]domain.Turn(nil), h.turns...)
}

func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.turns)
}

// Last returns the most recent turn.
func (h *History) Last() (domain.Turn, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if len(h.turns) == 0 {
		return domain.Turn{}, false
	}
	return h.turns[len(h.turns)-1], true
}

// Messages returns the turns worth sending upstream: every failed marker is
// dropped together with the user turn it answers.
func (h *History) Messages() []domain.Turn {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]domain.Turn, 0, len(h.turns))
	for i, t := range h.turns {
		if t.Failed {
			continue
		}
		if t.Role == domain.RoleUser && i+1 < len(h.turns) && h.turns[i+1].Failed {
			continue
		}
		out = append(out, t)
	}
	return out
}

// SessionState holds both conversations of one operator session.
type SessionState struct {
	ID        uuid.UUID
	Augmented History
	Direct    History
}

func NewSessionState() *SessionState {
	return &SessionState{ID: uuid.New()}
}
