// Package chat runs the help-desk conversation: every question is answered
// twice, once with retrieved context and once without, in two separate
// histories.
package chat

import (
	"context"
	"errors"
	"strings"
	"time"

	"helpdesk/internal/domain"
	"helpdesk/internal/logger"
)

// ContextPrefix starts the synthetic assistant turn that carries retrieved text.
const ContextPrefix = "Context: "

const defaultTopK = 4

// ErrEmptyPrompt is returned for blank input; the session is left untouched.
var ErrEmptyPrompt = errors.New("chat: empty prompt")

// Retriever finds the chunks most relevant to a query.
type Retriever interface {
	Search(ctx context.Context, query string, k int) ([]domain.SearchResult, error)
}

// Completer answers a conversation.
type Completer interface {
	Complete(ctx context.Context, turns []domain.Turn) (string, error)
}

// Renderer is notified as soon as each turn is stored.
type Renderer interface {
	UserTurn(t domain.Turn)
	AugmentedAnswer(t domain.Turn)
	DirectAnswer(t domain.Turn)
}

type Options struct {
	TopK int
}

// Exchange is the outcome of one HandleUserInput call.
type Exchange struct {
	Prompt       string
	Context      string
	Sources      []domain.SearchResult
	Augmented    domain.Turn
	Direct       domain.Turn
	AugmentedErr error
	DirectErr    error
}

// OK reports whether both answers were produced.
func (e *Exchange) OK() bool { return e.AugmentedErr == nil && e.DirectErr == nil }

type Controller struct {
	retriever Retriever
	completer Completer
	topK      int
	log       *logger.Logger
}

func NewController(retriever Retriever, completer Completer, log *logger.Logger, opts Options) *Controller {
	if log == nil {
		log = logger.Nop()
	}
	k := opts.TopK
	if k <= 0 {
		k = defaultTopK
	}
	return &Controller{retriever: retriever, completer: completer, topK: k, log: log}
}

// HandleUserInput processes one question against both histories of state.
// The two completion calls are independent: a failure of one is recorded as a
// failed assistant turn and the other still runs. The returned error is
// non-nil only when nothing was stored.
func (c *Controller) HandleUserInput(ctx context.Context, state *SessionState, prompt string, r Renderer) (*Exchange, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, ErrEmptyPrompt
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if r == nil {
		r = nopRenderer{}
	}
	log := c.log.With("session", state.ID.String())
	ex := &Exchange{Prompt: prompt}

	user := domain.Turn{Role: domain.RoleUser, Content: prompt}
	state.Augmented.Append(user)
	r.UserTurn(user)

	ex.Sources, ex.Context = c.retrieve(ctx, log, prompt)

	outbound := append(state.Augmented.Messages(), domain.Turn{
		Role:    domain.RoleAssistant,
		Content: ContextPrefix + ex.Context,
	})
	ex.Augmented, ex.AugmentedErr = c.complete(ctx, log, "augmented", outbound)
	state.Augmented.Append(ex.Augmented)
	r.AugmentedAnswer(ex.Augmented)

	state.Direct.Append(user)
	ex.Direct, ex.DirectErr = c.complete(ctx, log, "direct", state.Direct.Messages())
	state.Direct.Append(ex.Direct)
	r.DirectAnswer(ex.Direct)

	return ex, nil
}

func (c *Controller) retrieve(ctx context.Context, log *logger.Logger, prompt string) ([]domain.SearchResult, string) {
	if c.retriever == nil {
		return nil, ""
	}
	results, err := c.retriever.Search(ctx, prompt, c.topK)
	if err != nil {
		log.Warn("retrieval failed, answering without context", "error", err)
		return nil, ""
	}
	if len(results) == 0 {
		log.Warn("no context found", "k", c.topK)
		return nil, ""
	}
	texts := make([]string, len(results))
	for i, res := range results {
		texts[i] = res.Chunk.Text
	}
	log.Debug("retrieved context", "chunks", len(results), "top_score", results[0].Score)
	return results, strings.Join(texts, " ")
}

func (c *Controller) complete(ctx context.Context, log *logger.Logger, label string, turns []domain.Turn) (domain.Turn, error) {
	start := time.Now()
	answer, err := c.completer.Complete(ctx, turns)
	if err != nil {
		log.Error("answer failed", "history", label, "error", err)
		return domain.Turn{Role: domain.RoleAssistant, Failed: true, Err: err.Error()}, err
	}
	log.Info("answered", "history", label, "messages", len(turns), "elapsed", time.Since(start))
	return domain.Turn{Role: domain.RoleAssistant, Content: answer}, nil
}

type nopRenderer struct{}

func (nopRenderer) UserTurn(domain.Turn)        {}
func (nopRenderer) AugmentedAnswer(domain.Turn) {}
func (nopRenderer) DirectAnswer(domain.Turn)    {}
