// Package completion sends conversation turns to an OpenAI-compatible
// chat-completions endpoint.
package completion

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	goopenai "github.com/sashabaranov/go-openai"

	"helpdesk/internal/domain"
	"helpdesk/internal/logger"
)

const (
	defaultModel   = "gpt-4"
	defaultTimeout = 60 * time.Second
)

type Config struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// Client is safe for concurrent use. Every Complete call is bounded by the
// configured timeout.
type Client struct {
	client  *goopenai.Client
	model   string
	timeout time.Duration
	log     *logger.Logger
}

func NewClient(cfg Config, log *logger.Logger) (*Client, error) {
	key := strings.TrimSpace(cfg.APIKey)
	if key == "" {
		return nil, errors.New("completion: API key is empty")
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if log == nil {
		log = logger.Nop()
	}
	oc := goopenai.DefaultConfig(key)
	if cfg.BaseURL != "" {
		oc.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	// the context deadline is the real limit; the client timeout is a backstop
	oc.HTTPClient = &http.Client{Timeout: cfg.Timeout + 5*time.Second}
	return &Client{
		client:  goopenai.NewClientWithConfig(oc),
		model:   cfg.Model,
		timeout: cfg.Timeout,
		log:     log,
	}, nil
}

// Model returns the configured model name.
func (c *Client) Model() string { return c.model }

// Complete sends turns in order and returns the first choice's content.
// Failed assistant turns are the caller's concern and are sent as is.
func (c *Client) Complete(ctx context.Context, turns []domain.Turn) (string, error) {
	if len(turns) == 0 {
		return "", &Error{Kind: KindBadRequest, Err: errors.New("no messages")}
	}
	msgs := make([]goopenai.ChatCompletionMessage, len(turns))
	for i, t := range turns {
		msgs[i] = goopenai.ChatCompletionMessage{Role: string(t.Role), Content: t.Content}
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	start := time.Now()
	resp, err := c.client.CreateChatCompletion(callCtx, goopenai.ChatCompletionRequest{
		Model:    c.model,
		Messages: msgs,
	})
	if err != nil {
		cerr := classify(err)
		c.log.Warn("completion failed",
			"model", c.model,
			"messages", len(msgs),
			"kind", cerr.Kind,
			"status", cerr.StatusCode,
			"elapsed", time.Since(start),
			"error", err,
		)
		return "", cerr
	}
	if len(resp.Choices) == 0 {
		return "", &Error{Kind: KindEmpty, Err: errors.New("response has no choices")}
	}
	c.log.Debug("completion done",
		"model", c.model,
		"messages", len(msgs),
		"prompt_tokens", resp.Usage.PromptTokens,
		"completion_tokens", resp.Usage.CompletionTokens,
		"elapsed", time.Since(start),
	)
	return resp.Choices[0].Message.Content, nil
}
