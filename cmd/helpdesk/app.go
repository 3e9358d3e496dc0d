package main

import (
	"context"
	"fmt"
	"time"

	"helpdesk/internal/chunker"
	"helpdesk/internal/completion"
	"helpdesk/internal/config"
	"helpdesk/internal/domain"
	"helpdesk/internal/embedding"
	"helpdesk/internal/embedding/openai"
	"helpdesk/internal/embedding/tfidf"
	"helpdesk/internal/index"
	"helpdesk/internal/loader"
	"helpdesk/internal/logger"
	"helpdesk/internal/summarizer"
	"helpdesk/internal/vectorstore"
	"helpdesk/internal/vectorstore/memory"
	"helpdesk/internal/vectorstore/qdrant"
)

// app is the composition root shared by all commands.
type app struct {
	cfg *config.AppConfig
	log *logger.Logger
}

// newApp loads the config and the logger. The TUI owns the terminal, so
// interactive runs log to the configured file instead of stderr.
func newApp(opts *rootOptions, interactive bool) (*app, error) {
	var (
		cfg *config.AppConfig
		err error
	)
	if opts.configPath == "" {
		cfg, _, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(opts.configPath)
	}
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	out := "stderr"
	if interactive {
		out = cfg.Log.File
	}
	log, err := logger.New(logger.Options{Mode: cfg.Log.Mode, OutputPath: out, Verbose: opts.verbose})
	if err != nil {
		return nil, err
	}
	return &app{cfg: cfg, log: log}, nil
}

// completer reads the API key once and fails before any indexing work.
func (a *app) completer() (*completion.Client, error) {
	key, err := a.cfg.Completion.APIKey()
	if err != nil {
		return nil, err
	}
	return completion.NewClient(completion.Config{
		BaseURL: a.cfg.Completion.BaseURL,
		APIKey:  key,
		Model:   a.cfg.Completion.Model,
		Timeout: a.cfg.Completion.Timeout(),
	}, a.log.With("component", "completion"))
}

func (a *app) buildIndex(ctx context.Context, args []string) (*index.Index, error) {
	b, err := a.indexBuilder()
	if err != nil {
		return nil, err
	}
	paths := args
	if len(paths) == 0 {
		paths = a.cfg.Files
	}
	start := time.Now()
	idx, err := b.Build(ctx, paths)
	if err != nil {
		return nil, fmt.Errorf("build index: %w", err)
	}
	a.log.Debug("index ready", "elapsed", time.Since(start))
	return idx, nil
}

func (a *app) indexBuilder() (*index.Builder, error) {
	ch, err := newChunker(a.cfg.Chunker)
	if err != nil {
		return nil, err
	}
	newEmbedder, err := embedderFactory(a.cfg.Embedder)
	if err != nil {
		return nil, err
	}
	newStore, err := storeFactory(a.cfg.VectorStore)
	if err != nil {
		return nil, err
	}
	var sum domain.Summarizer
	switch a.cfg.Summarizer.Type {
	case "frequency", "":
		sum = summarizer.NewFrequencySummarizer()
	case "none":
	default:
		return nil, fmt.Errorf("unknown summarizer: %s", a.cfg.Summarizer.Type)
	}
	log := a.log.With("component", "index")
	return index.NewBuilder(index.Options{
		Loader:           loader.New(log),
		Chunker:          ch,
		NewEmbedder:      newEmbedder,
		NewStore:         newStore,
		Summarizer:       sum,
		SummarySentences: a.cfg.Summarizer.MaxSentences,
		Log:              log,
	})
}

func newChunker(cfg config.ChunkerConfig) (domain.Chunker, error) {
	switch cfg.Type {
	case "recursive", "":
		return chunker.NewRecursiveChunker(cfg.ChunkSize, cfg.ChunkOverlap), nil
	case "sentence":
		return chunker.NewSentenceChunker(cfg.SentencesPerChunk, cfg.OverlapSentences), nil
	default:
		return nil, fmt.Errorf("unknown chunker: %s", cfg.Type)
	}
}

func embedderFactory(cfg config.EmbedderConfig) (func() (embedding.Embedder, error), error) {
	switch cfg.Type {
	case "tfidf", "":
		return func() (embedding.Embedder, error) { return tfidf.NewEmbedder(), nil }, nil
	case "openai":
		if cfg.OpenAI == nil {
			return nil, fmt.Errorf("openai embedder config missing")
		}
		oc := openai.Config{
			BaseURL:   cfg.OpenAI.BaseURL,
			APIKeyEnv: cfg.OpenAI.APIKeyEnv,
			Model:     cfg.OpenAI.Model,
			Timeout:   time.Duration(cfg.OpenAI.TimeoutSecs) * time.Second,
		}
		return func() (embedding.Embedder, error) {
			c, err := openai.NewClient(oc)
			if err != nil {
				return nil, err
			}
			return c, nil
		}, nil
	default:
		return nil, fmt.Errorf("unknown embedder: %s", cfg.Type)
	}
}

func storeFactory(cfg config.VectorStoreConfig) (func() (vectorstore.Storage, error), error) {
	switch cfg.Type {
	case "memory", "":
		return func() (vectorstore.Storage, error) { return memory.NewStorage(), nil }, nil
	case "qdrant":
		if cfg.Qdrant == nil {
			return nil, fmt.Errorf("qdrant config missing")
		}
		qc := qdrant.Config{
			URL:        cfg.Qdrant.URL,
			APIKey:     cfg.Qdrant.APIKey,
			Collection: cfg.Qdrant.Collection,
			Timeout:    time.Duration(cfg.Qdrant.TimeoutSecs) * time.Second,
		}
		return func() (vectorstore.Storage, error) { return qdrant.NewStorage(qc), nil }, nil
	default:
		return nil, fmt.Errorf("unknown vector store: %s", cfg.Type)
	}
}
