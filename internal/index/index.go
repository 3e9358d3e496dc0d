// Package index builds the searchable corpus: documents are loaded, chunked,
// embedded and stored once, then queried read-only for the rest of the process.
package index

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"helpdesk/internal/domain"
	"helpdesk/internal/embedding"
	"helpdesk/internal/loader"
	"helpdesk/internal/logger"
	"helpdesk/internal/vectorstore"
)

// DefaultTopK is used when Search is called with k <= 0.
const DefaultTopK = 4

const defaultEmbedWorkers = 4

// Options wires the collaborators of a Builder. NewEmbedder and NewStore are
// called once per Build so that every Index owns fresh state.
type Options struct {
	Loader           *loader.Loader
	Chunker          domain.Chunker
	NewEmbedder      func() (embedding.Embedder, error)
	NewStore         func() (vectorstore.Storage, error)
	Summarizer       domain.Summarizer
	SummarySentences int
	// EmbedWorkers bounds concurrent Embed calls during Build.
	EmbedWorkers int
	Log          *logger.Logger
}

type Builder struct {
	opts    Options
	workers int
	log     *logger.Logger
}

func NewBuilder(opts Options) (*Builder, error) {
	if opts.Chunker == nil {
		return nil, errors.New("index: chunker is required")
	}
	if opts.NewEmbedder == nil {
		return nil, errors.New("index: embedder factory is required")
	}
	if opts.NewStore == nil {
		return nil, errors.New("index: store factory is required")
	}
	log := opts.Log
	if log == nil {
		log = logger.Nop()
	}
	if opts.Loader == nil {
		opts.Loader = loader.New(log)
	}
	workers := opts.EmbedWorkers
	if workers <= 0 {
		workers = defaultEmbedWorkers
	}
	return &Builder{opts: opts, workers: workers, log: log}, nil
}

// Build loads every path (glob patterns allowed) and returns the finished Index.
// Sources that cannot be loaded end up in Index.Warnings.
func (b *Builder) Build(ctx context.Context, paths []string) (*Index, error) {
	docs, warnings := b.opts.Loader.LoadAll(ctx, paths)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var (
		chunks []domain.Chunk
		texts  []string
		corpus strings.Builder
	)
	for _, d := range docs {
		cs, err := b.opts.Chunker.Chunk(d)
		if err != nil {
			return nil, fmt.Errorf("chunk %s: %w", d.Path, err)
		}
		for _, ch := range cs {
			chunks = append(chunks, ch)
			texts = append(texts, ch.Text)
		}
		corpus.WriteString("\n")
		corpus.WriteString(d.Content)
	}

	emb, err := b.opts.NewEmbedder()
	if err != nil {
		return nil, fmt.Errorf("create embedder: %w", err)
	}
	store, err := b.opts.NewStore()
	if err != nil {
		return nil, fmt.Errorf("create vector store: %w", err)
	}

	idx := &Index{
		embedder: emb,
		store:    store,
		chunks:   chunks,
		warnings: warnings,
		docs:     len(docs),
		log:      b.log,
	}
	if len(chunks) == 0 {
		b.log.Warn("index is empty", "sources", len(paths), "warnings", len(warnings))
		return idx, nil
	}

	if err := emb.Prepare(ctx, texts); err != nil {
		return nil, fmt.Errorf("prepare embedder: %w", err)
	}
	if err := store.Init(ctx, emb.Dimension()); err != nil {
		return nil, fmt.Errorf("init vector store: %w", err)
	}
	vectors := make([][]float64, len(chunks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.workers)
	for i := range chunks {
		g.Go(func() error {
			vec, err := emb.Embed(gctx, chunks[i].Text)
			if err != nil {
				return fmt.Errorf("embed chunk %s: %w", chunks[i].ChunkID, err)
			}
			vectors[i] = vec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := store.Upsert(ctx, chunks, vectors); err != nil {
		return nil, fmt.Errorf("upsert chunks: %w", err)
	}

	if b.opts.Summarizer != nil {
		summary, err := b.opts.Summarizer.Summarize(corpus.String(), b.opts.SummarySentences)
		if err != nil {
			b.log.Warn("summary failed", "error", err)
		}
		idx.summary = summary
	}

	b.log.Info("index built",
		"documents", len(docs),
		"chunks", len(chunks),
		"embedder", emb.Name(),
		"dimension", emb.Dimension(),
		"warnings", len(warnings),
	)
	return idx, nil
}

// Index is immutable after Build and safe for concurrent Search calls.
type Index struct {
	embedder embedding.Embedder
	store    vectorstore.Storage
	chunks   []domain.Chunk
	warnings []error
	summary  string
	docs     int
	log      *logger.Logger
}

// Search returns at most k chunks, most similar first. When the query shares
// no vocabulary with the corpus the ranking falls back to token overlap.
func (x *Index) Search(ctx context.Context, query string, k int) ([]domain.SearchResult, error) {
	if k <= 0 {
		k = DefaultTopK
	}
	if len(x.chunks) == 0 || strings.TrimSpace(query) == "" {
		return nil, nil
	}
	vec, err := x.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if embedding.IsZero(vec) {
		return x.lexicalSearch(query, k), nil
	}
	res, err := x.store.Search(ctx, vec, k)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	for _, r := range res {
		if r.Score != 0 {
			return res, nil
		}
	}
	x.log.Debug("vector scores are all zero, using lexical ranking", "query_chars", len(query))
	return x.lexicalSearch(query, k), nil
}

// Summary is an extractive summary of the whole corpus.
func (x *Index) Summary() string { return x.summary }

// Warnings lists the sources skipped during Build.
func (x *Index) Warnings() []error { return append([]error(nil), x.warnings...) }

// Len is the number of indexed chunks.
func (x *Index) Len() int { return len(x.chunks) }

// Documents is the number of sources that were loaded.
func (x *Index) Documents() int { return x.docs }

// SourceStat counts the chunks indexed for one source file.
type SourceStat struct {
	Source string
	Chunks int
}

// Sources reports chunk counts per source in load order.
func (x *Index) Sources() []SourceStat {
	var out []SourceStat
	pos := make(map[string]int)
	for _, ch := range x.chunks {
		i, ok := pos[ch.Source]
		if !ok {
			i = len(out)
			pos[ch.Source] = i
			out = append(out, SourceStat{Source: ch.Source})
		}
		out[i].Chunks++
	}
	return out
}
