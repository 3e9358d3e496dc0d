// Package tfidf is the offline embedder: vectors are term frequencies weighted
// by smoothed inverse document frequency over the indexed chunks.
package tfidf

import (
	"context"
	"errors"
	"math"
	"regexp"
	"sort"
	"strings"
)

var (
	errEmptyCorpus = errors.New("tfidf: empty corpus")
	errNoTerms     = errors.New("tfidf: corpus has no indexable terms")
	errNotPrepared = errors.New("tfidf: Embed called before Prepare")
)

var wordPattern = regexp.MustCompile(`[\p{L}\p{N}]+(?:['’][\p{L}\p{N}]+)*`)

// Embedder maps text onto one column per corpus term. Columns follow the
// alphabetical order of the terms, so a corpus always yields the same vectors.
// Prepare must finish before Embed is called; Embed itself is read-only.
type Embedder struct {
	columns map[string]int
	idf     []float64
}

func NewEmbedder() *Embedder { return &Embedder{} }

func (e *Embedder) Name() string { return "tfidf" }

// Prepare fits the term columns and their weights to corpus.
func (e *Embedder) Prepare(_ context.Context, corpus []string) error {
	if len(corpus) == 0 {
		return errEmptyCorpus
	}
	df := documentFrequencies(corpus)
	if len(df) == 0 {
		return errNoTerms
	}
	e.columns, e.idf = fit(df, len(corpus))
	return nil
}

func (e *Embedder) Dimension() int { return len(e.idf) }

// Embed returns the unit-length TF-IDF vector of text, or the zero vector
// when text contains no corpus term.
func (e *Embedder) Embed(_ context.Context, text string) ([]float64, error) {
	if e.columns == nil {
		return nil, errNotPrepared
	}
	vec := make([]float64, len(e.idf))
	counts, known := e.count(terms(text))
	if known == 0 {
		return vec, nil
	}
	for col, c := range counts {
		vec[col] = float64(c) / float64(known) * e.idf[col]
	}
	unitize(vec)
	return vec, nil
}

// count tallies the tokens that have a column; known is their total.
func (e *Embedder) count(tokens []string) (counts map[int]int, known int) {
	counts = make(map[int]int, len(tokens))
	for _, tok := range tokens {
		col, ok := e.columns[tok]
		if !ok {
			continue
		}
		counts[col]++
		known++
	}
	return counts, known
}

func documentFrequencies(corpus []string) map[string]int {
	df := make(map[string]int)
	for _, doc := range corpus {
		seen := make(map[string]bool)
		for _, tok := range terms(doc) {
			if !seen[tok] {
				seen[tok] = true
				df[tok]++
			}
		}
	}
	return df
}

// fit numbers the terms alphabetically and weights each one with
// ln((1+n)/(1+df)) + 1, where n is the number of documents.
func fit(df map[string]int, docs int) (map[string]int, []float64) {
	vocab := make([]string, 0, len(df))
	for term := range df {
		vocab = append(vocab, term)
	}
	sort.Strings(vocab)

	n := float64(docs)
	columns := make(map[string]int, len(vocab))
	idf := make([]float64, len(vocab))
	for col, term := range vocab {
		columns[term] = col
		idf[col] = math.Log((1+n)/(1+float64(df[term]))) + 1
	}
	return columns, idf
}

func unitize(v []float64) {
	var sq float64
	for _, x := range v {
		sq += x * x
	}
	if sq == 0 {
		return
	}
	norm := math.Sqrt(sq)
	for i := range v {
		v[i] /= norm
	}
}

// terms lower-cases text and drops stopwords.
func terms(text string) []string {
	words := wordPattern.FindAllString(strings.ToLower(text), -1)
	kept := words[:0]
	for _, w := range words {
		if !stopwords[w] {
			kept = append(kept, w)
		}
	}
	return kept
}

var stopwords = func() map[string]bool {
	set := make(map[string]bool)
	for _, w := range strings.Fields(`
		a an the and or but if then else for to of in on at by with as
		is are was were be been being it this that these those from
		up down over under again further than so such into about between
		through during before after above below out off own same too very
		can will just don should now what how my i do does`) {
		set[w] = true
	}
	return set
}()
