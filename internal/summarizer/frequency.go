// Package summarizer builds the short extractive summary shown above the chat.
package summarizer

import (
	"math"
	"regexp"
	"sort"
	"strings"
)

const defaultSentences = 5

var (
	sentencePattern = regexp.MustCompile(`(?m)(?U)([^.!?]+[.!?])`)
	wordPattern     = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*`)
)

// FrequencySummarizer keeps the sentences whose content words recur most
// often in the text.
type FrequencySummarizer struct {
	skip map[string]bool
}

func NewFrequencySummarizer() *FrequencySummarizer {
	return &FrequencySummarizer{skip: stopwords}
}

type sentence struct {
	pos   int
	text  string
	words []string
	score float64
}

// Summarize returns at most maxSentences sentences of text in their original
// order. Text without sentence punctuation is returned trimmed.
func (s *FrequencySummarizer) Summarize(text string, maxSentences int) (string, error) {
	if maxSentences <= 0 {
		maxSentences = defaultSentences
	}
	sents := split(text)
	if len(sents) == 0 {
		return strings.TrimSpace(text), nil
	}
	weights := s.wordWeights(sents)
	for i := range sents {
		sents[i].score = sents[i].rate(weights)
	}
	best := top(sents, maxSentences)
	parts := make([]string, len(best))
	for i, st := range best {
		parts[i] = st.text
	}
	return strings.Join(parts, " "), nil
}

func split(text string) []sentence {
	raw := sentencePattern.FindAllString(text, -1)
	sents := make([]sentence, len(raw))
	for i, r := range raw {
		sents[i] = sentence{
			pos:   i,
			text:  strings.TrimSpace(r),
			words: wordPattern.FindAllString(strings.ToLower(r), -1),
		}
	}
	return sents
}

// wordWeights counts content words, scaled so the most frequent one weighs 1.
func (s *FrequencySummarizer) wordWeights(sents []sentence) map[string]float64 {
	weights := make(map[string]float64)
	var peak float64
	for _, st := range sents {
		for _, w := range st.words {
			if s.skip[w] {
				continue
			}
			weights[w]++
			peak = math.Max(peak, weights[w])
		}
	}
	for w := range weights {
		weights[w] /= peak
	}
	return weights
}

// rate divides the summed word weights by the square root of the word count.
func (st sentence) rate(weights map[string]float64) float64 {
	if len(st.words) == 0 {
		return 0
	}
	var sum float64
	for _, w := range st.words {
		sum += weights[w]
	}
	return sum / math.Sqrt(float64(len(st.words)))
}

// top keeps the n highest scores, earlier sentences first on ties, and
// restores document order.
func top(sents []sentence, n int) []sentence {
	ranked := append([]sentence(nil), sents...)
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })
	if n < len(ranked) {
		ranked = ranked[:n]
	}
	sort.Slice(ranked, func(i, j int) bool { return ranked[i].pos < ranked[j].pos })
	return ranked
}

var stopwords = func() map[string]bool {
	set := make(map[string]bool)
	for _, w := range strings.Fields(`
		a an the and or but if then else for to of in on at by with as
		is are was were be been being it this that these those from
		up down over under again further than so such into about between
		through during before after above below out off own same too very
		can will just don should now`) {
		set[w] = true
	}
	return set
}()
