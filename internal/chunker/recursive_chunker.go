package chunker

import (
	"strings"
	"unicode/utf8"

	"helpdesk/internal/domain"
)

var defaultSeparators = []string{"\n\n", "\n", " ", ""}

// RecursiveChunker splits text on the coarsest separator that occurs in it,
// recursing into pieces that are still too long, then greedily merges the
// pieces back into chunks of at most chunkSize characters with up to
// chunkOverlap characters shared between neighbours.
type RecursiveChunker struct {
	chunkSize    int
	chunkOverlap int
	separators   []string
}

func NewRecursiveChunker(chunkSize, chunkOverlap int) *RecursiveChunker {
	if chunkSize <= 0 {
		chunkSize = 500
	}
	if chunkOverlap < 0 {
		chunkOverlap = 0
	}
	if chunkOverlap >= chunkSize {
		chunkOverlap = chunkSize / 10
	}
	return &RecursiveChunker{
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
		separators:   defaultSeparators,
	}
}

func (c *RecursiveChunker) Chunk(document domain.Document) ([]domain.Chunk, error) {
	if strings.TrimSpace(document.Content) == "" {
		return nil, nil
	}
	return newChunks(document, c.split(document.Content, c.separators)), nil
}

func (c *RecursiveChunker) split(text string, separators []string) []string {
	sep := separators[len(separators)-1]
	var rest []string
	for i, s := range separators {
		if s == "" {
			sep = s
			break
		}
		if strings.Contains(text, s) {
			sep = s
			rest = separators[i+1:]
			break
		}
	}

	var pieces []string
	if sep == "" {
		pieces = make([]string, 0, utf8.RuneCountInString(text))
		for _, r := range text {
			pieces = append(pieces, string(r))
		}
	} else {
		pieces = strings.Split(text, sep)
	}

	var out, short []string
	for _, p := range pieces {
		if p == "" {
			continue
		}
		if length(p) < c.chunkSize {
			short = append(short, p)
			continue
		}
		if len(short) > 0 {
			out = append(out, c.merge(short, sep)...)
			short = nil
		}
		if len(rest) == 0 {
			out = append(out, p)
		} else {
			out = append(out, c.split(p, rest)...)
		}
	}
	if len(short) > 0 {
		out = append(out, c.merge(short, sep)...)
	}
	return out
}

// merge joins pieces with sep into chunks no longer than chunkSize, carrying
// the trailing pieces of each chunk (up to chunkOverlap characters) into the next.
func (c *RecursiveChunker) merge(pieces []string, sep string) []string {
	sepLen := length(sep)
	var docs, current []string
	total := 0
	for _, p := range pieces {
		l := length(p)
		if total+l+joinCost(current, sepLen) > c.chunkSize && len(current) > 0 {
			if doc := strings.TrimSpace(strings.Join(current, sep)); doc != "" {
				docs = append(docs, doc)
			}
			for total > c.chunkOverlap || (total > 0 && total+l+joinCost(current, sepLen) > c.chunkSize) {
				total -= length(current[0])
				if len(current) > 1 {
					total -= sepLen
				}
				current = current[1:]
			}
		}
		current = append(current, p)
		total += l
		if len(current) > 1 {
			total += sepLen
		}
	}
	if doc := strings.TrimSpace(strings.Join(current, sep)); doc != "" {
		docs = append(docs, doc)
	}
	return docs
}

func joinCost(current []string, sepLen int) int {
	if len(current) > 0 {
		return sepLen
	}
	return 0
}

func length(s string) int { return utf8.RuneCountInString(s) }
