package chunker

import (
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"helpdesk/internal/domain"
)

func TestRecursiveChunker_RespectsSizeAndOverlap(t *testing.T) {
	words := make([]string, 300)
	for i := range words {
		words[i] = fmt.Sprintf("w%03d", i)
	}
	doc := domain.Document{ID: "doc", Path: "manual.txt", Content: strings.Join(words, " ")}

	chunks, err := NewRecursiveChunker(500, 50).Chunk(doc)
	if err != nil {
		t.Fatalf("Chunk() error = %v", err)
	}
	if len(chunks) < 3 {
		t.Fatalf("expected several chunks, got %d", len(chunks))
	}
	for i, ch := range chunks {
		if n := utf8.RuneCountInString(ch.Text); n > 500 {
			t.Errorf("chunk %d has %d characters", i, n)
		}
		if ch.Index != i || ch.ChunkID != fmt.Sprintf("doc:%d", i) {
			t.Errorf("chunk %d has index %d id %q", i, ch.Index, ch.ChunkID)
		}
		if ch.Source != "manual.txt" || ch.DocumentID != "doc" {
			t.Errorf("chunk %d source/document = %q/%q", i, ch.Source, ch.DocumentID)
		}
		if i == 0 {
			continue
		}
		first := strings.Fields(ch.Text)[0]
		if !strings.Contains(chunks[i-1].Text, first) {
			t.Errorf("chunk %d starts with %q which does not overlap the previous chunk", i, first)
		}
	}
	last := chunks[len(chunks)-1].Text
	if !strings.HasSuffix(last, "w299") {
		t.Errorf("last chunk should end the text, got %q", last)
	}
}

func TestRecursiveChunker_MergesSmallParagraphs(t *testing.T) {
	doc := domain.Document{ID: "d", Content: "Warranty: 12 months from purchase.\n\nReturns within 30 days."}
	chunks, err := NewRecursiveChunker(500, 50).Chunk(doc)
	if err != nil {
		t.Fatalf("Chunk() error = %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].Text != doc.Content {
		t.Errorf("chunk text = %q", chunks[0].Text)
	}
}

func TestRecursiveChunker_SplitsUnbrokenText(t *testing.T) {
	doc := domain.Document{ID: "d", Content: strings.Repeat("x", 1200)}
	chunks, err := NewRecursiveChunker(500, 50).Chunk(doc)
	if err != nil {
		t.Fatalf("Chunk() error = %v", err)
	}
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	wantLens := []int{500, 500, 300}
	for i, ch := range chunks {
		if len(ch.Text) != wantLens[i] {
			t.Errorf("chunk %d length = %d, want %d", i, len(ch.Text), wantLens[i])
		}
	}
}

func TestRecursiveChunker_Empty(t *testing.T) {
	chunks, err := NewRecursiveChunker(500, 50).Chunk(domain.Document{ID: "d", Content: " \n\n\t "})
	if err != nil {
		t.Fatalf("Chunk() error = %v", err)
	}
	if len(chunks) != 0 {
		t.Errorf("expected no chunks, got %d", len(chunks))
	}
}

func TestNewRecursiveChunker_ClampsOverlap(t *testing.T) {
	c := NewRecursiveChunker(100, 200)
	if c.chunkOverlap != 10 {
		t.Errorf("chunkOverlap = %d, want 10", c.chunkOverlap)
	}
}

func TestSentenceChunker(t *testing.T) {
	doc := domain.Document{ID: "d", Path: "faq.txt", Content: "One. Two! Three? Four. Five."}
	chunks, err := NewSentenceChunker(2, 1).Chunk(doc)
	if err != nil {
		t.Fatalf("Chunk() error = %v", err)
	}
	want := []string{"One. Two!", "Two! Three?", "Three? Four.", "Four. Five."}
	if len(chunks) != len(want) {
		t.Fatalf("got %d chunks, want %d", len(chunks), len(want))
	}
	for i, w := range want {
		if chunks[i].Text != w {
			t.Errorf("chunk %d = %q, want %q", i, chunks[i].Text, w)
		}
		if chunks[i].Source != "faq.txt" {
			t.Errorf("chunk %d source = %q", i, chunks[i].Source)
		}
	}
}

func TestSentenceChunker_NoPunctuation(t *testing.T) {
	chunks, err := NewSentenceChunker(3, 0).Chunk(domain.Document{ID: "d", Content: "  no terminal punctuation  "})
	if err != nil {
		t.Fatalf("Chunk() error = %v", err)
	}
	if len(chunks) != 1 || chunks[0].Text != "no terminal punctuation" {
		t.Errorf("chunks = %+v", chunks)
	}
}
