package summarizer

import (
	"strings"
	"testing"
)

func TestFrequencySummarizer_KeepsDocumentOrder(t *testing.T) {
	text := "The camera records video. Weather is nice today. The camera stores video on the card. Lunch was late."
	got, err := NewFrequencySummarizer().Summarize(text, 2)
	if err != nil {
		t.Fatalf("Summarize() error = %v", err)
	}
	want := "The camera records video. The camera stores video on the card."
	if got != want {
		t.Errorf("Summarize() = %q, want %q", got, want)
	}
}

func TestFrequencySummarizer_NoSentences(t *testing.T) {
	got, err := NewFrequencySummarizer().Summarize("  just a fragment  ", 3)
	if err != nil {
		t.Fatal(err)
	}
	if got != "just a fragment" {
		t.Errorf("Summarize() = %q", got)
	}
}

func TestFrequencySummarizer_CapsSentenceCount(t *testing.T) {
	got, err := NewFrequencySummarizer().Summarize("One. Two. Three.", 10)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Count(got, ".") != 3 {
		t.Errorf("Summarize() = %q", got)
	}
}

func TestSentenceRate(t *testing.T) {
	weights := map[string]float64{"camera": 1, "video": 0.5}
	st := sentence{words: []string{"the", "camera", "video", "card"}}
	if got := st.rate(weights); got != 0.75 {
		t.Errorf("rate() = %v, want 0.75", got)
	}
	if got := (sentence{}).rate(weights); got != 0 {
		t.Errorf("empty sentence rate = %v", got)
	}
}

func TestTop_TiesKeepEarlierSentences(t *testing.T) {
	sents := []sentence{
		{pos: 0, text: "a", score: 1},
		{pos: 1, text: "b", score: 2},
		{pos: 2, text: "c", score: 1},
		{pos: 3, text: "d", score: 2},
	}
	got := top(sents, 3)
	var texts []string
	for _, st := range got {
		texts = append(texts, st.text)
	}
	if strings.Join(texts, "") != "abd" {
		t.Errorf("top() = %v, want [a b d]", texts)
	}
}
