package tfidf

import (
	"context"
	"math"
	"testing"
)

func TestEmbedder_PrepareAndEmbed(t *testing.T) {
	ctx := context.Background()
	e := NewEmbedder()
	corpus := []string{
		"Warranty: 12 months from purchase",
		"Reset the camera by holding the button",
		"The camera records at 1080p",
	}
	if err := e.Prepare(ctx, corpus); err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}
	if e.Dimension() == 0 {
		t.Fatal("Dimension() should be positive after Prepare")
	}

	vec, err := e.Embed(ctx, "warranty period")
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if len(vec) != e.Dimension() {
		t.Fatalf("len(vec) = %d, want %d", len(vec), e.Dimension())
	}
	norm := 0.0
	for _, v := range vec {
		norm += v * v
	}
	if math.Abs(norm-1) > 1e-9 {
		t.Errorf("vector should be unit length, got norm^2 %v", norm)
	}
	if vec[e.columns["warranty"]] == 0 {
		t.Error("warranty component should be set")
	}
}

func TestEmbedder_UnknownTermsGiveZeroVector(t *testing.T) {
	ctx := context.Background()
	e := NewEmbedder()
	if err := e.Prepare(ctx, []string{"camera manual"}); err != nil {
		t.Fatal(err)
	}
	vec, err := e.Embed(ctx, "the of and")
	if err != nil {
		t.Fatal(err)
	}
	for i, v := range vec {
		if v != 0 {
			t.Fatalf("component %d = %v, want 0", i, v)
		}
	}
}

func TestEmbedder_Deterministic(t *testing.T) {
	ctx := context.Background()
	corpus := []string{"alpha beta", "beta gamma", "gamma delta 42"}
	a, b := NewEmbedder(), NewEmbedder()
	if err := a.Prepare(ctx, corpus); err != nil {
		t.Fatal(err)
	}
	if err := b.Prepare(ctx, corpus); err != nil {
		t.Fatal(err)
	}
	va, _ := a.Embed(ctx, "beta 42")
	vb, _ := b.Embed(ctx, "beta 42")
	for i := range va {
		if va[i] != vb[i] {
			t.Fatalf("component %d differs: %v vs %v", i, va[i], vb[i])
		}
	}
}

func TestEmbedder_Errors(t *testing.T) {
	ctx := context.Background()
	e := NewEmbedder()
	if _, err := e.Embed(ctx, "x"); err == nil {
		t.Error("Embed before Prepare should fail")
	}
	if err := e.Prepare(ctx, nil); err == nil {
		t.Error("Prepare on empty corpus should fail")
	}
	if err := e.Prepare(ctx, []string{"the and of"}); err == nil {
		t.Error("Prepare on stopword-only corpus should fail")
	}
}

func TestFit_SmoothedIDF(t *testing.T) {
	columns, idf := fit(map[string]int{"camera": 2, "battery": 1}, 3)
	if columns["battery"] != 0 || columns["camera"] != 1 {
		t.Fatalf("columns = %v, want alphabetical order", columns)
	}
	if want := math.Log(4.0/2.0) + 1; math.Abs(idf[0]-want) > 1e-12 {
		t.Errorf("idf[battery] = %v, want %v", idf[0], want)
	}
	if want := math.Log(4.0/3.0) + 1; math.Abs(idf[1]-want) > 1e-12 {
		t.Errorf("idf[camera] = %v, want %v", idf[1], want)
	}
}

func TestTerms_DropsStopwords(t *testing.T) {
	got := terms("What is the Warranty of my camera's lens?")
	want := []string{"warranty", "camera's", "lens"}
	if len(got) != len(want) {
		t.Fatalf("terms() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("terms()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
