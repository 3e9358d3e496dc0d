package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	t.Setenv("HELPDESK_EMBED_KEY", "sk-test")
	c, err := NewClient(Config{BaseURL: srv.URL + "/v1", APIKeyEnv: "HELPDESK_EMBED_KEY", Model: "test-embed", Timeout: 2 * time.Second})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	c.sleep = func(time.Duration) {}
	return c
}

func writeEmbedding(w http.ResponseWriter, vec []float32) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"object": "list",
		"model":  "test-embed",
		"data": []map[string]any{
			{"object": "embedding", "index": 0, "embedding": vec},
		},
	})
}

func TestClient_Embed(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/embeddings" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("Authorization = %q", got)
		}
		var body struct {
			Model string   `json:"model"`
			Input []string `json:"input"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if body.Model != "test-embed" || len(body.Input) != 1 || body.Input[0] != "hello" {
			t.Errorf("unexpected request: %+v", body)
		}
		writeEmbedding(w, []float32{0.5, 0.25, 0})
	})

	vec, err := c.Embed(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if len(vec) != 3 || vec[0] != 0.5 || vec[1] != 0.25 {
		t.Errorf("vec = %v", vec)
	}
	if c.Dimension() != 3 {
		t.Errorf("Dimension() = %d, want 3", c.Dimension())
	}
}

func TestClient_RetriesServerErrors(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"error":{"message":"boom","type":"server_error"}}`))
			return
		}
		writeEmbedding(w, []float32{1})
	})

	if _, err := c.Embed(context.Background(), "hello"); err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Errorf("calls = %d, want 2", got)
	}
}

func TestClient_DoesNotRetryAuthErrors(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"bad key","type":"invalid_request_error"}}`))
	})

	if _, err := c.Embed(context.Background(), "hello"); err == nil {
		t.Fatal("expected error")
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("calls = %d, want 1", got)
	}
}

func TestClient_PrepareSetsDimension(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeEmbedding(w, []float32{1, 2, 3, 4})
	})
	if err := c.Prepare(context.Background(), []string{"first chunk", "second"}); err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}
	if c.Dimension() != 4 {
		t.Errorf("Dimension() = %d, want 4", c.Dimension())
	}
}

func TestNewClient_MissingKey(t *testing.T) {
	t.Setenv("HELPDESK_EMBED_KEY", "")
	if _, err := NewClient(Config{APIKeyEnv: "HELPDESK_EMBED_KEY"}); err == nil {
		t.Fatal("expected missing key error")
	}
}

func TestRetryDelay(t *testing.T) {
	if retryDelay(0) != 200*time.Millisecond {
		t.Errorf("retryDelay(0) = %v", retryDelay(0))
	}
	if retryDelay(10) != 5*time.Second {
		t.Errorf("retryDelay(10) = %v", retryDelay(10))
	}
}
