package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/lorebase/lorebase/engine/domain"
	"github.com/lorebase/lorebase/pkg/fn"
	"github.com/lorebase/lorebase/pkg/resilience"
)

// newTestClient disables retry backoff so failure-policy tests observe one
// HTTP call per request.
func newTestClient(url string) *Client {
	c := New(url)
	c.retry = fn.RetryOpts{MaxAttempts: 1, InitialWait: time.Millisecond}
	return c
}

func TestEmbed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embeddings" {
			t.Errorf("path = %q", r.URL.Path)
		}
		var req embedReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatal(err)
		}
		if req.Model != "nomic-embed-text" || req.Prompt != "hello" {
			t.Errorf("req = %+v", req)
		}
		json.NewEncoder(w).Encode(embedResp{Embedding: []float64{0.1, 0.2, 0.3}})
	}))
	defer srv.Close()

	vec, err := New(srv.URL).Embed(context.Background(), "nomic-embed-text", "hello")
	if err != nil {
		t.Fatal(err)
	}
	if len(vec) != 3 || vec[1] != float32(0.2) {
		t.Errorf("vec = %v", vec)
	}
}

func TestEmbedBatchFailsWhole(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 2 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(embedResp{Embedding: []float64{1}})
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).EmbedBatch(context.Background(), "m", []string{"a", "b", "c"})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 2 {
		t.Errorf("should stop at the first failure, made %d calls", calls)
	}
}

func TestRerank(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rerankReq
		json.NewDecoder(r.Body).Decode(&req)
		scores := make([]float64, len(req.Documents))
		for i := range scores {
			scores[i] = float64(i)
		}
		json.NewEncoder(w).Encode(rerankResp{Scores: scores})
	}))
	defer srv.Close()

	scores, err := New(srv.URL).Rerank(context.Background(), "m", "q", []string{"a", "b"})
	if err != nil {
		t.Fatal(err)
	}
	if len(scores) != 2 || scores[1] != 1 {
		t.Errorf("scores = %v", scores)
	}
}

func TestRerankUnsupported(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	_, err := New(srv.URL).Rerank(context.Background(), "m", "q", []string{"a"})
	if !errors.Is(err, domain.ErrRerankUnsupported) {
		t.Errorf("err = %v, want ErrRerankUnsupported", err)
	}
}

func TestRerankScoreCountMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(rerankResp{Scores: []float64{0.5}})
	}))
	defer srv.Close()

	_, err := New(srv.URL).Rerank(context.Background(), "m", "q", []string{"a", "b"})
	if !errors.Is(err, domain.ErrScoreCountMismatch) {
		t.Errorf("err = %v, want ErrScoreCountMismatch", err)
	}
}

func TestPostRetriesTransientServerErrors(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(embedResp{Embedding: []float64{1}})
	}))
	defer srv.Close()

	c := New(srv.URL)
	c.retry = fn.RetryOpts{MaxAttempts: 3, InitialWait: time.Millisecond}

	vec, err := c.Embed(context.Background(), "m", "x")
	if err != nil {
		t.Fatal(err)
	}
	if len(vec) != 1 || calls != 2 {
		t.Errorf("vec = %v after %d calls, want recovery on the second call", vec, calls)
	}
}

func TestPostDoesNotRetryClientErrors(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.NotFound(w, r)
	}))
	defer srv.Close()

	c := New(srv.URL)
	c.retry = fn.RetryOpts{MaxAttempts: 3, InitialWait: time.Millisecond}

	if _, err := c.Rerank(context.Background(), "m", "q", []string{"a"}); !errors.Is(err, domain.ErrRerankUnsupported) {
		t.Fatalf("err = %v, want ErrRerankUnsupported", err)
	}
	if calls != 1 {
		t.Errorf("a definitive 404 was retried: %d calls", calls)
	}
}

func TestBreakerOpensOnRepeatedServerErrors(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	for i := 0; i < 5; i++ {
		if _, err := c.Embed(context.Background(), "m", "x"); err == nil {
			t.Fatalf("call %d: expected error", i)
		}
	}

	_, err := c.Embed(context.Background(), "m", "x")
	if !errors.Is(err, resilience.ErrCircuitOpen) {
		t.Fatalf("err = %v, want ErrCircuitOpen", err)
	}
	if calls != 5 {
		t.Errorf("open circuit should not reach the server, made %d calls", calls)
	}
}

func TestBreakerIgnoresClientErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	c := New(srv.URL)
	for i := 0; i < 8; i++ {
		_, err := c.Rerank(context.Background(), "m", "q", []string{"a"})
		if !errors.Is(err, domain.ErrRerankUnsupported) {
			t.Fatalf("call %d: err = %v, want ErrRerankUnsupported", i, err)
		}
	}
}

func TestRerankEmptyDocuments(t *testing.T) {
	scores, err := New("http://unused").Rerank(context.Background(), "m", "q", nil)
	if err != nil || scores != nil {
		t.Errorf("empty input should be a no-op, got %v, %v", scores, err)
	}
}
