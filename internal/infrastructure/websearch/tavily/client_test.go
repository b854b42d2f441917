package tavily

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kirillkom/docqa/internal/core/domain"
	"github.com/kirillkom/docqa/internal/infrastructure/resilience"
)

func TestSearchParsesResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search" {
			http.NotFound(w, r)
			return
		}
		var req map[string]any
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req["api_key"] != "key" {
			t.Errorf("expected api_key in body, got %v", req["api_key"])
		}
		if max, ok := req["max_results"].(float64); !ok || int(max) != 2 {
			t.Errorf("expected max_results 2, got %v", req["max_results"])
		}
		resp := map[string]any{
			"results": []map[string]any{
				{"title": "Go docs", "url": "https://go.dev", "content": "Go is a language", "score": 0.9},
				{"title": "Empty", "url": "https://x.test", "content": "", "score": 0.1},
			},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := New("key", WithBaseURL(server.URL))
	passages, err := client.Search(context.Background(), "what is go")
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(passages) != 1 {
		t.Fatalf("expected 1 passage after dropping empty content, got %d", len(passages))
	}
	if passages[0].Title != "Go docs" || passages[0].URL != "https://go.dev" {
		t.Fatalf("unexpected passage: %+v", passages[0])
	}
}

func TestSearchMissingKeyIsConfiguration(t *testing.T) {
	client := New("  ")
	_, err := client.Search(context.Background(), "q")
	if err == nil {
		t.Fatalf("expected error")
	}
	if !domain.IsKind(err, domain.ErrConfiguration) {
		t.Fatalf("expected configuration kind, got %v", err)
	}
}

func TestSearchRejectedKeyIsUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "invalid key", http.StatusUnauthorized)
	}))
	defer server.Close()

	client := New("bad-key", WithBaseURL(server.URL))
	_, err := client.Search(context.Background(), "q")
	if !domain.IsKind(err, domain.ErrUnavailable) {
		t.Fatalf("expected unavailable kind, got %v", err)
	}
	if domain.IsKind(err, domain.ErrConfiguration) {
		t.Fatalf("a rejected key must not abort the session as configuration, got %v", err)
	}
}

func TestSearchServerErrorIsUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "overloaded", http.StatusBadGateway)
	}))
	defer server.Close()

	client := New("key", WithBaseURL(server.URL))
	_, err := client.Search(context.Background(), "q")
	if !domain.IsKind(err, domain.ErrUnavailable) {
		t.Fatalf("expected unavailable kind, got %v", err)
	}
}

func TestStripHTML(t *testing.T) {
	cases := map[string]string{
		"plain snippet":                      "plain snippet",
		"<p>hello <b>world</b></p>":          "hello world",
		"  spaced   <i>out</i>\n\ttext  ":    "spaced out text",
		"<div><span></span></div>":           "",
		"a &lt; b stays when no tags around": "a &lt; b stays when no tags around",
	}
	for input, want := range cases {
		if got := stripHTML(input); got != want {
			t.Fatalf("stripHTML(%q) = %q, want %q", input, got, want)
		}
	}
}

func fastExecutor() *resilience.Executor {
	return resilience.NewExecutor(resilience.Config{
		RetryMaxAttempts:    3,
		RetryInitialBackoff: time.Millisecond,
		RetryMaxBackoff:     time.Millisecond,
		RetryMultiplier:     1.0,
		BreakerEnabled:      false,
	})
}

func TestSearchRetriesTransientServerError(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		if calls == 1 {
			http.Error(w, "overloaded", http.StatusBadGateway)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"results": []map[string]any{
				{"title": "t", "url": "https://x.test", "content": "c", "score": 0.5},
			},
		})
	}))
	defer server.Close()

	client := New("key", WithBaseURL(server.URL), WithExecutor(fastExecutor()))
	passages, err := client.Search(context.Background(), "q")
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(passages) != 1 {
		t.Fatalf("expected 1 passage, got %d", len(passages))
	}
	if calls != 2 {
		t.Fatalf("expected a retry after the transient failure, got %d calls", calls)
	}
}

func TestSearchDoesNotRetryRejectedKey(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		http.Error(w, "invalid key", http.StatusUnauthorized)
	}))
	defer server.Close()

	client := New("bad-key", WithBaseURL(server.URL), WithExecutor(fastExecutor()))
	_, err := client.Search(context.Background(), "q")
	if !domain.IsKind(err, domain.ErrUnavailable) {
		t.Fatalf("expected unavailable kind, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("a rejected key is not transient, expected 1 call, got %d", calls)
	}
}
