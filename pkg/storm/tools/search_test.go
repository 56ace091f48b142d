package tools

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTestSearchTools(tavilyURL string) *SearchTools {
	s := NewSearchTools("test-key", 3, 3, slog.New(slog.DiscardHandler))
	s.tavily.baseURL = tavilyURL
	return s
}

func TestSearchWebFormatsDocuments(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(TavilyResponse{Results: []TavilyResult{
			{URL: "https://a.example", Content: "alpha"},
			{URL: "https://b.example", Content: "beta"},
		}})
	}))
	defer server.Close()

	got := newTestSearchTools(server.URL).SearchWeb(context.Background(), "query")

	for _, part := range []string{
		"<Document href=\"https://a.example\"/>\nalpha\n</Document>",
		"<Document href=\"https://b.example\"/>\nbeta\n</Document>",
		"\n\n---\n\n",
	} {
		if !strings.Contains(got, part) {
			t.Errorf("SearchWeb() missing %q:\n%s", part, got)
		}
	}
}

func TestSearchWebNoResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(TavilyResponse{})
	}))
	defer server.Close()

	got := newTestSearchTools(server.URL).SearchWeb(context.Background(), "obscure query")
	if got != "No results found for query: obscure query" {
		t.Errorf("SearchWeb() = %q", got)
	}
}

func TestSearchWebSoftFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // force a transport error

	got := newTestSearchTools(server.URL).SearchWeb(context.Background(), "query")
	if !strings.HasPrefix(got, "<Error>Error occurred during web search: ") || !strings.HasSuffix(got, "</Error>") {
		t.Errorf("SearchWeb() = %q, want in-band <Error> marker", got)
	}
}
