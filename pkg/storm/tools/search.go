package tools

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// SearchTools bundles the web and academic search backends behind the
// soft-failure contract: both methods always return text, wrapping any
// internal fault in an <Error> marker instead of failing. A failed search
// degrades answer quality; it never aborts an interview.
type SearchTools struct {
	tavily        *TavilyClient
	webMaxResults int
	arxivMaxDocs  int
	logger        *slog.Logger
}

// NewSearchTools creates the search capability. tavilyAPIKey may be empty, in
// which case web searches report an in-band error.
func NewSearchTools(tavilyAPIKey string, webMaxResults, arxivMaxDocs int, logger *slog.Logger) *SearchTools {
	if logger == nil {
		logger = slog.Default()
	}
	return &SearchTools{
		tavily:        NewTavilyClient(tavilyAPIKey),
		webMaxResults: webMaxResults,
		arxivMaxDocs:  arxivMaxDocs,
		logger:        logger,
	}
}

// SearchWeb searches the web via Tavily and formats the hits as document
// blobs.
func (s *SearchTools) SearchWeb(ctx context.Context, query string) string {
	resp, err := s.tavily.Search(ctx, TavilyRequest{
		Query:      query,
		MaxResults: s.webMaxResults,
	})
	if err != nil {
		s.logger.Error("Web search failed", "query", query, "error", err)
		return fmt.Sprintf("<Error>Error occurred during web search: %v</Error>", err)
	}

	docs := make([]string, 0, len(resp.Results))
	for _, r := range resp.Results {
		docs = append(docs, fmt.Sprintf("<Document href=%q/>\n%s\n</Document>", r.URL, r.Content))
	}
	if len(docs) == 0 {
		return "No results found for query: " + query
	}
	return strings.Join(docs, "\n\n---\n\n")
}

// SearchArxiv searches arXiv for academic papers.
func (s *SearchTools) SearchArxiv(ctx context.Context, query string) string {
	result, err := SearchArxiv(ctx, query, s.arxivMaxDocs)
	if err != nil {
		s.logger.Error("ArXiv search failed", "query", query, "error", err)
		return fmt.Sprintf("<Error>Error occurred during ArXiv search: %v</Error>", err)
	}
	return result
}
