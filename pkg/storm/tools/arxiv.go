package tools

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

const arxivBaseURL = "https://export.arxiv.org/api/query?"

// ArxivEntry holds one entry of the arXiv Atom feed.
type ArxivEntry struct {
	ID        string        `xml:"id"`
	Title     string        `xml:"title"`
	Summary   string        `xml:"summary"`
	Published string        `xml:"published"`
	Authors   []ArxivAuthor `xml:"author"`
}

// ArxivAuthor holds one author of an arXiv entry.
type ArxivAuthor struct {
	Name string `xml:"name"`
}

// ArxivFeed holds the entire arXiv Atom feed.
type ArxivFeed struct {
	XMLName xml.Name     `xml:"feed"`
	Entry   []ArxivEntry `xml:"entry"`
}

// SearchArxiv queries the arXiv API and returns the matching papers as a
// formatted document blob.
func SearchArxiv(ctx context.Context, query string, maxDocs int) (string, error) {
	if maxDocs <= 0 {
		maxDocs = 5
	}

	params := url.Values{}
	params.Add("search_query", query)
	params.Add("max_results", strconv.Itoa(maxDocs))
	params.Add("start", "0")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, arxivBaseURL+params.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("failed to create API request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to make API request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("API returned non-200 status code: %d, body: %s", resp.StatusCode, string(body))
	}

	var feed ArxivFeed
	if err := xml.Unmarshal(body, &feed); err != nil {
		return "", fmt.Errorf("failed to unmarshal XML: %w", err)
	}

	return formatArxivFeed(query, feed), nil
}

// formatArxivFeed renders feed entries as <Document> blobs so the expert can
// cite each paper by its source attribute.
func formatArxivFeed(query string, feed ArxivFeed) string {
	if len(feed.Entry) == 0 {
		return "No results found for query: " + query
	}

	docs := make([]string, 0, len(feed.Entry))
	for _, entry := range feed.Entry {
		names := make([]string, 0, len(entry.Authors))
		for _, a := range entry.Authors {
			names = append(names, a.Name)
		}
		docs = append(docs, fmt.Sprintf(
			"<Document source=%q date=%q authors=%q/>\n<Title>\n%s\n</Title>\n\n<Summary>\n%s\n</Summary>\n</Document>",
			strings.TrimSpace(entry.ID),
			strings.TrimSpace(entry.Published),
			strings.Join(names, ", "),
			strings.TrimSpace(entry.Title),
			strings.TrimSpace(entry.Summary),
		))
	}
	return strings.Join(docs, "\n\n---\n\n")
}
