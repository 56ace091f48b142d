package tools

import (
	"encoding/xml"
	"strings"
	"testing"
)

const sampleFeed = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <entry>
    <id>http://arxiv.org/abs/2401.00001v1</id>
    <title> Attention Is Not All You Need </title>
    <summary>
      A study of alternatives.
    </summary>
    <published>2024-01-01T00:00:00Z</published>
    <author><name>A. Author</name></author>
    <author><name>B. Author</name></author>
  </entry>
</feed>`

func TestArxivFeedUnmarshal(t *testing.T) {
	var feed ArxivFeed
	if err := xml.Unmarshal([]byte(sampleFeed), &feed); err != nil {
		t.Fatalf("failed to unmarshal feed: %v", err)
	}
	if len(feed.Entry) != 1 {
		t.Fatalf("got %d entries, want 1", len(feed.Entry))
	}
	entry := feed.Entry[0]
	if strings.TrimSpace(entry.Title) != "Attention Is Not All You Need" {
		t.Errorf("title = %q", entry.Title)
	}
	if len(entry.Authors) != 2 {
		t.Errorf("got %d authors, want 2", len(entry.Authors))
	}
}

func TestFormatArxivFeed(t *testing.T) {
	tests := []struct {
		name  string
		feed  ArxivFeed
		parts []string
		exact string
	}{
		{
			name:  "Empty feed",
			feed:  ArxivFeed{},
			exact: "No results found for query: transformers",
		},
		{
			name: "Single entry with trimmed fields",
			feed: ArxivFeed{Entry: []ArxivEntry{{
				ID:        "http://arxiv.org/abs/2401.00001v1",
				Title:     " Attention Is Not All You Need ",
				Summary:   "\nA study of alternatives.\n",
				Published: "2024-01-01T00:00:00Z",
				Authors:   []ArxivAuthor{{Name: "A. Author"}, {Name: "B. Author"}},
			}}},
			parts: []string{
				`source="http://arxiv.org/abs/2401.00001v1"`,
				`date="2024-01-01T00:00:00Z"`,
				`authors="A. Author, B. Author"`,
				"<Title>\nAttention Is Not All You Need\n</Title>",
				"<Summary>\nA study of alternatives.\n</Summary>",
			},
		},
		{
			name: "Multiple entries joined with separator",
			feed: ArxivFeed{Entry: []ArxivEntry{
				{ID: "id1", Title: "One", Summary: "s1"},
				{ID: "id2", Title: "Two", Summary: "s2"},
			}},
			parts: []string{"\n\n---\n\n", "One", "Two"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := formatArxivFeed("transformers", tt.feed)
			if tt.exact != "" && got != tt.exact {
				t.Fatalf("formatArxivFeed() = %q, want %q", got, tt.exact)
			}
			for _, part := range tt.parts {
				if !strings.Contains(got, part) {
					t.Errorf("formatArxivFeed() missing %q:\n%s", part, got)
				}
			}
		})
	}
}
