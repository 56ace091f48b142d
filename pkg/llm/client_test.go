package llm

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/tmc/langchaingo/llms"

	"github.com/mikeboe/storm-research/pkg/storm"
)

// fakeModel scripts GenerateContent responses in order. Once the script is
// exhausted the last entry repeats.
type fakeModel struct {
	responses []string
	errs      []error
	calls     int
}

func (m *fakeModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	i := m.calls
	if i >= len(m.responses) {
		i = len(m.responses) - 1
	}
	m.calls++
	if i < len(m.errs) && m.errs[i] != nil {
		return nil, m.errs[i]
	}
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: m.responses[i]}},
	}, nil
}

func (m *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	resp, err := m.GenerateContent(ctx, []llms.MessageContent{llms.TextParts(llms.ChatMessageTypeHuman, prompt)})
	if err != nil {
		return "", err
	}
	return resp.Choices[0].Content, nil
}

func TestParseModelString(t *testing.T) {
	tests := []struct {
		name         string
		input        string
		wantProvider string
		wantModel    string
		wantErr      bool
	}{
		{"OpenAI", "openai/gpt-4o-mini", "openai", "gpt-4o-mini", false},
		{"Anthropic", "anthropic/claude-sonnet-4-20250514", "anthropic", "claude-sonnet-4-20250514", false},
		{"Azure", "azure/gpt-4o", "azure", "gpt-4o", false},
		{"Model name with slash", "openai/ft:gpt-4o/custom", "openai", "ft:gpt-4o/custom", false},
		{"Missing separator", "gpt-4o", "", "", true},
		{"Empty provider", "/gpt-4o", "", "", true},
		{"Empty model", "openai/", "", "", true},
		{"Empty string", "", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider, model, err := parseModelString(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseModelString(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if provider != tt.wantProvider || model != tt.wantModel {
				t.Errorf("parseModelString(%q) = (%q, %q), want (%q, %q)", tt.input, provider, model, tt.wantProvider, tt.wantModel)
			}
		})
	}
}

func TestNewUnsupportedProvider(t *testing.T) {
	if _, err := New("gemini/gemini-pro", 0); err == nil {
		t.Fatal("New() with unknown provider = nil error, want failure")
	}
}

func TestNewAzureRequiresEnv(t *testing.T) {
	t.Setenv("AZURE_OPENAI_ENDPOINT", "")
	t.Setenv("AZURE_OPENAI_API_KEY", "")
	if _, err := New("azure/gpt-4o", 0); err == nil {
		t.Fatal("New() without Azure env = nil error, want failure")
	}
}

func TestCleanJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"Plain JSON", `{"a": 1}`, `{"a": 1}`},
		{"JSON code fence", "```json\n{\"a\": 1}\n```", `{"a": 1}`},
		{"Bare code fence", "```\n{\"a\": 1}\n```", `{"a": 1}`},
		{"Surrounding whitespace", "  {\"a\": 1}\n", `{"a": 1}`},
		{"Fence with whitespace", "\n```json\n{\"a\": 1}\n```\n", `{"a": 1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cleanJSON(tt.input); got != tt.want {
				t.Errorf("cleanJSON(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestGenerate(t *testing.T) {
	model := &fakeModel{responses: []string{"hello back"}}
	client := NewWithModel(model, 0)

	msg, err := client.Generate(context.Background(), []storm.Message{storm.HumanMessage("hello")})
	if err != nil {
		t.Fatalf("Generate() unexpected error: %v", err)
	}
	if msg.Role != storm.RoleAI || msg.Content != "hello back" {
		t.Errorf("Generate() = %+v, want AI message %q", msg, "hello back")
	}
}

func TestGenerateProviderFault(t *testing.T) {
	model := &fakeModel{responses: []string{""}, errs: []error{fmt.Errorf("rate limited")}}
	client := NewWithModel(model, 0)

	_, err := client.Generate(context.Background(), []storm.Message{storm.HumanMessage("hello")})
	if !errors.Is(err, storm.ErrGeneration) {
		t.Errorf("Generate() error = %v, want ErrGeneration", err)
	}
}

func TestGenerateStructuredRetriesOnBadJSON(t *testing.T) {
	model := &fakeModel{responses: []string{"not json at all", `{"search_query": "ok"}`}}
	client := NewWithModel(model, 0)

	var out storm.SearchQuery
	err := client.GenerateStructured(context.Background(),
		[]storm.Message{storm.SystemMessage("find a query")}, `{"type": "object"}`, &out)
	if err != nil {
		t.Fatalf("GenerateStructured() unexpected error: %v", err)
	}
	if out.SearchQuery != "ok" {
		t.Errorf("decoded search_query = %q, want %q", out.SearchQuery, "ok")
	}
	if model.calls != 2 {
		t.Errorf("model called %d times, want 2", model.calls)
	}
}

func TestGenerateStructuredSchemaViolation(t *testing.T) {
	model := &fakeModel{responses: []string{"still not json"}}
	client := NewWithModel(model, 0)

	var out storm.SearchQuery
	err := client.GenerateStructured(context.Background(),
		[]storm.Message{storm.SystemMessage("find a query")}, `{"type": "object"}`, &out)
	if !errors.Is(err, storm.ErrSchemaViolation) {
		t.Fatalf("GenerateStructured() error = %v, want ErrSchemaViolation", err)
	}
	if model.calls != 3 {
		t.Errorf("model called %d times, want 3", model.calls)
	}
}

func TestGenerateStructuredStripsFences(t *testing.T) {
	model := &fakeModel{responses: []string{"```json\n{\"search_query\": \"fenced\"}\n```"}}
	client := NewWithModel(model, 0)

	var out storm.SearchQuery
	if err := client.GenerateStructured(context.Background(),
		[]storm.Message{storm.SystemMessage("find a query")}, `{"type": "object"}`, &out); err != nil {
		t.Fatalf("GenerateStructured() unexpected error: %v", err)
	}
	if out.SearchQuery != "fenced" {
		t.Errorf("decoded search_query = %q, want %q", out.SearchQuery, "fenced")
	}
}
