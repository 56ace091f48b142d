package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/openai"
	"golang.org/x/time/rate"

	"github.com/mikeboe/storm-research/pkg/storm"
)

const azureAPIVersion = "2024-12-01-preview"

// Client adapts a langchaingo model to the storm.Generator contract. All
// calls pass through a rate limiter so concurrent interviews stay within the
// provider's request budget.
type Client struct {
	model   llms.Model
	limiter *rate.Limiter
	logger  *slog.Logger
}

// New loads a chat model from a "provider/model-name" string. Supported
// providers: openai, anthropic, azure (Azure OpenAI, which requires the
// AZURE_OPENAI_ENDPOINT and AZURE_OPENAI_API_KEY environment variables).
// rpm caps requests per minute; rpm <= 0 disables the limiter.
func New(modelString string, rpm int) (*Client, error) {
	provider, modelName, err := parseModelString(modelString)
	if err != nil {
		return nil, err
	}

	var model llms.Model
	switch provider {
	case "openai":
		model, err = openai.New(openai.WithModel(modelName))
	case "anthropic":
		model, err = anthropic.New(anthropic.WithModel(modelName))
	case "azure":
		endpoint := os.Getenv("AZURE_OPENAI_ENDPOINT")
		apiKey := os.Getenv("AZURE_OPENAI_API_KEY")
		if endpoint == "" || apiKey == "" {
			return nil, fmt.Errorf("azure OpenAI requires the AZURE_OPENAI_ENDPOINT and AZURE_OPENAI_API_KEY environment variables")
		}
		model, err = openai.New(
			openai.WithAPIType(openai.APITypeAzure),
			openai.WithBaseURL(endpoint),
			openai.WithToken(apiKey),
			openai.WithModel(modelName),
			openai.WithAPIVersion(azureAPIVersion),
		)
	default:
		return nil, fmt.Errorf("unsupported provider: %s", provider)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to init %s model: %w", provider, err)
	}

	return NewWithModel(model, rpm), nil
}

// NewWithModel wraps an already-constructed langchaingo model.
func NewWithModel(model llms.Model, rpm int) *Client {
	limiter := rate.NewLimiter(rate.Inf, 1)
	if rpm > 0 {
		limiter = rate.NewLimiter(rate.Limit(float64(rpm)/60.0), 1)
	}
	return &Client{
		model:   model,
		limiter: limiter,
		logger:  slog.Default(),
	}
}

// parseModelString splits a "provider/model-name" string.
func parseModelString(s string) (provider, model string, err error) {
	provider, model, ok := strings.Cut(s, "/")
	if !ok || provider == "" || model == "" {
		return "", "", fmt.Errorf("model string must be in 'provider/model-name' format, got %q", s)
	}
	return provider, model, nil
}

// Generate runs one chat completion over the message history.
func (c *Client) Generate(ctx context.Context, messages []storm.Message) (storm.Message, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return storm.Message{}, fmt.Errorf("%w: %v", storm.ErrGeneration, err)
	}

	resp, err := c.model.GenerateContent(ctx, toContent(messages))
	if err != nil {
		return storm.Message{}, fmt.Errorf("%w: %v", storm.ErrGeneration, err)
	}
	if len(resp.Choices) == 0 {
		return storm.Message{}, fmt.Errorf("%w: model returned no choices", storm.ErrGeneration)
	}
	return storm.AIMessage(resp.Choices[0].Content), nil
}

// GenerateStructured runs a JSON-mode completion constrained by the given
// schema and decodes the result into out. The schema is appended to the
// system message; the output is validated by unmarshalling, with up to three
// attempts and linear backoff before the call is declared a schema violation.
func (c *Client) GenerateStructured(ctx context.Context, messages []storm.Message, schema string, out any) error {
	prompts := toContent(messages)
	if len(prompts) > 0 && len(messages) > 0 && messages[0].Role == storm.RoleSystem {
		prompts[0] = llms.TextParts(llms.ChatMessageTypeSystem, messages[0].Content+"\n\n# Response Format:\n\n"+schema)
	}

	const maxRetries = 3
	var lastErr error
	for i := 0; i < maxRetries; i++ {
		if i > 0 {
			c.logger.Warn("Retrying structured generation", "attempt", i+1, "last_error", lastErr)
			select {
			case <-time.After(time.Second * time.Duration(i)):
			case <-ctx.Done():
				return fmt.Errorf("%w: %v", storm.ErrGeneration, ctx.Err())
			}
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("%w: %v", storm.ErrGeneration, err)
		}

		resp, err := c.model.GenerateContent(ctx, prompts, llms.WithJSONMode())
		if err != nil {
			lastErr = fmt.Errorf("%w: %v", storm.ErrGeneration, err)
			continue
		}
		if len(resp.Choices) == 0 {
			lastErr = fmt.Errorf("%w: model returned no choices", storm.ErrGeneration)
			continue
		}

		if err := json.Unmarshal([]byte(cleanJSON(resp.Choices[0].Content)), out); err != nil {
			lastErr = fmt.Errorf("%w: %v", storm.ErrSchemaViolation, err)
			continue
		}
		return nil
	}
	return lastErr
}

// cleanJSON strips markdown code fences some models wrap around JSON output.
func cleanJSON(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func toContent(messages []storm.Message) []llms.MessageContent {
	content := make([]llms.MessageContent, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case storm.RoleSystem:
			content = append(content, llms.TextParts(llms.ChatMessageTypeSystem, m.Content))
		case storm.RoleHuman:
			content = append(content, llms.TextParts(llms.ChatMessageTypeHuman, m.Content))
		default:
			content = append(content, llms.TextParts(llms.ChatMessageTypeAI, m.Content))
		}
	}
	return content
}
