package storm

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// TerminalPhrase is the sign-off an analyst emits once it is satisfied with
// the interview. The routing check looks for it in the most recent question.
const TerminalPhrase = "Thank you so much for your help!"

// ExpertName tags assistant messages produced by the simulated expert,
// distinguishing them from the analyst's own questions in the same transcript.
const ExpertName = "expert"

var (
	// ErrGeneration indicates the text-generation capability failed.
	ErrGeneration = errors.New("generation failed")
	// ErrSchemaViolation indicates structured generation returned a value
	// that does not conform to the requested schema.
	ErrSchemaViolation = errors.New("structured output violates schema")
	// ErrMalformedTranscript indicates the routing check ran on a transcript
	// too short to contain a question/answer pair. This is a state machine
	// bug and should never occur in correct operation.
	ErrMalformedTranscript = errors.New("malformed transcript: routing check needs at least a question and an answer")
)

// Role identifies the author of a transcript message.
type Role string

const (
	RoleSystem Role = "system"
	RoleHuman  Role = "human"
	RoleAI     Role = "ai"
)

// Message is a single entry in an interview transcript. Name is only set on
// AI messages, to mark the simulated expert's answers.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
	Name    string `json:"name,omitempty"`
}

// SystemMessage builds a system-role message.
func SystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// HumanMessage builds a human-role message.
func HumanMessage(content string) Message {
	return Message{Role: RoleHuman, Content: content}
}

// AIMessage builds an assistant-role message.
func AIMessage(content string) Message {
	return Message{Role: RoleAI, Content: content}
}

// BufferString renders a transcript as human-readable text, one message per
// line in "<role>: <content>" form.
func BufferString(transcript []Message) string {
	var sb strings.Builder
	for i, m := range transcript {
		if i > 0 {
			sb.WriteString("\n")
		}
		switch m.Role {
		case RoleSystem:
			sb.WriteString("System: ")
		case RoleHuman:
			sb.WriteString("Human: ")
		case RoleAI:
			sb.WriteString("AI: ")
		default:
			sb.WriteString(string(m.Role) + ": ")
		}
		sb.WriteString(m.Content)
	}
	return sb.String()
}

// Analyst is a generated persona driving one interview's questioning angle.
// Immutable once generated.
type Analyst struct {
	Affiliation string `json:"affiliation"`
	Name        string `json:"name"`
	Role        string `json:"role"`
	Description string `json:"description"`
}

// Persona returns the formatted persona block consumed by every prompt
// addressed to this analyst.
func (a Analyst) Persona() string {
	return fmt.Sprintf("Name: %s\nRole: %s\nAffiliation: %s\nDescription: %s\n",
		a.Name, a.Role, a.Affiliation, a.Description)
}

// Perspectives is the structured-generation result holding a set of analysts.
type Perspectives struct {
	Analysts []Analyst `json:"analysts"`
}

// SearchQuery is the structured-generation result for one search turn.
type SearchQuery struct {
	SearchQuery string `json:"search_query"`
}

// Section is one analyst's report fragment, tagged with the analyst that
// produced it because aggregation runs in completion order.
type Section struct {
	Analyst Analyst `json:"analyst"`
	Content string  `json:"content"`
}

// SessionFailure records a failed interview session. Failures are surfaced as
// diagnostics; they never abort sibling sessions.
type SessionFailure struct {
	Analyst Analyst
	Err     error
}

// Generator is the text-generation capability consumed by the orchestration
// engine. GenerateStructured decodes the model output into out according to
// the JSON schema; it fails with ErrSchemaViolation when the output cannot be
// made to conform, and with ErrGeneration on provider faults. Retry and
// backoff, if any, belong to the implementation, not to the callers here.
type Generator interface {
	Generate(ctx context.Context, messages []Message) (Message, error)
	GenerateStructured(ctx context.Context, messages []Message, schema string, out any) error
}

// Searcher is the search capability. Both methods follow a soft-failure
// contract: they never fail, on an internal fault the returned text is an
// <Error>...</Error> marker the session appends to context like any result.
type Searcher interface {
	SearchWeb(ctx context.Context, query string) string
	SearchArxiv(ctx context.Context, query string) string
}
