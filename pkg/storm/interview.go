package storm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/mark3labs/flyt"
)

// Actions routed between interview nodes. The transition table in
// newInterviewFlow is the single place they are wired.
const (
	actionAskQuestion   flyt.Action = "ask_question"
	actionSaveInterview flyt.Action = "save_interview"
)

const searchQuerySchema = `Return the JSON object directly without any formatting or additional text. The JSON object should have the following structure as defined in the schema. Make sure to answer in valid json and include all necessary properties:{
  "type": "object",
  "properties": {
    "search_query": {
      "type": "string",
      "description": "Search query for retrieval"
    }
  },
  "required": ["search_query"]
}`

// interviewState is the per-session mutable record. It is owned by exactly
// one flow instance; nodes of that flow are its only writers.
type interviewState struct {
	analyst   Analyst
	turnLimit int

	transcript []Message
	context    []string

	interview string
	section   string
}

// expertTurns counts transcript messages tagged as expert answers.
func (st *interviewState) expertTurns() int {
	n := 0
	for _, m := range st.transcript {
		if m.Role == RoleAI && m.Name == ExpertName {
			n++
		}
	}
	return n
}

// routeAfterAnswer decides the transition out of the answer state: save once
// the turn limit is reached or once the most recent question contains the
// terminal phrase, otherwise ask again.
func routeAfterAnswer(st *interviewState) (flyt.Action, error) {
	if len(st.transcript) < 2 {
		return "", ErrMalformedTranscript
	}
	if st.expertTurns() >= st.turnLimit {
		return actionSaveInterview, nil
	}
	lastQuestion := st.transcript[len(st.transcript)-2]
	if strings.Contains(lastQuestion.Content, TerminalPhrase) {
		return actionSaveInterview, nil
	}
	return actionAskQuestion, nil
}

// askQuestionNode generates the analyst's next question.
type askQuestionNode struct {
	*flyt.BaseNode
	gen Generator
	st  *interviewState
}

func (n *askQuestionNode) Exec(ctx context.Context, prepResult any) (any, error) {
	messages := append([]Message{SystemMessage(questionPrompt(n.st.analyst.Persona()))}, n.st.transcript...)
	question, err := n.gen.Generate(ctx, messages)
	if err != nil {
		return nil, fmt.Errorf("ask question: %w", err)
	}
	return question, nil
}

func (n *askQuestionNode) Post(ctx context.Context, shared *flyt.SharedStore, prepResult, execResult any) (flyt.Action, error) {
	n.st.transcript = append(n.st.transcript, execResult.(Message))
	return flyt.DefaultAction, nil
}

// searchNode runs the web and arxiv searches concurrently. Each branch
// derives its own query from the transcript; both results must be available
// before the expert answers. Search faults arrive as in-band <Error> text,
// so only structured-generation errors can fail this node.
type searchNode struct {
	*flyt.BaseNode
	gen    Generator
	search Searcher
	st     *interviewState
}

func (n *searchNode) Exec(ctx context.Context, prepResult any) (any, error) {
	messages := append([]Message{SystemMessage(searchInstructions)}, n.st.transcript...)

	var (
		wg                 sync.WaitGroup
		webDocs, arxivDocs string
		webErr, arxivErr   error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		var q SearchQuery
		if err := n.gen.GenerateStructured(ctx, messages, searchQuerySchema, &q); err != nil {
			webErr = fmt.Errorf("web search query: %w", err)
			return
		}
		webDocs = n.search.SearchWeb(ctx, q.SearchQuery)
	}()
	go func() {
		defer wg.Done()
		var q SearchQuery
		if err := n.gen.GenerateStructured(ctx, messages, searchQuerySchema, &q); err != nil {
			arxivErr = fmt.Errorf("arxiv search query: %w", err)
			return
		}
		arxivDocs = n.search.SearchArxiv(ctx, q.SearchQuery)
	}()
	wg.Wait()

	if webErr != nil {
		return nil, webErr
	}
	if arxivErr != nil {
		return nil, arxivErr
	}
	return []string{webDocs, arxivDocs}, nil
}

func (n *searchNode) Post(ctx context.Context, shared *flyt.SharedStore, prepResult, execResult any) (flyt.Action, error) {
	n.st.context = append(n.st.context, execResult.([]string)...)
	return flyt.DefaultAction, nil
}

// answerNode generates the expert's answer from the accumulated context and
// decides whether the interview continues.
type answerNode struct {
	*flyt.BaseNode
	gen Generator
	st  *interviewState
}

func (n *answerNode) Exec(ctx context.Context, prepResult any) (any, error) {
	system := SystemMessage(answerPrompt(n.st.analyst.Persona(), strings.Join(n.st.context, "\n\n")))
	messages := append([]Message{system}, n.st.transcript...)
	answer, err := n.gen.Generate(ctx, messages)
	if err != nil {
		return nil, fmt.Errorf("answer question: %w", err)
	}
	answer.Name = ExpertName
	return answer, nil
}

func (n *answerNode) Post(ctx context.Context, shared *flyt.SharedStore, prepResult, execResult any) (flyt.Action, error) {
	n.st.transcript = append(n.st.transcript, execResult.(Message))
	return routeAfterAnswer(n.st)
}

// saveInterviewNode serializes the transcript. Deterministic, no generation.
type saveInterviewNode struct {
	*flyt.BaseNode
	st *interviewState
}

func (n *saveInterviewNode) Exec(ctx context.Context, prepResult any) (any, error) {
	return BufferString(n.st.transcript), nil
}

func (n *saveInterviewNode) Post(ctx context.Context, shared *flyt.SharedStore, prepResult, execResult any) (flyt.Action, error) {
	n.st.interview = execResult.(string)
	return flyt.DefaultAction, nil
}

// writeSectionNode derives the analyst's report section from the accumulated
// search context. Terminal: no outgoing transition.
type writeSectionNode struct {
	*flyt.BaseNode
	gen Generator
	st  *interviewState
}

func (n *writeSectionNode) Exec(ctx context.Context, prepResult any) (any, error) {
	messages := []Message{
		SystemMessage(sectionWriterPrompt(n.st.analyst.Description)),
		HumanMessage("Use this source to write your section: " + strings.Join(n.st.context, "\n\n")),
	}
	section, err := n.gen.Generate(ctx, messages)
	if err != nil {
		return nil, fmt.Errorf("write section: %w", err)
	}
	return section.Content, nil
}

func (n *writeSectionNode) Post(ctx context.Context, shared *flyt.SharedStore, prepResult, execResult any) (flyt.Action, error) {
	n.st.section = execResult.(string)
	return flyt.DefaultAction, nil
}

// newInterviewFlow wires the transition table for one interview session.
// Every session gets its own flow and state; nothing is shared across
// sessions.
func newInterviewFlow(gen Generator, search Searcher, st *interviewState) *flyt.Flow {
	ask := &askQuestionNode{BaseNode: flyt.NewBaseNode(), gen: gen, st: st}
	srch := &searchNode{BaseNode: flyt.NewBaseNode(), gen: gen, search: search, st: st}
	answer := &answerNode{BaseNode: flyt.NewBaseNode(), gen: gen, st: st}
	save := &saveInterviewNode{BaseNode: flyt.NewBaseNode(), st: st}
	section := &writeSectionNode{BaseNode: flyt.NewBaseNode(), gen: gen, st: st}

	flow := flyt.NewFlow(ask)
	flow.Connect(ask, flyt.DefaultAction, srch)
	flow.Connect(srch, flyt.DefaultAction, answer)
	flow.Connect(answer, actionAskQuestion, ask)
	flow.Connect(answer, actionSaveInterview, save)
	flow.Connect(save, flyt.DefaultAction, section)
	return flow
}

// InterviewResult carries the outputs of one completed session.
type InterviewResult struct {
	Analyst   Analyst
	Interview string
	Section   Section
}

// RunInterview drives one analyst's interview to completion, seeded with the
// opening question about the topic.
func RunInterview(ctx context.Context, gen Generator, search Searcher, analyst Analyst, topic string, turnLimit int, logger *slog.Logger) (*InterviewResult, error) {
	st := &interviewState{
		analyst:    analyst,
		turnLimit:  turnLimit,
		transcript: []Message{HumanMessage(fmt.Sprintf("So you said you were writing an article on %s?", topic))},
	}

	logger.Info("Starting interview", "analyst", analyst.Name, "role", analyst.Role, "turn_limit", turnLimit)

	flow := newInterviewFlow(gen, search, st)
	if err := flow.Run(ctx, flyt.NewSharedStore()); err != nil {
		return nil, fmt.Errorf("interview with %s: %w", analyst.Name, err)
	}

	logger.Info("Interview complete", "analyst", analyst.Name, "expert_turns", st.expertTurns(), "context_docs", len(st.context))

	return &InterviewResult{
		Analyst:   analyst,
		Interview: st.interview,
		Section:   Section{Analyst: analyst, Content: st.section},
	}, nil
}
