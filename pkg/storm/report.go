package storm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
)

// sourcesDelimiter is the exact standalone-line delimiter separating the
// report body from its consolidated source list.
const sourcesDelimiter = "\n## Sources\n"

// Assembler turns the collected sections into the final report. The three
// generation calls (body, introduction, conclusion) run concurrently over the
// same formatted section input; any failure aborts the assembly, no partial
// report is produced.
type Assembler struct {
	gen    Generator
	logger *slog.Logger
}

// NewAssembler creates a report assembler over the given generator.
func NewAssembler(gen Generator, logger *slog.Logger) *Assembler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Assembler{gen: gen, logger: logger}
}

// Assemble produces the final report for the topic from the per-analyst
// sections.
func (a *Assembler) Assemble(ctx context.Context, topic string, sections []Section) (string, error) {
	contents := make([]string, len(sections))
	for i, s := range sections {
		contents[i] = s.Content
	}
	formatted := strings.Join(contents, "\n\n")

	var (
		wg                        sync.WaitGroup
		body, intro, conclusion   string
		bodyErr, introErr, conErr error
	)

	wg.Add(3)
	go func() {
		defer wg.Done()
		body, bodyErr = a.generate(ctx,
			reportWriterPrompt(topic, formatted),
			"Write a report based upon these memos.")
		if bodyErr != nil {
			bodyErr = fmt.Errorf("report body: %w", bodyErr)
		}
	}()
	go func() {
		defer wg.Done()
		intro, introErr = a.generate(ctx,
			introConclusionPrompt(topic, formatted),
			"Write the report introduction")
		if introErr != nil {
			introErr = fmt.Errorf("report introduction: %w", introErr)
		}
	}()
	go func() {
		defer wg.Done()
		conclusion, conErr = a.generate(ctx,
			introConclusionPrompt(topic, formatted),
			"Write the report conclusion")
		if conErr != nil {
			conErr = fmt.Errorf("report conclusion: %w", conErr)
		}
	}()
	wg.Wait()

	for _, err := range []error{bodyErr, introErr, conErr} {
		if err != nil {
			return "", err
		}
	}

	a.logger.Info("Report parts generated", "body_len", len(body), "intro_len", len(intro), "conclusion_len", len(conclusion))
	return mergeReport(intro, body, conclusion), nil
}

func (a *Assembler) generate(ctx context.Context, system, human string) (string, error) {
	msg, err := a.gen.Generate(ctx, []Message{SystemMessage(system), HumanMessage(human)})
	if err != nil {
		return "", err
	}
	return msg.Content, nil
}

// mergeReport assembles the final document. Pure and deterministic.
//
// When the body starts with the "## Insights" heading, the heading is removed
// with a character-set trim of both ends, not a prefix strip. That reproduces
// the behavior this merge has always had; changing it would alter bodies that
// begin or end with any of the characters in the heading.
func mergeReport(introduction, body, conclusion string) string {
	if strings.HasPrefix(body, "## Insights") {
		body = strings.Trim(body, "## Insights")
	}

	var sources string
	hasSources := false
	if strings.Contains(body, "## Sources") {
		// Only an exact two-way split on the standalone delimiter counts;
		// anything else leaves the body untouched and drops the source list.
		parts := strings.Split(body, sourcesDelimiter)
		if len(parts) == 2 {
			body, sources = parts[0], parts[1]
			hasSources = true
		}
	}

	report := introduction + "\n\n---\n\n## Main Idea\n\n" + body + "\n\n---\n\n" + conclusion
	if hasSources {
		report += "\n\n## Sources\n" + sources
	}
	return report
}
