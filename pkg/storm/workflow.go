package storm

import (
	"context"
	"fmt"
	"log/slog"
)

const perspectivesSchema = `Return the JSON object directly without any formatting or additional text. The JSON object should have the following structure as defined in the schema. Make sure to answer in valid json and include all necessary properties:{
  "type": "object",
  "properties": {
    "analysts": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "affiliation": {"type": "string", "description": "Primary affiliation of the analyst"},
          "name": {"type": "string", "description": "Name of the analyst"},
          "role": {"type": "string", "description": "Role of the analyst in the context of the topic"},
          "description": {"type": "string", "description": "Description of the analyst focus, concerns, and motives"}
        },
        "required": ["affiliation", "name", "role", "description"]
      },
      "description": "Comprehensive list of analysts with their roles and affiliations"
    }
  },
  "required": ["analysts"]
}`

const (
	minPanelSize = 1
	maxPanelSize = 10
	minTurns     = 1
	maxTurns     = 10

	defaultPanelSize = 3
	defaultTurns     = 3
)

// Options configures one research run. Zero values fall back to the
// documented defaults; out-of-range values are clamped into [1,10].
type Options struct {
	Topic       string
	MaxAnalysts int
	TurnLimit   int
}

func (o Options) normalized() Options {
	if o.MaxAnalysts == 0 {
		o.MaxAnalysts = defaultPanelSize
	}
	if o.TurnLimit == 0 {
		o.TurnLimit = defaultTurns
	}
	o.MaxAnalysts = clamp(o.MaxAnalysts, minPanelSize, maxPanelSize)
	o.TurnLimit = clamp(o.TurnLimit, minTurns, maxTurns)
	return o
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Result is the outcome of one research run.
type Result struct {
	Report   string
	Analysts []Analyst
	Sections []Section
	Failures []SessionFailure
}

// Workflow sequences persona generation, the interview fan-out and the report
// assembly. Construct one per run, or once and reuse; it holds no per-run
// state.
type Workflow struct {
	gen         Generator
	coordinator *Coordinator
	assembler   *Assembler
	logger      *slog.Logger
}

// NewWorkflow builds the research workflow over the two external
// capabilities.
func NewWorkflow(gen Generator, search Searcher, logger *slog.Logger) *Workflow {
	if logger == nil {
		logger = slog.Default()
	}
	return &Workflow{
		gen:         gen,
		coordinator: NewCoordinator(gen, search, logger),
		assembler:   NewAssembler(gen, logger),
		logger:      logger,
	}
}

// Run executes a full research run: generate the analyst panel, interview all
// analysts concurrently, assemble the report. Individual interview failures
// only drop their section; a failure in persona generation or assembly fails
// the whole run.
func (w *Workflow) Run(ctx context.Context, opts Options) (*Result, error) {
	opts = opts.normalized()
	if opts.Topic == "" {
		return nil, fmt.Errorf("research run: topic is required")
	}

	w.logger.Info("Starting research run", "topic", opts.Topic, "max_analysts", opts.MaxAnalysts, "turn_limit", opts.TurnLimit)

	analysts, err := w.generateAnalysts(ctx, opts.Topic, opts.MaxAnalysts)
	if err != nil {
		return nil, fmt.Errorf("analyst generation: %w", err)
	}

	sections, failures := w.coordinator.Run(ctx, opts.Topic, analysts, opts.TurnLimit)
	if len(sections) == 0 {
		return nil, fmt.Errorf("all %d interviews failed", len(analysts))
	}

	report, err := w.assembler.Assemble(ctx, opts.Topic, sections)
	if err != nil {
		return nil, fmt.Errorf("report assembly: %w", err)
	}

	w.logger.Info("Research run complete", "analysts", len(analysts), "sections", len(sections), "report_len", len(report))

	return &Result{
		Report:   report,
		Analysts: analysts,
		Sections: sections,
		Failures: failures,
	}, nil
}

func (w *Workflow) generateAnalysts(ctx context.Context, topic string, maxAnalysts int) ([]Analyst, error) {
	messages := []Message{
		SystemMessage(analystPrompt(topic, maxAnalysts)),
		HumanMessage("Generate the set of analysts."),
	}

	var perspectives Perspectives
	if err := w.gen.GenerateStructured(ctx, messages, perspectivesSchema, &perspectives); err != nil {
		return nil, err
	}
	if len(perspectives.Analysts) == 0 {
		return nil, fmt.Errorf("%w: empty analyst list", ErrSchemaViolation)
	}
	if len(perspectives.Analysts) > maxAnalysts {
		perspectives.Analysts = perspectives.Analysts[:maxAnalysts]
	}
	return perspectives.Analysts, nil
}
