package storm

import (
	"context"
	"log/slog"
	"sync"
)

// Coordinator fans one interview session out per analyst and joins on all of
// them before returning.
type Coordinator struct {
	gen    Generator
	search Searcher
	logger *slog.Logger
}

// NewCoordinator creates a fan-out coordinator over the given capabilities.
func NewCoordinator(gen Generator, search Searcher, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{gen: gen, search: search, logger: logger}
}

// Run launches all sessions concurrently and collects their sections in
// completion order. Callers must not rely on positional correspondence with
// the analyst list; each Section carries its analyst. A failed session
// produces no section and is reported in the returned failures instead;
// siblings are unaffected.
func (c *Coordinator) Run(ctx context.Context, topic string, analysts []Analyst, turnLimit int) ([]Section, []SessionFailure) {
	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		sections []Section
		failures []SessionFailure
	)

	for _, analyst := range analysts {
		wg.Add(1)
		go func(analyst Analyst) {
			defer wg.Done()

			result, err := RunInterview(ctx, c.gen, c.search, analyst, topic, turnLimit, c.logger)
			if err != nil {
				c.logger.Error("Interview failed", "analyst", analyst.Name, "error", err)
				mu.Lock()
				failures = append(failures, SessionFailure{Analyst: analyst, Err: err})
				mu.Unlock()
				return
			}

			mu.Lock()
			sections = append(sections, result.Section)
			mu.Unlock()
		}(analyst)
	}
	wg.Wait()

	c.logger.Info("Interviews joined", "sections", len(sections), "failures", len(failures))
	return sections, failures
}
