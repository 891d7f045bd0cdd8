// Package expander generates alternative phrasings of a question to widen
// first-stage retrieval recall.
package expander

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dmaier/corpusqa/internal/llm"
)

// Expander produces a query expansion set for a question.
//
// The returned set always starts with the original query. Implementations
// must degrade to [query] instead of failing: expansion is a recall
// optimization, never a correctness requirement, so a broken expansion
// backend must not fail the search call.
type Expander interface {
	Expand(ctx context.Context, query string) []string
}

const (
	// DefaultPhrasings is how many alternative phrasings to request.
	DefaultPhrasings = 3

	// DefaultMaxSet caps the expansion set length, original included.
	DefaultMaxSet = 4
)

const expansionSystemPrompt = `Generate %d alternative phrasings of the user's question
for searching through a fixed text corpus. Think about how the information
would actually be written in the source text. Return ONLY the %d phrasings,
one per line, no numbering or extra text.`

// LLMExpander asks an LLM for alternative phrasings of a question.
type LLMExpander struct {
	llmClient llm.LLM
	model     string
	phrasings int
	maxSet    int
	logger    *slog.Logger
}

// LLMExpanderOption is a functional option for configuring LLMExpander.
type LLMExpanderOption func(*LLMExpander)

// WithModel sets the model used for expansion.
func WithModel(model string) LLMExpanderOption {
	return func(e *LLMExpander) {
		e.model = model
	}
}

// WithPhrasings sets how many alternative phrasings to request.
func WithPhrasings(n int) LLMExpanderOption {
	return func(e *LLMExpander) {
		if n > 0 {
			e.phrasings = n
		}
	}
}

// WithLogger sets the logger used for degradation warnings.
func WithLogger(logger *slog.Logger) LLMExpanderOption {
	return func(e *LLMExpander) {
		e.logger = logger
	}
}

// NewLLMExpander creates an LLM-backed query expander.
func NewLLMExpander(llmClient llm.LLM, opts ...LLMExpanderOption) *LLMExpander {
	e := &LLMExpander{
		llmClient: llmClient,
		phrasings: DefaultPhrasings,
		maxSet:    DefaultMaxSet,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Expand returns the expansion set for query. On any backend failure it
// returns [query] and logs a warning.
func (e *LLMExpander) Expand(ctx context.Context, query string) []string {
	system := fmt.Sprintf(expansionSystemPrompt, e.phrasings, e.phrasings)

	response, err := e.llmClient.Generate(ctx, query, llm.GenerateOptions{
		Model:        e.model,
		SystemPrompt: system,
		Temperature:  0.7,
		MaxTokens:    256,
	})
	if err != nil {
		e.logger.Warn("query expansion unavailable, searching with original query only",
			"error", err)
		return []string{query}
	}

	set := []string{query}
	seen := map[string]struct{}{query: {}}
	for _, line := range strings.Split(response, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if _, dup := seen[line]; dup {
			continue
		}
		seen[line] = struct{}{}
		set = append(set, line)
		if len(set) == e.maxSet {
			break
		}
	}

	return set
}

// Ensure LLMExpander implements Expander interface.
var _ Expander = (*LLMExpander)(nil)
