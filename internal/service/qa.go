// Package service coordinates retrieval and answer generation behind the
// HTTP surface.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dmaier/corpusqa/internal/llm"
	"github.com/dmaier/corpusqa/internal/retrieval"
)

const defaultAnswerSystemPrompt = `You are an assistant answering questions about a fixed text corpus.
Answer questions ONLY using the provided context passages.
If the answer is not in the context, say "I couldn't find that in the provided passages."
Be specific and cite which passage supports your answer.`

// Answer is the outcome of a full question-answering call.
type Answer struct {
	Question        string
	Answer          string
	ExpandedQueries []string
	Sources         []retrieval.Candidate
}

// Health reports corpus diagnostics for the health endpoint.
type Health struct {
	Status       string `json:"status"`
	Passages     int    `json:"passages"`
	EmbeddingDim int    `json:"embedding_dim"`
}

// QAService answers questions over the loaded corpus: retrieve, then hand
// the ranked passages to the LLM for grounded generation.
type QAService struct {
	retriever    *retrieval.Retriever
	llmClient    llm.LLM
	model        string
	systemPrompt string
	logger       *slog.Logger
}

// QAOption is a functional option for configuring QAService.
type QAOption func(*QAService)

// WithAnswerModel sets the generation model.
func WithAnswerModel(model string) QAOption {
	return func(s *QAService) {
		s.model = model
	}
}

// WithSystemPrompt overrides the generation system prompt.
func WithSystemPrompt(prompt string) QAOption {
	return func(s *QAService) {
		s.systemPrompt = prompt
	}
}

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) QAOption {
	return func(s *QAService) {
		s.logger = logger
	}
}

// NewQAService creates a QAService over the given retriever and LLM client.
func NewQAService(retriever *retrieval.Retriever, llmClient llm.LLM, opts ...QAOption) *QAService {
	s := &QAService{
		retriever:    retriever,
		llmClient:    llmClient,
		systemPrompt: defaultAnswerSystemPrompt,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Retrieve runs the retrieval pipeline only, without answer generation.
func (s *QAService) Retrieve(ctx context.Context, question string, opts retrieval.Options) (*retrieval.Result, error) {
	searchID := uuid.NewString()
	start := time.Now()

	result, err := s.retriever.Search(ctx, question, opts)
	if err != nil {
		s.logger.Warn("retrieval failed",
			"search_id", searchID,
			"error", err,
		)
		return nil, err
	}

	s.logger.Info("retrieval complete",
		"search_id", searchID,
		"top_k", opts.TopK,
		"phrasings", len(result.ExpandedQueries),
		"returned", len(result.Candidates),
		"duration", time.Since(start),
	)
	return result, nil
}

// Ask runs the full pipeline: retrieve, then generate a grounded answer from
// the ranked passages. Retrieval errors fail the call; a generation failure
// degrades to a visible error string, because by then the sources are
// already worth returning.
func (s *QAService) Ask(ctx context.Context, question string, opts retrieval.Options) (*Answer, error) {
	result, err := s.Retrieve(ctx, question, opts)
	if err != nil {
		return nil, err
	}

	prompt := buildAnswerPrompt(question, result.Candidates)

	start := time.Now()
	answer, err := s.llmClient.Generate(ctx, prompt, llm.GenerateOptions{
		Model:        s.model,
		SystemPrompt: s.systemPrompt,
		Temperature:  0.3,
		MaxTokens:    1024,
	})
	if err != nil {
		s.logger.Error("answer generation failed", "error", err)
		answer = fmt.Sprintf("Answer generation failed: %v", err)
	}
	s.logger.Info("generation complete", "duration", time.Since(start))

	return &Answer{
		Question:        question,
		Answer:          answer,
		ExpandedQueries: result.ExpandedQueries,
		Sources:         result.Candidates,
	}, nil
}

// Health reports corpus size and embedding dimensionality.
func (s *QAService) Health() Health {
	c := s.retriever.Corpus()
	return Health{
		Status:       "ok",
		Passages:     c.Size(),
		EmbeddingDim: c.Dimension(),
	}
}

// buildAnswerPrompt lays the ranked passages out as numbered context blocks
// followed by the question, mirroring what the system prompt promises the
// model.
func buildAnswerPrompt(question string, passages []retrieval.Candidate) string {
	var sb strings.Builder

	sb.WriteString("Context passages:\n\n")
	for i, p := range passages {
		sb.WriteString(fmt.Sprintf("[Passage %d]", i+1))
		if p.Source != "" {
			sb.WriteString(fmt.Sprintf(" (Source: %s)", p.Source))
		}
		sb.WriteString("\n")
		sb.WriteString(p.Text)
		sb.WriteString("\n\n")
	}

	sb.WriteString("---\n\nQuestion: ")
	sb.WriteString(question)
	sb.WriteString("\n\nAnswer based ONLY on the passages above.")

	return sb.String()
}
