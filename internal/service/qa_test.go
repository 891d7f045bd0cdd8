package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/dmaier/corpusqa/internal/corpus"
	"github.com/dmaier/corpusqa/internal/llm"
	"github.com/dmaier/corpusqa/internal/retrieval"
)

type zeroEmbedder struct{ dim int }

func (z zeroEmbedder) Embed(context.Context, string) ([]float32, error) {
	return make([]float32, z.dim), nil
}

func (z zeroEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = make([]float32, z.dim)
	}
	return out, nil
}

func (z zeroEmbedder) Dimension() int    { return z.dim }
func (z zeroEmbedder) ModelName() string { return "zero" }

type scriptedLLM struct {
	response string
	err      error
	prompts  []string
}

func (s *scriptedLLM) Generate(_ context.Context, prompt string, _ llm.GenerateOptions) (string, error) {
	s.prompts = append(s.prompts, prompt)
	return s.response, s.err
}

func testRetriever(t *testing.T) *retrieval.Retriever {
	t.Helper()
	passages := []corpus.Passage{
		{ID: 0, Text: "Harry cast Expelliarmus", Source: "book-2"},
		{ID: 1, Text: "Dobby is a house-elf", Source: "book-2"},
		{ID: 2, Text: "Dumbledore likes lemon drops", Source: "book-1"},
	}
	matrix := [][]float32{make([]float32, 3), make([]float32, 3), make([]float32, 3)}
	c, err := corpus.New(passages, matrix)
	if err != nil {
		t.Fatalf("building corpus: %v", err)
	}
	return retrieval.New(c, zeroEmbedder{dim: 3})
}

func TestAsk(t *testing.T) {
	gen := &scriptedLLM{response: "Dobby is a house-elf."}
	s := NewQAService(testRetriever(t), gen)

	answer, err := s.Ask(context.Background(), "who is dobby", retrieval.Options{TopK: 2})
	if err != nil {
		t.Fatalf("Ask failed: %v", err)
	}

	if answer.Answer != "Dobby is a house-elf." {
		t.Errorf("unexpected answer %q", answer.Answer)
	}
	if len(answer.Sources) != 2 {
		t.Errorf("expected 2 sources, got %d", len(answer.Sources))
	}
	if answer.Sources[0].ID != 1 {
		t.Errorf("expected the Dobby passage first, got id %d", answer.Sources[0].ID)
	}

	if len(gen.prompts) != 1 {
		t.Fatalf("expected one generation call, got %d", len(gen.prompts))
	}
	prompt := gen.prompts[0]
	if !strings.Contains(prompt, "[Passage 1]") || !strings.Contains(prompt, "Dobby is a house-elf") {
		t.Errorf("prompt missing context passages:\n%s", prompt)
	}
	if !strings.Contains(prompt, "Question: who is dobby") {
		t.Errorf("prompt missing question:\n%s", prompt)
	}
}

func TestAsk_GenerationFailureIsVisibleNotFatal(t *testing.T) {
	gen := &scriptedLLM{err: errors.New("model not loaded")}
	s := NewQAService(testRetriever(t), gen)

	answer, err := s.Ask(context.Background(), "who is dobby", retrieval.Options{TopK: 1})
	if err != nil {
		t.Fatalf("Ask must not fail on generation errors: %v", err)
	}
	if !strings.Contains(answer.Answer, "Answer generation failed") {
		t.Errorf("expected a visible error string, got %q", answer.Answer)
	}
	if len(answer.Sources) != 1 {
		t.Errorf("sources must still be returned, got %d", len(answer.Sources))
	}
}

func TestAsk_RetrievalErrorIsFatal(t *testing.T) {
	gen := &scriptedLLM{response: "unused"}
	s := NewQAService(testRetriever(t), gen)

	_, err := s.Ask(context.Background(), "", retrieval.Options{TopK: 1})
	if !errors.Is(err, retrieval.ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
	if len(gen.prompts) != 0 {
		t.Errorf("generation must not run after a retrieval failure")
	}
}

func TestRetrieve(t *testing.T) {
	s := NewQAService(testRetriever(t), &scriptedLLM{})

	result, err := s.Retrieve(context.Background(), "expelliarmus", retrieval.Options{TopK: 1})
	if err != nil {
		t.Fatalf("Retrieve failed: %v", err)
	}
	if result.Candidates[0].ID != 0 {
		t.Errorf("expected the Expelliarmus passage, got id %d", result.Candidates[0].ID)
	}
}

func TestHealth(t *testing.T) {
	s := NewQAService(testRetriever(t), &scriptedLLM{})

	h := s.Health()
	if h.Status != "ok" || h.Passages != 3 || h.EmbeddingDim != 3 {
		t.Errorf("unexpected health report %+v", h)
	}
}
