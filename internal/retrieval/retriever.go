// Package retrieval implements the hybrid retrieval and re-ranking engine:
// lexical and semantic scoring over the full corpus, multi-phrasing score
// aggregation, weighted score fusion with bounded candidate selection, and
// an optional cross-encoder re-ranking pass.
//
// Every stage is a pure function over the shared read-only corpus and
// call-local score vectors, so concurrent Search calls need no locking.
package retrieval

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dmaier/corpusqa/internal/corpus"
	"github.com/dmaier/corpusqa/internal/embedder"
	"github.com/dmaier/corpusqa/internal/expander"
	"github.com/dmaier/corpusqa/internal/reranker"
)

var (
	// ErrInvalidRequest reports a non-positive top_k or a blank query. No
	// retrieval work is performed.
	ErrInvalidRequest = errors.New("invalid retrieval request")

	// ErrScoringUnavailable reports an embedder or cross-encoder failure
	// mid-call. The call fails as a whole; a silently degraded ranking would
	// be worse than an explicit error.
	ErrScoringUnavailable = errors.New("scoring unavailable")
)

const (
	// DefaultSemanticWeight and DefaultKeywordWeight are the default fusion
	// weights: 70% meaning, 30% exact terms.
	DefaultSemanticWeight = 0.7
	DefaultKeywordWeight  = 0.3

	// DefaultTopK is the default result count when the caller does not set one.
	DefaultTopK = 10

	// overFetchFactor sizes the candidate pool when re-ranking is enabled:
	// the cross-encoder sees top_k*3 candidates so it can promote passages
	// from below the top_k boundary without scanning the full corpus.
	overFetchFactor = 3

	// scoreParallelism bounds concurrent per-phrasing scoring.
	scoreParallelism = 4
)

// Candidate is a scored passage. RerankScore is nil until the re-ranking
// stage has run for the call that produced the candidate.
type Candidate struct {
	ID            int      `json:"id"`
	Text          string   `json:"text"`
	Source        string   `json:"source"`
	SemanticScore float64  `json:"semantic_score"`
	KeywordScore  float64  `json:"keyword_score"`
	RerankScore   *float64 `json:"rerank_score,omitempty"`
}

// Options controls a single Search call.
type Options struct {
	// TopK is the number of results to return. Must be positive; values
	// larger than the corpus simply return the whole corpus ranked.
	TopK int

	// UseExpansion enables multi-phrasing query expansion.
	UseExpansion bool

	// UseReranker enables the cross-encoder re-ranking pass.
	UseReranker bool
}

// Result is the outcome of one Search call: the ranked candidates and the
// expansion set that produced them.
type Result struct {
	Candidates      []Candidate
	ExpandedQueries []string
}

// Retriever runs the retrieval pipeline over a corpus loaded once at startup.
// All fields are set at construction and never mutated, so a single Retriever
// is safe for concurrent use.
type Retriever struct {
	corpus   *corpus.Corpus
	lowered  []string
	embedder embedder.Embedder
	scorer   reranker.CrossEncoder
	expander expander.Expander

	semanticWeight float64
	keywordWeight  float64
	logger         *slog.Logger
}

// Option is a functional option for configuring a Retriever.
type Option func(*Retriever)

// WithCrossEncoder wires the re-ranking scorer. Without one, Search silently
// skips the re-ranking stage even when requested.
func WithCrossEncoder(scorer reranker.CrossEncoder) Option {
	return func(r *Retriever) {
		r.scorer = scorer
	}
}

// WithExpander wires the query-expansion collaborator.
func WithExpander(exp expander.Expander) Option {
	return func(r *Retriever) {
		r.expander = exp
	}
}

// WithWeights overrides the fusion weights. The weights need not sum to 1.
func WithWeights(semantic, keyword float64) Option {
	return func(r *Retriever) {
		r.semanticWeight = semantic
		r.keywordWeight = keyword
	}
}

// WithLogger sets the logger for per-call diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Retriever) {
		r.logger = logger
	}
}

// New creates a Retriever over the given corpus and embedder. Passage text
// is lowercased once here so lexical scoring does not re-lowercase the whole
// corpus on every call.
func New(c *corpus.Corpus, embed embedder.Embedder, opts ...Option) *Retriever {
	lowered := make([]string, c.Size())
	for i := 0; i < c.Size(); i++ {
		lowered[i] = strings.ToLower(c.Passage(i).Text)
	}

	r := &Retriever{
		corpus:         c,
		lowered:        lowered,
		embedder:       embed,
		semanticWeight: DefaultSemanticWeight,
		keywordWeight:  DefaultKeywordWeight,
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Search runs the full pipeline: expand, score every phrasing, aggregate,
// fuse, select the candidate pool, optionally re-rank, truncate to TopK.
// The returned expansion set is the one actually used.
func (r *Retriever) Search(ctx context.Context, query string, opts Options) (*Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: query must not be empty", ErrInvalidRequest)
	}
	if opts.TopK <= 0 {
		return nil, fmt.Errorf("%w: top_k must be positive, got %d", ErrInvalidRequest, opts.TopK)
	}

	queries := []string{query}
	if opts.UseExpansion && r.expander != nil {
		queries = r.expander.Expand(ctx, query)
		if len(queries) == 0 || queries[0] != query {
			queries = append([]string{query}, queries...)
		}
	}

	semantic, keyword, err := r.aggregate(ctx, queries)
	if err != nil {
		return nil, err
	}

	useReranker := opts.UseReranker && r.scorer != nil
	pool := poolSize(opts.TopK, useReranker, r.corpus.Size())
	candidates := fuseAndSelect(r.corpus, semantic, keyword, r.semanticWeight, r.keywordWeight, pool)

	if useReranker {
		// Re-ranking always sees the original query; the expansion set only
		// exists to widen first-stage recall.
		candidates, err = rerank(ctx, r.scorer, query, candidates)
		if err != nil {
			return nil, err
		}
	}

	if len(candidates) > opts.TopK {
		candidates = candidates[:opts.TopK]
	}

	r.logger.Debug("search complete",
		"phrasings", len(queries),
		"pool", pool,
		"returned", len(candidates),
		"reranked", useReranker,
	)

	return &Result{Candidates: candidates, ExpandedQueries: queries}, nil
}

// Corpus returns the corpus this retriever serves.
func (r *Retriever) Corpus() *corpus.Corpus {
	return r.corpus
}
