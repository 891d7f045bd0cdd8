package retrieval

import (
	"context"
	"fmt"
	"sort"

	"github.com/dmaier/corpusqa/internal/reranker"
)

// rerank scores every pool candidate against the query with one batched
// cross-encoder call, attaches the scores, and stably re-sorts the pool by
// them. Stability means equal rerank scores keep their fused-score order.
// The pool membership never changes here, only the ordering.
func rerank(ctx context.Context, scorer reranker.CrossEncoder, query string, pool []Candidate) ([]Candidate, error) {
	if len(pool) == 0 {
		return pool, nil
	}

	pairs := make([]reranker.Pair, len(pool))
	for i, c := range pool {
		pairs[i] = reranker.Pair{Query: query, Text: c.Text}
	}

	scores, err := scorer.Predict(ctx, pairs)
	if err != nil {
		return nil, fmt.Errorf("%w: cross-encoder: %v", ErrScoringUnavailable, err)
	}
	if len(scores) != len(pool) {
		return nil, fmt.Errorf("%w: cross-encoder returned %d scores for %d candidates", ErrScoringUnavailable, len(scores), len(pool))
	}

	for i := range pool {
		score := scores[i]
		pool[i].RerankScore = &score
	}

	sort.SliceStable(pool, func(i, j int) bool {
		return *pool[i].RerankScore > *pool[j].RerankScore
	})

	return pool, nil
}
