package retrieval

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// aggregate computes semantic and lexical score vectors for each phrasing in
// the expansion set and merges them per passage by element-wise maximum.
//
// Max, not average: a passage that strongly matches any one phrasing should
// not be penalized for mismatching the others. The merge is commutative, so
// scoring phrasings concurrently does not affect the result.
func (r *Retriever) aggregate(ctx context.Context, queries []string) (semantic, keyword []float64, err error) {
	vectors, err := r.embedder.EmbedBatch(ctx, queries)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: embedding %d phrasings: %v", ErrScoringUnavailable, len(queries), err)
	}
	if len(vectors) != len(queries) {
		return nil, nil, fmt.Errorf("%w: embedder returned %d vectors for %d phrasings", ErrScoringUnavailable, len(vectors), len(queries))
	}

	semPer := make([][]float64, len(queries))
	kwPer := make([][]float64, len(queries))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(scoreParallelism)
	for i := range queries {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			s, err := semanticScores(r.corpus, vectors[i])
			if err != nil {
				return err
			}
			semPer[i] = s
			kwPer[i] = r.lexicalScores(queries[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrScoringUnavailable, err)
	}

	n := r.corpus.Size()
	semantic = make([]float64, n)
	keyword = make([]float64, n)
	copy(semantic, semPer[0])
	copy(keyword, kwPer[0])
	for i := 1; i < len(queries); i++ {
		for p := 0; p < n; p++ {
			semantic[p] = max(semantic[p], semPer[i][p])
			keyword[p] = max(keyword[p], kwPer[i][p])
		}
	}

	return semantic, keyword, nil
}
