// Package reranker provides cross-encoder scoring for retrieval candidates.
//
// A cross-encoder reads a (query, passage) pair jointly and scores its
// relevance, unlike cosine similarity which compares independently computed
// vectors. It is the most expensive step in the pipeline, which is why it
// only ever sees the bounded candidate pool, never the full corpus.
package reranker

import "context"

// Pair is a (query, passage text) input to the cross-encoder.
type Pair struct {
	Query string
	Text  string
}

// CrossEncoder scores query-passage pairs for relevance.
type CrossEncoder interface {
	// Predict returns one relevance score per pair, in input order, from a
	// single batched call. Scores are unbounded reals; only their ordering
	// matters to callers.
	Predict(ctx context.Context, pairs []Pair) ([]float64, error)

	// ModelName returns the model identifier for logging and diagnostics.
	ModelName() string
}
