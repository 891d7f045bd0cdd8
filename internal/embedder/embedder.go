// Package embedder provides interfaces and implementations for text embedding.
package embedder

import "context"

// Embedder defines the interface for text embedding services.
//
// Implementations must be deterministic for a given model version: the same
// text always embeds to the same vector. The retrieval pipeline relies on
// this for reproducible rankings, and the cached wrapper relies on it for
// correctness.
type Embedder interface {
	// Embed generates an embedding vector for a single text input.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embedding vectors for multiple text inputs.
	// Returns a slice of embeddings in the same order as the input texts.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension returns the dimensionality of the embedding vectors.
	Dimension() int

	// ModelName returns the name of the embedding model being used.
	ModelName() string
}

// KnownDimensions maps embedding model names to their vector dimensionality.
// The corpus matrix is built offline with one of these models; startup
// verifies that the stored matrix and the configured model agree.
var KnownDimensions = map[string]int{
	"all-minilm":        384,
	"nomic-embed-text":  768,
	"mxbai-embed-large": 1024,
	"snowflake-arctic-embed": 1024,
}

// DimensionFor returns the dimension for a known model, or fallback when the
// model is not in the table.
func DimensionFor(model string, fallback int) int {
	if d, ok := KnownDimensions[model]; ok {
		return d
	}
	return fallback
}
