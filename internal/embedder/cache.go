package embedder

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize bounds the number of cached query vectors.
const DefaultCacheSize = 512

// Cached wraps an Embedder with an LRU cache keyed by the input text.
// Embeddings are deterministic per model version, so a cache hit is always
// safe. This mainly helps repeated questions and the original-query entry of
// every expansion set.
type Cached struct {
	inner Embedder
	cache *lru.Cache[string, []float32]
}

// NewCached creates a caching wrapper around inner. Size <= 0 uses
// DefaultCacheSize.
func NewCached(inner Embedder, size int) (*Cached, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New[string, []float32](size)
	if err != nil {
		return nil, err
	}
	return &Cached{inner: inner, cache: cache}, nil
}

// Embed returns the cached vector for text, or delegates to the wrapped
// embedder and caches the result.
func (c *Cached) Embed(ctx context.Context, text string) ([]float32, error) {
	if vector, ok := c.cache.Get(text); ok {
		return vector, nil
	}
	vector, err := c.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	c.cache.Add(text, vector)
	return vector, nil
}

// EmbedBatch serves what it can from the cache and forwards only the misses
// to the wrapped embedder in a single batch call.
func (c *Cached) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	results := make([][]float32, len(texts))

	var missTexts []string
	var missIdx []int
	for i, text := range texts {
		if vector, ok := c.cache.Get(text); ok {
			results[i] = vector
			continue
		}
		missTexts = append(missTexts, text)
		missIdx = append(missIdx, i)
	}

	if len(missTexts) > 0 {
		vectors, err := c.inner.EmbedBatch(ctx, missTexts)
		if err != nil {
			return nil, err
		}
		for j, vector := range vectors {
			results[missIdx[j]] = vector
			c.cache.Add(missTexts[j], vector)
		}
	}

	return results, nil
}

// Dimension returns the dimensionality of the wrapped embedder.
func (c *Cached) Dimension() int {
	return c.inner.Dimension()
}

// ModelName returns the model name of the wrapped embedder.
func (c *Cached) ModelName() string {
	return c.inner.ModelName()
}

// Ensure Cached implements Embedder interface.
var _ Embedder = (*Cached)(nil)
