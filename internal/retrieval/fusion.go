package retrieval

import (
	"sort"

	"github.com/dmaier/corpusqa/internal/corpus"
)

// poolSize returns the candidate pool size: top_k*3 when re-ranking (the
// over-fetch gives the cross-encoder headroom), top_k otherwise, never more
// than the corpus holds.
func poolSize(topK int, useReranker bool, corpusSize int) int {
	size := topK
	if useReranker {
		size = topK * overFetchFactor
	}
	if size > corpusSize {
		size = corpusSize
	}
	return size
}

// fuseAndSelect blends the aggregate score vectors into one fused score per
// passage and selects the top pool candidates by descending fused score.
// Ties break by ascending passage id so the pool boundary is deterministic.
func fuseAndSelect(c *corpus.Corpus, semantic, keyword []float64, semanticWeight, keywordWeight float64, pool int) []Candidate {
	fused := make([]float64, c.Size())
	order := make([]int, c.Size())
	for i := range fused {
		fused[i] = semanticWeight*semantic[i] + keywordWeight*keyword[i]
		order[i] = i
	}

	sort.Slice(order, func(a, b int) bool {
		i, j := order[a], order[b]
		if fused[i] != fused[j] {
			return fused[i] > fused[j]
		}
		return i < j
	})

	candidates := make([]Candidate, 0, pool)
	for _, id := range order[:pool] {
		p := c.Passage(id)
		candidates = append(candidates, Candidate{
			ID:            p.ID,
			Text:          p.Text,
			Source:        p.Source,
			SemanticScore: semantic[id],
			KeywordScore:  keyword[id],
		})
	}

	return candidates
}
