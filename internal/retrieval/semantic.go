package retrieval

import (
	"fmt"
	"math"

	"github.com/dmaier/corpusqa/internal/corpus"
)

// semanticScores computes the cosine similarity of a query vector against
// every row of the corpus matrix. Scores fall in [-1, 1]. A zero-norm query
// vector (or corpus row) scores 0 rather than producing NaN.
func semanticScores(c *corpus.Corpus, vector []float32) ([]float64, error) {
	if len(vector) != c.Dimension() {
		return nil, fmt.Errorf("query embedding has dimension %d, corpus has %d", len(vector), c.Dimension())
	}

	scores := make([]float64, c.Size())

	var qnorm float64
	for _, v := range vector {
		qnorm += float64(v) * float64(v)
	}
	qnorm = math.Sqrt(qnorm)
	if qnorm == 0 {
		return scores, nil
	}

	for i := range scores {
		rnorm := c.Norm(i)
		if rnorm == 0 {
			continue
		}
		row := c.Row(i)
		var dot float64
		for j, v := range row {
			dot += float64(v) * float64(vector[j])
		}
		scores[i] = dot / (rnorm * qnorm)
	}

	return scores, nil
}
