// Package corpus loads and serves the read-only passage corpus and its
// precomputed embedding matrix.
package corpus

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"strings"
)

// ErrLoad is wrapped by every corpus load failure. Load errors are fatal:
// the process must not start serving with a partial or inconsistent corpus.
var ErrLoad = errors.New("corpus load failed")

// Passage is a single unit of corpus text. IDs are assigned from the line
// position in the passage table and are stable for a given corpus build.
type Passage struct {
	ID     int    `json:"id"`
	Text   string `json:"text"`
	Source string `json:"source"`
}

// Corpus holds the passage table and the embedding matrix, one row per
// passage. It is built once by Load and never mutated afterwards, so
// concurrent readers need no locking.
type Corpus struct {
	passages  []Passage
	matrix    [][]float32
	norms     []float64
	dimension int
}

// Load reads the embedding matrix from a NumPy .npy file and the passage
// table from a JSONL file (one {"text", "source"} object per line). The two
// artifacts must agree: row i of the matrix is the embedding of passage i.
// Any inconsistency or unreadable artifact returns an error wrapping ErrLoad.
func Load(embeddingsPath, passagesPath string) (*Corpus, error) {
	matrix, err := readNpyMatrix(embeddingsPath)
	if err != nil {
		return nil, fmt.Errorf("%w: embeddings %s: %v", ErrLoad, embeddingsPath, err)
	}

	passages, err := readPassages(passagesPath)
	if err != nil {
		return nil, fmt.Errorf("%w: passages %s: %v", ErrLoad, passagesPath, err)
	}

	return New(passages, matrix)
}

// New builds a corpus from an already materialized passage table and
// embedding matrix. Row i of the matrix must be the embedding of passage i.
func New(passages []Passage, matrix [][]float32) (*Corpus, error) {
	if len(matrix) != len(passages) {
		return nil, fmt.Errorf("%w: %d embedding rows but %d passages", ErrLoad, len(matrix), len(passages))
	}
	if len(matrix) == 0 {
		return nil, fmt.Errorf("%w: corpus is empty", ErrLoad)
	}

	dimension := len(matrix[0])
	for i, row := range matrix {
		if len(row) != dimension {
			return nil, fmt.Errorf("%w: row %d has dimension %d, row 0 has %d", ErrLoad, i, len(row), dimension)
		}
	}

	// Row norms are fixed for the corpus lifetime; computing them here keeps
	// the cosine inner loop down to one dot product per passage.
	norms := make([]float64, len(matrix))
	for i, row := range matrix {
		var sum float64
		for _, v := range row {
			sum += float64(v) * float64(v)
		}
		norms[i] = math.Sqrt(sum)
	}

	return &Corpus{
		passages:  passages,
		matrix:    matrix,
		norms:     norms,
		dimension: dimension,
	}, nil
}

func readPassages(path string) ([]Passage, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var passages []Passage
	line := 0
	for scanner.Scan() {
		line++
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}

		var p Passage
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("line %d: %v", line, err)
		}
		if strings.TrimSpace(p.Text) == "" {
			return nil, fmt.Errorf("line %d: passage has empty text", line)
		}

		// The id is positional, regardless of what the file says.
		p.ID = len(passages)
		passages = append(passages, p)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return passages, nil
}

// Size returns the number of passages in the corpus.
func (c *Corpus) Size() int {
	return len(c.passages)
}

// Dimension returns the embedding dimensionality.
func (c *Corpus) Dimension() int {
	return c.dimension
}

// Passage returns the passage with the given id. The id must be in
// [0, Size()).
func (c *Corpus) Passage(i int) Passage {
	return c.passages[i]
}

// Row returns embedding row i. Callers must treat it as read-only.
func (c *Corpus) Row(i int) []float32 {
	return c.matrix[i]
}

// Norm returns the Euclidean norm of embedding row i.
func (c *Corpus) Norm(i int) float64 {
	return c.norms[i]
}
