package retrieval

import (
	"regexp"
	"strings"
)

var wordRe = regexp.MustCompile(`\w+`)

// queryTerms tokenizes a query into lowercase word tokens, dropping tokens
// of length <= 2. Short tokens are almost always stopword noise ("a", "of",
// "is") and would dominate the occurrence counts.
func queryTerms(query string) []string {
	var terms []string
	for _, tok := range wordRe.FindAllString(query, -1) {
		if len(tok) <= 2 {
			continue
		}
		terms = append(terms, strings.ToLower(tok))
	}
	return terms
}

// lexicalScores scores a single phrasing against every passage by exact-term
// occurrence counting. A term matches as a substring, so "spell" also counts
// inside "spellbook". This catches names and rare terms the embedding model
// may smooth over.
//
// The raw counts are normalized by the maximum, so the output is in [0, 1]
// with at least one passage at exactly 1 whenever anything matched. A query
// with no surviving terms, or no matches at all, scores 0 everywhere.
func (r *Retriever) lexicalScores(query string) []float64 {
	scores := make([]float64, len(r.lowered))

	terms := queryTerms(query)
	if len(terms) == 0 {
		return scores
	}

	var maxScore float64
	for i, text := range r.lowered {
		count := 0
		for _, term := range terms {
			count += strings.Count(text, term)
		}
		scores[i] = float64(count)
		if scores[i] > maxScore {
			maxScore = scores[i]
		}
	}

	if maxScore > 0 {
		for i := range scores {
			scores[i] /= maxScore
		}
	}

	return scores
}
