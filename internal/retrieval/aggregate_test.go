package retrieval

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

func TestAggregate_DuplicatePhrasingsAreIdempotent(t *testing.T) {
	embed := &fakeEmbedder{dim: 2, vectors: map[string][]float32{
		"who is dobby": {1, 0},
	}}
	c := testCorpus(t, []string{"dobby the elf", "something else"}, [][]float32{{1, 0}, {0, 1}})
	r := New(c, embed)
	ctx := context.Background()

	semOnce, kwOnce, err := r.aggregate(ctx, []string{"who is dobby"})
	if err != nil {
		t.Fatalf("aggregate failed: %v", err)
	}
	semTwice, kwTwice, err := r.aggregate(ctx, []string{"who is dobby", "who is dobby"})
	if err != nil {
		t.Fatalf("aggregate failed: %v", err)
	}

	if !reflect.DeepEqual(semOnce, semTwice) {
		t.Errorf("semantic scores differ: %v vs %v", semOnce, semTwice)
	}
	if !reflect.DeepEqual(kwOnce, kwTwice) {
		t.Errorf("keyword scores differ: %v vs %v", kwOnce, kwTwice)
	}
}

func TestAggregate_TakesElementWiseMax(t *testing.T) {
	// Phrasing A points at passage 0, phrasing B at passage 1. The merged
	// vector keeps the best score per passage instead of averaging.
	embed := &fakeEmbedder{dim: 2, vectors: map[string][]float32{
		"phrasing a": {1, 0},
		"phrasing b": {0, 1},
	}}
	c := testCorpus(t, []string{"first", "second"}, [][]float32{{1, 0}, {0, 1}})
	r := New(c, embed)

	semantic, _, err := r.aggregate(context.Background(), []string{"phrasing a", "phrasing b"})
	if err != nil {
		t.Fatalf("aggregate failed: %v", err)
	}

	if semantic[0] != 1.0 || semantic[1] != 1.0 {
		t.Errorf("expected best-per-phrasing merge [1 1], got %v", semantic)
	}
}

func TestAggregate_KeywordMergeAcrossPhrasings(t *testing.T) {
	embed := &fakeEmbedder{dim: 2}
	c := testCorpus(t, []string{"dobby lives here", "expelliarmus was cast"}, [][]float32{
		make([]float32, 2), make([]float32, 2),
	})
	r := New(c, embed)

	_, keyword, err := r.aggregate(context.Background(), []string{"dobby", "expelliarmus"})
	if err != nil {
		t.Fatalf("aggregate failed: %v", err)
	}

	// Each phrasing matches a different passage; both end up at 1.0.
	if keyword[0] != 1.0 || keyword[1] != 1.0 {
		t.Errorf("expected [1 1], got %v", keyword)
	}
}

func TestAggregate_EmbedderFailure(t *testing.T) {
	embed := &fakeEmbedder{dim: 2, err: errors.New("connection refused")}
	r := New(testCorpus(t, []string{"p"}, [][]float32{{1, 0}}), embed)

	_, _, err := r.aggregate(context.Background(), []string{"q"})
	if !errors.Is(err, ErrScoringUnavailable) {
		t.Fatalf("expected ErrScoringUnavailable, got %v", err)
	}
}

func TestAggregate_ScoreVectorsSpanCorpus(t *testing.T) {
	embed := &fakeEmbedder{dim: 2}
	texts := []string{"a1", "b2", "c3", "d4", "e5"}
	matrix := make([][]float32, len(texts))
	for i := range matrix {
		matrix[i] = make([]float32, 2)
	}
	r := New(testCorpus(t, texts, matrix), embed)

	semantic, keyword, err := r.aggregate(context.Background(), []string{"one", "two", "three"})
	if err != nil {
		t.Fatalf("aggregate failed: %v", err)
	}
	if len(semantic) != len(texts) || len(keyword) != len(texts) {
		t.Errorf("score vectors must span the corpus: sem=%d kw=%d", len(semantic), len(keyword))
	}
}
