package reranker

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHTTPCrossEncoder_Predict(t *testing.T) {
	var got rerankRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rerank" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decoding request: %v", err)
		}
		json.NewEncoder(w).Encode(rerankResponse{Scores: []float64{0.2, 4.5}})
	}))
	defer srv.Close()

	enc := NewHTTPCrossEncoder(srv.URL, WithModel("test-model"))

	scores, err := enc.Predict(context.Background(), []Pair{
		{Query: "who is dobby", Text: "Dobby is a house-elf"},
		{Query: "who is dobby", Text: "Dumbledore likes lemon drops"},
	})
	if err != nil {
		t.Fatalf("Predict failed: %v", err)
	}

	if len(scores) != 2 || scores[0] != 0.2 || scores[1] != 4.5 {
		t.Errorf("unexpected scores %v", scores)
	}
	if got.Model != "test-model" {
		t.Errorf("expected model test-model, got %q", got.Model)
	}
	if len(got.Pairs) != 2 || got.Pairs[0][0] != "who is dobby" || got.Pairs[1][1] != "Dumbledore likes lemon drops" {
		t.Errorf("unexpected pairs %v", got.Pairs)
	}
}

func TestHTTPCrossEncoder_ScoreCountMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(rerankResponse{Scores: []float64{1.0}})
	}))
	defer srv.Close()

	enc := NewHTTPCrossEncoder(srv.URL)
	_, err := enc.Predict(context.Background(), []Pair{
		{Query: "q", Text: "a"},
		{Query: "q", Text: "b"},
	})
	if err == nil {
		t.Fatal("expected error for score count mismatch")
	}
}

func TestHTTPCrossEncoder_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	}))
	defer srv.Close()

	enc := NewHTTPCrossEncoder(srv.URL)
	if _, err := enc.Predict(context.Background(), []Pair{{Query: "q", Text: "a"}}); err == nil {
		t.Fatal("expected error for server failure")
	}
}

func TestHTTPCrossEncoder_EmptyBatch(t *testing.T) {
	enc := NewHTTPCrossEncoder("http://localhost:1") // must not be contacted
	scores, err := enc.Predict(context.Background(), nil)
	if err != nil {
		t.Fatalf("Predict failed: %v", err)
	}
	if len(scores) != 0 {
		t.Errorf("expected no scores, got %v", scores)
	}
}
