package retrieval

import (
	"reflect"
	"testing"
)

func TestQueryTerms(t *testing.T) {
	cases := []struct {
		query string
		want  []string
	}{
		{"Who is Dobby", []string{"who", "dobby"}},
		{"a of is", nil},
		{"Expecto  Patronum!", []string{"expecto", "patronum"}},
		{"", nil},
		{"what spell made a deer for harry", []string{"what", "spell", "made", "deer", "for", "harry"}},
	}

	for _, tc := range cases {
		got := queryTerms(tc.query)
		if !reflect.DeepEqual(got, tc.want) {
			t.Errorf("queryTerms(%q) = %v, want %v", tc.query, got, tc.want)
		}
	}
}

func TestLexicalScores_NormalizedToUnitMax(t *testing.T) {
	r := New(hogwartsCorpus(t), &fakeEmbedder{dim: 4})

	scores := r.lexicalScores("Who is Dobby")

	if len(scores) != 3 {
		t.Fatalf("expected 3 scores, got %d", len(scores))
	}
	sawOne := false
	for i, s := range scores {
		if s < 0 || s > 1 {
			t.Errorf("score %d out of [0,1]: %g", i, s)
		}
		if s == 1.0 {
			sawOne = true
		}
	}
	if !sawOne {
		t.Error("expected at least one passage at exactly 1.0 when a term matches")
	}
	if scores[1] != 1.0 {
		t.Errorf("expected the Dobby passage at 1.0, got %g", scores[1])
	}
}

func TestLexicalScores_DegenerateQuery(t *testing.T) {
	r := New(hogwartsCorpus(t), &fakeEmbedder{dim: 4})

	for _, s := range r.lexicalScores("a of") {
		if s != 0 {
			t.Fatalf("degenerate query must score 0 everywhere, got %g", s)
		}
	}
}

func TestLexicalScores_NoMatches(t *testing.T) {
	r := New(hogwartsCorpus(t), &fakeEmbedder{dim: 4})

	for _, s := range r.lexicalScores("quidditch snitch") {
		if s != 0 {
			t.Fatalf("unmatched query must score 0 everywhere, got %g", s)
		}
	}
}

func TestLexicalScores_SubstringCounting(t *testing.T) {
	c := testCorpus(t,
		[]string{"the spellbook of spells", "nothing relevant"},
		[][]float32{make([]float32, 2), make([]float32, 2)},
	)
	r := New(c, &fakeEmbedder{dim: 2})

	scores := r.lexicalScores("spell")

	// "spell" occurs inside both "spellbook" and "spells".
	if scores[0] != 1.0 {
		t.Errorf("expected substring matches to count, got %g", scores[0])
	}
	if scores[1] != 0 {
		t.Errorf("expected 0 for no match, got %g", scores[1])
	}
}

func TestLexicalScores_CaseInsensitive(t *testing.T) {
	c := testCorpus(t,
		[]string{"DOBBY has no master"},
		[][]float32{make([]float32, 2)},
	)
	r := New(c, &fakeEmbedder{dim: 2})

	if got := r.lexicalScores("dobby")[0]; got != 1.0 {
		t.Errorf("matching must be case-insensitive, got %g", got)
	}
}

func TestLexicalScores_MoreOccurrencesScoreHigher(t *testing.T) {
	c := testCorpus(t,
		[]string{"dobby", "dobby dobby", "no elf here"},
		[][]float32{make([]float32, 2), make([]float32, 2), make([]float32, 2)},
	)
	r := New(c, &fakeEmbedder{dim: 2})

	scores := r.lexicalScores("dobby")
	if scores[1] != 1.0 {
		t.Errorf("expected the double occurrence at 1.0, got %g", scores[1])
	}
	if scores[0] != 0.5 {
		t.Errorf("expected the single occurrence at 0.5, got %g", scores[0])
	}
}
