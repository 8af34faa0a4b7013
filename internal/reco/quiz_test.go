package reco_test

import (
	"fmt"
	"slices"
	"testing"

	"github.com/themycoder/guitarchord-sub001/internal/catalog"
	"github.com/themycoder/guitarchord-sub001/internal/reco"
)

func diff(v float64) *float64 { return &v }

func quizIDs(qs []catalog.QuizItem) []string {
	out := make([]string, len(qs))
	for i, q := range qs {
		out[i] = q.ID
	}
	return out
}

func TestSuggestQuizFor_ExclusionRule(t *testing.T) {
	e := newEngine(t, catalog.Catalog{
		"L1": {Topic: "theory", QuizPool: []catalog.QuizItem{
			{ID: "mastered"}, {ID: "struggling"}, {ID: "fresh"}, {ID: "few-tries"},
		}},
	})

	got, err := e.SuggestQuizFor([]string{"L1"}, map[string]reco.Attempt{
		"mastered":   {Tries: 3, Correct: 2},
		"struggling": {Tries: 3, Correct: 1},
		"few-tries":  {Tries: 2, Correct: 2},
	})
	if err != nil {
		t.Fatalf("SuggestQuizFor() error = %v", err)
	}

	ids := quizIDs(got)
	if slices.Contains(ids, "mastered") {
		t.Error("item with tries>=3 and correct>=2 should be excluded")
	}
	for _, want := range []string{"struggling", "fresh", "few-tries"} {
		if !slices.Contains(ids, want) {
			t.Errorf("%s should be included, got %v", want, ids)
		}
	}
}

func TestSuggestQuizFor_SortedByDifficulty(t *testing.T) {
	e := newEngine(t, catalog.Catalog{
		"L1": {Topic: "x", QuizPool: []catalog.QuizItem{
			{ID: "hard", Difficulty: diff(5)},
			{ID: "unset"},
			{ID: "easy", Difficulty: diff(1)},
		}},
		"L2": {Topic: "x", QuizPool: []catalog.QuizItem{
			{ID: "medium", Difficulty: diff(2)},
			{ID: "tricky", Difficulty: diff(3)},
		}},
	})

	got, _ := e.SuggestQuizFor([]string{"L1", "L2"}, nil)
	want := []string{"easy", "unset", "medium", "tricky", "hard"}
	if ids := quizIDs(got); !slices.Equal(ids, want) {
		t.Errorf("ids = %v, want %v", ids, want)
	}
}

func TestSuggestQuizFor_CapsAtEight(t *testing.T) {
	var pool []catalog.QuizItem
	for i := 0; i < 12; i++ {
		pool = append(pool, catalog.QuizItem{ID: fmt.Sprintf("q%02d", i), Difficulty: diff(float64(12 - i))})
	}
	e := newEngine(t, catalog.Catalog{"L1": {Topic: "x", QuizPool: pool}})

	got, _ := e.SuggestQuizFor([]string{"L1"}, nil)
	if len(got) != reco.MaxQuizItems {
		t.Fatalf("len = %d, want %d", len(got), reco.MaxQuizItems)
	}
	if got[0].ID != "q11" {
		t.Errorf("first = %s, want easiest q11", got[0].ID)
	}
}

func TestSuggestQuizFor_UnknownLessons(t *testing.T) {
	e := newEngine(t, catalog.Catalog{"L1": {Topic: "x"}})

	got, err := e.SuggestQuizFor([]string{"nope"}, nil)
	if err != nil {
		t.Fatalf("SuggestQuizFor() error = %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("got %v, want empty non-nil slice", got)
	}
}
