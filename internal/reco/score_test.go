package reco_test

import (
	"math"
	"testing"

	"github.com/themycoder/guitarchord-sub001/internal/catalog"
	"github.com/themycoder/guitarchord-sub001/internal/factors"
	"github.com/themycoder/guitarchord-sub001/internal/reco"
	"github.com/themycoder/guitarchord-sub001/internal/vector"
)

const eps = 1e-12

func newSnapshot(t *testing.T, lessons catalog.Catalog) *reco.Snapshot {
	t.Helper()
	return reco.NewSnapshot(
		catalog.Result{Status: catalog.StatusLoaded, Lessons: lessons, Source: "test"},
		factors.Result{}, factors.Result{}, 64,
	)
}

func intPtr(v int) *int { return &v }

func TestScore_MissingItem(t *testing.T) {
	s := newSnapshot(t, catalog.Catalog{})
	prof := s.Profile(reco.Params{})

	if got := s.Score(prof, "nope"); got != reco.MissingItemScore {
		t.Errorf("Score() = %v, want %v", got, reco.MissingItemScore)
	}
}

func TestScore_ContentOnlyBase(t *testing.T) {
	s := newSnapshot(t, catalog.Catalog{
		"L1": {Topic: "chord", Level: 1, Tags: []string{"open"}},
	})

	// No goals: zero preference vector, cosine 0, sigmoid 0.5.
	if got := s.Score(s.Profile(reco.Params{}), "L1"); math.Abs(got-0.5) > eps {
		t.Errorf("Score() = %v, want 0.5", got)
	}

	// Goals matching the lesson tags push the content signal up.
	withGoals := s.Profile(reco.Params{Goals: []string{"open"}})
	if got := s.Score(withGoals, "L1"); got <= 0.5 {
		t.Errorf("Score() = %v, want > 0.5 when goals match tags", got)
	}
}

func TestScore_GoalBonus(t *testing.T) {
	tags := []string{"intervals", "fretboard"}
	s := newSnapshot(t, catalog.Catalog{
		"L1": {Topic: "theory", Level: 1, Tags: tags},
		"L2": {Topic: "rhythm", Level: 1, Tags: tags},
	})
	prof := s.Profile(reco.Params{Goals: []string{"theory"}})

	diff := s.Score(prof, "L1") - s.Score(prof, "L2")
	if math.Abs(diff-0.15) > eps {
		t.Errorf("score difference = %v, want 0.15", diff)
	}
}

func TestScore_GoalBonusCaseFolded(t *testing.T) {
	s := newSnapshot(t, catalog.Catalog{"L1": {Topic: "Theory", Level: 1}})

	upper := s.Score(s.Profile(reco.Params{Goals: []string{"THEORY"}}), "L1")
	none := s.Score(s.Profile(reco.Params{Goals: []string{"rhythm"}}), "L1")
	if upper <= none {
		t.Errorf("goal match should be case-insensitive: %v <= %v", upper, none)
	}
}

func TestScore_LevelGapPenalty(t *testing.T) {
	s := newSnapshot(t, catalog.Catalog{
		"base": {Topic: "x", Level: 1},
		"far":  {Topic: "x", Level: 4},
		"near": {Topic: "x", Level: 2},
		"low":  {Topic: "x", Level: 0},
	})
	prof := s.Profile(reco.Params{MaxLevel: intPtr(1)})
	base := s.Score(prof, "base")

	tests := []struct {
		id   string
		want float64
	}{
		{"far", base - 1.5},
		{"near", base},
		{"low", base},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			if got := s.Score(prof, tt.id); math.Abs(got-tt.want) > eps {
				t.Errorf("Score(%s) = %v, want %v", tt.id, got, tt.want)
			}
		})
	}
}

func TestScore_DefaultMaxLevel(t *testing.T) {
	s := newSnapshot(t, catalog.Catalog{"L3": {Topic: "x", Level: 3}})

	implicit := s.Score(s.Profile(reco.Params{}), "L3")
	explicit := s.Score(s.Profile(reco.Params{MaxLevel: intPtr(1)}), "L3")
	if implicit != explicit {
		t.Errorf("nil MaxLevel should mean 1: %v != %v", implicit, explicit)
	}
	if math.Abs(implicit-(0.5-1.0)) > eps {
		t.Errorf("Score() = %v, want -0.5", implicit)
	}
}

func TestScore_SeenPenalty(t *testing.T) {
	s := newSnapshot(t, catalog.Catalog{"L1": {Topic: "x", Level: 1}})

	fresh := s.Score(s.Profile(reco.Params{}), "L1")
	seen := s.Score(s.Profile(reco.Params{Seen: []string{"L1"}}), "L1")
	if math.Abs(fresh-seen-0.05) > eps {
		t.Errorf("seen penalty = %v, want 0.05", fresh-seen)
	}
}

func TestScore_CollaborativeBlend(t *testing.T) {
	items := factors.Result{Status: factors.StatusLoaded, Dim: 2, Factors: factors.Map{"L1": {1, 0}}}
	users := factors.Result{Status: factors.StatusLoaded, Dim: 2, Factors: factors.Map{"u1": {2, 0}}}
	s := reco.NewSnapshot(
		catalog.Result{Status: catalog.StatusLoaded, Lessons: catalog.Catalog{
			"L1": {Topic: "x", Level: 1},
			"L2": {Topic: "x", Level: 1},
		}},
		items, users, 64,
	)

	if s.Dim() != 2 {
		t.Errorf("Dim() = %d, want 2 (from item factors)", s.Dim())
	}
	if !s.CFAvailable() {
		t.Error("CFAvailable() = false, want true")
	}

	prof := s.Profile(reco.Params{UserID: "u1"})
	want := 0.7*vector.Sigmoid(2) + 0.3*0.5
	if got := s.Score(prof, "L1"); math.Abs(got-want) > eps {
		t.Errorf("Score(u1, L1) = %v, want %v", got, want)
	}

	// No item factor for L2: content only.
	if got := s.Score(prof, "L2"); math.Abs(got-0.5) > eps {
		t.Errorf("Score(u1, L2) = %v, want 0.5", got)
	}

	// Cold-start user.
	if got := s.Score(s.Profile(reco.Params{UserID: "u2"}), "L1"); math.Abs(got-0.5) > eps {
		t.Errorf("Score(u2, L1) = %v, want 0.5", got)
	}
}

func TestProfile_MasteredThreshold(t *testing.T) {
	s := newSnapshot(t, catalog.Catalog{})
	prof := s.Profile(reco.Params{Mastered: map[string]float64{
		"a": 0.8, "b": 0.79, "c": 1,
	}})

	for id, want := range map[string]bool{"a": true, "b": false, "c": true} {
		if _, got := prof.Mastered[id]; got != want {
			t.Errorf("mastered[%s] = %v, want %v", id, got, want)
		}
	}
}
