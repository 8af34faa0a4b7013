package mastery_test

import (
	"errors"
	"math"
	"slices"
	"testing"

	"github.com/themycoder/guitarchord-sub001/internal/mastery"
)

func TestParseRank(t *testing.T) {
	tests := []struct {
		in        string
		want      mastery.Rank
		wantLevel int
		wantErr   bool
	}{
		{"beginner", mastery.RankBeginner, 1, false},
		{"Intermediate", mastery.RankIntermediate, 2, false},
		{" advanced ", mastery.RankAdvanced, 3, false},
		{"MASTER", mastery.RankMaster, 4, false},
		{"expert", "", 0, true},
		{"", "", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := mastery.ParseRank(tt.in)
			if tt.wantErr {
				if !errors.Is(err, mastery.ErrInvalidRank) {
					t.Errorf("ParseRank(%q) error = %v, want ErrInvalidRank", tt.in, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseRank(%q) error = %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseRank(%q) = %q, want %q", tt.in, got, tt.want)
			}
			if got.Level() != tt.wantLevel {
				t.Errorf("Level() = %d, want %d", got.Level(), tt.wantLevel)
			}
		})
	}
}

func TestValidateMastery(t *testing.T) {
	tests := []struct {
		name    string
		v       float64
		wantErr bool
	}{
		{"zero", 0, false},
		{"one", 1, false},
		{"mid", 0.42, false},
		{"negative", -0.01, true},
		{"above one", 1.01, true},
		{"nan", math.NaN(), true},
		{"inf", math.Inf(1), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := mastery.ValidateMastery(tt.v)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateMastery(%v) error = %v, wantErr %v", tt.v, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, mastery.ErrInvalidMastery) {
				t.Errorf("error %v is not ErrInvalidMastery", err)
			}
		})
	}
}

func TestApplyMastery_Monotonic(t *testing.T) {
	st := mastery.NewLearningState("u1")
	st.AddSeen("L1")
	st.AddSeen("L2")

	st.ApplyMastery("L1", 0.7)
	st.ApplyMastery("L1", 0.4)
	if got := st.Mastery["L1"]; got != 0.7 {
		t.Errorf("mastery after weaker outcome = %v, want 0.7", got)
	}
	st.ApplyMastery("L1", 0.9)
	if got := st.Mastery["L1"]; got != 0.9 {
		t.Errorf("mastery after stronger outcome = %v, want 0.9", got)
	}
	if slices.Contains(st.Seen, "L1") {
		t.Error("scored lesson should leave the seen set")
	}
	if !slices.Contains(st.Seen, "L2") {
		t.Error("other seen lessons should remain")
	}
}

func TestAddSeen_Idempotent(t *testing.T) {
	st := mastery.NewLearningState("u1")
	if !st.AddSeen("L1") {
		t.Error("first AddSeen should report a change")
	}
	if st.AddSeen("L1") {
		t.Error("second AddSeen should be a no-op")
	}
	if len(st.Seen) != 1 {
		t.Errorf("Seen = %v, want [L1]", st.Seen)
	}
}

func TestSnapshot_IsACopy(t *testing.T) {
	st := mastery.NewLearningState("u1")
	st.ApplyMastery("L1", 0.5)
	st.AddSeen("L2")

	snap := st.Snapshot()
	snap.Mastered["L1"] = 0
	snap.Seen[0] = "changed"

	if st.Mastery["L1"] != 0.5 {
		t.Error("mutating the snapshot changed mastery")
	}
	if st.Seen[0] != "L2" {
		t.Error("mutating the snapshot changed seen")
	}
}
