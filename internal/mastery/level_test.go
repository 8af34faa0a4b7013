package mastery_test

import (
	"testing"

	"github.com/themycoder/guitarchord-sub001/internal/mastery"
)

func TestEvaluateLevel(t *testing.T) {
	uniform := func(v float64) map[string]float64 {
		return map[string]float64{"a": v, "b": v}
	}

	tests := []struct {
		name string
		in   mastery.LevelInput
		want mastery.Rank
	}{
		{"empty mastery averages zero", mastery.LevelInput{Mastery: map[string]float64{}, AvgAccuracy: 1.0, CompletedLessons: 100}, mastery.RankBeginner},
		{"nil mastery", mastery.LevelInput{AvgAccuracy: 1.0, CompletedLessons: 100}, mastery.RankBeginner},
		{"master at thresholds", mastery.LevelInput{Mastery: uniform(0.9), AvgAccuracy: 0.9, CompletedLessons: 20}, mastery.RankMaster},
		{"master short of lessons", mastery.LevelInput{Mastery: uniform(0.95), AvgAccuracy: 0.95, CompletedLessons: 19}, mastery.RankAdvanced},
		{"advanced at thresholds", mastery.LevelInput{Mastery: uniform(0.75), AvgAccuracy: 0.8, CompletedLessons: 10}, mastery.RankAdvanced},
		{"advanced short of accuracy", mastery.LevelInput{Mastery: uniform(0.8), AvgAccuracy: 0.79, CompletedLessons: 15}, mastery.RankIntermediate},
		{"intermediate at thresholds", mastery.LevelInput{Mastery: uniform(0.5), AvgAccuracy: 0.7, CompletedLessons: 5}, mastery.RankIntermediate},
		{"intermediate short of mastery", mastery.LevelInput{Mastery: uniform(0.49), AvgAccuracy: 0.9, CompletedLessons: 50}, mastery.RankBeginner},
		{"mixed average", mastery.LevelInput{Mastery: map[string]float64{"a": 1.0, "b": 0.5}, AvgAccuracy: 0.85, CompletedLessons: 12}, mastery.RankAdvanced},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := mastery.EvaluateLevel(tt.in); got != tt.want {
				t.Errorf("EvaluateLevel() = %q, want %q", got, tt.want)
			}
		})
	}
}
