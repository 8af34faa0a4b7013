// Package mastery tracks per-learner progress: mastery per lesson, the known
// and seen sets, goal and level overrides.
package mastery

import (
	"errors"
	"fmt"
	"maps"
	"math"
	"slices"
	"strings"
	"time"
)

var (
	ErrEmptyID        = errors.New("id is required")
	ErrInvalidMastery = errors.New("mastery must be within [0, 1]")
	ErrInvalidRank    = errors.New("invalid rank")
)

// Rank is the coarse skill level of a learner.
type Rank string

const (
	RankBeginner     Rank = "beginner"
	RankIntermediate Rank = "intermediate"
	RankAdvanced     Rank = "advanced"
	RankMaster       Rank = "master"
)

// ParseRank parses a rank name, case-insensitively.
func ParseRank(s string) (Rank, error) {
	switch r := Rank(strings.ToLower(strings.TrimSpace(s))); r {
	case RankBeginner, RankIntermediate, RankAdvanced, RankMaster:
		return r, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidRank, s)
}

// Level maps the rank to the lesson level scale 1..4. Unknown ranks are 1.
func (r Rank) Level() int {
	switch r {
	case RankMaster:
		return 4
	case RankAdvanced:
		return 3
	case RankIntermediate:
		return 2
	default:
		return 1
	}
}

// LearningState is the persisted progress of one learner.
type LearningState struct {
	UserID        string             `json:"user_id"`
	Mastery       map[string]float64 `json:"mastery"`
	Known         []string           `json:"known"`
	Seen          []string           `json:"seen"`
	GoalsOverride []string           `json:"goals_override,omitempty"`
	LevelOverride Rank               `json:"level_override,omitempty"`
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`
}

// NewLearningState returns the empty state a learner starts with.
func NewLearningState(userID string) *LearningState {
	now := time.Now()
	return &LearningState{
		UserID:    userID,
		Mastery:   map[string]float64{},
		Known:     []string{},
		Seen:      []string{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// ValidateMastery rejects NaN and values outside [0, 1].
func ValidateMastery(v float64) error {
	if math.IsNaN(v) || v < 0 || v > 1 {
		return fmt.Errorf("%w: %v", ErrInvalidMastery, v)
	}
	return nil
}

// NextMastery is the single transition rule for a lesson's mastery: it never
// decreases.
func NextMastery(current, incoming float64) float64 {
	return math.Max(current, incoming)
}

// ApplyMastery records an outcome for lessonID: mastery moves to
// NextMastery and the lesson leaves the seen set.
func (s *LearningState) ApplyMastery(lessonID string, value float64) {
	if s.Mastery == nil {
		s.Mastery = map[string]float64{}
	}
	s.Mastery[lessonID] = NextMastery(s.Mastery[lessonID], value)
	s.Seen = slices.DeleteFunc(s.Seen, func(id string) bool { return id == lessonID })
	s.UpdatedAt = time.Now()
}

// AddSeen adds lessonID to the seen set. It reports whether the set changed.
func (s *LearningState) AddSeen(lessonID string) bool {
	if slices.Contains(s.Seen, lessonID) {
		return false
	}
	s.Seen = append(s.Seen, lessonID)
	s.UpdatedAt = time.Now()
	return true
}

// Clone returns a deep copy.
func (s *LearningState) Clone() *LearningState {
	c := *s
	c.Mastery = maps.Clone(s.Mastery)
	if c.Mastery == nil {
		c.Mastery = map[string]float64{}
	}
	c.Known = slices.Clone(s.Known)
	c.Seen = slices.Clone(s.Seen)
	c.GoalsOverride = slices.Clone(s.GoalsOverride)
	if c.Known == nil {
		c.Known = []string{}
	}
	if c.Seen == nil {
		c.Seen = []string{}
	}
	return &c
}

// Snapshot is the read-only view handed to the recommender.
type Snapshot struct {
	Mastered map[string]float64 `json:"mastered"`
	Known    []string           `json:"known"`
	Seen     []string           `json:"seen"`
}

// Snapshot copies the fields the recommender consumes.
func (s *LearningState) Snapshot() Snapshot {
	c := s.Clone()
	return Snapshot{Mastered: c.Mastery, Known: c.Known, Seen: c.Seen}
}
