package reco

import (
	"github.com/themycoder/guitarchord-sub001/internal/vector"
)

// Scoring constants.
const (
	// MasteredThreshold is the mastery value at which a lesson counts as mastered.
	MasteredThreshold = 0.8

	// MissingItemScore is returned for ids not in the catalog.
	MissingItemScore = -1e9

	cfWeight      = 0.7
	contentWeight = 0.3
	goalBonus     = 0.15
	gapPenalty    = 0.5
	seenPenalty   = 0.05

	defaultMaxLevel = 1
)

// Profile is the per-request view of a learner. It is built by
// Snapshot.Profile and never persisted.
type Profile struct {
	UserID     string
	Goals      map[string]struct{}
	Seen       map[string]struct{}
	Mastered   map[string]struct{}
	PrefVector []float64
	MaxLevel   int
}

// Profile builds a scoring profile for p using the snapshot's dimension.
func (s *Snapshot) Profile(p Params) Profile {
	prof := Profile{
		UserID:     p.UserID,
		Goals:      make(map[string]struct{}, len(p.Goals)),
		Seen:       toSet(p.Seen),
		Mastered:   make(map[string]struct{}),
		PrefVector: vector.Vectorize(p.Goals, s.dim),
		MaxLevel:   defaultMaxLevel,
	}
	for _, g := range p.Goals {
		prof.Goals[vector.Fold(g)] = struct{}{}
	}
	for id, v := range p.Mastered {
		if v >= MasteredThreshold {
			prof.Mastered[id] = struct{}{}
		}
	}
	if p.MaxLevel != nil {
		prof.MaxLevel = *p.MaxLevel
	}
	return prof
}

// Score computes the hybrid relevance of itemID for prof. The result is
// unbounded; lessons missing from the catalog get MissingItemScore.
func (s *Snapshot) Score(prof Profile, itemID string) float64 {
	l, ok := s.lessons[itemID]
	if !ok {
		return MissingItemScore
	}

	score := vector.Sigmoid(vector.Cosine(prof.PrefVector, s.content[itemID]))

	if uf, ok := s.userFactors.Vector(prof.UserID); ok {
		if itf, ok := s.itemFactors.Vector(itemID); ok {
			cf := vector.Dot(uf, itf)
			score = cfWeight*vector.Sigmoid(cf) + contentWeight*score
		}
	}

	if _, ok := prof.Goals[vector.Fold(l.Topic)]; ok {
		score += goalBonus
	}

	if gap := l.Level - prof.MaxLevel; gap > 1 {
		score -= gapPenalty * float64(gap)
	}

	if _, ok := prof.Seen[itemID]; ok {
		score -= seenPenalty
	}

	return score
}

func toSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
