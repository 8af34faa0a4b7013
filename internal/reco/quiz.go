package reco

import (
	"cmp"
	"slices"

	"github.com/themycoder/guitarchord-sub001/internal/catalog"
)

// MaxQuizItems caps a practice set.
const MaxQuizItems = 8

// Quiz items with at least masteredTries attempts and masteredCorrect correct
// answers are considered learned and skipped.
const (
	masteredTries   = 3
	masteredCorrect = 2
)

// Attempt is a learner's history on one quiz item.
type Attempt struct {
	Tries   int `json:"tries"`
	Correct int `json:"correct"`
}

func (a Attempt) mastered() bool {
	return a.Tries >= masteredTries && a.Correct >= masteredCorrect
}

// SuggestQuizFor builds a practice set from the quiz pools of lessonIDs.
func (e *Engine) SuggestQuizFor(lessonIDs []string, history map[string]Attempt) ([]catalog.QuizItem, error) {
	s, err := e.Snapshot()
	if err != nil {
		return nil, err
	}
	e.metrics.observeQuiz()
	return s.SuggestQuizFor(lessonIDs, history), nil
}

// SuggestQuizFor drops quiz items the learner has already mastered, orders
// the rest by ascending difficulty (unset counts as 2) and returns at most
// MaxQuizItems. Equal difficulties keep pool order. Unknown lesson ids
// contribute nothing.
func (s *Snapshot) SuggestQuizFor(lessonIDs []string, history map[string]Attempt) []catalog.QuizItem {
	var pool []catalog.QuizItem
	for _, id := range lessonIDs {
		for _, q := range s.lessons[id].QuizPool {
			if history[q.ID].mastered() {
				continue
			}
			pool = append(pool, q)
		}
	}

	slices.SortStableFunc(pool, func(a, b catalog.QuizItem) int {
		return cmp.Compare(a.EffectiveDifficulty(), b.EffectiveDifficulty())
	})

	if len(pool) > MaxQuizItems {
		pool = pool[:MaxQuizItems]
	}
	if pool == nil {
		pool = []catalog.QuizItem{}
	}
	return pool
}
