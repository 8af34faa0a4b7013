package mastery

import (
	"context"
	"sync"
	"time"
)

// Store persists learning state. Every mutation is an atomic read-modify-write
// on one learner so concurrent updates converge: mastery to the maximum of
// all values written, seen to the union of all lessons appended (minus
// lessons scored afterwards).
type Store interface {
	// Get returns the learner's state, or false if none exists yet.
	Get(ctx context.Context, userID string) (*LearningState, bool, error)
	// GetOrCreate returns the learner's state, creating an empty one.
	GetOrCreate(ctx context.Context, userID string) (*LearningState, error)
	// RecordMastery applies LearningState.ApplyMastery and returns the result.
	RecordMastery(ctx context.Context, userID, lessonID string, value float64) (*LearningState, error)
	// AddSeen adds lessonID to the seen set.
	AddSeen(ctx context.Context, userID, lessonID string) error
	// SetLevelOverride stores a manual rank.
	SetLevelOverride(ctx context.Context, userID string, rank Rank) error
	// SetGoalsOverride replaces the learner's goal override; nil clears it.
	SetGoalsOverride(ctx context.Context, userID string, goals []string) error
}

// MemoryStore is an in-memory implementation of Store.
type MemoryStore struct {
	states map[string]*LearningState
	mu     sync.Mutex
}

// NewMemoryStore creates a new in-memory learning state store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		states: make(map[string]*LearningState),
	}
}

func (s *MemoryStore) Get(_ context.Context, userID string) (*LearningState, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.states[userID]
	if !ok {
		return nil, false, nil
	}
	return st.Clone(), true, nil
}

func (s *MemoryStore) GetOrCreate(_ context.Context, userID string) (*LearningState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.getOrCreateLocked(userID).Clone(), nil
}

func (s *MemoryStore) RecordMastery(_ context.Context, userID, lessonID string, value float64) (*LearningState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.getOrCreateLocked(userID)
	st.ApplyMastery(lessonID, value)
	return st.Clone(), nil
}

func (s *MemoryStore) AddSeen(_ context.Context, userID, lessonID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.getOrCreateLocked(userID).AddSeen(lessonID)
	return nil
}

func (s *MemoryStore) SetLevelOverride(_ context.Context, userID string, rank Rank) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.getOrCreateLocked(userID)
	st.LevelOverride = rank
	st.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryStore) SetGoalsOverride(_ context.Context, userID string, goals []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.getOrCreateLocked(userID)
	st.GoalsOverride = append([]string(nil), goals...)
	st.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryStore) getOrCreateLocked(userID string) *LearningState {
	st, ok := s.states[userID]
	if !ok {
		st = NewLearningState(userID)
		s.states[userID] = st
	}
	return st
}
