package mastery

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// Level bounds of the lesson scale.
const (
	MinLevel = 1
	MaxLevel = 4
)

// TrackerConfig holds dependencies for the tracker.
type TrackerConfig struct {
	Store    Store
	Profiles ProfileSource // optional
	Events   EventLogger   // optional
}

// Tracker applies learning events to persisted learner state.
type Tracker struct {
	store    Store
	profiles ProfileSource
	events   EventLogger
}

// NewTracker creates a tracker. A nil store defaults to an in-memory one.
func NewTracker(cfg TrackerConfig) *Tracker {
	store := cfg.Store
	if store == nil {
		store = NewMemoryStore()
	}
	events := cfg.Events
	if events == nil {
		events = NopEventLogger{}
	}
	return &Tracker{
		store:    store,
		profiles: cfg.Profiles,
		events:   events,
	}
}

// GetOrCreateLearningState returns the learner's state, creating it empty.
func (t *Tracker) GetOrCreateLearningState(ctx context.Context, userID string) (*LearningState, error) {
	if err := requireID("user", userID); err != nil {
		return nil, err
	}
	return t.store.GetOrCreate(ctx, userID)
}

// UpdateMastery records an outcome. Mastery never decreases and the lesson
// leaves the seen set.
func (t *Tracker) UpdateMastery(ctx context.Context, userID, lessonID string, value float64) (*LearningState, error) {
	if err := requireID("user", userID); err != nil {
		return nil, err
	}
	if err := requireID("lesson", lessonID); err != nil {
		return nil, err
	}
	if err := ValidateMastery(value); err != nil {
		return nil, err
	}

	st, err := t.store.RecordMastery(ctx, userID, lessonID, value)
	if err != nil {
		return nil, err
	}

	t.logEvent(ctx, Event{
		UserID:   userID,
		LessonID: lessonID,
		Type:     EventMasteryRecorded,
		Data: map[string]any{
			"value":   value,
			"mastery": st.Mastery[lessonID],
		},
	})
	return st, nil
}

// AppendSeen marks a lesson as seen. Repeated calls are no-ops.
func (t *Tracker) AppendSeen(ctx context.Context, userID, lessonID string) error {
	if err := requireID("user", userID); err != nil {
		return err
	}
	if err := requireID("lesson", lessonID); err != nil {
		return err
	}
	if err := t.store.AddSeen(ctx, userID, lessonID); err != nil {
		return err
	}

	t.logEvent(ctx, Event{UserID: userID, LessonID: lessonID, Type: EventLessonSeen})
	return nil
}

// Snapshot returns the read-only view of a learner's state. Unknown learners
// get an empty snapshot; nothing is created.
func (t *Tracker) Snapshot(ctx context.Context, userID string) (Snapshot, error) {
	if err := requireID("user", userID); err != nil {
		return Snapshot{}, err
	}
	st, ok, err := t.store.Get(ctx, userID)
	if err != nil {
		return Snapshot{}, err
	}
	if !ok {
		st = NewLearningState(userID)
	}
	return st.Snapshot(), nil
}

// SetLearningRank stores a manual rank override.
func (t *Tracker) SetLearningRank(ctx context.Context, userID, rank string) (Rank, error) {
	if err := requireID("user", userID); err != nil {
		return "", err
	}
	r, err := ParseRank(rank)
	if err != nil {
		return "", err
	}
	if err := t.store.SetLevelOverride(ctx, userID, r); err != nil {
		return "", err
	}

	t.logEvent(ctx, Event{UserID: userID, Type: EventRankSet, Data: map[string]any{"rank": string(r)}})
	return r, nil
}

// SetGoals replaces the learner's goal override. Blank entries are dropped;
// an empty list clears the override.
func (t *Tracker) SetGoals(ctx context.Context, userID string, goals []string) error {
	if err := requireID("user", userID); err != nil {
		return err
	}
	var cleaned []string
	for _, g := range goals {
		if g = strings.TrimSpace(g); g != "" {
			cleaned = append(cleaned, g)
		}
	}
	return t.store.SetGoalsOverride(ctx, userID, cleaned)
}

// GoalsForReco returns the goal override when non-empty, otherwise the goals
// stated on the learner's profile. The two are never merged.
func (t *Tracker) GoalsForReco(ctx context.Context, userID string) ([]string, error) {
	if err := requireID("user", userID); err != nil {
		return nil, err
	}
	st, ok, err := t.store.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if ok && len(st.GoalsOverride) > 0 {
		return st.GoalsOverride, nil
	}
	if t.profiles == nil {
		return nil, nil
	}
	return t.profiles.StatedGoals(ctx, userID)
}

// MaxLevelFor resolves the level ceiling for a recommendation request: an
// explicit request value clamped to [MinLevel, MaxLevel], then the rank
// override, then the profile's stated level, then MinLevel.
func (t *Tracker) MaxLevelFor(ctx context.Context, userID string, requested *int) (int, error) {
	if requested != nil {
		return min(max(*requested, MinLevel), MaxLevel), nil
	}
	if userID == "" {
		return MinLevel, nil
	}

	st, ok, err := t.store.Get(ctx, userID)
	if err != nil {
		return 0, err
	}
	if ok && st.LevelOverride != "" {
		return st.LevelOverride.Level(), nil
	}
	if t.profiles == nil {
		return MinLevel, nil
	}
	stated, err := t.profiles.StatedLevel(ctx, userID)
	if err != nil {
		return 0, err
	}
	if r, err := ParseRank(string(stated)); err == nil {
		return r.Level(), nil
	}
	return MinLevel, nil
}

func (t *Tracker) logEvent(ctx context.Context, ev Event) {
	if err := t.events.LogEvent(ctx, ev); err != nil {
		slog.Warn("failed to log learning event", "type", ev.Type, "user_id", ev.UserID, "error", err)
	}
}

func requireID(what, id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%s: %w", what, ErrEmptyID)
	}
	return nil
}
