package mastery_test

import (
	"testing"

	"github.com/google/uuid"

	"github.com/themycoder/guitarchord-sub001/internal/mastery"
)

func TestMemoryEventLogger_LogEvent(t *testing.T) {
	logger := mastery.NewMemoryEventLogger()

	err := logger.LogEvent(t.Context(), mastery.Event{
		UserID:   "user-1",
		LessonID: "L1",
		Type:     mastery.EventMasteryRecorded,
		Data:     map[string]any{"value": 0.9},
	})
	if err != nil {
		t.Fatalf("LogEvent() error = %v", err)
	}

	events := logger.Events()
	if len(events) != 1 {
		t.Fatalf("len(events) = %d, want 1", len(events))
	}
	if events[0].ID == uuid.Nil {
		t.Error("ID should be assigned")
	}
	if events[0].CreatedAt.IsZero() {
		t.Error("CreatedAt should be set")
	}
}

func TestMemoryEventLogger_Rejects(t *testing.T) {
	logger := mastery.NewMemoryEventLogger()
	tests := []struct {
		name  string
		event mastery.Event
	}{
		{"missing type", mastery.Event{UserID: "u1"}},
		{"missing user", mastery.Event{Type: mastery.EventLessonSeen}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := logger.LogEvent(t.Context(), tt.event); err == nil {
				t.Error("expected error")
			}
		})
	}
	if n := len(logger.Events()); n != 0 {
		t.Errorf("stored %d invalid events", n)
	}
}

func TestPostgresEventLogger_LogEvent_NilPool(t *testing.T) {
	logger := mastery.NewPostgresEventLogger(nil)

	err := logger.LogEvent(t.Context(), mastery.Event{
		UserID: "user-1",
		Type:   mastery.EventLessonSeen,
	})
	if err == nil {
		t.Fatal("expected error for nil pool")
	}
}
