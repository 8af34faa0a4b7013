package catalog_test

import (
	"testing"

	"github.com/themycoder/guitarchord-sub001/internal/catalog"
	"github.com/themycoder/guitarchord-sub001/internal/platform/database"
	"github.com/themycoder/guitarchord-sub001/internal/testinfra"
)

func TestPostgresSource_NilPool(t *testing.T) {
	if _, err := catalog.NewPostgresSource(nil).Lessons(t.Context()); err == nil {
		t.Error("expected error for nil pool")
	}
}

func TestPostgresSource_Lessons(t *testing.T) {
	ctx := t.Context()
	db := testinfra.NewPostgres(t, []database.Migration{{Name: "lessons", SQL: catalog.Schema}})

	_, err := db.Pool.Exec(ctx, `
		INSERT INTO lessons (id, title, topic, level, prereqs, tags, quiz_pool) VALUES
		  ('L1', 'Open chords', 'chord', 1, NULL, ARRAY['open'], '[{"id":"q1","difficulty":1.5}]'),
		  ('L2', 'Barre chords', 'chord', NULL, ARRAY['L1'], NULL, NULL)`)
	if err != nil {
		t.Fatalf("seed lessons: %v", err)
	}

	// A second run is recorded as already applied.
	if err := db.Migrate(ctx, database.Migration{Name: "lessons", SQL: catalog.Schema}); err != nil {
		t.Fatalf("second Migrate() error = %v", err)
	}
	var recorded int
	if err := db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM schema_migrations WHERE name = 'lessons'`).Scan(&recorded); err != nil {
		t.Fatalf("count migrations: %v", err)
	}
	if recorded != 1 {
		t.Errorf("recorded migrations = %d, want 1", recorded)
	}

	src := catalog.NewPostgresSource(db.Pool)
	lessons, err := src.Lessons(ctx)
	if err != nil {
		t.Fatalf("Lessons() error = %v", err)
	}
	if len(lessons) != 2 {
		t.Fatalf("len(lessons) = %d, want 2", len(lessons))
	}
	if l := lessons["L1"]; l.Level != 1 || len(l.QuizPool) != 1 || l.QuizPool[0].EffectiveDifficulty() != 1.5 {
		t.Errorf("L1 = %+v", l)
	}
	if l := lessons["L2"]; l.Level != 0 || len(l.Prereqs) != 1 || len(l.QuizPool) != 0 {
		t.Errorf("L2 = %+v", l)
	}

	res := catalog.Load(ctx, src, nil)
	if res.Status != catalog.StatusLoaded || res.Source != "postgres" {
		t.Errorf("Load() = %+v, want loaded from postgres", res)
	}
}
