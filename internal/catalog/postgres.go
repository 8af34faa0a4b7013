package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const dbTimeout = 10 * time.Second

// Schema creates the lessons table PostgresSource reads.
const Schema = `
CREATE TABLE IF NOT EXISTS lessons (
	id        TEXT PRIMARY KEY,
	title     TEXT NOT NULL,
	topic     TEXT NOT NULL,
	level     INT,
	prereqs   TEXT[],
	tags      TEXT[],
	quiz_pool JSONB
)`

// PostgresSource reads the lesson catalog from the lessons table, projecting
// only the columns the recommender uses.
type PostgresSource struct {
	pool *pgxpool.Pool
}

// NewPostgresSource creates a catalog source backed by pool.
func NewPostgresSource(pool *pgxpool.Pool) *PostgresSource {
	return &PostgresSource{pool: pool}
}

func (s *PostgresSource) Name() string {
	return "postgres"
}

func (s *PostgresSource) Lessons(ctx context.Context) (Catalog, error) {
	if s == nil || s.pool == nil {
		return nil, fmt.Errorf("catalog pool is nil")
	}

	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := s.pool.Query(ctx,
		`SELECT id::text, title, topic, COALESCE(level, 0), COALESCE(prereqs, '{}'),
		        COALESCE(tags, '{}'), COALESCE(quiz_pool, '[]'::jsonb)
		 FROM lessons`,
	)
	if err != nil {
		return nil, fmt.Errorf("query lessons: %w", err)
	}
	defer rows.Close()

	c := make(Catalog)
	for rows.Next() {
		var l Lesson
		var quizPool []byte
		if err := rows.Scan(&l.ID, &l.Title, &l.Topic, &l.Level, &l.Prereqs, &l.Tags, &quizPool); err != nil {
			return nil, fmt.Errorf("scan lesson: %w", err)
		}
		if err := json.Unmarshal(quizPool, &l.QuizPool); err != nil {
			return nil, fmt.Errorf("decode quiz_pool for %s: %w", l.ID, err)
		}
		c[l.ID] = l
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate lessons: %w", err)
	}

	return c, nil
}
