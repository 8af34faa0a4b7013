package mastery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const dbTimeout = 5 * time.Second

// Schema creates the learning_states table used by PostgresStore.
const Schema = `
CREATE TABLE IF NOT EXISTS learning_states (
	user_id        TEXT PRIMARY KEY,
	mastery        JSONB       NOT NULL DEFAULT '{}'::jsonb,
	known          TEXT[]      NOT NULL DEFAULT '{}',
	seen           TEXT[]      NOT NULL DEFAULT '{}',
	goals_override TEXT[],
	level_override TEXT,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

const stateColumns = `user_id, mastery, known, seen, goals_override, COALESCE(level_override, ''), created_at, updated_at`

// PostgresStore is a PostgreSQL-backed Store. Each mutation is a single
// INSERT ... ON CONFLICT statement, so concurrent writers never lose updates:
// mastery merges with GREATEST and seen with a de-duplicated append.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a learning state store backed by pool.
func NewPostgresStore(pool *pgxpool.Pool) (*PostgresStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is nil")
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Get(ctx context.Context, userID string) (*LearningState, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	st, err := scanState(s.pool.QueryRow(ctx,
		`SELECT `+stateColumns+` FROM learning_states WHERE user_id = $1`,
		userID,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get learning state: %w", err)
	}
	return st, true, nil
}

func (s *PostgresStore) GetOrCreate(ctx context.Context, userID string) (*LearningState, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	// The no-op update makes RETURNING yield the existing row on conflict.
	st, err := scanState(s.pool.QueryRow(ctx,
		`INSERT INTO learning_states (user_id) VALUES ($1)
		 ON CONFLICT (user_id) DO UPDATE SET user_id = EXCLUDED.user_id
		 RETURNING `+stateColumns,
		userID,
	))
	if err != nil {
		return nil, fmt.Errorf("get or create learning state: %w", err)
	}
	return st, nil
}

func (s *PostgresStore) RecordMastery(ctx context.Context, userID, lessonID string, value float64) (*LearningState, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	st, err := scanState(s.pool.QueryRow(ctx,
		`INSERT INTO learning_states (user_id, mastery)
		 VALUES ($1, jsonb_build_object($2::text, $3::float8))
		 ON CONFLICT (user_id) DO UPDATE SET
		   mastery = learning_states.mastery || jsonb_build_object(
		     $2::text,
		     GREATEST(COALESCE((learning_states.mastery ->> $2::text)::float8, 0), $3::float8)
		   ),
		   seen = array_remove(learning_states.seen, $2::text),
		   updated_at = NOW()
		 RETURNING `+stateColumns,
		userID,
		lessonID,
		value,
	))
	if err != nil {
		return nil, fmt.Errorf("record mastery: %w", err)
	}
	return st, nil
}

func (s *PostgresStore) AddSeen(ctx context.Context, userID, lessonID string) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO learning_states (user_id, seen) VALUES ($1, ARRAY[$2::text])
		 ON CONFLICT (user_id) DO UPDATE SET
		   seen = CASE WHEN $2::text = ANY(learning_states.seen)
		               THEN learning_states.seen
		               ELSE array_append(learning_states.seen, $2::text) END,
		   updated_at = NOW()`,
		userID,
		lessonID,
	)
	if err != nil {
		return fmt.Errorf("add seen: %w", err)
	}
	return nil
}

func (s *PostgresStore) SetLevelOverride(ctx context.Context, userID string, rank Rank) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO learning_states (user_id, level_override) VALUES ($1, $2)
		 ON CONFLICT (user_id) DO UPDATE SET level_override = $2, updated_at = NOW()`,
		userID,
		nullIfEmpty(string(rank)),
	)
	if err != nil {
		return fmt.Errorf("set level override: %w", err)
	}
	return nil
}

func (s *PostgresStore) SetGoalsOverride(ctx context.Context, userID string, goals []string) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO learning_states (user_id, goals_override) VALUES ($1, $2)
		 ON CONFLICT (user_id) DO UPDATE SET goals_override = $2, updated_at = NOW()`,
		userID,
		goals,
	)
	if err != nil {
		return fmt.Errorf("set goals override: %w", err)
	}
	return nil
}

func scanState(row pgx.Row) (*LearningState, error) {
	st := &LearningState{}
	var masteryBytes []byte
	var rank string

	if err := row.Scan(
		&st.UserID,
		&masteryBytes,
		&st.Known,
		&st.Seen,
		&st.GoalsOverride,
		&rank,
		&st.CreatedAt,
		&st.UpdatedAt,
	); err != nil {
		return nil, err
	}

	st.Mastery = map[string]float64{}
	if len(masteryBytes) > 0 {
		if err := json.Unmarshal(masteryBytes, &st.Mastery); err != nil {
			return nil, fmt.Errorf("decode mastery: %w", err)
		}
	}
	st.LevelOverride = Rank(rank)
	if st.Known == nil {
		st.Known = []string{}
	}
	if st.Seen == nil {
		st.Seen = []string{}
	}
	return st, nil
}

func nullIfEmpty(v string) any {
	if v == "" {
		return nil
	}
	return v
}
