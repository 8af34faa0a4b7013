package mastery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	redisKeyPrefix  = "learning_state:"
	redisMaxRetries = 16
)

// ErrConflict is returned when an optimistic update keeps losing races.
var ErrConflict = errors.New("learning state update conflict")

// RedisStore keeps each learner's state as one JSON document. Mutations use
// WATCH/MULTI so concurrent writers retry instead of overwriting each other.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a learning state store backed by client.
func NewRedisStore(client *redis.Client) (*RedisStore, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}
	return &RedisStore{client: client}, nil
}

func redisKey(userID string) string {
	return redisKeyPrefix + userID
}

func (s *RedisStore) Get(ctx context.Context, userID string) (*LearningState, bool, error) {
	st, err := s.load(ctx, s.client, userID)
	if err != nil {
		return nil, false, fmt.Errorf("get learning state: %w", err)
	}
	if st == nil {
		return nil, false, nil
	}
	return st, true, nil
}

func (s *RedisStore) GetOrCreate(ctx context.Context, userID string) (*LearningState, error) {
	st, err := s.update(ctx, userID, func(*LearningState) bool { return false })
	if err != nil {
		return nil, fmt.Errorf("get or create learning state: %w", err)
	}
	return st, nil
}

func (s *RedisStore) RecordMastery(ctx context.Context, userID, lessonID string, value float64) (*LearningState, error) {
	st, err := s.update(ctx, userID, func(st *LearningState) bool {
		st.ApplyMastery(lessonID, value)
		return true
	})
	if err != nil {
		return nil, fmt.Errorf("record mastery: %w", err)
	}
	return st, nil
}

func (s *RedisStore) AddSeen(ctx context.Context, userID, lessonID string) error {
	_, err := s.update(ctx, userID, func(st *LearningState) bool {
		return st.AddSeen(lessonID)
	})
	if err != nil {
		return fmt.Errorf("add seen: %w", err)
	}
	return nil
}

func (s *RedisStore) SetLevelOverride(ctx context.Context, userID string, rank Rank) error {
	_, err := s.update(ctx, userID, func(st *LearningState) bool {
		st.LevelOverride = rank
		st.UpdatedAt = time.Now()
		return true
	})
	if err != nil {
		return fmt.Errorf("set level override: %w", err)
	}
	return nil
}

func (s *RedisStore) SetGoalsOverride(ctx context.Context, userID string, goals []string) error {
	_, err := s.update(ctx, userID, func(st *LearningState) bool {
		st.GoalsOverride = append([]string(nil), goals...)
		st.UpdatedAt = time.Now()
		return true
	})
	if err != nil {
		return fmt.Errorf("set goals override: %w", err)
	}
	return nil
}

// update runs mutate inside a WATCH transaction. A state that does not exist
// yet is always written, even when mutate reports no change.
func (s *RedisStore) update(ctx context.Context, userID string, mutate func(*LearningState) bool) (*LearningState, error) {
	key := redisKey(userID)
	var result *LearningState

	txf := func(tx *redis.Tx) error {
		st, err := s.load(ctx, tx, userID)
		if err != nil {
			return err
		}
		created := st == nil
		if created {
			st = NewLearningState(userID)
		}
		changed := mutate(st)
		result = st
		if !created && !changed {
			return nil
		}

		payload, err := json.Marshal(st)
		if err != nil {
			return fmt.Errorf("marshal learning state: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, 0)
			return nil
		})
		return err
	}

	for range redisMaxRetries {
		err := s.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return result.Clone(), nil
	}
	return nil, ErrConflict
}

// getter is the read side shared by *redis.Client and *redis.Tx.
type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func (s *RedisStore) load(ctx context.Context, c getter, userID string) (*LearningState, error) {
	raw, err := c.Get(ctx, redisKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var st LearningState
	if err := json.Unmarshal(raw, &st); err != nil {
		return nil, fmt.Errorf("decode learning state: %w", err)
	}
	return st.Clone(), nil
}
