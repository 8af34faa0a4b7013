package mastery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
)

// ProfileSource reads the learner-profile fields the tracker falls back on.
// Both lookups return zero values for unknown learners.
type ProfileSource interface {
	StatedGoals(ctx context.Context, userID string) ([]string, error)
	StatedLevel(ctx context.Context, userID string) (Rank, error)
}

// Profile is what a learner stated about themselves at sign-up.
type Profile struct {
	Goals []string `json:"goals"`
	Level Rank     `json:"level"`
}

// StaticProfiles is an in-memory ProfileSource.
type StaticProfiles struct {
	mu       sync.RWMutex
	profiles map[string]Profile
}

func NewStaticProfiles() *StaticProfiles {
	return &StaticProfiles{profiles: map[string]Profile{}}
}

// Set stores p for userID.
func (s *StaticProfiles) Set(userID string, p Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.Goals = append([]string(nil), p.Goals...)
	s.profiles[userID] = p
}

func (s *StaticProfiles) StatedGoals(_ context.Context, userID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.profiles[userID].Goals...), nil
}

func (s *StaticProfiles) StatedLevel(_ context.Context, userID string) (Rank, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.profiles[userID].Level, nil
}

const profileKeyPrefix = "user_profile:"

// RedisProfiles reads profiles stored as hashes under user_profile:{id} with a
// JSON-encoded "goals" field and a plain "level" field.
type RedisProfiles struct {
	client *redis.Client
}

func NewRedisProfiles(client *redis.Client) (*RedisProfiles, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}
	return &RedisProfiles{client: client}, nil
}

// Set writes p for userID.
func (r *RedisProfiles) Set(ctx context.Context, userID string, p Profile) error {
	goals, err := json.Marshal(p.Goals)
	if err != nil {
		return fmt.Errorf("marshal goals: %w", err)
	}
	if err := r.client.HSet(ctx, profileKeyPrefix+userID, "goals", goals, "level", string(p.Level)).Err(); err != nil {
		return fmt.Errorf("write profile: %w", err)
	}
	return nil
}

func (r *RedisProfiles) StatedGoals(ctx context.Context, userID string) ([]string, error) {
	raw, err := r.client.HGet(ctx, profileKeyPrefix+userID, "goals").Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read stated goals: %w", err)
	}
	var goals []string
	if err := json.Unmarshal(raw, &goals); err != nil {
		return nil, fmt.Errorf("decode stated goals: %w", err)
	}
	return goals, nil
}

func (r *RedisProfiles) StatedLevel(ctx context.Context, userID string) (Rank, error) {
	level, err := r.client.HGet(ctx, profileKeyPrefix+userID, "level").Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read stated level: %w", err)
	}
	return Rank(level), nil
}
