package testinfra

import (
	"cmp"
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/themycoder/guitarchord-sub001/internal/platform/cache"
)

const (
	// DefaultRedisURL points at a scratch database on a local server.
	DefaultRedisURL = "redis://localhost:6379/15"
	scanBatch       = 100
)

// NewRedis connects to GUITAR_TEST_REDIS_URL and skips the test when nothing
// answers. Keys under each prefix are removed when the test ends.
func NewRedis(t *testing.T, prefixes ...string) *cache.Cache {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping redis test in short mode")
	}

	url := cmp.Or(os.Getenv("GUITAR_TEST_REDIS_URL"), DefaultRedisURL)
	ctx, cancel := context.WithTimeout(t.Context(), time.Second)
	defer cancel()
	c, err := cache.New(ctx, url)
	if err != nil {
		t.Skipf("redis unavailable: %v", err)
	}

	t.Cleanup(func() {
		ctx := context.Background()
		for _, prefix := range prefixes {
			if _, err := DeletePrefix(ctx, c.Client, prefix); err != nil {
				t.Logf("Warning: cleanup %s: %v", prefix, err)
			}
		}
		c.Close()
	})
	return c
}

// DeletePrefix removes every key starting with prefix using SCAN and returns
// how many were deleted.
func DeletePrefix(ctx context.Context, client *redis.Client, prefix string) (int, error) {
	var (
		cursor  uint64
		deleted int
	)
	for {
		keys, next, err := client.Scan(ctx, cursor, prefix+"*", scanBatch).Result()
		if err != nil {
			return deleted, fmt.Errorf("scan %q: %w", prefix, err)
		}
		if len(keys) > 0 {
			n, err := client.Del(ctx, keys...).Result()
			if err != nil {
				return deleted, fmt.Errorf("delete %q keys: %w", prefix, err)
			}
			deleted += int(n)
		}
		if next == 0 {
			return deleted, nil
		}
		cursor = next
	}
}
