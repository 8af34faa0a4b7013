// Package cache connects to the Redis instance that holds learner state and
// stated learner profiles.
package cache

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	connectAttempts = 5
	connectBackoff  = 500 * time.Millisecond
)

// Cache holds the shared Redis client.
type Cache struct {
	Client *redis.Client
}

// ParseURL turns a redis:// URL into client options with the service's
// network timeouts applied.
func ParseURL(url string) (*redis.Options, error) {
	if url == "" {
		return nil, fmt.Errorf("cache URL is empty")
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid cache URL: %w", err)
	}
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second
	return opts, nil
}

// New connects and waits for the server to answer a ping. Redis often
// starts after the service in compose setups, so the ping is retried with a
// doubling backoff until ctx ends or the attempts run out.
func New(ctx context.Context, url string) (*Cache, error) {
	opts, err := ParseURL(url)
	if err != nil {
		return nil, err
	}
	c := &Cache{Client: redis.NewClient(opts)}

	if err := c.waitReady(ctx, opts.Addr); err != nil {
		c.Client.Close()
		return nil, err
	}
	slog.Info("cache connected", "addr", opts.Addr, "db", opts.DB)
	return c, nil
}

func (c *Cache) waitReady(ctx context.Context, addr string) error {
	backoff := connectBackoff
	for attempt := 1; ; attempt++ {
		err := c.HealthCheck(ctx)
		if err == nil {
			return nil
		}
		if attempt == connectAttempts || ctx.Err() != nil {
			return fmt.Errorf("cache %s unreachable after %d attempts: %w", addr, attempt, err)
		}
		slog.Warn("cache not reachable, retrying", "addr", addr, "attempt", attempt, "backoff", backoff, "error", err)
		select {
		case <-ctx.Done():
			return fmt.Errorf("cache %s: %w", addr, ctx.Err())
		case <-time.After(backoff):
		}
		backoff *= 2
	}
}

// Close releases the client's connections.
func (c *Cache) Close() error {
	return c.Client.Close()
}

// HealthCheck pings the server.
func (c *Cache) HealthCheck(ctx context.Context) error {
	return c.Client.Ping(ctx).Err()
}
