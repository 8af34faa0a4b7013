// Package database owns the PostgreSQL pool shared by the lesson catalog,
// the learning state store and the event log.
package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	connectAttempts = 5
	connectBackoff  = 500 * time.Millisecond
)

const migrationsTable = `
CREATE TABLE IF NOT EXISTS schema_migrations (
	name       TEXT PRIMARY KEY,
	applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// DB holds the pgx pool.
type DB struct {
	Pool *pgxpool.Pool
}

// Migration is a named schema change. Each name is applied at most once.
type Migration struct {
	Name string
	SQL  string
}

// ParseURL turns a postgres:// URL into pool settings sized by maxConns and
// minConns.
func ParseURL(url string, maxConns, minConns int) (*pgxpool.Config, error) {
	if url == "" {
		return nil, fmt.Errorf("database URL is empty")
	}
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("invalid database URL: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = int32(maxConns)
	}
	if minConns >= 0 && int32(minConns) <= cfg.MaxConns {
		cfg.MinConns = int32(minConns)
	}
	cfg.MaxConnLifetime = 30 * time.Minute
	cfg.MaxConnIdleTime = 5 * time.Minute
	return cfg, nil
}

// New opens the pool and waits until the server answers a ping, retrying with
// a doubling backoff until ctx ends or the attempts run out.
func New(ctx context.Context, url string, maxConns, minConns int) (*DB, error) {
	cfg, err := ParseURL(url, maxConns, minConns)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}
	db := &DB{Pool: pool}

	host := cfg.ConnConfig.Host
	if err := db.waitReady(ctx, host); err != nil {
		pool.Close()
		return nil, err
	}
	slog.Info("database connected", "host", host, "database", cfg.ConnConfig.Database, "max_conns", cfg.MaxConns)
	return db, nil
}

func (db *DB) waitReady(ctx context.Context, host string) error {
	backoff := connectBackoff
	for attempt := 1; ; attempt++ {
		err := db.HealthCheck(ctx)
		if err == nil {
			return nil
		}
		if attempt == connectAttempts || ctx.Err() != nil {
			return fmt.Errorf("database %s unreachable after %d attempts: %w", host, attempt, err)
		}
		slog.Warn("database not reachable, retrying", "host", host, "attempt", attempt, "backoff", backoff, "error", err)
		select {
		case <-ctx.Done():
			return fmt.Errorf("database %s: %w", host, ctx.Err())
		case <-time.After(backoff):
		}
		backoff *= 2
	}
}

// Migrate applies the migrations not yet recorded in schema_migrations, in
// order and inside one transaction.
func (db *DB) Migrate(ctx context.Context, migrations ...Migration) error {
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin migration: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, migrationsTable); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}
	applied, err := appliedMigrations(ctx, tx)
	if err != nil {
		return err
	}

	var ran int
	for _, m := range migrations {
		if _, ok := applied[m.Name]; ok {
			continue
		}
		if _, err := tx.Exec(ctx, m.SQL); err != nil {
			return fmt.Errorf("migration %s: %w", m.Name, err)
		}
		if _, err := tx.Exec(ctx, `INSERT INTO schema_migrations (name) VALUES ($1)`, m.Name); err != nil {
			return fmt.Errorf("record migration %s: %w", m.Name, err)
		}
		applied[m.Name] = struct{}{}
		ran++
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit migration: %w", err)
	}

	slog.Info("database schema ready", "applied", ran, "total", len(migrations))
	return nil
}

func appliedMigrations(ctx context.Context, tx pgx.Tx) (map[string]struct{}, error) {
	rows, err := tx.Query(ctx, `SELECT name FROM schema_migrations`)
	if err != nil {
		return nil, fmt.Errorf("list migrations: %w", err)
	}
	names, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan migrations: %w", err)
	}
	applied := make(map[string]struct{}, len(names))
	for _, n := range names {
		applied[n] = struct{}{}
	}
	return applied, nil
}

// Close releases the pool.
func (db *DB) Close() {
	db.Pool.Close()
}

// HealthCheck pings the server.
func (db *DB) HealthCheck(ctx context.Context) error {
	return db.Pool.Ping(ctx)
}
