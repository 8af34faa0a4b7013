package testinfra

import (
	"context"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/themycoder/guitarchord-sub001/internal/platform/database"
)

// DefaultPostgresImage is the image NewPostgres starts.
const DefaultPostgresImage = "postgres:16-alpine"

// SkipIfNoDocker skips the test in short mode or when no container provider
// is reachable.
func SkipIfNoDocker(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)
}

// PostgresOption configures the Postgres container.
type PostgresOption func(*postgresConfig)

type postgresConfig struct {
	image        string
	maxConns     int
	startTimeout time.Duration
}

// WithPostgresImage sets a custom Postgres image.
func WithPostgresImage(image string) PostgresOption {
	return func(c *postgresConfig) {
		c.image = image
	}
}

// WithMaxConns sizes the pool handed to the test.
func WithMaxConns(n int) PostgresOption {
	return func(c *postgresConfig) {
		c.maxConns = n
	}
}

// WithStartTimeout bounds container startup.
func WithStartTimeout(d time.Duration) PostgresOption {
	return func(c *postgresConfig) {
		c.startTimeout = d
	}
}

// NewPostgres starts a Postgres container, connects to it and applies
// migrations. The container and pool are released when the test ends.
func NewPostgres(t *testing.T, migrations []database.Migration, opts ...PostgresOption) *database.DB {
	t.Helper()
	SkipIfNoDocker(t)

	cfg := &postgresConfig{
		image:        DefaultPostgresImage,
		maxConns:     4,
		startTimeout: 2 * time.Minute,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	startCtx, cancel := context.WithTimeout(t.Context(), cfg.startTimeout)
	defer cancel()

	ctr, err := postgres.Run(startCtx, cfg.image,
		postgres.WithDatabase("guitar"),
		postgres.WithUsername("guitar"),
		postgres.WithPassword("guitar"),
		postgres.BasicWaitStrategies(),
	)
	if err != nil {
		t.Fatalf("start postgres container: %v", err)
	}
	t.Cleanup(func() { CleanupContainer(t, ctr) })

	url, err := ctr.ConnectionString(startCtx, "sslmode=disable")
	if err != nil {
		t.Fatalf("postgres connection string: %v", err)
	}
	db, err := database.New(t.Context(), url, cfg.maxConns, 1)
	if err != nil {
		t.Fatalf("connect postgres: %v", err)
	}
	t.Cleanup(db.Close)

	if len(migrations) > 0 {
		if err := db.Migrate(t.Context(), migrations...); err != nil {
			t.Fatalf("migrate: %v", err)
		}
	}
	return db
}

// CleanupContainer terminates a container and logs instead of failing.
func CleanupContainer(t *testing.T, ctr testcontainers.Container) {
	t.Helper()
	if ctr == nil {
		return
	}
	if err := testcontainers.TerminateContainer(ctr); err != nil {
		t.Logf("Warning: failed to terminate container: %v", err)
	}
}
