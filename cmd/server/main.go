package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/themycoder/guitarchord-sub001/internal/api"
	"github.com/themycoder/guitarchord-sub001/internal/catalog"
	"github.com/themycoder/guitarchord-sub001/internal/mastery"
	"github.com/themycoder/guitarchord-sub001/internal/platform/cache"
	"github.com/themycoder/guitarchord-sub001/internal/platform/config"
	"github.com/themycoder/guitarchord-sub001/internal/platform/database"
	"github.com/themycoder/guitarchord-sub001/internal/reco"
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(newLogger(cfg.Log, os.Stdout))

	// Graceful shutdown on SIGTERM/SIGINT.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	deps, err := openDeps(ctx, cfg)
	if err != nil {
		return err
	}
	defer deps.close()

	if cfg.Catalog.PrimaryEnabled && deps.db != nil {
		if err := deps.db.Migrate(ctx, database.Migration{Name: "lessons", SQL: catalog.Schema}); err != nil {
			return err
		}
	}

	engine := newEngine(cfg, deps.db)
	if err := engine.Init(ctx); err != nil {
		if errors.Is(err, catalog.ErrSourceUnavailable) {
			return fmt.Errorf("no lesson catalog available: %w", err)
		}
		return fmt.Errorf("initializing recommender: %w", err)
	}

	if cfg.Factors.Watch && cfg.Factors.Dir != "" {
		w, err := reco.NewWatcher(cfg.Factors.Dir, engine, cfg.Factors.Debounce)
		if err != nil {
			slog.Warn("factor watcher disabled", "dir", cfg.Factors.Dir, "error", err)
		} else {
			go w.Run(ctx)
		}
	}

	tracker, err := newTracker(ctx, cfg, deps)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      api.NewServer(api.Config{Engine: engine, Tracker: tracker, Checks: deps.checks()}).Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting", "addr", srv.Addr, "state_backend", cfg.State.Backend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
	return nil
}

// newLogger builds the process logger from config. Unknown levels mean info.
func newLogger(cfg config.LogConfig, w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.Format, "text") {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// deps holds the external connections the configured components need.
type deps struct {
	db    *database.DB
	cache *cache.Cache
}

func openDeps(ctx context.Context, cfg *config.Config) (*deps, error) {
	d := &deps{}
	if cfg.NeedsDatabase() {
		db, err := database.New(ctx, cfg.Database.URL, cfg.Database.MaxConns, cfg.Database.MinConns)
		if err != nil {
			// Without a database the snapshot can still serve the catalog.
			if cfg.State.Backend == config.BackendPostgres {
				return nil, fmt.Errorf("connecting to database: %w", err)
			}
			slog.Warn("database unavailable, catalog will use the snapshot", "error", err)
		} else {
			d.db = db
		}
	}
	if cfg.NeedsCache() {
		c, err := cache.New(ctx, cfg.Cache.URL)
		if err != nil {
			d.close()
			return nil, fmt.Errorf("connecting to cache: %w", err)
		}
		d.cache = c
	}
	return d, nil
}

func (d *deps) checks() map[string]api.Check {
	checks := map[string]api.Check{}
	if d.db != nil {
		checks["database"] = d.db.HealthCheck
	}
	if d.cache != nil {
		checks["cache"] = d.cache.HealthCheck
	}
	return checks
}

func (d *deps) close() {
	if d.db != nil {
		d.db.Close()
	}
	if d.cache != nil {
		if err := d.cache.Close(); err != nil {
			slog.Warn("closing cache", "error", err)
		}
	}
}

func newEngine(cfg *config.Config, db *database.DB) *reco.Engine {
	ecfg := reco.EngineConfig{
		FactorsDir: cfg.Factors.Dir,
		Dim:        cfg.Reco.Dim,
		DefaultK:   cfg.Reco.DefaultK,
		Metrics:    reco.NewMetrics(),
	}
	if cfg.Catalog.PrimaryEnabled && db != nil {
		ecfg.Primary = catalog.NewPostgresSource(db.Pool)
	}
	if cfg.Catalog.SnapshotPath != "" {
		ecfg.Fallback = catalog.NewFileSource(cfg.Catalog.SnapshotPath)
	}
	return reco.NewEngine(ecfg)
}

func newTracker(ctx context.Context, cfg *config.Config, d *deps) (*mastery.Tracker, error) {
	tcfg := mastery.TrackerConfig{}

	switch cfg.State.Backend {
	case config.BackendPostgres:
		err := d.db.Migrate(ctx,
			database.Migration{Name: "learning_states", SQL: mastery.Schema},
			database.Migration{Name: "learning_events", SQL: mastery.EventsSchema},
		)
		if err != nil {
			return nil, err
		}
		store, err := mastery.NewPostgresStore(d.db.Pool)
		if err != nil {
			return nil, err
		}
		tcfg.Store = store
		tcfg.Events = mastery.NewPostgresEventLogger(d.db.Pool)
	case config.BackendRedis:
		store, err := mastery.NewRedisStore(d.cache.Client)
		if err != nil {
			return nil, err
		}
		tcfg.Store = store
	default:
		tcfg.Store = mastery.NewMemoryStore()
	}

	if cfg.State.Profiles == config.BackendRedis {
		profiles, err := mastery.NewRedisProfiles(d.cache.Client)
		if err != nil {
			return nil, err
		}
		tcfg.Profiles = profiles
	} else {
		tcfg.Profiles = mastery.NewStaticProfiles()
	}

	return mastery.NewTracker(tcfg), nil
}
