// Package reco decides which lesson a learner should study next and which quiz
// items to practise. Requests are served lock-free from an immutable Snapshot
// that is swapped atomically on reload.
package reco

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/themycoder/guitarchord-sub001/internal/catalog"
	"github.com/themycoder/guitarchord-sub001/internal/factors"
	"github.com/themycoder/guitarchord-sub001/internal/vector"
)

// ErrNotInitialized is returned by every read operation until Init succeeds.
var ErrNotInitialized = errors.New("recommender not initialized")

const defaultK = 5

// Params describes one recommendation request. A nil MaxLevel means level 1;
// K <= 0 means the engine default.
type Params struct {
	UserID   string
	Goals    []string
	Known    []string
	Seen     []string
	Mastered map[string]float64
	K        int
	MaxLevel *int
}

// Recommendation is one ranked lesson. Score is rounded for display.
type Recommendation struct {
	ID    string  `json:"id"`
	Title string  `json:"title"`
	Topic string  `json:"topic"`
	Level int     `json:"level"`
	Score float64 `json:"score"`
}

// EngineConfig holds the sources the engine loads its snapshot from.
type EngineConfig struct {
	Primary    catalog.Source
	Fallback   catalog.Source
	FactorsDir string // empty disables collaborative filtering
	Dim        int    // content vector dimension when no factors dictate one
	DefaultK   int
	Metrics    *Metrics
}

// Engine serves recommendations from the current snapshot.
type Engine struct {
	primary    catalog.Source
	fallback   catalog.Source
	factorsDir string
	dim        int
	defaultK   int
	metrics    *Metrics

	snap     atomic.Pointer[Snapshot]
	reloadMu sync.Mutex
}

// NewEngine creates an uninitialized engine.
func NewEngine(cfg EngineConfig) *Engine {
	dim := cfg.Dim
	if dim <= 0 {
		dim = vector.DefaultDim
	}
	k := cfg.DefaultK
	if k <= 0 {
		k = defaultK
	}
	return &Engine{
		primary:    cfg.Primary,
		fallback:   cfg.Fallback,
		factorsDir: cfg.FactorsDir,
		dim:        dim,
		defaultK:   k,
		metrics:    cfg.Metrics,
	}
}

// Init loads the first snapshot. It must complete before the engine serves
// requests; until then reads fail with ErrNotInitialized.
func (e *Engine) Init(ctx context.Context) error {
	return e.Reload(ctx)
}

// Reload builds a new snapshot and swaps it in. On failure the current
// snapshot, if any, keeps serving.
func (e *Engine) Reload(ctx context.Context) error {
	e.reloadMu.Lock()
	defer e.reloadMu.Unlock()

	start := time.Now()
	var (
		cat          catalog.Result
		items, users factors.Result
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		cat = catalog.Load(gctx, e.primary, e.fallback)
		return cat.Err
	})
	if e.factorsDir != "" {
		g.Go(func() error {
			items = factors.LoadItemFactors(e.factorsDir)
			return nil
		})
		g.Go(func() error {
			users = factors.LoadUserFactors(e.factorsDir)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		e.metrics.observeReload(false)
		return fmt.Errorf("load snapshot: %w", err)
	}

	report := catalog.ValidatePrereqs(cat.Lessons)
	for _, c := range report.Cycles {
		slog.Warn("lessons locked by prerequisite cycle", "cycle", c.Path)
	}
	for _, d := range report.Dangling {
		slog.Warn("unknown prerequisite", "lesson_id", d.LessonID, "prereq", d.Prereq)
	}

	snap := NewSnapshot(cat, items, users, e.dim)
	prev := e.snap.Swap(snap)
	e.metrics.observeSnapshot(snap)

	if snap.itemFactors.Available() {
		slog.Info("using collaborative item factors", "dim", snap.Dim())
	} else {
		slog.Info("no item factors, content-based scoring only", "dim", snap.Dim())
	}
	attrs := []any{
		"lessons", snap.Len(),
		"source", snap.CatalogSource,
		"catalog_status", snap.CatalogStatus.String(),
		"cf", snap.CFAvailable(),
		"version", snap.Version,
		"duration_ms", time.Since(start).Milliseconds(),
	}
	if prev != nil {
		attrs = append(attrs, "previous_version", prev.Version)
	}
	slog.Info("recommendation snapshot loaded", attrs...)

	return nil
}

// Snapshot returns the current snapshot.
func (e *Engine) Snapshot() (*Snapshot, error) {
	s := e.snap.Load()
	if s == nil {
		return nil, ErrNotInitialized
	}
	return s, nil
}

// RecommendNext ranks the lessons the learner is eligible for and returns the
// top K.
func (e *Engine) RecommendNext(p Params) ([]Recommendation, error) {
	start := time.Now()
	s, err := e.Snapshot()
	if err != nil {
		e.metrics.observeRecommend(false, 0, time.Since(start))
		return nil, err
	}
	if p.K <= 0 {
		p.K = e.defaultK
	}

	recs, candidates := s.Recommend(p)
	e.metrics.observeRecommend(true, candidates, time.Since(start))
	return recs, nil
}

// MetaFor returns the catalog entry for id.
func (e *Engine) MetaFor(id string) (catalog.Lesson, bool, error) {
	s, err := e.Snapshot()
	if err != nil {
		return catalog.Lesson{}, false, err
	}
	l, ok := s.Lesson(id)
	return l, ok, nil
}

// Status summarizes the serving snapshot.
type Status struct {
	Initialized   bool      `json:"initialized"`
	Lessons       int       `json:"lessons"`
	Dim           int       `json:"dim"`
	CF            bool      `json:"cf"`
	CatalogSource string    `json:"catalog_source,omitempty"`
	CatalogStatus string    `json:"catalog_status,omitempty"`
	Version       string    `json:"version,omitempty"`
	LoadedAt      time.Time `json:"loaded_at,omitzero"`
}

// Status reports the current snapshot, or Initialized=false.
func (e *Engine) Status() Status {
	s := e.snap.Load()
	if s == nil {
		return Status{}
	}
	return Status{
		Initialized:   true,
		Lessons:       s.Len(),
		Dim:           s.Dim(),
		CF:            s.CFAvailable(),
		CatalogSource: s.CatalogSource,
		CatalogStatus: s.CatalogStatus.String(),
		Version:       s.Version,
		LoadedAt:      s.LoadedAt,
	}
}

type scored struct {
	id    string
	score float64
}

// Recommend filters the catalog to eligible candidates, scores them and
// returns the top p.K (default 5) by descending score, ties broken by
// ascending id. It also returns the candidate count.
func (s *Snapshot) Recommend(p Params) ([]Recommendation, int) {
	k := p.K
	if k <= 0 {
		k = defaultK
	}
	prof := s.Profile(p)
	known := toSet(p.Known)

	out := make([]scored, 0, len(s.lessons))
	for id, l := range s.lessons {
		if _, ok := known[id]; ok {
			continue
		}
		if _, ok := prof.Mastered[id]; ok {
			continue
		}
		if !prereqsMet(l.Prereqs, prof.Mastered) {
			continue
		}
		out = append(out, scored{id: id, score: s.Score(prof, id)})
	}

	slices.SortFunc(out, func(a, b scored) int {
		if c := cmp.Compare(b.score, a.score); c != 0 {
			return c
		}
		return cmp.Compare(a.id, b.id)
	})

	n := min(k, len(out))
	recs := make([]Recommendation, 0, n)
	for _, c := range out[:n] {
		l := s.lessons[c.id]
		recs = append(recs, Recommendation{
			ID:    c.id,
			Title: l.Title,
			Topic: l.Topic,
			Level: l.Level,
			Score: round3(c.score),
		})
	}
	return recs, len(out)
}

func prereqsMet(prereqs []string, mastered map[string]struct{}) bool {
	for _, p := range prereqs {
		if _, ok := mastered[p]; !ok {
			return false
		}
	}
	return true
}

func round3(x float64) float64 {
	return math.Round(x*1000) / 1000
}
