// Package catalog loads lesson metadata for the recommender, first from the
// primary document store and otherwise from a static snapshot file.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

var (
	// ErrSourceUnavailable means neither the primary store nor the fallback
	// snapshot produced a catalog.
	ErrSourceUnavailable = errors.New("lesson catalog unavailable")

	// ErrMalformedSnapshot means a snapshot exists but could not be parsed.
	ErrMalformedSnapshot = errors.New("malformed catalog snapshot")
)

// Source yields the full lesson catalog.
type Source interface {
	Name() string
	Lessons(ctx context.Context) (Catalog, error)
}

// Status tags where a loaded catalog came from.
type Status int

const (
	StatusUnavailable Status = iota
	StatusLoaded
	StatusFallback
)

func (s Status) String() string {
	switch s {
	case StatusLoaded:
		return "loaded"
	case StatusFallback:
		return "fallback"
	default:
		return "unavailable"
	}
}

// Result is the outcome of Load.
type Result struct {
	Status  Status
	Lessons Catalog
	Source  string
	Err     error
}

// Load reads the catalog from primary, falling back to fallback when primary
// is nil, fails, or is empty. Either source may be nil. When both fail the
// result is StatusUnavailable and Err wraps ErrSourceUnavailable.
func Load(ctx context.Context, primary, fallback Source) Result {
	var errs []error

	if primary != nil {
		lessons, err := primary.Lessons(ctx)
		switch {
		case err != nil:
			slog.Warn("catalog primary load failed, using fallback", "source", primary.Name(), "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", primary.Name(), err))
		case len(lessons) == 0:
			slog.Warn("catalog primary is empty, using fallback", "source", primary.Name())
		default:
			lessons.normalize()
			return Result{Status: StatusLoaded, Lessons: lessons, Source: primary.Name()}
		}
	}

	if fallback != nil {
		lessons, err := fallback.Lessons(ctx)
		if err == nil {
			lessons.normalize()
			return Result{Status: StatusFallback, Lessons: lessons, Source: fallback.Name()}
		}
		errs = append(errs, fmt.Errorf("%s: %w", fallback.Name(), err))
	}

	if len(errs) == 0 {
		return Result{Status: StatusUnavailable, Err: fmt.Errorf("%w: no usable source", ErrSourceUnavailable)}
	}
	return Result{
		Status: StatusUnavailable,
		Err:    fmt.Errorf("%w: %w", ErrSourceUnavailable, errors.Join(errs...)),
	}
}
