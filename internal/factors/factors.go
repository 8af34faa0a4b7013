// Package factors loads the latent-factor snapshots produced by the offline
// training job. A missing or unreadable snapshot is a normal condition: the
// recommender falls back to content-only scoring.
package factors

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"

	"github.com/xeipuuv/gojsonschema"
)

// File names written by the training job.
const (
	ItemFactorsFile = "item_factors.json"
	UserFactorsFile = "user_factors.json"
)

// ErrMalformedSnapshot is set on a Result whose artifact exists but could not
// be parsed or validated.
var ErrMalformedSnapshot = errors.New("malformed factor snapshot")

// snapshotSchema describes {"<id>": [number, ...], ...}.
const snapshotSchema = `{
  "type": "object",
  "additionalProperties": {
    "type": "array",
    "minItems": 1,
    "items": {"type": "number"}
  }
}`

var schemaLoader = gojsonschema.NewStringLoader(snapshotSchema)

// Map is an id to latent vector mapping.
type Map map[string][]float64

// Status tags how a factor load ended.
type Status int

const (
	StatusUnavailable Status = iota
	StatusLoaded
)

func (s Status) String() string {
	if s == StatusLoaded {
		return "loaded"
	}
	return "unavailable"
}

// Result is the outcome of loading one factor snapshot. Err is only set when
// the artifact existed but was malformed.
type Result struct {
	Status  Status
	Factors Map
	Dim     int
	Path    string
	Err     error
}

// Available reports whether factors were loaded.
func (r Result) Available() bool {
	return r.Status == StatusLoaded && len(r.Factors) > 0
}

// Vector returns the factor vector for id, if any.
func (r Result) Vector(id string) ([]float64, bool) {
	if !r.Available() || id == "" {
		return nil, false
	}
	v, ok := r.Factors[id]
	return v, ok
}

// LoadItemFactors loads item_factors.json from dir.
func LoadItemFactors(dir string) Result {
	return Load(filepath.Join(dir, ItemFactorsFile))
}

// LoadUserFactors loads user_factors.json from dir.
func LoadUserFactors(dir string) Result {
	return Load(filepath.Join(dir, UserFactorsFile))
}

// Load reads a single factor snapshot from path.
func Load(path string) Result {
	res := Result{Path: path}
	if path == "" {
		return res
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			res.Err = fmt.Errorf("%w: %s: %v", ErrMalformedSnapshot, path, err)
			slog.Warn("factor snapshot unreadable", "path", path, "error", err)
		}
		return res
	}

	m, err := parse(data)
	if err != nil {
		res.Err = fmt.Errorf("%w: %s: %v", ErrMalformedSnapshot, path, err)
		slog.Warn("factor snapshot malformed, ignoring", "path", path, "error", err)
		return res
	}
	if len(m) == 0 {
		return res
	}

	res.Status = StatusLoaded
	res.Factors = m
	res.Dim = sampleDim(m)
	return res
}

func parse(data []byte) (Map, error) {
	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewBytesLoader(data))
	if err != nil {
		return nil, err
	}
	if !result.Valid() {
		errs := result.Errors()
		return nil, fmt.Errorf("schema: %s (%d violations)", errs[0], len(errs))
	}

	var m Map
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// sampleDim takes the length of the vector with the smallest id so the
// choice is stable across runs. Mixed lengths are logged, not rejected.
func sampleDim(m Map) int {
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	dim := len(m[ids[0]])
	for _, id := range ids[1:] {
		if len(m[id]) != dim {
			slog.Warn("factor vectors have mixed lengths", "dim", dim, "id", id, "len", len(m[id]))
			break
		}
	}
	return dim
}
