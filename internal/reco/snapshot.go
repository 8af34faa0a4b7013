package reco

import (
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"hash"
	"math"
	"slices"
	"time"

	"golang.org/x/crypto/blake2b"

	"github.com/themycoder/guitarchord-sub001/internal/catalog"
	"github.com/themycoder/guitarchord-sub001/internal/factors"
	"github.com/themycoder/guitarchord-sub001/internal/vector"
)

// Snapshot is the read-only state every recommendation and quiz request is
// served from. It is never mutated after NewSnapshot returns; reloading
// builds a new one.
type Snapshot struct {
	lessons     catalog.Catalog
	content     map[string][]float64
	itemFactors factors.Result
	userFactors factors.Result
	dim         int

	CatalogStatus catalog.Status
	CatalogSource string
	Version       string
	LoadedAt      time.Time
}

// NewSnapshot derives content vectors for every lesson. When item factors are
// available their dimension overrides dim.
func NewSnapshot(cat catalog.Result, items, users factors.Result, dim int) *Snapshot {
	if dim <= 0 {
		dim = vector.DefaultDim
	}
	if items.Available() && items.Dim > 0 {
		dim = items.Dim
	}

	s := &Snapshot{
		lessons:       cat.Lessons,
		content:       make(map[string][]float64, len(cat.Lessons)),
		itemFactors:   items,
		userFactors:   users,
		dim:           dim,
		CatalogStatus: cat.Status,
		CatalogSource: cat.Source,
		LoadedAt:      time.Now(),
	}
	if s.lessons == nil {
		s.lessons = catalog.Catalog{}
	}
	for id, l := range s.lessons {
		s.content[id] = vector.Vectorize(l.Tags, dim)
	}
	s.Version = s.fingerprint()
	return s
}

// Dim returns the content vector dimension.
func (s *Snapshot) Dim() int { return s.dim }

// Len returns the number of lessons.
func (s *Snapshot) Len() int { return len(s.lessons) }

// CFAvailable reports whether item and user factors were both loaded.
func (s *Snapshot) CFAvailable() bool {
	return s.itemFactors.Available() && s.userFactors.Available()
}

// Lesson returns metadata for id.
func (s *Snapshot) Lesson(id string) (catalog.Lesson, bool) {
	l, ok := s.lessons[id]
	return l, ok
}

// fingerprint hashes the catalog and factors in id order.
func (s *Snapshot) fingerprint() string {
	h, _ := blake2b.New256(nil)

	ids := s.lessons.IDs()
	slices.Sort(ids)
	for _, id := range ids {
		b, _ := json.Marshal(s.lessons[id])
		h.Write([]byte(id))
		h.Write(b)
	}
	for _, fr := range []factors.Result{s.itemFactors, s.userFactors} {
		writeFactors(h, fr.Factors)
	}

	sum := h.Sum(nil)
	return hex.EncodeToString(sum[:8])
}

func writeFactors(h hash.Hash, m factors.Map) {
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	var buf [8]byte
	for _, id := range ids {
		h.Write([]byte(id))
		for _, x := range m[id] {
			binary.LittleEndian.PutUint64(buf[:], math.Float64bits(x))
			h.Write(buf[:])
		}
	}
}
