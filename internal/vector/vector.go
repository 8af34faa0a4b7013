// Package vector implements the feature-hashed content vectors and the small
// amount of linear algebra the recommender needs.
package vector

import (
	"math"
	"unicode/utf16"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// DefaultDim is the content vector dimension used when no factor model
// dictates one.
const DefaultDim = 64

const (
	fnvOffset uint32 = 2166136261
	fnvPrime  uint32 = 16777619
)

// Hash returns the 32-bit FNV-1a fingerprint of token. Each character
// contributes its first UTF-16 code unit, so astral characters hash by their
// high surrogate.
func Hash(token string) uint32 {
	h := fnvOffset
	for _, r := range token {
		unit := uint32(r)
		if r > 0xFFFF {
			hi, _ := utf16.EncodeRune(r)
			unit = uint32(hi)
		}
		h ^= unit
		h *= fnvPrime
	}
	return h
}

// Fold lowercases a tag or goal the same way Vectorize does.
func Fold(s string) string {
	return cases.Lower(language.Und).String(s)
}

// Vectorize turns tags into a bag-of-hashed-features vector of length dim.
// Distinct tags may collide in a bucket.
func Vectorize(tags []string, dim int) []float64 {
	if dim <= 0 {
		dim = DefaultDim
	}
	v := make([]float64, dim)
	caser := cases.Lower(language.Und)
	for _, t := range tags {
		v[Hash(caser.String(t))%uint32(dim)]++
	}
	return v
}

// Dot returns the dot product over the shorter of a and b.
func Dot(a, b []float64) float64 {
	n := min(len(a), len(b))
	var s float64
	for i := 0; i < n; i++ {
		s += a[i] * b[i]
	}
	return s
}

// Norm returns the Euclidean length of a.
func Norm(a []float64) float64 {
	return math.Sqrt(Dot(a, a))
}

// Cosine returns the cosine similarity of a and b, or 0 when either has no
// magnitude.
func Cosine(a, b []float64) float64 {
	na, nb := Norm(a), Norm(b)
	if na == 0 || nb == 0 {
		return 0
	}
	return Dot(a, b) / (na * nb)
}

// Sigmoid maps x into (0, 1).
func Sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}
