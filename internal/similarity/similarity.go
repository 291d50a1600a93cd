// Package similarity implements cosine similarity scoring and deterministic
// ranking over candidate vectors.
package similarity

import (
	"math"
	"sort"

	"github.com/hub-aura/aurahub/internal/domain"
)

// Scorer scores candidates against one query vector. The query norm is
// computed once at construction, not per candidate.
type Scorer struct {
	query []float32
	norm  float64
}

// NewScorer creates a scorer for the given query vector.
func NewScorer(query []float32) *Scorer {
	return &Scorer{query: query, norm: Norm(query)}
}

// Dims returns the query vector dimensionality.
func (s *Scorer) Dims() int { return len(s.query) }

// Score computes the cosine similarity against one candidate.
//
// A zero-norm candidate (or zero-norm query) is incomputable: ok is false and
// the score carries no meaning. 0 is a legitimate "unrelated" score and is
// never returned for the incomputable case. A length mismatch is a contract
// violation and returns ErrDimensionMismatch.
func (s *Scorer) Score(candidate []float32) (score float64, ok bool, err error) {
	if len(candidate) != len(s.query) {
		return 0, false, domain.NewDimensionMismatch(len(s.query), len(candidate))
	}

	var dot, candSq float64
	for i, q := range s.query {
		c := float64(candidate[i])
		dot += float64(q) * c
		candSq += c * c
	}

	denom := s.norm * math.Sqrt(candSq)
	if denom == 0 {
		return 0, false, nil
	}
	return dot / denom, true, nil
}

// Norm returns the Euclidean norm of a vector.
func Norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

// Cosine is the one-shot form of Scorer.Score for callers comparing a single
// pair.
func Cosine(a, b []float32) (float64, bool, error) {
	return NewScorer(a).Score(b)
}

// Candidate is one scored record reference.
type Candidate struct {
	ID      int64
	Score   float64
	Defined bool
}

// Rank sorts candidates in place: defined scores descending, ties broken by
// record id ascending; undefined scores after all defined ones, by record id
// ascending. The order is fully deterministic for a fixed input set.
func Rank(candidates []Candidate) {
	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.Defined != b.Defined {
			return a.Defined
		}
		if a.Defined && a.Score != b.Score {
			return a.Score > b.Score
		}
		return a.ID < b.ID
	})
}
