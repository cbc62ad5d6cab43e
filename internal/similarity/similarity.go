// Package similarity provides pure vector-similarity scoring and ranking.
// No I/O, no shared state.
package similarity

import (
	"math"
	"sort"
)

// Cosine returns the cosine similarity of a and b in [-1, 1]. Empty vectors,
// length-mismatched vectors, and zero-magnitude vectors score 0; the result
// is always defined, never NaN.
func Cosine(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// Candidate is an item with its embedding, ready to be ranked.
type Candidate struct {
	ID     string
	Vector []float32
}

// Ranked is a candidate with its similarity score to some query.
type Ranked struct {
	ID    string
	Score float64
}

// TopN scores every candidate against query by cosine similarity and returns
// the best min(n, len(candidates)) in non-increasing score order. The sort is
// stable, so equal scores keep input order.
func TopN(query []float32, candidates []Candidate, n int) []Ranked {
	if n <= 0 || len(candidates) == 0 {
		return nil
	}

	ranked := make([]Ranked, len(candidates))
	for i, c := range candidates {
		ranked[i] = Ranked{ID: c.ID, Score: Cosine(query, c.Vector)}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})

	if n < len(ranked) {
		ranked = ranked[:n]
	}
	return ranked
}
