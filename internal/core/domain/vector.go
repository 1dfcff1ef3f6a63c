package domain

import (
	"fmt"
	"math"
)

// CosineSimilarity computes dot(a,b) / (|a|*|b|), range [-1, 1].
// A zero-magnitude argument yields 0 rather than NaN. Mismatched
// dimensions also yield 0; callers are expected to compare vectors
// from the same model only.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// ValidateVector rejects vectors that must not reach storage: empty
// vectors and vectors with NaN or infinite components.
func ValidateVector(v []float32) error {
	if len(v) == 0 {
		return fmt.Errorf("%w: empty embedding vector", ErrInvalidInput)
	}
	for i, c := range v {
		f := float64(c)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("%w: non-finite component at index %d", ErrInvalidInput, i)
		}
	}
	return nil
}

// ValidateThreshold checks a similarity threshold is within [0, 1].
func ValidateThreshold(threshold float64) error {
	if math.IsNaN(threshold) || threshold < 0 || threshold > 1 {
		return fmt.Errorf("%w: threshold %v out of range [0, 1]", ErrInvalidInput, threshold)
	}
	return nil
}

// ClampLimit normalises a result limit into 1..MaxSearchLimit.
// Non-positive limits fall back to the default.
func ClampLimit(limit, def int) int {
	if limit <= 0 {
		limit = def
	}
	if limit < 1 {
		limit = 1
	}
	if limit > MaxSearchLimit {
		limit = MaxSearchLimit
	}
	return limit
}
