package index

import (
	"errors"
	"fmt"
	"math"
)

// ErrZeroVector is returned when a vector with zero L2 norm enters a
// similarity computation. Cosine similarity is undefined for such vectors.
var ErrZeroVector = errors.New("vector has zero norm")

// Normalize returns a copy of v scaled to unit L2 norm.
func Normalize(v []float32) ([]float32, error) {
	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		return nil, ErrZeroVector
	}

	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out, nil
}

// Dot returns the dot product of two equal-length vectors, accumulated in
// float64.
func Dot(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("vector length mismatch: %d vs %d", len(a), len(b))
	}
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum, nil
}

// CosineSimilarity returns the cosine of the angle between two vectors.
// Unlike the lenient variant used in ranking heuristics, it reports
// ErrZeroVector instead of silently scoring zero.
func CosineSimilarity(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("vector length mismatch: %d vs %d", len(a), len(b))
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	normA = math.Sqrt(normA)
	normB = math.Sqrt(normB)
	if normA == 0 || normB == 0 {
		return 0, ErrZeroVector
	}

	return dot / (normA * normB), nil
}
