package similarity

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// ErrDimensionMismatch is returned when two vectors of different length are compared.
var ErrDimensionMismatch = errors.New("embedding dimension mismatch")

// MismatchError records the lengths involved in a failed comparison.
type MismatchError struct {
	Want int // Length of the stored embedding.
	Got  int // Length of the query vector.
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("%v: want %d, got %d", ErrDimensionMismatch, e.Want, e.Got)
}

// Unwrap lets errors.Is match ErrDimensionMismatch.
func (e *MismatchError) Unwrap() error {
	return ErrDimensionMismatch
}

// Cosine computes dot(a,b) / (|a| * |b|).
// A zero-magnitude vector on either side yields 0. Vectors of unequal length
// are an error, never a zero score.
func Cosine(query, stored []float64) (float64, error) {
	if len(query) != len(stored) {
		return 0, &MismatchError{Want: len(stored), Got: len(query)}
	}
	if len(query) == 0 {
		return 0, nil
	}
	normA := floats.Norm(query, 2)
	normB := floats.Norm(stored, 2)
	if normA == 0 || normB == 0 {
		return 0, nil
	}
	return floats.Dot(query, stored) / (normA * normB), nil
}

// Distance returns the cosine distance, 1 - Cosine.
func Distance(a, b []float64) (float64, error) {
	sim, err := Cosine(a, b)
	if err != nil {
		return 0, err
	}
	return 1 - sim, nil
}

// IsZero reports whether v has zero magnitude.
func IsZero(v []float64) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}

// Searcher is an accelerated nearest-neighbour index over stored utterance
// embeddings. Results are positions in store order (route by route,
// utterance by utterance), so callers can re-score them exactly.
type Searcher interface {
	// Search returns up to k positions of the embeddings closest to query.
	Search(query []float64, k int) ([]int, error)
	// Len returns the number of indexed embeddings.
	Len() int
}

// Float32 converts a float64 vector to float32.
func Float32(input []float64) []float32 {
	out := make([]float32, len(input))
	for i, v := range input {
		out[i] = float32(v)
	}
	return out
}

// finite reports whether every component is a finite number.
func finite(v []float64) bool {
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}

// Valid reports whether v can be compared at all: non-empty and finite.
func Valid(v []float64) bool {
	return len(v) > 0 && finite(v)
}
