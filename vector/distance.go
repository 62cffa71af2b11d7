package vector

import (
	"fmt"
	"math"

	"github.com/viant/vec/search"
)

// Dot returns the float64 dot product of two equally sized vectors.
func Dot(a, b []float32) float64 {
	var s float64
	for i := range a {
		s += float64(a[i]) * float64(b[i])
	}
	return s
}

// SquaredNorm returns the squared L2 norm of v computed in float64.
func SquaredNorm(v []float32) float64 { return Dot(v, v) }

// Cosine scores a against b given their precomputed squared norms. A zero
// norm on either side yields 0.
//
// The denominator is sqrt(na*nb) rather than sqrt(na)*sqrt(nb) so that a
// vector compared with itself scores exactly 1.
func Cosine(a []float32, na float64, b []float32, nb float64) float64 {
	if na == 0 || nb == 0 {
		return 0
	}
	return Dot(a, b) / math.Sqrt(na*nb)
}

// CosineSimilarity computes the cosine similarity between two vectors. It
// returns an error if the vectors have different lengths or are empty. A
// zero-magnitude vector has similarity 0 with everything.
func CosineSimilarity(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("vector: cosine similarity dimension mismatch: %d vs %d", len(a), len(b))
	}
	if len(a) == 0 {
		return 0, fmt.Errorf("vector: cosine similarity on empty vectors")
	}
	return Cosine(a, SquaredNorm(a), b, SquaredNorm(b)), nil
}

// L2Distance computes the Euclidean (L2) distance between two vectors. It
// returns an error if the vectors have different lengths.
func L2Distance(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("vector: L2 distance dimension mismatch: %d vs %d", len(a), len(b))
	}
	if len(a) == 0 {
		return 0, nil
	}
	return float64(search.Float32s(a).EuclideanDistance(b)), nil
}

// Magnitude returns the L2 norm of v in single precision.
func Magnitude(v []float32) float32 {
	if len(v) == 0 {
		return 0
	}
	return search.Float32s(v).Magnitude()
}
