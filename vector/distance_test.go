package vector

import (
	"math"
	"testing"
)

func TestCosineSimilarity(t *testing.T) {
	a := []float32{1, 0}
	b := []float32{0, 1}
	c := []float32{1, 0}

	// Orthogonal vectors -> similarity 0
	if sim, err := CosineSimilarity(a, b); err != nil || sim != 0 {
		t.Fatalf("CosineSimilarity(a,b) = %v, %v; want 0, nil", sim, err)
	}

	// Identical vectors -> similarity 1
	if sim, err := CosineSimilarity(a, c); err != nil || sim != 1 {
		t.Fatalf("CosineSimilarity(a,c) = %v, %v; want 1, nil", sim, err)
	}
}

func TestCosineSimilarity_SelfMatchIsExact(t *testing.T) {
	v := []float32{0.1, 0.2, 0.3}
	sim, err := CosineSimilarity(v, []float32{0.1, 0.2, 0.3})
	if err != nil {
		t.Fatalf("CosineSimilarity failed: %v", err)
	}
	if sim != 1 {
		t.Fatalf("self similarity = %v, want exactly 1", sim)
	}
}

func TestCosineSimilarity_ZeroVector(t *testing.T) {
	sim, err := CosineSimilarity([]float32{0, 0, 0}, []float32{1, 2, 3})
	if err != nil {
		t.Fatalf("CosineSimilarity with zero vector failed: %v", err)
	}
	if sim != 0 {
		t.Fatalf("zero vector similarity = %v, want 0", sim)
	}
}

func TestCosineSimilarity_Mismatch(t *testing.T) {
	if _, err := CosineSimilarity([]float32{1}, []float32{1, 2}); err == nil {
		t.Fatalf("expected dimension mismatch error")
	}
	if _, err := CosineSimilarity(nil, nil); err == nil {
		t.Fatalf("expected error for empty vectors")
	}
}

func TestL2Distance(t *testing.T) {
	a := []float32{0, 0}
	b := []float32{3, 4}

	d, err := L2Distance(a, b)
	if err != nil {
		t.Fatalf("L2Distance failed: %v", err)
	}
	if math.Abs(d-5) > 1e-6 {
		t.Fatalf("L2Distance(0,0)-(3,4) = %v, want 5", d)
	}
	if _, err := L2Distance(a, []float32{1}); err == nil {
		t.Fatalf("expected dimension mismatch error")
	}
}

func TestMagnitude(t *testing.T) {
	if m := Magnitude([]float32{3, 4}); math.Abs(float64(m)-5) > 1e-6 {
		t.Fatalf("Magnitude(3,4) = %v, want 5", m)
	}
	if m := Magnitude(nil); m != 0 {
		t.Fatalf("Magnitude(nil) = %v, want 0", m)
	}
}
