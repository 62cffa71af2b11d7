package index

import "github.com/viant/ayahvec/store"

// Match is a single scored hit. Position is the record's place in the store,
// which also breaks score ties.
type Match struct {
	Position int
	Record   store.Record
	Score    float64
}

// Index answers kNN queries over a loaded store.
type Index interface {
	// Build loads the index from the given set. The set is retained and must
	// not be modified afterwards.
	Build(set *store.Set) error

	// Query returns up to k matches ordered by decreasing similarity, where
	// higher score means more similar (cosine similarity). A query whose
	// length differs from the store dimension fails with
	// *store.DimensionMismatchError; k <= 0 returns no matches.
	Query(query []float32, k int) ([]Match, error)
}
