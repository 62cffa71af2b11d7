package bruteforce

import (
	"container/heap"
	"errors"
	"math"
	"sort"

	"github.com/viant/ayahvec/index"
	"github.com/viant/ayahvec/store"
	"github.com/viant/ayahvec/vector"
)

// ErrNotBuilt is returned by Query on an Index that was never built.
var ErrNotBuilt = errors.New("bruteforce: index not built")

// Index is a brute-force cosine index over a store. After Build it is
// read-only and safe for concurrent Query calls.
type Index struct {
	set   *store.Set
	norms []float64
}

// New builds an index over set.
func New(set *store.Set) *Index {
	ret := &Index{}
	_ = ret.Build(set)
	return ret
}

// Build loads the set and precomputes squared norms.
func (i *Index) Build(set *store.Set) error {
	if set == nil {
		set = store.NewEmptySet(0)
	}
	records := set.Records()
	norms := make([]float64, len(records))
	for j := range records {
		norms[j] = vector.SquaredNorm(records[j].Vector)
	}
	i.set = set
	i.norms = norms
	return nil
}

// Len returns the number of indexed records.
func (i *Index) Len() int { return len(i.norms) }

// Query returns the top-k records by cosine similarity. Ties keep store
// order; NaN scores rank after every number. Zero-norm vectors score 0.
func (i *Index) Query(query []float32, k int) ([]index.Match, error) {
	if i.set == nil {
		return nil, ErrNotBuilt
	}
	if len(query) != i.set.Dim() {
		return nil, &store.DimensionMismatchError{Expected: i.set.Dim(), Actual: len(query), Index: -1}
	}
	n := len(i.norms)
	if k <= 0 || n == 0 {
		return []index.Match{}, nil
	}
	if k > n {
		k = n
	}
	qn := vector.SquaredNorm(query)
	records := i.set.Records()
	h := make(worstFirst, 0, k)
	for j := range records {
		c := candidate{pos: j, score: vector.Cosine(query, qn, records[j].Vector, i.norms[j])}
		if len(h) < k {
			heap.Push(&h, c)
			continue
		}
		if better(c, h[0]) {
			h[0] = c
			heap.Fix(&h, 0)
		}
	}
	sort.Slice(h, func(a, b int) bool { return better(h[a], h[b]) })
	out := make([]index.Match, len(h))
	for idx, c := range h {
		out[idx] = index.Match{Position: c.pos, Record: records[c.pos], Score: c.score}
	}
	return out, nil
}

// TopK scores query against every record of set and returns the k best.
func TopK(set *store.Set, query []float32, k int) ([]index.Match, error) {
	return New(set).Query(query, k)
}

type candidate struct {
	pos   int
	score float64
}

// better orders by score descending, NaN last, then by position ascending.
func better(a, b candidate) bool {
	an, bn := math.IsNaN(a.score), math.IsNaN(b.score)
	switch {
	case an && bn:
		return a.pos < b.pos
	case an:
		return false
	case bn:
		return true
	case a.score != b.score:
		return a.score > b.score
	}
	return a.pos < b.pos
}

// worstFirst is a heap whose root is the weakest retained candidate.
type worstFirst []candidate

func (h worstFirst) Len() int           { return len(h) }
func (h worstFirst) Less(a, b int) bool { return better(h[b], h[a]) }
func (h worstFirst) Swap(a, b int)      { h[a], h[b] = h[b], h[a] }

func (h *worstFirst) Push(x interface{}) { *h = append(*h, x.(candidate)) }

func (h *worstFirst) Pop() interface{} {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// Ensure Index satisfies the index.Index interface.
var _ index.Index = (*Index)(nil)
