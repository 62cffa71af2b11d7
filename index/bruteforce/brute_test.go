package bruteforce

import (
	"errors"
	"math"
	"math/rand"
	"sync"
	"testing"

	"github.com/viant/ayahvec/store"
)

func mustSet(t *testing.T, records []store.Record) *store.Set {
	t.Helper()
	set, err := store.NewSet(records)
	if err != nil {
		t.Fatalf("NewSet failed: %v", err)
	}
	return set
}

// referenceCosine is computed independently of the vector package.
func referenceCosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func TestTopK_SelfMatch(t *testing.T) {
	set := mustSet(t, []store.Record{
		{ID: 1, Surah: 1, Ayah: 1, Vector: []float32{0.1, 0.2, 0.3}},
		{ID: 2, Surah: 1, Ayah: 2, Vector: []float32{0.2, 0.1, 0.0}},
	})
	out, err := TopK(set, []float32{0.1, 0.2, 0.3}, 1)
	if err != nil {
		t.Fatalf("TopK failed: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("TopK returned %d matches, want 1", len(out))
	}
	if out[0].Record.ID != 1 || out[0].Position != 0 {
		t.Fatalf("TopK best = id %d at %d, want id 1 at 0", out[0].Record.ID, out[0].Position)
	}
	if out[0].Score != 1.0 {
		t.Fatalf("self-match score = %v, want 1", out[0].Score)
	}
}

func TestQuery_OrderingAndScores(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for trial := 0; trial < 25; trial++ {
		dim := 1 + rng.Intn(24)
		count := 1 + rng.Intn(60)
		records := make([]store.Record, count)
		for i := range records {
			vec := make([]float32, dim)
			for j := range vec {
				vec[j] = float32(rng.NormFloat64())
			}
			records[i] = store.Record{ID: uint16(i), Surah: uint8(1 + i%114), Ayah: uint16(i), Vector: vec}
		}
		set := mustSet(t, records)
		query := make([]float32, dim)
		for j := range query {
			query[j] = float32(rng.NormFloat64())
		}
		k := 1 + rng.Intn(count+5)
		out, err := New(set).Query(query, k)
		if err != nil {
			t.Fatalf("Query failed: %v", err)
		}
		want := k
		if want > count {
			want = count
		}
		if len(out) != want {
			t.Fatalf("Query returned %d, want %d", len(out), want)
		}
		for n, m := range out {
			if n > 0 && m.Score > out[n-1].Score {
				t.Fatalf("scores not non-increasing at %d: %v > %v", n, m.Score, out[n-1].Score)
			}
			if ref := referenceCosine(query, records[m.Position].Vector); math.Abs(ref-m.Score) > 1e-6 {
				t.Fatalf("score at %d = %v, reference %v", n, m.Score, ref)
			}
		}
		// nothing left out scores better than the weakest returned match
		if len(out) < count {
			returned := map[int]bool{}
			for _, m := range out {
				returned[m.Position] = true
			}
			floor := out[len(out)-1].Score
			for i := range records {
				if !returned[i] && referenceCosine(query, records[i].Vector) > floor+1e-9 {
					t.Fatalf("record %d outscores the returned floor %v", i, floor)
				}
			}
		}
	}
}

func TestQuery_TiesKeepStoreOrder(t *testing.T) {
	set := mustSet(t, []store.Record{
		{ID: 10, Vector: []float32{0, 1}},
		{ID: 11, Vector: []float32{2, 0}},
		{ID: 12, Vector: []float32{1, 0}},
		{ID: 13, Vector: []float32{3, 0}},
	})
	out, err := New(set).Query([]float32{1, 0}, 3)
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	var ids []uint16
	for _, m := range out {
		ids = append(ids, m.Record.ID)
	}
	if len(ids) != 3 || ids[0] != 11 || ids[1] != 12 || ids[2] != 13 {
		t.Fatalf("tie order = %v, want [11 12 13]", ids)
	}
}

func TestQuery_KBounds(t *testing.T) {
	set := mustSet(t, []store.Record{
		{ID: 1, Vector: []float32{1, 0}},
		{ID: 2, Vector: []float32{0, 1}},
	})
	ix := New(set)
	for _, k := range []int{0, -3} {
		out, err := ix.Query([]float32{1, 1}, k)
		if err != nil {
			t.Fatalf("Query(k=%d) failed: %v", k, err)
		}
		if len(out) != 0 {
			t.Fatalf("Query(k=%d) returned %d matches, want 0", k, len(out))
		}
	}
	out, err := ix.Query([]float32{1, 0}, 10)
	if err != nil {
		t.Fatalf("Query(k=10) failed: %v", err)
	}
	if len(out) != 2 || out[0].Record.ID != 1 {
		t.Fatalf("Query(k=10) = %+v, want both records with id 1 first", out)
	}
}

func TestQuery_DimensionMismatch(t *testing.T) {
	set := mustSet(t, []store.Record{{ID: 1, Vector: []float32{1, 0, 0}}})
	for _, k := range []int{0, 1, 5} {
		out, err := New(set).Query([]float32{1, 0}, k)
		var dm *store.DimensionMismatchError
		if !errors.As(err, &dm) {
			t.Fatalf("Query(k=%d) error = %v, want DimensionMismatchError", k, err)
		}
		if dm.Expected != 3 || dm.Actual != 2 {
			t.Fatalf("mismatch = %+v, want expected 3 actual 2", dm)
		}
		if out != nil {
			t.Fatalf("Query returned partial results on mismatch: %+v", out)
		}
	}
}

func TestQuery_ZeroVectors(t *testing.T) {
	set := mustSet(t, []store.Record{
		{ID: 1, Vector: []float32{0, 0}},
		{ID: 2, Vector: []float32{1, 1}},
	})
	out, err := New(set).Query([]float32{1, 1}, 2)
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if out[0].Record.ID != 2 || out[1].Record.ID != 1 || out[1].Score != 0 {
		t.Fatalf("unexpected zero-vector ranking: %+v", out)
	}

	out, err = New(set).Query([]float32{0, 0}, 2)
	if err != nil {
		t.Fatalf("Query with zero query failed: %v", err)
	}
	for _, m := range out {
		if m.Score != 0 {
			t.Fatalf("zero query score = %v, want 0", m.Score)
		}
	}
	if out[0].Record.ID != 1 {
		t.Fatalf("all-zero scores must keep store order, got first id %d", out[0].Record.ID)
	}
}

func TestQuery_NaNRanksLast(t *testing.T) {
	nan := float32(math.NaN())
	set := mustSet(t, []store.Record{
		{ID: 1, Vector: []float32{nan, 1}},
		{ID: 2, Vector: []float32{-1, 0}},
		{ID: 3, Vector: []float32{1, 0}},
	})
	out, err := New(set).Query([]float32{1, 0}, 3)
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if out[0].Record.ID != 3 || out[1].Record.ID != 2 || out[2].Record.ID != 1 {
		t.Fatalf("NaN ordering = %+v", out)
	}
}

func TestQuery_Concurrent(t *testing.T) {
	set := mustSet(t, []store.Record{
		{ID: 1, Vector: []float32{1, 0}},
		{ID: 2, Vector: []float32{0, 1}},
		{ID: 3, Vector: []float32{1, 1}},
	})
	ix := New(set)
	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for g := 0; g < 16; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out, err := ix.Query([]float32{1, 0}, 2)
			if err != nil {
				errs <- err
				return
			}
			if out[0].Record.ID != 1 {
				errs <- errors.New("unexpected best match")
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatal(err)
	}
}

func TestQuery_EmptyStore(t *testing.T) {
	out, err := New(store.NewEmptySet(3)).Query([]float32{1, 2, 3}, 5)
	if err != nil {
		t.Fatalf("Query on empty store failed: %v", err)
	}
	if len(out) != 0 {
		t.Fatalf("Query on empty store returned %d matches", len(out))
	}
}

func TestQuery_NotBuilt(t *testing.T) {
	var idx Index
	for _, q := range [][]float32{nil, {1, 2, 3}} {
		out, err := idx.Query(q, 3)
		if !errors.Is(err, ErrNotBuilt) {
			t.Fatalf("Query(%v) on zero Index: got err %v, want ErrNotBuilt", q, err)
		}
		if out != nil {
			t.Fatalf("Query on zero Index returned %v", out)
		}
	}
	if err := idx.Build(nil); err != nil {
		t.Fatalf("Build(nil) failed: %v", err)
	}
	if _, err := idx.Query(nil, 3); err != nil {
		t.Fatalf("Query after Build(nil) failed: %v", err)
	}
}
