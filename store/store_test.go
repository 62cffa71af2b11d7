package store

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleSet(t *testing.T) *Set {
	t.Helper()
	set, err := NewSet([]Record{
		{ID: 1, Surah: 1, Ayah: 1, Vector: []float32{0.1, 0.2, 0.3}},
		{ID: 2, Surah: 1, Ayah: 2, Vector: []float32{0.2, 0.1, 0.0}},
	})
	require.NoError(t, err)
	return set
}

func randomSet(t *testing.T, rng *rand.Rand) *Set {
	t.Helper()
	dim := 1 + rng.Intn(16)
	count := rng.Intn(40)
	if count == 0 {
		return NewEmptySet(dim)
	}
	records := make([]Record, count)
	for i := range records {
		vec := make([]float32, dim)
		for j := range vec {
			vec[j] = math.Float32frombits(rng.Uint32())
		}
		records[i] = Record{
			ID:     uint16(rng.Intn(math.MaxUint16 + 1)),
			Surah:  uint8(rng.Intn(math.MaxUint8 + 1)),
			Ayah:   uint16(rng.Intn(math.MaxUint16 + 1)),
			Vector: vec,
		}
	}
	set, err := NewSet(records)
	require.NoError(t, err)
	return set
}

func assertSameRecords(t *testing.T, want, got *Set) {
	t.Helper()
	require.Equal(t, want.Dim(), got.Dim())
	require.Equal(t, want.Len(), got.Len())
	for i := 0; i < want.Len(); i++ {
		w, g := want.At(i), got.At(i)
		require.Equal(t, w.ID, g.ID, "record %d id", i)
		require.Equal(t, w.Surah, g.Surah, "record %d surah", i)
		require.Equal(t, w.Ayah, g.Ayah, "record %d ayah", i)
		require.Len(t, g.Vector, len(w.Vector))
		for j := range w.Vector {
			require.Equal(t, math.Float32bits(w.Vector[j]), math.Float32bits(g.Vector[j]), "record %d float %d", i, j)
		}
	}
}

func TestEncodeDecode_Scenario(t *testing.T) {
	set := sampleSet(t)
	data := Encode(set)

	require.Len(t, data, 46)
	assert.Equal(t, []byte(Magic), data[:4])
	assert.Equal(t, uint32(2), binary.LittleEndian.Uint32(data[4:8]))
	assert.Equal(t, uint32(3), binary.LittleEndian.Uint32(data[8:12]))
	// first record: id=1, surah=1, ayah=1
	assert.Equal(t, []byte{1, 0, 1, 1, 0}, data[12:17])
	assert.Equal(t, math.Float32bits(0.1), binary.LittleEndian.Uint32(data[17:21]))

	decoded, err := Decode(data)
	require.NoError(t, err)
	assertSameRecords(t, set, decoded)
}

func TestEncodeDecode_RoundTripAndSizeLaw(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for n := 0; n < 50; n++ {
		set := randomSet(t, rng)
		data := Encode(set)
		require.Equal(t, Size(set.Len(), set.Dim()), int64(len(data)))
		require.Equal(t, int64(12+set.Len()*(5+4*set.Dim())), int64(len(data)))

		decoded, err := Decode(data)
		require.NoError(t, err)
		assertSameRecords(t, set, decoded)
		assert.Equal(t, data, Encode(decoded), "encoding must be deterministic")
	}
}

func TestEncode_NaNRoundTrip(t *testing.T) {
	nan := math.Float32frombits(0x7fa00042)
	set, err := NewSet([]Record{{ID: 9, Surah: 2, Ayah: 286, Vector: []float32{nan, 1}}})
	require.NoError(t, err)
	decoded, err := Decode(Encode(set))
	require.NoError(t, err)
	assert.Equal(t, uint32(0x7fa00042), math.Float32bits(decoded.At(0).Vector[0]))
	assert.Equal(t, uint16(286), decoded.At(0).Ayah)
}

func TestEmptySet(t *testing.T) {
	set, err := NewSet(nil)
	require.NoError(t, err)
	assert.True(t, set.IsEmpty())

	data := Encode(NewEmptySet(384))
	require.Len(t, data, HeaderSize)
	decoded, err := Decode(data)
	require.NoError(t, err)
	assert.True(t, decoded.IsEmpty())
	assert.Equal(t, 384, decoded.Dim())
}

func TestNewSet_DimensionMismatch(t *testing.T) {
	_, err := NewSet([]Record{
		{ID: 1, Vector: []float32{1, 2}},
		{ID: 2, Vector: []float32{1, 2}},
		{ID: 3, Vector: []float32{1}},
	})
	var dm *DimensionMismatchError
	require.ErrorAs(t, err, &dm)
	assert.Equal(t, 2, dm.Expected)
	assert.Equal(t, 1, dm.Actual)
	assert.Equal(t, 2, dm.Index)

	_, err = NewSet([]Record{{ID: 1}})
	var fe *FormatError
	require.ErrorAs(t, err, &fe)
}

func TestNewRecord_Range(t *testing.T) {
	rec, err := NewRecord(65535, 114, 286, []float32{1})
	require.NoError(t, err)
	assert.Equal(t, uint16(65535), rec.ID)

	for _, tc := range []struct {
		name        string
		id          int64
		surah, ayah int
		expectField string
	}{
		{name: "id", id: 65536, surah: 1, ayah: 1, expectField: "id"},
		{name: "negative id", id: -1, surah: 1, ayah: 1, expectField: "id"},
		{name: "surah", id: 1, surah: 256, ayah: 1, expectField: "surah"},
		{name: "ayah", id: 1, surah: 1, ayah: 70000, expectField: "ayah"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewRecord(tc.id, tc.surah, tc.ayah, nil)
			var re *RangeError
			require.ErrorAs(t, err, &re)
			assert.Equal(t, tc.expectField, re.Field)
		})
	}
}

func TestDecode_Errors(t *testing.T) {
	valid := Encode(sampleSet(t))

	badMagic := append([]byte(nil), valid...)
	copy(badMagic, "TAF2")

	zeroDim := append([]byte(nil), valid[:HeaderSize]...)
	binary.LittleEndian.PutUint32(zeroDim[8:12], 0)

	for _, tc := range []struct {
		name      string
		data      []byte
		truncated bool
	}{
		{name: "empty", data: nil, truncated: true},
		{name: "partial magic", data: []byte("TA"), truncated: true},
		{name: "bad magic", data: badMagic},
		{name: "bad magic short", data: []byte("JSON")},
		{name: "short header", data: valid[:8], truncated: true},
		{name: "missing record", data: valid[:len(valid)-17], truncated: true},
		{name: "missing float", data: valid[:len(valid)-1], truncated: true},
		{name: "trailing bytes", data: append(append([]byte(nil), valid...), 0)},
		{name: "zero dim", data: zeroDim},
	} {
		t.Run(tc.name, func(t *testing.T) {
			orig := append([]byte(nil), tc.data...)
			_, err := Decode(tc.data)
			require.Error(t, err)
			var te *TruncatedDataError
			var fe *FormatError
			if tc.truncated {
				require.ErrorAs(t, err, &te)
				assert.False(t, errors.As(err, &fe))
			} else {
				require.ErrorAs(t, err, &fe)
				assert.False(t, errors.As(err, &te))
			}
			assert.Equal(t, orig, tc.data, "decode must not modify its input")
		})
	}
}

func TestDecode_TruncatedReportsSizes(t *testing.T) {
	valid := Encode(sampleSet(t))
	_, err := Decode(valid[:30])
	var te *TruncatedDataError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, int64(46), te.Want)
	assert.Equal(t, int64(30), te.Got)
}

func TestDecode_OversizedHeader(t *testing.T) {
	// count*RecordSize(dim)+HeaderSize wraps around int64 to exactly 2273.
	data := make([]byte, 2273)
	copy(data, Magic)
	binary.LittleEndian.PutUint32(data[4:8], 4284909981)
	binary.LittleEndian.PutUint32(data[8:12], 1076262053)

	h, err := decodeHeader(data)
	require.NoError(t, err)
	assert.Equal(t, int64(math.MaxInt64), h.Size())

	var set *Set
	require.NotPanics(t, func() { set, err = Decode(data) })
	assert.Nil(t, set)
	var te *TruncatedDataError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, int64(2273), te.Got)
}

func TestReader_MatchesDecode(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	for n := 0; n < 20; n++ {
		set := randomSet(t, rng)
		r, err := NewReader(bytes.NewReader(Encode(set)))
		require.NoError(t, err)
		assert.Equal(t, uint32(set.Len()), r.Header().Count)
		got, err := r.ReadAll()
		require.NoError(t, err)
		assertSameRecords(t, set, got)
	}
}

func TestReader_Errors(t *testing.T) {
	valid := Encode(sampleSet(t))

	_, err := NewReader(bytes.NewReader([]byte("NOPE\x00\x00\x00\x00\x00\x00\x00\x00")))
	var fe *FormatError
	require.ErrorAs(t, err, &fe)

	_, err = NewReader(bytes.NewReader(valid[:6]))
	var te *TruncatedDataError
	require.ErrorAs(t, err, &te)

	r, err := NewReader(bytes.NewReader(valid[:40]))
	require.NoError(t, err)
	_, err = r.Next()
	require.NoError(t, err)
	_, err = r.Next()
	require.ErrorAs(t, err, &te)
	assert.Equal(t, int64(46), te.Want)
	assert.Equal(t, int64(40), te.Got)

	r, err = NewReader(bytes.NewReader(append(append([]byte(nil), valid...), 1, 2)))
	require.NoError(t, err)
	_, err = r.Next()
	require.NoError(t, err)
	_, err = r.Next()
	require.NoError(t, err)
	_, err = r.Next()
	require.ErrorAs(t, err, &fe)

	r, err = NewReader(bytes.NewReader(valid))
	require.NoError(t, err)
	for i := 0; i < 2; i++ {
		_, err = r.Next()
		require.NoError(t, err)
	}
	_, err = r.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestReader_HugeDimensionIsLazy(t *testing.T) {
	head := make([]byte, HeaderSize)
	copy(head, Magic)
	binary.LittleEndian.PutUint32(head[4:8], math.MaxUint32)
	binary.LittleEndian.PutUint32(head[8:12], math.MaxUint32)
	data := append(head, 1, 0, 2, 3, 0, 0, 0, 0x80)

	r, err := NewReader(bytes.NewReader(data))
	require.NoError(t, err)
	_, err = r.Next()
	var te *TruncatedDataError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, int64(len(data)), te.Got)
	assert.Equal(t, r.Header().Size(), te.Want)

	r, err = NewReader(bytes.NewReader(head))
	require.NoError(t, err)
	_, err = r.ReadAll()
	require.ErrorAs(t, err, &te)
	assert.Equal(t, int64(HeaderSize), te.Got)
}

func TestReader_WideRecords(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	records := make([]Record, 3)
	for i := range records {
		vec := make([]float32, 2*chunkFloats+7)
		for j := range vec {
			vec[j] = rng.Float32()
		}
		records[i] = Record{ID: uint16(i + 1), Surah: 2, Ayah: uint16(i + 1), Vector: vec}
	}
	set, err := NewSet(records)
	require.NoError(t, err)
	r, err := NewReader(bytes.NewReader(Encode(set)))
	require.NoError(t, err)
	got, err := r.ReadAll()
	require.NoError(t, err)
	assertSameRecords(t, set, got)
}

func TestWriter_Guards(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewWriter(&buf, 1, 2)
	require.NoError(t, err)
	var dm *DimensionMismatchError
	require.ErrorAs(t, w.Write(Record{Vector: []float32{1}}), &dm)
	assert.Error(t, w.Close())
	require.NoError(t, w.Write(Record{Vector: []float32{1, 2}}))
	assert.Error(t, w.Write(Record{Vector: []float32{1, 2}}))
	require.NoError(t, w.Close())
	assert.Equal(t, Size(1, 2), w.Written())
	assert.Equal(t, Size(1, 2), int64(buf.Len()))

	_, err = NewWriter(&buf, 1, 0)
	var fe *FormatError
	require.ErrorAs(t, err, &fe)
}

func TestWriteFileReadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tafseer_embeddings.bin")
	set := sampleSet(t)

	require.NoError(t, WriteFile(path, set))
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, int64(46), info.Size())

	got, err := ReadFile(path)
	require.NoError(t, err)
	assertSameRecords(t, set, got)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary file must not remain")
}

func TestWriteFile_NoPartialFileOnError(t *testing.T) {
	dir := t.TempDir()
	// renaming a regular file over a non-empty directory fails
	target := filepath.Join(dir, "store.bin")
	require.NoError(t, os.MkdirAll(filepath.Join(target, "child"), 0o755))

	err := WriteFile(target, sampleSet(t))
	require.Error(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "store.bin", entries[0].Name())
	assert.True(t, entries[0].IsDir())
}

func TestStats(t *testing.T) {
	set, err := NewSet([]Record{
		{ID: 1, Surah: 1, Ayah: 1, Vector: []float32{3, 4}},
		{ID: 1, Surah: 2, Ayah: 1, Vector: []float32{0, 0}},
		{ID: 2, Surah: 2, Ayah: 2, Vector: []float32{1, 0}},
	})
	require.NoError(t, err)
	s := Stats(set)
	assert.Equal(t, 3, s.Count)
	assert.Equal(t, 2, s.Dim)
	assert.Equal(t, int64(12+3*13), s.Size)
	assert.Equal(t, 2, s.Surahs)
	assert.Equal(t, 1, s.ZeroNorm)
	assert.Equal(t, []uint16{1}, s.DuplicateIDs)
	assert.InDelta(t, 0, s.MinNorm, 1e-6)
	assert.InDelta(t, 5, s.MaxNorm, 1e-6)
}
