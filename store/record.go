package store

import "math"

// Record is a single embedding keyed by scripture location.
type Record struct {
	ID     uint16
	Surah  uint8
	Ayah   uint16
	Vector []float32
}

// NewRecord converts wider source integers into a Record, failing with a
// *RangeError when a value does not fit the on-disk field width.
func NewRecord(id int64, surah, ayah int, vec []float32) (Record, error) {
	if id < 0 || id > math.MaxUint16 {
		return Record{}, &RangeError{Field: "id", Value: id, Max: math.MaxUint16}
	}
	if surah < 0 || surah > math.MaxUint8 {
		return Record{}, &RangeError{Field: "surah", Value: int64(surah), Max: math.MaxUint8}
	}
	if ayah < 0 || ayah > math.MaxUint16 {
		return Record{}, &RangeError{Field: "ayah", Value: int64(ayah), Max: math.MaxUint16}
	}
	return Record{ID: uint16(id), Surah: uint8(surah), Ayah: uint16(ayah), Vector: vec}, nil
}

// Set is an ordered, uniform-dimension collection of records.
type Set struct {
	dim     int
	records []Record
}

// NewSet validates that every vector has the length of the first one and
// returns the set. No set is returned on a mismatch. An empty input yields an
// empty set of dimension 0.
func NewSet(records []Record) (*Set, error) {
	if len(records) == 0 {
		return &Set{}, nil
	}
	dim := len(records[0].Vector)
	if dim == 0 {
		return nil, &FormatError{Reason: "record 0 has an empty vector"}
	}
	for i := range records {
		if n := len(records[i].Vector); n != dim {
			return nil, &DimensionMismatchError{Expected: dim, Actual: n, Index: i}
		}
	}
	return &Set{dim: dim, records: append([]Record(nil), records...)}, nil
}

// NewEmptySet returns a record-less set that still declares dim.
func NewEmptySet(dim int) *Set { return &Set{dim: dim} }

// Dim returns the store-wide vector dimension.
func (s *Set) Dim() int { return s.dim }

// Len returns the number of records.
func (s *Set) Len() int { return len(s.records) }

// IsEmpty reports whether the set has no records. An empty set is valid and
// encodes to a header-only store.
func (s *Set) IsEmpty() bool { return len(s.records) == 0 }

// At returns the record at position i.
func (s *Set) At(i int) Record { return s.records[i] }

// Records returns the records in store order. The slice and the vectors are
// shared with the set and must not be modified.
func (s *Set) Records() []Record { return s.records }

// EncodedSize returns the exact number of bytes Encode produces.
func (s *Set) EncodedSize() int64 { return Size(len(s.records), s.dim) }
