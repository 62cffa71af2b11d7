package store

import "math"

// Magic is the 4-byte tag every store starts with.
const Magic = "TAF1"

const (
	// HeaderSize is the size of magic + count + dim.
	HeaderSize = 12
	// RecordMetaSize is the per-record id + surah + ayah prefix.
	RecordMetaSize = 5
)

// RecordSize returns the encoded size of one record with dim floats.
func RecordSize(dim int) int64 { return RecordMetaSize + 4*int64(dim) }

// Size returns the exact encoded size of a store with count records of dim
// floats.
func Size(count, dim int) int64 { return HeaderSize + int64(count)*RecordSize(dim) }

// Header is the decoded fixed-size store prefix.
type Header struct {
	Count uint32
	Dim   uint32
}

// Size returns the total file size the header declares. Sizes that do not
// fit an int64 saturate at math.MaxInt64.
func (h Header) Size() int64 {
	rec := RecordSize(int(h.Dim))
	if int64(h.Count) > (math.MaxInt64-HeaderSize)/rec {
		return math.MaxInt64
	}
	return HeaderSize + int64(h.Count)*rec
}
