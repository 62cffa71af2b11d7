package store

import (
	"encoding/binary"
	"fmt"
	"os"

	"github.com/viant/ayahvec/vector"
)

// Decode parses a complete store. It never modifies data; decoded vectors
// are copied out of it.
func Decode(data []byte) (*Set, error) {
	h, err := decodeHeader(data)
	if err != nil {
		return nil, err
	}
	// Compare by division so a crafted count and dim cannot wrap the
	// declared size around to len(data).
	if int64(h.Count) > (int64(len(data))-HeaderSize)/RecordSize(int(h.Dim)) {
		return nil, &TruncatedDataError{Want: h.Size(), Got: int64(len(data))}
	}
	want := h.Size()
	if got := int64(len(data)); got < want {
		return nil, &TruncatedDataError{Want: want, Got: got}
	} else if got > want {
		return nil, &FormatError{Reason: fmt.Sprintf("%d trailing bytes after %d declared records", got-want, h.Count)}
	}
	count, dim := int(h.Count), int(h.Dim)
	ret := &Set{dim: dim}
	if count == 0 {
		return ret, nil
	}
	floats := make([]float32, count*dim)
	ret.records = make([]Record, count)
	off := HeaderSize
	for i := 0; i < count; i++ {
		vec := floats[i*dim : (i+1)*dim : (i+1)*dim]
		ret.records[i] = decodeRecord(data[off:], vec)
		off += int(RecordSize(dim))
	}
	return ret, nil
}

func decodeHeader(data []byte) (Header, error) {
	if len(data) < len(Magic) {
		return Header{}, &TruncatedDataError{Want: HeaderSize, Got: int64(len(data))}
	}
	if string(data[:len(Magic)]) != Magic {
		return Header{}, &FormatError{Reason: fmt.Sprintf("bad magic %q, want %q", data[:len(Magic)], Magic)}
	}
	if len(data) < HeaderSize {
		return Header{}, &TruncatedDataError{Want: HeaderSize, Got: int64(len(data))}
	}
	h := Header{
		Count: binary.LittleEndian.Uint32(data[4:8]),
		Dim:   binary.LittleEndian.Uint32(data[8:12]),
	}
	if h.Count > 0 && h.Dim == 0 {
		return Header{}, &FormatError{Reason: fmt.Sprintf("%d records declared with zero dimension", h.Count)}
	}
	return h, nil
}

// decodeRecord reads one record from b into vec, which must have dim length.
func decodeRecord(b []byte, vec []float32) Record {
	rec := Record{
		ID:     binary.LittleEndian.Uint16(b[0:2]),
		Surah:  b[2],
		Ayah:   binary.LittleEndian.Uint16(b[3:5]),
		Vector: vec,
	}
	vector.ReadEmbedding(vec, b[RecordMetaSize:])
	return rec
}

// ReadFile loads and decodes the store at path.
func ReadFile(path string) (*Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Decode(data)
}
