package store

import (
	"errors"
	"fmt"
	"io"
	"slices"

	"github.com/viant/ayahvec/vector"
)

// chunkFloats bounds how many floats the Reader decodes per read, so memory
// grows with the bytes actually received rather than the declared dimension.
const chunkFloats = 1024

// Reader decodes a store incrementally, enforcing the same length checks as
// Decode as bytes arrive.
type Reader struct {
	r      io.Reader
	header Header
	read   uint32
	offset int64
	buf    []byte
}

// NewReader reads and validates the header from r.
func NewReader(r io.Reader) (*Reader, error) {
	ret := &Reader{r: r}
	head := make([]byte, HeaderSize)
	n, err := io.ReadFull(r, head[:len(Magic)])
	ret.offset += int64(n)
	if err != nil {
		return nil, ret.truncated(HeaderSize, err)
	}
	n, err = io.ReadFull(r, head[len(Magic):])
	ret.offset += int64(n)
	if err != nil {
		if string(head[:len(Magic)]) != Magic {
			return nil, &FormatError{Reason: fmt.Sprintf("bad magic %q, want %q", head[:len(Magic)], Magic)}
		}
		return nil, ret.truncated(HeaderSize, err)
	}
	if ret.header, err = decodeHeader(head); err != nil {
		return nil, err
	}
	ret.buf = make([]byte, 4*chunkFloats)
	return ret, nil
}

// Header returns the decoded header.
func (r *Reader) Header() Header { return r.header }

// Dim returns the declared dimension.
func (r *Reader) Dim() int { return int(r.header.Dim) }

// Next returns the next record, or io.EOF once all declared records have been
// read and the input is exhausted. Bytes after the last declared record are
// reported as a *FormatError.
func (r *Reader) Next() (Record, error) {
	if r.read == r.header.Count {
		var extra [1]byte
		n, err := io.ReadFull(r.r, extra[:])
		if n > 0 {
			return Record{}, &FormatError{Reason: fmt.Sprintf("trailing bytes after %d declared records", r.header.Count)}
		}
		if err != nil && !errors.Is(err, io.EOF) {
			return Record{}, err
		}
		return Record{}, io.EOF
	}
	meta := r.buf[:RecordMetaSize]
	n, err := io.ReadFull(r.r, meta)
	r.offset += int64(n)
	if err != nil {
		return Record{}, r.truncated(r.header.Size(), err)
	}
	rec := decodeRecord(meta, nil)
	dim := int(r.header.Dim)
	vec := make([]float32, 0, min(dim, chunkFloats))
	for len(vec) < dim {
		chunk := min(dim-len(vec), chunkFloats)
		n, err = io.ReadFull(r.r, r.buf[:4*chunk])
		r.offset += int64(n)
		if err != nil {
			return Record{}, r.truncated(r.header.Size(), err)
		}
		start := len(vec)
		vec = slices.Grow(vec, chunk)[:start+chunk]
		vector.ReadEmbedding(vec[start:], r.buf[:4*chunk])
	}
	rec.Vector = vec[:dim:dim]
	r.read++
	return rec, nil
}

// ReadAll drains the reader into a Set.
func (r *Reader) ReadAll() (*Set, error) {
	ret := &Set{dim: int(r.header.Dim), records: make([]Record, 0, min(int(r.header.Count), chunkFloats))}
	for {
		rec, err := r.Next()
		if errors.Is(err, io.EOF) {
			return ret, nil
		}
		if err != nil {
			return nil, err
		}
		ret.records = append(ret.records, rec)
	}
}

func (r *Reader) truncated(want int64, err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return &TruncatedDataError{Want: want, Got: r.offset}
	}
	return err
}
