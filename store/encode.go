package store

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/viant/ayahvec/vector"
)

// Encode serializes the set into a new buffer of exactly s.EncodedSize() bytes.
// The output depends only on the set contents.
func Encode(s *Set) []byte {
	buf := make([]byte, 0, s.EncodedSize())
	buf = appendHeader(buf, Header{Count: uint32(s.Len()), Dim: uint32(s.Dim())})
	for _, rec := range s.records {
		buf = appendRecord(buf, rec)
	}
	return buf
}

func appendHeader(dst []byte, h Header) []byte {
	dst = append(dst, Magic...)
	dst = binary.LittleEndian.AppendUint32(dst, h.Count)
	return binary.LittleEndian.AppendUint32(dst, h.Dim)
}

func appendRecord(dst []byte, rec Record) []byte {
	dst = binary.LittleEndian.AppendUint16(dst, rec.ID)
	dst = append(dst, rec.Surah)
	dst = binary.LittleEndian.AppendUint16(dst, rec.Ayah)
	return vector.AppendEmbedding(dst, rec.Vector)
}

// Writer streams records into w after writing the header up front. The
// number of records written must match the declared count by Close.
type Writer struct {
	w       io.Writer
	header  Header
	written uint32
	buf     []byte
	n       int64
}

// NewWriter writes the header for count records of dim floats and returns a
// Writer for the records.
func NewWriter(w io.Writer, count, dim int) (*Writer, error) {
	if count < 0 || int64(count) > math.MaxUint32 {
		return nil, fmt.Errorf("store: record count %d out of range", count)
	}
	if dim < 0 || int64(dim) > math.MaxUint32 {
		return nil, fmt.Errorf("store: dimension %d out of range", dim)
	}
	if count > 0 && dim == 0 {
		return nil, &FormatError{Reason: "non-empty store with zero dimension"}
	}
	h := Header{Count: uint32(count), Dim: uint32(dim)}
	ret := &Writer{w: w, header: h, buf: make([]byte, 0, RecordSize(dim))}
	n, err := w.Write(appendHeader(make([]byte, 0, HeaderSize), h))
	ret.n += int64(n)
	if err != nil {
		return nil, err
	}
	return ret, nil
}

// Write appends one record. Its vector length must equal the declared dim.
func (w *Writer) Write(rec Record) error {
	if w.written == w.header.Count {
		return fmt.Errorf("store: all %d declared records already written", w.header.Count)
	}
	if len(rec.Vector) != int(w.header.Dim) {
		return &DimensionMismatchError{Expected: int(w.header.Dim), Actual: len(rec.Vector), Index: int(w.written)}
	}
	w.buf = appendRecord(w.buf[:0], rec)
	n, err := w.w.Write(w.buf)
	w.n += int64(n)
	if err != nil {
		return err
	}
	w.written++
	return nil
}

// Written returns the number of bytes written so far, header included.
func (w *Writer) Written() int64 { return w.n }

// Close verifies that exactly the declared number of records was written. It
// does not close the underlying writer.
func (w *Writer) Close() error {
	if w.written != w.header.Count {
		return fmt.Errorf("store: wrote %d of %d declared records", w.written, w.header.Count)
	}
	return nil
}

// WriteTo streams the set into w and returns the number of bytes written.
func WriteTo(w io.Writer, s *Set) (int64, error) {
	sw, err := NewWriter(w, s.Len(), s.Dim())
	if err != nil {
		return 0, err
	}
	for _, rec := range s.records {
		if err := sw.Write(rec); err != nil {
			return sw.Written(), err
		}
	}
	return sw.Written(), sw.Close()
}

// WriteFile atomically replaces path with the encoded set: the data goes to a
// temporary file in the same directory which is synced and renamed over path
// only on success. On any error the temporary file is removed and path is
// left untouched.
func WriteFile(path string, s *Set) (err error) {
	dir, base := filepath.Split(path)
	if dir == "" {
		dir = "."
	}
	tmp, err := os.CreateTemp(dir, "."+base+".tmp-*")
	if err != nil {
		return fmt.Errorf("store: create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()
	if _, err = WriteTo(tmp, s); err != nil {
		return fmt.Errorf("store: write %s: %w", path, err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("store: sync %s: %w", tmpName, err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("store: close %s: %w", tmpName, err)
	}
	if err = os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("store: rename %s: %w", tmpName, err)
	}
	return nil
}
