package store

import "fmt"

// FormatError reports a buffer that is not a valid store: wrong magic tag,
// inconsistent header fields or trailing bytes after the declared records.
type FormatError struct {
	Reason string
}

func (e *FormatError) Error() string { return "store: format error: " + e.Reason }

// TruncatedDataError reports a buffer shorter than its header declares.
type TruncatedDataError struct {
	Want int64
	Got  int64
}

func (e *TruncatedDataError) Error() string {
	return fmt.Sprintf("store: truncated data: want %d bytes, got %d", e.Want, e.Got)
}

// DimensionMismatchError reports a vector whose length differs from the set
// dimension. Index is the offending record position, or -1 for a query vector.
type DimensionMismatchError struct {
	Expected int
	Actual   int
	Index    int
}

func (e *DimensionMismatchError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("store: dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
	}
	return fmt.Sprintf("store: dimension mismatch at record %d: expected %d, got %d", e.Index, e.Expected, e.Actual)
}

// RangeError reports a source value that does not fit its record field.
type RangeError struct {
	Field string
	Value int64
	Max   int64
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("store: %s %d out of range [0, %d]", e.Field, e.Value, e.Max)
}
