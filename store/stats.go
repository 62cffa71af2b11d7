package store

import "github.com/viant/ayahvec/vector"

// Summary describes a set for inspection.
type Summary struct {
	Count        int
	Dim          int
	Size         int64
	Surahs       int
	ZeroNorm     int
	MinNorm      float32
	MaxNorm      float32
	DuplicateIDs []uint16
}

// Stats summarizes s.
func Stats(s *Set) Summary {
	ret := Summary{Count: s.Len(), Dim: s.Dim(), Size: s.EncodedSize()}
	seen := make(map[uint16]bool, s.Len())
	surahs := make(map[uint8]bool)
	for i, rec := range s.records {
		if seen[rec.ID] {
			ret.DuplicateIDs = append(ret.DuplicateIDs, rec.ID)
		}
		seen[rec.ID] = true
		surahs[rec.Surah] = true
		m := vector.Magnitude(rec.Vector)
		if m == 0 {
			ret.ZeroNorm++
		}
		if i == 0 || m < ret.MinNorm {
			ret.MinNorm = m
		}
		if i == 0 || m > ret.MaxNorm {
			ret.MaxNorm = m
		}
	}
	ret.Surahs = len(surahs)
	return ret
}
