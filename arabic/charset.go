package arabic

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Range is an inclusive rune interval.
type Range struct {
	Lo, Hi rune
}

// Charset is an immutable set of rune ranges.
type Charset struct {
	ranges []Range
}

// NewCharset builds a charset from ranges, merging overlaps.
func NewCharset(ranges ...Range) (*Charset, error) {
	rs := make([]Range, 0, len(ranges))
	for _, r := range ranges {
		if r.Hi < r.Lo {
			return nil, fmt.Errorf("arabic: invalid range %U-%U", r.Lo, r.Hi)
		}
		rs = append(rs, r)
	}
	sort.Slice(rs, func(i, j int) bool { return rs[i].Lo < rs[j].Lo })
	merged := rs[:0]
	for _, r := range rs {
		if n := len(merged); n > 0 && r.Lo <= merged[n-1].Hi+1 {
			if r.Hi > merged[n-1].Hi {
				merged[n-1].Hi = r.Hi
			}
			continue
		}
		merged = append(merged, r)
	}
	return &Charset{ranges: merged}, nil
}

// MustCharset is NewCharset that panics on error, for package-level defaults.
func MustCharset(ranges ...Range) *Charset {
	ret, err := NewCharset(ranges...)
	if err != nil {
		panic(err)
	}
	return ret
}

// ParseCharset parses specs such as "064B-065F", "U+0670" or "06E9" into a
// charset.
func ParseCharset(specs []string) (*Charset, error) {
	ranges := make([]Range, 0, len(specs))
	for _, spec := range specs {
		r, err := parseRange(spec)
		if err != nil {
			return nil, err
		}
		ranges = append(ranges, r)
	}
	return NewCharset(ranges...)
}

func parseRange(spec string) (Range, error) {
	spec = strings.TrimSpace(spec)
	lo, hi, found := strings.Cut(spec, "-")
	l, err := parseCodePoint(lo)
	if err != nil {
		return Range{}, fmt.Errorf("arabic: invalid range %q: %w", spec, err)
	}
	if !found {
		return Range{Lo: l, Hi: l}, nil
	}
	h, err := parseCodePoint(hi)
	if err != nil {
		return Range{}, fmt.Errorf("arabic: invalid range %q: %w", spec, err)
	}
	return Range{Lo: l, Hi: h}, nil
}

func parseCodePoint(s string) (rune, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(strings.TrimPrefix(s, "U+"), "u+")
	s = strings.TrimPrefix(strings.TrimPrefix(s, "\\u"), "0x")
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return 0, err
	}
	if v > 0x10FFFF {
		return 0, fmt.Errorf("code point %X beyond U+10FFFF", v)
	}
	return rune(v), nil
}

// Contains reports whether r is in the set.
func (c *Charset) Contains(r rune) bool {
	rs := c.ranges
	i := sort.Search(len(rs), func(i int) bool { return rs[i].Hi >= r })
	return i < len(rs) && rs[i].Lo <= r
}

// Ranges returns the merged ranges in ascending order.
func (c *Charset) Ranges() []Range { return append([]Range(nil), c.ranges...) }

// Equal reports whether c and o hold the same runes.
func (c *Charset) Equal(o *Charset) bool {
	if len(c.ranges) != len(o.ranges) {
		return false
	}
	for i, r := range c.ranges {
		if r != o.ranges[i] {
			return false
		}
	}
	return true
}

// Overlaps reports whether any rune belongs to both sets.
func (c *Charset) Overlaps(o *Charset) bool {
	i, j := 0, 0
	for i < len(c.ranges) && j < len(o.ranges) {
		a, b := c.ranges[i], o.ranges[j]
		if a.Lo <= b.Hi && b.Lo <= a.Hi {
			return true
		}
		if a.Hi < b.Hi {
			i++
		} else {
			j++
		}
	}
	return false
}

// OnlyContains reports whether s is non-empty and every rune of s is in c.
func (c *Charset) OnlyContains(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !c.Contains(r) {
			return false
		}
	}
	return true
}

// String renders the set in the format accepted by ParseCharset.
func (c *Charset) String() string {
	parts := make([]string, len(c.ranges))
	for i, r := range c.ranges {
		if r.Lo == r.Hi {
			parts[i] = fmt.Sprintf("%04X", r.Lo)
			continue
		}
		parts[i] = fmt.Sprintf("%04X-%04X", r.Lo, r.Hi)
	}
	return strings.Join(parts, ",")
}

var (
	// Diacritics is the default tashkeel class: Arabic combining marks used
	// for vowels, tanween, shadda, sukun and Quranic honorifics. The Quranic
	// annotation signs in U+06D6..U+06ED are deliberately left out.
	Diacritics = MustCharset(
		Range{0x0610, 0x061A}, // signs: sallallahou alayhe wassallam .. small kasra
		Range{0x064B, 0x065F}, // fathatan .. wavy hamza below
		Range{0x0670, 0x0670}, // superscript alef
	)

	// StopMarks is the default waqf class: recitation pause signs and verse
	// ornaments that act as word boundaries.
	StopMarks = MustCharset(
		Range{0x06D6, 0x06DC}, // small high ligatures and waqf letters
		Range{0x06DD, 0x06DE}, // end of ayah, start of rub el hizb
		Range{0x06DF, 0x06E4}, // small high rounded zero .. small high madda
		Range{0x06E9, 0x06E9}, // place of sajdah
		Range{0x08D6, 0x08D6}, // indopak verse-end sign
	)
)
