package scan

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/viant/ayahvec/arabic"
	"github.com/viant/ayahvec/source"
)

// DefaultContextRunes is how many runes of surrounding text a finding keeps on
// each side.
const DefaultContextRunes = 10

// MergePattern names a left/right pair of RE2 expressions that should always
// be separated by whitespace.
type MergePattern struct {
	Name  string
	Left  string
	Right string
}

// DefaultMergePatterns holds the al-mu'minun / kull pair of 2:285.
var DefaultMergePatterns = []MergePattern{
	{Name: "mu'minun-kull", Left: "المؤمن[وي]ن", Right: "كل"},
}

// DefaultMarkers are bracket markers that leak from transliterated sources.
var DefaultMarkers = []string{"[", "]"}

// spaceClass matches the runes unicode.IsSpace accepts, which is what the
// tokenizer splits on. RE2's \s alone is ASCII only.
const spaceClass = `[\s\v\x{0085}\p{Z}]`

func (p MergePattern) compile() (*regexp.Regexp, error) {
	if p.Left == "" || p.Right == "" {
		return nil, fmt.Errorf("scan: pattern %q: left and right must be non-empty", p.Name)
	}
	expr := "(?P<left>" + p.Left + ")(?P<span>" + spaceClass + "*)(?P<right>" + p.Right + ")"
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("scan: pattern %q: %w", p.Name, err)
	}
	return re, nil
}

type compiled struct {
	name              string
	re                *regexp.Regexp
	left, span, right int
}

// Scanner checks verses against merge patterns, markers and the stop-mark
// token guard. A Scanner is immutable after NewScanner and safe for
// concurrent use.
type Scanner struct {
	patterns  []compiled
	markers   []string
	tokenizer *arabic.Tokenizer

	// OnlyMerged drops merge candidates that are properly separated.
	OnlyMerged bool
	// ContextRunes bounds the Context excerpt on each side of a match.
	ContextRunes int
}

// NewScanner compiles patterns. markers may be empty; a nil tokenizer
// disables the stray-stop check.
func NewScanner(patterns []MergePattern, markers []string, tokenizer *arabic.Tokenizer) (*Scanner, error) {
	s := &Scanner{tokenizer: tokenizer, ContextRunes: DefaultContextRunes}
	for _, p := range patterns {
		re, err := p.compile()
		if err != nil {
			return nil, err
		}
		name := p.Name
		if name == "" {
			name = p.Left + "+" + p.Right
		}
		s.patterns = append(s.patterns, compiled{
			name:  name,
			re:    re,
			left:  re.SubexpIndex("left"),
			span:  re.SubexpIndex("span"),
			right: re.SubexpIndex("right"),
		})
	}
	for _, m := range markers {
		if m != "" {
			s.markers = append(s.markers, m)
		}
	}
	return s, nil
}

// ScanForMerge reports every (patternA)(\s*)(patternB) occurrence in the
// normalized text of records, in record order then match order.
func ScanForMerge(records []source.Verse, patternA, patternB string) ([]Finding, error) {
	s, err := NewScanner([]MergePattern{{Name: patternA + "+" + patternB, Left: patternA, Right: patternB}}, nil, nil)
	if err != nil {
		return nil, err
	}
	var out []Finding
	for _, v := range records {
		out = append(out, s.Verse(v)...)
	}
	return out, nil
}

// Scan streams src and collects the findings of every verse.
func (s *Scanner) Scan(ctx context.Context, src source.VerseSource) (Report, error) {
	var report Report
	err := src.Iterate(ctx, func(v source.Verse) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		report.Scanned++
		report.Findings = append(report.Findings, s.Verse(v)...)
		return nil
	})
	if err != nil {
		return report, fmt.Errorf("scan: %w", err)
	}
	return report, nil
}

// Verse returns the findings for a single verse.
func (s *Scanner) Verse(v source.Verse) []Finding {
	var out []Finding
	normalized := s.normalize(v.Text)
	for _, p := range s.patterns {
		for _, m := range p.re.FindAllStringSubmatchIndex(normalized, -1) {
			span := group(normalized, m, p.span)
			f := s.finding(KindMerge, v, normalized, m[0], m[1])
			f.Pattern = p.name
			f.Left = group(normalized, m, p.left)
			f.Span = span
			f.Right = group(normalized, m, p.right)
			f.SpanLength = utf8.RuneCountInString(span)
			if s.OnlyMerged && !f.Merged() {
				continue
			}
			out = append(out, f)
		}
	}
	for _, marker := range s.markers {
		for from := 0; ; {
			i := strings.Index(v.Text[from:], marker)
			if i < 0 {
				break
			}
			start := from + i
			f := s.finding(KindMarker, v, v.Text, start, start+len(marker))
			f.Normalized = normalized
			f.Left = marker
			out = append(out, f)
			from = start + len(marker)
		}
	}
	if s.tokenizer != nil {
		out = append(out, s.strayStops(v, normalized)...)
	}
	return out
}

func (s *Scanner) strayStops(v source.Verse, normalized string) []Finding {
	stops := s.tokenizer.StopMarks()
	var out []Finding
	for _, tok := range s.tokenizer.Tokenize(v.Text) {
		if !stops.OnlyContains(tok) {
			continue
		}
		start := strings.Index(normalized, tok)
		if start < 0 {
			start = 0
		}
		f := s.finding(KindStrayStop, v, normalized, start, start+len(tok))
		f.Left = tok
		out = append(out, f)
	}
	return out
}

func (s *Scanner) normalize(text string) string {
	if s.tokenizer != nil {
		return s.tokenizer.Normalizer().Normalize(text)
	}
	return arabic.Normalize(text)
}

// finding fills the location fields for the byte range [start, end) of text.
func (s *Scanner) finding(kind Kind, v source.Verse, text string, start, end int) Finding {
	key := v.Key
	if key == "" {
		key = source.VerseKey(v.Surah, v.Ayah)
	}
	return Finding{
		Kind:       kind,
		Surah:      v.Surah,
		Ayah:       v.Ayah,
		Key:        key,
		Raw:        v.Text,
		Normalized: text,
		Offset:     utf8.RuneCountInString(text[:start]),
		Context:    excerpt(text, start, end, s.ContextRunes),
	}
}

func group(text string, m []int, i int) string {
	if i < 0 || 2*i+1 >= len(m) || m[2*i] < 0 {
		return ""
	}
	return text[m[2*i]:m[2*i+1]]
}

// excerpt widens [start, end) by up to n runes on each side.
func excerpt(text string, start, end, n int) string {
	for i := 0; i < n && start > 0; i++ {
		_, size := utf8.DecodeLastRuneInString(text[:start])
		start -= size
	}
	for i := 0; i < n && end < len(text); i++ {
		_, size := utf8.DecodeRuneInString(text[end:])
		end += size
	}
	return text[start:end]
}
