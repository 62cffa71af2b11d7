package arabic

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
)

// Tokenizer splits text into words. Stop marks are turned into spaces before
// splitting, never deleted.
type Tokenizer struct {
	normalizer *Normalizer
	stops      *Charset
	separate   runes.Transformer
}

// NewTokenizer combines a normalizer with a stop-mark charset. The stop marks
// must not overlap the normalizer's diacritics, otherwise a stop mark would be
// deleted before it could act as a boundary.
func NewTokenizer(normalizer *Normalizer, stops *Charset) (*Tokenizer, error) {
	if normalizer == nil {
		return nil, fmt.Errorf("arabic: normalizer is nil")
	}
	if stops == nil {
		return nil, fmt.Errorf("arabic: stop-mark charset is nil")
	}
	if stops.Overlaps(normalizer.Diacritics()) {
		return nil, fmt.Errorf("arabic: stop marks %s overlap diacritics %s", stops, normalizer.Diacritics())
	}
	ret := &Tokenizer{normalizer: normalizer, stops: stops}
	ret.separate = runes.Map(ret.toSpace)
	return ret, nil
}

func (t *Tokenizer) toSpace(r rune) rune {
	if t.stops.Contains(r) {
		return ' '
	}
	return r
}

// Normalizer returns the underlying normalizer.
func (t *Tokenizer) Normalizer() *Normalizer { return t.normalizer }

// StopMarks returns the stop-mark charset.
func (t *Tokenizer) StopMarks() *Charset { return t.stops }

// Separate normalizes text and replaces every stop mark with a space.
func (t *Tokenizer) Separate(text string) string {
	text = t.normalizer.Normalize(text)
	if strings.IndexFunc(text, t.stops.Contains) < 0 {
		return text
	}
	out, _, err := transform.String(t.separate, text)
	if err != nil {
		return strings.Map(t.toSpace, text)
	}
	return out
}

// Tokenize returns the words of text in order: normalized, split at stop
// marks and runs of whitespace, with empty tokens dropped.
func (t *Tokenizer) Tokenize(text string) []string {
	return strings.Fields(t.Separate(text))
}

// Count returns len(t.Tokenize(text)) without building the slice.
func (t *Tokenizer) Count(text string) int {
	n := 0
	inWord := false
	for _, r := range t.Separate(text) {
		if unicode.IsSpace(r) {
			inWord = false
			continue
		}
		if !inWord {
			n++
			inWord = true
		}
	}
	return n
}

var defaultTokenizer, _ = NewTokenizer(defaultNormalizer, StopMarks)

// DefaultTokenizer returns the tokenizer for the default charsets.
func DefaultTokenizer() *Tokenizer { return defaultTokenizer }

// Tokenize splits text with the default charsets.
func Tokenize(text string) []string { return defaultTokenizer.Tokenize(text) }

// StripStops replaces the stop marks in text with spaces without removing
// diacritics.
func (t *Tokenizer) StripStops(text string) string { return strings.Map(t.toSpace, text) }

// StripStops replaces the default stop marks in text with spaces.
func StripStops(text string) string { return defaultTokenizer.StripStops(text) }
