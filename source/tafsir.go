package source

import (
	"context"
	"regexp"
	"strings"
	"unicode/utf8"
)

// DefaultMinLength is the shortest cleaned commentary kept for embedding;
// shorter entries are placeholders or extraction errors.
const DefaultMinLength = 20

var htmlTag = regexp.MustCompile(`<.*?>`)

// CleanHTML removes markup tags from text.
func CleanHTML(text string) string { return htmlTag.ReplaceAllString(text, "") }

// Tafsir wraps a commentary source: it strips HTML, trims whitespace and
// skips entries shorter than MinLength runes.
type Tafsir struct {
	Source    VerseSource
	MinLength int
}

// NewTafsir wraps src with DefaultMinLength.
func NewTafsir(src VerseSource) *Tafsir {
	return &Tafsir{Source: src, MinLength: DefaultMinLength}
}

// Iterate implements VerseSource.
func (t *Tafsir) Iterate(ctx context.Context, fn func(Verse) error) error {
	return t.Source.Iterate(ctx, func(v Verse) error {
		v.Text = strings.TrimSpace(CleanHTML(v.Text))
		if utf8.RuneCountInString(v.Text) < t.MinLength {
			return nil
		}
		return fn(v)
	})
}

// Ensure Tafsir satisfies the VerseSource interface.
var _ VerseSource = (*Tafsir)(nil)
