package arabic

import (
	"strings"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
)

// Normalizer strips a diacritic charset from text. It is stateless and safe
// for concurrent use.
type Normalizer struct {
	diacritics *Charset
	remove     runes.Transformer
}

// NewNormalizer returns a normalizer removing the runes of diacritics.
func NewNormalizer(diacritics *Charset) *Normalizer {
	return &Normalizer{
		diacritics: diacritics,
		remove:     runes.Remove(runes.Predicate(diacritics.Contains)),
	}
}

// Diacritics returns the removed charset.
func (n *Normalizer) Diacritics() *Charset { return n.diacritics }

// Normalize removes every diacritic rune and leaves all other runes,
// whitespace included, as they are.
func (n *Normalizer) Normalize(text string) string {
	if strings.IndexFunc(text, n.diacritics.Contains) < 0 {
		return text
	}
	out, _, err := transform.String(n.remove, text)
	if err != nil {
		return strings.Map(n.drop, text)
	}
	return out
}

func (n *Normalizer) drop(r rune) rune {
	if n.diacritics.Contains(r) {
		return -1
	}
	return r
}

// Index returns the byte offset of the normalized needle within the
// normalized text, or -1.
func (n *Normalizer) Index(text, needle string) int {
	return strings.Index(n.Normalize(text), n.Normalize(needle))
}

// Contains reports whether needle occurs in text ignoring diacritics on both
// sides.
func (n *Normalizer) Contains(text, needle string) bool {
	return n.Index(text, needle) >= 0
}

var defaultNormalizer = NewNormalizer(Diacritics)

// DefaultNormalizer returns the normalizer for the default diacritic class.
func DefaultNormalizer() *Normalizer { return defaultNormalizer }

// Normalize strips the default diacritic class from text.
func Normalize(text string) string { return defaultNormalizer.Normalize(text) }

// Contains is a diacritic-insensitive strings.Contains.
func Contains(text, needle string) bool { return defaultNormalizer.Contains(text, needle) }
