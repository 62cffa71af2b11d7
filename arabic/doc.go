// Package arabic normalizes and tokenizes Arabic scripture text.
//
// Normalization removes diacritic (tashkeel) marks and nothing else.
// Tokenization additionally turns stop (waqf) marks into word boundaries
// before splitting on whitespace, so a stop mark written directly between two
// words never glues them together. Both character classes are Charsets and can
// be replaced from configuration.
package arabic
