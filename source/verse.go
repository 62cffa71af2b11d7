package source

import (
	"context"
	"fmt"
)

// Verse is one corpus row keyed by scripture location. The same surah/ayah
// pair can appear in several script-variant tables.
type Verse struct {
	ID    int64
	Surah int
	Ayah  int
	Key   string
	Text  string
}

// VerseKey formats the conventional "surah:ayah" key.
func VerseKey(surah, ayah int) string { return fmt.Sprintf("%d:%d", surah, ayah) }

// VerseSource is a read-only ordered cursor over corpus rows. Iterate calls fn
// for each row in source order and stops at the first error fn returns.
type VerseSource interface {
	Iterate(ctx context.Context, fn func(Verse) error) error
}

// Slice is an in-memory VerseSource.
type Slice []Verse

// Iterate implements VerseSource.
func (s Slice) Iterate(ctx context.Context, fn func(Verse) error) error {
	for _, v := range s {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(v); err != nil {
			return err
		}
	}
	return nil
}

// Collect drains src into a slice.
func Collect(ctx context.Context, src VerseSource) ([]Verse, error) {
	var out []Verse
	err := src.Iterate(ctx, func(v Verse) error {
		out = append(out, v)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Ensure Slice satisfies the VerseSource interface.
var _ VerseSource = Slice(nil)
