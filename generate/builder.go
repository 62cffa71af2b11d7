package generate

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/viant/ayahvec/internal/logging"
	"github.com/viant/ayahvec/source"
	"github.com/viant/ayahvec/store"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// EmbedFunc converts free-form text into an embedding.
//
// Implementations can call any embedding provider (hosted API, local model)
// as long as they return a slice of float32 values of a fixed length.
type EmbedFunc func(ctx context.Context, text string) ([]float32, error)

const (
	// DefaultConcurrency bounds in-flight EmbedFunc calls.
	DefaultConcurrency = 4
	// DefaultBatchSize is the number of new vectors written to the cache at a
	// time.
	DefaultBatchSize = 64
)

// Builder turns a VerseSource into a store.Set.
type Builder struct {
	Embed       EmbedFunc
	Concurrency int
	BatchSize   int
	// Limiter throttles EmbedFunc calls when set.
	Limiter *rate.Limiter
	// Cache is consulted before, and filled after, each embedding call.
	Cache  Cache
	Logger *slog.Logger
}

// NewBuilder returns a Builder with default concurrency and batch size.
func NewBuilder(embed EmbedFunc) *Builder {
	return &Builder{Embed: embed, Concurrency: DefaultConcurrency, BatchSize: DefaultBatchSize}
}

// Result summarizes a Build run.
type Result struct {
	Set      *store.Set
	Verses   int
	Cached   int
	Embedded int
	Elapsed  time.Duration
}

// Build embeds every verse of src and returns the records in source order.
// The first error cancels outstanding calls; batches already written to the
// cache stay there.
func (b *Builder) Build(ctx context.Context, src source.VerseSource) (*Result, error) {
	if b.Embed == nil {
		return nil, fmt.Errorf("generate: EmbedFunc is nil")
	}
	started := time.Now()
	logger := b.logger()

	verses, err := source.Collect(ctx, src)
	if err != nil {
		return nil, fmt.Errorf("generate: read source: %w", err)
	}
	for i := range verses {
		if verses[i].Key == "" {
			verses[i].Key = source.VerseKey(verses[i].Surah, verses[i].Ayah)
		}
	}
	result := &Result{Verses: len(verses)}
	vectors := make([][]float32, len(verses))

	var pending []int
	for i, v := range verses {
		if b.Cache != nil {
			vec, ok, err := b.Cache.Get(ctx, v)
			if err != nil {
				return nil, err
			}
			if ok {
				vectors[i] = vec
				result.Cached++
				continue
			}
		}
		pending = append(pending, i)
	}
	logger.InfoContext(ctx, "generation started", "verses", len(verses), "cached", result.Cached, "pending", len(pending))

	batch := b.BatchSize
	if batch <= 0 {
		batch = DefaultBatchSize
	}
	for start := 0; start < len(pending); start += batch {
		end := min(start+batch, len(pending))
		if err := b.embedBatch(ctx, verses, vectors, pending[start:end]); err != nil {
			logger.ErrorContext(ctx, "generation failed", "embedded", result.Embedded, "error", err)
			return nil, err
		}
		result.Embedded += end - start
		logger.DebugContext(ctx, "batch embedded", "done", result.Embedded, "pending", len(pending))
	}

	records := make([]store.Record, len(verses))
	for i, v := range verses {
		rec, err := store.NewRecord(v.ID, v.Surah, v.Ayah, vectors[i])
		if err != nil {
			return nil, fmt.Errorf("generate: verse %s: %w", v.Key, err)
		}
		records[i] = rec
	}
	set, err := store.NewSet(records)
	if err != nil {
		return nil, fmt.Errorf("generate: %w", err)
	}
	result.Set = set
	result.Elapsed = time.Since(started)
	logger.InfoContext(ctx, "generation completed",
		"verses", result.Verses,
		"cached", result.Cached,
		"embedded", result.Embedded,
		"dimension", set.Dim(),
		"elapsed", result.Elapsed,
	)
	return result, nil
}

// embedBatch fills vectors at the given indexes and then caches them.
func (b *Builder) embedBatch(ctx context.Context, verses []source.Verse, vectors [][]float32, indexes []int) error {
	g, gctx := errgroup.WithContext(ctx)
	limit := b.Concurrency
	if limit <= 0 {
		limit = DefaultConcurrency
	}
	g.SetLimit(limit)
	for _, i := range indexes {
		g.Go(func() error {
			if b.Limiter != nil {
				if err := b.Limiter.Wait(gctx); err != nil {
					return err
				}
			}
			v := verses[i]
			vec, err := b.Embed(gctx, v.Text)
			if err != nil {
				return fmt.Errorf("generate: embed %s: %w", v.Key, err)
			}
			if len(vec) == 0 {
				return fmt.Errorf("generate: embed %s: empty vector", v.Key)
			}
			vectors[i] = vec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	if b.Cache == nil {
		return nil
	}
	entries := make([]Entry, len(indexes))
	for j, i := range indexes {
		entries[j] = Entry{Verse: verses[i], Vector: vectors[i]}
	}
	return b.Cache.Put(ctx, entries)
}

func (b *Builder) logger() *slog.Logger {
	if b.Logger != nil {
		return b.Logger
	}
	return logging.Nop()
}
