package generate

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/viant/ayahvec/source"
	"github.com/viant/ayahvec/store"
)

// QueryEmbedding is one precomputed search phrase.
type QueryEmbedding struct {
	Query     string    `json:"query"`
	Embedding []float32 `json:"embedding"`
}

// Queries embeds free-form search phrases in order with the Builder's
// concurrency and rate limit. The verse cache is not used.
func (b *Builder) Queries(ctx context.Context, queries []string) ([]QueryEmbedding, error) {
	if b.Embed == nil {
		return nil, fmt.Errorf("generate: EmbedFunc is nil")
	}
	uncached := *b
	uncached.Cache = nil
	texts := make([]source.Verse, len(queries))
	indexes := make([]int, len(queries))
	for i, q := range queries {
		texts[i] = source.Verse{Key: fmt.Sprintf("query %q", q), Text: q}
		indexes[i] = i
	}
	vectors := make([][]float32, len(queries))
	if err := uncached.embedBatch(ctx, texts, vectors, indexes); err != nil {
		return nil, err
	}
	out := make([]QueryEmbedding, len(queries))
	for i, q := range queries {
		if len(vectors[i]) != len(vectors[0]) {
			return nil, &store.DimensionMismatchError{Expected: len(vectors[0]), Actual: len(vectors[i]), Index: i}
		}
		out[i] = QueryEmbedding{Query: q, Embedding: vectors[i]}
	}
	b.logger().InfoContext(ctx, "queries embedded", "queries", len(out))
	return out, nil
}

// ReadQueryList reads one phrase per line, skipping blank lines and lines
// starting with '#'.
func ReadQueryList(r io.Reader) ([]string, error) {
	var out []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("generate: read queries: %w", err)
	}
	return out, nil
}

// WriteQueries encodes embeddings as a JSON array of {"query","embedding"}.
func WriteQueries(w io.Writer, queries []QueryEmbedding) error {
	if queries == nil {
		queries = []QueryEmbedding{}
	}
	return json.NewEncoder(w).Encode(queries)
}
