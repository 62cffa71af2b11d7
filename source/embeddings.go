package source

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"

	"github.com/viant/ayahvec/store"
	"github.com/viant/ayahvec/vector"
)

// jsonEmbedding is one element of a generated embeddings document.
type jsonEmbedding struct {
	ID        int64     `json:"id"`
	Surah     int       `json:"surah"`
	Ayah      int       `json:"ayah"`
	VerseKey  string    `json:"verse_key,omitempty"`
	Text      string    `json:"text,omitempty"`
	Embedding []float32 `json:"embedding"`
}

// ReadJSONEmbeddings streams a JSON array of {"id","surah","ayah","embedding"}
// objects into records, in document order. Extra fields are ignored.
func ReadJSONEmbeddings(r io.Reader) ([]store.Record, error) {
	dec := json.NewDecoder(r)
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("source: read embeddings: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '[' {
		return nil, fmt.Errorf("source: embeddings document must be a JSON array, got %v", tok)
	}
	var out []store.Record
	for dec.More() {
		var e jsonEmbedding
		if err := dec.Decode(&e); err != nil {
			return nil, fmt.Errorf("source: embedding %d: %w", len(out), err)
		}
		rec, err := store.NewRecord(e.ID, e.Surah, e.Ayah, e.Embedding)
		if err != nil {
			return nil, fmt.Errorf("source: embedding %d: %w", len(out), err)
		}
		out = append(out, rec)
	}
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("source: read embeddings: %w", err)
	}
	return out, nil
}

// EmbeddingColumns maps record fields onto table columns.
type EmbeddingColumns struct {
	ID        string
	Surah     string
	Ayah      string
	Embedding string
}

// DefaultEmbeddingColumns are the column names used by the generation cache.
var DefaultEmbeddingColumns = EmbeddingColumns{ID: "id", Surah: "surah", Ayah: "ayah", Embedding: "embedding"}

// EmbeddingTable reads (id, surah, ayah, embedding BLOB) rows in id order.
// Rows with a NULL or empty embedding are skipped.
type EmbeddingTable struct {
	DB      *sql.DB
	Name    string
	Columns EmbeddingColumns
}

// Records loads every embedding row as a store record.
func (t *EmbeddingTable) Records(ctx context.Context) ([]store.Record, error) {
	if t.DB == nil {
		return nil, fmt.Errorf("source: db is nil")
	}
	c := t.Columns
	for _, name := range []string{t.Name, c.ID, c.Surah, c.Ayah, c.Embedding} {
		if !identifier.MatchString(name) {
			return nil, fmt.Errorf("source: invalid identifier %q", name)
		}
	}
	q := fmt.Sprintf("SELECT %s, %s, %s, %s FROM %s WHERE %s IS NOT NULL ORDER BY %s",
		c.ID, c.Surah, c.Ayah, c.Embedding, t.Name, c.Embedding, c.ID)
	rows, err := t.DB.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("source: query %s: %w", t.Name, err)
	}
	defer rows.Close()
	var out []store.Record
	for rows.Next() {
		var (
			id          int64
			surah, ayah int
			blob        []byte
		)
		if err := rows.Scan(&id, &surah, &ayah, &blob); err != nil {
			return nil, fmt.Errorf("source: scan %s: %w", t.Name, err)
		}
		if len(blob) == 0 {
			continue
		}
		vec, err := vector.DecodeEmbedding(blob)
		if err != nil {
			return nil, fmt.Errorf("source: row %d: %w", id, err)
		}
		rec, err := store.NewRecord(id, surah, ayah, vec)
		if err != nil {
			return nil, fmt.Errorf("source: row %d: %w", id, err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
