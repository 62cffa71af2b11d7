package generate

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"regexp"

	"github.com/viant/ayahvec/source"
	"github.com/viant/ayahvec/vector"
)

// Entry is a computed embedding for a verse.
type Entry struct {
	Verse  source.Verse
	Vector []float32
}

// Cache stores computed embeddings across runs. An entry is only valid for
// the exact text it was computed from.
type Cache interface {
	// Get returns the cached vector for v, or ok=false when absent or stale.
	Get(ctx context.Context, v source.Verse) (vec []float32, ok bool, err error)
	// Put stores entries, replacing older vectors for the same verse ids.
	Put(ctx context.Context, entries []Entry) error
}

// DefaultCacheTable is the cache table name. Its id, surah, ayah and
// embedding columns match source.DefaultEmbeddingColumns.
const DefaultCacheTable = "embeddings"

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func cacheDDL(table string) string {
	return `CREATE TABLE IF NOT EXISTS ` + table + ` (
    id        INTEGER PRIMARY KEY,
    surah     INTEGER NOT NULL,
    ayah      INTEGER NOT NULL,
    verse_key TEXT,
    text_hash TEXT NOT NULL,
    embedding BLOB
);`
}

// SQLiteCache keeps embeddings in a SQLite table keyed by verse id.
type SQLiteCache struct {
	db    *sql.DB
	table string
}

// NewSQLiteCache creates the cache table in db if it does not exist.
func NewSQLiteCache(ctx context.Context, db *sql.DB, table string) (*SQLiteCache, error) {
	if db == nil {
		return nil, fmt.Errorf("generate: db is nil")
	}
	if table == "" {
		table = DefaultCacheTable
	}
	if !tableName.MatchString(table) {
		return nil, fmt.Errorf("generate: invalid cache table %q", table)
	}
	if _, err := db.ExecContext(ctx, cacheDDL(table)); err != nil {
		return nil, fmt.Errorf("generate: create cache table: %w", err)
	}
	return &SQLiteCache{db: db, table: table}, nil
}

// Table returns the cache table name.
func (c *SQLiteCache) Table() string { return c.table }

// Get implements Cache.
func (c *SQLiteCache) Get(ctx context.Context, v source.Verse) ([]float32, bool, error) {
	var blob []byte
	err := c.db.QueryRowContext(ctx, `SELECT embedding FROM `+c.table+` WHERE id = ? AND text_hash = ?`, v.ID, textHash(v.Text)).Scan(&blob)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("generate: cache get %d: %w", v.ID, err)
	}
	vec, err := vector.DecodeEmbedding(blob)
	if err != nil {
		return nil, false, fmt.Errorf("generate: cache get %d: %w", v.ID, err)
	}
	if len(vec) == 0 {
		return nil, false, nil
	}
	return vec, true, nil
}

// Put implements Cache. All entries are written in one transaction.
func (c *SQLiteCache) Put(ctx context.Context, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO `+c.table+`(id, surah, ayah, verse_key, text_hash, embedding)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
  surah = excluded.surah,
  ayah = excluded.ayah,
  verse_key = excluded.verse_key,
  text_hash = excluded.text_hash,
  embedding = excluded.embedding`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, e := range entries {
		blob, err := vector.EncodeEmbedding(e.Vector)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, e.Verse.ID, e.Verse.Surah, e.Verse.Ayah, e.Verse.Key, textHash(e.Verse.Text), blob); err != nil {
			return fmt.Errorf("generate: cache put %d: %w", e.Verse.ID, err)
		}
	}
	return tx.Commit()
}

func textHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// Ensure SQLiteCache satisfies the Cache interface.
var _ Cache = (*SQLiteCache)(nil)
