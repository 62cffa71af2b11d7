package source

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"

	"github.com/viant/ayahvec/arabic"
)

// Columns maps the Verse fields onto table columns. ID defaults to rowid and
// an empty Key is derived from surah and ayah.
type Columns struct {
	ID    string
	Surah string
	Ayah  string
	Key   string
	Text  string
}

var (
	// QuranColumns matches the per-script verse tables (al_quran_*_quran).
	QuranColumns = Columns{Surah: "sura", Ayah: "aya", Text: "text"}

	// TafsirColumns matches the commentary table.
	TafsirColumns = Columns{ID: "id", Surah: "surah", Ayah: "ayah", Key: "verse_key", Text: "text"}
)

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// Table reads verses from a SQLite table in id order.
//
// Table and column names are interpolated into SQL; they are validated as
// plain identifiers.
type Table struct {
	DB      *sql.DB
	Name    string
	Columns Columns

	// NormalizedContains keeps only rows whose diacritic-stripped text
	// contains this needle. The filter runs in SQL through ar_normalize, so
	// engine.RegisterFunctions must have been called before the connection was
	// opened.
	NormalizedContains string
}

// NewTable returns a Table for name using columns.
func NewTable(db *sql.DB, name string, columns Columns) *Table {
	return &Table{DB: db, Name: name, Columns: columns}
}

func (t *Table) query() (string, []interface{}, error) {
	if t.DB == nil {
		return "", nil, fmt.Errorf("source: db is nil")
	}
	c := t.Columns
	if c.ID == "" {
		c.ID = "rowid"
	}
	for _, name := range []string{t.Name, c.ID, c.Surah, c.Ayah, c.Text} {
		if !identifier.MatchString(name) {
			return "", nil, fmt.Errorf("source: invalid identifier %q", name)
		}
	}
	key := "''"
	if c.Key != "" {
		if !identifier.MatchString(c.Key) {
			return "", nil, fmt.Errorf("source: invalid identifier %q", c.Key)
		}
		key = "COALESCE(" + c.Key + ", '')"
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "SELECT %s, %s, %s, %s, COALESCE(%s, '') FROM %s", c.ID, c.Surah, c.Ayah, key, c.Text, t.Name)
	var args []interface{}
	if t.NormalizedContains != "" {
		fmt.Fprintf(&sb, " WHERE instr(ar_normalize(%s), ?) > 0", c.Text)
		args = append(args, arabic.Normalize(t.NormalizedContains))
	}
	fmt.Fprintf(&sb, " ORDER BY %s", c.ID)
	return sb.String(), args, nil
}

// Iterate implements VerseSource.
func (t *Table) Iterate(ctx context.Context, fn func(Verse) error) error {
	q, args, err := t.query()
	if err != nil {
		return err
	}
	rows, err := t.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("source: query %s: %w", t.Name, err)
	}
	defer rows.Close()
	for rows.Next() {
		var v Verse
		if err := rows.Scan(&v.ID, &v.Surah, &v.Ayah, &v.Key, &v.Text); err != nil {
			return fmt.Errorf("source: scan %s: %w", t.Name, err)
		}
		if v.Key == "" {
			v.Key = VerseKey(v.Surah, v.Ayah)
		}
		if err := fn(v); err != nil {
			return err
		}
	}
	return rows.Err()
}

// Ensure Table satisfies the VerseSource interface.
var _ VerseSource = (*Table)(nil)
