package vec

import (
	"database/sql"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/viant/ayahvec/index"
	"github.com/viant/ayahvec/source"
	"github.com/viant/ayahvec/vector"
	sqlite "modernc.org/sqlite"
	"modernc.org/sqlite/vtab"
)

// ModuleName is the name used in CREATE VIRTUAL TABLE ... USING.
const ModuleName = "ayah_vec"

// Declared columns.
const (
	colID = iota
	colSurah
	colAyah
	colVerseKey
	colScore
	colEmbedding
	colK
)

// idxNum bits chosen by BestIndex; constraint arguments follow the same order.
const (
	planMatch = 1 << iota
	planK
	planMinScore
	planScoreStrict
)

// Module implements vtab.Module for ayah_vec tables.
type Module struct{}

// Table is a single ayah_vec table bound to a store file.
type Table struct {
	path string
}

// Cursor iterates the rows selected by Filter.
type Cursor struct {
	table   *Table
	matches []index.Match
	pos     int
}

var registerInvalidateOnce sync.Once

// Register registers the ayah_vec module with the provided *sql.DB.
func Register(db *sql.DB) error {
	if err := vtab.RegisterModule(db, ModuleName, &Module{}); err != nil {
		if !strings.Contains(err.Error(), "already registered") {
			return err
		}
	}
	// Register ayah_vec_invalidate globally for new connections; idempotent.
	registerInvalidateOnce.Do(func() {
		_ = sqlite.RegisterScalarFunction("ayah_vec_invalidate", 1, invalidateFunc)
	})
	return nil
}

// Create declares the table schema; the store file is loaded on first query.
func (m *Module) Create(ctx vtab.Context, args []string) (vtab.Table, error) {
	return m.Connect(ctx, args)
}

// Connect attaches to an existing ayah_vec table.
func (m *Module) Connect(ctx vtab.Context, args []string) (vtab.Table, error) {
	if len(args) < 3 {
		return nil, fmt.Errorf("vec: CREATE expects at least 3 args, got %d", len(args))
	}
	if err := ctx.EnableConstraintSupport(); err != nil {
		return nil, fmt.Errorf("vec: EnableConstraintSupport failed: %w", err)
	}
	path, err := parseOptions(args[3:])
	if err != nil {
		return nil, err
	}
	if err := ctx.Declare(fmt.Sprintf("CREATE TABLE %s(id INTEGER, surah INTEGER, ayah INTEGER, verse_key TEXT, score REAL HIDDEN, embedding BLOB HIDDEN, k INTEGER HIDDEN)", args[2])); err != nil {
		return nil, err
	}
	return &Table{path: path}, nil
}

// parseOptions reads path=<file>; a bare first argument is taken as the
// path too.
func parseOptions(args []string) (string, error) {
	var path string
	for i, raw := range args {
		a := strings.TrimSpace(raw)
		if a == "" {
			continue
		}
		key, val, found := strings.Cut(a, "=")
		if !found {
			if i == 0 {
				path = unquote(a)
			}
			continue
		}
		if strings.ToLower(strings.TrimSpace(key)) == "path" {
			path = unquote(strings.TrimSpace(val))
		}
	}
	if path == "" {
		return "", fmt.Errorf("vec: %s requires path=<store file>", ModuleName)
	}
	return path, nil
}

func unquote(s string) string {
	if len(s) >= 2 && (s[0] == '\'' || s[0] == '"') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1]
	}
	return s
}

// BestIndex pushes down MATCH on embedding, k = ? and score >= / > ?.
func (t *Table) BestIndex(info *vtab.IndexInfo) error {
	var match, k, score *vtab.Constraint
	for i := range info.Constraints {
		c := &info.Constraints[i]
		if !c.Usable {
			continue
		}
		switch {
		case c.Column == colEmbedding && c.Op == vtab.OpMATCH:
			match = c
		case c.Column == colK && c.Op == vtab.OpEQ:
			k = c
		case c.Column == colScore && (c.Op == vtab.OpGE || c.Op == vtab.OpGT):
			score = c
		}
	}
	plan, nextArg := 0, 0
	if match != nil {
		match.ArgIndex = nextArg
		match.Omit = true
		nextArg++
		plan |= planMatch
	}
	if k != nil {
		k.ArgIndex = nextArg
		k.Omit = true
		nextArg++
		plan |= planK
	}
	if match != nil && score != nil {
		score.ArgIndex = nextArg
		score.Omit = true
		plan |= planMinScore
		if score.Op == vtab.OpGT {
			plan |= planScoreStrict
		}
	}
	info.IdxNum = plan
	return nil
}

// Open allocates a new cursor.
func (t *Table) Open() (vtab.Cursor, error) { return &Cursor{table: t}, nil }

// Disconnect cleans up per-connection resources.
func (t *Table) Disconnect() error { return nil }

// Destroy leaves the store file in place.
func (t *Table) Destroy() error { return nil }

// Filter computes the result set based on idxNum/vals.
func (c *Cursor) Filter(idxNum int, idxStr string, vals []vtab.Value) error {
	_ = idxStr
	c.matches, c.pos = nil, 0
	set, idx, err := load(c.table.path)
	if err != nil {
		return err
	}
	arg := 0
	var query []float32
	if idxNum&planMatch != 0 {
		if query, err = decodeMatchArg(vals[arg]); err != nil {
			return err
		}
		arg++
	}
	k := set.Len()
	if idxNum&planK != 0 {
		n, err := asInt(vals[arg])
		if err != nil {
			return err
		}
		k = int(n)
		arg++
	}

	if query == nil {
		k = max(0, min(k, set.Len()))
		c.matches = make([]index.Match, k)
		for i := range c.matches {
			c.matches[i] = index.Match{Position: i, Record: set.At(i)}
		}
		return nil
	}

	matches, err := idx.Query(query, k)
	if err != nil {
		return err
	}
	if idxNum&planMinScore != 0 {
		bound, err := asFloat(vals[arg])
		if err != nil {
			return err
		}
		strict := idxNum&planScoreStrict != 0
		kept := matches[:0]
		for _, m := range matches {
			if m.Score > bound || (!strict && m.Score == bound) {
				kept = append(kept, m)
			}
		}
		matches = kept
	}
	c.matches = matches
	return nil
}

func decodeMatchArg(v interface{}) ([]float32, error) {
	switch val := v.(type) {
	case []byte:
		return vector.DecodeEmbedding(val)
	case string:
		return decodeMatchString(val)
	default:
		return nil, fmt.Errorf("vec: expected MATCH arg as BLOB or string, got %T", v)
	}
}

func decodeMatchString(raw string) ([]float32, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil, fmt.Errorf("vec: MATCH string is empty")
	}
	if strings.HasPrefix(s, "[") {
		var floats []float32
		if err := json.Unmarshal([]byte(s), &floats); err != nil {
			return nil, fmt.Errorf("vec: invalid MATCH list: %w", err)
		}
		return floats, nil
	}
	if strings.Contains(s, ",") {
		parts := strings.Split(s, ",")
		vec := make([]float32, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p == "" {
				continue
			}
			f, err := strconv.ParseFloat(p, 32)
			if err != nil {
				return nil, fmt.Errorf("vec: invalid MATCH float %q: %w", p, err)
			}
			vec = append(vec, float32(f))
		}
		return vec, nil
	}
	if b, err := base64.StdEncoding.DecodeString(s); err == nil {
		return vector.DecodeEmbedding(b)
	}
	return nil, fmt.Errorf("vec: MATCH string must be base64-encoded embedding or JSON/CSV float list")
}

// Next advances the cursor.
func (c *Cursor) Next() error {
	if c.pos < len(c.matches) {
		c.pos++
	}
	return nil
}

// Eof reports end-of-rows.
func (c *Cursor) Eof() bool { return c.pos >= len(c.matches) }

// Column returns the value of a column in the current row.
func (c *Cursor) Column(col int) (vtab.Value, error) {
	if c.pos < 0 || c.pos >= len(c.matches) {
		return nil, fmt.Errorf("vec: Column out of range (pos=%d,len=%d)", c.pos, len(c.matches))
	}
	m := c.matches[c.pos]
	switch col {
	case colID:
		return int64(m.Record.ID), nil
	case colSurah:
		return int64(m.Record.Surah), nil
	case colAyah:
		return int64(m.Record.Ayah), nil
	case colVerseKey:
		return source.VerseKey(int(m.Record.Surah), int(m.Record.Ayah)), nil
	case colScore:
		return m.Score, nil
	case colEmbedding:
		return vector.AppendEmbedding(nil, m.Record.Vector), nil
	case colK:
		return nil, nil
	}
	return nil, fmt.Errorf("vec: unsupported column %d", col)
}

// Rowid returns the record position, 1-based.
func (c *Cursor) Rowid() (int64, error) {
	if c.pos < 0 || c.pos >= len(c.matches) {
		return 0, fmt.Errorf("vec: Rowid out of range (pos=%d,len=%d)", c.pos, len(c.matches))
	}
	return int64(c.matches[c.pos].Position) + 1, nil
}

// Close releases resources.
func (c *Cursor) Close() error { c.matches = nil; c.pos = 0; return nil }

func asInt(v vtab.Value) (int64, error) {
	switch val := v.(type) {
	case int64:
		return val, nil
	case float64:
		return int64(val), nil
	case string:
		return strconv.ParseInt(strings.TrimSpace(val), 10, 64)
	default:
		return 0, fmt.Errorf("vec: unsupported k type %T", v)
	}
}

func asFloat(v vtab.Value) (float64, error) {
	switch val := v.(type) {
	case float64:
		return val, nil
	case int64:
		return float64(val), nil
	case []byte:
		f, err := strconv.ParseFloat(string(val), 64)
		if err != nil {
			return 0, fmt.Errorf("vec: cannot parse score %q: %w", string(val), err)
		}
		return f, nil
	case string:
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return 0, fmt.Errorf("vec: cannot parse score %q: %w", val, err)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("vec: unsupported score type %T", v)
	}
}

func asString(v interface{}) (string, error) {
	switch val := v.(type) {
	case string:
		return val, nil
	case []byte:
		return string(val), nil
	default:
		return "", fmt.Errorf("vec: unsupported path type %T", v)
	}
}
