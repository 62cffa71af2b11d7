package vec

import (
	"database/sql/driver"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/viant/ayahvec/index/bruteforce"
	"github.com/viant/ayahvec/store"
	sqlite "modernc.org/sqlite"
)

// Global shared cache of loaded stores keyed by absolute path for
// cross-connection reuse.
var sharedCache = struct {
	mu     sync.Mutex
	byPath map[string]*cacheEntry
}{byPath: make(map[string]*cacheEntry)}

type cacheEntry struct {
	mu      sync.Mutex
	modTime time.Time
	size    int64
	set     *store.Set
	idx     *bruteforce.Index
}

func cacheKey(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}

func getCacheEntry(key string) *cacheEntry {
	sharedCache.mu.Lock()
	defer sharedCache.mu.Unlock()
	entry := sharedCache.byPath[key]
	if entry == nil {
		entry = &cacheEntry{}
		sharedCache.byPath[key] = entry
	}
	return entry
}

// load returns the index for path, reading the file again when its size or
// modification time changed since the last load.
func load(path string) (*store.Set, *bruteforce.Index, error) {
	key := cacheKey(path)
	info, err := os.Stat(key)
	if err != nil {
		return nil, nil, fmt.Errorf("vec: %w", err)
	}
	entry := getCacheEntry(key)
	entry.mu.Lock()
	defer entry.mu.Unlock()
	if entry.idx != nil && entry.modTime.Equal(info.ModTime()) && entry.size == info.Size() {
		return entry.set, entry.idx, nil
	}
	set, err := store.ReadFile(key)
	if err != nil {
		return nil, nil, err
	}
	entry.set, entry.idx = set, bruteforce.New(set)
	entry.modTime, entry.size = info.ModTime(), info.Size()
	return entry.set, entry.idx, nil
}

// InvalidateCache drops the cached store for path and reports whether one
// was loaded.
func InvalidateCache(path string) bool {
	key := cacheKey(path)
	sharedCache.mu.Lock()
	entry := sharedCache.byPath[key]
	delete(sharedCache.byPath, key)
	sharedCache.mu.Unlock()
	if entry == nil {
		return false
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	return entry.idx != nil
}

// invalidateFunc implements SQL scalar ayah_vec_invalidate(path TEXT) → INT.
func invalidateFunc(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	if len(args) != 1 {
		return int64(0), nil
	}
	path, err := asString(args[0])
	if err != nil {
		return int64(0), nil
	}
	if InvalidateCache(path) {
		return int64(1), nil
	}
	return int64(0), nil
}
