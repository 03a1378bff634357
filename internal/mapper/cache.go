package mapper

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Cache stores resolved normalized fragments. An empty value is a valid,
// final answer meaning "known to have no code". Entries are never deleted.
type Cache interface {
	Lookup(term string) (string, bool)
	Put(term, code string)
	Len() int
}

// FileCache is a write-through cache backed by a JSON document. The file
// is loaded fully at construction and rewritten on every Put so an
// interrupted batch never loses resolved terms. Single writer assumed.
type FileCache struct {
	path    string
	entries map[string]string
}

// NewFileCache loads the cache document at path, or starts empty if the
// file does not exist yet.
func NewFileCache(path string) (*FileCache, error) {
	c := &FileCache{
		path:    path,
		entries: make(map[string]string),
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return c, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "mapper: read cache %s", path)
	}
	if err := json.Unmarshal(data, &c.entries); err != nil {
		return nil, eris.Wrapf(err, "mapper: parse cache %s", path)
	}

	zap.L().Info("mapper: loaded resolution cache",
		zap.String("path", path),
		zap.Int("entries", len(c.entries)),
	)
	return c, nil
}

func (c *FileCache) Lookup(term string) (string, bool) {
	code, ok := c.entries[term]
	return code, ok
}

// Put records the resolution and flushes the document. A persist failure
// is logged as a warning; the in-memory cache keeps serving the run.
func (c *FileCache) Put(term, code string) {
	c.entries[term] = code
	if err := c.flush(); err != nil {
		zap.L().Warn("mapper: persist cache failed", zap.String("path", c.path), zap.Error(err))
	}
}

func (c *FileCache) Len() int {
	return len(c.entries)
}

func (c *FileCache) flush() error {
	if dir := filepath.Dir(c.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return eris.Wrapf(err, "mapper: create cache dir %s", dir)
		}
	}
	data, err := json.MarshalIndent(c.entries, "", "  ")
	if err != nil {
		return eris.Wrap(err, "mapper: marshal cache")
	}
	if err := os.WriteFile(c.path, data, 0o644); err != nil {
		return eris.Wrapf(err, "mapper: write cache %s", c.path)
	}
	return nil
}

// Terms returns the cached fragment keys in sorted order. Used for
// inspection commands.
func (c *FileCache) Terms() []string {
	terms := make([]string, 0, len(c.entries))
	for t := range c.entries {
		terms = append(terms, t)
	}
	sort.Strings(terms)
	return terms
}

// MemCache is an in-memory Cache for tests and dry runs.
type MemCache map[string]string

func (c MemCache) Lookup(term string) (string, bool) {
	code, ok := c[term]
	return code, ok
}

func (c MemCache) Put(term, code string) {
	c[term] = code
}

func (c MemCache) Len() int {
	return len(c)
}
