package main

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/maude-cli/internal/mapper"
)

func newPopulatedCache(t *testing.T) *mapper.FileCache {
	t.Helper()
	c, err := mapper.NewFileCache(filepath.Join(t.TempDir(), "cache.json"))
	require.NoError(t, err)
	c.Put("excess residue", "A050101")
	c.Put("mechanical problem", "B07")
	c.Put("gibberish", "")
	return c
}

func TestFormatCacheList(t *testing.T) {
	c := newPopulatedCache(t)

	var buf bytes.Buffer
	formatCacheList(&buf, c)
	out := buf.String()

	assert.Contains(t, out, "TERM")
	assert.Contains(t, out, "excess residue")
	assert.Contains(t, out, "A050101")
	assert.Contains(t, out, "mechanical problem")
	assert.Contains(t, out, "(no match)")
}

func TestCacheTally(t *testing.T) {
	c := newPopulatedCache(t)

	resolved, unresolved := cacheTally(c)
	assert.Equal(t, 2, resolved)
	assert.Equal(t, 1, unresolved)
}
