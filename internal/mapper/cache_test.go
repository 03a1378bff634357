package mapper

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileCache_StartsEmptyWhenMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")

	c, err := NewFileCache(path)
	require.NoError(t, err)
	assert.Equal(t, 0, c.Len())

	_, ok := c.Lookup("anything")
	assert.False(t, ok)
}

func TestFileCache_PutPersistsImmediately(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")

	c, err := NewFileCache(path)
	require.NoError(t, err)

	c.Put("excess residue", "A050101")
	c.Put("unknown thing", "")

	// A fresh load sees both entries, including the cached empty answer.
	reloaded, err := NewFileCache(path)
	require.NoError(t, err)
	assert.Equal(t, 2, reloaded.Len())

	code, ok := reloaded.Lookup("excess residue")
	require.True(t, ok)
	assert.Equal(t, "A050101", code)

	code, ok = reloaded.Lookup("unknown thing")
	require.True(t, ok)
	assert.Equal(t, "", code)
}

func TestFileCache_CreatesParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "cache.json")

	c, err := NewFileCache(path)
	require.NoError(t, err)

	c.Put("term", "A05")

	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestFileCache_RejectsCorruptDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o644))

	_, err := NewFileCache(path)
	assert.Error(t, err)
}

func TestFileCache_TermsSorted(t *testing.T) {
	c, err := NewFileCache(filepath.Join(t.TempDir(), "cache.json"))
	require.NoError(t, err)

	c.Put("zeta", "B07")
	c.Put("alpha", "A05")
	c.Put("mid", "")

	assert.Equal(t, []string{"alpha", "mid", "zeta"}, c.Terms())
}
