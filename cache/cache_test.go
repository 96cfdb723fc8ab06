package cache

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteAndRead(t *testing.T) {
	store := New(t.TempDir())

	require.NoError(t, store.Write("hello-world", "<p>hi</p>"))

	html, found := store.Read("hello-world", time.Hour)
	assert.True(t, found)
	assert.Equal(t, "<p>hi</p>", html)
}

func TestReadMissesUnknownSlug(t *testing.T) {
	store := New(t.TempDir())

	_, found := store.Read("never-written", time.Hour)
	assert.False(t, found)
}

func TestReadMissesStaleEntry(t *testing.T) {
	store := New(t.TempDir())
	require.NoError(t, store.Write("hello-world", "<p>hi</p>"))

	old := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(store.path("hello-world"), old, old))

	_, found := store.Read("hello-world", time.Hour)
	assert.False(t, found)
}

func TestClear(t *testing.T) {
	store := New(t.TempDir())
	require.NoError(t, store.Write("hello-world", "<p>hi</p>"))
	require.NoError(t, store.Write("other-post", "<p>other</p>"))

	require.NoError(t, store.Clear("hello-world"))

	_, found := store.Read("hello-world", time.Hour)
	assert.False(t, found)

	_, found = store.Read("other-post", time.Hour)
	assert.True(t, found)
}

func TestClearMissingSlugIsNoop(t *testing.T) {
	store := New(t.TempDir())
	assert.NoError(t, store.Clear("never-written"))
}

func TestClearOld(t *testing.T) {
	store := New(t.TempDir())
	require.NoError(t, store.Write("fresh-post", "<p>new</p>"))
	require.NoError(t, store.Write("stale-post", "<p>old</p>"))

	old := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(store.path("stale-post"), old, old))

	require.NoError(t, store.ClearOld(24*time.Hour))

	_, found := store.Read("fresh-post", time.Hour)
	assert.True(t, found)

	_, err := os.Stat(store.path("stale-post"))
	assert.True(t, os.IsNotExist(err))
}

func TestDistinctSlugsGetDistinctFiles(t *testing.T) {
	store := New(t.TempDir())
	require.NoError(t, store.Write("post-a", "A"))
	require.NoError(t, store.Write("post-b", "B"))

	matches, err := filepath.Glob(filepath.Join(store.Dir, "posts", "*.html"))
	require.NoError(t, err)
	assert.Len(t, matches, 2)
}
