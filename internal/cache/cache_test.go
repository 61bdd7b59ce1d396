package cache

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetMissReturnsFalse(t *testing.T) {
	c, err := New(t.TempDir(), time.Minute)
	require.NoError(t, err)

	_, found, err := c.Get(Key{Query: "foo", Mode: "keyword"})
	require.NoError(t, err)
	assert.False(t, found)
}

func TestPutThenGetRoundTrips(t *testing.T) {
	c, err := New(t.TempDir(), time.Minute)
	require.NoError(t, err)

	key := Key{Query: "foo", Mode: "keyword", MaxResults: 10}
	payload, _ := json.Marshal(map[string]string{"hello": "world"})
	require.NoError(t, c.Put(key, payload))

	data, found, err := c.Get(key)
	require.NoError(t, err)
	require.True(t, found)
	assert.JSONEq(t, string(payload), string(data))
}

func TestDifferentKeysMiss(t *testing.T) {
	c, err := New(t.TempDir(), time.Minute)
	require.NoError(t, err)

	payload, _ := json.Marshal(map[string]string{"a": "b"})
	require.NoError(t, c.Put(Key{Query: "foo"}, payload))

	_, found, err := c.Get(Key{Query: "bar"})
	require.NoError(t, err)
	assert.False(t, found)
}

func TestExpiredEntryIsEvictedOnGet(t *testing.T) {
	root := t.TempDir()
	c, err := New(root, time.Millisecond)
	require.NoError(t, err)

	key := Key{Query: "foo"}
	payload, _ := json.Marshal("x")
	require.NoError(t, c.Put(key, payload))
	time.Sleep(5 * time.Millisecond)

	_, found, err := c.Get(key)
	require.NoError(t, err)
	assert.False(t, found)

	_, statErr := os.Stat(c.path(key))
	assert.True(t, os.IsNotExist(statErr))
}

func TestClearRemovesAllEntries(t *testing.T) {
	c, err := New(t.TempDir(), time.Minute)
	require.NoError(t, err)

	payload, _ := json.Marshal("x")
	require.NoError(t, c.Put(Key{Query: "a"}, payload))
	require.NoError(t, c.Put(Key{Query: "b"}, payload))

	n, err := c.Clear()
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	stats, err := c.Stats()
	require.NoError(t, err)
	assert.Equal(t, 0, stats.TotalEntries)
}

func TestPruneRemovesOnlyExpiredByMtime(t *testing.T) {
	root := t.TempDir()
	c, err := New(root, 10*time.Millisecond)
	require.NoError(t, err)

	payload, _ := json.Marshal("x")
	require.NoError(t, c.Put(Key{Query: "old"}, payload))
	oldPath := c.path(Key{Query: "old"})
	old := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(oldPath, old, old))

	require.NoError(t, c.Put(Key{Query: "new"}, payload))

	n, err := c.Prune()
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = os.Stat(oldPath)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(c.path(Key{Query: "new"}))
	assert.NoError(t, err)
}

func TestStatsReportsCountsAndBytes(t *testing.T) {
	root := t.TempDir()
	c, err := New(root, time.Hour)
	require.NoError(t, err)

	payload, _ := json.Marshal("x")
	require.NoError(t, c.Put(Key{Query: "a"}, payload))

	stats, err := c.Stats()
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalEntries)
	assert.Equal(t, 0, stats.Expired)
	assert.Greater(t, stats.TotalBytes, int64(0))
}

func TestNewCreatesCacheDirUnderRoot(t *testing.T) {
	root := t.TempDir()
	_, err := New(root, time.Minute)
	require.NoError(t, err)

	info, err := os.Stat(filepath.Join(root, ".cgrep", "cache", "search"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestKeyHashIsDeterministicAndDistinguishesFields(t *testing.T) {
	k1 := Key{Query: "foo", Mode: "keyword"}
	k2 := Key{Query: "foo", Mode: "keyword"}
	k3 := Key{Query: "foo", Mode: "semantic"}
	assert.Equal(t, k1.Hash(), k2.Hash())
	assert.NotEqual(t, k1.Hash(), k3.Hash())
	assert.Len(t, k1.Hash(), 32)
}
