package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMemIndex(t *testing.T) *BleveIndex {
	t.Helper()
	idx, err := New("", DefaultConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

func TestIndexAndSearchByContent(t *testing.T) {
	idx := newMemIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.Index(ctx, []*Document{
		{Path: "a.go", Content: "func computeHash(data []byte) uint64", Language: "go", Symbols: "computeHash"},
		{Path: "b.go", Content: "func renderPage(w io.Writer)", Language: "go", Symbols: "renderPage"},
	}))

	results, err := idx.Search(ctx, "computeHash", 10, SearchOptions{})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "a.go", results[0].Path)
}

func TestSearchMatchesSymbolsField(t *testing.T) {
	idx := newMemIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.Index(ctx, []*Document{
		{Path: "a.go", Content: "some unrelated body", Language: "go", Symbols: "ParseConfig"},
	}))

	results, err := idx.Search(ctx, "ParseConfig", 10, SearchOptions{})
	require.NoError(t, err)
	require.Len(t, results, 1)
}

func TestSearchRestrictedToFields(t *testing.T) {
	idx := newMemIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.Index(ctx, []*Document{
		{Path: "a.go", Content: "nothing interesting", Language: "rust", Symbols: "fooBar"},
	}))

	results, err := idx.Search(ctx, "rust", 10, SearchOptions{Fields: []string{"content"}})
	require.NoError(t, err)
	assert.Empty(t, results) // "rust" only appears in the language field, excluded from this query
}

func TestDeleteRemovesDocument(t *testing.T) {
	idx := newMemIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.Index(ctx, []*Document{{Path: "a.go", Content: "hello world", Symbols: ""}}))
	require.NoError(t, idx.Delete(ctx, []string{"a.go"}))

	results, err := idx.Search(ctx, "hello", 10, SearchOptions{})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestAllPathsReturnsEveryDocument(t *testing.T) {
	idx := newMemIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.Index(ctx, []*Document{
		{Path: "a.go", Content: "x"},
		{Path: "b.go", Content: "y"},
	}))

	paths, err := idx.AllPaths()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a.go", "b.go"}, paths)
}

func TestEmptyQueryReturnsEmpty(t *testing.T) {
	idx := newMemIndex(t)
	results, err := idx.Search(context.Background(), "", 10, SearchOptions{})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestOperationsAfterCloseFail(t *testing.T) {
	idx := newMemIndex(t)
	require.NoError(t, idx.Close())

	_, err := idx.Search(context.Background(), "x", 10, SearchOptions{})
	assert.ErrorIs(t, err, ErrIndexClosed)
}

func TestReindexingSamePathReplaces(t *testing.T) {
	idx := newMemIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.Index(ctx, []*Document{{Path: "a.go", Content: "original body"}}))
	require.NoError(t, idx.Index(ctx, []*Document{{Path: "a.go", Content: "updated body"}}))

	results, err := idx.Search(ctx, "original", 10, SearchOptions{})
	require.NoError(t, err)
	assert.Empty(t, results)

	results, err = idx.Search(ctx, "updated", 10, SearchOptions{})
	require.NoError(t, err)
	require.Len(t, results, 1)
}
