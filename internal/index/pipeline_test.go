package index

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cgrep/cgrep/internal/config"
	"github.com/cgrep/cgrep/internal/embed"
	"github.com/cgrep/cgrep/internal/scan"
	"github.com/cgrep/cgrep/internal/store"
	"github.com/cgrep/cgrep/internal/store/embedstore"
	"github.com/cgrep/cgrep/internal/symbol"
)

func newTestPipeline(t *testing.T, withEmbeddings bool) (*Pipeline, store.Index, string) {
	t.Helper()
	root := t.TempDir()

	walker, err := scan.New()
	require.NoError(t, err)

	idx, err := store.New(filepath.Join(t.TempDir(), "bm25"), store.DefaultConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })

	deps := Dependencies{
		Walker:    walker,
		Extractor: symbol.NewExtractor(),
		Index:     idx,
	}
	if withEmbeddings {
		es, err := embedstore.Open(filepath.Join(t.TempDir(), "embeddings.sqlite"))
		require.NoError(t, err)
		t.Cleanup(func() { _ = es.Close() })
		deps.Embeddings = embed.NewDummyProvider(embedstore.DefaultDimension)
		deps.EmbedStore = es
	}

	return New(deps), idx, root
}

func writeFile(t *testing.T, root, relPath, content string) {
	t.Helper()
	full := filepath.Join(root, relPath)
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
}

func TestRunIndexesNewFiles(t *testing.T) {
	p, idx, root := newTestPipeline(t, false)
	writeFile(t, root, "main.go", "package main\n\nfunc main() {}\n")
	writeFile(t, root, "README.md", "# hello\n")

	result, err := p.Run(context.Background(), Options{Root: root, IndexDir: filepath.Join(root, ".cgrep", "index")})
	require.NoError(t, err)
	assert.Equal(t, 2, result.FilesIndexed)
	assert.Equal(t, 0, result.FilesSkipped)

	paths, err := idx.AllPaths()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"main.go", "README.md"}, paths)
}

func TestRunSkipsUnchangedFilesOnSecondPass(t *testing.T) {
	p, _, root := newTestPipeline(t, false)
	writeFile(t, root, "main.go", "package main\n\nfunc main() {}\n")
	indexDir := filepath.Join(root, ".cgrep", "index")

	_, err := p.Run(context.Background(), Options{Root: root, IndexDir: indexDir})
	require.NoError(t, err)

	result, err := p.Run(context.Background(), Options{Root: root, IndexDir: indexDir})
	require.NoError(t, err)
	assert.Equal(t, 0, result.FilesIndexed)
	assert.Equal(t, 1, result.FilesSkipped)
}

func TestRunDeletesVanishedFiles(t *testing.T) {
	p, idx, root := newTestPipeline(t, false)
	indexDir := filepath.Join(root, ".cgrep", "index")
	writeFile(t, root, "a.go", "package main\n")
	writeFile(t, root, "b.go", "package main\n")

	_, err := p.Run(context.Background(), Options{Root: root, IndexDir: indexDir})
	require.NoError(t, err)

	require.NoError(t, os.Remove(filepath.Join(root, "b.go")))

	result, err := p.Run(context.Background(), Options{Root: root, IndexDir: indexDir})
	require.NoError(t, err)
	assert.Equal(t, 1, result.FilesDeleted)

	paths, err := idx.AllPaths()
	require.NoError(t, err)
	assert.Equal(t, []string{"a.go"}, paths)
}

func TestRunSyncsEmbeddingsWhenEnabled(t *testing.T) {
	p, _, root := newTestPipeline(t, true)
	writeFile(t, root, "a.go", "package main\n\nfunc Foo() {\n\treturn\n}\n")
	indexDir := filepath.Join(root, ".cgrep", "index")

	result, err := p.Run(context.Background(), Options{
		Root: root, IndexDir: indexDir, EmbeddingsMode: config.EmbeddingOn,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.FilesIndexed)

	count, err := p.deps.EmbedStore.CountSymbols(context.Background())
	require.NoError(t, err)
	assert.Greater(t, count, int64(0))
}

func TestRunWithEmbeddingsOffSkipsEmbedStore(t *testing.T) {
	p, _, root := newTestPipeline(t, true)
	writeFile(t, root, "a.go", "package main\n\nfunc Foo() {}\n")

	_, err := p.Run(context.Background(), Options{
		Root: root, IndexDir: filepath.Join(root, ".cgrep", "index"), EmbeddingsMode: config.EmbeddingOff,
	})
	require.NoError(t, err)

	count, err := p.deps.EmbedStore.CountSymbols(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}

func TestRunForceEmbeddingsReindexesUnchangedFile(t *testing.T) {
	p, _, root := newTestPipeline(t, true)
	writeFile(t, root, "a.go", "package main\n\nfunc Foo() {}\n")
	indexDir := filepath.Join(root, ".cgrep", "index")

	_, err := p.Run(context.Background(), Options{Root: root, IndexDir: indexDir, EmbeddingsMode: config.EmbeddingOn})
	require.NoError(t, err)

	result, err := p.Run(context.Background(), Options{
		Root: root, IndexDir: indexDir, EmbeddingsMode: config.EmbeddingOn, ForceEmbeddings: true,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.FilesIndexed)
}
