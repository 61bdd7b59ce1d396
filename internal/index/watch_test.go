package index

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatchRunsInitialPassAndReportsResult(t *testing.T) {
	p, _, root := newTestPipeline(t, false)
	writeFile(t, root, "main.go", "package main\n\nfunc main() {}\n")

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	var results []Result
	err := p.Watch(ctx, Options{Root: root, IndexDir: filepath.Join(root, ".cgrep", "index")}, func(r Result, _ error) {
		results = append(results, r)
	})
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, 1, results[0].FilesIndexed)
}

func TestWatchReindexesOnFileChange(t *testing.T) {
	p, _, root := newTestPipeline(t, false)
	indexDir := filepath.Join(root, ".cgrep", "index")
	writeFile(t, root, "main.go", "package main\n\nfunc main() {}\n")

	ctx, cancel := context.WithTimeout(context.Background(), 4*time.Second)
	defer cancel()

	passes := make(chan Result, 10)
	go func() {
		_ = p.Watch(ctx, Options{Root: root, IndexDir: indexDir}, func(r Result, _ error) {
			select {
			case passes <- r:
			default:
			}
		})
	}()

	select {
	case <-passes:
	case <-time.After(2 * time.Second):
		t.Fatal("initial pass did not complete")
	}

	writeFile(t, root, "other.go", "package main\n\nfunc Other() {}\n")

	select {
	case r := <-passes:
		assert.GreaterOrEqual(t, r.FilesIndexed, 0)
	case <-time.After(3 * time.Second):
		t.Fatal("watch did not reindex after file change")
	}
}

func TestRelevantBatchEmptyIsFalse(t *testing.T) {
	assert.False(t, relevantBatch(nil))
}

func TestWatchStopsOnContextCancel(t *testing.T) {
	p, _, root := newTestPipeline(t, false)
	writeFile(t, root, "main.go", "package main\n")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- p.Watch(ctx, Options{Root: root, IndexDir: filepath.Join(root, ".cgrep", "index")}, nil)
	}()
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watch did not stop after context cancellation")
	}
}

func TestRunSkipsOwnIndexDirectory(t *testing.T) {
	p, _, root := newTestPipeline(t, false)
	indexDir := filepath.Join(root, ".cgrep", "index")
	writeFile(t, root, "main.go", "package main\n")

	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	_, err := p.Run(ctx, Options{Root: root, IndexDir: indexDir})
	require.NoError(t, err)

	// Writing inside .cgrep must not appear as an indexed path.
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".cgrep", "scratch"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, ".cgrep", "scratch", "note.go"), []byte("package x\n"), 0o644))

	_, err = p.Run(ctx, Options{Root: root, IndexDir: indexDir})
	require.NoError(t, err)

	paths, err := p.deps.Index.AllPaths()
	require.NoError(t, err)
	assert.NotContains(t, paths, ".cgrep/scratch/note.go")
}
