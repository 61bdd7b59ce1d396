package contextpack

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeLines(t *testing.T, root, path string, n int) {
	t.Helper()
	full := filepath.Join(root, path)
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	lines := make([]byte, 0, n*6)
	for i := 1; i <= n; i++ {
		lines = append(lines, []byte(filepath.Base(path))...)
		lines = append(lines, ' ')
		lines = append(lines, byte('0'+i%10))
		lines = append(lines, '\n')
	}
	require.NoError(t, os.WriteFile(full, lines[:len(lines)-1], 0o644))
}

func TestMergeRangesOverlappingAndAdjacent(t *testing.T) {
	assert.Equal(t, []lineRange{{1, 8}, {10, 15}}, mergeRanges([]lineRange{{1, 5}, {4, 8}, {10, 12}, {12, 15}}))
	assert.Equal(t, []lineRange{{1, 10}}, mergeRanges([]lineRange{{1, 5}, {6, 10}}))
	assert.Nil(t, mergeRanges(nil))
}

func TestBuildMergesAndReadsBlocks(t *testing.T) {
	root := t.TempDir()
	writeLines(t, root, "a.go", 20)

	b := New(root, 2)
	packs, err := b.Build([]LineResult{{Path: "a.go", Line: 5}, {Path: "a.go", Line: 7}})
	require.NoError(t, err)
	require.Len(t, packs, 1)
	assert.Equal(t, "a.go", packs[0].Path)
	require.Len(t, packs[0].Blocks, 1)
	assert.Equal(t, 3, packs[0].Blocks[0].StartLine)
	assert.Equal(t, 9, packs[0].Blocks[0].EndLine)
}

func TestBuildClampsToFileBounds(t *testing.T) {
	root := t.TempDir()
	writeLines(t, root, "a.go", 5)

	b := New(root, 3)
	packs, err := b.Build([]LineResult{{Path: "a.go", Line: 1}})
	require.NoError(t, err)
	require.Len(t, packs, 1)
	assert.Equal(t, 1, packs[0].Blocks[0].StartLine)
	assert.Equal(t, 4, packs[0].Blocks[0].EndLine)
}

func TestBuildSkipsZeroLineResults(t *testing.T) {
	root := t.TempDir()
	writeLines(t, root, "a.go", 5)

	b := New(root, 1)
	packs, err := b.Build([]LineResult{{Path: "a.go", Line: 0}})
	require.NoError(t, err)
	assert.Empty(t, packs)
}

func TestBuildGroupsMultipleFiles(t *testing.T) {
	root := t.TempDir()
	writeLines(t, root, "a.go", 10)
	writeLines(t, root, "b.go", 10)

	b := New(root, 1)
	packs, err := b.Build([]LineResult{{Path: "a.go", Line: 5}, {Path: "b.go", Line: 3}})
	require.NoError(t, err)
	require.Len(t, packs, 2)
}

func TestBuildMissingFileErrors(t *testing.T) {
	root := t.TempDir()
	b := New(root, 1)
	_, err := b.Build([]LineResult{{Path: "missing.go", Line: 1}})
	require.Error(t, err)
}

func TestNewDefaultsContextLines(t *testing.T) {
	b := New("/tmp", 0)
	assert.Equal(t, DefaultContextLines, b.contextLines)
}
