package structural

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cgrep/cgrep/internal/scan"
	"github.com/cgrep/cgrep/internal/symbol"
)

func recordChan(records ...scan.FileRecord) <-chan scan.FileRecord {
	ch := make(chan scan.FileRecord, len(records))
	for _, r := range records {
		ch <- r
	}
	close(ch)
	return ch
}

func TestFindDefinitionExactMatchWins(t *testing.T) {
	src := []byte("package demo\n\nfunc Add(a, b int) int {\n\treturn a + b\n}\n\nfunc AddAll() {}\n")
	files := recordChan(scan.FileRecord{Path: "demo.go", Content: src, Language: "go"})

	defs, err := FindDefinition(context.Background(), symbol.NewExtractor(), files, "Add")
	require.NoError(t, err)
	require.Len(t, defs, 1)
	assert.Equal(t, "Add", defs[0].Name)
	assert.Equal(t, "demo.go", defs[0].Path)
}

func TestFindDefinitionFallsBackToPartialMatch(t *testing.T) {
	src := []byte("package demo\n\nfunc AddAll() {}\n")
	files := recordChan(scan.FileRecord{Path: "demo.go", Content: src, Language: "go"})

	defs, err := FindDefinition(context.Background(), symbol.NewExtractor(), files, "Add")
	require.NoError(t, err)
	require.Len(t, defs, 1)
	assert.Equal(t, "AddAll", defs[0].Name)
}

func TestFindDefinitionSkipsNonDefinitionKinds(t *testing.T) {
	src := []byte("package demo\n\nconst MaxRetries = 3\n")
	files := recordChan(scan.FileRecord{Path: "demo.go", Content: src, Language: "go"})

	defs, err := FindDefinition(context.Background(), symbol.NewExtractor(), files, "MaxRetries")
	require.NoError(t, err)
	assert.Empty(t, defs)
}

func TestFindDefinitionSkipsUnknownLanguage(t *testing.T) {
	files := recordChan(scan.FileRecord{Path: "demo.txt", Content: []byte("Add"), Language: ""})
	defs, err := FindDefinition(context.Background(), symbol.NewExtractor(), files, "Add")
	require.NoError(t, err)
	assert.Empty(t, defs)
}

func TestContextLinesClampsToFileBounds(t *testing.T) {
	content := []byte("line1\nline2\nline3\n")
	lines := ContextLines(content, 2, 5)
	assert.Equal(t, []string{"line2", "line3", ""}, lines)

	assert.Nil(t, ContextLines(content, 100, 3))
}
