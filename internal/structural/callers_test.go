package structural

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cgrep/cgrep/internal/scan"
)

func TestFindCallersMatchesCallSitesOnly(t *testing.T) {
	src := []byte("func handleRequest() {}\n\nfunc main() {\n\thandleRequest()\n\tobj.handleRequest()\n}\n")
	files := recordChan(scan.FileRecord{Path: "main.go", Content: src, Language: "go"})

	callers, err := FindCallers(files, "handleRequest")
	require.NoError(t, err)
	require.Len(t, callers, 2)
	assert.Equal(t, 4, callers[0].Line)
	assert.Equal(t, 5, callers[1].Line)
}

func TestFindCallersExcludesDeclarationLines(t *testing.T) {
	src := []byte("def handleRequest():\n    pass\n")
	files := recordChan(scan.FileRecord{Path: "main.py", Content: src, Language: "python"})

	callers, err := FindCallers(files, "handleRequest")
	require.NoError(t, err)
	assert.Empty(t, callers)
}

func TestFindCallersNoMatches(t *testing.T) {
	files := recordChan(scan.FileRecord{Path: "main.go", Content: []byte("func other() {}\n"), Language: "go"})
	callers, err := FindCallers(files, "handleRequest")
	require.NoError(t, err)
	assert.Empty(t, callers)
}
