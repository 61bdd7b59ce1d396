package structural

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cgrep/cgrep/internal/scan"
)

func TestFindDependentsMatchesJSImport(t *testing.T) {
	files := recordChan(
		scan.FileRecord{Path: "consumer.js", Content: []byte("import { foo } from './utils'\n"), Language: "javascript"},
		scan.FileRecord{Path: "unrelated.js", Content: []byte("import { bar } from './other'\n"), Language: "javascript"},
	)

	deps, err := FindDependents(files, "utils.js")
	require.NoError(t, err)
	require.Len(t, deps, 1)
	assert.Equal(t, "consumer.js", deps[0].Path)
}

func TestFindDependentsMatchesPythonImport(t *testing.T) {
	files := recordChan(scan.FileRecord{Path: "main.py", Content: []byte("import helpers\n"), Language: "python"})
	deps, err := FindDependents(files, "helpers.py")
	require.NoError(t, err)
	require.Len(t, deps, 1)
}

func TestFindDependentsMatchesGoImport(t *testing.T) {
	files := recordChan(scan.FileRecord{Path: "main.go", Content: []byte("import \"./config\"\n"), Language: "go"})
	deps, err := FindDependents(files, "config.go")
	require.NoError(t, err)
	require.Len(t, deps, 1)
}

func TestFindDependentsSkipsPathsContainingStem(t *testing.T) {
	files := recordChan(scan.FileRecord{Path: "utils_test.go", Content: []byte("import \"myapp/utils\"\n"), Language: "go"})
	deps, err := FindDependents(files, "utils.go")
	require.NoError(t, err)
	assert.Empty(t, deps)
}
