package structural

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runGitCmd(t *testing.T, dir string, args ...string) {
	t.Helper()
	cmd := exec.Command("git", append([]string{"-C", dir}, args...)...)
	out, err := cmd.CombinedOutput()
	require.NoErrorf(t, err, "git %v: %s", args, out)
}

func TestChangedFilesFiltersScopeRelativePaths(t *testing.T) {
	root := t.TempDir()
	runGitCmd(t, root, "init")
	runGitCmd(t, root, "config", "user.email", "test@example.com")
	runGitCmd(t, root, "config", "user.name", "test")

	src := filepath.Join(root, "src")
	nested := filepath.Join(src, "nested")
	require.NoError(t, writeFile(filepath.Join(src, "lib.go"), "package src\n"))
	require.NoError(t, writeFile(filepath.Join(nested, "util.go"), "package nested\n"))

	runGitCmd(t, root, "add", ".")
	runGitCmd(t, root, "commit", "-m", "initial")

	require.NoError(t, writeFile(filepath.Join(nested, "util.go"), "package nested\n\nfunc Beta() {}\n"))

	changed, err := NewChangedFiles(context.Background(), src, "HEAD")
	require.NoError(t, err)
	assert.True(t, changed.MatchesRelPath("nested/util.go"))
	assert.False(t, changed.MatchesRelPath("lib.go"))
	assert.NotEmpty(t, changed.Signature())
}

func TestNormalizeRelPathHandlesBackslashesAndDots(t *testing.T) {
	assert.Equal(t, "src/lib.rs", normalizeRelPath(`.\src\lib.rs`))
	assert.Equal(t, "src/lib.rs", normalizeRelPath("./src/./nested/../lib.rs"))
}

func TestMatchesRelPathEmptyPathsAlwaysFalse(t *testing.T) {
	c := &ChangedFiles{}
	assert.False(t, c.MatchesRelPath("anything.go"))
}

func writeFile(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(content), 0o644)
}
