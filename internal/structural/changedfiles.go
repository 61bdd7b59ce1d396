package structural

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cgrep/cgrep/internal/errs"
	"github.com/cgrep/cgrep/internal/hashutil"
)

// ChangedFiles filters structural-query results down to paths touched since
// rev, per spec §4.14. Grounded on original_source/src/query/changed_files.rs.
type ChangedFiles struct {
	rev         string
	scopePrefix string
	paths       map[string]struct{}
	signature   string
}

// NewChangedFiles resolves scopeRoot's git repository root, runs `git diff
// --name-only rev --` from it, and records the normalized repo-relative
// changed paths. scopeRoot need not be the repository root itself: a
// scope-prefix is derived and prepended when matching paths relative to
// scopeRoot.
func NewChangedFiles(ctx context.Context, scopeRoot, rev string) (*ChangedFiles, error) {
	absScope, err := filepath.Abs(scopeRoot)
	if err != nil {
		return nil, errs.Wrap(errs.ErrIO, "resolve scope root", err)
	}

	repoRoot, err := gitRepoRoot(ctx, absScope)
	if err != nil {
		return nil, err
	}

	scopePrefix := ""
	if rel, err := filepath.Rel(repoRoot, absScope); err == nil {
		scopePrefix = normalizeRelPath(rel)
	}

	out, err := runGit(ctx, repoRoot, "diff", "--name-only", rev, "--")
	if err != nil {
		return nil, errs.Wrap(errs.ErrIO, fmt.Sprintf("git diff --name-only %s", rev), err)
	}

	paths := make(map[string]struct{})
	for _, line := range strings.Split(out, "\n") {
		if norm := normalizeRelPath(line); norm != "" {
			paths[norm] = struct{}{}
		}
	}

	return &ChangedFiles{
		rev:         rev,
		scopePrefix: scopePrefix,
		paths:       paths,
		signature:   signatureFor(rev, scopePrefix, paths),
	}, nil
}

// Rev returns the revision this filter diffs against.
func (c *ChangedFiles) Rev() string { return c.rev }

// Signature is a stable BLAKE3-derived fingerprint of (rev, scope prefix,
// sorted changed paths), suitable for composing into a cache key.
func (c *ChangedFiles) Signature() string { return c.signature }

// MatchesRelPath reports whether relPath (relative to the scope root passed
// to NewChangedFiles) was touched by the diff.
func (c *ChangedFiles) MatchesRelPath(relPath string) bool {
	if len(c.paths) == 0 {
		return false
	}
	rel := normalizeRelPath(relPath)
	if rel == "" {
		return false
	}
	repoRel := rel
	if c.scopePrefix != "" {
		repoRel = c.scopePrefix + "/" + rel
	}
	_, ok := c.paths[repoRel]
	return ok
}

func gitRepoRoot(ctx context.Context, path string) (string, error) {
	out, err := runGit(ctx, path, "rev-parse", "--show-toplevel")
	if err != nil {
		return "", errs.Wrap(errs.ErrIO, "resolve git repository root (git rev-parse)", err)
	}
	top := strings.TrimSpace(out)
	if top == "" {
		return "", errs.Wrap(errs.ErrIO, "resolve git repository root", fmt.Errorf("not a git repository: %s", path))
	}
	return top, nil
}

func runGit(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", append([]string{"-C", dir}, args...)...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("%w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}

// signatureFor mirrors the original's signature_for: BLAKE3(rev | scope
// prefix | newline-joined sorted paths), truncated to 16 hex characters.
func signatureFor(rev, scopePrefix string, paths map[string]struct{}) string {
	sorted := make([]string, 0, len(paths))
	for p := range paths {
		sorted = append(sorted, p)
	}
	sort.Strings(sorted)
	payload := rev + "|" + scopePrefix + "|" + strings.Join(sorted, "\n")
	return hashutil.TruncatedString(payload, 16)
}

// normalizeRelPath converts backslashes to slashes and resolves "." / ".."
// components without touching the filesystem.
func normalizeRelPath(input string) string {
	cleaned := strings.ReplaceAll(input, `\`, "/")
	parts := make([]string, 0, strings.Count(cleaned, "/")+1)
	for _, part := range strings.Split(cleaned, "/") {
		switch part {
		case "", ".":
			continue
		case "..":
			if len(parts) > 0 {
				parts = parts[:len(parts)-1]
			}
		default:
			parts = append(parts, part)
		}
	}
	return strings.Join(parts, "/")
}
