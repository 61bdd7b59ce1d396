// Package scan implements the Filesystem Walker (FW): a parallel,
// gitignore-aware traversal that yields candidate source files tagged with
// a language, honoring a fixed extension allowlist and the engine's own
// index directory. Grounded on the internal/scanner package
// (worker pool, channel streaming, LRU gitignore cache).
package scan

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"unicode/utf8"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/cgrep/cgrep/internal/gitignore"
)

// IndexDirName is the engine's own persisted-state directory (spec §6);
// walks must never descend into it.
const IndexDirName = ".cgrep"

// gitignoreCacheSize bounds the LRU matcher cache (teacher's DEBT-001 fix).
const gitignoreCacheSize = 1000

// extToLang is the fixed extension allowlist from spec §4.1. Extensions not
// listed here are skipped entirely; listed non-code extensions (md, txt,
// json, yaml, toml) are still walked and indexed by II but never handed to
// the Symbol Extractor.
var extToLang = map[string]string{
	".rs": "rust", ".ts": "typescript", ".tsx": "tsx",
	".js": "javascript", ".jsx": "jsx", ".py": "python", ".go": "go",
	".java": "java", ".c": "c", ".h": "c",
	".cpp": "cpp", ".cc": "cpp", ".hpp": "cpp",
	".cs": "csharp", ".rb": "ruby", ".php": "php", ".swift": "swift",
	".kt": "kotlin", ".kts": "kotlin", ".scala": "scala", ".lua": "lua",
	".md": "markdown", ".txt": "text", ".json": "json",
	".yaml": "yaml", ".yml": "yaml", ".toml": "toml",
}

// CodeLanguages is the subset of extToLang values the Symbol Extractor
// supports (everything except the plain-data tail of the allowlist).
var CodeLanguages = map[string]bool{
	"rust": true, "typescript": true, "tsx": true, "javascript": true,
	"jsx": true, "python": true, "go": true, "java": true, "c": true,
	"cpp": true, "csharp": true, "ruby": true, "php": true, "swift": true,
	"kotlin": true, "scala": true, "lua": true,
}

// FileRecord is produced by the walker for every candidate file.
type FileRecord struct {
	Path     string // relative to root
	AbsPath  string
	Content  []byte
	Language string // "" if extension unknown (never emitted, see Walk)
}

// Options configures a walk.
type Options struct {
	Root             string
	ExcludeSubstrings []string // simple substring matches against the full (absolute) path
	MaxFileBytes     int64 // 0 = no limit beyond the default
	Workers          int   // 0 = runtime.NumCPU()
}

const defaultMaxFileBytes = 10 * 1024 * 1024

// Walker performs parallel, gitignore-aware traversal.
type Walker struct {
	cache *lru.Cache[string, *gitignore.Matcher]
}

// New creates a Walker with a bounded gitignore-matcher cache.
func New() (*Walker, error) {
	cache, err := lru.New[string, *gitignore.Matcher](gitignoreCacheSize)
	if err != nil {
		return nil, err
	}
	return &Walker{cache: cache}, nil
}

// Walk traverses opts.Root in parallel and streams FileRecords on the
// returned channel, closing it when the walk completes. Per-file read or
// decode failures are silently skipped (spec §4.1).
func (w *Walker) Walk(ctx context.Context, opts Options) (<-chan FileRecord, error) {
	absRoot, err := filepath.Abs(opts.Root)
	if err != nil {
		return nil, err
	}
	maxBytes := opts.MaxFileBytes
	if maxBytes <= 0 {
		maxBytes = defaultMaxFileBytes
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	paths := make(chan string, workers*4)
	out := make(chan FileRecord, workers*4)

	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for relPath := range paths {
				rec, ok := w.readFile(absRoot, relPath, maxBytes)
				if !ok {
					continue
				}
				select {
				case out <- rec:
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	go func() {
		defer close(paths)
		_ = filepath.WalkDir(absRoot, func(path string, d os.DirEntry, err error) error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			if err != nil {
				return nil
			}
			relPath, relErr := filepath.Rel(absRoot, path)
			if relErr != nil || relPath == "." {
				return nil
			}
			if d.IsDir() {
				if d.Name() == IndexDirName || d.Name() == ".git" {
					return filepath.SkipDir
				}
				if w.gitignored(absRoot, relPath, true) {
					return filepath.SkipDir
				}
				return nil
			}
			if matchesAnySubstring(path, opts.ExcludeSubstrings) {
				return nil
			}
			if w.gitignored(absRoot, relPath, false) {
				return nil
			}
			ext := strings.ToLower(filepath.Ext(relPath))
			if _, ok := extToLang[ext]; !ok {
				return nil
			}
			select {
			case paths <- relPath:
			case <-ctx.Done():
				return ctx.Err()
			}
			return nil
		})
	}()

	go func() {
		wg.Wait()
		close(out)
	}()

	return out, nil
}

func (w *Walker) readFile(absRoot, relPath string, maxBytes int64) (FileRecord, bool) {
	full := filepath.Join(absRoot, relPath)
	info, err := os.Stat(full)
	if err != nil || info.Size() > maxBytes {
		return FileRecord{}, false
	}
	content, err := os.ReadFile(full)
	if err != nil {
		return FileRecord{}, false
	}
	if bytes.Contains(content, []byte{0}) {
		return FileRecord{}, false // binary
	}
	if !utf8.Valid(content) {
		return FileRecord{}, false
	}
	ext := strings.ToLower(filepath.Ext(relPath))
	return FileRecord{
		Path:     filepath.ToSlash(relPath),
		AbsPath:  full,
		Content:  content,
		Language: extToLang[ext],
	}, true
}

func matchesAnySubstring(path string, patterns []string) bool {
	for _, p := range patterns {
		if p != "" && strings.Contains(path, p) {
			return true
		}
	}
	return false
}

func (w *Walker) gitignored(absRoot, relPath string, isDir bool) bool {
	dir := filepath.Dir(filepath.Join(absRoot, relPath))
	for {
		if m := w.matcherFor(dir, absRoot); m != nil {
			if m.Match(filepath.ToSlash(relPath), isDir) {
				return true
			}
		}
		if dir == absRoot {
			break
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return false
}

func (w *Walker) matcherFor(dir, absRoot string) *gitignore.Matcher {
	if m, ok := w.cache.Get(dir); ok {
		return m
	}
	path := filepath.Join(dir, ".gitignore")
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	base := ""
	if rel, err := filepath.Rel(absRoot, dir); err == nil && rel != "." {
		base = filepath.ToSlash(rel)
	}
	m := gitignore.New()
	if err := m.AddFromFile(path, base); err != nil {
		return nil
	}
	w.cache.Add(dir, m)
	return m
}

