package retrieval

import (
	"path/filepath"
	"regexp"
	"strings"
)

// compiledGlob is a precompiled glob-to-regex matcher, reused across every
// candidate in a single query (original_source/src/filters.rs's
// CompiledGlob, compiled once per query rather than per candidate).
type compiledGlob struct {
	re *regexp.Regexp
}

func compileGlob(pattern string) *compiledGlob {
	if pattern == "" {
		return nil
	}
	r := strings.NewReplacer(
		".", `\.`,
		"**/", "{{DOUBLESTARSLASH}}",
		"/**", "{{SLASHDOUBLESTAR}}",
	).Replace(pattern)
	r = strings.NewReplacer(
		"**", ".*",
		"*", "[^/]*",
	).Replace(r)
	r = strings.NewReplacer(
		"{{DOUBLESTARSLASH}}", "(.*/)?",
		"{{SLASHDOUBLESTAR}}", "(/.*)?",
	).Replace(r)
	re, err := regexp.Compile("(?i)" + r)
	if err != nil {
		return nil
	}
	return &compiledGlob{re: re}
}

func (g *compiledGlob) match(path string) bool {
	if g == nil {
		return true
	}
	return g.re.MatchString(path)
}

// matchesFileType reports whether path's extension matches a file-type
// filter name (aliases like "rust"/"rs" both accepted).
func matchesFileType(path, fileType string) bool {
	if fileType == "" {
		return true
	}
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	switch strings.ToLower(fileType) {
	case "rust", "rs":
		return ext == "rs"
	case "typescript", "ts":
		return ext == "ts" || ext == "tsx"
	case "javascript", "js":
		return ext == "js" || ext == "jsx"
	case "python", "py":
		return ext == "py"
	case "go":
		return ext == "go"
	case "c":
		return ext == "c" || ext == "h"
	case "cpp", "c++":
		return ext == "cpp" || ext == "hpp" || ext == "cc" || ext == "cxx"
	case "java":
		return ext == "java"
	case "ruby", "rb":
		return ext == "rb"
	case "php":
		return ext == "php"
	case "swift":
		return ext == "swift"
	case "kotlin", "kt":
		return ext == "kt" || ext == "kts"
	case "scala":
		return ext == "scala"
	case "lua":
		return ext == "lua"
	case "shell", "sh", "bash":
		return ext == "sh" || ext == "bash"
	case "yaml", "yml":
		return ext == "yaml" || ext == "yml"
	case "json":
		return ext == "json"
	case "toml":
		return ext == "toml"
	case "md", "markdown":
		return ext == "md" || ext == "markdown"
	default:
		return ext == strings.ToLower(fileType)
	}
}

func shouldExclude(path string, exclude *compiledGlob) bool {
	return exclude != nil && exclude.match(path)
}

// passesFilters applies file-type, glob, and exclude filters in the order
// spec §4.4 prescribes: after ranking, before truncation.
func passesFilters(path string, opts Options, glob, exclude *compiledGlob) bool {
	if !matchesFileType(path, opts.FileType) {
		return false
	}
	if !glob.match(path) {
		return false
	}
	if shouldExclude(path, exclude) {
		return false
	}
	return true
}

// PathFilter bundles the file-type/glob/exclude filters shared by every
// path-scoped query surface (search, symbols, structural queries), so
// `cgrep symbols`/`definition`/`callers`/etc. apply the identical
// predicate search does.
type PathFilter struct {
	fileType string
	glob     *compiledGlob
	exclude  *compiledGlob
}

// NewPathFilter precompiles glob and exclude once per invocation.
func NewPathFilter(fileType, glob, exclude string) PathFilter {
	return PathFilter{fileType: fileType, glob: compileGlob(glob), exclude: compileGlob(exclude)}
}

// Matches reports whether path passes the file-type, glob, and exclude
// filters.
func (f PathFilter) Matches(path string) bool {
	if !matchesFileType(path, f.fileType) {
		return false
	}
	if !f.glob.match(path) {
		return false
	}
	if shouldExclude(path, f.exclude) {
		return false
	}
	return true
}
