// Package structural implements the structural query surface (definition,
// callers, references, dependents) and the changed-files filter, spec
// §4.13-§4.14. Grounded on original_source/src/query/{definition,callers,
// references,dependents,changed_files}.rs, adapted to this module's
// scanner+regex idiom seen in internal/search.
package structural

import (
	"context"
	"strings"

	"github.com/cgrep/cgrep/internal/scan"
	"github.com/cgrep/cgrep/internal/symbol"
)

// Definition is one located definition site.
type Definition struct {
	Name string
	Kind string
	Path string
	Line int
	Col  int
}

// FindDefinition extracts symbols from every file under files, matches name
// case-insensitively, and returns exact-name matches when any exist,
// otherwise falls back to substring matches. Only definition-like kinds
// (symbol.DefinitionKinds) are considered.
func FindDefinition(ctx context.Context, extractor *symbol.Extractor, files <-chan scan.FileRecord, name string) ([]Definition, error) {
	nameLower := strings.ToLower(name)

	var exact, partial []Definition
	for rec := range files {
		if rec.Language == "" {
			continue
		}
		symbols, err := extractor.Extract(ctx, rec.Content, rec.Language)
		if err != nil {
			continue
		}
		for _, sym := range symbols {
			if !symbol.DefinitionKinds[sym.Kind] {
				continue
			}
			symLower := strings.ToLower(sym.Name)
			def := Definition{Name: sym.Name, Kind: string(sym.Kind), Path: rec.Path, Line: sym.StartLine, Col: sym.StartCol}
			if symLower == nameLower {
				exact = append(exact, def)
			} else if strings.Contains(symLower, nameLower) {
				partial = append(partial, def)
			}
		}
	}

	if len(exact) > 0 {
		return exact, nil
	}
	return partial, nil
}

// ContextLines returns up to n lines of content starting at def's line
// (1-indexed, inclusive), for short-context display alongside a definition.
func ContextLines(content []byte, startLine, n int) []string {
	lines := strings.Split(string(content), "\n")
	start := startLine - 1
	if start < 0 || start >= len(lines) {
		return nil
	}
	end := start + n
	if end > len(lines) {
		end = len(lines)
	}
	return lines[start:end]
}
