package structural

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/cgrep/cgrep/internal/scan"
)

// Dependent is one file importing the target.
type Dependent struct {
	Path       string
	Line       int
	ImportLine string
}

// FindDependents builds a per-language import-regex family around target's
// file stem and greps the content of every file whose path does not
// contain that stem (so the target and, e.g., its _test file are skipped)
// for a match. Grounded on
// original_source/src/query/dependents.rs's pattern table (JS/TS
// import/require, Python import/from, Rust use/mod, Go import string).
func FindDependents(files <-chan scan.FileRecord, target string) ([]Dependent, error) {
	stem := fileStem(target)
	regexes, err := dependentPatterns(stem)
	if err != nil {
		return nil, err
	}

	var results []Dependent
	for rec := range files {
		if strings.Contains(rec.Path, stem) {
			continue
		}

		lines := strings.Split(string(rec.Content), "\n")
		for i, line := range lines {
			for _, re := range regexes {
				if re.MatchString(line) {
					results = append(results, Dependent{Path: rec.Path, Line: i + 1, ImportLine: strings.TrimSpace(line)})
					break
				}
			}
		}
	}
	return results, nil
}

func fileStem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func dependentPatterns(stem string) ([]*regexp.Regexp, error) {
	escaped := regexp.QuoteMeta(stem)
	patterns := []string{
		fmt.Sprintf(`(?:import|from|require)\s*[(\s]?['"](?:[./]*%s)['"]`, escaped),
		fmt.Sprintf(`(?:import|from)\s+%s(?:\s|$|,)`, escaped),
		fmt.Sprintf(`(?:use|mod)\s+(?:crate::)?%s(?:::|;|\s)`, escaped),
		fmt.Sprintf(`import\s+[(\s]*['"](?:[./]*%s)['"]`, escaped),
	}

	regexes := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, err
		}
		regexes = append(regexes, re)
	}
	return regexes, nil
}
