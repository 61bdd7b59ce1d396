package structural

import (
	"regexp"
	"strings"

	"github.com/cgrep/cgrep/internal/scan"
)

// Caller is one call-site match.
type Caller struct {
	Path string
	Line int
	Code string
}

// definitionMarkers are substrings that, found on a matched line, mark it
// as a declaration rather than a call site and exclude it from callers.
var definitionMarkers = []string{"function ", "fn ", "def ", "func "}

// FindCallers matches \b<function>\s*\( across every file's content and
// excludes lines that also look like a function declaration.
func FindCallers(files <-chan scan.FileRecord, function string) ([]Caller, error) {
	re, err := regexp.Compile(`\b` + regexp.QuoteMeta(function) + `\s*\(`)
	if err != nil {
		return nil, err
	}

	var results []Caller
	for rec := range files {
		lines := strings.Split(string(rec.Content), "\n")
		for i, line := range lines {
			if !re.MatchString(line) {
				continue
			}
			if looksLikeDefinition(line) {
				continue
			}
			results = append(results, Caller{Path: rec.Path, Line: i + 1, Code: strings.TrimSpace(line)})
		}
	}
	return results, nil
}

func looksLikeDefinition(line string) bool {
	lower := strings.ToLower(line)
	for _, marker := range definitionMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
