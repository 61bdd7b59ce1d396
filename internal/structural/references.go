package structural

import (
	"regexp"
	"strings"

	"github.com/cgrep/cgrep/internal/scan"
)

// Reference is one symbol reference match.
type Reference struct {
	Path string
	Line int
	Col  int
	Code string
}

// FindReferences matches \b<name>\b across every file, up to maxResults,
// optionally restricted by filter (changed-files scope, §4.14). A nil
// filter matches every file.
func FindReferences(files <-chan scan.FileRecord, name string, maxResults int, filter *ChangedFiles) ([]Reference, error) {
	re, err := regexp.Compile(`\b` + regexp.QuoteMeta(name) + `\b`)
	if err != nil {
		return nil, err
	}

	var results []Reference
	for rec := range files {
		if filter != nil && !filter.MatchesRelPath(rec.Path) {
			continue
		}

		lines := strings.Split(string(rec.Content), "\n")
		for i, line := range lines {
			loc := re.FindStringIndex(line)
			if loc == nil {
				continue
			}
			results = append(results, Reference{Path: rec.Path, Line: i + 1, Col: loc[0] + 1, Code: strings.TrimSpace(line)})
			if len(results) >= maxResults {
				return results, nil
			}
		}
	}
	return results, nil
}
