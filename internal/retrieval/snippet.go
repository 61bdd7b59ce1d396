package retrieval

import "strings"

const snippetMaxLen = 150

// findSnippetWithLine finds the first line containing any whitespace-split
// query term (case-insensitive), trimmed and truncated to snippetMaxLen, alongside
// its 1-indexed line number. Falls back to the first non-empty line with no
// line number if nothing matches. Grounded on
// original_source/src/query/search.rs's find_snippet_with_line.
func findSnippetWithLine(content, query string) (string, int) {
	terms := strings.Fields(strings.ToLower(query))
	lines := strings.Split(content, "\n")

	for i, line := range lines {
		lower := strings.ToLower(line)
		for _, term := range terms {
			if term != "" && strings.Contains(lower, term) {
				return truncateSnippet(line), i + 1
			}
		}
	}

	for _, line := range lines {
		if strings.TrimSpace(line) != "" {
			return truncateSnippet(line), 0
		}
	}
	return "", 0
}

func truncateSnippet(line string) string {
	trimmed := strings.TrimSpace(line)
	if len(trimmed) <= snippetMaxLen {
		return trimmed
	}
	return trimmed[:snippetMaxLen] + "..."
}
