package retrieval

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFindSnippetWithLineMatchesTerm(t *testing.T) {
	content := "package main\n\nfunc handleRequest() {}\n"
	snippet, line := findSnippetWithLine(content, "handleRequest")
	assert.Equal(t, "func handleRequest() {}", snippet)
	assert.Equal(t, 3, line)
}

func TestFindSnippetWithLineCaseInsensitive(t *testing.T) {
	content := "line one\nHANDLE this case\n"
	snippet, line := findSnippetWithLine(content, "handle")
	assert.Equal(t, "HANDLE this case", snippet)
	assert.Equal(t, 2, line)
}

func TestFindSnippetWithLineFallsBackToFirstNonEmpty(t *testing.T) {
	content := "\n  \nfirst real line\nsecond\n"
	snippet, line := findSnippetWithLine(content, "nomatch")
	assert.Equal(t, "first real line", snippet)
	assert.Equal(t, 0, line)
}

func TestFindSnippetWithLineTruncatesLongLines(t *testing.T) {
	content := strings.Repeat("x", 200)
	snippet, _ := findSnippetWithLine(content, "x")
	assert.True(t, strings.HasSuffix(snippet, "..."))
	assert.Equal(t, snippetMaxLen+3, len(snippet))
}

func TestFindSnippetWithLineEmptyContent(t *testing.T) {
	snippet, line := findSnippetWithLine("", "anything")
	assert.Equal(t, "", snippet)
	assert.Equal(t, 0, line)
}
