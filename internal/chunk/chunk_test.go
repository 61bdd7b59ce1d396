package chunk

import (
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tenLineContent() []byte {
	var lines []string
	for i := 1; i <= 10; i++ {
		lines = append(lines, "line "+strconv.Itoa(i)+" padding to clear the min-chars threshold")
	}
	return []byte(strings.Join(lines, "\n"))
}

func TestChunkStepAndOverlap(t *testing.T) {
	c, err := New(Options{Lines: 4, Overlap: 1, MinChars: 1})
	require.NoError(t, err)

	chunks := c.Chunk("a.go", tenLineContent())
	// step = 3, windows: [1,4] [4,7] [7,10] [10,10]
	require.Len(t, chunks, 4)
	assert.Equal(t, 1, chunks[0].StartLine)
	assert.Equal(t, 4, chunks[0].EndLine)
	assert.Equal(t, 4, chunks[1].StartLine)
	assert.Equal(t, 7, chunks[1].EndLine)
	assert.Equal(t, 7, chunks[2].StartLine)
	assert.Equal(t, 10, chunks[2].EndLine)
	assert.Equal(t, 10, chunks[3].StartLine)
	assert.Equal(t, 10, chunks[3].EndLine)
}

func TestChunkDropsShortWindows(t *testing.T) {
	c, err := New(Options{Lines: 80, Overlap: 20, MinChars: 1000})
	require.NoError(t, err)
	chunks := c.Chunk("a.go", tenLineContent())
	assert.Empty(t, chunks)
}

func TestChunkEmptyContent(t *testing.T) {
	c, err := New(Options{})
	require.NoError(t, err)
	assert.Empty(t, c.Chunk("empty.go", []byte("")))
}

func TestNewRejectsInvalidOverlap(t *testing.T) {
	_, err := New(Options{Lines: 10, Overlap: 10})
	assert.Error(t, err)
	_, err = New(Options{Lines: 10, Overlap: -1})
	assert.Error(t, err)
}

func TestNewDefaults(t *testing.T) {
	c, err := New(Options{})
	require.NoError(t, err)
	assert.Equal(t, DefaultMaxFileBytes, c.MaxFileBytes())
}
