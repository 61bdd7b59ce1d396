package symbol

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractGo(t *testing.T) {
	src := []byte(`package demo

func Add(a, b int) int {
	return a + b
}

type Point struct {
	X, Y int
}

const MaxRetries = 3
`)
	e := NewExtractor()
	syms, err := e.Extract(context.Background(), src, "go")
	require.NoError(t, err)

	names := map[string]Kind{}
	for _, s := range syms {
		names[s.Name] = s.Kind
	}
	assert.Equal(t, KindFunction, names["Add"])
	assert.Equal(t, KindType, names["Point"])
	assert.Equal(t, KindConstant, names["MaxRetries"])
}

func TestExtractPython(t *testing.T) {
	src := []byte("class Greeter:\n    def hello(self):\n        return 'hi'\n")
	e := NewExtractor()
	syms, err := e.Extract(context.Background(), src, "python")
	require.NoError(t, err)
	require.Len(t, syms, 2)
	assert.Equal(t, "Greeter", syms[0].Name)
	assert.Equal(t, KindClass, syms[0].Kind)
	assert.Equal(t, "hello", syms[1].Name)
	assert.Equal(t, KindFunction, syms[1].Kind)
}

func TestExtractUnsupportedLanguage(t *testing.T) {
	e := NewExtractor()
	_, err := e.Extract(context.Background(), []byte("hello"), "cobol")
	assert.Error(t, err)
}

func TestExtractLineNumbersAreOneIndexed(t *testing.T) {
	src := []byte("func A() {}\n")
	e := NewExtractor()
	syms, err := e.Extract(context.Background(), src, "go")
	require.NoError(t, err)
	require.Len(t, syms, 1)
	assert.Equal(t, 1, syms[0].StartLine)
}
