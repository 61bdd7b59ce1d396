package symbol

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
)

// Extractor walks a syntax tree and extracts named definitions. Per spec
// §4.2, it must be thread-safe: each call constructs its own parser
// instance, so concurrent callers never share parser state.
type Extractor struct {
	registry *Registry
}

// NewExtractor creates an Extractor backed by the default language registry.
func NewExtractor() *Extractor {
	return &Extractor{registry: DefaultRegistry()}
}

// Extract parses source and returns every Symbol reachable by recursively
// walking the tree and matching node kinds against the language's table.
// Unsupported languages yield an error; unrecognized nodes are ignored.
func (e *Extractor) Extract(ctx context.Context, source []byte, language string) ([]Symbol, error) {
	grammar, ok := e.registry.Grammar(language)
	if !ok {
		return nil, fmt.Errorf("symbol: unsupported language %q", language)
	}
	spec, _ := e.registry.Spec(language)

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(grammar)

	tree, err := parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, fmt.Errorf("symbol: parse %s: %w", language, err)
	}
	if tree == nil {
		return nil, fmt.Errorf("symbol: parse %s: nil tree", language)
	}

	var out []Symbol
	var walk func(n *sitter.Node, scope string)
	walk = func(n *sitter.Node, scope string) {
		if n == nil {
			return
		}
		kind, matched := spec.NodeKinds[n.Type()]
		nextScope := scope
		if matched {
			if name, ok := resolveName(n, source, spec.NameFields); ok {
				out = append(out, Symbol{
					Name:      name,
					Kind:      kind,
					StartLine: int(n.StartPoint().Row) + 1,
					StartCol:  int(n.StartPoint().Column) + 1,
					EndLine:   int(n.EndPoint().Row) + 1,
					Scope:     scope,
				})
				nextScope = name
			}
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			walk(n.Child(i), nextScope)
		}
	}
	walk(tree.RootNode(), "")
	return out, nil
}

// resolveName finds the identifier text for a definition node, trying each
// candidate field in order. C-family grammars nest the name under a
// "declarator" subtree (itself possibly a pointer/array/function declarator),
// so when the direct field text isn't a bare identifier we descend looking
// for one.
func resolveName(n *sitter.Node, source []byte, fields []string) (string, bool) {
	for _, field := range fields {
		child := n.ChildByFieldName(field)
		if child == nil {
			continue
		}
		if name, ok := identifierText(child, source); ok {
			return name, true
		}
	}
	return "", false
}

func identifierText(n *sitter.Node, source []byte) (string, bool) {
	switch n.Type() {
	case "identifier", "type_identifier", "field_identifier", "property_identifier", "constant":
		return n.Content(source), true
	}
	// Descend through wrapper nodes (pointer/array/function declarators,
	// qualified names) looking for the innermost identifier-like leaf.
	if n.ChildByFieldName("declarator") != nil {
		return identifierText(n.ChildByFieldName("declarator"), source)
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		if c.Type() == "identifier" || c.Type() == "type_identifier" || c.Type() == "field_identifier" {
			return c.Content(source), true
		}
	}
	if int(n.EndByte()) <= len(source) && n.ChildCount() == 0 {
		text := n.Content(source)
		if text != "" {
			return text, true
		}
	}
	return "", false
}
