// Package symbol extracts named definitions from source files using
// language-aware AST parsing (tree-sitter), across the full language
// table and symbol-kind taxonomy.
package symbol

// Kind is the category of a named definition.
type Kind string

const (
	KindFunction  Kind = "function"
	KindClass     Kind = "class"
	KindInterface Kind = "interface"
	KindType      Kind = "type"
	KindVariable  Kind = "variable"
	KindConstant  Kind = "constant"
	KindEnum      Kind = "enum"
	KindModule    Kind = "module"
	KindStruct    Kind = "struct"
	KindTrait     Kind = "trait"
	KindMethod    Kind = "method"
	KindProperty  Kind = "property"
	KindUnknown   Kind = "unknown"
)

// DefinitionKinds are the kinds considered "definition-like" for the
// `definition` structural query (spec §4.13).
var DefinitionKinds = map[Kind]bool{
	KindFunction:  true,
	KindClass:     true,
	KindInterface: true,
	KindType:      true,
	KindStruct:    true,
	KindEnum:      true,
	KindTrait:     true,
}

// Symbol is a named definition extracted from a syntax tree.
type Symbol struct {
	Name      string
	Kind      Kind
	StartLine int // 1-indexed
	StartCol  int // 1-indexed
	EndLine   int
	Scope     string // enclosing scope, if any (best-effort, may be empty)
}
