package symbol

import (
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/c"
	"github.com/smacker/go-tree-sitter/cpp"
	"github.com/smacker/go-tree-sitter/csharp"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/java"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/kotlin"
	"github.com/smacker/go-tree-sitter/lua"
	"github.com/smacker/go-tree-sitter/php"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/ruby"
	"github.com/smacker/go-tree-sitter/rust"
	"github.com/smacker/go-tree-sitter/scala"
	"github.com/smacker/go-tree-sitter/swift"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// LangSpec describes how to recognize and name symbols for one language.
type LangSpec struct {
	Name string
	// NodeKinds maps a tree-sitter node type to the Symbol Kind it defines.
	NodeKinds map[string]Kind
	// NameField is the named child field holding the identifier, tried in
	// order; C-family grammars nest the identifier under "declarator".
	NameFields []string
}

// Registry is a read-only, lazily-initialized table of language specs and
// their tree-sitter grammars. Per spec §9 "Global state", it is a singleton
// initialized once at first use.
type Registry struct {
	mu        sync.RWMutex
	specs     map[string]*LangSpec
	grammars  map[string]*sitter.Language
	extToLang map[string]string
}

func newRegistry() *Registry {
	r := &Registry{
		specs:     make(map[string]*LangSpec),
		grammars:  make(map[string]*sitter.Language),
		extToLang: make(map[string]string),
	}
	r.register("go", []string{".go"}, golang.GetLanguage(), goSpec())
	r.register("rust", []string{".rs"}, rust.GetLanguage(), rustSpec())
	r.register("typescript", []string{".ts"}, typescript.GetLanguage(), tsSpec())
	r.register("tsx", []string{".tsx"}, tsx.GetLanguage(), tsSpec())
	r.register("javascript", []string{".js", ".mjs", ".cjs"}, javascript.GetLanguage(), jsSpec())
	r.register("jsx", []string{".jsx"}, javascript.GetLanguage(), jsSpec())
	r.register("python", []string{".py"}, python.GetLanguage(), pySpec())
	r.register("java", []string{".java"}, java.GetLanguage(), javaSpec())
	r.register("c", []string{".c", ".h"}, c.GetLanguage(), cSpec())
	r.register("cpp", []string{".cpp", ".cc", ".cxx", ".hpp", ".hh"}, cpp.GetLanguage(), cppSpec())
	r.register("csharp", []string{".cs"}, csharp.GetLanguage(), csharpSpec())
	r.register("ruby", []string{".rb"}, ruby.GetLanguage(), rubySpec())
	r.register("php", []string{".php"}, php.GetLanguage(), phpSpec())
	r.register("swift", []string{".swift"}, swift.GetLanguage(), swiftSpec())
	r.register("kotlin", []string{".kt", ".kts"}, kotlin.GetLanguage(), kotlinSpec())
	r.register("scala", []string{".scala"}, scala.GetLanguage(), scalaSpec())
	r.register("lua", []string{".lua"}, lua.GetLanguage(), luaSpec())
	return r
}

func (r *Registry) register(name string, exts []string, grammar *sitter.Language, spec *LangSpec) {
	r.mu.Lock()
	defer r.mu.Unlock()
	spec.Name = name
	r.specs[name] = spec
	r.grammars[name] = grammar
	for _, e := range exts {
		r.extToLang[e] = name
	}
}

// LanguageForExt resolves a language tag from a lowercase file extension
// (including the leading dot). Returns "", false for unsupported/non-code
// extensions (e.g. md, txt, json, yaml, toml — which FW still records but SX
// never extracts symbols from).
func (r *Registry) LanguageForExt(ext string) (string, bool) {
	ext = strings.ToLower(ext)
	r.mu.RLock()
	defer r.mu.RUnlock()
	name, ok := r.extToLang[ext]
	return name, ok
}

// Spec returns the LangSpec for a language name.
func (r *Registry) Spec(name string) (*LangSpec, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.specs[name]
	return s, ok
}

// Grammar returns the tree-sitter grammar for a language name.
func (r *Registry) Grammar(name string) (*sitter.Language, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.grammars[name]
	return g, ok
}

var defaultRegistry = newRegistry()

// DefaultRegistry returns the process-wide language registry.
func DefaultRegistry() *Registry { return defaultRegistry }

func goSpec() *LangSpec {
	return &LangSpec{
		NodeKinds: map[string]Kind{
			"function_declaration": KindFunction,
			"method_declaration":   KindMethod,
			"type_spec":            KindType,
			"const_spec":           KindConstant,
			"var_declaration":      KindVariable,
		},
		NameFields: []string{"name"},
	}
}

func rustSpec() *LangSpec {
	return &LangSpec{
		NodeKinds: map[string]Kind{
			"function_item": KindFunction,
			"struct_item":   KindStruct,
			"enum_item":     KindEnum,
			"trait_item":    KindTrait,
			"type_item":     KindType,
			"const_item":    KindConstant,
			"static_item":   KindVariable,
			"mod_item":      KindModule,
			"impl_item":     KindUnknown, // has no name field of its own; skipped by name resolution
		},
		NameFields: []string{"name"},
	}
}

func tsSpec() *LangSpec {
	return &LangSpec{
		NodeKinds: map[string]Kind{
			"function_declaration":  KindFunction,
			"class_declaration":     KindClass,
			"interface_declaration": KindInterface,
			"type_alias_declaration": KindType,
			"enum_declaration":      KindEnum,
			"method_definition":     KindMethod,
			"variable_declarator":   KindVariable,
		},
		NameFields: []string{"name"},
	}
}

func jsSpec() *LangSpec {
	return &LangSpec{
		NodeKinds: map[string]Kind{
			"function_declaration": KindFunction,
			"class_declaration":    KindClass,
			"method_definition":    KindMethod,
			"variable_declarator":  KindVariable,
		},
		NameFields: []string{"name"},
	}
}

func pySpec() *LangSpec {
	return &LangSpec{
		NodeKinds: map[string]Kind{
			"function_definition": KindFunction,
			"class_definition":    KindClass,
		},
		NameFields: []string{"name"},
	}
}

func javaSpec() *LangSpec {
	return &LangSpec{
		NodeKinds: map[string]Kind{
			"class_declaration":       KindClass,
			"interface_declaration":   KindInterface,
			"enum_declaration":        KindEnum,
			"method_declaration":      KindMethod,
			"constructor_declaration": KindMethod,
			"field_declaration":       KindProperty,
		},
		NameFields: []string{"name"},
	}
}

func cSpec() *LangSpec {
	return &LangSpec{
		NodeKinds: map[string]Kind{
			"function_definition": KindFunction,
			"struct_specifier":    KindStruct,
			"enum_specifier":      KindEnum,
			"union_specifier":     KindStruct,
			"type_definition":     KindType,
		},
		NameFields: []string{"name", "declarator"},
	}
}

func cppSpec() *LangSpec {
	return &LangSpec{
		NodeKinds: map[string]Kind{
			"function_definition":   KindFunction,
			"class_specifier":       KindClass,
			"struct_specifier":      KindStruct,
			"enum_specifier":        KindEnum,
			"namespace_definition":  KindModule,
			"template_declaration":  KindUnknown,
		},
		NameFields: []string{"name", "declarator"},
	}
}

func csharpSpec() *LangSpec {
	return &LangSpec{
		NodeKinds: map[string]Kind{
			"class_declaration":     KindClass,
			"interface_declaration": KindInterface,
			"struct_declaration":    KindStruct,
			"enum_declaration":      KindEnum,
			"method_declaration":    KindMethod,
			"property_declaration":  KindProperty,
			"namespace_declaration": KindModule,
		},
		NameFields: []string{"name"},
	}
}

func rubySpec() *LangSpec {
	return &LangSpec{
		NodeKinds: map[string]Kind{
			"method":            KindMethod,
			"singleton_method":  KindMethod,
			"class":             KindClass,
			"module":            KindModule,
		},
		NameFields: []string{"name"},
	}
}

func phpSpec() *LangSpec {
	return &LangSpec{
		NodeKinds: map[string]Kind{
			"function_definition":   KindFunction,
			"method_declaration":    KindMethod,
			"class_declaration":     KindClass,
			"interface_declaration": KindInterface,
			"trait_declaration":     KindTrait,
			"property_declaration":  KindProperty,
		},
		NameFields: []string{"name"},
	}
}

func swiftSpec() *LangSpec {
	return &LangSpec{
		NodeKinds: map[string]Kind{
			"function_declaration": KindFunction,
			"class_declaration":    KindClass,
			"protocol_declaration": KindInterface,
			"enum_declaration":     KindEnum,
			"extension_declaration": KindUnknown,
			"property_declaration": KindProperty,
		},
		NameFields: []string{"name"},
	}
}

func kotlinSpec() *LangSpec {
	return &LangSpec{
		NodeKinds: map[string]Kind{
			"function_declaration": KindFunction,
			"class_declaration":    KindClass,
			"object_declaration":   KindClass,
			"property_declaration": KindProperty,
		},
		NameFields: []string{"name"},
	}
}

func scalaSpec() *LangSpec {
	return &LangSpec{
		NodeKinds: map[string]Kind{
			"function_definition": KindFunction,
			"class_definition":    KindClass,
			"object_definition":   KindClass,
			"trait_definition":    KindTrait,
			"val_definition":      KindConstant,
			"var_definition":      KindVariable,
		},
		NameFields: []string{"name"},
	}
}

func luaSpec() *LangSpec {
	return &LangSpec{
		NodeKinds: map[string]Kind{
			"function_declaration":       KindFunction,
			"local_function":             KindFunction,
			"local_variable_declaration": KindVariable,
		},
		NameFields: []string{"name"},
	}
}
