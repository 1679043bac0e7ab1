package langadapter

import (
	"context"
	"fmt"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_csharp "github.com/tree-sitter/tree-sitter-c-sharp/bindings/go"
	tree_sitter_cpp "github.com/tree-sitter/tree-sitter-cpp/bindings/go"
	tree_sitter_go "github.com/tree-sitter/tree-sitter-go/bindings/go"
	tree_sitter_java "github.com/tree-sitter/tree-sitter-java/bindings/go"
	tree_sitter_javascript "github.com/tree-sitter/tree-sitter-javascript/bindings/go"
	tree_sitter_python "github.com/tree-sitter/tree-sitter-python/bindings/go"
	tree_sitter_rust "github.com/tree-sitter/tree-sitter-rust/bindings/go"
	tree_sitter_typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"

	"github.com/valknut-io/valknut-core/internal/entity"
)

// languageSpec is a per-language table entry: which grammar to load,
// which file extensions route to it, and which named node kinds carry
// entities worth reporting. The same generic walk below drives every
// language off this table instead of one bespoke walker per language.
type languageSpec struct {
	lang          entity.Language
	extensions    []string
	grammar       func() *tree_sitter.Language
	nodeKinds     map[string]entity.Kind
	nameFields    []string // tried in order; first non-nil child field wins
}

var languageSpecs = []languageSpec{
	{
		lang:       entity.LangPython,
		extensions: []string{"py"},
		grammar:    func() *tree_sitter.Language { return tree_sitter.NewLanguage(tree_sitter_python.Language()) },
		nodeKinds: map[string]entity.Kind{
			"function_definition": entity.KindFunction,
			"class_definition":    entity.KindClass,
		},
		nameFields: []string{"name"},
	},
	{
		lang:       entity.LangTypeScript,
		extensions: []string{"ts", "tsx"},
		grammar:    func() *tree_sitter.Language { return tree_sitter.NewLanguage(tree_sitter_typescript.LanguageTypescript()) },
		nodeKinds: map[string]entity.Kind{
			"function_declaration": entity.KindFunction,
			"method_definition":    entity.KindMethod,
			"class_declaration":    entity.KindClass,
		},
		nameFields: []string{"name"},
	},
	{
		lang:       entity.LangJavaScript,
		extensions: []string{"js", "jsx"},
		grammar:    func() *tree_sitter.Language { return tree_sitter.NewLanguage(tree_sitter_javascript.Language()) },
		nodeKinds: map[string]entity.Kind{
			"function_declaration": entity.KindFunction,
			"method_definition":    entity.KindMethod,
			"class_declaration":    entity.KindClass,
		},
		nameFields: []string{"name"},
	},
	{
		lang:       entity.LangRust,
		extensions: []string{"rs"},
		grammar:    func() *tree_sitter.Language { return tree_sitter.NewLanguage(tree_sitter_rust.Language()) },
		nodeKinds: map[string]entity.Kind{
			"function_item": entity.KindFunction,
			"impl_item":     entity.KindClass,
			"struct_item":   entity.KindClass,
		},
		nameFields: []string{"name"},
	},
	{
		lang:       entity.LangGo,
		extensions: []string{"go"},
		grammar:    func() *tree_sitter.Language { return tree_sitter.NewLanguage(tree_sitter_go.Language()) },
		nodeKinds: map[string]entity.Kind{
			"function_declaration": entity.KindFunction,
			"method_declaration":   entity.KindMethod,
			"type_declaration":     entity.KindClass,
		},
		nameFields: []string{"name"},
	},
	{
		lang:       entity.LangJava,
		extensions: []string{"java"},
		grammar:    func() *tree_sitter.Language { return tree_sitter.NewLanguage(tree_sitter_java.Language()) },
		nodeKinds: map[string]entity.Kind{
			"method_declaration": entity.KindMethod,
			"class_declaration":  entity.KindClass,
		},
		nameFields: []string{"name"},
	},
	{
		lang:       entity.LangCPP,
		extensions: []string{"cpp", "cc", "cxx", "h", "hpp"},
		grammar:    func() *tree_sitter.Language { return tree_sitter.NewLanguage(tree_sitter_cpp.Language()) },
		nodeKinds: map[string]entity.Kind{
			"function_definition": entity.KindFunction,
			"class_specifier":     entity.KindClass,
			"struct_specifier":    entity.KindClass,
		},
		nameFields: []string{"declarator", "name"},
	},
	{
		lang:       entity.LangCSharp,
		extensions: []string{"cs"},
		grammar:    func() *tree_sitter.Language { return tree_sitter.NewLanguage(tree_sitter_csharp.Language()) },
		nodeKinds: map[string]entity.Kind{
			"method_declaration": entity.KindMethod,
			"class_declaration":  entity.KindClass,
		},
		nameFields: []string{"name"},
	},
}

// treeSitterParser drives one grammar through the generic node-kind
// table walk. A fresh *tree_sitter.Parser is created per Parse call:
// the underlying C parser is not safe for concurrent reuse across
// goroutines, and per-file parses are cheap relative to extraction.
type treeSitterParser struct {
	spec languageSpec
}

func newTreeSitterParser(spec languageSpec) *treeSitterParser {
	return &treeSitterParser{spec: spec}
}

func (p *treeSitterParser) Language() entity.Language { return p.spec.lang }

func (p *treeSitterParser) Parse(ctx context.Context, sourceText, filePath string) ([]*entity.CodeEntity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	parser := tree_sitter.NewParser()
	defer parser.Close()
	language := p.spec.grammar()
	if err := parser.SetLanguage(language); err != nil {
		return nil, fmt.Errorf("langadapter: set language %s: %w", p.spec.lang, err)
	}

	content := []byte(sourceText)
	tree := parser.Parse(content, nil)
	if tree == nil {
		return nil, fmt.Errorf("langadapter: %s: parse returned nil tree", p.spec.lang)
	}
	defer tree.Close()

	var out []*entity.CodeEntity
	walk(tree.RootNode(), p.spec, content, filePath, &out)
	return out, nil
}

// walk recurses over every named child, emitting one entity per node
// whose kind appears in the language's node-kind table. This single
// function replaces what would otherwise be eight bespoke per-language
// AST walkers.
func walk(node *tree_sitter.Node, spec languageSpec, content []byte, filePath string, out *[]*entity.CodeEntity) {
	if node == nil {
		return
	}

	if kind, ok := spec.nodeKinds[node.Kind()]; ok {
		name := nameOf(node, spec.nameFields, content)
		start := node.StartPosition()
		end := node.EndPosition()
		*out = append(*out, &entity.CodeEntity{
			ID:         fmt.Sprintf("%s:%s:%d", filePath, name, start.Row+1),
			Name:       name,
			FilePath:   filePath,
			Language:   spec.lang,
			Kind:       kind,
			LineRange:  &entity.LineRange{Start: int(start.Row) + 1, End: int(end.Row) + 1},
			SourceCode: string(content[node.StartByte():node.EndByte()]),
		})
	}

	count := node.ChildCount()
	for i := uint(0); i < count; i++ {
		walk(node.Child(i), spec, content, filePath, out)
	}
}

func nameOf(node *tree_sitter.Node, fields []string, content []byte) string {
	for _, field := range fields {
		if child := node.ChildByFieldName(field); child != nil {
			return string(content[child.StartByte():child.EndByte()])
		}
	}
	return "anonymous"
}
