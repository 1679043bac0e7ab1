// Package langadapter is the external-collaborator boundary between
// source text and entity.CodeEntity: a Parser interface, tree-sitter
// backed implementations for the supported languages, and a
// line-oriented fallback used when a tree-sitter parse fails. Callers
// on the core side never see a tree-sitter type.
package langadapter

import (
	"context"

	"github.com/valknut-io/valknut-core/internal/entity"
)

// Parser turns source text into entities. Implementations must be safe
// for concurrent use across different files.
type Parser interface {
	Parse(ctx context.Context, sourceText, filePath string) ([]*entity.CodeEntity, error)
	Language() entity.Language
}

// Stability marks how much a language's adapter is trusted for
// anything beyond structure/complexity signals.
type Stability string

const (
	StabilityFull Stability = "full"
	StabilityBeta Stability = "beta"
)

// Registry resolves a Parser by file extension, falling back to the
// line-oriented scanner when no language-specific adapter is
// registered or the registered one fails to parse.
type Registry struct {
	byExtension map[string]Parser
	fallback    Parser
}

// NewRegistry builds a registry with every supported language adapter
// pre-registered plus the text-scan fallback.
func NewRegistry() *Registry {
	r := &Registry{byExtension: make(map[string]Parser), fallback: NewFallbackParser()}
	for _, spec := range languageSpecs {
		p := newTreeSitterParser(spec)
		for _, ext := range spec.extensions {
			r.byExtension[ext] = p
		}
	}
	return r
}

// Parse resolves the adapter for filePath's extension and parses
// sourceText, falling back to the line-oriented scanner on any error
// so a single bad file never aborts a run.
func (r *Registry) Parse(ctx context.Context, sourceText, filePath string) ([]*entity.CodeEntity, error) {
	ext := extensionOf(filePath)
	parser, ok := r.byExtension[ext]
	if !ok {
		return r.fallback.Parse(ctx, sourceText, filePath)
	}
	entities, err := parser.Parse(ctx, sourceText, filePath)
	if err != nil || len(entities) == 0 {
		return r.fallback.Parse(ctx, sourceText, filePath)
	}
	return entities, nil
}

func extensionOf(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '.' {
			return path[i+1:]
		}
		if path[i] == '/' {
			break
		}
	}
	return ""
}

// StabilityOf reports the configured stability tier for a language,
// defaulting to beta for anything not in the full set.
func StabilityOf(lang entity.Language) Stability {
	switch lang {
	case entity.LangPython, entity.LangTypeScript, entity.LangJavaScript, entity.LangRust:
		return StabilityFull
	default:
		return StabilityBeta
	}
}
