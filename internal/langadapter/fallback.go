package langadapter

import (
	"context"
	"fmt"
	"strings"

	"github.com/valknut-io/valknut-core/internal/entity"
)

// FallbackParser produces a single file-level entity named after the
// file's base name and spanning every line of the source. It returns
// an error only when ctx is already cancelled; otherwise it never
// fails to parse.
type FallbackParser struct{}

func NewFallbackParser() *FallbackParser { return &FallbackParser{} }

func (f *FallbackParser) Language() entity.Language { return entity.LangUnknown }

func (f *FallbackParser) Parse(ctx context.Context, sourceText, filePath string) ([]*entity.CodeEntity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	lines := strings.Split(sourceText, "\n")
	name := fileNameOf(filePath)

	return []*entity.CodeEntity{{
		ID:         fmt.Sprintf("%s:file", filePath),
		Name:       name,
		FilePath:   filePath,
		Language:   languageFromExtension(extensionOf(filePath)),
		Kind:       entity.KindFile,
		LineRange:  &entity.LineRange{Start: 1, End: len(lines)},
		SourceCode: sourceText,
	}}, nil
}

func fileNameOf(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return path[i+1:]
		}
	}
	return path
}

func languageFromExtension(ext string) entity.Language {
	switch ext {
	case "py":
		return entity.LangPython
	case "ts", "tsx":
		return entity.LangTypeScript
	case "js", "jsx":
		return entity.LangJavaScript
	case "rs":
		return entity.LangRust
	case "go":
		return entity.LangGo
	case "java":
		return entity.LangJava
	case "cpp", "cc", "cxx", "h", "hpp":
		return entity.LangCPP
	case "cs":
		return entity.LangCSharp
	default:
		return entity.LangUnknown
	}
}
