package directory

import "strings"

// ImportKind classifies how a module was imported: a bare module
// import, a named/partial import, or a wildcard import.
type ImportKind string

const (
	ImportModule ImportKind = "module"
	ImportNamed  ImportKind = "named"
	ImportStar   ImportKind = "star"
)

// Import is a single import/use statement extracted from source, with
// enough detail to resolve it to a sibling file in the same directory.
type Import struct {
	Module  string
	Items   []string
	Kind    ImportKind
	Line    int
}

// ExtractImports dispatches to a per-language import scanner based on
// file extension. Unsupported extensions yield no imports rather than
// an error, since import extraction is advisory (used only to wire
// the dependency graph, not required for correctness).
func ExtractImports(content, extension string) []Import {
	switch extension {
	case "py":
		return extractPythonImports(content)
	case "js", "jsx", "ts", "tsx":
		return extractJSImports(content)
	case "rs":
		return extractRustImports(content)
	default:
		return nil
	}
}

func extractPythonImports(content string) []Import {
	var imports []Import
	for i, rawLine := range strings.Split(content, "\n") {
		line := strings.TrimSpace(rawLine)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if rest, ok := cutPrefix(line, "import "); ok {
			module := strings.Fields(rest)[0]
			imports = append(imports, Import{Module: module, Kind: ImportModule, Line: i + 1})
			continue
		}
		if rest, ok := cutPrefix(line, "from "); ok {
			idx := strings.Index(rest, " import ")
			if idx < 0 {
				continue
			}
			module := strings.TrimSpace(rest[:idx])
			list := strings.TrimSpace(rest[idx+len(" import "):])
			if list == "*" {
				imports = append(imports, Import{Module: module, Kind: ImportStar, Line: i + 1})
				continue
			}
			imports = append(imports, Import{Module: module, Items: splitTrim(list, ","), Kind: ImportNamed, Line: i + 1})
		}
	}
	return imports
}

func extractJSImports(content string) []Import {
	var imports []Import
	for i, rawLine := range strings.Split(content, "\n") {
		line := strings.TrimSpace(rawLine)
		if line == "" || strings.HasPrefix(line, "//") || strings.HasPrefix(line, "/*") {
			continue
		}
		rest, ok := cutPrefix(line, "import ")
		if !ok {
			continue
		}
		fromIdx := strings.Index(rest, " from ")
		if fromIdx < 0 {
			continue
		}
		spec := strings.TrimSpace(rest[:fromIdx])
		module := strings.Trim(strings.TrimSpace(rest[fromIdx+len(" from "):]), `"';`)

		switch {
		case strings.HasPrefix(spec, "*"):
			imports = append(imports, Import{Module: module, Kind: ImportStar, Line: i + 1})
		case strings.HasPrefix(spec, "{") && strings.HasSuffix(spec, "}"):
			items := splitTrim(spec[1:len(spec)-1], ",")
			imports = append(imports, Import{Module: module, Items: items, Kind: ImportNamed, Line: i + 1})
		default:
			imports = append(imports, Import{Module: module, Items: []string{spec}, Kind: ImportNamed, Line: i + 1})
		}
	}
	return imports
}

func extractRustImports(content string) []Import {
	var imports []Import
	for i, rawLine := range strings.Split(content, "\n") {
		line := strings.TrimSpace(rawLine)
		if line == "" || strings.HasPrefix(line, "//") {
			continue
		}
		rest, ok := cutPrefix(line, "use ")
		if !ok {
			continue
		}
		rest = strings.TrimSuffix(rest, ";")

		if brace := strings.Index(rest, "{"); brace >= 0 {
			module := strings.TrimSuffix(strings.TrimSpace(rest[:brace]), "::")
			close := strings.Index(rest[brace+1:], "}")
			if close < 0 {
				continue
			}
			items := splitTrim(rest[brace+1:brace+1+close], ",")
			imports = append(imports, Import{Module: module, Items: items, Kind: ImportNamed, Line: i + 1})
			continue
		}
		imports = append(imports, Import{Module: rest, Kind: ImportModule, Line: i + 1})
	}
	return imports
}

func cutPrefix(s, prefix string) (string, bool) {
	if !strings.HasPrefix(s, prefix) {
		return "", false
	}
	return s[len(prefix):], true
}

func splitTrim(s, sep string) []string {
	parts := strings.Split(s, sep)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ResolveLocal maps an import to a sibling file within the same
// directory by looking its module name up in siblingStems (file stem
// to path). Relative imports
// (leading dot) are skipped; resolving those needs a real module
// resolver, out of scope for a single-directory dependency graph.
func ResolveLocal(imp Import, siblingStems map[string]string) (string, bool) {
	if strings.HasPrefix(imp.Module, ".") {
		return "", false
	}
	path, ok := siblingStems[imp.Module]
	return path, ok
}
