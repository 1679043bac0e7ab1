package pipeline

import "strings"

// tokenize splits source into a raw token stream for the TF-IDF and
// MinHash analyzers: runs of identifier bytes, quoted strings, numeric
// literals, and single-byte punctuation/operator tokens. A byte-scan,
// not a regex, for the same reason the PDG extractor avoids one.
func tokenize(source string) []string {
	var tokens []string
	i := 0
	n := len(source)
	for i < n {
		c := source[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case isIdentStart(c):
			j := i + 1
			for j < n && isIdentByte(source[j]) {
				j++
			}
			tokens = append(tokens, source[i:j])
			i = j
		case c == '"' || c == '\'':
			j := i + 1
			for j < n && source[j] != c {
				if source[j] == '\\' && j+1 < n {
					j++
				}
				j++
			}
			if j < n {
				j++
			}
			tokens = append(tokens, source[i:j])
			i = j
		case c >= '0' && c <= '9':
			j := i + 1
			for j < n && (isIdentByte(source[j]) || source[j] == '.') {
				j++
			}
			tokens = append(tokens, source[i:j])
			i = j
		default:
			tokens = append(tokens, string(c))
			i++
		}
	}
	return tokens
}

func isIdentStart(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

func isIdentByte(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}

// stripCommentLines removes lines whose first non-blank characters are
// a line-comment marker, and blank lines, leaving a token-worthy
// residue for analyzers that should not see boilerplate comment text.
func stripCommentLines(source, commentPrefix string) string {
	if commentPrefix == "" {
		return source
	}
	lines := strings.Split(source, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, commentPrefix) {
			continue
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}
