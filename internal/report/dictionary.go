package report

import "github.com/valknut-io/valknut-core/internal/complexity"

// CodeEntry is one entry in the closed issue/suggestion code vocabulary:
// a title and a one-line summary a reporter can render without knowing
// anything about the underlying analyzer.
type CodeEntry struct {
	Title   string `json:"title" yaml:"title"`
	Summary string `json:"summary" yaml:"summary"`
}

// CodeDictionary maps a closed vocabulary of issue/suggestion codes to
// their rendering metadata.
type CodeDictionary map[string]CodeEntry

// DefaultCodeDictionary is the fixed vocabulary the normalizer resolves
// codes against. Adding a code here is the only way to introduce a new
// one; reporters never invent codes themselves.
func DefaultCodeDictionary() CodeDictionary {
	return CodeDictionary{
		"complexity.high": {
			Title:   "High complexity",
			Summary: "This entity's cyclomatic or cognitive complexity exceeds the configured threshold.",
		},
		"complexity.critical": {
			Title:   "Critical technical debt",
			Summary: "Technical debt has crossed the critical escalation threshold.",
		},
		codeFor(complexity.IssueExtractMethod): {
			Title:   "Extract method",
			Summary: "This entity is large enough that splitting out a named helper would reduce its complexity.",
		},
		codeFor(complexity.IssueReduceNesting): {
			Title:   "Reduce nesting",
			Summary: "Nesting depth exceeds the configured threshold; consider early returns or guard clauses.",
		},
		codeFor(complexity.IssueReduceParameters): {
			Title:   "Reduce parameters",
			Summary: "This entity takes more parameters than the configured threshold allows.",
		},
		codeFor(complexity.IssueSplitLongFunction): {
			Title:   "Split long function",
			Summary: "Line count exceeds the configured threshold; consider splitting into smaller functions.",
		},
		codeFor(complexity.IssueSimplifyCondition): {
			Title:   "Simplify condition",
			Summary: "A condition in this entity is complex enough to warrant simplification.",
		},
		codeFor(complexity.IssueReduceDependencies): {
			Title:   "Reduce dependencies",
			Summary: "This entity depends on more external calls than the configured threshold allows.",
		},
		"directory.reorg_recommended": {
			Title:   "Directory reorganization recommended",
			Summary: "File-count, LOC, or dispersion pressure in this directory crossed the configured thresholds.",
		},
		"clone.detected": {
			Title:   "Duplicate code detected",
			Summary: "This entity shares a structurally significant amount of code with another entity.",
		},
	}
}

func codeFor(t complexity.IssueType) string {
	return "refactor." + string(t)
}

// Resolve looks up a code, returning a zero CodeEntry and false when the
// code is not part of the closed vocabulary.
func (d CodeDictionary) Resolve(code string) (CodeEntry, bool) {
	e, ok := d[code]
	return e, ok
}
