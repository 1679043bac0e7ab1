// Package complexity computes per-entity cyclomatic, cognitive, and
// Halstead complexity, maintainability index, technical debt, and the
// derived severity/issue list.
package complexity

import (
	"math"
	"strings"

	"github.com/valknut-io/valknut-core/internal/entity"
)

// Severity ladders from the worst contributing signal.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// IssueType is a closed vocabulary of refactoring suggestions.
type IssueType string

const (
	IssueExtractMethod      IssueType = "extract_method"
	IssueReduceNesting      IssueType = "reduce_nesting"
	IssueReduceParameters   IssueType = "reduce_parameters"
	IssueSplitLongFunction  IssueType = "split_long_function"
	IssueSimplifyCondition  IssueType = "simplify_condition"
	IssueReduceDependencies IssueType = "reduce_dependencies"
)

// Issue is a single threshold breach mapped to a suggested refactor.
type Issue struct {
	Type     IssueType
	Message  string
	Priority int // higher sorts first
}

// Thresholds configures the "high" cutoffs used for technical-debt
// weighting and issue generation. Zero-value Thresholds is invalid;
// callers should start from Defaults().
type Thresholds struct {
	HighCyclomatic int
	HighCognitive  int
	HighNesting    int
	HighParameters int
	HighLOC        int
	CriticalDebt   float64
}

// Defaults returns the thresholds assumed when nothing else is
// configured.
func Defaults() Thresholds {
	return Thresholds{
		HighCyclomatic: 10,
		HighCognitive:  15,
		HighNesting:    4,
		HighParameters: 5,
		HighLOC:        50,
		CriticalDebt:   80,
	}
}

// Halstead holds the textbook Halstead sub-metrics.
type Halstead struct {
	DistinctOperators int     // n1
	DistinctOperands  int     // n2
	TotalOperators    int     // N1
	TotalOperands     int     // N2
	Vocabulary        int     // n = n1 + n2
	Length            int     // N = N1 + N2
	Volume            float64 // N * log2(n)
	Difficulty        float64 // (n1/2) * (N2/n2)
	Effort            float64 // difficulty * volume
	Time              float64 // effort / 18
	Bugs              float64 // effort^(2/3) / 3000
}

// Metrics is the full per-entity complexity result.
type Metrics struct {
	Cyclomatic           int
	Cognitive            int
	MaxNestingDepth      int
	ParameterCount       int
	LOC                  int
	Halstead             Halstead
	TechnicalDebt        float64 // [0,100]
	MaintainabilityIndex float64 // [0,100]
	Severity             Severity
	Issues               []Issue
}

// decisionKeywords is the per-language table of tokens that each add
// one to cyclomatic complexity: a closed lookup table, not a plugin.
var decisionKeywords = map[entity.Language][]string{
	entity.LangPython:     {"if", "elif", "for", "while", "except", "case"},
	entity.LangJavaScript: {"if", "else if", "for", "while", "case", "catch"},
	entity.LangTypeScript: {"if", "else if", "for", "while", "case", "catch"},
	entity.LangGo:         {"if", "for", "case"},
	entity.LangRust:       {"if", "else if", "for", "while", "match", "loop"},
	entity.LangJava:       {"if", "else if", "for", "while", "case", "catch"},
	entity.LangCPP:        {"if", "else if", "for", "while", "case", "catch"},
	entity.LangCSharp:     {"if", "else if", "for", "while", "case", "catch"},
}

var shortCircuitOperators = map[entity.Language][]string{
	entity.LangPython:     {" and ", " or "},
	entity.LangJavaScript: {"&&", "||"},
	entity.LangTypeScript: {"&&", "||"},
	entity.LangGo:         {"&&", "||"},
	entity.LangRust:       {"&&", "||"},
	entity.LangJava:       {"&&", "||"},
	entity.LangCPP:        {"&&", "||"},
	entity.LangCSharp:     {"&&", "||"},
}

var commentPrefix = map[entity.Language]string{
	entity.LangPython:     "#",
	entity.LangJavaScript: "//",
	entity.LangTypeScript: "//",
	entity.LangGo:         "//",
	entity.LangRust:       "//",
	entity.LangJava:       "//",
	entity.LangCPP:        "//",
	entity.LangCSharp:     "//",
}

// halsteadOperators lists operator tokens recognized by language
// family. Only Python has its own entry; every other language uses
// defaultHalsteadOperators.
var halsteadOperators = map[entity.Language][]string{
	entity.LangPython: {
		"+", "-", "*", "/", "//", "%", "**", "=", "==", "!=", "<", ">", "<=", ">=",
		"and", "or", "not", "in", "is", ".", "(", ")", "[", "]", "{", "}", ":", ",",
	},
}

func defaultHalsteadOperators() []string {
	return []string{
		"+", "-", "*", "/", "%", "=", "==", "!=", "<", ">", "<=", ">=",
		"&&", "||", "!", ".", "(", ")", "[", "]", "{", "}", ";", ",", "->", "::",
	}
}

func operatorsFor(lang entity.Language) []string {
	if ops, ok := halsteadOperators[lang]; ok {
		return ops
	}
	return defaultHalsteadOperators()
}

// genericKeywords excludes language keywords from being treated as operands.
var genericKeywords = map[string]bool{
	"if": true, "else": true, "for": true, "while": true, "return": true,
	"def": true, "class": true, "func": true, "function": true, "var": true,
	"let": true, "const": true, "import": true, "from": true, "package": true,
	"try": true, "except": true, "catch": true, "finally": true, "switch": true,
	"case": true, "break": true, "continue": true, "new": true, "this": true,
	"self": true, "public": true, "private": true, "protected": true,
	"static": true, "void": true, "int": true, "string": true, "bool": true,
	"true": true, "false": true, "null": true, "nil": true, "None": true,
}

// Analyzer computes Metrics for CodeEntity values. It is stateless and
// safe for concurrent use across entities, matching the extractor
// contract's referential-transparency requirement.
type Analyzer struct {
	thresholds Thresholds
}

// New creates an Analyzer with the given thresholds.
func New(t Thresholds) *Analyzer { return &Analyzer{thresholds: t} }

// Compute derives full Metrics for one entity's source text.
func (a *Analyzer) Compute(lang entity.Language, source string) Metrics {
	lines := strings.Split(source, "\n")
	loc := countLOC(lines, commentPrefix[lang])

	cyclomatic := 1 + countDecisions(source, lang) + countShortCircuits(source, lang)
	if cyclomatic < 1 {
		cyclomatic = 1
	}

	cognitive, maxNesting := computeCognitive(source, lang)

	params := countParameters(source, lang)

	hal := computeHalstead(source, lang)

	debt := technicalDebt(a.thresholds, cyclomatic, cognitive, maxNesting, params, loc)
	mi := maintainabilityIndex(hal.Volume, cyclomatic, loc)

	m := Metrics{
		Cyclomatic:           cyclomatic,
		Cognitive:            cognitive,
		MaxNestingDepth:      maxNesting,
		ParameterCount:       params,
		LOC:                  loc,
		Halstead:             hal,
		TechnicalDebt:        debt,
		MaintainabilityIndex: mi,
	}
	m.Severity = severityOf(a.thresholds, m)
	m.Issues = issuesFor(a.thresholds, m)
	return m
}

func countLOC(lines []string, comment string) int {
	n := 0
	for _, l := range lines {
		t := strings.TrimSpace(l)
		if t == "" {
			continue
		}
		if comment != "" && strings.HasPrefix(t, comment) {
			continue
		}
		n++
	}
	return n
}

func countDecisions(source string, lang entity.Language) int {
	kws, ok := decisionKeywords[lang]
	if !ok {
		kws = decisionKeywords[entity.LangJavaScript]
	}
	count := 0
	for _, kw := range kws {
		count += countWordOccurrences(source, kw)
	}
	return count
}

func countShortCircuits(source string, lang entity.Language) int {
	ops, ok := shortCircuitOperators[lang]
	if !ok {
		ops = shortCircuitOperators[entity.LangJavaScript]
	}
	count := 0
	for _, op := range ops {
		count += strings.Count(source, op)
	}
	return count
}

// countWordOccurrences counts kw as a whole word (not a substring of a
// longer identifier), without a regex engine.
func countWordOccurrences(source, kw string) int {
	count := 0
	idx := 0
	for {
		pos := strings.Index(source[idx:], kw)
		if pos < 0 {
			break
		}
		abs := idx + pos
		before := byte(' ')
		if abs > 0 {
			before = source[abs-1]
		}
		after := byte(' ')
		if end := abs + len(kw); end < len(source) {
			after = source[end]
		}
		if !isIdentByte(before) && !isIdentByte(after) {
			count++
		}
		idx = abs + len(kw)
		if idx >= len(source) {
			break
		}
	}
	return count
}

func isIdentByte(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}

// computeCognitive walks the source once, tracking brace depth
// (respecting string/char literals and backslash escapes) and
// 4-space indentation buckets, taking the max of the two as the
// nesting depth at each point. Each branch/loop keyword contributes
// 1 + depth; each short-circuit operator contributes 1.
func computeCognitive(source string, lang entity.Language) (cognitive int, maxDepth int) {
	kws, ok := decisionKeywords[lang]
	if !ok {
		kws = decisionKeywords[entity.LangJavaScript]
	}
	ops, ok := shortCircuitOperators[lang]
	if !ok {
		ops = shortCircuitOperators[entity.LangJavaScript]
	}

	braceDepth := 0
	var inString byte
	escaped := false

	lines := strings.Split(source, "\n")
	for _, line := range lines {
		indentDepth := indentBuckets(line)

		for i := 0; i < len(line); i++ {
			c := line[i]
			if inString != 0 {
				if escaped {
					escaped = false
					continue
				}
				if c == '\\' {
					escaped = true
					continue
				}
				if c == inString {
					inString = 0
				}
				continue
			}
			switch c {
			case '"', '\'':
				inString = c
			case '{':
				braceDepth++
			case '}':
				if braceDepth > 0 {
					braceDepth--
				}
			}
		}

		depth := braceDepth
		if indentDepth > depth {
			depth = indentDepth
		}
		if depth > maxDepth {
			maxDepth = depth
		}

		for _, kw := range kws {
			n := countWordOccurrences(line, kw)
			cognitive += n * (1 + depth)
		}
		for _, op := range ops {
			cognitive += strings.Count(line, op)
		}
	}
	return cognitive, maxDepth
}

func indentBuckets(line string) int {
	spaces := 0
	for _, c := range line {
		switch c {
		case ' ':
			spaces++
		case '\t':
			spaces += 4
		default:
			goto done
		}
	}
done:
	return spaces / 4
}

// countParameters does a small language-aware scan for the first
// function header and counts comma-separated parameters inside its
// parentheses.
func countParameters(source string, lang entity.Language) int {
	headerKeywords := []string{"def ", "func ", "function ", "fn "}
	_ = lang
	start := -1
	for _, kw := range headerKeywords {
		if idx := strings.Index(source, kw); idx >= 0 {
			if start < 0 || idx < start {
				start = idx
			}
		}
	}
	if start < 0 {
		// Fall back to the first '(' anywhere in the source, which
		// covers bare-signature snippets (e.g. method bodies with the
		// header already stripped).
		start = 0
	}

	open := strings.Index(source[start:], "(")
	if open < 0 {
		return 0
	}
	open += start

	depth := 0
	end := -1
	for i := open; i < len(source); i++ {
		switch source[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				end = i
			}
		}
		if end >= 0 {
			break
		}
	}
	if end < 0 || end <= open+1 {
		return 0
	}

	params := source[open+1 : end]
	if strings.TrimSpace(params) == "" {
		return 0
	}

	depth = 0
	count := 1
	for _, c := range params {
		switch c {
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
		case ',':
			if depth == 0 {
				count++
			}
		}
	}
	return count
}

func computeHalstead(source string, lang entity.Language) Halstead {
	ops := operatorsFor(lang)
	distinctOps := make(map[string]bool)
	totalOps := 0

	work := source
	for _, op := range ops {
		c := strings.Count(work, op)
		if c > 0 {
			distinctOps[op] = true
			totalOps += c
		}
	}

	distinctOperands := make(map[string]bool)
	totalOperands := 0
	for _, tok := range tokenizeIdentifiers(source) {
		if genericKeywords[tok] {
			continue
		}
		distinctOperands[tok] = true
		totalOperands++
	}

	n1 := len(distinctOps)
	n2 := len(distinctOperands)
	vocab := n1 + n2
	length := totalOps + totalOperands

	var volume, difficulty, effort, timeSec, bugs float64
	if vocab > 0 {
		volume = float64(length) * math.Log2(float64(vocab))
	}
	if n2 > 0 {
		difficulty = (float64(n1) / 2) * (float64(totalOperands) / float64(n2))
	}
	effort = difficulty * volume
	timeSec = effort / 18
	bugs = math.Pow(effort, 2.0/3.0) / 3000

	return Halstead{
		DistinctOperators: n1,
		DistinctOperands:  n2,
		TotalOperators:    totalOps,
		TotalOperands:     totalOperands,
		Vocabulary:        vocab,
		Length:            length,
		Volume:            volume,
		Difficulty:        difficulty,
		Effort:            effort,
		Time:              timeSec,
		Bugs:              bugs,
	}
}

func tokenizeIdentifiers(source string) []string {
	var tokens []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			tokens = append(tokens, cur.String())
			cur.Reset()
		}
	}
	for i := 0; i < len(source); i++ {
		c := source[i]
		if isIdentByte(c) && !(c >= '0' && c <= '9' && cur.Len() == 0) {
			cur.WriteByte(c)
		} else {
			flush()
		}
	}
	flush()
	return tokens
}

func technicalDebt(t Thresholds, cyclomatic, cognitive, nesting, params, loc int) float64 {
	debt := 0.0
	debt += excess(cyclomatic, t.HighCyclomatic) * 2.0
	debt += excess(cognitive, t.HighCognitive) * 1.5
	debt += excess(nesting, t.HighNesting) * 3.0
	debt += excess(params, t.HighParameters) * 2.0
	debt += excess(loc, t.HighLOC) * 0.5
	if debt > 100 {
		debt = 100
	}
	return debt
}

func excess(value, threshold int) float64 {
	if value <= threshold {
		return 0
	}
	return float64(value - threshold)
}

func maintainabilityIndex(volume float64, cyclomatic, loc int) float64 {
	v := volume
	if v < 1 {
		v = 1
	}
	l := loc
	if l < 1 {
		l = 1
	}
	mi := 171 - 5.2*math.Log(v) - 0.23*float64(cyclomatic) - 16.2*math.Log(float64(l))
	if mi < 0 {
		mi = 0
	}
	if mi > 100 {
		mi = 100
	}
	return mi
}

func severityOf(t Thresholds, m Metrics) Severity {
	sev := SeverityLow
	bump := func(s Severity) {
		if severityRank(s) > severityRank(sev) {
			sev = s
		}
	}
	if m.Cyclomatic > t.HighCyclomatic {
		bump(SeverityHigh)
	}
	if m.Cognitive > t.HighCognitive {
		bump(SeverityHigh)
	}
	if m.TechnicalDebt >= t.CriticalDebt {
		bump(SeverityCritical)
	}
	return sev
}

func severityRank(s Severity) int {
	switch s {
	case SeverityCritical:
		return 3
	case SeverityHigh:
		return 2
	case SeverityMedium:
		return 1
	default:
		return 0
	}
}

// issuesFor maps threshold breaches to suggested refactors, ordered by
// descending priority and truncated to the top 5.
func issuesFor(t Thresholds, m Metrics) []Issue {
	var issues []Issue
	if m.Cyclomatic > t.HighCyclomatic {
		issues = append(issues, Issue{Type: IssueExtractMethod, Message: "cyclomatic complexity exceeds threshold", Priority: 90})
	}
	if m.MaxNestingDepth > t.HighNesting {
		issues = append(issues, Issue{Type: IssueReduceNesting, Message: "nesting depth exceeds threshold", Priority: 85})
	}
	if m.ParameterCount > t.HighParameters {
		issues = append(issues, Issue{Type: IssueReduceParameters, Message: "parameter count exceeds threshold", Priority: 70})
	}
	if m.LOC > t.HighLOC {
		issues = append(issues, Issue{Type: IssueSplitLongFunction, Message: "function length exceeds threshold", Priority: 60})
	}
	if m.Cognitive > t.HighCognitive {
		issues = append(issues, Issue{Type: IssueSimplifyCondition, Message: "cognitive complexity exceeds threshold", Priority: 80})
	}

	for i := 0; i < len(issues); i++ {
		for j := i + 1; j < len(issues); j++ {
			if issues[j].Priority > issues[i].Priority {
				issues[i], issues[j] = issues[j], issues[i]
			}
		}
	}
	if len(issues) > 5 {
		issues = issues[:5]
	}
	return issues
}
