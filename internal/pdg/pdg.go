// Package pdg implements a basic-block analyzer and PDG motif
// extractor: control-flow segmentation, WL-hashed structural motifs,
// and the matched-block / rarity-gain helpers the clone detector's
// structural gate depends on.
package pdg

import (
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// ControlType classifies a basic block's control-transfer shape.
type ControlType int

const (
	ControlNone ControlType = iota
	ControlConditional
	ControlLoop
	ControlException
)

// BasicBlock is a maximal straight-line sequence of lines ending at a
// control transfer or statement terminator.
type BasicBlock struct {
	ID            string
	StartLine     int
	EndLine       int
	Cyclomatic    int
	Control       ControlType
	HasCalls      bool
	ExternalCalls []string
	HasAssigns    bool
	Depth         int
}

var controlKeywords = []string{"if", "for", "while", "match", "try", "catch"}

// BasicBlockAnalyzer segments raw text into BasicBlocks.
type BasicBlockAnalyzer struct{}

// NewBasicBlockAnalyzer creates a stateless analyzer.
func NewBasicBlockAnalyzer() *BasicBlockAnalyzer { return &BasicBlockAnalyzer{} }

// Analyze segments text into blocks by detecting control keywords and
// statement terminators ('{', '}', ';').
func (a *BasicBlockAnalyzer) Analyze(text string) []BasicBlock {
	lines := strings.Split(text, "\n")
	var blocks []BasicBlock

	blockStart := 0
	depth := 0
	nextID := 0

	flush := func(end int) {
		if end < blockStart {
			return
		}
		seg := strings.Join(lines[blockStart:end+1], "\n")
		b := BasicBlock{
			ID:         fmt.Sprintf("block_%d", nextID),
			StartLine:  blockStart + 1,
			EndLine:    end + 1,
			Cyclomatic: countControlHits(seg),
			Control:    detectControlType(seg),
			Depth:      depth,
		}
		b.ExternalCalls = extractExternalCalls(seg)
		b.HasCalls = len(b.ExternalCalls) > 0
		b.HasAssigns = isAssignmentBlock(seg)
		blocks = append(blocks, b)
		nextID++
		blockStart = end + 1
	}

	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		depth += strings.Count(line, "{") - strings.Count(line, "}")
		if depth < 0 {
			depth = 0
		}

		terminates := strings.HasSuffix(trimmed, "{") || strings.HasSuffix(trimmed, "}") || strings.HasSuffix(trimmed, ";")
		startsControl := isControlLine(trimmed)

		if terminates || startsControl {
			flush(i)
		}
	}
	if blockStart < len(lines) {
		flush(len(lines) - 1)
	}
	if len(blocks) == 0 && len(lines) > 0 {
		blocks = append(blocks, BasicBlock{
			ID:         "block_0",
			StartLine:  1,
			EndLine:    len(lines),
			Cyclomatic: countControlHits(text),
			Control:    detectControlType(text),
		})
	}
	return blocks
}

func isControlLine(line string) bool {
	for _, kw := range controlKeywords {
		if hasWord(line, kw) {
			return true
		}
	}
	return false
}

func countControlHits(seg string) int {
	n := 0
	for _, kw := range controlKeywords {
		n += countOccurrences(seg, kw)
	}
	return n
}

func detectControlType(seg string) ControlType {
	switch {
	case hasWord(seg, "try") || hasWord(seg, "catch") || hasWord(seg, "except"):
		return ControlException
	case hasWord(seg, "for") || hasWord(seg, "while"):
		return ControlLoop
	case hasWord(seg, "if") || hasWord(seg, "match") || hasWord(seg, "case"):
		return ControlConditional
	default:
		return ControlNone
	}
}

func isAssignmentBlock(seg string) bool {
	for _, line := range strings.Split(seg, "\n") {
		if isAssignmentLine(line) {
			return true
		}
	}
	return false
}

func isAssignmentLine(line string) bool {
	t := strings.TrimSpace(line)
	if t == "" {
		return false
	}
	idx := strings.Index(t, "=")
	if idx <= 0 || idx >= len(t)-1 {
		return false
	}
	if t[idx-1] == '=' || t[idx-1] == '!' || t[idx-1] == '<' || t[idx-1] == '>' {
		return false
	}
	if t[idx+1] == '=' {
		return false
	}
	return true
}

func hasWord(s, word string) bool {
	return countOccurrences(s, word) > 0
}

func countOccurrences(s, word string) int {
	count := 0
	idx := 0
	for {
		pos := strings.Index(s[idx:], word)
		if pos < 0 {
			break
		}
		abs := idx + pos
		before := byte(' ')
		if abs > 0 {
			before = s[abs-1]
		}
		after := byte(' ')
		if end := abs + len(word); end < len(s) {
			after = s[end]
		}
		if !isIdentByte(before) && !isIdentByte(after) {
			count++
		}
		idx = abs + len(word)
		if idx >= len(s) {
			break
		}
	}
	return count
}

func isIdentByte(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}

// extractExternalCalls walks backward from each '(' to collect an
// identifier chain ("obj.method", "Module::function") and validates it
// against an identifier grammar, without a regex engine.
func extractExternalCalls(seg string) []string {
	var calls []string
	for i := 0; i < len(seg); i++ {
		if seg[i] != '(' {
			continue
		}
		chain, ok := walkBackIdentifierChain(seg, i-1)
		if ok {
			calls = append(calls, chain)
		}
	}
	return calls
}

// walkBackIdentifierChain scans backward from end (inclusive) over an
// identifier/`.`/`::` chain, e.g. "Module::function" or "obj.method".
func walkBackIdentifierChain(s string, end int) (string, bool) {
	i := end
	for i >= 0 && s[i] == ' ' {
		i--
	}
	if i < 0 {
		return "", false
	}
	start := i
	for start >= 0 {
		c := s[start]
		if isIdentByte(c) {
			start--
			continue
		}
		if c == '.' && start >= 0 {
			start--
			continue
		}
		if c == ':' && start > 0 && s[start-1] == ':' {
			start -= 2
			continue
		}
		break
	}
	start++
	if start > i {
		return "", false
	}
	chain := s[start : i+1]
	if !isValidIdentifierChain(chain) {
		return "", false
	}
	return chain, true
}

func isValidIdentifierChain(chain string) bool {
	if chain == "" {
		return false
	}
	parts := strings.FieldsFunc(chain, func(r rune) bool { return r == '.' })
	if strings.Contains(chain, "::") {
		parts = strings.Split(chain, "::")
	}
	if len(parts) == 0 {
		return false
	}
	for _, p := range parts {
		if p == "" {
			return false
		}
		if p[0] >= '0' && p[0] <= '9' {
			return false
		}
		for _, c := range p {
			if !isIdentByte(byte(c)) {
				return false
			}
		}
	}
	return true
}

// MotifCategory is the closed tag-set of structural motif kinds.
type MotifCategory string

const (
	CategoryBranch MotifCategory = "branch"
	CategoryLoop   MotifCategory = "loop"
	CategoryCall   MotifCategory = "call"
	CategoryAssign MotifCategory = "assign"
	CategoryPhi    MotifCategory = "phi"
	CategoryRet    MotifCategory = "ret"
)

// Motif is a WL-hashed fragment of control, data, or call structure.
type Motif struct {
	Category   MotifCategory
	Structure  string
	WLHash     uint64
	Weight     float64
	BlockID    string
	CallCount  int
}

// Extractor extracts motifs from raw source text, optionally
// down-weighting boilerplate via an attached stop-motif cache.
type Extractor struct {
	wlIterations int
	stopMotifs   StopMotifCache
	idfCache     map[string]float64
}

// StopMotifCache is the minimal view the motif extractor needs.
type StopMotifCache interface {
	MatchMotif(category string, structure string) (float64, bool)
}

// NewExtractor creates a motif extractor with wlIterations rounds of
// Weisfeiler–Lehman refinement folded into the hash seed.
func NewExtractor(wlIterations int) *Extractor {
	return &Extractor{wlIterations: wlIterations, idfCache: make(map[string]float64)}
}

// SetStopMotifCache attaches a stop-motif cache.
func (e *Extractor) SetStopMotifCache(c StopMotifCache) { e.stopMotifs = c }

// ExtractMotifs produces the motif list for one entity's source text.
func (e *Extractor) ExtractMotifs(entityID, code string) []Motif {
	blocks := NewBasicBlockAnalyzer().Analyze(code)
	assignNestingDepths(blocks)

	var motifs []Motif
	for _, b := range blocks {
		if b.Control != ControlNone {
			motifs = append(motifs, e.buildMotif(entityID, controlFlowCategory(b.Control), controlFlowStructure(b), b.ID))
		}
		if b.HasCalls {
			m := e.buildMotif(entityID, CategoryCall, fmt.Sprintf("call(%d)", len(b.ExternalCalls)), b.ID)
			m.CallCount = len(b.ExternalCalls)
			motifs = append(motifs, m)
		}
		if b.HasAssigns {
			motifs = append(motifs, e.buildMotif(entityID, CategoryAssign, "assign", b.ID))
		}
	}

	for i := 0; i+1 < len(blocks); i++ {
		structure := fmt.Sprintf("seq(%s,%s)", controlFlowCategory(blocks[i].Control), controlFlowCategory(blocks[i+1].Control))
		motifs = append(motifs, e.buildMotif(entityID, CategoryBranch, structure, blocks[i].ID))
	}
	for _, b := range blocks {
		if b.Depth > 1 {
			structure := fmt.Sprintf("nested(%d)", b.Depth)
			motifs = append(motifs, e.buildMotif(entityID, CategoryBranch, structure, b.ID))
		}
	}
	return motifs
}

func assignNestingDepths(blocks []BasicBlock) {
	// Depth was already approximated during segmentation via brace
	// balance; nothing further to do, kept as a seam for future
	// language-specific nesting heuristics.
	_ = blocks
}

func controlFlowCategory(c ControlType) MotifCategory {
	switch c {
	case ControlLoop:
		return CategoryLoop
	case ControlException:
		return CategoryRet
	default:
		return CategoryBranch
	}
}

func controlFlowStructure(b BasicBlock) string {
	return fmt.Sprintf("%d:%d-%d", b.Control, b.StartLine, b.EndLine)
}

// buildMotif takes entityID for signature symmetry with ExtractMotifs
// but never folds it into the hash: WL hashes must be comparable across
// entities for the Phase 2 shared-motif gate to function.
func (e *Extractor) buildMotif(entityID string, category MotifCategory, structure, blockID string) Motif {
	h := computeWLHash(structure, e.wlIterations)
	weight := 1.0
	if e.stopMotifs != nil {
		if mult, ok := e.stopMotifs.MatchMotif(string(category), structure); ok {
			weight = mult
		}
	}
	return Motif{Category: category, Structure: structure, WLHash: h, Weight: weight, BlockID: blockID}
}

// computeWLHash hashes (structure, wlIterations) with a fast
// non-cryptographic hasher. Equal hashes represent equivalent
// structural patterns up to the configured number of WL refinement
// rounds — the hash deliberately excludes entity identity so that
// structurally identical motifs from two different entities compare
// equal, which is what the Phase 2 shared-motif gate depends on.
func computeWLHash(structure string, wlIterations int) uint64 {
	h := xxhash.New()
	_, _ = h.Write([]byte(structure))
	_, _ = h.Write([]byte{0})
	seed := structure
	for i := 0; i < wlIterations; i++ {
		round := xxhash.Sum64String(seed)
		_, _ = h.Write([]byte{byte(round)})
		seed = fmt.Sprintf("%s|%d", seed, round)
	}
	return h.Sum64()
}

// MatchedBlocksResult is the pair (matched1, matched2) from
// compute_matched_blocks plus the Jaccard similarity of shared
// external calls.
type MatchedBlocksResult struct {
	Matched1       int
	Matched2       int
	CallJaccard    float64
}

// ComputeMatchedBlocks reports how many blocks in each sequence overlap
// their respective match regions, and the Jaccard similarity of the
// external calls made within those matched regions.
func ComputeMatchedBlocks(blocks1, blocks2 []BasicBlock, r1, r2 [2]int) MatchedBlocksResult {
	matched1, calls1 := collectMatched(blocks1, r1)
	matched2, calls2 := collectMatched(blocks2, r2)
	return MatchedBlocksResult{
		Matched1:    matched1,
		Matched2:    matched2,
		CallJaccard: jaccardStrings(calls1, calls2),
	}
}

func collectMatched(blocks []BasicBlock, region [2]int) (int, map[string]bool) {
	count := 0
	calls := make(map[string]bool)
	for _, b := range blocks {
		if blockOverlaps(b, region[0], region[1]) {
			count++
			for _, c := range b.ExternalCalls {
				calls[c] = true
			}
		}
	}
	return count, calls
}

func blockOverlaps(b BasicBlock, start, end int) bool {
	return b.StartLine <= end && b.EndLine >= start
}

func jaccardStrings(a, b map[string]bool) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	inter := 0
	for k := range a {
		if b[k] {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

// MotifIDFProvider supplies a cached IDF for a motif's WL hash,
// mirroring tfidf.Analyzer's document-frequency cache but keyed by
// structural hash instead of token.
type MotifIDFProvider interface {
	MotifIDF(hash uint64) float64
}

// CalculateRarityGain returns the mean motif IDF, damped by any
// attached stop-motif cache using the same category/structure matching
// rule as the token-gram cache.
func CalculateRarityGain(motifs []Motif, idf MotifIDFProvider) float64 {
	if len(motifs) == 0 {
		return 0
	}
	total := 0.0
	for _, m := range motifs {
		base := idf.MotifIDF(m.WLHash)
		total += base * m.Weight
	}
	return total / float64(len(motifs))
}
