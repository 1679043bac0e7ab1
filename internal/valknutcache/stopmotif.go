// Package valknutcache persists the two on-disk caches the core
// depends on: the per-codebase StopMotifCache and the clone detector's
// auto-calibration result. Both use a file-system-atomicity
// convention: writes go through a temp file and rename; readers treat
// parse errors as a cache miss.
package valknutcache

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
)

// PatternCategory is the closed tag-set for stop-motif entries.
type PatternCategory string

const (
	CategoryControlFlow  PatternCategory = "control_flow"
	CategoryFunctionCall PatternCategory = "function_call"
	CategoryAssignment   PatternCategory = "assignment"
	CategoryBoilerplate  PatternCategory = "boilerplate"
)

// StopMotifEntry is one frequency-ranked pattern.
type StopMotifEntry struct {
	Pattern          string          `json:"pattern"`
	Category         PatternCategory `json:"category"`
	Frequency        int             `json:"frequency"`
	WeightMultiplier float64         `json:"weight_multiplier"` // (0,1]
}

// ASTPatternEntry mirrors StopMotifEntry for AST-level patterns.
type ASTPatternEntry struct {
	Pattern          string  `json:"pattern"`
	Frequency        int     `json:"frequency"`
	WeightMultiplier float64 `json:"weight_multiplier"`
}

// CodebaseSignature is the staleness fingerprint for a cached profile:
// the content hashes of tracked files and the top-level file list
// snapshotted at mining time. Matches decides whether it still holds.
type CodebaseSignature struct {
	ContentHashes []string `json:"content_hashes"` // sorted xxhash-of-content, hex
	TopLevelFiles []string `json:"top_level_files"`
}

// Matches reports whether current is still close enough to the
// snapshot: the top-level file counts must be equal, and the hashes
// present in only one of the two signatures must number at most
// deltaPercent of the snapshot's hash count. A false result is the
// regeneration trigger for a stale cache.
func (s CodebaseSignature) Matches(current CodebaseSignature, deltaPercent float64) bool {
	if len(s.TopLevelFiles) != len(current.TopLevelFiles) {
		return false
	}
	changed := symmetricDifferenceCount(s.ContentHashes, current.ContentHashes)
	total := len(s.ContentHashes)
	if total == 0 {
		return changed == 0
	}
	return float64(changed)/float64(total)*100 <= deltaPercent
}

func symmetricDifferenceCount(a, b []string) int {
	setA := make(map[string]bool, len(a))
	for _, v := range a {
		setA[v] = true
	}
	setB := make(map[string]bool, len(b))
	for _, v := range b {
		setB[v] = true
	}
	diff := 0
	for v := range setA {
		if !setB[v] {
			diff++
		}
	}
	for v := range setB {
		if !setA[v] {
			diff++
		}
	}
	return diff
}

// HashFile computes the xxhash content hash used in a CodebaseSignature.
func HashFile(content []byte) string {
	return strconv.FormatUint(xxhash.Sum64(content), 16)
}

// StopMotifCache is the persisted frequency profile of a codebase.
type StopMotifCache struct {
	Signature  CodebaseSignature `json:"signature"`
	TokenGrams []StopMotifEntry  `json:"token_grams"`
	PdgMotifs  []StopMotifEntry  `json:"pdg_motifs"`
	ASTPattern []ASTPatternEntry `json:"ast_patterns"`
	BuiltAt    time.Time         `json:"built_at"`
}

// TokenGramWeight implements tfidf.StopMotifCache.
func (c *StopMotifCache) TokenGramWeight(pattern string) (float64, bool) {
	for _, e := range c.TokenGrams {
		if e.Pattern == pattern {
			return e.WeightMultiplier, true
		}
	}
	return 0, false
}

// TokenGramPatterns implements tfidf.StopMotifCache.
func (c *StopMotifCache) TokenGramPatterns() []string {
	out := make([]string, len(c.TokenGrams))
	for i, e := range c.TokenGrams {
		out[i] = e.Pattern
	}
	return out
}

// MatchMotif implements pdg.StopMotifCache: category/structure matching
// following the same rule used for token grams (exact equality when
// neither side has a space, substring either way otherwise), applied to
// the PDG-motif entries whose category covers the motif's category.
func (c *StopMotifCache) MatchMotif(category, structure string) (float64, bool) {
	for _, e := range c.PdgMotifs {
		if string(e.Category) == "" || !categoryMatches(category, string(e.Category)) {
			continue
		}
		if !strings.Contains(e.Pattern, " ") && !strings.Contains(structure, " ") {
			if structure == e.Pattern {
				return e.WeightMultiplier, true
			}
			continue
		}
		if strings.Contains(structure, e.Pattern) || strings.Contains(e.Pattern, structure) {
			return e.WeightMultiplier, true
		}
	}
	return 0, false
}

func categoryMatches(motifCategory, stopCategory string) bool {
	switch stopCategory {
	case string(CategoryControlFlow):
		return motifCategory == "branch" || motifCategory == "loop"
	case string(CategoryFunctionCall):
		return motifCategory == "call"
	case string(CategoryAssignment):
		return motifCategory == "assign"
	case string(CategoryBoilerplate):
		return motifCategory == "ret" || motifCategory == "phi"
	default:
		return false
	}
}

// MatchTokenGram / MatchPdgMotif expose the token-gram and PDG-motif
// matching rules directly, for callers that prefer a predicate over
// Weight+ok.
func (c *StopMotifCache) MatchTokenGram(term string) (float64, bool) {
	for _, e := range c.TokenGrams {
		if !strings.Contains(e.Pattern, " ") && !strings.Contains(term, " ") {
			if term == e.Pattern {
				return e.WeightMultiplier, true
			}
			continue
		}
		if strings.Contains(term, e.Pattern) || strings.Contains(e.Pattern, term) {
			return e.WeightMultiplier, true
		}
	}
	return 0, false
}

func (c *StopMotifCache) MatchPdgMotif(category, structure string) (float64, bool) {
	return c.MatchMotif(category, structure)
}

// RankedByFrequency returns token-gram entries sorted descending by
// frequency, used to compute the stop_motif_percentile cutoff.
func (c *StopMotifCache) RankedByFrequency() []StopMotifEntry {
	out := make([]StopMotifEntry, len(c.TokenGrams))
	copy(out, c.TokenGrams)
	sort.Slice(out, func(i, j int) bool { return out[i].Frequency > out[j].Frequency })
	return out
}

// ApplyPercentileWeighting returns the entries sorted by ascending
// frequency, with every entry at or above the given percentile
// (normalized 0..1) given a weight multiplier of downWeightFactor and
// every entry below it that has no multiplier yet given 1.0.
func ApplyPercentileWeighting(entries []StopMotifEntry, percentile float64, downWeightFactor float64) []StopMotifEntry {
	if percentile < 0 {
		percentile = 0
	}
	if percentile > 1 {
		percentile = 1
	}
	sorted := make([]StopMotifEntry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Frequency < sorted[j].Frequency })

	cutoffIndex := int(percentile * float64(len(sorted)))
	for i := range sorted {
		if i >= cutoffIndex {
			sorted[i].WeightMultiplier = downWeightFactor
		} else if sorted[i].WeightMultiplier == 0 {
			sorted[i].WeightMultiplier = 1.0
		}
	}
	return sorted
}

// Store persists and loads StopMotifCache snapshots through
// temp-file-then-rename writes for file-system atomicity.
type Store struct {
	path string
}

// NewStore creates a Store rooted at path (typically
// ".valknut/cache/<codebase>/stop_motifs.v1.json").
func NewStore(path string) *Store { return &Store{path: path} }

// Load reads the cache; a missing file or a parse error is treated as
// a cache miss (ok=false), never an error.
func (s *Store) Load() (*StopMotifCache, bool) {
	return loadJSON[StopMotifCache](s.path)
}

func loadJSON[T any](path string) (*T, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, false
	}
	return &v, true
}

// Save writes the cache atomically.
func (s *Store) Save(c *StopMotifCache) error {
	return atomicWriteJSON(s.path, c)
}

func atomicWriteJSON(path string, v interface{}) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".valknut-cache-*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	enc := json.NewEncoder(tmp)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpPath, path)
}
