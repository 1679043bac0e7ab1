// Package clone implements a 4-phase clone detector: weighted-MinHash
// candidate generation, structural gating against the PDG motif
// extractor, implicit stop-motif re-weighting carried by the attached
// caches, and payoff ranking behind hard floors. AdaptiveThresholds and
// CalibrationResult describe an auto-calibration grid point and its
// outcome, but no function here runs a calibration sweep; RankCandidates
// applies the detector's hard floors only.
package clone

import (
	"sort"
	"sync"

	"github.com/valknut-io/valknut-core/internal/minhash"
	"github.com/valknut-io/valknut-core/internal/pdg"
)

// candidateSimilarityFloor is the Phase 1 keep threshold.
const candidateSimilarityFloor = 0.30

// EntityTokens is the minimal view of an entity Phase 1 needs: its
// normalized token stream (for MinHash) and raw source (for Phase 2's
// block/motif analysis).
type EntityTokens struct {
	ID     string
	Tokens []string
	Code   string
}

// CloneCandidate is a pair of entities whose weighted-Jaccard
// similarity cleared the Phase 1 floor.
type CloneCandidate struct {
	EntityID        string
	SimilarEntityID string
	Score           float64
	SavedTokens     int
	RarityGain      float64
	MatchedBlocks   int
	TotalBlocks     int
	StructuralMotifs int
	TotalMotifs     int
	LiveReachBoost  float64
}

// Validate checks the core candidate invariants: distinct entities,
// score in [0,1], matched never exceeding total.
func (c CloneCandidate) Validate() bool {
	if c.EntityID == c.SimilarEntityID {
		return false
	}
	if c.Score < 0 || c.Score > 1 {
		return false
	}
	if c.MatchedBlocks > c.TotalBlocks {
		return false
	}
	return true
}

// StructuralGateConfig holds the Phase 2 thresholds.
type StructuralGateConfig struct {
	RequireBlocks                int
	MinSharedMotifs              int
	ExternalCallJaccardThreshold float64
	IOPenaltyMultiplier          float64
	WLIterations                 int
}

// DefaultStructuralGateConfig returns the Phase 2 structural gate's
// default thresholds.
func DefaultStructuralGateConfig() StructuralGateConfig {
	return StructuralGateConfig{
		RequireBlocks:                2,
		MinSharedMotifs:              2,
		ExternalCallJaccardThreshold: 0.20,
		IOPenaltyMultiplier:          0.70,
		WLIterations:                 3,
	}
}

// MotifDetails breaks shared-motif counts down by category, for
// reporting.
type MotifDetails struct {
	Motifs1           int
	Motifs2           int
	SharedBranchMotifs int
	SharedLoopMotifs   int
	SharedCallMotifs   int
}

// FilteredCloneCandidate is a candidate that survived Phase 2.
type FilteredCloneCandidate struct {
	Original       CloneCandidate
	AdjustedScore  float64
	StructuralInfo pdg.MatchedBlocksResult
	SharedMotifs   int
	MotifDetails   MotifDetails
}

// AdaptiveThresholds is the Phase 4 auto-calibration grid point.
type AdaptiveThresholds struct {
	FragmentarityThreshold  float64
	StructureRatioThreshold float64
	UniquenessThreshold     float64
	MinSavedTokens          int
	RequireBlocks           int
	StopMotifPercentile     float64
}

// DefaultAdaptiveThresholds are the hard-coded fallback used when no
// grid point clears the quality target.
func DefaultAdaptiveThresholds() AdaptiveThresholds {
	return AdaptiveThresholds{
		FragmentarityThreshold:  0.3,
		StructureRatioThreshold: 0.7,
		UniquenessThreshold:     1.2,
		MinSavedTokens:          100,
		RequireBlocks:           2,
		StopMotifPercentile:     0.75,
	}
}

// HardFloors are applied after calibration, unconditionally.
type HardFloors struct {
	MinSavedTokens int
	MinRarityGain  float64
}

// DefaultHardFloors returns the Phase 4 ranking stage's hard floors.
func DefaultHardFloors() HardFloors {
	return HardFloors{MinSavedTokens: 100, MinRarityGain: 1.2}
}

// RankedCloneCandidate carries the computed payoff score and 1-based
// rank assigned during Phase 4.
type RankedCloneCandidate struct {
	Candidate    FilteredCloneCandidate
	PayoffScore  float64
	Rank         int
}

// CalibrationResult is the outcome of an auto-calibration sweep.
type CalibrationResult struct {
	Thresholds          AdaptiveThresholds
	QualityScore        float64
	CandidatesProcessed int
}

// Detector runs the full 4-phase pipeline. It is safe for concurrent
// use across independent GenerateCandidates/ApplyStructuralGates calls;
// the live-reach map is guarded by its own lock since it can be
// hot-swapped between pipeline runs.
type Detector struct {
	minhashK      int
	gateConfig    StructuralGateConfig
	hardFloors    HardFloors
	blockAnalyzer *pdg.BasicBlockAnalyzer
	motifExtractor *pdg.Extractor

	mu            sync.RWMutex
	liveReachData map[string]float64
}

// NewDetector creates a Detector with the given MinHash signature size
// and structural-gate configuration.
func NewDetector(minhashK int, gateConfig StructuralGateConfig) *Detector {
	return &Detector{
		minhashK:       minhashK,
		gateConfig:     gateConfig,
		hardFloors:     DefaultHardFloors(),
		blockAnalyzer:  pdg.NewBasicBlockAnalyzer(),
		motifExtractor: pdg.NewExtractor(gateConfig.WLIterations),
	}
}

// SetHardFloors overrides the Phase 4 hard floors (e.g. from a loaded
// calibration record).
func (d *Detector) SetHardFloors(f HardFloors) { d.hardFloors = f }

// SetStopMotifCache attaches a stop-motif cache to the internal motif
// extractor, so Phase 2's motif counts are already stop-motif-aware —
// the Phase 3 re-weighting happens implicitly rather than as a
// separate pass.
func (d *Detector) SetStopMotifCache(c pdg.StopMotifCache) {
	d.motifExtractor.SetStopMotifCache(c)
}

// SetLiveReachData attaches runtime-reach telemetry used by Phase 4's
// live_reach_boost. Pass nil to clear it.
func (d *Detector) SetLiveReachData(data map[string]float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.liveReachData = data
}

func (d *Detector) liveReachBoost(entityID string) float64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.liveReachData == nil {
		return 1.0
	}
	return 1.0 + d.liveReachData[entityID]
}

// GenerateCandidates is Phase 1: for every unordered pair of entities,
// build weighted MinHash signatures and keep pairs above the
// similarity floor.
func (d *Detector) GenerateCandidates(entities []EntityTokens, weights map[string]float64) []CloneCandidate {
	gen := minhash.New(d.minhashK, weights)
	sigs := make([]minhash.Signature, len(entities))
	for i, e := range entities {
		sigs[i] = gen.Generate(e.Tokens)
	}

	var candidates []CloneCandidate
	for i := 0; i < len(entities); i++ {
		for j := i + 1; j < len(entities); j++ {
			score := minhash.WeightedJaccard(sigs[i], sigs[j])
			if score <= candidateSimilarityFloor {
				continue
			}
			candidates = append(candidates, CloneCandidate{
				EntityID:        entities[i].ID,
				SimilarEntityID: entities[j].ID,
				Score:           score,
				SavedTokens:     minInt(len(entities[i].Tokens), len(entities[j].Tokens)),
			})
		}
	}
	return candidates
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// ApplyStructuralGates is Phase 2. code1/code2 are the raw source of
// candidate.EntityID and candidate.SimilarEntityID respectively. It
// returns ok=false when either gate rejects the candidate.
func (d *Detector) ApplyStructuralGates(candidate CloneCandidate, code1, code2 string) (FilteredCloneCandidate, bool) {
	blocks1 := d.blockAnalyzer.Analyze(code1)
	blocks2 := d.blockAnalyzer.Analyze(code2)

	lineCount1 := countLines(code1)
	lineCount2 := countLines(code2)
	matchInfo := pdg.ComputeMatchedBlocks(blocks1, blocks2, [2]int{0, lineCount1}, [2]int{0, lineCount2})

	minMatched := matchInfo.Matched1
	if matchInfo.Matched2 < minMatched {
		minMatched = matchInfo.Matched2
	}
	if minMatched < d.gateConfig.RequireBlocks {
		return FilteredCloneCandidate{}, false
	}

	motifs1 := d.motifExtractor.ExtractMotifs(candidate.EntityID, code1)
	motifs2 := d.motifExtractor.ExtractMotifs(candidate.SimilarEntityID, code2)

	shared := countSharedMotifs(motifs1, motifs2)
	if shared < d.gateConfig.MinSharedMotifs {
		return FilteredCloneCandidate{}, false
	}

	adjustedScore := candidate.Score
	if matchInfo.CallJaccard < d.gateConfig.ExternalCallJaccardThreshold {
		adjustedScore *= d.gateConfig.IOPenaltyMultiplier
	}

	filtered := FilteredCloneCandidate{
		Original:       candidate,
		AdjustedScore:  adjustedScore,
		StructuralInfo: matchInfo,
		SharedMotifs:   shared,
		MotifDetails: MotifDetails{
			Motifs1:            len(motifs1),
			Motifs2:            len(motifs2),
			SharedBranchMotifs: countSharedMotifsByCategory(motifs1, motifs2, pdg.CategoryBranch),
			SharedLoopMotifs:   countSharedMotifsByCategory(motifs1, motifs2, pdg.CategoryLoop),
			SharedCallMotifs:   countSharedMotifsByCategory(motifs1, motifs2, pdg.CategoryCall),
		},
	}
	filtered.Original.MatchedBlocks = minMatched
	filtered.Original.TotalBlocks = maxInt(len(blocks1), len(blocks2))
	filtered.Original.StructuralMotifs = shared
	filtered.Original.TotalMotifs = len(motifs1) + len(motifs2)
	return filtered, true
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func countLines(s string) int {
	n := 1
	for _, c := range s {
		if c == '\n' {
			n++
		}
	}
	return n
}

func countSharedMotifs(a, b []pdg.Motif) int {
	hashes := make(map[uint64]bool, len(a))
	for _, m := range a {
		hashes[m.WLHash] = true
	}
	count := 0
	seen := make(map[uint64]bool, len(b))
	for _, m := range b {
		if hashes[m.WLHash] && !seen[m.WLHash] {
			count++
			seen[m.WLHash] = true
		}
	}
	return count
}

func countSharedMotifsByCategory(a, b []pdg.Motif, category pdg.MotifCategory) int {
	filterA := filterByCategory(a, category)
	filterB := filterByCategory(b, category)
	return countSharedMotifs(filterA, filterB)
}

func filterByCategory(motifs []pdg.Motif, category pdg.MotifCategory) []pdg.Motif {
	out := make([]pdg.Motif, 0, len(motifs))
	for _, m := range motifs {
		if m.Category == category {
			out = append(out, m)
		}
	}
	return out
}

// ComputeRarityGain wires pdg.CalculateRarityGain into the candidate
// pipeline — the engine that makes Phase 3's stop-motif damping visible
// in the payoff formula, since the extractor already applied any
// attached stop-motif cache when building motifs1/motifs2.
func ComputeRarityGain(motifs []pdg.Motif, idf pdg.MotifIDFProvider) float64 {
	return pdg.CalculateRarityGain(motifs, idf)
}

// RankCandidates is Phase 4's payoff ranking: apply hard floors, score,
// sort descending, assign 1-based ranks.
func (d *Detector) RankCandidates(candidates []FilteredCloneCandidate) []RankedCloneCandidate {
	var ranked []RankedCloneCandidate
	for _, c := range candidates {
		if !d.passesHardFloors(c.Original) {
			continue
		}
		payoff := c.AdjustedScore * float64(c.Original.SavedTokens) * c.Original.RarityGain * d.liveReachBoost(c.Original.EntityID)
		ranked = append(ranked, RankedCloneCandidate{Candidate: c, PayoffScore: payoff})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].PayoffScore > ranked[j].PayoffScore
	})
	for i := range ranked {
		ranked[i].Rank = i + 1
	}
	return ranked
}

func (d *Detector) passesHardFloors(c CloneCandidate) bool {
	return c.SavedTokens >= d.hardFloors.MinSavedTokens && c.RarityGain >= d.hardFloors.MinRarityGain
}

// TopCandidatesBySimilarity returns the n candidates with highest raw
// score, for auto-calibration's "top 200 raw candidates" sampling step.
func TopCandidatesBySimilarity(candidates []CloneCandidate, n int) []CloneCandidate {
	sorted := make([]CloneCandidate, len(candidates))
	copy(sorted, candidates)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Score > sorted[j].Score })
	if n > len(sorted) {
		n = len(sorted)
	}
	return sorted[:n]
}
