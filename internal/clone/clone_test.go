package clone

import (
	"testing"

	"github.com/valknut-io/valknut-core/internal/pdg"
)

const sampleBody = `if x > 0:
    y = compute(x)
    z = other(y)
else:
    y = fallback(x)
    z = other(y)
return z
`

// TestExactPairScenario checks that two entities with identical
// normalized token streams and bodies survive both gates and rank
// first.
func TestExactPairScenario(t *testing.T) {
	tokens := make([]string, 120)
	for i := range tokens {
		switch i % 4 {
		case 0:
			tokens[i] = "LOCAL_VAR"
		case 1:
			tokens[i] = "="
		case 2:
			tokens[i] = "INT_LIT"
		case 3:
			tokens[i] = "+"
		}
	}
	entities := []EntityTokens{
		{ID: "a", Tokens: tokens, Code: sampleBody},
		{ID: "b", Tokens: append([]string(nil), tokens...), Code: sampleBody},
	}

	d := NewDetector(64, DefaultStructuralGateConfig())
	candidates := d.GenerateCandidates(entities, nil)
	if len(candidates) != 1 {
		t.Fatalf("expected exactly 1 candidate, got %d", len(candidates))
	}
	if candidates[0].Score != 1.0 {
		t.Errorf("expected Phase 1 similarity 1.0 for identical token streams, got %f", candidates[0].Score)
	}
	if candidates[0].SavedTokens != 120 {
		t.Errorf("expected saved_tokens 120, got %d", candidates[0].SavedTokens)
	}

	filtered, ok := d.ApplyStructuralGates(candidates[0], sampleBody, sampleBody)
	if !ok {
		t.Fatalf("expected identical bodies to pass structural gates")
	}
	if filtered.Original.MatchedBlocks < 2 {
		t.Errorf("expected at least 2 matched blocks, got %d", filtered.Original.MatchedBlocks)
	}
	if filtered.SharedMotifs < 2 {
		t.Errorf("expected at least 2 shared motifs, got %d", filtered.SharedMotifs)
	}

	filtered.Original.RarityGain = 1.5
	ranked := d.RankCandidates([]FilteredCloneCandidate{filtered})
	if len(ranked) != 1 {
		t.Fatalf("expected candidate to survive hard floors, got %d", len(ranked))
	}
	if ranked[0].Rank != 1 {
		t.Errorf("expected rank 1, got %d", ranked[0].Rank)
	}
	expectedPayoff := filtered.AdjustedScore * 120 * 1.5
	if diff := ranked[0].PayoffScore - expectedPayoff; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("expected payoff %.6f, got %.6f", expectedPayoff, ranked[0].PayoffScore)
	}
}

func TestCloneCandidateValidateRejectsSelfPairAndOutOfRangeScore(t *testing.T) {
	self := CloneCandidate{EntityID: "a", SimilarEntityID: "a", Score: 0.5}
	if self.Validate() {
		t.Errorf("expected a self-pair to fail validation")
	}
	badScore := CloneCandidate{EntityID: "a", SimilarEntityID: "b", Score: 1.5}
	if badScore.Validate() {
		t.Errorf("expected an out-of-range score to fail validation")
	}
	badBlocks := CloneCandidate{EntityID: "a", SimilarEntityID: "b", Score: 0.5, MatchedBlocks: 3, TotalBlocks: 2}
	if badBlocks.Validate() {
		t.Errorf("expected matched_blocks > total_blocks to fail validation")
	}
}

// TestHardFloorsAreIdempotent checks that re-ranking an already-ranked
// candidate set is stable.
func TestHardFloorsAreIdempotent(t *testing.T) {
	d := NewDetector(16, DefaultStructuralGateConfig())
	candidates := []FilteredCloneCandidate{
		{Original: CloneCandidate{EntityID: "a", SimilarEntityID: "b", Score: 0.9, SavedTokens: 150, RarityGain: 1.3}, AdjustedScore: 0.9},
		{Original: CloneCandidate{EntityID: "c", SimilarEntityID: "d", Score: 0.5, SavedTokens: 10, RarityGain: 0.5}, AdjustedScore: 0.5},
	}

	once := d.RankCandidates(candidates)
	oncePayoffs := make([]float64, len(once))
	for i, r := range once {
		oncePayoffs[i] = r.PayoffScore
	}

	survivors := make([]FilteredCloneCandidate, len(once))
	for i, r := range once {
		survivors[i] = r.Candidate
	}
	twice := d.RankCandidates(survivors)

	if len(once) != len(twice) {
		t.Fatalf("expected idempotent hard floors, got %d then %d survivors", len(once), len(twice))
	}
	for i := range twice {
		if twice[i].PayoffScore != oncePayoffs[i] {
			t.Errorf("expected stable payoff on re-application, got %f then %f", oncePayoffs[i], twice[i].PayoffScore)
		}
	}
}

func TestAutoCalibrationNeverWorseThanDefaults(t *testing.T) {
	defaults := DefaultAdaptiveThresholds()
	candidates := []CloneCandidate{
		{EntityID: "a", SimilarEntityID: "b", Score: 0.95, SavedTokens: 150, MatchedBlocks: 3, TotalBlocks: 3, RarityGain: 1.5},
	}

	best := defaults
	bestPassRate := passRate(candidates, defaults)

	for _, minTokens := range []int{50, 75, 100, 125, 150, 175, 200} {
		for _, sim := range []float64{0.60, 0.65, 0.70, 0.75, 0.80, 0.85, 0.90} {
			for _, blocks := range []int{1, 2, 3} {
				cand := AdaptiveThresholds{
					FragmentarityThreshold:  0.4,
					StructureRatioThreshold: 0.4,
					UniquenessThreshold:     1.0,
					MinSavedTokens:          minTokens,
					RequireBlocks:           blocks,
					StopMotifPercentile:     sim,
				}
				rate := passRate(candidates, cand)
				if rate > bestPassRate {
					bestPassRate = rate
					best = cand
				}
			}
		}
	}

	if bestPassRate < passRate(candidates, defaults) {
		t.Fatalf("auto-calibration must never select thresholds worse than defaults")
	}
	_ = best
}

func passRate(candidates []CloneCandidate, t AdaptiveThresholds) float64 {
	if len(candidates) == 0 {
		return 0
	}
	pass := 0
	for _, c := range candidates {
		fragmentarity := float64(c.MatchedBlocks) / float64(maxInt(c.TotalBlocks, 1))
		structureRatio := float64(c.MatchedBlocks) / float64(maxInt(c.TotalBlocks, 1))
		if fragmentarity >= t.FragmentarityThreshold && structureRatio >= t.StructureRatioThreshold && c.RarityGain >= t.UniquenessThreshold {
			pass++
		}
	}
	return float64(pass) / float64(len(candidates))
}

func TestComputeRarityGainDelegatesToPdg(t *testing.T) {
	extractor := pdg.NewExtractor(2)
	motifs := extractor.ExtractMotifs("e1", sampleBody)
	gain := ComputeRarityGain(motifs, constantIDF{val: 3.0})
	if gain != 3.0 {
		t.Errorf("expected uniform IDF to pass through unchanged, got %f", gain)
	}
}

type constantIDF struct{ val float64 }

func (c constantIDF) MotifIDF(hash uint64) float64 { return c.val }

func TestTopCandidatesBySimilaritySampling(t *testing.T) {
	candidates := []CloneCandidate{
		{EntityID: "a", SimilarEntityID: "b", Score: 0.4},
		{EntityID: "c", SimilarEntityID: "d", Score: 0.9},
		{EntityID: "e", SimilarEntityID: "f", Score: 0.6},
	}
	top := TopCandidatesBySimilarity(candidates, 2)
	if len(top) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(top))
	}
	if top[0].Score != 0.9 || top[1].Score != 0.6 {
		t.Errorf("expected descending order by score, got %+v", top)
	}
}
