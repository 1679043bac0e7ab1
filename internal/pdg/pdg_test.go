package pdg

import "testing"

func TestBasicBlockAnalyzerSegmentsControlKeywords(t *testing.T) {
	a := NewBasicBlockAnalyzer()
	blocks := a.Analyze("if (x > 0) {\n  y = compute(x);\n}\nreturn y;\n")
	if len(blocks) == 0 {
		t.Fatal("expected at least one block")
	}
	foundConditional := false
	for _, b := range blocks {
		if b.Control == ControlConditional {
			foundConditional = true
		}
	}
	if !foundConditional {
		t.Errorf("expected a conditional block to be detected")
	}
}

func TestExtractExternalCallsIdentifierChain(t *testing.T) {
	calls := extractExternalCalls("result = obj.method(arg1, arg2);\nModule::function(x);\n")
	if len(calls) != 2 {
		t.Fatalf("expected 2 calls, got %d: %v", len(calls), calls)
	}
	if calls[0] != "obj.method" {
		t.Errorf("expected obj.method, got %q", calls[0])
	}
	if calls[1] != "Module::function" {
		t.Errorf("expected Module::function, got %q", calls[1])
	}
}

func TestWLHashEquivalentStructuresMatch(t *testing.T) {
	h1 := computeWLHash("branch:1-5", 2)
	h2 := computeWLHash("branch:1-5", 2)
	h3 := computeWLHash("loop:1-5", 2)
	if h1 != h2 {
		t.Errorf("expected identical structure to hash identically")
	}
	if h1 == h3 {
		t.Errorf("expected different structures to hash differently")
	}
}

// TestWLHashIsEntityIndependent guards the Phase 2 shared-motif gate:
// two different entities producing the same structural motif must hash
// identically, since count_shared_motifs compares by WL hash alone.
func TestWLHashIsEntityIndependent(t *testing.T) {
	e1 := NewExtractor(2)
	e2 := NewExtractor(2)
	motifsA := e1.ExtractMotifs("entityA", "if (x) {\n  y = f(x);\n}\n")
	motifsB := e2.ExtractMotifs("entityB", "if (x) {\n  y = f(x);\n}\n")
	if len(motifsA) == 0 || len(motifsB) == 0 {
		t.Fatal("expected motifs from both entities")
	}
	if motifsA[0].WLHash != motifsB[0].WLHash {
		t.Errorf("expected structurally identical motifs from different entities to share a WL hash")
	}
}

func TestComputeMatchedBlocksJaccardSymmetricCase(t *testing.T) {
	blocks1 := []BasicBlock{
		{StartLine: 1, EndLine: 3, ExternalCalls: []string{"a.b", "c.d"}},
		{StartLine: 4, EndLine: 6, ExternalCalls: []string{"e.f"}},
	}
	blocks2 := []BasicBlock{
		{StartLine: 1, EndLine: 3, ExternalCalls: []string{"a.b"}},
	}
	result := ComputeMatchedBlocks(blocks1, blocks2, [2]int{1, 3}, [2]int{1, 3})
	if result.Matched1 != 1 || result.Matched2 != 1 {
		t.Errorf("expected 1 matched block on each side, got %d/%d", result.Matched1, result.Matched2)
	}
	if result.CallJaccard <= 0 || result.CallJaccard > 1 {
		t.Errorf("expected call jaccard in (0,1], got %f", result.CallJaccard)
	}
}

type fakeMotifIDF struct{ val float64 }

func (f fakeMotifIDF) MotifIDF(hash uint64) float64 { return f.val }

func TestCalculateRarityGainIsMeanIDF(t *testing.T) {
	e := NewExtractor(2)
	motifs := e.ExtractMotifs("entity1", "if (x) {\n  y = f(x);\n}\n")
	if len(motifs) == 0 {
		t.Fatal("expected at least one motif")
	}
	gain := CalculateRarityGain(motifs, fakeMotifIDF{val: 2.0})
	if gain != 2.0 {
		t.Errorf("expected rarity gain to equal the uniform IDF (2.0) absent stop-motif damping, got %f", gain)
	}
}
