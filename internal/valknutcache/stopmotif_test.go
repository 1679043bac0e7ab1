package valknutcache

import (
	"path/filepath"
	"testing"
	"time"
)

func TestCodebaseSignatureMatchesWithinTolerance(t *testing.T) {
	base := CodebaseSignature{
		ContentHashes: []string{"a", "b", "c", "d"},
		TopLevelFiles: []string{"main.go", "go.mod"},
	}
	changedOne := CodebaseSignature{
		ContentHashes: []string{"a", "b", "c", "z"},
		TopLevelFiles: []string{"main.go", "go.mod"},
	}
	if !base.Matches(changedOne, 50) {
		t.Errorf("expected 1/4 changed hashes to be within a 50%% tolerance")
	}
	if base.Matches(changedOne, 10) {
		t.Errorf("expected 1/4 changed hashes to exceed a 10%% tolerance")
	}
}

func TestCodebaseSignatureTopLevelFileCountChangeIsAlwaysStale(t *testing.T) {
	base := CodebaseSignature{ContentHashes: []string{"a"}, TopLevelFiles: []string{"main.go"}}
	grown := CodebaseSignature{ContentHashes: []string{"a"}, TopLevelFiles: []string{"main.go", "new.go"}}
	if base.Matches(grown, 100) {
		t.Errorf("expected a change in top-level file count to always invalidate the signature")
	}
}

func TestMatchTokenGramExactAndSubstring(t *testing.T) {
	c := &StopMotifCache{
		TokenGrams: []StopMotifEntry{
			{Pattern: "self", Category: CategoryBoilerplate, WeightMultiplier: 0.2},
			{Pattern: "get set", Category: CategoryBoilerplate, WeightMultiplier: 0.3},
		},
	}
	if w, ok := c.MatchTokenGram("self"); !ok || w != 0.2 {
		t.Errorf("expected exact match on 'self', got %v %v", w, ok)
	}
	if _, ok := c.MatchTokenGram("selfish"); ok {
		t.Errorf("single-token terms should require an exact match, not substring")
	}
	if w, ok := c.MatchTokenGram("get set value"); !ok || w != 0.3 {
		t.Errorf("expected k-gram substring match, got %v %v", w, ok)
	}
}

func TestApplyPercentileWeightingDownWeightsTopPercentile(t *testing.T) {
	entries := []StopMotifEntry{
		{Pattern: "rare", Frequency: 1},
		{Pattern: "mid", Frequency: 5},
		{Pattern: "common", Frequency: 100},
	}
	out := ApplyPercentileWeighting(entries, 0.67, 0.2)
	byPattern := map[string]StopMotifEntry{}
	for _, e := range out {
		byPattern[e.Pattern] = e
	}
	if byPattern["common"].WeightMultiplier != 0.2 {
		t.Errorf("expected the most frequent entry to be down-weighted, got %f", byPattern["common"].WeightMultiplier)
	}
	if byPattern["rare"].WeightMultiplier != 1.0 {
		t.Errorf("expected the rarest entry to keep full weight, got %f", byPattern["rare"].WeightMultiplier)
	}
}

func TestStoreRoundTripsAtomically(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "stop_motifs.v1.json")
	store := NewStore(path)

	if _, ok := store.Load(); ok {
		t.Fatalf("expected a miss before any save")
	}

	original := &StopMotifCache{
		Signature:  CodebaseSignature{ContentHashes: []string{"a"}, TopLevelFiles: []string{"x.go"}},
		TokenGrams: []StopMotifEntry{{Pattern: "self", WeightMultiplier: 0.2}},
		BuiltAt:    time.Unix(1700000000, 0).UTC(),
	}
	if err := store.Save(original); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	loaded, ok := store.Load()
	if !ok {
		t.Fatalf("expected a hit after save")
	}
	if loaded.TokenGrams[0].Pattern != "self" {
		t.Errorf("expected round-tripped token gram pattern, got %+v", loaded.TokenGrams)
	}
}

func TestCalibrationStaleOnMissingOrAged(t *testing.T) {
	now := time.Unix(1700100000, 0).UTC()
	sig := CodebaseSignature{ContentHashes: []string{"a"}, TopLevelFiles: []string{"x.go"}}

	var nilCal *Calibration
	if !nilCal.Stale(sig, 10, 24*time.Hour, now) {
		t.Errorf("expected a nil calibration record to always be stale")
	}

	fresh := &Calibration{Signature: sig, BuiltAt: now.Add(-1 * time.Hour)}
	if fresh.Stale(sig, 10, 24*time.Hour, now) {
		t.Errorf("expected a 1h-old matching record to not be stale")
	}

	aged := &Calibration{Signature: sig, BuiltAt: now.Add(-25 * time.Hour)}
	if !aged.Stale(sig, 10, 24*time.Hour, now) {
		t.Errorf("expected a 25h-old record to be stale regardless of signature match")
	}
}
