package directory

import "testing"

func TestGiniCoefficientOfConstantDistributionIsZero(t *testing.T) {
	g := GiniCoefficient([]int{50, 50, 50, 50})
	if g != 0 {
		t.Errorf("expected gini 0 for a constant distribution, got %f", g)
	}
}

func TestGiniCoefficientEmptyAndSingleton(t *testing.T) {
	if g := GiniCoefficient(nil); g != 0 {
		t.Errorf("expected gini 0 for empty input, got %f", g)
	}
	if g := GiniCoefficient([]int{100}); g != 0 {
		t.Errorf("expected gini 0 for singleton input, got %f", g)
	}
}

func TestGiniCoefficientUnequalIsPositive(t *testing.T) {
	g := GiniCoefficient([]int{10, 20, 30, 100})
	if g <= 0.1 {
		t.Errorf("expected a meaningfully unequal distribution to score above 0.1, got %f", g)
	}
}

func TestShannonEntropySingleValuedIsZero(t *testing.T) {
	e := ShannonEntropy([]int{100})
	if e != 0 {
		t.Errorf("expected entropy 0 for a single value, got %f", e)
	}
}

func TestShannonEntropyUniformIsLog2N(t *testing.T) {
	e := ShannonEntropy([]int{25, 25, 25, 25})
	// log2(4) == 2.0
	if diff := e - 2.0; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("expected entropy log2(4)=2.0 for a uniform 4-way split, got %f", e)
	}
}

func TestShannonEntropyEmptyIsZero(t *testing.T) {
	if e := ShannonEntropy(nil); e != 0 {
		t.Errorf("expected entropy 0 for empty input, got %f", e)
	}
}

func TestGiniCoefficientParallelMatchesSequentialAboveThreshold(t *testing.T) {
	values := make([]int, giniParallelThreshold+8)
	for i := range values {
		values[i] = (i*37)%200 + 1
	}
	seq := sequentialDispersion{}.gini(values)
	par := parallelDispersion{}.gini(values)
	if diff := seq - par; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("expected parallel gini to match sequential, got seq=%f par=%f", seq, par)
	}
	if got := GiniCoefficient(values); got != par {
		t.Errorf("expected GiniCoefficient to dispatch to the parallel strategy above threshold, got %f want %f", got, par)
	}
}

func TestShannonEntropyParallelMatchesSequentialAboveThreshold(t *testing.T) {
	values := make([]int, entropyParallelThreshold+16)
	for i := range values {
		values[i] = (i*13)%50 + 1
	}
	seq := sequentialDispersion{}.entropy(values)
	par := parallelDispersion{}.entropy(values)
	if diff := seq - par; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("expected parallel entropy to match sequential, got seq=%f par=%f", seq, par)
	}
	if got := ShannonEntropy(values); got != par {
		t.Errorf("expected ShannonEntropy to dispatch to the parallel strategy above threshold, got %f want %f", got, par)
	}
}

func TestDispersionForSelectsStrategyByThreshold(t *testing.T) {
	if _, ok := dispersionFor(giniParallelThreshold-1, giniParallelThreshold).(sequentialDispersion); !ok {
		t.Errorf("expected sequential strategy below threshold")
	}
	if _, ok := dispersionFor(giniParallelThreshold, giniParallelThreshold).(parallelDispersion); !ok {
		t.Errorf("expected parallel strategy at threshold")
	}
}

func TestNeedsReorgGatesOnImbalanceAndSize(t *testing.T) {
	th := DefaultThresholds()

	small := Metrics{Files: 3, LOC: 200, Imbalance: 0.9, Dispersion: 0.9}
	if NeedsReorg(small, th) {
		t.Errorf("expected a tiny directory to be exempt from reorg regardless of imbalance")
	}

	lowImbalance := Metrics{Files: 30, LOC: 3000, Imbalance: 0.3, Dispersion: 0.9}
	if NeedsReorg(lowImbalance, th) {
		t.Errorf("expected low imbalance to skip reorg")
	}

	qualifies := Metrics{Files: 30, LOC: 3000, Imbalance: 0.8, Dispersion: 0.9}
	if !NeedsReorg(qualifies, th) {
		t.Errorf("expected an overloaded directory to qualify for reorg")
	}
}

func TestCalculateMetricsPressuresClampToOne(t *testing.T) {
	th := DefaultThresholds()
	files := make([]FileStat, th.MaxFilesPerDir*2)
	for i := range files {
		files[i] = FileStat{Path: "f.py", LOC: 10}
	}
	m := CalculateMetrics(files, th.MaxSubdirsPerDir*3, th)
	if m.FilePressure != 1.0 {
		t.Errorf("expected file pressure to clamp at 1.0, got %f", m.FilePressure)
	}
	if m.BranchPressure != 1.0 {
		t.Errorf("expected branch pressure to clamp at 1.0, got %f", m.BranchPressure)
	}
}

func TestExtractPythonImportsModuleAndFrom(t *testing.T) {
	src := "import os\nfrom pkg.util import helper, other\nfrom pkg.all import *\n"
	imports := ExtractImports(src, "py")
	if len(imports) != 3 {
		t.Fatalf("expected 3 imports, got %d: %+v", len(imports), imports)
	}
	if imports[0].Module != "os" || imports[0].Kind != ImportModule {
		t.Errorf("expected bare module import, got %+v", imports[0])
	}
	if imports[1].Module != "pkg.util" || len(imports[1].Items) != 2 {
		t.Errorf("expected named import with 2 items, got %+v", imports[1])
	}
	if imports[2].Kind != ImportStar {
		t.Errorf("expected star import, got %+v", imports[2])
	}
}

func TestExtractJSImportsNamedAndDefault(t *testing.T) {
	src := "import { a, b } from \"./local\";\nimport Default from 'other';\n"
	imports := ExtractImports(src, "ts")
	if len(imports) != 2 {
		t.Fatalf("expected 2 imports, got %d", len(imports))
	}
	if imports[0].Module != "./local" || len(imports[0].Items) != 2 {
		t.Errorf("expected named import of 2 items from ./local, got %+v", imports[0])
	}
	if imports[1].Module != "other" || imports[1].Items[0] != "Default" {
		t.Errorf("expected default import Default from other, got %+v", imports[1])
	}
}

func TestExtractRustImportsBraceGroup(t *testing.T) {
	src := "use std::collections::{HashMap, HashSet};\nuse std::fmt;\n"
	imports := ExtractImports(src, "rs")
	if len(imports) != 2 {
		t.Fatalf("expected 2 imports, got %d", len(imports))
	}
	if imports[0].Module != "std::collections" || len(imports[0].Items) != 2 {
		t.Errorf("expected grouped use with 2 items, got %+v", imports[0])
	}
	if imports[1].Module != "std::fmt" || imports[1].Kind != ImportModule {
		t.Errorf("expected a bare module use, got %+v", imports[1])
	}
}

func TestResolveLocalSkipsRelativeImports(t *testing.T) {
	siblings := map[string]string{"helpers": "helpers.py"}
	if _, ok := ResolveLocal(Import{Module: ".helpers"}, siblings); ok {
		t.Errorf("expected relative imports to be skipped")
	}
	if path, ok := ResolveLocal(Import{Module: "helpers"}, siblings); !ok || path != "helpers.py" {
		t.Errorf("expected helpers to resolve to helpers.py, got %q ok=%v", path, ok)
	}
}

// TestPartitionReturnsDisjointCoverage checks that partitioning never
// drops or duplicates an input file.
func TestPartitionReturnsDisjointCoverage(t *testing.T) {
	files := []FileStat{
		{Path: "a.py", LOC: 100}, {Path: "b.py", LOC: 100},
		{Path: "c.py", LOC: 100}, {Path: "d.py", LOC: 100},
	}
	imports := map[string][]Import{
		"a.py": {{Module: "b", Kind: ImportModule}},
		"c.py": {{Module: "d", Kind: ImportModule}},
	}
	g := NewGraph(files, imports)
	th := DefaultThresholds()
	partitions := g.Partition(th, 400)

	seen := make(map[string]bool)
	for _, p := range partitions {
		for _, f := range p.Files {
			if seen[f] {
				t.Errorf("file %s appeared in more than one partition", f)
			}
			seen[f] = true
		}
	}
	if len(seen) != len(files) {
		t.Errorf("expected all %d files covered, got %d", len(files), len(seen))
	}
}

func TestPartitionEmptyGraphReturnsNoPartitions(t *testing.T) {
	g := NewGraph(nil, nil)
	if p := g.Partition(DefaultThresholds(), 0); p != nil {
		t.Errorf("expected no partitions for an empty graph, got %+v", p)
	}
}

func TestSizeNormalizationFactorStaysInExpectedRange(t *testing.T) {
	f := SizeNormalizationFactor(10, 1000)
	if f < 1.0 || f > 1.5 {
		t.Errorf("expected size normalization factor within [1.0, 1.5], got %f", f)
	}
}

func TestGenerateMovesNestsUnderPartitionName(t *testing.T) {
	partitions := []Partition{{Name: "auth", Files: []string{"src/login.py", "src/session.py"}}}
	moves := GenerateMoves(partitions, "src")
	if len(moves) != 2 {
		t.Fatalf("expected 2 moves, got %d", len(moves))
	}
	if moves[0].To != "src/auth/login.py" {
		t.Errorf("expected src/auth/login.py, got %s", moves[0].To)
	}
}
