// Package directory analyzes directory-level structure: LOC dispersion
// metrics (Gini coefficient, Shannon entropy), a file-level dependency
// graph built from per-language import extraction, and partitioning of
// an overloaded directory into balanced, low-coupling sub-packages.
package directory

import (
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// FileStat is the per-file input to directory metrics: lines of code
// and byte size, keyed by a caller-supplied relative path.
type FileStat struct {
	Path  string
	LOC   int
	Bytes int
}

// Thresholds configures when a directory is considered overloaded and
// how aggressively it gets partitioned. Mirrors the fsdir/partitioning
// knobs a caller would otherwise hardcode.
type Thresholds struct {
	MaxFilesPerDir            int
	MaxSubdirsPerDir          int
	MaxDirLOC                 int
	TargetLOCPerSubdir        int
	MinBranchRecommendation   float64
	MaxClusters               int
	MinClusters               int
	BalanceTolerance          float64
	NamingFallbacks           []string
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		MaxFilesPerDir:          20,
		MaxSubdirsPerDir:        10,
		MaxDirLOC:               2000,
		TargetLOCPerSubdir:      500,
		MinBranchRecommendation: 0.1,
		MaxClusters:             8,
		MinClusters:             2,
		BalanceTolerance:        0.3,
		NamingFallbacks:         []string{"core", "utils", "extra", "misc"},
	}
}

// Metrics summarizes a directory's size and dispersion. Imbalance
// combines file/subdir/size pressure with LOC dispersion and is scaled
// by a size-normalization factor so small and large codebases aren't
// penalized asymmetrically.
type Metrics struct {
	Files          int
	Subdirs        int
	LOC            int
	Gini           float64
	Entropy        float64
	FilePressure   float64
	BranchPressure float64
	SizePressure   float64
	Dispersion     float64
	Imbalance      float64
}

// CalculateMetrics computes directory dispersion metrics from file LOC
// distribution, subdirectory count, and the configured thresholds.
func CalculateMetrics(files []FileStat, subdirs int, t Thresholds) Metrics {
	locDist := make([]int, len(files))
	totalLOC := 0
	for i, f := range files {
		locDist[i] = f.LOC
		totalLOC += f.LOC
	}

	gini := GiniCoefficient(locDist)
	entropy := ShannonEntropy(locDist)

	filePressure := clamp01(float64(len(files)) / float64(t.MaxFilesPerDir))
	branchPressure := clamp01(float64(subdirs) / float64(t.MaxSubdirsPerDir))
	sizePressure := clamp01(float64(totalLOC) / float64(t.MaxDirLOC))

	maxEntropy := 1.0
	if len(files) > 0 {
		maxEntropy = math.Log2(float64(len(files)))
	}
	normalizedEntropy := 0.0
	if maxEntropy > 0 {
		normalizedEntropy = entropy / maxEntropy
	}
	dispersion := math.Max(gini, 1.0-normalizedEntropy)

	sizeNorm := SizeNormalizationFactor(len(files), totalLOC)
	rawImbalance := 0.35*filePressure + 0.25*branchPressure + 0.25*sizePressure + 0.15*dispersion

	return Metrics{
		Files:          len(files),
		Subdirs:        subdirs,
		LOC:            totalLOC,
		Gini:           gini,
		Entropy:        entropy,
		FilePressure:   filePressure,
		BranchPressure: branchPressure,
		SizePressure:   sizePressure,
		Dispersion:     dispersion,
		Imbalance:      rawImbalance * sizeNorm,
	}
}

func clamp01(v float64) float64 {
	if v > 1.0 {
		return 1.0
	}
	if v < 0 {
		return 0
	}
	return v
}

// giniParallelThreshold and entropyParallelThreshold gate the point at
// which GiniCoefficient and ShannonEntropy switch from a single
// sequential pass to a goroutine fan-out: below them the per-element
// work is too small to amortize scheduling overhead.
const (
	giniParallelThreshold    = 32
	entropyParallelThreshold = 100
)

// dispersionStrategy computes the two LOC-dispersion metrics over a
// value distribution. sequentialDispersion and parallelDispersion
// produce identical results for identical input; callers pick between
// them by distribution size through dispersionFor.
type dispersionStrategy interface {
	gini(values []int) float64
	entropy(values []int) float64
}

func dispersionFor(n, threshold int) dispersionStrategy {
	if n >= threshold {
		return parallelDispersion{}
	}
	return sequentialDispersion{}
}

type sequentialDispersion struct{}

func (sequentialDispersion) gini(values []int) float64 {
	n := len(values)
	sum := sumInts(values)
	if n <= 1 || sum == 0 {
		return 0
	}
	sumDiff := 0.0
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			sumDiff += absDiff(values[i], values[j])
		}
	}
	return sumDiff / (2.0 * float64(n) * float64(sum))
}

func (sequentialDispersion) entropy(values []int) float64 {
	total := sumInts(values)
	if total == 0 {
		return 0
	}
	entropy := 0.0
	for _, v := range values {
		if v <= 0 {
			continue
		}
		p := float64(v) / float64(total)
		entropy += -p * math.Log2(p)
	}
	return entropy
}

// parallelDispersion splits the distribution into GOMAXPROCS chunks,
// one goroutine accumulating a partial sum per chunk, combined once
// every goroutine returns.
type parallelDispersion struct{}

func (parallelDispersion) gini(values []int) float64 {
	n := len(values)
	sum := sumInts(values)
	if n <= 1 || sum == 0 {
		return 0
	}

	partials := dispersionChunks(n, func(start, end int) float64 {
		local := 0.0
		for i := start; i < end; i++ {
			for j := 0; j < n; j++ {
				local += absDiff(values[i], values[j])
			}
		}
		return local
	})

	sumDiff := 0.0
	for _, p := range partials {
		sumDiff += p
	}
	return sumDiff / (2.0 * float64(n) * float64(sum))
}

func (parallelDispersion) entropy(values []int) float64 {
	total := sumInts(values)
	if total == 0 {
		return 0
	}

	partials := dispersionChunks(len(values), func(start, end int) float64 {
		local := 0.0
		for _, v := range values[start:end] {
			if v <= 0 {
				continue
			}
			p := float64(v) / float64(total)
			local += -p * math.Log2(p)
		}
		return local
	})

	entropy := 0.0
	for _, p := range partials {
		entropy += p
	}
	return entropy
}

// dispersionChunks fans work over [0,n) out across GOMAXPROCS
// goroutines, each running chunkFn on its [start,end) slice of
// indices, and waits for all of them to finish.
func dispersionChunks(n int, chunkFn func(start, end int) float64) []float64 {
	workers := runtime.GOMAXPROCS(0)
	if workers > n {
		workers = n
	}
	if workers < 1 {
		workers = 1
	}
	chunkSize := (n + workers - 1) / workers

	partials := make([]float64, workers)
	var g errgroup.Group
	for w := 0; w < workers; w++ {
		start := w * chunkSize
		if start >= n {
			break
		}
		end := start + chunkSize
		if end > n {
			end = n
		}
		w, start, end := w, start, end
		g.Go(func() error {
			partials[w] = chunkFn(start, end)
			return nil
		})
	}
	_ = g.Wait()
	return partials
}

func sumInts(values []int) int {
	sum := 0
	for _, v := range values {
		sum += v
	}
	return sum
}

func absDiff(a, b int) float64 {
	d := a - b
	if d < 0 {
		d = -d
	}
	return float64(d)
}

// GiniCoefficient computes the Gini coefficient of a LOC distribution
// via mean absolute difference, switching to a parallel chunked pass
// once the distribution reaches giniParallelThreshold elements. Zero
// for n<=1 or an all-zero distribution; 0 for a perfectly equal
// distribution, approaching 1 for maximal inequality.
func GiniCoefficient(values []int) float64 {
	return dispersionFor(len(values), giniParallelThreshold).gini(values)
}

// ShannonEntropy computes Shannon entropy (base 2) over a LOC
// distribution treated as a probability mass function, switching to a
// parallel chunked pass once the distribution reaches
// entropyParallelThreshold elements. Zero for an empty or all-zero
// distribution.
func ShannonEntropy(values []int) float64 {
	return dispersionFor(len(values), entropyParallelThreshold).entropy(values)
}

// SizeNormalizationFactor keeps small directories from being
// over-penalized and large ones from being under-penalized, scaling
// the raw imbalance into roughly [1.0, 1.5].
func SizeNormalizationFactor(files, totalLOC int) float64 {
	const baseFiles = 10.0
	const baseLOC = 1000.0

	fileFactor := math.Log1p(float64(files)/baseFiles) / math.Log(baseFiles)
	locFactor := math.Log1p(float64(totalLOC)/baseLOC) / math.Log(baseLOC)
	combined := (fileFactor + locFactor) * 0.5
	return 1.0 + math.Tanh(combined)*0.5
}

// NeedsReorg applies the gating conditions that decide whether a
// directory is even a candidate for reorganization, before the
// (expensive) graph partitioning step runs.
func NeedsReorg(m Metrics, t Thresholds) bool {
	if m.Imbalance < 0.6 {
		return false
	}
	meetsConditions := m.Files > t.MaxFilesPerDir || m.LOC > t.MaxDirLOC || m.Dispersion >= 0.5
	if !meetsConditions {
		return false
	}
	if m.Files <= 5 && m.LOC <= 600 {
		return false
	}
	return true
}
