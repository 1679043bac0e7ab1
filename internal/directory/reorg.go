package directory

import "math"

// Gain summarizes the expected benefit of applying a proposed
// reorganization: how much the average imbalance drops, and how many
// dependency-graph edges run between different proposed partitions.
type Gain struct {
	ImbalanceDelta    float64
	CrossEdgesReduced int
}

// Effort is a rough cost estimate for applying a reorganization.
type Effort struct {
	FilesMoved      int
	ImportUpdatesEst int
}

// Move describes relocating a single file under its assigned
// partition's subdirectory.
type Move struct {
	From, To string
}

// CalculateGain estimates the imbalance improvement from a proposed
// set of partitions by recomputing per-partition imbalance against a
// uniform (avg LOC per file) distribution, then diffing against the
// directory's current imbalance.
func CalculateGain(current Metrics, partitions []Partition, g *Graph, t Thresholds) Gain {
	if len(partitions) == 0 {
		return Gain{ImbalanceDelta: 0, CrossEdgesReduced: 0}
	}

	sum := 0.0
	for _, p := range partitions {
		avgLOC := 0
		if len(p.Files) > 0 {
			avgLOC = p.LOC / len(p.Files)
		}
		locDist := make([]int, len(p.Files))
		for i := range locDist {
			locDist[i] = avgLOC
		}

		gini := GiniCoefficient(locDist)
		entropy := ShannonEntropy(locDist)
		filePressure := clamp01(float64(len(p.Files)) / float64(t.MaxFilesPerDir))
		sizePressure := clamp01(float64(p.LOC) / float64(t.MaxDirLOC))

		maxEntropy := 1.0
		if len(p.Files) > 0 {
			maxEntropy = math.Log2(float64(len(p.Files)))
		}
		normalizedEntropy := 0.0
		if maxEntropy > 0 {
			normalizedEntropy = entropy / maxEntropy
		}
		dispersion := maxFloat(gini, 1.0-normalizedEntropy)

		sizeNorm := SizeNormalizationFactor(len(p.Files), p.LOC)
		raw := 0.35*filePressure + 0.25*0.0 + 0.25*sizePressure + 0.15*dispersion
		sum += raw * sizeNorm
	}
	avgNewImbalance := sum / float64(len(partitions))

	delta := current.Imbalance - avgNewImbalance
	if delta < 0 {
		delta = 0
	}

	return Gain{
		ImbalanceDelta:    delta,
		CrossEdgesReduced: estimateCrossEdgesReduced(partitions, g),
	}
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func estimateCrossEdgesReduced(partitions []Partition, g *Graph) int {
	partitionOf := make(map[string]int)
	for i, p := range partitions {
		for _, f := range p.Files {
			partitionOf[f] = i
		}
	}

	cross := 0
	for _, e := range g.Edges {
		srcPart, srcOK := partitionOf[g.Nodes[e.From].Path]
		dstPart, dstOK := partitionOf[g.Nodes[e.To].Path]
		if srcOK && dstOK && srcPart != dstPart {
			cross++
		}
	}
	return cross
}

// CalculateEffort estimates the migration cost of a proposed
// reorganization: files moved, and a rough import-statement-update
// count (two updates per moved file, one at the source and one at
// each caller on average).
func CalculateEffort(partitions []Partition) Effort {
	filesMoved := 0
	for _, p := range partitions {
		filesMoved += len(p.Files)
	}
	return Effort{FilesMoved: filesMoved, ImportUpdatesEst: filesMoved * 2}
}

// GenerateMoves produces the concrete from/to file relocations implied
// by a set of partitions, nesting each partition under dirPath.
func GenerateMoves(partitions []Partition, dirPath string) []Move {
	var moves []Move
	for _, p := range partitions {
		for _, f := range p.Files {
			moves = append(moves, Move{From: f, To: joinPath(dirPath, p.Name, baseName(f))})
		}
	}
	return moves
}

func baseName(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return path[i+1:]
		}
	}
	return path
}

func joinPath(parts ...string) string {
	out := ""
	for _, p := range parts {
		if p == "" {
			continue
		}
		if out == "" {
			out = p
			continue
		}
		out += "/" + p
	}
	return out
}

// ReorganizationRules is the fixed set of manual follow-up steps a
// reviewer should perform after applying generated file moves.
func ReorganizationRules() []string {
	return []string{
		"Create subdirectories for each partition",
		"Update relative import statements",
		"Preserve file names and structure within partitions",
		"Test imports after reorganization",
	}
}
