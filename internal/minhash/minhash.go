// Package minhash implements the weighted MinHash signature scheme and
// weighted-Jaccard comparison.
package minhash

import (
	"math"

	"github.com/cespare/xxhash/v2"
)

// minWeight is the floor below which a term is treated as a stop word
// and skipped during signature generation.
const minWeight = 0.1

// epsilon is the tolerance used when comparing signature slots for
// weighted-Jaccard similarity.
const epsilon = 1e-10

// Signature is a fixed-size weighted MinHash signature.
type Signature []float64

// Generator builds weighted MinHash signatures over a fixed number of
// slots, each with its own hash seed.
type Generator struct {
	k       int
	weights map[string]float64
}

// New creates a Generator with signature size k and per-term weights.
// Terms absent from weights default to weight 1.0.
func New(k int, weights map[string]float64) *Generator {
	w := make(map[string]float64, len(weights))
	for k2, v := range weights {
		w[k2] = v
	}
	return &Generator{k: k, weights: w}
}

// UpdateWeights hot-replaces the weight map.
func (g *Generator) UpdateWeights(weights map[string]float64) {
	w := make(map[string]float64, len(weights))
	for k2, v := range weights {
		w[k2] = v
	}
	g.weights = w
}

func (g *Generator) weightOf(term string) float64 {
	if w, ok := g.weights[term]; ok {
		return w
	}
	return 1.0
}

// Generate builds a Signature from a token set. For each slot i with a
// distinct seed, the entry is min over term t of hash(seed_i, t) /
// weight(t); terms with weight < minWeight are skipped.
func (g *Generator) Generate(tokens []string) Signature {
	sig := make(Signature, g.k)
	for i := range sig {
		sig[i] = math.Inf(1)
	}

	// Deduplicate tokens once; repeated terms contribute the same
	// minimum regardless of multiplicity.
	seen := make(map[string]bool, len(tokens))
	unique := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if !seen[t] {
			seen[t] = true
			unique = append(unique, t)
		}
	}

	for slot := 0; slot < g.k; slot++ {
		seed := seedFor(slot)
		best := math.Inf(1)
		for _, term := range unique {
			w := g.weightOf(term)
			if w < minWeight {
				continue
			}
			h := hashWithSeed(seed, term)
			v := float64(h) / w
			if v < best {
				best = v
			}
		}
		sig[slot] = best
	}
	return sig
}

func seedFor(slot int) uint64 {
	return xxhash.Sum64String("minhash-slot") ^ uint64(slot)*0x9E3779B97F4A7C15
}

func hashWithSeed(seed uint64, term string) uint64 {
	h := xxhash.New()
	var seedBytes [8]byte
	for i := 0; i < 8; i++ {
		seedBytes[i] = byte(seed >> (8 * i))
	}
	_, _ = h.Write(seedBytes[:])
	_, _ = h.Write([]byte(term))
	return h.Sum64()
}

// WeightedJaccard compares two signatures: the fraction of slots where
// the absolute difference is less than epsilon. Signatures of unequal
// size compare as 0.
func WeightedJaccard(a, b Signature) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	matches := 0
	for i := range a {
		diff := a[i] - b[i]
		if diff < 0 {
			diff = -diff
		}
		if diff < epsilon {
			matches++
		}
	}
	return float64(matches) / float64(len(a))
}
