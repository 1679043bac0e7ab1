package directory

import (
	"fmt"
	"sort"
	"strings"

	"github.com/valknut-io/valknut-core/internal/semantic"
)

var partitionStopWords = map[string]bool{"file": true, "test": true, "spec": true}

var nameSplitter = semantic.NewNameSplitter()

// tokenStemmer collapses morphological variants of a file-stem token
// (parser, parsing, parsed) onto the same vote bucket before the
// partition-name frequency count runs, so "parser.go" and "parsing.go"
// reinforce one name instead of splitting the vote.
var tokenStemmer = semantic.NewStemmer(true, "porter2", 4, nil)

// nameFuzzyMatcher breaks a tie between equally frequent candidate
// tokens by preferring whichever reads closest to the partition's
// configured fallback name.
var nameFuzzyMatcher = semantic.NewFuzzyMatcher(true, 0.75, "jaro-winkler")

// generatePartitionNameWithFallbacks derives a deterministic sub-package
// name from the most frequent meaningful token shared across the
// partition's file stems, falling back to a configured name or
// positional default.
func generatePartitionNameWithFallbacks(files []string, index int, fallbacks []string) string {
	counts := make(map[string]int)
	display := make(map[string]string)
	for _, path := range files {
		for _, token := range nameSplitter.Split(stemOf(path)) {
			token = strings.ToLower(token)
			if len(token) <= 2 || isAllDigits(token) {
				continue
			}
			key := tokenStemmer.Stem(token)
			counts[key]++
			if rep, ok := display[key]; !ok || len(token) < len(rep) {
				display[key] = token
			}
		}
	}

	var fallback string
	if index < len(fallbacks) {
		fallback = fallbacks[index]
	}

	var bestKeys []string
	bestCount := 1
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if partitionStopWords[display[key]] {
			continue
		}
		switch {
		case counts[key] > bestCount:
			bestCount = counts[key]
			bestKeys = []string{key}
		case counts[key] == bestCount && bestCount > 1:
			bestKeys = append(bestKeys, key)
		}
	}

	best := ""
	switch {
	case len(bestKeys) == 1:
		best = display[bestKeys[0]]
	case len(bestKeys) > 1:
		best = display[breakNamingTie(bestKeys, display, fallback)]
	}
	if best != "" {
		return best
	}

	if fallback != "" {
		return fallback
	}
	return fmt.Sprintf("partition_%d", index)
}

// breakNamingTie picks the candidate stem whose display token reads
// closest to fallback by Jaro-Winkler similarity. With no fallback
// configured, or no candidate clearing the matcher's threshold, it
// keeps the first key in (already alphabetical) sorted order.
func breakNamingTie(keys []string, display map[string]string, fallback string) string {
	if fallback == "" {
		return keys[0]
	}
	best := keys[0]
	bestScore := -1.0
	for _, key := range keys {
		score := nameFuzzyMatcher.Similarity(display[key], fallback)
		if score > bestScore {
			bestScore = score
			best = key
		}
	}
	return best
}

func isAllDigits(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return len(s) > 0
}
