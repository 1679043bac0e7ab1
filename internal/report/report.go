// Package report normalizes a pipeline run's AnalysisResults into a
// stable, relocatable tree suitable for external reporters: per-file
// grouping, directory-health aggregation, and code-dictionary
// resolution, serializable to JSON or YAML with stable field names.
package report

import (
	"encoding/json"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/valknut-io/valknut-core/internal/clone"
	"github.com/valknut-io/valknut-core/internal/pipeline"
	"github.com/valknut-io/valknut-core/pkg/pathnorm"
)

// IssueRef is one entity-level issue carried into a file's report node,
// with its code resolved against the CodeDictionary.
type IssueRef struct {
	EntityID string    `json:"entity_id" yaml:"entity_id"`
	Code     string    `json:"code" yaml:"code"`
	Title    string    `json:"title" yaml:"title"`
	Summary  string    `json:"summary" yaml:"summary"`
	Priority int       `json:"priority" yaml:"priority"`
}

// FileReport is one source file's aggregated health: its entities'
// scores averaged, its issues summed, and its single highest-priority
// issue surfaced for quick scanning.
type FileReport struct {
	Path             string     `json:"path" yaml:"path"`
	EntityCount      int        `json:"entity_count" yaml:"entity_count"`
	AvgMaintainability float64  `json:"avg_maintainability" yaml:"avg_maintainability"`
	AvgTechnicalDebt float64    `json:"avg_technical_debt" yaml:"avg_technical_debt"`
	IssueCount       int        `json:"issue_count" yaml:"issue_count"`
	HighestPriority  *IssueRef  `json:"highest_priority,omitempty" yaml:"highest_priority,omitempty"`
	Issues           []IssueRef `json:"issues" yaml:"issues"`
}

// DirectoryHealth is one node of the directory-health tree: its own
// aggregated score, weighted by the entity count rolled up from every
// file beneath it, plus its immediate child directories.
type DirectoryHealth struct {
	Path               string             `json:"path" yaml:"path"`
	EntityCount        int                `json:"entity_count" yaml:"entity_count"`
	AvgMaintainability float64            `json:"avg_maintainability" yaml:"avg_maintainability"`
	Children           []*DirectoryHealth `json:"children,omitempty" yaml:"children,omitempty"`
}

// CloneReport is a clone candidate with its involved paths resolved and
// normalized, ready for rendering.
type CloneReport struct {
	EntityID        string  `json:"entity_id" yaml:"entity_id"`
	SimilarEntityID string  `json:"similar_entity_id" yaml:"similar_entity_id"`
	PayoffScore     float64 `json:"payoff_score" yaml:"payoff_score"`
	Rank            int     `json:"rank" yaml:"rank"`
	SavedTokens     int     `json:"saved_tokens" yaml:"saved_tokens"`
	RarityGain      float64 `json:"rarity_gain" yaml:"rarity_gain"`
}

// DirectoryReorgReport carries one directory's reorganization proposal,
// resolved against the code dictionary.
type DirectoryReorgReport struct {
	Path      string   `json:"path" yaml:"path"`
	Code      string   `json:"code" yaml:"code"`
	Title     string   `json:"title" yaml:"title"`
	Summary   string   `json:"summary" yaml:"summary"`
	Imbalance float64  `json:"imbalance" yaml:"imbalance"`
	Partitions []string `json:"partitions" yaml:"partitions"`
}

// Tree is the normalized, relocatable result tree.
type Tree struct {
	Files            []FileReport           `json:"files" yaml:"files"`
	Directories      []*DirectoryHealth     `json:"directories" yaml:"directories"`
	Clones           []CloneReport          `json:"clones,omitempty" yaml:"clones,omitempty"`
	DirectoryReorgs  []DirectoryReorgReport `json:"directory_reorgs,omitempty" yaml:"directory_reorgs,omitempty"`
	Warnings         []string               `json:"warnings,omitempty" yaml:"warnings,omitempty"`
	QualityGates     pipeline.QualityGateResult `json:"quality_gates" yaml:"quality_gates"`
	Summary          pipeline.Summary       `json:"summary" yaml:"summary"`
}

// Normalize transforms a pipeline run's AnalysisResults into a Tree,
// resolving issue codes against dict and stripping path prefixes so the
// output is relocatable.
func Normalize(results *pipeline.AnalysisResults, dict CodeDictionary) *Tree {
	tree := &Tree{
		Warnings:     append([]string(nil), results.Warnings...),
		QualityGates: results.QualityGates,
		Summary:      results.Summary,
	}

	tree.Files = buildFileReports(results.Entities, dict)
	tree.Directories = buildDirectoryTree(tree.Files)
	tree.Clones = buildCloneReports(results.CloneCandidates)
	tree.DirectoryReorgs = buildReorgReports(results.DirectoryReports, dict)

	return tree
}

func buildFileReports(entities []pipeline.EntityResult, dict CodeDictionary) []FileReport {
	type accum struct {
		entityCount        int
		sumMaintainability float64
		sumDebt            float64
		issues             []IssueRef
	}

	byFile := make(map[string]*accum)
	var order []string

	for _, er := range entities {
		path := pathnorm.Strip(er.Entity.FilePath)
		a, ok := byFile[path]
		if !ok {
			a = &accum{}
			byFile[path] = a
			order = append(order, path)
		}
		a.entityCount++
		a.sumMaintainability += er.Complexity.MaintainabilityIndex
		a.sumDebt += er.Complexity.TechnicalDebt

		if er.Complexity.TechnicalDebt >= 80 {
			a.issues = append(a.issues, resolveIssue(er.Entity.ID, "complexity.critical", 1000, dict))
		}
		for _, issue := range er.Complexity.Issues {
			code := "refactor." + string(issue.Type)
			a.issues = append(a.issues, resolveIssue(er.Entity.ID, code, issue.Priority, dict))
		}
	}

	sort.Strings(order)

	reports := make([]FileReport, 0, len(order))
	for _, path := range order {
		a := byFile[path]
		n := float64(a.entityCount)

		sort.SliceStable(a.issues, func(i, j int) bool { return a.issues[i].Priority > a.issues[j].Priority })

		fr := FileReport{
			Path:               path,
			EntityCount:        a.entityCount,
			AvgMaintainability: a.sumMaintainability / n,
			AvgTechnicalDebt:   a.sumDebt / n,
			IssueCount:         len(a.issues),
			Issues:             a.issues,
		}
		if len(a.issues) > 0 {
			top := a.issues[0]
			fr.HighestPriority = &top
		}
		reports = append(reports, fr)
	}
	return reports
}

func resolveIssue(entityID, code string, priority int, dict CodeDictionary) IssueRef {
	ref := IssueRef{EntityID: entityID, Code: code, Priority: priority}
	if entry, ok := dict.Resolve(code); ok {
		ref.Title = entry.Title
		ref.Summary = entry.Summary
	}
	return ref
}

// buildDirectoryTree rolls every file report up into its ancestor
// directories, weighting each directory's maintainability average by
// the entity count of every file beneath it, then links parents to
// their immediate children.
func buildDirectoryTree(files []FileReport) []*DirectoryHealth {
	type agg struct {
		entityCount int
		weightedSum float64
	}
	byDir := make(map[string]*agg)

	for _, f := range files {
		for _, dir := range ancestry(dirOf(f.Path)) {
			a, ok := byDir[dir]
			if !ok {
				a = &agg{}
				byDir[dir] = a
			}
			a.entityCount += f.EntityCount
			a.weightedSum += f.AvgMaintainability * float64(f.EntityCount)
		}
	}

	nodes := make(map[string]*DirectoryHealth, len(byDir))
	paths := make([]string, 0, len(byDir))
	for dir, a := range byDir {
		avg := 0.0
		if a.entityCount > 0 {
			avg = a.weightedSum / float64(a.entityCount)
		}
		nodes[dir] = &DirectoryHealth{Path: dir, EntityCount: a.entityCount, AvgMaintainability: avg}
		paths = append(paths, dir)
	}
	sort.Strings(paths)

	var roots []*DirectoryHealth
	for _, dir := range paths {
		node := nodes[dir]
		parent := dirOf(dir)
		if parent == dir {
			roots = append(roots, node)
			continue
		}
		if parentNode, ok := nodes[parent]; ok {
			parentNode.Children = append(parentNode.Children, node)
		} else {
			roots = append(roots, node)
		}
	}
	return roots
}

// ancestry returns dir and every ancestor up to and including ".".
func ancestry(dir string) []string {
	var out []string
	for {
		out = append(out, dir)
		if dir == "." {
			return out
		}
		dir = dirOf(dir)
	}
}

func dirOf(path string) string {
	if path == "." || path == "" {
		return "."
	}
	idx := strings.LastIndexByte(path, '/')
	if idx < 0 {
		return "."
	}
	return path[:idx]
}

func buildCloneReports(candidates []clone.RankedCloneCandidate) []CloneReport {
	out := make([]CloneReport, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, CloneReport{
			EntityID:        c.Candidate.Original.EntityID,
			SimilarEntityID: c.Candidate.Original.SimilarEntityID,
			PayoffScore:     c.PayoffScore,
			Rank:            c.Rank,
			SavedTokens:     c.Candidate.Original.SavedTokens,
			RarityGain:      c.Candidate.Original.RarityGain,
		})
	}
	return out
}

func buildReorgReports(reports []pipeline.DirectoryReport, dict CodeDictionary) []DirectoryReorgReport {
	var out []DirectoryReorgReport
	entry, _ := dict.Resolve("directory.reorg_recommended")
	for _, r := range reports {
		if !r.NeedsReorg {
			continue
		}
		names := make([]string, 0, len(r.Partitions))
		for _, p := range r.Partitions {
			names = append(names, p.Name)
		}
		out = append(out, DirectoryReorgReport{
			Path:       pathnorm.Strip(r.Path),
			Code:       "directory.reorg_recommended",
			Title:      entry.Title,
			Summary:    entry.Summary,
			Imbalance:  r.Metrics.Imbalance,
			Partitions: names,
		})
	}
	return out
}

// ToJSON serializes the tree with stable field names and indentation.
func (t *Tree) ToJSON() ([]byte, error) {
	return json.MarshalIndent(t, "", "  ")
}

// ToYAML serializes the tree using the same field names as ToJSON.
func (t *Tree) ToYAML() ([]byte, error) {
	return yaml.Marshal(t)
}
