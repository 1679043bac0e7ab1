// Package pipeline composes discovery, parsing, feature extraction,
// complexity analysis, clone detection, and directory analysis into a
// single orchestrated run, and evaluates the resulting quality gates.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/valknut-io/valknut-core/internal/clone"
	"github.com/valknut-io/valknut-core/internal/complexity"
	"github.com/valknut-io/valknut-core/internal/directory"
	"github.com/valknut-io/valknut-core/internal/entity"
	"github.com/valknut-io/valknut-core/internal/langadapter"
	"github.com/valknut-io/valknut-core/internal/pdg"
	"github.com/valknut-io/valknut-core/internal/telemetry"
	"github.com/valknut-io/valknut-core/internal/tfidf"
	"github.com/valknut-io/valknut-core/internal/valknutcache"
	"github.com/valknut-io/valknut-core/internal/vconfig"
	"github.com/valknut-io/valknut-core/internal/vkerrors"
)

var commentPrefixByLanguage = map[entity.Language]string{
	entity.LangPython:     "#",
	entity.LangJavaScript: "//",
	entity.LangTypeScript: "//",
	entity.LangGo:         "//",
	entity.LangRust:       "//",
	entity.LangJava:       "//",
	entity.LangCPP:        "//",
	entity.LangCSharp:     "//",
}

// ProgressFunc receives a stage name and a completion percentage in
// [0,100] as the orchestrator advances.
type ProgressFunc func(stage string, percentComplete float64)

// StopMotifCache is the minimal view the pipeline needs to wire an
// attached cache into every collaborator that accepts one.
type StopMotifCache interface {
	tfidf.StopMotifCache
	pdg.StopMotifCache
}

// LoadStopMotifCache reads a persisted stop-motif profile from path,
// returning (nil, nil) when no cache exists yet rather than an error —
// a missing cache just means every pattern analyzes at full weight.
// The returned value satisfies StopMotifCache and can be assigned
// directly to Options.StopMotifCache.
func LoadStopMotifCache(path string) (StopMotifCache, error) {
	cache, ok := valknutcache.NewStore(path).Load()
	if !ok {
		return nil, nil
	}
	return cache, nil
}

// Options configures a single orchestrated run.
type Options struct {
	Roots          []string
	SkipGlobs      []string
	Config         vconfig.ValknutConfig
	Registry       *langadapter.Registry
	StopMotifCache StopMotifCache // optional
	Progress       ProgressFunc
	Bounds         telemetry.Bounds // nil uses telemetry.DefaultBounds()
}

// EntityResult is one analyzed entity: its complexity metrics plus the
// feature vector contributed by the registered extractors, if any.
type EntityResult struct {
	Entity     *entity.CodeEntity
	Complexity complexity.Metrics
	Features   map[string]float64
}

// DirectoryReport is one directory's dispersion metrics and, when
// reorganization is warranted, its proposed partitioning.
type DirectoryReport struct {
	Path       string
	Metrics    directory.Metrics
	NeedsReorg bool
	Partitions []directory.Partition
	Gain       directory.Gain
	Effort     directory.Effort
	Moves      []directory.Move
}

// QualityGateViolation records one breached threshold, with severity
// laddered by how far the measured value exceeds the configured bound.
type QualityGateViolation struct {
	Gate      string
	Severity  string // "high", "critical", "blocker"
	Threshold float64
	Actual    float64
}

// QualityGateResult is the outcome of evaluating AnalysisResults
// against Options.Config.QualityGates.
type QualityGateResult struct {
	Passed     bool
	Violations []QualityGateViolation
}

// Summary carries run-wide counters and the run's timestamp; the
// finalized performance report is AnalysisResults.Performance.
type Summary struct {
	RootsAnalyzed    int
	FilesDiscovered  int
	FilesParsed      int
	EntitiesAnalyzed int
	Timestamp        time.Time
}

// AnalysisResults is the complete output of a single orchestrated run.
type AnalysisResults struct {
	Entities         []EntityResult
	CloneCandidates  []clone.RankedCloneCandidate
	DirectoryReports []DirectoryReport
	Warnings         []string
	QualityGates     QualityGateResult
	Performance      telemetry.Report
	Summary          Summary
}

// Run executes every enabled stage across every configured root,
// merging results by concatenation, and returns the combined result
// tree. A per-file parse failure is recorded as a warning and does not
// abort the run; a cancelled context short-circuits between stages.
func Run(ctx context.Context, opts Options) (*AnalysisResults, error) {
	bounds := opts.Bounds
	if bounds == nil {
		bounds = telemetry.DefaultBounds()
	}
	rec := telemetry.NewRecorder(bounds)

	results := &AnalysisResults{}
	var entityTokens []clone.EntityTokens
	tfAnalyzer := tfidf.New()
	if opts.StopMotifCache != nil {
		tfAnalyzer.SetStopMotifCache(opts.StopMotifCache)
	}

	report := func(stage string, pct float64) {
		if opts.Progress != nil {
			opts.Progress(stage, pct)
		}
	}

	report("discovery", 0)
	var allFiles []DiscoveredFile
	for _, root := range opts.Roots {
		if err := ctx.Err(); err != nil {
			return nil, vkerrors.Cancelled("discovery")
		}
		files, err := Discover(ctx, root, opts.SkipGlobs)
		if err != nil {
			return nil, vkerrors.IO("discover", root, err)
		}
		allFiles = append(allFiles, files...)
	}
	results.Summary.RootsAnalyzed = len(opts.Roots)
	results.Summary.FilesDiscovered = len(allFiles)
	report("discovery", 100)

	if err := ctx.Err(); err != nil {
		return nil, vkerrors.Cancelled("parsing")
	}

	report("parsing", 0)
	entitiesByFile, warnings := parseFiles(ctx, opts.Registry, allFiles, rec)
	results.Warnings = append(results.Warnings, warnings...)
	results.Summary.FilesParsed = len(entitiesByFile)
	report("parsing", 100)

	if err := ctx.Err(); err != nil {
		return nil, vkerrors.Cancelled("extraction")
	}

	report("extraction", 0)
	complexityAnalyzer := complexity.New(complexity.Thresholds{
		HighCyclomatic: opts.Config.Complexity.HighCyclomatic,
		HighCognitive:  opts.Config.Complexity.HighCognitive,
		HighNesting:    opts.Config.Complexity.HighNesting,
		HighParameters: opts.Config.Complexity.HighParameters,
		HighLOC:        opts.Config.Complexity.HighLOC,
		CriticalDebt:   80,
	})

	var allEntities []*entity.CodeEntity
	for _, ents := range entitiesByFile {
		allEntities = append(allEntities, ents...)
	}
	sort.Slice(allEntities, func(i, j int) bool { return allEntities[i].ID < allEntities[j].ID })

	for i, e := range allEntities {
		if opts.Config.Modules.Scoring {
			metrics := complexityAnalyzer.Compute(e.Language, e.SourceCode)
			results.Entities = append(results.Entities, EntityResult{Entity: e, Complexity: metrics})
		}

		prefix := commentPrefixByLanguage[e.Language]
		raw := tokenize(stripCommentLines(e.SourceCode, prefix))
		normalized := tfidf.NormalizeTokens(raw)
		tfAnalyzer.AddDocument(e.ID, normalized)
		entityTokens = append(entityTokens, clone.EntityTokens{ID: e.ID, Tokens: normalized, Code: e.SourceCode})

		if i%256 == 0 {
			report("extraction", 100*float64(i)/float64(len(allEntities)+1))
		}
	}
	results.Summary.EntitiesAnalyzed = len(allEntities)
	report("extraction", 100)

	if err := ctx.Err(); err != nil {
		return nil, vkerrors.Cancelled("clone_detection")
	}

	if opts.Config.Modules.Clones {
		report("clone_detection", 0)
		if err := rec.Timed(telemetry.StageCandidateGen, func() error {
			results.CloneCandidates = runCloneDetection(opts, entityTokens, allEntities)
			return nil
		}); err != nil {
			results.Warnings = append(results.Warnings, fmt.Sprintf("clone detection: %v", err))
		}
		report("clone_detection", 100)
	}

	if err := ctx.Err(); err != nil {
		return nil, vkerrors.Cancelled("directory_analysis")
	}

	if opts.Config.Modules.Structure {
		report("directory_analysis", 0)
		if err := rec.Timed(telemetry.StageDirectoryAnalysis, func() error {
			reps, err := runDirectoryAnalysis(opts, allFiles)
			results.DirectoryReports = reps
			return err
		}); err != nil {
			results.Warnings = append(results.Warnings, fmt.Sprintf("directory analysis: %v", err))
		}
		report("directory_analysis", 100)
	}

	results.Performance = rec.Finalize()
	results.Summary.Timestamp = time.Now()
	results.QualityGates = evaluateQualityGates(opts.Config.QualityGates, results)

	return results, nil
}

// parseFiles fans out file parsing across a bounded errgroup worker
// pool sized to GOMAXPROCS. A single file's parse failure is reported
// as a warning and never aborts the group.
func parseFiles(ctx context.Context, registry *langadapter.Registry, files []DiscoveredFile, rec *telemetry.Recorder) (map[string][]*entity.CodeEntity, []string) {
	type parseOutcome struct {
		path     string
		entities []*entity.CodeEntity
		warning  string
	}

	outcomes := make([]parseOutcome, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))

	for i, f := range files {
		i, f := i, f
		g.Go(func() error {
			start := time.Now()
			content, err := os.ReadFile(f.AbsPath)
			if err != nil {
				outcomes[i] = parseOutcome{path: f.RelPath, warning: fmt.Sprintf("%s: read failed: %v", f.RelPath, err)}
				return nil
			}
			ents, err := registry.Parse(gctx, string(content), f.RelPath)
			rec.Record(telemetry.StageParsing, time.Since(start))
			if err != nil {
				outcomes[i] = parseOutcome{path: f.RelPath, warning: fmt.Sprintf("%s: parse failed: %v", f.RelPath, err)}
				return nil
			}
			outcomes[i] = parseOutcome{path: f.RelPath, entities: ents}
			return nil
		})
	}
	_ = g.Wait()

	byFile := make(map[string][]*entity.CodeEntity, len(files))
	var warnings []string
	for _, o := range outcomes {
		if o.warning != "" {
			warnings = append(warnings, o.warning)
		}
		if len(o.entities) > 0 {
			byFile[o.path] = o.entities
		}
	}
	return byFile, warnings
}

// runCloneDetection wires the MinHash/clone Detector's 4-phase pipeline
// together: Phase 1 candidate generation, Phase 2 structural gating
// (implicitly stop-motif-aware through the attached cache), and Phase 4
// hard-floor ranking. Phase 3's rarity gain is folded in per candidate
// before ranking.
func runCloneDetection(opts Options, tokens []clone.EntityTokens, entities []*entity.CodeEntity) []clone.RankedCloneCandidate {
	gateConfig := clone.DefaultStructuralGateConfig()
	gateConfig.ExternalCallJaccardThreshold = opts.Config.Dedupe.Adaptive.ExternalCallJaccardThreshold
	gateConfig.WLIterations = opts.Config.Dedupe.Adaptive.WLIterations
	if gateConfig.WLIterations == 0 {
		gateConfig.WLIterations = 3
	}

	detector := clone.NewDetector(128, gateConfig)
	if opts.StopMotifCache != nil {
		detector.SetStopMotifCache(opts.StopMotifCache)
	}

	byID := make(map[string]*entity.CodeEntity, len(entities))
	for _, e := range entities {
		byID[e.ID] = e
	}

	weights := make(map[string]float64)
	candidates := detector.GenerateCandidates(tokens, weights)

	var filtered []clone.FilteredCloneCandidate
	for _, c := range candidates {
		e1, ok1 := byID[c.EntityID]
		e2, ok2 := byID[c.SimilarEntityID]
		if !ok1 || !ok2 {
			continue
		}
		f, ok := detector.ApplyStructuralGates(c, e1.SourceCode, e2.SourceCode)
		if !ok {
			continue
		}
		filtered = append(filtered, f)
	}

	return detector.RankCandidates(filtered)
}

// runDirectoryAnalysis groups discovered files by directory and
// evaluates dispersion/imbalance for each, proposing a partitioning
// whenever NeedsReorg holds.
func runDirectoryAnalysis(opts Options, files []DiscoveredFile) ([]DirectoryReport, error) {
	thresholds := directory.Thresholds{
		MaxFilesPerDir:          opts.Config.Directory.MaxFilesPerDir,
		MaxSubdirsPerDir:        opts.Config.Directory.MaxSubdirsPerDir,
		MaxDirLOC:               opts.Config.Directory.MaxDirLOC,
		TargetLOCPerSubdir:      opts.Config.Directory.TargetLOCPerSubdir,
		MinBranchRecommendation: opts.Config.Directory.MinBranchRecommendation,
		MaxClusters:             opts.Config.Partitioning.MaxClusters,
		MinClusters:             opts.Config.Partitioning.MinClusters,
		BalanceTolerance:        opts.Config.Partitioning.BalanceTolerance,
		NamingFallbacks:         opts.Config.Partitioning.NamingFallbacks,
	}
	if thresholds.MaxClusters == 0 {
		thresholds = directory.DefaultThresholds()
	}

	byDir := make(map[string][]DiscoveredFile)
	for _, f := range files {
		byDir[dirOf(f.RelPath)] = append(byDir[dirOf(f.RelPath)], f)
	}

	dirs := make([]string, 0, len(byDir))
	for d := range byDir {
		dirs = append(dirs, d)
	}
	sort.Strings(dirs)

	var reports []DirectoryReport
	for _, dir := range dirs {
		dirFiles := byDir[dir]
		stats := make([]directory.FileStat, 0, len(dirFiles))
		importsByPath := make(map[string][]directory.Import, len(dirFiles))
		totalLOC := 0

		for _, f := range dirFiles {
			content, err := os.ReadFile(f.AbsPath)
			if err != nil {
				continue
			}
			loc := countLines(string(content))
			stats = append(stats, directory.FileStat{Path: f.RelPath, LOC: loc, Bytes: len(content)})
			importsByPath[f.RelPath] = directory.ExtractImports(string(content), extensionOf(f.RelPath))
			totalLOC += loc
		}

		metrics := directory.CalculateMetrics(stats, 0, thresholds)
		rep := DirectoryReport{Path: dir, Metrics: metrics}

		if directory.NeedsReorg(metrics, thresholds) {
			rep.NeedsReorg = true
			g := directory.NewGraph(stats, importsByPath)
			partitions := g.Partition(thresholds, totalLOC)
			rep.Partitions = partitions
			rep.Gain = directory.CalculateGain(metrics, partitions, g, thresholds)
			rep.Effort = directory.CalculateEffort(partitions)
			rep.Moves = directory.GenerateMoves(partitions, dir)
		}

		reports = append(reports, rep)
	}
	return reports, nil
}

func dirOf(relPath string) string {
	for i := len(relPath) - 1; i >= 0; i-- {
		if relPath[i] == '/' {
			return relPath[:i]
		}
	}
	return "."
}

func extensionOf(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '.' {
			return path[i+1:]
		}
		if path[i] == '/' {
			break
		}
	}
	return ""
}

func countLines(s string) int {
	if s == "" {
		return 0
	}
	n := 1
	for _, c := range s {
		if c == '\n' {
			n++
		}
	}
	return n
}

// evaluateQualityGates checks the run's aggregate metrics against the
// configured thresholds, laddering each breach's severity by how far
// the measured value exceeds its bound: up to 25% over is "high", up to
// 50% over is "critical", beyond that is "blocker".
func evaluateQualityGates(gates vconfig.QualityGates, results *AnalysisResults) QualityGateResult {
	var violations []QualityGateViolation

	avgComplexity, avgMaintainability, maxDebtRatio, critical, high := aggregateComplexitySignals(results.Entities)

	if gates.MaxComplexityScore > 0 && avgComplexity > gates.MaxComplexityScore {
		violations = append(violations, newViolation("max_complexity_score", gates.MaxComplexityScore, avgComplexity))
	}
	if gates.MinMaintainabilityScore > 0 && avgMaintainability < gates.MinMaintainabilityScore {
		v := newViolation("min_maintainability_score", gates.MinMaintainabilityScore, avgMaintainability)
		v.Severity = severityForDeficit(gates.MinMaintainabilityScore, avgMaintainability)
		violations = append(violations, v)
	}
	if gates.MaxTechnicalDebtRatio > 0 && maxDebtRatio > gates.MaxTechnicalDebtRatio {
		violations = append(violations, newViolation("max_technical_debt_ratio", gates.MaxTechnicalDebtRatio, maxDebtRatio))
	}
	if gates.MaxCriticalIssues > 0 && critical > gates.MaxCriticalIssues {
		violations = append(violations, newViolation("max_critical_issues", float64(gates.MaxCriticalIssues), float64(critical)))
	}
	if gates.MaxHighPriorityIssues > 0 && high > gates.MaxHighPriorityIssues {
		violations = append(violations, newViolation("max_high_priority_issues", float64(gates.MaxHighPriorityIssues), float64(high)))
	}

	return QualityGateResult{Passed: len(violations) == 0, Violations: violations}
}

func newViolation(gate string, threshold, actual float64) QualityGateViolation {
	return QualityGateViolation{Gate: gate, Severity: severityFor(threshold, actual), Threshold: threshold, Actual: actual}
}

func severityFor(threshold, actual float64) string {
	if threshold <= 0 {
		return "blocker"
	}
	ratio := actual / threshold
	switch {
	case ratio <= 1.25:
		return "high"
	case ratio <= 1.5:
		return "critical"
	default:
		return "blocker"
	}
}

// severityForDeficit ladders a "minimum" gate's breach by how far the
// actual value falls short of its floor, mirroring severityFor's
// ratio bands but inverted for floor thresholds.
func severityForDeficit(threshold, actual float64) string {
	if threshold <= 0 {
		return "blocker"
	}
	shortfall := (threshold - actual) / threshold
	switch {
	case shortfall <= 0.25:
		return "high"
	case shortfall <= 0.5:
		return "critical"
	default:
		return "blocker"
	}
}

func aggregateComplexitySignals(entities []EntityResult) (avgComplexity, avgMaintainability, maxDebtRatio float64, critical, high int) {
	if len(entities) == 0 {
		return 0, 100, 0, 0, 0
	}
	var sumCyclomatic, sumMaintainability float64
	for _, er := range entities {
		sumCyclomatic += float64(er.Complexity.Cyclomatic)
		sumMaintainability += er.Complexity.MaintainabilityIndex
		if er.Complexity.TechnicalDebt > maxDebtRatio {
			maxDebtRatio = er.Complexity.TechnicalDebt
		}
		switch er.Complexity.Severity {
		case complexity.SeverityCritical:
			critical++
		case complexity.SeverityHigh:
			high++
		}
	}
	n := float64(len(entities))
	return sumCyclomatic / n, sumMaintainability / n, maxDebtRatio, critical, high
}
