// Package entity defines the uniform code-entity model and the feature
// registry contract shared by every detector in the pipeline.
package entity

import "fmt"

// Kind classifies a CodeEntity.
type Kind string

const (
	KindFunction Kind = "function"
	KindMethod   Kind = "method"
	KindClass    Kind = "class"
	KindFile     Kind = "file"
)

// Language is a closed tag for the languages the core understands.
type Language string

const (
	LangPython     Language = "python"
	LangTypeScript Language = "typescript"
	LangJavaScript Language = "javascript"
	LangRust       Language = "rust"
	LangGo         Language = "go"
	LangJava       Language = "java"
	LangCPP        Language = "cpp"
	LangCSharp     Language = "csharp"
	LangUnknown    Language = "unknown"
)

// LineRange is an inclusive 1-based line span. Present only when the
// producing parser could establish one.
type LineRange struct {
	Start int
	End   int
}

// Valid reports whether the range satisfies start <= end.
func (r LineRange) Valid() bool { return r.Start <= r.End }

// CodeEntity is a uniquely identified unit of source code.
//
// Invariant: ID is collision-free across a single analysis run.
// Entities are produced once by parsing, are immutable for the
// duration of analysis, and are released when analysis ends.
type CodeEntity struct {
	ID         string
	Name       string
	FilePath   string
	Language   Language
	Kind       Kind
	LineRange  *LineRange // nil when unknown
	SourceCode string
}

// Validate checks the entity-level invariants from the data model.
func (e *CodeEntity) Validate() error {
	if e.ID == "" {
		return fmt.Errorf("entity: empty id")
	}
	if e.LineRange != nil && !e.LineRange.Valid() {
		return fmt.Errorf("entity %s: invalid line range %d..%d", e.ID, e.LineRange.Start, e.LineRange.End)
	}
	return nil
}

// Index is a read-only view of every entity in the current analysis,
// keyed by ID. It is handed to extractors through Context so they can
// look up sibling entities without holding their own copy.
type Index struct {
	byID map[string]*CodeEntity
}

// NewIndex builds an Index over a slice of entities. The caller retains
// ownership of entities; the index only stores pointers.
func NewIndex(entities []*CodeEntity) *Index {
	idx := &Index{byID: make(map[string]*CodeEntity, len(entities))}
	for _, e := range entities {
		idx.byID[e.ID] = e
	}
	return idx
}

// Get looks up an entity by ID.
func (idx *Index) Get(id string) (*CodeEntity, bool) {
	e, ok := idx.byID[id]
	return e, ok
}

// All returns every entity in the index. Order is unspecified; callers
// that need determinism must sort by ID themselves.
func (idx *Index) All() []*CodeEntity {
	out := make([]*CodeEntity, 0, len(idx.byID))
	for _, e := range idx.byID {
		out = append(out, e)
	}
	return out
}

// Len reports the number of indexed entities.
func (idx *Index) Len() int { return len(idx.byID) }

// FeatureDefinition is a named metric with a declared numeric range and
// default. Values outside [Lo, Hi] are clamped at reporting time, never
// at extraction time, so intermediate computation can observe the raw
// value.
type FeatureDefinition struct {
	Name        string
	Description string
	Lo, Hi      float64
	Default     float64
}

// Clamp restricts v to the definition's declared range.
func (f FeatureDefinition) Clamp(v float64) float64 {
	if v < f.Lo {
		return f.Lo
	}
	if v > f.Hi {
		return f.Hi
	}
	return v
}

// CorpusStats carries pre-computed, read-only corpus-wide statistics
// (e.g. document frequencies) that extractors may consult but never
// mutate directly — mutation happens through the owning analyzer, which
// synchronizes its own cache.
type CorpusStats struct {
	DocumentCount int
}

// StopMotifCacheRef is satisfied by *valknutcache.StopMotifCache. It is
// declared here, not imported, to keep entity free of a dependency on
// the cache package (extractors receive it as an opaque optional
// collaborator).
type StopMotifCacheRef interface {
	MatchTokenGram(term string) (weightMultiplier float64, matched bool)
	MatchPdgMotif(category, structure string) (weightMultiplier float64, matched bool)
}

// Context is threaded through every extractor invocation.
type Context struct {
	Index       *Index
	StopMotifs  StopMotifCacheRef // optional, may be nil
	CorpusStats CorpusStats
}

// Extractor is the contract every feature extractor implements.
//
// Extract must be referentially transparent given the same entity and
// context; interior mutability (caches) is permitted only behind
// synchronization suitable for parallel invocation across entities.
type Extractor interface {
	Name() string
	Definitions() []FeatureDefinition
	SupportsEntity(e *CodeEntity) bool
	Extract(e *CodeEntity, ctx *Context) (map[string]float64, error)
}

// Registry holds the stable, insertion-ordered list of extractors the
// pipeline will run. Insertion order is preserved for determinism
// within a single entity; it carries no semantic weight across
// entities.
type Registry struct {
	extractors []Extractor
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry { return &Registry{} }

// Register appends an extractor. Re-registering the same name replaces
// the previous entry in place, preserving its original position.
func (r *Registry) Register(ex Extractor) {
	for i, existing := range r.extractors {
		if existing.Name() == ex.Name() {
			r.extractors[i] = ex
			return
		}
	}
	r.extractors = append(r.extractors, ex)
}

// Extractors returns the registered extractors in registration order.
func (r *Registry) Extractors() []Extractor {
	out := make([]Extractor, len(r.extractors))
	copy(out, r.extractors)
	return out
}

// ExtractAll runs every extractor that supports e, merging their
// feature maps. A later extractor's feature name never collides with
// an earlier one in practice (names are namespaced by the extractor),
// but if it does, the later registration wins.
func (r *Registry) ExtractAll(e *CodeEntity, ctx *Context) (map[string]float64, error) {
	out := make(map[string]float64)
	for _, ex := range r.extractors {
		if !ex.SupportsEntity(e) {
			continue
		}
		vals, err := ex.Extract(e, ctx)
		if err != nil {
			return nil, fmt.Errorf("extractor %s: %w", ex.Name(), err)
		}
		for k, v := range vals {
			out[k] = v
		}
	}
	return out, nil
}
