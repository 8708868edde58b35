package core

import "sort"

// SourceRef is a declared dependency on an externally-owned raw table,
// established via a source("group", "table") marker.
type SourceRef struct {
	Source string
	Table  string
}

// ModelNode represents one declared transformation unit (one SQL file).
// Nodes are immutable snapshots created per scan; they carry no identity
// across scans beyond their name.
type ModelNode struct {
	// Name is the unit name, the filename without extension
	Name string
	// FilePath is the absolute path to the SQL file
	FilePath string
	// RelPath is the path relative to the models root
	RelPath string
	// RawSQL is the full file content
	RawSQL string
	// Refs are model names referenced via ref("name") markers
	Refs []string
	// Sources are external tables referenced via source("group", "table") markers
	Sources []SourceRef
	// Config holds the parsed config(key = value, ...) block
	Config map[string]any
}

// ModelGraph is the full scanned project. Built once per scan invocation
// and read-only afterward.
type ModelGraph struct {
	Models []*ModelNode

	// RefCount is the total number of ref() markers across all models.
	RefCount int
	// SourceCount is the total number of source() markers across all models.
	SourceCount int

	byName map[string]*ModelNode
}

// NewModelGraph builds a graph from scanned nodes, computing aggregate counts.
// Models are ordered by name for deterministic output.
func NewModelGraph(models []*ModelNode) *ModelGraph {
	sort.Slice(models, func(i, j int) bool {
		return models[i].Name < models[j].Name
	})

	g := &ModelGraph{
		Models: models,
		byName: make(map[string]*ModelNode, len(models)),
	}
	for _, m := range models {
		g.byName[m.Name] = m
		g.RefCount += len(m.Refs)
		g.SourceCount += len(m.Sources)
	}
	return g
}

// Get returns a model by name.
func (g *ModelGraph) Get(name string) (*ModelNode, bool) {
	m, ok := g.byName[name]
	return m, ok
}

// Names returns all model names in sorted order.
func (g *ModelGraph) Names() []string {
	names := make([]string, 0, len(g.Models))
	for _, m := range g.Models {
		names = append(names, m.Name)
	}
	return names
}

// Dependents returns the names of models that reference the given model.
// Downstream edges are not stored; they are computed by scanning all models
// for back-references.
func (g *ModelGraph) Dependents(name string) []string {
	var out []string
	for _, m := range g.Models {
		for _, ref := range m.Refs {
			if ref == name {
				out = append(out, m.Name)
				break
			}
		}
	}
	return out
}

// Len returns the number of models in the graph.
func (g *ModelGraph) Len() int {
	return len(g.Models)
}
