package graph

import (
	"time"

	"ccg/internal/core/errors"
	"ccg/internal/engine/parser"
)

// SymbolKind classifies graph nodes.
type SymbolKind string

const (
	SymbolFunction SymbolKind = "function"
	SymbolMethod   SymbolKind = "method"
	SymbolClass    SymbolKind = "class"
	SymbolModule   SymbolKind = "module"
	SymbolExternal SymbolKind = "external"
)

// EdgeKind classifies relationships between symbols.
type EdgeKind string

const (
	EdgeCalls    EdgeKind = "calls"
	EdgeContains EdgeKind = "contains"
	EdgeInherits EdgeKind = "inherits"
)

// Span is one declaration range. A symbol declared in several places
// (reopened class, repeated declaration) carries one span per declaration.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Symbol is a uniquely identified code entity. IDs are derived from the
// qualified name and declaration order, never from addresses or randomness,
// so identical rebuilds assign identical ids.
type Symbol struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	QualifiedName string     `json:"qualified_name"`
	Kind          SymbolKind `json:"kind"`
	File          string     `json:"file,omitempty"`
	LineStart     int        `json:"line_start,omitempty"`
	LineEnd       int        `json:"line_end,omitempty"`
	Spans         []Span     `json:"spans,omitempty"`
	Language      string     `json:"language,omitempty"`
}

// refreshLines keeps line_start/line_end in sync with the span set.
func (s *Symbol) refreshLines() {
	if len(s.Spans) == 0 {
		s.LineStart, s.LineEnd = 0, 0
		return
	}
	s.LineStart = s.Spans[0].Start
	end := 0
	for _, sp := range s.Spans {
		if sp.Start < s.LineStart {
			s.LineStart = sp.Start
		}
		if sp.End > end {
			end = sp.End
		}
	}
	s.LineEnd = end
}

// Edge is a directed relationship. Duplicate same-kind edges between the
// same pair are merged into one edge with all call-site lines.
type Edge struct {
	From      string   `json:"from"`
	To        string   `json:"to"`
	Kind      EdgeKind `json:"kind"`
	CallSites []int    `json:"call_sites,omitempty"`
	Resolved  bool     `json:"resolved"`
	Ambiguous bool     `json:"ambiguous,omitempty"`
}

// Graph holds the symbol set plus forward and reverse adjacency, both
// derived from the same edge slice at construction. A Graph is immutable
// after NewGraph returns.
type Graph struct {
	symbols []Symbol
	edges   []Edge
	byID    map[string]int
	forward map[string][]int
	reverse map[string][]int
}

func NewGraph(symbols []Symbol, edges []Edge) *Graph {
	g := &Graph{
		symbols: symbols,
		edges:   edges,
		byID:    make(map[string]int, len(symbols)),
		forward: make(map[string][]int),
		reverse: make(map[string][]int),
	}
	for i, sym := range symbols {
		g.byID[sym.ID] = i
	}
	for i, e := range edges {
		g.forward[e.From] = append(g.forward[e.From], i)
		g.reverse[e.To] = append(g.reverse[e.To], i)
	}
	return g
}

func (g *Graph) Symbol(id string) (Symbol, bool) {
	idx, ok := g.byID[id]
	if !ok {
		return Symbol{}, false
	}
	return g.symbols[idx], true
}

func (g *Graph) Symbols() []Symbol {
	return append([]Symbol(nil), g.symbols...)
}

func (g *Graph) Edges() []Edge {
	out := make([]Edge, len(g.edges))
	copy(out, g.edges)
	for i := range out {
		if len(out[i].CallSites) > 0 {
			out[i].CallSites = append([]int(nil), out[i].CallSites...)
		}
	}
	return out
}

// Outgoing returns the edges leaving a symbol, in build order.
func (g *Graph) Outgoing(id string) []Edge {
	return g.edgesAt(g.forward[id])
}

// Incoming returns the edges arriving at a symbol, in build order.
func (g *Graph) Incoming(id string) []Edge {
	return g.edgesAt(g.reverse[id])
}

func (g *Graph) edgesAt(indexes []int) []Edge {
	if len(indexes) == 0 {
		return nil
	}
	out := make([]Edge, 0, len(indexes))
	for _, i := range indexes {
		out = append(out, g.edges[i])
	}
	return out
}

func (g *Graph) NodeCount() int { return len(g.symbols) }
func (g *Graph) EdgeCount() int { return len(g.edges) }

// Snapshot is one immutable built graph plus its provenance. A rebuild
// produces a new Snapshot; existing ones are never mutated.
type Snapshot struct {
	RepositoryID   string
	SourceChecksum string
	BuildID        string
	BuiltAt        time.Time
	FileCount      int
	Diagnostics    []parser.Diagnostic
	Table          *SymbolTable
	Graph          *Graph
}

// Document is the persisted/exported graph representation.
type Document struct {
	RepositoryID   string             `json:"repository_id"`
	SourceChecksum string             `json:"source_checksum"`
	BuildID        string             `json:"build_id,omitempty"`
	BuiltAt        time.Time          `json:"built_at,omitempty"`
	FileCount      int                `json:"file_count"`
	Nodes          []Symbol           `json:"nodes"`
	Edges          []Edge             `json:"edges"`
	Diagnostics    []parser.Diagnostic `json:"diagnostics,omitempty"`
}

// Document renders the snapshot into its durable form.
func (s *Snapshot) Document() Document {
	return Document{
		RepositoryID:   s.RepositoryID,
		SourceChecksum: s.SourceChecksum,
		BuildID:        s.BuildID,
		BuiltAt:        s.BuiltAt,
		FileCount:      s.FileCount,
		Nodes:          s.Graph.Symbols(),
		Edges:          s.Graph.Edges(),
		Diagnostics:    append([]parser.Diagnostic(nil), s.Diagnostics...),
	}
}

// SnapshotFromDocument rebuilds an in-memory snapshot from its durable form,
// checking structural validity: unique node ids and edges that reference
// existing nodes. A document failing these checks is corrupt.
func SnapshotFromDocument(doc Document) (*Snapshot, error) {
	seen := make(map[string]bool, len(doc.Nodes))
	for _, n := range doc.Nodes {
		if n.ID == "" {
			return nil, errors.New(errors.CodeStoreCorrupt, "node with empty id")
		}
		if seen[n.ID] {
			return nil, errors.New(errors.CodeStoreCorrupt, "duplicate node id "+n.ID)
		}
		seen[n.ID] = true
	}
	for _, e := range doc.Edges {
		if !seen[e.From] || !seen[e.To] {
			return nil, errors.New(errors.CodeStoreCorrupt, "edge references unknown node")
		}
	}

	return &Snapshot{
		RepositoryID:   doc.RepositoryID,
		SourceChecksum: doc.SourceChecksum,
		BuildID:        doc.BuildID,
		BuiltAt:        doc.BuiltAt,
		FileCount:      doc.FileCount,
		Diagnostics:    append([]parser.Diagnostic(nil), doc.Diagnostics...),
		Table:          TableFromSymbols(doc.Nodes),
		Graph:          NewGraph(doc.Nodes, doc.Edges),
	}, nil
}
