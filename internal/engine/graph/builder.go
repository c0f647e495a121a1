package graph

import (
	"sort"

	"ccg/internal/engine/parser"
)

type edgeKey struct {
	from string
	to   string
	kind EdgeKind
}

// Builder turns parsed files plus their symbol table into a graph.
// Containment follows lexical nesting, inheritance follows declared
// superclasses, and calls are resolved by precedence: sibling scope
// first, then same file, then the whole repository, and finally an
// external placeholder node when nothing matches.
type Builder struct {
	table        *SymbolTable
	edges        map[edgeKey]*Edge
	order        []edgeKey
	placeholders map[string]Symbol
}

func NewBuilder(table *SymbolTable) *Builder {
	return &Builder{
		table:        table,
		edges:        make(map[edgeKey]*Edge),
		placeholders: make(map[string]Symbol),
	}
}

// BuildGraph is the one-shot form of the builder.
func BuildGraph(files []*parser.File, table *SymbolTable) *Graph {
	b := NewBuilder(table)

	sorted := make([]*parser.File, 0, len(files))
	for _, f := range files {
		if f != nil && f.Supported {
			sorted = append(sorted, f)
		}
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Path < sorted[j].Path })

	b.addContainment()
	for _, f := range sorted {
		b.addInheritance(f)
	}
	for _, f := range sorted {
		b.addCalls(f)
	}
	return b.finish()
}

// addContainment emits one contains edge per nesting step: the module
// symbol contains top-level declarations, classes contain their members.
func (b *Builder) addContainment() {
	for _, sym := range b.table.Symbols() {
		if sym.Kind == SymbolModule {
			continue
		}
		module, path := SplitQualified(sym.QualifiedName)
		parentQualified := module
		if len(path) > 1 {
			parentQualified = Qualified(module, path[:len(path)-2], path[len(path)-2])
		}
		parent, ok := b.table.Lookup(parentQualified)
		if !ok {
			// Nested declaration whose enclosing scope produced no
			// symbol of its own. Attach to the module.
			parent, ok = b.table.Lookup(module)
			if !ok {
				continue
			}
		}
		b.record(Edge{From: parent.ID, To: sym.ID, Kind: EdgeContains, Resolved: true})
	}
}

func (b *Builder) addInheritance(f *parser.File) {
	for _, d := range f.Definitions {
		if d.Kind != parser.KindClass || len(d.Superclasses) == 0 {
			continue
		}
		child, ok := b.table.Lookup(Qualified(f.Path, d.Scope, d.Name))
		if !ok {
			continue
		}
		for _, super := range d.Superclasses {
			target, resolved, ambiguous := b.resolve(f, d.Scope, super)
			b.record(Edge{
				From:      child.ID,
				To:        target.ID,
				Kind:      EdgeInherits,
				Resolved:  resolved,
				Ambiguous: ambiguous,
			})
		}
	}
}

func (b *Builder) addCalls(f *parser.File) {
	for _, cs := range f.CallSites {
		caller, ok := b.callerSymbol(f, cs.Scope)
		if !ok {
			continue
		}
		callerScope := cs.Scope
		if len(callerScope) > 0 {
			callerScope = callerScope[:len(callerScope)-1]
		}
		target, resolved, ambiguous := b.resolve(f, callerScope, cs.CalleeText)
		b.record(Edge{
			From:      caller.ID,
			To:        target.ID,
			Kind:      EdgeCalls,
			CallSites: []int{cs.Line},
			Resolved:  resolved,
			Ambiguous: ambiguous,
		})
	}
}

// callerSymbol maps a call site's scope to the symbol it belongs to.
// Module-level calls belong to the file's module symbol.
func (b *Builder) callerSymbol(f *parser.File, scope []string) (Symbol, bool) {
	if len(scope) == 0 {
		return b.table.Lookup(f.Path)
	}
	return b.table.Lookup(Qualified(f.Path, scope[:len(scope)-1], scope[len(scope)-1]))
}

// resolve maps a callee reference to a symbol. Dotted references resolve
// by their final segment. Precedence stops at the first level with any
// candidate; ties within a level are broken by lexical scope distance,
// then file path, then qualified name. A tie on distance marks the edge
// ambiguous.
func (b *Builder) resolve(f *parser.File, callerScope []string, calleeText string) (Symbol, bool, bool) {
	name := parser.BaseCalleeName(calleeText)
	if name == "" {
		return b.placeholder(calleeText), false, false
	}

	// Sibling within the caller's own enclosing class or module.
	// callerScope is already the enclosing scope, not the caller's name.
	if sym, ok := b.table.Lookup(Qualified(f.Path, callerScope, name)); ok && sym.Kind != SymbolModule {
		return sym, true, false
	}

	candidates := filterName(b.table.InFile(f.Path), name)
	if len(candidates) == 0 {
		candidates = filterName(b.table.ByName(name), name)
	}
	if len(candidates) == 0 {
		return b.placeholder(name), false, false
	}
	if len(candidates) == 1 {
		return candidates[0], true, false
	}

	callerPath := append([]string{f.Path}, callerScope...)
	sort.SliceStable(candidates, func(i, j int) bool {
		di := scopeDistance(callerPath, candidates[i])
		dj := scopeDistance(callerPath, candidates[j])
		if di != dj {
			return di < dj
		}
		if candidates[i].File != candidates[j].File {
			return candidates[i].File < candidates[j].File
		}
		return candidates[i].QualifiedName < candidates[j].QualifiedName
	})
	// The file path tiebreak still picks a deterministic winner, but a
	// distance tie is reported as ambiguous no matter which file wins.
	ambiguous := scopeDistance(callerPath, candidates[0]) == scopeDistance(callerPath, candidates[1])
	return candidates[0], true, ambiguous
}

func (b *Builder) placeholder(name string) Symbol {
	if sym, ok := b.placeholders[name]; ok {
		return sym
	}
	sym := Symbol{
		ID:            externalID(name),
		Name:          name,
		QualifiedName: name,
		Kind:          SymbolExternal,
	}
	b.placeholders[name] = sym
	return sym
}

func (b *Builder) record(e Edge) {
	key := edgeKey{from: e.From, to: e.To, kind: e.Kind}
	if prev, ok := b.edges[key]; ok {
		prev.CallSites = append(prev.CallSites, e.CallSites...)
		prev.Ambiguous = prev.Ambiguous || e.Ambiguous
		return
	}
	b.edges[key] = &e
	b.order = append(b.order, key)
}

func (b *Builder) finish() *Graph {
	symbols := b.table.Symbols()
	externals := make([]Symbol, 0, len(b.placeholders))
	for _, sym := range b.placeholders {
		externals = append(externals, sym)
	}
	sort.Slice(externals, func(i, j int) bool { return externals[i].Name < externals[j].Name })
	symbols = append(symbols, externals...)

	edges := make([]Edge, 0, len(b.order))
	for _, key := range b.order {
		e := *b.edges[key]
		sort.Ints(e.CallSites)
		e.CallSites = dedupeInts(e.CallSites)
		edges = append(edges, e)
	}
	return NewGraph(symbols, edges)
}

func filterName(symbols []Symbol, name string) []Symbol {
	var out []Symbol
	for _, sym := range symbols {
		if sym.Name == name && sym.Kind != SymbolModule {
			out = append(out, sym)
		}
	}
	return out
}

// scopeDistance measures how far a candidate sits from the caller's
// lexical position: the number of scope steps outside their shared
// prefix, with the file path counting as the outermost component.
func scopeDistance(callerPath []string, candidate Symbol) int {
	module, path := SplitQualified(candidate.QualifiedName)
	candPath := append([]string{module}, path...)
	shared := 0
	for shared < len(callerPath) && shared < len(candPath) && callerPath[shared] == candPath[shared] {
		shared++
	}
	return (len(callerPath) - shared) + (len(candPath) - shared)
}

func dedupeInts(in []int) []int {
	if len(in) < 2 {
		return in
	}
	out := in[:1]
	for _, v := range in[1:] {
		if v != out[len(out)-1] {
			out = append(out, v)
		}
	}
	return out
}
