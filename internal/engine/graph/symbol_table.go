package graph

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"ccg/internal/engine/parser"
)

// Qualified builds the canonical qualified name for a declaration:
// the file path, a colon, then the dot-joined scope path ending in the
// symbol's own name. A module symbol's qualified name is the file path.
func Qualified(module string, scope []string, name string) string {
	parts := append(append([]string(nil), scope...), name)
	return module + ":" + strings.Join(parts, ".")
}

// SplitQualified is the inverse of Qualified. For module symbols the
// returned path is empty.
func SplitQualified(qualified string) (module string, path []string) {
	i := strings.LastIndex(qualified, ":")
	if i < 0 {
		return qualified, nil
	}
	return qualified[:i], strings.Split(qualified[i+1:], ".")
}

// symbolID derives a stable id from the qualified name and the symbol's
// declaration ordinal within the build. Two builds over identical input
// visit declarations in the same order and produce identical ids.
func symbolID(qualified string, ordinal int) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s#%d", qualified, ordinal)))
	return hex.EncodeToString(sum[:16])
}

// externalID derives a stable id for an unresolved callee placeholder.
// Placeholders are keyed by name alone so every unresolved reference to
// the same name shares one node.
func externalID(name string) string {
	sum := sha256.Sum256([]byte("external:" + name))
	return hex.EncodeToString(sum[:16])
}

// SymbolTable maps every declaration in a repository to a unique symbol,
// indexed by id, qualified name, unqualified name and file. Symbols keep
// a deterministic order: files sorted by path, declarations by line.
type SymbolTable struct {
	symbols     []Symbol
	byID        map[string]int
	byQualified map[string]int
	byName      map[string][]int
	byFile      map[string][]int
}

func newSymbolTable(capacity int) *SymbolTable {
	return &SymbolTable{
		symbols:     make([]Symbol, 0, capacity),
		byID:        make(map[string]int),
		byQualified: make(map[string]int),
		byName:      make(map[string][]int),
		byFile:      make(map[string][]int),
	}
}

// BuildSymbolTable merges parsed files into one table. Input order does not
// matter; files are sorted by path and declarations by line before ids are
// assigned, so the result depends only on content. Two declarations sharing
// a qualified name (a reopened class, a redeclaration) merge into one
// symbol carrying a span per declaration.
func BuildSymbolTable(files []*parser.File) *SymbolTable {
	sorted := make([]*parser.File, 0, len(files))
	for _, f := range files {
		if f != nil && f.Supported {
			sorted = append(sorted, f)
		}
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Path < sorted[j].Path })

	capacity := len(sorted)
	for _, f := range sorted {
		capacity += len(f.Definitions)
	}
	t := newSymbolTable(capacity)

	for _, f := range sorted {
		t.add(Symbol{
			Name:          moduleName(f.Path),
			QualifiedName: f.Path,
			Kind:          SymbolModule,
			File:          f.Path,
			Language:      f.Language,
		})

		defs := append([]parser.Definition(nil), f.Definitions...)
		sort.SliceStable(defs, func(i, j int) bool {
			if defs[i].StartLine != defs[j].StartLine {
				return defs[i].StartLine < defs[j].StartLine
			}
			return defs[i].Name < defs[j].Name
		})
		for _, d := range defs {
			t.add(Symbol{
				Name:          d.Name,
				QualifiedName: Qualified(f.Path, d.Scope, d.Name),
				Kind:          defKind(d.Kind),
				File:          f.Path,
				Spans:         []Span{{Start: d.StartLine, End: d.EndLine}},
				Language:      f.Language,
			})
		}
	}
	return t
}

// TableFromSymbols reindexes an already built symbol list, as loaded from
// a persisted document. Ids are taken as-is.
func TableFromSymbols(symbols []Symbol) *SymbolTable {
	t := newSymbolTable(len(symbols))
	for _, sym := range symbols {
		idx := len(t.symbols)
		t.symbols = append(t.symbols, sym)
		t.index(idx)
	}
	return t
}

func (t *SymbolTable) add(sym Symbol) {
	if prev, ok := t.byQualified[sym.QualifiedName]; ok {
		t.symbols[prev].Spans = append(t.symbols[prev].Spans, sym.Spans...)
		t.symbols[prev].refreshLines()
		return
	}
	sym.ID = symbolID(sym.QualifiedName, len(t.symbols))
	sym.refreshLines()
	idx := len(t.symbols)
	t.symbols = append(t.symbols, sym)
	t.index(idx)
}

func (t *SymbolTable) index(idx int) {
	sym := t.symbols[idx]
	t.byID[sym.ID] = idx
	t.byQualified[sym.QualifiedName] = idx
	t.byName[sym.Name] = append(t.byName[sym.Name], idx)
	if sym.File != "" {
		t.byFile[sym.File] = append(t.byFile[sym.File], idx)
	}
}

// Lookup finds a symbol by exact qualified name.
func (t *SymbolTable) Lookup(qualified string) (Symbol, bool) {
	idx, ok := t.byQualified[qualified]
	if !ok {
		return Symbol{}, false
	}
	return t.symbols[idx], true
}

// ByID finds a symbol by id.
func (t *SymbolTable) ByID(id string) (Symbol, bool) {
	idx, ok := t.byID[id]
	if !ok {
		return Symbol{}, false
	}
	return t.symbols[idx], true
}

// ByName returns every symbol with the given unqualified name, in table
// order.
func (t *SymbolTable) ByName(name string) []Symbol {
	return t.collect(t.byName[name])
}

// InFile returns every symbol declared in the given file, in table order.
func (t *SymbolTable) InFile(path string) []Symbol {
	return t.collect(t.byFile[path])
}

// Symbols returns all symbols in deterministic table order.
func (t *SymbolTable) Symbols() []Symbol {
	return append([]Symbol(nil), t.symbols...)
}

// Names returns the sorted set of distinct unqualified names.
func (t *SymbolTable) Names() []string {
	names := make([]string, 0, len(t.byName))
	for name := range t.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (t *SymbolTable) Len() int { return len(t.symbols) }

func (t *SymbolTable) collect(indexes []int) []Symbol {
	if len(indexes) == 0 {
		return nil
	}
	out := make([]Symbol, 0, len(indexes))
	for _, i := range indexes {
		out = append(out, t.symbols[i])
	}
	return out
}

func defKind(k parser.DefinitionKind) SymbolKind {
	switch k {
	case parser.KindMethod:
		return SymbolMethod
	case parser.KindClass:
		return SymbolClass
	default:
		return SymbolFunction
	}
}

func moduleName(path string) string {
	base := filepath.Base(path)
	if ext := filepath.Ext(base); ext != "" {
		base = strings.TrimSuffix(base, ext)
	}
	return base
}
