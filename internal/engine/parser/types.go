package parser

// DefinitionKind classifies extracted definitions.
type DefinitionKind string

const (
	KindFunction DefinitionKind = "function"
	KindMethod   DefinitionKind = "method"
	KindClass    DefinitionKind = "class"
	KindModule   DefinitionKind = "module"
)

// File is the raw per-file extraction result. It carries no resolved
// information; resolution happens later against the complete symbol set.
type File struct {
	Path        string
	Language    string
	Supported   bool
	Definitions []Definition
	CallSites   []CallSite
}

// Definition is a named declaration found in a single file.
// Scope holds the enclosing scope names, outermost first, excluding the
// definition's own name.
type Definition struct {
	Name         string
	Kind         DefinitionKind
	Scope        []string
	Superclasses []string // recorded for class definitions only
	StartLine    int
	EndLine      int
}

// CallSite is one call expression. CalleeText is the raw callee as written
// (possibly dotted); Scope is the enclosing definition's scope path including
// its own name, empty for module-level calls.
type CallSite struct {
	CalleeText string
	Scope      []string
	Line       int
}

// Diagnostic records a file that was skipped without aborting the run.
type Diagnostic struct {
	File   string `json:"file"`
	Reason string `json:"reason"`
}
