package query

import "ccg/internal/engine/graph"

// Direction selects which adjacency a traversal follows.
type Direction string

const (
	DirectionCallers Direction = "callers"
	DirectionCallees Direction = "callees"
	DirectionBoth    Direction = "both"
)

// DepthUnbounded lets the traversal run until the visited set stops it.
const DepthUnbounded = -1

// Query is the canonical form every question reduces to.
type Query struct {
	Target    string    `json:"symbol"`
	Direction Direction `json:"direction"`
	Depth     int       `json:"depth"`
	Fuzzy     bool      `json:"fuzzy,omitempty"`
}

// Match is one discovered symbol with its shortest hop distance and the
// edge-kind path that reached it.
type Match struct {
	Symbol      graph.Symbol     `json:"symbol"`
	HopDistance int              `json:"hop_distance"`
	Path        []graph.EdgeKind `json:"path"`
}

// Response is the query boundary type. Typed outcomes land in Error with
// candidates alongside; a traversal never aborts the process.
type Response struct {
	ResolvedSymbol      *graph.Symbol  `json:"resolved_symbol,omitempty"`
	FuzzyMatch          bool           `json:"fuzzy_match,omitempty"`
	Matches             []Match        `json:"matches"`
	AmbiguousCandidates []graph.Symbol `json:"ambiguous_candidates,omitempty"`
	Error               string         `json:"error,omitempty"`
}

const (
	ErrSymbolNotFound  = "SymbolNotFound"
	ErrAmbiguousSymbol = "AmbiguousSymbol"
)
