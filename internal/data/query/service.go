package query

import (
	"context"
	"sort"
	"strings"

	"ccg/internal/engine/graph"
)

// Engine answers canonical queries against an immutable snapshot. It holds
// no state of its own, so one Engine may serve concurrent queries over
// different snapshots.
type Engine struct{}

func NewEngine() *Engine {
	return &Engine{}
}

// Question parses a free-form question against the snapshot's symbol
// names and runs the resulting query.
func (e *Engine) Question(ctx context.Context, snap *graph.Snapshot, question string) (Response, error) {
	if err := ctx.Err(); err != nil {
		return Response{}, err
	}

	q, candidates, err := ParseQuestion(question, snap.Table.Names())
	if err != nil {
		resp := Response{Matches: []Match{}}
		if len(candidates) > 0 {
			resp.Error = ErrAmbiguousSymbol
			for _, name := range candidates {
				resp.AmbiguousCandidates = append(resp.AmbiguousCandidates, snap.Table.ByName(name)...)
			}
		} else {
			resp.Error = ErrSymbolNotFound
		}
		return resp, nil
	}
	return e.Run(ctx, snap, q)
}

// Run resolves the query target and walks the call adjacency breadth
// first: forward for callees, reverse for callers, both for "both". The
// visited set keyed by symbol id bounds any cycle to one visit per node.
func (e *Engine) Run(ctx context.Context, snap *graph.Snapshot, q Query) (Response, error) {
	if err := ctx.Err(); err != nil {
		return Response{}, err
	}
	if q.Depth == 0 {
		// A zero value means the caller never set a depth; the default
		// is one hop, not zero hops.
		q.Depth = 1
	}

	start, resp, done := e.resolveTarget(snap, q)
	if done {
		return resp, nil
	}

	matches := make(map[string]Match)
	if q.Direction == DirectionCallees || q.Direction == DirectionBoth {
		e.traverse(snap.Graph, start.ID, q.Depth, false, matches)
	}
	if q.Direction == DirectionCallers || q.Direction == DirectionBoth {
		e.traverse(snap.Graph, start.ID, q.Depth, true, matches)
	}

	out := make([]Match, 0, len(matches))
	for _, m := range matches {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].HopDistance != out[j].HopDistance {
			return out[i].HopDistance < out[j].HopDistance
		}
		return out[i].Symbol.QualifiedName < out[j].Symbol.QualifiedName
	})

	resolved := start
	return Response{
		ResolvedSymbol: &resolved,
		FuzzyMatch:     q.Fuzzy,
		Matches:        out,
	}, nil
}

// resolveTarget maps the query target to exactly one symbol. Qualified
// names resolve directly; unqualified names must match a single symbol,
// otherwise the tied candidates come back as an AmbiguousSymbol outcome.
func (e *Engine) resolveTarget(snap *graph.Snapshot, q Query) (graph.Symbol, Response, bool) {
	if strings.Contains(q.Target, ":") {
		sym, ok := snap.Table.Lookup(q.Target)
		if !ok {
			return graph.Symbol{}, Response{Error: ErrSymbolNotFound, Matches: []Match{}}, true
		}
		return sym, Response{}, false
	}

	symbols := snap.Table.ByName(q.Target)
	switch len(symbols) {
	case 0:
		return graph.Symbol{}, Response{Error: ErrSymbolNotFound, Matches: []Match{}}, true
	case 1:
		return symbols[0], Response{}, false
	default:
		return graph.Symbol{}, Response{
			Error:               ErrAmbiguousSymbol,
			Matches:             []Match{},
			AmbiguousCandidates: symbols,
		}, true
	}
}

type frontierNode struct {
	id   string
	hop  int
	path []graph.EdgeKind
}

// traverse walks calls edges only. The start node is seeded into the
// visited set so a cycle never reports the start in its own results.
func (e *Engine) traverse(g *graph.Graph, startID string, depth int, reverse bool, matches map[string]Match) {
	visited := map[string]bool{startID: true}
	frontier := []frontierNode{{id: startID}}

	for len(frontier) > 0 {
		node := frontier[0]
		frontier = frontier[1:]
		if depth != DepthUnbounded && node.hop >= depth {
			continue
		}

		edges := g.Outgoing(node.id)
		if reverse {
			edges = g.Incoming(node.id)
		}
		for _, edge := range edges {
			if edge.Kind != graph.EdgeCalls {
				continue
			}
			next := edge.To
			if reverse {
				next = edge.From
			}
			if visited[next] {
				continue
			}
			visited[next] = true

			sym, ok := g.Symbol(next)
			if !ok {
				continue
			}
			path := append(append([]graph.EdgeKind(nil), node.path...), edge.Kind)
			match := Match{Symbol: sym, HopDistance: node.hop + 1, Path: path}
			if prev, seen := matches[next]; !seen || match.HopDistance < prev.HopDistance {
				matches[next] = match
			}
			frontier = append(frontier, frontierNode{id: next, hop: node.hop + 1, path: path})
		}
	}
}
