package query

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"ccg/internal/core/errors"
	"ccg/internal/shared/util"
)

const (
	// fuzzyThreshold is the largest edit distance a token may sit from a
	// known name and still count as a match.
	fuzzyThreshold = 2

	// maxDepth caps explicit numeric depths; transitive keywords bypass
	// the cap and rely on the traversal's visited set instead.
	maxDepth = 10
)

var (
	identifierRe    = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]*`)
	explicitDepthRe = regexp.MustCompile(`(?i)(?:depth\s+(\d+)|(\d+)\s+(?:level|hop|step)s?)`)

	callerCues = []string{
		"who calls", "what calls", "callers", "called by", "is called", "who uses", "usages of",
	}
	bothCues = []string{
		"both directions", "callers and callees", "connected to", "related to",
	}
	unboundedCues = []string{
		"all", "recursively", "transitively", "entire", "every",
	}

	stopwords = map[string]bool{
		"a": true, "all": true, "and": true, "are": true, "by": true, "call": true,
		"called": true, "callees": true, "callers": true, "calls": true, "depth": true,
		"directions": true, "directly": true, "do": true, "does": true, "entire": true,
		"every": true, "find": true, "for": true, "from": true, "function": true,
		"functions": true, "hop": true, "hops": true, "in": true, "is": true,
		"level": true, "levels": true, "list": true, "made": true, "me": true,
		"methods": true, "of": true, "recursively": true, "related": true,
		"show": true, "step": true, "steps": true, "symbols": true, "that": true,
		"the": true, "to": true, "transitively": true, "usages": true, "uses": true,
		"what": true, "which": true, "who": true,
	}
)

// ParseQuestion reduces a free-form relationship question to a canonical
// Query against the given set of known symbol names. The target is the
// longest identifier-shaped token exactly matching a known name; failing
// that, the closest name by edit distance under the threshold, flagged
// fuzzy. A tie between equally close names reports AMBIGUOUS with the
// tied candidates; no match at all reports NOT_FOUND.
func ParseQuestion(question string, names []string) (Query, []string, error) {
	q := Query{
		Direction: parseDirection(question),
		Depth:     parseDepth(question),
	}

	tokens := identifierRe.FindAllString(question, -1)
	if len(tokens) == 0 {
		return q, nil, errors.New(errors.CodeNotFound, "question contains no symbol name")
	}

	nameSet := make(map[string]bool, len(names))
	for _, name := range names {
		nameSet[name] = true
	}

	// Exact match first. Stopwords stay eligible here so that a symbol
	// actually named "call" or "list" can still be targeted.
	target := ""
	for _, tok := range tokens {
		if nameSet[tok] && len(tok) > len(target) {
			target = tok
		}
	}
	if target != "" {
		q.Target = target
		return q, nil, nil
	}

	best := fuzzyThreshold + 1
	matched := make(map[string]bool)
	for _, tok := range tokens {
		if stopwords[strings.ToLower(tok)] {
			continue
		}
		for _, name := range names {
			d := util.Levenshtein(tok, name)
			if d > fuzzyThreshold || d > best {
				continue
			}
			if d < best {
				best = d
				matched = map[string]bool{name: true}
				continue
			}
			matched[name] = true
		}
	}

	switch len(matched) {
	case 0:
		return q, nil, errors.AddContext(
			errors.New(errors.CodeNotFound, "no symbol matches the question"),
			errors.CtxSymbol, strings.Join(tokens, " "))
	case 1:
		for name := range matched {
			q.Target = name
		}
		q.Fuzzy = true
		return q, nil, nil
	default:
		candidates := make([]string, 0, len(matched))
		for name := range matched {
			candidates = append(candidates, name)
		}
		sort.Strings(candidates)
		return q, candidates, errors.New(errors.CodeAmbiguous, "several symbols match the question equally well")
	}
}

func parseDirection(question string) Direction {
	lower := strings.ToLower(question)
	for _, cue := range bothCues {
		if strings.Contains(lower, cue) {
			return DirectionBoth
		}
	}
	for _, cue := range callerCues {
		if strings.Contains(lower, cue) {
			return DirectionCallers
		}
	}
	return DirectionCallees
}

func parseDepth(question string) int {
	if m := explicitDepthRe.FindStringSubmatch(question); m != nil {
		raw := m[1]
		if raw == "" {
			raw = m[2]
		}
		n, err := strconv.Atoi(raw)
		if err == nil {
			if n < 1 {
				n = 1
			}
			if n > maxDepth {
				n = maxDepth
			}
			return n
		}
	}

	lower := strings.ToLower(question)
	for _, tok := range identifierRe.FindAllString(lower, -1) {
		for _, cue := range unboundedCues {
			if tok == cue {
				return DepthUnbounded
			}
		}
	}
	return 1
}
