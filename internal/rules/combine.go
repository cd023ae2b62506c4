package rules

import (
	"fmt"
	"strings"
)

// Combine returns the conjunction of all given trees as a left-associative
// chain: Combine(a, b, c) is AND(AND(a, b), c). A single tree is returned
// unchanged. The inputs are shared with the result, never copied or
// modified.
func Combine(nodes ...Node) (Node, error) {
	if len(nodes) == 0 {
		return nil, ErrArity
	}
	for i, n := range nodes {
		if isNil(n) {
			return nil, fmt.Errorf("%w: input %d", ErrNilNode, i)
		}
	}

	acc := nodes[0]
	for _, n := range nodes[1:] {
		acc = And(acc, n)
	}
	return acc, nil
}

// CombineSources builds the rule text for a combined rule. Each source is
// parenthesised so that the text parses to the same tree Combine builds.
func CombineSources(sources ...string) string {
	if len(sources) == 1 {
		return sources[0]
	}
	parts := make([]string, len(sources))
	for i, s := range sources {
		parts[i] = "(" + strings.TrimSpace(s) + ")"
	}
	return strings.Join(parts, " AND ")
}
