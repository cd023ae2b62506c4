package rules

import "strings"

// Format renders a tree as rule text with the fewest parentheses needed for
// ParseString to rebuild the same tree.
func Format(n Node) string {
	var b strings.Builder
	format(&b, n, 0)
	return b.String()
}

// precedence of a connective; comparisons bind tightest.
func precedence(op BoolOp) int {
	if op == OpAnd {
		return 2
	}
	return 1
}

// format writes n, wrapping it in parentheses when its connective binds
// looser than minPrec requires.
func format(b *strings.Builder, n Node, minPrec int) {
	switch x := n.(type) {
	case *Comparison:
		b.WriteString(x.String())
	case *Operator:
		prec := precedence(x.Op)
		wrap := prec < minPrec
		if wrap {
			b.WriteByte('(')
		}
		format(b, x.Left, prec)
		b.WriteString(" " + string(x.Op) + " ")
		// Chains are left-associative, so a right child with the same
		// connective must keep its parentheses.
		format(b, x.Right, prec+1)
		if wrap {
			b.WriteByte(')')
		}
	}
}
