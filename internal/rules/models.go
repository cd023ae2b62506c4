// Package rules compiles rule text into an abstract syntax tree.
//
// A rule is a boolean expression over attribute comparisons:
//
//	age > 30 AND (department = 'Sales' OR department = 'Marketing')
//
// The package provides the full pipeline from text to tree and back:
// Tokenize splits text into tokens, Parse builds a tree with standard
// precedence (AND binds tighter than OR), Serialize/Deserialize convert
// trees to and from the nested record stored alongside each rule, and
// Combine merges several trees into one conjunction.
//
// Every function in this package is pure. Trees are never modified after
// construction, so they may be shared freely between goroutines and
// between combined rules.
package rules

import (
	"strconv"
)

// Node is a node of a rule tree. It is either an *Operator or a *Comparison.
type Node interface {
	node()
	String() string
}

// BoolOp is a boolean connective joining two subtrees.
type BoolOp string

const (
	OpAnd BoolOp = "AND"
	OpOr  BoolOp = "OR"
)

// CmpOp is a comparison operator used in a leaf.
type CmpOp string

const (
	CmpGT CmpOp = ">"
	CmpLT CmpOp = "<"
	CmpEQ CmpOp = "="
)

// validCmpOps is the set of all recognised comparison operators.
var validCmpOps = map[CmpOp]struct{}{
	CmpGT: {},
	CmpLT: {},
	CmpEQ: {},
}

// LiteralKind tags the value held by a Literal.
type LiteralKind int

const (
	LiteralInt LiteralKind = iota + 1
	LiteralString
)

func (k LiteralKind) String() string {
	switch k {
	case LiteralInt:
		return "integer"
	case LiteralString:
		return "string"
	default:
		return "unknown"
	}
}

// Literal is the right-hand side of a comparison. Its kind is decided once,
// lexically, at parse time.
type Literal struct {
	Kind LiteralKind
	Int  int64
	Str  string
}

// IntLiteral returns an integer literal.
func IntLiteral(v int64) Literal { return Literal{Kind: LiteralInt, Int: v} }

// StringLiteral returns a string literal.
func StringLiteral(s string) Literal { return Literal{Kind: LiteralString, Str: s} }

// String renders the literal in rule syntax: integers bare, strings quoted.
func (l Literal) String() string {
	if l.Kind == LiteralInt {
		return strconv.FormatInt(l.Int, 10)
	}
	return "'" + l.Str + "'"
}

// Operator joins two subtrees with AND or OR. Both children are always non-nil.
type Operator struct {
	Op    BoolOp
	Left  Node
	Right Node
}

func (*Operator) node() {}

func (o *Operator) String() string {
	return "(" + o.Left.String() + " " + string(o.Op) + " " + o.Right.String() + ")"
}

// Comparison is a leaf: field operator literal.
type Comparison struct {
	Field   string
	Op      CmpOp
	Literal Literal
}

func (*Comparison) node() {}

func (c *Comparison) String() string {
	return c.Field + " " + string(c.Op) + " " + c.Literal.String()
}

// And returns left AND right.
func And(left, right Node) *Operator { return &Operator{Op: OpAnd, Left: left, Right: right} }

// Or returns left OR right.
func Or(left, right Node) *Operator { return &Operator{Op: OpOr, Left: left, Right: right} }

// Compare returns the leaf field op lit.
func Compare(field string, op CmpOp, lit Literal) *Comparison {
	return &Comparison{Field: field, Op: op, Literal: lit}
}

// Equal reports whether a and b are structurally identical trees.
func Equal(a, b Node) bool {
	switch x := a.(type) {
	case *Operator:
		y, ok := b.(*Operator)
		if !ok || x == nil || y == nil {
			return ok && x == y
		}
		return x.Op == y.Op && Equal(x.Left, y.Left) && Equal(x.Right, y.Right)
	case *Comparison:
		y, ok := b.(*Comparison)
		if !ok || x == nil || y == nil {
			return ok && x == y
		}
		return *x == *y
	default:
		return a == nil && b == nil
	}
}

// Walk calls fn for every node of the tree in pre-order.
func Walk(n Node, fn func(Node)) {
	if isNil(n) {
		return
	}
	fn(n)
	if op, ok := n.(*Operator); ok {
		Walk(op.Left, fn)
		Walk(op.Right, fn)
	}
}

// Fields returns the distinct field names referenced by the tree, in the
// order they first appear.
func Fields(n Node) []string {
	seen := make(map[string]struct{})
	var fields []string
	Walk(n, func(n Node) {
		c, ok := n.(*Comparison)
		if !ok {
			return
		}
		if _, dup := seen[c.Field]; dup {
			return
		}
		seen[c.Field] = struct{}{}
		fields = append(fields, c.Field)
	})
	return fields
}

// Depth returns the height of the tree. A single comparison has depth 1.
func Depth(n Node) int {
	switch x := n.(type) {
	case *Operator:
		return 1 + max(Depth(x.Left), Depth(x.Right))
	case *Comparison:
		return 1
	default:
		return 0
	}
}

// isNil catches both a nil interface and a typed nil pointer.
func isNil(n Node) bool {
	switch x := n.(type) {
	case nil:
		return true
	case *Operator:
		return x == nil
	case *Comparison:
		return x == nil
	default:
		return false
	}
}
