package rules

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// Node type tags used in the stored tree.
const (
	TypeOperator = "operator"
	TypeOperand  = "operand"
)

// MaxTreeDepth bounds the depth accepted by Deserialize. It matches the
// nesting limit of encoding/json, so any tree that can be decoded can be
// rebuilt.
const MaxTreeDepth = 10000

// MaxStoredDepth bounds the depth of trees built by combining stored rules.
// It stays well below MaxTreeDepth so every stored tree decodes again.
const MaxStoredDepth = 1000

// MaxEncodedSize bounds the encoded size of a combined tree in bytes.
const MaxEncodedSize = 1 << 20

// Tree is the plain nested record a rule tree is stored as:
//
//	{"type": "operator"|"operand", "value": ..., "left": tree|null, "right": tree|null}
//
// Operator records hold "AND" or "OR" in Value. Operand records hold the
// full "field operator literal" text and have no children.
type Tree struct {
	Type  string `json:"type" yaml:"type"`
	Value string `json:"value" yaml:"value"`
	Left  *Tree  `json:"left" yaml:"left"`
	Right *Tree  `json:"right" yaml:"right"`
}

// Serialize converts a rule tree into its stored record form.
func Serialize(n Node) *Tree {
	switch x := n.(type) {
	case *Operator:
		return &Tree{
			Type:  TypeOperator,
			Value: string(x.Op),
			Left:  Serialize(x.Left),
			Right: Serialize(x.Right),
		}
	case *Comparison:
		return &Tree{Type: TypeOperand, Value: x.String()}
	default:
		return nil
	}
}

// Deserialize rebuilds a rule tree from its stored record form. For every
// tree t, Deserialize(Serialize(t)) is structurally equal to t.
func Deserialize(t *Tree) (Node, error) {
	if t == nil {
		return nil, fmt.Errorf("%w: empty tree", ErrInvalidTree)
	}
	return deserialize(t, 1)
}

func deserialize(t *Tree, depth int) (Node, error) {
	if depth > MaxTreeDepth {
		return nil, fmt.Errorf("%w: deeper than %d levels", ErrInvalidTree, MaxTreeDepth)
	}
	switch t.Type {
	case TypeOperator:
		op := BoolOp(t.Value)
		if op != OpAnd && op != OpOr {
			return nil, fmt.Errorf("%w: unknown operator %q", ErrInvalidTree, t.Value)
		}
		if t.Left == nil || t.Right == nil {
			return nil, fmt.Errorf("%w: operator %s needs two children", ErrInvalidTree, t.Value)
		}
		left, err := deserialize(t.Left, depth+1)
		if err != nil {
			return nil, err
		}
		right, err := deserialize(t.Right, depth+1)
		if err != nil {
			return nil, err
		}
		return &Operator{Op: op, Left: left, Right: right}, nil
	case TypeOperand:
		if t.Left != nil || t.Right != nil {
			return nil, fmt.Errorf("%w: operand %q has children", ErrInvalidTree, t.Value)
		}
		c, err := parseComparison(t.Value, 0)
		if err != nil {
			return nil, fmt.Errorf("%w: operand %q: %w", ErrInvalidTree, t.Value, err)
		}
		return c, nil
	default:
		return nil, fmt.Errorf("%w: unknown node type %q", ErrInvalidTree, t.Type)
	}
}

// Marshal encodes a rule tree as the JSON string kept in the rule store.
// Comparison operators are written literally rather than HTML-escaped.
func Marshal(n Node) (string, error) {
	if isNil(n) {
		return "", ErrNilNode
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(Serialize(n)); err != nil {
		return "", err
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

// Unmarshal decodes a JSON string produced by Marshal.
func Unmarshal(data string) (Node, error) {
	var t *Tree
	if err := json.Unmarshal([]byte(data), &t); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidTree, err)
	}
	return Deserialize(t)
}

// Fingerprint returns a stable hash of the tree's structure. Structurally
// equal trees have equal fingerprints.
func Fingerprint(n Node) uint64 {
	h := xxhash.New()
	writeCanonical(h, n)
	return h.Sum64()
}

type stringWriter interface {
	WriteString(string) (int, error)
}

func writeCanonical(w stringWriter, n Node) {
	switch x := n.(type) {
	case *Operator:
		_, _ = w.WriteString("(")
		writeCanonical(w, x.Left)
		_, _ = w.WriteString(" " + string(x.Op) + " ")
		writeCanonical(w, x.Right)
		_, _ = w.WriteString(")")
	case *Comparison:
		_, _ = w.WriteString(x.Field + " " + string(x.Op) + " ")
		if x.Literal.Kind == LiteralInt {
			_, _ = w.WriteString("i:" + x.Literal.String())
		} else {
			_, _ = w.WriteString("s:" + x.Literal.Str)
		}
	}
}
