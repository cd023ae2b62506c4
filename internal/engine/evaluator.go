package engine

import (
	"fmt"

	"github.com/CodeEternity01/Rule-Engine-with-AST/internal/rules"
)

// Evaluate reports whether record satisfies the rule rooted at node.
//
// AND and OR short-circuit left to right, so a missing field or type
// mismatch in a branch that is never reached does not fail the evaluation.
// Errors wrap ErrFieldMissing, ErrTypeMismatch or rules.ErrInvalidTree.
func Evaluate(node rules.Node, record Record) (bool, error) {
	return evaluate(node, record, nil)
}

// EvaluateTrace is Evaluate with a record of every comparison visited.
// On error the partial trace up to the failing comparison is returned.
func EvaluateTrace(node rules.Node, record Record) (Result, error) {
	var steps []Step
	v, err := evaluate(node, record, &steps)
	return Result{Value: v, Steps: steps}, err
}

func evaluate(node rules.Node, record Record, trace *[]Step) (bool, error) {
	switch n := node.(type) {
	case *rules.Operator:
		if n == nil {
			return false, rules.ErrNilNode
		}
		left, err := evaluate(n.Left, record, trace)
		if err != nil {
			return false, err
		}
		switch n.Op {
		case rules.OpAnd:
			if !left {
				return false, nil
			}
		case rules.OpOr:
			if left {
				return true, nil
			}
		default:
			return false, fmt.Errorf("%w: unknown connective %q", rules.ErrInvalidTree, n.Op)
		}
		return evaluate(n.Right, record, trace)
	case *rules.Comparison:
		if n == nil {
			return false, rules.ErrNilNode
		}
		return evaluateComparison(n, record, trace)
	case nil:
		return false, rules.ErrNilNode
	default:
		return false, fmt.Errorf("%w: unexpected node %T", rules.ErrInvalidTree, node)
	}
}

func evaluateComparison(c *rules.Comparison, record Record, trace *[]Step) (bool, error) {
	raw, ok := getRecordValue(record, c.Field)
	if !ok {
		return false, &FieldError{Field: c.Field}
	}
	handler, ok := getOperatorHandler(c.Op)
	if !ok {
		return false, fmt.Errorf("%w: unsupported operator %q", rules.ErrInvalidTree, c.Op)
	}
	actual, ok := toLiteral(raw)
	if !ok {
		return false, &TypeError{Field: c.Field, Op: c.Op, Want: c.Literal.Kind, Got: kindName(raw)}
	}
	result, defined := handler.Check(actual, c.Literal)
	if !defined {
		return false, &TypeError{Field: c.Field, Op: c.Op, Want: c.Literal.Kind, Got: actual.Kind.String()}
	}
	if trace != nil {
		*trace = append(*trace, Step{Comparison: c.String(), Field: c.Field, Actual: raw, Result: result})
	}
	return result, nil
}

// getRecordValue looks a field up by exact, case-sensitive name. A key
// present with a nil value counts as present; toLiteral rejects it.
func getRecordValue(record Record, field string) (any, bool) {
	if record == nil {
		return nil, false
	}
	v, ok := record[field]
	return v, ok
}
