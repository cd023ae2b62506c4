// Package logic translates rule trees into JSON Logic (jsonlogic.com) so
// rules can be shipped to clients that evaluate JSON Logic themselves.
//
// The translation is faithful for records that hold every referenced field
// with a value of the literal's kind. JSON Logic treats a missing variable
// as null instead of failing, and orders strings with JavaScript rules, so
// those cases may differ from the rule engine.
package logic

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"

	"github.com/diegoholiveira/jsonlogic/v3"

	"github.com/CodeEternity01/Rule-Engine-with-AST/internal/rules"
)

// ErrInvalidExpression is returned when an expression is not valid JSON Logic.
var ErrInvalidExpression = errors.New("invalid expression: not valid JSON Logic")

// ErrEmptyExpression is returned when an expression is empty or whitespace.
var ErrEmptyExpression = errors.New("invalid expression: empty or whitespace")

var comparisonOps = map[rules.CmpOp]string{
	rules.CmpGT: ">",
	rules.CmpLT: "<",
	rules.CmpEQ: "===",
}

// FromNode converts a rule tree to a JSON Logic expression. Chains of the
// same connective are flattened into one n-ary "and" or "or".
func FromNode(n rules.Node) (map[string]any, error) {
	switch x := n.(type) {
	case *rules.Operator:
		if x == nil {
			return nil, rules.ErrNilNode
		}
		op := strings.ToLower(string(x.Op))
		if x.Op != rules.OpAnd && x.Op != rules.OpOr {
			return nil, rules.ErrInvalidTree
		}
		var args []any
		if err := collect(x.Op, x, &args); err != nil {
			return nil, err
		}
		return map[string]any{op: args}, nil
	case *rules.Comparison:
		if x == nil {
			return nil, rules.ErrNilNode
		}
		op, ok := comparisonOps[x.Op]
		if !ok {
			return nil, rules.ErrInvalidTree
		}
		var lit any = x.Literal.Str
		if x.Literal.Kind == rules.LiteralInt {
			lit = x.Literal.Int
		}
		return map[string]any{op: []any{map[string]any{"var": x.Field}, lit}}, nil
	default:
		return nil, rules.ErrNilNode
	}
}

func collect(op rules.BoolOp, n rules.Node, args *[]any) error {
	if o, ok := n.(*rules.Operator); ok && o != nil && o.Op == op {
		if err := collect(op, o.Left, args); err != nil {
			return err
		}
		return collect(op, o.Right, args)
	}
	expr, err := FromNode(n)
	if err != nil {
		return err
	}
	*args = append(*args, expr)
	return nil
}

// Encode returns the JSON Logic expression for n as a JSON string.
func Encode(n rules.Node) (string, error) {
	expr, err := FromNode(n)
	if err != nil {
		return "", err
	}
	b, err := json.Marshal(expr)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Export converts n to JSON Logic and checks the result with the JSON Logic
// validator before handing it out.
func Export(n rules.Node) (map[string]any, error) {
	expr, err := FromNode(n)
	if err != nil {
		return nil, err
	}
	b, err := json.Marshal(expr)
	if err != nil {
		return nil, err
	}
	if !jsonlogic.IsValid(bytes.NewReader(b)) {
		return nil, ErrInvalidExpression
	}
	return expr, nil
}

// Evaluate applies a JSON Logic expression to data and reports whether the
// result is truthy.
func Evaluate(expression string, data map[string]any) (bool, error) {
	if strings.TrimSpace(expression) == "" {
		return false, ErrEmptyExpression
	}

	dataBytes, err := json.Marshal(data)
	if err != nil {
		return false, err
	}

	var resultBuf bytes.Buffer
	if err := jsonlogic.Apply(strings.NewReader(expression), bytes.NewReader(dataBytes), &resultBuf); err != nil {
		return false, ErrInvalidExpression
	}

	var result any
	if err := json.Unmarshal(resultBuf.Bytes(), &result); err != nil {
		return false, err
	}
	return isTruthy(result), nil
}

// isTruthy follows JavaScript-like truthiness rules.
func isTruthy(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case bool:
		return val
	case float64:
		return val != 0
	case string:
		return val != ""
	case []any:
		return len(val) > 0
	case map[string]any:
		return len(val) > 0
	default:
		return true
	}
}
