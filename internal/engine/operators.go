package engine

import (
	"cmp"
	"encoding/json"
	"math"
	"strings"

	"github.com/CodeEternity01/Rule-Engine-with-AST/internal/rules"
)

// OperatorHandler evaluates one comparison operator. defined is false when
// the operator has no meaning for the given pair of kinds.
type OperatorHandler interface {
	Check(actual, expected rules.Literal) (result, defined bool)
}

var operatorHandlers = map[rules.CmpOp]OperatorHandler{
	rules.CmpEQ: equalsHandler{},
	rules.CmpGT: orderHandler{accept: func(c int) bool { return c > 0 }},
	rules.CmpLT: orderHandler{accept: func(c int) bool { return c < 0 }},
}

func getOperatorHandler(op rules.CmpOp) (OperatorHandler, bool) {
	h, ok := operatorHandlers[op]
	return h, ok
}

// equalsHandler is kind-aware: values of different kinds are never equal.
type equalsHandler struct{}

func (equalsHandler) Check(actual, expected rules.Literal) (bool, bool) {
	return actual == expected, true
}

// orderHandler compares integers numerically and strings lexicographically
// by byte. Mixed kinds are undefined.
type orderHandler struct {
	accept func(c int) bool
}

func (h orderHandler) Check(actual, expected rules.Literal) (bool, bool) {
	if actual.Kind != expected.Kind {
		return false, false
	}
	if actual.Kind == rules.LiteralInt {
		return h.accept(cmp.Compare(actual.Int, expected.Int)), true
	}
	return h.accept(strings.Compare(actual.Str, expected.Str)), true
}

// toLiteral converts a record value to the literal kind it is compared as.
// Only integers and strings are accepted; a float64 qualifies when it holds
// an integral value, since encoding/json decodes every number that way.
func toLiteral(v any) (rules.Literal, bool) {
	switch n := v.(type) {
	case string:
		return rules.StringLiteral(n), true
	case int:
		return rules.IntLiteral(int64(n)), true
	case int8:
		return rules.IntLiteral(int64(n)), true
	case int16:
		return rules.IntLiteral(int64(n)), true
	case int32:
		return rules.IntLiteral(int64(n)), true
	case int64:
		return rules.IntLiteral(n), true
	case uint8:
		return rules.IntLiteral(int64(n)), true
	case uint16:
		return rules.IntLiteral(int64(n)), true
	case uint32:
		return rules.IntLiteral(int64(n)), true
	case uint:
		if uint64(n) > math.MaxInt64 {
			return rules.Literal{}, false
		}
		return rules.IntLiteral(int64(n)), true
	case uint64:
		if n > math.MaxInt64 {
			return rules.Literal{}, false
		}
		return rules.IntLiteral(int64(n)), true
	case float64:
		return floatLiteral(n)
	case float32:
		return floatLiteral(float64(n))
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return rules.Literal{}, false
		}
		return rules.IntLiteral(i), true
	default:
		return rules.Literal{}, false
	}
}

func floatLiteral(f float64) (rules.Literal, bool) {
	if f != math.Trunc(f) || math.IsInf(f, 0) || f < math.MinInt64 || f >= math.MaxInt64 {
		return rules.Literal{}, false
	}
	return rules.IntLiteral(int64(f)), true
}

// kindName describes a record value for error messages.
func kindName(v any) string {
	if v == nil {
		return "null"
	}
	if lit, ok := toLiteral(v); ok {
		return lit.Kind.String()
	}
	switch v.(type) {
	case bool:
		return "boolean"
	case float32, float64, json.Number:
		return "non-integer number"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return "unsupported value"
	}
}
