package engine

import (
	"errors"
	"fmt"

	"github.com/CodeEternity01/Rule-Engine-with-AST/internal/rules"
)

// Record is the input a rule is evaluated against: attribute name to value.
// Values may be Go integers, integral float64 (as produced by
// encoding/json), json.Number, or strings.
type Record map[string]any

// Sentinel errors returned by Evaluate.
var (
	ErrFieldMissing = errors.New("field missing from record")
	ErrTypeMismatch = errors.New("type mismatch")
)

// FieldError reports a comparison whose field is absent from the record.
type FieldError struct {
	Field string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%v: %q", ErrFieldMissing, e.Field)
}

func (e *FieldError) Unwrap() error { return ErrFieldMissing }

// TypeError reports a record value that cannot be compared with a
// comparison's literal.
type TypeError struct {
	Field string
	Op    rules.CmpOp
	Want  rules.LiteralKind
	Got   string
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("%v: field %q holds %s, operator %s needs %s", ErrTypeMismatch, e.Field, e.Got, e.Op, e.Want)
}

func (e *TypeError) Unwrap() error { return ErrTypeMismatch }

// Step records one comparison visited during an evaluation.
type Step struct {
	Comparison string `json:"comparison" yaml:"comparison"`
	Field      string `json:"field" yaml:"field"`
	Actual     any    `json:"actual" yaml:"actual"`
	Result     bool   `json:"result" yaml:"result"`
}

// Result is the outcome of EvaluateTrace. Steps lists the comparisons in
// the order they were evaluated; branches skipped by short-circuiting do
// not appear.
type Result struct {
	Value bool   `json:"result" yaml:"result"`
	Steps []Step `json:"steps" yaml:"steps"`
}
