package rules

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by this package.
var (
	ErrSyntax      = errors.New("syntax error")
	ErrArity       = errors.New("combine requires at least one rule")
	ErrNilNode     = errors.New("nil rule tree")
	ErrInvalidTree = errors.New("invalid rule tree")
)

// SyntaxError describes malformed rule text. Pos is the byte offset in the
// source text where the problem was detected.
type SyntaxError struct {
	Pos int
	Msg string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error at offset %d: %s", e.Pos, e.Msg)
}

// Unwrap lets errors.Is(err, ErrSyntax) match.
func (e *SyntaxError) Unwrap() error { return ErrSyntax }

func syntaxErrorf(pos int, format string, args ...any) error {
	return &SyntaxError{Pos: pos, Msg: fmt.Sprintf(format, args...)}
}
