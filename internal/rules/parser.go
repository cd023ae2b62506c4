package rules

import (
	"strconv"
	"strings"
	"unicode"
)

// MaxNesting bounds how deeply parenthesised groups may nest in rule text.
const MaxNesting = 256

type parser struct {
	tokens []Token
	pos    int
	depth  int
}

// ParseString tokenizes and parses rule text.
func ParseString(text string) (Node, error) {
	return Parse(Tokenize(text))
}

// Parse builds a tree from tokens using the grammar
//
//	expr       := term ( "OR" term )*
//	term       := factor ( "AND" factor )*
//	factor     := "(" expr ")" | comparison
//	comparison := FIELD OPERATOR LITERAL
//
// Chains are left-associative: A AND B AND C parses as (A AND B) AND C.
// A rule that is a single comparison yields a *Comparison root. Every
// failure is a *SyntaxError.
func Parse(tokens []Token) (Node, error) {
	if len(tokens) == 0 {
		return nil, syntaxErrorf(0, "empty rule")
	}
	p := &parser{tokens: tokens}
	node, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if p.pos < len(p.tokens) {
		t := p.tokens[p.pos]
		if t.Kind == TokenRParen {
			return nil, syntaxErrorf(t.Pos, "unbalanced ')'")
		}
		return nil, syntaxErrorf(t.Pos, "unexpected %s after complete expression", t.Kind)
	}
	return node, nil
}

func (p *parser) peek(kind TokenKind) bool {
	return p.pos < len(p.tokens) && p.tokens[p.pos].Kind == kind
}

func (p *parser) next() Token {
	t := p.tokens[p.pos]
	p.pos++
	return t
}

// endPos is the offset reported for errors at the end of input.
func (p *parser) endPos() int {
	if len(p.tokens) == 0 {
		return 0
	}
	last := p.tokens[len(p.tokens)-1]
	return last.Pos + len(last.Text)
}

func (p *parser) parseExpr() (Node, error) {
	left, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	for p.peek(TokenOr) {
		p.next()
		right, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		left = Or(left, right)
	}
	return left, nil
}

func (p *parser) parseTerm() (Node, error) {
	left, err := p.parseFactor()
	if err != nil {
		return nil, err
	}
	for p.peek(TokenAnd) {
		p.next()
		right, err := p.parseFactor()
		if err != nil {
			return nil, err
		}
		left = And(left, right)
	}
	return left, nil
}

func (p *parser) parseFactor() (Node, error) {
	if p.pos >= len(p.tokens) {
		if p.pos > 0 {
			prev := p.tokens[p.pos-1]
			if prev.Kind == TokenAnd || prev.Kind == TokenOr {
				return nil, syntaxErrorf(prev.Pos, "missing operand after %s", prev.Kind)
			}
		}
		return nil, syntaxErrorf(p.endPos(), "unexpected end of rule")
	}

	t := p.tokens[p.pos]
	switch t.Kind {
	case TokenLParen:
		return p.parseGroup()
	case TokenAtom:
		return p.parseAtoms()
	case TokenRParen:
		if p.pos > 0 && p.tokens[p.pos-1].Kind == TokenLParen {
			return nil, syntaxErrorf(p.tokens[p.pos-1].Pos, "empty group")
		}
		if p.pos > 0 {
			prev := p.tokens[p.pos-1]
			return nil, syntaxErrorf(prev.Pos, "missing operand after %s", prev.Kind)
		}
		return nil, syntaxErrorf(t.Pos, "unbalanced ')'")
	default: // AND / OR where an operand belongs
		return nil, syntaxErrorf(t.Pos, "missing operand before %s", t.Kind)
	}
}

func (p *parser) parseGroup() (Node, error) {
	open := p.next()
	p.depth++
	if p.depth > MaxNesting {
		return nil, syntaxErrorf(open.Pos, "groups nested deeper than %d", MaxNesting)
	}
	if p.peek(TokenRParen) {
		return nil, syntaxErrorf(open.Pos, "empty group")
	}
	inner, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if !p.peek(TokenRParen) {
		if p.pos < len(p.tokens) {
			t := p.tokens[p.pos]
			return nil, syntaxErrorf(t.Pos, "unexpected %s, expected ')'", t.Kind)
		}
		return nil, syntaxErrorf(open.Pos, "unbalanced '(': missing ')'")
	}
	p.next()
	p.depth--
	return inner, nil
}

// parseAtoms consumes every consecutive atom and parses them as one
// comparison fragment.
func (p *parser) parseAtoms() (Node, error) {
	start := p.tokens[p.pos].Pos
	var words []string
	for p.peek(TokenAtom) {
		words = append(words, p.next().Text)
	}
	return parseComparison(strings.Join(words, " "), start)
}

// parseComparison parses a "field operator literal" fragment. A quoted
// literal may contain spaces; an unquoted literal must be a single word.
func parseComparison(fragment string, pos int) (*Comparison, error) {
	field, rest := cutWord(fragment)
	opText, rest := cutWord(rest)
	litText := strings.TrimSpace(rest)
	if field == "" || opText == "" || litText == "" {
		return nil, syntaxErrorf(pos, "expected 'field operator literal', got %q", strings.TrimSpace(fragment))
	}

	if err := validateField(field, pos); err != nil {
		return nil, err
	}
	op := CmpOp(opText)
	if _, ok := validCmpOps[op]; !ok {
		return nil, syntaxErrorf(pos, "unsupported operator %q in %q (want >, < or =)", opText, strings.TrimSpace(fragment))
	}
	lit, err := parseLiteral(litText, pos)
	if err != nil {
		return nil, err
	}
	return Compare(field, op, lit), nil
}

// parseLiteral classifies a literal lexically: optionally signed digits are
// an integer, a single-quoted value is a string with the quotes removed, and
// any other single word is a string as written.
func parseLiteral(text string, pos int) (Literal, error) {
	if strings.HasPrefix(text, "'") {
		if len(text) < 2 || !strings.HasSuffix(text, "'") {
			return Literal{}, syntaxErrorf(pos, "unterminated string literal %s", text)
		}
		return StringLiteral(text[1 : len(text)-1]), nil
	}
	if strings.IndexFunc(text, unicode.IsSpace) >= 0 {
		return Literal{}, syntaxErrorf(pos, "literal %q has several words; quote it", text)
	}
	if isInteger(text) {
		v, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return Literal{}, syntaxErrorf(pos, "integer literal %s out of range", text)
		}
		return IntLiteral(v), nil
	}
	if strings.ContainsRune(text, '\'') {
		return Literal{}, syntaxErrorf(pos, "unexpected quote in literal %s", text)
	}
	if _, isOp := validCmpOps[CmpOp(text)]; isOp {
		return Literal{}, syntaxErrorf(pos, "operator %s where a literal was expected", text)
	}
	return StringLiteral(text), nil
}

func validateField(field string, pos int) error {
	if strings.ContainsAny(field, "'<>=") {
		return syntaxErrorf(pos, "invalid field name %q", field)
	}
	return nil
}

func isInteger(s string) bool {
	if s != "" && (s[0] == '-' || s[0] == '+') {
		s = s[1:]
	}
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// cutWord returns the first whitespace-delimited word of s and the rest.
func cutWord(s string) (word, rest string) {
	s = strings.TrimLeftFunc(s, unicode.IsSpace)
	if i := strings.IndexFunc(s, unicode.IsSpace); i >= 0 {
		return s[:i], s[i:]
	}
	return s, ""
}
