package rules

import (
	"unicode"
	"unicode/utf8"
)

// TokenKind classifies a token.
type TokenKind int

const (
	TokenAtom TokenKind = iota
	TokenLParen
	TokenRParen
	TokenAnd
	TokenOr
)

func (k TokenKind) String() string {
	switch k {
	case TokenLParen:
		return "'('"
	case TokenRParen:
		return "')'"
	case TokenAnd:
		return "AND"
	case TokenOr:
		return "OR"
	default:
		return "atom"
	}
}

// Token is one lexical unit of rule text. Atoms hold a single
// whitespace-delimited word; the parser groups consecutive atoms into a
// comparison. Pos is the byte offset of the token in the source.
type Token struct {
	Kind TokenKind
	Text string
	Pos  int
}

// Tokenize splits rule text into tokens. Parentheses are always standalone
// tokens, so "(age > 30)" and "( age > 30 )" tokenize identically; all other
// boundaries come from whitespace. AND and OR are reserved words and are
// matched case-sensitively. Tokenize never fails: an empty input yields no
// tokens.
func Tokenize(text string) []Token {
	var tokens []Token
	start := -1

	flush := func(end int) {
		if start < 0 {
			return
		}
		tokens = append(tokens, classify(text[start:end], start))
		start = -1
	}

	for pos := 0; pos < len(text); {
		r, size := utf8.DecodeRuneInString(text[pos:])
		switch {
		case r == '(':
			flush(pos)
			tokens = append(tokens, Token{Kind: TokenLParen, Text: "(", Pos: pos})
		case r == ')':
			flush(pos)
			tokens = append(tokens, Token{Kind: TokenRParen, Text: ")", Pos: pos})
		case unicode.IsSpace(r):
			flush(pos)
		default:
			if start < 0 {
				start = pos
			}
		}
		pos += size
	}
	flush(len(text))
	return tokens
}

func classify(word string, pos int) Token {
	switch word {
	case "AND":
		return Token{Kind: TokenAnd, Text: word, Pos: pos}
	case "OR":
		return Token{Kind: TokenOr, Text: word, Pos: pos}
	default:
		return Token{Kind: TokenAtom, Text: word, Pos: pos}
	}
}
