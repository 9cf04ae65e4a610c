// Package lexer tokenizes instruction-selection pattern files.
//
// Outside instruction blocks the input is split into ordinary tokens.
// After a '{' the lexer switches to line mode: every non-blank line up to a
// line holding only '}' becomes one TokenLiteral or TokenTemplate.
package lexer

import (
	"strings"
	"unicode"
)

// Lexer tokenizes pattern source
type Lexer struct {
	input   string
	pos     int  // offset of ch
	next    int  // offset of the byte after ch
	ch      byte // 0 at end of input
	line    int
	column  int
	inBlock bool // line mode inside an instruction block
}

// single-byte delimiters
var punct = map[byte]TokenType{
	'(': TokenLParen,
	')': TokenRParen,
	'{': TokenLBrace,
	'}': TokenRBrace,
	'<': TokenLt,
	'>': TokenGt,
	'[': TokenLBracket,
	']': TokenRBracket,
	',': TokenComma,
	';': TokenSemicolon,
	':': TokenColon,
}

// New creates a new Lexer for the given input
func New(input string) *Lexer {
	l := &Lexer{input: input, line: 1}
	l.advance()
	return l
}

func (l *Lexer) advance() {
	if l.ch == '\n' {
		l.line++
		l.column = 0
	}

	l.pos = l.next
	l.ch = 0
	if l.pos < len(l.input) {
		l.ch = l.input[l.pos]
		l.next++
		l.column++
	}
}

func (l *Lexer) peek() byte {
	if l.next < len(l.input) {
		return l.input[l.next]
	}
	return 0
}

// NextToken returns the next token from the input
func (l *Lexer) NextToken() Token {
	if l.inBlock {
		return l.nextLine()
	}

	l.skipSpace()

	tok := Token{Line: l.line, Column: l.column, Pos: l.pos}

	switch {
	case l.ch == 0:
		tok.Type = TokenEOF
		tok.Pos = len(l.input)
		tok.End = len(l.input)
		return tok
	case isLetter(l.ch):
		tok.Literal = l.scanWhile(isIdentChar)
		tok.Type = LookupIdent(tok.Literal)
	case isDigit(l.ch):
		tok.Type = TokenInt
		tok.Literal = l.scanWhile(isDigit)
	case l.ch == '%' && isLetter(l.peek()):
		l.advance()
		tok.Type = TokenTemp
		tok.Literal = "%" + l.scanWhile(isIdentChar)
	case l.ch == '-' && l.peek() == '>':
		l.advance()
		l.advance()
		tok.Type = TokenArrow
		tok.Literal = "->"
	default:
		tok.Type = TokenIllegal
		if t, ok := punct[l.ch]; ok {
			tok.Type = t
		}
		tok.Literal = string(l.ch)
		l.inBlock = tok.Type == TokenLBrace
		l.advance()
	}

	tok.End = l.pos
	return tok
}

// nextLine scans one line of an instruction block.
func (l *Lexer) nextLine() Token {
	for {
		l.scanWhile(isSpace)

		tok := Token{Line: l.line, Column: l.column, Pos: l.pos}
		if l.ch == 0 {
			tok.Type = TokenEOF
			tok.Pos = len(l.input)
			tok.End = len(l.input)
			return tok
		}

		text := strings.TrimSpace(l.scanWhile(func(c byte) bool { return c != '\n' }))
		tok.End = l.pos

		switch {
		case text == "}":
			l.inBlock = false
			tok.Type = TokenRBrace
			tok.Literal = "}"
		case strings.HasPrefix(text, ">"):
			tok.Type = TokenLiteral
			tok.Literal = strings.TrimPrefix(text[1:], " ")
		case strings.HasPrefix(text, "//"):
			continue
		default:
			if i := strings.Index(text, "//"); i >= 0 {
				text = strings.TrimSpace(text[:i])
			}
			tok.Type = TokenTemplate
			tok.Literal = text
		}

		return tok
	}
}

// skipSpace skips whitespace and both comment styles
func (l *Lexer) skipSpace() {
	for {
		l.scanWhile(isSpace)

		switch {
		case l.ch == '/' && l.peek() == '/':
			l.scanWhile(func(c byte) bool { return c != '\n' })
		case l.ch == '/' && l.peek() == '*':
			l.advance()
			l.advance()
			for l.ch != 0 && !(l.ch == '*' && l.peek() == '/') {
				l.advance()
			}
			if l.ch != 0 {
				l.advance()
				l.advance()
			}
		default:
			return
		}
	}
}

// scanWhile consumes bytes matching ok and returns them. It never
// consumes the end of input.
func (l *Lexer) scanWhile(ok func(byte) bool) string {
	start := l.pos
	for l.ch != 0 && ok(l.ch) {
		l.advance()
	}
	return l.input[start:l.pos]
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

func isLetter(c byte) bool {
	return unicode.IsLetter(rune(c)) || c == '_'
}

func isDigit(c byte) bool {
	return '0' <= c && c <= '9'
}

func isIdentChar(c byte) bool {
	return isLetter(c) || isDigit(c)
}
