package lexer

// TokenType represents the type of a token
type TokenType int

const (
	// Special tokens
	TokenEOF TokenType = iota
	TokenIllegal

	// Literals
	TokenIdent // add, gr, rax
	TokenInt   // 4
	TokenTemp  // %t0

	// Keywords
	TokenAsm      // asm
	TokenPattern  // pattern
	TokenMaps     // maps
	TokenClobbers // clobbers
	TokenHook     // hook

	// Delimiters
	TokenLParen    // (
	TokenRParen    // )
	TokenLBrace    // {
	TokenRBrace    // }
	TokenLt        // <
	TokenGt        // >
	TokenLBracket  // [
	TokenRBracket  // ]
	TokenComma     // ,
	TokenSemicolon // ;
	TokenColon     // :
	TokenArrow     // ->

	// Instruction block lines
	TokenLiteral  // > raw target code
	TokenTemplate // mov $out, $1
)

var tokenNames = map[TokenType]string{
	TokenEOF:       "EOF",
	TokenIllegal:   "ILLEGAL",
	TokenIdent:     "IDENT",
	TokenInt:       "INT",
	TokenTemp:      "TEMP",
	TokenAsm:       "asm",
	TokenPattern:   "pattern",
	TokenMaps:      "maps",
	TokenClobbers:  "clobbers",
	TokenHook:      "hook",
	TokenLParen:    "(",
	TokenRParen:    ")",
	TokenLBrace:    "{",
	TokenRBrace:    "}",
	TokenLt:        "<",
	TokenGt:        ">",
	TokenLBracket:  "[",
	TokenRBracket:  "]",
	TokenComma:     ",",
	TokenSemicolon: ";",
	TokenColon:     ":",
	TokenArrow:     "->",
	TokenLiteral:   "LITERAL",
	TokenTemplate:  "TEMPLATE",
}

func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return "UNKNOWN"
}

// Token represents a lexical token
type Token struct {
	Type    TokenType
	Literal string
	Line    int
	Column  int
	Pos     int // byte offset of the first character
	End     int // byte offset after the last character
}

// keywords maps keyword strings to token types
var keywords = map[string]TokenType{
	"asm":      TokenAsm,
	"pattern":  TokenPattern,
	"maps":     TokenMaps,
	"clobbers": TokenClobbers,
	"hook":     TokenHook,
}

// LookupIdent returns the token type for an identifier (keyword or IDENT)
func LookupIdent(ident string) TokenType {
	if tok, ok := keywords[ident]; ok {
		return tok
	}
	return TokenIdent
}
