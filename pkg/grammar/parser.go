package grammar

import (
	"fmt"
	"strings"

	"tlog.app/go/errors"

	"github.com/raymyers/ralph-isel/pkg/lexer"
)

// Parser is a recursive descent parser for pattern files
type Parser struct {
	l         *lexer.Lexer
	input     string
	curToken  lexer.Token
	peekToken lexer.Token
	errors    []string
}

// New creates a new Parser for the given source text
func New(input string) *Parser {
	p := &Parser{
		l:     lexer.New(input),
		input: input,
	}
	// Read two tokens to initialize curToken and peekToken
	p.nextToken()
	p.nextToken()
	return p
}

// Parse parses a whole file and fails if any syntax error was reported.
func Parse(input string) (*Node, error) {
	p := New(input)
	root := p.ParseFile()

	if errs := p.Errors(); len(errs) != 0 {
		return nil, errors.New("syntax: %s", strings.Join(errs, "; "))
	}

	return root, nil
}

func (p *Parser) nextToken() {
	p.curToken = p.peekToken
	p.peekToken = p.l.NextToken()
}

// Errors returns the list of parsing errors
func (p *Parser) Errors() []string {
	return p.errors
}

func (p *Parser) addError(msg string) {
	p.errors = append(p.errors, fmt.Sprintf("line %d, col %d: %s",
		p.curToken.Line, p.curToken.Column, msg))
}

func (p *Parser) curTokenIs(t lexer.TokenType) bool {
	return p.curToken.Type == t
}

func (p *Parser) expect(t lexer.TokenType) bool {
	if p.curTokenIs(t) {
		p.nextToken()
		return true
	}
	p.addError(fmt.Sprintf("expected %s, got %s", t, p.describe(p.curToken)))
	return false
}

func (p *Parser) describe(tok lexer.Token) string {
	switch tok.Type {
	case lexer.TokenIdent, lexer.TokenInt, lexer.TokenTemp, lexer.TokenIllegal:
		return fmt.Sprintf("%s %q", tok.Type, tok.Literal)
	}
	return tok.Type.String()
}

func (p *Parser) leaf(r Rule, tok lexer.Token, text string) *Node {
	return &Node{Rule: r, Text: text, Line: tok.Line, Column: tok.Column}
}

// ParseFile parses declarations until EOF. On a syntax error the parser
// resynchronizes at the next top-level keyword so that one run reports as
// many errors as possible.
func (p *Parser) ParseFile() *Node {
	file := &Node{Rule: RuleFile, Line: 1, Column: 1}

	for !p.curTokenIs(lexer.TokenEOF) {
		var n *Node

		switch p.curToken.Type {
		case lexer.TokenAsm:
			n = p.parseAsmDecl()
		case lexer.TokenPattern:
			n = p.parsePattern()
		default:
			p.addError(fmt.Sprintf("expected pattern or asm declaration, got %s", p.describe(p.curToken)))
		}

		if n == nil {
			p.synchronize()
			continue
		}

		file.Children = append(file.Children, n)
	}

	return file
}

// synchronize skips tokens up to the next top-level keyword.
func (p *Parser) synchronize() {
	p.nextToken()
	for !p.curTokenIs(lexer.TokenEOF) && !p.curTokenIs(lexer.TokenPattern) && !p.curTokenIs(lexer.TokenAsm) {
		p.nextToken()
	}
}

func (p *Parser) parseAsmDecl() *Node {
	tok := p.curToken
	p.nextToken() // consume 'asm'

	if !p.curTokenIs(lexer.TokenIdent) {
		p.addError(fmt.Sprintf("expected assembly parser name, got %s", p.describe(p.curToken)))
		return nil
	}
	n := p.leaf(RuleAsmDecl, tok, p.curToken.Literal)
	p.nextToken()

	if !p.expect(lexer.TokenSemicolon) {
		return nil
	}

	return n
}

func (p *Parser) parsePattern() *Node {
	n := p.leaf(RulePattern, p.curToken, "")
	p.nextToken() // consume 'pattern'

	if !p.curTokenIs(lexer.TokenIdent) {
		p.addError(fmt.Sprintf("expected mnemonic, got %s", p.describe(p.curToken)))
		return nil
	}
	n.Children = append(n.Children, p.leaf(RuleMnemonic, p.curToken, p.curToken.Literal))
	p.nextToken()

	if !p.curTokenIs(lexer.TokenLParen) {
		p.addError(fmt.Sprintf("expected '(' before operand kinds, got %s", p.describe(p.curToken)))
		return nil
	}
	ops := p.parseOperands()
	if ops == nil {
		return nil
	}
	n.Children = append(n.Children, ops)

	if p.curTokenIs(lexer.TokenArrow) {
		p.nextToken()
		if !p.curTokenIs(lexer.TokenIdent) {
			p.addError(fmt.Sprintf("expected output kind after '->', got %s", p.describe(p.curToken)))
			return nil
		}
		n.Children = append(n.Children, p.leaf(RuleOutput, p.curToken, p.curToken.Literal))
		p.nextToken()
	}

	if p.curTokenIs(lexer.TokenLParen) || p.curTokenIs(lexer.TokenLt) {
		ann := p.parseTypeAnn()
		if ann == nil {
			return nil
		}
		n.Children = append(n.Children, ann)
	}

	for {
		var clause *Node

		switch p.curToken.Type {
		case lexer.TokenMaps:
			clause = p.parseMaps()
		case lexer.TokenClobbers:
			clause = p.parseClobbers()
		case lexer.TokenHook:
			clause = p.parseHook()
		case lexer.TokenLBrace:
			block := p.parseBlock()
			if block == nil {
				return nil
			}
			n.Children = append(n.Children, block)
			return n
		default:
			p.addError(fmt.Sprintf("expected '{', maps, clobbers or hook, got %s", p.describe(p.curToken)))
			return nil
		}

		if clause == nil {
			return nil
		}
		n.Children = append(n.Children, clause)
	}
}

// parseOperands parses "( kind {, kind} [; kind] )". The operand node keeps
// the raw text of the comma separated list; the third section becomes a
// child node.
func (p *Parser) parseOperands() *Node {
	open := p.curToken
	p.nextToken() // consume '('

	ops := p.leaf(RuleOperands, open, "")
	start, end := -1, -1

	for p.curTokenIs(lexer.TokenIdent) {
		if start < 0 {
			start = p.curToken.Pos
		}
		end = p.curToken.End
		p.nextToken()

		if !p.curTokenIs(lexer.TokenComma) {
			break
		}
		p.nextToken()
		if !p.curTokenIs(lexer.TokenIdent) {
			p.addError(fmt.Sprintf("expected operand kind after ',', got %s", p.describe(p.curToken)))
			return nil
		}
	}

	if start >= 0 {
		ops.Text = p.input[start:end]
	}

	if p.curTokenIs(lexer.TokenSemicolon) {
		p.nextToken()
		if !p.curTokenIs(lexer.TokenIdent) {
			p.addError(fmt.Sprintf("expected third operand kind after ';', got %s", p.describe(p.curToken)))
			return nil
		}
		ops.Children = append(ops.Children, p.leaf(RuleThird, p.curToken, p.curToken.Literal))
		p.nextToken()
	}

	if !p.expect(lexer.TokenRParen) {
		return nil
	}

	return ops
}

// parseTypeAnn captures "( ... )" or "< ... >" verbatim, decoration included.
func (p *Parser) parseTypeAnn() *Node {
	open := p.curToken
	closing := lexer.TokenRParen
	if open.Type == lexer.TokenLt {
		closing = lexer.TokenGt
	}
	p.nextToken()

	empty := true
	for !p.curTokenIs(closing) {
		switch p.curToken.Type {
		case lexer.TokenIdent, lexer.TokenInt:
			empty = false
			p.nextToken()
		default:
			p.addError(fmt.Sprintf("unexpected %s in type annotation", p.describe(p.curToken)))
			return nil
		}
	}

	if empty {
		p.addError("empty type annotation")
		return nil
	}

	n := p.leaf(RuleTypeAnn, open, p.input[open.Pos:p.curToken.End])
	p.nextToken() // consume closing delimiter

	return n
}

func (p *Parser) parseMaps() *Node {
	n := p.leaf(RuleMaps, p.curToken, "")
	p.nextToken() // consume 'maps'

	for {
		if !p.curTokenIs(lexer.TokenTemp) {
			p.addError(fmt.Sprintf("expected temporary name, got %s", p.describe(p.curToken)))
			return nil
		}
		name := p.curToken
		p.nextToken()

		if !p.expect(lexer.TokenColon) {
			return nil
		}
		if !p.curTokenIs(lexer.TokenIdent) {
			p.addError(fmt.Sprintf("expected register class for %s, got %s", name.Literal, p.describe(p.curToken)))
			return nil
		}
		n.Children = append(n.Children, p.leaf(RuleMap, name, p.input[name.Pos:p.curToken.End]))
		p.nextToken()

		if !p.curTokenIs(lexer.TokenComma) {
			break
		}
		p.nextToken()
	}

	if !p.expect(lexer.TokenSemicolon) {
		return nil
	}

	return n
}

func (p *Parser) parseClobbers() *Node {
	n := p.leaf(RuleClobbers, p.curToken, "")
	p.nextToken() // consume 'clobbers'

	for {
		if !p.curTokenIs(lexer.TokenIdent) {
			p.addError(fmt.Sprintf("expected register name, got %s", p.describe(p.curToken)))
			return nil
		}
		n.Children = append(n.Children, p.leaf(RuleReg, p.curToken, p.curToken.Literal))
		p.nextToken()

		if !p.curTokenIs(lexer.TokenComma) {
			break
		}
		p.nextToken()
	}

	if !p.expect(lexer.TokenSemicolon) {
		return nil
	}

	return n
}

func (p *Parser) parseHook() *Node {
	tok := p.curToken
	p.nextToken() // consume 'hook'

	if !p.curTokenIs(lexer.TokenIdent) {
		p.addError(fmt.Sprintf("expected hook function name, got %s", p.describe(p.curToken)))
		return nil
	}
	n := p.leaf(RuleHook, tok, p.curToken.Literal)
	p.nextToken()

	if !p.expect(lexer.TokenSemicolon) {
		return nil
	}

	return n
}

func (p *Parser) parseBlock() *Node {
	block := p.leaf(RuleBlock, p.curToken, "")

	p.nextToken() // consume '{'

	for !p.curTokenIs(lexer.TokenRBrace) {
		switch p.curToken.Type {
		case lexer.TokenLiteral:
			block.Children = append(block.Children, p.leaf(RuleLiteral, p.curToken, p.curToken.Literal))
		case lexer.TokenTemplate:
			block.Children = append(block.Children, p.leaf(RuleTemplate, p.curToken, p.curToken.Literal))
		case lexer.TokenEOF:
			p.addError(fmt.Sprintf("unterminated instruction block opened at line %d", block.Line))
			return nil
		default:
			p.addError(fmt.Sprintf("unexpected %s in instruction block", p.describe(p.curToken)))
			return nil
		}
		p.nextToken()
	}

	p.nextToken() // consume '}'

	return block
}
