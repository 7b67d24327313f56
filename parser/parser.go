// Package parser reads a stream of Eva tokens into an [ast.Expr] tree.
//
// This is the external collaborator named in §1: the hard core of the
// system only assumes the parser can turn "(begin <program>)" into a single
// root [ast.List]. Eva's S-expression syntax needs no operator-precedence
// climbing, so the reader is a straightforward recursive descent over
// parenthesized lists, in the same error-accumulating style as the teacher's
// Pratt parser.
package parser

import (
	"fmt"
	"strconv"

	"github.com/dr8co/eva/ast"
	"github.com/dr8co/eva/lexer"
	"github.com/dr8co/eva/token"
)

// Parser reads Eva tokens from a [lexer.Lexer] and builds an [ast.Expr] tree.
type Parser struct {
	l *lexer.Lexer

	curToken  token.Token
	peekToken token.Token

	errors []string
}

// New creates a new Parser over the given lexer.
func New(l *lexer.Lexer) *Parser {
	p := &Parser{l: l, errors: []string{}}
	p.nextToken()
	p.nextToken()
	return p
}

// Errors returns the parse errors accumulated so far.
func (p *Parser) Errors() []string { return p.errors }

func (p *Parser) nextToken() {
	p.curToken = p.peekToken
	p.peekToken = p.l.NextToken()
}

// ParseProgram parses the entire input and returns its single root
// expression. Per §6, callers wrap program text as "(begin <program>)"
// before lexing it, so the root is always a List headed by "begin".
func (p *Parser) ParseProgram() ast.Expr {
	exp := p.parseExpr()
	if len(p.errors) > 0 {
		return exp
	}
	if p.curToken.Type != token.EOF {
		p.errorf("unexpected trailing token %q after top-level expression", p.curToken.Literal)
	}
	return exp
}

// parseExpr parses one expression: a number, a string, a symbol, or a
// parenthesized list.
func (p *Parser) parseExpr() ast.Expr {
	switch p.curToken.Type {
	case token.NUMBER:
		return p.parseNumber()
	case token.STRING:
		return p.parseString()
	case token.SYMBOL:
		return p.parseSymbol()
	case token.LPAREN:
		return p.parseList()
	default:
		p.errorf("unexpected token %q", p.curToken.Literal)
		p.nextToken()
		return nil
	}
}

func (p *Parser) parseNumber() ast.Expr {
	value, err := strconv.ParseFloat(p.curToken.Literal, 64)
	if err != nil {
		p.errorf("could not parse %q as a number", p.curToken.Literal)
		p.nextToken()
		return nil
	}
	p.nextToken()
	return &ast.Number{Value: value}
}

func (p *Parser) parseString() ast.Expr {
	lit := &ast.String{Value: p.curToken.Literal}
	p.nextToken()
	return lit
}

func (p *Parser) parseSymbol() ast.Expr {
	sym := &ast.Symbol{Name: p.curToken.Literal}
	p.nextToken()
	return sym
}

func (p *Parser) parseList() ast.Expr {
	p.nextToken() // consume "("

	items := []ast.Expr{}
	for p.curToken.Type != token.RPAREN {
		if p.curToken.Type == token.EOF {
			p.errorf("unexpected end of input: unterminated list")
			return &ast.List{Items: items}
		}
		item := p.parseExpr()
		if item != nil {
			items = append(items, item)
		}
	}
	p.nextToken() // consume ")"

	return &ast.List{Items: items}
}

func (p *Parser) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

// Parse is a convenience entry point: it lexes and parses source, wrapping it
// as "(begin <source>)" per §6's AST contract, and returns the resulting root
// List and any parse errors.
func Parse(source string) (*ast.List, []string) {
	wrapped := "(begin " + source + ")"
	l := lexer.New(wrapped)
	p := New(l)
	root := p.ParseProgram()
	if len(p.Errors()) > 0 {
		return nil, p.Errors()
	}
	list, ok := root.(*ast.List)
	if !ok {
		return nil, []string{"parser did not produce a root list"}
	}
	return list, nil
}
