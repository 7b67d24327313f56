// Package lexer tokenizes Eva source text for the parser.
//
// The lexer reads the input one byte at a time and produces a stream of
// [token.Token] values: parens, numbers, strings, and symbols. Whitespace and
// ";"-to-end-of-line comments are skipped between tokens.
package lexer

import (
	"strings"

	"github.com/dr8co/eva/token"
)

// Lexer tokenizes Eva source text.
type Lexer struct {
	input        string
	position     int
	readPosition int
	ch           byte
}

// New creates a new Lexer over the given input string.
func New(input string) *Lexer {
	l := &Lexer{input: input}
	l.readChar()
	return l
}

// readChar advances the lexer by one byte.
func (l *Lexer) readChar() {
	if l.readPosition >= len(l.input) {
		l.ch = 0
	} else {
		l.ch = l.input[l.readPosition]
	}
	l.position = l.readPosition
	l.readPosition++
}

func (l *Lexer) peekChar() byte {
	if l.readPosition >= len(l.input) {
		return 0
	}
	return l.input[l.readPosition]
}

// NextToken reads and returns the next token from the input.
func (l *Lexer) NextToken() token.Token {
	l.skipWhitespaceAndComments()

	switch l.ch {
	case 0:
		return token.Token{Type: token.EOF, Literal: ""}
	case '(':
		l.readChar()
		return token.Token{Type: token.LPAREN, Literal: "("}
	case ')':
		l.readChar()
		return token.Token{Type: token.RPAREN, Literal: ")"}
	case '"':
		return l.readString()
	}

	if isDigit(l.ch) || (l.ch == '-' && isDigit(l.peekChar())) {
		return l.readNumber()
	}

	if isSymbolChar(l.ch) {
		return l.readSymbol()
	}

	ch := l.ch
	l.readChar()
	return token.Token{Type: token.ILLEGAL, Literal: string(ch)}
}

// skipWhitespaceAndComments consumes whitespace and ";"-to-end-of-line
// comments between tokens.
func (l *Lexer) skipWhitespaceAndComments() {
	for {
		for l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r' {
			l.readChar()
		}
		if l.ch == ';' {
			for l.ch != '\n' && l.ch != 0 {
				l.readChar()
			}
			continue
		}
		break
	}
}

// readString scans a double-quoted string literal. The returned literal has
// its surrounding quotes stripped, per §6's AST contract.
func (l *Lexer) readString() token.Token {
	var out strings.Builder
	l.readChar() // consume opening quote

	for l.ch != '"' && l.ch != 0 {
		if l.ch == '\\' && l.peekChar() == '"' {
			out.WriteByte('"')
			l.readChar()
			l.readChar()
			continue
		}
		out.WriteByte(l.ch)
		l.readChar()
	}
	l.readChar() // consume closing quote

	return token.Token{Type: token.STRING, Literal: out.String()}
}

// readNumber scans an integer or floating-point literal, including a leading
// minus sign.
func (l *Lexer) readNumber() token.Token {
	start := l.position
	if l.ch == '-' {
		l.readChar()
	}
	for isDigit(l.ch) {
		l.readChar()
	}
	if l.ch == '.' && isDigit(l.peekChar()) {
		l.readChar()
		for isDigit(l.ch) {
			l.readChar()
		}
	}
	return token.Token{Type: token.NUMBER, Literal: l.input[start:l.position]}
}

// readSymbol scans an identifier, operator, or reserved head.
func (l *Lexer) readSymbol() token.Token {
	start := l.position
	for isSymbolChar(l.ch) {
		l.readChar()
	}
	return token.Token{Type: token.SYMBOL, Literal: l.input[start:l.position]}
}

func isDigit(ch byte) bool { return ch >= '0' && ch <= '9' }

// isSymbolChar reports whether ch may appear in a symbol or operator atom.
// Parens, quotes, and whitespace terminate a symbol; everything else
// (letters, digits, and punctuation like +, -, *, /, <, >, =, !, ?) is fair
// game, matching Eva's Lisp-like "anything but a delimiter" identifier rule.
func isSymbolChar(ch byte) bool {
	switch ch {
	case '(', ')', '"', ' ', '\t', '\n', '\r', 0, ';':
		return false
	default:
		return true
	}
}
