// Package ast defines the abstract syntax tree produced by the parser and
// consumed by the scope analyzer and the bytecode compiler.
//
// Per §6's AST contract, an Eva expression is one of four kinds: a [Number],
// a [String], a [Symbol], or a [List] of subexpressions. There is no separate
// statement/expression distinction — every Eva form is an expression and
// every expression has a value.
package ast

import (
	"strconv"
	"strings"
)

// Expr is the interface implemented by every AST node.
type Expr interface {
	// String returns a source-like representation of the node, for
	// disassembly headers and error messages.
	String() string

	exprNode()
}

// Number is a numeric literal, always represented as a float64 regardless of
// whether its source spelling had a decimal point.
type Number struct {
	Value float64
}

func (n *Number) exprNode() {}

// String returns the number formatted without a trailing ".0" when the value
// is integral, matching how Eva source typically spells integers.
func (n *Number) String() string {
	return formatNumber(n.Value)
}

// String is a string literal with its surrounding quotes already stripped.
type String struct {
	Value string
}

func (s *String) exprNode() {}

func (s *String) String() string { return `"` + s.Value + `"` }

// Symbol is a bare atom: a variable reference, an operator, or a reserved
// head such as "var" or "if". The literals "true" and "false" are Symbols at
// the parser level; the analyzer and compiler treat them as boolean literals.
type Symbol struct {
	Name string
}

func (s *Symbol) exprNode() {}

func (s *Symbol) String() string { return s.Name }

// List is an ordered sequence of subexpressions: "(head arg1 arg2 ...)".
type List struct {
	Items []Expr
}

func (l *List) exprNode() {}

func (l *List) String() string {
	var out strings.Builder
	out.WriteString("(")
	for i, item := range l.Items {
		if i > 0 {
			out.WriteString(" ")
		}
		out.WriteString(item.String())
	}
	out.WriteString(")")
	return out.String()
}

// Head returns the list's first element, or nil if the list is empty.
func (l *List) Head() Expr {
	if len(l.Items) == 0 {
		return nil
	}
	return l.Items[0]
}

// HeadSymbol returns the list's head as a symbol name and true, or ("", false)
// if the list is empty or its head is not a Symbol.
func (l *List) HeadSymbol() (string, bool) {
	head := l.Head()
	if head == nil {
		return "", false
	}
	sym, ok := head.(*Symbol)
	if !ok {
		return "", false
	}
	return sym.Name, true
}

// IsTaggedList reports whether exp is a List whose head is the symbol tag.
func IsTaggedList(exp Expr, tag string) bool {
	list, ok := exp.(*List)
	if !ok {
		return false
	}
	name, ok := list.HeadSymbol()
	return ok && name == tag
}

func formatNumber(v float64) string {
	if v == float64(int64(v)) {
		return strconv.FormatInt(int64(v), 10)
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}
