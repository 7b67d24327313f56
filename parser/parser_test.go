package parser

import (
	"testing"

	"github.com/dr8co/eva/ast"
)

func TestParseAtoms(t *testing.T) {
	root, errs := Parse(`5 "hi" x`)
	if len(errs) != 0 {
		t.Fatalf("unexpected parse errors: %v", errs)
	}
	// Items[0] is the wrapping "begin" head.
	if len(root.Items) != 4 {
		t.Fatalf("expected begin plus 3 top-level items, got %d", len(root.Items))
	}

	num, ok := root.Items[1].(*ast.Number)
	if !ok || num.Value != 5 {
		t.Fatalf("expected Number{5}, got %#v", root.Items[1])
	}

	str, ok := root.Items[2].(*ast.String)
	if !ok || str.Value != "hi" {
		t.Fatalf("expected String{hi}, got %#v", root.Items[2])
	}

	sym, ok := root.Items[3].(*ast.Symbol)
	if !ok || sym.Name != "x" {
		t.Fatalf("expected Symbol{x}, got %#v", root.Items[3])
	}
}

func TestParseNestedList(t *testing.T) {
	root, errs := Parse(`(def square (x) (* x x)) (square 10)`)
	if len(errs) != 0 {
		t.Fatalf("unexpected parse errors: %v", errs)
	}
	if len(root.Items) != 3 {
		t.Fatalf("expected begin plus 2 top-level forms, got %d", len(root.Items))
	}
	if !ast.IsTaggedList(root.Items[1], "def") {
		t.Fatalf("expected a def form, got %s", root.Items[1].String())
	}
	call, ok := root.Items[2].(*ast.List)
	if !ok || len(call.Items) != 2 {
		t.Fatalf("expected a 2-element call form, got %#v", root.Items[2])
	}
}

func TestUnterminatedListIsAnError(t *testing.T) {
	_, errs := Parse(`(def square (x`)
	if len(errs) == 0 {
		t.Fatalf("expected a parse error for unterminated list")
	}
}
