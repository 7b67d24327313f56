package analyzer

import (
	"testing"

	"github.com/dr8co/eva/ast"
	"github.com/dr8co/eva/parser"
)

func TestTopLevelVarIsGlobal(t *testing.T) {
	list, errs := parser.Parse(`(var x 10) (set x 20) x`)
	if len(errs) != 0 {
		t.Fatalf("unexpected parse errors: %v", errs)
	}
	scopes, err := Analyze(list)
	if err != nil {
		t.Fatalf("unexpected analyze error: %s", err)
	}
	root, ok := scopes[ast.Expr(list)]
	if !ok {
		t.Fatalf("expected a Scope recorded for the top-level begin form")
	}
	if got := root.AllocInfo["x"]; got != AllocGlobal {
		t.Fatalf("expected x to be global, got %v", got)
	}
}

func TestCapturedLocalPromotesToCell(t *testing.T) {
	// (def make-counter () (begin (var count 0) (lambda () (begin (set count (+ count 1)) count))))
	src := `(def make-counter () (begin (var count 0) (lambda () (begin (set count (+ count 1)) count))))`
	list, errs := parser.Parse(src)
	if len(errs) != 0 {
		t.Fatalf("unexpected parse errors: %v", errs)
	}
	scopes, err := Analyze(list)
	if err != nil {
		t.Fatalf("unexpected analyze error: %s", err)
	}

	// begin -> def make-counter -> body begin, whose block scope declares count
	outerBegin := list
	defForm := outerBegin.Items[1]
	if _, ok := scopes[defForm]; !ok {
		t.Fatalf("expected a Scope recorded for the def form")
	}
	bodyScope, ok := scopes[defForm.(*ast.List).Items[3]]
	if !ok {
		t.Fatalf("expected a Scope recorded for make-counter's body block")
	}
	if got := bodyScope.AllocInfo["count"]; got != AllocCell {
		t.Fatalf("expected count to be promoted to a cell, got %v", got)
	}
	if len(bodyScope.Cells) != 1 || bodyScope.Cells[0] != "count" {
		t.Fatalf("expected make-counter's body block to own cell \"count\", got %v", bodyScope.Cells)
	}
}

func TestUndefinedReferenceIsAnError(t *testing.T) {
	list, errs := parser.Parse(`undefined-name`)
	if len(errs) != 0 {
		t.Fatalf("unexpected parse errors: %v", errs)
	}
	if _, err := Analyze(list); err == nil {
		t.Fatalf("expected a reference error for an undefined name")
	}
}
