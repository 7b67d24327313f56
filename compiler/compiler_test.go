package compiler

import (
	"testing"

	"github.com/dr8co/eva/code"
	"github.com/dr8co/eva/global"
	"github.com/dr8co/eva/parser"
	"github.com/dr8co/eva/value"
)

func compileSource(t *testing.T, src string) (*value.Function, *Compiler) {
	t.Helper()
	list, errs := parser.Parse(src)
	if len(errs) != 0 {
		t.Fatalf("unexpected parse errors: %v", errs)
	}
	heap := value.NewHeap()
	g := global.New()
	c := New(g, heap)
	main, err := c.Compile(list)
	if err != nil {
		t.Fatalf("unexpected compile error: %s", err)
	}
	return main, c
}

func lastOpcode(ins code.Instructions) code.Opcode {
	i := 0
	var last byte
	for i < len(ins) {
		def, err := code.Lookup(ins[i])
		if err != nil {
			break
		}
		last = ins[i]
		_, read := code.ReadOperands(def, ins[i+1:])
		i += read + 1
	}
	return code.Opcode(last)
}

func TestSimpleArithmeticEndsInHalt(t *testing.T) {
	main, _ := compileSource(t, `(+ 1 2)`)
	ins := main.Code.Instructions
	if lastOpcode(ins) != code.HALT {
		t.Fatalf("expected program to end in HALT")
	}
}

func TestGlobalVarEmitsSetGlobal(t *testing.T) {
	main, c := compileSource(t, `(var x 10) x`)
	_ = c
	found := false
	ins := main.Code.Instructions
	i := 0
	for i < len(ins) {
		def, err := code.Lookup(ins[i])
		if err != nil {
			break
		}
		if code.Opcode(ins[i]) == code.SET_GLOBAL {
			found = true
		}
		_, read := code.ReadOperands(def, ins[i+1:])
		i += read + 1
	}
	if !found {
		t.Fatalf("expected a SET_GLOBAL in compiled output")
	}
}

func TestClosureCaptureEmitsMakeFunction(t *testing.T) {
	src := `(def make-counter () (begin (var count 0) (lambda () (begin (set count (+ count 1)) count))))`
	main, c := compileSource(t, src)
	_ = main

	foundMakeFunction := false
	for _, co := range c.CodeObjects() {
		ins := co.Instructions
		i := 0
		for i < len(ins) {
			def, err := code.Lookup(ins[i])
			if err != nil {
				break
			}
			if code.Opcode(ins[i]) == code.MAKE_FUNCTION {
				foundMakeFunction = true
			}
			_, read := code.ReadOperands(def, ins[i+1:])
			i += read + 1
		}
	}
	if !foundMakeFunction {
		t.Fatalf("expected a MAKE_FUNCTION for the captured-count closure")
	}
}

func TestCapturedParamCompilesAsOwnCellOnAZeroFreeCountFunction(t *testing.T) {
	src := `(def make-adder (x) (begin (lambda (y) (+ x y))))`
	_, c := compileSource(t, src)

	var outer *value.Code
	for _, co := range c.CodeObjects() {
		if co.Name == "make-adder" {
			outer = co
		}
	}
	if outer == nil {
		t.Fatalf("expected a Code object named make-adder among the compiled functions")
	}

	// make-adder itself captures nothing from an enclosing scope, so it is
	// installed as a single constant Function (compileFunction's
	// len(scopeInfo.Free) == 0 branch) and reused across every call. Its
	// parameter x is still boxed, because the nested lambda captures it, via
	// a SET_CELL that appends an own cell rather than a LOAD_CELL over a
	// pre-supplied free variable.
	if outer.FreeCount != 0 {
		t.Fatalf("expected make-adder to have FreeCount 0, got %d", outer.FreeCount)
	}

	foundSetCell := false
	ins := outer.Instructions
	i := 0
	for i < len(ins) {
		def, err := code.Lookup(ins[i])
		if err != nil {
			break
		}
		if code.Opcode(ins[i]) == code.SET_CELL {
			foundSetCell = true
		}
		_, read := code.ReadOperands(def, ins[i+1:])
		i += read + 1
	}
	if !foundSetCell {
		t.Fatalf("expected make-adder to box its captured parameter x via SET_CELL")
	}
}

func TestUndefinedSetIsAnError(t *testing.T) {
	list, errs := parser.Parse(`(set y 5)`)
	if len(errs) != 0 {
		t.Fatalf("unexpected parse errors: %v", errs)
	}
	c := New(global.New(), value.NewHeap())
	if _, err := c.Compile(list); err == nil {
		t.Fatalf("expected a reference error compiling set of an undefined name")
	}
}
