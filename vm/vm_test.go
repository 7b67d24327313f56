package vm

import (
	"testing"

	"github.com/dr8co/eva/value"
)

func TestShadowingVarAndSetScenario(t *testing.T) {
	v := New()
	result, err := v.Exec(`(var x 5) (set x (+ x 10)) (begin (set x 1000) (var x 100) x) x`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsNumber() || result.AsNumber() != 1000 {
		t.Fatalf("expected Number 1000, got %v", result.Inspect())
	}
}

func TestWhileLoopCountingScenario(t *testing.T) {
	v := New()
	result, err := v.Exec(`(var i 10) (var count 0) (while (> i 0) (begin (set i (- i 1)) (set count (+ count 1)))) count`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsNumber() || result.AsNumber() != 10 {
		t.Fatalf("expected Number 10, got %v", result.Inspect())
	}
}

func TestDefAndCallScenario(t *testing.T) {
	v := New()
	result, err := v.Exec(`(def square (x) (* x x)) (square 10)`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsNumber() || result.AsNumber() != 100 {
		t.Fatalf("expected Number 100, got %v", result.Inspect())
	}
}

func TestNestedClosureCaptureScenario(t *testing.T) {
	v := New()
	result, err := v.Exec(`(def t (a q) (begin (lambda (b) (lambda (c) (+ a (+ b c)))))) (((t 1 10) 2) 3)`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsNumber() || result.AsNumber() != 6 {
		t.Fatalf("expected Number 6, got %v", result.Inspect())
	}
}

func TestClosuresFromRepeatedCallsDoNotShareCells(t *testing.T) {
	v := New()
	if _, err := v.Exec(`(def make-adder (x) (begin (lambda (y) (+ x y))))
		(var f1 (make-adder 1))
		(var f2 (make-adder 100))`); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	r1, err := v.Exec(`(f1 5)`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !r1.IsNumber() || r1.AsNumber() != 6 {
		t.Fatalf("expected f1 to still close over x=1 and return 6, got %v", r1.Inspect())
	}

	r2, err := v.Exec(`(f2 5)`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !r2.IsNumber() || r2.AsNumber() != 105 {
		t.Fatalf("expected f2 to close over its own x=100 and return 105, got %v", r2.Inspect())
	}
}

func TestStringConcatenationScenario(t *testing.T) {
	v := New()
	result, err := v.Exec(`(+ "Hello, " "World!")`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsString() || result.AsString().Value != "Hello, World!" {
		t.Fatalf("expected String \"Hello, World!\", got %v", result.Inspect())
	}
}

func TestGCReclaimsUnreferencedConcatenations(t *testing.T) {
	v := New()
	_, err := v.Exec(`(var acc "") (var i 0)
		(while (< i 300)
		  (begin
		    (set acc (+ acc "x"))
		    (set i (+ i 1))))
		acc`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.Heap().BytesAllocated >= gcThreshold {
		t.Fatalf("expected bytesAllocated to stay under threshold after GC, got %d", v.Heap().BytesAllocated)
	}
}

func TestGlobalsPersistAcrossExecCalls(t *testing.T) {
	v := New()
	if _, err := v.Exec(`(var counter 0)`); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := v.Exec(`(set counter (+ counter 1))`); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	result, err := v.Exec(`counter`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsNumber() || result.AsNumber() != 1 {
		t.Fatalf("expected counter to persist as Number 1, got %v", result.Inspect())
	}
}

func TestNativeSquareIsCallable(t *testing.T) {
	v := New()
	result, err := v.Exec(`(native-square 7)`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsNumber() || result.AsNumber() != 49 {
		t.Fatalf("expected Number 49, got %v", result.Inspect())
	}
}

func TestUndefinedReferenceSurfacesAsCompileError(t *testing.T) {
	v := New()
	if _, err := v.Exec(`totally-undefined-name`); err == nil {
		t.Fatalf("expected an error for an undefined reference")
	}
}

func TestStackOverflowIsARuntimeError(t *testing.T) {
	v := New()
	defer func() {
		r := recover()
		if r == nil {
			t.Fatalf("expected push past stackLimit to panic with a RuntimeError")
		}
		if _, ok := r.(error); !ok {
			t.Fatalf("expected panic value to be an error, got %T", r)
		}
	}()
	for i := 0; i <= stackLimit; i++ {
		v.push(value.Number(float64(i)))
	}
}
