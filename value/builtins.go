package value

import (
	"fmt"
	"time"
)

// BuiltinSpec describes one native function to be installed as a global
// binding: its name, arity, and the callback that implements it. Package
// global consumes these to populate the global environment at VM startup.
type BuiltinSpec struct {
	Name  string
	Arity int
	Fn    NativeFunc
}

// Builtins returns the natives every Eva program starts with: native-square
// from §6, plus native-print and native-clock.
func Builtins() []BuiltinSpec {
	return []BuiltinSpec{
		{Name: "native-square", Arity: 1, Fn: nativeSquare},
		{Name: "native-print", Arity: 1, Fn: nativePrint},
		{Name: "native-clock", Arity: 0, Fn: nativeClock},
	}
}

// nativeSquare computes its single argument times itself, per §6's worked
// example of a native call.
func nativeSquare(ctx NativeContext) {
	arg := ctx.Peek(0)
	ctx.Push(Number(arg.AsNumber() * arg.AsNumber()))
}

// nativePrint writes its single argument's Inspect form to standard output
// followed by a newline, and returns that same argument so it can be chained
// inside an expression.
func nativePrint(ctx NativeContext) {
	arg := ctx.Peek(0)
	fmt.Println(arg.Inspect())
	ctx.Push(arg)
}

// nativeClock returns the number of seconds since the Unix epoch, as a
// Number, for timing Eva programs from within Eva itself.
func nativeClock(ctx NativeContext) {
	ctx.Push(Number(float64(time.Now().UnixNano()) / 1e9))
}
