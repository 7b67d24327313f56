package global

import "github.com/dr8co/eva/value"

// Standard installs the globals every Eva program starts with: VERSION and
// the natives returned by value.Builtins, per §6.1. Embedders call this
// before compiling and running a program, and may register further natives
// afterward via AddNativeFunction.
func Standard(heap *value.Heap) *Global {
	g := New()
	g.AddConst("VERSION", 1)
	for _, b := range value.Builtins() {
		g.AddNativeFunction(heap, b.Name, b.Fn, b.Arity)
	}
	return g
}
