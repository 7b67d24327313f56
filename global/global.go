// Package global implements Eva's global environment: an ordered table of
// named bindings shared by every scope in a program, per §4.1.
package global

import (
	"fmt"

	"github.com/dr8co/eva/value"
)

// Var is one entry of the global table: a name paired with its current value.
type Var struct {
	Name  string
	Value value.Value
}

// Global is the global environment: an append-only, order-preserving list of
// named bindings. Names resolve to a stable index assigned the first time
// they're defined, which the compiler bakes into GET_GLOBAL/SET_GLOBAL
// operands.
type Global struct {
	Vars []Var
}

// New creates an empty Global environment.
func New() *Global {
	return &Global{}
}

// Define reserves a slot for name, initialized to Number(0), unless a
// binding for name already exists. Returns the binding's index either way.
func (g *Global) Define(name string) int {
	if idx := g.GetIndex(name); idx != -1 {
		return idx
	}
	g.Vars = append(g.Vars, Var{Name: name, Value: value.Zero})
	return len(g.Vars) - 1
}

// AddConst installs name as a constant numeric binding, unless name is
// already bound.
func (g *Global) AddConst(name string, v float64) {
	if g.Exists(name) {
		return
	}
	g.Vars = append(g.Vars, Var{Name: name, Value: value.Number(v)})
}

// AddNativeFunction allocates a Native object backing fn and installs it as
// a global binding named name, unless name is already bound.
func (g *Global) AddNativeFunction(heap *value.Heap, name string, fn value.NativeFunc, arity int) {
	if g.Exists(name) {
		return
	}
	native := heap.AllocNative(name, arity, fn)
	g.Vars = append(g.Vars, Var{Name: name, Value: value.FromObject(native)})
}

// Get returns the value bound at index.
func (g *Global) Get(index int) (value.Value, error) {
	if index < 0 || index >= len(g.Vars) {
		return value.Value{}, fmt.Errorf("global %d doesn't exist", index)
	}
	return g.Vars[index].Value, nil
}

// Set overwrites the value bound at index.
func (g *Global) Set(index int, v value.Value) error {
	if index < 0 || index >= len(g.Vars) {
		return fmt.Errorf("global %d doesn't exist", index)
	}
	g.Vars[index].Value = v
	return nil
}

// GetIndex returns the index of name, searching from the most recently
// defined binding backward so later redefinitions shadow earlier ones, or
// -1 if name is not bound.
func (g *Global) GetIndex(name string) int {
	for i := len(g.Vars) - 1; i >= 0; i-- {
		if g.Vars[i].Name == name {
			return i
		}
	}
	return -1
}

// Exists reports whether name is currently bound.
func (g *Global) Exists(name string) bool {
	return g.GetIndex(name) != -1
}
