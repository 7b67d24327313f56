// Package gc implements Eva's garbage collector: a precise mark-and-sweep
// pass over the live-object set tracked by a [value.Heap], per §4.5.
package gc

import "github.com/dr8co/eva/value"

// Collect runs one full mark-and-sweep cycle over heap, starting from roots,
// and returns the number of objects reclaimed.
func Collect(heap *value.Heap, roots []value.Object) int {
	before := len(heap.Objects)
	mark(roots)
	heap.Sweep()
	return before - len(heap.Objects)
}

// mark walks the transitive closure of roots, setting each reached object's
// mark bit.
func mark(roots []value.Object) {
	worklist := append([]value.Object{}, roots...)

	for len(worklist) > 0 {
		obj := worklist[len(worklist)-1]
		worklist = worklist[:len(worklist)-1]

		if obj == nil || value.IsMarked(obj) {
			continue
		}
		value.Mark(obj)
		worklist = append(worklist, pointersFrom(obj)...)
	}
}

// pointersFrom returns the outgoing object pointers obj holds, for the
// collector to trace onward. The original reference collector only follows
// a Function's captured cells; this collector additionally follows a Code
// object's constant pool (reaching a Function or nested Code that hasn't yet
// been installed anywhere but main's program) and a Cell's boxed value (when
// it holds another object), since Eva's Code and Cell variants can
// themselves hold live object references that must not be swept
// prematurely.
func pointersFrom(obj value.Object) []value.Object {
	switch o := obj.(type) {
	case *value.Function:
		pointers := make([]value.Object, 0, len(o.Cells)+1)
		pointers = append(pointers, o.Code)
		for _, cell := range o.Cells {
			pointers = append(pointers, cell)
		}
		return pointers

	case *value.Code:
		var pointers []value.Object
		for _, c := range o.Constants {
			if c.IsObject() && c.AsObject() != nil {
				pointers = append(pointers, c.AsObject())
			}
		}
		return pointers

	case *value.Cell:
		if o.Value.IsObject() && o.Value.AsObject() != nil {
			return []value.Object{o.Value.AsObject()}
		}
		return nil
	}
	return nil
}
