package gc

import (
	"testing"

	"github.com/dr8co/eva/value"
)

func TestCollectSweepsUnreachableObjects(t *testing.T) {
	heap := value.NewHeap()
	reachable := heap.AllocString("kept")
	heap.AllocString("garbage")

	reclaimed := Collect(heap, []value.Object{reachable})
	if reclaimed != 1 {
		t.Fatalf("expected 1 object reclaimed, got %d", reclaimed)
	}
	if len(heap.Objects) != 1 || heap.Objects[0] != value.Object(reachable) {
		t.Fatalf("expected only the reachable string to survive, got %v", heap.Objects)
	}
}

func TestCollectTracesFunctionCells(t *testing.T) {
	heap := value.NewHeap()
	co := heap.AllocCode("f", 0)
	cell := heap.AllocCell(value.Number(1))
	fn := heap.AllocFunction(co)
	fn.Cells = append(fn.Cells, cell)

	reclaimed := Collect(heap, []value.Object{fn})
	if reclaimed != 0 {
		t.Fatalf("expected the function, its code, and its cell to all survive, reclaimed %d", reclaimed)
	}
}

func TestCollectTracesCodeConstants(t *testing.T) {
	heap := value.NewHeap()
	mainCo := heap.AllocCode("main", 0)
	nestedCo := heap.AllocCode("lambda", 0)
	nestedFn := heap.AllocFunction(nestedCo)
	mainCo.AddConstant(value.FromObject(nestedFn))

	reclaimed := Collect(heap, []value.Object{mainCo})
	if reclaimed != 0 {
		t.Fatalf("expected a constant-referenced function to survive via its owning Code, reclaimed %d", reclaimed)
	}
}

func TestCollectTracesCellValue(t *testing.T) {
	heap := value.NewHeap()
	inner := heap.AllocString("boxed")
	cell := heap.AllocCell(value.FromObject(inner))

	reclaimed := Collect(heap, []value.Object{cell})
	if reclaimed != 0 {
		t.Fatalf("expected a cell's boxed object to survive, reclaimed %d", reclaimed)
	}
}
