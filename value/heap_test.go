package value

import "testing"

func TestHeapAllocateTracksBytes(t *testing.T) {
	h := NewHeap()
	h.AllocString("hello")
	if len(h.Objects) != 1 {
		t.Fatalf("expected 1 tracked object, got %d", len(h.Objects))
	}
	if h.BytesAllocated != stringOverhead+len("hello") {
		t.Fatalf("expected bytesAllocated %d, got %d", stringOverhead+len("hello"), h.BytesAllocated)
	}
}

func TestHeapSweepRemovesUnmarked(t *testing.T) {
	h := NewHeap()
	keep := h.AllocString("keep")
	drop := h.AllocString("drop")

	Mark(keep)
	h.Sweep()

	if len(h.Objects) != 1 || h.Objects[0] != Object(keep) {
		t.Fatalf("expected only the marked object to survive, got %v", h.Objects)
	}
	if h.BytesAllocated != stringOverhead+len("keep") {
		t.Fatalf("expected bytesAllocated to reflect only survivors, got %d", h.BytesAllocated)
	}
	if keep.header().Marked {
		t.Fatalf("expected survivor's mark bit to be reset after sweep")
	}
	_ = drop
}

func TestBuiltinsNativeSquare(t *testing.T) {
	h := NewHeap()
	_ = h

	var pushed Value
	ctx := &fakeCtx{top: Number(4)}
	for _, b := range Builtins() {
		if b.Name == "native-square" {
			b.Fn(ctx)
		}
	}
	pushed = ctx.pushed
	if pushed.AsNumber() != 16 {
		t.Fatalf("expected native-square(4) = 16, got %v", pushed.AsNumber())
	}
}

type fakeCtx struct {
	top    Value
	pushed Value
}

func (f *fakeCtx) Peek(offset int) Value { return f.top }
func (f *fakeCtx) Push(v Value)          { f.pushed = v }
