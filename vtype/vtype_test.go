package vtype

import "testing"

func TestNewAndHint(t *testing.T) {
	a := NewArena()
	h := a.New()

	info := a.Get(h)
	if info.Kind != KindPrimitive || info.Primitive != Unknown || info.Confidence != None {
		t.Fatalf("New() = %+v, want Unknown/None", info)
	}

	a.HintPrimitive(h, Int, Low)
	if got := a.Get(h); got.Primitive != Int || got.Confidence != Low {
		t.Fatalf("after Hint(Int,Low): %+v", got)
	}

	// Confidence never decreases: a Low hint after High is ignored.
	a.HintPrimitive(h, Int, High)
	a.HintPrimitive(h, Float, Low)
	if got := a.Get(h); got.Primitive != Int || got.Confidence != High {
		t.Fatalf("lower-confidence hint should be ignored, got %+v", got)
	}
}

func TestHintStructOfOneCoercion(t *testing.T) {
	a := NewArena()
	h := a.NewVector3()

	// Hinting a primitive at a struct cell forwards to field 0.
	a.HintPrimitive(h, Float, High)
	f0 := a.Get(h).Fields[0]
	if got := a.Get(f0); got.Primitive != Float {
		t.Fatalf("expected field 0 to carry the hint, got %+v", got)
	}
}

func TestStructFieldPromotion(t *testing.T) {
	a := NewArena()
	h := a.New()
	a.HintPrimitive(h, Int, Medium)

	f1 := a.StructField(h, 1)
	info := a.Get(h)
	if info.Kind != KindStruct {
		t.Fatalf("StructField(h,1) should promote h to a struct, got %+v", info)
	}
	if len(info.Fields) != 2 {
		t.Fatalf("expected 2 fields after StructField(h,1), got %d", len(info.Fields))
	}
	if info.Fields[1] != f1 {
		t.Fatalf("StructField(h,1) returned %v, but stored field is %v", f1, info.Fields[1])
	}
	// field 0 should still be the original scalar's handle/type.
	if got := a.Get(info.Fields[0]); got.Primitive != Int {
		t.Fatalf("field 0 lost the original scalar type: %+v", got)
	}
}

func TestStructFieldZeroIsIdentity(t *testing.T) {
	a := NewArena()
	h := a.New()
	if got := a.StructField(h, 0); got != h {
		t.Fatalf("StructField(h,0) = %v, want h itself (%v)", got, h)
	}
}

func TestLinkUnifiesByConfidence(t *testing.T) {
	a := NewArena()
	lo := a.New()
	hi := a.New()
	a.HintPrimitive(hi, Float, High)

	a.Link(lo, hi)
	if a.resolve(lo) != a.resolve(hi) {
		t.Fatal("Link should unify lo and hi into one root")
	}
	if got := a.Get(lo); got.Primitive != Float || got.Confidence != High {
		t.Fatalf("after Link, lo should resolve to hi's info, got %+v", got)
	}
}

func TestLinkIsIdempotentAndAcyclic(t *testing.T) {
	a := NewArena()
	x := a.New()
	y := a.New()

	a.Link(x, y)
	a.Link(y, x) // should not infinite-loop or re-redirect
	a.Link(x, x)

	if a.resolve(x) != a.resolve(y) {
		t.Fatal("x and y should remain unified")
	}
}

func TestSizeOfStruct(t *testing.T) {
	a := NewArena()
	v := a.NewVector3()
	if got := a.Size(v); got != 3 {
		t.Errorf("Size(vector3) = %d, want 3", got)
	}

	scalar := a.New()
	if got := a.Size(scalar); got != 1 {
		t.Errorf("Size(scalar) = %d, want 1", got)
	}
}

func TestSizeHandlesCycles(t *testing.T) {
	a := NewArena()
	h := a.New()
	a.StructSize(h, 2)
	fields := a.Get(h).Fields

	// Force a cycle: field 0 becomes a struct containing h itself.
	a.cells[a.resolve(fields[0])].info = TypeInfo{Kind: KindStruct, Fields: []Handle{h}}

	// Must terminate rather than recurse forever.
	_ = a.Size(h)
}

func TestArrayItemTypeAndRefType(t *testing.T) {
	a := NewArena()
	h := a.New()

	item := a.ArrayItemType(h)
	if a.Get(h).Kind != KindArray {
		t.Fatalf("ArrayItemType should promote h to KindArray, got %+v", a.Get(h))
	}
	if a.ArrayItemType(h) != item {
		t.Error("ArrayItemType should be stable across calls")
	}

	r := a.New()
	inner := a.RefType(r)
	if a.Get(r).Kind != KindRef {
		t.Fatalf("RefType should promote r to KindRef, got %+v", a.Get(r))
	}
	if a.RefType(r) != inner {
		t.Error("RefType should be stable across calls")
	}
}
