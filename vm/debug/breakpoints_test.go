package debug

import (
	"testing"

	"github.com/tinyvm/corevm/arch"
	"github.com/tinyvm/corevm/internal/core"
	"github.com/tinyvm/corevm/vm/gc/roots"
	"github.com/tinyvm/corevm/vm/object"
	"github.com/tinyvm/corevm/vm/space"
	"github.com/tinyvm/corevm/vm/value"
)

func newTestLayout(t *testing.T) object.Layout {
	t.Helper()
	s, err := space.NewSemiSpace("test", arch.Host, space.ChunkSize, true)
	if err != nil {
		t.Fatalf("NewSemiSpace: %v", err)
	}
	return object.Layout{H: s, W: arch.Host}
}

// allocFunction builds a minimal function object with bytecodeLen bytes of
// bytecode, just enough for BytecodeAddressFor to resolve an index.
func allocFunction(t *testing.T, l object.Layout, bytecodeLen int64) core.Address {
	t.Helper()
	s := l.H.(*space.SemiSpace)
	bcWords := (bytecodeLen + int64(l.W.PointerSize) - 1) / int64(l.W.PointerSize)
	total := (object.HeaderWords + 3 + bcWords) * int64(l.W.PointerSize)
	a := s.Allocate(total)
	if a == space.FailureAddress {
		t.Fatal("Allocate failed for function")
	}
	l.SetFunctionArity(a, 0)
	l.SetFunctionBytecodeLength(a, bytecodeLen)
	l.SetFunctionLiteralCount(a, 0)
	return a
}

func TestSetBreakpointIsIdempotent(t *testing.T) {
	l := newTestLayout(t)
	fn := allocFunction(t, l, 8)
	fv := value.FromHeapObject(fn)
	d := New()

	id1 := d.SetBreakpoint(l, fv, 2, false, value.Value(0), 0, false)
	id2 := d.SetBreakpoint(l, fv, 2, false, value.Value(0), 0, false)
	if id1 != id2 {
		t.Errorf("setting the same (function, index) twice gave ids %d and %d, want equal", id1, id2)
	}
	if len(d.Breakpoints()) != 1 {
		t.Errorf("Breakpoints() len = %d, want 1", len(d.Breakpoints()))
	}
}

func TestSetBreakpointDistinctIndices(t *testing.T) {
	l := newTestLayout(t)
	fn := allocFunction(t, l, 8)
	fv := value.FromHeapObject(fn)
	d := New()

	d.SetBreakpoint(l, fv, 0, false, value.Value(0), 0, false)
	d.SetBreakpoint(l, fv, 4, false, value.Value(0), 0, false)
	if len(d.Breakpoints()) != 2 {
		t.Errorf("Breakpoints() len = %d, want 2", len(d.Breakpoints()))
	}
}

func TestShouldBreakPlainBreakpoint(t *testing.T) {
	l := newTestLayout(t)
	fn := allocFunction(t, l, 8)
	fv := value.FromHeapObject(fn)
	d := New()
	d.SetBreakpoint(l, fv, 3, false, value.Value(0), 0, false)

	bcp := l.BytecodeAddressFor(fn, 3)
	if !d.ShouldBreak(bcp, 0) {
		t.Error("ShouldBreak should fire at a set breakpoint's bcp")
	}
	if d.ShouldBreak(bcp.Add(1), 0) {
		t.Error("ShouldBreak should not fire at an unrelated bcp")
	}
}

func TestShouldBreakOneShotRemovesItself(t *testing.T) {
	l := newTestLayout(t)
	fn := allocFunction(t, l, 8)
	fv := value.FromHeapObject(fn)
	d := New()
	d.SetBreakpoint(l, fv, 0, true, value.Value(0), 0, false)
	bcp := l.BytecodeAddressFor(fn, 0)

	if !d.ShouldBreak(bcp, 0) {
		t.Fatal("one-shot breakpoint should fire the first time")
	}
	if d.ShouldBreak(bcp, 0) {
		t.Error("one-shot breakpoint should not fire a second time")
	}
	if len(d.Breakpoints()) != 0 {
		t.Error("one-shot breakpoint should be removed after it fires")
	}
}

func TestShouldBreakStepOverChecksStackHeight(t *testing.T) {
	l := newTestLayout(t)
	fn := allocFunction(t, l, 8)
	fv := value.FromHeapObject(fn)
	d := New()
	d.SetBreakpoint(l, fv, 0, false, value.Value(0), 5, true)
	bcp := l.BytecodeAddressFor(fn, 0)

	if d.ShouldBreak(bcp, 4) {
		t.Error("a step-over breakpoint should not fire when sp does not match StackHeight")
	}
	if !d.ShouldBreak(bcp, 5) {
		t.Error("a step-over breakpoint should fire when sp matches StackHeight")
	}
}

func TestShouldBreakSteppingFiresEverywhere(t *testing.T) {
	l := newTestLayout(t)
	fn := allocFunction(t, l, 8)
	d := New()
	d.SetStepping(true)
	if !d.ShouldBreak(fn, 0) {
		t.Error("IsStepping should make ShouldBreak fire at any bcp")
	}
}

func TestDeleteBreakpoint(t *testing.T) {
	l := newTestLayout(t)
	fn := allocFunction(t, l, 8)
	fv := value.FromHeapObject(fn)
	d := New()
	id := d.SetBreakpoint(l, fv, 0, false, value.Value(0), 0, false)
	d.DeleteBreakpoint(id)
	if len(d.Breakpoints()) != 0 {
		t.Error("DeleteBreakpoint should remove the breakpoint")
	}
	bcp := l.BytecodeAddressFor(fn, 0)
	if d.ShouldBreak(bcp, 0) {
		t.Error("a deleted breakpoint should no longer fire")
	}
	// Deleting an id twice is a no-op, not an error.
	d.DeleteBreakpoint(id)
}

func TestRebuildReKeysAfterMove(t *testing.T) {
	l := newTestLayout(t)
	fn := allocFunction(t, l, 8)
	fv := value.FromHeapObject(fn)
	d := New()
	d.SetBreakpoint(l, fv, 1, false, value.Value(0), 0, false)

	moved := fn.Add(4096) // pretend a program GC relocated the function
	d.byID[1].Function = value.FromHeapObject(moved)
	d.Rebuild(l)

	newBCP := l.BytecodeAddressFor(moved, 1)
	if !d.ShouldBreak(newBCP, 0) {
		t.Error("Rebuild should re-key the breakpoint to the function's new bcp")
	}
	oldBCP := l.BytecodeAddressFor(fn, 1)
	if d.ShouldBreak(oldBCP, 0) {
		t.Error("the stale bcp should no longer trigger after Rebuild")
	}
}

func TestVisitProcessAndProgramPointersAreDistinct(t *testing.T) {
	l := newTestLayout(t)
	fn := allocFunction(t, l, 8)
	fv := value.FromHeapObject(fn)
	d := New()
	d.SetBreakpoint(l, fv, 0, false, value.FromSmi(7), 0, false)

	var sawProgram, sawProcess value.Value
	d.VisitProgramPointers(func(sl roots.Slot) { sawProgram = sl.Get() })
	d.VisitProcessPointers(func(sl roots.Slot) { sawProcess = sl.Get() })

	if sawProgram != fv {
		t.Errorf("VisitProgramPointers should hand back the Function field, got %v want %v", sawProgram, fv)
	}
	if sawProcess != value.FromSmi(7) {
		t.Errorf("VisitProcessPointers should hand back the Coroutine field, got %v want %v", sawProcess, value.FromSmi(7))
	}

	var newCoroutine value.Value
	d.VisitProcessPointers(func(sl roots.Slot) { sl.Set(value.FromSmi(99)) })
	d.VisitProcessPointers(func(sl roots.Slot) { newCoroutine = sl.Get() })
	if newCoroutine != value.FromSmi(99) {
		t.Errorf("VisitProcessPointers Set should mutate the breakpoint's Coroutine field, got %v", newCoroutine)
	}
}
