package scavenge

import (
	"testing"

	"github.com/tinyvm/corevm/arch"
	"github.com/tinyvm/corevm/internal/core"
	"github.com/tinyvm/corevm/vm/barrier"
	"github.com/tinyvm/corevm/vm/gc/roots"
	"github.com/tinyvm/corevm/vm/heap"
	"github.com/tinyvm/corevm/vm/object"
	"github.com/tinyvm/corevm/vm/value"
)

// fakeSource is a roots.Source backed by a plain slice of slots, standing
// in for vm/runtime.Program in these unit tests.
type fakeSource struct {
	slots []roots.Slot
}

func (f *fakeSource) VisitRoots(fn func(roots.Slot)) {
	for _, s := range f.slots {
		fn(s)
	}
}

// fixture bundles a heap and a single one-field FormatInstance class,
// living in old space (with a self-describing meta class as its class
// pointer) so it survives a scavenge cycle intact.
type fixture struct {
	h     *heap.TwoSpaceHeap
	l     object.Layout
	class core.Address
	rs    *barrier.RememberedSet
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	h, err := heap.NewTwoSpaceHeap(arch.Host)
	if err != nil {
		t.Fatalf("NewTwoSpaceHeap: %v", err)
	}
	l := object.Layout{H: h, W: arch.Host}
	meta := h.AllocateInOldSpace(object.ClassSize * int64(arch.Host.PointerSize))
	l.SetInstanceFormat(meta, object.FormatClass)
	l.SetClassPointer(meta, meta)
	class := h.AllocateInOldSpace(object.ClassSize * int64(arch.Host.PointerSize))
	l.SetClassPointer(class, meta)
	l.SetInstanceFormat(class, object.FormatInstance)
	l.SetNumInstanceFields(class, 1)
	return &fixture{h: h, l: l, class: class, rs: barrier.New()}
}

func (f *fixture) newInstance(t *testing.T, field value.Value) core.Address {
	t.Helper()
	a := f.h.Allocate(int64(object.HeaderWords+1) * int64(arch.Host.PointerSize))
	f.l.SetClassPointer(a, f.class)
	f.l.SetInstanceFieldAt(a, 0, field)
	return a
}

func (f *fixture) newScavenger() *Scavenger {
	return &Scavenger{W: arch.Host, Heap: f.h, RS: f.rs}
}

func rootSlot(v *value.Value) roots.Slot {
	return roots.Slot{
		Get: func() value.Value { return *v },
		Set: func(nv value.Value) { *v = nv },
	}
}

func TestScavengeCopiesRootObject(t *testing.T) {
	f := newFixture(t)
	root := f.newInstance(t, value.FromSmi(1))
	rootVal := value.FromHeapObject(root)
	src := &fakeSource{slots: []roots.Slot{rootSlot(&rootVal)}}

	s := f.newScavenger()
	s.Src = src
	stats, err := s.Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if stats.ObjectsVisited != 1 {
		t.Errorf("ObjectsVisited = %d, want 1", stats.ObjectsVisited)
	}
	if !rootVal.IsHeapObject() {
		t.Fatal("root slot should still hold a heap object after scavenge")
	}
	newAddr := rootVal.HeapAddress()
	if !f.h.InNewSpace(newAddr) {
		t.Error("a first-cycle survivor should be copied within new space, not promoted")
	}
	if got := f.l.InstanceFieldAt(newAddr, 0).Smi(); got != 1 {
		t.Errorf("field value after copy = %d, want 1", got)
	}
	if got := f.l.Age(newAddr); got != 1 {
		t.Errorf("Age() after one scavenge = %d, want 1", got)
	}
}

func TestScavengePromotesAfterPromotionAge(t *testing.T) {
	f := newFixture(t)
	root := f.newInstance(t, value.FromSmi(7))
	rootVal := value.FromHeapObject(root)
	src := &fakeSource{slots: []roots.Slot{rootSlot(&rootVal)}}

	for i := 0; i <= PromotionAge; i++ {
		s := f.newScavenger()
		s.Src = src
		if _, err := s.Run(); err != nil {
			t.Fatalf("Run() cycle %d: %v", i, err)
		}
	}

	if !rootVal.IsHeapObject() {
		t.Fatal("root slot should still hold a heap object")
	}
	addr := rootVal.HeapAddress()
	if !f.h.InOldSpace(addr) {
		t.Errorf("object surviving %d cycles should be promoted to old space", PromotionAge+1)
	}
	if got := f.l.Age(addr); got != 0 {
		t.Errorf("Age() after promotion = %d, want reset to 0", got)
	}
}

func TestScavengeDoesNotCopyGarbage(t *testing.T) {
	f := newFixture(t)
	f.newInstance(t, value.FromSmi(99)) // unreachable: no root ever points to it

	s := f.newScavenger()
	s.Src = &fakeSource{}
	if _, err := s.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := f.h.New().Used(); got != 0 {
		t.Errorf("new space Used() after collecting all garbage = %d, want 0", got)
	}
}

func TestScavengeFollowsRememberedSet(t *testing.T) {
	f := newFixture(t)
	newObj := f.newInstance(t, value.FromSmi(5))

	// An old-space instance whose field points at newObj, recorded via the
	// write barrier the way the interpreter would on a real store.
	oldObj := f.h.AllocateInOldSpace(int64(object.HeaderWords+1) * int64(arch.Host.PointerSize))
	f.l.SetClassPointer(oldObj, f.class)
	f.l.SetInstanceFieldAt(oldObj, 0, value.FromHeapObject(newObj))
	fieldAddr := oldObj.Add(int64(object.HeaderWords) * int64(arch.Host.PointerSize))
	f.rs.Add(fieldAddr)

	s := f.newScavenger()
	s.Src = &fakeSource{}
	if _, err := s.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}

	got := f.l.InstanceFieldAt(oldObj, 0)
	if !got.IsHeapObject() {
		t.Fatal("old object's field should still be a heap pointer")
	}
	if !f.h.InNewSpace(got.HeapAddress()) {
		t.Error("remembered-set-reachable new object should have been copied within new space")
	}
}
