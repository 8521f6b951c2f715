// Package scavenge implements corevm's new-space garbage collector
// (spec.md §4.3): a single-threaded, stop-the-world Cheney-style copying
// collector that promotes long-lived survivors into old space.
package scavenge

import (
	"github.com/tinyvm/corevm/arch"
	"github.com/tinyvm/corevm/internal/core"
	"github.com/tinyvm/corevm/vm/barrier"
	"github.com/tinyvm/corevm/vm/gc/roots"
	"github.com/tinyvm/corevm/vm/heap"
	"github.com/tinyvm/corevm/vm/object"
	"github.com/tinyvm/corevm/vm/space"
	"github.com/tinyvm/corevm/vm/value"
)

// PromotionAge is the number of scavenge cycles an object must survive
// before it is tenured into old space instead of copied within new space
// (spec.md §2's "simple age criterion"; generational promotion
// heuristics beyond this are out of scope per spec.md §1).
const PromotionAge = 2

// Stats summarizes one scavenge cycle, for reporting (spec.md §8's
// testable properties reference before/after state) and for the
// trigger-old-space-gc decision.
type Stats struct {
	BytesCopied     int64
	BytesPromoted   int64
	ObjectsVisited  int
	PromotedObjects int
}

// Scavenger runs one new-space collection against a heap and root source.
type Scavenger struct {
	W    arch.Word
	Heap *heap.TwoSpaceHeap
	RS   *barrier.RememberedSet
	Src  roots.Source

	toSpace *space.SemiSpace
	gh      gcHeap // resolves addresses in from, to, old, or program space
	queue   []core.Address // grey objects already copied to to-space, not yet scanned
	stats   Stats

	// TriggerOldSpaceGC is set when promotions this cycle suggest old
	// space should be collected soon (spec.md §4.3 step 6).
	TriggerOldSpaceGC bool
}

// gcHeap resolves an address to whichever space currently contains it. A
// plain space only knows its own objects, but Layout.Size needs to chase
// an object's class pointer, and a class almost always lives in a
// different space than the object pointing to it (spec.md §9) — so every
// Layout the scavenger builds is read through this instead of a bare
// space.
type gcHeap struct {
	from, to *space.SemiSpace
	old      *space.OldSpace
	program  *space.SemiSpace
}

func (g gcHeap) spaceFor(a core.Address) object.Heap {
	if g.from != nil && g.from.Contains(a) {
		return g.from
	}
	if g.to != nil && g.to.Contains(a) {
		return g.to
	}
	if g.old != nil && g.old.Contains(a) {
		return g.old
	}
	if g.program != nil && g.program.Contains(a) {
		return g.program
	}
	return nil
}

func (g gcHeap) ReadWord(a core.Address) uint64      { return g.spaceFor(a).ReadWord(a) }
func (g gcHeap) WriteWord(a core.Address, v uint64)  { g.spaceFor(a).WriteWord(a, v) }
func (g gcHeap) ReadByte(a core.Address) byte        { return g.spaceFor(a).ReadByte(a) }
func (g gcHeap) WriteByte(a core.Address, v byte)    { g.spaceFor(a).WriteByte(a, v) }
func (g gcHeap) Slice(a core.Address, n int64) []byte { return g.spaceFor(a).Slice(a, n) }

func (s *Scavenger) layout() object.Layout {
	return object.Layout{H: s.gh, W: s.W}
}

// Run performs one full scavenge cycle and returns its statistics.
func (s *Scavenger) Run() (Stats, error) {
	s.stats = Stats{}
	from := s.Heap.New()

	to, err := space.NewSemiSpace("new", s.W, space.ChunkSize, from.CanResize())
	if err != nil {
		return s.stats, err
	}
	s.toSpace = to
	s.gh = gcHeap{from: from, to: to, old: s.Heap.Old, program: s.Heap.Program}

	// Step: visit roots (named program roots, every process's stack and
	// ports, and the stack-chain root held by whatever program-GC state
	// is currently live, which VisitRoots folds in like any other slot).
	s.Src.VisitRoots(func(sl roots.Slot) {
		s.forwardSlot(from, sl)
	})

	// Step: the remembered set stands in for "roots from old space",
	// interleaved with greying of promoted objects per spec.md §4.3's
	// ordering note.
	s.scanRememberedSet(from)

	// Step: drain the grey queue — both newly-copied to-space objects and
	// newly-promoted old-space objects — until nothing is left unscanned.
	for len(s.queue) > 0 {
		a := s.queue[len(s.queue)-1]
		s.queue = s.queue[:len(s.queue)-1]
		s.scanObject(from, a)
	}

	// Cards are pruned inline by scanRememberedSet once rescanned (spec.md
	// §4.2: "cards whose contents no longer reference new space are
	// dropped"); an object promoted this cycle that still references new
	// space has its field's card recorded by scanObject, so no further step
	// is needed here.

	// Step: swap semispaces and reclaim the old from-space entirely (it is
	// being discarded, not recycled, so every chunk is freed).
	s.Heap.SetNew(to)
	from.Free()

	return s.stats, nil
}

// forwardSlot reads a root slot and, if it currently points into
// from-space, evacuates the target and rewrites the slot to the new
// (to-space or promoted) address.
func (s *Scavenger) forwardSlot(from *space.SemiSpace, sl roots.Slot) {
	v := sl.Get()
	if !v.IsHeapObject() {
		return
	}
	a := v.HeapAddress()
	if !from.Contains(a) {
		return // not in from-space: already old/program space, or null
	}
	newAddr := s.evacuate(from, a)
	sl.Set(value.FromHeapObject(newAddr))
}

// scanRememberedSet walks every card previously recorded as containing an
// old→new pointer, finds every object whose start lies in that card via
// the old-space object-start table, and forwards any of its pointer
// fields that reference from-space (spec.md §4.2, §4.3).
func (s *Scavenger) scanRememberedSet(from *space.SemiSpace) {
	old := s.Heap.Old
	l := s.layout()
	for _, card := range s.RS.Cards() {
		stillDirty := false
		for _, ch := range old.Chunks() {
			if card < ch.Base() || card >= ch.End() {
				continue
			}
			for a := card; a < card.Add(barrier.CardSize) && a < ch.End(); a = a.Add(int64(s.W.PointerSize)) {
				if !ch.IsObjectStart(a) {
					continue
				}
				obj := a
				l.ForEachPointer(obj, object.PointerOpts{}, func(field core.Address) bool {
					v := value.FromWord(old.ReadWord(field))
					if !v.IsHeapObject() {
						return true
					}
					fa := v.HeapAddress()
					if from.Contains(fa) {
						newAddr := s.evacuate(from, fa)
						old.WriteWord(field, value.FromHeapObject(newAddr).Word())
						stillDirty = true
					}
					return true
				})
			}
		}
		if !stillDirty {
			s.RS.Remove(card)
		}
	}
}

// scanObject scans one grey object in to-space or old space (a promoted
// object) for pointers still referencing from-space, forwarding them.
func (s *Scavenger) scanObject(from *space.SemiSpace, a core.Address) {
	h := s.heapContaining(a)
	l := s.layout()
	s.stats.ObjectsVisited++
	l.ForEachPointer(a, object.PointerOpts{}, func(field core.Address) bool {
		v := value.FromWord(h.ReadWord(field))
		if !v.IsHeapObject() {
			return true
		}
		fa := v.HeapAddress()
		if from.Contains(fa) {
			newAddr := s.evacuate(from, fa)
			h.WriteWord(field, value.FromHeapObject(newAddr).Word())
			if s.Heap.Old.Contains(a) && s.toSpace.Contains(newAddr) {
				// A promoted (old-space) object now points back into new
				// space: that's exactly what the write barrier is for
				// going forward, so record it the same way.
				s.RS.Add(field)
			}
		}
		return true
	})
}

func (s *Scavenger) heapContaining(a core.Address) object.Heap {
	if s.Heap.Old.Contains(a) {
		return s.Heap.Old
	}
	return s.toSpace
}

// evacuate copies the object at a (in from-space) to its destination —
// to-space, or old space if it has survived PromotionAge cycles — unless
// it has already been forwarded this cycle, in which case the existing
// forwarding pointer is returned (spec.md §4.3).
func (s *Scavenger) evacuate(from *space.SemiSpace, a core.Address) core.Address {
	l := s.layout()
	if to, ok := l.ForwardingPointer(a); ok {
		return to
	}
	size := l.Size(a) * int64(s.W.PointerSize)
	age := l.Age(a)

	var dest core.Address
	var destHeap object.Heap
	promoting := age >= PromotionAge
	if promoting {
		dest = s.Heap.AllocateInOldSpace(size)
		destHeap = s.Heap.Old
		s.stats.BytesPromoted += size
		s.stats.PromotedObjects++
		s.TriggerOldSpaceGC = s.TriggerOldSpaceGC || s.stats.PromotedObjects > promotionStormThreshold
	} else {
		dest = s.toSpace.Allocate(size)
		destHeap = s.toSpace
		s.stats.BytesCopied += size
	}
	if dest == space.FailureAddress {
		// Destination space was supposed to have room; in a
		// no-allocation-failure scavenge this is a bug in capacity
		// planning, not a recoverable condition.
		panic("scavenge: evacuation target allocation failed")
	}

	copy(destHeap.Slice(dest, size), from.Slice(a, size))
	if promoting {
		l.SetAge(dest, 0)
	} else {
		l.SetAge(dest, age+1)
	}

	l.SetForwardingPointer(a, dest)
	s.queue = append(s.queue, dest)
	return dest
}

const promotionStormThreshold = 64
