// Package oldspace implements corevm's tenured-space garbage collector
// (spec.md §4.4): a tri-color mark phase shared by both reclamation
// strategies, followed by either a sweep (rebuild the free list around
// surviving objects in place) or a compaction (slide survivors to the
// front of each chunk and fix up every pointer that referenced them). The
// collector alternates strategies from one cycle to the next, since
// sweeping alone lets fragmentation grow unbounded and compacting every
// cycle costs more than most cycles need.
package oldspace

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

// Mode identifies which reclamation strategy a cycle used.
type Mode int

const (
	ModeSweep Mode = iota
	ModeCompact
)

func (m Mode) String() string {
	if m == ModeCompact {
		return "compact"
	}
	return "sweep"
}

// Stats summarizes one collection cycle.
type Stats struct {
	Mode       Mode
	LiveBytes  int64
	FreedBytes int64
}

// Collector runs mark-sweep/mark-compact cycles against one OldSpace.
type Collector struct {
	W    arch.Word
	Old  *space.OldSpace
	Heap *heap.TwoSpaceHeap // resolves class pointers that live outside Old
	Src  roots.Source

	// RS is the write barrier's remembered set (vm/barrier). Compaction
	// relocates old-space objects, so any old→new edge it preserves must
	// be re-recorded under the object's new card; nil is tolerated (the
	// set is simply left unmaintained, e.g. in tests that don't exercise
	// the scavenger) (spec.md §4.2, §4.4).
	RS *barrier.RememberedSet

	lastMode Mode
	started  bool
	queue    []core.Address
}

// Run performs one full old-space collection and returns its statistics.
// The strategy alternates: the first cycle sweeps, then compacts, then
// sweeps, and so on (spec.md §4.4).
func (c *Collector) Run() Stats {
	c.mark()

	mode := ModeSweep
	if c.started && c.lastMode == ModeSweep {
		mode = ModeCompact
	}
	c.started = true
	c.lastMode = mode

	var st Stats
	st.Mode = mode
	switch mode {
	case ModeSweep:
		st.LiveBytes, st.FreedBytes = c.sweep()
	case ModeCompact:
		st.LiveBytes, st.FreedBytes = c.compact()
	}

	c.Old.SetUsedAfterLastGC(st.LiveBytes)
	if st.FreedBytes == 0 {
		// Neither strategy reclaimed anything: the heap is genuinely full
		// of live data, so widen the threshold rather than thrash on a
		// GC that can never make progress (spec.md §4.4's pointless-GC
		// heuristic).
		c.Old.WidenBudget(c.Old.Capacity())
	}
	return st
}

// layout builds a Layout that resolves addresses through the combined
// heap, not Old alone, because Size and format dispatch need to chase a
// live object's class pointer into whatever space the class lives in
// (spec.md §9).
func (c *Collector) layout() object.Layout {
	return object.Layout{H: c.Heap, W: c.W}
}

// mark walks every root and every reachable old-space object, setting its
// mark bit. Pointers into new or program space are left alone: those
// regions are the scavenger's and the program collector's concern, not
// this one's (spec.md §9's two-visitor split).
func (c *Collector) mark() {
	c.Old.ClearAllMarks()
	c.queue = c.queue[:0]
	l := c.layout()

	c.Src.VisitRoots(func(sl roots.Slot) {
		c.markValue(sl.Get())
	})

	for len(c.queue) > 0 {
		a := c.queue[len(c.queue)-1]
		c.queue = c.queue[:len(c.queue)-1]
		l.ForEachPointer(a, object.PointerOpts{}, func(field core.Address) bool {
			c.markValue(value.FromWord(c.Old.ReadWord(field)))
			return true
		})
	}
}

func (c *Collector) markValue(v value.Value) {
	if !v.IsHeapObject() {
		return
	}
	a := v.HeapAddress()
	if !c.Old.Contains(a) || c.Old.IsMarked(a) {
		return
	}
	c.Old.SetMark(a)
	c.queue = append(c.queue, a)
}

// sweep rebuilds the free list around the surviving objects of a chunk,
// leaving every live object at its current address.
func (c *Collector) sweep() (live, freed int64) {
	l := c.layout()
	ws := int64(c.W.PointerSize)
	c.Old.ResetFreeList()
	for _, ch := range c.Old.Chunks() {
		a := ch.Base()
		end := ch.End()
		runStart := a
		inFree := false
		for a < end {
			if ch.IsObjectStart(a) {
				size := l.Size(a) * ws
				if ch.IsMarked(a) {
					if inFree {
						c.Old.AddFree(runStart, a.Sub(runStart))
						inFree = false
					}
					live += size
					a = a.Add(size)
					continue
				}
				if !inFree {
					runStart = a
					inFree = true
				}
				ch.ClearObjectStart(a)
				freed += size
				a = a.Add(size)
				continue
			}
			if !inFree {
				runStart = a
				inFree = true
			}
			a = a.Add(ws)
		}
		if inFree {
			c.Old.AddFree(runStart, a.Sub(runStart))
		}
	}
	c.Old.FinishFreeList()
	return
}

type relocation struct {
	from, to core.Address
	size     int64
}

// compact slides every live object in each chunk down to the chunk's
// base, in three passes: first decide every object's destination, then
// fix up every pointer (roots and heap) that refers to a relocated
// object while everything is still readable at its old address, and only
// then physically move the bytes (spec.md §4.4).
func (c *Collector) compact() (live, freed int64) {
	l := c.layout()
	ws := int64(c.W.PointerSize)
	c.Old.ResetFreeList()

	var relocs []relocation
	var zeroTails []func()
	for _, ch := range c.Old.Chunks() {
		dest := ch.Base()
		a := ch.Base()
		end := ch.End()
		for a < end {
			if !ch.IsObjectStart(a) {
				a = a.Add(ws)
				continue
			}
			size := l.Size(a) * ws
			if ch.IsMarked(a) {
				relocs = append(relocs, relocation{from: a, to: dest, size: size})
				dest = dest.Add(size)
			} else {
				ch.ClearObjectStart(a)
				freed += size
			}
			a = a.Add(size)
		}
		if dest < end {
			c.Old.AddFree(dest, end.Sub(dest))
			ch, dest, n := ch, dest, end.Sub(dest)
			zeroTails = append(zeroTails, func() { ch.Zero(dest, n) })
		}
	}

	newAddr := make(map[core.Address]core.Address, len(relocs))
	for _, r := range relocs {
		newAddr[r.from] = r.to
	}
	rewrite := func(v value.Value) (value.Value, bool) {
		if !v.IsHeapObject() {
			return v, false
		}
		if to, ok := newAddr[v.HeapAddress()]; ok {
			return value.FromHeapObject(to), true
		}
		return v, false
	}

	// Cards to drop and re-record in the remembered set, collected while
	// old-space headers are still intact at their old addresses. Removes
	// are applied before adds once every relocation has been examined, so
	// a stale card that happens to alias a fresh one (compaction packs
	// destinations into the same chunk the sources came from) always ends
	// up recorded, never dropped (spec.md §4.2, §4.4).
	var staleCards, freshCards []core.Address

	// Every live object's header is still intact at its old address, so
	// ForEachPointer can still dispatch on format correctly here. This
	// must happen before any bytes move.
	for _, r := range relocs {
		l.ForEachPointer(r.from, object.PointerOpts{}, func(field core.Address) bool {
			v := value.FromWord(c.Old.ReadWord(field))
			if nv, changed := rewrite(v); changed {
				c.Old.WriteWord(field, nv.Word())
				v = nv
			}
			if c.RS != nil && v.IsHeapObject() && c.Heap.InNewSpace(v.HeapAddress()) {
				newField := r.to.Add(field.Sub(r.from))
				staleCards = append(staleCards, barrier.CardOf(field))
				freshCards = append(freshCards, barrier.CardOf(newField))
			}
			return true
		})
		live += r.size
	}

	c.Src.VisitRoots(func(sl roots.Slot) {
		if nv, changed := rewrite(sl.Get()); changed {
			sl.Set(nv)
		}
	})

	// New space is not relocated by this collector, but it is read by it:
	// objects there routinely point at tenured old-space objects (that is
	// exactly the shape promotion creates), and those pointers must be
	// fixed up here too, or a live new-space object is left pointing at a
	// vacated/overwritten old address the moment bytes move below
	// (spec.md §4.4's FixPointersVisitor runs "across the entire new
	// space, old space, and roots").
	newSpace := c.Heap.New()
	newSpace.IterateObjects(func(a core.Address) int64 { return l.Size(a) * ws }, func(a core.Address) bool {
		l.ForEachPointer(a, object.PointerOpts{}, func(field core.Address) bool {
			if nv, changed := rewrite(value.FromWord(newSpace.ReadWord(field))); changed {
				newSpace.WriteWord(field, nv.Word())
			}
			return true
		})
		return true
	})

	// Relocations within a chunk are visited in increasing from-address
	// order and always slide toward the chunk base, so to <= from always:
	// copying low-to-high never clobbers source bytes a later relocation
	// still needs to read.
	for _, r := range relocs {
		if r.to == r.from {
			continue
		}
		copy(c.Old.Slice(r.to, r.size), c.Old.Slice(r.from, r.size))
		c.Old.ClearObjectStart(r.from)
		c.Old.SetObjectStart(r.to)
	}
	for _, zero := range zeroTails {
		zero()
	}

	if c.RS != nil {
		for _, card := range staleCards {
			c.RS.Remove(card)
		}
		for _, card := range freshCards {
			c.RS.Add(card)
		}
	}

	c.Old.FinishFreeList()
	return
}
