package program

import (
	"sort"

	"github.com/tinyvm/corevm/internal/core"
	"github.com/tinyvm/corevm/vm/gc/roots"
	"github.com/tinyvm/corevm/vm/object"
	"github.com/tinyvm/corevm/vm/space"
	"github.com/tinyvm/corevm/vm/value"
)

// scavengeProgram copies every reachable program object from the current
// Code (from-space) into a fresh to-space, forwarding every program
// pointer held by a root, a breakpoint, or the process heap (spec.md §4.5
// step 4). The special objects are evacuated first on every run and, for
// a snapshot, the popular objects follow them in priority order, so their
// relative placement in the resulting image is deterministic; the
// remainder is reached by a plain Cheney scavenge either way.
func (c *Collector) scavengeProgram(snapshot bool) (*space.SemiSpace, int64, error) {
	from := c.Code
	to, err := space.NewSemiSpace("program", c.W, space.ChunkSize, from.CanResize())
	if err != nil {
		return nil, 0, err
	}
	gh := allSpaces{to: to, heap: c.Heap}
	l := object.Layout{H: gh, W: c.W}

	forwarded := make(map[core.Address]core.Address)
	var queue []core.Address
	var moved int64

	evacuate := func(a core.Address) core.Address {
		if dest, ok := forwarded[a]; ok {
			return dest
		}
		size := l.Size(a) * int64(c.W.PointerSize)
		dest := to.Allocate(size)
		if dest == space.FailureAddress {
			panic("program gc: evacuation target allocation failed")
		}
		copy(to.Slice(dest, size), from.Slice(a, size))
		forwarded[a] = dest
		moved += size
		queue = append(queue, dest)
		return dest
	}

	forward := func(v value.Value) (value.Value, bool) {
		if !v.IsHeapObject() {
			return v, false
		}
		a := v.HeapAddress()
		if !from.Contains(a) {
			return v, false
		}
		return value.FromHeapObject(evacuate(a)), true
	}

	// double_class, null, false, true must occupy the front of to-space
	// after every program GC, not only a snapshot (spec.md §9's
	// invariant-preservation clause covers ordinary collections too) —
	// so this placement pass always runs; only the popularity-ordered
	// tail is snapshot-specific.
	for _, a := range c.placementPriority() {
		if from.Contains(a) {
			evacuate(a)
		}
	}
	if snapshot {
		_, order := c.countPopularity()
		for _, a := range order {
			evacuate(a)
		}
	}

	for name, v := range c.Roots {
		if nv, changed := forward(v); changed {
			c.Roots[name] = nv
		}
	}
	c.DebugInfo.VisitProgramPointers(func(sl roots.Slot) {
		if nv, changed := forward(sl.Get()); changed {
			sl.Set(nv)
		}
	})
	c.forwardProcessHeapProgramPointers(forward)

	for len(queue) > 0 {
		a := queue[len(queue)-1]
		queue = queue[:len(queue)-1]
		l.ForEachPointer(a, object.PointerOpts{IncludeClass: true}, func(field core.Address) bool {
			if nv, changed := forward(value.FromWord(gh.ReadWord(field))); changed {
				gh.WriteWord(field, nv.Word())
			}
			return true
		})
	}

	return to, moved, nil
}

// forwardProcessHeapProgramPointers walks every object reachable from the
// data-GC roots (the same traversal chainStacks performs) and, for each
// one, forwards its class pointer and — if it is a cooked stack — every
// frame's function pointer, since those are the only program pointers a
// process-heap object can hold (spec.md §4.5 step 4, §9's two-visitor
// split run in the opposite direction: a process object's program
// pointers, not a program object's process pointers, which do not
// exist).
func (c *Collector) forwardProcessHeapProgramPointers(forward func(value.Value) (value.Value, bool)) {
	l := object.Layout{H: c.Heap, W: c.W}
	visited := make(map[core.Address]bool)
	var queue []core.Address
	visit := func(v value.Value) {
		if !v.IsHeapObject() {
			return
		}
		a := v.HeapAddress()
		if !c.Heap.Contains(a) || visited[a] {
			return
		}
		visited[a] = true
		queue = append(queue, a)
	}

	c.Src.VisitRoots(func(sl roots.Slot) { visit(sl.Get()) })
	c.DebugInfo.VisitProcessPointers(func(sl roots.Slot) { visit(sl.Get()) })

	for len(queue) > 0 {
		a := queue[len(queue)-1]
		queue = queue[:len(queue)-1]
		l.ForEachPointer(a, object.PointerOpts{IncludeClass: true, StackBCPAsPointer: true}, func(field core.Address) bool {
			v := value.FromWord(c.Heap.ReadWord(field))
			if nv, changed := forward(v); changed {
				c.Heap.WriteWord(field, nv.Word())
				return true
			}
			visit(v)
			return true
		})
	}
}

// countPopularity tallies, for every program object reachable from the
// program roots and the debugger's Function pointers, how many other
// live objects point at it — the snapshot placement heuristic of
// spec.md §9. order records first-encounter order, used to break ties
// deterministically (see DESIGN.md).
func (c *Collector) countPopularity() (counts map[core.Address]int, order []core.Address) {
	l := object.Layout{H: c.Heap, W: c.W}
	counts = make(map[core.Address]int)
	seen := make(map[core.Address]bool)
	var queue []core.Address

	touch := func(a core.Address) {
		if seen[a] {
			return
		}
		seen[a] = true
		order = append(order, a)
		queue = append(queue, a)
	}
	bump := func(v value.Value) {
		if !v.IsHeapObject() {
			return
		}
		a := v.HeapAddress()
		if !c.Heap.InProgramSpace(a) {
			return
		}
		counts[a]++
		touch(a)
	}

	// Roots and debugger pointers are bumped in sorted order, not map
	// order, so the encounter order is the same for the same heap.
	names := make([]string, 0, len(c.Roots))
	for name := range c.Roots {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		bump(c.Roots[name])
	}
	var fns []value.Value
	c.DebugInfo.VisitProgramPointers(func(sl roots.Slot) { fns = append(fns, sl.Get()) })
	sort.Slice(fns, func(i, j int) bool { return fns[i] < fns[j] })
	for _, v := range fns {
		bump(v)
	}

	for len(queue) > 0 {
		a := queue[len(queue)-1]
		queue = queue[:len(queue)-1]
		l.ForEachPointer(a, object.PointerOpts{IncludeClass: true}, func(field core.Address) bool {
			bump(value.FromWord(c.Heap.ReadWord(field)))
			return true
		})
	}

	indexOf := make(map[core.Address]int, len(order))
	for i, a := range order {
		indexOf[a] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		ci, cj := counts[order[i]], counts[order[j]]
		if ci != cj {
			return ci > cj
		}
		return indexOf[order[i]] < indexOf[order[j]]
	})
	return counts, order
}
