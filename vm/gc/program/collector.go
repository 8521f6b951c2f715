// Package program implements corevm's program GC (spec.md §4.5): moving
// the immutable code/class graph while precisely tracing every live
// interpreter stack, cooking and uncooking stacks around the move so
// interior bytecode pointers stay valid, and — for snapshot writing —
// biasing the to-space layout toward popular and special objects.
package program

import (
	"fmt"

	"github.com/tinyvm/corevm/arch"
	"github.com/tinyvm/corevm/internal/core"
	"github.com/tinyvm/corevm/vm/debug"
	"github.com/tinyvm/corevm/vm/gc/oldspace"
	"github.com/tinyvm/corevm/vm/gc/roots"
	"github.com/tinyvm/corevm/vm/gc/scavenge"
	"github.com/tinyvm/corevm/vm/heap"
	"github.com/tinyvm/corevm/vm/object"
	"github.com/tinyvm/corevm/vm/process"
	"github.com/tinyvm/corevm/vm/space"
	"github.com/tinyvm/corevm/vm/value"
)

// Stats summarizes one program GC cycle.
type Stats struct {
	Snapshot   bool
	NumStacks  int
	BytesMoved int64
}

// Collector performs corevm's program GC. Old and New are the precise
// pre-pass collectors of step 1 (spec.md §4.5); they must share Src with
// this collector so every pass agrees on what is live.
type Collector struct {
	W         arch.Word
	Code      *space.SemiSpace // current program space; replaced by Run
	Heap      *heap.TwoSpaceHeap
	Processes *process.List
	DebugInfo *debug.DebugInfo
	Roots     map[string]value.Value // named program-space roots (null, false, true, double_class, ...)

	Old *oldspace.Collector
	New *scavenge.Scavenger
	Src roots.Source
}

// allSpaces resolves an address against the fresh program to-space first,
// then falls back to the shared process/program heap — the same
// address-dispatch trick vm/heap.TwoSpaceHeap and vm/gc/scavenge use,
// needed here because a Layout's Size/format dispatch chases whatever
// space an object's class happens to live in.
type allSpaces struct {
	to   *space.SemiSpace
	heap *heap.TwoSpaceHeap
}

func (g allSpaces) spaceFor(a core.Address) object.Heap {
	if g.to != nil && g.to.Contains(a) {
		return g.to
	}
	return g.heap
}

func (g allSpaces) ReadWord(a core.Address) uint64      { return g.spaceFor(a).ReadWord(a) }
func (g allSpaces) WriteWord(a core.Address, v uint64)  { g.spaceFor(a).WriteWord(a, v) }
func (g allSpaces) ReadByte(a core.Address) byte        { return g.spaceFor(a).ReadByte(a) }
func (g allSpaces) WriteByte(a core.Address, v byte)    { g.spaceFor(a).WriteByte(a, v) }
func (g allSpaces) Slice(a core.Address, n int64) []byte { return g.spaceFor(a).Slice(a, n) }

// Run performs one full program GC (spec.md §4.5's seven steps). snapshot
// selects the snapshot-GC variant: popularity-ordered, priority-placed
// to-space layout instead of plain reachability order.
func (c *Collector) Run(snapshot bool) (Stats, error) {
	var st Stats
	st.Snapshot = snapshot

	// Step 1: precise pre-pass, to eliminate floating garbage stacks.
	c.Old.Run()
	if _, err := c.New.Run(); err != nil {
		return st, err
	}

	// Step 2: chain every live stack.
	chainHead, count := c.chainStacks()
	st.NumStacks = count

	// Step 3: cook every stack in the chain.
	functions := c.liveFunctions()
	deltas := c.cookChain(chainHead, functions)

	// Step 4: scavenge program space, prioritizing placement for snapshots.
	newCode, moved, err := c.scavengeProgram(snapshot)
	if err != nil {
		return st, err
	}
	st.BytesMoved = moved

	// Step 5: uncook, discard the chain.
	c.uncookChain(chainHead, deltas)

	// Step 6: breakpoints key off bcp, which just moved with its function.
	c.DebugInfo.Rebuild(object.Layout{H: c.Heap, W: c.W})

	// Step 7: verify the null/false/true spacing invariant.
	if err := c.verifyPlacement(); err != nil {
		panic(err)
	}

	c.Code = newCode
	c.Heap.SetProgram(newCode)
	return st, nil
}

// chainStacks walks every object reachable from the data-GC roots and
// links each live Stack it finds into a singly-linked chain via its next
// slot (spec.md §4.5 step 2), returning the chain head and stack count.
func (c *Collector) chainStacks() (core.Address, int) {
	l := object.Layout{H: c.Heap, W: c.W}
	visited := make(map[core.Address]bool)
	var queue []core.Address
	var head core.Address
	count := 0

	visit := func(v value.Value) {
		if !v.IsHeapObject() {
			return
		}
		a := v.HeapAddress()
		if c.Heap.InProgramSpace(a) || visited[a] {
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

		class := l.ClassPointer(a)
		if l.InstanceFormat(class) == object.FormatStack {
			l.SetStackNext(a, head)
			head = a
			count++
		}

		l.ForEachPointer(a, object.PointerOpts{}, func(field core.Address) bool {
			visit(value.FromWord(c.Heap.ReadWord(field)))
			return true
		})
	}
	return head, count
}

// liveFunctions enumerates every Function object currently in program
// space, used by cooking to resolve a raw bcp to its owning function.
func (c *Collector) liveFunctions() []core.Address {
	l := object.Layout{H: c.Heap, W: c.W}
	var out []core.Address
	c.Code.IterateObjects(
		func(a core.Address) int64 { return l.Size(a) * int64(c.W.PointerSize) },
		func(a core.Address) bool {
			class := l.ClassPointer(a)
			if l.InstanceFormat(class) == object.FormatFunction {
				out = append(out, a)
			}
			return true
		},
	)
	return out
}

// placementPriority returns the special objects that must occupy the
// very front of program space after every program GC, in required order
// (spec.md §4.5 step 4).
func (c *Collector) placementPriority() []core.Address {
	var out []core.Address
	for _, name := range []string{"double_class", "null", "false", "true"} {
		if v, ok := c.Roots[name]; ok && v.IsHeapObject() {
			out = append(out, v.HeapAddress())
		}
	}
	return out
}

// verifyPlacement checks the null/false/true 2-word spacing invariant
// (spec.md §3, §4.5 step 7). Missing roots (program not yet bootstrapped)
// are not an error.
func (c *Collector) verifyPlacement() error {
	null, ok1 := c.Roots["null"]
	fls, ok2 := c.Roots["false"]
	tru, ok3 := c.Roots["true"]
	if !ok1 || !ok2 || !ok3 {
		return nil
	}
	w := int64(c.W.PointerSize)
	na, fa, ta := null.HeapAddress(), fls.HeapAddress(), tru.HeapAddress()
	if fa != na.Add(2*w) || ta != na.Add(4*w) {
		return fmt.Errorf("program gc: null/false/true spacing invariant violated")
	}
	return nil
}
