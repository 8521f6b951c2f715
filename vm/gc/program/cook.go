package program

import (
	"github.com/tinyvm/corevm/internal/core"
	"github.com/tinyvm/corevm/vm/object"
	"github.com/tinyvm/corevm/vm/value"
)

// cookChain walks every stack in the chain rooted at head and, for each
// frame whose bcp falls within a live function, replaces the bcp slot
// with a tagged pointer to that function (spec.md §4.5 step 3) so the
// program scavenge below can relocate it like any other pointer field.
// The displaced byte offsets are returned per stack so uncookChain can
// restore the original bcp values afterward.
func (c *Collector) cookChain(head core.Address, functions []core.Address) map[core.Address][]int64 {
	l := object.Layout{H: c.Heap, W: c.W}
	deltas := make(map[core.Address][]int64)
	for s := head; s != 0; s = l.StackNext(s) {
		var ds []int64
		fc := l.Frames(s)
		for fc.Valid() {
			bcp := fc.BCP()
			fn, ok := findFunction(l, functions, bcp)
			if ok {
				ds = append(ds, l.BytecodeDeltaFor(fn, bcp))
				fc.SetFunctionPointer(value.FromHeapObject(fn))
			} else {
				// Not a function-relative bcp (e.g. a native trampoline
				// frame); nothing to cook, nothing to uncook.
				ds = append(ds, -1)
			}
			fc.Next()
		}
		deltas[s] = ds
	}
	return deltas
}

// uncookChain restores every cooked frame's bcp from its function's
// (possibly new) address plus the saved delta, then clears the stack's
// chain link (spec.md §4.5 step 5).
func (c *Collector) uncookChain(head core.Address, deltas map[core.Address][]int64) {
	l := object.Layout{H: c.Heap, W: c.W}
	for s := head; s != 0; {
		next := l.StackNext(s)
		ds := deltas[s]
		fc := l.Frames(s)
		i := 0
		for fc.Valid() {
			if d := ds[i]; d >= 0 {
				fn := fc.FunctionPointer().HeapAddress()
				fc.SetBCP(l.BytecodeAddressFor(fn, d))
			}
			i++
			fc.Next()
		}
		l.SetStackNext(s, 0)
		s = next
	}
}

func findFunction(l object.Layout, functions []core.Address, bcp core.Address) (core.Address, bool) {
	for _, f := range functions {
		if l.ContainsBCP(f, bcp) {
			return f, true
		}
	}
	return 0, false
}
