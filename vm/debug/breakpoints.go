// Package debug implements corevm's breakpoint table (spec.md §4.7): a
// bcp→Breakpoint mapping that stays valid across program GCs by being
// rebuilt whenever functions move.
package debug

import (
	"sync"

	"github.com/tinyvm/corevm/internal/core"
	"github.com/tinyvm/corevm/vm/gc/roots"
	"github.com/tinyvm/corevm/vm/object"
	"github.com/tinyvm/corevm/vm/value"
)

// Breakpoint identifies where the interpreter should halt (spec.md §3).
// HasStepOver makes this a step-over breakpoint: it only fires when the
// interpreter's stack pointer height matches StackHeight exactly.
// Coroutine records the owning process; ShouldBreak does not consult it.
//
// Function and Coroutine must be visited as two different kinds of
// pointer: Function is a program pointer (followed only during program
// GC), Coroutine is a process pointer (followed only during data GCs) —
// spec.md §4.7 calls this out explicitly, so DebugInfo never traces
// either field itself; it hands both to whichever visitor the caller
// supplies (see Program.VisitRoots in vm/runtime).
type Breakpoint struct {
	ID            int64
	Function      value.Value
	BytecodeIndex int64
	OneShot       bool
	HasStepOver   bool
	Coroutine     value.Value
	StackHeight   int64
}

// DebugInfo owns the bcp→Breakpoint mapping and the single-step flag
// (spec.md §4.7).
type DebugInfo struct {
	mu         sync.Mutex
	byBCP      map[core.Address]*Breakpoint
	byID       map[int64]*Breakpoint
	nextID     int64
	IsStepping bool
}

func New() *DebugInfo {
	return &DebugInfo{byBCP: make(map[core.Address]*Breakpoint), byID: make(map[int64]*Breakpoint)}
}

// SetStepping toggles single-step mode under the same lock ShouldBreak
// reads it through.
func (d *DebugInfo) SetStepping(on bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.IsStepping = on
}

// SetBreakpoint records a breakpoint at (function, bytecodeIndex), using l
// to compute the current bcp. It is idempotent on (function,
// bytecodeIndex): a second call with the same pair returns the existing
// id instead of creating a duplicate (spec.md §4.7).
func (d *DebugInfo) SetBreakpoint(l object.Layout, function value.Value, bytecodeIndex int64, oneShot bool, coroutine value.Value, stackHeight int64, hasStepOver bool) int64 {
	bcp := l.BytecodeAddressFor(function.HeapAddress(), bytecodeIndex)

	d.mu.Lock()
	defer d.mu.Unlock()
	if existing, ok := d.byBCP[bcp]; ok && existing.Function == function && existing.BytecodeIndex == bytecodeIndex {
		return existing.ID
	}
	d.nextID++
	bp := &Breakpoint{
		ID:            d.nextID,
		Function:      function,
		BytecodeIndex: bytecodeIndex,
		OneShot:       oneShot,
		HasStepOver:   hasStepOver,
		Coroutine:     coroutine,
		StackHeight:   stackHeight,
	}
	d.byBCP[bcp] = bp
	d.byID[bp.ID] = bp
	return bp.ID
}

// DeleteBreakpoint removes a breakpoint by id. Deleting an id that does
// not exist is a no-op.
func (d *DebugInfo) DeleteBreakpoint(id int64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	bp, ok := d.byID[id]
	if !ok {
		return
	}
	delete(d.byID, id)
	for bcp, cur := range d.byBCP {
		if cur == bp {
			delete(d.byBCP, bcp)
			break
		}
	}
}

// ShouldBreak reports whether the interpreter, currently at bcp with
// stack-pointer height sp, should halt (spec.md §4.7). IsStepping makes
// every bcp halt. A one-shot breakpoint removes itself once it fires.
func (d *DebugInfo) ShouldBreak(bcp core.Address, sp int64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.IsStepping {
		return true
	}
	bp, ok := d.byBCP[bcp]
	if !ok {
		return false
	}
	if bp.HasStepOver && sp != bp.StackHeight {
		return false
	}
	if bp.OneShot {
		delete(d.byBCP, bcp)
		delete(d.byID, bp.ID)
	}
	return true
}

// Breakpoints returns a snapshot of every currently-set breakpoint.
func (d *DebugInfo) Breakpoints() []Breakpoint {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Breakpoint, 0, len(d.byID))
	for _, bp := range d.byID {
		out = append(out, *bp)
	}
	return out
}

// VisitProcessPointers hands every breakpoint's Coroutine field to fn, as
// a mutable slot, so a data GC can relocate the process object it refers
// to in place (spec.md §4.7's process-pointer visitor).
func (d *DebugInfo) VisitProcessPointers(fn func(roots.Slot)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, bp := range d.byID {
		bp := bp
		fn(roots.Slot{
			Get: func() value.Value { return bp.Coroutine },
			Set: func(v value.Value) { bp.Coroutine = v },
		})
	}
}

// VisitProgramPointers hands every breakpoint's Function field to fn, as
// a mutable slot, so a program GC can relocate the function it refers to
// in place (spec.md §4.7's program-pointer visitor). This must never be
// used to visit Coroutine, and VisitProcessPointers must never be used to
// visit Function — the two fields move under different GCs.
func (d *DebugInfo) VisitProgramPointers(fn func(roots.Slot)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, bp := range d.byID {
		bp := bp
		fn(roots.Slot{
			Get: func() value.Value { return bp.Function },
			Set: func(v value.Value) { bp.Function = v },
		})
	}
}

// Rebuild recomputes every breakpoint's bcp after a program GC has moved
// functions (spec.md §4.5 step 6): bytecode_index never changes, only the
// function's address, so the map is simply re-keyed.
func (d *DebugInfo) Rebuild(l object.Layout) {
	d.mu.Lock()
	defer d.mu.Unlock()
	rebuilt := make(map[core.Address]*Breakpoint, len(d.byID))
	for _, bp := range d.byID {
		bcp := l.BytecodeAddressFor(bp.Function.HeapAddress(), bp.BytecodeIndex)
		rebuilt[bcp] = bp
	}
	d.byBCP = rebuilt
}
