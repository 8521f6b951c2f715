// Package heap implements corevm's allocator and allocation policy
// (spec.md §4.1): new objects go to new space, large objects and
// program-setup objects go directly to old/program space, and a
// NoAllocationFailureScope upgrades an allocation failure from a
// recoverable condition into a fatal bug.
package heap

import (
	"github.com/tinyvm/corevm/arch"
	"github.com/tinyvm/corevm/internal/core"
	"github.com/tinyvm/corevm/vm/object"
	"github.com/tinyvm/corevm/vm/space"
)

// LargeObjectThreshold is the size at or above which an object allocates
// directly in old space instead of new space (spec.md §4.1).
const LargeObjectThreshold = 4 * 1024

// TwoSpaceHeap is the process heap shared by every process in a Program:
// a scavenged new space plus an old space (spec.md §3's Program field
// list). New space is one active SemiSpace; each scavenge copies the
// survivors into a freshly created to-space, installs it with SetNew, and
// frees the old one.
type TwoSpaceHeap struct {
	w   arch.Word
	new *space.SemiSpace // the active (to-be-allocated-into) new-space semispace
	spareChunkSize int64
	Old *space.OldSpace

	// Program is the immutable code/class heap (spec.md §3). It is nil
	// until a runtime installs one via SetProgram; a class pointer never
	// resolves there before that point because nothing allocates classes
	// before the program heap exists.
	Program *space.SemiSpace

	// noFailDepth > 0 means allocation failure inside this heap is a
	// fatal bug rather than a recoverable condition (spec.md §4.1).
	noFailDepth int
}

// SetProgram installs the program-space semispace, so that class pointers
// embedded in data-heap object headers resolve correctly once object
// layouts are read through this heap (spec.md §9).
func (h *TwoSpaceHeap) SetProgram(p *space.SemiSpace) { h.Program = p }

// NewTwoSpaceHeap creates a heap with fresh new- and old-space regions.
func NewTwoSpaceHeap(w arch.Word) (*TwoSpaceHeap, error) {
	ns, err := space.NewSemiSpace("new", w, space.ChunkSize, true)
	if err != nil {
		return nil, err
	}
	old, err := space.NewOldSpace(w, space.OldSpaceChunkSize, true)
	if err != nil {
		return nil, err
	}
	return &TwoSpaceHeap{w: w, new: ns, spareChunkSize: space.ChunkSize, Old: old}, nil
}

// New returns the active new-space semispace.
func (h *TwoSpaceHeap) New() *space.SemiSpace { return h.new }

// SetNew installs a new active new-space semispace; used by the scavenger
// after a Cheney copy to swap in the freshly-copied-into to-space.
func (h *TwoSpaceHeap) SetNew(s *space.SemiSpace) { h.new = s }

// PushNoAllocationFailureScope marks the start of a region in which
// allocation must not fail (spec.md §4.1). Scopes nest; allocation only
// panics once the outermost scope is active.
func (h *TwoSpaceHeap) PushNoAllocationFailureScope() { h.noFailDepth++ }

// PopNoAllocationFailureScope ends a no-allocation-failure region.
func (h *TwoSpaceHeap) PopNoAllocationFailureScope() {
	if h.noFailDepth == 0 {
		panic("heap: PopNoAllocationFailureScope without matching push")
	}
	h.noFailDepth--
}

// InNoAllocationFailureScope reports whether allocation failure would be
// fatal right now.
func (h *TwoSpaceHeap) InNoAllocationFailureScope() bool { return h.noFailDepth > 0 }

// Allocate implements the allocation policy of spec.md §4.1: large objects
// go straight to old space, everything else goes to new space. It returns
// space.FailureAddress on recoverable failure. Inside a
// NoAllocationFailureScope, failure instead panics with
// InternalInvariantViolation, since the caller was required to have
// pre-arranged capacity.
func (h *TwoSpaceHeap) Allocate(n int64) core.Address {
	var a core.Address
	if n >= LargeObjectThreshold {
		a = h.Old.Allocate(n)
	} else {
		a = h.new.Allocate(n)
	}
	if a == space.FailureAddress && h.InNoAllocationFailureScope() {
		panic("heap: allocation failed inside a no-allocation-failure scope")
	}
	return a
}

// AllocateInOldSpace forces old-space allocation regardless of size,
// used for objects that must be tenured immediately (e.g. objects
// promoted by the scavenger).
func (h *TwoSpaceHeap) AllocateInOldSpace(n int64) core.Address {
	a := h.Old.Allocate(n)
	if a == space.FailureAddress && h.InNoAllocationFailureScope() {
		panic("heap: old-space allocation failed inside a no-allocation-failure scope")
	}
	return a
}

// Contains reports whether a belongs to this heap (new or old space).
func (h *TwoSpaceHeap) Contains(a core.Address) bool {
	return h.new.Contains(a) || h.Old.Contains(a)
}

// InNewSpace reports whether a is a currently-live new-space address.
func (h *TwoSpaceHeap) InNewSpace(a core.Address) bool { return h.new.Contains(a) }

// InOldSpace reports whether a belongs to old space.
func (h *TwoSpaceHeap) InOldSpace(a core.Address) bool { return h.Old.Contains(a) }

// InProgramSpace reports whether a belongs to the program heap.
func (h *TwoSpaceHeap) InProgramSpace(a core.Address) bool {
	return h.Program != nil && h.Program.Contains(a)
}

// --- object.Heap implementation ---
//
// A Layout built with this heap as its H can read and write any object's
// fields regardless of which space the object lives in, which matters
// because an object's own fields always live alongside it but its class
// pointer almost always targets a different space (the program heap).
// Dispatch is by address containment, not by which sub-space a caller
// happened to be thinking about.

func (h *TwoSpaceHeap) spaceFor(a core.Address) object.Heap {
	if h.new.Contains(a) {
		return h.new
	}
	if h.Old.Contains(a) {
		return h.Old
	}
	if h.Program != nil && h.Program.Contains(a) {
		return h.Program
	}
	return nil
}

func (h *TwoSpaceHeap) ReadWord(a core.Address) uint64 { return h.spaceFor(a).ReadWord(a) }
func (h *TwoSpaceHeap) WriteWord(a core.Address, v uint64) {
	h.spaceFor(a).WriteWord(a, v)
}
func (h *TwoSpaceHeap) ReadByte(a core.Address) byte { return h.spaceFor(a).ReadByte(a) }
func (h *TwoSpaceHeap) WriteByte(a core.Address, v byte) {
	h.spaceFor(a).WriteByte(a, v)
}
func (h *TwoSpaceHeap) Slice(a core.Address, n int64) []byte {
	return h.spaceFor(a).Slice(a, n)
}
