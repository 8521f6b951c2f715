// Package value implements corevm's tagged-value layer (spec.md §3, §4.1):
// a uniform machine word that is either a small integer (tag bit clear) or
// a heap-object pointer (tag bit set).
package value

import (
	"github.com/tinyvm/corevm/arch"
	"github.com/tinyvm/corevm/internal/core"
)

// A Value is a single tagged machine word. It never needs heap allocation
// to represent a small integer, and it is the only thing the interpreter,
// the allocator, and the GC pass between each other — no other Go type
// crosses that boundary.
type Value uint64

const tagMask = 1
const tagHeapObject = 1
const tagSmi = 0

// FromSmi packs a small integer into a tagged Value. Callers must first
// check that n fits within arch.Word.MaxSmi/MinSmi; this function does not
// validate the range, mirroring the allocator's convention of pushing
// range checks to the caller rather than failing silently.
func FromSmi(n int64) Value {
	return Value(uint64(n)<<1) | tagSmi
}

// FromHeapObject tags a heap address as a Value.
func FromHeapObject(a core.Address) Value {
	return Value(uint64(a)) | tagHeapObject
}

// FromWord reinterprets a raw machine word already observed in memory as a
// Value, without re-tagging it. Used when reading a field that is already
// known to hold a Value.
func FromWord(w uint64) Value {
	return Value(w)
}

// Word returns the raw machine word underlying v.
func (v Value) Word() uint64 {
	return uint64(v)
}

// IsSmi reports whether v encodes a small integer.
func (v Value) IsSmi() bool {
	return v&tagMask == tagSmi
}

// IsHeapObject reports whether v encodes a heap pointer.
func (v Value) IsHeapObject() bool {
	return v&tagMask == tagHeapObject
}

// Smi returns the small integer v encodes. Panics if v is not a smi.
func (v Value) Smi() int64 {
	if !v.IsSmi() {
		panic("value: Smi called on a heap-object Value")
	}
	return int64(v) >> 1
}

// HeapAddress returns the untagged address of the heap object v points to.
// Panics if v is not a heap-object Value.
func (v Value) HeapAddress() core.Address {
	if !v.IsHeapObject() {
		panic("value: HeapAddress called on a smi Value")
	}
	return core.Address(uint64(v) &^ tagMask)
}

// FitsSmi reports whether n can be represented as a tagged small integer
// on the given word size, per spec.md §4.5's boxing rule for large
// integers that no longer fit as 32-bit smis during snapshot GC.
func FitsSmi(n int64, w arch.Word) bool {
	return n >= w.MinSmi() && n <= w.MaxSmi()
}
