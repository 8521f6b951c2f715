package object

import (
	"github.com/tinyvm/corevm/arch"
	"github.com/tinyvm/corevm/internal/core"
	"github.com/tinyvm/corevm/vm/value"
)

// Heap is the minimal memory access surface an object layout needs. Both
// vm/space.SemiSpace and vm/space.OldSpace chunks satisfy it; object
// accessors never need to know which space they're reading from.
type Heap interface {
	ReadWord(a core.Address) uint64
	WriteWord(a core.Address, v uint64)
	ReadByte(a core.Address) byte
	WriteByte(a core.Address, v byte)
	Slice(a core.Address, n int64) []byte
}

// HeaderWords is the number of words in every heap object's fixed header:
// a class pointer and a packed identity-hash/age word (spec.md §3).
const HeaderWords = 2

// Layout bundles a Heap with the word size used to address it, so offset
// arithmetic below doesn't need to thread arch.Word through every call.
type Layout struct {
	H Heap
	W arch.Word
}

func (l Layout) ws() int64 { return int64(l.W.PointerSize) }

// ClassPointer returns the raw (untagged) address of the object's class.
func (l Layout) ClassPointer(a core.Address) core.Address {
	return core.Address(l.H.ReadWord(a))
}

// SetClassPointer stores the object's class pointer. Used by the allocator
// when initializing a freshly bump-allocated object, and by the program GC
// when classes themselves move.
func (l Layout) SetClassPointer(a core.Address, class core.Address) {
	l.H.WriteWord(a, uint64(class))
}

// identity-hash/age word layout: low 8 bits are the scavenger age counter
// (spec.md §4.6's "simple age criterion" promotion threshold), the
// remaining bits are an identity hash assigned lazily on first use. This
// packing is internal per spec.md §3 but must round-trip through GC, so
// it lives here rather than being reconstructed ad hoc by each collector.
const ageBits = 8
const ageMask = 1<<ageBits - 1

func (l Layout) hashAgeWord(a core.Address) uint64 {
	return l.H.ReadWord(a.Add(l.ws()))
}

func (l Layout) setHashAgeWord(a core.Address, w uint64) {
	l.H.WriteWord(a.Add(l.ws()), w)
}

// Age returns the object's scavenger age: the number of scavenge cycles it
// has survived without being promoted.
func (l Layout) Age(a core.Address) int {
	return int(l.hashAgeWord(a) & ageMask)
}

// SetAge overwrites the object's scavenger age.
func (l Layout) SetAge(a core.Address, age int) {
	w := l.hashAgeWord(a)
	w = w&^ageMask | uint64(age)&ageMask
	l.setHashAgeWord(a, w)
}

// IdentityHash returns the object's lazily-assigned identity hash, or 0 if
// none has been assigned yet.
func (l Layout) IdentityHash(a core.Address) uint64 {
	return l.hashAgeWord(a) >> ageBits
}

// SetIdentityHash assigns an identity hash, preserving the age bits.
func (l Layout) SetIdentityHash(a core.Address, hash uint64) {
	w := l.hashAgeWord(a)
	w = w&ageMask | hash<<ageBits
	l.setHashAgeWord(a, w)
}

// ForwardingPointer reads the object's header class-pointer word as a
// potential forwarding pointer left by a copying collector. A genuine
// class pointer is always word-aligned, so its tag bit is always clear;
// a forwarding pointer is written with the tag bit set (via
// value.FromHeapObject), making the two unambiguous without a separate
// "forwarded" bit anywhere (spec.md §4.3: "its forwarding pointer goes
// into the old header slot of the from-object").
func (l Layout) ForwardingPointer(a core.Address) (core.Address, bool) {
	v := value.FromWord(l.H.ReadWord(a))
	if v.IsHeapObject() {
		return v.HeapAddress(), true
	}
	return 0, false
}

// SetForwardingPointer overwrites the class-pointer word of a from-space
// object with a forwarding pointer to its new location.
func (l Layout) SetForwardingPointer(a core.Address, to core.Address) {
	l.H.WriteWord(a, value.FromHeapObject(to).Word())
}

// PayloadStart returns the address of the first word after the header,
// where format-specific fields begin.
func (l Layout) PayloadStart(a core.Address) core.Address {
	return a.Add(HeaderWords * l.ws())
}
