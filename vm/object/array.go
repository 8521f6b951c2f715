package object

import (
	"github.com/tinyvm/corevm/internal/core"
	"github.com/tinyvm/corevm/vm/value"
)

// Array is a variable-length vector of tagged Values (spec.md §3). Layout:
// header, length word, then length Values.
type Array struct{}

func arrayLengthAddr(l Layout, a core.Address) core.Address {
	return l.PayloadStart(a)
}

func arrayElemAddr(l Layout, a core.Address, i int64) core.Address {
	return arrayLengthAddr(l, a).Add(l.ws() + i*l.ws())
}

// ArrayLength returns the number of elements in the array at a.
func (l Layout) ArrayLength(a core.Address) int64 {
	return int64(l.H.ReadWord(arrayLengthAddr(l, a)))
}

// SetArrayLength stores the element count. Only called by the allocator
// when constructing a new array.
func (l Layout) SetArrayLength(a core.Address, n int64) {
	l.H.WriteWord(arrayLengthAddr(l, a), uint64(n))
}

// ArrayAt returns element i of the array at a.
func (l Layout) ArrayAt(a core.Address, i int64) value.Value {
	return value.FromWord(l.H.ReadWord(arrayElemAddr(l, a, i)))
}

// SetArrayAt stores element i of the array at a. Callers storing a
// heap-object Value into an array that lives in old space must invoke the
// write barrier themselves (vm/barrier.Record); this method only performs
// the raw store.
func (l Layout) SetArrayAt(a core.Address, i int64, v value.Value) {
	l.H.WriteWord(arrayElemAddr(l, a, i), v.Word())
}

// ArraySize returns the total object size in words, including header.
func (l Layout) ArraySize(a core.Address) int64 {
	return HeaderWords + 1 + l.ArrayLength(a)
}
