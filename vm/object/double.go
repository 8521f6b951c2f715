package object

import (
	"math"

	"github.com/tinyvm/corevm/internal/core"
)

// Double is a boxed 64-bit float, fixed size regardless of word width
// (spec.md §3). Layout: header, then 8 bytes holding the IEEE-754 bits.

func doubleDataAddr(l Layout, a core.Address) core.Address {
	return l.PayloadStart(a)
}

// DoubleValue returns the float64 stored at a.
func (l Layout) DoubleValue(a core.Address) float64 {
	lo := l.H.ReadWord(doubleDataAddr(l, a))
	var bits uint64
	if l.W.PointerSize == 8 {
		bits = lo
	} else {
		hi := l.H.ReadWord(doubleDataAddr(l, a).Add(4))
		bits = uint64(lo) | uint64(hi)<<32
	}
	return math.Float64frombits(bits)
}

// SetDoubleValue stores a float64 at a.
func (l Layout) SetDoubleValue(a core.Address, f float64) {
	bits := math.Float64bits(f)
	if l.W.PointerSize == 8 {
		l.H.WriteWord(doubleDataAddr(l, a), bits)
		return
	}
	l.H.WriteWord(doubleDataAddr(l, a), uint32Word(bits))
	l.H.WriteWord(doubleDataAddr(l, a).Add(4), uint32Word(bits>>32))
}

func uint32Word(v uint64) uint64 { return v & 0xFFFFFFFF }

// DoubleInstanceWords returns the number of words after the header needed
// to hold a double on this word size (2 on 32-bit, 1 on 64-bit).
func (l Layout) DoubleInstanceWords() int64 {
	return 8 / l.ws()
}
