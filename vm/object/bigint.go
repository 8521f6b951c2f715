package object

import "github.com/tinyvm/corevm/internal/core"

// HeapInteger boxes an integer magnitude too large to fit as a tagged smi
// (spec.md §4.5's portability boxing, and ordinary user-level bignums).
// Layout: header, sign word (0 or 1), length word (digit count), then
// length 32-bit digits, least significant digit first, each stored
// little-endian.
func heapIntSignAddr(l Layout, a core.Address) core.Address {
	return l.PayloadStart(a)
}

func heapIntLengthAddr(l Layout, a core.Address) core.Address {
	return heapIntSignAddr(l, a).Add(l.ws())
}

func heapIntDigitsAddr(l Layout, a core.Address) core.Address {
	return heapIntLengthAddr(l, a).Add(l.ws())
}

func (l Layout) HeapIntNegative(a core.Address) bool {
	return l.H.ReadWord(heapIntSignAddr(l, a)) != 0
}

func (l Layout) SetHeapIntNegative(a core.Address, neg bool) {
	v := uint64(0)
	if neg {
		v = 1
	}
	l.H.WriteWord(heapIntSignAddr(l, a), v)
}

func (l Layout) HeapIntDigitCount(a core.Address) int64 {
	return int64(l.H.ReadWord(heapIntLengthAddr(l, a)))
}

func (l Layout) SetHeapIntDigitCount(a core.Address, n int64) {
	l.H.WriteWord(heapIntLengthAddr(l, a), uint64(n))
}

// HeapIntDigit returns 32-bit digit i (little-endian digit order).
func (l Layout) HeapIntDigit(a core.Address, i int64) uint32 {
	base := heapIntDigitsAddr(l, a).Add(i * 4)
	return uint32(l.H.ReadByte(base)) | uint32(l.H.ReadByte(base.Add(1)))<<8 |
		uint32(l.H.ReadByte(base.Add(2)))<<16 | uint32(l.H.ReadByte(base.Add(3)))<<24
}

func (l Layout) SetHeapIntDigit(a core.Address, i int64, d uint32) {
	base := heapIntDigitsAddr(l, a).Add(i * 4)
	l.H.WriteByte(base, byte(d))
	l.H.WriteByte(base.Add(1), byte(d>>8))
	l.H.WriteByte(base.Add(2), byte(d>>16))
	l.H.WriteByte(base.Add(3), byte(d>>24))
}

// HeapIntSize returns the total object size in words, including header.
func (l Layout) HeapIntSize(a core.Address) int64 {
	n := l.HeapIntDigitCount(a) * 4
	return HeaderWords + 2 + (n+l.ws()-1)/l.ws()
}
