package object

import "github.com/tinyvm/corevm/internal/core"

// ByteArray is a variable-length vector of raw bytes (spec.md §3). Layout:
// header, length word, then length bytes.
type ByteArray struct{}

func byteArrayLengthAddr(l Layout, a core.Address) core.Address {
	return l.PayloadStart(a)
}

func byteArrayDataAddr(l Layout, a core.Address) core.Address {
	return byteArrayLengthAddr(l, a).Add(l.ws())
}

// ByteArrayLength returns the number of bytes in the byte array at a.
func (l Layout) ByteArrayLength(a core.Address) int64 {
	return int64(l.H.ReadWord(byteArrayLengthAddr(l, a)))
}

func (l Layout) SetByteArrayLength(a core.Address, n int64) {
	l.H.WriteWord(byteArrayLengthAddr(l, a), uint64(n))
}

// ByteArrayAt returns byte i of the byte array at a.
func (l Layout) ByteArrayAt(a core.Address, i int64) byte {
	return l.H.ReadByte(byteArrayDataAddr(l, a).Add(i))
}

func (l Layout) SetByteArrayAt(a core.Address, i int64, b byte) {
	l.H.WriteByte(byteArrayDataAddr(l, a).Add(i), b)
}

// ByteArrayBytes returns the raw byte slice backing the byte array at a.
// The slice aliases heap memory and is invalidated by the next GC.
func (l Layout) ByteArrayBytes(a core.Address) []byte {
	n := l.ByteArrayLength(a)
	return l.H.Slice(byteArrayDataAddr(l, a), n)
}

// ByteArraySize returns the total object size in words, including header,
// rounded up to a whole word.
func (l Layout) ByteArraySize(a core.Address) int64 {
	n := l.ByteArrayLength(a)
	return HeaderWords + 1 + (n+l.ws()-1)/l.ws()
}
