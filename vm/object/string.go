package object

import "github.com/tinyvm/corevm/internal/core"

// String covers both one-byte (Latin-1) and two-byte (UTF-16-ish) code-unit
// strings, distinguished by the class's InstanceFormat (spec.md §3). The
// layout is the same as ByteArray except the unit width differs; rather
// than duplicate the accessors, String reuses ByteArray's addressing and
// adds unit-width-aware reads.
type String struct{}

// StringLength returns the number of code units (not bytes) in the string
// at a.
func (l Layout) StringLength(a core.Address) int64 {
	return int64(l.H.ReadWord(byteArrayLengthAddr(l, a)))
}

func (l Layout) SetStringLength(a core.Address, n int64) {
	l.H.WriteWord(byteArrayLengthAddr(l, a), uint64(n))
}

func (l Layout) unitWidth(format Format) int64 {
	if format == FormatTwoByteString {
		return 2
	}
	return 1
}

// StringUnitAt returns code unit i of the string at a, given the class's
// format marker (the caller already has it from the class lookup).
func (l Layout) StringUnitAt(a core.Address, format Format, i int64) uint16 {
	base := byteArrayDataAddr(l, a)
	if l.unitWidth(format) == 1 {
		return uint16(l.H.ReadByte(base.Add(i)))
	}
	lo := l.H.ReadByte(base.Add(i * 2))
	hi := l.H.ReadByte(base.Add(i*2 + 1))
	return uint16(hi)<<8 | uint16(lo)
}

func (l Layout) SetStringUnitAt(a core.Address, format Format, i int64, u uint16) {
	base := byteArrayDataAddr(l, a)
	if l.unitWidth(format) == 1 {
		l.H.WriteByte(base.Add(i), byte(u))
		return
	}
	l.H.WriteByte(base.Add(i*2), byte(u))
	l.H.WriteByte(base.Add(i*2+1), byte(u>>8))
}

// StringSize returns the total object size in words, including header.
func (l Layout) StringSize(a core.Address, format Format) int64 {
	n := l.StringLength(a) * l.unitWidth(format)
	return HeaderWords + 1 + (n+l.ws()-1)/l.ws()
}

// AsGoString decodes a one-byte string directly into a Go string. Used by
// debugger/dump tooling, never by the mutator fast paths.
func (l Layout) AsGoString(a core.Address, format Format) string {
	n := l.StringLength(a)
	b := make([]byte, n)
	for i := int64(0); i < n; i++ {
		b[i] = byte(l.StringUnitAt(a, format, i))
	}
	return string(b)
}
