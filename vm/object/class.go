package object

import (
	"github.com/tinyvm/corevm/internal/core"
	"github.com/tinyvm/corevm/vm/value"
)

// A Class is a fixed-size heap object describing the InstanceFormat,
// superclass, and methods table shared by all its instances (spec.md §3).
// Classes live in program space; they are immutable at runtime except
// during program GC, when the collector itself moves and rewrites them.
type Class struct {
	Addr core.Address
}

// Class field offsets, counted in words after the two-word header.
const (
	classFieldFormat = iota
	classFieldFixedSize // fixed instance size in words, for non-variable formats
	classFieldSuper
	classFieldMethods
	classFieldNumFields // number of word-sized instance fields, for FormatInstance
	classFieldCount
)

// ClassSize is the fixed size in words of a Class object itself.
const ClassSize = HeaderWords + classFieldCount

func classFieldAddr(l Layout, c core.Address, field int64) core.Address {
	return l.PayloadStart(c).Add(field * l.ws())
}

// InstanceFormat returns the layout marker for instances of this class.
func (l Layout) InstanceFormat(c core.Address) Format {
	return Format(l.H.ReadWord(classFieldAddr(l, c, classFieldFormat)))
}

// SetInstanceFormat stores the layout marker for instances of this class.
func (l Layout) SetInstanceFormat(c core.Address, f Format) {
	l.H.WriteWord(classFieldAddr(l, c, classFieldFormat), uint64(f))
}

// FixedInstanceSize returns the instance size in words for non-variable
// formats (ignored for variable-size formats, whose size is read from the
// instance itself).
func (l Layout) FixedInstanceSize(c core.Address) int64 {
	return int64(l.H.ReadWord(classFieldAddr(l, c, classFieldFixedSize)))
}

func (l Layout) SetFixedInstanceSize(c core.Address, words int64) {
	l.H.WriteWord(classFieldAddr(l, c, classFieldFixedSize), uint64(words))
}

// Superclass returns the superclass pointer, or the null Value if this is
// a root class.
func (l Layout) Superclass(c core.Address) value.Value {
	return value.FromWord(l.H.ReadWord(classFieldAddr(l, c, classFieldSuper)))
}

func (l Layout) SetSuperclass(c core.Address, super value.Value) {
	l.H.WriteWord(classFieldAddr(l, c, classFieldSuper), super.Word())
}

// MethodsTable returns the pointer to this class's methods array.
func (l Layout) MethodsTable(c core.Address) value.Value {
	return value.FromWord(l.H.ReadWord(classFieldAddr(l, c, classFieldMethods)))
}

func (l Layout) SetMethodsTable(c core.Address, methods value.Value) {
	l.H.WriteWord(classFieldAddr(l, c, classFieldMethods), methods.Word())
}

// NumInstanceFields returns the number of word-sized pointer fields a
// FormatInstance object of this class carries, following the header.
func (l Layout) NumInstanceFields(c core.Address) int64 {
	return int64(l.H.ReadWord(classFieldAddr(l, c, classFieldNumFields)))
}

func (l Layout) SetNumInstanceFields(c core.Address, n int64) {
	l.H.WriteWord(classFieldAddr(l, c, classFieldNumFields), uint64(n))
}

// InstanceSize returns the total object size in words (including the
// header) for an instance of class c. For FormatInstance this is derived
// from NumInstanceFields; for other fixed formats it is FixedInstanceSize;
// variable-size formats must use Layout.Size instead, since their size
// depends on the instance, not the class.
func (l Layout) InstanceSize(c core.Address) int64 {
	f := l.InstanceFormat(c)
	if f == FormatInstance {
		return HeaderWords + l.NumInstanceFields(c)
	}
	return HeaderWords + l.FixedInstanceSize(c)
}
