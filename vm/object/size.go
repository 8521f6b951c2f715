package object

import "github.com/tinyvm/corevm/internal/core"

// Size returns the total size in words, including the header, of the
// object at a. It reads the object's own class pointer to determine
// format, then dispatches to the format's size rule — the variable
// formats read their length from the instance, the fixed formats read it
// from the class (spec.md §3: "size is read from the class's instance
// format"). This is the single source of truth every space walker
// (scavenger, marker, sweeper, compactor) uses to step from one object to
// the next.
func (l Layout) Size(a core.Address) int64 {
	class := l.ClassPointer(a)
	format := l.InstanceFormat(class)
	switch format {
	case FormatArray:
		return l.ArraySize(a)
	case FormatByteArray:
		return l.ByteArraySize(a)
	case FormatOneByteString:
		return l.StringSize(a, FormatOneByteString)
	case FormatTwoByteString:
		return l.StringSize(a, FormatTwoByteString)
	case FormatFunction:
		return l.FunctionSize(a)
	case FormatHeapInteger:
		return l.HeapIntSize(a)
	case FormatStack:
		return l.StackSize(a)
	case FormatClass:
		return ClassSize
	default:
		return l.InstanceSize(class)
	}
}
