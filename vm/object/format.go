// Package object implements corevm's heap object layout (spec.md §3, §4.1):
// a fixed two-word header (class pointer + identity-hash/age) in front of a
// variable trailing payload whose size is determined by the object's
// class's InstanceFormat. This plays the role the reference debugger's
// internal/gocore Kind/Type pair plays for a foreign process's objects,
// but here the layout also has to be *written*, not just interpreted,
// since the allocator and the GC both construct and move these objects.
package object

// Format identifies the layout of a heap object's trailing payload. It is
// the instance-format marker spec.md §3 says every Class carries.
type Format uint8

const (
	FormatNull Format = iota
	FormatTrue
	FormatFalse
	FormatSmi   // never actually heap-allocated; reserved so Format and value.Value agree on "not heap"
	FormatNum   // boxed numeric supertype marker, used by class hierarchies only
	FormatArray
	FormatByteArray
	FormatOneByteString
	FormatTwoByteString
	FormatDouble
	FormatHeapInteger
	FormatFunction
	FormatInitializer
	FormatDispatchTableEntry
	FormatClass
	FormatStack
	FormatCoroutine
	FormatPort
	FormatInstance
)

func (f Format) String() string {
	switch f {
	case FormatNull:
		return "Null"
	case FormatTrue:
		return "True"
	case FormatFalse:
		return "False"
	case FormatSmi:
		return "Smi"
	case FormatNum:
		return "Num"
	case FormatArray:
		return "Array"
	case FormatByteArray:
		return "ByteArray"
	case FormatOneByteString:
		return "OneByteString"
	case FormatTwoByteString:
		return "TwoByteString"
	case FormatDouble:
		return "Double"
	case FormatHeapInteger:
		return "HeapInteger"
	case FormatFunction:
		return "Function"
	case FormatInitializer:
		return "Initializer"
	case FormatDispatchTableEntry:
		return "DispatchTableEntry"
	case FormatClass:
		return "Class"
	case FormatStack:
		return "Stack"
	case FormatCoroutine:
		return "Coroutine"
	case FormatPort:
		return "Port"
	case FormatInstance:
		return "Instance"
	}
	return "Format(?)"
}

// IsVariableSize reports whether objects of this format carry a trailing
// payload whose length is read from the object itself rather than being
// fixed by the class.
func (f Format) IsVariableSize() bool {
	switch f {
	case FormatArray, FormatByteArray, FormatOneByteString, FormatTwoByteString,
		FormatFunction, FormatHeapInteger, FormatStack:
		return true
	}
	return false
}
