package object

import "github.com/tinyvm/corevm/internal/core"

// PointerOpts controls which fields ForEachPointer visits. The same
// per-format field layout serves both data GCs (which only care about
// process-heap fields and never touch program space) and the program GC's
// process-pointer forwarding pass (which additionally needs the header
// class pointer and, for cooked stacks, the bcp slot reinterpreted as a
// function pointer) — see spec.md §9's note that these must stay two
// separate visitors even though the field layout they walk is shared.
type PointerOpts struct {
	// IncludeClass visits the object's header class pointer as a field.
	IncludeClass bool
	// StackBCPAsPointer treats a Stack's per-frame bcp slot as a pointer
	// field (true only while the stack is cooked, spec.md §4.5 step 3).
	StackBCPAsPointer bool
}

// ForEachPointer calls fn with the address of every pointer-valued field
// of the object at a, as selected by opts. fn returning false stops the
// walk early. Callers read/write the raw word at each reported address
// themselves — this keeps ForEachPointer usable both for tracing
// (read-only) and for in-place forwarding (read-modify-write), the two
// things the scavenger, the old-space collector, and the program GC all
// need to do to pointer fields.
func (l Layout) ForEachPointer(a core.Address, opts PointerOpts, fn func(core.Address) bool) bool {
	if opts.IncludeClass {
		if !fn(a) {
			return false
		}
	}
	class := l.ClassPointer(a)
	format := l.InstanceFormat(class)
	switch format {
	case FormatArray:
		n := l.ArrayLength(a)
		for i := int64(0); i < n; i++ {
			if !fn(arrayElemAddr(l, a, i)) {
				return false
			}
		}
	case FormatInstance:
		n := l.NumInstanceFields(class)
		for i := int64(0); i < n; i++ {
			if !fn(instanceFieldAddr(l, a, i)) {
				return false
			}
		}
	case FormatClass:
		if !fn(classFieldAddr(l, a, classFieldSuper)) {
			return false
		}
		if !fn(classFieldAddr(l, a, classFieldMethods)) {
			return false
		}
	case FormatFunction:
		n := l.FunctionLiteralCount(a)
		base := l.functionLiteralsBase(a)
		for i := int64(0); i < n; i++ {
			if !fn(base.Add(i * l.ws())) {
				return false
			}
		}
	case FormatInitializer:
		if !fn(initializerFunctionAddr(l, a)) {
			return false
		}
	case FormatDispatchTableEntry:
		if !fn(dispatchSelectorAddr(l, a)) {
			return false
		}
		if !fn(dispatchTargetAddr(l, a)) {
			return false
		}
	case FormatCoroutine:
		if !fn(coroutineStackAddr(l, a)) {
			return false
		}
		if !fn(coroutineCallerAddr(l, a)) {
			return false
		}
	case FormatPort:
		if !fn(portQueueAddr(l, a)) {
			return false
		}
	case FormatStack:
		c := l.Frames(a)
		for c.Valid() {
			if opts.StackBCPAsPointer {
				if !fn(c.addr) {
					return false
				}
			}
			nl := c.NumLocals()
			base := c.localsBase()
			for i := int64(0); i < nl; i++ {
				if !fn(base.Add(i * l.ws())) {
					return false
				}
			}
			c.Next()
		}
	case FormatByteArray, FormatOneByteString, FormatTwoByteString, FormatDouble, FormatHeapInteger:
		// No pointer fields beyond (optionally) the class header above.
	}
	return true
}
