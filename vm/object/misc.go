package object

import (
	"github.com/tinyvm/corevm/internal/core"
	"github.com/tinyvm/corevm/vm/value"
)

// Initializer wraps a lazily-run static-field initializer function
// (spec.md §3's InstanceFormat list). Layout: header, function Value.
func initializerFunctionAddr(l Layout, a core.Address) core.Address {
	return l.PayloadStart(a)
}

func (l Layout) InitializerFunction(a core.Address) value.Value {
	return value.FromWord(l.H.ReadWord(initializerFunctionAddr(l, a)))
}

func (l Layout) SetInitializerFunction(a core.Address, fn value.Value) {
	l.H.WriteWord(initializerFunctionAddr(l, a), fn.Word())
}

// DispatchTableEntry is one row of a class's virtual-call dispatch table:
// a (selector, target function) pair materialized as a heap object so it
// can be patched by inline-cache rewriting without reallocating the whole
// table (spec.md §2 mentions inline caches as part of the mutator model).
func dispatchSelectorAddr(l Layout, a core.Address) core.Address {
	return l.PayloadStart(a)
}
func dispatchTargetAddr(l Layout, a core.Address) core.Address {
	return dispatchSelectorAddr(l, a).Add(l.ws())
}

func (l Layout) DispatchSelector(a core.Address) value.Value {
	return value.FromWord(l.H.ReadWord(dispatchSelectorAddr(l, a)))
}
func (l Layout) SetDispatchSelector(a core.Address, sel value.Value) {
	l.H.WriteWord(dispatchSelectorAddr(l, a), sel.Word())
}
func (l Layout) DispatchTarget(a core.Address) value.Value {
	return value.FromWord(l.H.ReadWord(dispatchTargetAddr(l, a)))
}
func (l Layout) SetDispatchTarget(a core.Address, fn value.Value) {
	l.H.WriteWord(dispatchTargetAddr(l, a), fn.Word())
}

// Coroutine wraps a process's currently executing Stack plus a link to the
// caller coroutine it will resume when it completes (spec.md §3's
// InstanceFormat list; used by the process/port model in vm/process).
// Layout: header, stack Value, caller Value.
func coroutineStackAddr(l Layout, a core.Address) core.Address {
	return l.PayloadStart(a)
}
func coroutineCallerAddr(l Layout, a core.Address) core.Address {
	return coroutineStackAddr(l, a).Add(l.ws())
}

func (l Layout) CoroutineStack(a core.Address) value.Value {
	return value.FromWord(l.H.ReadWord(coroutineStackAddr(l, a)))
}
func (l Layout) SetCoroutineStack(a core.Address, stack value.Value) {
	l.H.WriteWord(coroutineStackAddr(l, a), stack.Word())
}
func (l Layout) CoroutineCaller(a core.Address) value.Value {
	return value.FromWord(l.H.ReadWord(coroutineCallerAddr(l, a)))
}
func (l Layout) SetCoroutineCaller(a core.Address, caller value.Value) {
	l.H.WriteWord(coroutineCallerAddr(l, a), caller.Word())
}

// Port is a process mailbox endpoint (spec.md §3, §4.3's "process ports
// them periodically needing cleanup"). Layout: header, owner-process-id
// word, queue-head Value (a linked list of pending messages, or null).
func portOwnerAddr(l Layout, a core.Address) core.Address {
	return l.PayloadStart(a)
}
func portQueueAddr(l Layout, a core.Address) core.Address {
	return portOwnerAddr(l, a).Add(l.ws())
}

func (l Layout) PortOwner(a core.Address) uint64 {
	return l.H.ReadWord(portOwnerAddr(l, a))
}
func (l Layout) SetPortOwner(a core.Address, id uint64) {
	l.H.WriteWord(portOwnerAddr(l, a), id)
}
func (l Layout) PortQueue(a core.Address) value.Value {
	return value.FromWord(l.H.ReadWord(portQueueAddr(l, a)))
}
func (l Layout) SetPortQueue(a core.Address, q value.Value) {
	l.H.WriteWord(portQueueAddr(l, a), q.Word())
}
