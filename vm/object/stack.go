package object

import (
	"github.com/tinyvm/corevm/internal/core"
	"github.com/tinyvm/corevm/vm/value"
)

// Stack holds one coroutine's interpreter frames (spec.md §3, §4.5).
// Layout: header, capacity word (frame-region word count), next word
// (chain link used only during program GC, spec.md §4.5 step 2), frame
// count word, then the frame region itself.
//
// Each frame is: a bcp word (meaning depends on Cooked, see below), a
// locals-count word, then that many tagged Values. The per-stack "cooked"
// flag and the (function, delta) pairs recorded while cooking are NOT part
// of this layout — they live in the program GC's own scope-local tables
// (spec.md §9's "never surviving across mutator turns"), because a cooked
// bcp word and an ordinary tagged Value pointer are otherwise
// indistinguishable to a generic heap walk.
func stackCapacityAddr(l Layout, a core.Address) core.Address { return l.PayloadStart(a) }
func stackNextAddr(l Layout, a core.Address) core.Address {
	return stackCapacityAddr(l, a).Add(l.ws())
}
func stackFrameCountAddr(l Layout, a core.Address) core.Address {
	return stackNextAddr(l, a).Add(l.ws())
}
func stackFramesBase(l Layout, a core.Address) core.Address {
	return stackFrameCountAddr(l, a).Add(l.ws())
}

func (l Layout) StackCapacity(a core.Address) int64 {
	return int64(l.H.ReadWord(stackCapacityAddr(l, a)))
}
func (l Layout) SetStackCapacity(a core.Address, words int64) {
	l.H.WriteWord(stackCapacityAddr(l, a), uint64(words))
}

// StackNext returns the chain link used to thread all live stacks together
// during program GC (zero when not part of the chain).
func (l Layout) StackNext(a core.Address) core.Address {
	return core.Address(l.H.ReadWord(stackNextAddr(l, a)))
}
func (l Layout) SetStackNext(a core.Address, next core.Address) {
	l.H.WriteWord(stackNextAddr(l, a), uint64(next))
}

func (l Layout) StackFrameCount(a core.Address) int64 {
	return int64(l.H.ReadWord(stackFrameCountAddr(l, a)))
}
func (l Layout) SetStackFrameCount(a core.Address, n int64) {
	l.H.WriteWord(stackFrameCountAddr(l, a), uint64(n))
}

// StackSize returns the total object size in words, including header.
func (l Layout) StackSize(a core.Address) int64 {
	return HeaderWords + 3 + l.StackCapacity(a)
}

// A FrameCursor walks a stack's frames from the top (most recently called)
// to the bottom, the order spec.md §4.5 step 3 requires for cooking.
type FrameCursor struct {
	l    Layout
	a    core.Address
	addr core.Address // address of the current frame's bcp word
	idx  int64
}

// Frames returns a cursor positioned at the topmost frame of the stack at
// a. Call Next to advance; Valid reports whether the cursor is on a frame.
func (l Layout) Frames(a core.Address) *FrameCursor {
	return &FrameCursor{l: l, a: a, addr: stackFramesBase(l, a), idx: 0}
}

func (c *FrameCursor) Valid() bool {
	return c.idx < c.l.StackFrameCount(c.a)
}

// BCPWord returns the raw bcp-slot word of the current frame: an interior
// bytecode address when the stack is uncooked, or a tagged function
// pointer when cooked (the caller, i.e. the program GC, tracks which).
func (c *FrameCursor) BCPWord() uint64 {
	return c.l.H.ReadWord(c.addr)
}

func (c *FrameCursor) SetBCPWord(w uint64) {
	c.l.H.WriteWord(c.addr, w)
}

// BCP interprets the current frame's bcp slot as a raw interior bytecode
// address (only meaningful while the stack is uncooked).
func (c *FrameCursor) BCP() core.Address {
	return core.Address(c.BCPWord())
}

func (c *FrameCursor) SetBCP(bcp core.Address) {
	c.SetBCPWord(uint64(bcp))
}

// FunctionPointer interprets the current frame's bcp slot as a tagged
// function Value (only meaningful while the stack is cooked).
func (c *FrameCursor) FunctionPointer() value.Value {
	return value.FromWord(c.BCPWord())
}

func (c *FrameCursor) SetFunctionPointer(v value.Value) {
	c.SetBCPWord(v.Word())
}

func (c *FrameCursor) localsCountAddr() core.Address {
	return c.addr.Add(c.l.ws())
}

// NumLocals returns the number of local Value slots in the current frame.
func (c *FrameCursor) NumLocals() int64 {
	return int64(c.l.H.ReadWord(c.localsCountAddr()))
}

func (c *FrameCursor) localsBase() core.Address {
	return c.localsCountAddr().Add(c.l.ws())
}

// LocalAt returns local slot i of the current frame.
func (c *FrameCursor) LocalAt(i int64) value.Value {
	return value.FromWord(c.l.H.ReadWord(c.localsBase().Add(i * c.l.ws())))
}

func (c *FrameCursor) SetLocalAt(i int64, v value.Value) {
	c.l.H.WriteWord(c.localsBase().Add(i*c.l.ws()), v.Word())
}

func (c *FrameCursor) frameWords() int64 {
	return 2 + c.NumLocals()
}

// Next advances the cursor to the next frame down the stack.
func (c *FrameCursor) Next() {
	c.addr = c.addr.Add(c.frameWords() * c.l.ws())
	c.idx++
}
