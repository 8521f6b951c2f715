package object

import (
	"github.com/tinyvm/corevm/internal/core"
	"github.com/tinyvm/corevm/vm/value"
)

// Function holds bytecode plus its literal pool (spec.md §3). Layout:
// header, arity word, bytecode-length word, literal-count word, then
// bytecodeLength bytecode bytes (padded to a word boundary), then
// literalCount Values.
func fnArityAddr(l Layout, a core.Address) core.Address { return l.PayloadStart(a) }
func fnBytecodeLenAddr(l Layout, a core.Address) core.Address {
	return fnArityAddr(l, a).Add(l.ws())
}
func fnLiteralCountAddr(l Layout, a core.Address) core.Address {
	return fnBytecodeLenAddr(l, a).Add(l.ws())
}
func fnBytecodeBase(l Layout, a core.Address) core.Address {
	return fnLiteralCountAddr(l, a).Add(l.ws())
}

func (l Layout) FunctionArity(a core.Address) int64 {
	return int64(l.H.ReadWord(fnArityAddr(l, a)))
}
func (l Layout) SetFunctionArity(a core.Address, n int64) {
	l.H.WriteWord(fnArityAddr(l, a), uint64(n))
}

func (l Layout) FunctionBytecodeLength(a core.Address) int64 {
	return int64(l.H.ReadWord(fnBytecodeLenAddr(l, a)))
}
func (l Layout) SetFunctionBytecodeLength(a core.Address, n int64) {
	l.H.WriteWord(fnBytecodeLenAddr(l, a), uint64(n))
}

func (l Layout) FunctionLiteralCount(a core.Address) int64 {
	return int64(l.H.ReadWord(fnLiteralCountAddr(l, a)))
}
func (l Layout) SetFunctionLiteralCount(a core.Address, n int64) {
	l.H.WriteWord(fnLiteralCountAddr(l, a), uint64(n))
}

func (l Layout) bytecodeWords(a core.Address) int64 {
	n := l.FunctionBytecodeLength(a)
	return (n + l.ws() - 1) / l.ws()
}

// BytecodeAddressFor returns the address of bytecode byte index i within
// the function at a. BytecodeAddressFor(a, 0) is the canonical function
// entry point the interpreter and cooked stacks both key off of
// (spec.md §3).
func (l Layout) BytecodeAddressFor(a core.Address, i int64) core.Address {
	return fnBytecodeBase(l, a).Add(i)
}

// BytecodeDeltaFor returns the byte offset of bcp within the function at
// a's bytecode, the inverse of BytecodeAddressFor. Used by cook/uncook.
func (l Layout) BytecodeDeltaFor(a core.Address, bcp core.Address) int64 {
	return bcp.Sub(fnBytecodeBase(l, a))
}

func (l Layout) functionLiteralsBase(a core.Address) core.Address {
	return fnBytecodeBase(l, a).Add(l.bytecodeWords(a) * l.ws())
}

// FunctionLiteralAt returns literal i of the function at a.
func (l Layout) FunctionLiteralAt(a core.Address, i int64) value.Value {
	return value.FromWord(l.H.ReadWord(l.functionLiteralsBase(a).Add(i * l.ws())))
}

func (l Layout) SetFunctionLiteralAt(a core.Address, i int64, v value.Value) {
	l.H.WriteWord(l.functionLiteralsBase(a).Add(i*l.ws()), v.Word())
}

// FunctionBytecodeBytes returns the raw bytecode bytes of the function at
// a. The slice aliases heap memory.
func (l Layout) FunctionBytecodeBytes(a core.Address) []byte {
	return l.H.Slice(fnBytecodeBase(l, a), l.FunctionBytecodeLength(a))
}

// FunctionSize returns the total object size in words, including header.
func (l Layout) FunctionSize(a core.Address) int64 {
	return HeaderWords + 3 + l.bytecodeWords(a) + l.FunctionLiteralCount(a)
}

// ContainsBCP reports whether bcp falls within this function's bytecode.
func (l Layout) ContainsBCP(a core.Address, bcp core.Address) bool {
	start := fnBytecodeBase(l, a)
	return bcp >= start && bcp < start.Add(l.FunctionBytecodeLength(a))
}
