package space

import (
	"sort"

	"github.com/tinyvm/corevm/arch"
	"github.com/tinyvm/corevm/internal/core"
)

// OldSpaceChunkSize is the default size of a single OldSpace chunk.
const OldSpaceChunkSize = 1 << 20

// oldChunk pairs a raw memory Chunk with its mark-bit and object-start
// bitmaps (spec.md §4.1, §9: "orthogonal metadata keyed by chunk address
// ... resettable in O(chunk size / word size)"). This is a direct
// adaptation of the reference debugger's heapInfo/heapTable design
// (internal/gocore/object.go), repurposed from describing a foreign
// process's already-built heap to describing chunks this space itself
// owns and mutates.
type oldChunk struct {
	c        *core.Chunk
	words    int64
	mark     []uint64
	objStart []uint64
}

func newOldChunk(c *core.Chunk, ws int64) *oldChunk {
	words := c.Size() / ws
	nw := (words + 63) / 64
	return &oldChunk{c: c, words: words, mark: make([]uint64, nw), objStart: make([]uint64, nw)}
}

func (oc *oldChunk) wordIndex(a core.Address, ws int64) int64 {
	return a.Sub(oc.c.Base()) / ws
}

func (oc *oldChunk) getBit(bits []uint64, i int64) bool {
	return bits[i/64]>>(uint(i)%64)&1 != 0
}
func (oc *oldChunk) setBit(bits []uint64, i int64) {
	bits[i/64] |= uint64(1) << (uint(i) % 64)
}
func (oc *oldChunk) clearBit(bits []uint64, i int64) {
	bits[i/64] &^= uint64(1) << (uint(i) % 64)
}

// A FreeBlock describes one run of unallocated bytes.
type FreeBlock struct {
	Addr core.Address
	Size int64
}

// OldSpace is the free-list, mark-and-sweep/compact region used for
// mature (tenured) objects (spec.md §4.1).
type OldSpace struct {
	w         arch.Word
	chunkSize int64
	canResize bool
	chunks    []*oldChunk
	free      []FreeBlock // sorted by Addr, coalesced
	usedAfterLastGC int64
	budget    int64
}

// NewOldSpace creates an old space with one initial chunk.
func NewOldSpace(w arch.Word, chunkSize int64, canResize bool) (*OldSpace, error) {
	o := &OldSpace{w: w, chunkSize: chunkSize, canResize: canResize, budget: chunkSize}
	if _, err := o.addChunk(); err != nil {
		return nil, err
	}
	return o, nil
}

func (o *OldSpace) addChunk() (*oldChunk, error) {
	c, err := core.NewChunk(o.chunkSize, o.w)
	if err != nil {
		return nil, err
	}
	oc := newOldChunk(c, int64(o.w.PointerSize))
	o.chunks = append(o.chunks, oc)
	o.free = append(o.free, FreeBlock{Addr: c.Base(), Size: c.Size()})
	o.sortFree()
	return oc, nil
}

func (o *OldSpace) sortFree() {
	sort.Slice(o.free, func(i, j int) bool { return o.free[i].Addr < o.free[j].Addr })
}

// Allocate reserves n bytes (word-aligned) via first-fit over the free
// list, growing the space with a new chunk if nothing fits and growth is
// allowed. Returns FailureAddress on failure (spec.md §4.1).
func (o *OldSpace) Allocate(n int64) core.Address {
	n = int64(core.Address(n).AlignUp(int64(o.w.PointerSize)))
	if a, ok := o.allocateFromFreeList(n); ok {
		return a
	}
	if !o.canResize {
		return FailureAddress
	}
	if _, err := o.addChunk(); err != nil {
		return FailureAddress
	}
	if a, ok := o.allocateFromFreeList(n); ok {
		return a
	}
	return FailureAddress
}

func (o *OldSpace) allocateFromFreeList(n int64) (core.Address, bool) {
	for i := range o.free {
		b := &o.free[i]
		if b.Size < n {
			continue
		}
		addr := b.Addr
		if b.Size == n {
			o.free = append(o.free[:i], o.free[i+1:]...)
		} else {
			b.Addr = b.Addr.Add(n)
			b.Size -= n
		}
		o.markObjectStart(addr)
		return addr, true
	}
	return FailureAddress, false
}

func (o *OldSpace) chunkFor(a core.Address) *oldChunk {
	for _, oc := range o.chunks {
		if oc.c.Contains(a) {
			return oc
		}
	}
	return nil
}

// CanResize reports whether this space is allowed to acquire new chunks.
func (o *OldSpace) CanResize() bool { return o.canResize }

func (o *OldSpace) SetCanResize(v bool) { o.canResize = v }

func (o *OldSpace) markObjectStart(a core.Address) {
	oc := o.chunkFor(a)
	oc.setBit(oc.objStart, oc.wordIndex(a, int64(o.w.PointerSize)))
}

func (o *OldSpace) clearObjectStart(a core.Address) {
	oc := o.chunkFor(a)
	oc.clearBit(oc.objStart, oc.wordIndex(a, int64(o.w.PointerSize)))
}

// IsObjectStart reports whether a live or not-yet-swept object begins at a.
func (o *OldSpace) IsObjectStart(a core.Address) bool {
	oc := o.chunkFor(a)
	if oc == nil {
		return false
	}
	return oc.getBit(oc.objStart, oc.wordIndex(a, int64(o.w.PointerSize)))
}

// SetObjectStart marks a as the start of a live object, used by the
// mark-compact collector once it has relocated an object to a.
func (o *OldSpace) SetObjectStart(a core.Address) { o.markObjectStart(a) }

// ClearObjectStart clears the object-start bit at a, used by the collector
// once an object's old location has been vacated by compaction.
func (o *OldSpace) ClearObjectStart(a core.Address) { o.clearObjectStart(a) }

// SetMark marks the object starting at a as reachable.
func (o *OldSpace) SetMark(a core.Address) {
	oc := o.chunkFor(a)
	oc.setBit(oc.mark, oc.wordIndex(a, int64(o.w.PointerSize)))
}

// IsMarked reports whether the object starting at a was marked reachable
// during the current collection.
func (o *OldSpace) IsMarked(a core.Address) bool {
	oc := o.chunkFor(a)
	if oc == nil {
		return false
	}
	return oc.getBit(oc.mark, oc.wordIndex(a, int64(o.w.PointerSize)))
}

// ClearAllMarks zeroes every chunk's mark bitmap in O(chunk/word) time
// each, ahead of a fresh mark phase.
func (o *OldSpace) ClearAllMarks() {
	for _, oc := range o.chunks {
		for i := range oc.mark {
			oc.mark[i] = 0
		}
	}
}

// Chunks exposes the chunk list for the sweeper/compactor, which need to
// walk [base, end) of each chunk directly.
func (o *OldSpace) Chunks() []*Chunk {
	out := make([]*Chunk, len(o.chunks))
	for i, oc := range o.chunks {
		out[i] = &Chunk{oc: oc, w: o.w}
	}
	return out
}

// Chunk is the sweeper/compactor-facing view of one old-space chunk.
type Chunk struct {
	oc *oldChunk
	w  arch.Word
}

func (c *Chunk) Base() core.Address { return c.oc.c.Base() }
func (c *Chunk) End() core.Address  { return c.oc.c.End() }
func (c *Chunk) IsObjectStart(a core.Address) bool {
	return c.oc.getBit(c.oc.objStart, c.oc.wordIndex(a, int64(c.w.PointerSize)))
}
func (c *Chunk) IsMarked(a core.Address) bool {
	return c.oc.getBit(c.oc.mark, c.oc.wordIndex(a, int64(c.w.PointerSize)))
}
func (c *Chunk) ClearObjectStart(a core.Address) {
	c.oc.clearBit(c.oc.objStart, c.oc.wordIndex(a, int64(c.w.PointerSize)))
}
func (c *Chunk) Zero(a core.Address, n int64) { c.oc.c.Zero(a, n) }
func (c *Chunk) Raw() *core.Chunk             { return c.oc.c }

// ResetFreeList discards the current free list; the sweeper rebuilds it
// block by block as it walks live/garbage runs.
func (o *OldSpace) ResetFreeList() {
	o.free = o.free[:0]
}

// AddFree appends a free run discovered by the sweeper/compactor. Runs are
// not required to be added in address order; FinishFreeList sorts them.
func (o *OldSpace) AddFree(addr core.Address, size int64) {
	if size <= 0 {
		return
	}
	o.free = append(o.free, FreeBlock{Addr: addr, Size: size})
}

// FinishFreeList sorts the free list after a sweep/compaction pass.
func (o *OldSpace) FinishFreeList() {
	o.sortFree()
}

// FreeBytes returns the total bytes currently on the free list.
func (o *OldSpace) FreeBytes() int64 {
	var n int64
	for _, b := range o.free {
		n += b.Size
	}
	return n
}

// Capacity returns the total bytes across all chunks.
func (o *OldSpace) Capacity() int64 {
	var n int64
	for _, oc := range o.chunks {
		n += oc.c.Size()
	}
	return n
}

// UsedAfterLastGC returns the live-byte count recorded by the most recent
// sweep or compaction (spec.md §4.1's GC-triggering heuristic input).
func (o *OldSpace) UsedAfterLastGC() int64 { return o.usedAfterLastGC }

func (o *OldSpace) SetUsedAfterLastGC(n int64) { o.usedAfterLastGC = n }

// Budget returns the live-byte threshold above which another old-space GC
// should be scheduled.
func (o *OldSpace) Budget() int64 { return o.budget }

// WidenBudget increases the GC-triggering threshold, used by the
// pointless-GC heuristic (spec.md §4.4) when compaction made no progress.
func (o *OldSpace) WidenBudget(extra int64) { o.budget += extra }

// NeedsGC reports whether usedAfterLastGC has grown past budget.
func (o *OldSpace) NeedsGC() bool { return o.usedAfterLastGC >= o.budget }

// --- object.Heap implementation ---

func (o *OldSpace) ReadWord(a core.Address) uint64    { return o.chunkFor(a).c.ReadWord(a) }
func (o *OldSpace) WriteWord(a core.Address, v uint64) { o.chunkFor(a).c.WriteWord(a, v) }
func (o *OldSpace) ReadByte(a core.Address) byte       { return o.chunkFor(a).c.ReadByte(a) }
func (o *OldSpace) WriteByte(a core.Address, v byte)   { o.chunkFor(a).c.WriteByte(a, v) }
func (o *OldSpace) Slice(a core.Address, n int64) []byte {
	return o.chunkFor(a).c.Slice(a, n)
}

// Contains reports whether a is within any old-space chunk.
func (o *OldSpace) Contains(a core.Address) bool {
	return o.chunkFor(a) != nil
}
