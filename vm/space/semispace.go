// Package space implements corevm's two heap space kinds (spec.md §4.1):
// SemiSpace, a bump-pointer chunked region used for new space and for the
// program heap, and OldSpace, a free-list region with mark bits and
// object-start tables used for the mature data heap. Both satisfy
// vm/object.Heap so object accessors work identically regardless of which
// space an object lives in.
package space

import (
	"github.com/tinyvm/corevm/arch"
	"github.com/tinyvm/corevm/internal/core"
)

// FailureAddress is the sentinel returned by Allocate on failure
// (spec.md §4.1's FailureObject). It is never a valid object address
// because chunk bases start well above it.
const FailureAddress core.Address = 0

// ChunkSize is the default size of a single SemiSpace chunk.
const ChunkSize = 1 << 20 // 1MB, generous for an embedded heap region

// SemiSpace is a linked list of fixed-size chunks, each bump-allocated
// independently (spec.md §4.1). It backs both new space (one of a pair,
// see TwoSpaceHeap) and the immutable program heap.
type SemiSpace struct {
	w         arch.Word
	chunkSize int64
	chunks    []*core.Chunk
	tops      []core.Address // current bump pointer per chunk
	active    int            // index of the chunk currently being bumped into
	canResize bool
	name      string
}

// NewSemiSpace creates an empty semi-space with one initial chunk.
func NewSemiSpace(name string, w arch.Word, chunkSize int64, canResize bool) (*SemiSpace, error) {
	s := &SemiSpace{w: w, chunkSize: chunkSize, canResize: true, name: name}
	if _, err := s.addChunk(); err != nil {
		return nil, err
	}
	s.canResize = canResize
	return s, nil
}

func (s *SemiSpace) addChunk() (*core.Chunk, error) {
	c, err := core.NewChunk(s.chunkSize, s.w)
	if err != nil {
		return nil, err
	}
	s.chunks = append(s.chunks, c)
	s.tops = append(s.tops, c.Base())
	return c, nil
}

// Allocate bumps n bytes (word-aligned) from the active chunk, acquiring a
// new chunk if the active one is exhausted and CanResize allows it.
// Returns FailureAddress on failure (spec.md §4.1).
func (s *SemiSpace) Allocate(n int64) core.Address {
	n = int64(core.Address(n).AlignUp(int64(s.w.PointerSize)))
	if a, ok := s.bump(s.active, n); ok {
		return a
	}
	// Slow path: look for room in any existing chunk, then try to grow.
	for i := range s.chunks {
		if a, ok := s.bump(i, n); ok {
			s.active = i
			return a
		}
	}
	if !s.canResize {
		return FailureAddress
	}
	c, err := s.addChunk()
	if err != nil {
		return FailureAddress
	}
	if n > c.Size() {
		return FailureAddress
	}
	s.active = len(s.chunks) - 1
	a := s.tops[s.active]
	s.tops[s.active] = a.Add(n)
	return a
}

func (s *SemiSpace) bump(i int, n int64) (core.Address, bool) {
	c := s.chunks[i]
	top := s.tops[i]
	if top.Add(n) > c.End() {
		return FailureAddress, false
	}
	s.tops[i] = top.Add(n)
	return top, true
}

// CanResize reports whether this space is allowed to acquire new chunks.
func (s *SemiSpace) CanResize() bool { return s.canResize }

// SetCanResize toggles chunk growth. With growth off, Allocate returns
// FailureAddress once the existing chunks are full instead of acquiring a
// new one (spec.md §4.1).
func (s *SemiSpace) SetCanResize(v bool) { s.canResize = v }

// Reset discards all chunks but one and rewinds the bump pointer, leaving
// the space empty for reuse.
func (s *SemiSpace) Reset() {
	for _, c := range s.chunks[1:] {
		c.Free()
	}
	s.chunks = s.chunks[:1]
	s.tops = s.tops[:1]
	s.active = 0
	s.tops[0] = s.chunks[0].Base()
}

// Free releases every chunk backing this space. Used when a from-space is
// discarded entirely after a scavenge swap, rather than recycled via Reset.
func (s *SemiSpace) Free() {
	for _, c := range s.chunks {
		c.Free()
	}
	s.chunks = nil
	s.tops = nil
	s.active = 0
}

// Used returns the number of bytes currently bump-allocated across all
// chunks.
func (s *SemiSpace) Used() int64 {
	var n int64
	for i, c := range s.chunks {
		n += s.tops[i].Sub(c.Base())
	}
	return n
}

// Capacity returns the total size across all chunks.
func (s *SemiSpace) Capacity() int64 {
	var n int64
	for _, c := range s.chunks {
		n += c.Size()
	}
	return n
}

func (s *SemiSpace) chunkFor(a core.Address) *core.Chunk {
	for _, c := range s.chunks {
		if c.Contains(a) {
			return c
		}
	}
	return nil
}

// Contains reports whether a falls within any chunk and below its current
// bump pointer (i.e. it addresses a live allocation, not unused tail).
func (s *SemiSpace) Contains(a core.Address) bool {
	for i, c := range s.chunks {
		if c.Contains(a) && a < s.tops[i] {
			return true
		}
	}
	return false
}

// IterateObjects calls fn with the address of every allocated object,
// chunk by chunk and in bump order (oldest first) within each chunk.
func (s *SemiSpace) IterateObjects(sizeOf func(core.Address) int64, fn func(core.Address) bool) {
	for i, c := range s.chunks {
		a := c.Base()
		top := s.tops[i]
		for a < top {
			if !fn(a) {
				return
			}
			a = a.Add(sizeOf(a))
		}
	}
}

// --- object.Heap implementation ---

func (s *SemiSpace) ReadWord(a core.Address) uint64 { return s.chunkFor(a).ReadWord(a) }
func (s *SemiSpace) WriteWord(a core.Address, v uint64) {
	s.chunkFor(a).WriteWord(a, v)
}
func (s *SemiSpace) ReadByte(a core.Address) byte { return s.chunkFor(a).ReadByte(a) }
func (s *SemiSpace) WriteByte(a core.Address, v byte) {
	s.chunkFor(a).WriteByte(a, v)
}
func (s *SemiSpace) Slice(a core.Address, n int64) []byte {
	return s.chunkFor(a).Slice(a, n)
}
