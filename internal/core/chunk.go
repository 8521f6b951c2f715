// Copyright 2017 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package core

import (
	"github.com/tinyvm/corevm/arch"
)

// nextChunkBase hands out disjoint, page-aligned base addresses for
// successive chunks so that Address arithmetic across chunks (as done by
// the object-start and mark-bit tables) never collides. Real allocation
// addresses are not required to be deterministic across runs (spec.md §1),
// so a simple monotonic counter is enough.
var nextChunkBase = Address(1 << 20)

const pageSize = 1 << 12

// A Chunk is a single contiguous slab of heap memory, word-addressable.
// SemiSpace and OldSpace are both built out of a list of Chunks.
type Chunk struct {
	base  Address
	bytes []byte
	word  arch.Word
}

// NewChunk acquires a chunk of at least size bytes, rounded up to a page.
func NewChunk(size int64, w arch.Word) (*Chunk, error) {
	n := int((Address(size).AlignUp(pageSize)))
	b, err := mmapAnon(n)
	if err != nil {
		return nil, err
	}
	base := nextChunkBase
	nextChunkBase = nextChunkBase.Add(int64(n)).AlignUp(pageSize)
	return &Chunk{base: base, bytes: b, word: w}, nil
}

// Free releases the chunk's backing memory back to the OS.
func (c *Chunk) Free() error {
	return munmapAnon(c.bytes)
}

// Base returns the address of the first byte of the chunk.
func (c *Chunk) Base() Address { return c.base }

// Size returns the chunk's size in bytes.
func (c *Chunk) Size() int64 { return int64(len(c.bytes)) }

// End returns the address just past the last byte of the chunk.
func (c *Chunk) End() Address { return c.base.Add(c.Size()) }

// Contains reports whether a falls within the chunk.
func (c *Chunk) Contains(a Address) bool {
	return a >= c.base && a < c.End()
}

func (c *Chunk) off(a Address) int64 {
	return a.Sub(c.base)
}

// ReadWord reads a full machine word at a.
func (c *Chunk) ReadWord(a Address) uint64 {
	b := c.bytes[c.off(a):]
	if c.word.PointerSize == 4 {
		return uint64(c.word.ByteOrder.Uint32(b[:4]))
	}
	return c.word.ByteOrder.Uint64(b[:8])
}

// WriteWord writes a full machine word at a.
func (c *Chunk) WriteWord(a Address, v uint64) {
	b := c.bytes[c.off(a):]
	if c.word.PointerSize == 4 {
		c.word.ByteOrder.PutUint32(b[:4], uint32(v))
		return
	}
	c.word.ByteOrder.PutUint64(b[:8], v)
}

// ReadByte reads a single byte at a.
func (c *Chunk) ReadByte(a Address) byte {
	return c.bytes[c.off(a)]
}

// WriteByte writes a single byte at a.
func (c *Chunk) WriteByte(a Address, v byte) {
	c.bytes[c.off(a)] = v
}

// Slice returns the raw bytes in [a, a+n), for bulk copy during scavenging
// and compaction.
func (c *Chunk) Slice(a Address, n int64) []byte {
	o := c.off(a)
	return c.bytes[o : o+n]
}

// Zero clears [a, a+n) to zero, used to scrub the freed tail of a chunk
// after compaction (spec.md §4.4).
func (c *Chunk) Zero(a Address, n int64) {
	b := c.Slice(a, n)
	for i := range b {
		b[i] = 0
	}
}
