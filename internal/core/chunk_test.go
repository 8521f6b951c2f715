package core

import (
	"testing"

	"github.com/tinyvm/corevm/arch"
)

func newTestChunk(t *testing.T, size int64) *Chunk {
	t.Helper()
	c, err := NewChunk(size, arch.Host)
	if err != nil {
		t.Fatalf("NewChunk(%d): %v", size, err)
	}
	t.Cleanup(func() { c.Free() })
	return c
}

func TestChunkBaseAndSize(t *testing.T) {
	c := newTestChunk(t, 100)
	if c.Size() != pageSize {
		t.Errorf("Size() = %d, want %d (rounded up to a page)", c.Size(), pageSize)
	}
	if c.End() != c.Base().Add(c.Size()) {
		t.Errorf("End() = %v, want Base()+Size()", c.End())
	}
}

func TestChunkDisjointBases(t *testing.T) {
	c1 := newTestChunk(t, 100)
	c2 := newTestChunk(t, 100)
	if c1.Contains(c2.Base()) || c2.Contains(c1.Base()) {
		t.Errorf("chunks overlap: %v..%v and %v..%v", c1.Base(), c1.End(), c2.Base(), c2.End())
	}
}

func TestChunkContains(t *testing.T) {
	c := newTestChunk(t, 4096)
	if !c.Contains(c.Base()) {
		t.Error("chunk should contain its own base")
	}
	if c.Contains(c.End()) {
		t.Error("chunk should not contain its own end (exclusive)")
	}
	if c.Contains(c.Base().Add(-1)) {
		t.Error("chunk should not contain address before its base")
	}
}

func TestChunkReadWriteWord(t *testing.T) {
	c := newTestChunk(t, 4096)
	a := c.Base()
	c.WriteWord(a, 0xdeadbeef)
	if got := c.ReadWord(a); got != 0xdeadbeef {
		t.Errorf("ReadWord() = %#x, want 0xdeadbeef", got)
	}
	a2 := a.Add(8)
	c.WriteWord(a2, ^uint64(0))
	if got := c.ReadWord(a2); got != ^uint64(0) {
		t.Errorf("ReadWord() = %#x, want all-ones", got)
	}
	if got := c.ReadWord(a); got != 0xdeadbeef {
		t.Errorf("adjacent write corrupted first word: ReadWord() = %#x", got)
	}
}

func TestChunkReadWriteByte(t *testing.T) {
	c := newTestChunk(t, 4096)
	a := c.Base().Add(3)
	c.WriteByte(a, 0x7f)
	if got := c.ReadByte(a); got != 0x7f {
		t.Errorf("ReadByte() = %#x, want 0x7f", got)
	}
}

func TestChunkSliceAndZero(t *testing.T) {
	c := newTestChunk(t, 4096)
	a := c.Base()
	b := c.Slice(a, 4)
	for i := range b {
		b[i] = byte(i + 1)
	}
	if c.ReadByte(a.Add(2)) != 3 {
		t.Errorf("Slice() write did not propagate to chunk")
	}
	c.Zero(a, 4)
	for i := int64(0); i < 4; i++ {
		if c.ReadByte(a.Add(i)) != 0 {
			t.Errorf("Zero() left non-zero byte at offset %d", i)
		}
	}
}
