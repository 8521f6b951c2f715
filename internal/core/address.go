// Copyright 2017 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package core provides the raw addressable memory the VM's heap spaces
// are carved out of. Unlike the reference debugger's core package, which
// reads a foreign process's memory from an ELF core file, this core package
// owns live, writable memory backing the VM's own two-space and old-space
// heaps: it mmaps anonymous chunks from the OS and exposes word-at-a-time
// access to them. There is nothing GC-specific here; see vm/space for that.
package core

import "fmt"

// Address is a byte offset into a Chunk, or (for comparisons across
// chunks) an absolute word value. Spaces always deal in absolute
// addresses: a Chunk reports its own base via Chunk.Base, and every
// Address handed out by a Chunk already has that base folded in.
type Address uint64

// Add returns a+n.
func (a Address) Add(n int64) Address {
	return Address(int64(a) + n)
}

// Sub returns a-b.
func (a Address) Sub(b Address) int64 {
	return int64(a) - int64(b)
}

// AlignUp rounds a up to a multiple of n, which must be a power of two.
func (a Address) AlignUp(n int64) Address {
	return Address((uint64(a) + uint64(n) - 1) &^ (uint64(n) - 1))
}

func (a Address) String() string {
	return fmt.Sprintf("0x%x", uint64(a))
}
