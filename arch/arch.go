// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package arch contains the host word-size and byte-order definitions
// shared by the tagged-value layer, object layout, and snapshot writer.
// corevm targets one word size per build (32-bit on embedded boards,
// 64-bit on desktop-class hosts); centralizing it here means nothing else
// under vm/ hardcodes a width.
package arch

import "encoding/binary"

// Word describes the machine word an instance of the VM is built for.
type Word struct {
	// PointerSize is the size of a tagged value or heap pointer, in bytes.
	PointerSize int
	// ByteOrder is the byte order used for in-memory words.
	ByteOrder binary.ByteOrder
}

func (w Word) Bits() int { return w.PointerSize * 8 }

// SmiBits is the number of usable magnitude bits in a tagged small integer:
// one word, minus the tag bit, minus the sign bit.
func (w Word) SmiBits() int { return w.Bits() - 2 }

// MaxSmi is the largest value representable as a tagged small integer.
// Large integers above this must be boxed (InstanceFormat heap-integer).
func (w Word) MaxSmi() int64 { return int64(1)<<w.SmiBits() - 1 }

// MinSmi is the smallest value representable as a tagged small integer.
func (w Word) MinSmi() int64 { return -(int64(1) << w.SmiBits()) }

// Amd64 is the 64-bit word layout used by desktop-class development hosts.
var Amd64 = Word{PointerSize: 8, ByteOrder: binary.LittleEndian}

// Arm32 is the 32-bit word layout used by typical embedded boards; this is
// the layout the program GC's snapshot variant must stay portable to, per
// spec.md §4.5 (boxing smis that no longer fit as 32-bit smis).
var Arm32 = Word{PointerSize: 4, ByteOrder: binary.LittleEndian}

// Host is the word layout corevm is built for.
var Host = Amd64
