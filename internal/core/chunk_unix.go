// Copyright 2017 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build darwin || dragonfly || freebsd || linux || netbsd || openbsd || solaris

package core

import "golang.org/x/sys/unix"

// mmapAnon acquires a zeroed, read-write anonymous mapping of size bytes.
// Chunks use this rather than a plain make([]byte, size) because the
// memory genuinely comes from the OS the way a real embedded VM's heap
// does, and because munmap lets a Chunk give pages back instead of
// waiting on the Go garbage collector to notice a big slice is dead.
func mmapAnon(size int) ([]byte, error) {
	return unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
}

func munmapAnon(b []byte) error {
	return unix.Munmap(b)
}
