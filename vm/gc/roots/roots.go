// Package roots defines the root-set abstraction shared by the scavenger
// and the old-space collector (spec.md §4.3, §4.4): a root is anywhere
// outside the heap itself that might hold a pointer into it. Both
// collectors need to read a root's current value and, after moving the
// object it points to, write the forwarded value back — so a root is
// modeled as a (get, set) pair rather than a bare address, since several
// kinds of roots (named Program slots held in a Go map, Process fields)
// aren't raw heap memory at all.
package roots

import "github.com/tinyvm/corevm/vm/value"

// A Slot is one root: a place outside the heap that currently holds v,
// and that must be updated in place if the collector moves the object v
// points to.
type Slot struct {
	Get func() value.Value
	Set func(value.Value)
}

// A Source enumerates every root slot reachable at GC time: named program
// roots, every process's current stack pointer, and every process's open
// ports (spec.md §3's Program/Process field lists).
type Source interface {
	VisitRoots(fn func(Slot))
}
