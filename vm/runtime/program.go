// Package runtime wires corevm's spaces, collectors, process list, and
// breakpoint table into one running Program (spec.md §3, §6): the object
// an embedder creates once and drives for the life of a VM instance.
package runtime

import (
	"github.com/tinyvm/corevm/arch"
	"github.com/tinyvm/corevm/vm/barrier"
	"github.com/tinyvm/corevm/vm/debug"
	"github.com/tinyvm/corevm/vm/gc/oldspace"
	pgc "github.com/tinyvm/corevm/vm/gc/program"
	"github.com/tinyvm/corevm/vm/gc/roots"
	"github.com/tinyvm/corevm/vm/gc/scavenge"
	"github.com/tinyvm/corevm/vm/heap"
	"github.com/tinyvm/corevm/vm/process"
	"github.com/tinyvm/corevm/vm/space"
	"github.com/tinyvm/corevm/vm/value"
)

// Program is a complete corevm instance: the shared process heap, the
// immutable program (code/class) heap, every live process, the
// breakpoint table, and the three collectors that keep them all
// consistent (spec.md §3's Program field list).
type Program struct {
	W         arch.Word
	Heap      *heap.TwoSpaceHeap
	RS        *barrier.RememberedSet
	Processes *process.List
	Debug     *debug.DebugInfo

	// Roots holds every named program-space root (null, false, true,
	// double_class, and whatever classes/globals an embedder installs).
	// It is exported so an embedder can bootstrap it directly; corevm
	// itself only ever walks or forwards it, never interprets a key.
	Roots map[string]value.Value

	scavenger *scavenge.Scavenger
	oldGC     *oldspace.Collector
	programGC *pgc.Collector

	lastScavenge scavenge.Stats
	lastOldGC    oldspace.Stats
	lastProgram  pgc.Stats
}

// New creates a Program with fresh new/old spaces and an empty program
// space, and wires its three collectors together so they all see the
// same root set.
func New(w arch.Word) (*Program, error) {
	h, err := heap.NewTwoSpaceHeap(w)
	if err != nil {
		return nil, err
	}
	code, err := space.NewSemiSpace("program", w, space.ChunkSize, true)
	if err != nil {
		return nil, err
	}
	h.SetProgram(code)

	p := &Program{
		W:         w,
		Heap:      h,
		RS:        barrier.New(),
		Processes: process.NewList(),
		Debug:     debug.New(),
		Roots:     make(map[string]value.Value),
	}
	p.scavenger = &scavenge.Scavenger{W: w, Heap: h, RS: p.RS, Src: p}
	p.oldGC = &oldspace.Collector{W: w, Old: h.Old, Heap: h, Src: p, RS: p.RS}
	p.programGC = &pgc.Collector{
		W: w, Code: code, Heap: h, Processes: p.Processes, DebugInfo: p.Debug,
		Roots: p.Roots, Old: p.oldGC, New: p.scavenger, Src: p,
	}
	return p, nil
}

// VisitRoots implements roots.Source: it is the single root set every
// collector in this Program shares (spec.md §4.3, §4.4, §4.5 all visit
// the same roots, just with different pointer-kind filters applied by
// the caller).
func (p *Program) VisitRoots(fn func(roots.Slot)) {
	for name := range p.Roots {
		name := name
		fn(roots.Slot{
			Get: func() value.Value { return p.Roots[name] },
			Set: func(v value.Value) { p.Roots[name] = v },
		})
	}
	p.Processes.Each(func(proc *process.Process) {
		fn(roots.Slot{
			Get: func() value.Value { return proc.Stack },
			Set: func(v value.Value) { proc.Stack = v },
		})
		for i := range proc.Ports {
			i := i
			fn(roots.Slot{
				Get: func() value.Value { return proc.Ports[i] },
				Set: func(v value.Value) { proc.Ports[i] = v },
			})
		}
	})
	p.Debug.VisitProcessPointers(fn)
}

// CollectNewSpace runs one scavenge cycle (spec.md §4.3). If the cycle's
// promotions suggest old space is close to full, it also runs an
// old-space cycle immediately after (spec.md §4.3 step 6).
func (p *Program) CollectNewSpace() (scavenge.Stats, error) {
	st, err := p.scavenger.Run()
	p.lastScavenge = st
	if err != nil {
		return st, err
	}
	if p.scavenger.TriggerOldSpaceGC {
		p.scavenger.TriggerOldSpaceGC = false
		p.lastOldGC = p.oldGC.Run()
	}
	return st, nil
}

// CollectOldSpace runs one old-space mark-sweep/mark-compact cycle
// (spec.md §4.4).
func (p *Program) CollectOldSpace() oldspace.Stats {
	p.lastOldGC = p.oldGC.Run()
	return p.lastOldGC
}

// CollectProgramSpace runs one ordinary (non-snapshot) program GC
// (spec.md §4.5).
func (p *Program) CollectProgramSpace() (pgc.Stats, error) {
	st, err := p.programGC.Run(false)
	p.lastProgram = st
	if err != nil {
		return st, err
	}
	p.Heap.SetProgram(p.programGC.Code)
	return st, nil
}

// Snapshot runs the snapshot variant of the program GC: the same move as
// CollectProgramSpace, but with popularity-ordered, priority-placed
// to-space layout (spec.md §4.5, §9), suitable for writing the resulting
// program space out as an image.
func (p *Program) Snapshot() (pgc.Stats, error) {
	st, err := p.programGC.Run(true)
	p.lastProgram = st
	if err != nil {
		return st, err
	}
	p.Heap.SetProgram(p.programGC.Code)
	return st, nil
}

// SpawnProcess allocates a new process under parent (nil for the main
// process); see process.List.SpawnProcess (spec.md §4.6).
func (p *Program) SpawnProcess(parent *process.Process, newStack func() (value.Value, error)) (*process.Process, error) {
	return p.Processes.SpawnProcess(parent, newStack)
}

// ScheduleProcessForDeletion tears proc down; see
// process.List.ScheduleProcessForDeletion (spec.md §4.6).
func (p *Program) ScheduleProcessForDeletion(proc *process.Process, kind process.ExitKind) {
	p.Processes.ScheduleProcessForDeletion(proc, kind)
}

// LastStats returns the statistics from the most recent cycle of each
// collector, for reporting (spec.md §8).
func (p *Program) LastStats() (scavenge.Stats, oldspace.Stats, pgc.Stats) {
	return p.lastScavenge, p.lastOldGC, p.lastProgram
}

// CodeSpace returns the program's current code/class semispace.
func (p *Program) CodeSpace() *space.SemiSpace { return p.programGC.Code }
