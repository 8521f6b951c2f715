// Package process implements corevm's process lifecycle (spec.md §4.6):
// spawning, parent/child triangle-count bookkeeping, and teardown. A
// Process owns a stack and a port list but shares the program's process
// heap with every other process (spec.md §3).
package process

import (
	"sync"

	"github.com/tinyvm/corevm/vm/value"
)

// State is a process's coarse lifecycle state (spec.md §3).
type State int

const (
	StateRunning State = iota
	StateWaitingForChildren
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateWaitingForChildren:
		return "waitingForChildren"
	case StateTerminated:
		return "terminated"
	default:
		return "running"
	}
}

// ExitKind records why a process's link signal fired (spec.md §6, §7).
type ExitKind int

const (
	ExitNone ExitKind = iota
	ExitTerminated
	ExitCompileTimeError
	ExitUncaughtException
	ExitUnhandledSignal
	ExitKilled
)

func (k ExitKind) String() string {
	switch k {
	case ExitTerminated:
		return "terminated"
	case ExitCompileTimeError:
		return "compileTimeError"
	case ExitUncaughtException:
		return "uncaughtException"
	case ExitUnhandledSignal:
		return "unhandledSignal"
	case ExitKilled:
		return "killed"
	default:
		return "none"
	}
}

// Process is one unit of execution. Stack and Ports hold raw tagged
// values (heap pointers into the process heap); this package never reads
// their fields, it only threads them through for the GC's root walk.
type Process struct {
	ID     int64
	Stack  value.Value
	Ports  []value.Value
	Parent *Process

	// TriangleCount is the number of processes in this process's own
	// subtree, including itself (spec.md glossary). It is decremented by
	// every descendant's teardown and reaches zero exactly when the whole
	// subtree — not just the direct children — has terminated.
	TriangleCount int
	AllocFailed   bool
	State         State
	ExitKind      ExitKind
}

// List is the program's mutex-protected process list (spec.md §4.6, §5:
// "process list operations are serialized by a mutex ... GC iterates
// processes under that mutex").
type List struct {
	mu     sync.Mutex
	nextID int64
	members map[int64]*Process
}

func NewList() *List {
	return &List{members: make(map[int64]*Process)}
}

// SpawnProcess allocates a process under parent (nil for the main
// process) and links it into the list. newStack builds the initial stack
// object, pushing the entry frame that contains the entry function and
// the interpreter's entry code pointer (spec.md §4.6); if it fails, the
// half-built process is never linked in. On success every ancestor's
// triangle count is incremented, since each ancestor's count spans its
// whole subtree, not just its direct children.
func (l *List) SpawnProcess(parent *Process, newStack func() (value.Value, error)) (*Process, error) {
	stack, err := newStack()
	if err != nil {
		return nil, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.nextID++
	p := &Process{
		ID:            l.nextID,
		Stack:         stack,
		Parent:        parent,
		TriangleCount: 1,
		State:         StateRunning,
	}
	l.members[p.ID] = p
	for cur := parent; cur != nil; cur = cur.Parent {
		cur.TriangleCount++
	}
	return p, nil
}

// ScheduleProcessForDeletion tears p down and walks the parent chain,
// decrementing every ancestor's triangle count; any process (p itself, or
// an ancestor) whose count reaches zero is removed from the list (spec.md
// §4.6). If p is the main process, kind is the caller's signal for
// capturing the program's exit kind — List has no notion of "main",
// so the caller reads p.ExitKind back off the process it passed in.
func (l *List) ScheduleProcessForDeletion(p *Process, kind ExitKind) {
	l.mu.Lock()
	defer l.mu.Unlock()
	p.State = StateTerminated
	p.ExitKind = kind
	p.TriangleCount--
	if p.TriangleCount <= 0 {
		delete(l.members, p.ID)
	}
	for cur := p.Parent; cur != nil; cur = cur.Parent {
		cur.TriangleCount--
		if cur.TriangleCount <= 0 {
			delete(l.members, cur.ID)
		}
	}
}

// Each calls fn for every live process, holding the list mutex for the
// duration — the same lock a GC pause must hold before iterating
// processes (spec.md §5).
func (l *List) Each(fn func(*Process)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, p := range l.members {
		fn(p)
	}
}

// Len reports the number of currently-live processes.
func (l *List) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.members)
}

// Lookup returns the process with the given id, or nil.
func (l *List) Lookup(id int64) *Process {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.members[id]
}
