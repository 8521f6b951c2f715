// Package session exposes a running Program's breakpoint table over
// net/rpc (spec.md §6's Session/Debugger ⇄ Core interface), mirroring
// the request/response shape of the teacher's program/proxyrpc package
// and the method set of program/server.Server.
package session

import (
	"github.com/tinyvm/corevm/vm/debug"
	"github.com/tinyvm/corevm/vm/object"
	"github.com/tinyvm/corevm/vm/runtime"
	"github.com/tinyvm/corevm/vm/value"
)

// EnsureDebuggerAttachedRequest has no fields: attaching is idempotent
// and stateless from the caller's point of view.
type EnsureDebuggerAttachedRequest struct{}

type EnsureDebuggerAttachedResponse struct {
	Attached bool
}

type SetBreakpointRequest struct {
	Function      uint64 // tagged value.Value word for the function
	BytecodeIndex int64
	OneShot       bool
	Coroutine     uint64 // tagged value.Value word for the owning process, or 0
	StackHeight   int64
	HasStepOver   bool
}

type SetBreakpointResponse struct {
	ID int64
}

type DeleteBreakpointRequest struct {
	ID int64
}

type DeleteBreakpointResponse struct{}

type SetSteppingRequest struct {
	IsStepping bool
}

type SetSteppingResponse struct{}

type ListBreakpointsRequest struct{}

type ListBreakpointsResponse struct {
	Breakpoints []debug.Breakpoint
}

// Session is the net/rpc-registered object a remote debugger client
// dials into, the same role program/server.Server plays for the
// teacher's ogle protocol. Every method's signature follows
// net/rpc's (*Request, *Response) error convention so Session can be
// registered directly with rpc.Register.
type Session struct {
	Program *runtime.Program
}

// New wraps prog for RPC registration.
func New(prog *runtime.Program) *Session {
	return &Session{Program: prog}
}

// EnsureDebuggerAttached reports that a debugger is present; corevm has
// no separate attach/detach state machine, so this always succeeds.
func (s *Session) EnsureDebuggerAttached(req *EnsureDebuggerAttachedRequest, resp *EnsureDebuggerAttachedResponse) error {
	resp.Attached = true
	return nil
}

// SetBreakpoint installs a breakpoint and returns its id. Calling it
// twice with the same (function, bytecodeIndex) returns the existing id
// (spec.md §4.7).
func (s *Session) SetBreakpoint(req *SetBreakpointRequest, resp *SetBreakpointResponse) error {
	l := object.Layout{H: s.Program.Heap, W: s.Program.W}
	id := s.Program.Debug.SetBreakpoint(
		l,
		value.FromWord(req.Function),
		req.BytecodeIndex,
		req.OneShot,
		value.FromWord(req.Coroutine),
		req.StackHeight,
		req.HasStepOver,
	)
	resp.ID = id
	return nil
}

// DeleteBreakpoint removes a breakpoint by id.
func (s *Session) DeleteBreakpoint(req *DeleteBreakpointRequest, resp *DeleteBreakpointResponse) error {
	s.Program.Debug.DeleteBreakpoint(req.ID)
	return nil
}

// SetStepping toggles single-step mode across the whole program.
func (s *Session) SetStepping(req *SetSteppingRequest, resp *SetSteppingResponse) error {
	s.Program.Debug.SetStepping(req.IsStepping)
	return nil
}

// ListBreakpoints returns every currently-set breakpoint.
func (s *Session) ListBreakpoints(req *ListBreakpointsRequest, resp *ListBreakpointsResponse) error {
	resp.Breakpoints = s.Program.Debug.Breakpoints()
	return nil
}
