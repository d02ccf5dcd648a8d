/*
   rv64core - control-flow signals escaping the dispatch table.

   Copyright (c) 2024, Richard Cornwell

   Permission is hereby granted, free of charge, to any person obtaining a
   copy of this software and associated documentation files (the "Software"),
   to deal in the Software without restriction, including without limitation
   the rights to use, copy, modify, merge, publish, distribute, sublicense,
   and/or sell copies of the Software, and to permit persons to whom the
   Software is furnished to do so, subject to the following conditions:

   The above copyright notice and this permission notice shall be included in
   all copies or substantial portions of the Software.

   THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
   IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
   FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT.  IN NO EVENT SHALL
   RICHARD CORNWELL BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY, WHETHER
   IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN
   CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.

*/

// Package signal holds the sum type handlers use to escape the dispatch
// table instead of the reference simulator's thrown C++ exceptions
// (trap_t, vt_command_t, halt_t), per spec.md §9: a handler returns a
// next-PC plus an optional Signal, and the engine unwinds explicitly at
// the top of its retirement loop rather than via a stack-unwinding
// runtime.
package signal

// Kind distinguishes the three control-flow signals spec.md §4.4 names.
// They are mutually exclusive per instruction.
type Kind int

const (
	// None means the handler completed normally; NextPC is authoritative.
	None Kind = iota
	// Trap means the handler (or TakeInterrupt) raised an architectural
	// fault or interrupt; ID names which one.
	Trap
	// Stop ends the current step burst but preserves all state
	// (vt_command(stop) in spec.md).
	Stop
	// Halt resets the processor and returns immediately.
	Halt
)

// Signal is the value a handler or the interrupt/trap controller
// returns alongside a next-PC to escape the normal fetch loop.
type Signal struct {
	Kind Kind
	ID   int // Meaningful only when Kind == Trap: the trap id.
}

// NoneSignal is the zero Signal, meaning "no control-flow signal raised".
var NoneSignal = Signal{Kind: None}

// IsNone reports whether s carries no signal.
func (s Signal) IsNone() bool { return s.Kind == None }
