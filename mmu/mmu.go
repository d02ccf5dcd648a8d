/*
   rv64core - memory-management-unit interface consumed by the CORE.

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

// Package mmu declares the memory-management-unit contract the CORE
// consumes (spec.md §1 "out of scope: external collaborators", §6
// "External Interfaces"). The CORE never constructs an MMU itself; it is
// handed one by the Processor Facade's owner. See package refmmu for a
// reference implementation used by tests and cmd/rv64core.
package mmu

import "github.com/rcornwell/rv64core/statsink"

// MMU is the full contract the Processor Facade binds to. Individual
// CORE components only need a narrow slice of it (state.MMU for SetSR's
// side effects, trap.MMU for badvaddr), which any MMU implementation
// satisfies structurally without this package being imported by those.
type MMU interface {
	// LoadInsn fetches one instruction word at pc. compressedEnabled
	// mirrors sr.EC; compressed-sub-encoding expansion, if any, happens
	// inside the MMU and is opaque to the CORE. A non-nil err carries a
	// page-fault trap id via ErrPageFault.
	LoadInsn(pc uint64, compressedEnabled bool) (insn uint32, err error)

	SetVMEnabled(enabled bool)
	SetSupervisor(supervisor bool)
	FlushTLB()
	GetBadVAddr() uint64

	SetICSim(sink statsink.StatSink)
	SetDCSim(sink statsink.StatSink)
	SetITLBSim(sink statsink.StatSink)
	SetDTLBSim(sink statsink.StatSink)
}

// ErrPageFault is returned by LoadInsn (and would be returned by any
// data-side load/store a concrete MMU adds) when translation fails. The
// trap id is fixed at construction so engine.Step can route it through
// TakeTrap without inspecting the MMU's internals.
type ErrPageFault struct {
	TrapID int
	VAddr  uint64
}

func (e *ErrPageFault) Error() string { return "page fault" }

// PageFaultTrapID satisfies engine.PageFaulter.
func (e *ErrPageFault) PageFaultTrapID() int { return e.TrapID }
