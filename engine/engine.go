/*
   rv64core - Execution Engine.

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

// Package engine implements the fetch-decode-dispatch-commit loop: the
// Execution Engine of spec.md §4.4. It owns no state of its own, driving
// a state.ASB through a dispatch.Table and an mmu.MMU handed to it by the
// Processor Facade.
package engine

import (
	"log/slog"

	"github.com/rcornwell/rv64core/dispatch"
	"github.com/rcornwell/rv64core/signal"
	"github.com/rcornwell/rv64core/state"
	"github.com/rcornwell/rv64core/trap"
)

// MMU is the slice of the memory-management unit the engine's fetch
// stage needs. A full mmu.MMU satisfies this and trap.MMU both.
type MMU interface {
	LoadInsn(pc uint64, compressedEnabled bool) (insn uint32, err error)
	GetBadVAddr() uint64
}

// Disassembler formats one fetched instruction for the noisy trace path.
// Grounded on util/hex's diagnostic formatting; package disasm implements
// this for the illustrative registry.
type Disassembler interface {
	Disassemble(pc uint64, insn uint32) string
}

// PageFaulter is implemented by an MMU error that names the trap id to
// raise; mmu.ErrPageFault satisfies this.
type PageFaulter interface {
	error
	PageFaultTrapID() int
}

// Engine drives one hart's retirement loop. It holds no ASB of its own:
// Step is called once per burst with the ASB to advance, so a single
// Engine can service a primary hart and, through handlers, reach into its
// micro-thread pool.
type Engine struct {
	Table *dispatch.Table
	MMU   MMU
	Dis   Disassembler // Optional; nil disables noisy tracing even if requested.
}

// Context is what a dispatch.Handler receives as its proc argument: the
// ASB it operates on plus the MMU it loads/stores through, per spec.md
// §6's "exposed to handlers: the full ASB (mutable), the MMU". A package
// outside engine (isa) type-asserts proc.(*engine.Context) to reach both
// without engine depending on isa.
type Context struct {
	ASB *state.ASB
	MMU MMU
}

// New returns an Engine bound to the given dispatch table and MMU.
func New(table *dispatch.Table, mmu MMU) *Engine {
	return &Engine{Table: table, MMU: mmu}
}

// Step attempts to retire up to n instructions from a, per spec.md
// §4.4. It returns early, before exhausting n, on a vt_command(stop)
// signal (burst ends, state preserved) or a halt signal (processor
// reset, then return). A fatal trap.FatalError propagates as a panic,
// matching trap.TakeTrap's own contract; Step does not recover it. A
// caller that defers processor.Processor.LogFatalIfPanicked recovers it
// and logs it via trap.LogFatal.
func (e *Engine) Step(a *state.ASB, n int, noisy bool) {
	if !a.Run.Load() {
		return
	}

	ctx := &Context{ASB: a, MMU: e.MMU}
	retired := uint64(0)
	for retired < uint64(n) {
		sig := trap.TakeInterrupt(a)
		if sig.IsNone() {
			sig = e.retireOne(ctx, noisy)
		}

		switch sig.Kind {
		case signal.None:
			retired++
		case signal.Trap:
			retired++
			trap.TakeTrap(a, sig.ID, e.MMU)
		case signal.Stop:
			retired++
			e.accountCycles(a, retired)
			return
		case signal.Halt:
			a.Reset()
			return
		}
	}
	e.accountCycles(a, retired)
}

// retireOne fetches, optionally traces, dispatches, and commits a single
// instruction boundary. It never advances count/cycle; Step does that
// once per burst per spec.md §4.4's cycle-accounting rule.
func (e *Engine) retireOne(ctx *Context, noisy bool) signal.Signal {
	a := ctx.ASB
	insn, err := e.MMU.LoadInsn(a.PC, a.SR&state.SREC != 0)
	if err != nil {
		id := dispatch.IllegalTrapID
		if pf, ok := err.(PageFaulter); ok {
			id = pf.PageFaultTrapID()
		}
		return signal.Signal{Kind: signal.Trap, ID: id}
	}

	if noisy && e.Dis != nil {
		slog.Debug("trace", "pc", a.PC, "insn", e.Dis.Disassemble(a.PC, insn))
	}

	handler := e.Table.Lookup(insn)
	nextPC, sig := handler(ctx, insn, a.PC)
	if sig.Kind == signal.None {
		a.PC = nextPC
	}
	a.ForceZeroRegister()
	return sig
}

// accountCycles applies spec.md §4.4/§4.3's once-per-burst cycle/count
// update, including the wraparound-safe timer-crossing check.
func (e *Engine) accountCycles(a *state.ASB, retired uint64) {
	if retired == 0 {
		return
	}
	a.Cycle += retired
	post, crossed := trap.TimerCrossed(a.Count, retired, a.Compare)
	a.Count = post
	if crossed {
		trap.ApplyTimerIRQ(a)
	}
}
