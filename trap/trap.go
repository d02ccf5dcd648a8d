/*
   rv64core - Interrupt/Trap Controller.

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

// Package trap implements the Interrupt/Trap Controller: pending
// interrupt computation, trap entry semantics, and the timer-interrupt
// crossing detector, per spec.md §4.3.
package trap

import (
	"fmt"
	"log/slog"

	"github.com/rcornwell/rv64core/signal"
	"github.com/rcornwell/rv64core/state"
)

// NumTraps bounds valid trap ids; TakeTrap fatals on anything else.
const NumTraps = 32

// Well-known trap ids. The opcode registry (package isa) and the
// dispatch fallback prober both raise IllegalInstruction.
const (
	IllegalInstruction = 0
	PageFault          = 1
	Breakpoint         = 2
	TimerIRQ           = 3
	IPIIRQ             = 4
	ECall              = 5
)

var names = map[int]string{
	IllegalInstruction: "illegal_instruction",
	PageFault:          "page_fault",
	Breakpoint:         "breakpoint",
	TimerIRQ:           "timer_irq",
	IPIIRQ:             "ipi_irq",
	ECall:              "ecall",
}

// Name returns a human-readable trap name for diagnostics, falling back
// to a numeric label for ids outside the well-known set.
func Name(id int) string {
	if n, ok := names[id]; ok {
		return n
	}
	return fmt.Sprintf("trap_%d", id)
}

// TimerIRQBit and IPIIRQBit are the bits TakeInterrupt/DeliverIPI set in
// cause.IP. They occupy the low two bits of the 8-bit IP field so they
// coexist with whatever external-interrupt-source bits a harness adds.
const (
	TimerIRQBit uint64 = 1 << 0
	IPIIRQBit   uint64 = 1 << 1
)

// MMU is the subset of the memory-management unit the trap controller
// consults on trap entry.
type MMU interface {
	GetBadVAddr() uint64
}

// TakeInterrupt computes pending = cause.IP & sr.IM (spec.md §4.3) and,
// if any bit is both pending and unmasked and traps are globally
// enabled, returns a Trap-kind signal naming the interrupt: IPIIRQ when
// the IPI bit is pending, otherwise TimerIRQ when the timer bit is. It
// never mutates a; the caller is expected to run the returned signal
// through TakeTrap like any other trap.
func TakeInterrupt(a *state.ASB) signal.Signal {
	im := uint64(a.SR&state.SRIMMask) >> state.SRIMShift
	ip := (a.Cause.Load() & state.CauseIPMask) >> state.CauseIPShift
	pending := ip & im
	if pending == 0 || a.SR&state.SRET == 0 {
		return signal.NoneSignal
	}
	switch {
	case pending&IPIIRQBit != 0:
		return signal.Signal{Kind: signal.Trap, ID: IPIIRQ}
	case pending&TimerIRQBit != 0:
		return signal.Signal{Kind: signal.Trap, ID: TimerIRQ}
	default:
		// Reserved IM/IP bits outside the two this CORE defines; a
		// harness extending the interrupt source set would add cases
		// here rather than misreport an unrelated trap id.
		return signal.NoneSignal
	}
}

// FatalError reports an unrecoverable condition: a bad trap number or a
// double fault (a trap raised while sr.ET == 0). Diagnostics in spec.md
// §7 must include hart id, trap name, and pc. TakeTrap panics with one;
// Processor.LogFatalIfPanicked recovers it, logs it via LogFatal, and
// clears the hart's run flag, while an unrecovered one ends the process
// with Error()'s text.
type FatalError struct {
	HartID uint32
	TrapID int
	PC     uint64
	Reason string
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("hart %d: fatal (%s): trap=%s pc=%#x", e.HartID, e.Reason, Name(e.TrapID), e.PC)
}

// TakeTrap applies spec.md §4.3's trap entry sequence. It panics with a
// *FatalError for a bad trap number or a double fault (sr.ET == 0);
// those are internal-invariant violations spec.md §7 calls non-recoverable.
// badvaddr is unconditionally refreshed from the MMU regardless of trap
// cause, preserving the reference simulator's behavior per spec.md §9's
// open question.
func TakeTrap(a *state.ASB, t int, mmu MMU) {
	if t < 0 || t >= NumTraps {
		panic(&FatalError{HartID: a.ID, TrapID: t, PC: a.PC, Reason: "bad trap number"})
	}
	if a.SR&state.SRET == 0 {
		panic(&FatalError{HartID: a.ID, TrapID: t, PC: a.PC, Reason: "error mode: trap handler itself trapped"})
	}

	oldSR := a.SR
	newSR := oldSR &^ state.SRET &^ state.SRPS
	newSR |= state.SRS
	if oldSR&state.SRS != 0 {
		newSR |= state.SRPS
	}
	a.SR = newSR

	for {
		old := a.Cause.Load()
		next := (old &^ state.CauseExcCodeMask) | (uint64(t) & state.CauseExcCodeMask)
		if old == next || a.Cause.CompareAndSwap(old, next) {
			break
		}
	}
	a.EPC = a.PC
	a.PC = a.EVec
	if mmu != nil {
		a.BadVAddr = mmu.GetBadVAddr()
	}
}

// LogFatal logs a double-fault/internal-invariant diagnostic (hart id,
// trap name, pc) via slog.Error, per spec.md §7. It does not stop the
// hart or the process itself.
func LogFatal(err *FatalError) {
	slog.Error("fatal trap", "hart", err.HartID, "trap", Name(err.TrapID), "pc", fmt.Sprintf("%#x", err.PC), "reason", err.Reason)
}

// TimerCrossed reports whether advancing count by n retired instructions
// crosses compare, per spec.md §4.3/§9: it must fire exactly once per
// crossing including the 64-bit wraparound case, so the predicate is
// expressed from (pre, post, compare) with an explicit overflow check
// rather than the reference's "old_count > max_count - i" comparison.
func TimerCrossed(preCount, n, compare uint64) (postCount uint64, crossed bool) {
	post, overflowed := addOverflows(preCount, n)
	if overflowed {
		// The counter swept through the top of its range and wrapped;
		// it crossed compare if compare lies anywhere in the swept arc:
		// from just above preCount up through the wrap to post.
		crossed = compare > preCount || compare <= post
	} else {
		crossed = preCount < compare && compare <= post
	}
	return post, crossed
}

func addOverflows(a, b uint64) (sum uint64, overflowed bool) {
	sum = a + b
	return sum, sum < a
}

// ApplyTimerIRQ sets the timer-IRQ bit in cause.IP. Called by the
// engine once per burst when TimerCrossed reports a crossing.
func ApplyTimerIRQ(a *state.ASB) {
	for {
		old := a.Cause.Load()
		next := old | (TimerIRQBit << state.CauseIPShift)
		if old == next || a.Cause.CompareAndSwap(old, next) {
			break
		}
	}
}
