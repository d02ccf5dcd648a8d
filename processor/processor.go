/*
   rv64core - Processor Facade.

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

// Package processor assembles the ASB, dispatch table, engine, vector
// pool, and MMU into the single entry point spec.md §4.6 calls the
// Processor Facade.
package processor

import (
	"io"
	"sync"

	"github.com/rcornwell/rv64core/disasm"
	"github.com/rcornwell/rv64core/dispatch"
	"github.com/rcornwell/rv64core/engine"
	"github.com/rcornwell/rv64core/isa"
	"github.com/rcornwell/rv64core/mmu"
	"github.com/rcornwell/rv64core/state"
	"github.com/rcornwell/rv64core/statsink"
	"github.com/rcornwell/rv64core/trap"
	"github.com/rcornwell/rv64core/vector"
)

var (
	tableOnce  sync.Once
	tableBuilt *dispatch.Table
)

// sharedTable returns the process-wide dispatch table, building it
// exactly once no matter how many Processors are constructed, per
// spec.md §4.2/§5/§9's single-build requirement.
func sharedTable() *dispatch.Table {
	tableOnce.Do(func() {
		tableBuilt = dispatch.Build(isa.Registry())
	})
	return tableBuilt
}

// Processor is one hart: its ASB, micro-thread pool, engine, and the
// MMU/statistics sinks it exclusively owns.
type Processor struct {
	asb    *state.ASB
	mmu    mmu.MMU
	engine *engine.Engine
	pool   *vector.Pool
	feat   state.Features

	icache, dcache, itlb, dtlb statsink.StatSink
}

// New constructs a Processor around the given MMU (already sized and
// attached to shared memory by the caller) and feature set, building the
// dispatch table if it hasn't been built yet, and resetting.
func New(m mmu.MMU, feat state.Features) *Processor {
	asb := state.New(feat)
	eng := engine.New(sharedTable(), m)
	eng.Dis = disasm.New(isa.Registry())
	p := &Processor{
		asb:    asb,
		mmu:    m,
		engine: eng,
		pool:   vector.NewPool(asb),
		feat:   feat,
	}
	p.Reset()
	return p
}

// Init assigns the hart id, allocates numUTs micro-threads, and attaches
// whatever statistics sinks the caller passes (nil disables that sink),
// per spec.md §4.6. Sinks are optional; a nil sink is simply never
// consulted by the MMU.
func (p *Processor) Init(id uint32, numUTs int, icache, dcache, itlb, dtlb statsink.StatSink) {
	p.asb.ID = id
	p.pool.Allocate(numUTs, p.feat)

	p.icache, p.dcache, p.itlb, p.dtlb = icache, dcache, itlb, dtlb
	p.mmu.SetICSim(icache)
	p.mmu.SetDCSim(dcache)
	p.mmu.SetITLBSim(itlb)
	p.mmu.SetDTLBSim(dtlb)
}

// Reset restores the primary ASB per spec.md §4.1/§4.6: registers and
// control words zeroed, vector defaults restored, the micro-thread pool
// dropped, and run cleared. A harness that wants the hart to start
// executing after reset sets up pc/sr via ASB() and explicitly marks it
// runnable, or delivers its first IPI.
func (p *Processor) Reset() {
	p.asb.Reset()
}

// ASB returns the mutable primary architectural state. spec.md §6 calls
// the ASB "the full ASB (mutable)" exposed to handlers; the facade
// extends that same access to its owner so a harness can load a program,
// set pc, enable traps, and mark the hart runnable before stepping.
func (p *Processor) ASB() *state.ASB {
	return p.asb
}

// MMU returns the memory-management unit this Processor is bound to.
func (p *Processor) MMU() mmu.MMU {
	return p.mmu
}

// Step retires up to n instructions, or fewer if a vt_command(stop) or
// halt signal ends the burst early. noisy requests a disassembly trace.
func (p *Processor) Step(n int, noisy bool) {
	p.engine.Step(p.asb, n, noisy)
}

// DeliverIPI sets the IPI-pending bit in cause and marks the hart
// runnable. It is the only state mutator besides Step safe to call from
// another goroutine; the cause update uses a compare-and-swap loop so a
// concurrently-arriving timer IRQ never gets clobbered (spec.md §5:
// "multiple IPIs race, they coalesce into a single pending bit").
func (p *Processor) DeliverIPI() {
	for {
		old := p.asb.Cause.Load()
		next := old | (trap.IPIIRQBit << state.CauseIPShift)
		if old == next || p.asb.Cause.CompareAndSwap(old, next) {
			break
		}
	}
	p.asb.Run.Store(true)
}

// Dump returns a deep copy of the primary ASB plus every live
// micro-thread ASB, for the console's dump and step commands and for tests
// asserting end-to-end invariants (spec.md §8). Supplements spec.md,
// which never names an ASB accessor of its own.
func (p *Processor) Dump() (primary state.ASB, microThreads []state.ASB) {
	primary = p.asb.Snapshot()
	if n := p.pool.Len(); n > 0 {
		microThreads = make([]state.ASB, n)
		for i := 0; i < n; i++ {
			microThreads[i] = p.pool.Use(i).Snapshot()
		}
	}
	return primary, microThreads
}

// Close prints and releases every attached statistics sink, in the
// fixed order spec.md §4.6 names: icache, ITLB, dcache, DTLB.
func (p *Processor) Close(w io.Writer) {
	for _, sink := range []struct {
		label string
		s     statsink.StatSink
	}{
		{"icache", p.icache},
		{"itlb", p.itlb},
		{"dcache", p.dcache},
		{"dtlb", p.dtlb},
	} {
		if sink.s == nil {
			continue
		}
		sink.s.PrintStats(w, sink.label)
	}
}

// LogFatalIfPanicked recovers a *trap.FatalError panicking out of Step
// (a bad trap number or double fault), logs it via trap.LogFatal, and
// reports whether one occurred. Callers driving Step from a goroutine
// should defer this at the top of their run loop.
func (p *Processor) LogFatalIfPanicked() (recovered bool) {
	if r := recover(); r != nil {
		fe, ok := r.(*trap.FatalError)
		if !ok {
			panic(r)
		}
		trap.LogFatal(fe)
		p.asb.Run.Store(false)
		return true
	}
	return false
}
