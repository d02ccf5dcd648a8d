/*
   rv64core - reference memory-management unit.

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

// Package refmmu is a reference memory-management unit: flat physical
// memory with a trivial identity translation, sized like the teacher's
// emu/memory package but reshaped around mmu.MMU's word-fetch contract
// and spec.md §6's External Interfaces. It exists so engine and
// processor have something real to drive in tests and cmd/rv64core;
// spec.md explicitly treats the MMU as an external collaborator, so
// nothing here is part of the CORE's own contract.
package refmmu

import (
	"fmt"

	"github.com/rcornwell/rv64core/mmu"
	"github.com/rcornwell/rv64core/statsink"
)

// defaultSizeWords mirrors the teacher's memory sizing convention:
// memory below this bound is addressable, everything above faults.
const defaultSizeWords = 4 * 1024 * 1024 // 16 MiB of word-addressable memory.

// RefMMU is a reference mmu.MMU: a flat uint32 array plus the
// vm/supervisor flags set_sr drives and the optional statistics sinks
// spec.md §4.6/§6 names.
type RefMMU struct {
	mem      []uint32
	vmOn     bool
	super    bool
	badVAddr uint64

	icache, dcache statsink.StatSink
	itlb, dtlb     statsink.StatSink
}

// New returns a RefMMU backed by sizeWords words of zeroed memory. A
// sizeWords of 0 uses defaultSizeWords.
func New(sizeWords int) *RefMMU {
	if sizeWords <= 0 {
		sizeWords = defaultSizeWords
	}
	return &RefMMU{mem: make([]uint32, sizeWords)}
}

var _ mmu.MMU = (*RefMMU)(nil)

// LoadInsn implements mmu.MMU. compressedEnabled is accepted for
// interface conformance; this reference model has no compressed
// sub-encoding to expand (spec.md §6: "opaque to the core... the MMU
// handles expansion"), so it is ignored.
func (r *RefMMU) LoadInsn(pc uint64, _ bool) (uint32, error) {
	idx := pc >> 2
	if pc%4 != 0 || idx >= uint64(len(r.mem)) {
		r.badVAddr = pc
		r.recordMiss(r.itlb)
		return 0, &mmu.ErrPageFault{TrapID: 1, VAddr: pc}
	}
	r.recordHit(r.itlb)
	r.recordHit(r.icache)
	return r.mem[idx], nil
}

// LoadWord and StoreWord round out the flat memory model for a harness
// driving data loads/stores through handlers; they are not part of
// mmu.MMU (spec.md §6 names only load_insn for the CORE itself) but
// share RefMMU's bounds checking and statistics wiring.
func (r *RefMMU) LoadWord(addr uint64) (uint32, error) {
	idx := addr >> 2
	if idx >= uint64(len(r.mem)) {
		r.badVAddr = addr
		r.recordMiss(r.dtlb)
		return 0, &mmu.ErrPageFault{TrapID: 1, VAddr: addr}
	}
	r.recordHit(r.dtlb)
	r.recordHit(r.dcache)
	return r.mem[idx], nil
}

func (r *RefMMU) StoreWord(addr uint64, value uint32) error {
	idx := addr >> 2
	if idx >= uint64(len(r.mem)) {
		r.badVAddr = addr
		r.recordMiss(r.dtlb)
		return &mmu.ErrPageFault{TrapID: 1, VAddr: addr}
	}
	r.recordHit(r.dtlb)
	r.recordHit(r.dcache)
	r.mem[idx] = value
	return nil
}

func (r *RefMMU) recordHit(s statsink.StatSink) {
	if s != nil {
		s.Hit()
	}
}

func (r *RefMMU) recordMiss(s statsink.StatSink) {
	if s != nil {
		s.Miss()
	}
}

func (r *RefMMU) SetVMEnabled(enabled bool) { r.vmOn = enabled }
func (r *RefMMU) SetSupervisor(super bool)  { r.super = super }
func (r *RefMMU) FlushTLB()                 {}
func (r *RefMMU) GetBadVAddr() uint64       { return r.badVAddr }

func (r *RefMMU) SetICSim(s statsink.StatSink)   { r.icache = s }
func (r *RefMMU) SetDCSim(s statsink.StatSink)   { r.dcache = s }
func (r *RefMMU) SetITLBSim(s statsink.StatSink) { r.itlb = s }
func (r *RefMMU) SetDTLBSim(s statsink.StatSink) { r.dtlb = s }

// String reports the configured size for diagnostics, echoing the
// teacher's GetSize accessor in spirit.
func (r *RefMMU) String() string {
	return fmt.Sprintf("refmmu: %d words, vm=%v supervisor=%v", len(r.mem), r.vmOn, r.super)
}
