/*
   rv64core - Architectural State Block definitions.

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

// Package state holds the Architectural State Block (ASB): the passive
// per-hart register file the rest of the CORE operates on. A hart is one
// primary ASB plus up to MaxUTs owned micro-thread ASBs backing the
// vector extension.
package state

import "sync/atomic"

// MaxUTs bounds the micro-thread pool size for both a primary hart's
// vector banks and the xprlen-independent register file layout.
const MaxUTs = 32

// Status register (sr) bit layout.
const (
	SRIMShift = 24 // Interrupt mask occupies the high byte.
	SRIMMask  = 0xff << SRIMShift

	SRS  uint32 = 1 << 0 // Supervisor mode.
	SRPS uint32 = 1 << 1 // Previous-S (saved on trap entry).
	SREF uint32 = 1 << 2 // FPU enabled.
	SREV uint32 = 1 << 3 // Vector unit enabled.
	SREC uint32 = 1 << 4 // Compressed encoding enabled.
	SRET uint32 = 1 << 5 // Traps enabled.
	SRSX uint32 = 1 << 6 // 64-bit mode in supervisor.
	SRUX uint32 = 1 << 7 // 64-bit mode in user.
	SRVM uint32 = 1 << 8 // Virtual memory on.

	// SRZero is the set of bits that must always read as zero: every bit
	// not named above, below the IM byte.
	SRZero uint32 = ^uint32(SRIMMask|SRS|SRPS|SREF|SREV|SREC|SRET|SRSX|SRUX|SRVM) &^ SRIMMask
)

// FSRZero masks the reserved bits of the floating-point status register;
// only the low byte (rounding mode + exception flags) is defined.
const FSRZero uint32 = 0xffffff00

// Cause register (cause) subfields. cause is a 64-bit word per spec.md
// §3 (grouped with evec/epc/badvaddr); EXCCODE and IP together only ever
// occupy the low 32 bits, but the field is sized to match the other
// three rather than narrowed.
const (
	CauseExcCodeMask uint64 = 0x0000ffff
	CauseIPShift            = 24
	CauseIPMask      uint64 = 0xff << CauseIPShift
)

// Features records which build-time extensions this processor was
// configured with; disabled features have their sr enable bit forced
// to zero on every SetSR, per spec.md §4.1.
type Features struct {
	FPU        bool
	Compressed bool
	Vector     bool
	Int64      bool
}

// MMU is the subset of the memory-management unit that SetSR drives.
// The full fetch contract lives on mmu.MMU; ASB only
// needs the write-through side effects of a status-register update.
type MMU interface {
	SetVMEnabled(bool)
	SetSupervisor(bool)
	FlushTLB()
}

// ASB is the Architectural State Block: all per-hart registers.
type ASB struct {
	XPR [32]uint64 // Integer registers; XPR[0] is hard-wired zero.
	FPR [32]uint64 // Floating registers (IEEE-754 single or double, 8 bytes each).

	PC uint64

	SR  uint32
	FSR uint32

	EVec     uint64
	EPC      uint64
	BadVAddr uint64

	// Cause is read and written from another goroutine via DeliverIPI
	// as well as from the owning hart's Step; every access, on both
	// sides, goes through its atomic methods so there is no plain/atomic
	// mix on the same word (spec.md §4.3/§5's release-semantics
	// requirement for a concurrently-stepping target). Sized to 64 bits
	// to match EVec/EPC/BadVAddr per spec.md §3's data model, even
	// though EXCCODE (16 bits) and IP (8 bits) only ever use the low 32.
	Cause atomic.Uint64

	PCRK0    uint64
	PCRK1    uint64
	ToHost   uint64
	FromHost uint64

	Count   uint64
	Compare uint64
	Cycle   uint64

	ID     uint32
	UTIdx  int32 // -1 for the primary hart.

	VecBanks      uint8
	VecBanksCount uint8
	VLMax         uint32
	VL            uint32
	NXFPRBank     uint32
	NXPRUse       uint32
	NFPRUse       uint32

	UTs []ASB // Primary-only: owned micro-thread ASBs. Empty for a micro-thread.

	// Run is set from another goroutine by DeliverIPI and read at the
	// top of every Step burst; same atomic-only rule as Cause above.
	Run atomic.Bool

	feat Features
}

// New returns a primary ASB (UTIdx == -1) configured with the given
// feature set and already reset.
func New(feat Features) *ASB {
	a := &ASB{feat: feat, UTIdx: -1}
	a.Reset()
	return a
}

// Privilege width bit selects which sr bit governs xprlen: SX while in
// supervisor mode, UX while in user mode.
func (a *ASB) privilegeWidthBit() uint32 {
	if a.SR&SRS != 0 {
		return SRSX
	}
	return SRUX
}

// XPRLen returns the effective integer register width: 64 iff the
// active privilege level's width bit is set in sr, else 32.
func (a *ASB) XPRLen() int {
	if a.SR&a.privilegeWidthBit() != 0 {
		return 64
	}
	return 32
}

// SetSR writes the status register, applying every side effect spec.md
// §4.1 requires: clear reserved bits, force off disabled-feature enable
// bits, propagate VM/supervisor mode to the MMU, flush the TLB, and
// recompute nothing else (xprlen is a derived view, not stored).
func (a *ASB) SetSR(value uint32, mmu MMU) {
	value &^= SRZero
	if !a.feat.FPU {
		value &^= SREF
	}
	if !a.feat.Vector {
		value &^= SREV
	}
	if !a.feat.Compressed {
		value &^= SREC
	}
	if !a.feat.Int64 {
		value &^= SRSX | SRUX
	}
	a.SR = value
	if mmu != nil {
		mmu.SetVMEnabled(value&SRVM != 0)
		mmu.SetSupervisor(value&SRS != 0)
		mmu.FlushTLB()
	}
}

// SetFSR writes the floating-point status register, clearing reserved
// bits.
func (a *ASB) SetFSR(value uint32) {
	a.FSR = value &^ FSRZero
}

// Reset zeros all registers and control words, restores the vector
// defaults, and releases ownership of any micro-thread ASBs (their
// backing slice is dropped, never leaked, matching spec.md §4.1's "moved
// out or dropped" instruction for a systems-language rewrite).
func (a *ASB) Reset() {
	isPrimary := a.UTIdx < 0

	for i := range a.XPR {
		a.XPR[i] = 0
	}
	for i := range a.FPR {
		a.FPR[i] = 0
	}
	a.PC = 0
	a.SR = SRS | SRSX
	if !a.feat.Int64 {
		a.SR &^= SRSX
	}
	if !isPrimary {
		// Micro-threads run with FPU and vector enabled per spec.md §4.5.
		a.SR |= SREF | SREV
		if !a.feat.FPU {
			a.SR &^= SREF
		}
		if !a.feat.Vector {
			a.SR &^= SREV
		}
	}
	a.FSR = 0
	a.EVec = 0
	a.EPC = 0
	a.BadVAddr = 0
	a.Cause.Store(0)
	a.PCRK0 = 0
	a.PCRK1 = 0
	a.ToHost = 0
	a.FromHost = 0
	a.Count = 0
	a.Compare = 0
	a.Cycle = 0

	a.VecBanks = 0xff
	a.VecBanksCount = 8
	a.VLMax = 32
	a.VL = 0
	a.NXFPRBank = 256
	a.NXPRUse = 32
	a.NFPRUse = 32

	a.Run.Store(false)

	if isPrimary {
		a.UTs = nil
	}
}

// InitMicroThread configures a as the idx'th owned micro-thread of the
// hart identified by id, then resets it, all in place. vector.Pool.
// Allocate builds each slot of its backing slice this way instead of
// constructing a separate ASB and assigning it in: Cause/Run are
// atomic-typed, and an `dst = src` struct copy between two live ASBs
// would copy those words with a plain move instead of their atomic
// accessors.
func (a *ASB) InitMicroThread(feat Features, idx int32, id uint32) {
	a.feat = feat
	a.UTIdx = idx
	a.ID = id
	a.Reset()
}

// Snapshot returns a point-in-time copy of a for diagnostics (the
// console's dump command, tests asserting end-to-end invariants).
// Cause and Run are copied through their atomic accessors; every other
// field is touched only by the hart's own Step goroutine, so a direct
// read is safe. Built field-by-field rather than via `out := *a` so the
// atomic fields are never reached by a plain struct-copy move.
func (a *ASB) Snapshot() ASB {
	out := ASB{
		XPR:           a.XPR,
		FPR:           a.FPR,
		PC:            a.PC,
		SR:            a.SR,
		FSR:           a.FSR,
		EVec:          a.EVec,
		EPC:           a.EPC,
		BadVAddr:      a.BadVAddr,
		PCRK0:         a.PCRK0,
		PCRK1:         a.PCRK1,
		ToHost:        a.ToHost,
		FromHost:      a.FromHost,
		Count:         a.Count,
		Compare:       a.Compare,
		Cycle:         a.Cycle,
		ID:            a.ID,
		UTIdx:         a.UTIdx,
		VecBanks:      a.VecBanks,
		VecBanksCount: a.VecBanksCount,
		VLMax:         a.VLMax,
		VL:            a.VL,
		NXFPRBank:     a.NXFPRBank,
		NXPRUse:       a.NXPRUse,
		NFPRUse:       a.NFPRUse,
		feat:          a.feat,
	}
	out.Cause.Store(a.Cause.Load())
	out.Run.Store(a.Run.Load())
	return out
}

// ForceZeroRegister re-enforces the xpr[0] == 0 invariant. The engine
// calls this after every retired instruction; nothing else should need
// to.
func (a *ASB) ForceZeroRegister() {
	a.XPR[0] = 0
}
