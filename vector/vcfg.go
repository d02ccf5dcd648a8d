/*
   rv64core - Micro-Thread Pool and vector configuration.

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

// Package vector implements vcfg/setvl and the micro-thread pool of
// spec.md §4.5: the vector extension's register-bank reconfiguration and
// the owned slice of micro-thread ASBs a primary hart drives explicitly.
package vector

import "github.com/rcornwell/rv64core/state"

// Recompute applies spec.md §4.5's vlmax formula to a, deriving it from
// nxpr_use, nfpr_use, nxfpr_bank, and vecbanks_count, then clamps to
// state.MaxUTs.
func Recompute(a *state.ASB) {
	use := a.NXPRUse + a.NFPRUse
	var vlmax uint32
	if use < 2 {
		vlmax = a.NXFPRBank * uint32(a.VecBanksCount)
	} else {
		vlmax = (a.NXFPRBank / (use - 1)) * uint32(a.VecBanksCount)
	}
	if vlmax > state.MaxUTs {
		vlmax = state.MaxUTs
	}
	a.VLMax = vlmax
}

// SetVL sets a.VL to clamp(requested, 0, a.VLMax) and returns the new
// value, per spec.md §4.5 and §8's "setvl(k) for k < 0": requested is
// signed so a negative request clamps to 0 rather than wrapping to a
// huge unsigned value when the caller's k < 0. Recompute must have been
// called at least once since the last change to the bank-sizing fields
// for VLMax to be current.
func SetVL(a *state.ASB, requested int32) uint32 {
	var vl uint32
	if requested > 0 {
		vl = uint32(requested)
	}
	if vl > a.VLMax {
		vl = a.VLMax
	}
	a.VL = vl
	return vl
}

// Pool owns a primary ASB's micro-thread slice. It is a thin, named view
// over state.ASB.UTs so allocation and bounds-checked access live next
// to the vcfg math they share invariants with, rather than scattered
// across the facade.
type Pool struct {
	primary *state.ASB
}

// NewPool returns a Pool bound to primary, which must be a primary ASB
// (UTIdx == -1).
func NewPool(primary *state.ASB) *Pool {
	return &Pool{primary: primary}
}

// Allocate replaces the pool's micro-thread ASBs with count freshly
// reset ones, each sharing the primary's id and feature set, per
// spec.md §4.5: "allocated at init time ... shares the parent's id and
// physical memory". count is clamped to state.MaxUTs.
func (p *Pool) Allocate(count int, feat state.Features) {
	if count > state.MaxUTs {
		count = state.MaxUTs
	}
	if count < 0 {
		count = 0
	}
	uts := make([]state.ASB, count)
	for i := range uts {
		// Built in place via InitMicroThread, not constructed separately
		// and assigned in: Cause/Run are atomic-typed, and a `uts[i] =
		// *seeded` struct copy would move those words with a plain copy
		// instead of their atomic accessors.
		uts[i].InitMicroThread(feat, int32(i), p.primary.ID)
	}
	p.primary.UTs = uts
}

// Use returns a bounds-checked pointer to micro-thread idx, or nil if
// idx is out of range. Supplements spec.md §4.5, which describes
// uts[0..MAX_UTS) but never names an accessor.
func (p *Pool) Use(idx int) *state.ASB {
	if idx < 0 || idx >= len(p.primary.UTs) {
		return nil
	}
	return &p.primary.UTs[idx]
}

// Len reports how many micro-thread ASBs are currently allocated.
func (p *Pool) Len() int {
	return len(p.primary.UTs)
}
