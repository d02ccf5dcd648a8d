/*
   rv64core - process-wide instruction dispatch table.

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

// Package dispatch builds the process-wide instruction dispatch table:
// DispatchTableSize entries indexed by insn.bits mod DispatchTableSize,
// each either a direct handler (no collisions) or a fallback linear
// prober over the colliding chain. Construction is one-shot; the built
// Table is read-only and safe for unsynchronized concurrent reads by
// every hart, per spec.md §4.2/§5.
package dispatch

import "github.com/rcornwell/rv64core/signal"

// Handler is the semantic body of one instruction. proc carries whatever
// the engine needs to hand handlers (registers, MMU); dispatch treats it
// opaquely so the opcode registry (package isa) can depend on a concrete
// engine type without dispatch depending on engine, avoiding an import
// cycle. A handler returns the next PC and, when it raises trap/stop/halt,
// a non-None Signal in place of continuing normally.
type Handler func(proc any, insn uint32, pc uint64) (uint64, signal.Signal)

// Insn is one entry in the registry: any instruction whose bits, masked
// by Mask, equal Opcode decodes to this entry.
type Insn struct {
	Name   string
	Opcode uint32
	Mask   uint32
	Fn     Handler
}

// DispatchTableSize must be a power of two; it bounds both the table
// size and the hash applied to insn.bits.
const DispatchTableSize = 1024

const tableIndexMask = DispatchTableSize - 1

// IllegalTrapID is the trap id the fallback prober and the empty-chain
// slot raise when no registry entry matches. engine.Step and isa agree
// on this value so illegal-instruction traps from dispatch land on the
// same trap vector as any other decode failure.
const IllegalTrapID = 0

func illegal(_ any, _ uint32, _ uint64) (uint64, signal.Signal) {
	return 0, signal.Signal{Kind: signal.Trap, ID: IllegalTrapID}
}

// Table is the built, read-only dispatch table.
type Table struct {
	slots    [DispatchTableSize]Handler
	chainLen [DispatchTableSize]int // For Stats(); 0/1 means no fallback prober was needed.
}

// Build constructs a Table from the given registry, following spec.md
// §4.2's algorithm: for each index, collect every instruction whose
// masked opcode could land there; a singleton chain gets the handler
// directly, anything else gets a linear-probe fallback. Two calls with
// the same registry produce tables with identical dispatch behavior;
// callers that need the process-wide single-build guarantee of spec.md
// §4.2/§9 should build once (e.g. with sync.OnceValue) and share the
// result rather than relying on pointer identity from repeated calls.
func Build(registry []Insn) *Table {
	t := &Table{}

	chains := make([][]Insn, DispatchTableSize)
	for i := 0; i < DispatchTableSize; i++ {
		idx := uint32(i)
		for _, insn := range registry {
			if (idx & insn.Mask) == (insn.Opcode & insn.Mask & tableIndexMask) {
				chains[i] = append(chains[i], insn)
			}
		}
	}

	for i, chain := range chains {
		t.chainLen[i] = len(chain)
		switch len(chain) {
		case 0:
			t.slots[i] = illegal
		case 1:
			t.slots[i] = chain[0].Fn
		default:
			t.slots[i] = fallbackProber(chain)
		}
	}
	return t
}

// fallbackProber linearly probes chain for the first entry whose masked
// bits match, per spec.md §4.2. The copy keeps the closure from pinning
// the caller's backing array alive across Build's other allocations.
func fallbackProber(chain []Insn) Handler {
	probe := make([]Insn, len(chain))
	copy(probe, chain)
	return func(proc any, insn uint32, pc uint64) (uint64, signal.Signal) {
		for _, candidate := range probe {
			if (insn & candidate.Mask) == candidate.Opcode {
				return candidate.Fn(proc, insn, pc)
			}
		}
		return illegal(proc, insn, pc)
	}
}

// Lookup returns the handler for insn, indexing by insn mod
// DispatchTableSize.
func (t *Table) Lookup(insn uint32) Handler {
	return t.slots[insn&tableIndexMask]
}

// Stats reports, per index, how many registry entries collided there.
// Read-only diagnostic; never affects dispatch behavior.
func (t *Table) Stats() [DispatchTableSize]int {
	return t.chainLen
}
