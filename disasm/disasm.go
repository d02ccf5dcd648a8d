/*
   rv64core - diagnostic instruction formatting.

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

// Package disasm formats fetched instructions for the engine's noisy
// trace path (spec.md §4.4: "If noisy, emit a disassembly line"), which
// processor.New wires up. Formatting follows the teacher's
// util/hex convention of building into a shared strings.Builder rather
// than allocating a new string per field.
package disasm

import (
	"strings"

	"github.com/rcornwell/rv64core/dispatch"
)

var hexDigits = "0123456789abcdef"

func writeHex32(b *strings.Builder, v uint32) {
	shift := 28
	for range 8 {
		b.WriteByte(hexDigits[(v>>shift)&0xf])
		shift -= 4
	}
}

func writeHex64(b *strings.Builder, v uint64) {
	shift := 60
	for range 16 {
		b.WriteByte(hexDigits[(v>>shift)&0xf])
		shift -= 4
	}
}

// Disassembler formats instructions via a registry's Name lookup,
// naming the first entry whose mask/opcode matches and printing "???"
// for a word no entry matches. The lookup is independent of the built
// dispatch table, so a word a direct table slot executes can still
// print as "???".
type Disassembler struct {
	registry []dispatch.Insn
}

// New returns a Disassembler that names instructions from registry, the
// same slice passed to dispatch.Build.
func New(registry []dispatch.Insn) *Disassembler {
	return &Disassembler{registry: registry}
}

// Disassemble formats one fetched word as "pc: hex  NAME" or
// "pc: hex  ???" when no registry entry's mask/opcode matches.
func (d *Disassembler) Disassemble(pc uint64, insn uint32) string {
	var b strings.Builder
	writeHex64(&b, pc)
	b.WriteString(": ")
	writeHex32(&b, insn)
	b.WriteString("  ")
	b.WriteString(d.name(insn))
	return b.String()
}

func (d *Disassembler) name(insn uint32) string {
	for _, entry := range d.registry {
		if insn&entry.Mask == entry.Opcode&entry.Mask {
			return entry.Name
		}
	}
	return "???"
}
