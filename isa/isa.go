/*
   rv64core - illustrative opcode registry.

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

// Package isa is an illustrative RV64I-like opcode registry: enough
// arithmetic, branch, and load/store instructions to exercise
// dispatch.Build's collision handling and the engine's full retirement
// path end to end. spec.md §1 explicitly disclaims binary compatibility
// with any specific ISA revision, so this registry borrows the standard
// RISC-V base opcode/funct3/funct7 field layout for familiarity without
// claiming to implement it completely.
package isa

import (
	"github.com/rcornwell/rv64core/dispatch"
	"github.com/rcornwell/rv64core/engine"
	"github.com/rcornwell/rv64core/signal"
	"github.com/rcornwell/rv64core/trap"
)

// Base opcode field (bits 6:0).
const (
	opImm    uint32 = 0x13
	opReg    uint32 = 0x33
	opBranch uint32 = 0x63
	opJal    uint32 = 0x6f
	opLoad   uint32 = 0x03
	opStore  uint32 = 0x23
	opSystem uint32 = 0x73
)

const (
	maskOpcode = 0x7f
	maskFunct3 = 0x7 << 12
)

// DataMem is the data-side load/store capability an MMU implementation
// provides beyond mmu.MMU's load_insn contract; refmmu.RefMMU satisfies
// it. Handlers type-assert engine.Context.MMU to this rather than widen
// engine.MMU, since spec.md §6 only names load_insn on the CORE's own
// MMU contract.
type DataMem interface {
	LoadWord(addr uint64) (uint32, error)
	StoreWord(addr uint64, value uint32) error
}

func rd(insn uint32) uint32     { return (insn >> 7) & 0x1f }
func rs1(insn uint32) uint32    { return (insn >> 15) & 0x1f }
func rs2(insn uint32) uint32    { return (insn >> 20) & 0x1f }
func funct3(insn uint32) uint32 { return (insn >> 12) & 0x7 }
func funct7(insn uint32) uint32 { return (insn >> 25) & 0x7f }

func signExtend(v uint32, bits int) int64 {
	shift := 32 - bits
	return int64(int32(v<<shift)) >> shift
}

func immI(insn uint32) int64 {
	return signExtend(insn>>20, 12)
}

func immS(insn uint32) int64 {
	v := ((insn >> 25) << 5) | ((insn >> 7) & 0x1f)
	return signExtend(v, 12)
}

func immB(insn uint32) int64 {
	v := ((insn >> 31 & 0x1) << 12) |
		((insn >> 7 & 0x1) << 11) |
		((insn >> 25 & 0x3f) << 5) |
		((insn >> 8 & 0xf) << 1)
	return signExtend(v, 13)
}

func immJ(insn uint32) int64 {
	v := ((insn >> 31 & 0x1) << 20) |
		((insn >> 12 & 0xff) << 12) |
		((insn >> 20 & 0x1) << 11) |
		((insn >> 21 & 0x3ff) << 1)
	return signExtend(v, 21)
}

func setXPR(a *engine.Context, reg uint32, val uint64) {
	if reg != 0 {
		a.ASB.XPR[reg] = val
	}
}

func illegalTrap() signal.Signal {
	return signal.Signal{Kind: signal.Trap, ID: trap.IllegalInstruction}
}

func addi(proc any, insn uint32, pc uint64) (uint64, signal.Signal) {
	ctx := proc.(*engine.Context)
	v := ctx.ASB.XPR[rs1(insn)] + uint64(immI(insn))
	setXPR(ctx, rd(insn), v)
	return pc + 4, signal.NoneSignal
}

func addOrSub(proc any, insn uint32, pc uint64) (uint64, signal.Signal) {
	ctx := proc.(*engine.Context)
	a, b := ctx.ASB.XPR[rs1(insn)], ctx.ASB.XPR[rs2(insn)]
	var v uint64
	if funct7(insn) == 0x20 {
		v = a - b
	} else {
		v = a + b
	}
	setXPR(ctx, rd(insn), v)
	return pc + 4, signal.NoneSignal
}

func bitwise(op func(a, b uint64) uint64) dispatch.Handler {
	return func(proc any, insn uint32, pc uint64) (uint64, signal.Signal) {
		ctx := proc.(*engine.Context)
		v := op(ctx.ASB.XPR[rs1(insn)], ctx.ASB.XPR[rs2(insn)])
		setXPR(ctx, rd(insn), v)
		return pc + 4, signal.NoneSignal
	}
}

func beq(proc any, insn uint32, pc uint64) (uint64, signal.Signal) {
	ctx := proc.(*engine.Context)
	if ctx.ASB.XPR[rs1(insn)] == ctx.ASB.XPR[rs2(insn)] {
		return pc + uint64(immB(insn)), signal.NoneSignal
	}
	return pc + 4, signal.NoneSignal
}

func jal(proc any, insn uint32, pc uint64) (uint64, signal.Signal) {
	ctx := proc.(*engine.Context)
	setXPR(ctx, rd(insn), pc+4)
	return pc + uint64(immJ(insn)), signal.NoneSignal
}

func lw(proc any, insn uint32, pc uint64) (uint64, signal.Signal) {
	ctx := proc.(*engine.Context)
	mem, ok := ctx.MMU.(DataMem)
	if !ok {
		return pc, illegalTrap()
	}
	addr := ctx.ASB.XPR[rs1(insn)] + uint64(immI(insn))
	word, err := mem.LoadWord(addr)
	if err != nil {
		return pc, signal.Signal{Kind: signal.Trap, ID: trap.PageFault}
	}
	setXPR(ctx, rd(insn), uint64(int64(int32(word))))
	return pc + 4, signal.NoneSignal
}

func sw(proc any, insn uint32, pc uint64) (uint64, signal.Signal) {
	ctx := proc.(*engine.Context)
	mem, ok := ctx.MMU.(DataMem)
	if !ok {
		return pc, illegalTrap()
	}
	addr := ctx.ASB.XPR[rs1(insn)] + uint64(immS(insn))
	if err := mem.StoreWord(addr, uint32(ctx.ASB.XPR[rs2(insn)])); err != nil {
		return pc, signal.Signal{Kind: signal.Trap, ID: trap.PageFault}
	}
	return pc + 4, signal.NoneSignal
}

func ecall(_ any, _ uint32, pc uint64) (uint64, signal.Signal) {
	return pc, signal.Signal{Kind: signal.Trap, ID: trap.ECall}
}

// Registry returns the illustrative instruction set: ADDI, ADD, SUB,
// AND, OR, XOR, BEQ, JAL, LW, SW, ECALL. Pass it to dispatch.Build to
// get a Table, and to disasm.New for trace formatting.
func Registry() []dispatch.Insn {
	return []dispatch.Insn{
		{Name: "ADDI", Opcode: opImm | (0 << 12), Mask: maskOpcode | maskFunct3, Fn: addi},
		{Name: "ADD/SUB", Opcode: opReg | (0 << 12), Mask: maskOpcode | maskFunct3, Fn: addOrSub},
		{Name: "XOR", Opcode: opReg | (4 << 12), Mask: maskOpcode | maskFunct3, Fn: bitwise(func(a, b uint64) uint64 { return a ^ b })},
		{Name: "OR", Opcode: opReg | (6 << 12), Mask: maskOpcode | maskFunct3, Fn: bitwise(func(a, b uint64) uint64 { return a | b })},
		{Name: "AND", Opcode: opReg | (7 << 12), Mask: maskOpcode | maskFunct3, Fn: bitwise(func(a, b uint64) uint64 { return a & b })},
		{Name: "BEQ", Opcode: opBranch | (0 << 12), Mask: maskOpcode | maskFunct3, Fn: beq},
		{Name: "JAL", Opcode: opJal, Mask: maskOpcode, Fn: jal},
		{Name: "LW", Opcode: opLoad | (2 << 12), Mask: maskOpcode | maskFunct3, Fn: lw},
		{Name: "SW", Opcode: opStore | (2 << 12), Mask: maskOpcode | maskFunct3, Fn: sw},
		{Name: "ECALL", Opcode: opSystem, Mask: maskOpcode, Fn: ecall},
	}
}
