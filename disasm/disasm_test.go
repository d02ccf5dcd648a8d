package disasm_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rcornwell/rv64core/disasm"
	"github.com/rcornwell/rv64core/isa"
)

func TestDisassembleKnownInstruction(t *testing.T) {
	d := disasm.New(isa.Registry())
	out := d.Disassemble(0x100, 0x13) // addi x0, x0, 0
	assert.Contains(t, out, "ADDI")
	assert.Contains(t, out, "00000100")
}

func TestDisassembleUnknownInstruction(t *testing.T) {
	d := disasm.New(isa.Registry())
	out := d.Disassemble(0, 0x7f)
	assert.Contains(t, out, "???")
}
