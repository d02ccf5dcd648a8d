package dispatch_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcornwell/rv64core/dispatch"
	"github.com/rcornwell/rv64core/signal"
)

func handlerReturning(v uint64) dispatch.Handler {
	return func(_ any, _ uint32, _ uint64) (uint64, signal.Signal) {
		return v, signal.NoneSignal
	}
}

func TestSingletonChainGetsDirectHandler(t *testing.T) {
	registry := []dispatch.Insn{
		{Name: "ONE", Opcode: 0x5, Mask: 0x7, Fn: handlerReturning(111)},
	}
	table := dispatch.Build(registry)
	next, sig := table.Lookup(0x5)(nil, 0x5, 0)
	require.True(t, sig.IsNone())
	assert.Equal(t, uint64(111), next)
}

func TestCollidingChainUsesFallbackProber(t *testing.T) {
	// Both opcodes reduce to the same low 10 bits (the table index), so
	// they collide at slot 1 even though their full 32-bit encodings
	// differ above bit 9 — exactly the case spec.md §4.2's fallback
	// prober exists for.
	registry := []dispatch.Insn{
		{Name: "A", Opcode: 0x401, Mask: 0xffffffff, Fn: handlerReturning(1)},
		{Name: "B", Opcode: 0x001, Mask: 0xffffffff, Fn: handlerReturning(2)},
	}
	table := dispatch.Build(registry)

	next, sig := table.Lookup(0x401)(nil, 0x401, 0)
	require.True(t, sig.IsNone())
	assert.Equal(t, uint64(1), next)

	next, sig = table.Lookup(0x001)(nil, 0x001, 0)
	require.True(t, sig.IsNone())
	assert.Equal(t, uint64(2), next)
}

func TestUnmatchedInstructionIsIllegal(t *testing.T) {
	registry := []dispatch.Insn{
		{Name: "A", Opcode: 0x401, Mask: 0xffffffff, Fn: handlerReturning(1)},
		{Name: "B", Opcode: 0x001, Mask: 0xffffffff, Fn: handlerReturning(2)},
	}
	table := dispatch.Build(registry)
	_, sig := table.Lookup(0x001)(nil, 0x042, 0)
	require.Equal(t, signal.Trap, sig.Kind)
	assert.Equal(t, dispatch.IllegalTrapID, sig.ID)
}

func TestEmptyChainIsIllegal(t *testing.T) {
	table := dispatch.Build(nil)
	_, sig := table.Lookup(0x123)(nil, 0x123, 0)
	require.Equal(t, signal.Trap, sig.Kind)
}

func TestBuildIsRepeatable(t *testing.T) {
	registry := []dispatch.Insn{
		{Name: "ONE", Opcode: 0x5, Mask: 0x7, Fn: handlerReturning(111)},
	}
	t1 := dispatch.Build(registry)
	t2 := dispatch.Build(registry)
	assert.Equal(t, t1.Stats(), t2.Stats())
}
