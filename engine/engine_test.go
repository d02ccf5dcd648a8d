package engine_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcornwell/rv64core/dispatch"
	"github.com/rcornwell/rv64core/engine"
	"github.com/rcornwell/rv64core/signal"
	"github.com/rcornwell/rv64core/state"
)

// fakeMMU serves a fixed instruction stream from a map keyed by pc,
// optionally faults at one pc, and reports a fixed badvaddr.
type fakeMMU struct {
	words    map[uint64]uint32
	faultAt  uint64
	hasFault bool
}

func (m *fakeMMU) LoadInsn(pc uint64, _ bool) (uint32, error) {
	if m.hasFault && pc == m.faultAt {
		return 0, &pageFault{id: 7}
	}
	return m.words[pc], nil
}

func (m *fakeMMU) GetBadVAddr() uint64 { return 0xbad }

type pageFault struct{ id int }

func (p *pageFault) Error() string        { return "page fault" }
func (p *pageFault) PageFaultTrapID() int { return p.id }

func freshASB() *state.ASB {
	a := state.New(state.Features{FPU: true, Compressed: true, Vector: true, Int64: true})
	a.SetSR(state.SRS|state.SRSX|state.SRET, nil)
	a.Run.Store(true)
	return a
}

func nopHandler(pcStep uint64) dispatch.Handler {
	return func(proc any, _ uint32, pc uint64) (uint64, signal.Signal) {
		a := proc.(*engine.Context).ASB
		a.XPR[1]++
		return pc + pcStep, signal.NoneSignal
	}
}

func TestStepReturnsImmediatelyWhenNotRunning(t *testing.T) {
	a := freshASB()
	a.Run.Store(false)
	e := engine.New(dispatch.Build(nil), &fakeMMU{})
	e.Step(a, 10, false)
	assert.Zero(t, a.Count)
}

func TestStepRetiresNInstructionsAndAdvancesPC(t *testing.T) {
	words := map[uint64]uint32{0: 0x10, 4: 0x10, 8: 0x10}
	table := dispatch.Build([]dispatch.Insn{
		{Name: "NOP", Opcode: 0x10, Mask: 0xffffffff, Fn: nopHandler(4)},
	})
	a := freshASB()
	e := engine.New(table, &fakeMMU{words: words})

	e.Step(a, 3, false)

	assert.Equal(t, uint64(12), a.PC)
	assert.Equal(t, uint64(3), a.XPR[1])
	assert.Equal(t, uint64(3), a.Count)
	assert.Equal(t, uint64(3), a.Cycle)
}

func TestStepForcesZeroRegisterEveryRetirement(t *testing.T) {
	table := dispatch.Build([]dispatch.Insn{
		{Name: "SETX0", Opcode: 0x10, Mask: 0xffffffff, Fn: func(proc any, _ uint32, pc uint64) (uint64, signal.Signal) {
			a := proc.(*engine.Context).ASB
			a.XPR[0] = 0xdead
			return pc + 4, signal.NoneSignal
		}},
	})
	a := freshASB()
	e := engine.New(table, &fakeMMU{words: map[uint64]uint32{0: 0x10}})
	e.Step(a, 1, false)
	assert.Zero(t, a.XPR[0])
}

func TestStepIllegalInstructionTrapsAndContinues(t *testing.T) {
	table := dispatch.Build(nil) // Everything is illegal.
	a := freshASB()
	a.EVec = 0x8000
	e := engine.New(table, &fakeMMU{words: map[uint64]uint32{0: 0x99}})

	e.Step(a, 1, false)

	assert.Equal(t, uint64(0x8000), a.PC)
	assert.Equal(t, uint64(1), a.Count)
}

func TestStepPageFaultRoutesThroughTakeTrap(t *testing.T) {
	table := dispatch.Build(nil)
	a := freshASB()
	a.EVec = 0x9000
	m := &fakeMMU{hasFault: true, faultAt: 0}
	e := engine.New(table, m)

	e.Step(a, 1, false)

	assert.Equal(t, uint64(0x9000), a.PC)
	assert.Equal(t, uint64(7), a.Cause.Load()&0xffff)
}

func TestStepStopEndsBurstEarlyButPreservesState(t *testing.T) {
	table := dispatch.Build([]dispatch.Insn{
		{Name: "STOP", Opcode: 0x10, Mask: 0xffffffff, Fn: func(proc any, _ uint32, pc uint64) (uint64, signal.Signal) {
			return pc, signal.Signal{Kind: signal.Stop}
		}},
	})
	a := freshASB()
	e := engine.New(table, &fakeMMU{words: map[uint64]uint32{0: 0x10}})

	e.Step(a, 100, false)

	assert.True(t, a.Run.Load())
	assert.Equal(t, uint64(1), a.Count)
}

func TestStepHaltResetsProcessor(t *testing.T) {
	table := dispatch.Build([]dispatch.Insn{
		{Name: "HALT", Opcode: 0x10, Mask: 0xffffffff, Fn: func(_ any, _ uint32, pc uint64) (uint64, signal.Signal) {
			return pc, signal.Signal{Kind: signal.Halt}
		}},
	})
	a := freshASB()
	a.XPR[5] = 42
	e := engine.New(table, &fakeMMU{words: map[uint64]uint32{0: 0x10}})

	e.Step(a, 100, false)

	assert.False(t, a.Run.Load())
	assert.Zero(t, a.XPR[5])
	assert.Zero(t, a.Count)
}

func TestStepFiresTimerIRQOnCrossing(t *testing.T) {
	table := dispatch.Build([]dispatch.Insn{
		{Name: "NOP", Opcode: 0x10, Mask: 0xffffffff, Fn: nopHandler(4)},
	})
	a := freshASB()
	a.Compare = 2
	words := map[uint64]uint32{0: 0x10, 4: 0x10, 8: 0x10}
	e := engine.New(table, &fakeMMU{words: words})

	e.Step(a, 3, false)

	require.Equal(t, uint64(3), a.Count)
	assert.NotZero(t, a.Cause.Load()>>state.CauseIPShift)
}
