package console_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcornwell/rv64core/console"
	"github.com/rcornwell/rv64core/processor"
	"github.com/rcornwell/rv64core/refmmu"
	"github.com/rcornwell/rv64core/state"
)

func newProc(t *testing.T) (*processor.Processor, *refmmu.RefMMU) {
	t.Helper()
	mem := refmmu.New(64)
	p := processor.New(mem, state.Features{Int64: true})
	p.Init(1, 0, nil, nil, nil, nil)
	p.ASB().SetSR(state.SRS|state.SRSX|state.SRET, p.MMU())
	p.ASB().Run.Store(true)
	return p, mem
}

func TestLoadThenStepExecutesStoredWord(t *testing.T) {
	p, mem := newProc(t)
	require.NoError(t, console.ProcessCommand("load 0 0x13", p, mem)) // addi x0,x0,0

	require.NoError(t, console.ProcessCommand("step 1", p, mem))

	primary, _ := p.Dump()
	assert.Equal(t, uint64(4), primary.PC)
}

func TestQuitReturnsErrQuitForAnyUniquePrefix(t *testing.T) {
	p, mem := newProc(t)
	err := console.ProcessCommand("q", p, mem)
	assert.ErrorIs(t, err, console.ErrQuit)
}

func TestPrefixShorterThanMinimumIsRejected(t *testing.T) {
	p, mem := newProc(t)
	err := console.ProcessCommand("s", p, mem) // below the minimum match length of step and show, the only verbs starting with "s"
	assert.Error(t, err)
}

func TestUnknownCommandIsRejected(t *testing.T) {
	p, mem := newProc(t)
	err := console.ProcessCommand("bogus", p, mem)
	assert.Error(t, err)
}

func TestIPIMarksRunnable(t *testing.T) {
	p, mem := newProc(t)
	p.ASB().Run.Store(false)
	require.NoError(t, console.ProcessCommand("ipi", p, mem))
	primary, _ := p.Dump()
	assert.True(t, primary.Run.Load())
}

func TestResetClearsRun(t *testing.T) {
	p, mem := newProc(t)
	require.NoError(t, console.ProcessCommand("reset", p, mem))
	primary, _ := p.Dump()
	assert.False(t, primary.Run.Load())
}

func TestCompleteCmdMatchesPrefix(t *testing.T) {
	got := console.CompleteCmd("st")
	assert.Contains(t, got, "step")
}
