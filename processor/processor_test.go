package processor_test

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcornwell/rv64core/processor"
	"github.com/rcornwell/rv64core/refmmu"
	"github.com/rcornwell/rv64core/state"
	"github.com/rcornwell/rv64core/statsink"
	"github.com/rcornwell/rv64core/trap"
)

// newProc builds a Processor and arms it the way a harness would after
// reset: traps enabled and marked runnable. Reset itself leaves both
// clear per spec.md §4.1 ("clears the run flag"); arming is the
// harness's job, done here through the ASB() accessor.
func newProc(t *testing.T) (*processor.Processor, *refmmu.RefMMU) {
	t.Helper()
	mem := refmmu.New(64)
	p := processor.New(mem, state.Features{Int64: true})
	p.Init(1, 4, nil, nil, nil, nil)
	p.ASB().SetSR(state.SRS|state.SRSX|state.SRET, p.MMU())
	p.ASB().Run.Store(true)
	return p, mem
}

func TestResetClearsRunFlag(t *testing.T) {
	mem := refmmu.New(64)
	p := processor.New(mem, state.Features{Int64: true})
	p.Init(1, 4, nil, nil, nil, nil)
	primary, uts := p.Dump()
	assert.False(t, primary.Run.Load())
	assert.Len(t, uts, 4)
}

func TestStepIllegalInstructionSetsIllegalCause(t *testing.T) {
	p, mem := newProc(t)
	require.NoError(t, mem.StoreWord(0, 0x7f)) // Undefined opcode.

	p.Step(1, false)

	primary, _ := p.Dump()
	assert.Equal(t, uint64(trap.IllegalInstruction), primary.Cause.Load()&0xffff)
}

func TestDeliverIPIIsVisibleAtNextBoundary(t *testing.T) {
	p, mem := newProc(t)
	require.NoError(t, mem.StoreWord(0, 0x7f))

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		p.DeliverIPI()
	}()
	wg.Wait()
	p.Step(1, false)

	primary, _ := p.Dump()
	assert.NotZero(t, (primary.Cause.Load()>>state.CauseIPShift)&trap.IPIIRQBit)
	assert.True(t, primary.Run.Load())
}

func TestCloseOrdersStatsIcacheItlbDcacheDtlb(t *testing.T) {
	mem := refmmu.New(64)
	p := processor.New(mem, state.Features{Int64: true})
	ic, dc, it, dt := statsink.NewCounter(), statsink.NewCounter(), statsink.NewCounter(), statsink.NewCounter()
	p.Init(1, 0, ic, dc, it, dt)
	require.NoError(t, mem.StoreWord(0, 0x13)) // addi x0,x0,0
	p.Step(1, false)

	var b strings.Builder
	p.Close(&b)
	out := b.String()

	iIdx := strings.Index(out, "icache")
	itIdx := strings.Index(out, "itlb")
	dIdx := strings.Index(out, "dcache")
	dtIdx := strings.Index(out, "dtlb")
	require.True(t, iIdx >= 0 && itIdx >= 0 && dIdx >= 0 && dtIdx >= 0)
	assert.True(t, iIdx < itIdx)
	assert.True(t, itIdx < dIdx)
	assert.True(t, dIdx < dtIdx)
}

func TestLogFatalIfPanickedRecoversDoubleFault(t *testing.T) {
	p, _ := newProc(t)
	assert.NotPanics(t, func() {
		defer p.LogFatalIfPanicked()
		panic(&trap.FatalError{HartID: 1, TrapID: trap.IllegalInstruction, Reason: "test"})
	})
	primary, _ := p.Dump()
	assert.False(t, primary.Run.Load())
}
