package refmmu_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcornwell/rv64core/mmu"
	"github.com/rcornwell/rv64core/refmmu"
	"github.com/rcornwell/rv64core/statsink"
)

func TestLoadInsnReadsStoredWord(t *testing.T) {
	r := refmmu.New(16)
	require.NoError(t, r.StoreWord(8, 0xdeadbeef))
	got, err := r.LoadInsn(8, false)
	require.NoError(t, err)
	assert.Equal(t, uint32(0xdeadbeef), got)
}

func TestLoadInsnOutOfRangeFaults(t *testing.T) {
	r := refmmu.New(4)
	_, err := r.LoadInsn(1000, false)
	require.Error(t, err)
	var pf *mmu.ErrPageFault
	require.ErrorAs(t, err, &pf)
	assert.Equal(t, uint64(1000), r.GetBadVAddr())
}

func TestLoadInsnMisalignedFaults(t *testing.T) {
	r := refmmu.New(4)
	_, err := r.LoadInsn(2, false)
	require.Error(t, err)
}

func TestStatSinksRecordHitsAndMisses(t *testing.T) {
	r := refmmu.New(4)
	ic := statsink.NewCounter()
	itlb := statsink.NewCounter()
	r.SetICSim(ic)
	r.SetITLBSim(itlb)

	_, _ = r.LoadInsn(0, false)
	_, _ = r.LoadInsn(1000, false) // Out of range: counts as a miss.

	assert.Equal(t, uint64(1), ic.Hits())
	assert.Equal(t, uint64(1), itlb.Hits())
	assert.Equal(t, uint64(1), itlb.Misses())
}

func TestSetVMAndSupervisorDoNotPanic(t *testing.T) {
	r := refmmu.New(4)
	r.SetVMEnabled(true)
	r.SetSupervisor(true)
	r.FlushTLB()
}

var _ mmu.MMU = (*refmmu.RefMMU)(nil)
