package vector_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rcornwell/rv64core/state"
	"github.com/rcornwell/rv64core/vector"
)

func freshASB() *state.ASB {
	return state.New(state.Features{FPU: true, Vector: true, Int64: true})
}

func TestRecomputeSingleUser(t *testing.T) {
	a := freshASB()
	a.NXPRUse, a.NFPRUse = 1, 0
	a.NXFPRBank = 4
	a.VecBanksCount = 8
	vector.Recompute(a)
	assert.Equal(t, uint32(32), a.VLMax)
}

func TestRecomputeMultiUser(t *testing.T) {
	a := freshASB()
	a.NXPRUse, a.NFPRUse = 2, 2
	a.NXFPRBank = 9
	a.VecBanksCount = 8
	vector.Recompute(a)
	// (9 / (2+2-1)) * 8 = (9/3)*8 = 24
	assert.Equal(t, uint32(24), a.VLMax)
}

func TestRecomputeClampsToMaxUTs(t *testing.T) {
	a := freshASB()
	a.NXPRUse, a.NFPRUse = 0, 0
	a.NXFPRBank = 1000
	a.VecBanksCount = 255
	vector.Recompute(a)
	assert.Equal(t, uint32(state.MaxUTs), a.VLMax)
}

func TestSetVLClampsToVLMax(t *testing.T) {
	a := freshASB()
	a.VLMax = 16
	got := vector.SetVL(a, 32)
	assert.Equal(t, uint32(16), got)
	assert.Equal(t, uint32(16), a.VL)
}

func TestSetVLBelowMax(t *testing.T) {
	a := freshASB()
	a.VLMax = 16
	got := vector.SetVL(a, 4)
	assert.Equal(t, uint32(4), got)
}

func TestSetVLNegativeClampsToZero(t *testing.T) {
	a := freshASB()
	a.VLMax = 16
	got := vector.SetVL(a, -1)
	assert.Equal(t, uint32(0), got)
	assert.Equal(t, uint32(0), a.VL)
}

func TestPoolAllocateSharesIDAndSetsFeatureBits(t *testing.T) {
	a := freshASB()
	a.ID = 7
	pool := vector.NewPool(a)
	pool.Allocate(4, state.Features{FPU: true, Vector: true, Int64: true})

	assert.Equal(t, 4, pool.Len())
	for i := 0; i < 4; i++ {
		ut := pool.Use(i)
		assert.Equal(t, uint32(7), ut.ID)
		assert.NotZero(t, ut.SR&state.SREF)
		assert.NotZero(t, ut.SR&state.SREV)
		assert.Equal(t, int32(i), ut.UTIdx)
	}
}

func TestPoolAllocateClampsToMaxUTs(t *testing.T) {
	a := freshASB()
	pool := vector.NewPool(a)
	pool.Allocate(1000, state.Features{})
	assert.Equal(t, state.MaxUTs, pool.Len())
}

func TestPoolUseOutOfRangeReturnsNil(t *testing.T) {
	a := freshASB()
	pool := vector.NewPool(a)
	pool.Allocate(2, state.Features{})
	assert.Nil(t, pool.Use(-1))
	assert.Nil(t, pool.Use(2))
}
