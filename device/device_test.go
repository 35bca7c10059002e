package device

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestThreads(t *testing.T) {
	assert.Equal(t, 3, Threads(3))
	assert.Positive(t, Threads(0))
	assert.Positive(t, Threads(-1))
}

func TestDescribe(t *testing.T) {
	info, err := Describe()
	require.NoError(t, err)
	assert.GreaterOrEqual(t, info.LogicalCores, info.PhysicalCores)
}

func TestGPU_MemoryBudget(t *testing.T) {
	g := GPU{TotalMem: 8 << 30}
	assert.Equal(t, int64(8<<30), g.MemoryBudget(0))
	assert.Equal(t, int64(4<<30), g.MemoryBudget(2))
	assert.Equal(t, int64(2<<30), g.MemoryBudget(4))
}
