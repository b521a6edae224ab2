package cpu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/compute/internal/cpuinfo"
)

func TestCPUBackend_New(t *testing.T) {
	backend := New()
	require.NotNil(t, backend)
	assert.Equal(t, "CPU", backend.Name())
	assert.Equal(t, cpuinfo.Detect(), backend.Features())
	assert.Positive(t, backend.Scheduler().NumThreads())
}

func TestCPUBackend_Routines(t *testing.T) {
	routines := New().Routines()
	require.NotEmpty(t, routines)

	kernels := map[string]int{}
	for _, r := range routines {
		kernels[r.Kernel]++
		assert.NotEmpty(t, r.Selected, "%s %s", r.Kernel, r.Key)
		assert.Contains(t, r.Choices, r.Selected)
	}
	assert.Equal(t, 2*16, kernels["convolution"])
	assert.Equal(t, 3*4, kernels["separable convolution horizontal"])
	assert.Equal(t, 6*4, kernels["separable convolution vertical"])
	assert.Equal(t, 3, kernels["min max"])
	assert.Equal(t, 3, kernels["min max location"])
	assert.Equal(t, 2*5+2*2, kernels["arithmetic addition"])
}

func TestDispatchTablesHaveUniqueRoutineNames(t *testing.T) {
	for _, r := range New().Routines() {
		seen := map[string]bool{}
		for _, name := range r.Choices {
			assert.False(t, seen[name], "%s: duplicate routine %s", r.Kernel, name)
			seen[name] = true
		}
	}
}
