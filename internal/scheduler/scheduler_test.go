package scheduler

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/compute/internal/kernel"
	"github.com/born-ml/compute/internal/tensor"
	"github.com/born-ml/compute/internal/window"
)

type recordingKernel struct {
	kernel.Base
	parallel bool

	mu      sync.Mutex
	windows []window.Window
	infos   []kernel.ThreadInfo
}

func newRecordingKernel(shape tensor.Shape, parallel bool) *recordingKernel {
	k := &recordingKernel{parallel: parallel}
	k.Configure(window.FromShape(shape))
	return k
}

func (k *recordingKernel) Name() string          { return "recording" }
func (k *recordingKernel) IsParallelisable() bool { return k.parallel }

func (k *recordingKernel) Run(w window.Window, info kernel.ThreadInfo) {
	k.CheckRun(k.Name(), w)
	k.mu.Lock()
	defer k.mu.Unlock()
	k.windows = append(k.windows, w)
	k.infos = append(k.infos, info)
}

func TestSchedulePartitionCount(t *testing.T) {
	for _, extent := range []int{1, 2, 3, 7, 16, 33} {
		for _, threads := range []int{1, 2, 4, 8} {
			t.Run(fmt.Sprintf("E%d/T%d", extent, threads), func(t *testing.T) {
				k := newRecordingKernel(tensor.Shape{5, extent}, true)
				NewCPU(threads).Schedule(k, tensor.DimY)

				require.Len(t, k.windows, min(extent, threads))
				sort.Slice(k.windows, func(i, j int) bool {
					return k.windows[i].Y().Start < k.windows[j].Y().Start
				})
				total, next := 0, 0
				for _, w := range k.windows {
					assert.Equal(t, next, w.Y().Start)
					assert.Equal(t, k.Window().X(), w.X())
					assert.Positive(t, w.NumIterations(tensor.DimY))
					total += w.NumIterations(tensor.DimY)
					next = w.Y().End
				}
				assert.Equal(t, extent, total)

				ids := map[int]bool{}
				for _, info := range k.infos {
					assert.Equal(t, len(k.windows), info.NumThreads)
					ids[info.ThreadID] = true
				}
				assert.Len(t, ids, len(k.windows))
			})
		}
	}
}

func TestScheduleNotParallelisable(t *testing.T) {
	k := newRecordingKernel(tensor.Shape{8, 8}, false)
	NewCPU(4).Schedule(k, tensor.DimY)

	require.Len(t, k.windows, 1)
	assert.Equal(t, k.Window(), k.windows[0])
	assert.Equal(t, kernel.SingleThread, k.infos[0])
}

func TestScheduleUnconfiguredPanics(t *testing.T) {
	k := &recordingKernel{parallel: true}
	assert.Panics(t, func() { NewCPU(2).Schedule(k, tensor.DimY) })
	assert.Panics(t, func() { Single{}.Schedule(k, tensor.DimY) })
}

func TestSingleScheduler(t *testing.T) {
	k := newRecordingKernel(tensor.Shape{4, 4}, true)
	var s Scheduler = Single{}
	s.Schedule(k, tensor.DimY)
	assert.Len(t, k.windows, 1)
	assert.Equal(t, 1, s.NumThreads())
}

func TestNumThreadsFromEnvironment(t *testing.T) {
	t.Setenv("BORN_NUM_THREADS", "3")
	assert.Equal(t, 3, NewCPU(0).NumThreads())
	assert.Equal(t, 5, NewCPU(5).NumThreads())
	assert.Panics(t, func() { NewCPU(-1) })
}

func TestRunWorkloads(t *testing.T) {
	var count atomic.Int32
	seen := make([]int32, 6)
	workloads := make([]Workload, 6)
	for i := range workloads {
		workloads[i] = func(info kernel.ThreadInfo) {
			count.Add(1)
			atomic.AddInt32(&seen[info.ThreadID], 1)
		}
	}
	NewCPU(2).RunWorkloads(workloads)
	assert.Equal(t, int32(6), count.Load())
	assert.Equal(t, []int32{1, 1, 1, 1, 1, 1}, seen)
}

func TestRunWorkloadsPropagatesPanic(t *testing.T) {
	workloads := []Workload{
		func(kernel.ThreadInfo) {},
		func(kernel.ThreadInfo) { panic("boom") },
	}
	assert.PanicsWithValue(t, "boom", func() { NewCPU(2).RunWorkloads(workloads) })
}
