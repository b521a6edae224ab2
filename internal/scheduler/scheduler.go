// Package scheduler runs configured kernels, splitting their window across
// workers when they are parallelisable.
package scheduler

import (
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/born-ml/compute/internal/envconfig"
	"github.com/born-ml/compute/internal/kernel"
	"github.com/born-ml/compute/internal/logutil"
)

// Workload is a unit of work run by RunWorkloads.
type Workload func(info kernel.ThreadInfo)

// Scheduler executes kernels.
type Scheduler interface {
	// Schedule runs k over its whole window, split along splitDim, and
	// returns once every partition has completed.
	Schedule(k kernel.Kernel, splitDim int)
	// RunWorkloads runs every workload and returns once all have completed.
	RunWorkloads(workloads []Workload)
	// NumThreads returns the number of workers.
	NumThreads() int
}

// CPU is a scheduler backed by a fixed number of goroutines per call.
// Schedule calls from different goroutines are independent.
type CPU struct {
	numThreads int
}

// NewCPU returns a scheduler with numThreads workers. 0 selects
// BORN_NUM_THREADS, or one worker per logical CPU when that is unset.
func NewCPU(numThreads int) *CPU {
	s := &CPU{}
	s.SetNumThreads(numThreads)
	return s
}

// SetNumThreads changes the number of workers; see NewCPU for 0.
func (s *CPU) SetNumThreads(n int) {
	if n < 0 {
		panic(fmt.Sprintf("scheduler: negative thread count %d", n))
	}
	if n == 0 {
		n = int(envconfig.NumThreads())
	}
	if n == 0 {
		n = runtime.NumCPU()
	}
	s.numThreads = n
}

// NumThreads implements Scheduler.
func (s *CPU) NumThreads() int {
	return s.numThreads
}

// Schedule implements Scheduler. A kernel that is not parallelisable, or a
// single worker, runs the full window once with ThreadInfo{0, 1}. Otherwise
// the window is split into min(iterations, workers) contiguous partitions.
func (s *CPU) Schedule(k kernel.Kernel, splitDim int) {
	kernel.MustBeConfigured(k)

	full := k.Window()
	if !k.IsParallelisable() || s.numThreads == 1 {
		k.Run(full, kernel.SingleThread)
		return
	}

	numWindows := min(full.NumIterations(splitDim), s.numThreads)
	if numWindows <= 1 {
		k.Run(full, kernel.SingleThread)
		return
	}

	logutil.Trace("schedule", "kernel", k.Name(), "windows", numWindows, "dim", splitDim)
	workloads := make([]Workload, numWindows)
	for i := range workloads {
		w := full.SplitWindow(splitDim, i, numWindows)
		workloads[i] = func(info kernel.ThreadInfo) {
			k.Run(w, info)
		}
	}
	s.RunWorkloads(workloads)
}

// RunWorkloads implements Scheduler. Workload i runs with ThreadID i. A panic
// in any workload is re-raised on the calling goroutine after the others
// have finished.
func (s *CPU) RunWorkloads(workloads []Workload) {
	n := len(workloads)
	switch n {
	case 0:
		return
	case 1:
		workloads[0](kernel.SingleThread)
		return
	}

	var g errgroup.Group
	g.SetLimit(s.numThreads)
	for i, w := range workloads {
		info := kernel.ThreadInfo{ThreadID: i, NumThreads: n}
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = &workloadPanic{value: r}
				}
			}()
			w(info)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		panic(err.(*workloadPanic).value)
	}
}

type workloadPanic struct {
	value any
}

func (p *workloadPanic) Error() string {
	return fmt.Sprintf("workload panicked: %v", p.value)
}

// Single runs everything on the calling goroutine.
type Single struct{}

// Schedule implements Scheduler.
func (Single) Schedule(k kernel.Kernel, _ int) {
	kernel.MustBeConfigured(k)
	k.Run(k.Window(), kernel.SingleThread)
}

// RunWorkloads implements Scheduler.
func (Single) RunWorkloads(workloads []Workload) {
	for _, w := range workloads {
		w(kernel.SingleThread)
	}
}

// NumThreads implements Scheduler.
func (Single) NumThreads() int {
	return 1
}
