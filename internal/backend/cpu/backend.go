// Package cpu implements the CPU kernels of the compute core.
//
// Every kernel follows the Validate / Configure / Run contract of package
// kernel. Configure selects the compute routine from a dispatch table keyed
// by the kernel's data types and neighbourhood size, taking the host's ISA
// features into account.
package cpu

import (
	"fmt"
	"slices"
	"strings"

	"github.com/born-ml/compute/internal/cpuinfo"
	"github.com/born-ml/compute/internal/dispatch"
	"github.com/born-ml/compute/internal/scheduler"
)

// CPUBackend bundles the host features and the worker scheduler kernels run
// on.
type CPUBackend struct {
	features  cpuinfo.Feature
	scheduler *scheduler.CPU
}

// New creates a CPU backend. The scheduler is sized from BORN_NUM_THREADS or
// the number of CPUs.
func New() *CPUBackend {
	return &CPUBackend{
		features:  cpuinfo.Detect(),
		scheduler: scheduler.NewCPU(0),
	}
}

// Name returns the backend name.
func (cpu *CPUBackend) Name() string {
	return "CPU"
}

// Features returns the ISA features routines are selected for.
func (cpu *CPUBackend) Features() cpuinfo.Feature {
	return cpu.features
}

// Scheduler returns the worker scheduler.
func (cpu *CPUBackend) Scheduler() *scheduler.CPU {
	return cpu.scheduler
}

// Routine describes which routine serves a dispatch key on this host.
type Routine struct {
	Kernel   string
	Key      string
	Selected string
	Choices  []string
}

// Routines lists, for every dispatch key of every CPU kernel, the routine
// selected on this host and the routines registered for it.
func (cpu *CPUBackend) Routines() []Routine {
	var out []Routine
	out = append(out, routines("convolution", convolutionTable, cpu.features)...)
	out = append(out, routines("separable convolution horizontal", separableHorizontalTable, cpu.features)...)
	out = append(out, routines("separable convolution vertical", separableVerticalTable, cpu.features)...)
	out = append(out, routines("min max", minMaxTable, cpu.features)...)
	out = append(out, routines("min max location", minMaxLocationTable, cpu.features)...)
	out = append(out, routines("arithmetic addition", additionTable, cpu.features)...)
	return out
}

func routines[K comparable, F any](name string, t *dispatch.Table[K, F], features cpuinfo.Feature) []Routine {
	var out []Routine
	for _, key := range t.Keys() {
		r := Routine{Kernel: name, Key: fmt.Sprintf("%+v", key), Choices: t.Names(key)}
		if e, err := t.Select(key, features); err == nil {
			r.Selected = e.Name
		}
		out = append(out, r)
	}
	slices.SortStableFunc(out, func(a, b Routine) int {
		return strings.Compare(a.Key, b.Key)
	})
	return out
}
