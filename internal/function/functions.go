package function

import (
	"fmt"

	"github.com/born-ml/compute/internal/array"
	"github.com/born-ml/compute/internal/backend/cpu"
	"github.com/born-ml/compute/internal/kernel"
	"github.com/born-ml/compute/internal/scheduler"
	"github.com/born-ml/compute/internal/tensor"
)

func defaultScheduler(sched scheduler.Scheduler) scheduler.Scheduler {
	if sched == nil {
		return scheduler.NewCPU(0)
	}
	return sched
}

// MinMaxLocation finds the extrema of an image, how often they occur and,
// optionally, where.
type MinMaxLocation struct {
	sched  scheduler.Scheduler
	minMax *cpu.MinMaxKernel
	loc    *cpu.MinMaxLocationKernel
	result cpu.MinMaxResult
}

// NewMinMaxLocation returns an unconfigured function running on sched.
func NewMinMaxLocation(sched scheduler.Scheduler) *MinMaxLocation {
	return &MinMaxLocation{sched: defaultScheduler(sched)}
}

// Configure binds a U8, S16 or F32 input. minLoc and maxLoc may be nil.
func (f *MinMaxLocation) Configure(input *tensor.Tensor, minLoc, maxLoc *array.Coordinates2DArray) error {
	if input == nil {
		return fmt.Errorf("min max location: %w: nil tensor", kernel.ErrInvalidArgument)
	}
	if err := cpu.ValidateMinMaxLocation(input.Info(), &f.result); err != nil {
		return err
	}
	f.minMax = cpu.NewMinMaxKernel()
	f.minMax.Configure(input, &f.result)
	f.loc = cpu.NewMinMaxLocationKernel()
	f.loc.Configure(input, &f.result, minLoc, maxLoc)
	return nil
}

// Run computes the extrema, then counts and locates them.
func (f *MinMaxLocation) Run() cpu.MinMaxResult {
	if f.minMax == nil {
		panic("min max location: not configured")
	}
	f.minMax.Reset()
	f.sched.Schedule(f.minMax, tensor.DimY)
	f.sched.Schedule(f.loc, tensor.DimY)
	return f.result
}

// ArithmeticAddition adds two images element-wise.
type ArithmeticAddition struct {
	sched scheduler.Scheduler
	k     *cpu.ArithmeticAdditionKernel
}

// NewArithmeticAddition returns an unconfigured function running on sched.
func NewArithmeticAddition(sched scheduler.Scheduler) *ArithmeticAddition {
	return &ArithmeticAddition{sched: defaultScheduler(sched)}
}

// Configure binds the operands; see cpu.ArithmeticAdditionKernel for the
// supported data types.
func (f *ArithmeticAddition) Configure(a, b, out *tensor.Tensor, policy cpu.ConvertPolicy) error {
	if a == nil || b == nil || out == nil {
		return fmt.Errorf("arithmetic addition: %w: nil tensor", kernel.ErrInvalidArgument)
	}
	if err := cpu.ValidateArithmeticAddition(a.Info(), b.Info(), out.Info(), policy); err != nil {
		return err
	}
	f.k = cpu.NewArithmeticAdditionKernel()
	f.k.Configure(a, b, out, policy)
	return nil
}

// Run performs the addition.
func (f *ArithmeticAddition) Run() {
	if f.k == nil {
		panic("arithmetic addition: not configured")
	}
	f.sched.Schedule(f.k, tensor.DimY)
}

// FillArray collects the pixels of a strength image at or above a
// threshold as key points.
type FillArray struct {
	sched  scheduler.Scheduler
	k      *cpu.FillArrayKernel
	output *array.KeyPointArray
}

// NewFillArray returns an unconfigured function running on sched.
func NewFillArray(sched scheduler.Scheduler) *FillArray {
	return &FillArray{sched: defaultScheduler(sched)}
}

// Configure scans valid, a sub-region of input's valid region.
func (f *FillArray) Configure(input *tensor.Tensor, valid tensor.ValidRegion, threshold uint8, output *array.KeyPointArray) error {
	if input == nil {
		return fmt.Errorf("fill array: %w: nil tensor", kernel.ErrInvalidArgument)
	}
	if err := cpu.ValidateFillArray(input.Info(), valid, output); err != nil {
		return err
	}
	f.k = cpu.NewFillArrayKernel()
	f.k.Configure(input, valid, threshold, output)
	f.output = output
	return nil
}

// Run clears the output array and refills it.
func (f *FillArray) Run() {
	if f.k == nil {
		panic("fill array: not configured")
	}
	f.output.Clear()
	f.sched.Schedule(f.k, tensor.DimY)
}
