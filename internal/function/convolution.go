// Package function composes CPU kernels into ready to run operations.
//
// A function configures every kernel it needs, including the border fill
// that precedes neighbourhood kernels, and owns any scratch tensor between
// them. Configure returns validation errors instead of panicking; Run
// schedules the kernels in order and returns once they have all completed.
package function

import (
	"fmt"
	"log/slog"

	"github.com/born-ml/compute/internal/backend/cpu"
	"github.com/born-ml/compute/internal/kernel"
	"github.com/born-ml/compute/internal/scheduler"
	"github.com/born-ml/compute/internal/tensor"
)

// Convolution filters a U8 image with a square or rectangular matrix.
//
// Square matrices that factor into a column and a row vector are run as two
// separable passes through an intermediate tensor owned by the function.
// The intermediate is released by Close.
//
// Example:
//
//	conv := function.NewConvolution(scheduler.NewCPU(0))
//	defer conv.Close()
//
//	// 3x3 Gaussian, scale derived from the coefficients
//	gauss := []int16{1, 2, 1, 2, 4, 2, 1, 2, 1}
//	if err := conv.Configure(src, dst, gauss, 3, 0, tensor.BorderReplicate, 0); err != nil {
//	    return err
//	}
//	// allocate src and dst, fill src
//	conv.Run()
type Convolution struct {
	sched     scheduler.Scheduler
	fill      *cpu.FillBorderKernel
	kernels   []kernel.Kernel
	tmp       *tensor.Tensor
	separable bool
}

// NewConvolution returns an unconfigured convolution that runs on sched. A
// nil sched selects a CPU scheduler sized from the environment.
func NewConvolution(sched scheduler.Scheduler) *Convolution {
	return &Convolution{sched: defaultScheduler(sched)}
}

// Configure prepares a size x size convolution of input into output. A zero
// scale is replaced by the absolute sum of the coefficients, or 1 when they
// sum to 0. constant is only used with tensor.BorderConstant.
//
// Padding is added to input and output as needed, so both should still be
// unallocated. With tensor.BorderUndefined the output valid region shrinks
// by size/2 on each side.
func (f *Convolution) Configure(input, output *tensor.Tensor, coeffs []int16, size int, scale uint32, mode tensor.BorderMode, constant float64) error {
	if input == nil || output == nil {
		return fmt.Errorf("convolution: %w: nil tensor", kernel.ErrInvalidArgument)
	}
	undefined := mode == tensor.BorderUndefined
	if err := cpu.ValidateConvolution(input.Info(), output.Info(), coeffs, size, scale, undefined); err != nil {
		return err
	}
	if scale == 0 {
		scale = cpu.CalculateMatrixScale(coeffs)
	}
	if err := f.Close(); err != nil {
		return err
	}

	var border tensor.BorderSize
	if col, row, ok := cpu.SeparateMatrix(coeffs, size); ok {
		var err error
		if border, err = f.configureSeparable(input, output, col, row, size, scale, undefined); err != nil {
			return err
		}
	} else {
		k := cpu.NewConvolutionKernel(size)
		k.Configure(input, output, coeffs, scale, undefined)
		f.kernels, f.separable = []kernel.Kernel{k}, false
		border = k.BorderSize()
	}

	f.fill = cpu.NewFillBorderKernel()
	f.fill.Configure(input, border, mode, constant)
	slog.Debug("convolution configured", "size", size, "scale", scale, "border", mode, "separable", f.separable)
	return nil
}

func (f *Convolution) configureSeparable(input, output *tensor.Tensor, col, row []int16, size int, scale uint32, undefined bool) (tensor.BorderSize, error) {
	info, err := tensor.NewInfo(input.Info().Shape(), cpu.IntermediateDataType(row))
	if err != nil {
		return tensor.BorderSize{}, fmt.Errorf("convolution: %w", err)
	}
	tmp := tensor.New(info)
	if err := cpu.ValidateSeparableHorizontal(input.Info(), tmp.Info(), row, size, undefined); err != nil {
		return tensor.BorderSize{}, err
	}
	if err := cpu.ValidateSeparableVertical(tmp.Info(), output.Info(), col, size, scale, undefined); err != nil {
		return tensor.BorderSize{}, err
	}

	h := cpu.NewSeparableHorizontalKernel(size)
	h.Configure(input, tmp, row, undefined)
	v := cpu.NewSeparableVerticalKernel(size)
	v.Configure(tmp, output, col, scale, undefined)
	if err := tmp.Allocate(); err != nil {
		return tensor.BorderSize{}, fmt.Errorf("convolution: intermediate: %w", err)
	}

	f.tmp = tmp
	f.kernels, f.separable = []kernel.Kernel{h, v}, true
	return h.BorderSize(), nil
}

// ConfigureRectangle prepares a convolution with a height x width matrix,
// each of 3, 5, 7 or 9. scale must not be 0.
func (f *Convolution) ConfigureRectangle(input, output *tensor.Tensor, coeffs []int16, width, height int, scale uint32, mode tensor.BorderMode, constant float64) error {
	if input == nil || output == nil {
		return fmt.Errorf("convolution rectangle: %w: nil tensor", kernel.ErrInvalidArgument)
	}
	undefined := mode == tensor.BorderUndefined
	if err := cpu.ValidateConvolutionRectangle(input.Info(), output.Info(), coeffs, width, height, scale, undefined); err != nil {
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	k := cpu.NewConvolutionRectangleKernel()
	k.Configure(input, output, coeffs, width, height, scale, undefined)
	f.kernels, f.separable = []kernel.Kernel{k}, false
	f.fill = cpu.NewFillBorderKernel()
	f.fill.Configure(input, k.BorderSize(), mode, constant)
	return nil
}

// Separable reports whether the configured matrix runs as two passes.
func (f *Convolution) Separable() bool {
	return f.separable
}

// Run fills the input border and convolves. It panics if the function is
// not configured.
func (f *Convolution) Run() {
	if f.fill == nil {
		panic("convolution: not configured")
	}
	f.sched.Schedule(f.fill, tensor.DimZ)
	for _, k := range f.kernels {
		f.sched.Schedule(k, tensor.DimY)
	}
}

// Close releases the intermediate tensor of a separable convolution. The
// function must be configured again before the next Run.
func (f *Convolution) Close() error {
	if f.tmp != nil {
		f.tmp.Free()
		f.tmp = nil
	}
	f.fill, f.kernels, f.separable = nil, nil, false
	return nil
}
