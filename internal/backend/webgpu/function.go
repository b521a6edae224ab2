//go:build windows

package webgpu

import (
	"fmt"

	"github.com/born-ml/compute/internal/backend/cpu"
	"github.com/born-ml/compute/internal/kernel"
	"github.com/born-ml/compute/internal/scheduler"
	"github.com/born-ml/compute/internal/tensor"
)

// Convolution filters a U8 image on the GPU. The input border is filled on
// the host, so the input must be mapped when Run is called; Run unmaps it.
//
// Example:
//
//	conv := webgpu.NewConvolution(ctx.NewScheduler())
//	in, out := ctx.NewTensor(src), ctx.NewTensor(dst)
//	if err := conv.Configure(in, out, gauss, 3, 0, tensor.BorderReplicate, 0); err != nil {
//	    return err
//	}
//	// allocate in and out, write the input through in.Host()
//	if err := conv.Run(); err != nil {
//	    return err
//	}
//	err := out.Map() // result in out.Host()
type Convolution struct {
	sched *Scheduler
	fill  *cpu.FillBorderKernel
	k     *ConvolutionKernel
	in    *Tensor
	out   *Tensor
}

// NewConvolution returns an unconfigured function running on sched.
func NewConvolution(sched *Scheduler) *Convolution {
	return &Convolution{sched: sched}
}

// Configure prepares a size x size convolution of in into out. Both must
// still be unallocated.
func (f *Convolution) Configure(in, out *Tensor, coeffs []int16, size int, scale uint32, mode tensor.BorderMode, constant float64) error {
	if in == nil || out == nil {
		return fmt.Errorf("gpu convolution: %w: nil tensor", kernel.ErrInvalidArgument)
	}
	undefined := mode == tensor.BorderUndefined
	if err := ValidateConvolution(in.Info(), out.Info(), coeffs, size, scale, undefined); err != nil {
		return err
	}
	k := NewConvolutionKernel(size)
	if err := k.Configure(in, out, coeffs, scale, undefined); err != nil {
		return err
	}
	fill := cpu.NewFillBorderKernel()
	fill.Configure(in.Host(), k.BorderSize(), mode, constant)

	if f.k != nil {
		f.k.Release()
	}
	f.k, f.fill, f.in, f.out = k, fill, in, out
	return nil
}

// Kernel returns the configured GPU kernel.
func (f *Convolution) Kernel() *ConvolutionKernel {
	return f.k
}

// Run fills the input border, uploads the input and enqueues the
// convolution. The output stays unmapped until the caller maps it.
func (f *Convolution) Run() error {
	if f.k == nil {
		panic("gpu convolution: not configured")
	}
	if err := f.in.Map(); err != nil {
		return err
	}
	scheduler.Single{}.Schedule(f.fill, tensor.DimZ)
	f.in.Unmap()
	f.out.Unmap()
	return f.sched.Enqueue(f.k, true)
}

// Close releases the kernel's device resources.
func (f *Convolution) Close() {
	if f.k != nil {
		f.k.Release()
		f.k = nil
	}
}
