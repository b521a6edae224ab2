// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

//go:build windows

package webgpu

import (
	internalwebgpu "github.com/born-ml/compute/internal/backend/webgpu"
)

// Device side types.
type (
	Tensor            = internalwebgpu.Tensor
	Scheduler         = internalwebgpu.Scheduler
	Kernel            = internalwebgpu.Kernel
	AdditionKernel    = internalwebgpu.AdditionKernel
	ConvolutionKernel = internalwebgpu.ConvolutionKernel
	Convolution       = internalwebgpu.Convolution
)

// NewAdditionKernel returns an unconfigured F32 addition kernel.
func NewAdditionKernel() *AdditionKernel {
	return internalwebgpu.NewAdditionKernel()
}

// NewConvolutionKernel returns an unconfigured size x size U8 convolution
// kernel.
func NewConvolutionKernel(size int) *ConvolutionKernel {
	return internalwebgpu.NewConvolutionKernel(size)
}

// NewConvolution returns an unconfigured convolution running on sched.
func NewConvolution(sched *Scheduler) *Convolution {
	return internalwebgpu.NewConvolution(sched)
}
